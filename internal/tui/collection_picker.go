package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabsammlung/internal/types"
)

// CollectionPicker chooses the target of a bulk move.
type CollectionPicker struct {
	Collections []types.Collection
	Counts      map[string]int
	Selected    int // number of items being moved
	Cursor      int
	Width       int
	Height      int
}

func NewCollectionPicker(cols []types.Collection, counts map[string]int, selected int) CollectionPicker {
	return CollectionPicker{Collections: cols, Counts: counts, Selected: selected}
}

func (m *CollectionPicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *CollectionPicker) MoveDown() {
	if m.Cursor < len(m.Collections)-1 {
		m.Cursor++
	}
}

func (m CollectionPicker) Current() *types.Collection {
	if m.Cursor >= 0 && m.Cursor < len(m.Collections) {
		return &m.Collections[m.Cursor]
	}
	return nil
}

func (m CollectionPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Move %d selected to:", m.Selected)) + "\n\n")
	for i, c := range m.Collections {
		label := fmt.Sprintf("%s (%d)", c.Name, m.Counts[c.ID])
		if i == m.Cursor {
			label = selectedStyle.Render(label)
		} else {
			label = normalStyle.Render("  " + label)
		}
		b.WriteString(label + "\n")
	}
	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter confirm · esc cancel"))
	return boxStyle.Render(b.String())
}
