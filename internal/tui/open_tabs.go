package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabsammlung/internal/types"
)

// TabsModel lists the current window's open tabs.
type TabsModel struct {
	Tabs   []types.OpenTab
	Cursor int
	Offset int
	Width  int
	Height int

	// Dragging is the index of the tab being dragged, or -1.
	Dragging int
}

func (m TabsModel) Selected() *types.OpenTab {
	if m.Cursor >= 0 && m.Cursor < len(m.Tabs) {
		return &m.Tabs[m.Cursor]
	}
	return nil
}

// SetTabs replaces the list, keeping the cursor in range.
func (m *TabsModel) SetTabs(tabs []types.OpenTab) {
	m.Tabs = tabs
	if m.Cursor >= len(tabs) {
		m.Cursor = len(tabs) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

func (m *TabsModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

func (m *TabsModel) MoveDown() {
	if m.Cursor < len(m.Tabs)-1 {
		m.Cursor++
	}
	rows := m.Height - 2
	if rows < 1 {
		rows = 1
	}
	if m.Cursor >= m.Offset+rows {
		m.Offset = m.Cursor - rows + 1
	}
}

func (m TabsModel) View(focused bool) string {
	if len(m.Tabs) == 0 {
		return "No open tabs."
	}
	rows := m.Height
	if rows < 1 {
		rows = 20
	}
	end := m.Offset + rows
	if end > len(m.Tabs) {
		end = len(m.Tabs)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dragStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("135"))

	var b strings.Builder
	for i := m.Offset; i < end; i++ {
		t := m.Tabs[i]
		prefix := "  "
		switch {
		case i == m.Dragging:
			prefix = dragStyle.Render("⇅ ")
		case t.Active:
			prefix = activeStyle.Render("● ")
		case t.Pinned:
			prefix = "⊙ "
		}
		line := prefix + truncate(t.Title, m.Width-3)
		if focused && i == m.Cursor {
			if pad := m.Width - lipgloss.Width(line); pad > 0 {
				line += strings.Repeat(" ", pad)
			}
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
