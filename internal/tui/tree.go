package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabsammlung/internal/board"
	"github.com/lotas/tabsammlung/internal/dnd"
	"github.com/lotas/tabsammlung/internal/types"
)

// TreeNode is a visible row: a collection header or one of its items.
type TreeNode struct {
	Collection *types.Collection // non-nil for headers
	Item       *types.Item       // non-nil for item rows
}

// CollectionID is the collection the row belongs to.
func (n TreeNode) CollectionID() string {
	if n.Collection != nil {
		return n.Collection.ID
	}
	if n.Item != nil {
		return n.Item.CollectionID
	}
	return ""
}

// TreeModel renders the board as a collapsible tree.
type TreeModel struct {
	Board  *board.Board
	Drag   *dnd.Reconciler
	Cursor int
	Offset int // scroll offset
	Width  int
	Height int
}

// VisibleNodes returns the flat list of rows. Items of expanded
// collections are filtered by the board's search.
func (m TreeModel) VisibleNodes() []TreeNode {
	if m.Board == nil {
		return nil
	}
	var nodes []TreeNode
	for _, c := range m.Board.Collections() {
		c := c
		nodes = append(nodes, TreeNode{Collection: &c})
		if !c.Expanded {
			continue
		}
		for _, it := range m.Board.CollectionTabs(c.ID) {
			it := it
			nodes = append(nodes, TreeNode{Item: &it})
		}
	}
	return nodes
}

// SelectedNode returns the row under the cursor, or nil.
func (m TreeModel) SelectedNode() *TreeNode {
	nodes := m.VisibleNodes()
	if m.Cursor >= 0 && m.Cursor < len(nodes) {
		return &nodes[m.Cursor]
	}
	return nil
}

// Bounds is the row span of a collection's header and visible items.
func (m TreeModel) Bounds(collectionID string) dnd.Rect {
	r := dnd.Rect{W: m.Width}
	found := false
	for i, n := range m.VisibleNodes() {
		if n.CollectionID() != collectionID {
			continue
		}
		if !found {
			r.Y = i
			found = true
		}
		r.H++
	}
	return r
}

// SlotIndex is the item's position in its collection's unfiltered order.
func (m TreeModel) SlotIndex(it types.Item) int {
	for i, c := range m.Board.RawCollectionTabs(it.CollectionID) {
		if c.ID == it.ID {
			return i
		}
	}
	return -1
}

// Clamp keeps the cursor inside the row list.
func (m *TreeModel) Clamp() {
	n := len(m.VisibleNodes())
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

// MoveUp moves the cursor up.
func (m *TreeModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

// MoveDown moves the cursor down.
func (m *TreeModel) MoveDown() {
	if m.Cursor < len(m.VisibleNodes())-1 {
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

// View renders the tree.
func (m TreeModel) View() string {
	nodes := m.VisibleNodes()
	if len(nodes) == 0 {
		return "No collections."
	}

	rows := m.Height
	if rows < 1 {
		rows = 20
	}
	end := m.Offset + rows
	if end > len(nodes) {
		end = len(nodes)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	headerStyle := lipgloss.NewStyle().Bold(true)
	hoverStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	starStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dragStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
	urlStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var dragItem, dragCollection string
	hover := ""
	if m.Drag != nil {
		switch d := m.Drag.Drag().(type) {
		case dnd.DraggingItem:
			dragItem = d.ID
		case dnd.DraggingCollection:
			dragCollection = d.ID
		}
		hover = m.Drag.Hover()
	}

	var b strings.Builder
	for i := m.Offset; i < end; i++ {
		node := nodes[i]
		var line string

		if c := node.Collection; c != nil {
			icon := "▶"
			if c.Expanded {
				icon = "▼"
			}
			star := ""
			if c.Starred {
				star = starStyle.Render("★") + " "
			}
			label := fmt.Sprintf("%s %s%s (%d)", icon, star, c.Name, len(m.Board.RawCollectionTabs(c.ID)))
			style := headerStyle
			if c.ID == hover {
				style = hoverStyle
			}
			line = style.Render(label)
			if c.ID == dragCollection {
				line = dragStyle.Render("⇅ ") + line
			}
		} else if it := node.Item; it != nil {
			prefix := "  "
			if m.Board.IsSelected(it.ID) {
				prefix = "▸ "
			}
			if it.ID == dragItem {
				prefix = dragStyle.Render("⇅ ")
			}
			title := it.Title
			if title == "" {
				title = it.URL
			}
			maxLen := m.Width - 4
			if maxLen < 10 {
				maxLen = 10
			}
			line = prefix + truncate(title, maxLen)
			if rest := maxLen - len([]rune(title)) - 3; rest > 10 && it.URL != title {
				line += " " + urlStyle.Render(truncate(it.URL, rest))
			}
		}

		if i == m.Cursor {
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

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
