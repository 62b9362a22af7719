package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/board"
	"github.com/lotas/tabsammlung/internal/channel"
	"github.com/lotas/tabsammlung/internal/dnd"
	"github.com/lotas/tabsammlung/internal/types"
)

const requestTimeout = 5 * time.Second

// --- Messages ---

type openTabsMsg struct {
	tabs []types.OpenTab
	err  string
}

type notificationMsg struct{ msg channel.Message }

type channelClosedMsg struct{}

type statusMsg string

// --- Command helpers ---

func fetchOpenTabs(c *channel.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp := c.Send(ctx, channel.Request(channel.GetOpenTabs))
		if resp == nil {
			return openTabsMsg{err: "background process unavailable"}
		}
		if !resp.OK {
			return openTabsMsg{err: resp.Error}
		}
		return openTabsMsg{tabs: resp.Tabs}
	}
}

func listenNotifications(c *channel.Client) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-c.Notifications()
		if !ok {
			return channelClosedMsg{}
		}
		return notificationMsg{msg: msg}
	}
}

func activateTab(c *channel.Client, tabID int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp := c.Send(ctx, channel.ActivateTabRequest(tabID))
		if resp == nil || !resp.OK {
			return statusMsg("could not activate tab")
		}
		return nil
	}
}

func saveCurrentTab(c *channel.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp := c.Send(ctx, channel.Request(channel.SaveCurrentTab))
		switch {
		case resp == nil:
			return statusMsg("background process unavailable")
		case !resp.OK:
			return statusMsg("save failed: " + resp.Error)
		case resp.Item != nil:
			return statusMsg("saved " + resp.Item.Title)
		}
		return statusMsg("saved")
	}
}

func copyURL(url string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(url); err != nil {
			applog.Error("tui.copy", err)
			return statusMsg("clipboard unavailable")
		}
		return statusMsg("copied " + url)
	}
}

// --- Model ---

type pane int

const (
	paneCollections pane = iota
	paneTabs
)

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputEditTitle
	inputNewCollection
	inputRename
)

type Model struct {
	board  *board.Board
	drag   *dnd.Reconciler
	client *channel.Client // nil when running without a background process

	tree       TreeModel
	tabs       TabsModel
	picker     CollectionPicker
	showPicker bool

	input  textinput.Model
	mode   inputMode
	editID string

	pane      pane
	status    string
	width     int
	height    int
	connected bool
}

// NewModel builds the dashboard over b. client may be nil.
func NewModel(b *board.Board, client *channel.Client) Model {
	drag := dnd.New(b)
	input := textinput.New()
	input.CharLimit = 500
	input.Width = 40
	return Model{
		board:     b,
		drag:      drag,
		client:    client,
		tree:      TreeModel{Board: b, Drag: drag},
		tabs:      TabsModel{Dragging: -1},
		input:     input,
		connected: client != nil,
	}
}

func (m Model) Init() tea.Cmd {
	if m.client == nil {
		return nil
	}
	return tea.Batch(fetchOpenTabs(m.client), listenNotifications(m.client))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		treeWidth := m.width * 55 / 100
		tabsWidth := m.width - treeWidth - 4 // borders
		paneHeight := m.height - 5           // top bar + bottom bar
		m.tree.Width = treeWidth
		m.tree.Height = paneHeight
		m.tabs.Width = tabsWidth
		m.tabs.Height = paneHeight
		m.picker.Width = m.width
		m.picker.Height = m.height
		return m, nil

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.updateInput(msg)
		}

		// Collection picker mode
		if m.showPicker {
			switch msg.String() {
			case "up", "k":
				m.picker.MoveUp()
			case "down", "j":
				m.picker.MoveDown()
			case "enter":
				if c := m.picker.Current(); c != nil {
					n := len(m.board.Selected())
					m.board.BulkMove(c.ID)
					m.status = fmt.Sprintf("moved %d to %s", n, c.Name)
				}
				m.showPicker = false
				m.tree.Clamp()
			case "esc":
				m.showPicker = false
			case "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}

		m.status = ""
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.drag.Dragging() {
				return m, nil
			}
			if m.pane == paneCollections {
				m.pane = paneTabs
			} else {
				m.pane = paneCollections
			}
			return m, nil
		case "S":
			if m.client == nil {
				m.status = "not connected"
				return m, nil
			}
			return m, saveCurrentTab(m.client)
		case "/":
			m.mode = inputSearch
			m.input.Placeholder = "search"
			m.input.SetValue(m.board.Search())
			return m, m.input.Focus()
		}

		if m.pane == paneTabs {
			return m.updateTabsPane(msg)
		}
		return m.updateCollectionsPane(msg)

	case openTabsMsg:
		if msg.err != "" {
			m.status = msg.err
			return m, nil
		}
		m.tabs.SetTabs(msg.tabs)
		m.drag.SetOpenTabs(msg.tabs)
		return m, nil

	case notificationMsg:
		if msg.msg.Type == channel.OpenTabsUpdated {
			return m, tea.Batch(fetchOpenTabs(m.client), listenNotifications(m.client))
		}
		return m, listenNotifications(m.client)

	case channelClosedMsg:
		m.connected = false
		m.status = "background process disconnected"
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) updateTabsPane(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.tabs.MoveUp()
	case "down", "j":
		m.tabs.MoveDown()
	case "enter":
		t := m.tabs.Selected()
		if t == nil || m.client == nil {
			return m, nil
		}
		return m, activateTab(m.client, t.ID)
	case "m":
		if m.tabs.Selected() == nil {
			return m, nil
		}
		if _, ok := m.drag.StartOpenTab(m.tabs.Cursor); ok {
			m.tabs.Dragging = m.tabs.Cursor
			m.pane = paneCollections
			m.trackHover("")
		}
	case "y":
		if t := m.tabs.Selected(); t != nil {
			return m, copyURL(t.URL)
		}
	}
	return m, nil
}

func (m Model) updateCollectionsPane(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	node := m.tree.SelectedNode()

	if m.drag.Dragging() {
		switch msg.String() {
		case "up", "k":
			prev := m.drag.Hover()
			m.tree.MoveUp()
			m.trackHover(prev)
		case "down", "j":
			prev := m.drag.Hover()
			m.tree.MoveDown()
			m.trackHover(prev)
		case "m", "enter":
			m.dropAtCursor()
		case "esc":
			m.drag.End()
			m.tabs.Dragging = -1
		}
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "enter":
		if node != nil && node.Collection != nil {
			m.board.ToggleExpanded(node.Collection.ID)
			m.tree.Clamp()
		}
	case " ":
		if node != nil && node.Item != nil {
			m.board.ToggleSelected(node.Item.ID)
			m.tree.MoveDown()
		}
	case "m":
		if node == nil {
			return m, nil
		}
		var ok bool
		if node.Collection != nil {
			_, ok = m.drag.StartCollection(node.Collection.ID)
		} else {
			_, ok = m.drag.StartItem(node.Item.ID)
		}
		if ok {
			m.trackHover("")
		}
	case "esc":
		m.board.ClearSelection()
	case "d":
		if node == nil {
			return m, nil
		}
		if node.Item != nil {
			m.board.DeleteTab(node.Item.ID)
		} else if node.Collection.ID == types.DefaultCollectionID {
			m.status = "the default collection cannot be deleted"
		} else {
			m.board.DeleteCollection(node.Collection.ID)
		}
		m.tree.Clamp()
	case "c":
		if node != nil && node.Item != nil {
			m.board.DuplicateTab(node.Item.ID)
		}
	case "e":
		if node != nil && node.Item != nil {
			m.editID = node.Item.ID
			return m, m.prompt(inputEditTitle, "title", node.Item.Title)
		}
	case "n":
		return m, m.prompt(inputNewCollection, "collection name", "")
	case "r":
		if node != nil && node.Collection != nil {
			m.editID = node.Collection.ID
			return m, m.prompt(inputRename, "collection name", node.Collection.Name)
		}
	case "s":
		if node != nil {
			m.board.ToggleStarred(node.CollectionID())
		}
	case "M":
		sel := m.board.Selected()
		if len(sel) == 0 {
			m.status = "nothing selected"
			return m, nil
		}
		counts := make(map[string]int)
		for _, it := range m.board.Items() {
			counts[it.CollectionID]++
		}
		m.picker = NewCollectionPicker(m.board.Collections(), counts, len(sel))
		m.picker.Width = m.width
		m.picker.Height = m.height
		m.showPicker = true
	case "D":
		n := len(m.board.Selected())
		m.board.BulkDelete()
		if n > 0 {
			m.status = fmt.Sprintf("deleted %d", n)
		}
		m.tree.Clamp()
	case "y":
		if node != nil && node.Item != nil {
			return m, copyURL(node.Item.URL)
		}
	}
	return m, nil
}

func (m *Model) prompt(mode inputMode, placeholder, value string) tea.Cmd {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := m.input.Value()
		switch m.mode {
		case inputEditTitle:
			if it, ok := m.board.Item(m.editID); ok && value != "" {
				m.board.EditTab(it.ID, value, it.URL)
			}
		case inputNewCollection:
			if _, ok := m.board.AddCollection(value); !ok {
				m.status = "collection name required"
			}
		case inputRename:
			m.board.RenameCollection(m.editID, value)
		}
		m.closeInput()
		return m, nil
	case "esc":
		if m.mode == inputSearch {
			m.board.SetSearch("")
			m.tree.Clamp()
		}
		m.closeInput()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == inputSearch {
		m.board.SetSearch(m.input.Value())
		m.tree.Clamp()
	}
	return m, cmd
}

func (m *Model) closeInput() {
	m.mode = inputNone
	m.editID = ""
	m.input.Blur()
	m.input.SetValue("")
}

// trackHover follows the cursor during a keyboard drag: the previous
// target is left once the cursor row falls outside its rows, and the
// collection under the cursor becomes the hover target.
func (m *Model) trackHover(prev string) {
	if prev != "" {
		m.drag.Leave(dnd.Point{Y: m.tree.Cursor}, m.tree.Bounds(prev))
	}
	if node := m.tree.SelectedNode(); node != nil {
		m.drag.Over(node.CollectionID())
	}
}

func (m *Model) dropAtCursor() {
	defer func() { m.tabs.Dragging = -1 }()
	node := m.tree.SelectedNode()
	if node == nil {
		m.drag.End()
		return
	}
	if c := node.Collection; c != nil {
		if _, ok := m.drag.Drag().(dnd.DraggingCollection); ok {
			m.drag.DropOnCollection(c.ID)
		} else {
			m.drag.Drop(c.ID)
		}
	} else {
		m.drag.DropAt(node.Item.CollectionID, m.tree.SlotIndex(*node.Item))
	}
	m.tree.Clamp()
}

func (m Model) View() string {
	if m.showPicker {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	// Top bar
	topBarStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	conn := "○ offline"
	if m.connected {
		conn = "● connected"
	}
	statsStr := fmt.Sprintf("%d items · %d collections · %d open tabs",
		len(m.board.Items()), len(m.board.Collections()), len(m.tabs.Tabs))
	if n := len(m.board.Selected()); n > 0 {
		statsStr += fmt.Sprintf(" · %d selected", n)
	}
	if q := m.board.Search(); q != "" {
		statsStr += fmt.Sprintf(" · [search: %s]", q)
	}
	topBar := topBarStyle.Render("Tabsammlung " + conn + "  " + statsStr)

	// Panes
	treeColor, tabsColor := lipgloss.Color("62"), lipgloss.Color("240")
	if m.pane == paneTabs {
		treeColor, tabsColor = tabsColor, treeColor
	}
	treeBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(treeColor).
		Width(m.tree.Width).
		Height(m.tree.Height)
	tabsBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tabsColor).
		Width(m.tabs.Width).
		Height(m.tabs.Height)

	left := treeBorder.Render(m.tree.View())
	right := tabsBorder.Render(m.tabs.View(m.pane == paneTabs))
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	// Bottom bar
	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	var bottomText string
	switch {
	case m.mode != inputNone:
		return lipgloss.JoinVertical(lipgloss.Left, topBar, panes, " "+m.input.View())
	case m.status != "":
		bottomText = m.status
	case m.drag.Dragging():
		bottomText = "dragging · ↑↓/jk target · m/enter drop · esc cancel"
	case m.pane == paneTabs:
		bottomText = "↑↓/jk navigate · enter activate · m drag · y copy URL · tab collections · S save · q quit"
	default:
		bottomText = "↑↓/jk navigate · enter expand · space select · m drag · d delete · c dup · e edit · n new · r rename · s star · / search · M move · D delete selected · y copy · tab tabs · q quit"
	}
	bottomBar := bottomBarStyle.Render(bottomText)

	return lipgloss.JoinVertical(lipgloss.Left, topBar, panes, bottomBar)
}
