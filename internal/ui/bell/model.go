// Package bell is the notification panel of the terminal UI.
package bell

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-bell/internal/keys"
	"github.com/nhle/notification-bell/internal/render"
	"github.com/nhle/notification-bell/internal/theme"
	"github.com/nhle/notification-bell/internal/widget"
)

// ItemClickedMsg is sent when the user acknowledges the selected card.
type ItemClickedMsg struct {
	ID int64
}

// Model is the notification panel. It renders whatever snapshot it was
// last given and never talks to the widget itself.
type Model struct {
	list       list.Model
	keys       *keys.KeyMap
	message    string
	failed     bool
	needsPhone bool
	width      int
	height     int
}

// New creates a panel model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ReceiptDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{list: l, keys: k, width: width, height: height}
}

// SetSnapshot replaces the rendered items. The selection is kept on the
// same notification when it is still present.
func (m *Model) SetSnapshot(s widget.Snapshot) tea.Cmd {
	m.message = render.ListMessage(s)
	m.failed = s.Feed == widget.FeedFailed
	m.needsPhone = s.Feed == widget.FeedNeedsIdentifier

	selected, hadSelection := m.SelectedID()
	receipts := render.Receipts(s.Mode, s.Items)
	items := make([]list.Item, len(receipts))
	index := 0
	for i, r := range receipts {
		items[i] = ReceiptItem{Receipt: r}
		if hadSelection && r.ID == selected {
			index = i
		}
	}
	cmd := m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(index)
	}
	return cmd
}

// SelectedID returns the id of the focused card.
func (m Model) SelectedID() (int64, bool) {
	ri, ok := m.list.SelectedItem().(ReceiptItem)
	if !ok {
		return 0, false
	}
	return ri.Receipt.ID, true
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles navigation and the read key.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Read) {
		id, ok := m.SelectedID()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ItemClickedMsg{ID: id} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	var body string
	switch {
	case m.failed:
		body = lipgloss.JoinVertical(lipgloss.Left,
			theme.HeaderStyle.Render("Notifications"),
			theme.ErrorStyle.Padding(1, 2).Render(m.message),
		)
	case m.needsPhone:
		body = lipgloss.JoinVertical(lipgloss.Left,
			theme.HeaderStyle.Render("Notifications"),
			theme.EmptyStyle.Render(m.message),
			theme.HelpStyle.PaddingLeft(2).Render("press p to set phone"),
		)
	case m.message != "":
		body = lipgloss.JoinVertical(lipgloss.Left,
			theme.HeaderStyle.Render("Notifications"),
			theme.EmptyStyle.Render(m.message),
		)
	default:
		body = m.list.View()
	}

	return theme.PanelStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(body)
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width-4, height-4)
}
