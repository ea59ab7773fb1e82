package help

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-bell/internal/keys"
	"github.com/nhle/notification-bell/internal/model"
	"github.com/nhle/notification-bell/internal/render"
	"github.com/nhle/notification-bell/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	mode   model.RecipientType
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, mode model.RecipientType, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		mode:   mode,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	legend := theme.HelpStyle.MarginTop(1).Render(m.legend())

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, legend)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func (m Model) legend() string {
	s := fmt.Sprintf(
		"Opening the panel marks everything read. The badge shows up to %d, then %d+.",
		render.MaxBadge, render.MaxBadge,
	)
	if m.mode == model.RecipientUser {
		s += "\nNotifications are looked up by your phone number (p to change it, x to clear it)."
	}
	return s
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
