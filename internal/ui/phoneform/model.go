// Package phoneform is the embedded "Set Phone" form.
package phoneform

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-bell/internal/identity"
	"github.com/nhle/notification-bell/internal/theme"
)

// SubmittedMsg is dispatched with the validated phone number.
type SubmittedMsg struct {
	Phone string
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	phone string
}

// Model is the Bubble Tea model for the phone form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a phone form model.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// Start resets the form, prefilled with current.
func (m *Model) Start(current string) tea.Cmd {
	m.fb.phone = current
	m.form = huh.NewForm(
		huh.NewGroup(identity.NewPhoneInput(&m.fb.phone)),
	).WithShowHelp(false)
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		phone := m.fb.phone
		m.form = nil
		return m, func() tea.Msg { return SubmittedMsg{Phone: phone} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Set Phone") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form.WithWidth(width - 4)
	}
}
