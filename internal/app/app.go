package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-bell/internal/identity"
	"github.com/nhle/notification-bell/internal/keys"
	"github.com/nhle/notification-bell/internal/model"
	"github.com/nhle/notification-bell/internal/theme"
	"github.com/nhle/notification-bell/internal/ui"
	"github.com/nhle/notification-bell/internal/ui/bell"
	helpview "github.com/nhle/notification-bell/internal/ui/help"
	"github.com/nhle/notification-bell/internal/ui/phoneform"
	"github.com/nhle/notification-bell/internal/widget"
)

// snapshotMsg carries the latest widget state to the UI.
type snapshotMsg struct {
	snap widget.Snapshot
}

// doneMsg ends a foreground request started with run.
type doneMsg struct{}

// phoneSavedMsg reports the outcome of saving or clearing the phone.
type phoneSavedMsg struct {
	// phone is what the resolver now sends, which may differ from what
	// was typed.
	phone   string
	cleared bool
	err     error
}

// configuredPhoneStatus is shown when config or --phone pins the number.
const configuredPhoneStatus = "phone is set by config (identity.phone / --phone)"

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBell ViewState = iota
	ViewPhone
	ViewHelp
)

// Model is the root Bubble Tea model. It drives the widget from key
// presses and re-renders from the snapshots the widget publishes.
type Model struct {
	ctx     context.Context
	widget  *widget.Widget
	ident   *identity.Resolver
	updates chan widget.Snapshot

	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	panel        bell.Model
	phoneForm    phoneform.Model
	helpView     helpview.Model
	spinner      spinner.Model

	// busy counts foreground requests in flight.
	busy int

	snap         widget.Snapshot
	phone        string
	pollInterval time.Duration
	status       string
	ready        bool
}

// Options configures the root model.
type Options struct {
	PollInterval time.Duration
}

// New creates the root model and subscribes it to w. Call Init (through
// tea.NewProgram) to start polling.
func New(ctx context.Context, w *widget.Widget, ident *identity.Resolver, opts Options) Model {
	k := keys.DefaultKeyMap()
	updates := make(chan widget.Snapshot, 1)

	// Only the newest snapshot matters; an unread older one is replaced.
	w.Subscribe(func(s widget.Snapshot) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.HelpStyle

	snap := w.Snapshot()
	return Model{
		ctx:          ctx,
		widget:       w,
		ident:        ident,
		updates:      updates,
		currentView:  ViewBell,
		keys:         k,
		panel:        bell.New(k, 80, 24),
		phoneForm:    phoneform.New(80, 24),
		helpView:     helpview.New(k, snap.Mode, 80, 24),
		spinner:      sp,
		snap:         snap,
		phone:        ident.Resolve(ctx, false),
		pollInterval: opts.PollInterval,
	}
}

// Init starts polling and begins listening for snapshots.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.start(), m.waitForSnapshot(), m.spinner.Tick)
}

func (m Model) start() tea.Cmd {
	w, ctx := m.widget, m.ctx
	return func() tea.Msg {
		w.Start(ctx)
		return nil
	}
}

// waitForSnapshot returns a tea.Cmd that blocks until the widget
// publishes a new state.
func (m Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		return snapshotMsg{snap: <-updates}
	}
}

// run executes fn off the UI goroutine and counts it as busy until it
// returns. The widget publishes the result.
func (m *Model) run(fn func(ctx context.Context)) tea.Cmd {
	m.busy++
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return doneMsg{}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.panel.SetSize(contentWidth, contentHeight)
		m.phoneForm.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		return m.updateActiveView(msg)

	case snapshotMsg:
		m.snap = msg.snap
		cmd := m.panel.SetSnapshot(msg.snap)
		return m, tea.Batch(cmd, m.waitForSnapshot())

	case doneMsg:
		if m.busy > 0 {
			m.busy--
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bell.ItemClickedMsg:
		id := msg.ID
		cmd := m.run(func(ctx context.Context) { m.widget.ClickItem(ctx, id, false) })
		return m, cmd

	case phoneform.SubmittedMsg:
		m.currentView = ViewBell
		cmd := m.savePhone(msg.Phone)
		return m, cmd

	case phoneform.CancelMsg:
		m.currentView = ViewBell
		return m, nil

	case phoneSavedMsg:
		if m.busy > 0 {
			m.busy--
		}
		if msg.err != nil {
			m.status = "could not update phone: " + msg.err.Error()
			return m, nil
		}
		m.phone = msg.phone
		m.status = "phone saved"
		if msg.cleared {
			m.status = "phone cleared"
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.currentView {
		case ViewPhone:
			if msg.String() == "esc" {
				m.currentView = ViewBell
				return m, nil
			}
		case ViewHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Close) {
				m.currentView = m.previousView
			}
			return m, nil
		case ViewBell:
			return m.handleBellKeys(msg)
		}
	}

	return m.updateActiveView(msg)
}

func (m Model) handleBellKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.status = ""
		cmd := m.run(func(ctx context.Context) { m.widget.TogglePanel(ctx) })
		return m, cmd

	case key.Matches(msg, m.keys.Close):
		// The only thing outside the panel in a terminal is the rest of
		// the screen.
		m.widget.HandleDocumentClick(false)
		return m, nil

	case key.Matches(msg, m.keys.SetPhone):
		if m.snap.Mode != model.RecipientUser {
			return m, nil
		}
		if m.ident.Configured() != "" {
			m.status = configuredPhoneStatus
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewPhone
		cmd := m.phoneForm.Start(m.phone)
		return m, cmd

	case key.Matches(msg, m.keys.ClearPhone):
		if m.snap.Mode != model.RecipientUser {
			return m, nil
		}
		if m.ident.Configured() != "" {
			m.status = configuredPhoneStatus
			return m, nil
		}
		cmd := m.clearPhone()
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		fn := m.widget.RefreshCount
		if m.snap.Open {
			fn = m.widget.Reload
		}
		cmd := m.run(fn)
		return m, cmd
	}

	if m.snap.Open {
		return m.updateActiveView(msg)
	}
	return m, nil
}

// savePhone persists phone and reloads the feed and count for it.
func (m *Model) savePhone(phone string) tea.Cmd {
	m.busy++
	ctx, ident, w := m.ctx, m.ident, m.widget
	return func() tea.Msg {
		if _, err := ident.Remember(ctx, phone); err != nil {
			return phoneSavedMsg{err: err}
		}
		w.Reload(ctx)
		return phoneSavedMsg{phone: ident.Resolve(ctx, false)}
	}
}

// clearPhone forgets the stored phone. The widget then falls back to the
// set-phone call to action.
func (m *Model) clearPhone() tea.Cmd {
	m.busy++
	ctx, ident, w := m.ctx, m.ident, m.widget
	return func() tea.Msg {
		if err := ident.Forget(ctx); err != nil {
			return phoneSavedMsg{err: err}
		}
		w.Reload(ctx)
		return phoneSavedMsg{phone: ident.Resolve(ctx, false), cleared: true}
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.widget.Stop()
	return m, tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBell:
		m.panel, cmd = m.panel.Update(msg)
	case ViewPhone:
		m.phoneForm, cmd = m.phoneForm.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.title(), m.snap.UnreadCount)
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) title() string {
	if m.snap.Mode == model.RecipientAdmin {
		return "Notifications | admin"
	}
	if m.phone == "" {
		return "Notifications | no phone set"
	}
	return "Notifications | " + m.phone
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewPhone:
		return m.phoneForm.View()
	case ViewHelp:
		return m.helpView.View()
	}

	if m.snap.Open {
		return m.panel.View()
	}

	return lipgloss.Place(
		m.layout.ContentWidth(),
		m.layout.ContentHeight(),
		lipgloss.Center,
		lipgloss.Center,
		theme.HelpStyle.Render(m.closedHint()),
	)
}

func (m Model) closedHint() string {
	hint := "press b to open notifications"
	if m.snap.Loop == widget.LoopPolling && m.pollInterval > 0 {
		hint += fmt.Sprintf("\nchecking every %s", m.pollInterval)
	}
	return hint
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.busy > 0 && m.currentView == ViewBell {
		return m.spinner.View() + " loading"
	}
	if m.status != "" && m.currentView == ViewBell {
		return m.status
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewPhone:
		return "enter save | esc cancel"
	}

	hints := "b open | r refresh | ? help | q quit"
	if m.snap.Open {
		hints = "enter mark read | j/k move | esc close | r refresh | q quit"
	}
	if m.snap.Mode == model.RecipientUser {
		hints += " | p set phone | x clear phone"
	}
	return hints
}
