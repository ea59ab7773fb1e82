package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Bell
	Toggle     key.Binding
	Read       key.Binding
	SetPhone   key.Binding
	ClearPhone key.Binding

	// Close is the terminal's "click outside the panel".
	Close key.Binding

	// Manual refresh
	Refresh key.Binding

	// Help toggle
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("b", " "),
			key.WithHelp("b/space", "open/close panel"),
		),
		Read: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "mark read"),
		),
		SetPhone: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "set phone"),
		),
		ClearPhone: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear phone"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close panel"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Toggle, k.Read, k.Close, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Read},
		{k.Toggle, k.Close, k.Refresh},
		{k.SetPhone, k.ClearPhone},
		{k.Help, k.Quit},
	}
}
