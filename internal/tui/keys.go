package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the client.
type KeyMap struct {
	Quit      key.Binding
	Reconnect key.Binding
	Typing    key.Binding
	Dismiss   key.Binding
	Logout    key.Binding
	Presence  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Typing: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "send typing"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "stay signed in"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
		Presence: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "peer online?"),
		),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reconnect, k.Typing, k.Presence, k.Dismiss, k.Logout, k.Quit}
}
