package monitor

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard key bindings. It satisfies help.KeyMap so the
// footer can be rendered by the bubbles help component.
type KeyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Help    key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh now"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
	}
}

// ShortHelp returns the bindings shown in the one-line footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Refresh, k.Help}
}

// FullHelp returns the bindings shown when the footer is expanded.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Refresh},
		{k.Help},
	}
}
