package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the cleanup screen
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Logs key.Binding

	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding

	Toggle    key.Binding
	ToggleAll key.Binding
	Convert   key.Binding
	Rescan    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Logs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "h", "pgup"),
			key.WithHelp("←/h", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "l", "pgdown"),
			key.WithHelp("→/l", "next page"),
		),

		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		ToggleAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select all"),
		),
		Convert: key.NewBinding(
			key.WithKeys("enter", "c"),
			key.WithHelp("enter", "convert"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r", "rescan"),
		),
	}
}

// ShortHelp returns key help text for the footer
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.ToggleAll, k.Convert, k.Help, k.Quit}
}

// FullHelp returns every binding
func (k KeyMap) FullHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.PrevPage, k.NextPage, k.Toggle, k.ToggleAll, k.Convert, k.Rescan, k.Logs, k.Help, k.Quit}
}

// SetConverting disables the actions that must not run during a conversion.
func (k *KeyMap) SetConverting(inFlight bool) {
	k.Convert.SetEnabled(!inFlight)
	k.Rescan.SetEnabled(!inFlight)
}
