package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the monitor key bindings with built-in help text.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding

	NextDeck key.Binding
	PrevDeck key.Binding

	Inactive     key.Binding
	Normal       key.Binding
	Arrhythmia   key.Binding
	Noisy        key.Binding
	Stutter      key.Binding
	ToggleActive key.Binding
	Export       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),

		NextDeck: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next deck"),
		),
		PrevDeck: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev deck"),
		),

		Inactive: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "inactive"),
		),
		Normal: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "normal"),
		),
		Arrhythmia: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "arrhythmia"),
		),
		Noisy: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "noisy"),
		),
		Stutter: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "stutter"),
		),
		ToggleActive: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "start/stop"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export png"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleActive, k.Normal, k.Arrhythmia, k.Export, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Inactive, k.Normal, k.Arrhythmia, k.Noisy, k.Stutter},
		{k.ToggleActive, k.Export, k.NextDeck, k.PrevDeck},
		{k.Help, k.Quit, k.ForceQuit},
	}
}

// modeKeys maps mode bindings to mode names.
func (k KeyMap) modeKeys() []struct {
	binding key.Binding
	mode    string
} {
	return []struct {
		binding key.Binding
		mode    string
	}{
		{k.Inactive, "inactive"},
		{k.Normal, "normal"},
		{k.Arrhythmia, "arrhythmia"},
		{k.Noisy, "noisy"},
		{k.Stutter, "stutter"},
	}
}
