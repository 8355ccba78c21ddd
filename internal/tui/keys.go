package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Lower key.Binding
	Raise key.Binding
	Apply key.Binding
	Reset key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Lower, k.Raise, k.Apply, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Lower: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "lower")),
	Raise: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "raise")),
	Apply: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
