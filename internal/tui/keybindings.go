package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the survey.
type KeyMap struct {
	// Navigation between fields of a step
	Next key.Binding
	Prev key.Binding

	// Within a field
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding

	// Step control
	Submit key.Binding
	Back   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap provides the default key bindings. Letter keys are left
// free so text fields can take them.
var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys(KeyDown, KeyTab),
		key.WithHelp("↓/tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys(KeyUp, KeyShiftTab),
		key.WithHelp("↑/shift+tab", "previous field"),
	),
	Left: key.NewBinding(
		key.WithKeys(KeyLeft),
		key.WithHelp("←", "previous choice"),
	),
	Right: key.NewBinding(
		key.WithKeys(KeyRight),
		key.WithHelp("→", "next choice"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(KeySpace),
		key.WithHelp("space", "tick"),
	),
	Submit: key.NewBinding(
		key.WithKeys(KeyEnter),
		key.WithHelp("enter", "next"),
	),
	Back: key.NewBinding(
		key.WithKeys(KeyEsc),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys(KeyCtrlC),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Back, k.Next, k.Left, k.Toggle, k.Quit}
}

// FullHelp lists every binding, grouped by column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Back, k.Quit},
		{k.Next, k.Prev},
		{k.Left, k.Right, k.Toggle},
	}
}
