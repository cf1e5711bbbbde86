// Package tui implements the terminal survey using Bubble Tea.
package tui

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Common key binding constants.
const (
	KeyCtrlC    = "ctrl+c"
	KeyTab      = "tab"
	KeyShiftTab = "shift+tab"
	KeyEnter    = "enter"
	KeyEsc      = "esc"
	KeyUp       = "up"
	KeyDown     = "down"
	KeyLeft     = "left"
	KeyRight    = "right"
	KeySpace    = " "
)

// ErrNotInteractive is returned by Run when stdout is not a terminal.
var ErrNotInteractive = errors.New("not a terminal")

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run starts the TUI program with the given model in alternate screen mode.
// Callers fall back to a FallbackRunner when it returns ErrNotInteractive.
func Run(m tea.Model) error {
	if !IsTTY() {
		return ErrNotInteractive
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
