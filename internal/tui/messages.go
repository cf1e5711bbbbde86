package tui

import "github.com/drivesound/drivesound/internal/flow"

// StepResultMsg carries the result of a Forward call run off the UI loop.
type StepResultMsg struct {
	Outcome flow.Outcome
	Err     error
}
