package server

import "encoding/json"

// StepView describes the step a client should render.
type StepView struct {
	Phase         int    `json:"phase"`
	Step          int    `json:"step"`
	Kind          string `json:"kind"`
	Key           string `json:"key,omitempty"`
	Stimulus      string `json:"stimulus,omitempty"`
	StimulusIndex int    `json:"stimulus_index,omitempty"`
	StimulusCount int    `json:"stimulus_count,omitempty"`
	MissingAsset  bool   `json:"missing_asset,omitempty"`
	// Options lists the choices at the comprehension check.
	Options []string `json:"options,omitempty"`
}

// StateResponse is returned by every session endpoint.
type StateResponse struct {
	SessionID     string    `json:"session_id"`
	Group         string    `json:"group"`
	Phase         int       `json:"phase"`
	Step          int       `json:"step"`
	Progress      float64   `json:"progress"`
	Completed     bool      `json:"completed"`
	Persisted     bool      `json:"persisted"`
	StimulusOrder []string  `json:"stimulus_order,omitempty"`
	Attempts      int       `json:"attempts,omitempty"`
	Retry         string    `json:"retry,omitempty"`
	Current       *StepView `json:"current,omitempty"`
}

// ForwardRequest carries the answer for the current step. Info steps take
// no answer.
type ForwardRequest struct {
	Answer json.RawMessage `json:"answer"`
}

// JumpRequest names a target position at or before the current one.
type JumpRequest struct {
	Phase int `json:"phase" binding:"required,min=1"`
	Step  int `json:"step" binding:"required,min=1"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	State   *StateResponse `json:"state,omitempty"`
	Details string         `json:"details,omitempty"`
}
