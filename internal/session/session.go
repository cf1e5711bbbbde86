// Package session holds the in-memory state of one respondent's survey run.
//
// A Session is mutated only through its methods. None of them perform I/O
// and none of them validate against the survey topology; that is the flow
// controller's job.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Group is a counterbalancing assignment controlling stimulus order.
type Group string

// Known groups.
const (
	GroupA Group = "A"
	GroupB Group = "B"
)

// KeyCompletedAt is the response key stamped by MarkComplete.
const KeyCompletedAt = "completed_at"

// Session is one respondent's run.
type Session struct {
	id               string
	group            Group
	phase            int
	step             int
	stimulusOrder    []string
	responses        *Responses
	completed        bool
	audioCheckPassed bool
	startedAt        time.Time
	now              func() time.Time
}

// Option configures a new Session.
type Option func(*Session)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithID sets the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates a session at (phase 1, step 1) with a fresh uuid.
func New(group Group, opts ...Option) *Session {
	s := &Session{
		group:     group,
		phase:     1,
		step:      1,
		responses: NewResponses(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.New().String()
	}
	s.startedAt = s.now()
	return s
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Group() Group           { return s.group }
func (s *Session) Phase() int             { return s.phase }
func (s *Session) Step() int              { return s.step }
func (s *Session) Completed() bool        { return s.completed }
func (s *Session) AudioCheckPassed() bool { return s.audioCheckPassed }
func (s *Session) StartedAt() time.Time   { return s.startedAt }
func (s *Session) Responses() *Responses  { return s.responses }
func (s *Session) HasStimulusOrder() bool { return s.stimulusOrder != nil }

// SetAudioCheckPassed records the outcome of the comprehension check.
func (s *Session) SetAudioCheckPassed(passed bool) {
	s.audioCheckPassed = passed
}

// StimulusOrder returns a copy of the stimulus order, or nil if not drawn yet.
func (s *Session) StimulusOrder() []string {
	if s.stimulusOrder == nil {
		return nil
	}
	out := make([]string, len(s.stimulusOrder))
	copy(out, s.stimulusOrder)
	return out
}

// AdvanceStep moves to the next step within the current phase.
func (s *Session) AdvanceStep() {
	s.step++
}

// AdvancePhase moves to step 1 of the next phase.
func (s *Session) AdvancePhase() {
	s.phase++
	s.step = 1
}

// JumpTo sets phase and step directly. The caller must pass a valid pair.
func (s *Session) JumpTo(phase, step int) {
	s.phase = phase
	s.step = step
}

// SetStimulusOrder stores seq if no order has been set yet. A second call is
// a silent no-op; it reports whether seq was applied.
func (s *Session) SetStimulusOrder(seq []string) bool {
	if s.stimulusOrder != nil {
		return false
	}
	s.stimulusOrder = make([]string, len(seq))
	copy(s.stimulusOrder, seq)
	return true
}

// MarkComplete flags the session complete and stamps completed_at.
func (s *Session) MarkComplete() error {
	if s.completed {
		return ErrAlreadyCompleted
	}
	s.completed = true
	s.responses.Save(KeyCompletedAt, s.now().Format(time.RFC3339Nano))
	return nil
}

// Snapshot is the serializable view of a session.
type Snapshot struct {
	SessionID        string     `json:"session_id"`
	Group            Group      `json:"group"`
	StartedAt        time.Time  `json:"started_at"`
	Phase            int        `json:"current_phase"`
	Step             int        `json:"current_step"`
	StimulusOrder    []string   `json:"stimulus_order"`
	Completed        bool       `json:"completed"`
	AudioCheckPassed bool       `json:"audio_check_passed"`
	Responses        *Responses `json:"responses"`
}

// Snapshot copies the current state. Later mutations of s do not affect it.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		SessionID:        s.id,
		Group:            s.group,
		StartedAt:        s.startedAt,
		Phase:            s.phase,
		Step:             s.step,
		StimulusOrder:    s.StimulusOrder(),
		Completed:        s.completed,
		AudioCheckPassed: s.audioCheckPassed,
		Responses:        s.responses.Clone(),
	}
}
