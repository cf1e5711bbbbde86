// Package flow implements the survey state machine: the phase/step
// topology, forward/back transitions, the comprehension-check gate,
// stimulus-order derivation and the terminal completion handler.
//
// A Controller owns exactly one session and is not safe for concurrent use;
// callers serialize actions per session.
package flow

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/log"
	"github.com/drivesound/drivesound/internal/session"
)

// Persister writes a completed session snapshot to durable storage.
type Persister interface {
	Persist(snap session.Snapshot) error
}

// Options wires a Controller to its collaborators.
type Options struct {
	Topology   *Topology
	Randomizer Randomizer
	Persister  Persister
	// Assets may be nil, in which case every stimulus is assumed playable.
	Assets AssetChecker
	Logger log.Sink
	// AudioCheckAnswer is the expected answer at the comprehension check.
	AudioCheckAnswer string
	// Groups are the two counterbalancing labels; the second one sees the
	// reversed stimulus order. Defaults to A, B.
	Groups [2]session.Group
}

// Outcome is the state after an action, for the caller to re-render.
type Outcome struct {
	Phase     int
	Step      int
	Progress  float64
	Completed bool
	// Retry is ErrComprehensionCheckFailed when the gate rejected the
	// answer; the position is unchanged and the step should be shown again.
	Retry    error
	Attempts int
}

// Controller drives one session through the topology.
type Controller struct {
	topo      *Topology
	sess      *session.Session
	rng       Randomizer
	persister Persister
	assets    AssetChecker
	logger    log.Sink
	answer    string
	groups    [2]session.Group

	attempts      int
	persisted     bool
	missingLogged map[string]bool
}

// Start assigns a group with an unbiased draw, creates a session at (1,1)
// and returns its controller.
func Start(opts Options, sessOpts ...session.Option) (*Controller, error) {
	c, err := newController(opts)
	if err != nil {
		return nil, err
	}
	group := c.groups[c.rng.IntN(len(c.groups))]
	c.sess = session.New(group, sessOpts...)
	c.logEvent(log.LogEvent{Event: log.EventSessionStarted, Group: string(group), Phase: 1, Step: 1})
	return c, nil
}

// Resume wraps an existing session.
func Resume(sess *session.Session, opts Options) (*Controller, error) {
	if sess == nil {
		return nil, errors.New("flow: nil session")
	}
	c, err := newController(opts)
	if err != nil {
		return nil, err
	}
	c.sess = sess
	if sess.Phase() >= PhaseEvaluation {
		c.ensureStimulusOrder()
	}
	if !c.topo.Valid(sess.Phase(), sess.Step(), c.k()) {
		return nil, &TransitionError{ToPhase: sess.Phase(), ToStep: sess.Step(), Reason: "session position outside topology"}
	}
	return c, nil
}

func newController(opts Options) (*Controller, error) {
	if opts.Topology == nil {
		return nil, errors.New("flow: topology is required")
	}
	if opts.AudioCheckAnswer == "" {
		return nil, errors.New("flow: audio check answer is required")
	}
	c := &Controller{
		topo:          opts.Topology,
		rng:           opts.Randomizer,
		persister:     opts.Persister,
		assets:        opts.Assets,
		logger:        opts.Logger,
		answer:        opts.AudioCheckAnswer,
		groups:        opts.Groups,
		missingLogged: make(map[string]bool),
	}
	if c.rng == nil {
		c.rng = SystemRandomizer()
	}
	if c.logger == nil {
		c.logger = log.Discard
	}
	if c.groups[0] == "" || c.groups[1] == "" {
		c.groups = [2]session.Group{session.GroupA, session.GroupB}
	}
	return c, nil
}

// Session returns the controlled session.
func (c *Controller) Session() *session.Session {
	return c.sess
}

// Topology returns the controller's topology.
func (c *Controller) Topology() *Topology {
	return c.topo
}

// CurrentState returns the (phase, step) cursor.
func (c *Controller) CurrentState() (int, int) {
	return c.sess.Phase(), c.sess.Step()
}

// Attempts is the number of comprehension-check submissions so far.
func (c *Controller) Attempts() int {
	return c.attempts
}

// Persisted reports whether the completed session has been written.
func (c *Controller) Persisted() bool {
	return c.persisted
}

// k is the realized stimulus count, or the configured count before the draw.
func (c *Controller) k() int {
	if order := c.sess.StimulusOrder(); order != nil {
		return len(order)
	}
	return c.topo.SamplesPerEvaluation()
}

// CurrentStep describes the step to render.
func (c *Controller) CurrentStep() (StepSpec, error) {
	spec, err := c.topo.Spec(c.sess.Phase(), c.sess.Step(), c.sess.StimulusOrder())
	if err != nil {
		return StepSpec{}, err
	}
	if spec.Kind == answers.KindEvaluation && c.assets != nil {
		if err := c.assets.Check(spec.Stimulus); err != nil {
			spec.MissingAsset = true
			if !c.missingLogged[spec.Stimulus] {
				c.missingLogged[spec.Stimulus] = true
				c.logEvent(log.LogEvent{Event: log.EventAssetMissing, Stimulus: spec.Stimulus, Error: err.Error()})
			}
		}
	}
	return spec, nil
}

// Progress is the share of the canonical path already behind the cursor,
// in [0, 100]. It reaches 100 only once the session is complete.
func (c *Controller) Progress() float64 {
	if c.sess.Completed() {
		return 100
	}
	k := c.k()
	total := c.topo.Total(k)
	if total == 0 {
		return 0
	}
	done := c.topo.Ordinal(c.sess.Phase(), c.sess.Step(), k)
	return 100 * float64(done) / float64(total)
}

func (c *Controller) outcome() Outcome {
	return Outcome{
		Phase:     c.sess.Phase(),
		Step:      c.sess.Step(),
		Progress:  c.Progress(),
		Completed: c.sess.Completed(),
		Attempts:  c.attempts,
	}
}

// Forward validates and saves the answer for the current step, then moves
// to the next step or phase. Info steps take a nil answer. On an evaluation
// step whose media is missing the answer is ignored and the step is
// recorded as skipped.
//
// At the comprehension check a wrong answer leaves the position unchanged
// and returns Outcome.Retry; it is not an error.
//
// Reaching the terminal step completes and persists the session. Calling
// Forward again at the terminal step re-runs the (idempotent) completion
// handler, which retries persistence if the earlier write failed.
func (c *Controller) Forward(answer any) (Outcome, error) {
	if c.sess.Completed() {
		err := c.Finish()
		return c.outcome(), err
	}

	spec, err := c.CurrentStep()
	if err != nil {
		return c.outcome(), err
	}
	if spec.Terminal {
		err := c.Finish()
		return c.outcome(), err
	}

	switch {
	case answers.Info(spec.Kind):
		if answer != nil {
			return c.outcome(), fmt.Errorf("%w: step %s takes no answer", answers.ErrInvalidAnswer, spec.Kind)
		}
	case spec.Kind == answers.KindAudioCheck:
		if err := answers.Validate(spec.Kind, answer); err != nil {
			return c.outcome(), err
		}
		c.attempts++
		given := audioAnswer(answer)
		if given != c.answer {
			c.logEvent(log.LogEvent{Event: log.EventAudioCheckFailed, Phase: spec.Phase, Step: spec.Step, Attempt: c.attempts})
			out := c.outcome()
			out.Retry = ErrComprehensionCheckFailed
			return out, nil
		}
		c.sess.SetAudioCheckPassed(true)
		c.sess.Responses().Save(spec.Key, answers.AudioCheckResult{Passed: true, Answer: given, Attempts: c.attempts})
	case spec.Kind == answers.KindEvaluation && spec.MissingAsset:
		c.sess.Responses().Save(spec.Key, answers.SkippedEvaluation{SampleID: spec.Stimulus, Skipped: "missing_asset"})
	default:
		value, err := c.normalize(spec, answer)
		if err != nil {
			return c.outcome(), err
		}
		c.sess.Responses().Save(spec.Key, value)
	}

	if err := c.advance(spec); err != nil {
		return c.outcome(), err
	}
	if c.isTerminal() {
		err := c.Finish()
		return c.outcome(), err
	}
	return c.outcome(), nil
}

// normalize validates answer for spec and returns the value to store.
func (c *Controller) normalize(spec StepSpec, answer any) (any, error) {
	if err := answers.Validate(spec.Kind, answer); err != nil {
		return nil, err
	}
	order := c.sess.StimulusOrder()

	switch a := answer.(type) {
	case *answers.Evaluation:
		ev := *a
		ev.SampleID = spec.Stimulus
		return ev, nil
	case answers.Evaluation:
		a.SampleID = spec.Stimulus
		return a, nil
	case *answers.GridSelection:
		return *a, checkStimuli(order, a.BestSound, a.WorstSound)
	case answers.GridSelection:
		return a, checkStimuli(order, a.BestSound, a.WorstSound)
	case *answers.InterviewTopic1:
		return *a, checkStimuli(order, a.ImpressiveSound)
	case answers.InterviewTopic1:
		return a, checkStimuli(order, a.ImpressiveSound)
	}
	return answer, nil
}

func checkStimuli(order []string, ids ...string) error {
	for _, id := range ids {
		if !slices.Contains(order, id) {
			return fmt.Errorf("%w: %q was not presented in this session", answers.ErrInvalidAnswer, id)
		}
	}
	return nil
}

func audioAnswer(answer any) string {
	switch a := answer.(type) {
	case *answers.AudioCheck:
		return a.Answer
	case answers.AudioCheck:
		return a.Answer
	}
	return ""
}

func (c *Controller) advance(spec StepSpec) error {
	if !spec.Last {
		c.sess.AdvanceStep()
		return nil
	}
	if spec.Phase >= NumPhases {
		return &TransitionError{
			FromPhase: spec.Phase, FromStep: spec.Step,
			ToPhase: spec.Phase + 1, ToStep: 1,
			Reason: "no phase after the final phase",
		}
	}
	c.sess.AdvancePhase()
	c.enterPhase()
	return nil
}

func (c *Controller) enterPhase() {
	phase := c.sess.Phase()
	c.logEvent(log.LogEvent{Event: log.EventPhaseEntered, Phase: phase, Step: c.sess.Step()})
	if phase == PhaseEvaluation {
		c.ensureStimulusOrder()
	}
}

// ensureStimulusOrder draws the stimulus order on first entry to phase 2.
// The catalog permutation is truncated to K and reversed for the second
// group. Later calls reuse the stored order.
func (c *Controller) ensureStimulusOrder() {
	if c.sess.HasStimulusOrder() {
		return
	}
	perm := c.rng.Shuffle(c.topo.Catalog())
	perm = perm[:c.topo.SamplesPerEvaluation()]
	if c.sess.Group() == c.groups[1] {
		slices.Reverse(perm)
	}
	if c.sess.SetStimulusOrder(perm) {
		c.logEvent(log.LogEvent{Event: log.EventStimulusOrder, Order: perm})
	}
}

func (c *Controller) isTerminal() bool {
	phase, step := c.CurrentState()
	return phase == NumPhases && step == c.topo.StepsIn(phase, c.k())
}

// Back moves one step back: within the phase, or from step 1 to the last
// step of the previous phase. Fails at (1,1) and after completion.
func (c *Controller) Back() (Outcome, error) {
	phase, step := c.CurrentState()
	switch {
	case step > 1:
		return c.JumpTo(phase, step-1)
	case phase > 1:
		return c.JumpTo(phase-1, c.topo.StepsIn(phase-1, c.k()))
	}
	return c.outcome(), &TransitionError{FromPhase: phase, FromStep: step, ToPhase: phase, ToStep: step - 1, Reason: "already at the first step"}
}

// JumpTo moves the cursor back to (phase, step). The target must exist in
// the topology and must not lie ahead of the current position; forward
// moves go through Forward so answers and the gate are never bypassed.
func (c *Controller) JumpTo(phase, step int) (Outcome, error) {
	fromPhase, fromStep := c.CurrentState()
	if c.sess.Completed() {
		return c.outcome(), &TransitionError{FromPhase: fromPhase, FromStep: fromStep, ToPhase: phase, ToStep: step, Reason: "session is complete"}
	}
	k := c.k()
	if !c.topo.Valid(phase, step, k) {
		return c.outcome(), &TransitionError{FromPhase: fromPhase, FromStep: fromStep, ToPhase: phase, ToStep: step, Reason: "outside topology"}
	}
	if c.topo.Ordinal(phase, step, k) > c.topo.Ordinal(fromPhase, fromStep, k) {
		return c.outcome(), &TransitionError{FromPhase: fromPhase, FromStep: fromStep, ToPhase: phase, ToStep: step, Reason: "jump ahead of current position"}
	}

	c.sess.JumpTo(phase, step)
	if phase != fromPhase {
		c.enterPhase()
	}
	return c.outcome(), nil
}

// Finish is the terminal-state handler. It marks the session complete
// (once) and persists it (once). After a successful write further calls do
// nothing; after a failed write the next call retries.
func (c *Controller) Finish() error {
	if !c.sess.Completed() && !c.isTerminal() {
		phase, step := c.CurrentState()
		return &TransitionError{FromPhase: phase, FromStep: step, ToPhase: NumPhases, ToStep: c.topo.StepsIn(NumPhases, c.k()), Reason: "not at the terminal step"}
	}

	if err := c.sess.MarkComplete(); err == nil {
		c.logEvent(log.LogEvent{
			Event:      log.EventSurveyCompleted,
			Group:      string(c.sess.Group()),
			DurationMs: time.Since(c.sess.StartedAt()).Milliseconds(),
		})
	} else if !errors.Is(err, session.ErrAlreadyCompleted) {
		return err
	}

	if c.persisted {
		return nil
	}
	if c.persister != nil {
		if err := c.persister.Persist(c.sess.Snapshot()); err != nil {
			c.logEvent(log.LogEvent{Event: log.EventPersistFailed, Error: err.Error()})
			return fmt.Errorf("%w: session %s: %w", ErrPersistenceFailure, c.sess.ID(), err)
		}
	}
	c.persisted = true
	return nil
}

func (c *Controller) logEvent(e log.LogEvent) {
	if c.sess != nil {
		e.SessionID = c.sess.ID()
	}
	_ = c.logger.Append(e)
}
