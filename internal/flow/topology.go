package flow

import (
	"fmt"

	"github.com/drivesound/drivesound/internal/answers"
)

// Phases of the survey.
const (
	PhaseIntroduction = 1
	PhaseEvaluation   = 2
	PhaseInterview    = 3
	PhaseSummary      = 4

	NumPhases = PhaseSummary
)

// Fixed step tables. Phase 2 is built per session from the stimulus order
// and phase 3 from the configured interview order.
var (
	introductionSteps = []answers.Kind{
		answers.KindConsent,
		answers.KindBasicInfo,
		answers.KindDrivingExperience,
		answers.KindSoundSensitivity,
		answers.KindAudioCheck,
	}
	summarySteps = []answers.Kind{
		answers.KindOverallImpression,
		answers.KindAdditionalComments,
		answers.KindCompletion,
	}
	interviewTopics = map[string]answers.Kind{
		"topic1": answers.KindInterviewTopic1,
		"topic2": answers.KindInterviewTopic2,
		"topic3": answers.KindInterviewTopic3,
	}
)

// evaluationExtraSteps counts the non-stimulus steps of phase 2:
// precondition brief, best/worst selection and the two laddering steps.
const evaluationExtraSteps = 4

// StepSpec describes one (phase, step) position: what to render and where
// its answer is stored.
type StepSpec struct {
	Phase int
	Step  int
	Kind  answers.Kind
	// Key is the response key the step's answer is saved under; empty for
	// steps that take no answer.
	Key string
	// Stimulus and StimulusIndex (1-based) are set on evaluation steps.
	Stimulus      string
	StimulusIndex int
	StimulusCount int
	// Last is true for the final step of a phase, Terminal for the final
	// step of the survey.
	Last     bool
	Terminal bool
	// MissingAsset is set by the controller when the stimulus media cannot
	// be found.
	MissingAsset bool
}

// Topology is the phase/step graph.
type Topology struct {
	catalog   []string
	samples   int
	interview []answers.Kind
}

// NewTopology builds a topology from the stimulus catalog, the number of
// stimuli evaluated per session and the interview topic order
// (a permutation of topic1, topic2, topic3).
func NewTopology(catalog []string, samplesPerEvaluation int, interviewOrder []string) (*Topology, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("empty stimulus catalog")
	}
	if samplesPerEvaluation < 1 {
		return nil, fmt.Errorf("samples per evaluation must be >= 1, got %d", samplesPerEvaluation)
	}
	if len(interviewOrder) != len(interviewTopics) {
		return nil, fmt.Errorf("interview order must list %d topics, got %d", len(interviewTopics), len(interviewOrder))
	}
	seen := make(map[string]bool)
	interview := make([]answers.Kind, 0, len(interviewOrder))
	for _, id := range interviewOrder {
		kind, ok := interviewTopics[id]
		if !ok {
			return nil, fmt.Errorf("unknown interview topic %q", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("interview topic %q listed twice", id)
		}
		seen[id] = true
		interview = append(interview, kind)
	}

	cat := make([]string, len(catalog))
	copy(cat, catalog)
	return &Topology{catalog: cat, samples: samplesPerEvaluation, interview: interview}, nil
}

// Catalog returns a copy of the stimulus catalog.
func (t *Topology) Catalog() []string {
	out := make([]string, len(t.catalog))
	copy(out, t.catalog)
	return out
}

// SamplesPerEvaluation is the configured K, capped at the catalog size.
func (t *Topology) SamplesPerEvaluation() int {
	return min(t.samples, len(t.catalog))
}

// StepsIn returns the number of steps in phase for a session evaluating k
// stimuli. Unknown phases have zero steps.
func (t *Topology) StepsIn(phase, k int) int {
	switch phase {
	case PhaseIntroduction:
		return len(introductionSteps)
	case PhaseEvaluation:
		return k + evaluationExtraSteps
	case PhaseInterview:
		return 1 + len(t.interview)
	case PhaseSummary:
		return len(summarySteps)
	}
	return 0
}

// Total returns the number of steps across all phases.
func (t *Topology) Total(k int) int {
	n := 0
	for p := 1; p <= NumPhases; p++ {
		n += t.StepsIn(p, k)
	}
	return n
}

// Ordinal is the zero-based position of (phase, step) on the canonical path.
func (t *Topology) Ordinal(phase, step, k int) int {
	n := 0
	for p := 1; p < phase; p++ {
		n += t.StepsIn(p, k)
	}
	return n + step - 1
}

// Valid reports whether (phase, step) exists.
func (t *Topology) Valid(phase, step, k int) bool {
	return phase >= 1 && phase <= NumPhases && step >= 1 && step <= t.StepsIn(phase, k)
}

// Spec describes the step at (phase, step). order is the session's stimulus
// order and must be set for phase 2 positions.
func (t *Topology) Spec(phase, step int, order []string) (StepSpec, error) {
	k := len(order)
	if order == nil {
		k = t.SamplesPerEvaluation()
	}
	if !t.Valid(phase, step, k) {
		return StepSpec{}, &TransitionError{ToPhase: phase, ToStep: step, Reason: "outside topology"}
	}

	spec := StepSpec{
		Phase:    phase,
		Step:     step,
		Last:     step == t.StepsIn(phase, k),
		Terminal: phase == NumPhases && step == t.StepsIn(phase, k),
	}

	switch phase {
	case PhaseIntroduction:
		spec.Kind = introductionSteps[step-1]
	case PhaseEvaluation:
		if order == nil {
			return StepSpec{}, fmt.Errorf("phase %d requires a stimulus order", PhaseEvaluation)
		}
		switch {
		case step == 1:
			spec.Kind = answers.KindPrecondition
		case step <= k+1:
			spec.Kind = answers.KindEvaluation
			spec.Stimulus = order[step-2]
			spec.StimulusIndex = step - 1
		case step == k+2:
			spec.Kind = answers.KindGridSelection
		case step == k+3:
			spec.Kind = answers.KindLadderingGood
		default:
			spec.Kind = answers.KindLadderingBad
		}
		spec.StimulusCount = k
	case PhaseInterview:
		if step == 1 {
			spec.Kind = answers.KindInterviewIntro
		} else {
			spec.Kind = t.interview[step-2]
		}
	case PhaseSummary:
		spec.Kind = summarySteps[step-1]
	}

	if !answers.Info(spec.Kind) {
		spec.Key = ResponseKey(spec.Kind, spec.Stimulus)
	}
	return spec, nil
}

// ResponseKey is the response-store key for a step kind. Evaluation answers
// are keyed per stimulus.
func ResponseKey(kind answers.Kind, stimulus string) string {
	if kind == answers.KindEvaluation {
		return "evaluation_" + stimulus
	}
	return string(kind)
}

// ResponseKeys lists every key a session with the given stimulus order can
// write, in canonical order.
func (t *Topology) ResponseKeys(order []string) []string {
	k := len(order)
	var keys []string
	for p := 1; p <= NumPhases; p++ {
		for s := 1; s <= t.StepsIn(p, k); s++ {
			spec, err := t.Spec(p, s, order)
			if err != nil || spec.Key == "" {
				continue
			}
			keys = append(keys, spec.Key)
		}
	}
	return keys
}
