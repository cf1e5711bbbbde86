package generate

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/config"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/log"
	"github.com/drivesound/drivesound/internal/session"
	"github.com/drivesound/drivesound/internal/store"
)

type memSink struct {
	mu     sync.Mutex
	events []log.LogEvent
}

func (m *memSink) Append(e log.LogEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func TestRunPersistsCompletedSessions(t *testing.T) {
	cfg := config.DefaultConfig()
	gw, err := store.NewFileStore(filepath.Join(t.TempDir(), "responses"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	sink := &memSink{}

	var dones []int
	ids := make(map[string]bool)
	progress := func(done int, id string, _ session.Group) {
		dones = append(dones, done)
		ids[id] = true
	}
	res, err := Run(context.Background(), cfg, gw, sink, Options{Count: 12, Seed: 7, Workers: 3, Progress: progress})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(dones) != 12 || dones[len(dones)-1] != 12 {
		t.Errorf("progress calls = %v, want 1..12", dones)
	}
	for i, d := range dones {
		if d != i+1 {
			t.Errorf("progress call %d reported %d done, want %d", i, d, i+1)
		}
	}
	if len(ids) != 12 {
		t.Errorf("progress saw %d distinct ids, want 12", len(ids))
	}
	if res.Generated != 12 {
		t.Errorf("Generated = %d, want 12", res.Generated)
	}
	if got := res.Groups[session.GroupA] + res.Groups[session.GroupB]; got != 12 {
		t.Errorf("group total = %d, want 12", got)
	}

	records, err := gw.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 12 {
		t.Fatalf("stored %d records, want 12", len(records))
	}

	topo, _ := flow.NewTopology(cfg.StimulusIDs(), cfg.Survey.SamplesPerEvaluation, cfg.Survey.InterviewOrder)
	for _, rec := range records {
		if !rec.Completed {
			t.Errorf("record %s not completed", rec.SessionID)
		}
		for _, key := range topo.ResponseKeys(rec.StimulusOrder) {
			if !rec.Responses.Has(key) {
				t.Errorf("record %s missing %s", rec.SessionID, key)
			}
		}
		var grid answers.GridSelection
		if ok, err := rec.Responses.Decode("grid_selection", &grid); !ok || err != nil {
			t.Errorf("record %s grid_selection: %v, %v", rec.SessionID, ok, err)
		}
	}

	var completions int
	for _, e := range sink.events {
		if e.Event == log.EventSurveyCompleted {
			completions++
		}
	}
	if completions != 12 {
		t.Errorf("survey_completed events = %d, want 12", completions)
	}
	last := sink.events[len(sink.events)-1]
	if last.Event != log.EventGenerateComplete || last.Total != 12 {
		t.Errorf("last event = %+v, want generate_complete with total 12", last)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gw, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	_, err = Run(ctx, config.DefaultConfig(), gw, nil, Options{Count: 5, Seed: 1})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want nil or context.Canceled", err)
	}
	records, _ := gw.LoadAll()
	if len(records) != 0 {
		t.Errorf("stored %d records after cancel, want 0", len(records))
	}
}

func TestRunRejectsNegativeCount(t *testing.T) {
	if _, err := Run(context.Background(), config.DefaultConfig(), nil, nil, Options{Count: -1}); err == nil {
		t.Error("expected error for negative count")
	}
}

func TestRespondentDeterministic(t *testing.T) {
	answersFor := func() []any {
		r := rand.New(rand.NewPCG(3, 9))
		p := newRespondent(r, []string{"cat", "dog"}, "cat")
		order := []string{"Fit", "Prius", "Model3"}
		var out []any
		for _, id := range order {
			out = append(out, p.answer(flow.StepSpec{Kind: answers.KindEvaluation, Stimulus: id}, order, "cat", 0))
		}
		out = append(out, p.answer(flow.StepSpec{Kind: answers.KindGridSelection}, order, "cat", 0))
		return out
	}
	if diff := cmp.Diff(answersFor(), answersFor()); diff != "" {
		t.Errorf("same seed produced different answers (-first +second):\n%s", diff)
	}
}

func TestRespondentAnswersValidate(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 0))
	order := []string{"Fit", "Prius", "Model3"}
	for i := 0; i < 50; i++ {
		p := newRespondent(r, []string{"cat", "dog"}, "cat")
		for _, kind := range []answers.Kind{
			answers.KindConsent, answers.KindBasicInfo, answers.KindDrivingExperience,
			answers.KindSoundSensitivity, answers.KindEvaluation, answers.KindGridSelection,
			answers.KindLadderingGood, answers.KindLadderingBad, answers.KindInterviewTopic1,
			answers.KindInterviewTopic2, answers.KindInterviewTopic3, answers.KindOverallImpression,
			answers.KindAdditionalComments,
		} {
			a := p.answer(flow.StepSpec{Kind: kind, Stimulus: "Fit"}, order, "cat", 1)
			if err := answers.Validate(kind, a); err != nil {
				t.Fatalf("respondent %d %s: %v", i, kind, err)
			}
		}
	}
}

func TestStepClockAdvances(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := &stepClock{t: start, r: rand.New(rand.NewPCG(1, 1))}
	first, second := c.now(), c.now()
	if !first.Equal(start) || !second.After(first) {
		t.Errorf("clock reads %v then %v", first, second)
	}
}
