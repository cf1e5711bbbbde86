// Package testutil provides test helper utilities for drivesound tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/config"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/session"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// InitProject creates a temporary project with a default config written to
// .drivesound/config.yaml and returns its root.
func InitProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := config.WriteConfig(dir, config.DefaultConfig()); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return dir
}

// Catalog is the stimulus catalog used by Controller.
var Catalog = []string{"X", "Y", "Z"}

// FixedRandomizer always picks the first group and keeps the catalog order.
type FixedRandomizer struct{}

func (FixedRandomizer) Shuffle(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}

func (FixedRandomizer) IntN(int) int { return 0 }

// MemPersister keeps persisted snapshots in memory. Fail makes Persist
// return an error.
type MemPersister struct {
	mu    sync.Mutex
	Snaps []session.Snapshot
	Fail  bool
}

func (m *MemPersister) Persist(snap session.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("write refused")
	}
	m.Snaps = append(m.Snaps, snap)
	return nil
}

// Len returns the number of persisted snapshots.
func (m *MemPersister) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Snaps)
}

// Controller starts a controller over Catalog with three samples per
// evaluation, the fixed randomizer and "cat" as the audio check answer.
// The stimulus order is therefore X, Y, Z and the group is A.
func Controller(t *testing.T, p flow.Persister) *flow.Controller {
	t.Helper()
	topo, err := flow.NewTopology(Catalog, 3, []string{"topic2", "topic1", "topic3"})
	if err != nil {
		t.Fatalf("NewTopology failed: %v", err)
	}
	c, err := flow.Start(flow.Options{
		Topology:         topo,
		Randomizer:       FixedRandomizer{},
		Persister:        p,
		AudioCheckAnswer: "cat",
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return c
}

// AnswerJSON returns a valid JSON answer for kind, choosing stimuli from
// order. Info kinds return "".
func AnswerJSON(kind answers.Kind, order []string) string {
	switch kind {
	case answers.KindConsent:
		return `{"participation":true,"data_usage":true,"audio_requirement":true}`
	case answers.KindBasicInfo:
		return `{"age_group":"40-49","gender":"male","prefecture":"Aichi"}`
	case answers.KindDrivingExperience:
		return `{"driving_years":20,"ev_experience":true}`
	case answers.KindSoundSensitivity:
		return `{"level":4}`
	case answers.KindAudioCheck:
		return `{"answer":"cat"}`
	case answers.KindEvaluation:
		return `{"sd_scores":{"volume":2,"texture":1,"pleasantness":1,"arousal":0,"luxury":-1,"innovation":3,"power":0,"safety":2,"naturalness":-2},"purchase_intent":5,"wtp":"50k","free_comment":""}`
	case answers.KindGridSelection:
		return fmt.Sprintf(`{"best_sound":%q,"worst_sound":%q,"best_axis":"pleasantness","worst_axis":"volume"}`, order[0], order[len(order)-1])
	case answers.KindLadderingGood:
		return `{"why_good":["calming","refined"],"feeling_good":["relaxed"]}`
	case answers.KindLadderingBad:
		return `{"why_bad":["artificial"],"feeling_bad":["anxious","stressed"]}`
	case answers.KindInterviewTopic1:
		return fmt.Sprintf(`{"impressive_sound":%q,"impression_type":"positive"}`, order[0])
	case answers.KindInterviewTopic2:
		return `{"importance_comparison":{"price":9,"range":8,"design":6,"brand":4,"safety":10,"sound":5}}`
	case answers.KindInterviewTopic3:
		return `{"ideal_sound_description":"quiet but present"}`
	case answers.KindOverallImpression:
		return `{"impression":"interesting"}`
	case answers.KindAdditionalComments:
		return `{"survey_feedback":"easy"}`
	}
	return ""
}

// SurveyKinds lists the kinds that take an answer, in the order
// Controller asks them.
var SurveyKinds = []answers.Kind{
	answers.KindConsent,
	answers.KindBasicInfo,
	answers.KindDrivingExperience,
	answers.KindSoundSensitivity,
	answers.KindAudioCheck,
	answers.KindEvaluation,
	answers.KindEvaluation,
	answers.KindEvaluation,
	answers.KindGridSelection,
	answers.KindLadderingGood,
	answers.KindLadderingBad,
	answers.KindInterviewTopic2,
	answers.KindInterviewTopic1,
	answers.KindInterviewTopic3,
	answers.KindOverallImpression,
	answers.KindAdditionalComments,
}

// CompletedSnapshot returns the snapshot of a session that went through the
// whole survey with AnswerJSON answers.
func CompletedSnapshot(t *testing.T) session.Snapshot {
	t.Helper()
	p := &MemPersister{}
	c := Controller(t, p)
	for !c.Session().Completed() {
		spec, err := c.CurrentStep()
		if err != nil {
			t.Fatalf("CurrentStep failed: %v", err)
		}
		var a any
		if raw := AnswerJSON(spec.Kind, c.Session().StimulusOrder()); raw != "" {
			if a, err = answers.Decode(spec.Kind, []byte(raw)); err != nil {
				t.Fatalf("decoding %s answer: %v", spec.Kind, err)
			}
		}
		if _, err := c.Forward(a); err != nil {
			t.Fatalf("Forward at %d.%d failed: %v", spec.Phase, spec.Step, err)
		}
	}
	if p.Len() != 1 {
		t.Fatalf("persisted %d snapshots, want 1", p.Len())
	}
	return p.Snaps[0]
}
