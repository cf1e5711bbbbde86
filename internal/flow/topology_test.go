package flow

import (
	"slices"
	"testing"

	"github.com/drivesound/drivesound/internal/answers"
)

func TestNewTopologyErrors(t *testing.T) {
	tests := []struct {
		name      string
		catalog   []string
		k         int
		interview []string
	}{
		{"empty catalog", nil, 3, []string{"topic1", "topic2", "topic3"}},
		{"zero samples", []string{"X"}, 0, []string{"topic1", "topic2", "topic3"}},
		{"short interview", []string{"X"}, 1, []string{"topic1", "topic2"}},
		{"unknown topic", []string{"X"}, 1, []string{"topic1", "topic2", "topic9"}},
		{"duplicate topic", []string{"X"}, 1, []string{"topic1", "topic1", "topic3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTopology(tt.catalog, tt.k, tt.interview); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestStepsAndOrdinal(t *testing.T) {
	topo, err := NewTopology([]string{"X", "Y", "Z"}, 3, []string{"topic2", "topic1", "topic3"})
	if err != nil {
		t.Fatalf("NewTopology failed: %v", err)
	}
	want := map[int]int{1: 5, 2: 7, 3: 4, 4: 3, 5: 0}
	for phase, n := range want {
		if got := topo.StepsIn(phase, 3); got != n {
			t.Errorf("StepsIn(%d) = %d, want %d", phase, got, n)
		}
	}
	if got := topo.Total(3); got != 19 {
		t.Errorf("Total = %d, want 19", got)
	}
	if got := topo.Ordinal(2, 1, 3); got != 5 {
		t.Errorf("Ordinal(2,1) = %d, want 5", got)
	}
	if got := topo.Ordinal(4, 3, 3); got != 18 {
		t.Errorf("Ordinal(4,3) = %d, want 18", got)
	}
}

func TestSamplesCappedAtCatalog(t *testing.T) {
	topo, _ := NewTopology([]string{"X", "Y"}, 5, []string{"topic1", "topic2", "topic3"})
	if got := topo.SamplesPerEvaluation(); got != 2 {
		t.Errorf("SamplesPerEvaluation = %d, want 2", got)
	}
}

func TestSpecKinds(t *testing.T) {
	topo, _ := NewTopology([]string{"X", "Y", "Z"}, 2, []string{"topic3", "topic1", "topic2"})
	order := []string{"Z", "X"}

	tests := []struct {
		phase, step int
		kind        answers.Kind
		key         string
		stimulus    string
	}{
		{1, 1, answers.KindConsent, "consent", ""},
		{1, 5, answers.KindAudioCheck, "audio_check", ""},
		{2, 1, answers.KindPrecondition, "", ""},
		{2, 2, answers.KindEvaluation, "evaluation_Z", "Z"},
		{2, 3, answers.KindEvaluation, "evaluation_X", "X"},
		{2, 4, answers.KindGridSelection, "grid_selection", ""},
		{2, 5, answers.KindLadderingGood, "laddering_good", ""},
		{2, 6, answers.KindLadderingBad, "laddering_bad", ""},
		{3, 1, answers.KindInterviewIntro, "", ""},
		{3, 2, answers.KindInterviewTopic3, "interview_topic3", ""},
		{3, 4, answers.KindInterviewTopic2, "interview_topic2", ""},
		{4, 3, answers.KindCompletion, "", ""},
	}
	for _, tt := range tests {
		spec, err := topo.Spec(tt.phase, tt.step, order)
		if err != nil {
			t.Fatalf("Spec(%d,%d) failed: %v", tt.phase, tt.step, err)
		}
		if spec.Kind != tt.kind || spec.Key != tt.key || spec.Stimulus != tt.stimulus {
			t.Errorf("Spec(%d,%d) = {%s %q %q}, want {%s %q %q}",
				tt.phase, tt.step, spec.Kind, spec.Key, spec.Stimulus, tt.kind, tt.key, tt.stimulus)
		}
	}

	last, _ := topo.Spec(2, 6, order)
	if !last.Last || last.Terminal {
		t.Errorf("(2,6) Last=%v Terminal=%v, want true/false", last.Last, last.Terminal)
	}
	term, _ := topo.Spec(4, 3, order)
	if !term.Terminal {
		t.Error("(4,3) is not terminal")
	}
	if _, err := topo.Spec(2, 7, order); err == nil {
		t.Error("Spec(2,7) with K=2: expected error")
	}
	if _, err := topo.Spec(2, 2, nil); err == nil {
		t.Error("Spec in phase 2 without order: expected error")
	}
}

func TestResponseKeys(t *testing.T) {
	topo, _ := NewTopology([]string{"X", "Y", "Z"}, 2, []string{"topic1", "topic2", "topic3"})
	got := topo.ResponseKeys([]string{"Y", "Z"})
	want := []string{
		"consent", "basic_info", "driving_experience", "sound_sensitivity", "audio_check",
		"evaluation_Y", "evaluation_Z", "grid_selection", "laddering_good", "laddering_bad",
		"interview_topic1", "interview_topic2", "interview_topic3",
		"overall_impression", "additional_comments",
	}
	if !slices.Equal(got, want) {
		t.Errorf("ResponseKeys = %v, want %v", got, want)
	}
}
