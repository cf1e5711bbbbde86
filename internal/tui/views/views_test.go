package views

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/session"
)

var testOrder = []string{"X", "Y", "Z"}

func allSpecs(t *testing.T) []flow.StepSpec {
	t.Helper()
	topo, err := flow.NewTopology(testOrder, 3, []string{"topic2", "topic1", "topic3"})
	if err != nil {
		t.Fatalf("NewTopology failed: %v", err)
	}
	var specs []flow.StepSpec
	for p := 1; p <= flow.NumPhases; p++ {
		for s := 1; s <= topo.StepsIn(p, 3); s++ {
			spec, err := topo.Spec(p, s, testOrder)
			if err != nil {
				t.Fatalf("Spec(%d, %d) failed: %v", p, s, err)
			}
			specs = append(specs, spec)
		}
	}
	return specs
}

func specOf(t *testing.T, kind answers.Kind) flow.StepSpec {
	t.Helper()
	for _, s := range allSpecs(t) {
		if s.Kind == kind {
			return s
		}
	}
	t.Fatalf("no step of kind %s", kind)
	return flow.StepSpec{}
}

// fillRequired sets the fields that have no usable default.
func fillRequired(t *testing.T, kind answers.Kind, f *Form) {
	t.Helper()
	set := func(id string, v ...string) {
		if err := f.Set(id, v...); err != nil {
			t.Fatalf("Set(%s) failed: %v", id, err)
		}
	}
	switch kind {
	case answers.KindConsent:
		set("participation", "true")
		set("data_usage", "true")
		set("audio_requirement", "true")
	case answers.KindBasicInfo:
		set("prefecture", "Aichi")
	case answers.KindDrivingExperience:
		set("driving_years", "12")
	}
}

func TestStepFormAssembleEveryStep(t *testing.T) {
	for _, spec := range allSpecs(t) {
		f := StepForm(spec, testOrder, []string{"cat", "dog"})
		fillRequired(t, spec.Kind, f)

		got, err := Assemble(spec, f)
		if err != nil {
			t.Errorf("Assemble(%d.%d %s) error: %v", spec.Phase, spec.Step, spec.Kind, err)
			continue
		}
		if answers.Info(spec.Kind) {
			if got != nil || len(f.Fields) != 0 {
				t.Errorf("%s: info step should have no fields and no answer, got %d fields, %v", spec.Kind, len(f.Fields), got)
			}
			continue
		}
		if err := answers.Validate(spec.Kind, got); err != nil {
			t.Errorf("%s: assembled answer does not validate: %v", spec.Kind, err)
		}
		if Title(spec) == "" {
			t.Errorf("%s: empty title", spec.Kind)
		}
	}
}

func TestAssembleEvaluation(t *testing.T) {
	spec := specOf(t, answers.KindEvaluation)
	f := StepForm(spec, testOrder, nil)
	if err := f.Set("sd_scores.volume", "-3"); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("purchase_intent", "7"); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("wtp", "300k+"); err != nil {
		t.Fatal(err)
	}

	got, err := Assemble(spec, f)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	ev, ok := got.(*answers.Evaluation)
	if !ok {
		t.Fatalf("Assemble returned %T, want *answers.Evaluation", got)
	}
	if len(ev.SDScores) != len(answers.SDAxes) {
		t.Errorf("len(SDScores) = %d, want %d", len(ev.SDScores), len(answers.SDAxes))
	}
	if ev.SDScores["volume"] != -3 || ev.SDScores["luxury"] != 0 {
		t.Errorf("SDScores = %v, want volume -3 and luxury 0", ev.SDScores)
	}
	if ev.PurchaseIntent != 7 {
		t.Errorf("PurchaseIntent = %d, want 7", ev.PurchaseIntent)
	}
	if ev.WTP != "300k+" {
		t.Errorf("WTP = %q, want %q", ev.WTP, "300k+")
	}
}

func TestAssembleRejectsBadInput(t *testing.T) {
	spec := specOf(t, answers.KindDrivingExperience)
	f := StepForm(spec, testOrder, nil)
	if err := f.Set("driving_years", "many"); err != nil {
		t.Fatal(err)
	}
	if _, err := Assemble(spec, f); !errors.Is(err, answers.ErrInvalidAnswer) {
		t.Errorf("non-numeric years: error = %v, want ErrInvalidAnswer", err)
	}

	consent := specOf(t, answers.KindConsent)
	if _, err := Assemble(consent, StepForm(consent, testOrder, nil)); !errors.Is(err, answers.ErrInvalidAnswer) {
		t.Errorf("unticked consent: error = %v, want ErrInvalidAnswer", err)
	}
}

func TestMissingAssetFormIsEmpty(t *testing.T) {
	spec := specOf(t, answers.KindEvaluation)
	spec.MissingAsset = true
	f := StepForm(spec, testOrder, nil)
	if len(f.Fields) != 0 {
		t.Errorf("missing asset form has %d fields, want 0", len(f.Fields))
	}
	if got, err := Assemble(spec, f); got != nil || err != nil {
		t.Errorf("Assemble = %v, %v; want nil, nil", got, err)
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMultiFieldLimit(t *testing.T) {
	f := NewForm(Multi("why_good", "Why", answers.WhyGoodOptions, 3))
	for i := 0; i < 4; i++ {
		f.Update(keyPress(" "))
		f.Update(keyPress("right"))
	}
	got := f.Field("why_good").Values()
	want := answers.WhyGoodOptions[:3]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}

	// Unticking frees a slot.
	f.Update(keyPress("left"))
	f.Update(keyPress("left"))
	f.Update(keyPress(" "))
	if n := len(f.Field("why_good").Values()); n != 2 {
		t.Errorf("after untick: %d picks, want 2", n)
	}
}

func TestChoiceFieldKeys(t *testing.T) {
	f := NewForm(Choice("level", "Level", levels5, 0), Check("ok", "OK"))
	f.Update(keyPress("left"))
	if got := f.Field("level").Value(); got != "1" {
		t.Errorf("left at first option: Value() = %q, want %q", got, "1")
	}
	f.Update(keyPress("right"))
	f.Update(keyPress("right"))
	if got := f.Field("level").Value(); got != "3" {
		t.Errorf("Value() = %q, want %q", got, "3")
	}

	f.Next()
	f.Update(keyPress(" "))
	if !f.Field("ok").Checked() {
		t.Error("space should tick the focused check field")
	}
	f.Next()
	if f.Focused().ID != "level" {
		t.Errorf("focus should wrap to the first field, got %s", f.Focused().ID)
	}
	f.Prev()
	if f.Focused().ID != "ok" {
		t.Errorf("Prev from the first field should wrap to the last, got %s", f.Focused().ID)
	}
}

func TestPrefillRestoresAnswer(t *testing.T) {
	kinds := []answers.Kind{
		answers.KindDrivingExperience,
		answers.KindEvaluation,
		answers.KindLadderingGood,
		answers.KindInterviewTopic2,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			spec := specOf(t, kind)
			f := StepForm(spec, testOrder, nil)
			fillRequired(t, kind, f)
			switch kind {
			case answers.KindDrivingExperience:
				_ = f.Set("ev_experience", "yes")
			case answers.KindEvaluation:
				_ = f.Set("sd_scores.power", "2")
				_ = f.Set("free_comment", "deep and calm")
			case answers.KindLadderingGood:
				_ = f.Set("why_good", "calming", "modern")
			case answers.KindInterviewTopic2:
				_ = f.Set("importance_comparison.sound", "10")
			}
			want, err := Assemble(spec, f)
			if err != nil {
				t.Fatalf("Assemble failed: %v", err)
			}

			r := session.NewResponses()
			r.Save(spec.Key, want)
			again := StepForm(spec, testOrder, nil)
			Prefill(again, spec, r)
			got, err := Assemble(spec, again)
			if err != nil {
				t.Fatalf("Assemble after Prefill failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("prefilled answer mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
