package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/testutil"
)

func answerLines(kinds []answers.Kind) []string {
	lines := make([]string, 0, len(kinds))
	for _, k := range kinds {
		lines = append(lines, testutil.AnswerJSON(k, testutil.Catalog))
	}
	return lines
}

func TestFallbackRunnerCompletesSurvey(t *testing.T) {
	p := &testutil.MemPersister{}
	ctl := testutil.Controller(t, p)

	lines := answerLines(testutil.SurveyKinds)
	// Rejected consent, then back from basic info, then a wrong audio pick.
	script := []string{
		`{"participation":true,"data_usage":false,"audio_requirement":true}`,
		lines[0],
		"back",
		lines[0],
		lines[1], lines[2], lines[3],
		`{"answer":"dog"}`,
	}
	script = append(script, lines[4:]...)

	var out bytes.Buffer
	r := NewFallbackRunner(ctl, strings.NewReader(strings.Join(script, "\n")+"\n"), &out)
	if err := r.Run(); err != nil {
		t.Fatalf("Run failed: %v\noutput:\n%s", err, out.String())
	}

	if p.Len() != 1 {
		t.Fatalf("persisted %d snapshots, want 1", p.Len())
	}
	got := out.String()
	for _, want := range []string{
		"invalid answer",
		"comprehension check failed (attempt 1)",
		"[2.1] precondition",
		"[2.2] evaluation X (1/3)",
		"Survey complete. Session " + ctl.Session().ID() + " saved.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\noutput:\n%s", want, got)
		}
	}

	var check answers.AudioCheckResult
	if _, err := p.Snaps[0].Responses.Decode("audio_check", &check); err != nil {
		t.Fatalf("decoding audio_check: %v", err)
	}
	if check.Attempts != 2 {
		t.Errorf("audio check attempts = %d, want 2", check.Attempts)
	}
}

func TestFallbackRunnerInputClosed(t *testing.T) {
	p := &testutil.MemPersister{}
	ctl := testutil.Controller(t, p)

	lines := answerLines(testutil.SurveyKinds[:3])
	r := NewFallbackRunner(ctl, strings.NewReader(strings.Join(lines, "\n")), &bytes.Buffer{})
	err := r.Run()
	if !errors.Is(err, ErrInputClosed) {
		t.Fatalf("Run() error = %v, want ErrInputClosed", err)
	}
	if p.Len() != 0 {
		t.Errorf("persisted %d snapshots for an unfinished session, want 0", p.Len())
	}
	if phase, step := ctl.CurrentState(); phase != 1 || step != 4 {
		t.Errorf("position = %d.%d, want 1.4", phase, step)
	}
}

func TestFallbackRunnerPersistFailure(t *testing.T) {
	p := &testutil.MemPersister{Fail: true}
	ctl := testutil.Controller(t, p)

	lines := answerLines(testutil.SurveyKinds)
	r := NewFallbackRunner(ctl, strings.NewReader(strings.Join(lines, "\n")), &bytes.Buffer{})
	err := r.Run()
	if !errors.Is(err, flow.ErrPersistenceFailure) {
		t.Fatalf("Run() error = %v, want ErrPersistenceFailure", err)
	}
	if !ctl.Session().Completed() {
		t.Error("session should be complete even though the write failed")
	}

	// Running again retries the write.
	p.Fail = false
	if err := NewFallbackRunner(ctl, strings.NewReader(""), &bytes.Buffer{}).Run(); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("persisted %d snapshots, want 1", p.Len())
	}
}
