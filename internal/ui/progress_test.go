package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}

func TestProgressDisplayPlain(t *testing.T) {
	var out bytes.Buffer
	p := newProgressDisplay(&out, false, "generate", 20)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p.now = fixedClock(t0, t0.Add(95*time.Second))

	p.Start()
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			p.Add("A")
		} else {
			p.Add("B")
		}
	}
	p.Finish()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// header + ten progress lines + summary
	if len(lines) != 12 {
		t.Fatalf("got %d lines, want 12:\n%s", len(lines), out.String())
	}
	if lines[0] != "generate: 20 sessions" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "[ 10%] 2/20 sessions" {
		t.Errorf("first progress line = %q", lines[1])
	}
	if lines[10] != "[100%] 20/20 sessions" {
		t.Errorf("last progress line = %q", lines[10])
	}
	if want := "Done: 20/20 sessions (A 10, B 10) in 1m35s"; lines[11] != want {
		t.Errorf("summary = %q, want %q", lines[11], want)
	}
}

func TestProgressDisplayTTY(t *testing.T) {
	var out bytes.Buffer
	p := newProgressDisplay(&out, true, "generate", 4)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p.now = fixedClock(t0)

	p.Start()
	p.Add("A")
	p.Add("A")

	got := out.String()
	if n := strings.Count(got, "\r\033[2K"); n != 3 {
		t.Errorf("redraws = %d, want 3", n)
	}
	if !strings.Contains(got, "2/4") {
		t.Errorf("output missing count 2/4: %q", got)
	}
	if !strings.Contains(got, strings.Repeat("█", 15)+strings.Repeat("░", 15)) {
		t.Errorf("bar should be half full: %q", got)
	}
}

func TestProgressDisplayZeroTotal(t *testing.T) {
	var out bytes.Buffer
	p := newProgressDisplay(&out, false, "generate", 0)
	p.Start()
	p.Finish()
	if !strings.Contains(out.String(), "Done: 0/0 sessions in 0s") {
		t.Errorf("output = %q", out.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{61 * time.Second, "1m1s"},
		{3723 * time.Second, "1h2m3s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
