// Package report summarizes the collected survey dataset.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/session"
	"github.com/drivesound/drivesound/internal/store"
)

// StimulusStats aggregates the evaluations of one stimulus.
type StimulusStats struct {
	ID          string `json:"id"`
	Evaluations int    `json:"evaluations"`
	Skipped     int    `json:"skipped"`
	Best        int    `json:"best"`
	Worst       int    `json:"worst"`
	// MeanSD is the mean score per SD axis over rated evaluations.
	MeanSD             map[string]float64 `json:"mean_sd"`
	MeanPurchaseIntent float64            `json:"mean_purchase_intent"`
	WTP                map[string]int     `json:"wtp"`
}

// Report holds the aggregated statistics for a dataset.
type Report struct {
	Total     int            `json:"total_responses"`
	Completed int            `json:"completed_responses"`
	Groups    map[string]int `json:"groups"`
	// MeanAttempts is the mean number of comprehension-check submissions
	// among sessions that passed it.
	MeanAttempts float64 `json:"mean_audio_check_attempts"`
	// MeanDuration is measured from session start to completion.
	MeanDuration time.Duration   `json:"mean_duration_ns"`
	Stimuli      []StimulusStats `json:"stimuli"`
}

// evaluationRecord matches both a rated and a skipped evaluation.
type evaluationRecord struct {
	SampleID       string         `json:"sample_id"`
	SDScores       map[string]int `json:"sd_scores"`
	PurchaseIntent int            `json:"purchase_intent"`
	WTP            string         `json:"wtp"`
	Skipped        string         `json:"skipped"`
}

type stimulusAcc struct {
	stats    StimulusStats
	sdSum    map[string]int
	sdN      map[string]int
	piSum    int
	piN      int
	declared bool
}

// Summarize computes dataset statistics. catalog fixes the order of the
// per-stimulus rows; stimuli that appear only in the data follow, sorted.
// Responses that fail to decode are ignored rather than failing the report.
func Summarize(records []store.Record, catalog []string) *Report {
	r := &Report{
		Total:  len(records),
		Groups: map[string]int{string(session.GroupA): 0, string(session.GroupB): 0},
	}

	acc := make(map[string]*stimulusAcc)
	get := func(id string) *stimulusAcc {
		a, ok := acc[id]
		if !ok {
			a = &stimulusAcc{
				stats: StimulusStats{ID: id, MeanSD: map[string]float64{}, WTP: map[string]int{}},
				sdSum: map[string]int{},
				sdN:   map[string]int{},
			}
			acc[id] = a
		}
		return a
	}
	for _, id := range catalog {
		get(id).declared = true
	}

	var attemptsSum, attemptsN int
	var durSum time.Duration
	var durN int

	for _, rec := range records {
		if rec.Group != "" {
			r.Groups[string(rec.Group)]++
		}
		resp := rec.Responses
		if resp == nil {
			continue
		}

		if rec.Completed || resp.Has(session.KeyCompletedAt) {
			r.Completed++
			var stamp string
			if ok, err := resp.Decode(session.KeyCompletedAt, &stamp); ok && err == nil {
				if end, err := time.Parse(time.RFC3339Nano, stamp); err == nil && !rec.StartedAt.IsZero() && end.After(rec.StartedAt) {
					durSum += end.Sub(rec.StartedAt)
					durN++
				}
			}
		}

		var check answers.AudioCheckResult
		if ok, err := resp.Decode(string(answers.KindAudioCheck), &check); ok && err == nil && check.Passed {
			attemptsSum += check.Attempts
			attemptsN++
		}

		for _, key := range resp.Keys() {
			if !strings.HasPrefix(key, "evaluation_") {
				continue
			}
			var ev evaluationRecord
			if ok, err := resp.Decode(key, &ev); !ok || err != nil {
				continue
			}
			if ev.SampleID == "" {
				ev.SampleID = strings.TrimPrefix(key, "evaluation_")
			}
			a := get(ev.SampleID)
			if ev.Skipped != "" {
				a.stats.Skipped++
				continue
			}
			a.stats.Evaluations++
			for axis, score := range ev.SDScores {
				a.sdSum[axis] += score
				a.sdN[axis]++
			}
			if ev.PurchaseIntent > 0 {
				a.piSum += ev.PurchaseIntent
				a.piN++
			}
			if ev.WTP != "" {
				a.stats.WTP[ev.WTP]++
			}
		}

		var grid answers.GridSelection
		if ok, err := resp.Decode(string(answers.KindGridSelection), &grid); ok && err == nil {
			if grid.BestSound != "" {
				get(grid.BestSound).stats.Best++
			}
			if grid.WorstSound != "" {
				get(grid.WorstSound).stats.Worst++
			}
		}
	}

	if attemptsN > 0 {
		r.MeanAttempts = float64(attemptsSum) / float64(attemptsN)
	}
	if durN > 0 {
		r.MeanDuration = durSum / time.Duration(durN)
	}

	var extra []string
	for id, a := range acc {
		if !a.declared {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)

	for _, id := range append(slices.Clone(catalog), extra...) {
		a := acc[id]
		for axis, n := range a.sdN {
			a.stats.MeanSD[axis] = float64(a.sdSum[axis]) / float64(n)
		}
		if a.piN > 0 {
			a.stats.MeanPurchaseIntent = float64(a.piSum) / float64(a.piN)
		}
		r.Stimuli = append(r.Stimuli, a.stats)
	}

	return r
}

// FormatReport produces a terminal-friendly, human-readable summary string.
func FormatReport(r *Report) string {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString("  Driving Sound Survey Report\n")
	b.WriteString("========================================\n")
	b.WriteString("\n")

	fmt.Fprintf(&b, "Responses:   %d total\n", r.Total)
	fmt.Fprintf(&b, "  Completed: %d\n", r.Completed)
	groups := make([]string, 0, len(r.Groups))
	for g := range r.Groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		fmt.Fprintf(&b, "  Group %s:   %d\n", g, r.Groups[g])
	}
	b.WriteString("\n")

	if r.MeanAttempts > 0 {
		fmt.Fprintf(&b, "Audio check: %.2f attempts on average\n", r.MeanAttempts)
	}
	if r.MeanDuration > 0 {
		fmt.Fprintf(&b, "Duration:    %s on average\n", formatDuration(r.MeanDuration))
	}
	if r.MeanAttempts > 0 || r.MeanDuration > 0 {
		b.WriteString("\n")
	}

	axes := answers.AxisIDs()
	for _, s := range r.Stimuli {
		fmt.Fprintf(&b, "%s: %d rated", s.ID, s.Evaluations)
		if s.Skipped > 0 {
			fmt.Fprintf(&b, ", %d skipped", s.Skipped)
		}
		fmt.Fprintf(&b, ", best %d, worst %d\n", s.Best, s.Worst)
		if s.Evaluations == 0 {
			continue
		}
		for _, axis := range axes {
			if mean, ok := s.MeanSD[axis]; ok {
				fmt.Fprintf(&b, "  %-13s %+.2f\n", axis, mean)
			}
		}
		if s.MeanPurchaseIntent > 0 {
			fmt.Fprintf(&b, "  %-13s %.2f\n", "intent", s.MeanPurchaseIntent)
		}
	}

	b.WriteString("========================================\n")

	return b.String()
}

// WriteReport writes the formatted report to {dir}/report.md.
// Creates the directory if it does not exist.
func WriteReport(dir string, report *Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	content := FormatReport(report)
	path := filepath.Join(dir, "report.md")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}

	return nil
}

// formatDuration produces a human-readable duration string such as "5m 32s"
// or "1h 12m 5s". Sub-second durations are shown as "< 1s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
