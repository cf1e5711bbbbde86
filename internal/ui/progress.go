// Package ui provides terminal UI components for drivesound.
// This file implements the progress display shown while generating sessions.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// barWidth is the number of cells in the TTY bar.
const barWidth = 30

// ProgressDisplay shows how many of a fixed number of sessions are done,
// broken down by group. On a terminal it redraws one line in place; when
// piped it prints a line every tenth of the way.
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	isTTY   bool
	label   string
	total   int
	done    int
	groups  map[string]int
	started time.Time
	printed int // tenths already printed (non-TTY)
	now     func() time.Time
}

// NewProgressDisplay creates a ProgressDisplay writing to stdout.
func NewProgressDisplay(label string, total int) *ProgressDisplay {
	return newProgressDisplay(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), label, total)
}

func newProgressDisplay(out io.Writer, isTTY bool, label string, total int) *ProgressDisplay {
	return &ProgressDisplay{
		out:    out,
		isTTY:  isTTY,
		label:  label,
		total:  total,
		groups: make(map[string]int),
		now:    time.Now,
	}
}

// Start draws the initial display.
func (p *ProgressDisplay) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = p.now()
	if p.isTTY {
		p.renderTTY()
		return
	}
	fmt.Fprintf(p.out, "%s: %d sessions\n", p.label, p.total)
}

// Add records one finished session of the given group and re-renders.
func (p *ProgressDisplay) Add(group string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.groups[group]++
	if p.isTTY {
		p.renderTTY()
		return
	}
	p.renderPlain()
}

// Finish moves below the bar and prints a summary line.
func (p *ProgressDisplay) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isTTY {
		fmt.Fprint(p.out, "\n")
	}
	fmt.Fprintf(p.out, "Done: %d/%d sessions", p.done, p.total)
	if g := p.groupSummary(); g != "" {
		fmt.Fprintf(p.out, " (%s)", g)
	}
	fmt.Fprintf(p.out, " in %s\n", formatDuration(p.now().Sub(p.started)))
}

// renderTTY redraws the bar line using ANSI escape codes.
func (p *ProgressDisplay) renderTTY() {
	filled := 0
	if p.total > 0 {
		filled = barWidth * p.done / p.total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	var buf strings.Builder
	buf.WriteString("\r\033[2K")
	buf.WriteString(fmt.Sprintf("\033[1m%s\033[0m \033[32m%s\033[0m %d/%d", p.label, bar, p.done, p.total))
	if g := p.groupSummary(); g != "" {
		buf.WriteString(fmt.Sprintf("  \033[90m%s\033[0m", g))
	}
	buf.WriteString(fmt.Sprintf("  \033[90m[%s]\033[0m", formatDuration(p.now().Sub(p.started))))
	fmt.Fprint(p.out, buf.String())
}

// renderPlain writes non-TTY output (for CI/piping). Only prints when a new
// tenth is reached to keep logs short.
func (p *ProgressDisplay) renderPlain() {
	if p.total == 0 {
		return
	}
	tenths := 10 * p.done / p.total
	if tenths <= p.printed {
		return
	}
	p.printed = tenths
	fmt.Fprintf(p.out, "[%3d%%] %d/%d sessions\n", tenths*10, p.done, p.total)
}

func (p *ProgressDisplay) groupSummary() string {
	names := make([]string, 0, len(p.groups))
	for g := range p.groups {
		names = append(names, g)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, g := range names {
		parts[i] = fmt.Sprintf("%s %d", g, p.groups[g])
	}
	return strings.Join(parts, ", ")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", h, m, s)
}
