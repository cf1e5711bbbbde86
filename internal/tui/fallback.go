package tui

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/flow"
)

// ErrInputClosed is returned when input ends before the survey is complete.
var ErrInputClosed = errors.New("input closed before the survey was complete")

// FallbackRunner takes the survey without a terminal: one JSON answer per
// input line, in step order. A line reading "back" moves one step back.
// Steps without questions are passed automatically.
type FallbackRunner struct {
	ctl *flow.Controller
	in  *bufio.Scanner
	out io.Writer
}

// NewFallbackRunner creates a FallbackRunner.
func NewFallbackRunner(ctl *flow.Controller, in io.Reader, out io.Writer) *FallbackRunner {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &FallbackRunner{ctl: ctl, in: sc, out: out}
}

// Run drives the controller until the session is complete and saved.
// Invalid answers are reported and the same step is asked again.
func (f *FallbackRunner) Run() error {
	for {
		sess := f.ctl.Session()
		if sess.Completed() {
			// Forward at completion retries a failed write.
			if _, err := f.ctl.Forward(nil); err != nil {
				return err
			}
			fmt.Fprintf(f.out, "Survey complete. Session %s saved.\n", sess.ID())
			return nil
		}

		spec, err := f.ctl.CurrentStep()
		if err != nil {
			return err
		}
		fmt.Fprintf(f.out, "[%d.%d] %s", spec.Phase, spec.Step, spec.Kind)
		if spec.Stimulus != "" {
			fmt.Fprintf(f.out, " %s (%d/%d)", spec.Stimulus, spec.StimulusIndex, spec.StimulusCount)
		}
		fmt.Fprintln(f.out)

		var answer any
		if !answers.Info(spec.Kind) && !spec.MissingAsset {
			if !f.in.Scan() {
				if err := f.in.Err(); err != nil {
					return fmt.Errorf("reading answers: %w", err)
				}
				return ErrInputClosed
			}
			line := bytes.TrimSpace(f.in.Bytes())
			if strings.EqualFold(string(line), "back") {
				if _, err := f.ctl.Back(); err != nil {
					fmt.Fprintf(f.out, "  %v\n", err)
				}
				continue
			}
			answer, err = answers.Decode(spec.Kind, line)
			if err != nil {
				fmt.Fprintf(f.out, "  %v\n", err)
				continue
			}
		}

		out, err := f.ctl.Forward(answer)
		if err != nil {
			if errors.Is(err, answers.ErrInvalidAnswer) {
				fmt.Fprintf(f.out, "  %v\n", err)
				continue
			}
			return err
		}
		if out.Retry != nil {
			fmt.Fprintf(f.out, "  %v (attempt %d), try again\n", out.Retry, out.Attempts)
		}
	}
}
