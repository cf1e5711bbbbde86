// take.go implements the "drivesound take" command: one respondent answers
// the survey in the terminal.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/drivesound/drivesound/internal/config"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/log"
	"github.com/drivesound/drivesound/internal/session"
	"github.com/drivesound/drivesound/internal/store"
	"github.com/drivesound/drivesound/internal/tui"
	"github.com/drivesound/drivesound/internal/tui/app"
)

var takeCmd = &cobra.Command{
	Use:   "take",
	Short: "Take the survey in the terminal",
	Long: `Start a new session and walk through the four survey phases.

On a terminal this opens the interactive survey. Otherwise, or with --plain,
answers are read from stdin as one JSON object per line; a line reading
"back" returns to the previous step.`,
	RunE: runTake,
}

var plainFlag bool

func init() {
	takeCmd.Flags().BoolVar(&plainFlag, "plain", false, "Read JSON answers from stdin instead of opening the interactive survey")
}

func runTake(cmd *cobra.Command, args []string) error {
	cfg, gw, err := loadProject(projectDir)
	if err != nil {
		return err
	}
	defer gw.Close()

	logger := openLogger(projectDir, cmd.ErrOrStderr())
	ctl, err := newSurveyController(cfg, projectDir, gw, logger, flow.SystemRandomizer())
	if err != nil {
		return err
	}

	if !plainFlag {
		err := tui.Run(app.New(ctl, cfg.Survey.AudioCheckOptions))
		if !errors.Is(err, tui.ErrNotInteractive) {
			if err != nil {
				return err
			}
			printTakeResult(cmd.OutOrStdout(), ctl)
			return nil
		}
	}
	return tui.NewFallbackRunner(ctl, cmd.InOrStdin(), cmd.OutOrStdout()).Run()
}

// newSurveyController starts a session for the project at root, persisting
// through gw and checking stimulus media relative to root.
func newSurveyController(cfg *config.Config, root string, gw store.Gateway, logger log.Sink, rng flow.Randomizer) (*flow.Controller, error) {
	topo, err := flow.NewTopology(cfg.StimulusIDs(), cfg.Survey.SamplesPerEvaluation, cfg.Survey.InterviewOrder)
	if err != nil {
		return nil, fmt.Errorf("building survey: %w", err)
	}
	return flow.Start(flow.Options{
		Topology:         topo,
		Randomizer:       rng,
		Persister:        gw,
		Assets:           mediaAssets(cfg, root),
		Logger:           logger,
		AudioCheckAnswer: cfg.Survey.AudioCheckAnswer,
		Groups:           [2]session.Group{session.Group(cfg.Survey.Groups[0]), session.Group(cfg.Survey.Groups[1])},
	})
}

func mediaAssets(cfg *config.Config, root string) flow.FileAssets {
	media := make(map[string]string, len(cfg.Stimuli.Catalog))
	for _, s := range cfg.Stimuli.Catalog {
		media[s.ID] = s.Media
	}
	return flow.FileAssets{Root: root, Media: media}
}

func printTakeResult(out io.Writer, ctl *flow.Controller) {
	sess := ctl.Session()
	switch {
	case ctl.Persisted():
		fmt.Fprintf(out, "Survey complete. Session %s saved.\n", sess.ID())
	case sess.Completed():
		fmt.Fprintf(out, "Session %s completed but could not be saved.\n", sess.ID())
	default:
		phase, step := ctl.CurrentState()
		fmt.Fprintf(out, "Survey left at %d.%d. Session %s was not saved.\n", phase, step, sess.ID())
	}
}
