// generate.go implements the "drivesound generate" command, which fills the
// store with synthetic respondents for trying out export and stats.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/drivesound/drivesound/internal/generate"
	"github.com/drivesound/drivesound/internal/session"
	"github.com/drivesound/drivesound/internal/ui"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Store synthetic survey responses",
	Long: `Run --count synthetic respondents through the survey and store their
completed sessions. The same --seed produces the same answers. Useful for
testing the export and stats commands before real data exists.`,
	RunE: runGenerate,
}

var (
	countFlag   int
	seedFlag    uint64
	workersFlag int
)

func init() {
	generateCmd.Flags().IntVarP(&countFlag, "count", "n", 100, "Number of respondents")
	generateCmd.Flags().Uint64Var(&seedFlag, "seed", 42, "Random seed")
	generateCmd.Flags().IntVar(&workersFlag, "workers", 4, "Respondents generated concurrently")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	display := ui.NewProgressDisplay("generate", countFlag)
	return generateResponses(cmd.Context(), projectDir, generate.Options{
		Count:   countFlag,
		Seed:    seedFlag,
		Workers: workersFlag,
	}, display, cmd.ErrOrStderr())
}

// progress receives one call per stored respondent.
type progress interface {
	Start()
	Add(group string)
	Finish()
}

func generateResponses(ctx context.Context, root string, opts generate.Options, p progress, errw io.Writer) error {
	cfg, gw, err := loadProject(root)
	if err != nil {
		return err
	}
	defer gw.Close()

	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	opts.Progress = func(done int, id string, group session.Group) {
		p.Add(string(group))
	}

	p.Start()
	_, err = generate.Run(ctx, cfg, gw, openLogger(root, errw), opts)
	p.Finish()
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	return nil
}
