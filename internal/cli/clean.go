// clean.go implements the "drivesound clean" command for pruning CSV exports.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/drivesound/drivesound/internal/cleanup"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old CSV exports",
	Long: `Remove old export files from <data_dir>/exports/.

By default, removes exports older than the configured max_age_days (default 30).
Use --keep to keep only the N most recent exports instead.
Use --dry-run to preview what would be removed.
Stored responses are never touched.`,
	RunE: runClean,
}

var (
	keepFlag   int
	dryRunFlag bool
)

func init() {
	cleanCmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the last N exports (0 = use age-based cleanup)")
	cleanCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview what would be removed without deleting")
}

func runClean(cmd *cobra.Command, args []string) error {
	return cleanExports(projectDir, keepFlag, dryRunFlag, cmd.OutOrStdout())
}

func cleanExports(root string, keep int, dryRun bool, out io.Writer) error {
	cfg, gw, err := loadProject(root)
	if err != nil {
		return err
	}
	_ = gw.Close()

	dir := exportsDir(cfg, root)
	var pruned []string
	if keep > 0 {
		pruned, err = cleanup.PruneKeepRecent(dir, keep, dryRun)
	} else {
		maxAge := cfg.Cleanup.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 30
		}
		pruned, err = cleanup.PruneByAge(dir, maxAge, dryRun)
	}
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if len(pruned) == 0 {
		fmt.Fprintln(out, "No exports to clean up.")
		return nil
	}

	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	for _, name := range pruned {
		fmt.Fprintf(out, "  %s %s\n", verb, name)
	}
	fmt.Fprintf(out, "%s %d export(s).\n", verb, len(pruned))
	return nil
}
