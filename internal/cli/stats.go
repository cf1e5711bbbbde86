// stats.go implements the "drivesound stats" command for dataset summaries.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/drivesound/drivesound/internal/report"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize stored responses",
	Long: `Show response counts per group, comprehension-check attempts, mean
completion time and per-stimulus scores for every stored session.

--write also saves the summary to <data_dir>/report.md.`,
	RunE: runStats,
}

var (
	jsonFlag  bool
	writeFlag bool
)

func init() {
	statsCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the summary as JSON")
	statsCmd.Flags().BoolVar(&writeFlag, "write", false, "Also write report.md to the data directory")
}

func runStats(cmd *cobra.Command, args []string) error {
	return printStats(projectDir, jsonFlag, writeFlag, cmd.OutOrStdout())
}

func printStats(root string, asJSON, write bool, out io.Writer) error {
	cfg, gw, err := loadProject(root)
	if err != nil {
		return err
	}
	defer gw.Close()

	records, err := gw.LoadAll()
	if err != nil {
		return fmt.Errorf("loading responses: %w", err)
	}
	r := report.Summarize(records, cfg.StimulusIDs())

	if write {
		if err := report.WriteReport(cfg.DataDir(root), r); err != nil {
			return err
		}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprint(out, report.FormatReport(r))
	return nil
}
