// export.go implements the "drivesound export" command.
package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/drivesound/drivesound/internal/export"
	"github.com/drivesound/drivesound/internal/log"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored responses to CSV",
	Long: `Flatten every stored session into one CSV row. Nested answers become
columns joined with "_" (e.g. phase2_step2_sd_scores_volume).

--columns sd keeps session_id and the semantic-differential scores only.
Without --out the file is written to <data_dir>/exports/ with a timestamped
name.`,
	RunE: runExport,
}

var (
	columnsFlag string
	outFlag     string
)

func init() {
	exportCmd.Flags().StringVar(&columnsFlag, "columns", export.ColumnsAll, "Column set: all or sd")
	exportCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output path (default: timestamped file in the exports directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	_, err := exportResponses(projectDir, columnsFlag, outFlag, time.Now(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

// exportResponses writes the CSV and returns its path.
func exportResponses(root, columns, path string, now time.Time, out, errw io.Writer) (string, error) {
	if columns != export.ColumnsAll && columns != export.ColumnsSD {
		return "", fmt.Errorf("--columns must be %q or %q, got %q", export.ColumnsAll, export.ColumnsSD, columns)
	}
	cfg, gw, err := loadProject(root)
	if err != nil {
		return "", err
	}
	defer gw.Close()

	if path == "" {
		path = filepath.Join(exportsDir(cfg, root), export.FileName(columns, now))
	}
	n, err := export.WriteFile(gw, path, export.Options{Columns: columns})
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	_ = openLogger(root, errw).Append(log.LogEvent{
		Event: log.EventExportWritten,
		Path:  path,
		Total: n,
		Data:  map[string]interface{}{"columns": columns},
	})
	fmt.Fprintf(out, "Exported %d session(s) to %s\n", n, path)
	return path, nil
}
