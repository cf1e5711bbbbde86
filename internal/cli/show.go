// show.go implements the "drivesound show" command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print one stored session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showSession(projectDir, args[0], cmd.OutOrStdout())
	},
}

func showSession(root, id string, out io.Writer) error {
	_, gw, err := loadProject(root)
	if err != nil {
		return err
	}
	defer gw.Close()

	rec, err := gw.Load(id)
	if err != nil {
		return fmt.Errorf("loading session %s: %w", id, err)
	}
	if rec == nil {
		return fmt.Errorf("no stored session %s", id)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
