// init.go implements the "drivesound init" command.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drivesound/drivesound/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a survey project in the current directory",
	Long: `Create .drivesound/config.yaml with the default survey settings and
the data directories. Edit the config to change the stimulus catalog,
the samples per evaluation or the storage backend.`,
	RunE: runInit,
}

var forceFlag bool

func init() {
	initCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config with the defaults")
}

func runInit(cmd *cobra.Command, args []string) error {
	return initProject(projectDir, forceFlag, cmd.OutOrStdout())
}

func initProject(root string, force bool, out io.Writer) error {
	path := filepath.Join(config.Dir(root), "config.yaml")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite it", path)
	}

	cfg := config.DefaultConfig()
	if err := config.WriteConfig(root, cfg); err != nil {
		return err
	}
	for _, dir := range []string{cfg.DataDir(root), exportsDir(cfg, root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fmt.Fprintf(out, "Initialized drivesound in %s\n", config.Dir(root))
	fmt.Fprintf(out, "  Stimuli:  %d (%d per evaluation phase)\n", len(cfg.Stimuli.Catalog), cfg.Survey.SamplesPerEvaluation)
	fmt.Fprintf(out, "  Storage:  %s in %s\n", cfg.Storage.Backend, cfg.DataDir(root))
	return nil
}
