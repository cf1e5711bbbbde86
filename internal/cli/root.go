// Package cli defines Cobra command definitions for the drivesound CLI.
// This file contains the root command and the helpers shared by subcommands.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drivesound/drivesound/internal/config"
	"github.com/drivesound/drivesound/internal/log"
	"github.com/drivesound/drivesound/internal/store"
)

var (
	projectDir string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "drivesound",
	Short: "EV driving-sound survey",
	Long: `drivesound runs a four-phase survey on how people perceive the driving
sounds of electric vehicles. Respondents take it in the terminal (take) or
over HTTP (serve). Responses are stored one record per session and can be
exported to CSV or summarized.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Project root containing .drivesound/")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(cleanCmd)
}

// loadProject reads the config of the project at root and opens its storage.
// The caller closes the gateway.
func loadProject(root string) (*config.Config, store.Gateway, error) {
	if _, err := os.Stat(config.Dir(root)); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf(".drivesound/ not found in %s. Run 'drivesound init' first", root)
	}
	cfg, err := config.ReadConfig(root)
	if err != nil {
		return nil, nil, err
	}
	gw, err := store.Open(cfg, root)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	return cfg, gw, nil
}

// openLogger returns the project event log, or log.Discard with a warning
// on errw when it cannot be created.
func openLogger(root string, errw io.Writer) log.Sink {
	logger, err := log.NewLogger(root)
	if err != nil {
		fmt.Fprintf(errw, "Warning: event log disabled: %v\n", err)
		return log.Discard
	}
	return logger
}

func exportsDir(cfg *config.Config, root string) string {
	return filepath.Join(cfg.DataDir(root), "exports")
}
