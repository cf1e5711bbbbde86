// serve.go implements the "drivesound serve" command for the HTTP survey API.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/drivesound/drivesound/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the survey over HTTP",
	Long: `Start the HTTP API. Each POST /v1/sessions starts a new respondent;
answers are submitted with POST /v1/sessions/:id/forward. Completed sessions
are written to the configured storage. Prometheus metrics are served at
/metrics.

Sessions idle for longer than --max-idle are dropped from memory.`,
	RunE: runServe,
}

var (
	addrFlag         string
	maxIdleFlag      time.Duration
	reapIntervalFlag time.Duration
)

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default: server.addr from config)")
	serveCmd.Flags().DurationVar(&maxIdleFlag, "max-idle", 2*time.Hour, "Drop sessions idle for longer than this")
	serveCmd.Flags().DurationVar(&reapIntervalFlag, "reap-interval", 5*time.Minute, "How often to look for idle sessions")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, gw, err := loadProject(projectDir)
	if err != nil {
		return err
	}
	defer gw.Close()

	addr := addrFlag
	if addr == "" {
		addr = cfg.Server.Addr
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(server.Options{
		Config:  cfg,
		Gateway: gw,
		Logger:  openLogger(projectDir, cmd.ErrOrStderr()),
		Assets:  mediaAssets(cfg, projectDir),
	})
	if err != nil {
		return err
	}
	if err := srv.Listen(addr); err != nil {
		return err
	}
	srv.StartReaper(reapIntervalFlag, maxIdleFlag)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

	select {
	case err := <-errCh:
		_ = srv.Stop()
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down.")
	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return <-errCh
}
