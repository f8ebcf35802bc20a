package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/config"
	"github.com/datainfrapilot/dip/internal/orchestrator"
	"github.com/datainfrapilot/dip/internal/server"
	"github.com/datainfrapilot/dip/internal/sshexec"
	"github.com/datainfrapilot/dip/internal/store"

	// Register the hetzner driver.
	_ "github.com/datainfrapilot/dip/internal/provider/hetzner"
)

// Serve returns the command that runs the API server.
func Serve() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control plane API server",
		Long: `Run the HTTP API server.

The server connects to Postgres, applies pending migrations and serves
the REST API until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	if err := st.Migrate(); err != nil {
		return err
	}

	cat := catalog.New(cfg.ArtifactsDir)
	orch := orchestrator.New(orchestrator.Options{
		Store:     st,
		Catalog:   cat,
		Bootstrap: sshexec.NewBootstrap(cfg.Timeouts),
		Timeouts:  cfg.Timeouts,
		Logger:    logger,
	})
	defer orch.Shutdown()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(orch, cat, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
