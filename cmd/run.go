package cmd

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

	"github.com/JakeFAU/paste-harvester/internal/api"
)

// newRunCmd creates the 'run' subcommand: the harvesting daemon.
func newRunCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts the paste harvester",
		Long: `Runs crawl cycles forever, sleeping runtime.window_hours between them.
SIGINT or SIGTERM stop the daemon cleanly; pastes stored so far stay stored.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHarvester(cmd.Context(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single crawl cycle and exit")
	return cmd
}

func runHarvester(parent context.Context, once bool) error {
	appInstance, err := resolveApp(parent)
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := appInstance.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if cfg := appInstance.Config(); cfg.Server.Enabled {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewServer(appInstance.Database(), appInstance, logger.Named("api")).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops server started", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("ops server shutdown error", zap.Error(err))
			}
		}()
	}

	if once {
		if _, err := appInstance.Scheduler().RunOnce(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("crawl cycle: %w", err)
		}
		return nil
	}

	if err := appInstance.Scheduler().Run(ctx); err != nil {
		return fmt.Errorf("run harvester: %w", err)
	}
	if ctx.Err() != nil {
		logger.Info("interrupted, exiting")
	}
	return nil
}
