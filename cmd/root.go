// Package cmd defines and implements the CLI commands for the harvester executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/app"
	"github.com/JakeFAU/paste-harvester/internal/config"
	"github.com/JakeFAU/paste-harvester/internal/scheduler"
	"github.com/JakeFAU/paste-harvester/internal/storage/sqlite"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Database() *sqlite.DB
	Scheduler() *scheduler.Scheduler
	EnsureSchema(ctx context.Context) error
	Status(ctx context.Context) (app.Status, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(_ context.Context, cfg config.Config) (App, error) {
	return app.New(cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Incremental paste harvester for an onion paste listing.",
		Long: `harvester walks a paginated paste listing through a Tor SOCKS proxy,
extracts every paste newer than the most recently stored one and persists
them to a local SQLite database, then sleeps until the next window.`,
		SilenceUsage: true,

		// Runs before the subcommand's RunE: load config, build and inject the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWith(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default searches ./harvester.yaml, /etc/harvester, $HOME/.harvester)")
	flags.String("log-level", "", "log level override (debug, info, warn, error)")
	flags.Bool("dev", false, "use the development console logger")
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("logging.development", flags.Lookup("dev"))

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCreateDBCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() error {
	return newRootCmd().Execute()
}
