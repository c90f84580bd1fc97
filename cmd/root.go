package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pollination/guides/internal/app"
	appconfig "github.com/pollination/guides/internal/config"
	"github.com/pollination/guides/internal/pollination"
	"github.com/pollination/guides/internal/storage"
	"github.com/pollination/guides/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a mock app during tests.
type App interface {
	Close()
	GetConfig() appconfig.Config
	GetLogger() *zap.Logger
	GetClient() *pollination.Client
	GetOutputs() storage.Provider
	GetSleeper() pollination.Sleeper
}

// newApp is the application factory. It's a variable so we can
// replace it with a mock factory in our tests.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pollination-guides",
		Short: "Walk through the Pollination cloud simulation API.",
		Long: `pollination-guides exercises the Pollination REST API end to end:
inspect the authenticated account, create a project, upload models, submit a
daylight-factor study and download the outputs of every run.`,

		SilenceUsage: true,

		// This hook runs AFTER config is loaded but BEFORE the subcommand's
		// RunE. This is the perfect place to build and inject the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.InitConfig(cfgFile); err != nil {
				return err
			}
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			// Store the app instance in the context for subcommands to use.
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			// Retrieve the app INTERFACE from the context and close it.
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	// Define persistent flags.
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/pollination, $HOME/.pollination)")
	cmd.PersistentFlags().String("base-url", "", "API host to talk to (default from config)")
	cmd.PersistentFlags().String("out-dir", "", "directory for downloaded outputs (default from config)")
	_ = viper.BindPFlag("base_url", cmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("downloads.dir", cmd.PersistentFlags().Lookup("out-dir"))

	// Add subcommands. They retrieve the app from the context.
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newSubmitCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newDevServerCmd())

	return cmd
}

// resolveApp pulls the injected App out of the command context.
func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
