package cmd

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pollination/guides/internal/fake"
	"github.com/pollination/guides/internal/logging"
	"github.com/pollination/guides/internal/server"
	"github.com/pollination/guides/pkg/config"
)

// newDevServerCmd creates and configures the 'dev-server' subcommand, which
// hosts the in-memory API stand-in. Point the other commands at it with
// --base-url to walk through the whole study without credentials or network
// access.
func newDevServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local stand-in of the Pollination API",
		Long: `Starts an in-memory implementation of the API surface the guides use,
plus a Prometheus /metrics endpoint. Jobs submitted against it walk through a
configurable status sequence, and signed upload and download URLs point back
at the stand-in itself, so the full submit sequence works offline:

  pollination-guides dev-server &
  POLLINATION_API_KEY=dev-token POLLINATION_ORG=demo \
    pollination-guides submit --base-url http://localhost:8844`,

		// The stand-in needs no credentials, so it skips the usual app
		// bootstrap from the root command.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.InitConfig(cfgFile)
		},
		RunE: runDevServerCommand,
	}
	cmd.Flags().String("addr", ":8844", "listen address")
	cmd.Flags().String("token", "dev-token", "API token the stand-in requires; empty disables the check")
	cmd.Flags().StringSlice("job-statuses", nil, "status sequence served by successive job reads")
	return cmd
}

func runDevServerCommand(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New(viper.GetBool("log.development"), viper.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	addr, _ := cmd.Flags().GetString("addr")
	token, _ := cmd.Flags().GetString("token")
	statuses, _ := cmd.Flags().GetStringSlice("job-statuses")

	api := fake.NewServer(fake.Options{
		Token:       token,
		JobStatuses: statuses,
		Logger:      logger.Named("api"),
	})

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Mount("/", api.Handler())

	logger.Info("dev server configured",
		zap.String("addr", addr),
		zap.Bool("auth", token != ""),
	)
	return server.New(addr, mux, logger).Run(cmd.Context())
}
