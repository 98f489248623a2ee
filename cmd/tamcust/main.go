package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/saikilaru/TAMcust/config"
	"github.com/saikilaru/TAMcust/internal/app"
)

func main() {
	var envFile string

	root := &cobra.Command{
		Use:           "tamcust",
		Short:         "Multi-tenant visitor management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLogger(envFile, func(cfg *config.Config, logger ectologger.Logger) error {
				a, err := app.New(cfg, logger)
				if err != nil {
					return err
				}
				return a.Run(cmd.Context())
			})
		},
	}

	var version uint
	var force int
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLogger(envFile, func(cfg *config.Config, logger ectologger.Logger) error {
				return app.Migrate(cmd.Context(), cfg, logger, version, force)
			})
		},
	}
	migrate.Flags().UintVar(&version, "version", 0, "target version, 0 migrates to the latest")
	migrate.Flags().IntVar(&force, "force", 0, "force the schema version before migrating")

	root.AddCommand(serve, migrate)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withLogger(envFile string, fn func(*config.Config, ectologger.Logger) error) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, sync, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer sync()

	if err := fn(cfg, logger); err != nil {
		logger.WithError(err).Error("command failed")
		return err
	}
	return nil
}
