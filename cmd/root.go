package main

import (
	"rfq/internal/app"
	"rfq/internal/config"
	"rfq/internal/repository"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rfqd",
		Short:         "Request for quote lifecycle service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newSweepCmd(), newSeedCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic expiry sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp()
			if err != nil {
				return err
			}
			a.Run()
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the database schema",
	}

	run := func(migrate func(*repository.Repository) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewPostgresConfig()
			if err != nil {
				return err
			}
			cfg.AutoMigrateUp = "false"
			cfg.AutoMigrateDown = "false"

			repo, err := repository.NewRepository(nil, cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			return migrate(repo)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  run((*repository.Repository).MigrateUp),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			RunE:  run((*repository.Repository).MigrateDown),
		},
	)
	return cmd
}
