package cli

import (
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"campus-assessment-service/internal/app"
	"campus-assessment-service/internal/config"
	pgstore "campus-assessment-service/internal/infra/postgres"
)

// NewSweepCmd runs a single attendance reconciliation pass and exits.
// Useful for catching up after downtime without starting the server.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one attendance reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := pgstore.NewStore(pool)
			sweeper := app.NewSweeper(store, store, store, log.With().Str("component", "sweep").Logger())
			return sweeper.Run(cmd.Context())
		},
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", "assessment").Logger()
}
