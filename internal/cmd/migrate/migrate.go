package migrate

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/config"
	registrymigrate "github.com/chirino/social-service/internal/registry/migrate"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/urfave/cli/v3"

	// Store plugins register their migrators alongside their primary interface.
	_ "github.com/chirino/social-service/internal/plugin/store/postgres"
	_ "github.com/chirino/social-service/internal/plugin/store/sqlite"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Sources:  cli.EnvVars("SOCIAL_SERVICE_DB_URL"),
				Usage:    "Database connection URL (a file path for sqlite)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "db-kind",
				Sources: cli.EnvVars("SOCIAL_SERVICE_DB_KIND"),
				Usage:   "Store backend (" + strings.Join(registrystore.Names(), "|") + ")",
				Value:   "postgres",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DBURL = cmd.String("db-url")
			cfg.DatastoreType = cmd.String("db-kind")
			// Explicit invocation always migrates.
			cfg.DatastoreMigrateAtStart = true
			ctx = config.WithContext(ctx, &cfg)

			log.Info("Running migrations...", "db", cfg.DatastoreType)
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("All migrations completed successfully")
			return nil
		},
	}
}
