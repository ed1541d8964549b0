package main

// Run database migrations:
//   go run ./cmd/migrate up|down|status|version

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"usely-backend/internal/shared/config"
	"usely-backend/internal/shared/storage/db"
)

func main() {
	if err := rootCommand().Run(context.Background(), os.Args); err != nil {
		log.Printf("migrate: %v", err)
		os.Exit(1)
	}
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:            "migrate",
		Usage:           "Manage the Usely Postgres schema",
		HideHelpCommand: true,
		DefaultCommand:  "up",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string (defaults to DATABASE_URL)",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: withDB(db.RunMigrations),
			},
			{
				Name:   "down",
				Usage:  "Roll back the most recent migration",
				Action: withDB(db.RollbackMigration),
			},
			{
				Name:   "status",
				Usage:  "Print applied and pending migrations",
				Action: withDB(db.MigrationStatus),
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: withDB(func(ctx context.Context, sqlDB *sql.DB) error {
					v, err := db.MigrationVersion(ctx, sqlDB)
					if err != nil {
						return err
					}
					fmt.Println(v)
					return nil
				}),
			},
		},
	}
}

func withDB(fn func(ctx context.Context, sqlDB *sql.DB) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		url := cmd.String("database-url")
		if url == "" {
			url = config.Load().DatabaseURL
		}
		sqlDB, err := db.Connect(ctx, url, db.OptionsFromEnv(db.DefaultMigrateOptions()))
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer sqlDB.Close()
		return fn(ctx, sqlDB)
	}
}
