package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/bohemiyan/governance"
	"github.com/bohemiyan/governance/internal/db"
	"github.com/bohemiyan/governance/zapLogger"
)

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, logFile, err := setup(command.Root())
			if err != nil {
				return err
			}
			if logFile != nil {
				defer logFile.Close()
			}
			defer zapLogger.Log.Sync()

			pgDB, err := db.NewPostgresDB(cfg)
			if err != nil {
				return err
			}
			defer pgDB.Close()

			if err := governance.NewGormStore(pgDB.GormDB).Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			zapLogger.Log.Info("Database schema is up to date")
			return nil
		},
	}
}
