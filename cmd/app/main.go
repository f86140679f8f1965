package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/bohemiyan/governance/internal/config"
	"github.com/bohemiyan/governance/zapLogger"
)

func main() {
	cmd := &cli.Command{
		Name:  "governance",
		Usage: "Foundation governance: authorization, approval workflows and audit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Optional dotenv file loaded before reading the environment",
				Value:   ".env",
				Sources: cli.EnvVars("ENV_FILE"),
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newMigrateCommand(),
			newFlushCacheCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes the process logger.
func setup(command *cli.Command) (*config.Config, *os.File, error) {
	cfg, err := config.LoadConfig(command.String("env-file"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logFile, err := zapLogger.Init(zapLogger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logFile, nil
}
