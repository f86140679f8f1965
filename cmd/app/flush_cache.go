package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/bohemiyan/governance"
	"github.com/bohemiyan/governance/internal/db"
	"github.com/bohemiyan/governance/zapLogger"
)

// newFlushCacheCommand drops every cached membership, e.g. after restoring
// the database from a backup.
func newFlushCacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "flush-cache",
		Usage: "Remove all cached memberships from Redis",
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, logFile, err := setup(command.Root())
			if err != nil {
				return err
			}
			if logFile != nil {
				defer logFile.Close()
			}
			defer zapLogger.Log.Sync()

			if !cfg.RedisEnabled() {
				return errors.New("REDIS_HOST is not set")
			}
			redisDB, err := db.NewRedisClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer redisDB.Close()

			cache := governance.NewRedisMembershipCache(redisDB, cfg.CachePrefix, cfg.CacheTTL)
			if err := cache.ClearAll(ctx); err != nil {
				return fmt.Errorf("failed to flush cache: %w", err)
			}
			zapLogger.Log.Infow("Membership cache flushed", "prefix", cfg.CachePrefix)
			return nil
		},
	}
}
