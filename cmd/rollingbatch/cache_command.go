package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/rollingbatch/internal/config"
	"github.com/Sternrassler/rollingbatch/pkg/cache"
)

const redisPingTimeout = 2 * time.Second

// openCache connects to the configured Redis and checks it is reachable.
// The returned close function releases the client.
func openCache(ctx context.Context, cfg *config.Config) (*cache.Manager, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
	})
	closeClient := func() { _ = client.Close() }

	manager := cache.NewManager(client, cfg.CacheOptions()...)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := manager.Ping(pingCtx); err != nil {
		closeClient()
		return nil, nil, fmt.Errorf("response cache at %s: %w", cfg.Cache.RedisAddr, err)
	}
	return manager, closeClient, nil
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the Redis response cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePurgeCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show response cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manager, closeCache, err := openCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			stats, err := manager.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			table := renderTable(
				[]string{"Namespace", "Redis", "Entries", "Bytes"},
				[][]string{{
					stats.Namespace,
					cfg.Cache.RedisAddr,
					strconv.Itoa(stats.Entries),
					strconv.FormatInt(stats.Bytes, 10),
				}},
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write stats as JSON")
	return cmd
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every cached response in the configured namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manager, closeCache, err := openCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			deleted, err := manager.Purge(cmd.Context())
			if err != nil {
				return err
			}
			ctx.logger.Info().
				Str("namespace", manager.Namespace()).
				Int64("deleted", deleted).
				Msg("Cache purged")
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached responses from %q\n", deleted, manager.Namespace())
			return nil
		},
	}
}
