package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/swimlane/internal/config"
	"github.com/aretw0/swimlane/internal/logging"
	"github.com/aretw0/swimlane/pkg/adapters/memory"
	"github.com/aretw0/swimlane/pkg/adapters/redis"
	"github.com/aretw0/swimlane/pkg/ports"
	"github.com/aretw0/swimlane/pkg/session"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swimlane",
	Short: "swimlane is an event-sourced event-modeling canvas",
	Long: `swimlane keeps boards of Role, Command, Event and View nodes laid out on a
swimlane grid, with cursors that select them. Boards change only through events.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "swimlane.yaml", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
}

// loadConfig reads the config file and builds the logger it describes.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.LogFormat == "json")
	return cfg, logger, nil
}

// newManager builds the board manager over Redis when configured, memory otherwise.
// The returned func releases the backend.
func newManager(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks ...session.Hooks) (*session.Manager, func(), error) {
	opts := []session.Option{session.WithLogger(logger)}
	for _, h := range hooks {
		opts = append(opts, session.WithHooks(h))
	}

	var log ports.EventLog
	closer := func() {}
	if cfg.Redis.Addr != "" {
		rlog := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL.Duration),
		)
		if err := rlog.Client().Ping(ctx).Err(); err != nil {
			_ = rlog.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		log = rlog
		opts = append(opts, session.WithLocker(redis.NewLocker(rlog.Client(), cfg.Redis.Prefix)))
		closer = func() {
			if err := rlog.Close(); err != nil {
				logger.Warn("Failed to close redis client", "err", err)
			}
		}
		logger.Info("Using redis event log", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	} else {
		log = memory.NewLog()
		logger.Debug("Using in-memory event log")
	}

	return session.NewManager(log, opts...), closer, nil
}
