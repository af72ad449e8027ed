package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/coalesce/internal/cluster"
	"github.com/papapumpkin/coalesce/internal/config"
	"github.com/papapumpkin/coalesce/internal/pairs"
	"github.com/papapumpkin/coalesce/internal/store"
)

var errNoInput = errors.New("no input: pass a pairs file, set input in config, or use --from-store")

// loadConfig loads the config and applies any flags the user set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// applyFlagOverrides applies explicitly set CLI flags to the loaded config.
// Flags a command does not define are ignored.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Size, _ = flags.GetInt("size")
	}
	if flags.Changed("min-group-size") {
		cfg.MinGroupSize, _ = flags.GetInt("min-group-size")
	}
	if flags.Changed("skip-invalid") {
		cfg.SkipInvalid, _ = flags.GetBool("skip-invalid")
	}
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("telemetry") {
		cfg.TelemetryPath, _ = flags.GetString("telemetry")
	}
	if flags.Changed("driver") {
		cfg.Store.Driver, _ = flags.GetString("driver")
	}
	if flags.Changed("dsn") {
		cfg.Store.DSN, _ = flags.GetString("dsn")
	}
	if v, _ := flags.GetBool("verbose"); v {
		cfg.Verbose = true
	}
}

// addStoreFlags registers the flags selecting the SQL store.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("driver", "", "store driver: sqlite or mysql (default from config)")
	cmd.Flags().String("dsn", "", "store data source name (default from config)")
}

// openStore opens the configured store. A missing DSN is an error.
func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	if cfg.Store.DSN == "" {
		return nil, errors.New("no store configured: set store.dsn or pass --dsn")
	}
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
}

// inputPath returns the pairs file named by args, falling back to config.
func inputPath(cfg config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Input
}

// resolveSize picks the element count: the configured size wins, then the
// size declared by the input, then the size inferred from its pairs.
func resolveSize(cfg config.Config, in pairs.Input) (int, error) {
	if cfg.Size > 0 {
		if err := cluster.CheckSize(cfg.Size); err != nil {
			return 0, err
		}
		return cfg.Size, nil
	}
	return in.ResolvedSize()
}
