package main

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/cache"
	"github.com/folio/cachekit/config"
	"github.com/folio/cachekit/env"
	"github.com/folio/cachekit/logger"
	"github.com/spf13/cobra"
)

const envConfigFile = "CACHEKIT_CONFIG"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "cachectl",
		Short:        "Inspect and manage a cachekit durable store",
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "path to the YAML config file ($"+envConfigFile+")")
	flags.String("env-file", "", "load CACHEKIT_* variables from a .env file")
	flags.String("backend", "", "durable backend: memory, sqlite or redis ($"+config.EnvBackend+")")
	flags.String("path", "", "sqlite database path ($"+config.EnvSQLitePath+")")
	flags.String("redis-url", "", "redis connection url ($"+config.EnvRedisURL+")")
	flags.String("namespace", "", "key namespace ($"+config.EnvNamespace+")")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error or none ($"+logger.EnvLogLevel+")")

	root.AddCommand(
		newKeysCommand(),
		newGetCommand(),
		newDeleteCommand(),
		newClearCommand(),
		newStatsCommand(),
		newInitCommand(),
	)
	return root
}

// loadConfig resolves settings in order: flag, environment, config file,
// built-in default.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if fn, _ := cmd.Flags().GetString("env-file"); fn != "" {
		lines, err := env.ParseEnvFile(fn)
		if err != nil {
			return nil, err
		}
		if err := env.Apply(lines); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(env.FlagOrEnv(cmd, "config", envConfigFile, ""))
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"backend", &cfg.Durable.Backend},
		{"path", &cfg.Durable.Path},
		{"redis-url", &cfg.Durable.RedisURL},
		{"namespace", &cfg.Namespace},
		{"log-level", &cfg.LogLevel},
	}
	for _, o := range overrides {
		if v, _ := cmd.Flags().GetString(o.flag); v != "" {
			*o.dst = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDurable returns the durable store described by the command's settings.
// The caller must Close it.
func openDurable(cmd *cobra.Command) (*cache.Durable, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.NewConsoleLogger(cfg.Level())
	medium, err := config.OpenMedium(cmd.Context(), cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s backend", cfg.Durable.Backend)
	}
	return cache.NewDurable(medium,
		cache.WithNamespace(cfg.Namespace),
		cache.WithDefaultTTL(time.Duration(cfg.DefaultTTL)),
		cache.WithLogger(log),
	), nil
}
