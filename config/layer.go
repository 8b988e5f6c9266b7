package config

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/cache"
	"github.com/folio/cachekit/logger"
	"github.com/folio/cachekit/resilience"
	"github.com/folio/cachekit/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// OpenMedium opens the durable medium named by cfg.Durable, wrapped in a
// circuit breaker.
func OpenMedium(ctx context.Context, cfg *Config) (storage.Medium, error) {
	var medium storage.Medium
	switch cfg.Durable.Backend {
	case BackendMemory:
		medium = storage.NewMemory(storage.WithQuota(int(cfg.Durable.Quota)))
	case BackendSQLite:
		db, err := storage.NewSQLite(ctx, cfg.Durable.Path)
		if err != nil {
			return nil, err
		}
		medium = db
	case BackendRedis:
		opts, err := redis.ParseURL(cfg.Durable.RedisURL)
		if err != nil {
			return nil, errors.Wrapf(err, "parse redis url")
		}
		client := redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			client.Close()
			return nil, errors.Wrapf(err, "connect to redis")
		}
		medium = storage.NewRedis(client, storage.WithOwnedClient())
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "unknown durable.backend %q", cfg.Durable.Backend)
	}
	breaker := cfg.Durable.Breaker
	if breaker.MaxFailures == 0 {
		return medium, nil
	}
	return storage.NewBreaker(medium, resilience.CircuitBreakerConfig{
		MaxFailures:      breaker.MaxFailures,
		Cooldown:         time.Duration(breaker.Cooldown),
		SuccessThreshold: 1,
	}), nil
}

// NewLayer builds both stores from cfg and starts the transient sweep. The
// sweep stops when ctx is cancelled or the layer is closed. log may be nil,
// in which case a console logger at cfg's level is used. reg may be nil.
func NewLayer(ctx context.Context, cfg *Config, log logger.Logger, reg prometheus.Registerer) (*cache.Layer, error) {
	if log == nil {
		log = logger.NewConsoleLogger(cfg.Level())
	}
	medium, err := OpenMedium(ctx, cfg)
	if err != nil {
		return nil, err
	}
	metrics := cache.NewMetrics(reg)
	opts := []cache.Option{
		cache.WithDefaultTTL(time.Duration(cfg.DefaultTTL)),
		cache.WithSweepInterval(time.Duration(cfg.SweepInterval)),
		cache.WithNamespace(cfg.Namespace),
		cache.WithLogger(log),
		cache.WithMetrics(metrics),
	}
	transient := cache.NewTransient(opts...)
	durable := cache.NewDurable(medium, opts...)
	transient.Start(ctx)
	log.Debug("cache layer ready (backend=%s target=%s namespace=%q)", cfg.Durable.Backend, cfg.Target(), cfg.Namespace)
	return cache.NewLayer(transient, durable, metrics).WithLogger(log), nil
}
