// Package config loads cachekit settings from YAML and the environment and
// assembles a ready-to-use cache.Layer from them.
package config

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/cache"
	"github.com/folio/cachekit/logger"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Environment variables that override the YAML file.
const (
	EnvDefaultTTL    = "CACHEKIT_DEFAULT_TTL"
	EnvSweepInterval = "CACHEKIT_SWEEP_INTERVAL"
	EnvNamespace     = "CACHEKIT_NAMESPACE"
	EnvLogLevel      = logger.EnvLogLevel
	EnvBackend       = "CACHEKIT_BACKEND"
	EnvSQLitePath    = "CACHEKIT_SQLITE_PATH"
	EnvRedisURL      = "CACHEKIT_REDIS_URL"
)

// Durable backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

// Duration is a time.Duration written in YAML as a string such as "90s",
// "1h30m" or "1d".
type Duration time.Duration

func ParseDuration(s string) (Duration, error) {
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "duration %q: %s", s, err)
	}
	return Duration(d), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) String() string {
	return str2duration.String(time.Duration(d))
}

// ByteSize is a size in bytes written in YAML either as a plain integer or
// as a quantity such as "5Mi" or "512k".
type ByteSize int64

func ParseByteSize(s string) (ByteSize, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "size %q: %s", s, err)
	}
	return ByteSize(q.Value()), nil
}

func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b ByteSize) MarshalYAML() (interface{}, error) {
	return resource.NewQuantity(int64(b), resource.BinarySI).String(), nil
}

type Breaker struct {
	MaxFailures int      `yaml:"max_failures"`
	Cooldown    Duration `yaml:"cooldown"`
}

type Durable struct {
	Backend  string   `yaml:"backend"`
	Path     string   `yaml:"path,omitempty"`
	RedisURL string   `yaml:"redis_url,omitempty"`
	Quota    ByteSize `yaml:"quota,omitempty"`
	Breaker  Breaker  `yaml:"breaker"`
}

// Config is the cachekit configuration file.
type Config struct {
	DefaultTTL    Duration `yaml:"default_ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
	Namespace     string   `yaml:"namespace"`
	LogLevel      string   `yaml:"log_level"`
	Durable       Durable  `yaml:"durable"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DefaultTTL:    Duration(cache.DefaultTTL),
		SweepInterval: Duration(cache.DefaultSweepInterval),
		Namespace:     cache.DefaultNamespace,
		LogLevel:      "info",
		Durable: Durable{
			Backend: BackendMemory,
			Path:    "cachekit.db",
			Breaker: Breaker{
				MaxFailures: 5,
				Cooldown:    Duration(30 * time.Second),
			},
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		of, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open config %s", path)
		}
		defer of.Close()
		if err := yaml.NewDecoder(of).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "decode config %s", path)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CACHEKIT_* environment variables that are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvDefaultTTL); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "%s", EnvDefaultTTL)
		}
		c.DefaultTTL = d
	}
	if v, ok := os.LookupEnv(EnvSweepInterval); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "%s", EnvSweepInterval)
		}
		c.SweepInterval = d
	}
	if v, ok := os.LookupEnv(EnvNamespace); ok {
		c.Namespace = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvBackend); ok {
		c.Durable.Backend = v
	}
	if v, ok := os.LookupEnv(EnvSQLitePath); ok {
		c.Durable.Path = v
	}
	if v, ok := os.LookupEnv(EnvRedisURL); ok {
		c.Durable.RedisURL = v
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.DefaultTTL < 0 {
		return errors.Wrapf(ErrInvalidConfig, "default_ttl must not be negative, got %s", c.DefaultTTL)
	}
	if c.SweepInterval <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "sweep_interval must be positive, got %s", c.SweepInterval)
	}
	if c.Namespace == "" {
		return errors.Wrap(ErrInvalidConfig, "namespace must not be empty")
	}
	switch c.Durable.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Durable.Path == "" {
			return errors.Wrap(ErrInvalidConfig, "durable.path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Durable.RedisURL == "" {
			return errors.Wrap(ErrInvalidConfig, "durable.redis_url is required for the redis backend")
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown durable.backend %s", strconv.Quote(c.Durable.Backend))
	}
	if c.Durable.Quota < 0 {
		return errors.Wrapf(ErrInvalidConfig, "durable.quota must not be negative, got %d", c.Durable.Quota)
	}
	if c.Durable.Breaker.MaxFailures < 0 {
		return errors.Wrapf(ErrInvalidConfig, "durable.breaker.max_failures must not be negative, got %d", c.Durable.Breaker.MaxFailures)
	}
	if c.Durable.Breaker.Cooldown < 0 {
		return errors.Wrapf(ErrInvalidConfig, "durable.breaker.cooldown must not be negative, got %s", c.Durable.Breaker.Cooldown)
	}
	return nil
}

// Level returns the configured log level, falling back to info.
func (c *Config) Level() logger.LogLevel {
	return logger.ParseLevel(c.LogLevel, logger.LevelInfo)
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	of, err := os.Create(path)
	if err != nil {
		return err
	}
	defer of.Close()
	of.WriteString("# cachekit configuration. CACHEKIT_* environment variables override these values.\n")
	enc := yaml.NewEncoder(of)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrapf(err, "encode config %s", path)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return of.Close()
}
