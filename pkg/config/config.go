// Package config loads gridsense settings from YAML, environment variables and
// built-in defaults.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/samyak-umathe/L-THackthon/pkg/pipeline"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GRIDSENSE_"

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete application configuration.
type Config struct {
	Pipeline pipeline.Config `yaml:"pipeline"`
	Log      LogConfig       `yaml:"log"`
	Server   ServerConfig    `yaml:"server"`
	Cache    CacheConfig     `yaml:"cache"`
	Influx   InfluxConfig    `yaml:"influx"`
	Kafka    KafkaConfig     `yaml:"kafka"`
	Summary  SummaryConfig   `yaml:"summary"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ServerConfig configures the HTTP scoring API.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" validate:"gt=0"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// CacheConfig configures the scored-batch result cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=none memory redis"`
	TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
}

// InfluxConfig configures the InfluxDB scored-reading sink.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

// KafkaConfig configures the alert publisher.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `yaml:"topic" validate:"required_if=Enabled true"`
}

// SummaryConfig holds parameters for aggregate reporting.
type SummaryConfig struct {
	// TariffPerKWh converts unbilled energy into revenue, in rupees.
	TariffPerKWh float64 `yaml:"tariff_per_kwh" validate:"gt=0"`
}

// Default returns a configuration that runs the pipeline with its fixed
// hyperparameters and no external services.
func Default() *Config {
	return &Config{
		Pipeline: pipeline.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 32 << 20,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     10 * time.Minute,
		},
		Influx: InfluxConfig{
			URL:    "http://localhost:8086",
			Org:    "gridsense",
			Bucket: "feeder-scores",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "feeder-alerts",
		},
		Summary: SummaryConfig{
			TariffPerKWh: 6.5,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file: %s", path)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file: %s", path)
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("SERVER_ADDR", &c.Server.Addr)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.RedisPassword)
	str("INFLUX_URL", &c.Influx.URL)
	str("INFLUX_TOKEN", &c.Influx.Token)
	str("INFLUX_ORG", &c.Influx.Org)
	str("INFLUX_BUCKET", &c.Influx.Bucket)
	str("KAFKA_TOPIC", &c.Kafka.Topic)

	if v, ok := lookup(EnvPrefix + "KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		seed, err := cast.ToInt64E(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sSEED", EnvPrefix)
		}
		c.Pipeline.Anomaly.RandomSeed = seed
		c.Pipeline.Risk.RandomSeed = seed
	}

	if v, ok := lookup(EnvPrefix + "CONTAMINATION"); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sCONTAMINATION", EnvPrefix)
		}
		c.Pipeline.Anomaly.Contamination = f
	}

	for key, dst := range map[string]*bool{
		"INFLUX_ENABLED": &c.Influx.Enabled,
		"KAFKA_ENABLED":  &c.Kafka.Enabled,
	} {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := cast.ToBoolE(v)
			if err != nil {
				return errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
			}
			*dst = b
		}
	}

	return nil
}

// Save writes c as YAML.
func Save(path string, c *Config) error {
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", path)
	}
	return nil
}
