package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/medtracker-api/internal/service/druginfo"
	"github.com/jwalitptl/medtracker-api/pkg/event"
	"github.com/jwalitptl/medtracker-api/pkg/logger"
	"github.com/jwalitptl/medtracker-api/pkg/messaging/redis"
	"github.com/jwalitptl/medtracker-api/pkg/worker"
)

// EnvPrefix is prepended to every environment override, e.g.
// MEDTRACKER_DATABASE_HOST or MEDTRACKER_DRUGINFO_BASE_URL.
const EnvPrefix = "MEDTRACKER"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Outbox        OutboxConfig        `mapstructure:"outbox"`
	DrugInfo      DrugInfoConfig      `mapstructure:"drug_info" envconfig:"DRUGINFO"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" split_words:"true"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Log           LogConfig           `mapstructure:"log"`
	Adherence     AdherenceConfig     `mapstructure:"adherence"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	EventTracking EventTrackingConfig `mapstructure:"event_tracking" split_words:"true"`
	Worker        WorkerConfig        `mapstructure:"worker"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" split_words:"true"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type OutboxConfig struct {
	// Enabled turns on event recording for write endpoints.
	Enabled bool `mapstructure:"enabled"`
	// Inline runs the processor and cleanup inside the API process.
	Inline          bool          `mapstructure:"inline"`
	BatchSize       int           `mapstructure:"batch_size" split_words:"true"`
	PollInterval    time.Duration `mapstructure:"poll_interval" split_words:"true"`
	RetryAttempts   int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" split_words:"true"`
	MaxEventRetries int           `mapstructure:"max_event_retries" split_words:"true"`
	Channel         string        `mapstructure:"channel"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" split_words:"true"`
}

type DrugInfoConfig struct {
	BaseURL          string        `mapstructure:"base_url" split_words:"true"`
	APIKey           string        `mapstructure:"api_key" split_words:"true"`
	Timeout          time.Duration `mapstructure:"timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" split_words:"true"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" split_words:"true"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
	AllowedMethods []string `mapstructure:"allowed_methods" split_words:"true"`
	AllowedHeaders []string `mapstructure:"allowed_headers" split_words:"true"`
	MaxAge         int      `mapstructure:"max_age" split_words:"true"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AdherenceConfig struct {
	// Timezone is the IANA zone in which dose dates are evaluated.
	Timezone string `mapstructure:"timezone"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type EventResourceConfig struct {
	TrackedFields []string `mapstructure:"tracked_fields"`
}

type EventTrackingConfig struct {
	Resources map[string]EventResourceConfig `mapstructure:"resources" ignored:"true"`
}

type WorkerConfig struct {
	HealthPort int `mapstructure:"health_port" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "20s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("storage.driver", StoragePostgres)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "medtracker")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", "100ms")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("outbox.enabled", true)
	v.SetDefault("outbox.inline", false)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", "5s")
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", "1s")
	v.SetDefault("outbox.max_event_retries", 5)
	v.SetDefault("outbox.channel", "medtracker.events")
	v.SetDefault("outbox.retention", "168h")
	v.SetDefault("outbox.cleanup_interval", "1h")

	v.SetDefault("drug_info.base_url", druginfo.DefaultBaseURL)
	v.SetDefault("drug_info.timeout", "10s")
	v.SetDefault("drug_info.cache_ttl", "1h")
	v.SetDefault("drug_info.failure_threshold", 5)
	v.SetDefault("drug_info.open_timeout", "30s")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.max_age", 86400)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("adherence.timezone", "UTC")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "medtracker")

	v.SetDefault("event_tracking.resources", map[string]interface{}{
		"medication": map[string]interface{}{
			"tracked_fields": []string{"name", "dosage_mg", "prescribed_per_day"},
		},
	})

	v.SetDefault("worker.health_port", 8081)
}

// Load reads configuration from path, or from config.yaml in the usual
// locations when path is empty, and then applies MEDTRACKER_* environment
// overrides. A missing config file is not an error unless path was given.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		errs = append(errs, fmt.Sprintf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port %d", c.Server.Port))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, "rate limit requires positive requests_per_second and burst")
	}
	if c.Outbox.Enabled {
		if c.Outbox.BatchSize <= 0 {
			errs = append(errs, "outbox batch_size must be positive")
		}
		if c.Outbox.PollInterval <= 0 || c.Outbox.RetryDelay <= 0 {
			errs = append(errs, "outbox poll_interval and retry_delay must be positive")
		}
		if c.Outbox.RetryAttempts <= 0 || c.Outbox.MaxEventRetries <= 0 {
			errs = append(errs, "outbox retry_attempts and max_event_retries must be positive")
		}
		if c.Outbox.Channel == "" {
			errs = append(errs, "outbox channel must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location resolves the adherence timezone. An empty zone means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Adherence.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Adherence.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid adherence timezone %q: %w", c.Adherence.Timezone, err)
	}
	return loc, nil
}

func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:       c.BatchSize,
		PollInterval:    c.PollInterval,
		RetryAttempts:   c.RetryAttempts,
		RetryDelay:      c.RetryDelay,
		MaxEventRetries: c.MaxEventRetries,
		Channel:         c.Channel,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *DrugInfoConfig) ToClientConfig() druginfo.Config {
	return druginfo.Config{
		BaseURL:          c.BaseURL,
		APIKey:           c.APIKey,
		Timeout:          c.Timeout,
		FailureThreshold: c.FailureThreshold,
		OpenTimeout:      c.OpenTimeout,
	}
}

func (c *LogConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  logger.ParseLevel(c.Level),
		Format: c.Format,
	}
}

func (c *EventTrackingConfig) ToResources() map[string]event.ResourceConfig {
	resources := make(map[string]event.ResourceConfig, len(c.Resources))
	for name, rc := range c.Resources {
		resources[name] = event.ResourceConfig{TrackedFields: rc.TrackedFields}
	}
	return resources
}
