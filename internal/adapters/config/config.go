package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"levelscope/internal/analysis/tuning"
	"levelscope/pkg/errors"
)

// Run modes
const (
	ModeFile     = "file"
	ModeConsumer = "consumer"
)

type Config struct {
	App           AppConfig
	Analysis      AnalysisConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"levelscope"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// AnalysisConfig selects the run mode and overrides selected tuning values.
// Unset overrides keep the tuning defaults.
type AnalysisConfig struct {
	Mode      string `envconfig:"ANALYSIS_MODE" default:"file"`
	InputFile string `envconfig:"ANALYSIS_INPUT_FILE"`

	DisplayLimit    *int     `envconfig:"ANALYSIS_DISPLAY_LIMIT"`
	MinScore        *float64 `envconfig:"ANALYSIS_MIN_SCORE"`
	ZoneWidthFactor *float64 `envconfig:"ANALYSIS_ZONE_WIDTH_FACTOR"`

	CacheEnabled bool          `envconfig:"ANALYSIS_CACHE_ENABLED" default:"false"`
	CacheTTL     time.Duration `envconfig:"ANALYSIS_CACHE_TTL" default:"10m"`
}

// Apply overlays the env overrides onto a tuning config
func (c AnalysisConfig) Apply(t tuning.Config) tuning.Config {
	if c.DisplayLimit != nil {
		t.DisplayLimit = *c.DisplayLimit
	}
	if c.MinScore != nil {
		t.MinScore = *c.MinScore
	}
	if c.ZoneWidthFactor != nil {
		t.ZoneWidthFactor = *c.ZoneWidthFactor
	}
	return t
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers        []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID        string   `envconfig:"KAFKA_GROUP_ID" default:"levelscope"`
	RequestTopic   string   `envconfig:"KAFKA_REQUEST_TOPIC" default:"analysis.requested"`
	CompletedTopic string   `envconfig:"KAFKA_COMPLETED_TOPIC" default:"analysis.completed"`
	FailedTopic    string   `envconfig:"KAFKA_FAILED_TOPIC" default:"analysis.failed"`
	ConsumeRate    float64  `envconfig:"KAFKA_CONSUME_RATE" default:"20"` // requests per second
	ConsumeBurst   int      `envconfig:"KAFKA_CONSUME_BURST" default:"5"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	switch c.Analysis.Mode {
	case ModeFile:
		if c.Analysis.InputFile == "" {
			return errors.Wrap(errors.ErrInvalidInput, "ANALYSIS_INPUT_FILE is required in file mode")
		}
	case ModeConsumer:
		if len(c.Kafka.Brokers) == 0 {
			return errors.Wrap(errors.ErrInvalidInput, "KAFKA_BROKERS is required in consumer mode")
		}
		if c.Kafka.ConsumeRate <= 0 || c.Kafka.ConsumeBurst < 1 {
			return errors.Wrap(errors.ErrInvalidInput, "KAFKA_CONSUME_RATE and KAFKA_CONSUME_BURST must be positive")
		}
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unknown ANALYSIS_MODE %q", c.Analysis.Mode)
	}
	if c.Analysis.CacheEnabled && c.Analysis.CacheTTL <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "ANALYSIS_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}
