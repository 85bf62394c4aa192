package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelscope/internal/analysis/tuning"
	"levelscope/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ANALYSIS_INPUT_FILE", "bars.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "levelscope", cfg.App.Name)
	assert.Equal(t, ModeFile, cfg.Analysis.Mode)
	assert.Equal(t, 10*time.Minute, cfg.Analysis.CacheTTL)
	assert.Nil(t, cfg.Analysis.DisplayLimit)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "analysis.requested", cfg.Kafka.RequestTopic)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ANALYSIS_MODE", "consumer")
	t.Setenv("ANALYSIS_DISPLAY_LIMIT", "5")
	t.Setenv("ANALYSIS_MIN_SCORE", "25.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_HOST", "cache")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Analysis.DisplayLimit)
	assert.Equal(t, 5, *cfg.Analysis.DisplayLimit)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())

	tc := cfg.Analysis.Apply(tuning.Default())
	assert.Equal(t, 5, tc.DisplayLimit)
	assert.Equal(t, 25.5, tc.MinScore)
	assert.Equal(t, tuning.Default().ZoneWidthFactor, tc.ZoneWidthFactor)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"file mode with input", func(c *Config) {}, false},
		{"file mode without input", func(c *Config) { c.Analysis.InputFile = "" }, true},
		{"consumer mode", func(c *Config) { c.Analysis.Mode = ModeConsumer }, false},
		{"consumer without brokers", func(c *Config) {
			c.Analysis.Mode = ModeConsumer
			c.Kafka.Brokers = nil
		}, true},
		{"consumer with zero rate", func(c *Config) {
			c.Analysis.Mode = ModeConsumer
			c.Kafka.ConsumeRate = 0
		}, true},
		{"unknown mode", func(c *Config) { c.Analysis.Mode = "batch" }, true},
		{"cache without ttl", func(c *Config) {
			c.Analysis.CacheEnabled = true
			c.Analysis.CacheTTL = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Analysis: AnalysisConfig{Mode: ModeFile, InputFile: "bars.json", CacheTTL: time.Minute},
				Kafka:    KafkaConfig{Brokers: []string{"k:9092"}, ConsumeRate: 1, ConsumeBurst: 1},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
