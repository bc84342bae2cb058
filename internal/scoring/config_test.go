package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsValidate(t *testing.T) {
	t.Run("default weights are valid", func(t *testing.T) {
		w := DefaultWeights()
		require.NoError(t, w.Validate())

		var sum float64
		for _, v := range w {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, WeightTolerance)
	})

	t.Run("sum within tolerance is accepted", func(t *testing.T) {
		w := DefaultWeights()
		w[DimensionTone] += WeightTolerance / 2
		assert.NoError(t, w.Validate())
	})

	tests := []struct {
		name   string
		mutate func(Weights)
	}{
		{"sum below one", func(w Weights) { w[DimensionTone] = 0.1 }},
		{"sum above one", func(w Weights) { w[DimensionTone] = 0.3 }},
		{"missing dimension", func(w Weights) { delete(w, DimensionEmpathy) }},
		{"negative weight", func(w Weights) {
			w[DimensionTone] = -0.2
			w[DimensionEmpathy] = 0.6
		}},
		{"weight above one", func(w Weights) { w[DimensionTone] = 1.2 }},
		{"nan weight", func(w Weights) { w[DimensionTone] = math.NaN() }},
		{"unknown dimension", func(w Weights) { w["politeness"] = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(w)

			err := w.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "weights", cfgErr.Field)
		})
	}
}

func TestWeightsClone(t *testing.T) {
	w := DefaultWeights()
	c := w.Clone()
	c[DimensionTone] = 0

	assert.Equal(t, 0.20, w[DimensionTone])
}

func TestConfigValidate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	tests := []struct {
		name   string
		field  string
		mutate func(*Config)
	}{
		{"threshold above one", "feedback_threshold", func(c *Config) { c.FeedbackThreshold = 1.5 }},
		{"zero empathy target", "empathy_target", func(c *Config) { c.EmpathyTarget = 0 }},
		{"negative penalty", "penalties", func(c *Config) { c.SpellingPenalty = -1 }},
		{"zero errors per word", "errors_per_word", func(c *Config) { c.ErrorsPerWord = 0 }},
		{"zero body limit", "max_body_runes", func(c *Config) { c.MaxBodyRunes = 0 }},
		{"no buckets", "response_buckets", func(c *Config) { c.ResponseBuckets = nil }},
		{"unsorted buckets", "response_buckets", func(c *Config) {
			c.ResponseBuckets = []ResponseBucket{
				{MaxMinutes: 60, Score: 1},
				{MaxMinutes: 15, Score: 0.8},
			}
		}},
		{"increasing bucket scores", "response_buckets", func(c *Config) {
			c.ResponseBuckets = []ResponseBucket{
				{MaxMinutes: 15, Score: 0.5},
				{MaxMinutes: 60, Score: 0.8},
			}
		}},
		{"slow score above last bucket", "slow_response_score", func(c *Config) { c.SlowResponseScore = 0.9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigurationError(t *testing.T) {
	inner := errors.New("boom")
	err := configErr("patterns", "invalid pattern library", inner)

	assert.EqualError(t, err, "configuration error: patterns: invalid pattern library: boom")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, inner)
}
