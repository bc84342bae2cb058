package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/godilite/email-qc/internal/scoring"
)

// ScoringEnvPrefix prefixes environment overrides, e.g. QC_WEIGHTS_TONE or
// QC_FEEDBACK_THRESHOLD.
const ScoringEnvPrefix = "QC"

type bucketFile struct {
	MaxMinutes float64 `mapstructure:"max_minutes"`
	Score      float64 `mapstructure:"score"`
	Label      string  `mapstructure:"label"`
}

type scoringFile struct {
	Weights           map[string]float64 `mapstructure:"weights"`
	FeedbackThreshold float64            `mapstructure:"feedback_threshold"`
	EmpathyTarget     float64            `mapstructure:"empathy_target"`
	ToneBoost         float64            `mapstructure:"tone_boost"`
	TonePenalty       float64            `mapstructure:"tone_penalty"`
	NeutralEpsilon    float64            `mapstructure:"neutral_epsilon"`
	SpellingPenalty   float64            `mapstructure:"spelling_penalty"`
	GrammarPenalty    float64            `mapstructure:"grammar_penalty"`
	ErrorsPerWord     float64            `mapstructure:"errors_per_word"`
	ResponseBuckets   []bucketFile       `mapstructure:"response_buckets"`
	SlowResponseScore float64            `mapstructure:"slow_response_score"`
	MaxBodyRunes      int                `mapstructure:"max_body_runes"`
	Parallel          bool               `mapstructure:"parallel"`
}

func setScoringDefaults(v *viper.Viper) {
	for d, w := range scoring.DefaultWeights() {
		v.SetDefault("weights."+string(d), w)
	}

	def := scoring.DefaultConfig()
	v.SetDefault("feedback_threshold", def.FeedbackThreshold)
	v.SetDefault("empathy_target", def.EmpathyTarget)
	v.SetDefault("tone_boost", def.ToneBoost)
	v.SetDefault("tone_penalty", def.TonePenalty)
	v.SetDefault("neutral_epsilon", def.NeutralEpsilon)
	v.SetDefault("spelling_penalty", def.SpellingPenalty)
	v.SetDefault("grammar_penalty", def.GrammarPenalty)
	v.SetDefault("errors_per_word", def.ErrorsPerWord)
	v.SetDefault("slow_response_score", def.SlowResponseScore)
	v.SetDefault("max_body_runes", def.MaxBodyRunes)
	v.SetDefault("parallel", def.Parallel)

	buckets := make([]map[string]any, 0, len(def.ResponseBuckets))
	for _, b := range def.ResponseBuckets {
		buckets = append(buckets, map[string]any{
			"max_minutes": b.MaxMinutes,
			"score":       b.Score,
			"label":       b.Label,
		})
	}
	v.SetDefault("response_buckets", buckets)
}

// LoadScoring reads engine weights and parameters. Defaults are the
// production values; an optional YAML or JSON file at path overrides them,
// and QC_-prefixed environment variables override both. The result is
// validated, so a returned error wraps scoring.ErrConfiguration when the
// values are out of range.
func LoadScoring(path string) (scoring.Weights, scoring.Config, error) {
	v := viper.New()
	setScoringDefaults(v)

	v.SetEnvPrefix(ScoringEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, scoring.Config{}, fmt.Errorf("read scoring config %s: %w", path, err)
		}
	}

	var f scoringFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, scoring.Config{}, fmt.Errorf("decode scoring config: %w", err)
	}

	// Nested keys set only through the environment are not part of the
	// unmarshalled map.
	weights := make(scoring.Weights, len(f.Weights))
	for name, w := range f.Weights {
		weights[scoring.Dimension(name)] = w
	}
	for _, d := range scoring.Dimensions {
		weights[d] = v.GetFloat64("weights." + string(d))
	}

	cfg := scoring.Config{
		FeedbackThreshold: f.FeedbackThreshold,
		EmpathyTarget:     f.EmpathyTarget,
		ToneBoost:         f.ToneBoost,
		TonePenalty:       f.TonePenalty,
		NeutralEpsilon:    f.NeutralEpsilon,
		SpellingPenalty:   f.SpellingPenalty,
		GrammarPenalty:    f.GrammarPenalty,
		ErrorsPerWord:     f.ErrorsPerWord,
		SlowResponseScore: f.SlowResponseScore,
		MaxBodyRunes:      f.MaxBodyRunes,
		Parallel:          f.Parallel,
	}
	for _, b := range f.ResponseBuckets {
		cfg.ResponseBuckets = append(cfg.ResponseBuckets, scoring.ResponseBucket{
			MaxMinutes: b.MaxMinutes,
			Score:      b.Score,
			Label:      b.Label,
		})
	}

	if err := weights.Validate(); err != nil {
		return nil, scoring.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, scoring.Config{}, err
	}
	return weights, cfg, nil
}
