package scoring

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.
const WeightTolerance = 1e-6

// Weights maps each dimension to its share of the total score.
type Weights map[Dimension]float64

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		DimensionSpellingGrammar:     0.25,
		DimensionTone:                0.20,
		DimensionEmpathy:             0.20,
		DimensionTemplateConsistency: 0.20,
		DimensionResponseTime:        0.15,
	}
}

// Validate checks that every dimension has a weight in [0, 1] and that the
// weights sum to 1 within WeightTolerance.
func (w Weights) Validate() error {
	var sum float64
	for _, d := range Dimensions {
		v, ok := w[d]
		if !ok {
			return configErr("weights", fmt.Sprintf("missing weight for %s", d), nil)
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			return configErr("weights", fmt.Sprintf("weight for %s must be in [0,1], got %v", d, v), nil)
		}
		sum += v
	}
	if len(w) != len(Dimensions) {
		unknown := make([]string, 0)
		for d := range w {
			if d.index() == len(Dimensions) {
				unknown = append(unknown, string(d))
			}
		}
		sort.Strings(unknown)
		return configErr("weights", fmt.Sprintf("unknown dimensions %v", unknown), nil)
	}
	if math.Abs(sum-1) > WeightTolerance {
		return configErr("weights", fmt.Sprintf("weights must sum to 1, got %.9f", sum), nil)
	}
	return nil
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// ResponseBucket maps responses up to MaxMinutes to Score.
type ResponseBucket struct {
	MaxMinutes float64
	Score      float64
	Label      string
}

// Config holds the tunable parameters of the sub-scorers and aggregator.
type Config struct {
	// FeedbackThreshold: sub-scores below this get a recommendation.
	FeedbackThreshold float64

	// EmpathyTarget is the number of empathy phrases that saturates the score.
	EmpathyTarget float64

	ToneBoost      float64
	TonePenalty    float64
	NeutralEpsilon float64

	// Grammar score = 1 - (spelling*SpellingPenalty + grammar*GrammarPenalty) / N
	// with N = max(1, words*ErrorsPerWord).
	SpellingPenalty float64
	GrammarPenalty  float64
	ErrorsPerWord   float64

	// ResponseBuckets must be sorted by MaxMinutes with non-increasing scores.
	ResponseBuckets   []ResponseBucket
	SlowResponseScore float64

	// MaxBodyRunes bounds the text handed to the analysers.
	MaxBodyRunes int

	// Parallel evaluates the sub-scorers concurrently.
	Parallel bool
}

// DefaultConfig returns the production parameters.
func DefaultConfig() Config {
	return Config{
		FeedbackThreshold: 0.6,
		EmpathyTarget:     2,
		ToneBoost:         0.1,
		TonePenalty:       0.1,
		NeutralEpsilon:    0.05,
		SpellingPenalty:   1.0,
		GrammarPenalty:    1.0,
		ErrorsPerWord:     0.1,
		ResponseBuckets: []ResponseBucket{
			{MaxMinutes: 15, Score: 1.0, Label: "<=15m"},
			{MaxMinutes: 60, Score: 0.8, Label: "<=60m"},
			{MaxMinutes: 240, Score: 0.5, Label: "<=240m"},
		},
		SlowResponseScore: 0.2,
		MaxBodyRunes:      100_000,
		Parallel:          true,
	}
}

// Validate rejects parameter combinations that would break the [0,1] bounds
// or the monotonicity of the response-time step function.
func (c Config) Validate() error {
	unit := func(field string, v float64) error {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return configErr(field, fmt.Sprintf("must be in [0,1], got %v", v), nil)
		}
		return nil
	}
	for field, v := range map[string]float64{
		"feedback_threshold":  c.FeedbackThreshold,
		"tone_boost":          c.ToneBoost,
		"tone_penalty":        c.TonePenalty,
		"neutral_epsilon":     c.NeutralEpsilon,
		"slow_response_score": c.SlowResponseScore,
	} {
		if err := unit(field, v); err != nil {
			return err
		}
	}
	if !(c.EmpathyTarget > 0) {
		return configErr("empathy_target", "must be positive", nil)
	}
	if c.SpellingPenalty < 0 || c.GrammarPenalty < 0 {
		return configErr("penalties", "must not be negative", nil)
	}
	if !(c.ErrorsPerWord > 0) {
		return configErr("errors_per_word", "must be positive", nil)
	}
	if c.MaxBodyRunes <= 0 {
		return configErr("max_body_runes", "must be positive", nil)
	}
	if len(c.ResponseBuckets) == 0 {
		return configErr("response_buckets", "at least one bucket is required", nil)
	}
	prev := ResponseBucket{MaxMinutes: math.Inf(-1), Score: math.Inf(1)}
	for i, b := range c.ResponseBuckets {
		if err := unit(fmt.Sprintf("response_buckets[%d].score", i), b.Score); err != nil {
			return err
		}
		if b.MaxMinutes <= prev.MaxMinutes {
			return configErr("response_buckets", "thresholds must be strictly increasing", nil)
		}
		if b.Score > prev.Score {
			return configErr("response_buckets", "scores must not increase with time", nil)
		}
		prev = b
	}
	if c.SlowResponseScore > prev.Score {
		return configErr("slow_response_score", "must not exceed the last bucket score", nil)
	}
	return nil
}
