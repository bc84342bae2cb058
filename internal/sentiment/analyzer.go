// Package sentiment is the polarity backend used by the tone scorer. It wraps
// the VADER analyzer: a valence lexicon with negation, booster, contrast and
// punctuation rules, whose compound score lies in [-1, 1].
package sentiment

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"

	"github.com/jonreiter/govader"
)

// ErrClosed is returned by an analyzer used after Close.
var ErrClosed = errors.New("sentiment analyzer closed")

// Analyzer scores the polarity of a text in [-1, 1].
type Analyzer interface {
	Polarity(ctx context.Context, text string) (float64, error)
	Close() error
}

// VaderAnalyzer holds one VADER model loaded at construction. The model's
// tables are only read while scoring.
type VaderAnalyzer struct {
	model  *govader.SentimentIntensityAnalyzer
	closed atomic.Bool
}

// NewVaderAnalyzer loads the VADER lexicon.
func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{model: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns the VADER compound score of text. Blank text is neutral.
func (a *VaderAnalyzer) Polarity(ctx context.Context, text string) (float64, error) {
	if a.closed.Load() {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	compound := a.model.PolarityScores(text).Compound
	if math.IsNaN(compound) {
		return 0, nil
	}
	return math.Max(-1, math.Min(1, compound)), nil
}

// Close marks the analyzer unusable.
func (a *VaderAnalyzer) Close() error {
	a.closed.Store(true)
	return nil
}
