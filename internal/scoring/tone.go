package scoring

import (
	"context"
	"errors"
	"math"

	"github.com/godilite/email-qc/internal/patterns"
	"github.com/godilite/email-qc/internal/sentiment"
)

// ToneScorer combines lexicon sentiment with positive and negative phrase
// matches from the Pattern Library.
type ToneScorer struct {
	analyzer sentiment.Analyzer
	cfg      Config
}

// NewToneScorer returns a scorer over analyzer. A nil analyzer makes every
// result indeterminate.
func NewToneScorer(analyzer sentiment.Analyzer, cfg Config) *ToneScorer {
	return &ToneScorer{analyzer: analyzer, cfg: cfg}
}

func (s *ToneScorer) Name() Dimension { return DimensionTone }

func (s *ToneScorer) Evaluate(ctx context.Context, sample EmailSample, p *patterns.Compiled) SubScoreResult {
	if s.analyzer == nil {
		return indeterminate(s.Name(), backendErr("sentiment analyzer", errors.New("not initialized")))
	}
	polarity, err := s.analyzer.Polarity(ctx, sample.Body)
	if err != nil {
		return indeterminate(s.Name(), backendErr("sentiment analyzer", err))
	}
	if math.IsNaN(polarity) {
		polarity = 0
	}
	polarity = math.Max(-1, math.Min(1, polarity))

	lower := normalizeText(sample.Body)
	posCount, posFound := countPhrases(lower, p.Positive)
	negCount, negFound := countPhrases(lower, p.Negative)

	var score float64
	if math.Abs(polarity) < s.cfg.NeutralEpsilon && posCount == 0 && negCount == 0 {
		score = NeutralScore
	} else {
		score = clamp01((polarity + 1) / 2)
		for range posCount {
			score = clamp01(score + s.cfg.ToneBoost)
		}
		for range negCount {
			score = clamp01(score - s.cfg.TonePenalty)
		}
	}

	d := newDetails()
	d.Metrics[MetricSentimentScore] = polarity
	d.Metrics[MetricPositiveCount] = float64(posCount)
	d.Metrics[MetricNegativeCount] = float64(negCount)
	d.Matches[MatchPositivePhrases] = posFound
	d.Matches[MatchNegativePhrases] = negFound

	return SubScoreResult{Name: s.Name(), Score: score, Details: d}
}
