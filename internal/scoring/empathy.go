package scoring

import (
	"context"

	"github.com/godilite/email-qc/internal/patterns"
)

// EmpathyScorer counts empathy phrases; the score saturates at the
// configured target count.
type EmpathyScorer struct {
	cfg Config
}

func NewEmpathyScorer(cfg Config) *EmpathyScorer {
	return &EmpathyScorer{cfg: cfg}
}

func (s *EmpathyScorer) Name() Dimension { return DimensionEmpathy }

func (s *EmpathyScorer) Evaluate(_ context.Context, sample EmailSample, p *patterns.Compiled) SubScoreResult {
	count, found := countPhrases(normalizeText(sample.Body), p.Empathy)

	d := newDetails()
	d.Metrics[MetricEmpathyPhrasesCount] = float64(count)
	d.Matches[MatchEmpathyPhrases] = found

	return SubScoreResult{
		Name:    s.Name(),
		Score:   empathyScore(count, s.cfg.EmpathyTarget),
		Details: d,
	}
}

func empathyScore(count int, target float64) float64 {
	return clamp01(float64(count) / target)
}
