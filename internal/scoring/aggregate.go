package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/godilite/email-qc/internal/patterns"
)

// Total computes 100 * Σ(w·s) / Σ(active w). Indeterminate sub-scores are
// excluded and the remaining weights renormalised. It returns 0 and false when
// no sub-score is active.
func Total(results []SubScoreResult, weights Weights) (float64, bool) {
	var weighted, active float64
	for _, r := range results {
		if r.Indeterminate {
			continue
		}
		w := weights[r.Name]
		weighted += w * clamp01(r.Score)
		active += w
	}
	if active <= 0 {
		return 0, false
	}
	return math.Max(0, math.Min(100, 100*weighted/active)), true
}

// Aggregate assembles the QCResult for sample. It is pure: identical inputs
// give identical output.
func Aggregate(sample EmailSample, results []SubScoreResult, weights Weights, p *patterns.Compiled, cfg Config, ts time.Time) QCResult {
	ordered := make([]SubScoreResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name.index() < ordered[j].Name.index()
	})

	total, ok := Total(ordered, weights)
	feedback, recs := buildFeedback(sample, ordered, p, cfg, !ok)

	return QCResult{
		TicketID:        sample.TicketID,
		ArticleID:       sample.ArticleID,
		AgentID:         sample.AgentID,
		Timestamp:       ts,
		EmailBody:       sample.Body,
		SubScores:       ordered,
		TotalScore:      total,
		Feedback:        strings.Join(feedback, "\n"),
		Recommendations: strings.Join(recs, "\n"),
		PatternVersion:  p.Version,
	}
}
