package scoring

import (
	"context"
	"fmt"

	"github.com/godilite/email-qc/internal/patterns"
)

const (
	bucketIncomplete = "incomplete"
	bucketSlow       = "slow"
)

// ResponseTimeScorer maps the first-response delay onto a decreasing step
// function. Missing or inconsistent timestamps yield NeutralScore.
type ResponseTimeScorer struct {
	cfg Config
}

func NewResponseTimeScorer(cfg Config) *ResponseTimeScorer {
	return &ResponseTimeScorer{cfg: cfg}
}

func (s *ResponseTimeScorer) Name() Dimension { return DimensionResponseTime }

func (s *ResponseTimeScorer) Evaluate(_ context.Context, sample EmailSample, _ *patterns.Compiled) SubScoreResult {
	if sample.ReceivedAt == nil || sample.FirstResponseAt == nil {
		return s.incomplete(fmt.Errorf("%w: missing timestamp", ErrIncompleteInput))
	}
	elapsed := sample.FirstResponseAt.Sub(*sample.ReceivedAt)
	if elapsed < 0 {
		return s.incomplete(fmt.Errorf("%w: response precedes receipt", ErrIncompleteInput))
	}

	mins := elapsed.Minutes()
	score, label := s.cfg.SlowResponseScore, bucketSlow
	for _, b := range s.cfg.ResponseBuckets {
		if mins <= b.MaxMinutes {
			score, label = b.Score, b.Label
			break
		}
	}

	d := newDetails()
	d.Metrics[MetricResponseTimeMins] = mins
	d.Metrics[MetricIncompleteData] = 0
	d.Labels[LabelThresholdBucket] = label

	return SubScoreResult{Name: s.Name(), Score: score, Details: d}
}

func (s *ResponseTimeScorer) incomplete(err error) SubScoreResult {
	d := newDetails()
	d.Metrics[MetricIncompleteData] = 1
	d.Labels[LabelThresholdBucket] = bucketIncomplete
	d.Labels[LabelIncompleteReason] = err.Error()
	return SubScoreResult{Name: s.Name(), Score: NeutralScore, Details: d}
}
