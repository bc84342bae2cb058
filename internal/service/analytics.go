package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/email-qc/internal/repository"
	"github.com/godilite/email-qc/internal/scoring"
)

func isAtLeastOneMonth(start, end time.Time) bool {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	oneMonthLater := s.AddDate(0, 1, 0)
	return !oneMonthLater.After(e)
}

// IsWeeklyAggregation reports whether a window is long enough to be bucketed
// by week rather than by day.
func IsWeeklyAggregation(start, end time.Time) bool {
	if isAtLeastOneMonth(start, end) {
		return true
	}
	if end.Sub(start) >= 28*24*time.Hour {
		return true
	}
	return false
}

// PreviousPeriod returns the window of the same length that ends just before
// start. Stored timestamps have microsecond precision, so the windows do not
// overlap.
func PreviousPeriod(start, end time.Time) (time.Time, time.Time) {
	prevEnd := start.Add(-time.Microsecond)
	return prevEnd.Add(-end.Sub(start)), prevEnd
}

// GetOverallScore returns the average total score for the requested window.
func (s *QCService) GetOverallScore(ctx context.Context, start, end time.Time) (float64, error) {

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	result, err := s.storage.GetOverallScore(dbCtx, start, end)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if result.Count == 0 {
		return 0, ErrNoResults
	}

	s.logger.Info("fetched overall score",
		zap.Float64("score", result.Score),
		zap.Int64("count", result.Count),
		zap.Time("start", start),
		zap.Time("end", end))

	return result.Score, nil
}

func dimensionRank(name string) int {
	for i, d := range scoring.Dimensions {
		if string(d) == name {
			return i
		}
	}
	return len(scoring.Dimensions)
}

// GetAggregatedSubScores returns per-dimension (daily or weekly) averages.
func (s *QCService) GetAggregatedSubScores(ctx context.Context, start, end time.Time) ([]AggregatedDimensionScores, error) {

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	weekly := IsWeeklyAggregation(start, end)
	rows, err := s.storage.GetSubScoresInPeriod(dbCtx, start, end, weekly)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoResults
	}

	resultsMap := make(map[string]*AggregatedDimensionScores)
	totals := make(map[string]float64)

	for _, r := range rows {
		d := r.Dimension
		if _, ok := resultsMap[d]; !ok {
			resultsMap[d] = &AggregatedDimensionScores{
				Dimension:    d,
				PeriodScores: make([]PeriodScore, 0),
			}
		}

		resultsMap[d].PeriodScores = append(resultsMap[d].PeriodScores, PeriodScore{
			Period: r.Period,
			Score:  r.PeriodScore,
		})
		resultsMap[d].TotalResults += r.ResultCount
		totals[d] += r.TotalScore
	}

	results := make([]AggregatedDimensionScores, 0, len(resultsMap))
	for dim, v := range resultsMap {
		sort.Slice(v.PeriodScores, func(i, j int) bool {
			return v.PeriodScores[i].Period < v.PeriodScores[j].Period
		})
		if v.TotalResults > 0 {
			v.OverallScore = totals[dim] / float64(v.TotalResults)
		}
		results = append(results, *v)
	}
	sort.Slice(results, func(i, j int) bool {
		return dimensionRank(results[i].Dimension) < dimensionRank(results[j].Dimension)
	})
	return results, nil
}

// GetScoresByAgent pivots per-agent rows into AgentScores.
func (s *QCService) GetScoresByAgent(ctx context.Context, start, end time.Time) ([]AgentScores, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.storage.GetScoresByAgent(dbCtx, start, end)
	if err != nil {
		s.logger.Error("failed to fetch scores by agent", zap.Error(err))
		return nil, fmt.Errorf("fetch scores by agent: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoResults
	}

	pivot := make(map[int64]*AgentScores)
	for _, r := range rows {
		a, ok := pivot[r.AgentID]
		if !ok {
			a = &AgentScores{
				AgentID:         r.AgentID,
				AgentName:       r.AgentName,
				DimensionScores: make(map[string]float64),
			}
			pivot[r.AgentID] = a
		}
		if r.Dimension == repository.DimensionTotal {
			a.TotalScore = r.Score
			continue
		}
		a.DimensionScores[r.Dimension] = r.Score
	}

	out := make([]AgentScores, 0, len(pivot))
	for _, a := range pivot {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })

	return out, nil
}

// GetPeriodOverPeriodScoreChange calculates the score change vs the previous period.
func (s *QCService) GetPeriodOverPeriodScoreChange(ctx context.Context, start, end time.Time) (PeriodChange, error) {

	currentScore, err := s.GetOverallScore(ctx, start, end)
	if err != nil {
		return PeriodChange{}, fmt.Errorf("current score: %w", err)
	}

	prevStart, prevEnd := PreviousPeriod(start, end)
	previousScore, err := s.GetOverallScore(ctx, prevStart, prevEnd)
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			return PeriodChange{
				CurrentPeriodScore:  currentScore,
				PreviousPeriodScore: 0,
				ChangePercentage:    100.0,
			}, nil
		}
		return PeriodChange{}, fmt.Errorf("previous score: %w", err)
	}

	var change float64
	if previousScore > 0 {
		change = ((currentScore - previousScore) / previousScore) * 100.0
	} else if currentScore > 0 {
		change = 100.0
	}

	return PeriodChange{
		CurrentPeriodScore:  currentScore,
		PreviousPeriodScore: previousScore,
		ChangePercentage:    change,
	}, nil
}
