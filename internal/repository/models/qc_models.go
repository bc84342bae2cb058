package models

import "github.com/godilite/email-qc/internal/scoring"

// StoredResult is a persisted QCResult together with its row id.
type StoredResult struct {
	ID     int64
	Result scoring.QCResult
}

// QCDetail is the flattened metrics row kept beside each result. Metrics
// that were not recorded (indeterminate dimension, missing readability) are
// absent from Values.
type QCDetail struct {
	ResultID int64
	Values   map[string]float64
}

// OrphanedResult is a result row with no detail row.
type OrphanedResult struct {
	ResultID  int64
	SubScores []scoring.SubScoreResult
}

type OverallScoreResult struct {
	Score float64
	Count int64
}

type AggregatedDimensionData struct {
	Dimension   string
	Period      string
	PeriodScore float64
	TotalScore  float64
	ResultCount int
}

type AgentDimensionScore struct {
	AgentID   int64
	AgentName string
	Dimension string
	Score     float64
}
