package service

import (
	"context"
	"time"

	"github.com/godilite/email-qc/internal/repository/models"
	"github.com/godilite/email-qc/internal/scoring"
)

// QCResultRepository defines the Result Store operations used by the service.
type QCResultRepository interface {
	Save(ctx context.Context, res scoring.QCResult) (int64, error)
	GetResult(ctx context.Context, id int64) (scoring.QCResult, error)
	ListByAgent(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error)
	GetOverallScore(ctx context.Context, start, end time.Time) (models.OverallScoreResult, error)
	GetSubScoresInPeriod(ctx context.Context, start, end time.Time, isWeekly bool) ([]models.AggregatedDimensionData, error)
	GetScoresByAgent(ctx context.Context, start, end time.Time) ([]models.AgentDimensionScore, error)
	FindOrphanedResults(ctx context.Context, limit int) ([]models.OrphanedResult, error)
	RestoreDetail(ctx context.Context, resultID int64, subScores []scoring.SubScoreResult) error
	DeleteDanglingDetails(ctx context.Context) (int64, error)
}

// AgentStore persists agents.
type AgentStore interface {
	GetAgent(ctx context.Context, id int64) (scoring.Agent, error)
	UpsertAgent(ctx context.Context, a scoring.Agent) error
}

// AgentDirectory looks up agents in the helpdesk.
type AgentDirectory interface {
	LookupAgent(ctx context.Context, id int64) (scoring.Agent, error)
}

// Scorer scores a single email.
type Scorer interface {
	ScoreEmail(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, error)
}

// Recorder receives scoring outcomes for instrumentation.
type Recorder interface {
	ObserveResult(res scoring.QCResult, elapsed time.Duration)
	ObservePersistenceFailure()
}
