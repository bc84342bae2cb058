package grpc

import (
	"context"
	"time"

	"github.com/godilite/email-qc/internal/repository/models"
	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type QCService interface {
	ScoreAndStore(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, int64, error)
	GetResult(ctx context.Context, id int64) (scoring.QCResult, error)
	GetAgentHistory(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error)
	GetOverallScore(ctx context.Context, start, end time.Time) (float64, error)
	GetAggregatedSubScores(ctx context.Context, start, end time.Time) ([]service.AggregatedDimensionScores, error)
	GetScoresByAgent(ctx context.Context, start, end time.Time) ([]service.AgentScores, error)
	GetPeriodOverPeriodScoreChange(ctx context.Context, start, end time.Time) (service.PeriodChange, error)
	Reconcile(ctx context.Context) (service.ReconcileReport, error)
}
