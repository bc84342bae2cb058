package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/email-qc/internal/repository/models"
	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service"
)

// MockQCService is a mock implementation of the QCService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockQCService struct {
	ScoreAndStoreFunc                  func(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, int64, error)
	GetResultFunc                      func(ctx context.Context, id int64) (scoring.QCResult, error)
	GetAgentHistoryFunc                func(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error)
	GetOverallScoreFunc                func(ctx context.Context, start, end time.Time) (float64, error)
	GetAggregatedSubScoresFunc         func(ctx context.Context, start, end time.Time) ([]service.AggregatedDimensionScores, error)
	GetScoresByAgentFunc               func(ctx context.Context, start, end time.Time) ([]service.AgentScores, error)
	GetPeriodOverPeriodScoreChangeFunc func(ctx context.Context, start, end time.Time) (service.PeriodChange, error)
	ReconcileFunc                      func(ctx context.Context) (service.ReconcileReport, error)
}

func (m *MockQCService) ScoreAndStore(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, int64, error) {
	if m.ScoreAndStoreFunc != nil {
		return m.ScoreAndStoreFunc(ctx, sample)
	}
	return scoring.QCResult{}, 0, errors.New("ScoreAndStoreFunc not implemented")
}

func (m *MockQCService) GetResult(ctx context.Context, id int64) (scoring.QCResult, error) {
	if m.GetResultFunc != nil {
		return m.GetResultFunc(ctx, id)
	}
	return scoring.QCResult{}, errors.New("GetResultFunc not implemented")
}

func (m *MockQCService) GetAgentHistory(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error) {
	if m.GetAgentHistoryFunc != nil {
		return m.GetAgentHistoryFunc(ctx, agentID, limit)
	}
	return nil, errors.New("GetAgentHistoryFunc not implemented")
}

// GetOverallScore implements the QCService interface
func (m *MockQCService) GetOverallScore(ctx context.Context, start, end time.Time) (float64, error) {
	if m.GetOverallScoreFunc != nil {
		return m.GetOverallScoreFunc(ctx, start, end)
	}
	return 0, errors.New("GetOverallScoreFunc not implemented")
}

func (m *MockQCService) GetAggregatedSubScores(ctx context.Context, start, end time.Time) ([]service.AggregatedDimensionScores, error) {
	if m.GetAggregatedSubScoresFunc != nil {
		return m.GetAggregatedSubScoresFunc(ctx, start, end)
	}
	return nil, errors.New("GetAggregatedSubScoresFunc not implemented")
}

func (m *MockQCService) GetScoresByAgent(ctx context.Context, start, end time.Time) ([]service.AgentScores, error) {
	if m.GetScoresByAgentFunc != nil {
		return m.GetScoresByAgentFunc(ctx, start, end)
	}
	return nil, errors.New("GetScoresByAgentFunc not implemented")
}

func (m *MockQCService) GetPeriodOverPeriodScoreChange(ctx context.Context, start, end time.Time) (service.PeriodChange, error) {
	if m.GetPeriodOverPeriodScoreChangeFunc != nil {
		return m.GetPeriodOverPeriodScoreChangeFunc(ctx, start, end)
	}
	return service.PeriodChange{}, errors.New("GetPeriodOverPeriodScoreChangeFunc not implemented")
}

func (m *MockQCService) Reconcile(ctx context.Context) (service.ReconcileReport, error) {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx)
	}
	return service.ReconcileReport{}, errors.New("ReconcileFunc not implemented")
}
