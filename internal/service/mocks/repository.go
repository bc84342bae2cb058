package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/email-qc/internal/repository/models"
	"github.com/godilite/email-qc/internal/scoring"
)

// MockQCResultRepository is a mock implementation of the QCResultRepository
// interface for testing the service layer.
type MockQCResultRepository struct {
	SaveFunc                  func(ctx context.Context, res scoring.QCResult) (int64, error)
	GetResultFunc             func(ctx context.Context, id int64) (scoring.QCResult, error)
	ListByAgentFunc           func(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error)
	GetOverallScoreFunc       func(ctx context.Context, start, end time.Time) (models.OverallScoreResult, error)
	GetSubScoresInPeriodFunc  func(ctx context.Context, start, end time.Time, isWeekly bool) ([]models.AggregatedDimensionData, error)
	GetScoresByAgentFunc      func(ctx context.Context, start, end time.Time) ([]models.AgentDimensionScore, error)
	FindOrphanedResultsFunc   func(ctx context.Context, limit int) ([]models.OrphanedResult, error)
	RestoreDetailFunc         func(ctx context.Context, resultID int64, subScores []scoring.SubScoreResult) error
	DeleteDanglingDetailsFunc func(ctx context.Context) (int64, error)
}

func (m *MockQCResultRepository) Save(ctx context.Context, res scoring.QCResult) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, res)
	}
	return 0, errors.New("SaveFunc not implemented")
}

func (m *MockQCResultRepository) GetResult(ctx context.Context, id int64) (scoring.QCResult, error) {
	if m.GetResultFunc != nil {
		return m.GetResultFunc(ctx, id)
	}
	return scoring.QCResult{}, errors.New("GetResultFunc not implemented")
}

func (m *MockQCResultRepository) ListByAgent(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error) {
	if m.ListByAgentFunc != nil {
		return m.ListByAgentFunc(ctx, agentID, limit)
	}
	return nil, errors.New("ListByAgentFunc not implemented")
}

func (m *MockQCResultRepository) GetOverallScore(ctx context.Context, start, end time.Time) (models.OverallScoreResult, error) {
	if m.GetOverallScoreFunc != nil {
		return m.GetOverallScoreFunc(ctx, start, end)
	}
	return models.OverallScoreResult{}, errors.New("GetOverallScoreFunc not implemented")
}

func (m *MockQCResultRepository) GetSubScoresInPeriod(ctx context.Context, start, end time.Time, isWeekly bool) ([]models.AggregatedDimensionData, error) {
	if m.GetSubScoresInPeriodFunc != nil {
		return m.GetSubScoresInPeriodFunc(ctx, start, end, isWeekly)
	}
	return nil, errors.New("GetSubScoresInPeriodFunc not implemented")
}

func (m *MockQCResultRepository) GetScoresByAgent(ctx context.Context, start, end time.Time) ([]models.AgentDimensionScore, error) {
	if m.GetScoresByAgentFunc != nil {
		return m.GetScoresByAgentFunc(ctx, start, end)
	}
	return nil, errors.New("GetScoresByAgentFunc not implemented")
}

func (m *MockQCResultRepository) FindOrphanedResults(ctx context.Context, limit int) ([]models.OrphanedResult, error) {
	if m.FindOrphanedResultsFunc != nil {
		return m.FindOrphanedResultsFunc(ctx, limit)
	}
	return nil, errors.New("FindOrphanedResultsFunc not implemented")
}

func (m *MockQCResultRepository) RestoreDetail(ctx context.Context, resultID int64, subScores []scoring.SubScoreResult) error {
	if m.RestoreDetailFunc != nil {
		return m.RestoreDetailFunc(ctx, resultID, subScores)
	}
	return errors.New("RestoreDetailFunc not implemented")
}

func (m *MockQCResultRepository) DeleteDanglingDetails(ctx context.Context) (int64, error) {
	if m.DeleteDanglingDetailsFunc != nil {
		return m.DeleteDanglingDetailsFunc(ctx)
	}
	return 0, errors.New("DeleteDanglingDetailsFunc not implemented")
}

// MockAgentStore is a mock implementation of the AgentStore interface.
type MockAgentStore struct {
	GetAgentFunc    func(ctx context.Context, id int64) (scoring.Agent, error)
	UpsertAgentFunc func(ctx context.Context, a scoring.Agent) error
}

func (m *MockAgentStore) GetAgent(ctx context.Context, id int64) (scoring.Agent, error) {
	if m.GetAgentFunc != nil {
		return m.GetAgentFunc(ctx, id)
	}
	return scoring.Agent{}, errors.New("GetAgentFunc not implemented")
}

func (m *MockAgentStore) UpsertAgent(ctx context.Context, a scoring.Agent) error {
	if m.UpsertAgentFunc != nil {
		return m.UpsertAgentFunc(ctx, a)
	}
	return errors.New("UpsertAgentFunc not implemented")
}

// MockAgentDirectory is a mock implementation of the AgentDirectory interface.
type MockAgentDirectory struct {
	LookupAgentFunc func(ctx context.Context, id int64) (scoring.Agent, error)
}

func (m *MockAgentDirectory) LookupAgent(ctx context.Context, id int64) (scoring.Agent, error) {
	if m.LookupAgentFunc != nil {
		return m.LookupAgentFunc(ctx, id)
	}
	return scoring.Agent{}, errors.New("LookupAgentFunc not implemented")
}

// MockScorer is a mock implementation of the Scorer interface.
type MockScorer struct {
	ScoreEmailFunc func(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, error)
}

func (m *MockScorer) ScoreEmail(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, error) {
	if m.ScoreEmailFunc != nil {
		return m.ScoreEmailFunc(ctx, sample)
	}
	return scoring.QCResult{}, errors.New("ScoreEmailFunc not implemented")
}

// MockRecorder counts the observations it receives.
type MockRecorder struct {
	Results             []scoring.QCResult
	PersistenceFailures int
}

func (m *MockRecorder) ObserveResult(res scoring.QCResult, _ time.Duration) {
	m.Results = append(m.Results, res)
}

func (m *MockRecorder) ObservePersistenceFailure() {
	m.PersistenceFailures++
}
