package service

type PeriodScore struct {
	Period string
	Score  float64
}

type AggregatedDimensionScores struct {
	Dimension    string
	TotalResults int
	OverallScore float64
	PeriodScores []PeriodScore
}

type AgentScores struct {
	AgentID         int64
	AgentName       string
	TotalScore      float64
	DimensionScores map[string]float64
}

type PeriodChange struct {
	CurrentPeriodScore  float64
	PreviousPeriodScore float64
	ChangePercentage    float64
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Orphaned        int
	Restored        int
	Failed          int
	DanglingRemoved int64
}
