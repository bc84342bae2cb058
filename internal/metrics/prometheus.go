package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/godilite/email-qc/internal/scoring"
)

const namespace = "email_qc"

// Metrics holds the service's Prometheus collectors. It implements the
// service Recorder.
type Metrics struct {
	gatherer prometheus.Gatherer

	scoredTotal         prometheus.Counter
	totalScore          prometheus.Histogram
	subScore            *prometheus.HistogramVec
	indeterminateTotal  *prometheus.CounterVec
	scoringDuration     prometheus.Histogram
	persistenceFailures prometheus.Counter
	webhookEvents       *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		scoredTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_scored_total",
			Help:      "Total number of scored and stored emails",
		}),
		totalScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "total_score",
			Help:      "Distribution of weighted total scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		subScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sub_score",
			Help:      "Distribution of determinate sub-scores",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"dimension"}),
		indeterminateTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indeterminate_sub_scores_total",
			Help:      "Sub-scores that could not be computed",
		}, []string{"dimension"}),
		scoringDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Time spent scoring one email",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		persistenceFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Scored results the store failed to write",
		}),
		webhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Helpdesk webhook deliveries by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveResult(res scoring.QCResult, elapsed time.Duration) {
	m.scoredTotal.Inc()
	m.totalScore.Observe(res.TotalScore)
	m.scoringDuration.Observe(elapsed.Seconds())
	for _, s := range res.SubScores {
		if s.Indeterminate {
			m.indeterminateTotal.WithLabelValues(string(s.Name)).Inc()
			continue
		}
		m.subScore.WithLabelValues(string(s.Name)).Observe(s.Score)
	}
}

func (m *Metrics) ObservePersistenceFailure() {
	m.persistenceFailures.Inc()
}

// ObserveWebhook counts a webhook delivery; outcome is accepted, skipped,
// rejected or failed.
func (m *Metrics) ObserveWebhook(outcome string) {
	m.webhookEvents.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
