package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomeServiceError   = "service_error"
	OutcomeParseError     = "parse_error"
)

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and turns every method into a no-op, so instrumentation stays
// optional in tests.
type Metrics struct {
	VerificationsTotal      *prometheus.CounterVec
	ConsultaDurationSeconds prometheus.Histogram
	BatchSize               prometheus.Histogram
	TokensCreated           prometheus.Counter
	HistoryRecorded         prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conectasat_verifications_total",
			Help: "CFDI verification attempts by outcome",
		}, []string{"outcome"}),
		ConsultaDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "conectasat_sat_consulta_duration_seconds",
			Help:    "Round-trip latency of SAT consulta calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "conectasat_verification_batch_size",
			Help:    "Number of items per batch verification request",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conectasat_api_tokens_created_total",
			Help: "Total number of API tokens created",
		}),
		HistoryRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conectasat_history_entries_recorded_total",
			Help: "Total number of verification history entries persisted",
		}),
	}
}

// IncVerification counts one verification attempt with the given outcome.
func (m *Metrics) IncVerification(outcome string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveConsultaDuration records one SAT round trip.
func (m *Metrics) ObserveConsultaDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ConsultaDurationSeconds.Observe(seconds)
}

// ObserveBatchSize records the size of one batch request.
func (m *Metrics) ObserveBatchSize(n int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(n))
}

// IncTokensCreated counts one created API token.
func (m *Metrics) IncTokensCreated() {
	if m == nil {
		return
	}
	m.TokensCreated.Inc()
}

// IncHistoryRecorded counts one persisted history entry.
func (m *Metrics) IncHistoryRecorded() {
	if m == nil {
		return
	}
	m.HistoryRecorded.Inc()
}
