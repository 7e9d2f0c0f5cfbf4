package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the token service write path. A nil *Metrics is a no-op.
type Metrics struct {
	RecordsAppended   *prometheus.CounterVec
	GateTransitions   *prometheus.CounterVec
	Rejections        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	HaltedTokens      prometheus.Gauge
}

// New registers the metrics with reg; nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RecordsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "captable_records_appended_total",
			Help: "Records appended to token logs by tx_type",
		}, []string{"tx_type"}),
		GateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "captable_multisig_transitions_total",
			Help: "Multi-sig gate transitions (propose, approve, execute, cancel, threshold)",
		}, []string{"transition"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "captable_rejections_total",
			Help: "Rejected write operations by error code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "captable_operation_duration_seconds",
			Help:    "Duration of token service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		HaltedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Name: "captable_halted_tokens",
			Help: "Tokens whose writes are halted after a corrupt log was detected",
		}),
	}
}

func (m *Metrics) IncrementAppended(txType string) {
	if m == nil {
		return
	}
	m.RecordsAppended.WithLabelValues(txType).Inc()
}

func (m *Metrics) IncrementTransition(transition string) {
	if m == nil {
		return
	}
	m.GateTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) IncrementRejected(operation, code string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(operation, code).Inc()
}

// ObserveOperation records time since start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementHalted() {
	if m == nil {
		return
	}
	m.HaltedTokens.Inc()
}
