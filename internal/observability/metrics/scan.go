package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

// ScanMetrics records scan lifecycle and report attempt observations.
type ScanMetrics struct {
	service string

	submissionsTotal *prometheus.CounterVec
	scanTotal        *prometheus.CounterVec
	scanDuration     *prometheus.HistogramVec
	scanInFlight     prometheus.Gauge
	attemptsTotal    *prometheus.CounterVec
	verdictsTotal    *prometheus.CounterVec
}

func NewScanMetrics(service string, registry prometheus.Registerer) *ScanMetrics {
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forensic",
			Subsystem: "scan",
			Name:      "submissions_total",
			Help:      "Total accepted scan submissions by asset kind.",
		},
		[]string{"service", "asset_kind"},
	)
	scanTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forensic",
			Subsystem: "scan",
			Name:      "finished_total",
			Help:      "Total finished scans by final state.",
		},
		[]string{"service", "status"},
	)
	scanDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forensic",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Scan duration from submission to final state.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120, 180, 300},
		},
		[]string{"service", "status"},
	)
	scanInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "forensic",
			Subsystem: "scan",
			Name:      "in_flight",
			Help:      "Number of scans currently in progress.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	attemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forensic",
			Subsystem: "report",
			Name:      "attempts_total",
			Help:      "Remote report generation attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	verdictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forensic",
			Subsystem: "report",
			Name:      "verdicts_total",
			Help:      "Delivered reports by verdict and risk level.",
		},
		[]string{"service", "verdict", "risk_level"},
	)

	if registry != nil {
		registry.MustRegister(submissionsTotal, scanTotal, scanDuration, scanInFlight, attemptsTotal, verdictsTotal)
	}

	return &ScanMetrics{
		service:          service,
		submissionsTotal: submissionsTotal,
		scanTotal:        scanTotal,
		scanDuration:     scanDuration,
		scanInFlight:     scanInFlight,
		attemptsTotal:    attemptsTotal,
		verdictsTotal:    verdictsTotal,
	}
}

func (m *ScanMetrics) StartScan(kind domain.AssetKind) {
	m.scanInFlight.Inc()
	m.submissionsTotal.WithLabelValues(m.service, string(kind)).Inc()
}

func (m *ScanMetrics) FinishScan(status domain.StateKind, duration time.Duration) {
	m.scanInFlight.Dec()

	label := string(status)
	if status == domain.StateIdle {
		label = "abandoned"
	}
	m.scanTotal.WithLabelValues(m.service, label).Inc()
	if duration >= 0 {
		m.scanDuration.WithLabelValues(m.service, label).Observe(duration.Seconds())
	}
}

func (m *ScanMetrics) RecordAttempt(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.attemptsTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *ScanMetrics) RecordVerdict(verdict domain.Verdict, risk domain.RiskLevel) {
	m.verdictsTotal.WithLabelValues(m.service, string(verdict), string(risk)).Inc()
}
