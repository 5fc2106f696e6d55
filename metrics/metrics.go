package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ReportsTotal counts intake outcomes by route.
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ekokampus",
		Subsystem: "consensus",
		Name:      "reports_total",
		Help:      "Total reports received, labeled by intake route (auto_approve, vetting, auto_reject, rejected_input).",
	}, []string{"route"})

	// ResolutionsTotal counts terminal transitions by outcome and path.
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ekokampus",
		Subsystem: "consensus",
		Name:      "resolutions_total",
		Help:      "Total resolved reports, labeled by status and resolution path.",
	}, []string{"status", "resolution"})

	// VotesTotal counts accepted vetting votes by choice.
	VotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ekokampus",
		Subsystem: "consensus",
		Name:      "votes_total",
		Help:      "Total accepted vetting votes, labeled by choice.",
	}, []string{"choice"})

	// SuspicionScore observes the scorer output distribution.
	SuspicionScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ekokampus",
		Subsystem: "consensus",
		Name:      "suspicion_score",
		Help:      "Distribution of suspicion scores assigned at intake.",
		Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	// VerifierDurationSeconds is photo verifier call latency by result.
	VerifierDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ekokampus",
		Subsystem: "consensus",
		Name:      "verifier_duration_seconds",
		Help:      "Photo verifier round-trip time, labeled by result (ok, error).",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"result"})

	// LedgerAdjustTotal counts counter adjustments by subject and
	// whether the write changed the stored value.
	LedgerAdjustTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ekokampus",
		Subsystem: "consensus",
		Name:      "ledger_adjust_total",
		Help:      "Total counter ledger adjustments, labeled by subject and applied flag.",
	}, []string{"subject", "applied"})
)

// Register registers the engine metrics with the default Prometheus
// registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ReportsTotal,
			ResolutionsTotal,
			VotesTotal,
			SuspicionScore,
			VerifierDurationSeconds,
			LedgerAdjustTotal,
		)
	})
}
