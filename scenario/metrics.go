package scenario

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meenmo/mocurve/calibration"
	"github.com/meenmo/mocurve/curve"
)

var (
	// buildTotal counts curve builds by kind, mode (base|tenor) and outcome status
	buildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mocurve_scenario_build_total",
		Help: "Total curve builds by kind, mode and status",
	}, []string{"kind", "mode", "status"})

	// buildDuration tracks wall time per curve build
	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mocurve_scenario_build_duration_seconds",
		Help:    "Curve build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	}, []string{"kind", "mode"})
)

func observeBuild(kind curve.Kind, mode string, err error, elapsed time.Duration) {
	buildTotal.WithLabelValues(string(kind), mode, calibration.StatusOf(err).String()).Inc()
	buildDuration.WithLabelValues(string(kind), mode).Observe(elapsed.Seconds())
}
