package calibration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meenmo/mocurve/curve"
)

var (
	// solveTotal counts node solves by solver, curve kind and terminal status
	solveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mocurve_calibration_solve_total",
		Help: "Total node solves by solver, curve kind and status",
	}, []string{"solver", "kind", "status"})

	// solveIterations tracks refinement iterations per solve
	solveIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mocurve_calibration_solve_iterations",
		Help:    "Refinement iterations per node solve",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}, []string{"solver"})

	// solveDuration tracks wall time per solve
	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mocurve_calibration_solve_duration_seconds",
		Help:    "Node solve duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1us to ~260ms
	}, []string{"solver"})
)

func observeSolve(solver string, kind curve.Kind, status Status, iterations int, elapsed time.Duration) {
	solveTotal.WithLabelValues(solver, string(kind), status.String()).Inc()
	if status == InvalidInput {
		return
	}
	solveIterations.WithLabelValues(solver).Observe(float64(iterations))
	solveDuration.WithLabelValues(solver).Observe(elapsed.Seconds())
}
