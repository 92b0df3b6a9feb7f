package calibration

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/meenmo/mocurve/curve"
	"github.com/meenmo/mocurve/utils"
)

// NewtonRaphson solves for the node value with Newton steps on a
// forward-difference slope. It needs no bracket but can diverge on
// non-monotone or badly scaled measures.
type NewtonRaphson struct {
	cfg    NewtonConfig
	logger *slog.Logger
}

func NewNewtonRaphson(cfg NewtonConfig, opts ...Option) (*NewtonRaphson, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewNewtonRaphson: %w", err)
	}
	o := buildOptions(opts)
	return &NewtonRaphson{cfg: cfg, logger: o.logger}, nil
}

func (n *NewtonRaphson) Name() string { return "newton" }

func (n *NewtonRaphson) Config() NewtonConfig { return n.cfg }

func (n *NewtonRaphson) BootstrapInterestRate(target *curve.Curve, env Env, t Target) error {
	return n.bootstrap(curve.InterestRate, target, env, t)
}

func (n *NewtonRaphson) BootstrapHazardRate(target *curve.Curve, env Env, t Target) error {
	return n.bootstrap(curve.HazardRate, target, env, t)
}

func (n *NewtonRaphson) bootstrap(kind curve.Kind, c *curve.Curve, env Env, t Target) error {
	p, err := newProblem(n.Name(), kind, c, env, t)
	if err != nil {
		return rejectInput(n.logger, n.Name(), kind, err)
	}
	iterations, value, err := n.solve(p)
	return p.finish(n.logger, iterations, value, err)
}

// solve converges in the unknown: it stops when two successive estimates are
// within DiffTolerance, without re-checking the residual.
func (n *NewtonRaphson) solve(p *problem) (int, float64, error) {
	tol := n.cfg.DiffTolerance
	if p.target.Tolerance > 0 {
		tol = p.target.Tolerance
	}
	inc := n.cfg.Increment
	x := n.cfg.InitGuess

	for iterations := 1; ; iterations++ {
		q0, status, err := p.evaluate(x)
		if err != nil {
			return iterations, x, p.fail(status, iterations, x, err)
		}
		q1, status, err := p.evaluate(x + inc)
		if err != nil {
			return iterations, x + inc, p.fail(status, iterations, x+inc, err)
		}

		slope := inc / (q1 - q0)
		next := x + slope*(p.target.Quote-q0)
		if !utils.IsFinite(next) {
			return iterations, x + inc, p.fail(Diverged, iterations, x+inc,
				fmt.Errorf("newton step from %v is %v (measure slope %v)", x, next, (q1-q0)/inc))
		}
		if !p.set(next) {
			return iterations, next, p.fail(Diverged, iterations, next,
				fmt.Errorf("curve rejected newton step %v", next))
		}

		if math.Abs(next-x) <= tol {
			return iterations, next, nil
		}
		if iterations >= n.cfg.MaxIterations {
			return iterations, next, p.fail(IterationLimit, iterations, next,
				fmt.Errorf("last step %g above tolerance %g", math.Abs(next-x), tol))
		}
		x = next
	}
}
