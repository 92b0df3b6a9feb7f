// Package calibration solves one curve node at a time so that an instrument
// reprices to its market quote.
//
// A solve writes every trial value straight into the target curve and reprices
// the instrument against that live state. Nothing is rolled back: after a
// failed solve the curve holds the last trial value and must be discarded.
package calibration

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meenmo/mocurve/curve"
	"github.com/meenmo/mocurve/instrument"
	"github.com/meenmo/mocurve/utils"
)

// Calibrator bootstraps a single node of a curve. A nil error means the node
// (or, for flat targets, the whole curve) reprices the instrument to its quote.
type Calibrator interface {
	Name() string
	BootstrapInterestRate(target *curve.Curve, env Env, t Target) error
	BootstrapHazardRate(target *curve.Curve, env Env, t Target) error
}

// Target is the node to solve and the quote it must reproduce.
type Target struct {
	Instrument instrument.Instrument
	Node       int
	Quote      float64
	Measure    string
	// Flat moves every node together instead of only Node.
	Flat bool
	// Tolerance replaces the solver's convergence tolerance when positive.
	Tolerance float64
}

// Env is the market environment a solve prices in. Aux holds curves that are
// already built (a discount curve for dual-curve or credit bootstraps).
type Env struct {
	Context *instrument.Context
	Aux     instrument.CurveSet
}

// CurveSetFor returns the curves an instrument prices against while target is
// being solved.
//
// An interest-rate target without an aux discount curve is both discount and
// projection curve. With an aux discount curve it only projects. A hazard
// target is the credit curve.
func CurveSetFor(kind curve.Kind, target *curve.Curve, aux instrument.CurveSet) instrument.CurveSet {
	if kind == curve.HazardRate {
		return instrument.CurveSet{Discount: aux.Discount, Projection: aux.Projection, Credit: target}
	}
	if aux.Discount == nil {
		return instrument.CurveSet{Discount: target, Projection: target, Credit: aux.Credit}
	}
	return instrument.CurveSet{Discount: aux.Discount, Projection: target, Credit: aux.Credit}
}

type options struct {
	logger *slog.Logger
}

// Option configures a solver.
type Option func(*options)

// WithLogger sets the logger used for per-solve diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// problem is one validated solve: the curve under mutation, the curves the
// instrument prices against, and the quote to hit.
type problem struct {
	solver string
	kind   curve.Kind
	curve  *curve.Curve
	curves instrument.CurveSet
	ctx    *instrument.Context
	target Target
	label  string
	start  time.Time
}

func newProblem(solver string, kind curve.Kind, c *curve.Curve, env Env, t Target) (*problem, error) {
	switch {
	case c == nil:
		return nil, invalidInput(solver, "nil target curve")
	case c.Kind() != kind:
		return nil, invalidInput(solver, "target curve is %s, want %s", c.Kind(), kind)
	case t.Instrument == nil:
		return nil, invalidInput(solver, "nil instrument")
	case t.Measure == "":
		return nil, invalidInput(solver, "empty measure name")
	case !utils.IsFinite(t.Quote):
		return nil, invalidInput(solver, "non-finite quote %v", t.Quote)
	case env.Context == nil:
		return nil, invalidInput(solver, "nil valuation context")
	case !t.Flat && (t.Node < 0 || t.Node >= c.NodeCount()):
		return nil, invalidInput(solver, "node %d out of range [0, %d)", t.Node, c.NodeCount())
	case t.Tolerance < 0 || math.IsNaN(t.Tolerance) || math.IsInf(t.Tolerance, 0):
		return nil, invalidInput(solver, "invalid tolerance override %v", t.Tolerance)
	case kind == curve.HazardRate && env.Aux.Discount == nil:
		return nil, invalidInput(solver, "hazard bootstrap needs an aux discount curve")
	}
	p := &problem{
		solver: solver,
		kind:   kind,
		curve:  c,
		curves: CurveSetFor(kind, c, env.Aux),
		ctx:    env.Context,
		target: t,
		start:  time.Now(),
	}
	if t.Node >= 0 && t.Node < c.NodeCount() {
		p.label = c.NodeLabel(t.Node)
	}
	return p, nil
}

func (p *problem) set(v float64) bool {
	if p.target.Flat {
		return p.curve.SetFlatValue(v)
	}
	return p.curve.SetNodeValue(p.target.Node, v)
}

func (p *problem) price() (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic pricing %s: %v", p.target.Instrument.Label(), r)
		}
	}()
	return p.target.Instrument.PriceMeasure(p.ctx, p.curves, p.target.Measure)
}

// evaluate writes x into the curve and reprices the measure. The returned
// status is Converged when the measure is usable.
func (p *problem) evaluate(x float64) (float64, Status, error) {
	if !p.set(x) {
		return math.NaN(), Diverged, fmt.Errorf("curve rejected trial value %v", x)
	}
	q, err := p.price()
	if err != nil {
		return math.NaN(), PricingFailure, err
	}
	if !utils.IsFinite(q) {
		return q, Diverged, fmt.Errorf("measure is %v at trial value %v", q, x)
	}
	return q, Converged, nil
}

func (p *problem) fail(status Status, iterations int, value float64, cause error) *SolveError {
	return &SolveError{
		Status:     status,
		Solver:     p.solver,
		Node:       p.target.Node,
		Label:      p.label,
		Measure:    p.target.Measure,
		Iterations: iterations,
		Value:      value,
		Err:        cause,
	}
}

// finish records metrics and logs the outcome of a validated solve.
func (p *problem) finish(logger *slog.Logger, iterations int, value float64, err error) error {
	status := StatusOf(err)
	observeSolve(p.solver, p.kind, status, iterations, time.Since(p.start))
	attrs := []any{
		"solver", p.solver,
		"kind", string(p.kind),
		"node", p.target.Node,
		"label", p.label,
		"measure", p.target.Measure,
		"quote", p.target.Quote,
		"flat", p.target.Flat,
		"iterations", iterations,
		"value", value,
	}
	if err != nil {
		logger.Warn("calibration solve failed", append(attrs, "status", status.String(), "error", err)...)
		return err
	}
	logger.Debug("calibration solve converged", attrs...)
	return nil
}

func rejectInput(logger *slog.Logger, solver string, kind curve.Kind, err error) error {
	observeSolve(solver, kind, InvalidInput, 0, 0)
	logger.Warn("calibration input rejected", "solver", solver, "kind", string(kind), "error", err)
	return err
}
