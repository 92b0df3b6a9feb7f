package calibration

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/meenmo/mocurve/curve"
)

// Bracketing solves for the node value inside [Floor, Ceiling] by repeatedly
// narrowing a sign-changing bracket of residuals measure - quote.
type Bracketing struct {
	cfg    BracketingConfig
	logger *slog.Logger
}

func NewBracketing(cfg BracketingConfig, opts ...Option) (*Bracketing, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewBracketing: %w", err)
	}
	o := buildOptions(opts)
	return &Bracketing{cfg: cfg, logger: o.logger}, nil
}

func (b *Bracketing) Name() string { return "bracketing-" + string(b.cfg.Method) }

func (b *Bracketing) BootstrapInterestRate(target *curve.Curve, env Env, t Target) error {
	return b.bootstrap(curve.InterestRate, target, env, t)
}

func (b *Bracketing) BootstrapHazardRate(target *curve.Curve, env Env, t Target) error {
	return b.bootstrap(curve.HazardRate, target, env, t)
}

// Tolerance returns the absolute residual tolerance for quote.
func (b *Bracketing) Tolerance(quote float64) float64 {
	return residualTolerance(b.cfg.RelativeTolerance, quote)
}

func residualTolerance(rel, quote float64) float64 {
	return math.Max(math.Abs(rel*quote), rel)
}

func (b *Bracketing) bootstrap(kind curve.Kind, c *curve.Curve, env Env, t Target) error {
	p, err := newProblem(b.Name(), kind, c, env, t)
	if err != nil {
		return rejectInput(b.logger, b.Name(), kind, err)
	}
	iterations, value, err := b.solve(p)
	return p.finish(b.logger, iterations, value, err)
}

// solve returns the number of refinement evaluations made and the last trial value.
func (b *Bracketing) solve(p *problem) (int, float64, error) {
	rel := b.cfg.RelativeTolerance
	if p.target.Tolerance > 0 {
		rel = p.target.Tolerance
	}
	tol := residualTolerance(rel, p.target.Quote)
	quote := p.target.Quote

	lo, hi := b.cfg.Floor, b.cfg.Ceiling

	// A non-finite measure at the floor still lets the ceiling converge.
	qLo, status, loErr := p.evaluate(lo)
	if loErr != nil && status != Diverged {
		return 0, lo, p.fail(status, 0, lo, loErr)
	}
	fLo := qLo - quote
	if loErr == nil && math.Abs(fLo) <= tol {
		return 0, lo, nil
	}

	qHi, status, err := p.evaluate(hi)
	if err != nil {
		return 0, hi, p.fail(status, 0, hi, err)
	}
	fHi := qHi - quote
	if math.Abs(fHi) <= tol {
		return 0, hi, nil
	}
	if loErr != nil {
		return 0, hi, p.fail(Diverged, 0, hi, loErr)
	}

	if fLo*fHi > 0 {
		return 0, hi, p.fail(BracketFailure, 0, hi,
			fmt.Errorf("residuals %g at floor %g and %g at ceiling %g share a sign", fLo, lo, fHi, hi))
	}

	x := b.next(lo, fLo, hi, fHi)
	q, status, err := p.evaluate(x)
	if err != nil {
		return 1, x, p.fail(status, 1, x, err)
	}
	f := q - quote
	iterations := 1

	for math.Abs(f) > tol {
		if iterations >= b.cfg.MaxIterations {
			return iterations, x, p.fail(IterationLimit, iterations, x,
				fmt.Errorf("residual %g above tolerance %g", f, tol))
		}
		if f*fLo > 0 {
			lo, fLo = x, f
		} else {
			hi, fHi = x, f
		}
		x = b.next(lo, fLo, hi, fHi)
		q, status, err = p.evaluate(x)
		iterations++
		if err != nil {
			return iterations, x, p.fail(status, iterations, x, err)
		}
		f = q - quote
	}
	return iterations, x, nil
}

func (b *Bracketing) next(lo, fLo, hi, fHi float64) float64 {
	mid := 0.5 * (lo + hi)
	switch b.cfg.Method {
	case Bisection:
		return mid
	case Composite:
		return 0.5 * (falsePosition(lo, fLo, hi, fHi) + mid)
	default:
		return falsePosition(lo, fLo, hi, fHi)
	}
}

// falsePosition is the root of the line through (lo, fLo) and (hi, fHi).
func falsePosition(lo, fLo, hi, fHi float64) float64 {
	return lo - fLo*(hi-lo)/(fHi-fLo)
}
