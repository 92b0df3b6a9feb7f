// Package scenario bootstraps whole curves from ordered instrument strips and
// builds the per-tenor bumped curves used for bucketed risk.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/mocurve/calibration"
	"github.com/meenmo/mocurve/curve"
	"github.com/meenmo/mocurve/instrument"
	"github.com/meenmo/mocurve/utils"
)

const tracerName = "github.com/meenmo/mocurve/scenario"

// Generator drives a Calibrator across an instrument strip, one node per
// instrument in strip order.
//
// The strip (instruments, quotes, measures) is copied at construction and never
// changes, so a Generator may be shared by concurrent callers.
type Generator struct {
	kind        curve.Kind
	solver      calibration.Calibrator
	instruments []instrument.Instrument
	quotes      []float64
	measures    []string
	labels      []string
	dates       []time.Time

	workers int
	flat    bool
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Generator.
type Option func(*Generator)

// WithWorkers bounds the number of tenor-bumped curves built concurrently.
// n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(g *Generator) { g.workers = n }
}

// WithFlat calibrates the whole curve as one flat value. Each instrument's
// solve overwrites the previous one, so the last instrument's quote wins; it is
// meant for single-instrument strips.
func WithFlat(flat bool) Option {
	return func(g *Generator) { g.flat = flat }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
		}
	}
}

// New validates and copies the strip. Node i of every curve built sits at
// instruments[i].Maturity() and is labelled instruments[i].Label().
func New(kind curve.Kind, solver calibration.Calibrator, instruments []instrument.Instrument, quotes []float64, measures []string, opts ...Option) (*Generator, error) {
	switch {
	case !kind.Valid():
		return nil, invalid("unknown curve kind %q", kind)
	case solver == nil:
		return nil, invalid("nil calibrator")
	case len(instruments) == 0:
		return nil, invalid("empty instrument strip")
	case len(quotes) != len(instruments) || len(measures) != len(instruments):
		return nil, invalid("%d instruments, %d quotes, %d measures", len(instruments), len(quotes), len(measures))
	}

	g := &Generator{
		kind:        kind,
		solver:      solver,
		instruments: append([]instrument.Instrument(nil), instruments...),
		quotes:      append([]float64(nil), quotes...),
		measures:    append([]string(nil), measures...),
		labels:      make([]string, len(instruments)),
		dates:       make([]time.Time, len(instruments)),
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
	}
	for i, inst := range g.instruments {
		if inst == nil {
			return nil, invalid("nil instrument at %d", i)
		}
		if g.measures[i] == "" {
			return nil, invalid("empty measure at %d", i)
		}
		if !utils.IsFinite(g.quotes[i]) {
			return nil, invalid("non-finite quote %v at %d", g.quotes[i], i)
		}
		g.labels[i] = inst.Label()
		g.dates[i] = inst.Maturity()
	}
	if !utils.StrictlyIncreasing(g.dates) {
		return nil, invalid("instrument maturities must be strictly increasing")
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.workers <= 0 {
		g.workers = runtime.GOMAXPROCS(0)
	}
	return g, nil
}

func (g *Generator) Kind() curve.Kind               { return g.kind }
func (g *Generator) Solver() calibration.Calibrator { return g.solver }
func (g *Generator) Labels() []string               { return append([]string(nil), g.labels...) }

// BuildBaseCurve bootstraps every node with quotes[i] + quoteBump. It returns
// either a fully calibrated, stamped curve or an error; never a partial curve.
func (g *Generator) BuildBaseCurve(env calibration.Env, quoteBump float64) (*curve.Curve, error) {
	if err := g.checkCall(env, quoteBump); err != nil {
		return nil, err
	}
	return g.build(context.Background(), env, quoteBump, allNodes)
}

// BuildTenorBumpedCurves builds one curve per instrument i in which only
// quotes[i] is bumped by quoteBump.
//
// Builds run on at most WithWorkers goroutines, each owning its curve. The
// first failed build cancels the rest and the whole call fails.
func (g *Generator) BuildTenorBumpedCurves(ctx context.Context, env calibration.Env, quoteBump float64) ([]*curve.Curve, error) {
	if err := g.checkCall(env, quoteBump); err != nil {
		return nil, err
	}

	ctx, span := g.tracer.Start(ctx, "scenario.BuildTenorBumpedCurves", trace.WithAttributes(
		attribute.String("kind", string(g.kind)),
		attribute.Int("tenors", len(g.instruments)),
		attribute.Int("workers", g.workers),
		attribute.Float64("bump", quoteBump),
	))
	defer span.End()

	out := make([]*curve.Curve, len(g.instruments))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range g.instruments {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			c, err := g.build(egCtx, env, quoteBump, i)
			if err != nil {
				return fmt.Errorf("tenor %d (%s): %w", i, g.labels[i], err)
			}
			out[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tenor bumped build failed")
		g.logger.Warn("tenor bumped build failed", "kind", string(g.kind), "bump", quoteBump, "error", err)
		return nil, fmt.Errorf("BuildTenorBumpedCurves: %w", err)
	}
	return out, nil
}

// BuildTenorBumpedCurveMap is BuildTenorBumpedCurves keyed by instrument label.
// Duplicate labels are rejected before anything is built.
func (g *Generator) BuildTenorBumpedCurveMap(ctx context.Context, env calibration.Env, quoteBump float64) (map[string]*curve.Curve, error) {
	if err := g.checkUniqueLabels(); err != nil {
		return nil, err
	}
	curves, err := g.BuildTenorBumpedCurves(ctx, env, quoteBump)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*curve.Curve, len(curves))
	for i, c := range curves {
		out[g.labels[i]] = c
	}
	return out, nil
}

// TenorSensitivities returns, per tenor label, how much inst's measure moves
// when only that tenor's quote is bumped by quoteBump. The instrument prices
// against each curve in the role the curve was calibrated for.
func (g *Generator) TenorSensitivities(ctx context.Context, env calibration.Env, quoteBump float64, inst instrument.Instrument, measure string) (map[string]float64, error) {
	if inst == nil || measure == "" {
		return nil, invalid("TenorSensitivities needs an instrument and a measure")
	}
	if err := g.checkUniqueLabels(); err != nil {
		return nil, err
	}
	base, err := g.BuildBaseCurve(env, 0)
	if err != nil {
		return nil, fmt.Errorf("TenorSensitivities: base curve: %w", err)
	}
	bumped, err := g.BuildTenorBumpedCurves(ctx, env, quoteBump)
	if err != nil {
		return nil, fmt.Errorf("TenorSensitivities: %w", err)
	}

	price := func(c *curve.Curve) (float64, error) {
		return inst.PriceMeasure(env.Context, calibration.CurveSetFor(g.kind, c, env.Aux), measure)
	}
	v0, err := price(base)
	if err != nil {
		return nil, fmt.Errorf("TenorSensitivities: price %s on base curve: %w", inst.Label(), err)
	}
	out := make(map[string]float64, len(bumped))
	for i, c := range bumped {
		v, err := price(c)
		if err != nil {
			return nil, fmt.Errorf("TenorSensitivities: price %s on %s curve: %w", inst.Label(), g.labels[i], err)
		}
		out[g.labels[i]] = v - v0
	}
	return out, nil
}

// allNodes marks a build in which every quote is bumped.
const allNodes = -1

// build bootstraps one curve, bumping quote bumped (or every quote for allNodes).
// The strip is solved strictly in order: node i+1 prices off node i.
func (g *Generator) build(ctx context.Context, env calibration.Env, bump float64, bumped int) (*curve.Curve, error) {
	start := time.Now()
	mode := "base"
	if bumped != allNodes {
		mode = "tenor"
	}
	_, span := g.tracer.Start(ctx, "scenario.build", trace.WithAttributes(
		attribute.String("kind", string(g.kind)),
		attribute.String("solver", g.solver.Name()),
		attribute.Int("bumped_node", bumped),
	))
	defer span.End()

	c, err := g.solve(env, bump, bumped)
	observeBuild(g.kind, mode, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "curve build failed")
		g.logger.Debug("curve build failed", "kind", string(g.kind), "bumped_node", bumped, "error", err)
		return nil, err
	}
	g.logger.Debug("curve built", "kind", string(g.kind), "solver", g.solver.Name(),
		"bumped_node", bumped, "bump", bump, "elapsed", time.Since(start))
	return c, nil
}

func (g *Generator) solve(env calibration.Env, bump float64, bumped int) (*curve.Curve, error) {
	c, err := curve.New(g.kind, env.Context.ValuationDate, g.dates, g.labels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", calibration.ErrInvalidInput, err)
	}
	for i, inst := range g.instruments {
		quote := g.quotes[i]
		if bumped == allNodes || bumped == i {
			quote += bump
		}
		t := calibration.Target{Instrument: inst, Node: i, Quote: quote, Measure: g.measures[i], Flat: g.flat}
		if g.kind == curve.HazardRate {
			err = g.solver.BootstrapHazardRate(c, env, t)
		} else {
			err = g.solver.BootstrapInterestRate(c, env, t)
		}
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, g.labels[i], err)
		}
	}
	c.Stamp(curve.Calibration{
		Solver:     g.solver.Name(),
		Labels:     g.labels,
		Measures:   g.measures,
		Quotes:     g.quotes,
		Bump:       bump,
		BumpedNode: bumped,
		Flat:       g.flat,
	})
	return c, nil
}

func (g *Generator) checkCall(env calibration.Env, quoteBump float64) error {
	switch {
	case env.Context == nil:
		return invalid("nil valuation context")
	case !utils.IsFinite(quoteBump):
		return invalid("non-finite quote bump %v", quoteBump)
	case g.kind == curve.HazardRate && env.Aux.Discount == nil:
		return invalid("hazard curve build needs an aux discount curve")
	case !g.dates[0].After(env.Context.ValuationDate):
		return invalid("first maturity %s not after valuation date %s",
			g.dates[0].Format(utils.DateLayout), env.Context.ValuationDate.Format(utils.DateLayout))
	}
	return nil
}

func (g *Generator) checkUniqueLabels() error {
	seen := make(map[string]int, len(g.labels))
	for i, l := range g.labels {
		if j, ok := seen[l]; ok {
			return invalid("duplicate tenor label %q at %d and %d", l, j, i)
		}
		seen[l] = i
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("scenario: %w: %s", calibration.ErrInvalidInput, fmt.Sprintf(format, args...))
}
