// Package instrument prices calibration instruments against a set of curves.
//
// Every instrument exposes named measures ("Rate", "SwapRate", "FairPremium",
// ...) computed off the current state of the curves it is handed, which is what
// lets a solver reprice it after each trial node value.
package instrument

import (
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/mocurve/curve"
	"github.com/meenmo/mocurve/marketdata"
)

// Measure names.
const (
	MeasureRate         = "Rate"
	MeasureDF           = "DF"
	MeasureSwapRate     = "SwapRate"
	MeasureParRate      = "ParRate"
	MeasureAnnuity      = "Annuity"
	MeasurePV           = "PV"
	MeasureFairPremium  = "FairPremium"
	MeasureRiskyAnnuity = "RiskyAnnuity"
)

var (
	// ErrUnknownMeasure is returned when an instrument does not support the requested measure.
	ErrUnknownMeasure = errors.New("instrument: unknown measure")
	// ErrMissingCurve is returned when a curve role the measure needs is nil.
	ErrMissingCurve = errors.New("instrument: missing curve")
	// ErrMissingFixing is returned when a period has reset but no fixing is published.
	ErrMissingFixing = errors.New("instrument: missing fixing")
)

// Quoting holds quote conventions shared by a set of instruments.
type Quoting struct {
	// Recovery replaces each credit instrument's own recovery when OverrideRecovery is set.
	Recovery         float64
	OverrideRecovery bool
}

// Context is the market/valuation context instruments are priced in.
type Context struct {
	ValuationDate time.Time
	Fixings       marketdata.FixingFeed
	Quoting       Quoting
}

// CurveSet bundles the curves a measure may read.
//
// A nil Projection means the Discount curve also projects forwards.
type CurveSet struct {
	Discount   *curve.Curve
	Projection *curve.Curve
	Credit     *curve.Curve
}

func (s CurveSet) projection() *curve.Curve {
	if s.Projection != nil {
		return s.Projection
	}
	return s.Discount
}

// Instrument is a calibration instrument.
type Instrument interface {
	// Label is the tenor label (e.g. "5Y") used to key scenario curves.
	Label() string
	// Maturity is the last date the instrument reads from the curve under calibration.
	Maturity() time.Time
	// PriceMeasure returns the named measure off the current curve state.
	PriceMeasure(ctx *Context, curves CurveSet, measure string) (float64, error)
}

// Func adapts a closure to the Instrument interface.
type Func struct {
	Name string
	Date time.Time
	Fn   func(ctx *Context, curves CurveSet, measure string) (float64, error)
}

func (f *Func) Label() string       { return f.Name }
func (f *Func) Maturity() time.Time { return f.Date }

func (f *Func) PriceMeasure(ctx *Context, curves CurveSet, measure string) (float64, error) {
	if f.Fn == nil {
		return 0, fmt.Errorf("instrument %s: nil pricing function", f.Name)
	}
	return f.Fn(ctx, curves, measure)
}

func unknownMeasure(label, measure string) error {
	return fmt.Errorf("instrument %s: %w %q", label, ErrUnknownMeasure, measure)
}

func missingCurve(label, role string) error {
	return fmt.Errorf("instrument %s: %w: %s", label, ErrMissingCurve, role)
}
