// Package curve holds the dated node curves that calibration solves for.
//
// A Curve is a scratchpad while it is being calibrated: solvers overwrite node
// values in place on every trial, including failed ones, and never roll back.
// A Curve is not safe for concurrent mutation.
package curve

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/mocurve/utils"
)

// Kind distinguishes what a curve's node values represent.
type Kind string

const (
	// InterestRate nodes are continuously compounded zero rates.
	InterestRate Kind = "INTEREST_RATE"
	// HazardRate nodes are piecewise-flat default intensities.
	HazardRate Kind = "HAZARD_RATE"
)

// Valid reports whether k is a known curve kind.
func (k Kind) Valid() bool {
	return k == InterestRate || k == HazardRate
}

type Curve struct {
	kind     Kind
	anchor   time.Time
	dayCount string
	dates    []time.Time
	times    []float64 // year fractions from anchor
	labels   []string
	values   []float64

	calibration *Calibration
}

// New creates a curve with one node per date, every node seeded with NaN.
//
// Dates must be strictly increasing and after anchor. labels may be nil; when
// given it must have one entry per date. The curve time axis uses ACT/365F.
func New(kind Kind, anchor time.Time, dates []time.Time, labels []string) (*Curve, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("curve.New: unknown kind %q", kind)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("curve.New: no node dates")
	}
	if labels != nil && len(labels) != len(dates) {
		return nil, fmt.Errorf("curve.New: %d labels for %d dates", len(labels), len(dates))
	}
	if !dates[0].After(anchor) {
		return nil, fmt.Errorf("curve.New: first node %s not after anchor %s",
			dates[0].Format(utils.DateLayout), anchor.Format(utils.DateLayout))
	}
	if !utils.StrictlyIncreasing(dates) {
		return nil, fmt.Errorf("curve.New: node dates must be strictly increasing")
	}

	c := &Curve{
		kind:     kind,
		anchor:   anchor,
		dayCount: utils.Act365F,
		dates:    append([]time.Time(nil), dates...),
		times:    make([]float64, len(dates)),
		values:   make([]float64, len(dates)),
	}
	for i, d := range dates {
		c.times[i] = utils.YearFraction(anchor, d, c.dayCount)
		c.values[i] = math.NaN()
	}
	if labels != nil {
		c.labels = append([]string(nil), labels...)
	} else {
		c.labels = make([]string, len(dates))
		for i, d := range dates {
			c.labels[i] = d.Format(utils.DateLayout)
		}
	}
	return c, nil
}

// NewFromValues creates a fully populated curve, e.g. an externally supplied discount curve.
func NewFromValues(kind Kind, anchor time.Time, dates []time.Time, labels []string, values []float64) (*Curve, error) {
	if len(values) != len(dates) {
		return nil, fmt.Errorf("curve.NewFromValues: %d values for %d dates", len(values), len(dates))
	}
	c, err := New(kind, anchor, dates, labels)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if !c.SetNodeValue(i, v) {
			return nil, fmt.Errorf("curve.NewFromValues: invalid value %v at node %d", v, i)
		}
	}
	return c, nil
}

// SetNodeValue sets node i, leaving every other node untouched.
// It returns false if i is out of range or v is not finite.
func (c *Curve) SetNodeValue(i int, v float64) bool {
	if i < 0 || i >= len(c.values) || !utils.IsFinite(v) {
		return false
	}
	c.values[i] = v
	return true
}

// SetFlatValue sets every node to v. It returns false if v is not finite.
func (c *Curve) SetFlatValue(v float64) bool {
	if !utils.IsFinite(v) {
		return false
	}
	for i := range c.values {
		c.values[i] = v
	}
	return true
}

func (c *Curve) Kind() Kind               { return c.kind }
func (c *Curve) Anchor() time.Time        { return c.anchor }
func (c *Curve) DayCount() string         { return c.dayCount }
func (c *Curve) NodeCount() int           { return len(c.values) }
func (c *Curve) NodeDate(i int) time.Time { return c.dates[i] }
func (c *Curve) NodeValue(i int) float64  { return c.values[i] }
func (c *Curve) NodeLabel(i int) string   { return c.labels[i] }

// NodeValues returns a copy of the node values.
func (c *Curve) NodeValues() []float64 {
	return append([]float64(nil), c.values...)
}

// Labels returns a copy of the node labels.
func (c *Curve) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Calibrated reports whether every node holds a finite value.
func (c *Curve) Calibrated() bool {
	for _, v := range c.values {
		if !utils.IsFinite(v) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy, including the calibration stamp.
func (c *Curve) Clone() *Curve {
	out := &Curve{
		kind:     c.kind,
		anchor:   c.anchor,
		dayCount: c.dayCount,
		dates:    append([]time.Time(nil), c.dates...),
		times:    append([]float64(nil), c.times...),
		labels:   append([]string(nil), c.labels...),
		values:   append([]float64(nil), c.values...),
	}
	if c.calibration != nil {
		cal := c.calibration.clone()
		out.calibration = &cal
	}
	return out
}

func (c *Curve) yearFraction(t time.Time) float64 {
	return utils.YearFraction(c.anchor, t, c.dayCount)
}

// DF returns the discount factor at t for an interest-rate curve, log-linear in
// time between nodes with the anchor as an implicit pillar (DF = 1). Beyond the
// last node the last forward rate is extended. Hazard curves return NaN.
//
// An uncalibrated (NaN) node poisons every date interpolated against it.
func (c *Curve) DF(t time.Time) float64 {
	if c.kind != InterestRate {
		return math.NaN()
	}
	T := c.yearFraction(t)
	if T <= 0 {
		return 1.0
	}
	return math.Exp(c.logDF(T))
}

// ZeroRate returns the continuously compounded zero rate (decimal) at t.
func (c *Curve) ZeroRate(t time.Time) float64 {
	if c.kind != InterestRate {
		return math.NaN()
	}
	T := c.yearFraction(t)
	if T <= 0 {
		return c.values[0]
	}
	return -c.logDF(T) / T
}

func (c *Curve) logDF(T float64) float64 {
	n := len(c.times)
	idx := sort.SearchFloat64s(c.times, T)
	if idx < n && c.times[idx] == T {
		return -c.values[idx] * T
	}

	var t1, y1, t2, y2 float64
	switch {
	case idx == 0:
		t2, y2 = c.times[0], -c.values[0]*c.times[0]
	case idx >= n:
		if n > 1 {
			t1, y1 = c.times[n-2], -c.values[n-2]*c.times[n-2]
		}
		t2, y2 = c.times[n-1], -c.values[n-1]*c.times[n-1]
	default:
		t1, y1 = c.times[idx-1], -c.values[idx-1]*c.times[idx-1]
		t2, y2 = c.times[idx], -c.values[idx]*c.times[idx]
	}
	return y1 + (y2-y1)*(T-t1)/(t2-t1)
}

// Survival returns the survival probability to t for a hazard curve. Node i's
// hazard applies on (date[i-1], date[i]]; the last hazard is extended flat.
// Interest-rate curves return NaN.
func (c *Curve) Survival(t time.Time) float64 {
	if c.kind != HazardRate {
		return math.NaN()
	}
	T := c.yearFraction(t)
	if T <= 0 {
		return 1.0
	}
	integral, prev := 0.0, 0.0
	for k, tk := range c.times {
		if T <= tk {
			integral += c.values[k] * (T - prev)
			return math.Exp(-integral)
		}
		integral += c.values[k] * (tk - prev)
		prev = tk
	}
	integral += c.values[len(c.values)-1] * (T - prev)
	return math.Exp(-integral)
}
