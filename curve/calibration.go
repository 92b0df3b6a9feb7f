package curve

import (
	"time"

	"github.com/google/uuid"
)

// Calibration records the inputs a curve was calibrated from, so the curve can
// be inspected or rebuilt later.
type Calibration struct {
	ID       uuid.UUID
	Solver   string
	Labels   []string
	Measures []string
	Quotes   []float64 // unbumped
	Bump     float64
	// BumpedNode is the only node whose quote was bumped, or -1 when every quote was.
	BumpedNode   int
	Flat         bool
	CalibratedAt time.Time
}

func (c Calibration) clone() Calibration {
	c.Labels = append([]string(nil), c.Labels...)
	c.Measures = append([]string(nil), c.Measures...)
	c.Quotes = append([]float64(nil), c.Quotes...)
	return c
}

// EffectiveQuote returns the quote node i was actually calibrated to.
func (c Calibration) EffectiveQuote(i int) float64 {
	if c.BumpedNode < 0 || c.BumpedNode == i {
		return c.Quotes[i] + c.Bump
	}
	return c.Quotes[i]
}

// Stamp attaches calibration inputs to the curve. A nil ID is replaced with a fresh one.
func (c *Curve) Stamp(cal Calibration) {
	if cal.ID == uuid.Nil {
		cal.ID = uuid.New()
	}
	if cal.CalibratedAt.IsZero() {
		cal.CalibratedAt = time.Now().UTC()
	}
	cal = cal.clone()
	c.calibration = &cal
}

// Calibration returns the stamped calibration inputs, if any.
func (c *Curve) Calibration() (Calibration, bool) {
	if c.calibration == nil {
		return Calibration{}, false
	}
	return c.calibration.clone(), true
}
