package instrument

import (
	"fmt"
	"time"

	"github.com/meenmo/mocurve/calendar"
	"github.com/meenmo/mocurve/utils"
)

// SwapParams defines a vanilla fixed-vs-floating swap.
//
// Effective/Termination override ValuationDate/SpotLagDays/Tenor when both are set,
// which is how seasoned swaps (with already-reset floating periods) are built.
type SwapParams struct {
	Tenor         string
	ValuationDate time.Time
	SpotLagDays   int
	Calendar      calendar.BusinessCalendar

	Effective   time.Time
	Termination time.Time

	FixedFreqMonths int    // defaults to 12
	FixedDayCount   string // defaults to 30/360
	FloatFreqMonths int    // defaults to 3
	FloatDayCount   string // defaults to ACT/360
	PayDelayDays    int

	// FixedRate (decimal) and Notional only affect the "PV" measure.
	FixedRate float64
	Notional  float64
}

type Swap struct {
	tenor     string
	fixedRate float64
	notional  float64
	fixed     []period
	float     []period
}

func NewSwap(p SwapParams) (*Swap, error) {
	effective, termination := p.Effective, p.Termination
	if effective.IsZero() || termination.IsZero() {
		if p.ValuationDate.IsZero() {
			return nil, fmt.Errorf("NewSwap: ValuationDate is required")
		}
		var err error
		effective, termination, err = spotAndEnd(p.ValuationDate, p.Calendar, p.SpotLagDays, p.Tenor)
		if err != nil {
			return nil, fmt.Errorf("NewSwap: %w", err)
		}
	}

	fixedFreq, floatFreq := p.FixedFreqMonths, p.FloatFreqMonths
	if fixedFreq == 0 {
		fixedFreq = 12
	}
	if floatFreq == 0 {
		floatFreq = 3
	}
	fixedDC, floatDC := p.FixedDayCount, p.FloatDayCount
	if fixedDC == "" {
		fixedDC = utils.Thirty
	}
	if floatDC == "" {
		floatDC = utils.Act360
	}
	notional := p.Notional
	if notional == 0 {
		notional = 1.0
	}

	fixed, err := buildSchedule(effective, termination, fixedFreq, p.Calendar, fixedDC, p.PayDelayDays)
	if err != nil {
		return nil, fmt.Errorf("NewSwap: fixed leg: %w", err)
	}
	float, err := buildSchedule(effective, termination, floatFreq, p.Calendar, floatDC, p.PayDelayDays)
	if err != nil {
		return nil, fmt.Errorf("NewSwap: floating leg: %w", err)
	}

	label := p.Tenor
	if label == "" {
		label = termination.Format(utils.DateLayout)
	}
	return &Swap{
		tenor:     label,
		fixedRate: p.FixedRate,
		notional:  notional,
		fixed:     fixed,
		float:     float,
	}, nil
}

func (s *Swap) Label() string { return s.tenor }

// Maturity is the later of the two legs' final payment dates.
func (s *Swap) Maturity() time.Time {
	a, b := s.fixed[len(s.fixed)-1].Pay, s.float[len(s.float)-1].Pay
	if b.After(a) {
		return b
	}
	return a
}

// PriceMeasure supports "SwapRate"/"ParRate", "Annuity" and "PV" (receive fixed, per Notional).
func (s *Swap) PriceMeasure(ctx *Context, curves CurveSet, measure string) (float64, error) {
	if curves.Discount == nil {
		return 0, missingCurve(s.tenor, "discount")
	}
	valuation := curves.Discount.Anchor()
	if ctx != nil && !ctx.ValuationDate.IsZero() {
		valuation = ctx.ValuationDate
	}

	switch measure {
	case MeasureAnnuity:
		return s.annuity(curves, valuation), nil
	case MeasureSwapRate, MeasureParRate:
		floatPV, err := s.floatLegPV(ctx, curves, valuation)
		if err != nil {
			return 0, err
		}
		return floatPV / s.annuity(curves, valuation), nil
	case MeasurePV:
		floatPV, err := s.floatLegPV(ctx, curves, valuation)
		if err != nil {
			return 0, err
		}
		return s.notional * (s.fixedRate*s.annuity(curves, valuation) - floatPV), nil
	default:
		return 0, unknownMeasure(s.tenor, measure)
	}
}

func (s *Swap) annuity(curves CurveSet, valuation time.Time) float64 {
	sum := 0.0
	for _, p := range s.fixed {
		if !p.Pay.After(valuation) {
			continue
		}
		sum += p.Accrual * curves.Discount.DF(p.Pay)
	}
	return sum
}

// floatLegPV projects each period's simple forward off the projection curve and
// discounts it on the discount curve. A period that started before the valuation
// date has reset, so its rate comes from the fixing feed instead.
func (s *Swap) floatLegPV(ctx *Context, curves CurveSet, valuation time.Time) (float64, error) {
	proj := curves.projection()
	pv := 0.0
	for _, p := range s.float {
		if !p.Pay.After(valuation) {
			continue
		}
		var rate float64
		if p.Start.Before(valuation) {
			fixing, ok := s.fixing(ctx, p.Start)
			if !ok {
				return 0, fmt.Errorf("instrument %s: %w on %s", s.tenor, ErrMissingFixing, p.Start.Format(utils.DateLayout))
			}
			rate = fixing
		} else {
			rate = (proj.DF(p.Start)/proj.DF(p.End) - 1.0) / p.Accrual
		}
		pv += rate * p.Accrual * curves.Discount.DF(p.Pay)
	}
	return pv, nil
}

func (s *Swap) fixing(ctx *Context, d time.Time) (float64, bool) {
	if ctx == nil || ctx.Fixings == nil {
		return 0, false
	}
	return ctx.Fixings.RateOn(d)
}
