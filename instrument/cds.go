package instrument

import (
	"fmt"
	"time"

	"github.com/meenmo/mocurve/calendar"
	"github.com/meenmo/mocurve/utils"
)

// DefaultRecovery is the recovery rate used when CDSParams.Recovery is nil.
const DefaultRecovery = 0.4

// CDSParams defines a single-name credit default swap.
type CDSParams struct {
	Tenor         string
	ValuationDate time.Time
	SpotLagDays   int
	Calendar      calendar.BusinessCalendar

	FreqMonths int    // premium frequency, defaults to 3
	DayCount   string // defaults to ACT/360

	// Coupon is the running premium (decimal) used by the "PV" measure.
	Coupon   float64
	Recovery *float64 // nil means DefaultRecovery; zero recovery is allowed
	Notional float64
}

// CDS prices a protection leg against a premium leg off a discount curve and a
// hazard (credit) curve.
type CDS struct {
	tenor       string
	coupon      float64
	recovery    float64
	notional    float64
	termination time.Time
	premium     []period
}

// protectionStepMonths is the default-time discretisation of the protection leg.
const protectionStepMonths = 1

func NewCDS(p CDSParams) (*CDS, error) {
	if p.ValuationDate.IsZero() {
		return nil, fmt.Errorf("NewCDS: ValuationDate is required")
	}
	recovery := DefaultRecovery
	if p.Recovery != nil {
		recovery = *p.Recovery
	}
	if !(recovery >= 0 && recovery < 1) {
		return nil, fmt.Errorf("NewCDS: recovery %v outside [0, 1)", recovery)
	}
	effective, termination, err := spotAndEnd(p.ValuationDate, p.Calendar, p.SpotLagDays, p.Tenor)
	if err != nil {
		return nil, fmt.Errorf("NewCDS: %w", err)
	}
	freq := p.FreqMonths
	if freq == 0 {
		freq = 3
	}
	dc := p.DayCount
	if dc == "" {
		dc = utils.Act360
	}
	premium, err := buildSchedule(effective, termination, freq, p.Calendar, dc, 0)
	if err != nil {
		return nil, fmt.Errorf("NewCDS: %w", err)
	}

	notional := p.Notional
	if notional == 0 {
		notional = 1.0
	}
	return &CDS{
		tenor:       p.Tenor,
		coupon:      p.Coupon,
		recovery:    recovery,
		notional:    notional,
		termination: termination,
		premium:     premium,
	}, nil
}

func (c *CDS) Label() string       { return c.tenor }
func (c *CDS) Maturity() time.Time { return c.termination }

// PriceMeasure supports "FairPremium", "RiskyAnnuity" and "PV" (protection buyer, per Notional).
func (c *CDS) PriceMeasure(ctx *Context, curves CurveSet, measure string) (float64, error) {
	if curves.Discount == nil {
		return 0, missingCurve(c.tenor, "discount")
	}
	if curves.Credit == nil {
		return 0, missingCurve(c.tenor, "credit")
	}
	recovery := c.recovery
	if ctx != nil && ctx.Quoting.OverrideRecovery {
		recovery = ctx.Quoting.Recovery
	}

	switch measure {
	case MeasureRiskyAnnuity:
		return c.riskyAnnuity(curves), nil
	case MeasureFairPremium:
		return c.protectionLeg(curves, recovery) / c.riskyAnnuity(curves), nil
	case MeasurePV:
		return c.notional * (c.protectionLeg(curves, recovery) - c.coupon*c.riskyAnnuity(curves)), nil
	default:
		return 0, unknownMeasure(c.tenor, measure)
	}
}

// riskyAnnuity is the PV of one unit of running premium, including premium
// accrued up to a default in mid-period (paid at the period's payment date).
func (c *CDS) riskyAnnuity(curves CurveSet) float64 {
	anchor := curves.Credit.Anchor()
	sum := 0.0
	for _, p := range c.premium {
		if !p.Pay.After(anchor) {
			continue
		}
		df := curves.Discount.DF(p.Pay)
		sStart := curves.Credit.Survival(p.Start)
		sEnd := curves.Credit.Survival(p.End)
		sum += p.Accrual * df * sEnd
		sum += 0.5 * p.Accrual * df * (sStart - sEnd)
	}
	return sum
}

// protectionLeg pays (1 - recovery) on default, discounted from the midpoint of
// each monthly default bucket.
func (c *CDS) protectionLeg(curves CurveSet, recovery float64) float64 {
	anchor := curves.Credit.Anchor()
	start := c.premium[0].Start
	if start.Before(anchor) {
		start = anchor
	}

	pv := 0.0
	for a := start; a.Before(c.termination); {
		b := utils.AddMonth(a, protectionStepMonths)
		if b.After(c.termination) {
			b = c.termination
		}
		mid := a.Add(b.Sub(a) / 2)
		pv += curves.Discount.DF(mid) * (curves.Credit.Survival(a) - curves.Credit.Survival(b))
		a = b
	}
	return (1.0 - recovery) * pv
}
