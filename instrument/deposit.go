package instrument

import (
	"fmt"
	"time"

	"github.com/meenmo/mocurve/calendar"
	"github.com/meenmo/mocurve/utils"
)

// DepositParams defines a money-market deposit quoted as a simple rate.
type DepositParams struct {
	Tenor         string
	ValuationDate time.Time
	SpotLagDays   int
	Calendar      calendar.BusinessCalendar
	DayCount      string // defaults to ACT/360
}

// Deposit is a single-period money-market instrument.
type Deposit struct {
	tenor    string
	start    time.Time
	end      time.Time
	accrual  float64
	dayCount string
}

func NewDeposit(p DepositParams) (*Deposit, error) {
	if p.ValuationDate.IsZero() {
		return nil, fmt.Errorf("NewDeposit: ValuationDate is required")
	}
	start, end, err := spotAndEnd(p.ValuationDate, p.Calendar, p.SpotLagDays, p.Tenor)
	if err != nil {
		return nil, fmt.Errorf("NewDeposit: %w", err)
	}
	dc := p.DayCount
	if dc == "" {
		dc = utils.Act360
	}
	return &Deposit{
		tenor:    p.Tenor,
		start:    start,
		end:      end,
		accrual:  utils.YearFraction(start, end, dc),
		dayCount: dc,
	}, nil
}

func (d *Deposit) Label() string       { return d.tenor }
func (d *Deposit) Maturity() time.Time { return d.end }

// PriceMeasure supports "Rate" (simple forward rate over the deposit period)
// and "DF" (projection discount factor at maturity).
func (d *Deposit) PriceMeasure(ctx *Context, curves CurveSet, measure string) (float64, error) {
	proj := curves.projection()
	if proj == nil {
		return 0, missingCurve(d.tenor, "projection")
	}
	switch measure {
	case MeasureRate:
		return (proj.DF(d.start)/proj.DF(d.end) - 1.0) / d.accrual, nil
	case MeasureDF:
		return proj.DF(d.end), nil
	default:
		return 0, unknownMeasure(d.tenor, measure)
	}
}
