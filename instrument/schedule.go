package instrument

import (
	"fmt"
	"time"

	"github.com/meenmo/mocurve/calendar"
	"github.com/meenmo/mocurve/utils"
)

type period struct {
	Start   time.Time
	End     time.Time
	Pay     time.Time
	Accrual float64
}

// buildSchedule rolls unadjusted dates backward from termination in steps of
// months (EDATE from termination, so month-end dates do not drift), leaving a
// short front stub if needed. Accrual dates are Modified Following adjusted and
// the payment date lags the accrual end by payDelay business days.
func buildSchedule(effective, termination time.Time, months int, cal calendar.BusinessCalendar, dayCount string, payDelay int) ([]period, error) {
	if months <= 0 {
		return nil, fmt.Errorf("buildSchedule: unsupported frequency %d", months)
	}
	if !termination.After(effective) {
		return nil, fmt.Errorf("buildSchedule: termination %s not after effective %s",
			termination.Format(utils.DateLayout), effective.Format(utils.DateLayout))
	}

	unadjusted := []time.Time{termination}
	for k := 1; ; k++ {
		d := utils.AddMonth(termination, -k*months)
		if !d.After(effective) {
			break
		}
		unadjusted = append([]time.Time{d}, unadjusted...)
	}
	unadjusted = append([]time.Time{effective}, unadjusted...)

	periods := make([]period, 0, len(unadjusted)-1)
	for i := 0; i < len(unadjusted)-1; i++ {
		start := calendar.Adjust(cal, unadjusted[i])
		end := calendar.Adjust(cal, unadjusted[i+1])
		pay := end
		if payDelay > 0 {
			pay = calendar.AddBusinessDays(cal, end, payDelay)
		}
		periods = append(periods, period{
			Start:   start,
			End:     end,
			Pay:     pay,
			Accrual: utils.YearFraction(start, end, dayCount),
		})
	}
	return periods, nil
}

// spotAndEnd returns the spot date (valuation + spotLag business days) and the
// adjusted date one tenor after spot.
func spotAndEnd(valuation time.Time, cal calendar.BusinessCalendar, spotLag int, tenor string) (time.Time, time.Time, error) {
	tn, err := utils.ParseTenor(tenor)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	spot := valuation
	if spotLag > 0 {
		spot = calendar.AddBusinessDays(cal, valuation, spotLag)
	}
	return spot, calendar.Adjust(cal, tn.AddTo(spot)), nil
}
