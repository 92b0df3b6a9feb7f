package job

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meenmo/mocurve/calendar"
	"github.com/meenmo/mocurve/curve"
	"github.com/meenmo/mocurve/instrument"
	"github.com/meenmo/mocurve/marketdata"
	"github.com/meenmo/mocurve/utils"
)

// Input defines the JSON input schema for a curve calibration run.
//
// Conventions:
// - deposit and swap quotes, coupons and zero rates are in percent (2.50 means 2.50%)
// - CDS quotes and coupons are in bp (120 means 1.20%)
// - bumps are in bp
type Input struct {
	CurveDate   string `json:"curve_date"` // "2025-01-06"
	CurveType   string `json:"curve_type"` // "rate" (default) or "hazard"
	Calendar    string `json:"calendar"`   // TARGET, JPN, USD, KRW, NONE
	SpotLagDays int    `json:"spot_lag_days"`

	Instruments []InstrumentInput `json:"instruments"`

	// DiscountCurve maps tenor to zero rate (percent). It makes a rate build
	// dual-curve and is required for hazard builds.
	DiscountCurve map[string]float64 `json:"discount_curve"`

	// Recovery (percent) overrides every CDS's own recovery when set.
	Recovery *float64 `json:"recovery"`

	// Fixings maps YYYY-MM-DD to the published index fixing (percent).
	Fixings  map[string]float64 `json:"fixings"`
	Holidays []string           `json:"holidays"`

	BumpBP float64 `json:"bump_bp"`
	Flat   bool    `json:"flat"`

	// RiskInstrument is priced for tenor sensitivities; defaults to the last instrument.
	RiskInstrument *InstrumentInput `json:"risk_instrument"`
}

type InstrumentInput struct {
	Type    string  `json:"type"` // deposit | swap | cds
	Tenor   string  `json:"tenor"`
	Quote   float64 `json:"quote"`
	Measure string  `json:"measure"` // defaults: Rate, SwapRate, FairPremium

	Coupon          float64  `json:"coupon"`   // swap fixed rate (percent) or CDS running coupon (bp)
	Recovery        *float64 `json:"recovery"` // CDS, percent; 40 when omitted
	FixedFreqMonths int      `json:"fixed_freq_months"`
	FloatFreqMonths int      `json:"float_freq_months"`
	PayDelayDays    int      `json:"pay_delay_days"`
	DayCount        string   `json:"day_count"`

	// Effective and Termination (YYYY-MM-DD) pin a swap's dates instead of
	// spot + tenor. A swap that started before curve_date takes its current
	// floating coupon from fixings.
	Effective   string `json:"effective"`
	Termination string `json:"termination"`
}

const (
	typeDeposit = "deposit"
	typeSwap    = "swap"
	typeCDS     = "cds"
)

func (in InstrumentInput) kind() string {
	return strings.ToLower(strings.TrimSpace(in.Type))
}

// scale converts a quote in input units to a decimal.
func (in InstrumentInput) scale() float64 {
	if in.kind() == typeCDS {
		return 1e-4
	}
	return 1e-2
}

func (in InstrumentInput) measure() string {
	if m := strings.TrimSpace(in.Measure); m != "" {
		return m
	}
	switch in.kind() {
	case typeSwap:
		return instrument.MeasureSwapRate
	case typeCDS:
		return instrument.MeasureFairPremium
	default:
		return instrument.MeasureRate
	}
}

func (in InstrumentInput) build(valuation time.Time, cal calendar.BusinessCalendar, spotLag int) (instrument.Instrument, error) {
	effective, termination, err := in.dates()
	if err != nil {
		return nil, err
	}
	if !effective.IsZero() && in.kind() != typeSwap {
		return nil, fmt.Errorf("effective/termination apply to swaps only")
	}
	switch in.kind() {
	case typeDeposit:
		return instrument.NewDeposit(instrument.DepositParams{
			Tenor:         in.Tenor,
			ValuationDate: valuation,
			SpotLagDays:   spotLag,
			Calendar:      cal,
			DayCount:      in.DayCount,
		})
	case typeSwap:
		return instrument.NewSwap(instrument.SwapParams{
			Tenor:           in.Tenor,
			ValuationDate:   valuation,
			SpotLagDays:     spotLag,
			Calendar:        cal,
			Effective:       effective,
			Termination:     termination,
			FixedFreqMonths: in.FixedFreqMonths,
			FloatFreqMonths: in.FloatFreqMonths,
			FixedDayCount:   in.DayCount,
			PayDelayDays:    in.PayDelayDays,
			FixedRate:       in.Coupon * 1e-2,
		})
	case typeCDS:
		return instrument.NewCDS(instrument.CDSParams{
			Tenor:         in.Tenor,
			ValuationDate: valuation,
			SpotLagDays:   spotLag,
			Calendar:      cal,
			Coupon:        in.Coupon * 1e-4,
			Recovery:      percent(in.Recovery),
		})
	default:
		return nil, fmt.Errorf("unknown instrument type %q (use deposit, swap or cds)", in.Type)
	}
}

// dates parses Effective and Termination, which must be given together.
func (in InstrumentInput) dates() (time.Time, time.Time, error) {
	if in.Effective == "" && in.Termination == "" {
		return time.Time{}, time.Time{}, nil
	}
	if in.Effective == "" || in.Termination == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("effective and termination must be given together")
	}
	effective, err := utils.ParseDate(in.Effective)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("effective: %v", err)
	}
	termination, err := utils.ParseDate(in.Termination)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("termination: %v", err)
	}
	if !termination.After(effective) {
		return time.Time{}, time.Time{}, fmt.Errorf("termination %s is not after effective %s", in.Termination, in.Effective)
	}
	return effective, termination, nil
}

func (in Input) curveKind() (curve.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(in.CurveType)) {
	case "", "rate", "ir":
		return curve.InterestRate, nil
	case "hazard", "credit":
		return curve.HazardRate, nil
	default:
		return "", fmt.Errorf("invalid curve_type %q (use rate or hazard)", in.CurveType)
	}
}

func (in Input) context(valuation time.Time) *instrument.Context {
	ctx := &instrument.Context{ValuationDate: valuation}
	if len(in.Fixings) > 0 {
		rates := make(map[string]float64, len(in.Fixings))
		for d, v := range in.Fixings {
			rates[d] = v * 1e-2
		}
		ctx.Fixings = marketdata.NewMapFixingFeed(rates)
	}
	if in.Recovery != nil {
		ctx.Quoting = instrument.Quoting{Recovery: *in.Recovery * 1e-2, OverrideRecovery: true}
	}
	return ctx
}

// discountCurve builds the aux discount curve from tenor zero rates, or nil if none were given.
func (in Input) discountCurve(valuation time.Time) (*curve.Curve, error) {
	if len(in.DiscountCurve) == 0 {
		return nil, nil
	}
	type node struct {
		label string
		date  time.Time
		rate  float64
	}
	nodes := make([]node, 0, len(in.DiscountCurve))
	for label, pct := range in.DiscountCurve {
		tn, err := utils.ParseTenor(label)
		if err != nil {
			return nil, fmt.Errorf("discount_curve: %v", err)
		}
		nodes = append(nodes, node{label: tn.String(), date: tn.AddTo(valuation), rate: pct * 1e-2})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].date.Before(nodes[j].date) })

	dates := make([]time.Time, len(nodes))
	labels := make([]string, len(nodes))
	rates := make([]float64, len(nodes))
	for i, n := range nodes {
		dates[i], labels[i], rates[i] = n.date, n.label, n.rate
	}
	c, err := curve.NewFromValues(curve.InterestRate, valuation, dates, labels, rates)
	if err != nil {
		return nil, fmt.Errorf("discount_curve: %v", err)
	}
	return c, nil
}

// percent converts an optional percent input to a decimal, keeping nil.
func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	d := *v * 1e-2
	return &d
}
