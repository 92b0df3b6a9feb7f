package instrument_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mocurve/calendar"
	"github.com/meenmo/mocurve/curve"
	"github.com/meenmo/mocurve/instrument"
	"github.com/meenmo/mocurve/marketdata"
	"github.com/meenmo/mocurve/utils"
)

var valuation = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func flatCurve(t *testing.T, kind curve.Kind, value float64) *curve.Curve {
	t.Helper()
	dates := []time.Time{valuation.AddDate(1, 0, 0), valuation.AddDate(10, 0, 0), valuation.AddDate(30, 0, 0)}
	c, err := curve.NewFromValues(kind, valuation, dates, []string{"1Y", "10Y", "30Y"}, []float64{value, value, value})
	require.NoError(t, err)
	return c
}

func TestDeposit_RateOnFlatCurve(t *testing.T) {
	t.Parallel()

	dep, err := instrument.NewDeposit(instrument.DepositParams{
		Tenor:         "6M",
		ValuationDate: valuation,
		Calendar:      calendar.NONE,
	})
	require.NoError(t, err)
	assert.Equal(t, "6M", dep.Label())
	assert.Equal(t, time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC), dep.Maturity()) // 6 Jul is a Sunday

	disc := flatCurve(t, curve.InterestRate, 0.03)
	rate, err := dep.PriceMeasure(&instrument.Context{ValuationDate: valuation}, instrument.CurveSet{Discount: disc}, instrument.MeasureRate)
	require.NoError(t, err)

	days := utils.Days(valuation, dep.Maturity())
	want := (math.Exp(0.03*days/365.0) - 1.0) / (days / 360.0)
	assert.InDelta(t, want, rate, 1e-12)

	_, err = dep.PriceMeasure(nil, instrument.CurveSet{}, instrument.MeasureRate)
	assert.ErrorIs(t, err, instrument.ErrMissingCurve)

	_, err = dep.PriceMeasure(nil, instrument.CurveSet{Discount: disc}, "Bogus")
	assert.ErrorIs(t, err, instrument.ErrUnknownMeasure)
}

func TestSwap_PVAtParIsZero(t *testing.T) {
	t.Parallel()

	ctx := &instrument.Context{ValuationDate: valuation}
	curves := instrument.CurveSet{Discount: flatCurve(t, curve.InterestRate, 0.025)}

	sw, err := instrument.NewSwap(instrument.SwapParams{
		Tenor:         "5Y",
		ValuationDate: valuation,
		SpotLagDays:   2,
		Calendar:      calendar.TARGET,
	})
	require.NoError(t, err)

	par, err := sw.PriceMeasure(ctx, curves, instrument.MeasureSwapRate)
	require.NoError(t, err)
	assert.InDelta(t, 0.025, par, 5e-4)

	atPar, err := instrument.NewSwap(instrument.SwapParams{
		Tenor:         "5Y",
		ValuationDate: valuation,
		SpotLagDays:   2,
		Calendar:      calendar.TARGET,
		FixedRate:     par,
		Notional:      1e6,
	})
	require.NoError(t, err)
	pv, err := atPar.PriceMeasure(ctx, curves, instrument.MeasurePV)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pv, 1e-6)
}

func TestSwap_SeasonedUsesFixings(t *testing.T) {
	t.Parallel()

	effective := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	sw, err := instrument.NewSwap(instrument.SwapParams{
		Tenor:       "2Y",
		Calendar:    calendar.NONE,
		Effective:   effective,
		Termination: effective.AddDate(2, 0, 0),
		FixedRate:   0.03,
	})
	require.NoError(t, err)

	curves := instrument.CurveSet{Discount: flatCurve(t, curve.InterestRate, 0.03)}

	_, err = sw.PriceMeasure(&instrument.Context{ValuationDate: valuation}, curves, instrument.MeasurePV)
	require.Error(t, err)
	assert.True(t, errors.Is(err, instrument.ErrMissingFixing))

	ctx := &instrument.Context{
		ValuationDate: valuation,
		Fixings:       marketdata.NewMapFixingFeed(map[string]float64{"2024-11-04": 0.031}),
	}
	pvHigh, err := sw.PriceMeasure(ctx, curves, instrument.MeasurePV)
	require.NoError(t, err)

	ctx.Fixings = marketdata.NewMapFixingFeed(map[string]float64{"2024-11-04": 0.021})
	pvLow, err := sw.PriceMeasure(ctx, curves, instrument.MeasurePV)
	require.NoError(t, err)

	// Receiver of fixed pays the reset floating coupon: a lower fixing is worth more.
	assert.Greater(t, pvLow, pvHigh)
}

func TestCDS_FairPremiumCreditTriangle(t *testing.T) {
	t.Parallel()

	cds, err := instrument.NewCDS(instrument.CDSParams{
		Tenor:         "5Y",
		ValuationDate: valuation,
		SpotLagDays:   1,
		Calendar:      calendar.USD,
	})
	require.NoError(t, err)

	curves := instrument.CurveSet{
		Discount: flatCurve(t, curve.InterestRate, 0.03),
		Credit:   flatCurve(t, curve.HazardRate, 0.02),
	}
	ctx := &instrument.Context{ValuationDate: valuation}

	fair, err := cds.PriceMeasure(ctx, curves, instrument.MeasureFairPremium)
	require.NoError(t, err)
	// s ~ (1 - R) * h, scaled by the ACT/360 premium basis.
	assert.InDelta(t, 0.6*0.02*360.0/365.0, fair, 2e-4)

	ctx.Quoting = instrument.Quoting{Recovery: 0.2, OverrideRecovery: true}
	fairLowRecovery, err := cds.PriceMeasure(ctx, curves, instrument.MeasureFairPremium)
	require.NoError(t, err)
	assert.InDelta(t, fair*0.8/0.6, fairLowRecovery, 1e-12)

	_, err = cds.PriceMeasure(ctx, instrument.CurveSet{Discount: curves.Discount}, instrument.MeasureFairPremium)
	assert.ErrorIs(t, err, instrument.ErrMissingCurve)
}

func TestCDS_ZeroRecovery(t *testing.T) {
	t.Parallel()

	params := instrument.CDSParams{
		Tenor:         "5Y",
		ValuationDate: valuation,
		SpotLagDays:   1,
		Calendar:      calendar.USD,
	}
	standard, err := instrument.NewCDS(params)
	require.NoError(t, err)

	zero := 0.0
	params.Recovery = &zero
	wipeout, err := instrument.NewCDS(params)
	require.NoError(t, err)

	curves := instrument.CurveSet{
		Discount: flatCurve(t, curve.InterestRate, 0.03),
		Credit:   flatCurve(t, curve.HazardRate, 0.02),
	}
	ctx := &instrument.Context{ValuationDate: valuation}
	fair, err := standard.PriceMeasure(ctx, curves, instrument.MeasureFairPremium)
	require.NoError(t, err)
	fairZero, err := wipeout.PriceMeasure(ctx, curves, instrument.MeasureFairPremium)
	require.NoError(t, err)
	assert.InDelta(t, fair/0.6, fairZero, 1e-12)

	for _, bad := range []float64{-0.1, 1, math.NaN()} {
		params.Recovery = &bad
		_, err := instrument.NewCDS(params)
		assert.Error(t, err, bad)
	}
}

func TestFunc(t *testing.T) {
	t.Parallel()

	f := &instrument.Func{
		Name: "stub",
		Date: valuation.AddDate(1, 0, 0),
		Fn: func(_ *instrument.Context, _ instrument.CurveSet, measure string) (float64, error) {
			return float64(len(measure)), nil
		},
	}
	v, err := f.PriceMeasure(nil, instrument.CurveSet{}, "Rate")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	_, err = (&instrument.Func{Name: "empty"}).PriceMeasure(nil, instrument.CurveSet{}, "Rate")
	assert.Error(t, err)
}
