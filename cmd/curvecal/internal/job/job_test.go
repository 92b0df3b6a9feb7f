package job_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mocurve/cmd/curvecal/internal/job"
	"github.com/meenmo/mocurve/config"
	"github.com/meenmo/mocurve/curve"
	"github.com/meenmo/mocurve/instrument"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rateInput() job.Input {
	return job.Input{
		CurveDate:   "2025-01-06",
		Calendar:    "TARGET",
		SpotLagDays: 2,
		Instruments: []job.InstrumentInput{
			{Type: "deposit", Tenor: "1Y", Quote: 2.0},
			{Type: "swap", Tenor: "2Y", Quote: 2.5},
			{Type: "swap", Tenor: "5Y", Quote: 3.0},
		},
	}
}

func prepare(t *testing.T, in job.Input) *job.Job {
	t.Helper()
	cfg := config.Defaults()
	j, err := job.Prepare(in, &cfg, discardLogger())
	require.NoError(t, err)
	return j
}

func TestBuild_RateCurve(t *testing.T) {
	t.Parallel()

	out, c, err := prepare(t, rateInput()).Build()
	require.NoError(t, err)
	assert.Equal(t, "bracketing-secant", out.Solver)
	assert.Equal(t, string(curve.InterestRate), out.CurveType)
	assert.NotEmpty(t, out.CalibrationID)
	require.Len(t, out.Nodes, 3)
	assert.Equal(t, []string{"1Y", "2Y", "5Y"}, c.Labels())
	for _, n := range out.Nodes {
		assert.Greater(t, n.Value, 1.5)
		assert.Less(t, n.Value, 3.5)
		assert.Less(t, n.Factor, 1.0)
	}
}

func TestRisk_StripInstrumentOnlyMovesWithItsOwnTenor(t *testing.T) {
	t.Parallel()

	in := rateInput()
	in.BumpBP = 1
	out, err := prepare(t, in).Risk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5Y", out.Instrument)
	assert.Equal(t, "SwapRate", out.Measure)
	assert.InDelta(t, 1.0, out.BumpBP, 1e-12)

	// Each curve reprices the 5Y swap to its own quote within 0.01bp.
	assert.InDelta(t, 0.0, out.Sensitivities["1Y"], 0.03)
	assert.InDelta(t, 0.0, out.Sensitivities["2Y"], 0.03)
	assert.InDelta(t, 1.0, out.Sensitivities["5Y"], 0.03)
}

func TestRisk_SeasonedSwapReadsFixings(t *testing.T) {
	t.Parallel()

	// The current floating period started on 2024-11-04, before curve_date.
	in := rateInput()
	in.RiskInstrument = &job.InstrumentInput{
		Type: "swap", Coupon: 3.0, Measure: "PV",
		Effective: "2024-11-04", Termination: "2026-11-04",
	}

	_, err := prepare(t, in).Risk(context.Background())
	require.ErrorIs(t, err, instrument.ErrMissingFixing)

	in.Fixings = map[string]float64{"2024-11-04": 3.1}
	out, err := prepare(t, in).Risk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-11-04", out.Instrument)
	assert.Less(t, out.Sensitivities["2Y"], 0.0)
	// The swap ends before the 2Y node, so the 5Y quote cannot reach it.
	assert.InDelta(t, 0.0, out.Sensitivities["5Y"], 1e-12)
}

func TestBump_KeyedByTenor(t *testing.T) {
	t.Parallel()

	out, err := prepare(t, rateInput()).Bump(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Curves, 3)
	assert.InDelta(t, 1.0, out.BumpBP, 1e-12) // config default
	assert.Equal(t, []string{"1Y", "2Y", "5Y"}, out.Tenors)
	require.Contains(t, out.Curves, "2Y")
	assert.Len(t, out.Curves["2Y"], 3)
}

func TestBuild_HazardCurve(t *testing.T) {
	t.Parallel()

	in := job.Input{
		CurveDate:     "2025-01-06",
		CurveType:     "hazard",
		Calendar:      "USD",
		DiscountCurve: map[string]float64{"1Y": 3.0, "10Y": 3.5},
		Instruments: []job.InstrumentInput{
			{Type: "cds", Tenor: "1Y", Quote: 60},
			{Type: "cds", Tenor: "5Y", Quote: 100},
		},
	}
	out, c, err := prepare(t, in).Build()
	require.NoError(t, err)
	assert.Equal(t, curve.HazardRate, c.Kind())
	// s ~ (1 - R) * h: 60bp at 40% recovery is about 1% hazard.
	assert.InDelta(t, 1.0, out.Nodes[0].Value, 0.05)
	assert.Less(t, out.Nodes[1].Factor, out.Nodes[0].Factor)

	recovery := 70.0
	in.Recovery = &recovery
	_, stressed, err := prepare(t, in).Build()
	require.NoError(t, err)
	assert.Greater(t, stressed.NodeValue(0), c.NodeValue(0))
}

func TestBuild_ZeroRecoveryIsNotDefaulted(t *testing.T) {
	t.Parallel()

	var in job.Input
	require.NoError(t, json.Unmarshal([]byte(`{
		"curve_date": "2025-01-06",
		"curve_type": "hazard",
		"calendar": "USD",
		"discount_curve": {"1Y": 3.0, "10Y": 3.5},
		"instruments": [{"type": "cds", "tenor": "1Y", "quote": 60, "recovery": 0}]
	}`), &in))

	out, _, err := prepare(t, in).Build()
	require.NoError(t, err)
	// With nothing recovered, 60bp of spread is about 0.6% hazard.
	assert.InDelta(t, 0.6, out.Nodes[0].Value, 0.05)
}

func TestPrepare_HolidaysStayWithTheJob(t *testing.T) {
	t.Parallel()

	// Spot for 2025-01-06 is 2025-01-08; a holiday there pushes every date out a day.
	in := rateInput()
	in.Holidays = []string{"2025-01-08"}
	out, _, err := prepare(t, in).Build()
	require.NoError(t, err)
	assert.Equal(t, "2026-01-09", out.Nodes[0].Date)

	out, _, err = prepare(t, rateInput()).Build()
	require.NoError(t, err)
	assert.Equal(t, "2026-01-08", out.Nodes[0].Date)
}

func TestPrepare_Rejects(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	tests := []struct {
		name   string
		mutate func(*job.Input)
		want   string
	}{
		{"bad date", func(in *job.Input) { in.CurveDate = "06/01/2025" }, "curve_date"},
		{"curve type", func(in *job.Input) { in.CurveType = "inflation" }, "curve_type"},
		{"calendar", func(in *job.Input) { in.Calendar = "MARS" }, "calendar"},
		{"holiday", func(in *job.Input) { in.Holidays = []string{"8 Jan"} }, "holidays"},
		{"half dated swap", func(in *job.Input) { in.Instruments[1].Effective = "2025-01-08" }, "together"},
		{"dated deposit", func(in *job.Input) {
			in.Instruments[0].Effective, in.Instruments[0].Termination = "2025-01-08", "2026-01-08"
		}, "swaps only"},
		{"no instruments", func(in *job.Input) { in.Instruments = nil }, "instruments"},
		{"instrument type", func(in *job.Input) { in.Instruments[1].Type = "future" }, "instruments[1]"},
		{"hazard without discount", func(in *job.Input) { in.CurveType = "hazard" }, "discount_curve"},
		{"discount tenor", func(in *job.Input) { in.DiscountCurve = map[string]float64{"soon": 1} }, "discount_curve"},
		{"unordered strip", func(in *job.Input) { in.Instruments[0].Tenor = "10Y" }, "strictly increasing"},
	}
	for _, tt := range tests {
		in := rateInput()
		tt.mutate(&in)
		_, err := job.Prepare(in, &cfg, discardLogger())
		require.Error(t, err, tt.name)
		assert.Contains(t, err.Error(), tt.want, tt.name)
	}
}
