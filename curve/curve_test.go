package curve_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mocurve/curve"
)

var anchor = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

func nodeDates() []time.Time {
	return []time.Time{anchor.AddDate(1, 0, 0), anchor.AddDate(2, 0, 0), anchor.AddDate(5, 0, 0)}
}

func TestNew_SeedsNaN(t *testing.T) {
	t.Parallel()

	c, err := curve.New(curve.InterestRate, anchor, nodeDates(), []string{"1Y", "2Y", "5Y"})
	require.NoError(t, err)
	require.Equal(t, 3, c.NodeCount())
	for _, v := range c.NodeValues() {
		assert.True(t, math.IsNaN(v))
	}
	assert.False(t, c.Calibrated())
	assert.Equal(t, "2Y", c.NodeLabel(1))
}

func TestNew_Rejects(t *testing.T) {
	t.Parallel()

	d := nodeDates()
	_, err := curve.New("BOGUS", anchor, d, nil)
	assert.Error(t, err)
	_, err = curve.New(curve.InterestRate, anchor, nil, nil)
	assert.Error(t, err)
	_, err = curve.New(curve.InterestRate, anchor, []time.Time{d[1], d[0]}, nil)
	assert.Error(t, err)
	_, err = curve.New(curve.InterestRate, d[0], d, nil)
	assert.Error(t, err)
	_, err = curve.New(curve.InterestRate, anchor, d, []string{"1Y"})
	assert.Error(t, err)
}

func TestSetNodeValueAndFlat(t *testing.T) {
	t.Parallel()

	c, err := curve.New(curve.HazardRate, anchor, nodeDates(), nil)
	require.NoError(t, err)

	assert.True(t, c.SetNodeValue(1, 0.02))
	assert.False(t, c.SetNodeValue(3, 0.02))
	assert.False(t, c.SetNodeValue(-1, 0.02))
	assert.False(t, c.SetNodeValue(0, math.NaN()))
	assert.False(t, c.SetNodeValue(0, math.Inf(1)))
	assert.Equal(t, 0.02, c.NodeValue(1))
	assert.True(t, math.IsNaN(c.NodeValue(0)))

	assert.False(t, c.SetFlatValue(math.NaN()))
	assert.True(t, c.SetFlatValue(0.01))
	assert.Equal(t, []float64{0.01, 0.01, 0.01}, c.NodeValues())
	assert.True(t, c.Calibrated())
}

func TestDF_LogLinear(t *testing.T) {
	t.Parallel()

	d := nodeDates()
	c, err := curve.NewFromValues(curve.InterestRate, anchor, d, nil, []float64{0.02, 0.03, 0.03})
	require.NoError(t, err)

	assert.Equal(t, 1.0, c.DF(anchor))

	t1 := d[0].Sub(anchor).Hours() / 24 / 365
	t2 := d[1].Sub(anchor).Hours() / 24 / 365
	assert.InDelta(t, math.Exp(-0.02*t1), c.DF(d[0]), 1e-15)

	// Halfway between the first two nodes in time, log DF is the average.
	mid := d[0].Add(d[1].Sub(d[0]) / 2)
	want := math.Exp(0.5 * (-0.02*t1 - 0.03*t2))
	assert.InDelta(t, want, c.DF(mid), 1e-12)

	// Before the first node the zero rate is flat.
	assert.InDelta(t, 0.02, c.ZeroRate(anchor.AddDate(0, 6, 0)), 1e-12)

	assert.True(t, math.IsNaN(c.Survival(d[0])))
}

func TestDF_UncalibratedNodePoisonsOnlyLaterDates(t *testing.T) {
	t.Parallel()

	d := nodeDates()
	c, err := curve.New(curve.InterestRate, anchor, d, nil)
	require.NoError(t, err)
	require.True(t, c.SetNodeValue(0, 0.02))

	assert.False(t, math.IsNaN(c.DF(d[0])))
	assert.True(t, math.IsNaN(c.DF(d[0].AddDate(0, 1, 0))))
}

func TestSurvival_PiecewiseFlat(t *testing.T) {
	t.Parallel()

	d := nodeDates()
	c, err := curve.NewFromValues(curve.HazardRate, anchor, d, nil, []float64{0.01, 0.02, 0.03})
	require.NoError(t, err)

	t1 := d[0].Sub(anchor).Hours() / 24 / 365
	t2 := d[1].Sub(anchor).Hours() / 24 / 365
	assert.Equal(t, 1.0, c.Survival(anchor))
	assert.InDelta(t, math.Exp(-0.01*t1), c.Survival(d[0]), 1e-15)
	assert.InDelta(t, math.Exp(-0.01*t1-0.02*(t2-t1)), c.Survival(d[1]), 1e-15)

	// Beyond the last node the last hazard is extended.
	far := d[2].AddDate(1, 0, 0)
	assert.Less(t, c.Survival(far), c.Survival(d[2]))
	assert.True(t, math.IsNaN(c.DF(d[0])))
}

func TestCloneAndStamp(t *testing.T) {
	t.Parallel()

	c, err := curve.NewFromValues(curve.InterestRate, anchor, nodeDates(), []string{"1Y", "2Y", "5Y"}, []float64{0.02, 0.025, 0.03})
	require.NoError(t, err)

	_, ok := c.Calibration()
	assert.False(t, ok)

	quotes := []float64{0.02, 0.025, 0.03}
	c.Stamp(curve.Calibration{Solver: "bracketing", Quotes: quotes, Bump: 0.0001, BumpedNode: 1})
	quotes[0] = 99 // stamp holds its own copy

	cal, ok := c.Calibration()
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, cal.ID)
	assert.False(t, cal.CalibratedAt.IsZero())
	assert.Equal(t, 0.02, cal.EffectiveQuote(0))
	assert.InDelta(t, 0.0251, cal.EffectiveQuote(1), 1e-15)

	clone := c.Clone()
	require.True(t, clone.SetNodeValue(0, 0.5))
	assert.Equal(t, 0.02, c.NodeValue(0))
	cloneCal, ok := clone.Calibration()
	require.True(t, ok)
	assert.Equal(t, cal.ID, cloneCal.ID)
}
