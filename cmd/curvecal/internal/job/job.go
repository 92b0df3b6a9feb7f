// Package job turns a curvecal JSON input into a scenario generator run.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meenmo/mocurve/calendar"
	"github.com/meenmo/mocurve/calibration"
	"github.com/meenmo/mocurve/config"
	"github.com/meenmo/mocurve/curve"
	"github.com/meenmo/mocurve/instrument"
	"github.com/meenmo/mocurve/scenario"
	"github.com/meenmo/mocurve/utils"
)

// Job is a validated calibration run.
type Job struct {
	valuation time.Time
	env       calibration.Env
	gen       *scenario.Generator
	risk      instrument.Instrument
	riskMeas  string
	bump      float64
}

// Prepare parses the input, builds the instrument strip and the generator.
func Prepare(in Input, cfg *config.Config, logger *slog.Logger) (*Job, error) {
	valuation, err := utils.ParseDate(in.CurveDate)
	if err != nil {
		return nil, fmt.Errorf("invalid curve_date: %v", err)
	}
	kind, err := in.curveKind()
	if err != nil {
		return nil, err
	}
	id, err := calendar.Parse(in.Calendar)
	if err != nil {
		return nil, err
	}
	var cal calendar.BusinessCalendar = id
	if len(in.Holidays) > 0 {
		if cal, err = calendar.WithHolidays(id, in.Holidays...); err != nil {
			return nil, fmt.Errorf("holidays: %v", err)
		}
	}
	if len(in.Instruments) == 0 {
		return nil, fmt.Errorf("instruments is required")
	}

	strip := make([]instrument.Instrument, len(in.Instruments))
	quotes := make([]float64, len(in.Instruments))
	measures := make([]string, len(in.Instruments))
	for i, row := range in.Instruments {
		inst, err := row.build(valuation, cal, in.SpotLagDays)
		if err != nil {
			return nil, fmt.Errorf("instruments[%d]: %v", i, err)
		}
		strip[i] = inst
		quotes[i] = row.Quote * row.scale()
		measures[i] = row.measure()
	}

	disc, err := in.discountCurve(valuation)
	if err != nil {
		return nil, err
	}
	if kind == curve.HazardRate && disc == nil {
		return nil, fmt.Errorf("discount_curve is required for hazard curves")
	}

	solver, err := cfg.Calibrator(logger)
	if err != nil {
		return nil, err
	}
	opts := cfg.ScenarioOptions(logger)
	if in.Flat {
		opts = append(opts, scenario.WithFlat(true))
	}
	gen, err := scenario.New(kind, solver, strip, quotes, measures, opts...)
	if err != nil {
		return nil, err
	}

	bump := cfg.Scenario.Bump
	if in.BumpBP != 0 {
		bump = in.BumpBP * 1e-4
	}

	j := &Job{
		valuation: valuation,
		env: calibration.Env{
			Context: in.context(valuation),
			Aux:     instrument.CurveSet{Discount: disc},
		},
		gen:      gen,
		risk:     strip[len(strip)-1],
		riskMeas: measures[len(measures)-1],
		bump:     bump,
	}
	if in.RiskInstrument != nil {
		if j.risk, err = in.RiskInstrument.build(valuation, cal, in.SpotLagDays); err != nil {
			return nil, fmt.Errorf("risk_instrument: %v", err)
		}
		j.riskMeas = in.RiskInstrument.measure()
	}
	return j, nil
}

// NodeOutput is one calibrated node. Value is the zero rate or hazard rate in
// percent; Factor is the discount factor or survival probability at the node.
type NodeOutput struct {
	Label  string  `json:"label"`
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
	Factor float64 `json:"factor"`
}

type BuildOutput struct {
	CurveDate     string       `json:"curve_date"`
	CurveType     string       `json:"curve_type"`
	Solver        string       `json:"solver"`
	CalibrationID string       `json:"calibration_id"`
	Nodes         []NodeOutput `json:"nodes"`
	Error         string       `json:"error,omitempty"`
}

// BumpOutput holds one curve per bumped tenor. Tenors lists the keys of Curves
// in strip order.
type BumpOutput struct {
	CurveDate string                  `json:"curve_date"`
	BumpBP    float64                 `json:"bump_bp"`
	Tenors    []string                `json:"tenors"`
	Curves    map[string][]NodeOutput `json:"curves"`
	Error     string                  `json:"error,omitempty"`
}

type RiskOutput struct {
	CurveDate  string  `json:"curve_date"`
	BumpBP     float64 `json:"bump_bp"`
	Instrument string  `json:"instrument"`
	Measure    string  `json:"measure"`
	// Sensitivities is the measure change per tenor, in bp of the measure.
	Sensitivities map[string]float64 `json:"sensitivities_bp"`
	Error         string             `json:"error,omitempty"`
}

// BaseCurve bootstraps the unbumped curve.
func (j *Job) BaseCurve() (*curve.Curve, error) {
	return j.gen.BuildBaseCurve(j.env, 0)
}

func (j *Job) Build() (*BuildOutput, *curve.Curve, error) {
	c, err := j.BaseCurve()
	if err != nil {
		return nil, nil, err
	}
	out := &BuildOutput{
		CurveDate: j.valuation.Format(utils.DateLayout),
		CurveType: string(j.gen.Kind()),
		Solver:    j.gen.Solver().Name(),
		Nodes:     nodes(c),
	}
	if cal, ok := c.Calibration(); ok {
		out.CalibrationID = cal.ID.String()
	}
	return out, c, nil
}

func (j *Job) Bump(ctx context.Context) (*BumpOutput, error) {
	curves, err := j.gen.BuildTenorBumpedCurveMap(ctx, j.env, j.bump)
	if err != nil {
		return nil, err
	}
	out := &BumpOutput{
		CurveDate: j.valuation.Format(utils.DateLayout),
		BumpBP:    utils.RoundTo(j.bump*1e4, 8),
		Tenors:    j.gen.Labels(),
		Curves:    make(map[string][]NodeOutput, len(curves)),
	}
	for label, c := range curves {
		out.Curves[label] = nodes(c)
	}
	return out, nil
}

func (j *Job) Risk(ctx context.Context) (*RiskOutput, error) {
	sens, err := j.gen.TenorSensitivities(ctx, j.env, j.bump, j.risk, j.riskMeas)
	if err != nil {
		return nil, err
	}
	out := &RiskOutput{
		CurveDate:     j.valuation.Format(utils.DateLayout),
		BumpBP:        utils.RoundTo(j.bump*1e4, 8),
		Instrument:    j.risk.Label(),
		Measure:       j.riskMeas,
		Sensitivities: make(map[string]float64, len(sens)),
	}
	for label, v := range sens {
		out.Sensitivities[label] = v * 1e4
	}
	return out, nil
}

func nodes(c *curve.Curve) []NodeOutput {
	out := make([]NodeOutput, c.NodeCount())
	for i := range out {
		d := c.NodeDate(i)
		factor := c.DF(d)
		if c.Kind() == curve.HazardRate {
			factor = c.Survival(d)
		}
		out[i] = NodeOutput{
			Label:  c.NodeLabel(i),
			Date:   d.Format(utils.DateLayout),
			Value:  c.NodeValue(i) * 100,
			Factor: factor,
		}
	}
	return out
}
