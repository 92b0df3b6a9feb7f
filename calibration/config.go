package calibration

import (
	"fmt"

	"github.com/meenmo/mocurve/utils"
)

// Method selects how the bracketing solver picks its next trial value.
type Method string

const (
	// Secant interpolates linearly between the bracket endpoints (false position).
	Secant Method = "secant"
	// Bisection takes the midpoint of the bracket.
	Bisection Method = "bisection"
	// Composite averages the secant estimate and the midpoint.
	Composite Method = "composite"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m == Secant || m == Bisection || m == Composite
}

// BracketingConfig parameterizes the bracketing solver.
type BracketingConfig struct {
	Method            Method
	Floor             float64
	Ceiling           float64
	RelativeTolerance float64
	MaxIterations     int
}

// DefaultBracketingConfig returns the rate-bootstrapping defaults.
func DefaultBracketingConfig() BracketingConfig {
	return BracketingConfig{
		Method:            Secant,
		Floor:             0.0001,
		Ceiling:           1.0,
		RelativeTolerance: 1e-6,
		MaxIterations:     100,
	}
}

func (c BracketingConfig) Validate() error {
	switch {
	case !c.Method.Valid():
		return fmt.Errorf("BracketingConfig: unknown method %q", c.Method)
	case !utils.IsFinite(c.Floor) || !utils.IsFinite(c.Ceiling):
		return fmt.Errorf("BracketingConfig: floor %v and ceiling %v must be finite", c.Floor, c.Ceiling)
	case c.Floor >= c.Ceiling:
		return fmt.Errorf("BracketingConfig: floor %v must be below ceiling %v", c.Floor, c.Ceiling)
	case !utils.IsFinite(c.RelativeTolerance) || c.RelativeTolerance <= 0:
		return fmt.Errorf("BracketingConfig: relative tolerance must be positive, got %v", c.RelativeTolerance)
	case c.MaxIterations <= 0:
		return fmt.Errorf("BracketingConfig: max iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}

// NewtonConfig parameterizes the Newton-Raphson solver.
type NewtonConfig struct {
	InitGuess     float64
	Increment     float64
	DiffTolerance float64
	MaxIterations int
}

// DefaultNewtonConfig returns the rate-bootstrapping defaults.
func DefaultNewtonConfig() NewtonConfig {
	return NewtonConfig{
		InitGuess:     0.03,
		Increment:     1e-4,
		DiffTolerance: 1e-6,
		MaxIterations: 50,
	}
}

func (c NewtonConfig) Validate() error {
	switch {
	case !utils.IsFinite(c.InitGuess):
		return fmt.Errorf("NewtonConfig: initial guess must be finite, got %v", c.InitGuess)
	case !utils.IsFinite(c.Increment) || c.Increment == 0:
		return fmt.Errorf("NewtonConfig: increment must be finite and non-zero, got %v", c.Increment)
	case !utils.IsFinite(c.DiffTolerance) || c.DiffTolerance <= 0:
		return fmt.Errorf("NewtonConfig: diff tolerance must be positive, got %v", c.DiffTolerance)
	case c.MaxIterations <= 0:
		return fmt.Errorf("NewtonConfig: max iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}
