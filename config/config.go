// Package config loads solver and scenario settings from YAML or TOML files
// with MOCURVE_* environment overrides.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meenmo/mocurve/calibration"
	"github.com/meenmo/mocurve/scenario"
)

const (
	StrategyBracketing = "bracketing"
	StrategyNewton     = "newton"

	// DefaultBump is the quote bump used for bucketed risk (1bp).
	DefaultBump = 0.0001
)

type Config struct {
	LogLevel string         `yaml:"log_level" toml:"log_level" validate:"oneof=debug info warn error"`
	Solver   SolverConfig   `yaml:"solver" toml:"solver"`
	Scenario ScenarioConfig `yaml:"scenario" toml:"scenario"`
}

type SolverConfig struct {
	Strategy   string           `yaml:"strategy" toml:"strategy" validate:"oneof=bracketing newton"`
	Bracketing BracketingConfig `yaml:"bracketing" toml:"bracketing"`
	Newton     NewtonConfig     `yaml:"newton" toml:"newton"`
}

type BracketingConfig struct {
	Method            string  `yaml:"method" toml:"method" validate:"oneof=secant bisection composite"`
	Floor             float64 `yaml:"floor" toml:"floor"`
	Ceiling           float64 `yaml:"ceiling" toml:"ceiling" validate:"gtfield=Floor"`
	RelativeTolerance float64 `yaml:"relative_tolerance" toml:"relative_tolerance" validate:"gt=0"`
	MaxIterations     int     `yaml:"max_iterations" toml:"max_iterations" validate:"gt=0"`
}

type NewtonConfig struct {
	InitGuess     float64 `yaml:"init_guess" toml:"init_guess"`
	Increment     float64 `yaml:"increment" toml:"increment" validate:"ne=0"`
	DiffTolerance float64 `yaml:"diff_tolerance" toml:"diff_tolerance" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" toml:"max_iterations" validate:"gt=0"`
}

type ScenarioConfig struct {
	// Workers bounds concurrent tenor-bumped builds; 0 means GOMAXPROCS.
	Workers int     `yaml:"workers" toml:"workers" validate:"gte=0"`
	Flat    bool    `yaml:"flat" toml:"flat"`
	Bump    float64 `yaml:"bump" toml:"bump" validate:"ne=0"`
}

// Defaults mirrors the solver package defaults.
func Defaults() Config {
	b := calibration.DefaultBracketingConfig()
	n := calibration.DefaultNewtonConfig()
	return Config{
		LogLevel: "info",
		Solver: SolverConfig{
			Strategy: StrategyBracketing,
			Bracketing: BracketingConfig{
				Method:            string(b.Method),
				Floor:             b.Floor,
				Ceiling:           b.Ceiling,
				RelativeTolerance: b.RelativeTolerance,
				MaxIterations:     b.MaxIterations,
			},
			Newton: NewtonConfig{
				InitGuess:     n.InitGuess,
				Increment:     n.Increment,
				DiffTolerance: n.DiffTolerance,
				MaxIterations: n.MaxIterations,
			},
		},
		Scenario: ScenarioConfig{Bump: DefaultBump},
	}
}

var validate = validator.New()

// Validate checks field constraints, then the solver's own invariants.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Calibrator(nil); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Calibrator builds the configured solver.
func (c *Config) Calibrator(logger *slog.Logger) (calibration.Calibrator, error) {
	opts := []calibration.Option{calibration.WithLogger(logger)}
	switch c.Solver.Strategy {
	case StrategyNewton:
		n := c.Solver.Newton
		return calibration.NewNewtonRaphson(calibration.NewtonConfig{
			InitGuess:     n.InitGuess,
			Increment:     n.Increment,
			DiffTolerance: n.DiffTolerance,
			MaxIterations: n.MaxIterations,
		}, opts...)
	case StrategyBracketing:
		b := c.Solver.Bracketing
		return calibration.NewBracketing(calibration.BracketingConfig{
			Method:            calibration.Method(b.Method),
			Floor:             b.Floor,
			Ceiling:           b.Ceiling,
			RelativeTolerance: b.RelativeTolerance,
			MaxIterations:     b.MaxIterations,
		}, opts...)
	default:
		return nil, fmt.Errorf("unknown solver strategy %q", c.Solver.Strategy)
	}
}

// ScenarioOptions returns the generator options the config describes.
func (c *Config) ScenarioOptions(logger *slog.Logger) []scenario.Option {
	return []scenario.Option{
		scenario.WithWorkers(c.Scenario.Workers),
		scenario.WithFlat(c.Scenario.Flat),
		scenario.WithLogger(logger),
	}
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log level %q", s)
	}
	return lvl, nil
}

// NewLogger returns a JSON logger writing to w at the given level.
func NewLogger(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
