package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mocurve/config"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())

	solver, err := cfg.Calibrator(nil)
	require.NoError(t, err)
	assert.Equal(t, "bracketing-secant", solver.Name())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "curve.yaml", `
log_level: debug
solver:
  strategy: newton
  newton:
    init_guess: 0.02
    max_iterations: 20
scenario:
  workers: 4
  bump: 0.0005
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.02, cfg.Solver.Newton.InitGuess)
	assert.Equal(t, 20, cfg.Solver.Newton.MaxIterations)
	// Unset keys keep their defaults.
	assert.Equal(t, 1e-4, cfg.Solver.Newton.Increment)
	assert.Equal(t, 4, cfg.Scenario.Workers)

	solver, err := cfg.Calibrator(slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "newton", solver.Name())
	assert.Len(t, cfg.ScenarioOptions(nil), 3)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "curve.toml", `
[solver]
strategy = "bracketing"

[solver.bracketing]
method = "composite"
floor = -0.01
ceiling = 0.5
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	b := cfg.Solver.Bracketing
	assert.Equal(t, "composite", b.Method)
	assert.Equal(t, -0.01, b.Floor)
	assert.Equal(t, 0.5, b.Ceiling)
	assert.Equal(t, 100, b.MaxIterations)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MOCURVE_SOLVER_STRATEGY", "newton")
	t.Setenv("MOCURVE_NEWTON_DIFF_TOLERANCE", "1e-9")
	t.Setenv("MOCURVE_SCENARIO_FLAT", "true")
	t.Setenv("MOCURVE_BRACKETING_MAX_ITERATIONS", "not-a-number")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "newton", cfg.Solver.Strategy)
	assert.Equal(t, 1e-9, cfg.Solver.Newton.DiffTolerance)
	assert.True(t, cfg.Scenario.Flat)
	assert.Equal(t, 100, cfg.Solver.Bracketing.MaxIterations)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "curve.json", `{}`))
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "bad.yaml", "solver: [unterminated"))
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"strategy", func(c *config.Config) { c.Solver.Strategy = "brent" }},
		{"method", func(c *config.Config) { c.Solver.Bracketing.Method = "illinois" }},
		{"ceiling below floor", func(c *config.Config) { c.Solver.Bracketing.Ceiling = 0 }},
		{"tolerance", func(c *config.Config) { c.Solver.Bracketing.RelativeTolerance = 0 }},
		{"newton increment", func(c *config.Config) { c.Solver.Newton.Increment = 0 }},
		{"newton iterations", func(c *config.Config) { c.Solver.Newton.MaxIterations = -1 }},
		{"workers", func(c *config.Config) { c.Scenario.Workers = -2 }},
		{"log level", func(c *config.Config) { c.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		cfg := config.Defaults()
		tt.mutate(&cfg)
		assert.Error(t, cfg.Validate(), tt.name)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := config.NewLogger("warn", &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "node", 3)
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"node":3`)

	_, err = config.NewLogger("loud", &buf)
	assert.Error(t, err)
}
