package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file on top of Defaults and
// applies MOCURVE_* environment overrides, loading .env first if present. An
// empty path skips the file. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
			}
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("config.Load: unsupported config format %q", filepath.Ext(path))
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "MOCURVE_LOG_LEVEL")

	setStr(&cfg.Solver.Strategy, "MOCURVE_SOLVER_STRATEGY")

	setStr(&cfg.Solver.Bracketing.Method, "MOCURVE_BRACKETING_METHOD")
	setFloat64(&cfg.Solver.Bracketing.Floor, "MOCURVE_BRACKETING_FLOOR")
	setFloat64(&cfg.Solver.Bracketing.Ceiling, "MOCURVE_BRACKETING_CEILING")
	setFloat64(&cfg.Solver.Bracketing.RelativeTolerance, "MOCURVE_BRACKETING_RELATIVE_TOLERANCE")
	setInt(&cfg.Solver.Bracketing.MaxIterations, "MOCURVE_BRACKETING_MAX_ITERATIONS")

	setFloat64(&cfg.Solver.Newton.InitGuess, "MOCURVE_NEWTON_INIT_GUESS")
	setFloat64(&cfg.Solver.Newton.Increment, "MOCURVE_NEWTON_INCREMENT")
	setFloat64(&cfg.Solver.Newton.DiffTolerance, "MOCURVE_NEWTON_DIFF_TOLERANCE")
	setInt(&cfg.Solver.Newton.MaxIterations, "MOCURVE_NEWTON_MAX_ITERATIONS")

	setInt(&cfg.Scenario.Workers, "MOCURVE_SCENARIO_WORKERS")
	setBool(&cfg.Scenario.Flat, "MOCURVE_SCENARIO_FLAT")
	setFloat64(&cfg.Scenario.Bump, "MOCURVE_SCENARIO_BUMP")
}

// Each setter only touches dst when the variable is set, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
