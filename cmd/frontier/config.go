// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/convexfit/frontier/cnls"
	"github.com/convexfit/frontier/solver"
)

type Config struct {
	Data    DataConfig    `yaml:"data"`
	Model   ModelConfig   `yaml:"model"`
	Solver  SolverConfig  `yaml:"solver"`
	Logging LoggingConfig `yaml:"logging"`
}

type DataConfig struct {
	Output     string   `yaml:"output"`
	Inputs     []string `yaml:"inputs"`
	Bads       []string `yaml:"bads"`
	Contextual []string `yaml:"contextual"`
}

type ModelConfig struct {
	Error     string `yaml:"error"`     // additive | multiplicative
	Direction string `yaml:"direction"` // production | cost
	Scale     string `yaml:"scale"`     // vrs | crs
}

type SolverConfig struct {
	Address   string `yaml:"address"` // empty: solve in process
	Choice    string `yaml:"choice"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Solver.TimeoutMs) * time.Millisecond
}

// Regime maps the configured model strings onto the estimator's regime.
func (c *Config) Regime() (cnls.Regime, error) {
	var r cnls.Regime
	switch c.Model.Error {
	case "additive":
		r.Error = cnls.Additive
	case "multiplicative":
		r.Error = cnls.Multiplicative
	default:
		return r, fmt.Errorf("config: unknown error term %q", c.Model.Error)
	}
	switch c.Model.Direction {
	case "production":
		r.Direction = cnls.Production
	case "cost":
		r.Direction = cnls.Cost
	default:
		return r, fmt.Errorf("config: unknown direction %q", c.Model.Direction)
	}
	switch c.Model.Scale {
	case "vrs":
		r.Scale = cnls.Varying
	case "crs":
		r.Scale = cnls.Constant
	default:
		return r, fmt.Errorf("config: unknown scale %q", c.Model.Scale)
	}
	return r, nil
}

func (c *Config) Target() solver.Target {
	if c.Solver.Address == "" {
		return solver.Local()
	}
	return solver.Remote(c.Solver.Address)
}

func (c *Config) Level() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Data: DataConfig{
			Output: "output",
			Inputs: []string{"labor", "capital", "energy"},
			Bads:   []string{"so2"},
		},
		Model: ModelConfig{
			Error:     "additive",
			Direction: "production",
			Scale:     "vrs",
		},
		Solver: SolverConfig{
			Choice:    string(solver.Default),
			TimeoutMs: 300000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if _, err := cfg.Regime(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FRONTIER_SOLVER_ADDRESS"); v != "" {
		cfg.Solver.Address = v
	}
	if v := os.Getenv("FRONTIER_SOLVER_CHOICE"); v != "" {
		cfg.Solver.Choice = v
	}
	if v := os.Getenv("FRONTIER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
