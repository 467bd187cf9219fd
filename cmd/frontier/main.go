// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command frontier estimates a convex production or cost frontier with
// weakly disposable undesirable outputs from a table of observed units,
// and writes the fitted hyperplane coefficients as CSV.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/convexfit/frontier/cnls"
	"github.com/convexfit/frontier/dataset"
	"github.com/convexfit/frontier/solver"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	dataPath := flag.String("data", "", "observation CSV (default: bundled plant data)")
	outPath := flag.String("out", "", "result CSV (default: stdout)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg, err := Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := cfg.Level()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	table, err := loadTable(*dataPath)
	if err != nil {
		logger.Error("failed to load observations", "error", err)
		os.Exit(1)
	}

	out := io.Writer(os.Stdout)
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Error("failed to create output file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := run(context.Background(), cfg, table, out, logger); err != nil {
		logger.Error("estimation failed", "error", err)
		os.Exit(1)
	}
}

func loadTable(path string) (*dataset.Table, error) {
	if path == "" {
		return dataset.Plants(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadCSV(f)
}

func run(ctx context.Context, cfg *Config, table *dataset.Table, out io.Writer, logger *slog.Logger) error {
	reg, err := cfg.Regime()
	if err != nil {
		return err
	}

	y, err := table.Cols(cfg.Data.Output)
	if err != nil {
		return err
	}
	x, err := table.Cols(cfg.Data.Inputs...)
	if err != nil {
		return err
	}
	b, err := table.Cols(cfg.Data.Bads...)
	if err != nil {
		return err
	}
	var z mat.Matrix
	if len(cfg.Data.Contextual) > 0 {
		zd, err := table.Cols(cfg.Data.Contextual...)
		if err != nil {
			return err
		}
		z = zd
	}

	est, err := cnls.New(y, x, b, z, reg, cnls.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	logger.Info("estimating frontier",
		"units", table.Len(),
		"regime", reg.String(),
		"target", cfg.Target().String(),
		"choice", cfg.Solver.Choice)

	if err := est.Optimize(ctx, cfg.Target(), solver.Choice(cfg.Solver.Choice)); err != nil {
		return err
	}

	iters, _ := est.Iterations()
	elapsed, _ := est.Elapsed()
	rows, _ := est.ConstraintCount()
	logger.Info("converged", "iterations", iters, "elapsed", elapsed, "constraints", rows)

	if z != nil {
		lam, err := est.Lambda()
		if err != nil {
			return err
		}
		logger.Info("contextual coefficients", "lambda", lam)
	}

	return writeResults(out, cfg, reg, est)
}

// writeResults emits one CSV row per unit with the fitted hyperplane
// coefficients, the residual and the frontier estimate.
func writeResults(out io.Writer, cfg *Config, reg cnls.Regime, est *cnls.WeakCNLS) error {
	beta, err := est.Beta()
	if err != nil {
		return err
	}
	delta, err := est.Delta()
	if err != nil {
		return err
	}
	eps, err := est.Residuals()
	if err != nil {
		return err
	}
	front, err := est.Frontier()
	if err != nil {
		return err
	}
	var alpha []float64
	if reg.Scale == cnls.Varying {
		alpha, err = est.Alpha()
		if err != nil {
			return err
		}
	}

	header := []string{"unit"}
	if alpha != nil {
		header = append(header, "alpha")
	}
	for _, name := range cfg.Data.Inputs {
		header = append(header, "beta_"+name)
	}
	for _, name := range cfg.Data.Bads {
		header = append(header, "delta_"+name)
	}
	header = append(header, "residual", "frontier")

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	n := len(eps)
	for i := 0; i < n; i++ {
		row := []string{strconv.Itoa(i + 1)}
		if alpha != nil {
			row = append(row, formatFloat(alpha[i]))
		}
		for j := 0; j < len(cfg.Data.Inputs); j++ {
			row = append(row, formatFloat(beta.At(i, j)))
		}
		for j := 0; j < len(cfg.Data.Bads); j++ {
			row = append(row, formatFloat(delta.At(i, j)))
		}
		row = append(row, formatFloat(eps[i]), formatFloat(front[i]))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
