// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cnls estimates shape-constrained production and cost frontiers
// by convex nonparametric least squares, extended with weakly disposable
// undesirable outputs and optional contextual variables.
//
// Enforcing every pairwise concavity constraint is quadratic in the number
// of units, so the estimator activates constraints lazily: a sweet-spot
// preselection seeds the first-pass model, and after every solve a
// violation scan adds the most-violated pairs to the constraint set. The
// run converges when the worst concavity violation and the worst
// disposability violation both drop to tolerance. The activated set only
// ever grows, which rules out cycling.
package cnls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/convexfit/frontier/program"
	"github.com/convexfit/frontier/solver"
	"github.com/convexfit/frontier/sweet"
)

var (
	// ErrNotOptimized marks an accessor called before a successful Optimize.
	ErrNotOptimized = errors.New("cnls: model not optimized")
	// ErrNoContextual marks a contextual accessor on a run without z.
	ErrNoContextual = errors.New("cnls: no contextual variable")
	// ErrNoIntercept marks an intercept accessor under constant returns.
	ErrNoIntercept = errors.New("cnls: no intercept under constant returns to scale")
	// ErrSolve marks a run aborted by a solver failure.
	ErrSolve = errors.New("cnls: solver failure")
)

// RunStatus is the lifecycle flag of an estimation run.
type RunStatus int

const (
	// Unsolved: constructed, or aborted before convergence.
	Unsolved RunStatus = iota
	// Solved: Optimize converged; accessors are live.
	Solved
)

// WeakCNLS is one estimation run. It owns its copies of the data, the
// activated-constraint state and the fitted parameters; nothing is shared
// between runs, so independent runs may proceed concurrently as long as
// the solve oracle is reentrant. A single run is strictly sequential:
// every iteration depends on the fitted parameters of the previous solve.
type WeakCNLS struct {
	data   *data
	regime Regime
	seed   [][]bool
	log    *slog.Logger

	active     *mask
	activeWeak *mask

	status     RunStatus
	par        params
	iterations int
	rows       int
	elapsed    time.Duration
}

// Option adjusts a run at construction.
type Option func(*WeakCNLS)

// WithLogger routes convergence diagnostics to l. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(w *WeakCNLS) { w.log = l }
}

// New validates the observation set against the regime and prepares an
// unsolved run. y is the output column, x the n×K inputs, b the n×L
// undesirable outputs; z may be nil when no contextual variables are
// observed. The sweet-spot seed is computed here, once, from the stacked
// covariates.
func New(y, x, b, z mat.Matrix, reg Regime, opts ...Option) (*WeakCNLS, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	d, err := newData(y, x, b, z)
	if err != nil {
		return nil, err
	}
	if reg.Error == Multiplicative {
		for i, v := range d.y {
			if v <= 0 {
				return nil, fmt.Errorf("%w: y[%d] = %v, multiplicative error needs positive output", ErrValue, i, v)
			}
		}
	}
	w := &WeakCNLS{
		data:       d,
		regime:     reg,
		seed:       sweet.Spot(d.covariates()),
		log:        slog.New(slog.DiscardHandler),
		active:     newMask(d.n),
		activeWeak: newMask(d.n),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Optimize estimates the frontier. It solves the sweet-spot seeded model,
// then alternates violation scans and re-solves with the newly activated
// cutting planes until both convergence statistics fall to tolerance.
// Any non-optimal solve aborts the run with ErrSolve and keeps no partial
// estimate. ctx is passed through to the solve oracle, which is the only
// blocking call.
func (w *WeakCNLS) Optimize(ctx context.Context, target solver.Target, choice solver.Choice) error {
	oracle, err := solver.New(target, choice)
	if err != nil {
		return err
	}
	start := time.Now()
	lo := newLayout(w.data, w.regime)

	prog := build(w.data, w.regime, w.seed, w.active, w.activeWeak)
	sol, err := w.solve(ctx, oracle, prog)
	if err != nil {
		return err
	}
	w.par = lo.extract(sol.X)

	count := 0
	for {
		conc := scanConcave(w.data, w.regime, w.par, w.active)
		weak := scanWeak(w.data, w.regime, w.par, w.activeWeak)
		w.log.Debug("violation scan",
			"iteration", count,
			"concavity", conc,
			"disposability", weak,
			"active", w.active.count(),
			"activeweak", w.activeWeak.count())
		if conc <= tolerance && weak <= tolerance {
			break
		}
		prog = build(w.data, w.regime, w.seed, w.active, w.activeWeak)
		if sol, err = w.solve(ctx, oracle, prog); err != nil {
			return err
		}
		w.par = lo.extract(sol.X)
		count++
	}

	w.iterations = count
	w.rows = prog.NumRows()
	w.elapsed = time.Since(start)
	w.status = Solved
	w.log.Debug("converged", "iterations", count, "elapsed", w.elapsed)
	return nil
}

func (w *WeakCNLS) solve(ctx context.Context, oracle solver.Interface, p *program.Program) (*solver.Solution, error) {
	sol, err := oracle.Solve(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSolve, err)
	}
	if !sol.IsOptimal() {
		return nil, fmt.Errorf("%w: %s", ErrSolve, sol.Status)
	}
	return sol, nil
}

// Status reports whether the run has been solved. It never errors and has
// no side effects.
func (w *WeakCNLS) Status() RunStatus { return w.status }

func (w *WeakCNLS) gate() error {
	if w.status != Solved {
		return ErrNotOptimized
	}
	return nil
}

// Alpha returns the fitted per-unit intercepts. Constant returns to scale
// defines no intercept, so Alpha fails with ErrNoIntercept there.
func (w *WeakCNLS) Alpha() ([]float64, error) {
	if err := w.gate(); err != nil {
		return nil, err
	}
	if w.regime.Scale == Constant {
		return nil, ErrNoIntercept
	}
	return append([]float64(nil), w.par.alpha...), nil
}

// Beta returns the fitted slope coefficients as an n×K table.
func (w *WeakCNLS) Beta() (*mat.Dense, error) {
	if err := w.gate(); err != nil {
		return nil, err
	}
	return table(w.par.beta), nil
}

// Delta returns the fitted undesirable-output coefficients as an n×L
// table.
func (w *WeakCNLS) Delta() (*mat.Dense, error) {
	if err := w.gate(); err != nil {
		return nil, err
	}
	return table(w.par.delta), nil
}

// Residuals returns the fitted composite error per unit.
func (w *WeakCNLS) Residuals() ([]float64, error) {
	if err := w.gate(); err != nil {
		return nil, err
	}
	return append([]float64(nil), w.par.eps...), nil
}

// Lambda returns the fitted contextual coefficients and fails with
// ErrNoContextual when the run was constructed without z.
func (w *WeakCNLS) Lambda() ([]float64, error) {
	if err := w.gate(); err != nil {
		return nil, err
	}
	if w.data.z == nil {
		return nil, ErrNoContextual
	}
	return append([]float64(nil), w.par.lambda...), nil
}

// Frontier returns the estimated frontier output per unit. Additive
// error: y − ε. Multiplicative error: frontier + 1, and when contextual
// variables are present the contextual effect is divided out of the
// observed output instead: y/exp(ε + λ·z) − 1.
func (w *WeakCNLS) Frontier() ([]float64, error) {
	if err := w.gate(); err != nil {
		return nil, err
	}
	f := make([]float64, w.data.n)
	switch {
	case w.regime.Error == Additive:
		for i := range f {
			f[i] = w.data.y[i] - w.par.eps[i]
		}
	case w.data.z == nil:
		for i := range f {
			f[i] = w.par.front[i] + 1
		}
	default:
		for i := range f {
			f[i] = w.data.y[i]/math.Exp(w.par.eps[i]+floats.Dot(w.par.lambda, w.data.z[i])) - 1
		}
	}
	return f, nil
}

// Iterations reports how many re-solves the outer loop needed after the
// first pass.
func (w *WeakCNLS) Iterations() (int, error) {
	if err := w.gate(); err != nil {
		return 0, err
	}
	return w.iterations, nil
}

// Elapsed reports the wall-clock duration of the converged Optimize.
func (w *WeakCNLS) Elapsed() (time.Duration, error) {
	if err := w.gate(); err != nil {
		return 0, err
	}
	return w.elapsed, nil
}

// ConstraintCount reports the number of constraint rows in the final
// model.
func (w *WeakCNLS) ConstraintCount() (int, error) {
	if err := w.gate(); err != nil {
		return 0, err
	}
	return w.rows, nil
}

func table(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return m
}
