// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnls

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/convexfit/frontier/program"
	"github.com/convexfit/frontier/solver"
)

func fill(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestNewValidation(t *testing.T) {
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	b := mat.NewDense(3, 1, []float64{1, 1, 1})

	_, err := New(y, x, b, nil, Regime{Error: ErrorTerm(7)})
	require.ErrorIs(t, err, ErrRegime)

	_, err = New(y, mat.NewDense(2, 1, []float64{1, 2}), b, nil, Regime{})
	require.ErrorIs(t, err, ErrShape)

	_, err = New(y, x, nil, nil, Regime{})
	require.ErrorIs(t, err, ErrShape)

	_, err = New(mat.NewDense(3, 2, make([]float64, 6)), x, b, nil, Regime{})
	require.ErrorIs(t, err, ErrShape)

	_, err = New(y, mat.NewDense(3, 1, []float64{1, math.NaN(), 3}), b, nil, Regime{})
	require.ErrorIs(t, err, ErrValue)

	// Multiplicative error works on log output, so outputs must be positive.
	_, err = New(mat.NewDense(3, 1, []float64{0, 2, 3}), x, b, nil, Regime{Error: Multiplicative})
	require.ErrorIs(t, err, ErrValue)
}

func TestAccessorsUnsolved(t *testing.T) {
	y := mat.NewDense(2, 1, []float64{1, 2})
	x := mat.NewDense(2, 1, []float64{1, 2})
	b := mat.NewDense(2, 1, []float64{1, 1})
	w, err := New(y, x, b, nil, Regime{})
	require.NoError(t, err)

	assert.Equal(t, Unsolved, w.Status())
	calls := map[string]func() error{
		"Alpha":           func() error { _, err := w.Alpha(); return err },
		"Beta":            func() error { _, err := w.Beta(); return err },
		"Delta":           func() error { _, err := w.Delta(); return err },
		"Residuals":       func() error { _, err := w.Residuals(); return err },
		"Lambda":          func() error { _, err := w.Lambda(); return err },
		"Frontier":        func() error { _, err := w.Frontier(); return err },
		"Iterations":      func() error { _, err := w.Iterations(); return err },
		"Elapsed":         func() error { _, err := w.Elapsed(); return err },
		"ConstraintCount": func() error { _, err := w.ConstraintCount(); return err },
	}
	for name, call := range calls {
		assert.ErrorIs(t, call(), ErrNotOptimized, name)
	}
}

func TestOptimizeIdenticalUnits(t *testing.T) {
	const n = 5
	y := mat.NewDense(n, 1, fill(n, 2))
	x := mat.NewDense(n, 1, fill(n, 1))
	b := mat.NewDense(n, 1, fill(n, 1))

	w, err := New(y, x, b, nil, Regime{Additive, Production, Varying})
	require.NoError(t, err)
	require.NoError(t, w.Optimize(context.Background(), solver.Local(), solver.Default))
	assert.Equal(t, Solved, w.Status())

	// Identical units admit an exact fit, and the minimum-norm hyperplane
	// splits the output evenly across intercept, input and bad.
	alpha, err := w.Alpha()
	require.NoError(t, err)
	beta, err := w.Beta()
	require.NoError(t, err)
	delta, err := w.Delta()
	require.NoError(t, err)
	eps, err := w.Residuals()
	require.NoError(t, err)
	front, err := w.Frontier()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 2.0/3, alpha[i], 1e-6)
		assert.InDelta(t, 2.0/3, beta.At(i, 0), 1e-6)
		assert.InDelta(t, 2.0/3, delta.At(i, 0), 1e-6)
		assert.InDelta(t, 0, eps[i], 1e-6)
		assert.InDelta(t, 2, front[i], 1e-6)
	}

	iters, err := w.Iterations()
	require.NoError(t, err)
	assert.Equal(t, 0, iters)

	// Identical covariates put every pair in the sweet spot: 5 regression
	// + 5 Afriat + 5 disposability + 20 seeded planes.
	rows, err := w.ConstraintCount()
	require.NoError(t, err)
	assert.Equal(t, 35, rows)

	elapsed, err := w.Elapsed()
	require.NoError(t, err)
	assert.Greater(t, elapsed, time.Duration(0))

	_, err = w.Lambda()
	assert.ErrorIs(t, err, ErrNoContextual)
}

func TestOptimizeMultiplicative(t *testing.T) {
	const n = 5
	y := mat.NewDense(n, 1, fill(n, 2))
	x := mat.NewDense(n, 1, fill(n, 1))
	b := mat.NewDense(n, 1, fill(n, 1))

	w, err := New(y, x, b, nil, Regime{Multiplicative, Production, Varying})
	require.NoError(t, err)
	require.NoError(t, w.Optimize(context.Background(), solver.Local(), solver.Default))

	alpha, err := w.Alpha()
	require.NoError(t, err)
	eps, err := w.Residuals()
	require.NoError(t, err)
	front, err := w.Frontier()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 2.0/3, alpha[i], 1e-5)
		assert.InDelta(t, 0, eps[i], 1e-5)
		assert.InDelta(t, 2, front[i], 1e-5)
	}

	iters, err := w.Iterations()
	require.NoError(t, err)
	assert.Equal(t, 0, iters)
	rows, err := w.ConstraintCount()
	require.NoError(t, err)
	assert.Equal(t, 40, rows) // 35 linear rows plus 5 log rows
}

func TestOptimizeConstantScale(t *testing.T) {
	const n = 5
	y := mat.NewDense(n, 1, fill(n, 2))
	x := mat.NewDense(n, 1, fill(n, 1))
	b := mat.NewDense(n, 1, fill(n, 1))

	w, err := New(y, x, b, nil, Regime{Additive, Production, Constant})
	require.NoError(t, err)
	require.NoError(t, w.Optimize(context.Background(), solver.Local(), solver.Default))

	_, err = w.Alpha()
	assert.ErrorIs(t, err, ErrNoIntercept)

	beta, err := w.Beta()
	require.NoError(t, err)
	delta, err := w.Delta()
	require.NoError(t, err)
	eps, err := w.Residuals()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 1, beta.At(i, 0), 1e-5)
		assert.InDelta(t, 1, delta.At(i, 0), 1e-5)
		assert.InDelta(t, 0, eps[i], 1e-5)
	}
}

func TestOptimizeCost(t *testing.T) {
	const n = 5
	y := mat.NewDense(n, 1, fill(n, 2))
	x := mat.NewDense(n, 1, fill(n, 1))
	b := mat.NewDense(n, 1, fill(n, 1))

	w, err := New(y, x, b, nil, Regime{Additive, Cost, Varying})
	require.NoError(t, err)
	require.NoError(t, w.Optimize(context.Background(), solver.Local(), solver.Default))

	// The cost-side disposability rows force α+β·x ≤ 0, so the whole fit
	// moves onto the bad's coefficient.
	alpha, err := w.Alpha()
	require.NoError(t, err)
	beta, err := w.Beta()
	require.NoError(t, err)
	delta, err := w.Delta()
	require.NoError(t, err)
	eps, err := w.Residuals()
	require.NoError(t, err)
	front, err := w.Frontier()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0, alpha[i], 1e-5)
		assert.InDelta(t, 0, beta.At(i, 0), 1e-5)
		assert.InDelta(t, 2, delta.At(i, 0), 1e-5)
		assert.InDelta(t, 0, eps[i], 1e-5)
		assert.InDelta(t, 2, front[i], 1e-5)
	}
}

func TestOptimizeActivation(t *testing.T) {
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	b := mat.NewDense(3, 1, []float64{1, 1, 1})

	// Variable order: alpha 0–2, beta 3–5, delta 6–8, epsilon 9–11. The
	// first scripted solution gives unit 2 a negative slope, violating
	// concavity and disposability against it; the second is clean.
	first := make([]float64, 12)
	copy(first[3:6], []float64{1, 1, -1})
	clean := make([]float64, 12)
	copy(clean[3:6], []float64{1, 1, 1})
	copy(clean[9:12], []float64{0.1, -0.2, 0.3})

	responses := [][]float64{first, clean}
	var rows []int
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req struct {
			ID      string           `json:"id"`
			Choice  string           `json:"choice"`
			Program *program.Program `json:"program"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "mosek", req.Choice)
		assert.NotEmpty(t, req.ID)
		rows = append(rows, req.Program.NumRows())

		sol := responses[0]
		responses = responses[1:]
		assert.NoError(t, json.NewEncoder(rw).Encode(solver.Solution{
			Status: solver.Optimal, X: sol, Objective: 0.14, Iterations: 1,
		}))
	}))
	defer srv.Close()

	w, err := New(y, x, b, nil, Regime{Additive, Production, Varying})
	require.NoError(t, err)
	require.NoError(t, w.Optimize(context.Background(), solver.Remote(srv.URL), "mosek"))

	// One activation round: the rebuilt model carries the new concavity
	// planes (0,2) and (1,2) plus disposability planes against unit 2.
	assert.Equal(t, []int{13, 17}, rows)

	iters, err := w.Iterations()
	require.NoError(t, err)
	assert.Equal(t, 1, iters)
	count, err := w.ConstraintCount()
	require.NoError(t, err)
	assert.Equal(t, 17, count)

	eps, err := w.Residuals()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, -0.2, 0.3}, eps)
	front, err := w.Frontier()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.9, 2.2, 2.7}, front, 1e-12)
}

func TestOptimizeContextualFrontier(t *testing.T) {
	y := mat.NewDense(3, 1, []float64{2, 3, 4})
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	b := mat.NewDense(3, 1, []float64{1, 1, 1})
	z := mat.NewDense(3, 2, []float64{
		1, 0.5,
		0, 1,
		1, 1,
	})

	// Variable order: alpha 0–2, beta 3–5, delta 6–8, epsilon 9–11,
	// frontier 12–14, lambda 15–16.
	sol := make([]float64, 17)
	copy(sol[3:6], []float64{1, 1, 1})
	copy(sol[9:12], []float64{0.1, 0.2, -0.1})
	copy(sol[12:15], []float64{1, 2, 3})
	copy(sol[15:17], []float64{0.3, -0.2})

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req struct {
			Program *program.Program `json:"program"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Len(t, req.Program.LogRows, 3)
		assert.NoError(t, json.NewEncoder(rw).Encode(solver.Solution{
			Status: solver.Optimal, X: sol, Iterations: 4,
		}))
	}))
	defer srv.Close()

	w, err := New(y, x, b, z, Regime{Multiplicative, Production, Varying})
	require.NoError(t, err)
	require.NoError(t, w.Optimize(context.Background(), solver.Remote(srv.URL), solver.Default))

	lam, err := w.Lambda()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, -0.2}, lam)

	// With contextual variables the frontier divides the whole contextual
	// effect out of the observed output.
	front, err := w.Frontier()
	require.NoError(t, err)
	want := []float64{
		2/math.Exp(0.1+0.3*1-0.2*0.5) - 1,
		3/math.Exp(0.2+0.3*0-0.2*1) - 1,
		4/math.Exp(-0.1+0.3*1-0.2*1) - 1,
	}
	assert.InDeltaSlice(t, want, front, 1e-12)
	assert.InDelta(t, 2, front[1], 1e-12)
	assert.InDelta(t, 3, front[2], 1e-12)

	count, err := w.ConstraintCount()
	require.NoError(t, err)
	assert.Equal(t, 16, count)
}

func TestOptimizeFailures(t *testing.T) {
	y := mat.NewDense(2, 1, []float64{1, 2})
	x := mat.NewDense(2, 1, []float64{1, 2})
	b := mat.NewDense(2, 1, []float64{1, 1})

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewEncoder(rw).Encode(solver.Solution{Status: solver.Infeasible}))
	}))
	defer srv.Close()

	w, err := New(y, x, b, nil, Regime{})
	require.NoError(t, err)
	err = w.Optimize(context.Background(), solver.Remote(srv.URL), solver.Default)
	require.ErrorIs(t, err, ErrSolve)

	// A failed run keeps no partial estimate.
	assert.Equal(t, Unsolved, w.Status())
	_, err = w.Alpha()
	assert.ErrorIs(t, err, ErrNotOptimized)

	bad := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()
	err = w.Optimize(context.Background(), solver.Remote(bad.URL), solver.Default)
	require.ErrorIs(t, err, ErrSolve)

	// A solved status must assign every variable; a short answer aborts
	// the run the same way.
	short := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte(`{"status":"optimal","x":[0,0,0]}`))
	}))
	defer short.Close()
	err = w.Optimize(context.Background(), solver.Remote(short.URL), solver.Default)
	require.ErrorIs(t, err, ErrSolve)
	assert.Equal(t, Unsolved, w.Status())

	// An unknown local engine fails before anything is built or solved.
	err = w.Optimize(context.Background(), solver.Local(), "glpk")
	require.ErrorIs(t, err, solver.ErrChoice)
}
