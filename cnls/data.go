// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnls

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShape marks inconsistent or empty input dimensions.
	ErrShape = errors.New("cnls: data shape mismatch")
	// ErrValue marks a non-finite or out-of-domain input value.
	ErrValue = errors.New("cnls: invalid data value")
)

// data is the validated, run-owned copy of the observation set: n units
// with output y, inputs x (n×K), undesirable outputs b (n×L) and optional
// contextual variables z (n×P, nil when absent).
type data struct {
	n, k, l, p int

	y []float64
	x [][]float64
	b [][]float64
	z [][]float64
}

// newData validates shapes and values and copies the inputs, so the run
// cannot observe later mutation of the caller's matrices.
func newData(y, x, b, z mat.Matrix) (*data, error) {
	if y == nil || x == nil || b == nil {
		return nil, fmt.Errorf("%w: y, x and b are required", ErrShape)
	}
	n, cy := y.Dims()
	if n < 1 {
		return nil, fmt.Errorf("%w: empty observation set", ErrShape)
	}
	if cy != 1 {
		return nil, fmt.Errorf("%w: y must be a column, got %d×%d", ErrShape, n, cy)
	}
	d := &data{n: n}

	var err error
	if d.x, d.k, err = copyRows("x", x, n); err != nil {
		return nil, err
	}
	if d.b, d.l, err = copyRows("b", b, n); err != nil {
		return nil, err
	}
	if z != nil {
		if d.z, d.p, err = copyRows("z", z, n); err != nil {
			return nil, err
		}
	}

	d.y = make([]float64, n)
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: y[%d] = %v", ErrValue, i, v)
		}
		d.y[i] = v
	}
	return d, nil
}

func copyRows(name string, m mat.Matrix, n int) ([][]float64, int, error) {
	r, c := m.Dims()
	if r != n {
		return nil, 0, fmt.Errorf("%w: %s has %d rows, want %d", ErrShape, name, r, n)
	}
	if c < 1 {
		return nil, 0, fmt.Errorf("%w: %s has no columns", ErrShape, name)
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, m)
		for j, v := range rows[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, 0, fmt.Errorf("%w: %s[%d,%d] = %v", ErrValue, name, i, j, v)
			}
		}
	}
	return rows, c, nil
}

// covariates stacks x and b column-wise; the result seeds the sweet-spot
// preselector.
func (d *data) covariates() *mat.Dense {
	m := mat.NewDense(d.n, d.k+d.l, nil)
	for i := 0; i < d.n; i++ {
		copy(m.RawRowView(i)[:d.k], d.x[i])
		copy(m.RawRowView(i)[d.k:], d.b[i])
	}
	return m
}
