// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnls

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func scanData(t *testing.T) *data {
	t.Helper()
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	b := mat.NewDense(3, 1, []float64{1, 1, 1})
	d, err := newData(y, x, b, nil)
	if err != nil {
		t.Fatalf("scanData: %v", err)
	}
	return d
}

func checkMask(t *testing.T, name string, m *mask, want [][]bool) {
	t.Helper()
	for i := range want {
		for j := range want[i] {
			if m.at(i, j) != want[i][j] {
				t.Errorf("%s: mask[%d][%d] = %v, want %v", name, i, j, m.at(i, j), want[i][j])
			}
		}
	}
}

func TestScanConcaveTies(t *testing.T) {
	d := scanData(t)
	pr := params{
		alpha: []float64{0, 0, 2},
		beta:  [][]float64{{1}, {1}, {1}},
		delta: [][]float64{{0}, {0}, {0}},
	}

	m := newMask(3)
	stat := scanConcave(d, Regime{Additive, Production, Varying}, pr, m)
	if stat != 2 {
		t.Fatalf("TestScanConcaveTies: stat = %v, want 2", stat)
	}
	// Unit 2 sits above both other hyperplanes by the same margin: the
	// tie marks both columns. Rows 0 and 1 have no positive score.
	checkMask(t, "TestScanConcaveTies", m, [][]bool{
		{false, false, false},
		{false, false, false},
		{true, true, false},
	})

	// A cost frontier flips the score: the violations move to column 2.
	m = newMask(3)
	stat = scanConcave(d, Regime{Additive, Cost, Varying}, pr, m)
	if stat != 2 {
		t.Fatalf("TestScanConcaveTies: cost stat = %v, want 2", stat)
	}
	checkMask(t, "TestScanConcaveTies/cost", m, [][]bool{
		{false, false, true},
		{false, false, true},
		{false, false, false},
	})
}

func TestScanConcaveBads(t *testing.T) {
	d := scanData(t)
	pr := params{
		alpha: []float64{0, 0, 0},
		beta:  [][]float64{{1}, {1}, {1}},
		delta: [][]float64{{1}, {0}, {0}},
	}

	m := newMask(3)
	stat := scanConcave(d, Regime{Additive, Production, Varying}, pr, m)
	if stat != 1 {
		t.Fatalf("TestScanConcaveBads: stat = %v, want 1", stat)
	}
	checkMask(t, "TestScanConcaveBads", m, [][]bool{
		{false, true, true},
		{false, false, false},
		{false, false, false},
	})
}

func TestScanConcaveConstant(t *testing.T) {
	d := scanData(t)
	pr := params{
		beta:  [][]float64{{2}, {1}, {1}},
		delta: [][]float64{{0}, {0}, {0}},
	}

	m := newMask(3)
	stat := scanConcave(d, Regime{Additive, Production, Constant}, pr, m)
	if stat != 1 {
		t.Fatalf("TestScanConcaveConstant: stat = %v, want 1", stat)
	}
	checkMask(t, "TestScanConcaveConstant", m, [][]bool{
		{false, true, true},
		{false, false, false},
		{false, false, false},
	})
}

func TestScanWeak(t *testing.T) {
	d := scanData(t)
	pr := params{
		alpha: []float64{-1, 0, 0},
		beta:  [][]float64{{0.5}, {1}, {1}},
		delta: [][]float64{{0}, {0}, {0}},
	}

	m := newMask(3)
	stat := scanWeak(d, Regime{Additive, Production, Varying}, pr, m)
	if stat != 0.5 {
		t.Fatalf("TestScanWeak: stat = %v, want 0.5", stat)
	}
	// The worst support shortfall of row 0 is its own unit: the diagonal
	// competes like any other column.
	checkMask(t, "TestScanWeak", m, [][]bool{
		{true, false, false},
		{false, false, false},
		{false, false, false},
	})

	m = newMask(3)
	stat = scanWeak(d, Regime{Additive, Cost, Varying}, pr, m)
	if stat != 3 {
		t.Fatalf("TestScanWeak: cost stat = %v, want 3", stat)
	}
	checkMask(t, "TestScanWeak/cost", m, [][]bool{
		{false, true, true},
		{false, true, true},
		{false, true, true},
	})
}

func TestScanMonotone(t *testing.T) {
	d := scanData(t)
	pr := params{
		alpha: []float64{0, 0, 0},
		beta:  [][]float64{{1}, {1}, {1}},
		delta: [][]float64{{0}, {0}, {0}},
	}
	reg := Regime{Additive, Production, Varying}

	m := newMask(3)
	m.mark(0, 1)
	if stat := scanConcave(d, reg, pr, m); stat != 0 {
		t.Fatalf("TestScanMonotone: stat = %v, want 0", stat)
	}
	if !m.at(0, 1) || m.count() != 1 {
		t.Fatal("TestScanMonotone: previously active pair lost")
	}

	mw := newMask(3)
	mw.mark(2, 0)
	if stat := scanWeak(d, reg, pr, mw); stat != 0 {
		t.Fatalf("TestScanMonotone: weak stat = %v, want 0", stat)
	}
	if !mw.at(2, 0) || mw.count() != 1 {
		t.Fatal("TestScanMonotone: previously active weak pair lost")
	}
}
