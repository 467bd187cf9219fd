// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnls

import (
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/convexfit/frontier/program"
)

func testData(t *testing.T, withZ bool) *data {
	t.Helper()
	y := mat.NewDense(3, 1, []float64{3, 5, 6})
	x := mat.NewDense(3, 2, []float64{
		1, 2,
		2, 3,
		4, 1,
	})
	b := mat.NewDense(3, 1, []float64{1, 2, 3})
	var z mat.Matrix
	if withZ {
		z = mat.NewDense(3, 1, []float64{0.5, 1, 1.5})
	}
	d, err := newData(y, x, b, z)
	if err != nil {
		t.Fatalf("testData: %v", err)
	}
	return d
}

func fullSeed(n int) [][]bool {
	s := make([][]bool, n)
	for i := range s {
		s[i] = make([]bool, n)
		for j := range s[i] {
			s[i][j] = true
		}
	}
	return s
}

func emptySeed(n int) [][]bool {
	s := make([][]bool, n)
	for i := range s {
		s[i] = make([]bool, n)
	}
	return s
}

func TestBuildCounts(t *testing.T) {
	d := testData(t, true)
	reg := Regime{Additive, Production, Varying}
	p := build(d, reg, fullSeed(3), newMask(3), newMask(3))

	if p.NumVars() != 16 {
		t.Fatalf("TestBuildCounts: %d variables, want 16", p.NumVars())
	}
	if len(p.LogRows) != 0 {
		t.Fatalf("TestBuildCounts: unexpected log rows")
	}
	// 3 regression + 3 Afriat + 3 disposability + 6 seeded planes.
	if p.NumRows() != 15 {
		t.Fatalf("TestBuildCounts: %d rows, want 15", p.NumRows())
	}
	if !reflect.DeepEqual(p.Residuals, []int{12, 13, 14}) {
		t.Fatalf("TestBuildCounts: residuals %v", p.Residuals)
	}
	if p.Lower[0] != -program.Inf || p.Lower[3] != 0 || p.Upper[3] != program.Inf {
		t.Fatalf("TestBuildCounts: bad bounds")
	}
	if p.Lower[15] != -program.Inf {
		t.Fatalf("TestBuildCounts: contextual coefficient must be free")
	}

	want := []program.Term{
		{Var: 0, Coef: 1},    // alpha_0
		{Var: 3, Coef: 1},    // beta_00 * x_00
		{Var: 4, Coef: 2},    // beta_01 * x_01
		{Var: 9, Coef: 1},    // delta_00 * b_00
		{Var: 15, Coef: 0.5}, // lambda * z_0
		{Var: 12, Coef: 1},   // epsilon_0
	}
	r := p.Rows[0]
	if !reflect.DeepEqual(r.Terms, want) || r.Lo != 3 || r.Hi != 3 {
		t.Fatalf("TestBuildCounts: regression row %+v", r)
	}

	// The seed includes the diagonal, yet no self-pair plane may appear:
	// each plane compares two distinct units' intercepts.
	for _, r := range p.Rows[9:] {
		if len(r.Terms) != 8 {
			t.Fatalf("TestBuildCounts: plane with %d terms", len(r.Terms))
		}
		if r.Terms[0].Var == r.Terms[4].Var {
			t.Fatalf("TestBuildCounts: self-pair plane emitted")
		}
	}
}

func TestBuildCyclicNext(t *testing.T) {
	d := testData(t, false)
	reg := Regime{Additive, Production, Varying}
	p := build(d, reg, emptySeed(3), newMask(3), newMask(3))

	// Afriat row of the last unit wraps to unit 0, evaluated at x_2, b_2.
	want := []program.Term{
		{Var: 2, Coef: 1},
		{Var: 7, Coef: 4}, {Var: 8, Coef: 1},
		{Var: 11, Coef: 3},
		{Var: 0, Coef: -1},
		{Var: 3, Coef: -4}, {Var: 4, Coef: -1},
		{Var: 9, Coef: -3},
	}
	if !reflect.DeepEqual(p.Rows[5].Terms, want) {
		t.Fatalf("TestBuildCyclicNext: afriat row %+v", p.Rows[5].Terms)
	}

	// Disposability row of unit 0 uses unit 1's support at x_0, no delta.
	want = []program.Term{
		{Var: 1, Coef: 1},
		{Var: 5, Coef: 1}, {Var: 6, Coef: 2},
	}
	if !reflect.DeepEqual(p.Rows[6].Terms, want) {
		t.Fatalf("TestBuildCyclicNext: disposability row %+v", p.Rows[6].Terms)
	}
}

func TestBuildIdempotent(t *testing.T) {
	d := testData(t, true)
	reg := Regime{Additive, Production, Varying}
	active, activeWeak := newMask(3), newMask(3)
	active.mark(0, 2)
	activeWeak.mark(1, 1)
	seed := fullSeed(3)

	p1 := build(d, reg, seed, active, activeWeak)
	p2 := build(d, reg, seed, active, activeWeak)
	if !reflect.DeepEqual(p1, p2) {
		t.Fatal("TestBuildIdempotent: programs differ")
	}
}

func TestBuildDirectionFlip(t *testing.T) {
	d := testData(t, false)
	active, activeWeak := newMask(3), newMask(3)
	active.mark(0, 2)
	activeWeak.mark(1, 1)
	seed := emptySeed(3)

	prod := build(d, Regime{Additive, Production, Varying}, seed, active, activeWeak)
	cost := build(d, Regime{Additive, Cost, Varying}, seed, active, activeWeak)

	if prod.NumRows() != 11 || cost.NumRows() != 11 {
		t.Fatalf("TestBuildDirectionFlip: rows %d vs %d, want 11", prod.NumRows(), cost.NumRows())
	}
	for i := range prod.Rows {
		pr, cr := prod.Rows[i], cost.Rows[i]
		if !reflect.DeepEqual(pr.Terms, cr.Terms) {
			t.Fatalf("TestBuildDirectionFlip: row %d terms differ", i)
		}
		if i < 3 {
			continue // regression equalities are direction-free
		}
		if pr.Lo != -program.Inf && pr.Lo != 0 {
			t.Fatalf("TestBuildDirectionFlip: row %d unexpected bounds %v..%v", i, pr.Lo, pr.Hi)
		}
		if pr.Lo == cr.Lo || pr.Hi == cr.Hi {
			t.Fatalf("TestBuildDirectionFlip: row %d not flipped", i)
		}
	}

	// Activated disposability planes may sit on the diagonal.
	diag := prod.Rows[10]
	want := []program.Term{
		{Var: 1, Coef: 1},
		{Var: 5, Coef: 2}, {Var: 6, Coef: 3},
	}
	if !reflect.DeepEqual(diag.Terms, want) || diag.Lo != 0 || diag.Hi != program.Inf {
		t.Fatalf("TestBuildDirectionFlip: diagonal plane %+v", diag)
	}
}

func TestBuildMultiplicative(t *testing.T) {
	d := testData(t, false)
	reg := Regime{Multiplicative, Production, Varying}
	p := build(d, reg, fullSeed(3), newMask(3), newMask(3))

	if p.NumVars() != 18 {
		t.Fatalf("TestBuildMultiplicative: %d variables, want 18", p.NumVars())
	}
	if len(p.LogRows) != 3 || p.NumRows() != 18 {
		t.Fatalf("TestBuildMultiplicative: %d log rows of %d", len(p.LogRows), p.NumRows())
	}
	for i, lr := range p.LogRows {
		want := program.LogRow{
			Const: d.y[i], V: 15 + i, Shift: 1,
			Terms: []program.Term{{Var: 12 + i, Coef: 1}},
		}
		if !reflect.DeepEqual(lr, want) {
			t.Fatalf("TestBuildMultiplicative: log row %d = %+v", i, lr)
		}
	}
	// Frontier linkage pins the auxiliary to the hyperplane minus one.
	link := p.Rows[0]
	want := []program.Term{
		{Var: 15, Coef: 1},
		{Var: 0, Coef: -1},
		{Var: 3, Coef: -1}, {Var: 4, Coef: -2},
		{Var: 9, Coef: -1},
	}
	if !reflect.DeepEqual(link.Terms, want) || link.Lo != -1 || link.Hi != -1 {
		t.Fatalf("TestBuildMultiplicative: linkage row %+v", link)
	}
	if p.Lower[15] != 0 {
		t.Fatalf("TestBuildMultiplicative: frontier must be nonnegative")
	}

	// With contextual variables the log row carries them ahead of the
	// residual.
	dz := testData(t, true)
	pz := build(dz, reg, fullSeed(3), newMask(3), newMask(3))
	wantT := []program.Term{{Var: 18, Coef: 0.5}, {Var: 12, Coef: 1}}
	if !reflect.DeepEqual(pz.LogRows[0].Terms, wantT) {
		t.Fatalf("TestBuildMultiplicative: contextual log row %+v", pz.LogRows[0].Terms)
	}
}

func TestBuildConstantScale(t *testing.T) {
	d := testData(t, false)
	reg := Regime{Additive, Production, Constant}
	p := build(d, reg, emptySeed(3), newMask(3), newMask(3))

	if p.NumVars() != 12 {
		t.Fatalf("TestBuildConstantScale: %d variables, want 12", p.NumVars())
	}
	if !reflect.DeepEqual(p.Residuals, []int{9, 10, 11}) {
		t.Fatalf("TestBuildConstantScale: residuals %v", p.Residuals)
	}
	if p.Lower[0] != 0 {
		t.Fatalf("TestBuildConstantScale: slope bound missing")
	}
	// No intercepts anywhere: Afriat rows carry slopes and bads only.
	af := p.Rows[3]
	want := []program.Term{
		{Var: 0, Coef: 1}, {Var: 1, Coef: 2},
		{Var: 6, Coef: 1},
		{Var: 2, Coef: -1}, {Var: 3, Coef: -2},
		{Var: 7, Coef: -1},
	}
	if !reflect.DeepEqual(af.Terms, want) {
		t.Fatalf("TestBuildConstantScale: afriat row %+v", af.Terms)
	}
	weak := p.Rows[6]
	wantW := []program.Term{{Var: 2, Coef: 1}, {Var: 3, Coef: 2}}
	if !reflect.DeepEqual(weak.Terms, wantW) {
		t.Fatalf("TestBuildConstantScale: disposability row %+v", weak.Terms)
	}
}
