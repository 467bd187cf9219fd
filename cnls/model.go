// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnls

import (
	"github.com/convexfit/frontier/program"
)

// layout fixes the variable order of a built program: intercepts (varying
// returns only), slopes, undesirable-output coefficients, residuals,
// frontier auxiliaries (multiplicative error only), contextual
// coefficients. The same layout splits a solution vector back into
// coefficient blocks.
type layout struct {
	n, k, l, p int
	vrs, mult  bool

	alpha, beta, delta, eps, front, lam int
	vars                                int
}

func newLayout(d *data, reg Regime) layout {
	lo := layout{
		n: d.n, k: d.k, l: d.l, p: d.p,
		vrs:  reg.Scale == Varying,
		mult: reg.Error == Multiplicative,
	}
	off := 0
	if lo.vrs {
		lo.alpha = off
		off += lo.n
	}
	lo.beta = off
	off += lo.n * lo.k
	lo.delta = off
	off += lo.n * lo.l
	lo.eps = off
	off += lo.n
	if lo.mult {
		lo.front = off
		off += lo.n
	}
	if lo.p > 0 {
		lo.lam = off
		off += lo.p
	}
	lo.vars = off
	return lo
}

func (lo layout) alphaAt(i int) int    { return lo.alpha + i }
func (lo layout) betaAt(i, k int) int  { return lo.beta + i*lo.k + k }
func (lo layout) deltaAt(i, l int) int { return lo.delta + i*lo.l + l }
func (lo layout) epsAt(i int) int      { return lo.eps + i }
func (lo layout) frontAt(i int) int    { return lo.front + i }
func (lo layout) lamAt(q int) int      { return lo.lam + q }

// hlen is the term count of one hyperplane expression.
func (lo layout) hlen() int {
	h := lo.k + lo.l
	if lo.vrs {
		h++
	}
	return h
}

// hyperplaneTerms appends the coefficients of unit j's hyperplane
// evaluated at unit i's data, scaled by s: s·(α_j + β_j·x_i + δ_j·b_i).
func (lo layout) hyperplaneTerms(t []program.Term, d *data, j, i int, s float64) []program.Term {
	if lo.vrs {
		t = append(t, program.Term{Var: lo.alphaAt(j), Coef: s})
	}
	for k, v := range d.x[i] {
		t = append(t, program.Term{Var: lo.betaAt(j, k), Coef: s * v})
	}
	for l, v := range d.b[i] {
		t = append(t, program.Term{Var: lo.deltaAt(j, l), Coef: s * v})
	}
	return t
}

// supportTerms appends the input-support coefficients of unit j at unit
// i's inputs, scaled by s: s·(α_j + β_j·x_i).
func (lo layout) supportTerms(t []program.Term, d *data, j, i int, s float64) []program.Term {
	if lo.vrs {
		t = append(t, program.Term{Var: lo.alphaAt(j), Coef: s})
	}
	for k, v := range d.x[i] {
		t = append(t, program.Term{Var: lo.betaAt(j, k), Coef: s * v})
	}
	return t
}

// build assembles the constrained least-squares program of one outer
// iteration: per-unit regression rows, the cyclic Afriat and weak
// disposability rows, the seeded or activated concavity cutting planes
// and the activated disposability cutting planes. seed gates the
// first-pass planes; active and activeWeak carry the pairs the violation
// scanner has added. Building has no side effects, and identical inputs
// produce structurally identical programs.
func build(d *data, reg Regime, seed [][]bool, active, activeWeak *mask) *program.Program {
	lo := newLayout(d, reg)
	p := &program.Program{}

	if lo.vrs {
		for i := 0; i < lo.n; i++ {
			p.AddFreeVar()
		}
	}
	for i := 0; i < lo.n*(lo.k+lo.l); i++ {
		p.AddVar(0, program.Inf)
	}
	res := make([]int, lo.n)
	for i := range res {
		res[i] = p.AddFreeVar()
	}
	if lo.mult {
		for i := 0; i < lo.n; i++ {
			p.AddVar(0, program.Inf)
		}
	}
	for q := 0; q < lo.p; q++ {
		p.AddFreeVar()
	}
	p.SetResiduals(res)

	// Regression rows. Additive: y_i = α_i + β_i·x_i + δ_i·b_i + λ·z_i + ε_i.
	// Multiplicative: log y_i = log(frontier_i + 1) + λ·z_i + ε_i, with the
	// linkage frontier_i = α_i + β_i·x_i + δ_i·b_i − 1.
	for i := 0; i < lo.n; i++ {
		if lo.mult {
			t := make([]program.Term, 0, lo.p+1)
			for q := 0; q < lo.p; q++ {
				t = append(t, program.Term{Var: lo.lamAt(q), Coef: d.z[i][q]})
			}
			t = append(t, program.Term{Var: lo.epsAt(i), Coef: 1})
			p.AddLogRow(d.y[i], lo.frontAt(i), 1, t)

			t = make([]program.Term, 0, lo.hlen()+1)
			t = append(t, program.Term{Var: lo.frontAt(i), Coef: 1})
			t = lo.hyperplaneTerms(t, d, i, i, -1)
			p.AddEqRow(t, -1)
			continue
		}
		t := make([]program.Term, 0, lo.hlen()+lo.p+1)
		t = lo.hyperplaneTerms(t, d, i, i, 1)
		for q := 0; q < lo.p; q++ {
			t = append(t, program.Term{Var: lo.lamAt(q), Coef: d.z[i][q]})
		}
		t = append(t, program.Term{Var: lo.epsAt(i), Coef: 1})
		p.AddEqRow(t, d.y[i])
	}

	// Afriat rows, one per unit against the cyclic next unit.
	for i := 0; i < lo.n; i++ {
		next := (i + 1) % lo.n
		t := make([]program.Term, 0, 2*lo.hlen())
		t = lo.hyperplaneTerms(t, d, i, i, 1)
		t = lo.hyperplaneTerms(t, d, next, i, -1)
		if reg.Direction == Production {
			p.AddLeRow(t, 0)
		} else {
			p.AddGeRow(t, 0)
		}
	}

	// Weak disposability rows, one per unit against the cyclic next unit.
	for i := 0; i < lo.n; i++ {
		next := (i + 1) % lo.n
		t := lo.supportTerms(nil, d, next, i, 1)
		if reg.Direction == Production {
			p.AddGeRow(t, 0)
		} else {
			p.AddLeRow(t, 0)
		}
	}

	// Concavity cutting planes for seeded or activated pairs. Self-pairs
	// are never emitted.
	for i := 0; i < lo.n; i++ {
		for h := 0; h < lo.n; h++ {
			if h == i || !(seed[i][h] || active.at(i, h)) {
				continue
			}
			t := make([]program.Term, 0, 2*lo.hlen())
			t = lo.hyperplaneTerms(t, d, i, i, 1)
			t = lo.hyperplaneTerms(t, d, h, i, -1)
			if reg.Direction == Production {
				p.AddLeRow(t, 0)
			} else {
				p.AddGeRow(t, 0)
			}
		}
	}

	// Disposability cutting planes for activated pairs. The inequality is
	// meaningful at i = h, so the diagonal is not skipped.
	for i := 0; i < lo.n; i++ {
		for h := 0; h < lo.n; h++ {
			if !activeWeak.at(i, h) {
				continue
			}
			t := lo.supportTerms(nil, d, h, i, 1)
			if reg.Direction == Production {
				p.AddGeRow(t, 0)
			} else {
				p.AddLeRow(t, 0)
			}
		}
	}

	return p
}

// params holds the fitted coefficients of one solve. alpha is nil under
// constant returns to scale, front outside the multiplicative regime and
// lambda without contextual variables.
type params struct {
	alpha  []float64
	beta   [][]float64
	delta  [][]float64
	eps    []float64
	front  []float64
	lambda []float64
}

// extract splits a solution vector into per-unit coefficient blocks,
// copying out of the solver's buffer.
func (lo layout) extract(x []float64) params {
	var pr params
	if lo.vrs {
		pr.alpha = append([]float64(nil), x[lo.alpha:lo.alpha+lo.n]...)
	}
	pr.beta = cut(x[lo.beta:lo.beta+lo.n*lo.k], lo.k)
	pr.delta = cut(x[lo.delta:lo.delta+lo.n*lo.l], lo.l)
	pr.eps = append([]float64(nil), x[lo.eps:lo.eps+lo.n]...)
	if lo.mult {
		pr.front = append([]float64(nil), x[lo.front:lo.front+lo.n]...)
	}
	if lo.p > 0 {
		pr.lambda = append([]float64(nil), x[lo.lam:lo.lam+lo.p]...)
	}
	return pr
}

func cut(flat []float64, w int) [][]float64 {
	rows := make([][]float64, len(flat)/w)
	for i := range rows {
		rows[i] = append([]float64(nil), flat[i*w:(i+1)*w]...)
	}
	return rows
}
