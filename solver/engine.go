// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/convexfit/frontier/program"
)

// Engine solves programs in process on the LSEI kernel stack.
//
// A program is flattened to the Lawson-Hanson standard form
//
//	𝚖𝚒𝚗 ‖𝐄𝐱 - 𝐟‖₂  s.t.  𝐂𝐱 = 𝐝,  𝐆𝐱 ≥ 𝐡
//
// where 𝐄 selects the residual variables and carries √ridge rows on every
// other variable, 𝐂 collects equality rows and pinned variables, and 𝐆
// collects inequality rows and finite bounds. The ridge keeps 𝐄 at full
// column rank when the program determines only its residuals, selecting
// the minimum-norm representative among the optima.
//
// Programs with log rows are solved by sequential linearization: each log
// row is expanded to an equality at the current iterate and the linear
// problem re-solved until the step max-norm falls under stepTol.
//
// Construct engines through New; the zero value solves without a ridge.
type Engine struct {
	ridge   float64
	stepTol float64
	maxIter int
	lsIter  int
}

// Solve implements Interface.
func (e *Engine) Solve(ctx context.Context, p *program.Program) (*Solution, error) {
	if p == nil {
		return nil, ErrProgram
	}
	if err := p.Check(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProgram, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.LogRows) == 0 {
		x, status := e.solveLinear(p, nil)
		return e.finish(p, x, status, 1), nil
	}
	return e.sequential(ctx, p)
}

// sequential runs the linearize-and-solve loop for programs with log rows.
func (e *Engine) sequential(ctx context.Context, p *program.Program) (*Solution, error) {
	tol := e.stepTol
	if tol <= 0 {
		tol = 1e-8
	}
	maxIter := e.maxIter
	if maxIter <= 0 {
		maxIter = 100
	}

	// Start from zero pushed inside the bounds; log rows tolerate it
	// through the clamp in Linearize.
	n := p.NumVars()
	x := make([]float64, n)
	for j := range x {
		switch {
		case p.Lower[j] > 0:
			x[j] = p.Lower[j]
		case p.Upper[j] < 0:
			x[j] = p.Upper[j]
		}
	}

	lin := make([]program.Row, len(p.LogRows))
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for k, r := range p.LogRows {
			lin[k] = r.Linearize(x)
		}
		xn, status := e.solveLinear(p, lin)
		if status != Optimal {
			return e.finish(p, xn, status, iter), nil
		}
		step := zero
		for j := range xn {
			step = math.Max(step, math.Abs(xn[j]-x[j]))
		}
		x = xn
		if step <= tol {
			return e.finish(p, x, Optimal, iter), nil
		}
		if iter >= maxIter {
			return e.finish(p, x, IterationLimit, iter), nil
		}
	}
}

func (e *Engine) finish(p *program.Program, x []float64, status Status, iters int) *Solution {
	sol := &Solution{Status: status, Iterations: iters}
	if x != nil && (status == Optimal || status == IterationLimit) {
		sol.X = x
		sol.Objective = p.Objective(x)
	}
	return sol
}

// linrow is a normalized constraint row: ∑ terms ≥ rhs, or the equality
// ∑ terms = rhs. neg flips the sign of both sides, turning ≤ into ≥.
type linrow struct {
	terms []program.Term
	rhs   float64
	neg   bool
}

// solveLinear flattens the linear part of p, plus any linearized log rows
// in extra, and runs LSEI once.
func (e *Engine) solveLinear(p *program.Program, extra []program.Row) ([]float64, Status) {
	n := p.NumVars()
	if n < 1 {
		return nil, Invalid
	}

	var eqs, ges []linrow
	for _, r := range p.Rows {
		if r.Lo == r.Hi {
			eqs = append(eqs, linrow{r.Terms, r.Lo, false})
			continue
		}
		if r.Lo > -program.Inf {
			ges = append(ges, linrow{r.Terms, r.Lo, false})
		}
		if r.Hi < program.Inf {
			ges = append(ges, linrow{r.Terms, r.Hi, true})
		}
	}
	for _, r := range extra {
		eqs = append(eqs, linrow{r.Terms, r.Lo, false})
	}
	for j := 0; j < n; j++ {
		lo, hi := p.Lower[j], p.Upper[j]
		unit := []program.Term{{Var: j, Coef: one}}
		if lo == hi {
			eqs = append(eqs, linrow{unit, lo, false})
			continue
		}
		if lo > -program.Inf {
			ges = append(ges, linrow{unit, lo, false})
		}
		if hi < program.Inf {
			ges = append(ges, linrow{unit, hi, true})
		}
	}

	mc, mg := len(eqs), len(ges)
	if mc > n {
		return nil, Invalid
	}

	// Objective rows: selectors on the residuals, ridge on the rest.
	isRes := make([]bool, n)
	for _, r := range p.Residuals {
		isRes[r] = true
	}
	me := len(p.Residuals)
	if e.ridge > 0 {
		me = n
	}
	if me == 0 {
		return nil, Invalid
	}

	ea := make([]float64, me*n)
	f := make([]float64, me)
	row := 0
	for _, r := range p.Residuals {
		ea[row+me*r] = one
		row++
	}
	if e.ridge > 0 {
		sr := math.Sqrt(e.ridge)
		for j := 0; j < n; j++ {
			if !isRes[j] {
				ea[row+me*j] = sr
				row++
			}
		}
	}

	c := make([]float64, mc*n)
	d := make([]float64, mc)
	g := make([]float64, mg*n)
	h := make([]float64, mg)
	fill := func(a, rhs []float64, ld int, rows []linrow) {
		for i, r := range rows {
			s := one
			if r.neg {
				s = -one
			}
			for _, t := range r.terms {
				a[i+ld*t.Var] += s * t.Coef
			}
			rhs[i] = s * r.rhs
		}
	}
	fill(c, d, mc, eqs)
	fill(g, h, mg, ges)

	l := n - mc
	w := make([]float64, 2*mc+me+(me+mg)*l+(l+1)*(mg+2)+2*mg+1)
	jw := make([]int, max(mg, min(me, l))+1)
	x := make([]float64, n)

	_, status := LSEI(c, d, ea, f, g, h, mc, mc, me, me, mg, mg, n, x, w, jw, e.lsIter)
	if status != Optimal {
		return nil, status
	}
	return x, Optimal
}
