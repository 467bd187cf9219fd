// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package program describes constrained least-squares programs.
//
// A Program holds decision variables with bounds, linear constraint rows,
// an optional family of logarithmic equality rows and a least-squares
// objective over a designated set of residual variables:
//
//	𝚖𝚒𝚗 ∑ 𝐱ᵣ²  subject to  𝐥 ≤ 𝐀𝐱 ≤ 𝐮,  𝚕𝚘𝚐(𝑐ᵢ) = 𝚕𝚘𝚐(𝐱ᵥᵢ + 𝑠ᵢ) + 𝐭ᵢᵀ𝐱,  𝐥ᵇ ≤ 𝐱 ≤ 𝐮ᵇ
//
// The value is a plain data holder: building is deterministic and free of
// side effects, so identical construction sequences yield deeply equal
// programs. All fields marshal to JSON, which doubles as the wire format
// for remote solving.
package program

import (
	"errors"
	"fmt"
	"math"
)

// Inf is the bound magnitude treated as "no bound".
// Finite on purpose so programs survive JSON round-trips.
const Inf = 1e30

var (
	// ErrVarIndex reports a constraint or objective term referencing a variable
	// that was never added.
	ErrVarIndex = errors.New("program: variable index out of range")
	// ErrBound reports an empty variable or row interval.
	ErrBound = errors.New("program: lower bound exceeds upper bound")
	// ErrLogShift reports a log row whose argument can never be positive.
	ErrLogShift = errors.New("program: log row requires positive constant and shift")
)

// Term is one coefficient of a sparse linear expression.
type Term struct {
	Var  int     `json:"var"`
	Coef float64 `json:"coef"`
}

// Row is a two-sided linear constraint Lo ≤ ∑ Coefᵢ·x[Varᵢ] ≤ Hi.
// Lo == Hi encodes an equality.
type Row struct {
	Terms []Term  `json:"terms"`
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
}

// Value evaluates the row expression ∑ Coefᵢ·x[Varᵢ].
func (r Row) Value(x []float64) float64 {
	v := 0.0
	for _, t := range r.Terms {
		v += t.Coef * x[t.Var]
	}
	return v
}

// LogRow is an equality constraint of the form
//
//	𝚕𝚘𝚐(Const) = 𝚕𝚘𝚐(x[V] + Shift) + ∑ Coefᵢ·x[Varᵢ]
//
// the only nonlinear constraint family a Program may carry.
type LogRow struct {
	Const float64 `json:"const"`
	V     int     `json:"v"`
	Shift float64 `json:"shift"`
	Terms []Term  `json:"terms"`
}

// Value evaluates the constraint residual
// 𝚕𝚘𝚐(Const) − 𝚕𝚘𝚐(x[V]+Shift) − ∑ Coefᵢ·x[Varᵢ], zero when satisfied.
func (r LogRow) Value(x []float64) float64 {
	v := math.Log(r.Const) - math.Log(x[r.V]+r.Shift)
	for _, t := range r.Terms {
		v -= t.Coef * x[t.Var]
	}
	return v
}

// Linearize expands the row around the current iterate into an equality Row:
//
//	(x[V]−v₀)/(v₀+Shift) + ∑ Coefᵢ·x[Varᵢ] = 𝚕𝚘𝚐(Const) − 𝚕𝚘𝚐(v₀+Shift)
//
// The expansion point is x[V] clamped to keep the log argument positive.
func (r LogRow) Linearize(x []float64) Row {
	v0 := x[r.V]
	if v0+r.Shift < r.Shift/2 {
		v0 = 0 // keep 𝚕𝚘𝚐 argument away from zero
	}
	d := 1 / (v0 + r.Shift)
	terms := make([]Term, 0, len(r.Terms)+1)
	terms = append(terms, Term{Var: r.V, Coef: d})
	terms = append(terms, r.Terms...)
	rhs := math.Log(r.Const) - math.Log(v0+r.Shift) + v0*d
	return Row{Terms: terms, Lo: rhs, Hi: rhs}
}

// Program is a constrained least-squares program.
// Zero value is an empty program ready for use.
type Program struct {
	// Per-variable bounds; len is the variable count.
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
	// Linear constraint rows.
	Rows []Row `json:"rows"`
	// Logarithmic equality rows.
	LogRows []LogRow `json:"logRows,omitempty"`
	// Indices of the residual variables whose squares are minimized.
	Residuals []int `json:"residuals"`
}

// NumVars returns the number of decision variables.
func (p *Program) NumVars() int { return len(p.Lower) }

// NumRows returns the number of constraint rows, linear and logarithmic.
func (p *Program) NumRows() int { return len(p.Rows) + len(p.LogRows) }

// AddVar appends a variable with the given bounds and returns its index.
// Use ±Inf for an unbounded side.
func (p *Program) AddVar(lo, hi float64) int {
	p.Lower = append(p.Lower, lo)
	p.Upper = append(p.Upper, hi)
	return len(p.Lower) - 1
}

// AddFreeVar appends an unbounded variable and returns its index.
func (p *Program) AddFreeVar() int { return p.AddVar(-Inf, Inf) }

// AddEqRow appends the equality constraint ∑ terms = rhs.
func (p *Program) AddEqRow(terms []Term, rhs float64) {
	p.Rows = append(p.Rows, Row{Terms: terms, Lo: rhs, Hi: rhs})
}

// AddGeRow appends the constraint ∑ terms ≥ rhs.
func (p *Program) AddGeRow(terms []Term, rhs float64) {
	p.Rows = append(p.Rows, Row{Terms: terms, Lo: rhs, Hi: Inf})
}

// AddLeRow appends the constraint ∑ terms ≤ rhs.
func (p *Program) AddLeRow(terms []Term, rhs float64) {
	p.Rows = append(p.Rows, Row{Terms: terms, Lo: -Inf, Hi: rhs})
}

// AddLogRow appends the constraint 𝚕𝚘𝚐(c) = 𝚕𝚘𝚐(x[v]+shift) + ∑ terms.
func (p *Program) AddLogRow(c float64, v int, shift float64, terms []Term) {
	p.LogRows = append(p.LogRows, LogRow{Const: c, V: v, Shift: shift, Terms: terms})
}

// SetResiduals designates the variables whose sum of squares is the objective.
func (p *Program) SetResiduals(ids []int) { p.Residuals = ids }

// Objective evaluates ∑ x[r]² over the residual variables.
func (p *Program) Objective(x []float64) float64 {
	v := 0.0
	for _, r := range p.Residuals {
		v += x[r] * x[r]
	}
	return v
}

// Check validates internal consistency: index ranges, bound ordering and
// log-row arguments. A program that passes Check is safe to hand to a solver.
func (p *Program) Check() error {
	n := len(p.Lower)
	if len(p.Upper) != n {
		return fmt.Errorf("program: bound arrays disagree: %d lower vs %d upper", n, len(p.Upper))
	}
	for i := 0; i < n; i++ {
		if p.Lower[i] > p.Upper[i] {
			return fmt.Errorf("%w: variable %d", ErrBound, i)
		}
	}
	checkTerms := func(kind string, k int, terms []Term) error {
		for _, t := range terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("%w: %s %d references %d of %d", ErrVarIndex, kind, k, t.Var, n)
			}
		}
		return nil
	}
	for k, r := range p.Rows {
		if r.Lo > r.Hi {
			return fmt.Errorf("%w: row %d", ErrBound, k)
		}
		if err := checkTerms("row", k, r.Terms); err != nil {
			return err
		}
	}
	for k, r := range p.LogRows {
		if r.V < 0 || r.V >= n {
			return fmt.Errorf("%w: log row %d references %d of %d", ErrVarIndex, k, r.V, n)
		}
		if r.Const <= 0 || r.Shift <= 0 {
			return fmt.Errorf("%w: log row %d", ErrLogShift, k)
		}
		if err := checkTerms("log row", k, r.Terms); err != nil {
			return err
		}
	}
	for _, r := range p.Residuals {
		if r < 0 || r >= n {
			return fmt.Errorf("%w: residual set references %d of %d", ErrVarIndex, r, n)
		}
	}
	return nil
}
