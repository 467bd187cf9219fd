// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import "math"

// LSEI (Least Squares with linear Equality and Inequality constraints)
// solves 𝚖𝚒𝚗 ‖𝐄𝐱 - 𝐟‖₂ subject to 𝐂𝐱 = 𝐝 and 𝐆𝐱 ≥ 𝐡.
//
// The equality constraints are eliminated first: Householder
// transformations from the right triangularize 𝐂, splitting the variables
// into 𝐊ᵀ𝐱 = [𝐲₁ 𝐲₂]ᵀ with 𝐲₁ pinned by the triangular system 𝐂̃₁𝐲₁ = 𝐝.
// The free part 𝐲₂ solves the reduced problem
//
//	𝚖𝚒𝚗 ‖𝐄̃₂𝐲₂ - (𝐟 - 𝐄̃₁𝐲₁)‖₂  s.t.  𝐆̃₂𝐲₂ ≥ 𝐡 - 𝐆̃₁𝐲₁
//
// which goes to LSI when inequality rows exist and to HFTI otherwise. The
// reduced objective matrix 𝐄̃₂ must have full column rank n - mc; a
// deficient 𝐄̃₂ or a rank-deficient 𝐂 returns Singular.
//
// Matrices are column-major: lc, le, lg are the leading dimensions of c,
// e and g, and mc, me, mg their actual row counts. All arrays are
// overwritten. The workspace w needs
//
//	2mc + me + (me+mg)(n-mc) + (n-mc+1)(mg+2) + 2mg
//
// elements and jw needs max(mg, min(me, n-mc)). On success w[:mc] holds
// the equality multipliers and w[mc:mc+mg] the inequality multipliers.
// The residual norm ‖𝐄𝐱 - 𝐟‖₂ is returned with the status.
//
// C.L. Lawson, R.J. Hanson, 'Solving Least Squares Problems', Prentice
// Hall, 1974 (revised 1995 edition), chapter 20, algorithm 20.24 and
// chapter 23, section 6.
func LSEI(c, d, e, f, g, h []float64, lc, mc, le, me, lg, mg, n int,
	x, w []float64, jw []int, maxIterLs int) (norm float64, status Status) {

	if n < 1 || mc > n {
		return math.NaN(), Invalid
	}

	if n > len(x) ||
		mc < 0 || mc > len(c) || mc > len(d) ||
		me < 0 || me > len(e) || me > len(f) ||
		mg < 0 || mg > len(g) || mg > len(h) {
		panic("bound check error")
	}

	l := n - mc
	// Workspace layout:
	//   w[:mc]          equality multipliers on return
	//   ws              LSI / LDP workspace, (l+1)(mg+2)+2mg
	//   wp              Householder pivots defining 𝐊
	//   we              me × l matrix 𝐄̃₂
	//   wf              me-vector 𝐟 - 𝐄̃₁𝐲₁
	//   wg              mg × l matrix 𝐆̃₂
	iw := mc
	ws := w[iw : iw+(l+1)*(mg+2)+2*mg]
	iw += len(ws)
	wp := w[iw : iw+mc]
	iw += len(wp)
	we := w[iw : iw+me*l]
	iw += len(we)
	wf := w[iw : iw+me]
	iw += len(wf)
	wg := w[iw : iw+mg*l]

	// Triangularize 𝐂 from the right and carry 𝐊 into 𝐄 and 𝐆.
	for i := 0; i < mc; i++ {
		j := min(i+1, lc-1)
		wp[i] = h1(i, i+1, n, c[i:], lc)
		h2(i, i+1, n, c[i:], lc, wp[i], c[j:], lc, 1, mc-i-1)
		h2(i, i+1, n, c[i:], lc, wp[i], e, le, 1, me)
		h2(i, i+1, n, c[i:], lc, wp[i], g, lg, 1, mg)
	}

	// 𝐲₁ from the triangular system 𝐂̃₁𝐲₁ = 𝐝.
	for i := 0; i < mc; i++ {
		diag := c[i+lc*i]
		if math.Abs(diag) < eps {
			return math.NaN(), Singular
		}
		x[i] = (d[i] - ddot(i, c[i:], lc, x, 1)) / diag
	}

	dzero(ws[:mg])

	if mc < n {
		for i := 0; i < me; i++ {
			wf[i] = f[i] - ddot(mc, e[i:], le, x, 1)
		}

		if l > 0 {
			for i := 0; i < me; i++ {
				dcopy(l, e[i+le*mc:], le, we[i:], me)
			}
			for i := 0; i < mg; i++ {
				dcopy(l, g[i+lg*mc:], lg, wg[i:], mg)
			}
		}

		if mg > 0 {
			for i := 0; i < mg; i++ {
				h[i] -= ddot(mc, g[i:], lg, x, 1)
			}
			norm, status = LSI(we, wf, wg, h, me, me, mg, mg, l, x[mc:n], ws, jw, maxIterLs)
			if mc == 0 {
				// No equality block: multipliers already sit in w[:mg].
				return
			}
			if status != Optimal {
				return math.NaN(), status
			}
			t := dnrm2(mc, x, 1)
			norm = math.Sqrt(norm*norm + t*t)
		} else {
			k, t := max(le, n), sqrtEps
			var nrm [1]float64
			rank := HFTI(we, me, me, l, wf, k, 1, t, nrm[:], w, w[l:], jw)
			norm = nrm[0]
			dcopy(l, wf, 1, x[mc:n], 1)
			if rank != l {
				return norm, Singular
			}
		}
	}

	// Multipliers: 𝛍 = (𝐂ᵀ)⁻¹[𝐄ᵀ(𝐄𝐱 - 𝐟) - 𝐆ᵀ𝛌].
	for i := 0; i < me; i++ {
		f[i] = ddot(n, e[i:], le, x, 1) - f[i]
	}
	for i := 0; i < mc; i++ {
		d[i] = ddot(me, e[i*le:], 1, f, 1) -
			ddot(mg, g[i*lg:], 1, ws[:mg], 1)
	}
	for i := mc - 1; i >= 0; i-- {
		h2(i, i+1, n, c[i:], lc, wp[i], x, 1, 1, 1)
	}
	for i := mc - 1; i >= 0; i-- {
		j := min(i+1, lc-1)
		w[i] = (d[i] - ddot(mc-i-1, c[j+lc*i:], 1, w[j:], 1)) / c[i+lc*i]
	}

	return norm, Optimal
}

// LSI (Least Squares with linear Inequality constraints) solves
// 𝚖𝚒𝚗 ‖𝐄𝐱 - 𝐟‖₂ subject to 𝐆𝐱 ≥ 𝐡 for an me × n matrix 𝐄 with
// 𝚛𝚊𝚗𝚔(𝐄) = n.
//
// 𝐄 is triangularized by Householder transformations, 𝐐𝐄 = 𝐑, and the
// change of variable 𝐳 = 𝐑𝐱 - 𝐐₁ᵀ𝐟 turns the problem into the least
// distance program 𝚖𝚒𝚗 ‖𝐳‖₂ s.t. 𝐆𝐑⁻¹𝐳 ≥ 𝐡 - 𝐆𝐑⁻¹𝐐₁ᵀ𝐟, solved by LDP.
// The residual norm of the original problem is (‖𝐳‖₂² + ‖𝐐₂ᵀ𝐟‖₂²)¹ᐟ².
//
// Arrays are column-major with leading dimensions le and lg and are
// overwritten. w needs (n+1)(mg+2)+2mg elements; on success w[:mg] holds
// the constraint multipliers. jw needs mg elements.
//
// C.L. Lawson, R.J. Hanson, 'Solving Least Squares Problems', Prentice
// Hall, 1974 (revised 1995 edition), chapter 23, section 5.
func LSI(e, f, g, h []float64, le, me, lg, mg, n int,
	x, w []float64, jw []int, maxIterLs int) (xnorm float64, status Status) {

	if n < 1 {
		return 0, Invalid
	}

	// 𝐐𝐄 = 𝐑 and 𝐐𝐟 = [𝐟̃₁:𝐟̃₂].
	for i := 0; i < n; i++ {
		j := min(i+1, n-1)
		t := h1(i, i+1, me, e[i*le:], 1)
		h2(i, i+1, me, e[i*le:], 1, t, e[j*le:], 1, le, n-i-1)
		h2(i, i+1, me, e[i*le:], 1, t, f, 1, 1, 1)
	}

	// Form 𝐆𝐑⁻¹ and the shifted right-hand side.
	for i := 0; i < mg; i++ {
		for j := 0; j < n; j++ {
			diag := e[j+le*j]
			if math.Abs(diag) < eps || math.IsNaN(diag) {
				return math.NaN(), Singular
			}
			g[i+lg*j] = (g[i+lg*j] - ddot(j, g[i:], lg, e[j*le:], 1)) / diag
		}
		h[i] -= ddot(n, g[i:], lg, f, 1)
	}

	if xnorm, status = LDP(mg, n, g, lg, h, x, w, jw, maxIterLs); status == Optimal {
		// Back out 𝐱 = 𝐑⁻¹(𝐳 + 𝐟̃₁).
		daxpy(n, one, f, 1, x, 1)
		for i := n - 1; i >= 0; i-- {
			j := min(i+1, n-1)
			x[i] = (x[i] - ddot(n-i-1, e[i+le*j:], le, x[j:], 1)) / e[i+le*i]
		}
		j := min(n, me-1)
		t := dnrm2(me-n, f[j:], 1)
		xnorm = math.Sqrt(xnorm*xnorm + t*t)
	}
	return
}
