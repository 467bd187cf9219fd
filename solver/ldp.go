// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import "math"

// LDP (Least Distance Programming) solves 𝚖𝚒𝚗 ‖𝐱‖₂ subject to 𝐆𝐱 ≥ 𝐡 for
// an m × n matrix 𝐆 of arbitrary rank.
//
// The problem is reduced to NNLS on the dual: with 𝐀 = [𝐆:𝐡]ᵀ of shape
// (n+1) × m and 𝐛 = [0 ⋯ 0 1]ᵀ, the NNLS solution 𝐮 has residual
// 𝐫 = 𝐀𝐮 - 𝐛 with ‖𝐫‖₂² = -𝐫ₙ₊₁, and the primal solution is recovered as
// 𝐱 = 𝐆ᵀ𝐮/(1 - 𝐡ᵀ𝐮). A vanishing residual means no point satisfies the
// constraints.
//
// g holds 𝐆 column-major with leading dimension mdg. x receives the
// n-vector solution. w is workspace of length ≥ (n+1)(m+2)+2m; on a
// successful return w[:m] holds the Lagrange multipliers of the
// constraints. jw is integer workspace of length ≥ m. The Euclidean norm
// of the solution is returned with the status.
//
// C.L. Lawson, R.J. Hanson, 'Solving Least Squares Problems', Prentice
// Hall, 1974 (revised 1995 edition), chapter 23, algorithm 23.27.
func LDP(m, n int, g []float64, mdg int, h, x, w []float64, jw []int, maxIter int) (xnorm float64, status Status) {

	if n <= 0 {
		return math.NaN(), Invalid
	}
	if m <= 0 {
		return 0, Optimal
	}

	if m > mdg || mdg*n > len(g) || m > len(h) || n > len(x) || (n+1)*(m+2)+2*m > len(w) || m > len(jw) {
		panic("bound check error")
	}

	// Workspace layout:
	//   w[:(n+1)m]                    (n+1) × m matrix 𝐀
	//   w[(n+1)m:(n+1)(m+1)]          (n+1)-vector 𝐛
	//   w[(n+1)(m+1):(n+1)(m+2)]      (n+1)-vector 𝐳
	//   w[(n+1)(m+2):(n+1)(m+2)+m]    m-vector 𝐮
	//   w[(n+1)(m+2)+m:]              m-vector dual
	iw := 0
	a := w[iw : iw+m*(n+1)]
	iw += len(a)
	b := w[iw : iw+(n+1)]
	iw += len(b)
	z := w[iw : iw+(n+1)]
	iw += len(z)
	u := w[iw : iw+m]
	iw += len(u)
	dv := w[iw : iw+m]

	// 𝐀 = [𝐆:𝐡]ᵀ column by column.
	for j := 0; j < m; j++ {
		dcopy(n, g[j:], mdg, a[j*(n+1):], 1)
		a[j*(n+1)+n] = h[j]
	}

	dzero(b[:n])
	b[n] = one

	var rnorm float64
	rnorm, status = NNLS(n+1, m, a, n+1, b, u, dv, z, jw, maxIter)

	var fac float64
	if status == Optimal {
		if rnorm <= zero {
			status = Infeasible
		} else {
			fac = one - ddot(m, h, 1, u, 1) // -𝐫ₙ₊₁ = 1 - 𝐡ᵀ𝐮
			if math.IsNaN(fac) || fac < eps {
				status = Infeasible
			}
		}
	}
	if status != Optimal {
		return math.NaN(), status
	}

	fac = one / fac
	for j := 0; j < n; j++ {
		x[j] = ddot(m, g[mdg*j:], 1, u, 1) * fac
	}
	for j := 0; j < m; j++ {
		w[j] = u[j] * fac
	}

	return dnrm2(n, x, 1), Optimal
}
