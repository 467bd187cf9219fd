// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import "math"

// HFTI (Householder Forward Triangulation with column Interchanges) solves
// the linear least-squares problem 𝐀𝐗 ≅ 𝐁 for an m × n matrix 𝐀 of
// arbitrary rank and an m × nb right-hand side 𝐁.
//
// The matrix is reduced to upper triangular form by Householder
// transformations with column pivoting, 𝐐𝐀𝐏 = 𝐑. The pseudo-rank k is the
// number of diagonal elements of 𝐑 exceeding tau in magnitude; the rows of
// 𝐑 below row k are discarded, which regularizes rank-deficient problems.
// When k < n a second set of transformations 𝐊 triangulates the first k
// rows from the right, [𝐑₁₁:𝐑₁₂]𝐊 = [𝐖:೦], and the minimum-length solution
// is 𝐱 = 𝐏𝐊[𝐖⁻¹𝐜₁ ೦]ᵀ.
//
// a is the column-major matrix 𝐀 with leading dimension mda; it is
// overwritten with the factorization. b holds 𝐁 column-major with leading
// dimension mdb and returns 𝐗 in its first n rows; nb = 0 skips it.
// norm[j] returns ‖𝐫‖₂ for the j-th right-hand side. h, g and ip are
// workspaces of length ≥ n, ≥ min(m,n) and ≥ min(m,n). The pseudo-rank is
// returned.
//
// C.L. Lawson, R.J. Hanson, 'Solving Least Squares Problems', Prentice
// Hall, 1974 (revised 1995 edition), chapter 14, algorithm 14.9.
func HFTI(a []float64, mda, m, n int, b []float64, mdb, nb int,
	tau float64, norm, h, g []float64, ip []int) int {

	const factor = 0.001

	diag := min(m, n)
	if diag <= 0 {
		return 0
	}

	if n > len(h) || diag > len(ip) {
		panic("bound check error")
	}

	hmax := zero
	for j := 0; j < diag; j++ {
		// Update the squared column lengths and find the pivot column.
		lmax := j
		if j > 0 {
			v := math.NaN()
			for l := j; l < n; l++ {
				t := a[(j-1)+mda*l]
				if h[l] -= t * t; !(h[l] <= v) {
					lmax, v = l, h[l]
				}
			}
		}
		// Recompute from scratch when cancellation has eaten the update.
		if j == 0 || factor*h[lmax] < hmax*eps {
			v := math.NaN()
			for l := j; l < n; l++ {
				sm := zero
				for _, t := range a[j+mda*l : m+mda*l] {
					sm += t * t
				}
				if h[l] = sm; !(h[l] <= v) {
					lmax, v = l, h[l]
				}
			}
			hmax = h[lmax]
		}

		ip[j] = lmax
		if ip[j] != j {
			c1, c2 := a[mda*j:mda*j+m], a[mda*lmax:mda*lmax+m]
			for i := 0; i < m; i++ {
				c1[i], c2[i] = c2[i], c1[i]
			}
			h[lmax] = h[j]
		}

		// Compute the j-th transformation and apply it to 𝐀 and 𝐁.
		i := min(j+1, n-1)
		h[j] = h1(j, j+1, m, a[mda*j:], 1)
		h2(j, j+1, m, a[mda*j:], 1, h[j], a[mda*i:], 1, mda, n-j-1)
		h2(j, j+1, m, a[mda*j:], 1, h[j], b, 1, mdb, nb)
	}

	// Pseudo-rank: the leading diagonal run with |𝐑ⱼⱼ| > 𝛕.
	k := diag
	for j := 0; j < diag; j++ {
		if math.Abs(a[j+mda*j]) <= tau {
			k = j
			break
		}
	}

	if k > len(g) || nb > len(norm) {
		panic("bound check error")
	}

	// Residual norms ‖𝐠₂‖ ≡ ‖𝐜₂‖ per right-hand side.
	for jb := 0; jb < nb; jb++ {
		sm := zero
		if k < m {
			for _, t := range b[mdb*jb+k : mdb*jb+m] {
				sm += t * t
			}
		}
		norm[jb] = math.Sqrt(sm)
	}

	if k == 0 {
		for jb := 0; jb < nb; jb++ {
			dzero(b[mdb*jb : mdb*jb+n])
		}
		return k
	}

	// When the pseudo-rank is below n, triangulate the first k rows
	// from the right.
	if k < n {
		for i := k - 1; i >= 0; i-- {
			g[i] = h1(i, k, n, a[i:], mda)
			h2(i, k, n, a[i:], mda, g[i], a, mda, 1, i)
		}
	}

	for jb := 0; jb < nb; jb++ {
		cb := b[mdb*jb:]
		if k > len(cb) || n > len(cb) {
			panic("bound check error")
		}

		// Solve the k × k triangular system 𝐖𝐲₁ = 𝐜₁.
		for i := k - 1; i >= 0; i-- {
			sm := zero
			for j := uint(i + 1); j < uint(k); j++ {
				sm += a[i+mda*int(j)] * cb[j]
			}
			cb[i] = (cb[i] - sm) / a[i+mda*i]
		}

		if k < n {
			dzero(cb[k:n])
			for i := 0; i < k; i++ {
				h2(i, k, n, a[i:], mda, g[i], cb, 1, mdb, 1)
			}
		}

		// Undo the column interchanges to obtain 𝐱.
		for j := diag - 1; j >= 0; j-- {
			if l := ip[j]; l != j {
				cb[l], cb[j] = cb[j], cb[l]
			}
		}
	}

	return k
}
