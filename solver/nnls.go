// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import "math"

// NNLS (Non-Negative Least Squares) solves 𝚖𝚒𝚗 ‖𝐀𝐱 - 𝐛‖₂ subject to 𝐱 ≥ 0
// by the Lawson-Hanson active-set method.
//
// Indices are split between the zero set ℤ, whose variables are held at
// zero, and the passive set ℙ, whose variables are free to take positive
// values. Each outer step inspects the dual vector 𝐰 = 𝐀ᵀ(𝐛 - 𝐀𝐱); the
// most positive component names the constraint whose release decreases the
// objective most, and its index moves from ℤ to ℙ. The unconstrained
// subproblem on ℙ is maintained in QR form by Householder transformations
// applied to the augmented system [𝐀:𝐛]. Whenever the subproblem solution
// turns a passive coefficient negative, the step is cut back to the
// feasible boundary and the blocking indices return to ℤ, with Givens
// rotations repairing the triangular factor. At termination 𝐰ⱼ ≤ 0 for
// all j ∈ ℤ, which is the Kuhn-Tucker condition for this problem.
//
// a holds 𝐀 column-major with leading dimension mda and returns 𝐐𝐀; b
// holds 𝐛 and returns 𝐐𝐛. x receives the solution, w the dual vector,
// z and index are workspaces of length ≥ m and ≥ n. maxIter ≤ 0 selects
// the default budget of 3n. The Euclidean norm of the residual is
// returned with the status.
//
// C.L. Lawson, R.J. Hanson, 'Solving Least Squares Problems', Prentice
// Hall, 1974 (revised 1995 edition), chapter 23, algorithm 23.10.
func NNLS(m, n int, a []float64, mda int, b, x, w, z []float64, index []int, maxIter int) (float64, Status) {

	const factor = 0.01

	if m <= 0 || n <= 0 || mda < m ||
		len(a) < mda*n || len(b) < m || len(x) < n || len(w) < n || len(z) < m || len(index) < n {
		return math.NaN(), Invalid
	}

	if maxIter <= 0 {
		maxIter = 3 * n
	}

	np := 0 // number of indices in ℙ
	z1 := 0 // start of ℤ within index

	// index = ℙ ∪ ℤ; ℙ = index[:np], ℤ = index[z1:].
	index = index[:n]
	for i := range index {
		index[i] = i
	}

	// Start from 𝐱 = 0 with every index in ℤ.
	dzero(x[:n])

	iter := 0
	term := func() (rnorm float64, status Status) {
		if np < m {
			rnorm = dnrm2(m-np, b[np:], 1)
		} else {
			dzero(w[:n])
		}
		if iter > maxIter {
			status = IterationLimit
		} else {
			status = Optimal
		}
		return
	}

	for {
		// Quit when ℤ is empty or m columns have been triangularized.
		if z1 >= n || np >= m {
			return term()
		}

		// Dual vector on ℤ. With 𝐱ⱼ = 0 there and 𝐰ⱼ = 0 on ℙ this
		// reduces to 𝐰 = (𝐐𝐀)ᵀ𝐐𝐛 on the untriangularized rows.
		for _, j := range index[z1:] {
			w[j] = ddot(m-np, a[np+mda*j:], 1, b[np:], 1)
		}

		for {
			// Pick t ∈ ℤ with the most positive dual component.
			wmax, izmax := zero, 0
			for i, j := range index[z1:] {
				if w[j] > wmax {
					wmax, izmax = w[j], z1+i
				}
			}

			// 𝐰ⱼ ≤ 0 for all j ∈ ℤ: the Kuhn-Tucker conditions hold.
			if wmax <= zero {
				return term()
			}

			iz := izmax
			j := index[iz]
			aj := a[mda*j : mda*j+m : mda*j+m]

			// Build the Householder transformation for column j and
			// check the new diagonal element against near dependence.
			asave := aj[np]
			up := h1(np, np+1, m, aj, 1)

			accept := false
			unorm := dnrm2(np, aj, 1)
			if math.Abs(aj[np])*factor >= unorm*eps {
				// Column j is numerically independent: the proposed
				// new coefficient must come out positive.
				copy(z[:m], b[:m])
				h2(np, np+1, m, aj, 1, up, z, 1, 1, 1)
				ztest := z[np] / aj[np]
				accept = ztest > zero
			}

			if !accept {
				// Reject the candidate, restore the column and retry.
				aj[np] = asave
				w[j] = zero
				continue
			}

			copy(b[:m], z[:m])

			// Move j from ℤ to ℙ.
			index[iz] = index[z1]
			index[z1] = j
			z1++
			np++

			// Apply the transformation to the columns left in ℤ.
			if z1 < n {
				for _, jj := range index[z1:] {
					h2(np-1, np, m, aj, 1, up, a[jj*mda:], 1, mda, 1)
				}
			}
			if np < m {
				dzero(aj[np:m])
			}
			w[j] = zero
			break
		}

		// Inner loop: solve the subproblem on ℙ and push blocking
		// coefficients back to ℤ until the solution is feasible.
		for {
			// Back substitution through the triangular factor.
			for ip, jc := np-1, -1; ip >= 0; ip-- {
				if jc >= 0 {
					daxpy(ip+1, -z[ip+1], a[jc*mda:], 1, z, 1)
				}
				jc = index[ip]
				z[ip] /= a[ip+jc*mda]
			}

			if iter++; iter > maxIter {
				return term()
			}

			// ɑ = min { 𝐱ⱼ/(𝐱ⱼ-𝐳ⱼ) : 𝐳ⱼ ≤ 0, j ∈ ℙ } bounds the step
			// at the first coefficient to hit zero.
			alpha, jj := two, -1
			for ip, l := range index[:np] {
				if z[ip] <= zero {
					t := -x[l] / (z[ip] - x[l])
					if alpha > t {
						alpha, jj = t, ip
					}
				}
			}

			// All coefficients feasible: accept and return to the
			// outer loop.
			if jj < 0 {
				for ip, idx := range index[:np] {
					x[idx] = z[ip]
				}
				break
			}

			// Interpolate 𝐱 = 𝐱 + ɑ(𝐬 - 𝐱) onto the boundary.
			for ip, l := range index[:np] {
				x[l] += alpha * (z[ip] - x[l])
			}

			// Move the blocking coefficient from ℙ to ℤ, repairing the
			// triangular factor with Givens rotations. Round-off can
			// leave further non-positive coefficients in ℙ; they are
			// moved out the same way.
			i := index[jj]
			for {
				x[i] = zero
				for j := jj + 1; j < np; j++ {
					ii := index[j]
					ci := a[ii*mda:]
					index[j-1] = ii
					var cc, ss float64
					cc, ss, ci[j-1] = g1(ci[j-1], ci[j])
					ci[j] = zero
					for l := 0; l < n; l++ {
						if l != ii {
							cl := a[l*mda : l*mda+j+1 : l*mda+j+1]
							cl[j-1], cl[j] = g2(cc, ss, cl[j-1], cl[j])
						}
					}
					b[j-1], b[j] = g2(cc, ss, b[j-1], b[j])
				}

				np--
				z1--
				index[z1] = i

				jj = -1
				for ip, idx := range index[:np] {
					if x[idx] <= zero {
						jj, i = ip, idx
						break
					}
				}
				if jj < 0 {
					break
				}
			}

			// Refresh the right-hand side and solve again.
			copy(z[:m], b[:m])
		}
	}
}
