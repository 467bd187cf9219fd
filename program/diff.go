// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package program

import (
	"errors"
	"math"
)

var (
	fwdEps = math.Sqrt(math.Nextafter(1, 2) - 1)
	cenEps = math.Cbrt(math.Nextafter(1, 2) - 1)
)

// DiffMethod selects the finite-difference scheme for ApproxJacobian.
type DiffMethod int

const (
	// Forward uses first-order forward differences.
	Forward DiffMethod = iota
	// Central uses second-order central differences.
	Central
)

// ApproxJacobian estimates the m × n Jacobian of f at x0 by finite
// differences and stores it row-major in jac. The step is chosen per
// component as 𝚜𝚐𝚗(x₀ᵢ)·ε·𝚖𝚊𝚡(1,|x₀ᵢ|) with ε matched to the scheme order,
// unless step > 0 overrides it. x0 is restored on return.
//
// The argument slice handed to f is reused between evaluations; f must not
// retain it. Intended for validating the analytic row gradients of a
// Program against a numeric estimate.
func ApproxJacobian(method DiffMethod, f func(x, y []float64), n, m int, x0, jac []float64, step float64) error {
	switch {
	case n <= 0 || m <= 0:
		return errors.New("program: non-positive jacobian dimensions")
	case f == nil:
		return errors.New("program: jacobian function is required")
	case len(x0) != n:
		return errors.New("program: invalid x0 dimension")
	case len(jac) != n*m:
		return errors.New("program: invalid jacobian dimension")
	case method != Forward && method != Central:
		return errors.New("program: unknown difference method")
	}

	f0 := make([]float64, m)
	f1 := make([]float64, m)
	f2 := make([]float64, m)
	f(x0, f0)

	for i := 0; i < n; i++ {
		h := step
		if h <= 0 {
			eps := fwdEps
			if method == Central {
				eps = cenEps
			}
			h = math.Copysign(eps, x0[i]) * math.Max(1, math.Abs(x0[i]))
		}
		t := x0[i]
		if method == Forward {
			x0[i] = t + h
			f(x0, f1)
			d := 1 / ((t + h) - t)
			for j := 0; j < m; j++ {
				jac[j*n+i] = (f1[j] - f0[j]) * d
			}
		} else {
			x0[i] = t - h
			f(x0, f1)
			x0[i] = t + h
			f(x0, f2)
			d := 1 / (2 * h)
			for j := 0; j < m; j++ {
				jac[j*n+i] = (f2[j] - f1[j]) * d
			}
		}
		x0[i] = t
	}
	return nil
}
