// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import "math"

var sqrtEps = math.Sqrt(eps)

// h1 constructs a Householder transformation Q = I - b⁻¹uuᵀ with b = s·uₚ
// that zeroes elements l through m-1 of the pivot vector v while acting on
// the pivot element at index p (0 ≤ p < l). When l ≥ m the transformation
// is the identity.
//
// On entry v holds the pivot vector with stride ive between elements. On
// return v holds u except for uₚ, which is returned separately, and v[p]
// holds the transformed pivot yₚ = s.
//
// C.L. Lawson, R.J. Hanson, 'Solving Least Squares Problems', Prentice
// Hall, 1974 (revised 1995 edition), chapter 10.
func h1(p, l, m int, v []float64, ive int) (up float64) {
	if p < 0 || p >= l || l >= m {
		return
	}

	lp := uint(p * ive)
	l1 := uint(l * ive)
	lm := uint((m - 1) * ive)
	lv := uint(len(v))
	if m < 0 || ive <= 0 || lp >= lv || l1 >= lv || lm >= lv {
		panic("bound check error")
	}

	maxV := math.Abs(v[lp])
	for j := l1; j <= lm; j += uint(ive) {
		maxV = math.Max(math.Abs(v[j]), maxV)
	}
	if maxV <= zero {
		return
	}

	// s = -sgn(vₚ)·(vₚ² + ∑vᵢ²)¹ᐟ², accumulated on v/maxV to avoid overflow.
	invV := one / maxV
	sumV := (v[lp] * invV) * (v[lp] * invV)
	for j := l1; j <= lm; j += uint(ive) {
		sumV += (v[j] * invV) * (v[j] * invV)
	}
	s := maxV * math.Sqrt(sumV)
	if v[lp] > zero {
		s = -s
	}

	up = v[lp] - s
	v[lp] = s
	return
}

// h2 applies the transformation built by h1 to a set of ncv vectors stored
// in c: each vector becomes Qc = c + b⁻¹(uᵀc)·u. ice is the stride between
// elements of one vector, icv the stride between consecutive vectors.
func h2(p, l, m int, u []float64, iue int, up float64, c []float64, ice, icv, ncv int) {
	if p < 0 || p >= l || l >= m || ncv <= 0 {
		return
	}

	b := u[p*iue] * up
	if b >= zero {
		// b = s·uₚ = 0 means Q is the identity.
		return
	}
	b = one / b

	base := uint(ice * p)
	incr := uint(ice * (l - p))
	l1 := uint(l * iue)
	lm := uint((m - 1) * iue)
	lu := uint(len(u))
	lc := uint(len(c))
	ln := base + uint(icv)*(uint(ncv)-1)
	if m < 0 || iue <= 0 || l1 >= lu || lm >= lu || base >= lc || ln >= lc {
		panic("bound check error")
	}

	for j := base; j <= ln; j += uint(icv) {
		c1, cm := j+incr, (j+incr)+uint(m-l-1)*uint(ice)
		if c1 >= lc || cm >= lc {
			panic("bound check error")
		}
		// uᵀc = uₚcₚ + ∑cᵢuᵢ over l ≤ i < m.
		sm := c[j] * up
		for iu, ic := l1, c1; iu <= lm && ic <= cm; {
			sm += c[ic] * u[iu]
			ic += uint(ice)
			iu += uint(iue)
		}
		if sm != zero {
			sm *= b
			c[j] += sm * up
			for iu, ic := l1, c1; iu <= lm && ic <= cm; {
				c[ic] += sm * u[iu]
				ic += uint(ice)
				iu += uint(iue)
			}
		}
	}
}

// g1 computes a 2×2 Givens rotation
//
//	G ⎡a⎤ ≡ ⎡ c s⎤⎡a⎤ = ⎡(a²+b²)¹ᐟ²⎤ ≡ ⎡sig⎤
//	  ⎣b⎦   ⎣-s c⎦⎣b⎦   ⎣    0     ⎦   ⎣ 0 ⎦
//
// C.L. Lawson, R.J. Hanson, 'Solving Least Squares Problems', Prentice
// Hall, 1974 (revised 1995 edition), chapter 3.
func g1(a, b float64) (c, s, sig float64) {
	if xa, xb := math.Abs(a), math.Abs(b); xa > xb {
		xr := b / a
		yr := math.Sqrt(1 + xr*xr)
		c = math.Copysign(1/yr, a)
		s = c * xr
		sig = xa * yr
	} else if xb > 0 {
		xr := a / b
		yr := math.Sqrt(1 + xr*xr)
		s = math.Copysign(1/yr, b)
		c = s * xr
		sig = xb * yr
	} else {
		s = 1
	}
	return
}

// g2 applies the rotation computed by g1 to the pair (x, y).
func g2(c, s float64, x, y float64) (xr, yr float64) {
	return c*x + s*y, -s*x + c*y
}
