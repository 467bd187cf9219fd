// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import "math"

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

// daxpy computes dy += da*dx over n elements with the given strides.
func daxpy(n int, da float64, dx []float64, incx int, dy []float64, incy int) {
	if n <= 0 || da == zero {
		return
	}
	if incx == 1 && incy == 1 {
		x := dx[:n]
		y := dy[:n:n]
		for i := range y {
			y[i] += da * x[i]
		}
		return
	}
	lx, ly := uint(incx*(n-1)), uint(incy*(n-1))
	if lx >= uint(len(dx)) || ly >= uint(len(dy)) {
		panic("bound check error")
	}
	ix, iy := uint(0), uint(0)
	for ix <= lx && iy <= ly {
		dy[iy] += da * dx[ix]
		ix += uint(incx)
		iy += uint(incy)
	}
}

// ddot computes the dot product of two strided vectors.
func ddot(n int, dx []float64, incx int, dy []float64, incy int) (dot float64) {
	if n <= 0 {
		return zero
	}
	if incx == 1 && incy == 1 {
		x := dx[:n]
		y := dy[:n:n]
		for i := range y {
			dot += x[i] * y[i]
		}
		return dot
	}
	lx, ly := uint(incx*(n-1)), uint(incy*(n-1))
	if lx >= uint(len(dx)) || ly >= uint(len(dy)) {
		panic("bound check error")
	}
	ix, iy := uint(0), uint(0)
	for ix <= lx && iy <= ly {
		dot += dx[ix] * dy[iy]
		ix += uint(incx)
		iy += uint(incy)
	}
	return dot
}

// dcopy copies n elements of x into y with the given strides.
func dcopy(n int, dx []float64, incx int, dy []float64, incy int) {
	if n <= 0 {
		return
	}
	if incx == 1 && incy == 1 {
		copy(dy[:n], dx[:n])
		return
	}
	lx, ly := uint(incx*(n-1)), uint(incy*(n-1))
	if lx >= uint(len(dx)) || ly >= uint(len(dy)) {
		panic("bound check error")
	}
	ix, iy := uint(0), uint(0)
	for ix <= lx && iy <= ly {
		dy[iy] = dx[ix]
		ix += uint(incx)
		iy += uint(incy)
	}
}

// dscal scales a strided vector by a constant.
func dscal(n int, da float64, dx []float64, incx int) {
	if n <= 0 || incx <= 0 {
		return
	}
	if incx == 1 {
		d := dx[:n:n]
		for i := range d {
			d[i] *= da
		}
		return
	}
	l := uint(incx * n)
	if l > uint(len(dx)) {
		panic("bound check error")
	}
	for i := uint(0); i < l; i += uint(incx) {
		dx[i] *= da
	}
}

// dnrm2 computes the Euclidean norm of a strided vector without
// intermediate overflow, scaling by the running max magnitude.
func dnrm2(n int, x []float64, incx int) float64 {
	if n < 1 || incx < 1 {
		return zero
	}
	m := uint(incx * n)
	if m > uint(len(x)) {
		panic("bound check error")
	}
	if n == 1 {
		return math.Abs(x[0])
	}
	scale := zero
	ssq := one
	for i := uint(0); i < m; i += uint(incx) {
		if absxi := math.Abs(x[i]); absxi > 0 {
			if scale < absxi {
				sxi := scale / absxi
				ssq = 1 + ssq*sxi*sxi
				scale = absxi
			} else {
				sxi := absxi / scale
				ssq += sxi * sxi
			}
		}
	}
	return scale * math.Sqrt(ssq)
}

// dzero fills x with zeros.
func dzero(dx []float64) {
	for i := range dx {
		dx[i] = zero
	}
}
