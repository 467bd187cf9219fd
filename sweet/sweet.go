// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sweet preselects constraint pairs by the sweet-spot heuristic.
//
// Shape-constrained regressions couple every pair of units, which makes
// the full constraint set quadratic in the sample size. Most of those
// constraints end up slack: a unit's hyperplane is contested only by its
// neighbours. The sweet spot of a unit is the set of units within the 3rd
// percentile of its distances to everyone else; pairs inside it seed the
// constraint set, and the remainder is left to violation-driven
// activation.
package sweet

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const cutPercentile = 0.03

// Spot returns the n×n sweet-spot mask of the rows of data:
// spot[i][j] reports whether unit j lies within the distance cut of
// unit i. The cut is the 3rd percentile of row i's Euclidean distances
// to all other rows. Self-distances sit on the diagonal and are always
// inside. The result depends only on the input.
func Spot(data mat.Matrix) [][]bool {
	n, cols := data.Dims()
	spot := make([][]bool, n)
	for i := range spot {
		spot[i] = make([]bool, n)
		spot[i][i] = true
	}
	if n < 2 {
		return spot
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, cols)
		mat.Row(rows[i], i, data)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(rows[i], rows[j], 2)
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	sample := make([]float64, n-1)
	for i := 0; i < n; i++ {
		sample = sample[:0]
		for j := 0; j < n; j++ {
			if j != i {
				sample = append(sample, dist[i][j])
			}
		}
		sort.Float64s(sample)
		cut := stat.Quantile(cutPercentile, stat.LinInterp, sample, nil)
		for j := 0; j < n; j++ {
			if dist[i][j] <= cut {
				spot[i][j] = true
			}
		}
	}
	return spot
}
