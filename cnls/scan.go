// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnls

import "gonum.org/v1/gonum/floats"

// tolerance bounds both violation statistics at convergence.
const tolerance = 1e-4

// hyperplane evaluates unit j's fitted hyperplane at unit i's data:
// α_j + β_j·x_i + δ_j·b_i, without the intercept under constant returns.
func hyperplane(pr params, d *data, j, i int) float64 {
	v := floats.Dot(pr.beta[j], d.x[i]) + floats.Dot(pr.delta[j], d.b[i])
	if pr.alpha != nil {
		v += pr.alpha[j]
	}
	return v
}

// support evaluates unit j's input support at unit i's inputs:
// α_j + β_j·x_i.
func support(pr params, d *data, j, i int) float64 {
	v := floats.Dot(pr.beta[j], d.x[i])
	if pr.alpha != nil {
		v += pr.alpha[j]
	}
	return v
}

// scanConcave scores every ordered pair (i, j) for a concavity violation:
// how far unit i's own fitted value rises above unit j's hyperplane
// evaluated at i (a cost frontier flips the sign). For each row the
// columns attaining a positive row maximum are all marked in m, ties
// included; marked entries are never cleared. The return value is the
// largest violation across all rows and is the convergence statistic of
// the concavity family.
func scanConcave(d *data, reg Regime, pr params, m *mask) float64 {
	s := reg.sign()
	worst := 0.0
	row := make([]float64, d.n)
	for i := 0; i < d.n; i++ {
		own := hyperplane(pr, d, i, i)
		rowmax := 0.0
		for j := 0; j < d.n; j++ {
			row[j] = s * (own - hyperplane(pr, d, j, i))
			if row[j] > rowmax {
				rowmax = row[j]
			}
		}
		if rowmax > 0 {
			for j := 0; j < d.n; j++ {
				if row[j] >= rowmax {
					m.mark(i, j)
				}
			}
		}
		if rowmax > worst {
			worst = rowmax
		}
	}
	return worst
}

// scanWeak is the disposability counterpart of scanConcave. The score of
// pair (i, j) is −s·(α_j + β_j·x_i); there is no self term to exclude, so
// the diagonal competes for the row maximum like any other column.
func scanWeak(d *data, reg Regime, pr params, m *mask) float64 {
	s := reg.sign()
	worst := 0.0
	row := make([]float64, d.n)
	for i := 0; i < d.n; i++ {
		rowmax := 0.0
		for j := 0; j < d.n; j++ {
			row[j] = -s * support(pr, d, j, i)
			if row[j] > rowmax {
				rowmax = row[j]
			}
		}
		if rowmax > 0 {
			for j := 0; j < d.n; j++ {
				if row[j] >= rowmax {
					m.mark(i, j)
				}
			}
		}
		if rowmax > worst {
			worst = rowmax
		}
	}
	return worst
}
