// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnls

// mask is an n×n 0/1 matrix of activated constraint pairs. Entries only
// ever flip 0→1: the constraint set grows monotonically across outer
// iterations, which is what rules out cycling in the cutting-plane loop.
type mask struct {
	n     int
	cells []uint8
}

func newMask(n int) *mask {
	return &mask{n: n, cells: make([]uint8, n*n)}
}

func (m *mask) at(i, j int) bool { return m.cells[i*m.n+j] != 0 }

func (m *mask) mark(i, j int) { m.cells[i*m.n+j] = 1 }

// count reports the number of activated pairs.
func (m *mask) count() int {
	c := 0
	for _, v := range m.cells {
		if v != 0 {
			c++
		}
	}
	return c
}
