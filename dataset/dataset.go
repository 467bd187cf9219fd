// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dataset loads named-column observation tables from CSV and
// bundles a small synthetic plant-level production table for examples
// and tests.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	_ "embed"

	"gonum.org/v1/gonum/mat"
)

// ErrColumn marks a column selection that the table does not carry.
var ErrColumn = errors.New("dataset: unknown column")

//go:embed plants.csv
var plantsCSV string

// Table is an immutable table of float64 observations with named
// columns, stored column-major.
type Table struct {
	names []string
	cols  [][]float64
	n     int
}

// ReadCSV parses a table from CSV: one header record naming the columns,
// then one numeric record per observation.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: header: %w", err)
	}
	t := &Table{names: make([]string, len(header)), cols: make([][]float64, len(header))}
	for i, name := range header {
		t.names[i] = strings.TrimSpace(name)
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: %w", t.n+1, err)
		}
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d, column %q: %w", t.n+1, t.names[i], err)
			}
			t.cols[i] = append(t.cols[i], v)
		}
		t.n++
	}
	return t, nil
}

// Plants returns the bundled synthetic plant-level production table:
// 30 plants with output, labor, capital, energy and SO₂ emission
// columns. Every call returns an independent copy.
func Plants() *Table {
	t, err := ReadCSV(strings.NewReader(plantsCSV))
	if err != nil {
		panic("dataset: embedded table: " + err.Error())
	}
	return t
}

// Len reports the number of observations.
func (t *Table) Len() int { return t.n }

// Names lists the column names in file order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

func (t *Table) index(name string) (int, error) {
	for i, n := range t.names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrColumn, name)
}

// Col returns a copy of one named column.
func (t *Table) Col(name string) ([]float64, error) {
	i, err := t.index(name)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), t.cols[i]...), nil
}

// Cols assembles the named columns into an n×len(names) matrix, in the
// order given.
func (t *Table) Cols(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no columns selected", ErrColumn)
	}
	if t.n == 0 {
		return nil, errors.New("dataset: empty table")
	}
	m := mat.NewDense(t.n, len(names), nil)
	for j, name := range names {
		i, err := t.index(name)
		if err != nil {
			return nil, err
		}
		m.SetCol(j, t.cols[i])
	}
	return m, nil
}
