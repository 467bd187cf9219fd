// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import "fmt"

// Status classifies the outcome of a solve.
type Status int

const (
	// Invalid marks a malformed program or unacceptable argument dimensions.
	Invalid Status = iota
	// Optimal marks a successful solve.
	Optimal
	// Infeasible marks incompatible constraints.
	Infeasible
	// Unbounded marks an objective unbounded below on the feasible set.
	Unbounded
	// Singular marks a rank-deficient subproblem matrix.
	Singular
	// IterationLimit marks an iteration budget exhausted before convergence.
	IterationLimit
	// Failed marks an engine or transport failure with no usable result.
	Failed
)

var statusText = map[Status]string{
	Invalid:        "invalid",
	Optimal:        "optimal",
	Infeasible:     "infeasible",
	Unbounded:      "unbounded",
	Singular:       "singular",
	IterationLimit: "iteration limit",
	Failed:         "failed",
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler so statuses survive the
// JSON wire format and YAML configuration unchanged.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for k, t := range statusText {
		if t == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("solver: unknown status %q", b)
}

// Solution is the variable assignment returned by a solve.
type Solution struct {
	Status     Status    `json:"status"`
	X          []float64 `json:"x,omitempty"`
	Objective  float64   `json:"objective"`
	Iterations int       `json:"iterations"`
}

// IsOptimal reports whether the solve succeeded.
func (s *Solution) IsOptimal() bool { return s != nil && s.Status == Optimal }
