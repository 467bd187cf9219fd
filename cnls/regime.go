// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cnls

import (
	"errors"
	"fmt"
)

// ErrRegime marks an undefined combination of model parameters.
var ErrRegime = errors.New("cnls: undefined model parameters")

// ErrorTerm selects the composite error form of the regression.
type ErrorTerm int

const (
	// Additive puts the error on the level of the output.
	Additive ErrorTerm = iota
	// Multiplicative puts the error on the log of the output.
	Multiplicative
)

func (e ErrorTerm) String() string {
	switch e {
	case Additive:
		return "additive"
	case Multiplicative:
		return "multiplicative"
	}
	return fmt.Sprintf("errorterm(%d)", int(e))
}

// Direction selects which side of the data the frontier envelops.
type Direction int

const (
	// Production estimates a production frontier (concave, from above).
	Production Direction = iota
	// Cost estimates a cost frontier (convex, from below).
	Cost
)

func (d Direction) String() string {
	switch d {
	case Production:
		return "production"
	case Cost:
		return "cost"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Scale selects the returns-to-scale assumption.
type Scale int

const (
	// Varying allows a free intercept per unit.
	Varying Scale = iota
	// Constant forces the frontier through the origin; no intercept.
	Constant
)

func (s Scale) String() string {
	switch s {
	case Varying:
		return "vrs"
	case Constant:
		return "crs"
	}
	return fmt.Sprintf("scale(%d)", int(s))
}

// Regime is the immutable structural configuration of an estimation run.
// It determines which constraint templates the model builder instantiates
// and which closed-form violation scores the scanner applies.
type Regime struct {
	Error     ErrorTerm
	Direction Direction
	Scale     Scale
}

// Validate fails fast on an unrecognized combination, before any model
// variable is created.
func (r Regime) Validate() error {
	if r.Error != Additive && r.Error != Multiplicative {
		return fmt.Errorf("%w: error term %d", ErrRegime, int(r.Error))
	}
	if r.Direction != Production && r.Direction != Cost {
		return fmt.Errorf("%w: direction %d", ErrRegime, int(r.Direction))
	}
	if r.Scale != Varying && r.Scale != Constant {
		return fmt.Errorf("%w: scale %d", ErrRegime, int(r.Scale))
	}
	return nil
}

func (r Regime) String() string {
	return r.Error.String() + "/" + r.Direction.String() + "/" + r.Scale.String()
}

// sign orients inequality templates and violation scores: production
// frontiers bound from above, cost frontiers from below.
func (r Regime) sign() float64 {
	if r.Direction == Cost {
		return -1
	}
	return 1
}
