// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solver turns program values into solutions.
//
// The package offers two oracles behind one interface: an in-process
// engine built on the Lawson-Hanson constrained least-squares kernels
// (LSEI and its supporting routines), and a thin HTTP client that ships
// the same program to a remote solving service. Callers pick between them
// with a Target and name the algorithm with a Choice; New resolves the
// pair into an Interface.
package solver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/convexfit/frontier/program"
)

// Interface is the solve oracle. Solve reports solver outcomes through
// Solution.Status; the error return is reserved for misuse and transport
// failures.
type Interface interface {
	Solve(ctx context.Context, p *program.Program) (*Solution, error)
}

var (
	// ErrChoice reports an engine name the selected target cannot run.
	ErrChoice = errors.New("solver: unknown engine choice")
	// ErrTarget reports a remote target without an address.
	ErrTarget = errors.New("solver: remote target requires an address")
	// ErrProgram reports a nil or malformed program.
	ErrProgram = errors.New("solver: invalid program")
)

// Target selects where a program is solved: in process, or by a remote
// service reachable at an address.
type Target struct {
	remote bool
	addr   string
}

// Local solves in process.
func Local() Target { return Target{} }

// Remote submits programs to the solving service at addr.
func Remote(addr string) Target { return Target{remote: true, addr: addr} }

// IsLocal reports whether the target solves in process.
func (t Target) IsLocal() bool { return !t.remote }

func (t Target) String() string {
	if t.IsLocal() {
		return "local"
	}
	return t.addr
}

// Choice names the algorithm the oracle should run. The local engine
// accepts only Default; a remote service interprets the name itself.
type Choice string

// Default selects constrained least squares via LSEI, with sequential
// linearization when the program carries log rows.
const Default Choice = "lsei"

type options struct {
	ridge   float64
	stepTol float64
	maxIter int
	lsIter  int
	client  *http.Client
	timeout time.Duration
}

// Option adjusts oracle construction.
type Option func(*options)

// WithRidge sets the regularization factor applied to non-residual
// variables. Zero disables the ridge; programs whose solution is not
// unique then surface as Singular.
func WithRidge(r float64) Option { return func(o *options) { o.ridge = r } }

// WithStepTolerance sets the max-norm step size below which sequential
// linearization stops.
func WithStepTolerance(tol float64) Option { return func(o *options) { o.stepTol = tol } }

// WithMaxIterations caps the sequential linearization loop.
func WithMaxIterations(n int) Option { return func(o *options) { o.maxIter = n } }

// WithNNLSIterations caps the active-set iterations of each inner
// nonnegative least-squares solve. Zero keeps the kernel default of
// three iterations per variable.
func WithNNLSIterations(n int) Option { return func(o *options) { o.lsIter = n } }

// WithHTTPClient replaces the remote client's http.Client.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

// WithTimeout sets the remote request timeout. Ignored when a custom
// http.Client is supplied.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// New resolves a target and an engine choice into a solve oracle.
func New(target Target, choice Choice, opts ...Option) (Interface, error) {
	o := options{
		ridge:   1e-8,
		stepTol: 1e-8,
		maxIter: 100,
		timeout: 5 * time.Minute,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if choice == "" {
		choice = Default
	}

	if target.IsLocal() {
		if choice != Default {
			return nil, fmt.Errorf("%w: %q", ErrChoice, choice)
		}
		return &Engine{
			ridge:   o.ridge,
			stepTol: o.stepTol,
			maxIter: o.maxIter,
			lsIter:  o.lsIter,
		}, nil
	}

	if target.addr == "" {
		return nil, ErrTarget
	}
	client := o.client
	if client == nil {
		client = &http.Client{Timeout: o.timeout}
	}
	return &Client{addr: target.addr, choice: choice, http: client}, nil
}
