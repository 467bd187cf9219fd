// Copyright ©2025 convexfit. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/convexfit/frontier/program"
)

// Client submits programs to a remote solving service over HTTP.
//
// Each solve is a POST of {"id","choice","program"} to the target
// address; the service answers with a Solution body
// {"status","x","objective","iterations"}. An answer whose status
// carries an assignment must cover every program variable; anything
// shorter is rejected as malformed. The request id is also sent as the
// X-Request-Id header so service logs line up with client logs.
type Client struct {
	addr   string
	choice Choice
	http   *http.Client
}

type solveRequest struct {
	ID      string           `json:"id"`
	Choice  Choice           `json:"choice"`
	Program *program.Program `json:"program"`
}

// Solve implements Interface.
func (c *Client) Solve(ctx context.Context, p *program.Program) (*Solution, error) {
	if p == nil {
		return nil, ErrProgram
	}
	if err := p.Check(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProgram, err)
	}

	id := uuid.NewString()
	payload, err := json.Marshal(solveRequest{ID: id, Choice: c.choice, Program: p})
	if err != nil {
		return nil, fmt.Errorf("solver: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", id)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solver: submit %s: %w", id, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("solver: read response %s: %w", id, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("solver: remote %s: %d %s", id, resp.StatusCode, body)
	}

	var sol Solution
	if err := json.Unmarshal(body, &sol); err != nil {
		return nil, fmt.Errorf("solver: decode response %s: %w", id, err)
	}
	if sol.Status == Optimal || sol.Status == IterationLimit {
		if got, want := len(sol.X), p.NumVars(); got != want {
			return nil, fmt.Errorf("solver: response %s: %s solution assigns %d variables, want %d", id, sol.Status, got, want)
		}
	}
	return &sol, nil
}
