// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"sync"
	"time"
)

// ErrRunInProgress is returned by Guard.Start while another run is active.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Status is a snapshot of the guard's state. While a run is active RunID is
// the active run once it has reported its identifier; otherwise it is the
// last finished run.
type Status struct {
	Running    bool       `json:"running"`
	RunID      string     `json:"run_id,omitempty"`
	LastStart  *time.Time `json:"last_start,omitempty"`
	LastFinish *time.Time `json:"last_finish,omitempty"`
	LastOutput string     `json:"last_output,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Guard admits one run at a time and remembers how the last one ended.
type Guard struct {
	mu     sync.Mutex
	status Status
	now    func() time.Time
}

// NewGuard creates an idle guard.
func NewGuard() *Guard {
	return &Guard{now: time.Now}
}

// Start claims the guard. It fails with ErrRunInProgress when a run is
// already active.
func (g *Guard) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status.Running {
		return ErrRunInProgress
	}
	now := g.now().UTC()
	g.status.Running = true
	g.status.RunID = ""
	g.status.LastStart = &now
	g.status.LastError = ""
	return nil
}

// SetRunID records the identifier of the active run so Status can report it
// before the run finishes. It is ignored when no run is active.
func (g *Guard) SetRunID(runID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status.Running {
		g.status.RunID = runID
	}
}

// Finish releases the guard, recording the run's output or error.
func (g *Guard) Finish(runID, output string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now().UTC()
	g.status.Running = false
	g.status.RunID = runID
	g.status.LastFinish = &now
	g.status.LastOutput = output
	g.status.LastError = ""
	if err != nil {
		g.status.LastError = err.Error()
	}
}

// Status returns a copy of the current state.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}
