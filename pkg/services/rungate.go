package services

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
)

// RunGate enforces at most one in-flight sync run per data source within
// this process. Acquisition never blocks: a second caller for the same data
// source is rejected immediately.
type RunGate struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewRunGate creates an empty RunGate.
func NewRunGate() *RunGate {
	return &RunGate{inFlight: make(map[uuid.UUID]struct{})}
}

// Acquire claims the gate for a data source. It returns a release function
// that must be called exactly once when the run reaches a terminal state, or
// apperrors.ErrRunInProgress if a run already holds the gate.
func (g *RunGate) Acquire(dataSourceID uuid.UUID) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.inFlight[dataSourceID]; ok {
		return nil, fmt.Errorf("%w: data source %s", apperrors.ErrRunInProgress, dataSourceID)
	}
	g.inFlight[dataSourceID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, dataSourceID)
			g.mu.Unlock()
		})
	}
	return release, nil
}
