package models

import (
	"time"

	"github.com/google/uuid"
)

// RunType identifies the kind of work a connector run performs.
type RunType string

const (
	RunTypeMetadata RunType = "metadata"
)

// RunStatus is the lifecycle state of a connector run. Runs move forward
// through pending, connecting, extracting, and persisting, and end in exactly
// one of succeeded, partial, or failed. Failed is reachable from any
// non-terminal state.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunConnecting RunStatus = "connecting"
	RunExtracting RunStatus = "extracting"
	RunPersisting RunStatus = "persisting"
	RunSucceeded  RunStatus = "succeeded"
	RunPartial    RunStatus = "partial"
	RunFailed     RunStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunSucceeded, RunPartial, RunFailed:
		return true
	}
	return false
}

var runTransitions = map[RunStatus][]RunStatus{
	RunPending:    {RunConnecting, RunFailed},
	RunConnecting: {RunExtracting, RunFailed},
	RunExtracting: {RunPersisting, RunFailed},
	RunPersisting: {RunSucceeded, RunPartial, RunFailed},
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	for _, allowed := range runTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ConnectorRun records one execution of a connector against a data source.
// Every attempt leaves a row, whatever its outcome.
type ConnectorRun struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	DataSourceID uuid.UUID  `json:"data_source_id"`
	RunType      RunType    `json:"run_type"`
	Status       RunStatus  `json:"status"`
	EntityCount  int        `json:"entity_count"`
	ErrorCount   int        `json:"error_count"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
