package domain

import "time"

// RunStatus defines the lifecycle stage of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is the persisted outcome of one execution of a pipeline.
type RunRecord struct {
	ID       string    `json:"id"`
	Pipeline string    `json:"pipeline"`
	Status   RunStatus `json:"status"`

	// Visited lists task ids in the order they began executing.
	Visited []int `json:"visited"`

	// Unreachable lists task ids that were indexed but can never run
	// (extra roots and their subtrees).
	Unreachable []int `json:"unreachable,omitempty"`

	// FailedTask is set when a task error aborted the run.
	FailedTask *int   `json:"failed_task,omitempty"`
	Error      string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Snapshot returns a deep copy of the record.
func (r *RunRecord) Snapshot() *RunRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Visited = append([]int(nil), r.Visited...)
	cp.Unreachable = append([]int(nil), r.Unreachable...)
	if r.FailedTask != nil {
		id := *r.FailedTask
		cp.FailedTask = &id
	}
	return &cp
}
