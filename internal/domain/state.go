package domain

import "time"

// SchedulerState is the single persisted record the task gate reads and stamps on every tick.
type SchedulerState struct {
	LastHotlistRunAt *time.Time `json:"lastHotlistRunAt,omitempty"`
	LastStreamRunAt  *time.Time `json:"lastStreamRunAt,omitempty"`
}

// RunStatus enumerates task run outcomes recorded in the run ledger.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// TaskRun is one ledger entry for a monitor or report execution.
type TaskRun struct {
	ID         string
	Task       string
	Trigger    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Error      string
}
