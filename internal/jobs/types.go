package jobs

import (
	"context"
	"time"
)

type Status string

const (
	StatusStopped   Status = "stopped"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether a status ends a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Snapshot is the read-only view handed to pollers. Logs carry at most
// the latest 20 formatted lines; LastRun is nil until the first run
// reaches a terminal state.
type Snapshot struct {
	Status   Status     `json:"status"`
	Progress int        `json:"progress"`
	Logs     []string   `json:"logs"`
	LastRun  *time.Time `json:"last_run"`
}

// RunRecord describes one finished run for the history store.
type RunRecord struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
	Records    int       `json:"records"`
}

// HistorySink receives terminal run records. Implementations must be
// safe for concurrent use; failures are logged by the runner and never
// affect job state.
type HistorySink interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}
