// Package jobs implements the background job runner: a per-job state
// machine with an idempotent start guard, progress/log reporting from
// the run goroutine, and non-blocking snapshots for pollers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seligo/sentiment-pulse/internal/errdefs"
	"github.com/seligo/sentiment-pulse/pkg/log"
)

// snapshotLogLines bounds the suffix returned to pollers.
const snapshotLogLines = 20

// maxLogEntries bounds the in-memory log of a single run. The shipped
// jobs emit a handful of entries; the cap only matters for misbehaving
// work funcs.
const maxLogEntries = 1000

// Work is one unit of work executed by a Runner. The context is
// canceled by Cancel and carries no deadline otherwise. Reporting
// progress through rep is the work func's only channel back into the
// runner state.
type Work func(ctx context.Context, rep *Reporter) error

type logEntry struct {
	at      time.Time
	message string
}

// Runner owns the lifecycle of one job kind. One instance per kind is
// constructed at startup and shared by every request handler; all state
// is guarded by a single mutex so the start guard and the state reset
// are one atomic step.
type Runner struct {
	name    string
	work    Work
	logger  *log.Logger
	history HistorySink

	mu        sync.RWMutex
	status    Status
	progress  int
	entries   []logEntry
	lastRun   *time.Time
	runID     string
	startedAt time.Time
	records   int
	cancel    context.CancelFunc
}

type Option func(*Runner)

// WithHistory attaches a sink that receives a record for every terminal
// transition.
func WithHistory(sink HistorySink) Option {
	return func(r *Runner) {
		r.history = sink
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(name string, work Work, opts ...Option) *Runner {
	r := &Runner{
		name:   name,
		work:   work,
		logger: log.GetLogger(),
		status: StatusStopped,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Name() string {
	return r.name
}

// Start accepts a new run unless one is already in progress. Acceptance
// atomically resets status, progress and the log before the work
// goroutine is spawned, so a poller can never observe state from two
// runs at once. Returns false with no side effects when rejected.
func (r *Runner) Start() bool {
	now := time.Now()

	r.mu.Lock()
	if r.status == StatusRunning {
		r.mu.Unlock()
		return false
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.status = StatusRunning
	r.progress = 0
	r.runID = uuid.NewString()
	r.startedAt = now
	r.records = 0
	r.cancel = cancel
	r.entries = []logEntry{{at: now, message: fmt.Sprintf("Starting %s", r.name)}}
	r.mu.Unlock()

	r.logger.Info("%s run %s started", r.name, r.runID)
	go r.execute(runCtx)
	return true
}

// Cancel requests cooperative cancellation of the in-flight run, if
// any. Nothing is exposed over HTTP; runs normally go to completion.
func (r *Runner) Cancel() {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Snapshot returns a consistent copy of the runner state. It only takes
// the read lock and never waits on the run goroutine.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := len(r.entries) - snapshotLogLines
	if start < 0 {
		start = 0
	}
	logs := make([]string, 0, len(r.entries)-start)
	for _, e := range r.entries[start:] {
		logs = append(logs, fmt.Sprintf("%s: %s", e.at.Format("15:04:05"), e.message))
	}

	var lastRun *time.Time
	if r.lastRun != nil {
		t := *r.lastRun
		lastRun = &t
	}

	return Snapshot{
		Status:   r.status,
		Progress: r.progress,
		Logs:     logs,
		LastRun:  lastRun,
	}
}

func (r *Runner) execute(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			err := errdefs.Newf(errdefs.Internal, "panic: %v", rec)
			r.finish(StatusError, err, debug.Stack())
		}
	}()

	if err := r.work(ctx, &Reporter{runner: r}); err != nil {
		r.finish(StatusError, err, nil)
		return
	}
	r.finish(StatusCompleted, nil, nil)
}

// finish applies the terminal transition and notifies the history sink.
// Failures are recorded in the job log as a short message plus the full
// diagnostic detail; they never propagate out of the run goroutine.
func (r *Runner) finish(status Status, cause error, stack []byte) {
	now := time.Now()

	r.mu.Lock()
	r.status = status
	r.lastRun = &now
	if cause != nil {
		r.appendLocked(now, fmt.Sprintf("ERROR: %s", shortMessage(cause)))
		r.appendLocked(now, fmt.Sprintf("diagnostics: %v", cause))
		if stack != nil {
			r.appendLocked(now, string(stack))
		}
	}
	record := RunRecord{
		ID:         r.runID,
		Job:        r.name,
		Status:     status,
		StartedAt:  r.startedAt,
		FinishedAt: now,
		Records:    r.records,
	}
	if cause != nil {
		record.Error = cause.Error()
	}
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if cause != nil {
		r.logger.Error("%s run %s failed: %v", r.name, record.ID, cause)
	} else {
		r.logger.Info("%s run %s completed in %s", r.name, record.ID, now.Sub(record.StartedAt).Round(time.Millisecond))
	}

	if r.history != nil {
		if err := r.history.RecordRun(context.Background(), record); err != nil {
			r.logger.Error("Failed to record %s run %s: %v", r.name, record.ID, err)
		}
	}
}

func (r *Runner) appendLocked(at time.Time, message string) {
	if len(r.entries) >= maxLogEntries {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, logEntry{at: at, message: message})
}

// shortMessage extracts the human-readable part of a failure for the
// leading ERROR log line; the full chain goes into the diagnostics line.
func shortMessage(err error) string {
	var typed *errdefs.Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return err.Error()
}

// Reporter is the work func's handle for progress and log updates.
type Reporter struct {
	runner *Runner
}

// Progress sets the progress percentage (clamped to [0,100]) and appends
// a timestamped log entry. Callers are expected to pass non-decreasing
// values within a run.
func (p *Reporter) Progress(percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	now := time.Now()
	r := p.runner
	r.mu.Lock()
	r.progress = percent
	r.appendLocked(now, message)
	r.mu.Unlock()

	r.logger.Info("[%s] %d%% %s", r.name, percent, message)
}

// Log appends a log entry without touching the progress value.
func (p *Reporter) Log(message string) {
	now := time.Now()
	r := p.runner
	r.mu.Lock()
	r.appendLocked(now, message)
	r.mu.Unlock()

	r.logger.Info("[%s] %s", r.name, message)
}

// SetRecords annotates the current run with the number of records it
// processed, surfaced in the run history.
func (p *Reporter) SetRecords(n int) {
	r := p.runner
	r.mu.Lock()
	r.records = n
	r.mu.Unlock()
}
