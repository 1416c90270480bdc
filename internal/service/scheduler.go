// Package service schedules recurring pipeline runs on a cron
// expression taken from the runtime settings.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/seligo/sentiment-pulse/internal/errdefs"
	"github.com/seligo/sentiment-pulse/pkg/icron"
	"github.com/seligo/sentiment-pulse/pkg/log"
)

// Starter is the runner surface the scheduler drives.
type Starter interface {
	Name() string
	Start() bool
}

// Scheduler owns one cron entry for the collection job. Reconfigure
// swaps the expression at runtime; an empty expression disables the
// schedule. Triggers collapse through a singleflight group, and a
// trigger that finds the job already running is logged and dropped.
type Scheduler struct {
	cron   *cron.Cron
	job    Starter
	logger *log.Logger
	group  singleflight.Group

	mu      sync.Mutex
	expr    string
	entryID cron.EntryID
}

func NewScheduler(c *cron.Cron, job Starter, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Scheduler{cron: c, job: job, logger: logger}
}

// Reconfigure replaces the active schedule with expr. The previous
// entry is removed first so at most one entry exists per scheduler.
func (s *Scheduler) Reconfigure(expr string) error {
	expr = strings.TrimSpace(expr)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	s.expr = ""

	if expr == "" {
		s.logger.Info("Schedule for %s disabled", s.job.Name())
		return nil
	}

	id, err := s.cron.AddFunc(expr, s.trigger)
	if err != nil {
		return errdefs.Wrap(err, errdefs.Validation, "invalid cron expression").
			WithContext("expression", expr)
	}
	s.entryID = id
	s.expr = expr
	s.logger.Info("Scheduled %s runs on %q", s.job.Name(), expr)
	return nil
}

func (s *Scheduler) trigger() {
	_, _, _ = s.group.Do(s.job.Name(), func() (any, error) {
		if !s.job.Start() {
			s.logger.Info("Skipping scheduled %s run: previous run still in progress", s.job.Name())
		}
		return nil, nil
	})
}

// Start begins dispatching cron triggers.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the cron loop. The returned context is done once in-flight
// trigger callbacks have returned.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

// Expression returns the active cron expression, empty when disabled.
func (s *Scheduler) Expression() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expr
}

// TriggerInfo reports the previous and next fire times of the active
// schedule relative to now. ok is false when scheduling is disabled.
func (s *Scheduler) TriggerInfo(now time.Time) (info *icron.TriggerInfo, ok bool, err error) {
	expr := s.Expression()
	if expr == "" {
		return nil, false, nil
	}
	info, err = icron.GetTriggerInfo(expr, now)
	if err != nil {
		return nil, false, errdefs.Wrap(err, errdefs.Internal, "schedule introspection failed")
	}
	return info, true, nil
}
