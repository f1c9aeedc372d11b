// Package cron runs recurring jobs, such as workspace syncs, on cron
// expressions.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/runner"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron with cancelable handles and runner-bound jobs.
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	location     *time.Location
	errorHandler func(error)

	logger   assistant.Logger
	parser   Parser
	logLevel LogLevel

	nextHandleID int64
	handles      map[int64]*jobHandle
}

// NewScheduler creates a new scheduler instance with the provided options.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		parser:   DefaultParser,
		logLevel: LogLevelError,
		handles:  make(map[int64]*jobHandle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = assistant.NormalizeLogger(s.logger)
	if s.errorHandler == nil {
		s.errorHandler = func(err error) {
			s.logger.Error("scheduled job failed: %v", err)
		}
	}

	s.cron = rcron.New(s.build()...)
	return s
}

// ScheduleCron schedules job on cfg.Expression. Each tick runs through a
// runner.Handler configured from cfg.
func (s *Scheduler) ScheduleCron(cfg assistant.HandlerConfig, job Job) (Handle, error) {
	if cfg.Expression == "" {
		return nil, fmt.Errorf("cron expression cannot be empty")
	}
	if job == nil {
		return nil, fmt.Errorf("cron job cannot be nil")
	}
	run := s.runnable(cfg, job)

	h := s.newHandle()
	entry := rcron.FuncJob(func() {
		if !h.start() {
			return
		}
		// a failed tick leaves the schedule active
		h.idle(run())
	})

	entryID, err := s.cron.AddJob(cfg.Expression, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to add job: %w", err)
	}
	h.entryID = int(entryID)
	s.storeHandle(h)
	return h, nil
}

// ScheduleAfter runs job once after delay.
func (s *Scheduler) ScheduleAfter(delay time.Duration, cfg assistant.HandlerConfig, job Job) (Handle, error) {
	if job == nil {
		return nil, fmt.Errorf("cron job cannot be nil")
	}
	if delay < 0 {
		delay = 0
	}
	run := s.runnable(cfg, job)

	h := s.newHandle()
	s.storeHandle(h)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-h.Done():
			return
		}

		if !h.start() {
			return
		}
		defer s.removeStoredHandle(h.id)
		if err := run(); err != nil {
			h.terminate(ScheduleStatusFailed, err)
			return
		}
		h.terminate(ScheduleStatusCompleted, nil)
	}()

	return h, nil
}

// Start begins executing scheduled cron jobs.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop halts the cron loop, waits for running jobs and marks every active
// handle as stopped.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	var handles []*jobHandle
	s.mu.Lock()
	for _, handle := range s.handles {
		handles = append(handles, handle)
	}
	s.handles = make(map[int64]*jobHandle)
	s.mu.Unlock()

	for _, handle := range handles {
		if handle.entryID > 0 {
			s.cron.Remove(rcron.EntryID(handle.entryID))
		}
		if !handle.Status().terminal() {
			handle.terminate(ScheduleStatusStopped, nil)
		}
	}

	if ctx == nil {
		return nil
	}
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries returns the number of registered cron entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) runnable(cfg assistant.HandlerConfig, job Job) func() error {
	opts := append(runner.FromConfig(cfg),
		runner.WithName("scheduled job"),
		runner.WithLogger(s.logger),
		runner.WithErrorHandler(s.errorHandler),
	)
	h := runner.NewHandler(opts...)
	return func() error {
		return h.Run(context.Background(), func(ctx context.Context) error {
			return job(ctx)
		})
	}
}

func (s *Scheduler) removeHandle(id int64) {
	handle := s.removeStoredHandle(id)
	if handle == nil {
		return
	}
	if handle.entryID > 0 {
		s.cron.Remove(rcron.EntryID(handle.entryID))
	}
}

func (s *Scheduler) removeStoredHandle(id int64) *jobHandle {
	if s == nil || id == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.handles[id]
	delete(s.handles, id)
	return handle
}

func (s *Scheduler) storeHandle(handle *jobHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[handle.id] = handle
}

func (s *Scheduler) newHandle() *jobHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	return &jobHandle{
		scheduler: s,
		id:        s.nextHandleID,
		status:    ScheduleStatusScheduled,
		done:      make(chan struct{}),
	}
}

// build converts scheduler options to rcron options.
func (s *Scheduler) build() []rcron.Option {
	opts := make([]rcron.Option, 0)

	if s.location != nil {
		opts = append(opts, rcron.WithLocation(s.location))
	}

	switch s.parser {
	case StandardParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	case SecondsParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Second|rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	}

	cronLogger := &loggerAdapter{logger: s.logger, level: s.logLevel}
	opts = append(opts,
		rcron.WithLogger(cronLogger),
		rcron.WithChain(rcron.Recover(&errorHandlerAdapter{handler: s.errorHandler})),
	)
	return opts
}
