// Package scheduler runs a job on a cron schedule, never more than one at a
// time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "eventcal/internal/log"
)

// Job is the scheduled work. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with a single job.
type Scheduler struct {
	name string
	cron *cron.Cron
	job  cron.Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New parses spec (standard 5-field cron or a @descriptor) and prepares
// job under name. Runs that would overlap a running one are skipped.
func New(name, spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{name: name}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		cron:   cron.New(cron.WithLocation(loc), cron.WithLogger(logger)),
	}
	s.job = cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { s.run(job) }))

	if _, err := s.cron.AddJob(spec, s.job); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	appLog.Info("scheduled job start", "job", s.name)
	if err := job(s.ctx); err != nil {
		appLog.Error("scheduled job failed", err, "job", s.name, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	appLog.Info("scheduled job done", "job", s.name, "duration_ms", time.Since(start).Milliseconds())
}

// Start begins running the job on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	if entries := s.cron.Entries(); len(entries) > 0 {
		appLog.Info("scheduler started", "job", s.name, "next", entries[0].Next)
	}
}

// RunNow runs the job in the calling goroutine, unless a run is already in
// progress, in which case it returns at once.
func (s *Scheduler) RunNow() {
	s.wg.Add(1)
	defer s.wg.Done()
	s.job.Run()
}

// Trigger runs the job in the background, subject to the same overlap rule.
func (s *Scheduler) Trigger() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
}

// Stop cancels the job context, stops the schedule and waits for a running
// job to return, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		appLog.Info("scheduler stopped", "job", s.name)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	name string
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, append(keysAndValues, "job", l.name)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, append(keysAndValues, "job", l.name)...)
}
