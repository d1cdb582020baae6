// Package expiry runs scheduled maintenance outside the request path: the
// overdue-item sweep and pruning of expired token revocations.
package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTimeout bounds a single job run.
const DefaultTimeout = 30 * time.Second

// Job is one periodic task. Run returns how many records it changed.
type Job struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs Jobs on cron schedules. A run that is still going when its
// next tick fires is skipped rather than stacked.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	timeout time.Duration
	now     func() time.Time
}

// NewScheduler returns a stopped scheduler. Job runs derive their context
// from ctx, so cancelling it aborts in-flight work.
func NewScheduler(ctx context.Context, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := slogLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:     ctx,
		timeout: timeout,
		now:     time.Now,
	}
}

// Add registers job under a standard five-field cron spec or a descriptor
// such as "@hourly".
func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.RunNow(job) })
	if err != nil {
		return err
	}
	slog.Info("scheduled job", "job", job.Name, "schedule", spec)
	return nil
}

// RunNow runs job once, synchronously, and logs the outcome.
func (s *Scheduler) RunNow(job Job) (int, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	n, err := job.Run(ctx, s.now())
	if err != nil {
		slog.Error("scheduled job failed", "job", job.Name, "error", err)
		return n, err
	}
	if n > 0 {
		slog.Info("scheduled job finished", "job", job.Name, "changed", n)
	}
	return n, nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
