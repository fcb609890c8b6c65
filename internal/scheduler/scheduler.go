package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/livability/internal/livability"
)

// LoadFunc builds a fresh reference snapshot.
type LoadFunc func(ctx context.Context) (*livability.Reference, error)

// Sink receives loaded snapshots and failed attempts.
type Sink interface {
	Swap(ref *livability.Reference)
	RecordFailure(err error)
}

// Scheduler periodically reloads the reference snapshot.
type Scheduler struct {
	scheduler *gocron.Scheduler
	load      LoadFunc
	sink      Sink
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. A non-positive interval disables reloading.
func New(load LoadFunc, sink Sink, interval, timeout time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{
		scheduler: s,
		load:      load,
		sink:      sink,
		interval:  interval,
		timeout:   timeout,
	}
}

// Reload loads once and hands the result to the sink. A failed load keeps
// the previous snapshot.
func (s *Scheduler) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	ref, err := s.load(ctx)
	if err != nil {
		s.sink.RecordFailure(err)
		zap.L().Error("scheduler: reference reload failed", zap.Error(err))
		return err
	}
	s.sink.Swap(ref)
	zap.L().Info("scheduler: reference reloaded", zap.Duration("took", time.Since(start)))
	return nil
}

// Start schedules the periodic reload and starts the underlying scheduler.
// The first run happens one interval from now.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		zap.L().Info("scheduler: reload interval not set; reference data loads once")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		_ = s.Reload(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
