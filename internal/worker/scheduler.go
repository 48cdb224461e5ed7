package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/service"
)

// ErrShutdownTimeout is returned when the scheduler doesn't stop within timeout.
var ErrShutdownTimeout = errors.New("scheduler shutdown timed out")

// Syncer runs one synchronization pass.
type Syncer interface {
	Run(ctx context.Context, opts service.SyncOptions) (*domain.SyncRun, error)
	Running() bool
}

// Config holds scheduler configuration.
type Config struct {
	// Interval between sync runs. Must be positive.
	Interval time.Duration
	// Options are passed to every scheduled run.
	Options service.SyncOptions
}

// Scheduler triggers sync runs on a fixed interval.
type Scheduler struct {
	interval time.Duration
	opts     service.SyncOptions
	syncer   Syncer
	logger   *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg Config, syncer Syncer, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		interval: cfg.Interval,
		opts:     cfg.Options,
		syncer:   syncer,
		logger:   logger.With("component", "scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the scheduling loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting sync scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.loop()
}

// Stop cancels any scheduled run and waits for the loop to exit.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.logger.Info("stopping sync scheduler")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sync scheduler stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	if s.syncer.Running() {
		s.logger.Info("sync already running, skipping scheduled run")
		return
	}

	run, err := s.syncer.Run(s.ctx, s.opts)
	switch {
	case errors.Is(err, domain.ErrNoChannels):
		s.logger.Debug("no channels configured, nothing to sync")
	case errors.Is(err, domain.ErrSyncInProgress):
		s.logger.Info("sync already running, skipping scheduled run")
	case err != nil:
		s.logger.Error("scheduled sync failed to start", "error", err)
	default:
		s.logger.Info("scheduled sync finished",
			"run_id", run.ID,
			"status", run.Status,
			"added", run.Added,
			"updated", run.Updated,
			"errors", len(run.Errors),
		)
	}
}
