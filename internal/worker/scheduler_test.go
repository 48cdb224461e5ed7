package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSyncer implements Syncer for testing.
type mockSyncer struct {
	mu       sync.Mutex
	calls    int
	running  bool
	err      error
	lastOpts service.SyncOptions
	block    chan struct{}
}

func (m *mockSyncer) Run(ctx context.Context, opts service.SyncOptions) (*domain.SyncRun, error) {
	m.mu.Lock()
	m.calls++
	m.lastOpts = opts
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	run := domain.NewSyncRun("run_1", 1)
	run.MarkCompleted()
	return run, nil
}

func (m *mockSyncer) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockSyncer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(Config{}, &mockSyncer{}, testLogger())
	if s.interval != time.Hour {
		t.Errorf("interval = %v, want 1h", s.interval)
	}
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	syncer := &mockSyncer{}
	s := NewScheduler(Config{
		Interval: 10 * time.Millisecond,
		Options:  service.SyncOptions{MaxVideos: 50},
	}, syncer, testLogger())

	s.Start()
	waitFor(t, func() bool { return syncer.callCount() >= 2 })
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if syncer.lastOpts.MaxVideos != 50 {
		t.Errorf("MaxVideos = %d, want 50", syncer.lastOpts.MaxVideos)
	}
}

func TestScheduler_SkipsWhileRunning(t *testing.T) {
	syncer := &mockSyncer{running: true}
	s := NewScheduler(Config{Interval: 5 * time.Millisecond}, syncer, testLogger())

	s.Start()
	time.Sleep(50 * time.Millisecond)
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := syncer.callCount(); got != 0 {
		t.Errorf("Run called %d times while a sync was active", got)
	}
}

func TestScheduler_ToleratesErrors(t *testing.T) {
	syncer := &mockSyncer{err: domain.ErrNoChannels}
	s := NewScheduler(Config{Interval: 5 * time.Millisecond}, syncer, testLogger())

	s.Start()
	waitFor(t, func() bool { return syncer.callCount() >= 3 })
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestScheduler_StopCancelsActiveRun(t *testing.T) {
	syncer := &mockSyncer{block: make(chan struct{})}
	s := NewScheduler(Config{Interval: 5 * time.Millisecond}, syncer, testLogger())

	s.Start()
	waitFor(t, func() bool { return syncer.callCount() >= 1 })

	if err := s.Stop(time.Second); err != nil {
		t.Errorf("Stop error = %v, want clean shutdown through cancellation", err)
	}
}

func TestScheduler_StopTimeout(t *testing.T) {
	s := NewScheduler(Config{Interval: time.Hour}, &mockSyncer{}, testLogger())
	s.wg.Add(1) // a loop that never finishes
	defer s.wg.Done()

	if err := s.Stop(10 * time.Millisecond); err != ErrShutdownTimeout {
		t.Errorf("Stop error = %v, want ErrShutdownTimeout", err)
	}
}
