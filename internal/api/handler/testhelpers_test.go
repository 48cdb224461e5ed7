package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/repository"
	"github.com/iconidentify/makanmap/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSyncRunner is a test implementation of SyncRunner.
type mockSyncRunner struct {
	startErr  error
	statusErr error
	report    *service.StatusReport
	gotOpts   *service.SyncOptions
	running   bool
}

func (m *mockSyncRunner) Start(ctx context.Context, opts service.SyncOptions) (*domain.SyncRun, error) {
	m.gotOpts = &opts
	if m.startErr != nil {
		return nil, m.startErr
	}
	return domain.NewSyncRun("run_test", 2), nil
}

func (m *mockSyncRunner) Status(ctx context.Context) (*service.StatusReport, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.report, nil
}

func (m *mockSyncRunner) Running() bool { return m.running }

// mockPinger is a test implementation of Pinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// mockCounter is a test implementation of RestaurantCounter.
type mockCounter struct {
	count int
	err   error
}

func (m *mockCounter) Count(ctx context.Context) (int, error) { return m.count, m.err }

// newChannelService returns a channel service backed by in-memory repositories.
func newChannelService() *service.ChannelService {
	return service.NewChannelService(
		repository.NewInMemoryChannelRepository(),
		repository.NewInMemorySuggestionRepository(),
		testLogger(),
	)
}

// newRestaurantService returns a restaurant service seeded with the given rows.
func newRestaurantService(t *testing.T, rows ...*domain.Restaurant) *service.RestaurantService {
	t.Helper()
	repo := repository.NewInMemoryRestaurantRepository()
	for _, r := range rows {
		if _, err := repo.Upsert(context.Background(), r); err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}
	return service.NewRestaurantService(repo, testLogger())
}

func restaurantAt(id string, lat, lng float64, views int64) *domain.Restaurant {
	now := time.Now().UTC()
	return &domain.Restaurant{
		ID:          domain.RestaurantID(id),
		Name:        "Spot " + id,
		VideoID:     "vid_" + id,
		MapsURL:     "https://maps.app.goo.gl/" + id,
		Latitude:    lat,
		Longitude:   lng,
		ViewCount:   views,
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// serve routes a single request through a chi router so URL params resolve.
func serve(method, pattern, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
