package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iconidentify/makanmap/internal/api/handler"
	"github.com/iconidentify/makanmap/internal/config"
	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/metrics"
	"github.com/iconidentify/makanmap/internal/repository"
	"github.com/iconidentify/makanmap/internal/service"
)

type stubSync struct{}

func (stubSync) Start(ctx context.Context, opts service.SyncOptions) (*domain.SyncRun, error) {
	return domain.NewSyncRun("run_stub", 1), nil
}

func (stubSync) Status(ctx context.Context) (*service.StatusReport, error) {
	return nil, domain.ErrRunNotFound
}

type stubPinger struct{}

func (stubPinger) Ping(ctx context.Context) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	restaurants := service.NewRestaurantService(repository.NewInMemoryRestaurantRepository(), logger)
	channels := service.NewChannelService(
		repository.NewInMemoryChannelRepository(),
		repository.NewInMemorySuggestionRepository(),
		logger,
	)

	h := Handlers{
		Health:      handler.NewHealthHandler(stubPinger{}, restaurants, nil, "", logger),
		Sync:        handler.NewSyncHandler(stubSync{}, logger),
		Restaurants: handler.NewRestaurantHandler(restaurants, logger),
		Channels:    handler.NewChannelHandler(channels, logger),
		Suggestions: handler.NewSuggestionHandler(channels, logger),
	}
	cfg := config.ServerConfig{APIKey: "admin-key", SyncSecret: "cron-secret"}
	return NewRouter(h, cfg, metrics.New(), logger)
}

func TestRouter_Access(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		headers    map[string]string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", nil, "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", nil, "", http.StatusOK},
		{"clean path", http.MethodGet, "//ready", nil, "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", nil, "", http.StatusOK},
		{"public near", http.MethodGet, "/api/v1/restaurants/near?lat=-6.2&lng=106.8", nil, "", http.StatusOK},
		{"public suggestion", http.MethodPost, "/api/v1/suggestions", nil, `{"external_id":"UCx"}`, http.StatusCreated},
		{"channels need key", http.MethodGet, "/api/v1/channels", nil, "", http.StatusUnauthorized},
		{"channels with key", http.MethodGet, "/api/v1/channels", map[string]string{"X-API-Key": "admin-key"}, "", http.StatusOK},
		{"suggestions list needs key", http.MethodGet, "/api/v1/suggestions", nil, "", http.StatusUnauthorized},
		{"status needs key", http.MethodGet, "/api/v1/sync/status", map[string]string{"X-Sync-Secret": "cron-secret"}, "", http.StatusUnauthorized},
		{"status with key", http.MethodGet, "/api/v1/sync/status", map[string]string{"Authorization": "Bearer admin-key"}, "", http.StatusNotFound},
		{"sync with secret", http.MethodPost, "/api/v1/sync", map[string]string{"X-Sync-Secret": "cron-secret"}, "", http.StatusAccepted},
		{"sync with key", http.MethodPost, "/api/v1/sync", map[string]string{"X-API-Key": "admin-key"}, "", http.StatusAccepted},
		{"sync anonymous", http.MethodPost, "/api/v1/sync", nil, "", http.StatusUnauthorized},
		{"stats with key", http.MethodGet, "/api/v1/stats", map[string]string{"X-API-Key": "admin-key"}, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouter_MetricsExposeRequests(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `makanmap_http_request_duration_seconds_count{method="GET",route="/health",status="2xx"} 1`) {
		t.Errorf("metrics output missing /health request sample:\n%s", w.Body.String())
	}
}
