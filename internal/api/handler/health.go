package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"
	"time"
)

var startTime = time.Now()

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RestaurantCounter reports the number of stored restaurants.
type RestaurantCounter interface {
	Count(ctx context.Context) (int, error)
}

// SyncState reports whether a sync run is active.
type SyncState interface {
	Running() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store       Pinger
	restaurants RestaurantCounter
	sync        SyncState
	dbPath      string
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler. dbPath is used for disk
// statistics and may be empty.
func NewHealthHandler(store Pinger, restaurants RestaurantCounter, sync SyncState, dbPath string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:       store,
		restaurants: restaurants,
		sync:        sync,
		dbPath:      dbPath,
		logger:      logger,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// Live handles GET /health - liveness check.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness check.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "error",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Error:     "database unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SystemStats contains process and catalogue statistics.
type SystemStats struct {
	Uptime         int64   `json:"uptime_seconds"`
	UptimeHuman    string  `json:"uptime_human"`
	MemAllocMB     int64   `json:"mem_alloc_mb"`
	MemSysMB       int64   `json:"mem_sys_mb"`
	NumGoroutines  int     `json:"num_goroutines"`
	CPUPercent     float64 `json:"cpu_percent"`
	Restaurants    int     `json:"restaurants"`
	SyncRunning    bool    `json:"sync_running"`
	DiskFreeBytes  int64   `json:"disk_free_bytes,omitempty"`
	DiskTotalBytes int64   `json:"disk_total_bytes,omitempty"`
	DiskUsedPct    float64 `json:"disk_used_pct,omitempty"`
}

// Stats handles GET /api/v1/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)
	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		CPUPercent:    getCPUUsage(),
	}

	count, err := h.restaurants.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count restaurants", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	stats.Restaurants = count

	if h.sync != nil {
		stats.SyncRunning = h.sync.Running()
	}
	if h.dbPath != "" {
		total, free, _, pct := getDiskStats(filepath.Dir(h.dbPath))
		stats.DiskTotalBytes = total
		stats.DiskFreeBytes = free
		stats.DiskUsedPct = pct
	}

	writeJSON(w, http.StatusOK, stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
