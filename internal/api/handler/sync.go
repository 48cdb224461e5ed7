package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/service"
)

// SyncRunner starts sync runs and reports their status.
type SyncRunner interface {
	Start(ctx context.Context, opts service.SyncOptions) (*domain.SyncRun, error)
	Status(ctx context.Context) (*service.StatusReport, error)
}

// SyncHandler handles sync trigger and status requests.
type SyncHandler struct {
	svc    SyncRunner
	logger *slog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(svc SyncRunner, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		svc:    svc,
		logger: logger,
	}
}

// SyncStartedResponse is returned when a run has been started.
type SyncStartedResponse struct {
	Message string         `json:"message"`
	Run     *domain.SyncRun `json:"run"`
}

// Trigger handles POST /api/v1/sync?maxVideos=&useApi=
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	opts, err := parseSyncOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.svc.Start(r.Context(), opts)
	switch {
	case errors.Is(err, domain.ErrNoChannels):
		writeJSON(w, http.StatusOK, MessageResponse{Message: "no channels configured"})
		return
	case errors.Is(err, domain.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sync already in progress")
		return
	case err != nil:
		h.logger.Error("failed to start sync", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start sync")
		return
	}

	h.logger.Info("sync triggered",
		"run_id", run.ID,
		"max_videos", opts.MaxVideos,
		"use_api", opts.UseAPI,
	)
	writeJSON(w, http.StatusAccepted, SyncStartedResponse{
		Message: "sync started",
		Run:     run,
	})
}

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Status(r.Context())
	if errors.Is(err, domain.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "no sync run found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load sync status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load sync status")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseSyncOptions(r *http.Request) (service.SyncOptions, error) {
	var opts service.SyncOptions
	q := r.URL.Query()

	if v := q.Get("maxVideos"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("maxVideos must be a non-negative integer")
		}
		opts.MaxVideos = n
	}
	if v := q.Get("useApi"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("useApi must be a boolean")
		}
		opts.UseAPI = b
	}
	return opts, nil
}
