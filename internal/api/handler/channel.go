package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/makanmap/internal/domain"
)

// ChannelManager manages configured channels and suggestions.
type ChannelManager interface {
	Add(ctx context.Context, externalID, name string) (*domain.Channel, error)
	List(ctx context.Context) ([]*domain.Channel, error)
	Delete(ctx context.Context, id domain.ChannelID) error
	Suggest(ctx context.Context, externalID, name, note string) (*domain.ChannelSuggestion, error)
	ListSuggestions(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.ChannelSuggestion, error)
	ApproveSuggestion(ctx context.Context, id domain.SuggestionID) (*domain.Channel, error)
	RejectSuggestion(ctx context.Context, id domain.SuggestionID) (*domain.ChannelSuggestion, error)
}

// ChannelHandler handles channel administration requests.
type ChannelHandler struct {
	svc    ChannelManager
	logger *slog.Logger
}

// NewChannelHandler creates a new channel handler.
func NewChannelHandler(svc ChannelManager, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{
		svc:    svc,
		logger: logger,
	}
}

// CreateChannelRequest is the JSON request body for adding a channel.
type CreateChannelRequest struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name,omitempty"`
}

// List handles GET /api/v1/channels
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list channels", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list channels")
		return
	}
	if channels == nil {
		channels = []*domain.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

// Create handles POST /api/v1/channels
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ch, err := h.svc.Add(r.Context(), req.ExternalID, req.Name)
	switch {
	case errors.Is(err, domain.ErrEmptyExternalID):
		writeError(w, http.StatusBadRequest, "external_id is required")
		return
	case errors.Is(err, domain.ErrDuplicateChannel):
		writeError(w, http.StatusConflict, "channel already exists")
		return
	case err != nil:
		h.logger.Error("failed to add channel", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add channel")
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

// Delete handles DELETE /api/v1/channels/{channelID}
func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := domain.ChannelID(chi.URLParam(r, "channelID"))

	err := h.svc.Delete(r.Context(), id)
	if errors.Is(err, domain.ErrChannelNotFound) {
		writeError(w, http.StatusNotFound, "channel not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete channel", "channel_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete channel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
