package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/makanmap/internal/domain"
)

// SuggestionHandler handles channel suggestions and their moderation.
type SuggestionHandler struct {
	svc    ChannelManager
	logger *slog.Logger
}

// NewSuggestionHandler creates a new suggestion handler.
func NewSuggestionHandler(svc ChannelManager, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		svc:    svc,
		logger: logger,
	}
}

// SuggestChannelRequest is the JSON request body for a suggestion.
type SuggestChannelRequest struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Create handles POST /api/v1/suggestions
func (h *SuggestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SuggestChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.svc.Suggest(r.Context(), req.ExternalID, req.Name, req.Note)
	if errors.Is(err, domain.ErrEmptyExternalID) {
		writeError(w, http.StatusBadRequest, "external_id is required")
		return
	}
	if err != nil {
		h.logger.Error("failed to store suggestion", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store suggestion")
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// List handles GET /api/v1/suggestions?status=
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.SuggestionStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := domain.SuggestionStatus(v)
		switch st {
		case domain.SuggestionPending, domain.SuggestionApproved, domain.SuggestionRejected:
			status = &st
		default:
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
	}

	list, err := h.svc.ListSuggestions(r.Context(), status)
	if err != nil {
		h.logger.Error("failed to list suggestions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list suggestions")
		return
	}
	if list == nil {
		list = []*domain.ChannelSuggestion{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Approve handles POST /api/v1/suggestions/{suggestionID}/approve
func (h *SuggestionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := domain.SuggestionID(chi.URLParam(r, "suggestionID"))

	ch, err := h.svc.ApproveSuggestion(r.Context(), id)
	if err != nil {
		h.writeReviewError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// Reject handles POST /api/v1/suggestions/{suggestionID}/reject
func (h *SuggestionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := domain.SuggestionID(chi.URLParam(r, "suggestionID"))

	s, err := h.svc.RejectSuggestion(r.Context(), id)
	if err != nil {
		h.writeReviewError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SuggestionHandler) writeReviewError(w http.ResponseWriter, id domain.SuggestionID, err error) {
	switch {
	case errors.Is(err, domain.ErrSuggestionNotFound):
		writeError(w, http.StatusNotFound, "suggestion not found")
	case errors.Is(err, domain.ErrSuggestionReviewed):
		writeError(w, http.StatusConflict, "suggestion already reviewed")
	default:
		h.logger.Error("failed to review suggestion", "suggestion_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to review suggestion")
	}
}
