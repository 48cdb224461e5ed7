package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/service"
)

// RestaurantFinder answers proximity queries.
type RestaurantFinder interface {
	Nearby(ctx context.Context, q service.NearbyQuery) ([]domain.NearbyRestaurant, error)
}

// RestaurantHandler handles the public restaurant endpoints.
type RestaurantHandler struct {
	svc    RestaurantFinder
	logger *slog.Logger
}

// NewRestaurantHandler creates a new restaurant handler.
func NewRestaurantHandler(svc RestaurantFinder, logger *slog.Logger) *RestaurantHandler {
	return &RestaurantHandler{
		svc:    svc,
		logger: logger,
	}
}

// NearbyResponse is the JSON response for proximity searches.
type NearbyResponse struct {
	Restaurants []domain.NearbyRestaurant `json:"restaurants"`
	Count       int                       `json:"count"`
	RadiusKm    float64                   `json:"radius_km"`
}

// Near handles GET /api/v1/restaurants/near?lat=&lng=&radius=&sort=&limit=
func (h *RestaurantHandler) Near(w http.ResponseWriter, r *http.Request) {
	q, err := parseNearbyQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.svc.Nearby(r.Context(), q)
	if errors.Is(err, service.ErrInvalidQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("nearby query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query restaurants")
		return
	}

	radius := q.RadiusKm
	if radius == 0 {
		radius = service.DefaultRadiusKm
	}
	writeJSON(w, http.StatusOK, NearbyResponse{
		Restaurants: results,
		Count:       len(results),
		RadiusKm:    radius,
	})
}

func parseNearbyQuery(r *http.Request) (service.NearbyQuery, error) {
	var q service.NearbyQuery
	values := r.URL.Query()

	lat, err := requiredFloat(values.Get("lat"), "lat")
	if err != nil {
		return q, err
	}
	lng, err := requiredFloat(values.Get("lng"), "lng")
	if err != nil {
		return q, err
	}
	q.Lat, q.Lng = lat, lng

	if v := values.Get("radius"); v != "" {
		if q.RadiusKm, err = strconv.ParseFloat(v, 64); err != nil {
			return q, errors.New("radius must be a number")
		}
	}
	if v := values.Get("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			return q, errors.New("limit must be an integer")
		}
	}
	q.Sort = values.Get("sort")
	return q, nil
}

func requiredFloat(v, name string) (float64, error) {
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return f, nil
}
