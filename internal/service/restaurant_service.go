package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/geo"
	"github.com/iconidentify/makanmap/internal/repository"
)

// Query bounds for nearby searches.
const (
	DefaultRadiusKm = 10.0
	MaxRadiusKm     = 100.0
	DefaultLimit    = 50
	MaxLimit        = 500
)

// Sort orders for nearby searches.
const (
	SortDistance = "distance"
	SortViews    = "views"
	SortRecent   = "recent"
)

// ErrInvalidQuery is returned for out-of-range nearby queries.
var ErrInvalidQuery = errors.New("invalid query")

// NearbyQuery describes a proximity search.
type NearbyQuery struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
	Sort     string
	Limit    int
}

// RestaurantService answers read queries over discovered restaurants.
type RestaurantService struct {
	repo   repository.RestaurantRepository
	logger *slog.Logger
}

// NewRestaurantService creates a new restaurant service.
func NewRestaurantService(repo repository.RestaurantRepository, logger *slog.Logger) *RestaurantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RestaurantService{
		repo:   repo,
		logger: logger.With("component", "restaurants"),
	}
}

// Normalize fills defaults and validates the query.
func (q *NearbyQuery) Normalize() error {
	center := geo.Point{Lat: q.Lat, Lng: q.Lng}
	if !center.Valid() {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidQuery)
	}

	if q.RadiusKm == 0 {
		q.RadiusKm = DefaultRadiusKm
	}
	if math.IsNaN(q.RadiusKm) || q.RadiusKm < 0 || q.RadiusKm > MaxRadiusKm {
		return fmt.Errorf("%w: radius must be between 0 and %.0f km", ErrInvalidQuery, MaxRadiusKm)
	}

	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", ErrInvalidQuery)
	}
	q.Limit = min(q.Limit, MaxLimit)

	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))
	switch q.Sort {
	case "":
		q.Sort = SortDistance
	case SortDistance, SortViews, SortRecent:
	default:
		return fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, q.Sort)
	}
	return nil
}

// Nearby returns restaurants within the query radius, distance-annotated.
func (s *RestaurantService) Nearby(ctx context.Context, q NearbyQuery) ([]domain.NearbyRestaurant, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	center := geo.Point{Lat: q.Lat, Lng: q.Lng}
	candidates, err := s.repo.InBounds(ctx, geo.BoundingBoxFor(q.Lat, q.Lng, q.RadiusKm))
	if err != nil {
		return nil, fmt.Errorf("query restaurants: %w", err)
	}

	matches := geo.WithinRadius(center, q.RadiusKm, candidates, func(r *domain.Restaurant) geo.Point {
		return geo.Point{Lat: r.Latitude, Lng: r.Longitude}
	})

	result := make([]domain.NearbyRestaurant, 0, len(matches))
	for _, m := range matches {
		result = append(result, domain.NearbyRestaurant{Restaurant: *m.Item, DistanceKm: m.DistanceKm})
	}
	sortNearby(result, q.Sort)

	if len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

// Count returns the number of stored restaurants.
func (s *RestaurantService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func sortNearby(items []domain.NearbyRestaurant, order string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch order {
		case SortViews:
			if a.ViewCount != b.ViewCount {
				return a.ViewCount > b.ViewCount
			}
		case SortRecent:
			if !a.PublishedAt.Equal(b.PublishedAt) {
				return a.PublishedAt.After(b.PublishedAt)
			}
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.ID < b.ID
	})
}
