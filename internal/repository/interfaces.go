package repository

import (
	"context"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/geo"
)

// ChannelRepository stores the curated channel list.
type ChannelRepository interface {
	// Create adds a channel. Returns domain.ErrDuplicateChannel if the
	// external id is already configured.
	Create(ctx context.Context, ch *domain.Channel) error

	// Get retrieves a channel by ID.
	Get(ctx context.Context, id domain.ChannelID) (*domain.Channel, error)

	// GetByExternalID retrieves a channel by its platform id.
	GetByExternalID(ctx context.Context, externalID string) (*domain.Channel, error)

	// List returns all channels in creation order.
	List(ctx context.Context) ([]*domain.Channel, error)

	// Update refreshes the name and avatar of a channel.
	Update(ctx context.Context, ch *domain.Channel) error

	// Delete removes a channel. Restaurants found through it are kept.
	Delete(ctx context.Context, id domain.ChannelID) error
}

// RestaurantRepository stores extracted restaurants keyed by (video id, maps url).
type RestaurantRepository interface {
	// Upsert creates the restaurant or merges it into the existing record
	// with the same natural key. r is updated with the stored ID and
	// timestamps. created reports whether a new record was inserted.
	Upsert(ctx context.Context, r *domain.Restaurant) (created bool, err error)

	// GetByKey retrieves a restaurant by its natural key.
	GetByKey(ctx context.Context, key domain.RestaurantKey) (*domain.Restaurant, error)

	// VideoIDsByChannel returns the ids of videos that already produced a
	// restaurant for the channel.
	VideoIDsByChannel(ctx context.Context, channelID domain.ChannelID) (map[string]struct{}, error)

	// InBounds returns restaurants inside the box.
	InBounds(ctx context.Context, box geo.BoundingBox) ([]*domain.Restaurant, error)

	// Count returns the total number of restaurants.
	Count(ctx context.Context) (int, error)
}

// SyncRunRepository stores sync run progress records.
type SyncRunRepository interface {
	// Create stores a new run.
	Create(ctx context.Context, run *domain.SyncRun) error

	// Update overwrites a run. Returns domain.ErrRunFinalized if the stored
	// run is already completed or failed.
	Update(ctx context.Context, run *domain.SyncRun) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, id domain.SyncRunID) (*domain.SyncRun, error)

	// Latest returns the most recently started run, or domain.ErrRunNotFound.
	Latest(ctx context.Context) (*domain.SyncRun, error)
}

// SuggestionRepository stores user-submitted channel suggestions.
type SuggestionRepository interface {
	Create(ctx context.Context, s *domain.ChannelSuggestion) error
	Get(ctx context.Context, id domain.SuggestionID) (*domain.ChannelSuggestion, error)
	// List returns suggestions newest first, optionally filtered by status.
	List(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.ChannelSuggestion, error)
	Update(ctx context.Context, s *domain.ChannelSuggestion) error
}
