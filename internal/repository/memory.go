package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/geo"
)

// InMemoryChannelRepository implements ChannelRepository using in-memory storage.
type InMemoryChannelRepository struct {
	mu         sync.RWMutex
	channels   map[domain.ChannelID]*domain.Channel
	byExternal map[string]domain.ChannelID
}

// NewInMemoryChannelRepository creates a new in-memory channel repository.
func NewInMemoryChannelRepository() *InMemoryChannelRepository {
	return &InMemoryChannelRepository{
		channels:   make(map[domain.ChannelID]*domain.Channel),
		byExternal: make(map[string]domain.ChannelID),
	}
}

// Create adds a channel.
func (r *InMemoryChannelRepository) Create(ctx context.Context, ch *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byExternal[ch.ExternalID]; ok {
		return domain.ErrDuplicateChannel
	}
	c := *ch
	r.channels[ch.ID] = &c
	r.byExternal[ch.ExternalID] = ch.ID
	return nil
}

// Get retrieves a channel by ID.
func (r *InMemoryChannelRepository) Get(ctx context.Context, id domain.ChannelID) (*domain.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[id]
	if !ok {
		return nil, domain.ErrChannelNotFound
	}
	c := *ch
	return &c, nil
}

// GetByExternalID retrieves a channel by its platform id.
func (r *InMemoryChannelRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Channel, error) {
	r.mu.RLock()
	id, ok := r.byExternal[externalID]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrChannelNotFound
	}
	return r.Get(ctx, id)
}

// List returns all channels in creation order.
func (r *InMemoryChannelRepository) List(ctx context.Context) ([]*domain.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		c := *ch
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Update refreshes the name and avatar of a channel.
func (r *InMemoryChannelRepository) Update(ctx context.Context, ch *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.channels[ch.ID]
	if !ok {
		return domain.ErrChannelNotFound
	}
	existing.Name = ch.Name
	existing.AvatarURL = ch.AvatarURL
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a channel.
func (r *InMemoryChannelRepository) Delete(ctx context.Context, id domain.ChannelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[id]
	if !ok {
		return domain.ErrChannelNotFound
	}
	delete(r.byExternal, ch.ExternalID)
	delete(r.channels, id)
	return nil
}

// InMemoryRestaurantRepository implements RestaurantRepository using in-memory storage.
type InMemoryRestaurantRepository struct {
	mu          sync.RWMutex
	restaurants map[domain.RestaurantKey]*domain.Restaurant
}

// NewInMemoryRestaurantRepository creates a new in-memory restaurant repository.
func NewInMemoryRestaurantRepository() *InMemoryRestaurantRepository {
	return &InMemoryRestaurantRepository{
		restaurants: make(map[domain.RestaurantKey]*domain.Restaurant),
	}
}

// Upsert creates or merges a restaurant by natural key.
func (r *InMemoryRestaurantRepository) Upsert(ctx context.Context, rest *domain.Restaurant) (bool, error) {
	if err := rest.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.restaurants[rest.Key()]; ok {
		existing.MergeFrom(rest)
		*rest = *existing
		return false, nil
	}

	now := time.Now().UTC()
	if rest.CreatedAt.IsZero() {
		rest.CreatedAt = now
	}
	rest.UpdatedAt = now
	stored := *rest
	r.restaurants[rest.Key()] = &stored
	return true, nil
}

// GetByKey retrieves a restaurant by its natural key.
func (r *InMemoryRestaurantRepository) GetByKey(ctx context.Context, key domain.RestaurantKey) (*domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rest, ok := r.restaurants[key]
	if !ok {
		return nil, domain.ErrRestaurantNotFound
	}
	c := *rest
	return &c, nil
}

// VideoIDsByChannel returns video ids that already produced restaurants.
func (r *InMemoryRestaurantRepository) VideoIDsByChannel(ctx context.Context, channelID domain.ChannelID) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]struct{})
	for _, rest := range r.restaurants {
		if rest.ChannelID == channelID {
			ids[rest.VideoID] = struct{}{}
		}
	}
	return ids, nil
}

// InBounds returns restaurants inside the box.
func (r *InMemoryRestaurantRepository) InBounds(ctx context.Context, box geo.BoundingBox) ([]*domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Restaurant
	for _, rest := range r.restaurants {
		if box.Contains(rest.Latitude, rest.Longitude) {
			c := *rest
			result = append(result, &c)
		}
	}
	return result, nil
}

// Count returns the number of restaurants.
func (r *InMemoryRestaurantRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.restaurants), nil
}

// InMemorySyncRunRepository implements SyncRunRepository using in-memory storage.
type InMemorySyncRunRepository struct {
	mu   sync.RWMutex
	runs map[domain.SyncRunID]*domain.SyncRun
}

// NewInMemorySyncRunRepository creates a new in-memory run repository.
func NewInMemorySyncRunRepository() *InMemorySyncRunRepository {
	return &InMemorySyncRunRepository{
		runs: make(map[domain.SyncRunID]*domain.SyncRun),
	}
}

// Create stores a new run.
func (r *InMemorySyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = run.Clone()
	return nil
}

// Update overwrites a running run.
func (r *InMemorySyncRunRepository) Update(ctx context.Context, run *domain.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.runs[run.ID]
	if !ok {
		return domain.ErrRunNotFound
	}
	if existing.Status.IsTerminal() {
		return domain.ErrRunFinalized
	}
	r.runs[run.ID] = run.Clone()
	return nil
}

// Get retrieves a run by ID.
func (r *InMemorySyncRunRepository) Get(ctx context.Context, id domain.SyncRunID) (*domain.SyncRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run.Clone(), nil
}

// Latest returns the most recently started run.
func (r *InMemorySyncRunRepository) Latest(ctx context.Context) (*domain.SyncRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.SyncRun
	for _, run := range r.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) ||
			(run.StartedAt.Equal(latest.StartedAt) && run.ID > latest.ID) {
			latest = run
		}
	}
	if latest == nil {
		return nil, domain.ErrRunNotFound
	}
	return latest.Clone(), nil
}

// InMemorySuggestionRepository implements SuggestionRepository using in-memory storage.
type InMemorySuggestionRepository struct {
	mu          sync.RWMutex
	suggestions map[domain.SuggestionID]*domain.ChannelSuggestion
}

// NewInMemorySuggestionRepository creates a new in-memory suggestion repository.
func NewInMemorySuggestionRepository() *InMemorySuggestionRepository {
	return &InMemorySuggestionRepository{
		suggestions: make(map[domain.SuggestionID]*domain.ChannelSuggestion),
	}
}

// Create stores a suggestion.
func (r *InMemorySuggestionRepository) Create(ctx context.Context, s *domain.ChannelSuggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.suggestions[s.ID] = cloneSuggestion(s)
	return nil
}

// Get retrieves a suggestion by ID.
func (r *InMemorySuggestionRepository) Get(ctx context.Context, id domain.SuggestionID) (*domain.ChannelSuggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.suggestions[id]
	if !ok {
		return nil, domain.ErrSuggestionNotFound
	}
	return cloneSuggestion(s), nil
}

// List returns suggestions newest first.
func (r *InMemorySuggestionRepository) List(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.ChannelSuggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.ChannelSuggestion
	for _, s := range r.suggestions {
		if status != nil && s.Status != *status {
			continue
		}
		result = append(result, cloneSuggestion(s))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Update overwrites a suggestion.
func (r *InMemorySuggestionRepository) Update(ctx context.Context, s *domain.ChannelSuggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.suggestions[s.ID]; !ok {
		return domain.ErrSuggestionNotFound
	}
	r.suggestions[s.ID] = cloneSuggestion(s)
	return nil
}

func cloneSuggestion(s *domain.ChannelSuggestion) *domain.ChannelSuggestion {
	c := *s
	if s.ReviewedAt != nil {
		t := *s.ReviewedAt
		c.ReviewedAt = &t
	}
	return &c
}
