package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/repository"
)

// ChannelService manages the curated channel list and user suggestions.
type ChannelService struct {
	channels    repository.ChannelRepository
	suggestions repository.SuggestionRepository
	logger      *slog.Logger
}

// NewChannelService creates a new channel service.
func NewChannelService(
	channels repository.ChannelRepository,
	suggestions repository.SuggestionRepository,
	logger *slog.Logger,
) *ChannelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelService{
		channels:    channels,
		suggestions: suggestions,
		logger:      logger.With("component", "channels"),
	}
}

// Add configures a new channel for syncing.
func (s *ChannelService) Add(ctx context.Context, externalID, name string) (*domain.Channel, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, domain.ErrEmptyExternalID
	}

	if _, err := s.channels.GetByExternalID(ctx, externalID); err == nil {
		return nil, domain.ErrDuplicateChannel
	} else if !errors.Is(err, domain.ErrChannelNotFound) {
		return nil, err
	}

	ch := domain.NewChannel(newChannelID(), externalID, name)
	if err := s.channels.Create(ctx, ch); err != nil {
		return nil, err
	}

	s.logger.Info("added channel", "id", ch.ID, "external_id", ch.ExternalID, "name", ch.Name)
	return ch, nil
}

// List returns all configured channels.
func (s *ChannelService) List(ctx context.Context) ([]*domain.Channel, error) {
	return s.channels.List(ctx)
}

// Delete removes a channel from future syncs. Its restaurants are kept.
func (s *ChannelService) Delete(ctx context.Context, id domain.ChannelID) error {
	if err := s.channels.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted channel", "id", id)
	return nil
}

// Suggest records a user-submitted channel for moderation.
func (s *ChannelService) Suggest(ctx context.Context, externalID, name, note string) (*domain.ChannelSuggestion, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, domain.ErrEmptyExternalID
	}

	suggestion := domain.NewChannelSuggestion(newSuggestionID(), externalID, name, note)
	if err := s.suggestions.Create(ctx, suggestion); err != nil {
		return nil, err
	}

	s.logger.Info("channel suggested", "id", suggestion.ID, "external_id", suggestion.ExternalID)
	return suggestion, nil
}

// ListSuggestions returns suggestions newest first, optionally by status.
func (s *ChannelService) ListSuggestions(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.ChannelSuggestion, error) {
	return s.suggestions.List(ctx, status)
}

// ApproveSuggestion accepts a pending suggestion and configures its channel.
// A channel that is already configured is returned as is.
func (s *ChannelService) ApproveSuggestion(ctx context.Context, id domain.SuggestionID) (*domain.Channel, error) {
	suggestion, err := s.suggestions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := suggestion.Review(true); err != nil {
		return nil, err
	}

	ch, err := s.Add(ctx, suggestion.ExternalID, suggestion.Name)
	if errors.Is(err, domain.ErrDuplicateChannel) {
		ch, err = s.channels.GetByExternalID(ctx, suggestion.ExternalID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.suggestions.Update(ctx, suggestion); err != nil {
		return nil, err
	}

	s.logger.Info("suggestion approved", "id", id, "channel_id", ch.ID)
	return ch, nil
}

// RejectSuggestion declines a pending suggestion.
func (s *ChannelService) RejectSuggestion(ctx context.Context, id domain.SuggestionID) (*domain.ChannelSuggestion, error) {
	suggestion, err := s.suggestions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := suggestion.Review(false); err != nil {
		return nil, err
	}
	if err := s.suggestions.Update(ctx, suggestion); err != nil {
		return nil, err
	}

	s.logger.Info("suggestion rejected", "id", id)
	return suggestion, nil
}

func newChannelID() domain.ChannelID {
	return domain.ChannelID("ch_" + uuid.New().String()[:8])
}

func newSuggestionID() domain.SuggestionID {
	return domain.SuggestionID("sg_" + uuid.New().String()[:8])
}
