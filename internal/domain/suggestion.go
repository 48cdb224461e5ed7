package domain

import (
	"strings"
	"time"
)

// SuggestionID identifies a user-submitted channel suggestion.
type SuggestionID string

// String returns the string representation of the SuggestionID.
func (id SuggestionID) String() string {
	return string(id)
}

// SuggestionStatus is the moderation state of a suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// ChannelSuggestion is a candidate channel awaiting moderation. The sync
// pipeline never reads suggestions; approval turns one into a Channel.
type ChannelSuggestion struct {
	ID         SuggestionID     `json:"id"`
	ExternalID string           `json:"external_id"`
	Name       string           `json:"name,omitempty"`
	Note       string           `json:"note,omitempty"`
	Status     SuggestionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"`
}

// NewChannelSuggestion creates a pending suggestion.
func NewChannelSuggestion(id SuggestionID, externalID, name, note string) *ChannelSuggestion {
	return &ChannelSuggestion{
		ID:         id,
		ExternalID: strings.TrimSpace(externalID),
		Name:       strings.TrimSpace(name),
		Note:       strings.TrimSpace(note),
		Status:     SuggestionPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Review moves a pending suggestion to approved or rejected.
func (s *ChannelSuggestion) Review(approved bool) error {
	if s.Status != SuggestionPending {
		return ErrSuggestionReviewed
	}
	now := time.Now().UTC()
	s.ReviewedAt = &now
	if approved {
		s.Status = SuggestionApproved
	} else {
		s.Status = SuggestionRejected
	}
	return nil
}
