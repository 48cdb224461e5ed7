package domain

import (
	"strings"
	"time"
)

// ChannelID is the internal identifier of a configured channel.
type ChannelID string

// String returns the string representation of the ChannelID.
func (id ChannelID) String() string {
	return string(id)
}

// Channel is a content source whose videos are scanned for map links.
type Channel struct {
	ID         ChannelID `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewChannel creates a channel for the given external id.
func NewChannel(id ChannelID, externalID, name string) *Channel {
	now := time.Now().UTC()
	externalID = strings.TrimSpace(externalID)
	name = strings.TrimSpace(name)
	if name == "" {
		name = externalID
	}
	return &Channel{
		ID:         id,
		ExternalID: externalID,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// DisplayName returns the name, falling back to the external id.
func (c *Channel) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ExternalID
}
