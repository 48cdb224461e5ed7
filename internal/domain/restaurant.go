package domain

import (
	"fmt"
	"time"
)

// RestaurantID is the internal identifier of a discovered restaurant.
type RestaurantID string

// String returns the string representation of the RestaurantID.
func (id RestaurantID) String() string {
	return string(id)
}

// Restaurant is a location extracted from a map link in a video description.
// The pair (VideoID, MapsURL) is its natural key.
type Restaurant struct {
	ID             RestaurantID `json:"id"`
	Name           string       `json:"name"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	MapsURL        string       `json:"maps_url"`
	VideoID        string       `json:"video_id"`
	VideoTitle     string       `json:"video_title"`
	VideoThumbnail string       `json:"video_thumbnail,omitempty"`
	ChannelID      ChannelID    `json:"channel_id"`
	ChannelName    string       `json:"channel_name"`
	ChannelAvatar  string       `json:"channel_avatar,omitempty"`
	ViewCount      int64        `json:"view_count"`
	PublishedAt    time.Time    `json:"published_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// RestaurantKey is the natural key of a restaurant.
type RestaurantKey struct {
	VideoID string
	MapsURL string
}

// Key returns the natural key of the restaurant.
func (r *Restaurant) Key() RestaurantKey {
	return RestaurantKey{VideoID: r.VideoID, MapsURL: r.MapsURL}
}

// Validate checks the natural key and the coordinate ranges.
func (r *Restaurant) Validate() error {
	if r.VideoID == "" || r.MapsURL == "" {
		return fmt.Errorf("%w: video id and maps url are required", ErrInvalidRestaurant)
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidRestaurant, r.Latitude)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidRestaurant, r.Longitude)
	}
	return nil
}

// MergeFrom copies the mutable fields of a rediscovered restaurant onto r.
// Identity, natural key and CreatedAt are kept.
func (r *Restaurant) MergeFrom(other *Restaurant) {
	r.Name = other.Name
	r.Latitude = other.Latitude
	r.Longitude = other.Longitude
	r.VideoTitle = other.VideoTitle
	r.VideoThumbnail = other.VideoThumbnail
	r.ChannelID = other.ChannelID
	r.ChannelName = other.ChannelName
	r.ChannelAvatar = other.ChannelAvatar
	r.ViewCount = other.ViewCount
	r.PublishedAt = other.PublishedAt
	r.UpdatedAt = time.Now().UTC()
}

// NearbyRestaurant is a restaurant annotated with its distance from a query point.
type NearbyRestaurant struct {
	Restaurant
	DistanceKm float64 `json:"distance_km"`
}
