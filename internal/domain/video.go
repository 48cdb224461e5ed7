package domain

import (
	"time"
)

// Video is a single upload as reported by a video source. Videos are never
// persisted on their own; only the restaurants derived from them are.
type Video struct {
	ID           string
	ChannelID    string
	Title        string
	Description  string
	ThumbnailURL string
	PublishedAt  time.Time
	ViewCount    int64
}

// URL returns the watch URL for the video.
func (v *Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// PublishedBefore reports whether the video was published before t.
// Videos without a known publish time are never considered too old.
func (v *Video) PublishedBefore(t time.Time) bool {
	if v.PublishedAt.IsZero() {
		return false
	}
	return v.PublishedAt.Before(t)
}
