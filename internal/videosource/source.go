// Package videosource lists and fetches channel videos from interchangeable
// sources: yt-dlp as the primary strategy and the YouTube Data API as the
// quota-metered fallback.
package videosource

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/iconidentify/makanmap/internal/domain"
)

// Source names recorded on sync runs.
const (
	NameYtdlp   = "yt-dlp"
	NameDataAPI = "youtube-api"
)

// Source enumerates a channel's videos and fetches their details.
// Implementations return ids newest first.
type Source interface {
	Name() string
	ListVideoIDs(ctx context.Context, channelRef string, limit int) ([]string, error)
	FetchVideo(ctx context.Context, id string) (*domain.Video, error)
}

// BatchSource can fetch details for several videos in one request.
type BatchSource interface {
	Source
	FetchVideos(ctx context.Context, ids []string) ([]*domain.Video, error)
}

// WindowedSource can restrict listing to videos published after a time.
type WindowedSource interface {
	Source
	ListVideoIDsSince(ctx context.Context, channelRef string, since time.Time, limit int) ([]string, error)
}

// AvatarFetcher looks up a channel's thumbnail image.
type AvatarFetcher interface {
	ChannelAvatar(ctx context.Context, channelRef string) (string, error)
}

// SourceError reports a strategy-level failure for a channel.
type SourceError struct {
	Source  string
	Channel string
	Err     error
}

func (e *SourceError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Source, e.Channel, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

var channelIDRegex = regexp.MustCompile(`UC[A-Za-z0-9_-]{22}`)

// ChannelID extracts a UC... channel id from an id or channel URL.
func ChannelID(ref string) (string, bool) {
	id := channelIDRegex.FindString(ref)
	return id, id != ""
}

// Handle extracts an @handle from a handle or handle URL.
func Handle(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, "/@"); i >= 0 {
		ref = ref[i+1:]
	}
	if !strings.HasPrefix(ref, "@") {
		return "", false
	}
	handle := strings.TrimPrefix(ref, "@")
	if i := strings.IndexAny(handle, "/?#"); i >= 0 {
		handle = handle[:i]
	}
	if handle == "" {
		return "", false
	}
	return "@" + handle, true
}

// ChannelURL returns the videos-tab URL for a channel reference.
func ChannelURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "youtube.com") {
		if id, ok := ChannelID(ref); ok && id == ref {
			return "https://www.youtube.com/channel/" + id + "/videos"
		}
		if handle, ok := Handle(ref); ok {
			return "https://www.youtube.com/" + handle + "/videos"
		}
	}

	ref = strings.TrimSuffix(ref, "/")
	for _, tab := range []string{"/videos", "/streams", "/shorts", "/featured"} {
		ref = strings.TrimSuffix(ref, tab)
	}
	return ref + "/videos"
}
