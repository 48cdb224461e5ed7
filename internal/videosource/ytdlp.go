package videosource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/iconidentify/makanmap/internal/config"
	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/retry"
)

// ErrYtdlpNotInstalled is returned when the yt-dlp binary cannot be run.
var ErrYtdlpNotInstalled = errors.New("yt-dlp not installed")

// commandRunner runs an external command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) (stdout []byte, stderr string, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}

// YtdlpSource lists a channel with a single flat enumeration and fetches
// untruncated details one video at a time.
type YtdlpSource struct {
	path     string
	timeout  time.Duration
	retryCfg retry.Config
	run      commandRunner
	logger   *slog.Logger
}

// NewYtdlpSource creates the primary source.
func NewYtdlpSource(cfg config.YouTubeConfig, logger *slog.Logger) *YtdlpSource {
	if logger == nil {
		logger = slog.Default()
	}
	retryCfg := retry.DefaultConfig()
	if cfg.ListRetries > 0 {
		retryCfg.MaxAttempts = cfg.ListRetries
	}
	path := cfg.YtdlpPath
	if path == "" {
		path = "yt-dlp"
	}
	return &YtdlpSource{
		path:     path,
		timeout:  cfg.YtdlpTimeout,
		retryCfg: retryCfg,
		run:      runCommand,
		logger:   logger,
	}
}

// Name implements Source.
func (y *YtdlpSource) Name() string { return NameYtdlp }

// ListVideoIDs implements Source.
func (y *YtdlpSource) ListVideoIDs(ctx context.Context, channelRef string, limit int) ([]string, error) {
	url := ChannelURL(channelRef)
	args := []string{"--flat-playlist", "-J", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(limit))
	}
	args = append(args, url)

	ids, err := retry.Do(ctx, y.retryCfg, func(ctx context.Context) ([]string, error) {
		out, err := y.exec(ctx, channelRef, args)
		if err != nil {
			return nil, err
		}

		var playlist ytdlpEntry
		if err := json.Unmarshal(out, &playlist); err != nil {
			return nil, &SourceError{Source: NameYtdlp, Channel: channelRef, Err: fmt.Errorf("parse playlist: %w", err)}
		}
		return playlist.videoIDs(), nil
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	y.logger.Debug("listed channel videos", "channel", channelRef, "count", len(ids))
	return ids, nil
}

// FetchVideo implements Source.
func (y *YtdlpSource) FetchVideo(ctx context.Context, id string) (*domain.Video, error) {
	v := &domain.Video{ID: id}
	args := []string{"-J", "--skip-download", "--no-playlist", "--no-warnings", v.URL()}

	out, err := y.exec(ctx, "", args)
	if err != nil {
		return nil, err
	}

	var entry ytdlpEntry
	if err := json.Unmarshal(out, &entry); err != nil {
		return nil, fmt.Errorf("parse video %s: %w", id, err)
	}
	if entry.ID == "" {
		entry.ID = id
	}
	return entry.toVideo(), nil
}

// CheckInstalled verifies that yt-dlp can be run.
func (y *YtdlpSource) CheckInstalled(ctx context.Context) error {
	if _, _, err := y.run(ctx, y.path, "--version"); err != nil {
		return fmt.Errorf("%w: %v", ErrYtdlpNotInstalled, err)
	}
	return nil
}

func (y *YtdlpSource) exec(ctx context.Context, channelRef string, args []string) ([]byte, error) {
	cmdCtx := ctx
	if y.timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	out, stderr, err := y.run(cmdCtx, y.path, args...)
	if err == nil {
		return out, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return nil, &SourceError{Source: NameYtdlp, Channel: channelRef, Err: fmt.Errorf("timed out after %v", y.timeout)}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, &SourceError{Source: NameYtdlp, Channel: channelRef, Err: ErrYtdlpNotInstalled}
	}

	msg := strings.TrimSpace(stderr)
	switch {
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "404"),
		strings.Contains(msg, "Video unavailable"):
		// Single-video fetches pass no channel.
		notFound := domain.ErrChannelNotFound
		if channelRef == "" {
			notFound = domain.ErrVideoNotFound
		}
		return nil, &SourceError{Source: NameYtdlp, Channel: channelRef, Err: notFound}
	case strings.Contains(msg, "429"), strings.Contains(strings.ToLower(msg), "too many requests"):
		return nil, &SourceError{Source: NameYtdlp, Channel: channelRef, Err: domain.ErrRateLimited}
	}
	return nil, &SourceError{Source: NameYtdlp, Channel: channelRef, Err: fmt.Errorf("yt-dlp failed: %w: %s", err, msg)}
}

// ytdlpEntry is the subset of yt-dlp's JSON used for both playlists and
// single videos.
type ytdlpEntry struct {
	Type        string           `json:"_type"`
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ChannelID   string           `json:"channel_id"`
	UploadDate  string           `json:"upload_date"` // YYYYMMDD
	Timestamp   int64            `json:"timestamp"`
	ViewCount   int64            `json:"view_count"`
	Thumbnail   string           `json:"thumbnail"`
	Thumbnails  []ytdlpThumbnail `json:"thumbnails"`
	Entries     []ytdlpEntry     `json:"entries"`
}

type ytdlpThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// videoIDs flattens nested tab playlists into video ids, in order.
func (e *ytdlpEntry) videoIDs() []string {
	var ids []string
	for i := range e.Entries {
		entry := &e.Entries[i]
		if entry.Type == "playlist" || len(entry.Entries) > 0 {
			ids = append(ids, entry.videoIDs()...)
			continue
		}
		if entry.ID != "" {
			ids = append(ids, entry.ID)
		}
	}
	return ids
}

func (e *ytdlpEntry) toVideo() *domain.Video {
	return &domain.Video{
		ID:           e.ID,
		ChannelID:    e.ChannelID,
		Title:        e.Title,
		Description:  e.Description,
		ThumbnailURL: e.bestThumbnail(),
		PublishedAt:  e.publishedAt(),
		ViewCount:    e.ViewCount,
	}
}

func (e *ytdlpEntry) publishedAt() time.Time {
	if e.Timestamp > 0 {
		return time.Unix(e.Timestamp, 0).UTC()
	}
	if e.UploadDate != "" {
		if t, err := time.Parse("20060102", e.UploadDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (e *ytdlpEntry) bestThumbnail() string {
	if e.Thumbnail != "" {
		return e.Thumbnail
	}
	var best ytdlpThumbnail
	for _, t := range e.Thumbnails {
		if best.URL == "" || t.Width*t.Height > best.Width*best.Height {
			best = t
		}
	}
	return best.URL
}
