package videosource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/retry"
)

// searchPageSize is the Data API maximum for search.list.
const searchPageSize = 50

// DataAPISource uses the YouTube Data API v3. search.list only returns
// truncated descriptions, so details always come from a batched videos.list.
type DataAPISource struct {
	service  *youtube.Service
	retryCfg retry.Config
	logger   *slog.Logger
}

// NewDataAPISource creates the fallback source. Extra client options are
// appended after the API key.
func NewDataAPISource(ctx context.Context, apiKey string, logger *slog.Logger, opts ...option.ClientOption) (*DataAPISource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api key not set", domain.ErrSourceUnavailable)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &DataAPISource{
		service:  service,
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}, nil
}

// SetRetryConfig overrides the retry policy for API calls.
func (d *DataAPISource) SetRetryConfig(cfg retry.Config) {
	d.retryCfg = cfg
}

// Name implements Source.
func (d *DataAPISource) Name() string { return NameDataAPI }

// ListVideoIDs implements Source.
func (d *DataAPISource) ListVideoIDs(ctx context.Context, channelRef string, limit int) ([]string, error) {
	return d.ListVideoIDsSince(ctx, channelRef, time.Time{}, limit)
}

// ListVideoIDsSince pages through search.list newest first until limit ids
// are collected or no page token is returned.
func (d *DataAPISource) ListVideoIDsSince(ctx context.Context, channelRef string, since time.Time, limit int) ([]string, error) {
	channelID, err := d.resolveChannelID(ctx, channelRef)
	if err != nil {
		return nil, &SourceError{Source: NameDataAPI, Channel: channelRef, Err: err}
	}

	var ids []string
	pageToken := ""
	for {
		pageSize := int64(searchPageSize)
		if limit > 0 {
			pageSize = int64(min(searchPageSize, limit-len(ids)))
		}

		resp, err := retry.DoWithCheck(ctx, d.retryCfg, func(ctx context.Context) (*youtube.SearchListResponse, error) {
			call := d.service.Search.List([]string{"id"}).
				ChannelId(channelID).
				Type("video").
				Order("date").
				MaxResults(pageSize).
				Context(ctx)
			if !since.IsZero() {
				call = call.PublishedAfter(since.UTC().Format(time.RFC3339))
			}
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			resp, err := call.Do()
			return resp, classifyAPIError(err)
		}, apiErrorRetryable)
		if err != nil {
			return nil, &SourceError{Source: NameDataAPI, Channel: channelRef, Err: err}
		}

		for _, item := range resp.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				ids = append(ids, item.Id.VideoId)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || (limit > 0 && len(ids) >= limit) {
			break
		}
	}

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	d.logger.Debug("searched channel videos", "channel", channelRef, "count", len(ids))
	return ids, nil
}

// FetchVideo implements Source.
func (d *DataAPISource) FetchVideo(ctx context.Context, id string) (*domain.Video, error) {
	videos, err := d.FetchVideos(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("video %s: %w", id, domain.ErrVideoNotFound)
	}
	return videos[0], nil
}

// FetchVideos implements BatchSource. At most 50 ids may be passed.
func (d *DataAPISource) FetchVideos(ctx context.Context, ids []string) ([]*domain.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxBatchSize {
		return nil, fmt.Errorf("fetch videos: %d ids exceeds batch size %d", len(ids), maxBatchSize)
	}

	resp, err := retry.DoWithCheck(ctx, d.retryCfg, func(ctx context.Context) (*youtube.VideoListResponse, error) {
		resp, err := d.service.Videos.List([]string{"snippet", "statistics"}).
			Id(ids...).
			Context(ctx).
			Do()
		return resp, classifyAPIError(err)
	}, apiErrorRetryable)
	if err != nil {
		return nil, &SourceError{Source: NameDataAPI, Err: err}
	}

	videos := make([]*domain.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, videoFromAPI(item))
	}
	return videos, nil
}

// ChannelAvatar implements AvatarFetcher.
func (d *DataAPISource) ChannelAvatar(ctx context.Context, channelRef string) (string, error) {
	call := d.service.Channels.List([]string{"snippet"}).Context(ctx)
	if id, ok := ChannelID(channelRef); ok {
		call = call.Id(id)
	} else if handle, ok := Handle(channelRef); ok {
		call = call.ForHandle(handle)
	} else {
		return "", fmt.Errorf("channel avatar %q: %w", channelRef, domain.ErrChannelNotFound)
	}

	resp, err := call.Do()
	if err != nil {
		return "", classifyAPIError(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", fmt.Errorf("channel avatar %q: %w", channelRef, domain.ErrChannelNotFound)
	}
	return bestAPIThumbnail(resp.Items[0].Snippet.Thumbnails), nil
}

func (d *DataAPISource) resolveChannelID(ctx context.Context, channelRef string) (string, error) {
	if id, ok := ChannelID(channelRef); ok {
		return id, nil
	}
	handle, ok := Handle(channelRef)
	if !ok {
		return "", fmt.Errorf("resolve %q: %w", channelRef, domain.ErrChannelNotFound)
	}

	resp, err := d.service.Channels.List([]string{"id"}).
		ForHandle(handle).
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyAPIError(err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("resolve %s: %w", handle, domain.ErrChannelNotFound)
	}
	return resp.Items[0].Id, nil
}

func videoFromAPI(item *youtube.Video) *domain.Video {
	v := &domain.Video{ID: item.Id}
	if s := item.Snippet; s != nil {
		v.ChannelID = s.ChannelId
		v.Title = s.Title
		v.Description = s.Description
		v.ThumbnailURL = bestAPIThumbnail(s.Thumbnails)
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			v.PublishedAt = t
		}
	}
	if item.Statistics != nil {
		v.ViewCount = int64(item.Statistics.ViewCount)
	}
	return v
}

func bestAPIThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

// classifyAPIError maps Data API failures onto domain sentinels while keeping
// the original error text.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			return fmt.Errorf("%w: %w", domain.ErrQuotaExceeded, err)
		case "rateLimitExceeded", "userRateLimitExceeded":
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		case "keyInvalid":
			return fmt.Errorf("%w: %w", domain.ErrInvalidAPIKey, err)
		}
	}
	if gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "API key") {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAPIKey, err)
	}
	if gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return err
}

// apiErrorRetryable retries rate limits and server errors only.
func apiErrorRetryable(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError
	}
	return true
}
