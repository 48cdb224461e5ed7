package videosource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/iconidentify/makanmap/internal/domain"
)

// maxBatchSize is the most ids the Data API accepts in one videos.list call.
const maxBatchSize = 50

// CollectOptions bounds a single channel collection.
type CollectOptions struct {
	// Limit caps the number of videos whose details are fetched. 0 means no limit.
	Limit int
	// Cutoff stops collection at the first video published before it.
	Cutoff time.Time
	// Known holds ids already synced; they are skipped without a detail fetch.
	Known map[string]struct{}
}

// CollectResult is the outcome of collecting one channel.
type CollectResult struct {
	Videos    []*domain.Video
	Listed    int
	Skipped   int
	Failed    int
	HitCutoff bool
}

// Collector drives a Source: list, filter, then fetch details under a rate
// limit, honouring the recency cutoff.
type Collector struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewCollector creates a collector that spaces single-video fetches at least
// interval apart. A non-positive interval disables the limit.
func NewCollector(interval time.Duration, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Collector{
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Collect lists and fetches videos for channelRef from src. Only listing
// failures and cancellation are returned as errors; individual fetch failures
// are logged and skipped.
func (c *Collector) Collect(ctx context.Context, src Source, channelRef string, opts CollectOptions) (*CollectResult, error) {
	listLimit := 0
	if opts.Limit > 0 {
		listLimit = opts.Limit + len(opts.Known)
	}

	var ids []string
	var err error
	if ws, ok := src.(WindowedSource); ok && !opts.Cutoff.IsZero() {
		ids, err = ws.ListVideoIDsSince(ctx, channelRef, opts.Cutoff, listLimit)
	} else {
		ids, err = src.ListVideoIDs(ctx, channelRef, listLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	result := &CollectResult{Listed: len(ids)}
	pending := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, known := opts.Known[id]; known {
			result.Skipped++
			continue
		}
		pending = append(pending, id)
	}
	if opts.Limit > 0 && len(pending) > opts.Limit {
		pending = pending[:opts.Limit]
	}

	c.logger.Debug("collecting videos",
		"source", src.Name(),
		"channel", channelRef,
		"listed", result.Listed,
		"pending", len(pending),
		"skipped", result.Skipped,
	)

	if bs, ok := src.(BatchSource); ok {
		err = c.fetchBatched(ctx, bs, pending, opts.Cutoff, result)
	} else {
		err = c.fetchEach(ctx, src, pending, opts.Cutoff, result)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Collector) fetchEach(ctx context.Context, src Source, ids []string, cutoff time.Time, result *CollectResult) error {
	for _, id := range ids {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		video, err := src.FetchVideo(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.Failed++
			c.logger.Warn("failed to fetch video, skipping",
				"source", src.Name(),
				"video_id", id,
				"error", err,
			)
			continue
		}
		if video == nil {
			continue
		}
		if video.PublishedBefore(cutoff) {
			result.HitCutoff = true
			return nil
		}
		result.Videos = append(result.Videos, video)
	}
	return nil
}

func (c *Collector) fetchBatched(ctx context.Context, src BatchSource, ids []string, cutoff time.Time, result *CollectResult) error {
	for start := 0; start < len(ids); start += maxBatchSize {
		end := min(start+maxBatchSize, len(ids))
		chunk := ids[start:end]

		videos, err := src.FetchVideos(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.Failed += len(chunk)
			c.logger.Warn("failed to fetch video batch, skipping",
				"source", src.Name(),
				"count", len(chunk),
				"error", err,
			)
			continue
		}

		// Details come back keyed by id; keep listing order.
		byID := make(map[string]*domain.Video, len(videos))
		for _, v := range videos {
			if v != nil {
				byID[v.ID] = v
			}
		}
		for _, id := range chunk {
			video, ok := byID[id]
			if !ok {
				result.Failed++
				continue
			}
			if video.PublishedBefore(cutoff) {
				result.HitCutoff = true
				return nil
			}
			result.Videos = append(result.Videos, video)
		}
	}
	return nil
}
