package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/iconidentify/makanmap/internal/config"
	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/maplink"
	"github.com/iconidentify/makanmap/internal/metrics"
	"github.com/iconidentify/makanmap/internal/repository"
	"github.com/iconidentify/makanmap/internal/videosource"
)

// finalWriteTimeout bounds the last run update, which must happen even
// after the run context is cancelled.
const finalWriteTimeout = 10 * time.Second

// LinkExtractor turns one map link into a location.
type LinkExtractor interface {
	Extract(ctx context.Context, rawURL string) (*maplink.Location, error)
}

// SyncOptions are the per-invocation knobs of a sync run.
type SyncOptions struct {
	// MaxVideos caps videos fetched per channel. 0 uses the configured default.
	MaxVideos int
	// UseAPI skips the primary source and goes straight to the fallback.
	UseAPI bool
}

// StatusReport is the latest run plus its derived progress percentage.
type StatusReport struct {
	*domain.SyncRun
	Progress int `json:"progress"`
}

// SyncDeps are the collaborators of a SyncService. Fallback, Avatars,
// Metrics and LockPath are optional.
type SyncDeps struct {
	Channels    repository.ChannelRepository
	Restaurants repository.RestaurantRepository
	Runs        repository.SyncRunRepository
	Primary     videosource.Source
	Fallback    videosource.Source
	Avatars     videosource.AvatarFetcher
	Extractor   LinkExtractor
	Metrics     *metrics.Metrics
	LockPath    string
}

// SyncService drives synchronization runs: it walks every configured
// channel, collects recent videos, extracts map links from their
// descriptions and upserts the restaurants it finds.
type SyncService struct {
	channels    repository.ChannelRepository
	restaurants repository.RestaurantRepository
	runs        repository.SyncRunRepository
	primary     videosource.Source
	fallback    videosource.Source
	avatars     videosource.AvatarFetcher
	extractor   LinkExtractor
	collector   *videosource.Collector
	metrics     *metrics.Metrics
	lock        *flock.Flock
	cfg         config.SyncConfig
	logger      *slog.Logger

	now     func() time.Time
	running atomic.Bool

	// baseCtx parents runs started with Start; Close cancels it.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSyncService creates a new sync service.
func NewSyncService(deps SyncDeps, cfg config.SyncConfig, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sync")

	ctx, cancel := context.WithCancel(context.Background())
	s := &SyncService{
		channels:    deps.Channels,
		restaurants: deps.Restaurants,
		runs:        deps.Runs,
		primary:     deps.Primary,
		fallback:    deps.Fallback,
		avatars:     deps.Avatars,
		extractor:   deps.Extractor,
		collector:   videosource.NewCollector(cfg.DetailInterval, logger),
		metrics:     deps.Metrics,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		baseCtx:     ctx,
		cancel:      cancel,
	}
	if deps.LockPath != "" {
		s.lock = flock.New(deps.LockPath)
	}
	return s
}

// SetClock overrides the time source used for the recency cutoff.
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

// Running reports whether a run is active in this process.
func (s *SyncService) Running() bool {
	return s.running.Load()
}

// Run performs a full sync synchronously and returns the finished run.
// It returns domain.ErrNoChannels without creating a run when nothing is
// configured and domain.ErrSyncInProgress when another run is active.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (*domain.SyncRun, error) {
	run, channels, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	runCtx, cancel := s.withRunTimeout(ctx)
	defer cancel()

	s.execute(runCtx, run, channels, opts)
	return run.Clone(), nil
}

// Start begins a sync in the background and returns the freshly created run.
// The run outlives ctx; Close cancels it.
func (s *SyncService) Start(ctx context.Context, opts SyncOptions) (*domain.SyncRun, error) {
	run, channels, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := run.Clone()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()

		runCtx, cancel := s.withRunTimeout(s.baseCtx)
		defer cancel()

		s.execute(runCtx, run, channels, opts)
	}()

	return snapshot, nil
}

// Close cancels any background run and waits for it to record its outcome.
func (s *SyncService) Close() {
	s.cancel()
	s.wg.Wait()
}

// Status returns the most recently started run with its progress.
func (s *SyncService) Status(ctx context.Context) (*StatusReport, error) {
	run, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return &StatusReport{SyncRun: run, Progress: run.Progress()}, nil
}

func (s *SyncService) withRunTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RunTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RunTimeout)
	}
	return context.WithCancel(ctx)
}

// begin takes the run guards, loads channels and creates the run record.
func (s *SyncService) begin(ctx context.Context) (*domain.SyncRun, []*domain.Channel, func(), error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, nil, nil, domain.ErrSyncInProgress
	}

	unlock, err := s.lockFile()
	if err != nil {
		s.running.Store(false)
		return nil, nil, nil, err
	}
	release := func() {
		unlock()
		s.running.Store(false)
	}

	channels, err := s.channels.List(ctx)
	if err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("load channels: %w", err)
	}
	if len(channels) == 0 {
		release()
		return nil, nil, nil, domain.ErrNoChannels
	}

	run := domain.NewSyncRun(newRunID(), len(channels))
	run.StartedAt = s.now().UTC()
	if err := s.runs.Create(ctx, run); err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("create sync run: %w", err)
	}

	s.metrics.RunStarted()
	s.logger.Info("sync run started", "run_id", run.ID, "channels", len(channels))
	return run, channels, release, nil
}

// lockFile takes the cross-process lock when one is configured.
func (s *SyncService) lockFile() (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	if dir := filepath.Dir(s.lock.Path()); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release sync lock", "path", s.lock.Path(), "error", err)
		}
	}, nil
}

// runStoreError marks failures to persist the run record itself. These end
// the run instead of being recorded against a channel.
type runStoreError struct {
	err error
}

func (e *runStoreError) Error() string { return "persist sync run: " + e.err.Error() }
func (e *runStoreError) Unwrap() error { return e.err }

func (s *SyncService) persist(ctx context.Context, run *domain.SyncRun) error {
	if err := s.runs.Update(ctx, run); err != nil {
		return &runStoreError{err: err}
	}
	return nil
}

func (s *SyncService) execute(ctx context.Context, run *domain.SyncRun, channels []*domain.Channel, opts SyncOptions) {
	started := s.now()
	logger := s.logger.With("run_id", run.ID)

	for i, ch := range channels {
		if ctx.Err() != nil {
			break
		}

		run.CurrentChannel = i + 1
		run.CurrentChannelName = ch.DisplayName()
		if err := s.persist(ctx, run); err != nil {
			s.finishFailed(ctx, run, err, started)
			return
		}

		err := s.syncChannel(ctx, run, ch, opts)
		var storeErr *runStoreError
		if errors.As(err, &storeErr) {
			s.finishFailed(ctx, run, err, started)
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			run.AddError(fmt.Sprintf("%s: %v", ch.DisplayName(), err))
			logger.Warn("channel sync failed",
				"channel", ch.DisplayName(),
				"channel_id", ch.ID,
				"error", err,
			)
		}

		if err := s.persist(ctx, run); err != nil {
			if ctx.Err() != nil {
				break
			}
			s.finishFailed(ctx, run, err, started)
			return
		}
	}

	if err := ctx.Err(); err != nil {
		s.finishFailed(ctx, run, fmt.Errorf("sync cancelled: %w", err), started)
		return
	}

	run.MarkCompleted()
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()
	if err := s.runs.Update(writeCtx, run); err != nil {
		logger.Error("failed to record completed sync run", "error", err)
	}

	s.metrics.RunFinished(string(run.Status), s.now().Sub(started))
	logger.Info("sync run completed",
		"processed", run.ProcessedVideos,
		"skipped", run.SkippedVideos,
		"added", run.Added,
		"updated", run.Updated,
		"errors", len(run.Errors),
	)
}

func (s *SyncService) finishFailed(ctx context.Context, run *domain.SyncRun, cause error, started time.Time) {
	run.MarkFailed(cause.Error())

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()
	if err := s.runs.Update(writeCtx, run); err != nil {
		s.logger.Error("failed to record failed sync run", "run_id", run.ID, "error", err)
	}

	s.metrics.RunFinished(string(run.Status), s.now().Sub(started))
	s.logger.Error("sync run failed", "run_id", run.ID, "error", cause)
}

// syncChannel collects and processes one channel. Errors returned here are
// channel-level failures, except *runStoreError.
func (s *SyncService) syncChannel(ctx context.Context, run *domain.SyncRun, ch *domain.Channel, opts SyncOptions) error {
	logger := s.logger.With("run_id", run.ID, "channel", ch.DisplayName())

	avatar := s.refreshAvatar(ctx, ch)

	result, method, err := s.collect(ctx, ch, opts)
	if err != nil {
		return err
	}

	run.Method = method
	run.TotalVideos += len(result.Videos)
	run.SkippedVideos += result.Skipped
	if err := s.persist(ctx, run); err != nil {
		return err
	}

	logger.Info("processing channel videos",
		"source", method,
		"videos", len(result.Videos),
		"skipped", result.Skipped,
		"failed", result.Failed,
		"hit_cutoff", result.HitCutoff,
	)

	every := s.cfg.ProgressEvery
	if every <= 0 {
		every = 1
	}
	for i, video := range result.Videos {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.processVideo(ctx, run, ch, avatar, video)
		run.ProcessedVideos++
		s.metrics.VideoProcessed(method)

		if (i+1)%every == 0 {
			if err := s.persist(ctx, run); err != nil {
				return err
			}
		}
	}
	return nil
}

// collect runs the primary source, falling back once on failure, or goes
// straight to the fallback when forced. Known ids only filter the primary;
// the fallback reprocesses them and relies on upsert idempotence.
func (s *SyncService) collect(ctx context.Context, ch *domain.Channel, opts SyncOptions) (*videosource.CollectResult, string, error) {
	collectOpts := videosource.CollectOptions{
		Limit:  s.videoLimit(opts.MaxVideos),
		Cutoff: s.cutoff(),
	}

	if !opts.UseAPI {
		known, err := s.restaurants.VideoIDsByChannel(ctx, ch.ID)
		if err != nil {
			return nil, "", fmt.Errorf("load synced videos: %w", err)
		}
		collectOpts.Known = known

		result, err := s.collector.Collect(ctx, s.primary, ch.ExternalID, collectOpts)
		if err == nil {
			return result, s.primary.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		primaryErr := &videosource.SourceError{Source: s.primary.Name(), Channel: ch.ExternalID, Err: err}
		if s.fallback == nil {
			return nil, "", primaryErr
		}
		s.logger.Warn("primary source failed, using fallback",
			"channel", ch.DisplayName(),
			"fallback", s.fallback.Name(),
			"error", err,
		)
		collectOpts.Known = nil
	}

	if s.fallback == nil {
		return nil, "", fmt.Errorf("fallback source: %w", domain.ErrSourceUnavailable)
	}

	s.metrics.FallbackInvoked()
	result, err := s.collector.Collect(ctx, s.fallback, ch.ExternalID, collectOpts)
	if err != nil {
		return nil, "", &videosource.SourceError{Source: s.fallback.Name(), Channel: ch.ExternalID, Err: err}
	}
	return result, s.fallback.Name(), nil
}

func (s *SyncService) videoLimit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = s.cfg.DefaultMaxVideos
	}
	if s.cfg.MaxVideosCap > 0 && limit > s.cfg.MaxVideosCap {
		limit = s.cfg.MaxVideosCap
	}
	return limit
}

func (s *SyncService) cutoff() time.Time {
	if s.cfg.Lookback <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.cfg.Lookback)
}

// refreshAvatar looks up the channel thumbnail. Failures keep the stored one.
func (s *SyncService) refreshAvatar(ctx context.Context, ch *domain.Channel) string {
	if s.avatars == nil {
		return ch.AvatarURL
	}

	avatar, err := s.avatars.ChannelAvatar(ctx, ch.ExternalID)
	if err != nil || avatar == "" {
		s.logger.Debug("channel avatar unavailable", "channel", ch.DisplayName(), "error", err)
		return ch.AvatarURL
	}

	if avatar != ch.AvatarURL {
		ch.AvatarURL = avatar
		if err := s.channels.Update(ctx, ch); err != nil {
			s.logger.Warn("failed to store channel avatar", "channel", ch.DisplayName(), "error", err)
		}
	}
	return avatar
}

// processVideo extracts and upserts every map link in a video description.
// Per-link failures are logged and skipped.
func (s *SyncService) processVideo(ctx context.Context, run *domain.SyncRun, ch *domain.Channel, avatar string, video *domain.Video) {
	for _, link := range maplink.FindLinks(video.Description) {
		loc, err := s.extractor.Extract(ctx, link)
		if err != nil {
			s.metrics.ExtractionFailed()
			s.logger.Debug("skipping map link", "video_id", video.ID, "url", link, "error", err)
			continue
		}

		name := loc.PlaceName
		if name == "" {
			name = video.Title
		}

		restaurant := &domain.Restaurant{
			ID:             newRestaurantID(),
			Name:           name,
			Latitude:       loc.Lat,
			Longitude:      loc.Lng,
			MapsURL:        link,
			VideoID:        video.ID,
			VideoTitle:     video.Title,
			VideoThumbnail: video.ThumbnailURL,
			ChannelID:      ch.ID,
			ChannelName:    ch.DisplayName(),
			ChannelAvatar:  avatar,
			ViewCount:      video.ViewCount,
			PublishedAt:    video.PublishedAt,
		}

		created, err := s.restaurants.Upsert(ctx, restaurant)
		if err != nil {
			s.logger.Warn("failed to save restaurant",
				"video_id", video.ID,
				"url", link,
				"error", err,
			)
			continue
		}
		if created {
			run.Added++
		} else {
			run.Updated++
		}
		s.metrics.RestaurantSaved(created)
	}
}

func newRunID() domain.SyncRunID {
	return domain.SyncRunID("run_" + uuid.New().String()[:8])
}

func newRestaurantID() domain.RestaurantID {
	return domain.RestaurantID("rst_" + uuid.New().String())
}
