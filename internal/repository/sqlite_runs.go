package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iconidentify/makanmap/internal/domain"
)

// SQLiteSyncRunRepository implements SyncRunRepository on SQLite.
type SQLiteSyncRunRepository struct {
	db *sql.DB
}

const runColumns = `id, status, total_channels, current_channel, current_channel_name,
    total_videos, processed_videos, skipped_videos, added, updated, errors_json,
    method, started_at, completed_at`

func scanRun(scanner interface{ Scan(dest ...any) error }) (*domain.SyncRun, error) {
	var (
		run                 domain.SyncRun
		channelName, method sql.NullString
		errorsJSON, started string
		completed           sql.NullString
	)
	err := scanner.Scan(
		&run.ID, &run.Status, &run.TotalChannels, &run.CurrentChannel, &channelName,
		&run.TotalVideos, &run.ProcessedVideos, &run.SkippedVideos, &run.Added, &run.Updated,
		&errorsJSON, &method, &started, &completed,
	)
	if err != nil {
		return nil, err
	}
	run.CurrentChannelName = channelName.String
	run.Method = method.String
	run.StartedAt = parseTime(started)
	run.CompletedAt = parseNullTime(completed)
	if err := json.Unmarshal([]byte(errorsJSON), &run.Errors); err != nil {
		return nil, fmt.Errorf("decode run errors: %w", err)
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	return &run, nil
}

func encodeErrors(errs []string) (string, error) {
	if errs == nil {
		errs = []string{}
	}
	data, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("encode run errors: %w", err)
	}
	return string(data), nil
}

// Create stores a new run.
func (r *SQLiteSyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	errorsJSON, err := encodeErrors(run.Errors)
	if err != nil {
		return err
	}

	err = retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO sync_runs (`+runColumns+`)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Status, run.TotalChannels, run.CurrentChannel,
			nullableString(run.CurrentChannelName), run.TotalVideos, run.ProcessedVideos,
			run.SkippedVideos, run.Added, run.Updated, errorsJSON,
			nullableString(run.Method), formatTime(run.StartedAt), nullableTime(run.CompletedAt),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// Update overwrites a running run. Finished runs are never rewritten.
func (r *SQLiteSyncRunRepository) Update(ctx context.Context, run *domain.SyncRun) error {
	errorsJSON, err := encodeErrors(run.Errors)
	if err != nil {
		return err
	}

	var affected int64
	err = retryOnBusy(ctx, func() error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE sync_runs
             SET status = ?, total_channels = ?, current_channel = ?, current_channel_name = ?,
                 total_videos = ?, processed_videos = ?, skipped_videos = ?, added = ?,
                 updated = ?, errors_json = ?, method = ?, completed_at = ?
             WHERE id = ? AND status = ?`,
			run.Status, run.TotalChannels, run.CurrentChannel, nullableString(run.CurrentChannelName),
			run.TotalVideos, run.ProcessedVideos, run.SkippedVideos, run.Added,
			run.Updated, errorsJSON, nullableString(run.Method), nullableTime(run.CompletedAt),
			run.ID, domain.SyncStatusRunning,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update sync run: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing matched: either the run is unknown or it has already finished.
	if _, err := r.Get(ctx, run.ID); err != nil {
		return err
	}
	return domain.ErrRunFinalized
}

// Get retrieves a run by ID.
func (r *SQLiteSyncRunRepository) Get(ctx context.Context, id domain.SyncRunID) (*domain.SyncRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync run: %w", err)
	}
	return run, nil
}

// Latest returns the most recently started run.
func (r *SQLiteSyncRunRepository) Latest(ctx context.Context) (*domain.SyncRun, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest sync run: %w", err)
	}
	return run, nil
}
