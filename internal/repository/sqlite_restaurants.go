package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/geo"
)

// SQLiteRestaurantRepository implements RestaurantRepository on SQLite.
type SQLiteRestaurantRepository struct {
	db *sql.DB
}

const restaurantColumns = `id, name, latitude, longitude, maps_url, video_id, video_title,
    video_thumbnail, channel_id, channel_name, channel_avatar, view_count,
    published_at, created_at, updated_at`

func scanRestaurant(scanner interface{ Scan(dest ...any) error }) (*domain.Restaurant, error) {
	var (
		r                                         domain.Restaurant
		videoTitle, thumb, channelID, channelName sql.NullString
		channelAvatar, publishedAt                sql.NullString
		createdAt, updatedAt                      string
	)
	err := scanner.Scan(
		&r.ID, &r.Name, &r.Latitude, &r.Longitude, &r.MapsURL, &r.VideoID, &videoTitle,
		&thumb, &channelID, &channelName, &channelAvatar, &r.ViewCount,
		&publishedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.VideoTitle = videoTitle.String
	r.VideoThumbnail = thumb.String
	r.ChannelID = domain.ChannelID(channelID.String)
	r.ChannelName = channelName.String
	r.ChannelAvatar = channelAvatar.String
	if t := parseNullTime(publishedAt); t != nil {
		r.PublishedAt = *t
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// Upsert creates or merges a restaurant by natural key inside one transaction.
func (s *SQLiteRestaurantRepository) Upsert(ctx context.Context, rest *domain.Restaurant) (bool, error) {
	if err := rest.Validate(); err != nil {
		return false, err
	}

	var created bool
	err := retryOnBusy(ctx, func() error {
		var err error
		created, err = s.upsertTx(ctx, rest)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("upsert restaurant: %w", err)
	}
	return created, nil
}

func (s *SQLiteRestaurantRepository) upsertTx(ctx context.Context, rest *domain.Restaurant) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE video_id = ? AND maps_url = ?`,
		rest.VideoID, rest.MapsURL,
	)
	existing, err := scanRestaurant(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().UTC()
		if rest.CreatedAt.IsZero() {
			rest.CreatedAt = now
		}
		rest.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO restaurants (`+restaurantColumns+`)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rest.ID, rest.Name, rest.Latitude, rest.Longitude, rest.MapsURL, rest.VideoID,
			nullableString(rest.VideoTitle), nullableString(rest.VideoThumbnail),
			nullableString(string(rest.ChannelID)), nullableString(rest.ChannelName),
			nullableString(rest.ChannelAvatar), rest.ViewCount,
			nullableTime(&rest.PublishedAt), formatTime(rest.CreatedAt), formatTime(rest.UpdatedAt),
		)
		if err != nil {
			return false, err
		}
		return true, tx.Commit()

	case err != nil:
		return false, err
	}

	existing.MergeFrom(rest)
	_, err = tx.ExecContext(ctx,
		`UPDATE restaurants
         SET name = ?, latitude = ?, longitude = ?, video_title = ?, video_thumbnail = ?,
             channel_id = ?, channel_name = ?, channel_avatar = ?, view_count = ?,
             published_at = ?, updated_at = ?
         WHERE id = ?`,
		existing.Name, existing.Latitude, existing.Longitude,
		nullableString(existing.VideoTitle), nullableString(existing.VideoThumbnail),
		nullableString(string(existing.ChannelID)), nullableString(existing.ChannelName),
		nullableString(existing.ChannelAvatar), existing.ViewCount,
		nullableTime(&existing.PublishedAt), formatTime(existing.UpdatedAt),
		existing.ID,
	)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	*rest = *existing
	return false, nil
}

// GetByKey retrieves a restaurant by its natural key.
func (s *SQLiteRestaurantRepository) GetByKey(ctx context.Context, key domain.RestaurantKey) (*domain.Restaurant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE video_id = ? AND maps_url = ?`,
		key.VideoID, key.MapsURL,
	)
	r, err := scanRestaurant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRestaurantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	return r, nil
}

// VideoIDsByChannel returns video ids that already produced restaurants.
func (s *SQLiteRestaurantRepository) VideoIDsByChannel(ctx context.Context, channelID domain.ChannelID) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT video_id FROM restaurants WHERE channel_id = ?`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list video ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan video id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// InBounds returns restaurants inside the box.
func (s *SQLiteRestaurantRepository) InBounds(ctx context.Context, box geo.BoundingBox) ([]*domain.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants
         WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
	)
	if err != nil {
		return nil, fmt.Errorf("query restaurants in bounds: %w", err)
	}
	defer rows.Close()

	var result []*domain.Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the number of restaurants.
func (s *SQLiteRestaurantRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM restaurants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count restaurants: %w", err)
	}
	return n, nil
}
