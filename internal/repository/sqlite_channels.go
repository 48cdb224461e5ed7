package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iconidentify/makanmap/internal/domain"
)

// SQLiteChannelRepository implements ChannelRepository on SQLite.
type SQLiteChannelRepository struct {
	db *sql.DB
}

const channelColumns = `id, external_id, name, avatar_url, created_at, updated_at`

func scanChannel(scanner interface{ Scan(dest ...any) error }) (*domain.Channel, error) {
	var (
		ch                   domain.Channel
		avatar               sql.NullString
		createdAt, updatedAt string
	)
	if err := scanner.Scan(&ch.ID, &ch.ExternalID, &ch.Name, &avatar, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	ch.AvatarURL = avatar.String
	ch.CreatedAt = parseTime(createdAt)
	ch.UpdatedAt = parseTime(updatedAt)
	return &ch, nil
}

// Create adds a channel.
func (r *SQLiteChannelRepository) Create(ctx context.Context, ch *domain.Channel) error {
	err := retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO channels (`+channelColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			ch.ID, ch.ExternalID, ch.Name, nullableString(ch.AvatarURL),
			formatTime(ch.CreatedAt), formatTime(ch.UpdatedAt),
		)
		return err
	})
	if isUniqueViolation(err) {
		return domain.ErrDuplicateChannel
	}
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

// Get retrieves a channel by ID.
func (r *SQLiteChannelRepository) Get(ctx context.Context, id domain.ChannelID) (*domain.Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}

// GetByExternalID retrieves a channel by its platform id.
func (r *SQLiteChannelRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE external_id = ?`, externalID)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel by external id: %w", err)
	}
	return ch, nil
}

// List returns all channels in creation order.
func (r *SQLiteChannelRepository) List(ctx context.Context) ([]*domain.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []*domain.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// Update refreshes the name and avatar of a channel.
func (r *SQLiteChannelRepository) Update(ctx context.Context, ch *domain.Channel) error {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE channels SET name = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
			ch.Name, nullableString(ch.AvatarURL), formatTime(time.Now()), ch.ID,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	if affected == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

// Delete removes a channel.
func (r *SQLiteChannelRepository) Delete(ctx context.Context, id domain.ChannelID) error {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if affected == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}
