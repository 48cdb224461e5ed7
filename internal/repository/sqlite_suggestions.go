package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iconidentify/makanmap/internal/domain"
)

// SQLiteSuggestionRepository implements SuggestionRepository on SQLite.
type SQLiteSuggestionRepository struct {
	db *sql.DB
}

const suggestionColumns = `id, external_id, name, note, status, created_at, reviewed_at`

func scanSuggestion(scanner interface{ Scan(dest ...any) error }) (*domain.ChannelSuggestion, error) {
	var (
		s                    domain.ChannelSuggestion
		name, note, reviewed sql.NullString
		createdAt            string
	)
	if err := scanner.Scan(&s.ID, &s.ExternalID, &name, &note, &s.Status, &createdAt, &reviewed); err != nil {
		return nil, err
	}
	s.Name = name.String
	s.Note = note.String
	s.CreatedAt = parseTime(createdAt)
	s.ReviewedAt = parseNullTime(reviewed)
	return &s, nil
}

// Create stores a suggestion.
func (r *SQLiteSuggestionRepository) Create(ctx context.Context, s *domain.ChannelSuggestion) error {
	err := retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO channel_suggestions (`+suggestionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.ExternalID, nullableString(s.Name), nullableString(s.Note), s.Status,
			formatTime(s.CreatedAt), nullableTime(s.ReviewedAt),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

// Get retrieves a suggestion by ID.
func (r *SQLiteSuggestionRepository) Get(ctx context.Context, id domain.SuggestionID) (*domain.ChannelSuggestion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM channel_suggestions WHERE id = ?`, id)
	s, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSuggestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return s, nil
}

// List returns suggestions newest first, optionally filtered by status.
func (r *SQLiteSuggestionRepository) List(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.ChannelSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM channel_suggestions`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var result []*domain.ChannelSuggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Update overwrites a suggestion's moderation state.
func (r *SQLiteSuggestionRepository) Update(ctx context.Context, s *domain.ChannelSuggestion) error {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE channel_suggestions SET name = ?, note = ?, status = ?, reviewed_at = ? WHERE id = ?`,
			nullableString(s.Name), nullableString(s.Note), s.Status, nullableTime(s.ReviewedAt), s.ID,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update suggestion: %w", err)
	}
	if affected == 0 {
		return domain.ErrSuggestionNotFound
	}
	return nil
}
