package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/folio/internal/models"
)

// Preference keys.
const (
	PrefGenreSelection = "browse.genres"
	PrefLastSearch     = "browse.search"
)

// PreferenceRepository stores small per-user key/value settings.
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new [PreferenceRepository] with the given database connection
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the stored value and whether it exists.
func (r *PreferenceRepository) Get(ctx context.Context, userID models.ID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE user_id = ? AND key = ?`, userID.String(), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query preference: %w", err)
	}
	return value, true, nil
}

// Set upserts a value.
func (r *PreferenceRepository) Set(ctx context.Context, userID models.ID, key, value string) error {
	query := `
		INSERT INTO preferences (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, userID.String(), key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}

// Delete removes a value. Deleting a missing key is not an error.
func (r *PreferenceRepository) Delete(ctx context.Context, userID models.ID, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM preferences WHERE user_id = ? AND key = ?`, userID.String(), key); err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	return nil
}

// GenreSelection returns the saved genre selection, nil meaning all genres.
func (r *PreferenceRepository) GenreSelection(ctx context.Context, userID models.ID) ([]string, error) {
	value, ok, err := r.Get(ctx, userID, PrefGenreSelection)
	if err != nil || !ok || value == "" {
		return nil, err
	}
	return strings.Split(value, ","), nil
}

// SaveGenreSelection stores the selection; an empty selection clears it.
func (r *PreferenceRepository) SaveGenreSelection(ctx context.Context, userID models.ID, genres []string) error {
	if len(genres) == 0 {
		return r.Delete(ctx, userID, PrefGenreSelection)
	}
	return r.Set(ctx, userID, PrefGenreSelection, strings.Join(genres, ","))
}
