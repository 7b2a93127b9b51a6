package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
	"golang.org/x/oauth2"
)

// SessionRepository persists the single live login session.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save replaces the live session with s. Earlier sessions are soft-deleted in the same transaction.
func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	if s == nil || s.User.ID.IsZero() {
		return fmt.Errorf("%w: session has no user", shared.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET deleted_at = ? WHERE deleted_at IS NULL`, now); err != nil {
		return fmt.Errorf("failed to retire previous session: %w", err)
	}

	var (
		token  string
		expiry sql.NullTime
	)
	if s.Token != nil {
		token = s.Token.AccessToken
		if !s.Token.Expiry.IsZero() {
			expiry = sql.NullTime{Time: s.Token.Expiry.UTC(), Valid: true}
		}
	}

	query := `
		INSERT INTO sessions (id, user_id, email, username, role, pen_name, avatar_url, token, token_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	u := s.User
	if _, err := tx.ExecContext(ctx, query, shared.GenerateID(), u.ID.String(), u.Email, u.Username, u.Role, u.PenName, u.AvatarURL, token, expiry, now, now); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Current loads the live session, returning [shared.ErrNoSession] when there is none.
func (r *SessionRepository) Current(ctx context.Context) (*models.Session, error) {
	query := `
		SELECT user_id, email, username, role, pen_name, avatar_url, token, token_expiry
		FROM sessions
		WHERE deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var (
		s      models.Session
		userID string
		token  string
		expiry sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query).Scan(&userID, &s.User.Email, &s.User.Username, &s.User.Role, &s.User.PenName, &s.User.AvatarURL, &token, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	s.User.ID = models.ID(userID)
	if token != "" {
		s.Token = &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
		if expiry.Valid {
			s.Token.Expiry = expiry.Time
		}
	}
	return &s, nil
}

// UpdateAuthor rewrites the pen name and role on the live session.
func (r *SessionRepository) UpdateAuthor(ctx context.Context, penName, role string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE sessions SET pen_name = ?, role = ?, updated_at = ? WHERE deleted_at IS NULL`, penName, role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return shared.ErrNoSession
	}
	return nil
}

// Clear soft-deletes the live session. Clearing when logged out is not an error.
func (r *SessionRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE sessions SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Prune hard-deletes retired sessions older than cutoff and returns how many were removed.
func (r *SessionRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return result.RowsAffected()
}
