package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
)

// Persister is the durable side of the store. [repositories.SessionRepository] implements it.
type Persister interface {
	Save(ctx context.Context, s *models.Session) error
	Current(ctx context.Context) (*models.Session, error)
	Clear(ctx context.Context) error
}

// Store holds the process-wide login session. It is created once and injected where needed.
type Store struct {
	mu       sync.RWMutex
	current  *models.Session
	resolved bool

	persist Persister
	now     func() time.Time
	logger  *log.Logger
}

// Option configures a [Store].
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = shared.WithLogger(l, "component", "session") }
}

// NewStore creates a store backed by persist. A nil persister keeps the session in memory only.
func NewStore(persist Persister, opts ...Option) *Store {
	s := &Store{
		persist: persist,
		now:     time.Now,
		logger:  shared.NewLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the live session, or nil when logged out or expired.
func (s *Store) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.Expired(s.now()) {
		return nil
	}
	return s.current
}

// UserID returns the logged-in user's id, empty when logged out.
func (s *Store) UserID() models.ID {
	if cur := s.Current(); cur != nil {
		return cur.User.ID
	}
	return ""
}

// Login stores sess in memory and persists it.
func (s *Store) Login(ctx context.Context, sess *models.Session) error {
	if sess == nil || sess.User.ID.IsZero() {
		return fmt.Errorf("%w: session has no user", shared.ErrInvalidInput)
	}
	if sess.Expired(s.now()) {
		return shared.ErrTokenExpired
	}

	if s.persist != nil {
		if err := s.persist.Save(ctx, sess); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}

	s.mu.Lock()
	s.current = sess
	s.resolved = true
	s.mu.Unlock()

	s.logger.Info("logged in", "user", sess.User.ID, "username", sess.User.Username)
	return nil
}

// Logout clears the session from memory and persistence.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.resolved = true
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	s.logger.Info("logged out")
	return nil
}

// Update replaces the user profile on the live session in memory, e.g. after a pen name change.
func (s *Store) Update(fn func(u *models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		fn(&s.current.User)
	}
}

// Resolve loads the persisted session on first call. Later calls return the in-memory state.
//
// An expired token purges the stored row and resolves to no session. A missing session is
// reported as (nil, nil); only storage failures are errors.
func (s *Store) Resolve(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return s.Current(), nil
	}
	s.mu.Unlock()

	var loaded *models.Session
	if s.persist != nil {
		sess, err := s.persist.Current(ctx)
		switch {
		case errors.Is(err, shared.ErrNoSession):
		case err != nil:
			return nil, fmt.Errorf("failed to load session: %w", err)
		default:
			loaded = sess
		}
	}

	if loaded != nil && loaded.Token != nil && loaded.Token.Expiry.IsZero() {
		if exp, ok := TokenExpiry(loaded.Token.AccessToken); ok {
			loaded.Token.Expiry = exp
		}
	}

	if loaded != nil && loaded.Expired(s.now()) {
		s.logger.Info("stored session expired", "user", loaded.User.ID, "expiry", loaded.Token.Expiry)
		loaded = nil
		if err := s.persist.Clear(ctx); err != nil {
			s.logger.Warn("failed to purge expired session", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resolved {
		s.current = loaded
		s.resolved = true
	}
	if s.current == nil || s.current.Expired(s.now()) {
		return nil, nil
	}
	return s.current, nil
}
