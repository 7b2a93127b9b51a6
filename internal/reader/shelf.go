package reader

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
)

// Shelf is the reader's view of one book: its episodes with lock state and the coin balance.
type Shelf struct {
	book     models.Book
	userID   models.ID
	isAuthor bool
	notifier *notify.Dispatcher

	mu       sync.Mutex
	episodes []models.Episode
	balance  models.Coins
}

// NewShelf derives lock state for every episode of detail from the user's ledger.
func NewShelf(detail *models.BookDetail, ledger *models.CoinLedger, userID models.ID, n *notify.Dispatcher) *Shelf {
	isAuthor := detail.IsAuthoredBy(userID)
	var balance models.Coins
	if ledger != nil {
		balance = ledger.TotalCoins
	}
	return &Shelf{
		book:     detail.Book,
		userID:   userID,
		isAuthor: isAuthor,
		notifier: n,
		episodes: ApplyLocks(detail.Episodes, PurchasedSet(ledger), isAuthor),
		balance:  balance,
	}
}

func (s *Shelf) Book() models.Book { return s.book }
func (s *Shelf) IsAuthor() bool    { return s.isAuthor }

// Episodes returns a copy of the episode list.
func (s *Shelf) Episodes() []models.Episode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Episode(nil), s.episodes...)
}

// Episode looks up one episode by id.
func (s *Shelf) Episode(id models.ID) (models.Episode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ep := range s.episodes {
		if ep.ID == id {
			return ep, true
		}
	}
	return models.Episode{}, false
}

// Balance is the last known coin balance.
func (s *Shelf) Balance() models.Coins {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// SetBalance is called by flows as purchases debit or revert.
func (s *Shelf) SetBalance(b models.Coins) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = b
}

// MarkUnlocked clears the lock on one episode.
func (s *Shelf) MarkUnlocked(id models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.episodes {
		if s.episodes[i].ID == id {
			s.episodes[i].Locked = false
		}
	}
}

// UnlockAll clears every lock locally. Only the book's author may do this.
func (s *Shelf) UnlockAll() error {
	if !s.isAuthor {
		return fmt.Errorf("%w: only the author can unlock every episode", shared.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.episodes {
		s.episodes[i].Locked = false
	}
	return nil
}

// Flow builds an unlock flow for one episode that reports back to the shelf.
func (s *Shelf) Flow(id models.ID, p Purchaser, cfg FlowConfig) (*Flow, error) {
	ep, ok := s.Episode(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrEpisodeNotFound, id)
	}
	cfg.Purchaser = p
	cfg.UserID = s.userID
	cfg.Episode = ep
	cfg.Balance = s.Balance()
	cfg.Locked = ep.Locked
	if cfg.Notifier == nil {
		cfg.Notifier = s.notifier
	}
	onUnlocked := cfg.OnUnlocked
	cfg.OnUnlocked = func(id models.ID) {
		s.MarkUnlocked(id)
		if onUnlocked != nil {
			onUnlocked(id)
		}
	}
	onBalance := cfg.OnBalance
	cfg.OnBalance = func(b models.Coins) {
		s.SetBalance(b)
		if onBalance != nil {
			onBalance(b)
		}
	}
	return NewFlow(cfg), nil
}

// Follower toggles a follow. [services.Client] satisfies it.
type Follower interface {
	Follow(ctx context.Context, req services.FollowRequest) error
}

// FollowToggle tracks whether the user follows a book.
type FollowToggle struct {
	follower Follower
	notifier *notify.Dispatcher
	req      services.FollowRequest

	mu        sync.Mutex
	following bool
	inflight  bool
}

// NewFollowToggle starts from the known follow state.
func NewFollowToggle(f Follower, n *notify.Dispatcher, userID, bookID models.ID, following bool) *FollowToggle {
	return &FollowToggle{
		follower:  f,
		notifier:  n,
		req:       services.FollowRequest{UserID: userID, BookID: bookID},
		following: following,
	}
}

func (t *FollowToggle) Following() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.following
}

// Toggle flips the follow state immediately and reverts it if the request fails.
func (t *FollowToggle) Toggle(ctx context.Context) error {
	t.mu.Lock()
	if t.inflight {
		t.mu.Unlock()
		return nil
	}
	t.inflight = true
	prev := t.following
	t.following = !prev
	t.mu.Unlock()

	err := t.follower.Follow(ctx, t.req)

	t.mu.Lock()
	t.inflight = false
	if err != nil {
		t.following = prev
	}
	t.mu.Unlock()

	if err != nil && t.notifier != nil {
		t.notifier.Error("Follow failed", services.ErrorMessage(err))
	}
	return err
}
