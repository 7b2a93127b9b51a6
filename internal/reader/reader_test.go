package reader

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurchaser struct {
	mu    sync.Mutex
	reqs  []services.PurchaseRequest
	err   error
	block chan struct{}
	// seen runs while the request is in flight.
	seen func()
}

func (p *fakePurchaser) Purchase(ctx context.Context, req services.PurchaseRequest) error {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()
	if p.seen != nil {
		p.seen()
	}
	if p.block != nil {
		<-p.block
	}
	return p.err
}

func (p *fakePurchaser) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reqs)
}

type fakeFollower struct {
	calls int
	err   error
}

func (f *fakeFollower) Follow(ctx context.Context, req services.FollowRequest) error {
	f.calls++
	return f.err
}

func episode(id string, price int) models.Episode {
	return models.Episode{ID: models.ID(id), BookID: "7", Title: "Chapter " + id, Price: models.Coins(price)}
}

func TestIsLocked(t *testing.T) {
	assert.False(t, IsLocked(0, false, false), "free")
	assert.True(t, IsLocked(5, false, false))
	assert.False(t, IsLocked(5, true, false), "purchased")
	assert.False(t, IsLocked(5, false, true), "author")
}

func TestPurchasedSet(t *testing.T) {
	ledger := &models.CoinLedger{
		TotalCoins: 40,
		Transactions: []models.Transaction{
			{Type: models.TxPurchase, EpisodeID: "1"},
			{Type: models.TxSpend, EpisodeID: "2"},
			{Type: models.TxEarn, EpisodeID: "3"},
			{Type: models.TxDailyCheckin},
			{Type: models.TxPurchase},
		},
	}
	set := PurchasedSet(ledger)
	assert.Equal(t, map[models.ID]bool{"1": true, "2": true}, set)
	assert.Empty(t, PurchasedSet(nil))
}

func TestApplyLocks(t *testing.T) {
	eps := []models.Episode{episode("1", 0), episode("2", 5), episode("3", 5)}
	eps[0].Locked = true // backend hint is ignored
	eps[2].IsFree = true

	out := ApplyLocks(eps, map[models.ID]bool{}, false)
	assert.False(t, out[0].Locked)
	assert.True(t, out[1].Locked)
	assert.False(t, out[2].Locked, "free flag wins over price")
	assert.True(t, eps[0].Locked, "input untouched")
}

func TestFlowConfirm(t *testing.T) {
	t.Run("Success unlocks and debits", func(t *testing.T) {
		p := &fakePurchaser{}
		n := notify.NewDispatcher(4)
		var unlocked models.ID
		f := NewFlow(FlowConfig{
			Purchaser: p, Notifier: n, UserID: "42", Episode: episode("2", 5),
			Balance: 12, Locked: true,
			OnUnlocked: func(id models.ID) { unlocked = id },
		})

		prompt, err := f.RequestUnlock()
		require.NoError(t, err)
		assert.Equal(t, models.Coins(5), prompt.Price)
		assert.Equal(t, models.Coins(12), prompt.Balance)
		assert.True(t, prompt.CanConfirm())
		assert.Zero(t, p.count(), "opening the prompt never purchases")

		require.NoError(t, f.Confirm(context.Background()))

		state := f.State()
		assert.False(t, state.Locked)
		assert.Equal(t, models.Coins(7), state.Balance)
		assert.Nil(t, state.Prompt)
		assert.Equal(t, models.ID("2"), unlocked)
		assert.Equal(t, []services.PurchaseRequest{{UserID: "42", BookID: "7", EpisodeID: "2", Amount: 5}}, p.reqs)

		events := n.Drain()
		require.Len(t, events, 1)
		assert.Equal(t, notify.Success, events[0].Severity)
	})

	t.Run("Failure reverts the optimistic unlock", func(t *testing.T) {
		p := &fakePurchaser{err: &services.APIError{Kind: services.KindStatus, Status: http.StatusBadRequest, Message: "not enough coins"}}
		n := notify.NewDispatcher(4)
		var balances []models.Coins
		called := false
		f := NewFlow(FlowConfig{
			Purchaser: p, Notifier: n, UserID: "42", Episode: episode("2", 5),
			Balance: 12, Locked: true,
			OnUnlocked: func(models.ID) { called = true },
			OnBalance:  func(b models.Coins) { balances = append(balances, b) },
		})
		p.seen = func() {
			s := f.State()
			assert.False(t, s.Locked, "unlocked while the request is in flight")
			assert.Equal(t, models.Coins(7), s.Balance)
			assert.True(t, s.Prompt.Pending)
		}

		_, err := f.RequestUnlock()
		require.NoError(t, err)
		err = f.Confirm(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)

		state := f.State()
		assert.True(t, state.Locked)
		assert.Equal(t, models.Coins(12), state.Balance)
		require.NotNil(t, state.Prompt, "prompt stays open")
		assert.False(t, state.Prompt.Pending)
		assert.False(t, called)
		assert.Equal(t, []models.Coins{7, 12}, balances)

		events := n.Drain()
		require.Len(t, events, 1)
		assert.Equal(t, notify.Error, events[0].Severity)
		assert.Equal(t, "not enough coins", events[0].Message)

		f.Cancel()
		assert.Nil(t, f.State().Prompt)
	})

	t.Run("Confirm without a prompt", func(t *testing.T) {
		p := &fakePurchaser{}
		f := NewFlow(FlowConfig{Purchaser: p, Episode: episode("2", 5), Balance: 12, Locked: true})

		assert.ErrorIs(t, f.Confirm(context.Background()), shared.ErrNotConfirmed)
		_, _ = f.RequestUnlock()
		f.Cancel()
		assert.ErrorIs(t, f.Confirm(context.Background()), shared.ErrNotConfirmed)
		assert.Zero(t, p.count())
	})

	t.Run("Insufficient balance", func(t *testing.T) {
		p := &fakePurchaser{}
		f := NewFlow(FlowConfig{Purchaser: p, Episode: episode("2", 5), Balance: 3, Locked: true})

		prompt, err := f.RequestUnlock()
		require.NoError(t, err)
		assert.True(t, prompt.Insufficient)
		assert.False(t, prompt.CanConfirm())
		assert.ErrorIs(t, f.Confirm(context.Background()), shared.ErrInsufficientCoins)
		assert.Zero(t, p.count())

		f.SetBalance(10)
		prompt, _ = f.RequestUnlock()
		assert.False(t, prompt.Insufficient)
	})

	t.Run("Free episode is never locked", func(t *testing.T) {
		f := NewFlow(FlowConfig{Purchaser: &fakePurchaser{}, Episode: episode("1", 0), Locked: true})
		assert.False(t, f.State().Locked)
		_, err := f.RequestUnlock()
		assert.ErrorIs(t, err, shared.ErrAlreadyUnlocked)
	})

	t.Run("Second confirm while pending", func(t *testing.T) {
		p := &fakePurchaser{block: make(chan struct{})}
		f := NewFlow(FlowConfig{Purchaser: p, Episode: episode("2", 5), Balance: 12, Locked: true})
		_, _ = f.RequestUnlock()

		done := make(chan error)
		go func() { done <- f.Confirm(context.Background()) }()
		require.Eventually(t, func() bool { return p.count() == 1 }, time.Second, time.Millisecond)

		assert.ErrorIs(t, f.Confirm(context.Background()), shared.ErrNotConfirmed)
		f.Cancel()
		assert.NotNil(t, f.State().Prompt, "cannot dismiss while pending")

		close(p.block)
		require.NoError(t, <-done)
		assert.Equal(t, 1, p.count())
	})
}

func TestShelf(t *testing.T) {
	detail := &models.BookDetail{
		Book:     models.Book{ID: "7", Title: "Harbor Lights", AuthorID: "9"},
		Episodes: []models.Episode{episode("1", 0), episode("2", 5), episode("3", 5)},
	}
	ledger := &models.CoinLedger{
		TotalCoins:   20,
		Transactions: []models.Transaction{{Type: models.TxPurchase, EpisodeID: "3"}},
	}

	t.Run("Reader", func(t *testing.T) {
		s := NewShelf(detail, ledger, "42", nil)
		eps := s.Episodes()
		assert.False(t, eps[0].Locked)
		assert.True(t, eps[1].Locked)
		assert.False(t, eps[2].Locked, "purchased")
		assert.False(t, s.IsAuthor())
		assert.ErrorIs(t, s.UnlockAll(), shared.ErrInvalidArgument)

		f, err := s.Flow("2", &fakePurchaser{}, FlowConfig{})
		require.NoError(t, err)
		_, err = f.RequestUnlock()
		require.NoError(t, err)
		require.NoError(t, f.Confirm(context.Background()))

		ep, ok := s.Episode("2")
		require.True(t, ok)
		assert.False(t, ep.Locked)
		assert.Equal(t, models.Coins(15), s.Balance())

		_, err = s.Flow("99", &fakePurchaser{}, FlowConfig{})
		assert.ErrorIs(t, err, shared.ErrEpisodeNotFound)
	})

	t.Run("Author", func(t *testing.T) {
		s := NewShelf(detail, nil, "9", nil)
		assert.True(t, s.IsAuthor())
		for _, ep := range s.Episodes() {
			assert.False(t, ep.Locked)
		}
		assert.NoError(t, s.UnlockAll())
	})
}

func TestFollowToggle(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := &fakeFollower{}
		tg := NewFollowToggle(f, nil, "42", "7", false)
		require.NoError(t, tg.Toggle(context.Background()))
		assert.True(t, tg.Following())
		assert.Equal(t, 1, f.calls)
	})

	t.Run("Failure reverts", func(t *testing.T) {
		f := &fakeFollower{err: errors.New("offline")}
		n := notify.NewDispatcher(2)
		tg := NewFollowToggle(f, n, "42", "7", true)
		assert.Error(t, tg.Toggle(context.Background()))
		assert.True(t, tg.Following())
		assert.Len(t, n.Drain(), 1)
	})
}
