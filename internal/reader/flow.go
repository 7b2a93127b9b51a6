package reader

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
)

// Purchaser spends coins on an episode. [services.Client] satisfies it.
type Purchaser interface {
	Purchase(ctx context.Context, req services.PurchaseRequest) error
}

// Prompt is the open purchase confirmation.
type Prompt struct {
	EpisodeID    models.ID
	Title        string
	Price        models.Coins
	Balance      models.Coins
	Insufficient bool
	Pending      bool
}

// CanConfirm is false when the balance is short or a purchase is already in flight.
func (p Prompt) CanConfirm() bool {
	return !p.Insufficient && !p.Pending
}

// State is a snapshot of a [Flow].
type State struct {
	Locked  bool
	Balance models.Coins
	Prompt  *Prompt
}

// FlowConfig wires a [Flow] to one episode.
type FlowConfig struct {
	Purchaser  Purchaser
	Notifier   *notify.Dispatcher
	Logger     *log.Logger
	UserID     models.ID
	Episode    models.Episode
	Balance    models.Coins
	Locked     bool
	OnUnlocked func(episodeID models.ID)
	OnBalance  func(balance models.Coins)
}

// Flow gates reading a single episode behind an explicit purchase confirmation.
//
// Confirm applies the unlock and the debit before the request completes and reverts both
// if the purchase fails.
type Flow struct {
	purchaser  Purchaser
	notifier   *notify.Dispatcher
	logger     *log.Logger
	userID     models.ID
	episode    models.Episode
	onUnlocked func(models.ID)
	onBalance  func(models.Coins)

	mu      sync.Mutex
	locked  bool
	balance models.Coins
	prompt  *Prompt
}

// NewFlow creates an unlock flow. Free episodes start unlocked regardless of cfg.Locked.
func NewFlow(cfg FlowConfig) *Flow {
	logger := cfg.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Flow{
		purchaser:  cfg.Purchaser,
		notifier:   cfg.Notifier,
		logger:     shared.WithLogger(logger, "component", "unlock"),
		userID:     cfg.UserID,
		episode:    cfg.Episode,
		onUnlocked: cfg.OnUnlocked,
		onBalance:  cfg.OnBalance,
		locked:     cfg.Locked && cfg.Episode.EffectivePrice() > 0,
		balance:    cfg.Balance,
	}
}

// State returns a copy of the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := State{Locked: f.locked, Balance: f.balance}
	if f.prompt != nil {
		p := *f.prompt
		s.Prompt = &p
	}
	return s
}

// Episode returns the episode this flow gates.
func (f *Flow) Episode() models.Episode {
	return f.episode
}

// SetBalance refreshes the known balance, e.g. after a coin top-up.
func (f *Flow) SetBalance(b models.Coins) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = b
	if f.prompt != nil {
		f.prompt.Balance = b
		f.prompt.Insufficient = b < f.prompt.Price
	}
}

// RequestUnlock opens the confirmation prompt. It never purchases anything.
func (f *Flow) RequestUnlock() (Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.locked {
		return Prompt{}, fmt.Errorf("%w: %s", shared.ErrAlreadyUnlocked, f.episode.Title)
	}
	if f.prompt == nil {
		price := f.episode.EffectivePrice()
		f.prompt = &Prompt{
			EpisodeID:    f.episode.ID,
			Title:        f.episode.Title,
			Price:        price,
			Balance:      f.balance,
			Insufficient: f.balance < price,
		}
	}
	return *f.prompt, nil
}

// Cancel dismisses the prompt. It is a no-op while a purchase is in flight.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prompt != nil && !f.prompt.Pending {
		f.prompt = nil
	}
}

// Confirm purchases the episode shown in the open prompt.
//
// On failure the unlock and the debit are reverted, the prompt stays open and an error
// notification is dispatched. On success the prompt closes and OnUnlocked is called.
func (f *Flow) Confirm(ctx context.Context) error {
	f.mu.Lock()
	p := f.prompt
	switch {
	case p == nil || p.Pending:
		f.mu.Unlock()
		return shared.ErrNotConfirmed
	case p.Insufficient:
		f.mu.Unlock()
		return fmt.Errorf("%w: need %d, have %d", shared.ErrInsufficientCoins, p.Price, p.Balance)
	}
	price := p.Price
	prevBalance := f.balance
	p.Pending = true
	f.locked = false
	f.balance -= price
	f.mu.Unlock()
	f.balanceChanged(prevBalance - price)

	err := f.purchaser.Purchase(ctx, services.PurchaseRequest{
		UserID:    f.userID,
		BookID:    f.episode.BookID,
		EpisodeID: f.episode.ID,
		Amount:    int(price),
	})

	f.mu.Lock()
	if err != nil {
		f.locked = true
		f.balance = prevBalance
		p.Pending = false
		p.Balance = prevBalance
		f.mu.Unlock()
		f.balanceChanged(prevBalance)

		f.logger.Warn("purchase failed", "episode", f.episode.ID, "error", err)
		if f.notifier != nil {
			f.notifier.Error("Unlock failed", services.ErrorMessage(err))
		}
		return err
	}
	f.prompt = nil
	f.mu.Unlock()

	f.logger.Info("episode unlocked", "episode", f.episode.ID, "price", price)
	if f.notifier != nil {
		f.notifier.Success("Unlocked", f.episode.Title)
	}
	if f.onUnlocked != nil {
		f.onUnlocked(f.episode.ID)
	}
	return nil
}

func (f *Flow) balanceChanged(b models.Coins) {
	if f.onBalance != nil {
		f.onBalance(b)
	}
}
