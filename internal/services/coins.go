package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/desertthunder/folio/internal/models"
)

// DailyCheckinReward is the amount credited by a daily check-in.
const DailyCheckinReward = 10

// GetCoins fetches the user's coin balance and transaction history.
func (c *Client) GetCoins(ctx context.Context, userID models.ID) (*models.CoinLedger, error) {
	const op = "get coins"
	if userID.IsZero() {
		return nil, validationError(op, "user id is required", map[string]string{"userId": "is required"})
	}

	var env ledgerEnvelope
	if err := c.getJSON(ctx, op, "/api/coins/"+url.PathEscape(userID.String()), nil, &env); err != nil {
		return nil, err
	}
	if env.Detail == nil {
		return nil, missingDetail(op)
	}
	if env.Detail.Transactions == nil {
		env.Detail.Transactions = []models.Transaction{}
	}
	return env.Detail, nil
}

// CoinUpdate credits coins to a user: a reward (earn) or a daily check-in.
type CoinUpdate struct {
	UserID models.ID              `json:"userId" validate:"required"`
	Amount int                    `json:"amount" validate:"gt=0"`
	Type   models.TransactionType `json:"type" validate:"oneof=earn daily_checkin"`
}

// UpdateCoins posts a credit to the user's ledger.
func (c *Client) UpdateCoins(ctx context.Context, req CoinUpdate) error {
	const op = "update coins"
	if err := c.validator.Validate(op, req); err != nil {
		return err
	}
	return c.sendJSON(ctx, op, http.MethodPost, "/api/coins/update", req, &statusEnvelope{})
}

// PurchaseRequest spends coins to unlock one episode.
type PurchaseRequest struct {
	UserID    models.ID `json:"userId" validate:"required"`
	BookID    models.ID `json:"bookId" validate:"required"`
	EpisodeID models.ID `json:"episodeId" validate:"required"`
	Amount    int       `json:"amount" validate:"gte=0"`
}

// Purchase unlocks an episode. Authorization and the balance check happen server-side.
func (c *Client) Purchase(ctx context.Context, req PurchaseRequest) error {
	const op = "purchase episode"
	if err := c.validator.Validate(op, req); err != nil {
		return err
	}
	return c.sendJSON(ctx, op, http.MethodPost, "/api/purchases", req, &statusEnvelope{})
}
