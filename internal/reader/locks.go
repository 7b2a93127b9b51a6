package reader

import "github.com/desertthunder/folio/internal/models"

// IsLocked reports whether an episode must be purchased before reading.
// Free episodes are never locked and authors are never locked out of their own books.
func IsLocked(price models.Coins, purchased, isAuthor bool) bool {
	if price <= 0 || isAuthor {
		return false
	}
	return !purchased
}

// PurchasedSet collects the episode ids the ledger shows as bought.
func PurchasedSet(ledger *models.CoinLedger) map[models.ID]bool {
	out := make(map[models.ID]bool)
	if ledger == nil {
		return out
	}
	for _, tx := range ledger.Transactions {
		if tx.Type.Debit() && !tx.EpisodeID.IsZero() {
			out[tx.EpisodeID] = true
		}
	}
	return out
}

// ApplyLocks returns a copy of episodes with Locked derived from price, purchases and authorship.
// The backend's own lock hint is overwritten.
func ApplyLocks(episodes []models.Episode, purchased map[models.ID]bool, isAuthor bool) []models.Episode {
	out := make([]models.Episode, len(episodes))
	for i, ep := range episodes {
		ep.Locked = IsLocked(ep.EffectivePrice(), purchased[ep.ID], isAuthor)
		out[i] = ep
	}
	return out
}
