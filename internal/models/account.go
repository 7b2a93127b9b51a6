package models

import (
	"time"

	"golang.org/x/oauth2"
)

// Account roles. Setting a pen name promotes a reader to an author.
const (
	RoleReader = "Reader"
	RoleAuthor = "Author"
)

// User is the authenticated account returned by login.
type User struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	PenName   string `json:"pen_name"`
	AvatarURL string `json:"avatar_url"`
}

// DisplayName prefers the pen name, then the username, then the email.
func (u User) DisplayName() string {
	switch {
	case u.PenName != "":
		return u.PenName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Session is the process-wide login state.
type Session struct {
	User  User
	Token *oauth2.Token
}

// Expired reports whether the session token has a known expiry in the past.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.Token == nil || s.Token.Expiry.IsZero() {
		return false
	}
	return !s.Token.Expiry.After(now)
}

// TransactionType classifies coin ledger entries.
type TransactionType string

const (
	TxEarn         TransactionType = "earn"
	TxSpend        TransactionType = "spend"
	TxPurchase     TransactionType = "purchase"
	TxDailyCheckin TransactionType = "daily_checkin"
)

// Debit reports whether the transaction spends coins.
func (t TransactionType) Debit() bool {
	return t == TxSpend || t == TxPurchase
}

// Transaction is one coin ledger entry.
type Transaction struct {
	ID          ID              `json:"id"`
	UserID      ID              `json:"user_id"`
	Amount      Coins           `json:"amount"`
	Type        TransactionType `json:"type"`
	BookID      ID              `json:"book_id"`
	EpisodeID   ID              `json:"episode_id"`
	Description string          `json:"description"`
	CreatedAt   Timestamp       `json:"created_at"`
}

// CoinLedger is the coin balance with its transaction history.
type CoinLedger struct {
	TotalCoins   Coins         `json:"totalCoins"`
	Transactions []Transaction `json:"transactions"`
}

// CheckinDays returns the set of calendar days (YYYY-MM-DD, local time) with a daily check-in.
func (l CoinLedger) CheckinDays() map[string]bool {
	days := make(map[string]bool)
	for _, tx := range l.Transactions {
		if tx.Type == TxDailyCheckin && !tx.CreatedAt.IsZero() {
			days[tx.CreatedAt.Local().Format(time.DateOnly)] = true
		}
	}
	return days
}

// CheckedInOn reports whether a daily check-in exists for the day containing t.
func (l CoinLedger) CheckedInOn(t time.Time) bool {
	return l.CheckinDays()[t.Local().Format(time.DateOnly)]
}

// HistoryEntry is one reading-history record.
type HistoryEntry struct {
	BookID       ID        `json:"book_id"`
	EpisodeID    ID        `json:"episode_id"`
	Title        string    `json:"title"`
	EpisodeTitle string    `json:"episode_title"`
	CoverImage   string    `json:"cover_image"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// NotificationAvailable marks a "new episode available" notification.
const NotificationAvailable = "AVAILABLE"

// Notification is a backend-generated user notification.
type Notification struct {
	ID        ID        `json:"notify_id"`
	EpisodeID ID        `json:"episode_id"`
	BookID    ID        `json:"book_id"`
	Type      string    `json:"notify_type"`
	Message   string    `json:"notification_message"`
	CreatedAt Timestamp `json:"created_at"`
	ReadAt    Timestamp `json:"read_at"`
}

func (n Notification) Unread() bool { return n.ReadAt.IsZero() }

// UnreadCount counts notifications without a read_at time.
func UnreadCount(ns []Notification) int {
	count := 0
	for _, n := range ns {
		if n.Unread() {
			count++
		}
	}
	return count
}
