package models

// Episode is one installment of a book.
type Episode struct {
	ID          ID        `json:"id"`
	BookID      ID        `json:"book_id"`
	Title       string    `json:"title"`
	ContentText string    `json:"content_text"`
	AudioURL    string    `json:"audio_url"`
	CoverURL    string    `json:"cover_url"`
	FileURL     string    `json:"file_url"`
	Price       Coins     `json:"price"`
	IsFree      Flag      `json:"is_free"`
	Status      string    `json:"status"`
	ReleaseDate Timestamp `json:"release_date"`
	Priority    string    `json:"priority"`
	// Locked is client-side view state; the backend hint is ignored in favor of purchase history.
	Locked bool `json:"isLocked"`
}

// EffectivePrice is zero for free episodes regardless of the price field.
func (e Episode) EffectivePrice() Coins {
	if e.IsFree || e.Price < 0 {
		return 0
	}
	return e.Price
}

// HasMedia reports whether the episode carries audio or a PDF.
func (e Episode) HasMedia() bool {
	return e.AudioURL != "" || e.FileURL != ""
}
