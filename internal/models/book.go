package models

import "strings"

// Genre is a fixed category tag from static configuration.
type Genre struct {
	Value string `toml:"value" json:"value"`
	Label string `toml:"label" json:"label"`
}

// DisplayName falls back to the value when no label is configured.
func (g Genre) DisplayName() string {
	if g.Label != "" {
		return g.Label
	}
	return g.Value
}

// BookSummary is one entry of a book listing.
type BookSummary struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	CoverImage string `json:"cover_image"`
	AvgRating  Rating `json:"avg_rating"`
}

// Pagination is the informational paging block of a listing response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// BookPage is a single page of a listing.
type BookPage struct {
	Books      []BookSummary
	Pagination Pagination
}

// ListQuery selects one page of books in one category. UserID is only used by bookmark listings.
type ListQuery struct {
	Category string
	Page     int
	Limit    int
	Search   string
	UserID   ID
}

// Book is the full book record.
type Book struct {
	ID              ID        `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CoverURL        string    `json:"cover_url"`
	CoverImage      string    `json:"cover_image"`
	AvatarURL       string    `json:"avatar_url"`
	AuthorID        ID        `json:"author_id"`
	PenName         string    `json:"pen_name"`
	Category        string    `json:"category"`
	Status          string    `json:"status"`
	ReleaseDate     Timestamp `json:"release_date"`
	PricePerChapter Coins     `json:"price_per_chapter"`
	AvgRating       Rating    `json:"avg_rating"`
	IsComplete      Flag      `json:"is_complete"`
}

// Categories splits the comma-joined category field.
func (b Book) Categories() []string {
	var out []string
	for _, c := range strings.Split(b.Category, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// IsAuthoredBy reports whether the user wrote this book.
func (b Book) IsAuthoredBy(userID ID) bool {
	return !userID.IsZero() && b.AuthorID == userID
}

// CoverPath returns the relative asset path of the cover, preferring cover_url.
func (b Book) CoverPath() string {
	if b.CoverURL != "" {
		return b.CoverURL
	}
	if b.CoverImage != "" {
		return "/uploads/books/" + b.CoverImage
	}
	return ""
}

// BookDetail is a book together with its episodes.
type BookDetail struct {
	Book
	Episodes []Episode `json:"episodes"`
}
