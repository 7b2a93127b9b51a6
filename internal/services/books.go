package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/folio/internal/models"
)

// ListBooks fetches one page of books in a category, optionally filtered by a search term.
func (c *Client) ListBooks(ctx context.Context, q models.ListQuery) (*models.BookPage, error) {
	return c.listBooks(ctx, "list books", "/api/books", q)
}

// ListBookmarks fetches one page of the user's followed books in a category.
func (c *Client) ListBookmarks(ctx context.Context, q models.ListQuery) (*models.BookPage, error) {
	if q.UserID.IsZero() {
		return nil, validationError("list bookmarks", "user id is required", map[string]string{"userId": "is required"})
	}
	return c.listBooks(ctx, "list bookmarks", "/api/user", q)
}

func (c *Client) listBooks(ctx context.Context, op, path string, q models.ListQuery) (*models.BookPage, error) {
	if q.Category == "" {
		return nil, validationError(op, "category is required", map[string]string{"category": "is required"})
	}
	if q.Page < 1 {
		q.Page = 1
	}

	params := url.Values{}
	params.Set("category", q.Category)
	params.Set("page", strconv.Itoa(q.Page))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	params.Set("search", q.Search)
	if !q.UserID.IsZero() {
		params.Set("userId", q.UserID.String())
	}

	var env listEnvelope
	if err := c.getJSON(ctx, op, path, params, &env); err != nil {
		return nil, err
	}
	if env.Detail == nil {
		return nil, missingDetail(op)
	}

	books := env.Detail.Data
	if books == nil {
		books = []models.BookSummary{}
	}
	return &models.BookPage{Books: books, Pagination: env.Detail.Pagination}, nil
}

// GetBook fetches a book with its episode list.
func (c *Client) GetBook(ctx context.Context, id models.ID) (*models.BookDetail, error) {
	const op = "get book"
	if id.IsZero() {
		return nil, validationError(op, "book id is required", map[string]string{"id": "is required"})
	}

	var env bookEnvelope
	if err := c.getJSON(ctx, op, "/api/books/"+url.PathEscape(id.String()), nil, &env); err != nil {
		return nil, err
	}
	if env.Detail == nil {
		return nil, missingDetail(op)
	}
	if env.Detail.ID.IsZero() {
		env.Detail.ID = id
	}
	for i := range env.Detail.Episodes {
		if env.Detail.Episodes[i].BookID.IsZero() {
			env.Detail.Episodes[i].BookID = env.Detail.ID
		}
	}
	return env.Detail, nil
}

// SetBookComplete marks an authored book as finished, or reopens it.
func (c *Client) SetBookComplete(ctx context.Context, id models.ID, complete bool) error {
	const op = "update book status"
	if id.IsZero() {
		return validationError(op, "book id is required", map[string]string{"id": "is required"})
	}
	body := map[string]bool{"is_complete": complete}
	return c.sendJSON(ctx, op, http.MethodPut, "/api/books/"+url.PathEscape(id.String())+"/status", body, &statusEnvelope{})
}

// FollowRequest toggles the follow (bookmark) state of a book for a user.
type FollowRequest struct {
	UserID models.ID `json:"userId" validate:"required"`
	BookID models.ID `json:"bookId" validate:"required"`
}

// Follow toggles a bookmark. The backend flips the state server-side.
func (c *Client) Follow(ctx context.Context, req FollowRequest) error {
	const op = "follow book"
	if err := c.validator.Validate(op, req); err != nil {
		return err
	}
	return c.sendJSON(ctx, op, http.MethodPost, "/api/user/favorites", req, &statusEnvelope{})
}

// RateRequest submits a 1 to 5 star rating.
type RateRequest struct {
	UserID models.ID `json:"userId" validate:"required"`
	BookID models.ID `json:"bookId" validate:"required"`
	Rating int       `json:"rating" validate:"gte=1,lte=5"`
}

// Rate records the user's rating for a book.
func (c *Client) Rate(ctx context.Context, req RateRequest) error {
	const op = "rate book"
	if err := c.validator.Validate(op, req); err != nil {
		return err
	}
	return c.sendJSON(ctx, op, http.MethodPost, "/api/books/rate", req, &statusEnvelope{})
}
