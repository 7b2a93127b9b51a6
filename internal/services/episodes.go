package services

import (
	"context"
	"net/url"

	"github.com/desertthunder/folio/internal/models"
)

// GetEpisode fetches a single episode's content and media links.
func (c *Client) GetEpisode(ctx context.Context, bookID, episodeID models.ID) (*models.Episode, error) {
	const op = "get episode"
	if bookID.IsZero() || episodeID.IsZero() {
		return nil, validationError(op, "book id and episode id are required", map[string]string{"bookId": "is required", "episodeId": "is required"})
	}

	path := "/api/episodes/" + url.PathEscape(bookID.String()) + "/" + url.PathEscape(episodeID.String())
	var env episodeEnvelope
	if err := c.getJSON(ctx, op, path, nil, &env); err != nil {
		return nil, err
	}

	ep, err := env.episode(op)
	if err != nil {
		return nil, err
	}
	if ep.ID.IsZero() {
		ep.ID = episodeID
	}
	if ep.BookID.IsZero() {
		ep.BookID = bookID
	}
	return ep, nil
}
