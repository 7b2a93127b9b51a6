package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/desertthunder/folio/internal/models"
)

// HistoryRequest records that a user opened an episode.
type HistoryRequest struct {
	UserID    models.ID `json:"userId" validate:"required"`
	BookID    models.ID `json:"bookId" validate:"required"`
	EpisodeID models.ID `json:"episodeId" validate:"required"`
}

// LogHistory records a reading-history entry.
// Callers treat failures as telemetry: log them, never surface them.
func (c *Client) LogHistory(ctx context.Context, req HistoryRequest) error {
	const op = "log history"
	if err := c.validator.Validate(op, req); err != nil {
		return err
	}
	return c.sendJSON(ctx, op, http.MethodPost, "/api/user/update-history", req, &statusEnvelope{})
}

// ListHistory returns the user's reading history, most recent first as the backend orders it.
func (c *Client) ListHistory(ctx context.Context, userID models.ID) ([]models.HistoryEntry, error) {
	const op = "list history"
	if userID.IsZero() {
		return nil, validationError(op, "user id is required", map[string]string{"userId": "is required"})
	}

	var env historyEnvelope
	body := map[string]models.ID{"userId": userID}
	if err := c.sendJSON(ctx, op, http.MethodPost, "/api/user/history", body, &env); err != nil {
		return nil, err
	}
	if env.Detail == nil {
		return []models.HistoryEntry{}, nil
	}
	return env.Detail, nil
}

// ListNotifications returns the user's notifications.
func (c *Client) ListNotifications(ctx context.Context, userID models.ID) ([]models.Notification, error) {
	const op = "list notifications"
	if userID.IsZero() {
		return nil, validationError(op, "user id is required", map[string]string{"userId": "is required"})
	}

	var env notificationsEnvelope
	if err := c.getJSON(ctx, op, "/api/notifications/"+url.PathEscape(userID.String()), nil, &env); err != nil {
		return nil, err
	}
	if env.Detail == nil {
		return []models.Notification{}, nil
	}
	return env.Detail, nil
}

// MarkNotificationRead marks the notification for an episode as read.
func (c *Client) MarkNotificationRead(ctx context.Context, userID, episodeID models.ID) error {
	const op = "mark notification read"
	if userID.IsZero() || episodeID.IsZero() {
		return validationError(op, "user id and episode id are required", map[string]string{"userId": "is required", "episodeId": "is required"})
	}
	body := map[string]models.ID{"userId": userID, "episodeId": episodeID}
	return c.sendJSON(ctx, op, http.MethodPost, "/api/notifications/active", body, &statusEnvelope{})
}
