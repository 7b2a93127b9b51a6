package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/folio/internal/formatter"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints the reading history.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	entries, err := r.client.ListHistory(ctx, r.store.UserID())
	if err != nil {
		return err
	}
	return r.write(formatter.History(entries, format))
}

// NotificationsList prints notifications, unread first as the backend orders them.
func (r *Runner) NotificationsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	ns, err := r.client.ListNotifications(ctx, r.store.UserID())
	if err != nil {
		return err
	}
	if format == formatter.Text {
		r.logger.Debug("notifications loaded", "total", len(ns), "unread", models.UnreadCount(ns))
	}
	return r.write(formatter.Notifications(ns, format))
}

// NotificationsRead marks the notification for an episode as read.
func (r *Runner) NotificationsRead(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	episodeID := models.ID(strings.TrimSpace(cmd.StringArg("episode")))
	if episodeID.IsZero() {
		return fmt.Errorf("%w: episode id", shared.ErrMissingArgument)
	}
	if err := r.client.MarkNotificationRead(ctx, r.store.UserID(), episodeID); err != nil {
		return err
	}
	return r.writePlain("✓ Marked episode %s as read\n", episodeID)
}
