package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/folio/internal/models"
	"github.com/dustin/go-humanize"
)

var (
	_ list.Item = episodeItem{}
	_ list.Item = notificationItem{}
)

// episodeItem wraps [models.Episode] to implement [list.Item].
type episodeItem struct {
	episode models.Episode
}

func (i episodeItem) FilterValue() string { return i.episode.Title }
func (i episodeItem) Title() string {
	if i.episode.Locked {
		return "🔒 " + i.episode.Title
	}
	return i.episode.Title
}
func (i episodeItem) Description() string {
	price := i.episode.EffectivePrice()
	switch {
	case price == 0:
		return "free"
	case i.episode.Locked:
		return styles.locked.Render(fmt.Sprintf("locked • %s coins", humanize.Comma(int64(price))))
	default:
		return fmt.Sprintf("unlocked • %s coins", humanize.Comma(int64(price)))
	}
}

// notificationItem wraps [models.Notification] to implement [list.Item].
type notificationItem struct {
	notification models.Notification
}

func (i notificationItem) FilterValue() string { return i.notification.Message }
func (i notificationItem) Title() string {
	if i.notification.Unread() {
		return "• " + i.notification.Message
	}
	return i.notification.Message
}
func (i notificationItem) Description() string {
	if i.notification.CreatedAt.IsZero() {
		return "episode " + i.notification.EpisodeID.String()
	}
	return humanize.Time(i.notification.CreatedAt.Time)
}

func episodeItems(eps []models.Episode) []list.Item {
	items := make([]list.Item, len(eps))
	for i, ep := range eps {
		items[i] = episodeItem{episode: ep}
	}
	return items
}

func notificationItems(ns []models.Notification) []list.Item {
	items := make([]list.Item, len(ns))
	for i, n := range ns {
		items[i] = notificationItem{notification: n}
	}
	return items
}
