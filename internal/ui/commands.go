package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/session"
)

func (m *Model) resolveSession() tea.Cmd {
	return func() tea.Msg {
		return sessionResolvedMsg(m.gate.Resolve(m.ctx))
	}
}

func (m *Model) login() tea.Cmd {
	account, password := m.email.Value(), m.password.Value()
	return func() tea.Msg {
		res, err := m.backend.Login(m.ctx, account, password)
		if err != nil {
			return loggedInMsg(err)
		}
		return loggedInMsg(m.gate.Store().Login(m.ctx, session.New(res.User, res.Token)))
	}
}

// run executes a controller operation off the update loop. Its results arrive as browse events.
func (m *Model) run(fn func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		fn(m.ctx)
		return nil
	}
}

// waitForBrowse blocks on the next controller change so the view re-renders.
func (m *Model) waitForBrowse() tea.Cmd {
	events := m.browser.Events()
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return browseEventMsg(e)
	}
}

// waitForNotice blocks on the next dispatched notification.
func (m *Model) waitForNotice() tea.Cmd {
	events := m.notifier.Events()
	return func() tea.Msg {
		select {
		case e := <-events:
			return noticeMsg(e)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) fetchBook(id models.ID) tea.Cmd {
	userID := m.gate.Store().UserID()
	return func() tea.Msg {
		detail, err := m.backend.GetBook(m.ctx, id)
		if err != nil {
			return bookLoadedMsg(nil, nil, err)
		}
		ledger, err := m.backend.GetCoins(m.ctx, userID)
		if err != nil {
			m.logger.Warn("could not load purchases; paid episodes stay locked", "error", err)
			ledger = nil
		}
		return bookLoadedMsg(detail, ledger, nil)
	}
}

func (m *Model) fetchEpisode(ep models.Episode) tea.Cmd {
	return func() tea.Msg {
		full, err := m.backend.GetEpisode(m.ctx, ep.BookID, ep.ID)
		if err != nil {
			return episodeLoadedMsg(nil, err)
		}
		if full.Title == "" {
			full.Title = ep.Title
		}
		if full.BookID.IsZero() {
			full.BookID = ep.BookID
		}
		return episodeLoadedMsg(full, nil)
	}
}

// logHistory records the read. Failures are telemetry and only logged.
func (m *Model) logHistory(ep *models.Episode) tea.Cmd {
	req := services.HistoryRequest{UserID: m.gate.Store().UserID(), BookID: ep.BookID, EpisodeID: ep.ID}
	return func() tea.Msg {
		if err := m.backend.LogHistory(m.ctx, req); err != nil {
			m.logger.Debug("history not recorded", "episode", req.EpisodeID, "error", err)
		}
		return nil
	}
}

func (m *Model) fetchLedger() tea.Cmd {
	userID := m.gate.Store().UserID()
	return func() tea.Msg {
		return ledgerLoadedMsg(m.backend.GetCoins(m.ctx, userID))
	}
}

func (m *Model) checkin() tea.Cmd {
	req := services.CoinUpdate{
		UserID: m.gate.Store().UserID(),
		Amount: services.DailyCheckinReward,
		Type:   models.TxDailyCheckin,
	}
	return func() tea.Msg {
		return checkinDoneMsg(m.backend.UpdateCoins(m.ctx, req))
	}
}

func (m *Model) fetchNotifications() tea.Cmd {
	userID := m.gate.Store().UserID()
	return func() tea.Msg {
		return notificationsLoadedMsg(m.backend.ListNotifications(m.ctx, userID))
	}
}

func (m *Model) markRead(n models.Notification) tea.Cmd {
	userID := m.gate.Store().UserID()
	return func() tea.Msg {
		if err := m.backend.MarkNotificationRead(m.ctx, userID, n.EpisodeID); err != nil {
			return notificationsLoadedMsg(nil, err)
		}
		return notificationsLoadedMsg(m.backend.ListNotifications(m.ctx, userID))
	}
}
