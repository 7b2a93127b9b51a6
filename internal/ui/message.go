package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/folio/internal/browse"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/desertthunder/folio/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionResolved MsgKind = iota
	MsgLoggedIn
	MsgBrowseEvent
	MsgBookLoaded
	MsgEpisodeLoaded
	MsgPurchaseDone
	MsgLedgerLoaded
	MsgCheckinDone
	MsgNotificationsLoaded
	MsgNotice
	MsgFollowDone
)

type bookLoaded struct {
	detail *models.BookDetail
	ledger *models.CoinLedger
	err    error
}

type episodeLoaded struct {
	episode *models.Episode
	err     error
}

type ledgerLoaded struct {
	ledger *models.CoinLedger
	err    error
}

type notificationsLoaded struct {
	notifications []models.Notification
	err           error
}

// sessionResolvedMsg is the constructor for [MsgSessionResolved]
func sessionResolvedMsg(state session.State) Msg {
	return Msg{kind: MsgSessionResolved, data: state}
}

// loggedInMsg is the constructor for [MsgLoggedIn]. A nil error means the session is stored.
func loggedInMsg(err error) Msg {
	return Msg{kind: MsgLoggedIn, data: err}
}

// browseEventMsg is the constructor for [MsgBrowseEvent]
func browseEventMsg(e browse.Event) Msg {
	return Msg{kind: MsgBrowseEvent, data: e}
}

// bookLoadedMsg is the constructor for [MsgBookLoaded]
func bookLoadedMsg(d *models.BookDetail, l *models.CoinLedger, err error) Msg {
	return Msg{kind: MsgBookLoaded, data: bookLoaded{d, l, err}}
}

// episodeLoadedMsg is the constructor for [MsgEpisodeLoaded]
func episodeLoadedMsg(ep *models.Episode, err error) Msg {
	return Msg{kind: MsgEpisodeLoaded, data: episodeLoaded{ep, err}}
}

// purchaseDoneMsg is the constructor for [MsgPurchaseDone]
func purchaseDoneMsg(err error) Msg {
	return Msg{kind: MsgPurchaseDone, data: err}
}

// ledgerLoadedMsg is the constructor for [MsgLedgerLoaded]
func ledgerLoadedMsg(l *models.CoinLedger, err error) Msg {
	return Msg{kind: MsgLedgerLoaded, data: ledgerLoaded{l, err}}
}

// checkinDoneMsg is the constructor for [MsgCheckinDone]
func checkinDoneMsg(err error) Msg {
	return Msg{kind: MsgCheckinDone, data: err}
}

// notificationsLoadedMsg is the constructor for [MsgNotificationsLoaded]
func notificationsLoadedMsg(ns []models.Notification, err error) Msg {
	return Msg{kind: MsgNotificationsLoaded, data: notificationsLoaded{ns, err}}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(e notify.Event) Msg {
	return Msg{kind: MsgNotice, data: e}
}

// followDoneMsg is the constructor for [MsgFollowDone]
func followDoneMsg(err error) Msg {
	return Msg{kind: MsgFollowDone, data: err}
}

// errOf extracts the error carried by messages whose payload is a bare error.
func errOf(msg Msg) error {
	err, _ := msg.data.(error)
	return err
}
