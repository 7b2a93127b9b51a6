package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/browse"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/desertthunder/folio/internal/reader"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/session"
	"github.com/desertthunder/folio/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ResolvingView ViewState = iota
	LoginView
	BrowseView
	BookView
	ReaderView
	CoinsView
	NotificationsView
)

// Backend is the subset of [services.Client] the TUI talks to.
type Backend interface {
	Login(ctx context.Context, account, password string) (*services.LoginResult, error)
	ListBooks(ctx context.Context, q models.ListQuery) (*models.BookPage, error)
	GetBook(ctx context.Context, id models.ID) (*models.BookDetail, error)
	GetEpisode(ctx context.Context, bookID, episodeID models.ID) (*models.Episode, error)
	GetCoins(ctx context.Context, userID models.ID) (*models.CoinLedger, error)
	UpdateCoins(ctx context.Context, req services.CoinUpdate) error
	Purchase(ctx context.Context, req services.PurchaseRequest) error
	Follow(ctx context.Context, req services.FollowRequest) error
	LogHistory(ctx context.Context, req services.HistoryRequest) error
	ListNotifications(ctx context.Context, userID models.ID) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, episodeID models.ID) error
	AssetURL(path string) string
}

// Options wires the model's dependencies.
type Options struct {
	Backend  Backend
	Gate     *session.Gate
	Config   *shared.Config
	Notifier *notify.Dispatcher
	Logger   *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	backend  Backend
	gate     *session.Gate
	notifier *notify.Dispatcher
	logger   *log.Logger
	browser  *browse.Controller
	width    int
	height   int

	email      textinput.Model
	password   textinput.Model
	loginFocus int
	loginErr   string
	busy       bool

	search    textinput.Model
	searching bool
	section   int
	cursor    int

	shelf    *reader.Shelf
	follow   *reader.FollowToggle
	episodes list.Model
	flow     *reader.Flow

	episode  *models.Episode
	viewport viewport.Model

	ledger      *models.CoinLedger
	ledgerTable table.Model

	notifications    []models.Notification
	notificationList list.Model
	notificationsSet bool

	notices []notify.Event
	err     error
	help    help.Model
	keys    keyMap
	now     func() time.Time
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) (*Model, error) {
	if opts.Backend == nil || opts.Gate == nil || opts.Config == nil {
		return nil, fmt.Errorf("%w: backend, session gate and config are required", shared.ErrInvalidArgument)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewDispatcher(0)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	logger := shared.WithLogger(opts.Logger, "component", "ui")

	bo := browse.OptionsFromConfig(opts.Config, opts.Backend.ListBooks)
	bo.Notifier = opts.Notifier
	bo.Logger = opts.Logger
	controller, err := browse.New(bo)
	if err != nil {
		return nil, err
	}

	email := textinput.New()
	email.Placeholder = "email or username"
	email.Prompt = "Account:  "
	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	search := textinput.New()
	search.Placeholder = "Search titles"
	search.Prompt = "/ "

	return &Model{
		ctx:      ctx,
		view:     ResolvingView,
		backend:  opts.Backend,
		gate:     opts.Gate,
		notifier: opts.Notifier,
		logger:   logger,
		browser:  controller,
		email:    email,
		password: password,
		search:   search,
		help:     help.New(),
		keys:     newKeyMap(),
		now:      time.Now,
	}, nil
}

// Close stops the browse controller's pending work.
func (m *Model) Close() {
	m.browser.Close()
}

// Err is the error that ended the program, if any.
func (m *Model) Err() error {
	return m.err
}

// Init resolves the session before any protected view renders.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.resolveSession(), m.waitForNotice(), m.waitForBrowse(), textinput.Blink)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m.handleKeys(msg)
	case Msg:
		return m.handleMsg(msg)
	}
	return m.updateComponents(msg)
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	if m.shelf != nil {
		m.episodes.SetSize(w-4, h-10)
	}
	if m.notificationsSet {
		m.notificationList.SetSize(w-4, h-6)
	}
	if m.episode != nil {
		m.viewport.Width, m.viewport.Height = w, h-4
	}
	if m.ledger != nil {
		m.ledgerTable.SetHeight(max(h-18, 5))
	}
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionResolved:
		if msg.data.(session.State) == session.Authenticated {
			return m.enterBrowse()
		}
		if err := m.gate.Err(); err != nil {
			m.logger.Warn("session unavailable", "error", err)
		}
		m.view = LoginView
		m.loginFocus = 0
		return m, m.email.Focus()

	case MsgLoggedIn:
		m.busy = false
		if err := errOf(msg); err != nil {
			m.loginErr = services.ErrorMessage(err)
			return m, nil
		}
		m.loginErr = ""
		m.password.SetValue("")
		m.email.Blur()
		m.password.Blur()
		return m.enterBrowse()

	case MsgBrowseEvent:
		m.clampCursor()
		return m, m.waitForBrowse()

	case MsgBookLoaded:
		data := msg.data.(bookLoaded)
		if data.err != nil {
			m.notifier.Error("Could not open book", services.ErrorMessage(data.err))
			return m, nil
		}
		m.openShelf(data.detail, data.ledger)
		return m, nil

	case MsgEpisodeLoaded:
		data := msg.data.(episodeLoaded)
		if data.err != nil {
			m.notifier.Error("Could not open episode", services.ErrorMessage(data.err))
			return m, nil
		}
		m.openReader(data.episode)
		return m, m.logHistory(data.episode)

	case MsgPurchaseDone:
		err := errOf(msg)
		if errors.Is(err, shared.ErrNotConfirmed) {
			return m, nil
		}
		m.refreshEpisodes()
		if err != nil || m.flow == nil {
			return m, nil
		}
		ep := m.flow.Episode()
		m.flow = nil
		return m, m.fetchEpisode(ep)

	case MsgLedgerLoaded:
		data := msg.data.(ledgerLoaded)
		if data.err != nil {
			m.notifier.Error("Could not load coins", services.ErrorMessage(data.err))
			return m, nil
		}
		m.setLedger(data.ledger)
		return m, nil

	case MsgCheckinDone:
		if err := errOf(msg); err != nil {
			m.notifier.Error("Check-in failed", services.ErrorMessage(err))
			return m, nil
		}
		m.notifier.Success("Checked in", fmt.Sprintf("+%d coins", services.DailyCheckinReward))
		return m, m.fetchLedger()

	case MsgNotificationsLoaded:
		data := msg.data.(notificationsLoaded)
		if data.err != nil {
			m.notifier.Error("Could not load notifications", services.ErrorMessage(data.err))
			return m, nil
		}
		m.setNotifications(data.notifications)
		return m, nil

	case MsgNotice:
		m.notices = append(m.notices, msg.data.(notify.Event))
		return m, m.waitForNotice()

	case MsgFollowDone:
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if len(m.notices) > 0 {
		if key.Matches(msg, m.keys.enter, m.keys.back) {
			m.notices = m.notices[1:]
		}
		return m, nil
	}
	if m.unlockOpen() {
		return m.handleUnlockKeys(msg)
	}

	switch m.view {
	case LoginView:
		return m.handleLoginKeys(msg)
	case BrowseView:
		return m.handleBrowseKeys(msg)
	case BookView:
		return m.handleBookKeys(msg)
	case ReaderView:
		return m.handleReaderKeys(msg)
	case CoinsView:
		return m.handleCoinsKeys(msg)
	case NotificationsView:
		return m.handleNotificationKeys(msg)
	}
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		return m, m.focusLogin(1 - m.loginFocus)
	case "enter":
		if m.loginFocus == 0 {
			return m, m.focusLogin(1)
		}
		if m.busy {
			return m, nil
		}
		if m.email.Value() == "" || m.password.Value() == "" {
			m.loginErr = "Account and password are required"
			return m, nil
		}
		m.busy = true
		m.loginErr = ""
		return m, m.login()
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) focusLogin(i int) tea.Cmd {
	m.loginFocus = i
	if i == 0 {
		m.password.Blur()
		return m.email.Focus()
	}
	m.email.Blur()
	return m.password.Focus()
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, m.run(func(context.Context) { m.browser.FlushSearch() })
		}
		var cmd tea.Cmd
		before := m.search.Value()
		m.search, cmd = m.search.Update(msg)
		if v := m.search.Value(); v != before {
			m.browser.SetSearchInput(v)
		}
		return m, cmd
	}

	sections := m.browser.Sections()
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.genre):
		genres := m.browser.Genres()
		i := int(msg.Runes[0] - '1')
		if i < len(genres) {
			g := genres[i].Value
			m.section, m.cursor = 0, 0
			return m, m.run(func(ctx context.Context) { _ = m.browser.ToggleGenre(ctx, g) })
		}
	case key.Matches(msg, m.keys.clear):
		m.section, m.cursor = 0, 0
		return m, m.run(m.browser.ClearSelection)
	case key.Matches(msg, m.keys.section):
		if len(sections) > 0 {
			m.section = (m.section + 1) % len(sections)
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.section < len(sections) && m.cursor < len(sections[m.section].Page.Books)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.nextPage, m.keys.prevPage):
		if m.section >= len(sections) {
			return m, nil
		}
		g := sections[m.section].Genre.Value
		next := key.Matches(msg, m.keys.nextPage)
		if next && !m.browser.HasNextPage(g) {
			return m, nil
		}
		m.cursor = 0
		return m, m.run(func(ctx context.Context) {
			if next {
				_ = m.browser.NextPage(ctx, g)
			} else {
				_ = m.browser.PrevPage(ctx, g)
			}
		})
	case key.Matches(msg, m.keys.enter):
		if b, ok := m.selectedBook(sections); ok {
			return m, m.fetchBook(b.ID)
		}
	case key.Matches(msg, m.keys.coins):
		return m.enterCoins()
	case key.Matches(msg, m.keys.notices):
		return m.enterNotifications()
	}
	return m, nil
}

func (m *Model) selectedBook(sections []browse.Section) (models.BookSummary, bool) {
	if m.section >= len(sections) {
		return models.BookSummary{}, false
	}
	books := sections[m.section].Page.Books
	if m.cursor >= len(books) {
		return models.BookSummary{}, false
	}
	return books[m.cursor], true
}

func (m *Model) clampCursor() {
	sections := m.browser.Sections()
	if m.section >= len(sections) {
		m.section, m.cursor = 0, 0
		return
	}
	if n := len(sections[m.section].Page.Books); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m *Model) handleBookKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = BrowseView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if ep, ok := m.selectedEpisode(); ok {
			if ep.Locked {
				return m, m.openUnlock(ep)
			}
			return m, m.fetchEpisode(ep)
		}
		return m, nil
	case key.Matches(msg, m.keys.unlock):
		if ep, ok := m.selectedEpisode(); ok {
			return m, m.openUnlock(ep)
		}
		return m, nil
	case key.Matches(msg, m.keys.unlockAll):
		if err := m.shelf.UnlockAll(); err != nil {
			m.notifier.Warn("Not allowed", services.ErrorMessage(err))
			return m, nil
		}
		m.refreshEpisodes()
		return m, nil
	case key.Matches(msg, m.keys.follow):
		toggle := m.follow
		return m, func() tea.Msg { return followDoneMsg(toggle.Toggle(m.ctx)) }
	case key.Matches(msg, m.keys.coins):
		return m.enterCoins()
	case key.Matches(msg, m.keys.notices):
		return m.enterNotifications()
	}

	var cmd tea.Cmd
	m.episodes, cmd = m.episodes.Update(msg)
	return m, cmd
}

func (m *Model) selectedEpisode() (models.Episode, bool) {
	if m.shelf == nil {
		return models.Episode{}, false
	}
	item, ok := m.episodes.SelectedItem().(episodeItem)
	if !ok {
		return models.Episode{}, false
	}
	return m.shelf.Episode(item.episode.ID)
}

// openUnlock starts the purchase confirmation for ep. Episodes that are already readable open directly.
func (m *Model) openUnlock(ep models.Episode) tea.Cmd {
	flow, err := m.shelf.Flow(ep.ID, m.backend, reader.FlowConfig{Logger: m.logger})
	if err != nil {
		m.notifier.Error("Unlock unavailable", services.ErrorMessage(err))
		return nil
	}
	if _, err := flow.RequestUnlock(); err != nil {
		if errors.Is(err, shared.ErrAlreadyUnlocked) {
			return m.fetchEpisode(ep)
		}
		m.notifier.Error("Unlock unavailable", services.ErrorMessage(err))
		return nil
	}
	m.flow = flow
	return nil
}

func (m *Model) unlockOpen() bool {
	return m.flow != nil && m.flow.State().Prompt != nil
}

func (m *Model) handleUnlockKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	prompt := m.flow.State().Prompt
	switch {
	case key.Matches(msg, m.keys.yes):
		if !prompt.CanConfirm() {
			return m, nil
		}
		flow := m.flow
		return m, func() tea.Msg { return purchaseDoneMsg(flow.Confirm(m.ctx)) }
	case key.Matches(msg, m.keys.no, m.keys.back):
		if prompt.Pending {
			return m, nil
		}
		m.flow.Cancel()
		m.flow = nil
	}
	return m, nil
}

func (m *Model) handleReaderKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = BookView
		m.refreshEpisodes()
		return m, nil
	case msg.String() == "o":
		if m.episode == nil || !m.episode.HasMedia() {
			return m, nil
		}
		asset := m.episode.AudioURL
		if asset == "" {
			asset = m.episode.FileURL
		}
		if err := shared.OpenURL(m.backend.AssetURL(asset)); err != nil {
			m.notifier.Error("Could not open media", err.Error())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleCoinsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m.leaveAccountView()
	case key.Matches(msg, m.keys.checkin):
		if m.ledger != nil && m.ledger.CheckedInOn(m.now()) {
			m.notifier.Info("Already checked in", "Come back tomorrow for more coins.")
			return m, nil
		}
		return m, m.checkin()
	}

	var cmd tea.Cmd
	if m.ledger != nil {
		m.ledgerTable, cmd = m.ledgerTable.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleNotificationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m.leaveAccountView()
	case key.Matches(msg, m.keys.enter):
		if !m.notificationsSet {
			return m, nil
		}
		item, ok := m.notificationList.SelectedItem().(notificationItem)
		if !ok {
			return m, nil
		}
		n := item.notification
		cmds := []tea.Cmd{m.markRead(n)}
		if !n.BookID.IsZero() {
			cmds = append(cmds, m.fetchBook(n.BookID))
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	if m.notificationsSet {
		m.notificationList, cmd = m.notificationList.Update(msg)
	}
	return m, cmd
}

func (m *Model) leaveAccountView() (tea.Model, tea.Cmd) {
	if m.shelf != nil {
		m.view = BookView
		m.refreshEpisodes()
	} else {
		m.view = BrowseView
	}
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LoginView:
		if m.loginFocus == 0 {
			m.email, cmd = m.email.Update(msg)
		} else {
			m.password, cmd = m.password.Update(msg)
		}
	case BrowseView:
		if m.searching {
			m.search, cmd = m.search.Update(msg)
		}
	case ReaderView:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *Model) enterBrowse() (tea.Model, tea.Cmd) {
	m.view = BrowseView
	return m, m.run(m.browser.RefetchVisibleGenres)
}

func (m *Model) enterCoins() (tea.Model, tea.Cmd) {
	m.view = CoinsView
	return m, m.fetchLedger()
}

func (m *Model) enterNotifications() (tea.Model, tea.Cmd) {
	m.view = NotificationsView
	return m, m.fetchNotifications()
}

func (m *Model) openShelf(detail *models.BookDetail, ledger *models.CoinLedger) {
	userID := m.gate.Store().UserID()
	m.shelf = reader.NewShelf(detail, ledger, userID, m.notifier)
	m.follow = reader.NewFollowToggle(m.backend, m.notifier, userID, detail.ID, false)
	m.flow = nil

	m.episodes = list.New(episodeItems(m.shelf.Episodes()), list.NewDefaultDelegate(), 0, 0)
	m.episodes.Title = "Episodes"
	m.episodes.SetFilteringEnabled(false)
	m.episodes.SetShowHelp(false)
	m.episodes.SetSize(m.width-4, m.height-10)
	m.view = BookView
}

func (m *Model) refreshEpisodes() {
	if m.shelf == nil {
		return
	}
	m.episodes.SetItems(episodeItems(m.shelf.Episodes()))
}

func (m *Model) openReader(ep *models.Episode) {
	m.episode = ep
	m.viewport = viewport.New(m.width, m.height-4)
	title := ""
	if m.shelf != nil {
		title = m.shelf.Book().Title
	}
	m.viewport.SetContent(renderEpisode(title, *ep, m.width))
	m.view = ReaderView
}

func (m *Model) setLedger(l *models.CoinLedger) {
	m.ledger = l
	if m.shelf != nil {
		m.shelf.SetBalance(l.TotalCoins)
	}
	m.ledgerTable = table.New(
		table.WithColumns(ledgerColumns()),
		table.WithRows(ledgerRows(l, m.now())),
		table.WithFocused(true),
		table.WithHeight(max(m.height-18, 5)),
	)
}

func (m *Model) setNotifications(ns []models.Notification) {
	m.notifications = ns
	m.notificationList = list.New(notificationItems(ns), list.NewDefaultDelegate(), 0, 0)
	m.notificationList.Title = fmt.Sprintf("Notifications (%d unread)", models.UnreadCount(ns))
	m.notificationList.SetFilteringEnabled(false)
	m.notificationList.SetShowHelp(false)
	m.notificationList.SetSize(m.width-4, m.height-6)
	m.notificationsSet = true
}
