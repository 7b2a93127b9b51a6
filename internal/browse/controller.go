package browse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/debounce"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize      = 20
	DefaultDebounce      = 500 * time.Millisecond
	DefaultMaxConcurrent = 4
	defaultEventBuffer   = 64
)

// FetchFunc loads one page of one genre. [services.Client.ListBooks] satisfies it.
type FetchFunc func(ctx context.Context, q models.ListQuery) (*models.BookPage, error)

// Bookmarks adapts a bookmark listing to a [FetchFunc] scoped to userID.
func Bookmarks(fetch FetchFunc, userID models.ID) FetchFunc {
	return func(ctx context.Context, q models.ListQuery) (*models.BookPage, error) {
		q.UserID = userID
		return fetch(ctx, q)
	}
}

// GenrePage is the browse state of one genre.
type GenrePage struct {
	Books       []models.BookSummary
	CurrentPage int
	Loading     bool
	Pagination  models.Pagination
}

// SearchQuery holds the live input and the debounced term used for fetching.
type SearchQuery struct {
	Raw       string
	Committed string
}

// Section is a rendered genre: visible and with at least one book.
type Section struct {
	Genre models.Genre
	Page  GenrePage
}

// Options configures a [Controller].
type Options struct {
	Genres        []models.Genre
	Fetch         FetchFunc
	PageSize      int
	Debounce      time.Duration
	MaxConcurrent int
	Notifier      *notify.Dispatcher
	Logger        *log.Logger
	EventBuffer   int
}

// OptionsFromConfig fills the tunables from the [browse] config section.
func OptionsFromConfig(cfg *shared.Config, fetch FetchFunc) Options {
	return Options{
		Genres:        cfg.Genres,
		Fetch:         fetch,
		PageSize:      cfg.Browse.PageSize,
		Debounce:      cfg.Browse.Debounce,
		MaxConcurrent: cfg.Browse.MaxConcurrent,
	}
}

// Controller is the genre browse state machine.
//
// Every genre fetch is tagged with a per-genre sequence number; a completion that is not the
// latest for its genre is discarded without touching state. Pages are replaced on success and
// left intact on failure. The committed search term and the genre selection are the only
// triggers of [Controller.RefetchVisibleGenres].
type Controller struct {
	genres   []models.Genre
	known    map[string]bool
	fetch    FetchFunc
	pageSize int
	maxConc  int
	notifier *notify.Dispatcher
	logger   *log.Logger

	mu       sync.Mutex
	pages    map[string]*GenrePage
	seq      map[string]uint64
	selected map[string]bool
	search   SearchQuery

	debouncer *debounce.Debouncer[string]
	events    chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a controller. It returns an error when no genres are configured or fetch is nil.
func New(opts Options) (*Controller, error) {
	if len(opts.Genres) == 0 {
		return nil, fmt.Errorf("%w: no genres configured", shared.ErrInvalidConfig)
	}
	if opts.Fetch == nil {
		return nil, fmt.Errorf("%w: fetch function is required", shared.ErrInvalidArgument)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	known := make(map[string]bool, len(opts.Genres))
	for _, g := range opts.Genres {
		known[g.Value] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		genres:   append([]models.Genre(nil), opts.Genres...),
		known:    known,
		fetch:    opts.Fetch,
		pageSize: opts.PageSize,
		maxConc:  opts.MaxConcurrent,
		notifier: opts.Notifier,
		logger:   shared.WithLogger(opts.Logger, "component", "browse"),
		pages:    make(map[string]*GenrePage),
		seq:      make(map[string]uint64),
		selected: make(map[string]bool),
		events:   make(chan Event, opts.EventBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.debouncer = debounce.New(opts.Debounce, c.commitSearch)
	return c, nil
}

// Close cancels a pending search commit and any fetch it started.
func (c *Controller) Close() {
	c.debouncer.Stop()
	c.cancel()
}

// Genres returns the configured genres in order.
func (c *Controller) Genres() []models.Genre {
	return append([]models.Genre(nil), c.genres...)
}

// PageSize is the per-genre request limit.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// Events publishes state changes. Sends never block; a slow reader misses events, not state.
func (c *Controller) Events() <-chan Event {
	return c.events
}

func (c *Controller) emit(e Event) {
	select {
	case c.events <- e:
	default:
	}
}

// SetSearchInput records the raw input immediately and schedules the debounced commit.
func (c *Controller) SetSearchInput(raw string) {
	c.mu.Lock()
	c.search.Raw = raw
	c.mu.Unlock()
	c.debouncer.Call(raw)
}

// FlushSearch commits a pending search input now instead of waiting for the quiet period.
func (c *Controller) FlushSearch() bool {
	return c.debouncer.Flush()
}

// commitSearch runs when the input has been quiet for the debounce period.
func (c *Controller) commitSearch(v string) {
	c.mu.Lock()
	if c.search.Committed == v {
		c.mu.Unlock()
		return
	}
	c.search.Committed = v
	c.mu.Unlock()

	c.logger.Debug("search committed", "term", v)
	c.emit(Event{Kind: SearchCommitted})
	c.RefetchVisibleGenres(c.ctx)
}

// Search returns the current search state.
func (c *Controller) Search() SearchQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// ToggleGenre adds or removes g from the selection and refetches the visible genres.
func (c *Controller) ToggleGenre(ctx context.Context, g string) error {
	if !c.known[g] {
		return fmt.Errorf("%w: unknown genre %q", shared.ErrInvalidArgument, g)
	}

	c.mu.Lock()
	if c.selected[g] {
		delete(c.selected, g)
	} else {
		c.selected[g] = true
	}
	c.mu.Unlock()

	c.emit(Event{Kind: SelectionChanged, Genre: g})
	c.RefetchVisibleGenres(ctx)
	return nil
}

// SetSelection replaces the selection, refetching only when it changed.
func (c *Controller) SetSelection(ctx context.Context, genres []string) error {
	next := make(map[string]bool, len(genres))
	for _, g := range genres {
		if !c.known[g] {
			return fmt.Errorf("%w: unknown genre %q", shared.ErrInvalidArgument, g)
		}
		next[g] = true
	}

	c.mu.Lock()
	changed := len(next) != len(c.selected)
	for g := range next {
		if !c.selected[g] {
			changed = true
		}
	}
	c.selected = next
	c.mu.Unlock()

	if changed {
		c.emit(Event{Kind: SelectionChanged})
		c.RefetchVisibleGenres(ctx)
	}
	return nil
}

// Preset replaces the selection and commits search without fetching or debouncing. It sets
// up the state a single fetch cycle then runs against.
func (c *Controller) Preset(genres []string, search string) error {
	next := make(map[string]bool, len(genres))
	for _, g := range genres {
		if !c.known[g] {
			return fmt.Errorf("%w: unknown genre %q", shared.ErrInvalidArgument, g)
		}
		next[g] = true
	}

	c.debouncer.Stop()
	c.mu.Lock()
	c.selected = next
	c.search.Raw = search
	c.search.Committed = search
	c.mu.Unlock()
	return nil
}

// ClearSelection empties the selection (all genres visible) and refetches if it was not empty.
func (c *Controller) ClearSelection(ctx context.Context) {
	_ = c.SetSelection(ctx, nil)
}

// Selection returns the selected genres in configured order.
func (c *Controller) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, g := range c.genres {
		if c.selected[g.Value] {
			out = append(out, g.Value)
		}
	}
	return out
}

// ShouldDisplay reports whether g is visible under the current selection. It never fetches.
func (c *Controller) ShouldDisplay(g string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleLocked(g)
}

func (c *Controller) visibleLocked(g string) bool {
	return len(c.selected) == 0 || c.selected[g]
}

// Visible returns the visible genre values in configured order.
func (c *Controller) Visible() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, g := range c.genres {
		if c.visibleLocked(g.Value) {
			out = append(out, g.Value)
		}
	}
	return out
}

// FetchGenrePage loads one page of g with the committed search term.
//
// Success replaces the genre's page. Failure dispatches an error notification, keeps the prior
// page and returns the error. A completion superseded by a newer fetch of the same genre is
// dropped and returns nil.
func (c *Controller) FetchGenrePage(ctx context.Context, g string, page int) error {
	if !c.known[g] {
		return fmt.Errorf("%w: unknown genre %q", shared.ErrInvalidArgument, g)
	}
	if page < 1 {
		page = 1
	}

	c.mu.Lock()
	state := c.pageLocked(g)
	c.seq[g]++
	tag := c.seq[g]
	state.Loading = true
	q := models.ListQuery{Category: g, Page: page, Limit: c.pageSize, Search: c.search.Committed}
	c.mu.Unlock()
	c.emit(Event{Kind: FetchStarted, Genre: g})

	res, err := c.fetch(ctx, q)

	c.mu.Lock()
	if c.seq[g] != tag {
		c.mu.Unlock()
		c.logger.Debug("discarding stale response", "genre", g, "tag", tag)
		c.emit(Event{Kind: FetchDiscarded, Genre: g})
		return nil
	}
	state.Loading = false
	if err == nil && res == nil {
		err = fmt.Errorf("%w: empty page", shared.ErrMalformedResponse)
	}
	if err != nil {
		c.mu.Unlock()
		c.fail(ctx, g, err)
		return err
	}
	state.Books = res.Books
	state.CurrentPage = page
	state.Pagination = res.Pagination
	c.mu.Unlock()

	c.emit(Event{Kind: FetchSucceeded, Genre: g})
	return nil
}

func (c *Controller) fail(ctx context.Context, g string, err error) {
	c.emit(Event{Kind: FetchFailed, Genre: g, Err: err})
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		c.logger.Debug("fetch canceled", "genre", g)
		return
	}
	c.logger.Warn("genre fetch failed", "genre", g, "error", err)
	if c.notifier != nil {
		c.notifier.Error(c.label(g), services.ErrorMessage(err))
	}
}

func (c *Controller) label(g string) string {
	for _, genre := range c.genres {
		if genre.Value == g {
			return genre.DisplayName()
		}
	}
	return g
}

// pageLocked returns the page for g, creating it on first use. c.mu must be held.
func (c *Controller) pageLocked(g string) *GenrePage {
	p, ok := c.pages[g]
	if !ok {
		p = &GenrePage{}
		c.pages[g] = p
	}
	return p
}

// RefetchVisibleGenres fetches page 1 of every visible genre concurrently.
// A failing genre never affects the others and no error is returned.
func (c *Controller) RefetchVisibleGenres(ctx context.Context) {
	c.FetchVisiblePage(ctx, 1)
}

// FetchVisiblePage fetches the given page of every visible genre concurrently and returns the
// genres that failed. Failures are already notified.
func (c *Controller) FetchVisiblePage(ctx context.Context, page int) []string {
	visible := c.Visible()

	var (
		mu     sync.Mutex
		failed []string
		eg     errgroup.Group
	)
	eg.SetLimit(c.maxConc)
	for _, g := range visible {
		eg.Go(func() error {
			if err := c.FetchGenrePage(ctx, g, page); err != nil {
				mu.Lock()
				failed = append(failed, g)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	return failed
}

// NextPage fetches the page after g's current page, without a refetch cycle.
func (c *Controller) NextPage(ctx context.Context, g string) error {
	cur := c.currentPage(g)
	return c.FetchGenrePage(ctx, g, cur+1)
}

// PrevPage fetches the page before g's current page. It is a no-op on page 1.
func (c *Controller) PrevPage(ctx context.Context, g string) error {
	cur := c.currentPage(g)
	if cur <= 1 {
		return nil
	}
	return c.FetchGenrePage(ctx, g, cur-1)
}

func (c *Controller) currentPage(g string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pages[g]; ok {
		return p.CurrentPage
	}
	return 0
}

// Page returns a copy of g's state and whether it has ever been fetched.
func (c *Controller) Page(g string) (GenrePage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[g]
	if !ok {
		return GenrePage{}, false
	}
	return copyPage(p), true
}

func copyPage(p *GenrePage) GenrePage {
	cp := *p
	cp.Books = append([]models.BookSummary(nil), p.Books...)
	return cp
}

// Loading reports whether any genre has a fetch in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pages {
		if p.Loading {
			return true
		}
	}
	return false
}

// ShowPagination reports whether g's list is longer than one page.
func (c *Controller) ShowPagination(g string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[g]
	return ok && len(p.Books) > c.pageSize
}

// HasNextPage reports whether the backend's pagination block advertises a later page.
func (c *Controller) HasNextPage(g string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[g]
	return ok && p.Pagination.TotalPages > p.CurrentPage
}

// Sections returns the visible, non-empty genres in configured order.
func (c *Controller) Sections() []Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Section
	for _, g := range c.genres {
		if !c.visibleLocked(g.Value) {
			continue
		}
		p, ok := c.pages[g.Value]
		if !ok || len(p.Books) == 0 {
			continue
		}
		out = append(out, Section{Genre: g, Page: copyPage(p)})
	}
	return out
}
