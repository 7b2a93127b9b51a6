// package tasks implements long-running account operations with progress reporting.
//
// The core abstraction is [Engine], which snapshots account state and exports books to disk.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Backend is the subset of [services.Client] the tasks depend on.
type Backend interface {
	GetBook(ctx context.Context, id models.ID) (*models.BookDetail, error)
	GetEpisode(ctx context.Context, bookID, episodeID models.ID) (*models.Episode, error)
	GetCoins(ctx context.Context, userID models.ID) (*models.CoinLedger, error)
	ListHistory(ctx context.Context, userID models.ID) ([]models.HistoryEntry, error)
	ListNotifications(ctx context.Context, userID models.ID) ([]models.Notification, error)
	ListBookmarks(ctx context.Context, q models.ListQuery) (*models.BookPage, error)
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// EndpointResult records a failed fetch that did not abort the operation.
type EndpointResult struct {
	Endpoint string
	Error    error
}

// DumpResult is a snapshot of everything the backend knows about the user.
type DumpResult struct {
	Profile       models.User
	Coins         *models.CoinLedger
	History       []models.HistoryEntry
	Notifications []models.Notification
	Bookmarks     map[string][]models.BookSummary
	Errors        []EndpointResult
}

// DumpData is the JSON form of [DumpResult].
type DumpData struct {
	Profile       models.User                     `json:"profile"`
	Coins         *models.CoinLedger              `json:"coins,omitempty"`
	History       []models.HistoryEntry           `json:"history,omitempty"`
	Notifications []models.Notification           `json:"notifications,omitempty"`
	Bookmarks     map[string][]models.BookSummary `json:"bookmarks,omitempty"`
	Errors        []map[string]string             `json:"errors,omitempty"`
}

// Data converts the result for serialization.
func (r *DumpResult) Data() DumpData {
	d := DumpData{
		Profile:       r.Profile,
		Coins:         r.Coins,
		History:       r.History,
		Notifications: r.Notifications,
		Bookmarks:     r.Bookmarks,
	}
	for _, e := range r.Errors {
		d.Errors = append(d.Errors, map[string]string{"endpoint": e.Endpoint, "error": e.Error.Error()})
	}
	return d
}

type dumpOperation struct {
	name    string
	phase   Phase
	message string
	fetch   func(ctx context.Context) error
}

// Engine runs account tasks against the backend.
type Engine struct {
	backend Backend
	logger  *log.Logger
	workers int
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(b Backend, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Engine{backend: b, logger: shared.WithLogger(logger, "component", "tasks"), workers: defaultWorkers}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Dump fetches the user's coins, history, notifications and per-genre bookmarks.
//
// Individual endpoint failures are collected in [DumpResult.Errors]; only a missing user or a
// canceled context fails the whole dump.
func (e *Engine) Dump(ctx context.Context, progress chan<- ProgressUpdate, user models.User, genres []models.Genre) (*DumpResult, error) {
	if e.backend == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if user.ID.IsZero() {
		return nil, fmt.Errorf("%w: dump requires a logged-in user", shared.ErrNotAuthenticated)
	}

	result := &DumpResult{
		Profile:   user,
		Bookmarks: make(map[string][]models.BookSummary),
		Errors:    []EndpointResult{},
	}

	ops := []dumpOperation{
		{name: "profile", phase: FetchProfile, message: "Reading profile...", fetch: func(context.Context) error { return nil }},
		{name: "coins", phase: FetchCoins, message: "Fetching coins...", fetch: func(ctx context.Context) (err error) {
			result.Coins, err = e.backend.GetCoins(ctx, user.ID)
			return err
		}},
		{name: "history", phase: FetchHistory, message: "Fetching history...", fetch: func(ctx context.Context) (err error) {
			result.History, err = e.backend.ListHistory(ctx, user.ID)
			return err
		}},
		{name: "notifications", phase: FetchNotifications, message: "Fetching notifications...", fetch: func(ctx context.Context) (err error) {
			result.Notifications, err = e.backend.ListNotifications(ctx, user.ID)
			return err
		}},
	}

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(progress, operationUpdate(op, i+1, len(ops)))
		if err := op.fetch(ctx); err != nil {
			e.logger.Warn("dump endpoint failed", "endpoint", op.name, "error", err)
			result.Errors = append(result.Errors, EndpointResult{Endpoint: op.name, Error: err})
		}
	}

	var (
		mu   sync.Mutex
		done int
		eg   errgroup.Group
	)
	eg.SetLimit(e.workers)
	for _, g := range genres {
		eg.Go(func() error {
			page, err := e.backend.ListBookmarks(ctx, models.ListQuery{Category: g.Value, Page: 1, UserID: user.ID})

			mu.Lock()
			defer mu.Unlock()
			done++
			e.sendProgress(progress, bookmarksUpdate(done, len(genres), g))
			if err != nil {
				result.Errors = append(result.Errors, EndpointResult{Endpoint: "bookmarks/" + g.Value, Error: err})
				return nil
			}
			if len(page.Books) > 0 {
				result.Bookmarks[g.Value] = page.Books
			}
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
