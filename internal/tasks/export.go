package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/folio/internal/formatter"
	"github.com/desertthunder/folio/internal/media"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/reader"
	"github.com/desertthunder/folio/internal/shared"
	"golang.org/x/sync/errgroup"
)

// ExportOpts contains configuration for a book export.
type ExportOpts struct {
	OutputDir  string // Directory to write into (default: {bookID}-{slug})
	UserID     models.ID
	Cover      bool // Download and resize the cover
	CoverWidth int
	Workers    int // Concurrent episode fetches (default: 4, max: 10)
}

// EpisodeResult is the outcome of exporting one episode.
type EpisodeResult struct {
	Episode models.Episode
	File    string
	Error   error
}

// ExportResult summarizes a book export.
type ExportResult struct {
	Book       *models.BookDetail
	Directory  string
	Index      string
	CoverImage string
	Episodes   []EpisodeResult
	Exported   int
	Failed     int
	Skipped    []models.ID // locked episodes
}

// ExportBook writes every episode the user can read to Markdown files, plus a README index.
//
// Locked episodes are skipped, not purchased. A failing episode is recorded and the export
// continues; the error return is reserved for failures that leave nothing useful on disk.
func (e *Engine) ExportBook(ctx context.Context, progress chan<- ProgressUpdate, bookID models.ID, opts ExportOpts) (*ExportResult, error) {
	if e.backend == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if bookID.IsZero() {
		return nil, fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}
	if opts.Workers <= 0 {
		opts.Workers = e.workers
	}
	if opts.Workers > 10 {
		opts.Workers = 10
	}

	e.sendProgress(progress, fetchBookUpdate(nil))
	detail, err := e.backend.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, fetchBookUpdate(detail))

	var ledger *models.CoinLedger
	if !opts.UserID.IsZero() {
		if ledger, err = e.backend.GetCoins(ctx, opts.UserID); err != nil {
			e.logger.Warn("could not load purchases; paid episodes will be skipped", "error", err)
			ledger = nil
		}
	}
	episodes := reader.ApplyLocks(detail.Episodes, reader.PurchasedSet(ledger), detail.IsAuthoredBy(opts.UserID))

	if opts.OutputDir == "" {
		opts.OutputDir = bookID.String()
		if slug := media.Slug(detail.Title); slug != "" {
			opts.OutputDir += "-" + slug
		}
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{Book: detail, Directory: opts.OutputDir}

	var coverFile string
	if opts.Cover && detail.CoverPath() != "" {
		path, err := media.SaveCover(ctx, e.backend, detail.CoverPath(), filepath.Join(opts.OutputDir, "cover.jpg"), opts.CoverWidth)
		e.sendProgress(progress, saveCoverUpdate(path, err))
		if err != nil {
			e.logger.Warn("cover download failed", "book", bookID, "error", err)
		} else {
			coverFile = filepath.Base(path)
			result.CoverImage = path
		}
	}

	type job struct {
		index int
		ep    models.Episode
	}
	var jobs []job
	for i, ep := range episodes {
		if ep.Locked {
			result.Skipped = append(result.Skipped, ep.ID)
			continue
		}
		jobs = append(jobs, job{index: i, ep: ep})
	}

	results := make([]EpisodeResult, len(jobs))
	var (
		mu   sync.Mutex
		done int
		eg   errgroup.Group
	)
	eg.SetLimit(opts.Workers)
	for n, j := range jobs {
		eg.Go(func() error {
			if ctx.Err() != nil {
				results[n] = EpisodeResult{Episode: j.ep, Error: ctx.Err()}
				return nil
			}
			res := e.exportEpisode(ctx, opts.OutputDir, detail.Title, j.index, j.ep)
			results[n] = res

			mu.Lock()
			done++
			e.sendProgress(progress, episodeExportedUpdate(done, len(jobs), j.ep, res.Error))
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	files := make(map[models.ID]string)
	for _, r := range results {
		if r.Error != nil {
			result.Failed++
			continue
		}
		result.Exported++
		files[r.Episode.ID] = filepath.Base(r.File)
	}
	result.Episodes = results

	if err := ctx.Err(); err != nil {
		return result, err
	}

	index, err := formatter.WriteBookIndex(opts.OutputDir, detail, files, coverFile)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to write index: %w", err)
	}
	result.Index = index
	e.sendProgress(progress, writeIndexUpdate(index))
	return result, nil
}

// exportEpisode fetches the full episode and writes it. PDF-only episodes have their text extracted.
func (e *Engine) exportEpisode(ctx context.Context, dir, title string, index int, listed models.Episode) EpisodeResult {
	res := EpisodeResult{Episode: listed}

	ep, err := e.backend.GetEpisode(ctx, listed.BookID, listed.ID)
	if err != nil {
		res.Error = err
		return res
	}
	if ep.Title == "" {
		ep.Title = listed.Title
	}
	if ep.ContentText == "" && ep.FileURL != "" {
		text, err := e.pdfText(ctx, ep.FileURL)
		if err != nil {
			e.logger.Debug("pdf text unavailable", "episode", ep.ID, "error", err)
		} else {
			ep.ContentText = text
		}
	}
	res.Episode = *ep

	path, err := formatter.WriteEpisodeFile(dir, index, title, *ep)
	if err != nil {
		res.Error = err
		return res
	}
	res.File = path
	return res
}

func (e *Engine) pdfText(ctx context.Context, asset string) (string, error) {
	var buf bytes.Buffer
	if _, err := e.backend.Download(ctx, asset, &buf); err != nil {
		return "", err
	}
	if buf.Len() == 0 {
		return "", errors.New("empty file")
	}
	return media.PDFTextFrom(buf.Bytes())
}
