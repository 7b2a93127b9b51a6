package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/folio/internal/browse"
	"github.com/desertthunder/folio/internal/formatter"
	"github.com/desertthunder/folio/internal/media"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/reader"
	"github.com/desertthunder/folio/internal/repositories"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/tasks"
	"github.com/urfave/cli/v3"
)

// BooksBrowse lists books per genre.
func (r *Runner) BooksBrowse(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	r.gate.Resolve(ctx)
	return r.listGenres(ctx, cmd, r.client.ListBooks)
}

// BooksBookmarks lists followed books per genre.
func (r *Runner) BooksBookmarks(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	return r.listGenres(ctx, cmd, browse.Bookmarks(r.client.ListBookmarks, r.store.UserID()))
}

// listGenres runs one browse cycle and prints the non-empty sections.
func (r *Runner) listGenres(ctx context.Context, cmd *cli.Command, fetch browse.FetchFunc) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	userID := r.store.UserID()
	genres := cmd.StringSlice("genre")
	search := cmd.String("search")
	if r.prefs != nil {
		if cmd.Bool("remember") {
			if err := r.prefs.SaveGenreSelection(ctx, userID, genres); err != nil {
				r.logger.Warn("could not save genre selection", "error", err)
			}
			if err := r.prefs.Set(ctx, userID, repositories.PrefLastSearch, search); err != nil {
				r.logger.Warn("could not save search", "error", err)
			}
		} else {
			if len(genres) == 0 {
				if saved, err := r.prefs.GenreSelection(ctx, userID); err == nil {
					genres = saved
				}
			}
			if search == "" {
				if saved, ok, err := r.prefs.Get(ctx, userID, repositories.PrefLastSearch); err == nil && ok {
					search = saved
				}
			}
		}
	}

	opts := browse.OptionsFromConfig(r.config, fetch)
	opts.Notifier = r.notifier
	opts.Logger = r.logger
	opts.Debounce = -1
	controller, err := browse.New(opts)
	if err != nil {
		return err
	}
	defer controller.Close()

	if err := controller.Preset(genres, strings.TrimSpace(search)); err != nil {
		return err
	}
	page := max(cmd.Int("page"), 1)
	if failed := controller.FetchVisiblePage(ctx, page); len(failed) > 0 {
		r.logger.Warn("some genres could not be loaded", "genres", failed, "page", page)
	}

	var sections []formatter.BookSection
	for _, s := range controller.Sections() {
		sections = append(sections, formatter.BookSection{
			Title: s.Genre.DisplayName(),
			Books: s.Page.Books,
			Page:  s.Page.CurrentPage,
			More:  controller.HasNextPage(s.Genre.Value),
		})
	}
	return r.write(formatter.Books(sections, format))
}

// bookWithLocks fetches a book and, when logged in, derives which episodes the user can read.
func (r *Runner) bookWithLocks(ctx context.Context, id models.ID) (*models.BookDetail, *models.CoinLedger, error) {
	detail, err := r.client.GetBook(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	userID := r.store.UserID()
	if userID.IsZero() {
		detail.Episodes = reader.ApplyLocks(detail.Episodes, nil, false)
		return detail, nil, nil
	}

	ledger, err := r.client.GetCoins(ctx, userID)
	if err != nil {
		r.logger.Warn("could not load purchases; paid episodes shown as locked", "error", err)
		ledger = nil
	}
	detail.Episodes = reader.ApplyLocks(detail.Episodes, reader.PurchasedSet(ledger), detail.IsAuthoredBy(userID))
	return detail, ledger, nil
}

func bookArg(cmd *cli.Command) (models.ID, error) {
	id := models.ID(strings.TrimSpace(cmd.StringArg("id")))
	if id.IsZero() {
		return "", fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}
	return id, nil
}

// BooksShow prints a book with its episodes and lock state.
func (r *Runner) BooksShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	id, err := bookArg(cmd)
	if err != nil {
		return err
	}
	r.gate.Resolve(ctx)

	detail, _, err := r.bookWithLocks(ctx, id)
	if err != nil {
		return err
	}
	return r.write(formatter.BookDetail(detail, format))
}

func (r *Runner) bookForm(cmd *cli.Command) services.BookForm {
	return services.BookForm{
		Title:           cmd.String("title"),
		Description:     cmd.String("description"),
		ReleaseDate:     cmd.String("release-date"),
		Status:          cmd.String("status"),
		PricePerChapter: cmd.Int("price"),
		AuthorID:        r.store.UserID().String(),
		Categories:      cmd.StringSlice("genre"),
		CoverPath:       cmd.String("cover"),
	}
}

// BooksCreate publishes a new book.
func (r *Runner) BooksCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	id, err := r.client.CreateBook(ctx, r.bookForm(cmd))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created book %s\n", id)
}

// BooksUpdate edits a book. The backend replaces the whole record, so unset flags keep the current values.
func (r *Runner) BooksUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	id, err := bookArg(cmd)
	if err != nil {
		return err
	}

	current, err := r.client.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if !current.IsAuthoredBy(r.store.UserID()) {
		return fmt.Errorf("%w: you are not the author of %q", shared.ErrInvalidArgument, current.Title)
	}

	form := r.bookForm(cmd)
	if !cmd.IsSet("title") {
		form.Title = current.Title
	}
	if !cmd.IsSet("genre") {
		form.Categories = current.Categories()
	}
	if !cmd.IsSet("description") {
		form.Description = current.Description
	}
	if !cmd.IsSet("price") {
		form.PricePerChapter = int(current.PricePerChapter)
	}
	if !cmd.IsSet("status") && current.Status != "" {
		form.Status = current.Status
	}

	updated, err := r.client.UpdateBook(ctx, id, form)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated book %s\n", updated)
}

// BooksComplete marks a book complete or ongoing.
func (r *Runner) BooksComplete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	id, err := bookArg(cmd)
	if err != nil {
		return err
	}
	complete := !cmd.Bool("undo")
	if err := r.client.SetBookComplete(ctx, id, complete); err != nil {
		return err
	}
	if complete {
		return r.writePlain("✓ Book %s marked complete\n", id)
	}
	return r.writePlain("✓ Book %s marked ongoing\n", id)
}

// BooksFollow toggles the follow state of a book.
func (r *Runner) BooksFollow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	id, err := bookArg(cmd)
	if err != nil {
		return err
	}
	toggle := reader.NewFollowToggle(r.client, r.notifier, r.store.UserID(), id, false)
	if err := toggle.Toggle(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Follow toggled for book %s\n", id)
}

// BooksRate submits a rating.
func (r *Runner) BooksRate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	id, err := bookArg(cmd)
	if err != nil {
		return err
	}
	rating := cmd.IntArg("rating")
	if err := r.client.Rate(ctx, services.RateRequest{UserID: r.store.UserID(), BookID: id, Rating: rating}); err != nil {
		return err
	}
	return r.writePlain("✓ Rated book %s %d★\n", id, rating)
}

// BooksCover downloads the cover and saves it as a resized JPEG.
func (r *Runner) BooksCover(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	id, err := bookArg(cmd)
	if err != nil {
		return err
	}
	detail, err := r.client.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if detail.CoverPath() == "" {
		return fmt.Errorf("%w: %q has no cover", shared.ErrInvalidArgument, detail.Title)
	}

	out := cmd.String("out")
	if out == "" {
		out = media.CoverFileName(id.String(), detail.Title)
	}
	path, err := media.SaveCover(ctx, r.client, detail.CoverPath(), out, cmd.Int("width"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Cover saved to %s\n", path)
}

// BooksExport writes every readable episode of a book to Markdown with progress reporting.
func (r *Runner) BooksExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	id, err := bookArg(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("starting export", "book", id)
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchBook:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SaveCover:
				r.writePlain("🖼  %s\n", update.Message)
			case tasks.ExportEpisodes:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.WriteIndex:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.ExportBook(ctx, progressCh, id, tasks.ExportOpts{
		OutputDir:  cmd.String("dir"),
		UserID:     r.store.UserID(),
		Cover:      !cmd.Bool("no-cover"),
		CoverWidth: media.DefaultCoverWidth,
		Workers:    cmd.Int("workers"),
	})
	close(progressCh)
	<-done
	if err != nil && result == nil {
		return err
	}

	title := "Export Complete!"
	if err != nil {
		title = "Export Incomplete"
	}
	r.writePlain("\n")
	r.writePlainHeader(title)
	r.writePlain("Book: %s\n", result.Book.Title)
	r.writePlain("Directory: %s\n", result.Directory)
	r.writePlain("Exported: %d, failed: %d, locked: %d\n", result.Exported, result.Failed, len(result.Skipped))
	if result.Failed > 0 {
		r.writePlain("\nFailed episodes:\n")
		for _, ep := range result.Episodes {
			if ep.Error != nil {
				r.writePlain("  - %s: %s\n", ep.Episode.Title, services.ErrorMessage(ep.Error))
			}
		}
	}
	if len(result.Skipped) > 0 {
		r.writePlain("\nUnlock locked episodes with 'folio episodes unlock %s <episode>'\n", id)
	}
	return err
}
