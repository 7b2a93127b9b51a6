package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/folio/internal/media"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/reader"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/urfave/cli/v3"
)

func episodeArgs(cmd *cli.Command) (book, episode models.ID, err error) {
	book = models.ID(strings.TrimSpace(cmd.StringArg("book")))
	episode = models.ID(strings.TrimSpace(cmd.StringArg("episode")))
	switch {
	case book.IsZero():
		return "", "", fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	case episode.IsZero():
		return "", "", fmt.Errorf("%w: episode id", shared.ErrMissingArgument)
	}
	return book, episode, nil
}

// shelf loads a book with lock state derived from the user's purchases.
func (r *Runner) shelf(ctx context.Context, bookID models.ID) (*reader.Shelf, error) {
	detail, err := r.client.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	ledger, err := r.client.GetCoins(ctx, r.store.UserID())
	if err != nil {
		return nil, err
	}
	return reader.NewShelf(detail, ledger, r.store.UserID(), r.notifier), nil
}

// EpisodesRead prints an unlocked episode as Markdown and records it in the reading history.
func (r *Runner) EpisodesRead(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	bookID, episodeID, err := episodeArgs(cmd)
	if err != nil {
		return err
	}

	shelf, err := r.shelf(ctx, bookID)
	if err != nil {
		return err
	}
	listed, ok := shelf.Episode(episodeID)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrEpisodeNotFound, episodeID)
	}
	if listed.Locked {
		return fmt.Errorf("%w: %q costs %d coins; run `folio episodes unlock %s %s`",
			shared.ErrInvalidArgument, listed.Title, listed.EffectivePrice(), bookID, episodeID)
	}

	ep, err := r.client.GetEpisode(ctx, bookID, episodeID)
	if err != nil {
		return err
	}
	if err := r.client.LogHistory(ctx, services.HistoryRequest{
		UserID:    r.store.UserID(),
		BookID:    bookID,
		EpisodeID: episodeID,
	}); err != nil {
		r.logger.Debug("history not recorded", "episode", episodeID, "error", err)
	}

	if cmd.Bool("pdf") {
		if ep.FileURL == "" {
			return fmt.Errorf("%w: %q has no PDF", shared.ErrInvalidArgument, ep.Title)
		}
		var buf bytes.Buffer
		if _, err := r.client.Download(ctx, ep.FileURL, &buf); err != nil {
			return err
		}
		text, err := media.PDFTextFrom(buf.Bytes())
		if err != nil {
			return err
		}
		ep.ContentText = text
	}

	if err := r.writePlain("%s", media.EpisodeMarkdown(shelf.Book().Title, *ep)); err != nil {
		return err
	}

	switch kind := cmd.String("open"); kind {
	case "":
	case "audio", "file":
		asset := ep.AudioURL
		if kind == "file" {
			asset = ep.FileURL
		}
		if asset == "" {
			r.notifier.Warn("Nothing to open", fmt.Sprintf("%s has no %s", ep.Title, kind))
			return nil
		}
		return shared.OpenURL(r.client.AssetURL(asset))
	default:
		return fmt.Errorf("%w: --open must be audio or file, got %q", shared.ErrInvalidArgument, kind)
	}
	return nil
}

// EpisodesUnlock buys a locked episode after an explicit confirmation.
func (r *Runner) EpisodesUnlock(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	bookID, episodeID, err := episodeArgs(cmd)
	if err != nil {
		return err
	}

	shelf, err := r.shelf(ctx, bookID)
	if err != nil {
		return err
	}
	flow, err := shelf.Flow(episodeID, r.client, reader.FlowConfig{Logger: r.logger})
	if err != nil {
		return err
	}
	prompt, err := flow.RequestUnlock()
	if err != nil {
		return err
	}
	if prompt.Insufficient {
		return fmt.Errorf("%w: %q costs %d coins, balance is %d",
			shared.ErrInsufficientCoins, prompt.Title, prompt.Price, prompt.Balance)
	}

	if !cmd.Bool("yes") {
		ok, err := r.confirm(fmt.Sprintf("Unlock %q for %d coins (balance %d)?", prompt.Title, prompt.Price, prompt.Balance))
		if err != nil {
			return err
		}
		if !ok {
			flow.Cancel()
			return shared.ErrNotConfirmed
		}
	}

	if err := flow.Confirm(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Unlocked %q, balance %d\n", prompt.Title, shelf.Balance())
}

func (r *Runner) episodeForm(cmd *cli.Command, bookID models.ID) (services.EpisodeForm, error) {
	content := cmd.String("content")
	if path := cmd.String("content-file"); path != "" {
		data, err := shared.VerifyAndReadFile(path)
		if err != nil {
			return services.EpisodeForm{}, err
		}
		content = string(data)
	}
	return services.EpisodeForm{
		BookID:      bookID.String(),
		UserID:      r.store.UserID().String(),
		Title:       cmd.String("title"),
		Content:     content,
		IsFree:      cmd.Bool("free"),
		Price:       cmd.Int("price"),
		ReleaseDate: cmd.String("release-date"),
		Status:      cmd.String("status"),
		Priority:    cmd.String("priority"),
		CoverPath:   cmd.String("cover"),
		AudioPath:   cmd.String("audio"),
		FilePath:    cmd.String("file"),
	}, nil
}

// EpisodesCreate publishes a new episode of a book.
func (r *Runner) EpisodesCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	bookID := models.ID(strings.TrimSpace(cmd.StringArg("book")))
	if bookID.IsZero() {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}
	form, err := r.episodeForm(cmd, bookID)
	if err != nil {
		return err
	}
	ep, err := r.client.CreateEpisode(ctx, form)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created episode %s (%s)\n", ep.ID, ep.Title)
}

// EpisodesUpdate replaces an episode. Unset text flags keep the current values.
func (r *Runner) EpisodesUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	bookID, episodeID, err := episodeArgs(cmd)
	if err != nil {
		return err
	}
	form, err := r.episodeForm(cmd, bookID)
	if err != nil {
		return err
	}

	current, err := r.client.GetEpisode(ctx, bookID, episodeID)
	if err != nil {
		return err
	}
	if !cmd.IsSet("title") {
		form.Title = current.Title
	}
	if !cmd.IsSet("content") && !cmd.IsSet("content-file") {
		form.Content = current.ContentText
	}
	if !cmd.IsSet("price") {
		form.Price = int(current.Price)
	}
	if !cmd.IsSet("free") {
		form.IsFree = bool(current.IsFree)
	}
	if !cmd.IsSet("status") && current.Status != "" {
		form.Status = current.Status
	}
	if !cmd.IsSet("priority") {
		form.Priority = current.Priority
	}

	ep, err := r.client.UpdateEpisode(ctx, episodeID, form)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated episode %s (%s)\n", ep.ID, ep.Title)
}
