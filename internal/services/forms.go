package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/folio/internal/models"
)

const defaultStatus = "draft"

// BookForm is the author-side book create/update payload, sent as multipart/form-data.
type BookForm struct {
	Title           string   `json:"title" validate:"required,max=255"`
	Description     string   `json:"description" validate:"max=5000"`
	ReleaseDate     string   `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	Status          string   `json:"status"`
	PricePerChapter int      `json:"price_per_chapter" validate:"gte=0"`
	AuthorID        string   `json:"author_id" validate:"required"`
	Categories      []string `json:"category" validate:"required,min=1,dive,required"`
	// CoverPath is a local JPEG or PNG; empty keeps the existing cover on update.
	CoverPath string `json:"cover"`
}

func (f BookForm) fields() [][2]string {
	status := f.Status
	if status == "" {
		status = defaultStatus
	}
	return [][2]string{
		{"title", f.Title},
		{"description", f.Description},
		{"release_date", f.ReleaseDate},
		{"status", status},
		{"price_per_chapter", strconv.Itoa(f.PricePerChapter)},
		{"author_id", f.AuthorID},
		{"category", strings.Join(f.Categories, ",")},
	}
}

// EpisodeForm is the author-side episode create/update payload, sent as multipart/form-data.
type EpisodeForm struct {
	BookID      string `json:"book_id" validate:"required"`
	UserID      string `json:"user_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	Content     string `json:"content"`
	IsFree      bool   `json:"is_free"`
	Price       int    `json:"price" validate:"gte=0"`
	ReleaseDate string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	CoverPath   string `json:"cover"`
	AudioPath   string `json:"audio"`
	FilePath    string `json:"file"`
}

func (f EpisodeForm) fields() [][2]string {
	status := f.Status
	if status == "" {
		status = defaultStatus
	}
	price := f.Price
	if f.IsFree {
		price = 0
	}
	return [][2]string{
		{"book_id", f.BookID},
		{"user_id", f.UserID},
		{"title", f.Title},
		{"content", f.Content},
		{"is_free", strconv.FormatBool(f.IsFree)},
		{"price", strconv.Itoa(price)},
		{"release_date", f.ReleaseDate},
		{"status", status},
		{"priority", f.Priority},
	}
}

func (f EpisodeForm) uploads(op string) ([]*upload, error) {
	specs := []struct {
		field, path string
		allowed     []string
	}{
		{"cover", f.CoverPath, coverTypes},
		{"audio", f.AudioPath, audioTypes},
		{"file", f.FilePath, pdfTypes},
	}

	var out []*upload
	for _, s := range specs {
		u, err := checkUpload(op, s.field, s.path, s.allowed)
		if err != nil {
			return nil, err
		}
		if u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

// sendMultipart encodes fields and files into one form body and sends it.
func (c *Client) sendMultipart(ctx context.Context, op, method, path string, fields [][2]string, files []*upload, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return validationError(op, "could not encode form: "+err.Error(), nil)
		}
	}
	for _, f := range files {
		if err := f.attach(w); err != nil {
			return validationError(op, "could not attach "+f.field+": "+err.Error(), map[string]string{f.field: "cannot be read"})
		}
	}
	if err := w.Close(); err != nil {
		return validationError(op, "could not encode form: "+err.Error(), nil)
	}

	return c.do(ctx, op, method, &url.URL{Path: path}, &buf, w.FormDataContentType(), out)
}

// CreateBook validates and uploads a new book, returning its id.
func (c *Client) CreateBook(ctx context.Context, form BookForm) (models.ID, error) {
	return c.writeBook(ctx, "create book", "POST", "/api/books/", form)
}

// UpdateBook validates and replaces the book's editable fields.
func (c *Client) UpdateBook(ctx context.Context, id models.ID, form BookForm) (models.ID, error) {
	if id.IsZero() {
		return "", validationError("update book", "book id is required", map[string]string{"id": "is required"})
	}
	return c.writeBook(ctx, "update book", "PUT", "/api/books/"+url.PathEscape(id.String()), form)
}

func (c *Client) writeBook(ctx context.Context, op, method, path string, form BookForm) (models.ID, error) {
	if err := c.validator.Validate(op, form); err != nil {
		return "", err
	}
	cover, err := checkUpload(op, "cover", form.CoverPath, coverTypes)
	if err != nil {
		return "", err
	}

	var files []*upload
	if cover != nil {
		files = append(files, cover)
	}

	var env bookIDEnvelope
	if err := c.sendMultipart(ctx, op, method, path, form.fields(), files, &env); err != nil {
		return "", err
	}
	if env.Detail == nil {
		return "", missingDetail(op)
	}
	return env.Detail.BookID, nil
}

// CreateEpisode validates and uploads a new episode with its optional cover, audio and PDF.
func (c *Client) CreateEpisode(ctx context.Context, form EpisodeForm) (*models.Episode, error) {
	return c.writeEpisode(ctx, "create episode", "POST", "/api/episodes/", form)
}

// UpdateEpisode validates and replaces an episode.
func (c *Client) UpdateEpisode(ctx context.Context, episodeID models.ID, form EpisodeForm) (*models.Episode, error) {
	if episodeID.IsZero() {
		return nil, validationError("update episode", "episode id is required", map[string]string{"id": "is required"})
	}
	return c.writeEpisode(ctx, "update episode", "PUT", "/api/episodes/"+url.PathEscape(episodeID.String()), form)
}

func (c *Client) writeEpisode(ctx context.Context, op, method, path string, form EpisodeForm) (*models.Episode, error) {
	if err := c.validator.Validate(op, form); err != nil {
		return nil, err
	}
	files, err := form.uploads(op)
	if err != nil {
		return nil, err
	}

	var env episodeEnvelope
	if err := c.sendMultipart(ctx, op, method, path, form.fields(), files, &env); err != nil {
		return nil, err
	}
	// Some handlers answer with only a status code.
	if !hasValue(env.Detail) {
		return &models.Episode{BookID: models.ID(form.BookID), Title: form.Title}, nil
	}
	ep, err := env.episode(op)
	if err != nil {
		// The detail may be a message string rather than the episode.
		return &models.Episode{BookID: models.ID(form.BookID), Title: form.Title}, nil
	}
	return ep, nil
}
