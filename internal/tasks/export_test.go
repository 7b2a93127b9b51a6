package tasks

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
	tu "github.com/desertthunder/folio/internal/testing"
)

func bookFixture(b *tu.Backend) {
	b.JSON(http.MethodGet, "/api/books/9", http.StatusOK, map[string]any{
		"detail": map[string]any{
			"id":        9,
			"title":     "Harbor Lights",
			"author_id": 3,
			"pen_name":  "M. Reyes",
			"cover_url": "/uploads/books/harbor.png",
			"episodes": []map[string]any{
				{"id": 1, "title": "Arrival", "is_free": 1},
				{"id": 2, "title": "Fog", "price": 5},
				{"id": 3, "title": "Tide", "price": "5"},
				{"id": 4, "title": "Lantern", "price": 0},
			},
		},
	})
	b.JSON(http.MethodGet, "/api/coins/42", http.StatusOK, map[string]any{
		"detail": map[string]any{
			"totalCoins":   20,
			"transactions": []map[string]any{{"type": "purchase", "amount": 5, "episode_id": 2}},
		},
	})
	b.JSON(http.MethodGet, "/api/episodes/9/1", http.StatusOK, map[string]any{
		"detail": map[string]any{"id": 1, "book_id": 9, "title": "Arrival", "content_text": "<p>Rain on the pier.</p>"},
	})
	b.JSON(http.MethodGet, "/api/episodes/9/2", http.StatusOK, map[string]any{
		"detail": []map[string]any{{"id": 2, "book_id": 9, "title": "Fog", "content_text": "Grey morning."}},
	})
	b.JSON(http.MethodGet, "/api/episodes/9/4", http.StatusInternalServerError, map[string]string{"message": "episode store down"})
}

func coverPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 80, 40))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestExportBook(t *testing.T) {
	t.Run("Exports unlocked episodes", func(t *testing.T) {
		b := tu.NewBackend(t)
		bookFixture(b)
		cover := coverPNG(t)
		b.Handle(http.MethodGet, "/uploads/books/harbor.png", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(cover)
		})

		dir := filepath.Join(t.TempDir(), "out")
		progress := make(chan ProgressUpdate, 32)
		result, err := newEngine(t, b).ExportBook(context.Background(), progress, "9", ExportOpts{
			OutputDir: dir, UserID: "42", Cover: true, CoverWidth: 40, Workers: 2,
		})
		if err != nil {
			t.Fatalf("ExportBook failed: %v", err)
		}

		if result.Exported != 2 || result.Failed != 1 {
			t.Errorf("expected 2 exported and 1 failed, got %d/%d", result.Exported, result.Failed)
		}
		if len(result.Skipped) != 1 || result.Skipped[0] != "3" {
			t.Errorf("expected episode 3 skipped, got %v", result.Skipped)
		}
		if b.Count(http.MethodGet, "/api/episodes/9/3") != 0 {
			t.Error("locked episode must not be fetched")
		}
		if len(b.Requests()) == 0 {
			t.Fatal("no requests recorded")
		}
		for _, r := range b.Requests() {
			if r.Method == http.MethodPost {
				t.Errorf("export must not write to the backend, got POST %s", r.Path)
			}
		}

		tu.AssertFileExists(t, filepath.Join(dir, "001-arrival.md"))
		tu.AssertFileExists(t, filepath.Join(dir, "002-fog.md"))
		tu.AssertFileExists(t, filepath.Join(dir, "cover.jpg"))
		if _, err := os.Stat(filepath.Join(dir, "003-tide.md")); err == nil {
			t.Error("locked episode should not be written")
		}

		arrival := tu.MustReadFile(t, filepath.Join(dir, "001-arrival.md"))
		if !strings.Contains(arrival, "Rain on the pier.") || strings.Contains(arrival, "<p>") {
			t.Errorf("expected converted markdown, got:\n%s", arrival)
		}

		index := tu.MustReadFile(t, result.Index)
		for _, want := range []string{"![Cover](cover.jpg)", "[Arrival](001-arrival.md)", "[Fog](002-fog.md)", "Tide (not exported)", "Lantern (not exported)"} {
			if !strings.Contains(index, want) {
				t.Errorf("index missing %q:\n%s", want, index)
			}
		}

		phases := map[Phase]bool{}
		for _, u := range drain(progress) {
			phases[u.Phase] = true
		}
		for _, p := range []Phase{FetchBook, SaveCover, ExportEpisodes, WriteIndex} {
			if !phases[p] {
				t.Errorf("missing %s progress", p)
			}
		}
	})

	t.Run("Author reads everything", func(t *testing.T) {
		b := tu.NewBackend(t)
		bookFixture(b)
		b.JSON(http.MethodGet, "/api/coins/3", http.StatusOK, map[string]any{"detail": map[string]any{"totalCoins": 0}})
		b.JSON(http.MethodGet, "/api/episodes/9/3", http.StatusOK, map[string]any{"detail": map[string]any{"id": 3, "title": "Tide"}})

		result, err := newEngine(t, b).ExportBook(context.Background(), nil, "9", ExportOpts{OutputDir: t.TempDir(), UserID: "3"})
		if err != nil {
			t.Fatalf("ExportBook failed: %v", err)
		}
		if len(result.Skipped) != 0 || result.Exported != 3 {
			t.Errorf("expected 3 exported and none skipped, got %d exported, skipped %v", result.Exported, result.Skipped)
		}
	})

	t.Run("Ledger failure skips paid episodes", func(t *testing.T) {
		b := tu.NewBackend(t)
		bookFixture(b)
		b.JSON(http.MethodGet, "/api/coins/42", http.StatusBadGateway, map[string]string{"message": "bad gateway"})

		result, err := newEngine(t, b).ExportBook(context.Background(), nil, "9", ExportOpts{OutputDir: t.TempDir(), UserID: "42"})
		if err != nil {
			t.Fatalf("ExportBook failed: %v", err)
		}
		if len(result.Skipped) != 2 {
			t.Errorf("expected paid episodes skipped, got %v", result.Skipped)
		}
	})

	t.Run("Default directory", func(t *testing.T) {
		b := tu.NewBackend(t)
		bookFixture(b)
		tempDir := t.TempDir()
		originalDir := tu.MustGetwd(t)
		tu.MustChdir(t, tempDir)
		defer tu.MustChdir(t, originalDir)

		result, err := newEngine(t, b).ExportBook(context.Background(), nil, "9", ExportOpts{})
		if err != nil {
			t.Fatalf("ExportBook failed: %v", err)
		}
		if result.Directory != "9-harbor-lights" {
			t.Errorf("unexpected directory %q", result.Directory)
		}
		tu.AssertDirExists(t, result.Directory)
	})

	t.Run("Book not found", func(t *testing.T) {
		b := tu.NewBackend(t)
		_, err := newEngine(t, b).ExportBook(context.Background(), nil, "404", ExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrBookNotFound) {
			t.Errorf("expected ErrBookNotFound, got %v", err)
		}
	})

	t.Run("Missing id", func(t *testing.T) {
		_, err := NewEngine(&fakeBackend{}, nil).ExportBook(context.Background(), nil, "", ExportOpts{})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

// fakeBackend satisfies Backend without a server; every call fails.
type fakeBackend struct{}

var errFake = errors.New("fake backend")

func (fakeBackend) GetBook(context.Context, models.ID) (*models.BookDetail, error) { return nil, errFake }
func (fakeBackend) GetEpisode(context.Context, models.ID, models.ID) (*models.Episode, error) {
	return nil, errFake
}
func (fakeBackend) GetCoins(context.Context, models.ID) (*models.CoinLedger, error) { return nil, errFake }
func (fakeBackend) ListHistory(context.Context, models.ID) ([]models.HistoryEntry, error) {
	return nil, errFake
}
func (fakeBackend) ListNotifications(context.Context, models.ID) ([]models.Notification, error) {
	return nil, errFake
}
func (fakeBackend) ListBookmarks(context.Context, models.ListQuery) (*models.BookPage, error) {
	return nil, errFake
}
func (fakeBackend) Download(context.Context, string, io.Writer) (int64, error) { return 0, errFake }
