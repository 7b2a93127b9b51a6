package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/services"
	tu "github.com/desertthunder/folio/internal/testing"
	"github.com/disintegration/imaging"
)

func TestToMarkdown(t *testing.T) {
	t.Run("HTML is converted", func(t *testing.T) {
		got := ToMarkdown("<p>The bell rang <strong>twice</strong>.</p>")
		if got != "The bell rang **twice**." {
			t.Errorf("unexpected markdown %q", got)
		}
	})

	t.Run("Plain text passes through", func(t *testing.T) {
		in := "Line one\n\nLine two < three"
		if got := ToMarkdown(in); got != in {
			t.Errorf("expected passthrough, got %q", got)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := ToMarkdown(""); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})
}

func TestEpisodeMarkdown(t *testing.T) {
	ep := models.Episode{
		Title:       "The Crossing",
		ContentText: "<p>Fog.</p>",
		ReleaseDate: models.Timestamp{Time: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
	}
	got := EpisodeMarkdown("Harbor Lights", ep)
	for _, want := range []string{"# Harbor Lights", "## The Crossing", "_Released March 14, 2026_", "Fog."} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	got = EpisodeMarkdown("", models.Episode{Title: "Empty"})
	if !strings.HasPrefix(got, "# Empty") || !strings.Contains(got, "_No text content._") {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestPDFText(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		if _, err := PDFText(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Not a PDF", func(t *testing.T) {
		if _, err := PDFTextFrom([]byte("just some text")); err == nil {
			t.Error("expected error")
		}
	})
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestSaveCover(t *testing.T) {
	b := tu.NewBackend(t)
	data := testPNG(t, 200, 100)
	b.Handle(http.MethodGet, "/uploads/books/cover.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	})
	client, err := services.NewClient(services.ClientOpts{BaseURL: b.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	t.Run("Resizes wide covers", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "covers", "7-harbor")
		out, err := SaveCover(context.Background(), client, "/uploads/books/cover.png", dest, 50)
		if err != nil {
			t.Fatalf("SaveCover failed: %v", err)
		}
		if out != dest+".jpg" {
			t.Errorf("expected .jpg extension, got %s", out)
		}
		img, err := imaging.Open(out)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
			t.Errorf("expected 50x25, got %v", img.Bounds())
		}
	})

	t.Run("Keeps narrow covers", func(t *testing.T) {
		img, err := DecodeCover(bytes.NewReader(data), 400)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if img.Bounds().Dx() != 200 {
			t.Errorf("expected original width, got %d", img.Bounds().Dx())
		}
	})

	t.Run("Missing asset", func(t *testing.T) {
		if _, err := SaveCover(context.Background(), client, "/uploads/books/gone.png", filepath.Join(t.TempDir(), "x.jpg"), 0); err == nil {
			t.Error("expected error for 404")
		}
		if _, err := SaveCover(context.Background(), client, "", "x.jpg", 0); err == nil {
			t.Error("expected error for empty asset")
		}
	})

	t.Run("Not an image", func(t *testing.T) {
		if _, err := DecodeCover(strings.NewReader("nope"), 10); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestCoverFileName(t *testing.T) {
	tests := map[string]string{
		"Harbor Lights!":  "7-harbor-lights.jpg",
		"  The -- Bell  ": "7-the-bell.jpg",
		"":                "7.jpg",
	}
	for in, want := range tests {
		if got := CoverFileName("7", in); got != want {
			t.Errorf("CoverFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func checkin(y int, m time.Month, d int) models.Transaction {
	return models.Transaction{
		Type:      models.TxDailyCheckin,
		Amount:    10,
		CreatedAt: models.Timestamp{Time: time.Date(y, m, d, 9, 30, 0, 0, time.Local)},
	}
}

func TestCalendar(t *testing.T) {
	ledger := models.CoinLedger{Transactions: []models.Transaction{
		checkin(2026, time.October, 1),
		checkin(2026, time.October, 12),
		checkin(2026, time.October, 13),
		checkin(2026, time.September, 30),
		{Type: models.TxPurchase, CreatedAt: models.Timestamp{Time: time.Date(2026, 10, 2, 0, 0, 0, 0, time.Local)}},
	}}
	now := time.Date(2026, time.October, 14, 18, 0, 0, 0, time.Local)

	cal := NewCalendar(ledger, now)

	t.Run("Layout", func(t *testing.T) {
		if len(cal.Weeks) != 5 {
			t.Fatalf("expected 5 weeks, got %d", len(cal.Weeks))
		}
		first := cal.Weeks[0][time.Thursday]
		if first.Date.Day() != 1 || !first.CheckedIn {
			t.Errorf("unexpected first day %+v", first)
		}
		if !cal.Weeks[0][time.Sunday].Date.IsZero() {
			t.Error("days before the 1st should be empty")
		}
		if !cal.Weeks[2][time.Wednesday].Today {
			t.Error("expected the 14th to be today")
		}
	})

	t.Run("Counts", func(t *testing.T) {
		if got := cal.CheckedInDays(); got != 3 {
			t.Errorf("expected 3 check-ins, got %d", got)
		}
	})

	t.Run("String", func(t *testing.T) {
		out := cal.String()
		for _, want := range []string{"October 2026", " 1*", "13*", "14?"} {
			if !strings.Contains(out, want) {
				t.Errorf("missing %q in:\n%s", want, out)
			}
		}
	})

	t.Run("Streak", func(t *testing.T) {
		if got := Streak(ledger, now); got != 2 {
			t.Errorf("expected streak 2, got %d", got)
		}
		if got := Streak(ledger, now.AddDate(0, 0, 2)); got != 0 {
			t.Errorf("expected broken streak, got %d", got)
		}
	})
}
