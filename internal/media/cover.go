package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	DefaultCoverWidth = 600
	coverQuality      = 85
)

// Downloader fetches a backend asset. [services.Client] satisfies it.
type Downloader interface {
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// SaveCover downloads the cover at asset, scales it down to at most width pixels wide and
// writes it to dest. The output format follows dest's extension, defaulting to JPEG.
func SaveCover(ctx context.Context, d Downloader, asset, dest string, width int) (string, error) {
	if asset == "" {
		return "", fmt.Errorf("book has no cover")
	}
	var buf bytes.Buffer
	if _, err := d.Download(ctx, asset, &buf); err != nil {
		return "", err
	}

	img, err := DecodeCover(&buf, width)
	if err != nil {
		return "", err
	}

	if filepath.Ext(dest) == "" {
		dest += ".jpg"
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if err := imaging.Save(img, dest, imaging.JPEGQuality(coverQuality)); err != nil {
		return "", fmt.Errorf("save cover: %w", err)
	}
	return dest, nil
}

// DecodeCover decodes an image, honoring EXIF orientation, and shrinks it to width.
// Images already narrower than width are left alone.
func DecodeCover(r io.Reader, width int) (image.Image, error) {
	if width <= 0 {
		width = DefaultCoverWidth
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	return img, nil
}

// CoverFileName picks a local file name for a book cover.
func CoverFileName(bookID, title string) string {
	if slug := Slug(title); slug != "" {
		return bookID + "-" + slug + ".jpg"
	}
	return bookID + ".jpg"
}

// Slug lowercases s and reduces it to ASCII letters, digits and single hyphens.
func Slug(s string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, s)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
