package media

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/desertthunder/folio/internal/shared"
	"github.com/ledongthuc/pdf"
)

// PDFText extracts the plain text of every readable page of the PDF at path.
func PDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return pageText(r)
}

// PDFTextFrom extracts text from an in-memory PDF, such as a downloaded episode file.
func PDFTextFrom(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return pageText(r)
}

func pageText(r *pdf.Reader) (string, error) {
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable pages are skipped
			continue
		}
		if text = normalizeText(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: no text in pdf", shared.ErrMalformedResponse)
	}
	return strings.Join(pages, "\n\n"), nil
}

func normalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
