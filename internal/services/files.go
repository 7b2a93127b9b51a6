package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Upload kinds and the content types the backend accepts for them.
var (
	coverTypes = []string{"image/jpeg", "image/png"}
	audioTypes = []string{"audio/mpeg"}
	pdfTypes   = []string{"application/pdf"}
)

// upload is a file validated by content sniffing and ready to be attached to a form.
type upload struct {
	field    string
	path     string
	mimeType string
}

// checkUpload sniffs the file at path and rejects it unless it matches one of allowed.
//
// An empty path means no file and returns nil without error.
func checkUpload(op, field, path string, allowed []string) (*upload, error) {
	if path == "" {
		return nil, nil
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, validationError(op, fmt.Sprintf("cannot read %s file: %v", field, err), map[string]string{field: "cannot be read"})
	}
	for _, want := range allowed {
		if mt.Is(want) {
			return &upload{field: field, path: path, mimeType: want}, nil
		}
	}
	return nil, validationError(op,
		fmt.Sprintf("%s has type %s, expected %v", field, mt.String(), allowed),
		map[string]string{field: "has an unsupported file type"})
}

func (u *upload) attach(w *multipart.Writer) error {
	f, err := os.Open(u.path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, u.field, filepath.Base(u.path)))
	h.Set("Content-Type", u.mimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
