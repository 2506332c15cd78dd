package verify

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/archivepdf/internal/apperr"
)

// Doc abstracts a reopened PDF.
type Doc interface {
	NumPage() int
	Close() error
}

// Opener abstracts opening a PDF path into a Doc.
type Opener interface {
	Open(path string) (Doc, error)
}

// defaultOpener is provided in doc_open_fitz.go using go-fitz.
var defaultOpener Opener

// setDefaultOpener allows swapping the default opener, useful for tests or alternate backends.
func setDefaultOpener(o Opener) { defaultOpener = o }

// Report is the outcome of checking one PDF.
type Report struct {
	Path       string `json:"path"`
	Expected   int    `json:"expected"`
	Pages      int    `json:"pages"`
	DurationMs int64  `json:"duration_ms"`
}

// PageCount reopens the PDF at path with an independent reader and checks that it has
// exactly expected pages. Any failure is a WriteError.
func PageCount(path string, expected int) (*Report, error) {
	if defaultOpener == nil {
		return nil, &apperr.WriteError{Op: "verify", Path: path, Err: errors.New("no PDF opener configured")}
	}
	start := time.Now()
	d, err := defaultOpener.Open(path)
	if err != nil {
		return nil, &apperr.WriteError{Op: "verify", Path: path, Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	defer d.Close()

	rep := &Report{Path: path, Expected: expected, Pages: d.NumPage(), DurationMs: time.Since(start).Milliseconds()}
	if rep.Pages != expected {
		return rep, &apperr.WriteError{Op: "verify", Path: path, Err: fmt.Errorf("found %d pages, expected %d", rep.Pages, expected)}
	}
	log.Debug().Str("file", path).Int("pages", rep.Pages).Int64("ms", rep.DurationMs).Msg("verified PDF")
	return rep, nil
}
