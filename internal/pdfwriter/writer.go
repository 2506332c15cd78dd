package pdfwriter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/archivepdf/internal/apperr"
	"github.com/local/archivepdf/internal/models"
)

// PartialSuffix marks a PDF that is still being written.
const PartialSuffix = ".partial"

func init() {
	// pdfcpu would otherwise create a config dir under the user's home on first use.
	api.DisableConfigDir()
}

// Result describes a written PDF.
type Result struct {
	Path     string
	Pages    int
	Bytes    int64
	Duration time.Duration
}

// Writer writes output documents as multi-page image PDFs.
type Writer struct {
	dir string
	imp *pdfcpu.Import
}

// New prepares dir for output. Failure to create it is fatal.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &apperr.WriteError{Op: "create output dir", Path: dir, Err: err}
	}
	// Pages take the pixel size of their image (pos:full).
	imp := pdfcpu.DefaultImportConfig()
	return &Writer{dir: dir, imp: imp}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Write renders doc into <dir>/<doc.Name>. The file is written under a partial name
// and renamed once complete and its page count checked.
func (w *Writer) Write(ctx context.Context, doc models.OutputDocument) (Result, error) {
	start := time.Now()
	final := filepath.Join(w.dir, doc.Name)
	tmp := final + PartialSuffix

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(doc.Pages) == 0 {
		return Result{}, &apperr.WriteError{Op: "write", Path: final, Err: fmt.Errorf("document has no pages")}
	}

	if err := w.writeTemp(tmp, doc); err != nil {
		_ = os.Remove(tmp)
		return Result{}, &apperr.WriteError{Op: "write", Path: final, Err: err}
	}

	n, err := api.PageCountFile(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return Result{}, &apperr.WriteError{Op: "read back", Path: final, Err: fmt.Errorf("pdf page count failed: %w", err)}
	}
	if n != len(doc.Pages) {
		_ = os.Remove(tmp)
		return Result{}, &apperr.WriteError{Op: "read back", Path: final, Err: fmt.Errorf("wrote %d pages, expected %d", n, len(doc.Pages))}
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return Result{}, &apperr.WriteError{Op: "rename", Path: final, Err: err}
	}
	st, err := os.Stat(final)
	if err != nil {
		return Result{}, &apperr.WriteError{Op: "stat", Path: final, Err: err}
	}

	res := Result{Path: final, Pages: n, Bytes: st.Size(), Duration: time.Since(start)}
	log.Info().
		Str("document", doc.Name).
		Int("pages", res.Pages).
		Int64("bytes", res.Bytes).
		Str("first", doc.Pages[0].ID).
		Str("last", doc.Pages[len(doc.Pages)-1].ID).
		Dur("took", res.Duration).
		Msg("wrote PDF")
	return res, nil
}

func (w *Writer) writeTemp(path string, doc models.OutputDocument) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	readers := make([]io.Reader, len(doc.Pages))
	for i, p := range doc.Pages {
		readers[i] = bytes.NewReader(p.Data)
	}
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImages(nil, f, readers, w.imp, conf); err != nil {
		f.Close()
		return fmt.Errorf("import images: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}
