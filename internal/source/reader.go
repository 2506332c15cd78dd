package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/archivepdf/internal/apperr"
)

// Extensions recognised when listing a directory (compared case-insensitively).
var Extensions = []string{".jpg", ".jpeg", ".png"}

// Info describes a decoded source file.
type Info struct {
	Type  TypeInfo
	Bytes int64
}

// Reader resolves the ordered identifier list of a run and decodes images on demand.
type Reader struct {
	dir      string
	manifest string
}

// New checks that dir is a readable directory. manifest may be empty.
func New(dir, manifest string) (*Reader, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, &apperr.ConfigError{Field: "input", Message: "input directory not accessible", Err: err}
	}
	if !st.IsDir() {
		return nil, apperr.Configf("input", "%s is not a directory", dir)
	}
	return &Reader{dir: dir, manifest: manifest}, nil
}

// Dir returns the input directory.
func (r *Reader) Dir() string { return r.dir }

// Path returns the on-disk path of id.
func (r *Reader) Path(id string) string { return filepath.Join(r.dir, id) }

// List returns the identifiers to process in review order.
func (r *Reader) List() ([]string, error) {
	if r.manifest != "" {
		return readManifest(r.manifest)
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, &apperr.ConfigError{Field: "input", Message: "cannot list input directory", Err: err}
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !HasImageExt(e.Name()) {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	log.Info().Str("input", r.dir).Int("images", len(ids)).Msg("listed input directory")
	return ids, nil
}

// HasImageExt reports whether name carries a recognised image extension.
func HasImageExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// readManifest parses one identifier per line; blank lines and # comments are skipped.
func readManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &apperr.ConfigError{Field: "manifest", Message: "cannot open manifest", Err: err}
	}
	defer f.Close()

	var ids []string
	seen := map[string]int{}
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		id := strings.TrimSpace(sc.Text())
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		if id != filepath.Base(id) || strings.ContainsAny(id, `/\`) {
			return nil, apperr.Configf("manifest", "line %d: %q is not a bare filename", line, id)
		}
		if prev, dup := seen[id]; dup {
			return nil, apperr.Configf("manifest", "line %d: %q already listed on line %d", line, id, prev)
		}
		seen[id] = line
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, &apperr.ConfigError{Field: "manifest", Message: "cannot read manifest", Err: err}
	}
	log.Info().Str("manifest", path).Int("images", len(ids)).Msg("loaded manifest")
	return ids, nil
}

// Decode loads id and returns its primary frame. Failures are *apperr.DecodeError.
func (r *Reader) Decode(id string) (image.Image, Info, error) {
	data, err := os.ReadFile(r.Path(id))
	if err != nil {
		return nil, Info{}, &apperr.DecodeError{ID: id, Err: err}
	}
	info := Info{Type: Detect(id, data), Bytes: int64(len(data))}
	img, err := DecodePrimary(data, info.Type)
	if err != nil {
		return nil, info, &apperr.DecodeError{ID: id, Err: err}
	}
	if info.Type.MultiFrame {
		log.Debug().Str("image", id).Msg("multi-frame container, using primary frame")
	}
	return img, info, nil
}

// DecodePrimary decodes the first (full resolution) frame of data. The JPEG decoder
// stops at the primary frame's EOI marker, so frames appended by MPO containers are
// never read.
func DecodePrimary(data []byte, t TypeInfo) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch t.Kind {
	case KindJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case KindPNG:
		img, err = png.Decode(bytes.NewReader(data))
	default:
		return nil, errors.New(t.Description)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", t.Kind, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, errors.New("image has no pixels")
	}
	return img, nil
}
