package source

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/local/archivepdf/internal/apperr"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, color.RGBA{200, 10, 10, 255}), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, color.RGBA{10, 200, 10, 128})); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), "")
	if !apperr.IsConfig(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	file := filepath.Join(t.TempDir(), "file.jpg")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(file, ""); !apperr.IsConfig(err) {
		t.Fatalf("expected ConfigError for a regular file, got %v", err)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "B.JPEG", "a.jpg", "notes.txt", "d.Jpg", "scan.tiff"} {
		writeFile(t, dir, name, []byte("x"))
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}
	r, err := New(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	ids, err := r.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"B.JPEG", "a.jpg", "c.png", "d.Jpg"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("List = %v, want %v", ids, want)
	}
}

func TestListUsesManifestOrder(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(t.TempDir(), "order.txt")
	content := "# reviewed order\nz.jpg\n\n  a.jpg  \nm.png\n"
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := New(dir, manifest)
	if err != nil {
		t.Fatal(err)
	}
	ids, err := r.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"z.jpg", "a.jpg", "m.png"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("List = %v, want %v", ids, want)
	}
}

func TestManifestRejectsDuplicatesAndPaths(t *testing.T) {
	for name, content := range map[string]string{
		"duplicate": "a.jpg\nb.jpg\na.jpg\n",
		"path":      "a.jpg\n../b.jpg\n",
	} {
		t.Run(name, func(t *testing.T) {
			manifest := filepath.Join(t.TempDir(), "order.txt")
			if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			r, err := New(t.TempDir(), manifest)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := r.List(); !apperr.IsConfig(err) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestDecodeJPEGAndPNG(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg", jpegBytes(t, 8, 4))
	writeFile(t, dir, "b.png", pngBytes(t, 3, 5))
	// extension lies; content decides
	writeFile(t, dir, "c.jpg", pngBytes(t, 2, 2))
	r, err := New(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		id   string
		kind Kind
		w, h int
	}{
		{"a.jpg", KindJPEG, 8, 4},
		{"b.png", KindPNG, 3, 5},
		{"c.jpg", KindPNG, 2, 2},
	}
	for _, tc := range cases {
		img, info, err := r.Decode(tc.id)
		if err != nil {
			t.Fatalf("%s: %v", tc.id, err)
		}
		if info.Type.Kind != tc.kind {
			t.Fatalf("%s: kind %s, want %s", tc.id, info.Type.Kind, tc.kind)
		}
		if b := img.Bounds(); b.Dx() != tc.w || b.Dy() != tc.h {
			t.Fatalf("%s: bounds %v", tc.id, b)
		}
	}
}

// withMPF inserts an APP2 Multi-Picture Format segment after the SOI marker.
func withMPF(primary []byte) []byte {
	app2 := []byte{0xFF, 0xE2, 0x00, 0x0A, 'M', 'P', 'F', 0x00, 0x00, 0x00, 0x00, 0x00}
	out := append([]byte{}, primary[:2]...)
	out = append(out, app2...)
	return append(out, primary[2:]...)
}

func TestDecodeMultiFrameUsesPrimary(t *testing.T) {
	dir := t.TempDir()
	mpo := append(withMPF(jpegBytes(t, 16, 8)), jpegBytes(t, 4, 4)...)
	writeFile(t, dir, "IMG_0001.JPG", mpo)
	r, err := New(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	img, info, err := r.Decode("IMG_0001.JPG")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !info.Type.MultiFrame {
		t.Fatalf("expected multi-frame detection")
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("expected primary 16x8 frame, got %v", b)
	}
}

func TestDecodeFailuresArePerImage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "corrupt.jpg", append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x01}, 64)...))
	writeFile(t, dir, "text.png", []byte("definitely not an image\n"))
	r, err := New(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"corrupt.jpg", "text.png", "missing.jpg"} {
		_, _, err := r.Decode(id)
		if err == nil {
			t.Fatalf("%s: expected error", id)
		}
		if !apperr.IsDecode(err) || apperr.IsFatal(err) {
			t.Fatalf("%s: expected recoverable DecodeError, got %T", id, err)
		}
	}
}
