package assembler

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/local/archivepdf/internal/models"
)

// ColorMode defines the color mode of the encoded pages
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// Direction says how stored rotation degrees are read.
type Direction string

const (
	Clockwise        Direction = "cw"
	CounterClockwise Direction = "ccw"
)

// Options configures page encoding.
type Options struct {
	Quality   int
	ColorMode ColorMode
	Direction Direction
}

// Assembler turns decoded images into page records. It keeps no per-image state and is
// safe for concurrent use.
type Assembler struct {
	opts Options
}

// New creates an Assembler. Zero values fall back to quality 85, RGB, clockwise.
func New(opts Options) *Assembler {
	if opts.Quality <= 0 {
		opts.Quality = 85
	}
	if opts.ColorMode == "" {
		opts.ColorMode = ColorRGB
	}
	if opts.Direction == "" {
		opts.Direction = Clockwise
	}
	return &Assembler{opts: opts}
}

// Assemble rotates img by the stored degrees, normalizes it for PDF embedding and
// encodes it as one page.
func (a *Assembler) Assemble(id string, img image.Image, degrees int) (models.PageRecord, error) {
	cw := ToClockwise(degrees, a.opts.Direction)

	page := Normalize(img, a.opts.ColorMode)
	page = Rotate(page, cw)

	data, err := EncodeJPEG(page, a.opts.Quality)
	if err != nil {
		return models.PageRecord{}, fmt.Errorf("encode %s: %w", id, err)
	}
	b := page.Bounds()

	log.Debug().
		Str("image", id).
		Int("rotation", cw).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Int("jpeg_size", len(data)).
		Int("quality", a.opts.Quality).
		Msg("assembled page")

	return models.PageRecord{
		ID:       id,
		Data:     data,
		Rotation: cw,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// ToClockwise converts stored degrees to a clockwise quarter-turn count in degrees.
func ToClockwise(degrees int, dir Direction) int {
	deg := ((degrees % 360) + 360) % 360
	if dir == CounterClockwise && deg != 0 {
		deg = 360 - deg
	}
	return deg
}

// Normalize flattens transparency onto white and applies the color mode. Opaque RGB
// input is returned as is.
func Normalize(img image.Image, mode ColorMode) image.Image {
	if mode == ColorGray {
		flat := img
		if !isOpaque(img) {
			flat = Flatten(img)
		}
		b := flat.Bounds()
		gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), flat, b.Min, draw.Src)
		return gray
	}
	if isOpaque(img) {
		return img
	}
	return Flatten(img)
}

// Flatten composites img over an opaque white background.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// Rotate turns img clockwise by a multiple of 90 degrees. 0 returns img untouched.
// Quarter turns map pixel centres onto pixel centres, so nearest-neighbour sampling
// moves pixels without resampling them.
func Rotate(img image.Image, clockwise int) image.Image {
	deg := ((clockwise % 360) + 360) % 360
	if deg == 0 {
		return img
	}
	sb := img.Bounds()
	w, h := float64(sb.Dx()), float64(sb.Dy())

	var (
		size image.Point
		m    f64.Aff3
	)
	// m maps source coordinates (relative to sb.Min) to destination coordinates.
	switch deg {
	case 90:
		size = image.Pt(sb.Dy(), sb.Dx())
		m = f64.Aff3{0, -1, h, 1, 0, 0}
	case 180:
		size = image.Pt(sb.Dx(), sb.Dy())
		m = f64.Aff3{-1, 0, w, 0, -1, h}
	case 270:
		size = image.Pt(sb.Dy(), sb.Dx())
		m = f64.Aff3{0, 1, 0, -1, 0, w}
	default:
		return img
	}
	// account for a non-zero source origin
	m[2] -= m[0]*float64(sb.Min.X) + m[1]*float64(sb.Min.Y)
	m[5] -= m[3]*float64(sb.Min.X) + m[4]*float64(sb.Min.Y)

	dst := newLike(img, image.Rectangle{Max: size})
	draw.NearestNeighbor.Transform(dst, m, img, sb, draw.Src, nil)
	return dst
}

func newLike(img image.Image, r image.Rectangle) draw.Image {
	if _, ok := img.(*image.Gray); ok {
		return image.NewGray(r)
	}
	return image.NewRGBA(r)
}

// EncodeJPEG encodes img at quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: quality}
	if err := jpeg.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
