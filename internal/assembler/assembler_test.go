package assembler

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// numbered builds an opaque w×h image whose pixel (x,y) encodes its own coordinates.
func numbered(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	return img
}

func TestRotateQuarterTurns(t *testing.T) {
	const w, h = 3, 2
	src := numbered(w, h)
	cases := []struct {
		deg  int
		size image.Point
		// from returns the source pixel that should land at destination (x,y)
		from func(x, y int) (int, int)
	}{
		{90, image.Pt(h, w), func(x, y int) (int, int) { return y, h - 1 - x }},
		{180, image.Pt(w, h), func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }},
		{270, image.Pt(h, w), func(x, y int) (int, int) { return w - 1 - y, x }},
	}
	for _, tc := range cases {
		got := Rotate(src, tc.deg)
		b := got.Bounds()
		if b.Dx() != tc.size.X || b.Dy() != tc.size.Y {
			t.Fatalf("%d: size %v, want %v", tc.deg, b.Size(), tc.size)
		}
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				sx, sy := tc.from(x, y)
				want := src.RGBAAt(sx, sy)
				r, g, bl, a := got.At(b.Min.X+x, b.Min.Y+y).RGBA()
				gotC := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), uint8(a >> 8)}
				if gotC != want {
					t.Fatalf("%d: dst(%d,%d) = %v, want src(%d,%d) = %v", tc.deg, x, y, gotC, sx, sy, want)
				}
			}
		}
	}
}

func TestRotateClockwiseStrip(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	strip := image.NewRGBA(image.Rect(0, 0, 2, 1))
	strip.SetRGBA(0, 0, red)
	strip.SetRGBA(1, 0, blue)

	got := Rotate(strip, 90).(*image.RGBA)
	if got.RGBAAt(0, 0) != red || got.RGBAAt(0, 1) != blue {
		t.Fatalf("clockwise turn should put the left end on top: got %v / %v", got.RGBAAt(0, 0), got.RGBAAt(0, 1))
	}
}

func TestRotateNonZeroOrigin(t *testing.T) {
	full := numbered(4, 4)
	sub := full.SubImage(image.Rect(1, 1, 4, 3)) // 3x2, origin (1,1)
	got := Rotate(sub, 90)
	if b := got.Bounds(); b.Dx() != 2 || b.Dy() != 3 {
		t.Fatalf("size %v", got.Bounds())
	}
	// dst(0,0) comes from the bottom-left of the sub image: (1,2) in full coordinates
	r, g, _, _ := got.At(0, 0).RGBA()
	if uint8(r>>8) != 1 || uint8(g>>8) != 2 {
		t.Fatalf("dst(0,0) = (%d,%d), want (1,2)", r>>8, g>>8)
	}
}

func TestRotateZeroIsNoOp(t *testing.T) {
	src := numbered(5, 3)
	if got := Rotate(src, 0); got != image.Image(src) {
		t.Fatalf("rotation 0 must return the source image untouched")
	}
	if got := Rotate(src, 360); got != image.Image(src) {
		t.Fatalf("rotation 360 must return the source image untouched")
	}
}

func TestToClockwise(t *testing.T) {
	cases := []struct {
		deg  int
		dir  Direction
		want int
	}{
		{0, Clockwise, 0},
		{90, Clockwise, 90},
		{270, Clockwise, 270},
		{90, CounterClockwise, 270},
		{270, CounterClockwise, 90},
		{180, CounterClockwise, 180},
		{0, CounterClockwise, 0},
	}
	for _, tc := range cases {
		if got := ToClockwise(tc.deg, tc.dir); got != tc.want {
			t.Fatalf("ToClockwise(%d,%s) = %d, want %d", tc.deg, tc.dir, got, tc.want)
		}
	}
}

func TestFlattenOntoWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 0})
	img.SetNRGBA(1, 0, color.NRGBA{0, 0, 0, 255})
	flat := Flatten(img)
	if got := flat.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("transparent pixel should become white, got %v", got)
	}
	if got := flat.RGBAAt(1, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Fatalf("opaque pixel should be kept, got %v", got)
	}
	if !flat.Opaque() {
		t.Fatalf("flattened image must be opaque")
	}
}

func TestNormalize(t *testing.T) {
	opaque := numbered(2, 2)
	if got := Normalize(opaque, ColorRGB); got != image.Image(opaque) {
		t.Fatalf("opaque RGB input should pass through")
	}
	gray := Normalize(opaque, ColorGray)
	if _, ok := gray.(*image.Gray); !ok {
		t.Fatalf("gray mode should produce *image.Gray, got %T", gray)
	}
	translucent := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	if _, ok := Normalize(translucent, ColorRGB).(*image.RGBA); !ok {
		t.Fatalf("translucent input should be flattened")
	}
}

func TestAssembleEncodesRotatedPage(t *testing.T) {
	a := New(Options{Quality: 80})
	page, err := a.Assemble("B.jpg", numbered(40, 20), 90)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if page.ID != "B.jpg" || page.Rotation != 90 {
		t.Fatalf("unexpected record %+v", page)
	}
	if page.Width != 20 || page.Height != 40 {
		t.Fatalf("rotated size %dx%d, want 20x40", page.Width, page.Height)
	}
	if page.Size() != int64(len(page.Data)) || page.Size() == 0 {
		t.Fatalf("size must be the encoded length")
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(page.Data))
	if err != nil {
		t.Fatalf("page data is not a JPEG: %v", err)
	}
	if cfg.Width != 20 || cfg.Height != 40 {
		t.Fatalf("encoded size %dx%d", cfg.Width, cfg.Height)
	}
}

func TestAssembleCounterClockwiseConvention(t *testing.T) {
	a := New(Options{Quality: 80, Direction: CounterClockwise})
	page, err := a.Assemble("B.jpg", numbered(10, 10), 90)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if page.Rotation != 270 {
		t.Fatalf("ccw 90 should apply a 270 clockwise turn, got %d", page.Rotation)
	}
}

func TestAssembleQualityAffectsSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 37), uint8(y * 53), uint8(x * y), 255})
		}
	}
	low, err := New(Options{Quality: 10}).Assemble("n.png", img, 0)
	if err != nil {
		t.Fatal(err)
	}
	high, err := New(Options{Quality: 95}).Assemble("n.png", img, 0)
	if err != nil {
		t.Fatal(err)
	}
	if low.Size() >= high.Size() {
		t.Fatalf("quality 10 (%d bytes) should be smaller than quality 95 (%d bytes)", low.Size(), high.Size())
	}
}
