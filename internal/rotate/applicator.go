package rotate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/local/archivepdf/internal/apperr"
	"github.com/local/archivepdf/internal/assembler"
	"github.com/local/archivepdf/internal/corrections"
	"github.com/local/archivepdf/internal/source"
)

// Options configures the applicator.
type Options struct {
	Corrections   string
	Input         string
	Output        string
	CopyUnchanged bool
	Quality       int
	Direction     assembler.Direction
	Workers       int
}

// Stats counts what happened to each input image.
type Stats struct {
	Rotated int
	Copied  int
	Skipped int
	Errors  int
}

// Total is the number of images looked at.
func (s Stats) Total() int { return s.Rotated + s.Copied + s.Skipped + s.Errors }

type outcome int

const (
	rotated outcome = iota
	copied
	skipped
	failed
)

// Apply writes a rotated copy of every input image that has a non-zero correction into the
// output directory, re-encoded in its own format. Per-image failures are counted, not fatal.
func Apply(ctx context.Context, opts Options) (Stats, error) {
	if _, err := os.Stat(opts.Corrections); errors.Is(err, fs.ErrNotExist) {
		return Stats{}, apperr.Configf("corrections", "file not found: %s", opts.Corrections)
	}
	rec, err := corrections.Load(opts.Corrections)
	if err != nil {
		return Stats{}, err
	}
	src, err := source.New(opts.Input, "")
	if err != nil {
		return Stats{}, err
	}
	ids, err := src.List()
	if err != nil {
		return Stats{}, err
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return Stats{}, &apperr.WriteError{Op: "create output dir", Path: opts.Output, Err: err}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	var counts [4]atomic.Int64
	var seen atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := applyOne(src, rec, id, opts)
			counts[o].Add(1)
			if n := seen.Add(1); n%100 == 0 {
				log.Info().Int64("done", n).Int("total", len(ids)).Msg("progress")
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	st := Stats{
		Rotated: int(counts[rotated].Load()),
		Copied:  int(counts[copied].Load()),
		Skipped: int(counts[skipped].Load()),
		Errors:  int(counts[failed].Load()),
	}
	log.Info().
		Int("rotated", st.Rotated).
		Int("copied", st.Copied).
		Int("skipped", st.Skipped).
		Int("errors", st.Errors).
		Str("output", opts.Output).
		Msg("corrections applied")
	return st, err
}

func applyOne(src *source.Reader, rec *corrections.Record, id string, opts Options) outcome {
	out := filepath.Join(opts.Output, id)
	deg := assembler.ToClockwise(rec.RotationFor(id), opts.Direction)
	if deg == 0 {
		if !opts.CopyUnchanged {
			return skipped
		}
		if err := copyFile(src.Path(id), out); err != nil {
			log.Error().Err(err).Str("image", id).Msg("copy failed")
			return failed
		}
		return copied
	}

	img, info, err := src.Decode(id)
	if err != nil {
		log.Error().Err(err).Str("image", id).Msg("could not read image")
		return failed
	}
	turned := assembler.Rotate(img, deg)

	var buf bytes.Buffer
	switch info.Type.Kind {
	case source.KindPNG:
		err = png.Encode(&buf, turned)
	default:
		err = jpeg.Encode(&buf, turned, &jpeg.Options{Quality: opts.Quality})
	}
	if err == nil {
		err = os.WriteFile(out, buf.Bytes(), 0o644)
	}
	if err != nil {
		log.Error().Err(err).Str("image", id).Msg("could not write rotated image")
		return failed
	}
	log.Debug().Str("image", id).Int("rotation", deg).Msg("rotated")
	return rotated
}

// copyFile copies src to dst and keeps the modification time.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	st, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chtimes(dst, st.ModTime(), st.ModTime())
}
