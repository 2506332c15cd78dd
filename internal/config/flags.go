package config

import (
	"flag"
	"math"
	"path/filepath"
	"strings"

	"github.com/local/archivepdf/internal/apperr"
)

// BindArchiveFlags registers the archivepdf flags on fs. Current values in c become
// the defaults, so environment overrides show up in -help.
func BindArchiveFlags(fs *flag.FlagSet, c *ArchiveConfig, s *StatusConfig) {
	stringVar(fs, &c.Review, "r", "review", c.Review, "review/corrections JSON file")
	stringVar(fs, &c.Input, "i", "input", c.Input, "directory of preprocessed images")
	stringVar(fs, &c.Output, "o", "output", c.Output, "directory for generated PDFs")
	stringVar(fs, &c.Prefix, "p", "prefix", c.Prefix, "output file name prefix")
	intVar(fs, &c.Quality, "q", "quality", c.Quality, "JPEG quality of embedded pages (1-100)")
	fs.Float64Var(&c.MaxSizeMB, "m", c.MaxSizeMB, "size ceiling per PDF in MB, used only without section breaks")
	fs.Float64Var(&c.MaxSizeMB, "max-size", c.MaxSizeMB, "size ceiling per PDF in MB, used only without section breaks")
	fs.StringVar(&c.Manifest, "manifest", c.Manifest, "file listing image ids in processing order")
	intVar(fs, &c.Workers, "w", "workers", c.Workers, "images decoded in parallel")
	fs.BoolVar(&c.Gray, "gray", c.Gray, "encode pages as grayscale")
	fs.StringVar(&c.RotateDir, "rotate-dir", c.RotateDir, "direction of stored rotation degrees: cw or ccw")
	fs.BoolVar(&c.Verify, "verify", c.Verify, "reopen every written PDF and check its page count")
	fs.StringVar(&c.Upload, "upload", c.Upload, "upload PDFs to s3://bucket/prefix or gs://bucket/prefix")
	fs.StringVar(&c.MetricsFile, "metrics-file", c.MetricsFile, "write Prometheus textfile metrics here")
	fs.StringVar(&s.RedisURL, "status-redis", s.RedisURL, "publish run progress to this Redis URL")
}

// BindApplyFlags registers the applycorrections flags on fs.
func BindApplyFlags(fs *flag.FlagSet, c *ApplyConfig) {
	stringVar(fs, &c.Corrections, "c", "corrections", c.Corrections, "rotation corrections JSON file")
	stringVar(fs, &c.Input, "i", "input", c.Input, "directory of source images")
	stringVar(fs, &c.Output, "o", "output", c.Output, "directory for corrected images (required)")
	fs.BoolVar(&c.CopyUnchanged, "copy-unchanged", c.CopyUnchanged, "copy images without a correction to the output")
	intVar(fs, &c.Quality, "q", "quality", c.Quality, "JPEG quality for rotated images (1-100)")
	fs.StringVar(&c.RotateDir, "rotate-dir", c.RotateDir, "direction of stored rotation degrees: cw or ccw")
}

func stringVar(fs *flag.FlagSet, p *string, short, long, def, usage string) {
	fs.StringVar(p, short, def, usage)
	fs.StringVar(p, long, def, usage)
}

func intVar(fs *flag.FlagSet, p *int, short, long string, def int, usage string) {
	fs.IntVar(p, short, def, usage)
	fs.IntVar(p, long, def, usage)
}

// Validate checks option values. Failures are *apperr.ConfigError.
func (c ArchiveConfig) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return apperr.Configf("input", "must not be empty")
	}
	if strings.TrimSpace(c.Output) == "" {
		return apperr.Configf("output", "must not be empty")
	}
	if c.Prefix == "" || strings.ContainsAny(c.Prefix, `/\`) {
		return apperr.Configf("prefix", "%q is not a valid file name prefix", c.Prefix)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return apperr.Configf("quality", "%d is outside 1-100", c.Quality)
	}
	if !(c.MaxSizeMB > 0) || math.IsInf(c.MaxSizeMB, 0) {
		return apperr.Configf("max-size", "must be a positive number of MB, got %v", c.MaxSizeMB)
	}
	if c.Workers < 1 {
		return apperr.Configf("workers", "must be at least 1, got %d", c.Workers)
	}
	if err := validDirection(c.RotateDir); err != nil {
		return err
	}
	if c.Upload != "" && !strings.HasPrefix(c.Upload, "s3://") && !strings.HasPrefix(c.Upload, "gs://") {
		return apperr.Configf("upload", "%q must start with s3:// or gs://", c.Upload)
	}
	return nil
}

// MaxBytes is the size ceiling in bytes.
func (c ArchiveConfig) MaxBytes() int64 {
	return int64(c.MaxSizeMB * 1024 * 1024)
}

// Validate checks option values. Failures are *apperr.ConfigError.
func (c ApplyConfig) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return apperr.Configf("output", "is required")
	}
	in, err := filepath.Abs(c.Input)
	if err != nil {
		return apperr.Configf("input", "%v", err)
	}
	out, err := filepath.Abs(c.Output)
	if err != nil {
		return apperr.Configf("output", "%v", err)
	}
	if in == out {
		return apperr.Configf("output", "must differ from the input directory")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return apperr.Configf("quality", "%d is outside 1-100", c.Quality)
	}
	return validDirection(c.RotateDir)
}

func validDirection(d string) error {
	if d != "cw" && d != "ccw" {
		return apperr.Configf("rotate-dir", "%q must be cw or ccw", d)
	}
	return nil
}
