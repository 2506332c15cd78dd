package logger

import (
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const service = "archivepdf"

// Options defines logger initialization parameters.
type Options struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool

    // Console receives human-facing log lines. Defaults to stderr so stdout stays free
    // for the run summary.
    Console io.Writer

    // Axiom
    SendToAxiom  bool
    AxiomAPIKey  string
    AxiomOrgID   string
    AxiomDataset string
    AxiomFlush   time.Duration
}

var ax *axiomSink

// Init installs the global logger. Every event goes to the console and, when configured,
// to a rotating file and to Axiom (info and above).
func Init(opts Options) error {
    sinks := []io.Writer{console(opts)}

    if opts.File != "" {
        if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
            return fmt.Errorf("create logs dir: %w", err)
        }
        sinks = append(sinks, &lumberjack.Logger{
            Filename:   opts.File,
            MaxSize:    opts.MaxSizeMB,
            MaxBackups: opts.MaxBackups,
            MaxAge:     opts.MaxAgeDays,
            Compress:   opts.Compress,
        })
    }

    Close()
    if opts.SendToAxiom && opts.AxiomAPIKey != "" {
        s, err := newAxiomSink(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
        if err != nil {
            fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
        } else {
            ax = s
            sinks = append(sinks, s)
        }
    }

    zerolog.TimeFieldFormat = time.RFC3339
    log.Logger = zerolog.New(zerolog.MultiLevelWriter(sinks...)).
        Level(parseLevel(opts.Level)).
        With().Timestamp().Str("service", service).
        Logger()
    return nil
}

func console(opts Options) io.Writer {
    out := opts.Console
    if out == nil {
        out = os.Stderr
    }
    if opts.Pretty {
        return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
    }
    return out
}

// parseLevel maps an empty or unknown level to info.
func parseLevel(s string) zerolog.Level {
    lvl, err := zerolog.ParseLevel(s)
    if err != nil || s == "" {
        return zerolog.InfoLevel
    }
    return lvl
}

// Close flushes events queued for Axiom.
func Close() {
    if ax != nil {
        ax.Close()
        ax = nil
    }
}

// WithRun returns a child logger tagged with the run id.
func WithRun(runID string) zerolog.Logger {
    return log.Logger.With().Str("run", runID).Logger()
}
