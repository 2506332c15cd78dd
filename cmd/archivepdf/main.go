package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/archivepdf/internal/apperr"
    "github.com/local/archivepdf/internal/assembler"
    cfgpkg "github.com/local/archivepdf/internal/config"
    "github.com/local/archivepdf/internal/corrections"
    logpkg "github.com/local/archivepdf/internal/logger"
    "github.com/local/archivepdf/internal/metrics"
    "github.com/local/archivepdf/internal/pdfwriter"
    "github.com/local/archivepdf/internal/pipeline"
    "github.com/local/archivepdf/internal/source"
    "github.com/local/archivepdf/internal/storage"
    "github.com/local/archivepdf/internal/store"
    "github.com/local/archivepdf/internal/verify"
)

func main() {
    os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
    if err := cfgpkg.LoadDotEnv(); err != nil {
        fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
    }
    cfg := cfgpkg.FromEnv()

    fs := flag.NewFlagSet("archivepdf", flag.ContinueOnError)
    cfgpkg.BindArchiveFlags(fs, &cfg.Archive, &cfg.Status)
    if err := fs.Parse(args); err != nil {
        if errors.Is(err, flag.ErrHelp) { return apperr.ExitOK }
        return apperr.ExitConfig
    }

    _ = logpkg.Init(logpkg.Options{
        Level: cfg.Logging.Level,
        Pretty: cfg.Logging.Pretty,
        File: cfg.Logging.File,
        MaxSizeMB: cfg.Logging.MaxSizeMB,
        MaxBackups: cfg.Logging.MaxBackups,
        MaxAgeDays: cfg.Logging.MaxAgeDays,
        Compress: cfg.Logging.Compress,
        SendToAxiom: cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey: cfg.Axiom.APIKey,
        AxiomOrgID: cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush: cfg.Axiom.FlushInterval,
    })
    defer logpkg.Close()

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    if cfg.Archive.MetricsFile != "" {
        metrics.Init()
        defer func() {
            if err := metrics.WriteTextfile(cfg.Archive.MetricsFile); err != nil {
                log.Warn().Err(err).Str("file", cfg.Archive.MetricsFile).Msg("could not write metrics")
            }
        }()
    }

    summary, err := generate(ctx, cfg)
    if summary != nil {
        _ = summary.Print(os.Stdout)
    }
    if err != nil {
        if apperr.IsInterrupted(err) {
            log.Warn().Msg("interrupted, the document in progress was discarded")
        } else {
            log.Error().Err(err).Msg("archivepdf failed")
        }
    }
    return apperr.ExitCode(err)
}

var openUploader = storage.Open

func generate(ctx context.Context, cfg cfgpkg.Config) (*pipeline.Summary, error) {
    a := cfg.Archive
    if err := a.Validate(); err != nil { return nil, err }

    rec, err := corrections.Load(a.Review)
    if err != nil { return nil, err }
    src, err := source.New(a.Input, a.Manifest)
    if err != nil { return nil, err }
    // preflight before the output directory is touched
    var up storage.Uploader
    if a.Upload != "" {
        up, err = openUploader(ctx, a.Upload)
        if err != nil { return nil, err }
        defer up.Close()
        if err := up.Check(ctx); err != nil {
            return nil, &apperr.ConfigError{Field: "upload", Message: "destination not reachable", Err: err}
        }
    }

    pw, err := pdfwriter.New(a.Output)
    if err != nil { return nil, err }
    pdfwriter.CleanupPartials(a.Output, a.Prefix)

    color := assembler.ColorRGB
    if a.Gray { color = assembler.ColorGray }
    deps := pipeline.Dependencies{
        Source:      src,
        Corrections: rec,
        Assembler:   assembler.New(assembler.Options{Quality: a.Quality, ColorMode: color, Direction: assembler.Direction(a.RotateDir)}),
        Writer:      pw,
    }

    if a.Verify {
        deps.Verify = func(path string, pages int) error {
            _, err := verify.PageCount(path, pages)
            return err
        }
    }

    if up != nil {
        deps.Uploader = up
    }

    if cfg.Status.RedisURL != "" {
        rs, err := store.NewRedisStatus(ctx, cfg.Status.RedisURL)
        if err != nil {
            // progress publishing is optional; the run goes ahead without it
            log.Warn().Err(err).Msg("run status disabled")
        } else {
            defer rs.Close()
            deps.Status = pipeline.NewStatusAdapter(rs)
        }
    }

    return pipeline.Run(ctx, pipeline.Options{
        RunID:    uuid.NewString(),
        Prefix:   a.Prefix,
        MaxBytes: a.MaxBytes(),
        Workers:  a.Workers,
    }, deps)
}
