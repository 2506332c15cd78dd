package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "os"
    "os/signal"
    "runtime"
    "syscall"

    "github.com/rs/zerolog/log"

    "github.com/local/archivepdf/internal/apperr"
    "github.com/local/archivepdf/internal/assembler"
    cfgpkg "github.com/local/archivepdf/internal/config"
    logpkg "github.com/local/archivepdf/internal/logger"
    "github.com/local/archivepdf/internal/rotate"
)

func main() {
    os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
    if err := cfgpkg.LoadDotEnv(); err != nil {
        fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
    }
    cfg := cfgpkg.FromEnv()

    fs := flag.NewFlagSet("applycorrections", flag.ContinueOnError)
    cfgpkg.BindApplyFlags(fs, &cfg.Apply)
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

    if err := cfg.Apply.Validate(); err != nil {
        log.Error().Err(err).Msg("invalid options")
        return apperr.ExitCode(err)
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    c := cfg.Apply
    st, err := rotate.Apply(ctx, rotate.Options{
        Corrections:   c.Corrections,
        Input:         c.Input,
        Output:        c.Output,
        CopyUnchanged: c.CopyUnchanged,
        Quality:       c.Quality,
        Direction:     assembler.Direction(c.RotateDir),
        Workers:       runtime.NumCPU(),
    })

    fmt.Printf("rotated\t%d\ncopied\t%d\nskipped\t%d\nerrors\t%d\noutput\t%s\n", st.Rotated, st.Copied, st.Skipped, st.Errors, c.Output)
    if err != nil {
        log.Error().Err(err).Msg("applycorrections failed")
    }
    return apperr.ExitCode(err)
}
