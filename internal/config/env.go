package config

import (
    "errors"
    "os"
    "runtime"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// ArchiveConfig configures the PDF generation run.
type ArchiveConfig struct {
    Review      string
    Input       string
    Output      string
    Prefix      string
    Quality     int
    MaxSizeMB   float64
    Manifest    string
    Workers     int
    Gray        bool
    RotateDir   string
    Verify      bool
    Upload      string
    MetricsFile string
}

// ApplyConfig configures the rotation applicator.
type ApplyConfig struct {
    Corrections   string
    Input         string
    Output        string
    CopyUnchanged bool
    Quality       int
    RotateDir     string
}

// StatusConfig defines where run progress is published.
type StatusConfig struct {
    RedisURL string
}

// Config is the top-level configuration.
type Config struct {
    Logging LoggingConfig
    Axiom   AxiomConfig
    Archive ArchiveConfig
    Apply   ApplyConfig
    Status  StatusConfig
}

// LoadDotEnv loads a .env file from the working directory if there is one. Variables
// already set in the environment win.
func LoadDotEnv() error {
    err := godotenv.Load()
    if err != nil && errors.Is(err, os.ErrNotExist) {
        return nil
    }
    return err
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", ""),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_archivepdf",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "5s"), 5*time.Second),
    }

    workers := runtime.NumCPU()
    cfg.Archive = ArchiveConfig{
        Review:      getEnv("ARCHIVEPDF_REVIEW", "image_review.json"),
        Input:       getEnv("ARCHIVEPDF_INPUT", "final_preprocessed"),
        Output:      getEnv("ARCHIVEPDF_OUTPUT", "pdfs"),
        Prefix:      getEnv("ARCHIVEPDF_PREFIX", "archive"),
        Quality:     parseInt(getEnv("ARCHIVEPDF_QUALITY", "85"), 85),
        MaxSizeMB:   parseFloat(getEnv("ARCHIVEPDF_MAX_SIZE_MB", "200"), 200),
        Manifest:    getEnv("ARCHIVEPDF_MANIFEST", ""),
        Workers:     parseInt(getEnv("ARCHIVEPDF_WORKERS", ""), workers),
        Gray:        parseBool(getEnv("ARCHIVEPDF_GRAY", "false")),
        RotateDir:   getEnv("ARCHIVEPDF_ROTATE_DIR", "cw"),
        Verify:      parseBool(getEnv("ARCHIVEPDF_VERIFY", "false")),
        Upload:      getEnv("ARCHIVEPDF_UPLOAD", ""),
        MetricsFile: getEnv("ARCHIVEPDF_METRICS_FILE", ""),
    }

    cfg.Apply = ApplyConfig{
        Corrections:   getEnv("APPLYCORRECTIONS_CORRECTIONS", "rotation_corrections.json"),
        Input:         getEnv("APPLYCORRECTIONS_INPUT", "."),
        Output:        getEnv("APPLYCORRECTIONS_OUTPUT", ""),
        CopyUnchanged: parseBool(getEnv("APPLYCORRECTIONS_COPY_UNCHANGED", "false")),
        Quality:       parseInt(getEnv("APPLYCORRECTIONS_QUALITY", "95"), 95),
        RotateDir:     getEnv("APPLYCORRECTIONS_ROTATE_DIR", getEnv("ARCHIVEPDF_ROTATE_DIR", "cw")),
    }

    cfg.Status = StatusConfig{
        RedisURL: getEnv("ARCHIVEPDF_STATUS_REDIS", getEnv("REDIS_URL", "")),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
