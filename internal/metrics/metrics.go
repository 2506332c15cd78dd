package metrics

import (
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    imagesTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "archivepdf",
            Name:      "images_total",
            Help:      "Images seen by result (included, discarded, skipped)",
        },
        []string{"result"},
    )

    documentsTotal = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "archivepdf",
            Name:      "documents_written_total",
            Help:      "Total PDF documents written",
        },
    )

    bytesTotal = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "archivepdf",
            Name:      "document_bytes_total",
            Help:      "Total bytes of PDF documents written",
        },
    )

    documentPages = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "archivepdf",
            Name:      "document_pages",
            Help:      "Pages per written document",
            Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
        },
    )

    writeLatency = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "archivepdf",
            Name:      "document_write_duration_seconds",
            Help:      "Time to write and check one PDF document",
            Buckets:   prometheus.DefBuckets,
        },
    )

    runDuration = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "archivepdf",
            Name:      "run_duration_seconds",
            Help:      "Wall time of the last run",
        },
    )

    lastSuccess = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "archivepdf",
            Name:      "last_run_success",
            Help:      "1 if the last run completed, 0 otherwise",
        },
    )

    registry = prometheus.NewRegistry()
    initOnce sync.Once
)

// Image results.
const (
    ResultIncluded  = "included"
    ResultDiscarded = "discarded"
    ResultSkipped   = "skipped"
)

// Init registers collectors. Safe to call more than once.
func Init() {
    initOnce.Do(func() {
        registry.MustRegister(imagesTotal, documentsTotal, bytesTotal, documentPages, writeLatency, runDuration, lastSuccess)
    })
}

// Registry exposes the collectors for gathering.
func Registry() *prometheus.Registry { return registry }

func IncImage(result string) { imagesTotal.WithLabelValues(result).Inc() }

func ObserveDocument(pages int, bytes int64, dur time.Duration) {
    documentsTotal.Inc()
    bytesTotal.Add(float64(bytes))
    documentPages.Observe(float64(pages))
    writeLatency.Observe(dur.Seconds())
}

// FinishRun records the wall time and outcome of a run.
func FinishRun(dur time.Duration, ok bool) {
    runDuration.Set(dur.Seconds())
    if ok { lastSuccess.Set(1) } else { lastSuccess.Set(0) }
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func WriteTextfile(path string) error {
    return prometheus.WriteToTextfile(path, registry)
}
