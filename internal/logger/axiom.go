package logger

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/axiomhq/axiom-go/axiom/ingest"
    "github.com/rs/zerolog"
)

const (
    axiomQueue = 1000
    axiomBatch = 200
)

type ingestFunc func(ctx context.Context, events []axiom.Event) error

// axiomSink is a zerolog.LevelWriter that batches events and ships them to an Axiom
// dataset from a background goroutine. Events below min are not forwarded and a full
// queue drops events rather than blocking the run.
type axiomSink struct {
    min    zerolog.Level
    ingest ingestFunc
    queue  chan axiom.Event
    stop   chan struct{}
    done   chan struct{}
    once   sync.Once
}

func newAxiomSink(token, orgID, dataset string, flushEvery time.Duration) (*axiomSink, error) {
    if dataset == "" {
        dataset = "dev_" + service
    }
    opts := []axiom.Option{axiom.SetToken(token)}
    if orgID != "" {
        opts = append(opts, axiom.SetOrganizationID(orgID))
    }
    c, err := axiom.NewClient(opts...)
    if err != nil {
        return nil, err
    }
    send := func(ctx context.Context, events []axiom.Event) error {
        _, err := c.IngestEvents(ctx, dataset, events)
        return err
    }
    return startSink(send, zerolog.InfoLevel, flushEvery), nil
}

func startSink(send ingestFunc, minLevel zerolog.Level, flushEvery time.Duration) *axiomSink {
    if flushEvery <= 0 {
        flushEvery = 5 * time.Second
    }
    s := &axiomSink{
        min:    minLevel,
        ingest: send,
        queue:  make(chan axiom.Event, axiomQueue),
        stop:   make(chan struct{}),
        done:   make(chan struct{}),
    }
    go s.run(flushEvery)
    return s
}

// Write handles lines without a level, e.g. from a plain io.Writer chain.
func (s *axiomSink) Write(p []byte) (int, error) {
    return s.WriteLevel(zerolog.NoLevel, p)
}

func (s *axiomSink) WriteLevel(l zerolog.Level, p []byte) (int, error) {
    if l < s.min {
        return len(p), nil
    }
    select {
    case s.queue <- toEvent(p):
    default:
    }
    return len(p), nil
}

// toEvent turns one JSON log line into an Axiom event.
func toEvent(p []byte) axiom.Event {
    var ev axiom.Event
    if err := json.Unmarshal(p, &ev); err != nil || ev == nil {
        ev = axiom.Event{"message": string(p), "level": "info"}
    }
    ev["service"] = service
    if _, ok := ev[ingest.TimestampField]; !ok {
        ev[ingest.TimestampField] = time.Now()
    }
    return ev
}

func (s *axiomSink) run(flushEvery time.Duration) {
    defer close(s.done)
    ticker := time.NewTicker(flushEvery)
    defer ticker.Stop()

    batch := make([]axiom.Event, 0, axiomBatch)
    flush := func() {
        if len(batch) == 0 {
            return
        }
        ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
        _ = s.ingest(ctx, batch)
        cancel()
        batch = make([]axiom.Event, 0, axiomBatch)
    }

    for {
        select {
        case ev := <-s.queue:
            batch = append(batch, ev)
            if len(batch) >= axiomBatch {
                flush()
            }
        case <-ticker.C:
            flush()
        case <-s.stop:
            for {
                select {
                case ev := <-s.queue:
                    batch = append(batch, ev)
                default:
                    flush()
                    return
                }
            }
        }
    }
}

// Close ships whatever is queued and waits for the sender to finish.
func (s *axiomSink) Close() {
    s.once.Do(func() { close(s.stop) })
    <-s.done
}
