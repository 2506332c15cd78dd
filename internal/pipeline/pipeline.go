package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/local/archivepdf/internal/apperr"
	"github.com/local/archivepdf/internal/corrections"
	"github.com/local/archivepdf/internal/logger"
	"github.com/local/archivepdf/internal/metrics"
	"github.com/local/archivepdf/internal/models"
	"github.com/local/archivepdf/internal/pdfwriter"
	"github.com/local/archivepdf/internal/source"
	"github.com/local/archivepdf/internal/splitter"
	"github.com/local/archivepdf/internal/storage"
	"github.com/local/archivepdf/internal/store"
)

// Source lists and decodes input images.
type Source interface {
	List() ([]string, error)
	Decode(id string) (image.Image, source.Info, error)
}

// Assembler turns a decoded image into an encoded page.
type Assembler interface {
	Assemble(id string, img image.Image, degrees int) (models.PageRecord, error)
}

// Writer persists a completed document.
type Writer interface {
	Write(ctx context.Context, doc models.OutputDocument) (pdfwriter.Result, error)
}

// VerifyFunc checks a written PDF against the number of pages put into it.
type VerifyFunc func(path string, pages int) error

type Status struct {
	Status    string
	Processed int
	Total     int
	Documents int
	Message   string
	Start     *time.Time
	End       *time.Time
	Metadata  map[string]any
}

type StatusStore interface {
	Set(ctx context.Context, runID string, st Status) error
}

// Options configures a run.
type Options struct {
	RunID    string
	Prefix   string
	MaxBytes int64
	Workers  int
}

// Dependencies are the collaborators of a run. Status, Uploader and Verify are optional.
type Dependencies struct {
	Source      Source
	Corrections *corrections.Record
	Assembler   Assembler
	Writer      Writer
	Status      StatusStore
	Uploader    storage.Uploader
	Verify      VerifyFunc
}

type result struct {
	page models.PageRecord
	err  error
}

type run struct {
	opts    Options
	deps    Dependencies
	ctx     context.Context
	log     zerolog.Logger
	summary *Summary
	total   int
	done    int
}

// Run processes every listed image in order and writes the resulting PDFs. It returns the
// summary of what was done even when it fails; documents flushed before a failure or an
// interruption stay on disk.
func Run(ctx context.Context, opts Options, deps Dependencies) (*Summary, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if deps.Corrections == nil {
		deps.Corrections = corrections.Empty()
	}

	start := time.Now()
	r := &run{
		opts:    opts,
		deps:    deps,
		ctx:     ctx,
		log:     logger.WithRun(opts.RunID),
		summary: &Summary{RunID: opts.RunID, Started: start},
	}

	err := r.execute()

	r.summary.Duration = time.Since(start)
	r.summary.Interrupted = apperr.IsInterrupted(err)
	metrics.FinishRun(r.summary.Duration, err == nil)
	r.finalStatus(err)

	ev := r.log.Info()
	if err != nil {
		ev = r.log.Error().Err(err)
	}
	ev.Int("documents", len(r.summary.Documents)).
		Int("included", r.summary.Included).
		Int("discarded", r.summary.Discarded).
		Int("skipped", len(r.summary.Skipped)).
		Dur("took", r.summary.Duration).
		Msg("run finished")
	return r.summary, err
}

func (r *run) execute() error {
	ids, err := r.deps.Source.List()
	if err != nil {
		return err
	}
	corr := r.deps.Corrections
	for _, id := range corr.Unreferenced(ids) {
		r.log.Warn().Str("image", id).Msg("review entry does not match any input image")
	}

	work := make([]string, 0, len(ids))
	for _, id := range ids {
		if corr.IsDiscarded(id) {
			r.summary.Discarded++
			metrics.IncImage(metrics.ResultDiscarded)
			r.log.Debug().Str("image", id).Msg("discarded")
			continue
		}
		work = append(work, id)
	}
	r.total = len(work)

	rot, brk, disc := corr.Counts()
	r.log.Info().
		Int("images", len(ids)).
		Int("to_process", len(work)).
		Int("rotations", rot).
		Int("section_breaks", brk).
		Int("discards", disc).
		Int("workers", r.opts.Workers).
		Msg("starting run")

	now := time.Now()
	r.setStatus(Status{Status: store.StateRunning, Total: r.total, Start: &now, Message: "processing images"})

	sp := splitter.New(splitter.Options{
		Prefix:    r.opts.Prefix,
		HasBreaks: corr.HasSectionBreaks(),
		MaxBytes:  r.opts.MaxBytes,
	}, r.flush)

	if err := r.consume(work, sp); err != nil {
		return err
	}
	if err := r.ctx.Err(); err != nil {
		return err
	}
	return sp.Close()
}

// consume assembles pages on a bounded pool and feeds them to sp in input order. At most
// 2*workers finished pages wait ahead of the splitter.
func (r *run) consume(work []string, sp *splitter.Splitter) error {
	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	workers := r.opts.Workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	slots := make([]chan result, len(work))
	for i := range slots {
		slots[i] = make(chan result, 1)
	}
	window := make(chan struct{}, 2*workers)
	produced := make(chan struct{})

	go func() {
		defer close(produced)
		for i, id := range work {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return
			}
			g.Go(func() error {
				slots[i] <- r.process(gctx, id)
				return nil
			})
		}
	}()

	var runErr error
	for i, id := range work {
		if err := r.ctx.Err(); err != nil {
			runErr = err
			break
		}
		var res result
		select {
		case res = <-slots[i]:
		case <-r.ctx.Done():
			runErr = r.ctx.Err()
		}
		if runErr != nil {
			break
		}
		<-window

		if res.err != nil {
			if !apperr.IsDecode(res.err) {
				runErr = res.err
				break
			}
			r.summary.Skipped = append(r.summary.Skipped, id)
			metrics.IncImage(metrics.ResultSkipped)
			r.log.Warn().Err(res.err).Str("image", id).Msg("skipping unreadable image")
			continue
		}

		res.page.SectionBreak = r.deps.Corrections.IsSectionBreak(id)
		if err := sp.Add(res.page); err != nil {
			runErr = err
			break
		}
		r.summary.Included++
		metrics.IncImage(metrics.ResultIncluded)
	}

	cancel()
	<-produced
	_ = g.Wait()
	return runErr
}

func (r *run) process(ctx context.Context, id string) result {
	if err := ctx.Err(); err != nil {
		return result{err: err}
	}
	img, info, err := r.deps.Source.Decode(id)
	if err != nil {
		return result{err: err}
	}
	page, err := r.deps.Assembler.Assemble(id, img, r.deps.Corrections.RotationFor(id))
	if err != nil {
		return result{err: &apperr.DecodeError{ID: id, Err: err}}
	}
	r.log.Debug().
		Str("image", id).
		Str("mime", info.Type.MIMEType).
		Int64("source_bytes", info.Bytes).
		Int64("page_bytes", page.Size()).
		Msg("page ready")
	return result{page: page}
}

func (r *run) flush(doc models.OutputDocument) error {
	res, err := r.deps.Writer.Write(r.ctx, doc)
	if err != nil {
		return err
	}
	if r.deps.Verify != nil {
		if err := r.deps.Verify(res.Path, len(doc.Pages)); err != nil {
			return err
		}
	}

	ids := doc.IDs()
	ds := DocumentSummary{
		Name:  doc.Name,
		Path:  res.Path,
		Pages: len(doc.Pages),
		Bytes: res.Bytes,
		First: ids[0],
		Last:  ids[len(ids)-1],
	}
	if r.deps.Uploader != nil {
		url, err := r.deps.Uploader.Upload(r.ctx, storage.Object{
			LocalPath: res.Path,
			Name:      doc.Name,
			Metadata: map[string]string{
				"run":   r.opts.RunID,
				"pages": strconv.Itoa(len(doc.Pages)),
			},
		})
		if err != nil {
			return &apperr.WriteError{Op: "upload", Path: res.Path, Err: err}
		}
		ds.URL = url
	}

	metrics.ObserveDocument(ds.Pages, ds.Bytes, res.Duration)
	r.summary.Documents = append(r.summary.Documents, ds)
	r.done += ds.Pages
	r.setStatus(Status{
		Status:    store.StateRunning,
		Processed: r.done,
		Total:     r.total,
		Documents: len(r.summary.Documents),
		Message:   fmt.Sprintf("wrote %s", doc.Name),
	})
	return nil
}

func (r *run) finalStatus(err error) {
	now := time.Now()
	st := Status{
		Status:    store.StateCompleted,
		Processed: r.done,
		Total:     r.total,
		Documents: len(r.summary.Documents),
		Message:   "done",
		End:       &now,
		Metadata: map[string]any{
			"included":  r.summary.Included,
			"discarded": r.summary.Discarded,
			"skipped":   len(r.summary.Skipped),
		},
	}
	switch {
	case err == nil:
	case apperr.IsInterrupted(err):
		st.Status, st.Message = store.StateInterrupted, "run interrupted"
	default:
		st.Status, st.Message = store.StateFailed, err.Error()
	}
	r.setStatus(st)
}

// setStatus publishes progress. Status is informational, so failures are only logged.
func (r *run) setStatus(st Status) {
	if r.deps.Status == nil {
		return
	}
	// the run context may already be cancelled when the final status is written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), 5*time.Second)
	defer cancel()
	if err := r.deps.Status.Set(ctx, r.opts.RunID, st); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn().Err(err).Str("status", st.Status).Msg("could not publish run status")
	}
}
