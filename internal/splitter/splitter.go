package splitter

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/local/archivepdf/internal/models"
)

// Action is the outcome of evaluating one incoming page.
type Action int

const (
	// Append adds the page to the current document.
	Append Action = iota
	// FlushThenAppend writes the current document and starts a new one with the page.
	FlushThenAppend
)

func (a Action) String() string {
	if a == FlushThenAppend {
		return "flush-then-append"
	}
	return "append"
}

// DocState is what the decision needs to know about the document being built.
type DocState struct {
	Pages int
	Bytes int64
}

// PageMeta is what the decision needs to know about the incoming page.
type PageMeta struct {
	SectionBreak bool
	Bytes        int64
}

// Decide applies the split rule before a page is appended. A non-empty document is
// flushed when the page starts a section, or, only when no section breaks exist at
// all, when appending the page would take the document over maxBytes. A page larger
// than maxBytes on its own still becomes a one-page document.
func Decide(doc DocState, page PageMeta, hasBreaks bool, maxBytes int64) Action {
	if doc.Pages == 0 {
		return Append
	}
	if page.SectionBreak {
		return FlushThenAppend
	}
	if !hasBreaks && maxBytes > 0 && doc.Bytes+page.Bytes > maxBytes {
		return FlushThenAppend
	}
	return Append
}

// FileName builds the deterministic output name for the index-th document.
func FileName(prefix string, index int) string {
	return fmt.Sprintf("%s_%03d.pdf", prefix, index)
}

// FlushFunc writes a completed document. An error aborts the run.
type FlushFunc func(doc models.OutputDocument) error

// Options configures a Splitter.
type Options struct {
	Prefix    string
	HasBreaks bool
	MaxBytes  int64
}

// Splitter groups an ordered stream of pages into output documents. It is owned by a
// single goroutine.
type Splitter struct {
	opts    Options
	flush   FlushFunc
	current models.OutputDocument
	flushed int
}

// New returns a Splitter in the accumulating state with document index 1.
func New(opts Options, flush FlushFunc) *Splitter {
	s := &Splitter{opts: opts, flush: flush}
	s.reset(1)
	return s
}

func (s *Splitter) reset(index int) {
	s.current = models.OutputDocument{Index: index, Name: FileName(s.opts.Prefix, index)}
}

// Add evaluates the split rule for page and appends it.
func (s *Splitter) Add(page models.PageRecord) error {
	state := DocState{Pages: len(s.current.Pages), Bytes: s.current.Bytes}
	meta := PageMeta{SectionBreak: page.SectionBreak, Bytes: page.Size()}
	if Decide(state, meta, s.opts.HasBreaks, s.opts.MaxBytes) == FlushThenAppend {
		reason := "size"
		if page.SectionBreak {
			reason = "section_break"
		}
		log.Debug().
			Str("document", s.current.Name).
			Str("next", page.ID).
			Str("reason", reason).
			Msg("splitting document")
		if err := s.flushCurrent(); err != nil {
			return err
		}
	}
	s.current.Pages = append(s.current.Pages, page)
	s.current.Bytes += page.Size()
	return nil
}

// Close flushes the trailing document if it holds any pages.
func (s *Splitter) Close() error {
	if len(s.current.Pages) == 0 {
		return nil
	}
	return s.flushCurrent()
}

// Flushed returns the number of documents written so far.
func (s *Splitter) Flushed() int { return s.flushed }

func (s *Splitter) flushCurrent() error {
	doc := s.current
	if err := s.flush(doc); err != nil {
		return err
	}
	s.flushed++
	s.reset(doc.Index + 1)
	return nil
}
