package corrections

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/local/archivepdf/internal/apperr"
)

// Record is a parsed corrections file. It is read once and never mutated.
type Record struct {
	rotations     map[string]int
	sectionBreaks map[string]struct{}
	discards      map[string]struct{}
	ignored       []string
}

// document mirrors the JSON written by the review tool.
type document struct {
	Corrections   map[string]json.Number `json:"corrections"`
	SectionBreaks []string               `json:"sectionBreaks"`
	Discards      []string               `json:"discards"`
}

// Empty returns a record with no corrections.
func Empty() *Record {
	return &Record{
		rotations:     map[string]int{},
		sectionBreaks: map[string]struct{}{},
		discards:      map[string]struct{}{},
	}
}

// Load reads and parses the corrections file at path. A missing file is not an error:
// the run proceeds with an empty record.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("review", path).Msg("corrections file not found, using defaults")
		return Empty(), nil
	}
	if err != nil {
		return nil, &apperr.ConfigError{Field: "review", Message: "cannot read corrections file", Err: err}
	}
	rec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	rot, breaks, discards := rec.Counts()
	log.Info().
		Str("review", path).
		Int("rotations", rot).
		Int("sections", breaks).
		Int("discards", discards).
		Msg("loaded review")
	return rec, nil
}

// Parse decodes a corrections document. Besides the current
// {corrections, sectionBreaks, discards} shape it accepts the older flat {id: degrees} map.
func Parse(data []byte) (*Record, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &apperr.ConfigError{Field: "review", Message: "malformed corrections JSON", Err: err}
	}
	if top == nil {
		return nil, apperr.Configf("review", "corrections JSON must be an object")
	}

	var doc document
	if isLegacy(top) {
		doc.Corrections = make(map[string]json.Number, len(top))
		for id, raw := range top {
			n, err := decodeNumber(raw)
			if err != nil {
				return nil, &apperr.ConfigError{Field: fmt.Sprintf("corrections[%s]", id), Message: "rotation must be a number", Err: err}
			}
			doc.Corrections[id] = n
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, &apperr.ConfigError{Field: "review", Message: "malformed corrections JSON", Err: err}
		}
	}

	rec := Empty()
	if !isLegacy(top) {
		rec.ignored = unknownKeys(top)
		for _, key := range rec.ignored {
			log.Warn().Str("key", key).Msg("ignoring unknown key in corrections JSON")
		}
	}
	for id, n := range doc.Corrections {
		deg, err := validRotation(n)
		if err != nil {
			return nil, &apperr.ConfigError{Field: fmt.Sprintf("corrections[%s]", id), Message: err.Error()}
		}
		rec.rotations[id] = deg
	}
	for _, id := range doc.SectionBreaks {
		rec.sectionBreaks[id] = struct{}{}
	}
	for _, id := range doc.Discards {
		rec.discards[id] = struct{}{}
	}
	return rec, nil
}

// isLegacy reports whether the top-level object is the flat rotation map written by
// early versions of the review tool.
func isLegacy(top map[string]json.RawMessage) bool {
	for _, key := range []string{"corrections", "sectionBreaks", "discards"} {
		if _, ok := top[key]; ok {
			return false
		}
	}
	return len(top) > 0
}

func unknownKeys(top map[string]json.RawMessage) []string {
	var keys []string
	for key := range top {
		switch key {
		case "corrections", "sectionBreaks", "discards":
		default:
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Ignored returns the top-level keys of the parsed document that were not understood.
func (r *Record) Ignored() []string { return r.ignored }

func decodeNumber(raw json.RawMessage) (json.Number, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", err
	}
	return n, nil
}

func validRotation(n json.Number) (int, error) {
	f, err := n.Float64()
	if err != nil || math.Trunc(f) != f {
		return 0, fmt.Errorf("rotation %s is not an integer", n.String())
	}
	switch deg := int(f); deg {
	case 0, 90, 180, 270:
		return deg, nil
	default:
		return 0, fmt.Errorf("rotation %d not in {0,90,180,270}", deg)
	}
}

// RotationFor returns the clockwise degrees recorded for id, 0 when absent or discarded.
func (r *Record) RotationFor(id string) int {
	if r.IsDiscarded(id) {
		return 0
	}
	return r.rotations[id]
}

// IsSectionBreak reports whether a new document starts at id. Discarded ids never break.
func (r *Record) IsSectionBreak(id string) bool {
	if r.IsDiscarded(id) {
		return false
	}
	_, ok := r.sectionBreaks[id]
	return ok
}

// IsDiscarded reports whether id is excluded from all output.
func (r *Record) IsDiscarded(id string) bool {
	_, ok := r.discards[id]
	return ok
}

// HasSectionBreaks reports whether any effective section break exists. When true the
// size ceiling is never consulted.
func (r *Record) HasSectionBreaks() bool {
	for id := range r.sectionBreaks {
		if !r.IsDiscarded(id) {
			return true
		}
	}
	return false
}

// Counts returns the raw number of rotation, section-break and discard entries.
func (r *Record) Counts() (rotations, sectionBreaks, discards int) {
	return len(r.rotations), len(r.sectionBreaks), len(r.discards)
}

// Unreferenced lists identifiers named in the record that are absent from ids, sorted.
func (r *Record) Unreferenced(ids []string) []string {
	present := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		present[id] = struct{}{}
	}
	seen := map[string]struct{}{}
	add := func(id string) {
		if _, ok := present[id]; !ok {
			seen[id] = struct{}{}
		}
	}
	for id := range r.rotations {
		add(id)
	}
	for id := range r.sectionBreaks {
		add(id)
	}
	for id := range r.discards {
		add(id)
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
