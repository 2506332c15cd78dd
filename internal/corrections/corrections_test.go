package corrections

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/local/archivepdf/internal/apperr"
)

func TestParseFullDocument(t *testing.T) {
	rec, err := Parse([]byte(`{
		"corrections": {"B.jpg": 90, "E.jpg": 270, "D.jpg": 180},
		"sectionBreaks": ["C.jpg", "D.jpg"],
		"discards": ["D.jpg"]
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := rec.RotationFor("B.jpg"); got != 90 {
		t.Fatalf("RotationFor(B.jpg) = %d, want 90", got)
	}
	if got := rec.RotationFor("A.jpg"); got != 0 {
		t.Fatalf("RotationFor(A.jpg) = %d, want default 0", got)
	}
	if !rec.IsSectionBreak("C.jpg") {
		t.Fatalf("C.jpg should be a section break")
	}
	if !rec.IsDiscarded("D.jpg") {
		t.Fatalf("D.jpg should be discarded")
	}
	// discarded ids keep no rotation and never break
	if rec.RotationFor("D.jpg") != 0 || rec.IsSectionBreak("D.jpg") {
		t.Fatalf("discarded D.jpg must ignore its rotation and section break")
	}
	if !rec.HasSectionBreaks() {
		t.Fatalf("expected effective section breaks")
	}
	rot, breaks, discards := rec.Counts()
	if rot != 3 || breaks != 2 || discards != 1 {
		t.Fatalf("Counts = %d,%d,%d", rot, breaks, discards)
	}
}

func TestParseMissingKeysAreEmpty(t *testing.T) {
	for _, doc := range []string{`{}`, `{"corrections": null}`, `{"discards": []}`} {
		rec, err := Parse([]byte(doc))
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		if rec.HasSectionBreaks() || rec.IsDiscarded("A.jpg") || rec.RotationFor("A.jpg") != 0 {
			t.Fatalf("%s: expected empty record", doc)
		}
	}
}

func TestParseLegacyFlatMap(t *testing.T) {
	rec, err := Parse([]byte(`{"IMG_0001.JPEG": 180, "IMG_0002.JPEG": 90}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.RotationFor("IMG_0001.JPEG") != 180 || rec.RotationFor("IMG_0002.JPEG") != 90 {
		t.Fatalf("legacy rotations not loaded")
	}
	if rec.HasSectionBreaks() {
		t.Fatalf("legacy format carries no section breaks")
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"out of range":   `{"corrections": {"B.jpg": 45}}`,
		"negative":       `{"corrections": {"B.jpg": -90}}`,
		"full turn":      `{"corrections": {"B.jpg": 360}}`,
		"fractional":     `{"corrections": {"B.jpg": 90.5}}`,
		"not json":       `{"corrections": `,
		"array":          `["A.jpg"]`,
		"null":           `null`,
		"legacy string":  `{"B.jpg": "sideways"}`,
		"breaks non str": `{"sectionBreaks": [1, 2]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !apperr.IsConfig(err) {
				t.Fatalf("expected ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestParseSnakeCaseBreaksAreNotApplied(t *testing.T) {
	rec, err := Parse([]byte(`{"corrections":{"B.jpg":90},"section_breaks":["C.jpg"],"discards":["D.jpg"]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.IsSectionBreak("C.jpg") || rec.HasSectionBreaks() {
		t.Fatalf("section_breaks is not a recognised key")
	}
	if got := rec.Ignored(); !reflect.DeepEqual(got, []string{"section_breaks"}) {
		t.Fatalf("Ignored() = %v, want [section_breaks]", got)
	}

	// without a known key the document reads as the flat rotation map and the array is rejected
	_, err = Parse([]byte(`{"section_breaks":["C.jpg"]}`))
	if !apperr.IsConfig(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestParseKnownKeysIgnoreNothing(t *testing.T) {
	rec, err := Parse([]byte(`{"corrections":{},"sectionBreaks":["C.jpg"],"discards":[]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rec.Ignored()) != 0 {
		t.Fatalf("Ignored() = %v, want none", rec.Ignored())
	}
	legacy, err := Parse([]byte(`{"B.jpg": 90}`))
	if err != nil {
		t.Fatalf("parse legacy: %v", err)
	}
	if len(legacy.Ignored()) != 0 {
		t.Fatalf("legacy ids must not be reported as ignored keys: %v", legacy.Ignored())
	}
}

func TestParseAcceptsIntegralFloat(t *testing.T) {
	rec, err := Parse([]byte(`{"corrections": {"B.jpg": 270.0}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.RotationFor("B.jpg") != 270 {
		t.Fatalf("got %d", rec.RotationFor("B.jpg"))
	}
}

func TestHasSectionBreaksIgnoresDiscarded(t *testing.T) {
	rec, err := Parse([]byte(`{"sectionBreaks": ["X.jpg"], "discards": ["X.jpg"]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.HasSectionBreaks() {
		t.Fatalf("a break on a discarded image must not count")
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	rec, err := Load(filepath.Join(t.TempDir(), "image_review.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.HasSectionBreaks() {
		t.Fatalf("expected empty record")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image_review.json")
	if err := os.WriteFile(path, []byte(`{"discards": ["D.jpg"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !rec.IsDiscarded("D.jpg") {
		t.Fatalf("D.jpg should be discarded")
	}
}

func TestUnreferenced(t *testing.T) {
	rec, err := Parse([]byte(`{"corrections": {"B.jpg": 90, "gone.jpg": 90}, "sectionBreaks": ["typo.jpg"], "discards": ["B.jpg"]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := rec.Unreferenced([]string{"A.jpg", "B.jpg"})
	want := []string{"gone.jpg", "typo.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Unreferenced = %v, want %v", got, want)
	}
}
