package pipeline

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// DocumentSummary describes one written PDF.
type DocumentSummary struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Pages int    `json:"pages"`
	Bytes int64  `json:"bytes"`
	First string `json:"first"`
	Last  string `json:"last"`
	URL   string `json:"url,omitempty"`
}

// Summary is the outcome of a run.
type Summary struct {
	RunID       string            `json:"run_id"`
	Documents   []DocumentSummary `json:"documents"`
	Included    int               `json:"included"`
	Discarded   int               `json:"discarded"`
	Skipped     []string          `json:"skipped"`
	Started     time.Time         `json:"started"`
	Duration    time.Duration     `json:"duration"`
	Interrupted bool              `json:"interrupted"`
}

// Pages returns the number of pages across all documents.
func (s *Summary) Pages() int {
	n := 0
	for _, d := range s.Documents {
		n += d.Pages
	}
	return n
}

// Print writes a human-readable report.
func (s *Summary) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s\n", s.RunID)
	for _, d := range s.Documents {
		loc := d.Path
		if d.URL != "" {
			loc = d.URL
		}
		fmt.Fprintf(tw, "  %s\t%d pages\t%s\t%s .. %s\t%s\n", d.Name, d.Pages, humanBytes(d.Bytes), d.First, d.Last, loc)
	}
	fmt.Fprintf(tw, "documents\t%d\n", len(s.Documents))
	fmt.Fprintf(tw, "included\t%d\n", s.Included)
	fmt.Fprintf(tw, "discarded\t%d\n", s.Discarded)
	fmt.Fprintf(tw, "skipped\t%d\n", len(s.Skipped))
	if len(s.Skipped) > 0 {
		fmt.Fprintf(tw, "  %s\n", strings.Join(s.Skipped, ", "))
	}
	if s.Interrupted {
		fmt.Fprintf(tw, "interrupted\tyes\n")
	}
	fmt.Fprintf(tw, "took\t%s\n", s.Duration.Round(time.Millisecond))
	return tw.Flush()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
