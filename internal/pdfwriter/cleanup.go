package pdfwriter

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// CleanupPartials removes leftover <prefix>_*.pdf.partial files in dir, written by an
// interrupted run. It returns how many were removed.
func CleanupPartials(dir, prefix string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"_") || !strings.HasSuffix(name, ".pdf"+PartialSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("could not remove partial PDF")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Str("output", dir).Msg("removed partial PDFs from an interrupted run")
	}
	return removed
}
