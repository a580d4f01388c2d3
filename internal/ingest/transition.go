package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// finishFile applies the terminal state transition after a file has been
// fully processed: delete when configured, otherwise rename so the
// original extension no longer matches the filter. Exactly one of the
// two happens. On failure the file keeps its original name and stays
// eligible for resubmission on a later scan.
func (s *Service) finishFile(path string) error {
	if s.cfg.DeleteAfterProcessing {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("delete %s: %w", path, err)
		}
		log.Info().Str("path", path).Msg("file deleted")
		return nil
	}
	if s.cfg.ExtensionAfterProcessing == "" {
		return nil
	}
	target := swapExtension(path, s.cfg.FileExtension, s.cfg.ExtensionAfterProcessing)
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	log.Info().Str("path", path).Str("renamed_to", target).Msg("file renamed")
	return nil
}

// swapExtension replaces the matched original extension at the end of
// path with newExt. The filter matched case-insensitively, so the
// suffix is located the same way.
func swapExtension(path, oldExt, newExt string) string {
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, strings.ToLower(oldExt)) {
		return path + newExt
	}
	return path[:len(path)-len(oldExt)] + newExt
}
