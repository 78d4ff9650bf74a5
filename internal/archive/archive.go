// Package archive writes expired decision records to compressed NDJSON
// files before the retention job deletes them from the readings log.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"safewave/internal/types"
)

// Archiver serializes decision records into gzip-compressed NDJSON files,
// one file per retention run, named by the run timestamp.
type Archiver struct {
	dir string
}

// NewArchiver creates an Archiver rooted at dir, creating it if needed.
func NewArchiver(dir string) (*Archiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &Archiver{dir: dir}, nil
}

// Archive writes the records to a new compressed file and returns its path.
// The write is staged through a temp file and renamed into place so a
// crashed run never leaves a truncated archive behind.
func (a *Archiver) Archive(recs []*types.DecisionRecord, runAt time.Time) (string, error) {
	name := fmt.Sprintf("safewave-readings-%s.ndjson.gz", runAt.UTC().Format("20060102T150405Z"))
	finalPath := filepath.Join(a.dir, name)
	tmpPath := finalPath + ".tmp"

	if err := a.writeFile(tmpPath, recs); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("finalizing archive file: %w", err)
	}
	return finalPath, nil
}

func (a *Archiver) writeFile(path string, recs []*types.DecisionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			zw.Close()
			return fmt.Errorf("encoding decision record %s: %w", rec.ID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing archive file: %w", err)
	}
	return f.Sync()
}
