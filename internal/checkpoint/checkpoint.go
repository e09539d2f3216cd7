// Package checkpoint persists per-site crawl progress so an interrupted
// crawl resumes instead of re-walking visited URLs.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rfarchive/rfarchive/internal/archive"
)

// FileStore keeps one JSON snapshot per site. Writes go to a temp file in
// the same directory followed by a rename, so a crash never leaves a
// truncated checkpoint behind.
type FileStore struct {
	dir string
}

// New creates the checkpoint directory if needed.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save atomically replaces the site's checkpoint.
func (s *FileStore) Save(cp archive.Checkpoint) error {
	if cp.Site == "" {
		return &archive.CheckpointError{Site: cp.Site, Err: fmt.Errorf("checkpoint needs a site")}
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return &archive.CheckpointError{Site: cp.Site, Err: fmt.Errorf("encode: %w", err)}
	}

	path := s.path(cp.Site)
	tmp, err := os.CreateTemp(s.dir, ".ckpt-*")
	if err != nil {
		return &archive.CheckpointError{Site: cp.Site, Err: fmt.Errorf("create temp: %w", err)}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &archive.CheckpointError{Site: cp.Site, Err: fmt.Errorf("write temp: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &archive.CheckpointError{Site: cp.Site, Err: fmt.Errorf("close temp: %w", err)}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &archive.CheckpointError{Site: cp.Site, Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}

// Load returns the latest checkpoint for a site, ok=false when none exists.
func (s *FileStore) Load(site archive.Site) (archive.Checkpoint, bool, error) {
	data, err := os.ReadFile(s.path(site))
	if os.IsNotExist(err) {
		return archive.Checkpoint{}, false, nil
	}
	if err != nil {
		return archive.Checkpoint{}, false, fmt.Errorf("read checkpoint for %s: %w", site, err)
	}
	var cp archive.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return archive.Checkpoint{}, false, fmt.Errorf("decode checkpoint for %s: %w", site, err)
	}
	return cp, true, nil
}

func (s *FileStore) path(site archive.Site) string {
	return filepath.Join(s.dir, string(site)+".checkpoint.json")
}
