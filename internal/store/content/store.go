// Package content implements the content-addressed store for pages and
// images. Storage is keyed by SHA-256 of the bytes, guaranteeing at most one
// physical copy per distinct byte sequence.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rfarchive/rfarchive/internal/archive"
)

// Store writes content-addressed objects under a root directory, one subtree
// per media kind with two levels of hash-prefix sharding.
type Store struct {
	root string

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// New creates the store root if needed and verifies it is writable.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("content store root is required")
	}
	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(root, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create content store root: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat content store root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("content store root %s is not a directory", root)
	}

	probe := filepath.Join(root, ".writable_probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o600); err != nil {
		return nil, fmt.Errorf("content store root is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("remove write probe: %w", err)
	}

	return &Store{root: root, inflight: make(map[string]chan struct{})}, nil
}

// Put persists data under its content hash. Concurrent calls for the same
// hash are serialized so exactly one writer persists the bytes while the
// others observe isNew=false. A write failure is fatal for this item only.
func (s *Store) Put(data []byte, kind archive.MediaKind) (archive.StoredContent, bool, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	path := s.Path(hash, kind)

	stored := archive.StoredContent{
		Hash: hash,
		Size: int64(len(data)),
		Kind: kind,
		Path: path,
	}

	for {
		s.mu.Lock()
		if ch, ok := s.inflight[hash]; ok {
			s.mu.Unlock()
			<-ch
			continue
		}
		if _, err := os.Stat(path); err == nil {
			s.mu.Unlock()
			return stored, false, nil
		}
		ch := make(chan struct{})
		s.inflight[hash] = ch
		s.mu.Unlock()

		err := writeAtomic(path, data)

		s.mu.Lock()
		delete(s.inflight, hash)
		s.mu.Unlock()
		close(ch)

		if err != nil {
			return archive.StoredContent{}, false, &archive.StorageError{Op: "put", Path: path, Err: err}
		}
		return stored, true, nil
	}
}

// Open returns a reader over a stored object.
func (s *Store) Open(hash string, kind archive.MediaKind) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(hash, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open %s %s: %w", kind, hash, archive.ErrNotFound)
		}
		return nil, &archive.StorageError{Op: "open", Path: s.Path(hash, kind), Err: err}
	}
	return f, nil
}

// Path reports where an object with the given hash lives. The layout is part
// of the archive contract consumed by the serving layer.
func (s *Store) Path(hash string, kind archive.MediaKind) string {
	dir := "pages"
	if kind == archive.MediaImage {
		dir = "images"
	}
	shard1, shard2 := "00", "00"
	if len(hash) >= 4 {
		shard1, shard2 = hash[:2], hash[2:4]
	}
	return filepath.Join(s.root, dir, shard1, shard2, hash)
}

// writeAtomic writes to a temp file in the target directory, then renames it
// into place so readers never observe partial objects.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp object: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp object: %w", err)
	}
	return nil
}
