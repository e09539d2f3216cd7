// Package index implements the durable archive index on bbolt. It maps
// logical identifiers to stored content and is the read surface for the
// external serving layer.
package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rfarchive/rfarchive/internal/archive"
	"github.com/rfarchive/rfarchive/internal/site"
)

var (
	bucketRecords = []byte("records")
	bucketHashes  = []byte("hashes")
	bucketOrder   = []byte("order")
	bucketDone    = []byte("done")
)

// DB is the embedded archive index. Safe for concurrent use; bbolt serializes
// writers internally.
type DB struct {
	db *bolt.DB
}

// Open opens (or creates) the index database and its buckets.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketHashes, bucketOrder, bucketDone} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Record upserts an ArchiveRecord. Refetches of the same logical id overwrite
// the record with the newer content hash; stored bytes stay addressable by
// hash, so nothing is lost. There is no deletion API.
func (d *DB) Record(rec archive.ArchiveRecord) error {
	if rec.Site == "" || rec.LogicalID == "" {
		return fmt.Errorf("record needs site and logical id")
	}
	key := recordKey(rec.Site, rec.LogicalID)
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	err = d.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRecords).Put(key, value); err != nil {
			return err
		}
		hashKey := append(append([]byte(rec.ContentHash), 0), key...)
		if err := tx.Bucket(bucketHashes).Put(hashKey, nil); err != nil {
			return err
		}
		if rec.Kind == archive.MediaPage && !rec.PublishedAt.IsZero() {
			ok, err := orderKey(rec)
			if err != nil {
				return err
			}
			if err := tx.Bucket(bucketOrder).Put(ok, key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &archive.StorageError{Op: "record", Path: string(key), Err: err}
	}
	return nil
}

// Lookup fetches the record for (site, logical id).
func (d *DB) Lookup(s archive.Site, logicalID string) (archive.ArchiveRecord, error) {
	var rec archive.ArchiveRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bucketRecords).Get(recordKey(s, logicalID))
		if value == nil {
			return archive.ErrNotFound
		}
		return json.Unmarshal(value, &rec)
	})
	if err != nil {
		return archive.ArchiveRecord{}, fmt.Errorf("lookup %s/%s: %w", s, logicalID, err)
	}
	return rec, nil
}

// ByHash lists every record referencing a stored object. Shared images yield
// one entry per referencing article.
func (d *DB) ByHash(hash string) ([]archive.ArchiveRecord, error) {
	var recs []archive.ArchiveRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		c := tx.Bucket(bucketHashes).Cursor()
		prefix := append([]byte(hash), 0)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			value := records.Get(k[len(prefix):])
			if value == nil {
				continue
			}
			var rec archive.ArchiveRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("by hash %s: %w", hash, err)
	}
	return recs, nil
}

// ListSite returns up to limit page records for a site in publish order.
// limit <= 0 means no limit.
func (d *DB) ListSite(s archive.Site, limit int) ([]archive.ArchiveRecord, error) {
	edition, err := site.EditionFor(s)
	if err != nil {
		return nil, err
	}
	var recs []archive.ArchiveRecord
	err = d.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		c := tx.Bucket(bucketOrder).Cursor()
		prefix := []byte{edition.Code}
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			value := records.Get(v)
			if value == nil {
				continue
			}
			var rec archive.ArchiveRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			recs = append(recs, rec)
			if limit > 0 && len(recs) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list site %s: %w", s, err)
	}
	return recs, nil
}

// MarkWindowDone records a completed site-month feed window so re-runs skip
// its list pages entirely.
func (d *DB) MarkWindowDone(s archive.Site, window string) error {
	err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDone).Put(windowKey(s, window), nil)
	})
	if err != nil {
		return &archive.StorageError{Op: "mark done", Path: window, Err: err}
	}
	return nil
}

// WindowDone reports whether a site-month window has been fully archived.
func (d *DB) WindowDone(s archive.Site, window string) (bool, error) {
	var done bool
	err := d.db.View(func(tx *bolt.Tx) error {
		done = tx.Bucket(bucketDone).Get(windowKey(s, window)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("window done %s %s: %w", s, window, err)
	}
	return done, nil
}

func recordKey(s archive.Site, logicalID string) []byte {
	return []byte(string(s) + "/" + logicalID)
}

func windowKey(s archive.Site, window string) []byte {
	return []byte(string(s) + "-" + window)
}

// orderKey is site code + big-endian publish timestamp + logical id, giving a
// per-site chronological sort order under a byte-wise cursor scan.
func orderKey(rec archive.ArchiveRecord) ([]byte, error) {
	edition, err := site.EditionFor(rec.Site)
	if err != nil {
		return nil, err
	}
	id := []byte(rec.LogicalID)
	key := make([]byte, 0, 1+8+len(id))
	key = append(key, edition.Code)
	key = binary.BigEndian.AppendUint64(key, uint64(rec.PublishedAt.Unix()))
	key = append(key, id...)
	return key, nil
}
