// Package tagstore implements the on-demand tag cache backing the tag:
// filter (SPEC_FULL.md's expansion of spec §4.F/§4.I): a small embedded KV
// store, keyed by filesystem path, holding user-attached tags that survive
// across rescans (slab indices don't).
package tagstore

import (
	"strings"

	"go.etcd.io/bbolt"
)

var tagsBucket = []byte("tags")

// Store is a bbolt-backed tag cache. Tags are invalidated (deleted), never
// silently stale, when SearchCache removes the corresponding node.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tagsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the tags recorded for path, and whether any were found.
func (s *Store) Get(path string) ([]string, bool, error) {
	var tags []string
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(tagsBucket).Get([]byte(path))
		if v == nil {
			return nil
		}
		found = true
		tags = decodeTags(v)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return tags, found, nil
}

// Set replaces the tags recorded for path.
func (s *Store) Set(path string, tags []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tagsBucket).Put([]byte(path), encodeTags(tags))
	})
}

// Delete invalidates path's tags (called when SearchCache removes the
// corresponding node).
func (s *Store) Delete(path string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tagsBucket).Delete([]byte(path))
	})
}

// Rename moves a path's tags to newPath (rescan/rename reconciliation).
func (s *Store) Rename(oldPath, newPath string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tagsBucket)
		v := b.Get([]byte(oldPath))
		if v == nil {
			return nil
		}
		if err := b.Put([]byte(newPath), v); err != nil {
			return err
		}
		return b.Delete([]byte(oldPath))
	})
}

func encodeTags(tags []string) []byte {
	return []byte(strings.Join(tags, "\n"))
}

func decodeTags(v []byte) []string {
	if len(v) == 0 {
		return nil
	}
	return strings.Split(string(v), "\n")
}
