// Package x_journal keeps the history of committed tree operations in a
// bbolt file, keyed by ULID so keys sort by time.
package x_journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	bbolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// Journal is a tree_type.Journal backed by bbolt.
type Journal struct {
	db *bbolt.DB
}

var _ tree_type.Journal = (*Journal)(nil)

// Open opens or creates the journal file.
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("x_journal: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("x_journal: init %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

// newID returns a ULID for t, falling back to the current time.
func newID(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	id, err := ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}

// Record stores one entry. An empty ID or time is filled in.
func (j *Journal) Record(ctx context.Context, e tree_type.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = newID(e.At)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("x_journal: encode: %w", err)
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(e.ID), data)
	})
}

// List returns up to n entries, newest first. An empty table matches all;
// n <= 0 returns everything.
func (j *Journal) List(n int, table string) ([]tree_type.Entry, error) {
	var out []tree_type.Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(out) >= n {
				break
			}
			var e tree_type.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue // skip damaged records
			}
			if table != "" && e.Table != table {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Close closes the journal file.
func (j *Journal) Close() error {
	return j.db.Close()
}
