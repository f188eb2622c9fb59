// Package runlog keeps an append-only journal of the pin operations a server
// has dispatched, so that waveforms fired hours ago can still be inspected.
package runlog

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"
	"time"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/oklog/ulid/v2"
)

// Record describes one dispatched operation and its outcome.
type Record struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Op     string    `json:"op"`
	Pin    int       `json:"pin"`
	Detail string    `json:"detail,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Log is a badger-backed journal of records.
type Log struct {
	db *badger.DB
}

const runKeyPrefix = "run/"

// Open opens (creating it if needed) a run log database in dir.
func Open(dir string) (*Log, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("unable to open badger db: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append stamps r with a ULID and the current time if they are unset, then
// stores it. ULIDs sort by creation time, so key order is chronological.
func (l *Log) Append(r Record) (Record, error) {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	if r.ID == "" {
		entropy := ulid.Monotonic(rand.New(rand.NewSource(r.Time.UnixNano())), 0)
		r.ID = ulid.MustNew(ulid.Timestamp(r.Time), entropy).String()
	}

	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(r); err != nil {
		return r, fmt.Errorf("couldn't encode record with gob: %w", err)
	}

	err := l.db.Update(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(runKeyPrefix+r.ID), buf.Bytes()); err != nil {
			return fmt.Errorf("couldn't set record: %w", err)
		}

		return nil
	})
	if err != nil {
		return r, fmt.Errorf("couldn't store record: %w", err)
	}

	return r, nil
}

// Recent returns up to n records, newest first.
func (l *Log) Recent(n int) ([]Record, error) {
	records := make([]Record, 0)

	err := l.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := tx.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runKeyPrefix)
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix) && len(records) < n; it.Next() {
			var r Record
			err := it.Item().Value(func(val []byte) error {
				if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&r); err != nil {
					return fmt.Errorf("couldn't decode record with gob: %w", err)
				}

				return nil
			})
			if err != nil {
				return fmt.Errorf("couldn't read record %q: %w", it.Item().Key(), err)
			}

			records = append(records, r)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't walk records: %w", err)
	}

	return records, nil
}
