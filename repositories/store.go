// Package repositories persists every entity in BadgerDB. Values are JSON,
// keys carry the ordering: time-ordered entities embed a zero-padded
// nanosecond timestamp so a lexicographic prefix scan walks them in
// chronological order.
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"notifyhub/errors"
)

type BadgerStore struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewBadgerStore(db *badger.DB, log *slog.Logger, limitMessages *int) *BadgerStore {
	return &BadgerStore{db: db, log: log, limitMessages: limitMessages}
}

// get loads one JSON value. A missing key surfaces as ErrNotFound, any
// other badger failure as ErrStore.
func (s *BadgerStore) get(key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFoundf("key %s", key)
	}
	if err != nil {
		return errors.Storef("reading %s: %v", key, err)
	}
	return nil
}

// put stores one JSON value in its own transaction.
func (s *BadgerStore) put(key string, v any) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return errors.Storef("encoding %s: %v", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return errors.Storef("writing %s: %v", key, err)
	}
	return nil
}

func setJSON(txn *badger.Txn, key string, v any) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), bytes)
}

func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
