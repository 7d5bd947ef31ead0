// Package prefs is the durable per-user key-value storage backed by BadgerDB.
// It keeps small session preferences such as the last opened chat.
package prefs

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type Store struct {
	db *badger.DB
}

// Open opens a Badger database at path, or an in-memory one when path is empty
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return New(db), nil
}

// New wraps an already opened database
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value of key for user, ok is false when it was never set or removed
func (s *Store) Get(userID, key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefKey(userID, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(userID, key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(prefKey(userID, key), []byte(value))
	})
}

// Remove deletes key for user, removing a missing key is not an error
func (s *Store) Remove(userID, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(prefKey(userID, key))
	})
}

// Keys lists the keys set for user
func (s *Store) Keys(userID string) ([]string, error) {
	prefix := prefKey(userID, "")
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return keys, err
}

func prefKey(userID, key string) []byte {
	return []byte("pref:" + userID + ":" + key)
}
