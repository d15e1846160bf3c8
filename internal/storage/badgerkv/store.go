// Package badgerkv backs the cart's key-value contract with BadgerDB,
// giving single-process durable storage with low-latency reads.
package badgerkv

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
)

// Config holds the store configuration.
type Config struct {
	// Dir is the directory for BadgerDB files. Required unless InMemory.
	Dir string

	// InMemory disables disk persistence. Useful for tests and demos.
	InMemory bool

	// SyncWrites forces fsync on every write for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. nil disables it.
	Logger *zap.Logger
}

// Store implements contracts.KVStore on BadgerDB.
type Store struct {
	db *badger.DB
}

// Open creates or opens a store.
func Open(cfg Config) (*Store, error) {
	dir := cfg.Dir
	if cfg.InMemory {
		// BadgerDB rejects a directory in disk-less mode.
		dir = ""
	} else if dir == "" {
		return nil, fmt.Errorf("badgerkv: Dir is required for a persistent store")
	}

	opts := badger.DefaultOptions(dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&zapAdapter{sugar: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerkv: failed to open database: %w", mapErr(err))
	}
	return &Store{db: db}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", mapErr(err)
	}
	return value, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// Delete removes key. Absent keys are not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return mapErr(err)
	}
	return nil
}

// Keys returns all keys beginning with prefix.
func (s *Store) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return keys, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return mapErr(err)
	}
	return nil
}

// mapErr translates BadgerDB failures onto the storage contract sentinels.
func mapErr(err error) error {
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return contracts.ErrKeyNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return fmt.Errorf("%w: %v", contracts.ErrStoreClosed, err)
	case errors.Is(err, badger.ErrTxnTooBig):
		return fmt.Errorf("%w: %v", contracts.ErrQuotaExceeded, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", contracts.ErrAccessDenied, err)
	default:
		return err
	}
}

// zapAdapter bridges badger.Logger onto zap.
type zapAdapter struct {
	sugar *zap.SugaredLogger
}

func (a *zapAdapter) Errorf(format string, args ...any)   { a.sugar.Errorf(format, args...) }
func (a *zapAdapter) Warningf(format string, args ...any) { a.sugar.Warnf(format, args...) }
func (a *zapAdapter) Infof(format string, args ...any)    { a.sugar.Debugf(format, args...) }
func (a *zapAdapter) Debugf(format string, args ...any)   { a.sugar.Debugf(format, args...) }
