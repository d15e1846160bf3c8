// Package memkv is a map-backed KVStore for tests and ephemeral setups.
// It supports fault injection so callers can exercise the storage-failure
// degradation paths without a real store misbehaving on cue.
package memkv

import (
	"sort"
	"strings"
	"sync"

	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
)

// Store implements contracts.KVStore in memory.
type Store struct {
	mu       sync.Mutex
	data     map[string]string
	writeErr error
	readErr  error
	failNext int // fail this many writes, then recover; -1 means always
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// FailWrites makes every subsequent Set/Delete fail with err. Pass nil to
// restore normal behavior.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
	s.failNext = -1
}

// FailNextWrites makes the next n Set/Delete calls fail with err.
func (s *Store) FailNextWrites(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
	s.failNext = n
}

// FailReads makes every subsequent Get/Keys fail with err. Pass nil to
// restore normal behavior.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return "", s.readErr
	}
	v, ok := s.data[key]
	if !ok {
		return "", contracts.ErrKeyNotFound
	}
	return v, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeWriteErr(); err != nil {
		return err
	}
	s.data[key] = value
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeWriteErr(); err != nil {
		return err
	}
	delete(s.data, key)
	return nil
}

// Keys returns all keys beginning with prefix, sorted.
func (s *Store) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Store) takeWriteErr() error {
	if s.writeErr == nil || s.failNext == 0 {
		return nil
	}
	err := s.writeErr
	if s.failNext > 0 {
		s.failNext--
		if s.failNext == 0 {
			s.writeErr = nil
		}
	}
	return err
}
