package contracts

import "errors"

// Storage errors as sentinel values. Implementations map their native
// failures onto these so the manager can classify degradation causes.
var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrAccessDenied  = errors.New("storage access denied")
	ErrStoreClosed   = errors.New("store is closed")
)

// KVStore is the durable key-value store behind cart persistence.
//
// Values are strings (serialized JSON). The cart manager is the sole
// writer of the primary keys and the backup rotator the sole writer of
// backup keys; no cross-process locking is provided.
type KVStore interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(key string) (string, error)

	// Set stores value under key, overwriting any prior value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys returns all keys beginning with prefix.
	Keys(prefix string) ([]string, error)

	// Close releases the underlying store.
	Close() error
}
