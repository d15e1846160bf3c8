package domain

import "time"

// Entry is one product's quantity record within the cart.
//
// AddedAt is set when the entry is created and is not touched by later
// quantity changes. An Entry with Quantity <= 0 must never be stored:
// zero-quantity operations are no-ops or removals at the manager level.
type Entry struct {
	ProductID int64
	Quantity  int
	AddedAt   time.Time
}

// PersistedItem is the serialized form of a cart entry.
type PersistedItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	AddedAt   string `json:"addedAt"`
}

// PersistedCart is the blob written to durable storage. On read it is
// untrusted input: it may be missing, truncated, or semantically invalid,
// and must pass through the recovery cascade before use.
type PersistedCart struct {
	Items     []PersistedItem `json:"items"`
	Timestamp string          `json:"timestamp"`
}

// EmptyPersistedCart returns the fallback blob used when nothing usable
// can be recovered from storage.
func EmptyPersistedCart(now time.Time) *PersistedCart {
	return &PersistedCart{
		Items:     []PersistedItem{},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// ToPersisted converts an entry to its serialized form.
func (e *Entry) ToPersisted() PersistedItem {
	return PersistedItem{
		ProductID: e.ProductID,
		Quantity:  e.Quantity,
		AddedAt:   e.AddedAt.UTC().Format(time.RFC3339),
	}
}

// ToEntry converts a persisted item back to a live entry. A malformed
// AddedAt falls back to now rather than failing the load.
func (p PersistedItem) ToEntry(now time.Time) Entry {
	addedAt, err := time.Parse(time.RFC3339, p.AddedAt)
	if err != nil {
		addedAt = now
	}
	return Entry{
		ProductID: p.ProductID,
		Quantity:  p.Quantity,
		AddedAt:   addedAt,
	}
}
