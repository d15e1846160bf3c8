package domain

import "time"

// EventName identifies a cart mutation for change listeners.
type EventName string

const (
	EventItemAdded       EventName = "itemAdded"
	EventItemRemoved     EventName = "itemRemoved"
	EventQuantityUpdated EventName = "quantityUpdated"
	EventCartCleared     EventName = "cartCleared"
)

// Event is the payload delivered synchronously to registered listeners
// after a state-mutating operation.
type Event struct {
	Name       EventName
	ProductID  int64
	Quantity   int
	ItemCount  int
	OccurredAt time.Time
}
