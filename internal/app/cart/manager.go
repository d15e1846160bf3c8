// Package cart owns the in-memory cart state and its durable-storage
// synchronization. The Manager is the sole writer of the cart's primary
// storage keys.
package cart

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
	"github.com/light-bringer/cart-service/internal/app/cart/domain"
	"github.com/light-bringer/cart-service/internal/pkg/backup"
	"github.com/light-bringer/cart-service/internal/pkg/clock"
	"github.com/light-bringer/cart-service/internal/pkg/recovery"
	"github.com/light-bringer/cart-service/internal/pkg/validate"
)

// Outcome distinguishes an applied mutation from a no-op. A validation or
// referential failure is reported through the error return, never through
// Outcome.
type Outcome int

const (
	// OutcomeNoop means the call was valid but changed nothing
	// (zero-quantity add, removing an absent item, clearing an empty
	// cart).
	OutcomeNoop Outcome = iota

	// OutcomeApplied means state changed and listeners were notified.
	OutcomeApplied

	// OutcomeRemoved means the entry was deleted as a result of the call.
	OutcomeRemoved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeRemoved:
		return "removed"
	default:
		return "noop"
	}
}

// ListenerID identifies a registered change listener.
type ListenerID int

// ListenerFunc is called synchronously after every applied mutation.
// Panics are recovered and logged; they never propagate to the mutation
// caller and never prevent other listeners from running.
type ListenerFunc func(evt domain.Event)

// Config carries the manager's dependencies. Catalog is required. Store,
// Rules, Backups and Reporter are optional: a nil Store starts the manager
// in session-only mode, a nil Rules falls back to inline range checks, and
// nil Backups/Reporter disable those collaborators. Optional dependencies
// are checked once here, never re-probed per call.
type Config struct {
	Store    contracts.KVStore
	Catalog  contracts.CatalogLookup
	Rules    *validate.Rules
	Backups  *backup.Rotator
	Reporter contracts.ErrorReporter
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Manager owns the product-id to entry mapping and every operation on it.
//
// All operations run to completion synchronously; the Manager is not safe
// for concurrent use and expects a single calling goroutine, mirroring the
// single-writer model of the underlying store.
type Manager struct {
	store    contracts.KVStore
	catalog  contracts.CatalogLookup
	rules    *validate.Rules
	backups  *backup.Rotator
	reporter contracts.ErrorReporter
	clk      clock.Clock
	log      *zap.Logger
	engine   *recovery.Engine

	entries map[int64]*domain.Entry
	order   []int64

	sessionOnly bool
	lastSaved   string
	listeners   map[ListenerID]ListenerFunc
	listenerSeq ListenerID
	listenerOrd []ListenerID
}

// NewManager constructs a manager and immediately recovers state from the
// configured store.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("cart: a catalog lookup is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	m := &Manager{
		store:     cfg.Store,
		catalog:   cfg.Catalog,
		rules:     cfg.Rules,
		backups:   cfg.Backups,
		reporter:  cfg.Reporter,
		clk:       cfg.Clock,
		log:       cfg.Logger,
		entries:   make(map[int64]*domain.Entry),
		listeners: make(map[ListenerID]ListenerFunc),
	}
	if cfg.Store == nil {
		m.sessionOnly = true
		m.log.Warn("no store configured, cart will not persist between sessions")
		return m, nil
	}

	m.engine = recovery.NewEngine(cfg.Store, cfg.Logger)
	m.engine.RegisterKind(recovery.KindCart, recovery.CartKind(cfg.Clock))
	m.loadFromStorage()
	return m, nil
}

// AddItem adds quantity units of a product, merging into an existing entry
// if one exists. A zero quantity is a no-op; an unknown product fails with
// domain.ErrProductNotFound.
func (m *Manager) AddItem(productID int64, quantity int) (Outcome, error) {
	id, err := m.checkProductID(productID)
	if err != nil {
		return OutcomeNoop, err
	}
	qty, err := m.checkQuantity(quantity)
	if err != nil {
		return OutcomeNoop, err
	}
	if qty == 0 {
		return OutcomeNoop, nil
	}
	if _, err := m.catalog.GetProductByID(id); err != nil {
		return OutcomeNoop, fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}

	entry, exists := m.entries[id]
	if exists {
		merged, err := m.checkQuantity(entry.Quantity + qty)
		if err != nil {
			return OutcomeNoop, fmt.Errorf("merged quantity invalid: %w", err)
		}
		entry.Quantity = merged
	} else {
		entry = &domain.Entry{ProductID: id, Quantity: qty, AddedAt: m.clk.Now()}
		m.entries[id] = entry
		m.order = append(m.order, id)
	}

	m.notify(domain.EventItemAdded, id, entry.Quantity)
	m.saveToStorage()
	return OutcomeApplied, nil
}

// RemoveItem deletes a product's entry. Removing an absent product is a
// no-op, not an error.
func (m *Manager) RemoveItem(productID int64) (Outcome, error) {
	id, err := m.checkProductID(productID)
	if err != nil {
		return OutcomeNoop, err
	}
	entry, exists := m.entries[id]
	if !exists {
		return OutcomeNoop, nil
	}

	m.deleteEntry(id)
	m.notify(domain.EventItemRemoved, id, entry.Quantity)
	m.saveToStorage()
	return OutcomeRemoved, nil
}

// UpdateQuantity sets a product's quantity. Zero delegates to RemoveItem;
// an absent entry fails with domain.ErrItemNotInCart.
func (m *Manager) UpdateQuantity(productID int64, quantity int) (Outcome, error) {
	id, err := m.checkProductID(productID)
	if err != nil {
		return OutcomeNoop, err
	}
	qty, err := m.checkQuantity(quantity)
	if err != nil {
		return OutcomeNoop, err
	}
	entry, exists := m.entries[id]
	if !exists {
		return OutcomeNoop, fmt.Errorf("%w: %d", domain.ErrItemNotInCart, id)
	}
	if qty == 0 {
		return m.RemoveItem(id)
	}

	entry.Quantity = qty
	m.notify(domain.EventQuantityUpdated, id, qty)
	m.saveToStorage()
	return OutcomeApplied, nil
}

// Clear empties the cart. Clearing an already-empty cart performs no
// notification and no persistence write.
func (m *Manager) Clear() (Outcome, error) {
	if len(m.entries) == 0 {
		return OutcomeNoop, nil
	}

	m.entries = make(map[int64]*domain.Entry)
	m.order = nil
	m.notify(domain.EventCartCleared, 0, 0)
	m.saveToStorage()
	return OutcomeApplied, nil
}

// Items returns entry copies in insertion order.
func (m *Manager) Items() []domain.Entry {
	out := make([]domain.Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.entries[id])
	}
	return out
}

// Item returns a copy of one product's entry.
func (m *Manager) Item(productID int64) (domain.Entry, bool) {
	entry, ok := m.entries[productID]
	if !ok {
		return domain.Entry{}, false
	}
	return *entry, true
}

// IsEmpty reports whether the cart holds no entries.
func (m *Manager) IsEmpty() bool {
	return len(m.entries) == 0
}

// Count returns the sum of all entries' quantities.
func (m *Manager) Count() int {
	total := 0
	for _, entry := range m.entries {
		total += entry.Quantity
	}
	return total
}

// AddListener registers a change listener and returns its handle.
func (m *Manager) AddListener(fn ListenerFunc) ListenerID {
	m.listenerSeq++
	id := m.listenerSeq
	m.listeners[id] = fn
	m.listenerOrd = append(m.listenerOrd, id)
	return id
}

// RemoveListener deregisters a listener. Unknown handles are ignored.
func (m *Manager) RemoveListener(id ListenerID) {
	if _, ok := m.listeners[id]; !ok {
		return
	}
	delete(m.listeners, id)
	for i, lid := range m.listenerOrd {
		if lid == id {
			m.listenerOrd = append(m.listenerOrd[:i], m.listenerOrd[i+1:]...)
			break
		}
	}
}

// ValidationReport is the outcome of a repair-in-place pass.
type ValidationReport struct {
	Valid  bool
	Issues []string
	Fixed  int
}

// ValidateCart re-validates every entry against the quantity rules and the
// catalog, dropping entries that fail either. This is a repair-in-place
// pass distinct from load-time recovery.
func (m *Manager) ValidateCart() ValidationReport {
	var report ValidationReport
	for _, id := range append([]int64(nil), m.order...) {
		entry := m.entries[id]
		if _, err := m.checkQuantity(entry.Quantity); err != nil || entry.Quantity <= 0 {
			report.Issues = append(report.Issues,
				fmt.Sprintf("product %d: invalid quantity %d", id, entry.Quantity))
			m.deleteEntry(id)
			report.Fixed++
			continue
		}
		if _, err := m.catalog.GetProductByID(id); err != nil {
			report.Issues = append(report.Issues,
				fmt.Sprintf("product %d: no longer in catalog", id))
			m.deleteEntry(id)
			report.Fixed++
		}
	}
	report.Valid = len(report.Issues) == 0
	if report.Fixed > 0 {
		m.log.Warn("dropped invalid cart entries",
			zap.Int("dropped", report.Fixed),
			zap.Strings("issues", report.Issues))
		m.saveToStorage()
	}
	return report
}

// checkProductID sanitizes and validates a product id.
func (m *Manager) checkProductID(productID int64) (int64, error) {
	if m.rules != nil {
		res := m.rules.Validate(productID, validate.KindProductID)
		if !res.Valid {
			return 0, m.validationErr(domain.ErrInvalidProductID, res.Errors)
		}
		return *res.Sanitized, nil
	}
	if productID < 1 {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidProductID, productID)
	}
	return productID, nil
}

// checkQuantity sanitizes and validates a quantity.
func (m *Manager) checkQuantity(quantity int) (int, error) {
	if m.rules != nil {
		res := m.rules.Validate(quantity, validate.KindQuantity)
		if !res.Valid {
			return 0, m.validationErr(domain.ErrInvalidQuantity, res.Errors)
		}
		return int(*res.Sanitized), nil
	}
	if quantity < 0 || quantity > validate.MaxQuantity {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	return quantity, nil
}

func (m *Manager) validationErr(sentinel error, reasons []string) error {
	err := fmt.Errorf("%w: %s", sentinel, strings.Join(reasons, "; "))
	if m.reporter != nil {
		m.reporter.HandleValidationError(err, "cart input validation")
	}
	return err
}

func (m *Manager) deleteEntry(id int64) {
	delete(m.entries, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// notify invokes every listener in registration order. A panicking
// listener is logged and skipped; the rest still run.
func (m *Manager) notify(name domain.EventName, productID int64, quantity int) {
	if len(m.listeners) == 0 {
		return
	}
	evt := domain.Event{
		Name:       name,
		ProductID:  productID,
		Quantity:   quantity,
		ItemCount:  m.Count(),
		OccurredAt: m.clk.Now(),
	}
	for _, id := range m.listenerOrd {
		fn, ok := m.listeners[id]
		if !ok {
			continue
		}
		m.callListener(fn, evt)
	}
}

func (m *Manager) callListener(fn ListenerFunc, evt domain.Event) {
	defer func() {
		if p := recover(); p != nil {
			m.log.Error("cart listener panicked",
				zap.String("event", string(evt.Name)),
				zap.Any("panic", p))
		}
	}()
	fn(evt)
}
