package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
	"github.com/light-bringer/cart-service/internal/app/cart/domain"
	"github.com/light-bringer/cart-service/internal/pkg/recovery"
)

// Durable storage layout.
const (
	// StorageKeyItems holds the JSON-encoded persisted cart blob.
	StorageKeyItems = "shopping-cart-items"

	// StorageKeyTimestamp holds the last save time as RFC3339.
	StorageKeyTimestamp = "shopping-cart-timestamp"
)

// StorageInfo describes the persistence state of the manager.
type StorageInfo struct {
	SessionOnly bool
	ItemCount   int
	LastSaved   string
	Key         string
}

// StorageInfo reports whether persistence is active and when state was
// last written.
func (m *Manager) StorageInfo() StorageInfo {
	return StorageInfo{
		SessionOnly: m.sessionOnly,
		ItemCount:   len(m.entries),
		LastSaved:   m.lastSaved,
		Key:         StorageKeyItems,
	}
}

// ReloadFromStorage discards in-memory state and re-runs load-time
// recovery against the store. It does not clear session-only mode: that
// transition is one-way for the life of the process.
func (m *Manager) ReloadFromStorage() error {
	if m.store == nil {
		return fmt.Errorf("cart: no store configured")
	}
	m.entries = make(map[int64]*domain.Entry)
	m.order = nil
	m.loadFromStorage()
	return nil
}

// ClearStorage deletes the cart's primary keys. Best-effort: a failing
// delete degrades the manager like any other storage failure.
func (m *Manager) ClearStorage() error {
	if m.store == nil {
		return fmt.Errorf("cart: no store configured")
	}
	if err := m.store.Delete(StorageKeyItems); err != nil {
		m.handleStorageError(err, "clear storage")
		return err
	}
	if err := m.store.Delete(StorageKeyTimestamp); err != nil {
		m.handleStorageError(err, "clear storage timestamp")
		return err
	}
	return nil
}

// snapshot serializes the current state as a persisted blob.
func (m *Manager) snapshot() *domain.PersistedCart {
	blob := &domain.PersistedCart{
		Items:     make([]domain.PersistedItem, 0, len(m.order)),
		Timestamp: m.clk.Now().UTC().Format(time.RFC3339),
	}
	for _, id := range m.order {
		blob.Items = append(blob.Items, m.entries[id].ToPersisted())
	}
	return blob
}

// saveToStorage writes the current state to the primary keys, snapshotting
// the prior blob first. Storage failures never escape: they degrade the
// manager to session-only and subsequent saves become silent no-ops.
func (m *Manager) saveToStorage() {
	if m.sessionOnly || m.store == nil {
		return
	}

	if m.backups != nil {
		if prev, err := m.store.Get(StorageKeyItems); err == nil {
			m.backups.Create(StorageKeyItems, prev)
		}
	}

	raw, err := json.Marshal(m.snapshot())
	if err != nil {
		m.handleStorageError(err, "serialize cart")
		return
	}
	if err := m.store.Set(StorageKeyItems, string(raw)); err != nil {
		m.handleStorageError(err, "save cart")
		return
	}
	now := m.clk.Now().UTC().Format(time.RFC3339)
	if err := m.store.Set(StorageKeyTimestamp, now); err != nil {
		m.handleStorageError(err, "save cart timestamp")
		return
	}
	m.lastSaved = now
	m.log.Debug("cart persisted",
		zap.Int("items", len(m.entries)),
		zap.String("key", StorageKeyItems))
}

// loadFromStorage replaces in-memory state with whatever the recovery
// engine produces for the primary key. Corrupted data never fails the
// load; at worst the cart starts empty.
func (m *Manager) loadFromStorage() {
	res := m.engine.Recover(StorageKeyItems, recovery.KindCart)
	if res.ReadErr != nil {
		m.handleStorageError(res.ReadErr, "load cart")
	}
	blob, ok := res.Data.(*domain.PersistedCart)
	if !ok {
		return
	}

	now := m.clk.Now()
	for _, item := range blob.Items {
		if item.ProductID < 1 || item.Quantity <= 0 {
			m.log.Warn("dropped invalid stored entry",
				zap.Int64("productId", item.ProductID),
				zap.Int("quantity", item.Quantity))
			continue
		}
		if existing, dup := m.entries[item.ProductID]; dup {
			existing.Quantity += item.Quantity
			m.log.Warn("merged duplicate stored entry",
				zap.Int64("productId", item.ProductID))
			continue
		}
		entry := item.ToEntry(now)
		m.entries[item.ProductID] = &entry
		m.order = append(m.order, item.ProductID)
	}
	m.log.Info("cart loaded",
		zap.Int("items", len(m.entries)),
		zap.String("strategy", string(res.Strategy)))
}

// handleStorageError classifies a storage failure, degrades the manager to
// session-only and reports the failure. One-way per session: there is no
// automatic recovery back without a full restart.
func (m *Manager) handleStorageError(err error, context string) {
	kind := classifyStorageError(err)
	if !m.sessionOnly {
		m.sessionOnly = true
		m.log.Error("storage failed, cart degraded to session-only mode",
			zap.String("context", context),
			zap.String("kind", kind),
			zap.Error(err))
	}
	if m.reporter != nil {
		m.reporter.HandleStorageError(err, context)
	}
}

func classifyStorageError(err error) string {
	switch {
	case errors.Is(err, contracts.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, contracts.ErrAccessDenied):
		return "access"
	case errors.Is(err, contracts.ErrStoreClosed):
		return "closed"
	default:
		return "generic"
	}
}
