package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
	"github.com/light-bringer/cart-service/internal/app/cart/domain"
	"github.com/light-bringer/cart-service/internal/app/catalog"
	"github.com/light-bringer/cart-service/internal/pkg/backup"
	"github.com/light-bringer/cart-service/internal/pkg/clock"
	"github.com/light-bringer/cart-service/internal/pkg/validate"
	"github.com/light-bringer/cart-service/internal/storage/memkv"
)

type stubReporter struct {
	storageErrs    []string
	validationErrs []string
}

func (r *stubReporter) HandleStorageError(err error, context string) {
	r.storageErrs = append(r.storageErrs, context)
}

func (r *stubReporter) HandleValidationError(err error, context string) {
	r.validationErrs = append(r.validationErrs, context)
}

func testProducts(t *testing.T) *catalog.Catalog {
	t.Helper()
	mk := func(s string) *domain.Money {
		m, err := domain.NewMoneyFromString(s)
		require.NoError(t, err)
		return m
	}
	cat, err := catalog.New([]catalog.Product{
		{ID: 1, Name: "Laptop", Price: mk("2499.00"), Category: "electronics"},
		{ID: 2, Name: "Mouse", Price: mk("19.99"), Category: "electronics"},
		{ID: 3, Name: "Sticker", Price: mk("1.005"), Category: "swag"},
	})
	require.NoError(t, err)
	return cat
}

type fixture struct {
	m     *Manager
	store *memkv.Store
	clk   *clock.Fake
	rep   *stubReporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memkv.New()
	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store *memkv.Store) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	rep := &stubReporter{}
	m, err := NewManager(Config{
		Store:    store,
		Catalog:  testProducts(t),
		Rules:    validate.NewRules(nil),
		Reporter: rep,
		Clock:    clk,
	})
	require.NoError(t, err)
	return &fixture{m: m, store: store, clk: clk, rep: rep}
}

func TestManager_AddItem(t *testing.T) {
	t.Run("creates a new entry with the current timestamp", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.m.AddItem(1, 2)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, out)

		entry, ok := f.m.Item(1)
		require.True(t, ok)
		assert.Equal(t, 2, entry.Quantity)
		assert.True(t, f.clk.Now().Equal(entry.AddedAt))
	})

	t.Run("merges quantities and keeps the original timestamp", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.AddItem(1, 2)
		require.NoError(t, err)
		addedAt := f.clk.Now()
		f.clk.Advance(time.Hour)

		_, err = f.m.AddItem(1, 3)
		require.NoError(t, err)

		entry, _ := f.m.Item(1)
		assert.Equal(t, 5, entry.Quantity)
		assert.True(t, addedAt.Equal(entry.AddedAt))
	})

	t.Run("zero quantity is a no-op", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.m.AddItem(1, 0)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoop, out)
		assert.True(t, f.m.IsEmpty())
		assert.Equal(t, 0, f.store.Len(), "a no-op must not persist")
	})

	t.Run("unknown product fails", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.AddItem(99, 1)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.True(t, f.m.IsEmpty())
	})

	t.Run("invalid product id fails", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.AddItem(-1, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidProductID)
	})

	t.Run("negative quantity fails and is reported", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.AddItem(1, -2)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		assert.NotEmpty(t, f.rep.validationErrs)
	})

	t.Run("merge exceeding the quantity cap fails without mutating", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.AddItem(1, 900)
		require.NoError(t, err)
		_, err = f.m.AddItem(1, 200)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

		entry, _ := f.m.Item(1)
		assert.Equal(t, 900, entry.Quantity)
	})
}

func TestManager_RemoveItem(t *testing.T) {
	t.Run("removes an existing entry", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.AddItem(1, 2)
		require.NoError(t, err)

		out, err := f.m.RemoveItem(1)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRemoved, out)
		assert.True(t, f.m.IsEmpty())
	})

	t.Run("absent entry is a silent no-op", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.m.RemoveItem(1)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoop, out)
	})

	t.Run("invalid id fails", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.RemoveItem(0)
		assert.ErrorIs(t, err, domain.ErrInvalidProductID)
	})
}

func TestManager_UpdateQuantity(t *testing.T) {
	t.Run("sets the quantity", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.AddItem(1, 2)
		require.NoError(t, err)

		out, err := f.m.UpdateQuantity(1, 7)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, out)

		entry, _ := f.m.Item(1)
		assert.Equal(t, 7, entry.Quantity)
	})

	t.Run("absent entry fails", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.UpdateQuantity(1, 2)
		assert.ErrorIs(t, err, domain.ErrItemNotInCart)
	})

	t.Run("zero quantity removes the entry", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.AddItem(1, 2)
		require.NoError(t, err)

		out, err := f.m.UpdateQuantity(1, 0)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRemoved, out)
		assert.True(t, f.m.IsEmpty())
	})
}

// The walkthrough from the shopping flow: add twice, merge, drop to zero.
func TestManager_Scenario(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.m.IsEmpty())
	_, err := f.m.AddItem(1, 2)
	require.NoError(t, err)
	_, err = f.m.AddItem(1, 3)
	require.NoError(t, err)

	entry, ok := f.m.Item(1)
	require.True(t, ok)
	assert.Equal(t, 5, entry.Quantity)

	_, err = f.m.UpdateQuantity(1, 0)
	require.NoError(t, err)
	assert.True(t, f.m.IsEmpty())
}

func TestManager_CountAndItems(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.AddItem(2, 3)
	require.NoError(t, err)
	_, err = f.m.AddItem(1, 1)
	require.NoError(t, err)

	assert.Equal(t, 4, f.m.Count())
	assert.False(t, f.m.IsEmpty())

	items := f.m.Items()
	require.Len(t, items, 2)
	// Insertion order.
	assert.Equal(t, int64(2), items[0].ProductID)
	assert.Equal(t, int64(1), items[1].ProductID)
}

func TestManager_Total(t *testing.T) {
	t.Run("sums quantity times unit price", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.AddItem(2, 3) // 19.99 * 3 = 59.97
		require.NoError(t, err)
		_, err = f.m.AddItem(1, 1) // 2499.00
		require.NoError(t, err)

		assert.Equal(t, "2558.97", f.m.Total().String())
	})

	t.Run("rounds half up at the cent boundary", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.AddItem(3, 1) // 1.005
		require.NoError(t, err)

		assert.Equal(t, "1.01", f.m.Total().String())
	})

	t.Run("skips entries whose product no longer resolves", func(t *testing.T) {
		store := memkv.New()
		require.NoError(t, store.Set(StorageKeyItems,
			`{"items":[{"productId":99,"quantity":4,"addedAt":"2026-03-01T10:00:00Z"},{"productId":2,"quantity":1,"addedAt":"2026-03-01T10:00:00Z"}],"timestamp":"2026-03-01T10:00:00Z"}`))
		f := newFixtureWithStore(t, store)

		// The dangling entry is tolerated in the cart itself.
		_, ok := f.m.Item(99)
		assert.True(t, ok)
		assert.Equal(t, "19.99", f.m.Total().String())
	})

	t.Run("empty cart totals zero", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, "0.00", f.m.Total().String())
	})
}

func TestManager_Summary(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.AddItem(2, 2) // 39.98
	require.NoError(t, err)
	_, err = f.m.AddItem(3, 1) // 1.005 -> line rounds to 1.01
	require.NoError(t, err)

	s := f.m.Summary()
	require.Len(t, s.Lines, 2)
	assert.Equal(t, "Mouse", s.Lines[0].Product.Name)
	assert.Equal(t, "39.98", s.Lines[0].Subtotal.String())
	assert.Equal(t, "1.01", s.Lines[1].Subtotal.String())
	assert.Equal(t, 3, s.ItemCount)
	// 39.98 + 1.005 = 40.985 rounds to 40.99; no tax at this layer.
	assert.Equal(t, "40.99", s.Subtotal.String())
	assert.True(t, s.Total.Equals(s.Subtotal))
}

func TestManager_Listeners(t *testing.T) {
	t.Run("listeners receive mutation events in order", func(t *testing.T) {
		f := newFixture(t)
		var events []domain.EventName
		f.m.AddListener(func(evt domain.Event) {
			events = append(events, evt.Name)
		})

		_, err := f.m.AddItem(1, 2)
		require.NoError(t, err)
		_, err = f.m.UpdateQuantity(1, 5)
		require.NoError(t, err)
		_, err = f.m.RemoveItem(1)
		require.NoError(t, err)
		_, err = f.m.AddItem(2, 1)
		require.NoError(t, err)
		_, err = f.m.Clear()
		require.NoError(t, err)

		assert.Equal(t, []domain.EventName{
			domain.EventItemAdded,
			domain.EventQuantityUpdated,
			domain.EventItemRemoved,
			domain.EventItemAdded,
			domain.EventCartCleared,
		}, events)
	})

	t.Run("removed listeners stop receiving events", func(t *testing.T) {
		f := newFixture(t)
		calls := 0
		id := f.m.AddListener(func(domain.Event) { calls++ })

		_, err := f.m.AddItem(1, 1)
		require.NoError(t, err)
		f.m.RemoveListener(id)
		_, err = f.m.AddItem(1, 1)
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
	})

	t.Run("a panicking listener does not block the others", func(t *testing.T) {
		f := newFixture(t)
		f.m.AddListener(func(domain.Event) { panic("render failure") })
		gotEvent := false
		f.m.AddListener(func(domain.Event) { gotEvent = true })

		assert.NotPanics(t, func() {
			_, err := f.m.AddItem(1, 1)
			require.NoError(t, err)
		})
		assert.True(t, gotEvent)
	})
}

func TestManager_Clear(t *testing.T) {
	t.Run("clears a populated cart", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.AddItem(1, 2)
		require.NoError(t, err)

		out, err := f.m.Clear()
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, out)
		assert.True(t, f.m.IsEmpty())
	})

	t.Run("clearing an empty cart neither notifies nor persists", func(t *testing.T) {
		f := newFixture(t)
		notified := false
		f.m.AddListener(func(domain.Event) { notified = true })

		out, err := f.m.Clear()
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoop, out)
		assert.False(t, notified)
		assert.Equal(t, 0, f.store.Len())
	})
}

func TestManager_PersistenceRoundTrip(t *testing.T) {
	store := memkv.New()
	f := newFixtureWithStore(t, store)
	_, err := f.m.AddItem(1, 2)
	require.NoError(t, err)
	_, err = f.m.AddItem(2, 1)
	require.NoError(t, err)

	// A fresh manager over the same store recovers the same cart.
	g := newFixtureWithStore(t, store)
	assert.Equal(t, 3, g.m.Count())
	entry, ok := g.m.Item(1)
	require.True(t, ok)
	assert.Equal(t, 2, entry.Quantity)
}

func TestManager_SessionOnly(t *testing.T) {
	t.Run("a quota failure degrades persistence for the session", func(t *testing.T) {
		f := newFixture(t)
		f.store.FailWrites(contracts.ErrQuotaExceeded)

		out, err := f.m.AddItem(1, 2)
		require.NoError(t, err, "storage failures never surface to mutation callers")
		assert.Equal(t, OutcomeApplied, out)
		assert.True(t, f.m.StorageInfo().SessionOnly)
		assert.NotEmpty(t, f.rep.storageErrs)

		// The store recovers, but the degradation is one-way.
		f.store.FailWrites(nil)
		_, err = f.m.AddItem(1, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, f.store.Len())

		entry, _ := f.m.Item(1)
		assert.Equal(t, 3, entry.Quantity, "the in-memory cart keeps working")
	})

	t.Run("nil store starts session-only", func(t *testing.T) {
		m, err := NewManager(Config{Catalog: testProducts(t)})
		require.NoError(t, err)
		assert.True(t, m.StorageInfo().SessionOnly)

		_, err = m.AddItem(1, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, m.Count())
	})
}

func TestManager_StorageInfo(t *testing.T) {
	f := newFixture(t)
	info := f.m.StorageInfo()
	assert.False(t, info.SessionOnly)
	assert.Equal(t, StorageKeyItems, info.Key)
	assert.Empty(t, info.LastSaved)

	_, err := f.m.AddItem(1, 1)
	require.NoError(t, err)
	info = f.m.StorageInfo()
	assert.Equal(t, 1, info.ItemCount)
	assert.NotEmpty(t, info.LastSaved)
}

func TestManager_ValidateCart(t *testing.T) {
	t.Run("a healthy cart reports valid", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.AddItem(1, 2)
		require.NoError(t, err)

		report := f.m.ValidateCart()
		assert.True(t, report.Valid)
		assert.Zero(t, report.Fixed)
	})

	t.Run("dangling references are dropped", func(t *testing.T) {
		store := memkv.New()
		require.NoError(t, store.Set(StorageKeyItems,
			`{"items":[{"productId":99,"quantity":4,"addedAt":"2026-03-01T10:00:00Z"},{"productId":2,"quantity":1,"addedAt":"2026-03-01T10:00:00Z"}],"timestamp":"2026-03-01T10:00:00Z"}`))
		f := newFixtureWithStore(t, store)

		report := f.m.ValidateCart()
		assert.False(t, report.Valid)
		assert.Equal(t, 1, report.Fixed)
		require.Len(t, report.Issues, 1)
		assert.Contains(t, report.Issues[0], "99")

		_, ok := f.m.Item(99)
		assert.False(t, ok)
		_, ok = f.m.Item(2)
		assert.True(t, ok)
	})
}

func TestManager_LoadRecovery(t *testing.T) {
	t.Run("corrupted blob recovers to a working cart", func(t *testing.T) {
		store := memkv.New()
		require.NoError(t, store.Set(StorageKeyItems, `{"items":[{"productId":1,"quantity":2}`))

		f := newFixtureWithStore(t, store)
		entry, ok := f.m.Item(1)
		require.True(t, ok)
		assert.Equal(t, 2, entry.Quantity)
	})

	t.Run("zero-quantity stored entries are dropped at load", func(t *testing.T) {
		store := memkv.New()
		require.NoError(t, store.Set(StorageKeyItems,
			`{"items":[{"productId":1,"quantity":0,"addedAt":"2026-03-01T10:00:00Z"}],"timestamp":"2026-03-01T10:00:00Z"}`))

		f := newFixtureWithStore(t, store)
		assert.True(t, f.m.IsEmpty())
	})

	t.Run("unreadable store degrades to session-only", func(t *testing.T) {
		store := memkv.New()
		store.FailReads(contracts.ErrAccessDenied)

		f := newFixtureWithStore(t, store)
		assert.True(t, f.m.StorageInfo().SessionOnly)
		assert.NotEmpty(t, f.rep.storageErrs)
	})
}

func TestManager_ReloadFromStorage(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.AddItem(1, 2)
	require.NoError(t, err)

	// Another writer replaces the blob out from under the manager.
	require.NoError(t, f.store.Set(StorageKeyItems,
		`{"items":[{"productId":2,"quantity":7,"addedAt":"2026-03-01T10:00:00Z"}],"timestamp":"2026-03-01T10:00:00Z"}`))

	require.NoError(t, f.m.ReloadFromStorage())
	_, ok := f.m.Item(1)
	assert.False(t, ok)
	entry, ok := f.m.Item(2)
	require.True(t, ok)
	assert.Equal(t, 7, entry.Quantity)
}

func TestManager_ClearStorage(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.AddItem(1, 2)
	require.NoError(t, err)

	require.NoError(t, f.m.ClearStorage())
	_, err = f.store.Get(StorageKeyItems)
	assert.ErrorIs(t, err, contracts.ErrKeyNotFound)
	_, err = f.store.Get(StorageKeyTimestamp)
	assert.ErrorIs(t, err, contracts.ErrKeyNotFound)

	// In-memory state is untouched; only the durable copy is gone.
	assert.Equal(t, 2, f.m.Count())
}

func TestManager_BackupRotation(t *testing.T) {
	store := memkv.New()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	rotator := backup.NewRotator(store, clk, nil, 0)
	m, err := NewManager(Config{
		Store:   store,
		Catalog: testProducts(t),
		Backups: rotator,
		Clock:   clk,
	})
	require.NoError(t, err)

	// Each save after the first snapshots the prior blob.
	for i := 0; i < 8; i++ {
		_, err := m.AddItem(1, 1)
		require.NoError(t, err)
		clk.Advance(time.Millisecond)
	}

	keys, err := store.Keys(StorageKeyItems + "_backup_")
	require.NoError(t, err)
	assert.Len(t, keys, backup.DefaultKeep)
}
