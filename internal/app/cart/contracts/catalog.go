package contracts

import "github.com/light-bringer/cart-service/internal/app/catalog"

// CatalogLookup resolves product ids against the read-only catalog.
// Implementations return catalog.ErrNotFound for unknown ids.
type CatalogLookup interface {
	GetProductByID(id int64) (catalog.Product, error)
}
