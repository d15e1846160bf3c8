// Package catalog holds the read-only product set. The catalog is loaded
// once at startup and is immutable afterwards; the cart tolerates entries
// whose product no longer resolves, so a changed catalog file only takes
// effect on the next start.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/light-bringer/cart-service/internal/app/cart/domain"
)

// ErrNotFound is returned when a product id does not resolve.
var ErrNotFound = errors.New("product not found in catalog")

// Product is a purchasable item. Immutable once loaded.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       *domain.Money
	Image       string
	Category    string
}

// record is the on-disk row shape. Prices are decimal strings so they
// survive YAML/JSON float handling intact.
type record struct {
	ID          int64  `yaml:"id" validate:"required,gte=1"`
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
	Price       string `yaml:"price" validate:"required"`
	Image       string `yaml:"image"`
	Category    string `yaml:"category"`
}

// Catalog is an immutable id-indexed product set.
type Catalog struct {
	byID  map[int64]Product
	order []int64
}

// New builds a catalog from already-constructed products.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{byID: make(map[int64]Product, len(products))}
	for _, p := range products {
		if p.ID < 1 {
			return nil, fmt.Errorf("product %q: %w", p.Name, domain.ErrInvalidProductID)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("product %d: %w", p.ID, domain.ErrEmptyName)
		}
		if p.Price == nil || p.Price.IsNegative() {
			return nil, fmt.Errorf("product %d: %w", p.ID, domain.ErrInvalidPrice)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		p.Price = p.Price.Copy()
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Load reads a catalog file (YAML, which also accepts JSON) and validates
// every row before building the catalog.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var records []record
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}

	v := validator.New()
	products := make([]Product, 0, len(records))
	for i, rec := range records {
		if err := v.Struct(rec); err != nil {
			return nil, fmt.Errorf("catalog row %d invalid: %w", i, err)
		}
		price, err := domain.NewMoneyFromString(rec.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog row %d: %w", i, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("catalog row %d: %w", i, domain.ErrInvalidPrice)
		}
		products = append(products, Product{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			Price:       price,
			Image:       rec.Image,
			Category:    rec.Category,
		})
	}

	return New(products)
}

// GetProductByID resolves a product id, returning ErrNotFound for ids
// outside the catalog.
func (c *Catalog) GetProductByID(id int64) (Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// Products returns all products in file order.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of products loaded.
func (c *Catalog) Len() int {
	return len(c.byID)
}
