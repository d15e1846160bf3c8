package cart

import (
	"time"

	"github.com/light-bringer/cart-service/internal/app/cart/domain"
	"github.com/light-bringer/cart-service/internal/app/catalog"
)

// SummaryLine is one resolved cart line: the product, its quantity and the
// line subtotal rounded to cents.
type SummaryLine struct {
	Product  catalog.Product
	Quantity int
	Subtotal *domain.Money
	AddedAt  time.Time
}

// Summary is the resolved view of the cart. Entries whose product no
// longer resolves are skipped, not errored: the catalog may legitimately
// have changed since the entry was stored. No tax is applied at this
// layer, so Total equals Subtotal.
type Summary struct {
	Lines     []SummaryLine
	ItemCount int
	Subtotal  *domain.Money
	Total     *domain.Money
}

// Total sums quantity times unit price over resolvable entries, rounded to
// cents with halves away from zero.
func (m *Manager) Total() *domain.Money {
	total := domain.ZeroMoney()
	for _, id := range m.order {
		entry := m.entries[id]
		product, err := m.catalog.GetProductByID(id)
		if err != nil {
			continue
		}
		total = total.Add(product.Price.MulInt(entry.Quantity))
	}
	return total.Round2()
}

// Summary resolves every entry against the catalog and returns line items
// plus totals, each rounded to cents independently.
func (m *Manager) Summary() Summary {
	summary := Summary{Lines: make([]SummaryLine, 0, len(m.order))}
	subtotal := domain.ZeroMoney()
	for _, id := range m.order {
		entry := m.entries[id]
		product, err := m.catalog.GetProductByID(id)
		if err != nil {
			continue
		}
		line := product.Price.MulInt(entry.Quantity)
		subtotal = subtotal.Add(line)
		summary.Lines = append(summary.Lines, SummaryLine{
			Product:  product,
			Quantity: entry.Quantity,
			Subtotal: line.Round2(),
			AddedAt:  entry.AddedAt,
		})
		summary.ItemCount += entry.Quantity
	}
	summary.Subtotal = subtotal.Round2()
	summary.Total = summary.Subtotal.Copy()
	return summary
}
