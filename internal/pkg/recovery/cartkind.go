package recovery

import (
	"fmt"
	"math"
	"time"

	"github.com/light-bringer/cart-service/internal/app/cart/domain"
	"github.com/light-bringer/cart-service/internal/pkg/clock"
)

// KindCart names the persisted cart blob kind.
const KindCart = "cart"

// CartKind builds the KindSpec for the persisted cart blob.
//
// Structural validation requires an object with an "items" array whose
// elements carry a numeric productId and a numeric quantity >= 0. Repair
// keeps only items with a positive integer-valued productId and a positive
// quantity (absolute value, floored) and resynthesizes missing addedAt and
// timestamp fields.
func CartKind(clk clock.Clock) KindSpec {
	return KindSpec{
		Default: func() any {
			return domain.EmptyPersistedCart(clk.Now())
		},
		Validate: validateCartShape,
		Convert: func(raw any) (any, error) {
			return convertCart(raw, clk.Now())
		},
		Repair: func(raw any) (any, error) {
			return repairCart(raw, clk.Now()), nil
		},
	}
}

func validateCartShape(raw any) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("cart blob is not an object")
	}
	items, ok := obj["items"].([]any)
	if !ok {
		return fmt.Errorf("cart blob has no items array")
	}
	for i, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			return fmt.Errorf("item %d is not an object", i)
		}
		if _, ok := item["productId"].(float64); !ok {
			return fmt.Errorf("item %d has a non-numeric productId", i)
		}
		qty, ok := item["quantity"].(float64)
		if !ok {
			return fmt.Errorf("item %d has a non-numeric quantity", i)
		}
		if qty < 0 {
			return fmt.Errorf("item %d has a negative quantity", i)
		}
	}
	return nil
}

// convertCart types a structurally valid generic value without filtering.
func convertCart(raw any, now time.Time) (*domain.PersistedCart, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cart blob is not an object")
	}
	items, _ := obj["items"].([]any)

	blob := &domain.PersistedCart{Items: make([]domain.PersistedItem, 0, len(items))}
	for i, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		pid, ok := item["productId"].(float64)
		if !ok {
			return nil, fmt.Errorf("item %d has a non-numeric productId", i)
		}
		qty, ok := item["quantity"].(float64)
		if !ok {
			return nil, fmt.Errorf("item %d has a non-numeric quantity", i)
		}
		blob.Items = append(blob.Items, domain.PersistedItem{
			ProductID: int64(pid),
			Quantity:  int(qty),
			AddedAt:   stringField(item, "addedAt", now),
		})
	}
	blob.Timestamp = stringField(obj, "timestamp", now)
	return blob, nil
}

// repairCart salvages what it can from a structurally invalid value.
func repairCart(raw any, now time.Time) *domain.PersistedCart {
	blob := domain.EmptyPersistedCart(now)
	obj, ok := raw.(map[string]any)
	if !ok {
		return blob
	}
	items, ok := obj["items"].([]any)
	if !ok {
		return blob
	}
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		pid, ok := item["productId"].(float64)
		if !ok || pid <= 0 || pid != math.Trunc(pid) {
			continue
		}
		rawQty, ok := item["quantity"].(float64)
		if !ok {
			continue
		}
		qty := int(math.Floor(math.Abs(rawQty)))
		if qty == 0 {
			continue
		}
		blob.Items = append(blob.Items, domain.PersistedItem{
			ProductID: int64(pid),
			Quantity:  qty,
			AddedAt:   stringField(item, "addedAt", now),
		})
	}
	blob.Timestamp = stringField(obj, "timestamp", now)
	return blob
}

func stringField(obj map[string]any, field string, now time.Time) string {
	if s, ok := obj[field].(string); ok && s != "" {
		return s
	}
	return now.UTC().Format(time.RFC3339)
}
