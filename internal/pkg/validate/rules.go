// Package validate is a stateless sanitize-then-validate rule engine for
// the scalar inputs the cart accepts. Sanitization always runs first and
// produces the value the caller should use; validation then judges the
// sanitized value against the declared rule.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
)

// MaxQuantity is the largest quantity a single cart entry may hold.
const MaxQuantity = 999

// Kind names a declared rule set.
type Kind string

const (
	// KindQuantity accepts integers 0..MaxQuantity. Zero is explicitly
	// allowed because it signals removal.
	KindQuantity Kind = "quantity"

	// KindProductID accepts integers >= 1, optionally checked for
	// existence against the catalog.
	KindProductID Kind = "productId"
)

// Result carries the verdict plus the sanitized value. Sanitized is nil
// when the input reduced to nothing (empty, non-numeric).
type Result struct {
	Valid     bool
	Errors    []string
	Sanitized *int64
}

type rule struct {
	required    bool
	min         int64
	max         int64
	hasMax      bool
	checkExists bool
}

var ruleTable = map[Kind]rule{
	KindQuantity:  {required: true, min: 0, max: MaxQuantity, hasMax: true},
	KindProductID: {required: true, min: 1, checkExists: true},
}

// Rules applies the declared rule sets. The catalog lookup is optional;
// without it, productId existence checks are skipped.
type Rules struct {
	lookup contracts.CatalogLookup
}

// NewRules creates a rule engine. lookup may be nil.
func NewRules(lookup contracts.CatalogLookup) *Rules {
	return &Rules{lookup: lookup}
}

// Validate sanitizes value and checks it against the named rule set.
func (r *Rules) Validate(value any, kind Kind) Result {
	rl, ok := ruleTable[kind]
	if !ok {
		return Result{Errors: []string{fmt.Sprintf("unknown rule kind %q", kind)}}
	}

	sanitized := sanitizeInt(value)
	if sanitized == nil {
		if rl.required {
			return Result{Errors: []string{fmt.Sprintf("%s is required", kind)}}
		}
		// Vacuously valid: nothing to check against an optional rule.
		return Result{Valid: true}
	}

	var errs []string
	n := *sanitized
	if n < rl.min {
		errs = append(errs, fmt.Sprintf("%s must be at least %d", kind, rl.min))
	}
	if rl.hasMax && n > rl.max {
		errs = append(errs, fmt.Sprintf("%s must be at most %d", kind, rl.max))
	}
	if rl.checkExists && r.lookup != nil && len(errs) == 0 {
		if _, err := r.lookup.GetProductByID(n); err != nil {
			errs = append(errs, fmt.Sprintf("%s %d does not exist", kind, n))
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs, Sanitized: sanitized}
}

// sanitizeInt coerces arbitrary input to an integer: render as a string,
// strip everything except digits, decimal point and minus, parse as a
// float, then truncate toward zero. Returns nil when nothing numeric
// survives.
func sanitizeInt(value any) *int64 {
	if value == nil {
		return nil
	}

	s := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, fmt.Sprint(value))
	if s == "" {
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	n := int64(math.Trunc(f))
	return &n
}
