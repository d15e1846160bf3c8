// Package recovery converts untrusted persisted blobs into trusted values
// through a fixed cascade: parse, structural validation, repair, fallback.
// It is designed to never leave the caller without data; whatever the state
// of storage, Recover produces some usable value for the requested kind.
package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
)

// Strategy reports which step of the cascade produced the result.
type Strategy string

const (
	// StrategyValidationPassed means the stored blob parsed and passed
	// structural validation unchanged.
	StrategyValidationPassed Strategy = "validation-passed"

	// StrategyJSONRepair means the stored text only parsed after the
	// heuristic text repair pass.
	StrategyJSONRepair Strategy = "json-repair"

	// StrategyDataRepair means the parsed value failed structural
	// validation and was rebuilt by the kind's repair function.
	StrategyDataRepair Strategy = "data-repair"

	// StrategyFallback means nothing usable was stored; the kind's
	// default value was returned.
	StrategyFallback Strategy = "fallback"
)

// KindSpec declares how one data kind is validated and repaired.
type KindSpec struct {
	// Default produces the kind's fallback value.
	Default func() any

	// Validate structurally checks a parsed (generic JSON) value.
	Validate func(raw any) error

	// Convert turns a structurally valid parsed value into the kind's
	// typed representation.
	Convert func(raw any) (any, error)

	// Repair rebuilds a typed value from a structurally invalid parsed
	// value, dropping whatever cannot be salvaged.
	Repair func(raw any) (any, error)
}

// Result is the outcome of a recovery attempt. Success is true whenever a
// usable value was produced, including by fallback; ReadErr is set when the
// store itself failed (as opposed to the key being absent), so callers can
// degrade persistence separately.
type Result struct {
	Success  bool
	Data     any
	Strategy Strategy
	Errors   []string
	ReadErr  error
}

// Engine runs the recovery cascade against a KV store.
type Engine struct {
	store contracts.KVStore
	log   *zap.Logger
	kinds map[string]KindSpec
}

// NewEngine creates an engine. logger may be nil.
func NewEngine(store contracts.KVStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store: store,
		log:   logger,
		kinds: make(map[string]KindSpec),
	}
}

// RegisterKind declares a recoverable data kind.
func (e *Engine) RegisterKind(name string, spec KindSpec) {
	e.kinds[name] = spec
}

// Recover produces a trusted value for key. The cascade runs in strict
// order and the first applicable strategy is the one reported, even when a
// later normalization step also runs.
func (e *Engine) Recover(key, kind string) (res Result) {
	spec, ok := e.kinds[kind]
	if !ok {
		return Result{Errors: []string{fmt.Sprintf("unknown data kind %q", kind)}}
	}

	res.Success = true
	defer func() {
		if p := recover(); p != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("recovery panic: %v", p))
			res.Data = spec.Default()
			res.Strategy = StrategyFallback
			res.Success = true
		}
		if res.Strategy != StrategyValidationPassed {
			e.log.Warn("recovered stored data via degraded strategy",
				zap.String("key", key),
				zap.String("kind", kind),
				zap.String("strategy", string(res.Strategy)),
				zap.Strings("errors", res.Errors))
		}
	}()

	raw, err := e.store.Get(key)
	if err != nil {
		if !errors.Is(err, contracts.ErrKeyNotFound) {
			res.ReadErr = err
			res.Errors = append(res.Errors, fmt.Sprintf("storage read failed: %v", err))
		}
		res.Data = spec.Default()
		res.Strategy = StrategyFallback
		return res
	}
	if strings.TrimSpace(raw) == "" {
		res.Data = spec.Default()
		res.Strategy = StrategyFallback
		return res
	}

	var parsed any
	if perr := json.Unmarshal([]byte(raw), &parsed); perr != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("parse failed: %v", perr))
		repaired := RepairText(raw)
		if perr2 := json.Unmarshal([]byte(repaired), &parsed); perr2 != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("parse failed after text repair: %v", perr2))
			res.Data = spec.Default()
			res.Strategy = StrategyFallback
			return res
		}
		res.Strategy = StrategyJSONRepair
	}

	if verr := spec.Validate(parsed); verr == nil {
		data, cerr := spec.Convert(parsed)
		if cerr == nil {
			res.Data = data
			if res.Strategy == "" {
				res.Strategy = StrategyValidationPassed
			}
			return res
		}
		res.Errors = append(res.Errors, fmt.Sprintf("convert failed: %v", cerr))
	} else {
		res.Errors = append(res.Errors, fmt.Sprintf("validation failed: %v", verr))
	}

	data, rerr := spec.Repair(parsed)
	if rerr != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("repair failed: %v", rerr))
		res.Data = spec.Default()
		res.Strategy = StrategyFallback
		return res
	}
	res.Data = data
	if res.Strategy == "" {
		res.Strategy = StrategyDataRepair
	}
	return res
}
