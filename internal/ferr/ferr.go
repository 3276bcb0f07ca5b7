// Package ferr defines the error taxonomy returned by the fact store engine
// (spec.md §7). Every error is returned as a value, never a panic; callers
// use errors.Is/errors.As against the sentinels and typed errors below.
//
// Wrapping follows the convention of internal/storage/sqlite/errors.go:
// an operation-context prefix joined with "%w" so the sentinel or typed
// error underneath is still reachable via errors.Is/As.
package ferr

import (
	"errors"
	"fmt"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Sentinel errors for conditions with no associated data.
var (
	// ErrLookupAttrNotUnique indicates a lookup ref's attribute is not
	// declared unique in the schema.
	ErrLookupAttrNotUnique = errors.New("lookup attribute is not unique")
)

// FactNotFoundError is returned when a retraction targets a triple that is
// not currently visible.
type FactNotFoundError struct {
	E datom.EntityId
	A datom.Attribute
	V value.Value
}

func (e *FactNotFoundError) Error() string {
	return fmt.Sprintf("fact not found: (%d %s %s)", e.E, e.A, e.V.String())
}

// NewFactNotFound builds a FactNotFoundError wrapped with an operation
// context, matching wrapDBError's "%s: %w" shape.
func NewFactNotFound(op string, e datom.EntityId, a datom.Attribute, v value.Value) error {
	return fmt.Errorf("%s: %w", op, &FactNotFoundError{E: e, A: a, V: v})
}

// SchemaErrorKind enumerates the schema validation sub-error kinds.
type SchemaErrorKind int

const (
	TypeMismatch SchemaErrorKind = iota
	CardinalityViolation
	UniquenessViolation
	UndefinedAttribute
	InvalidSchema
)

func (k SchemaErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case CardinalityViolation:
		return "CardinalityViolation"
	case UniquenessViolation:
		return "UniquenessViolation"
	case UndefinedAttribute:
		return "UndefinedAttribute"
	case InvalidSchema:
		return "InvalidSchema"
	default:
		return "Unknown"
	}
}

// SchemaError is the wrapped sub-error kind for schema validation failures.
type SchemaError struct {
	Kind     SchemaErrorKind
	Attr     datom.Attribute
	Expected string
	Actual   string
	Entity   datom.EntityId
	Value    value.Value
	Existing datom.EntityId
	New      datom.EntityId
	Msg      string
}

func (e *SchemaError) Error() string {
	switch e.Kind {
	case TypeMismatch:
		return fmt.Sprintf("attribute %s: expected value type %s, got %s", e.Attr, e.Expected, e.Actual)
	case CardinalityViolation:
		return fmt.Sprintf("entity %d attribute %s: cardinality-one violated within transaction", e.Entity, e.Attr)
	case UniquenessViolation:
		return fmt.Sprintf("attribute %s value %s: already asserted by entity %d, cannot assert for entity %d",
			e.Attr, e.Value.String(), e.Existing, e.New)
	case UndefinedAttribute:
		return fmt.Sprintf("attribute %s is not defined in schema (strict mode)", e.Attr)
	case InvalidSchema:
		return fmt.Sprintf("invalid schema: %s", e.Msg)
	default:
		return "schema error"
	}
}

// SchemaViolationError wraps a SchemaError, matching spec.md §7's
// SchemaViolation(msg) wrapping a SchemaError variant.
type SchemaViolationError struct {
	Sub *SchemaError
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: %s", e.Sub.Error())
}

func (e *SchemaViolationError) Unwrap() error { return e.Sub }

// NewSchemaViolation wraps a SchemaError as a transaction-level error with
// an operation-context prefix.
func NewSchemaViolation(op string, sub *SchemaError) error {
	return fmt.Errorf("%s: %w", op, &SchemaViolationError{Sub: sub})
}

// LookupNotFoundError is returned when a lookup ref (attribute, value)
// resolves to no entity.
type LookupNotFoundError struct {
	A datom.Attribute
	V value.Value
}

func (e *LookupNotFoundError) Error() string {
	return fmt.Sprintf("lookup ref (%s %s): no matching entity", e.A, e.V.String())
}

// LookupAmbiguousError is returned when a lookup ref resolves to more than
// one entity (a uniqueness invariant violation the schema should normally
// prevent, surfaced defensively here).
type LookupAmbiguousError struct {
	A   datom.Attribute
	V   value.Value
	Ids []datom.EntityId
}

func (e *LookupAmbiguousError) Error() string {
	return fmt.Sprintf("lookup ref (%s %s): ambiguous, matches %d entities", e.A, e.V.String(), len(e.Ids))
}

// TxFunctionNotFoundError is returned when a call operation references an
// unregistered tx-function name.
type TxFunctionNotFoundError struct {
	Name string
}

func (e *TxFunctionNotFoundError) Error() string {
	return fmt.Sprintf("tx-function %q is not registered", e.Name)
}

// ErrTxFunctionDepthExceeded is returned when tx-function expansion recurses
// past the configured maximum depth.
var ErrTxFunctionDepthExceeded = errors.New("tx-function recursion depth exceeded")

// NewCustom builds the generic fall-back error kind (spec.md §7's
// Custom(msg)) for extensibility points that don't warrant their own type.
func NewCustom(op, msg string) error {
	return fmt.Errorf("%s: %s", op, msg)
}

// Wrap joins op and err with "%w" so the underlying sentinel/typed error
// remains reachable via errors.Is/errors.As, matching wrapDBErrorf.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsFactNotFound reports whether err is, or wraps, a FactNotFoundError.
func IsFactNotFound(err error) bool {
	var target *FactNotFoundError
	return errors.As(err, &target)
}

// IsSchemaViolation reports whether err is, or wraps, a SchemaViolationError.
func IsSchemaViolation(err error) bool {
	var target *SchemaViolationError
	return errors.As(err, &target)
}
