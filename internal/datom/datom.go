// Package datom defines the five-component fact record and the four
// comparators used to order datoms within the engine's indexes.
package datom

import (
	"fmt"

	"github.com/nathanial/ledger-sub001/internal/value"
)

// EntityId identifies an entity. Re-exported from value so callers never
// need to import both packages for the same concept.
type EntityId = value.EntityId

// TxId is a non-negative, monotonically increasing transaction id. Zero is
// "genesis", before any user transaction.
type TxId uint64

// Next returns the successor transaction id.
func (t TxId) Next() TxId { return t + 1 }

// Attribute is an immutable, lexicographically-compared attribute name.
// Convention: keyword-style ":namespace/name".
type Attribute string

// Reserved built-in attribute names (spec.md §3).
const (
	AttrIdent       Attribute = ":db/ident"
	AttrValueType   Attribute = ":db/valueType"
	AttrCardinality Attribute = ":db/cardinality"
	AttrUnique      Attribute = ":db/unique"
	AttrIndex       Attribute = ":db/index"
	AttrIsComponent Attribute = ":db/isComponent"
	AttrDoc         Attribute = ":db/doc"
	AttrTxInstant   Attribute = ":db/txInstant"
)

// Datom is the immutable 5-tuple fact record: entity, attribute, value,
// transaction, and an assertion/retraction flag.
type Datom struct {
	E     EntityId
	A     Attribute
	V     value.Value
	Tx    TxId
	Added bool
}

// New constructs a Datom.
func New(e EntityId, a Attribute, v value.Value, tx TxId, added bool) Datom {
	return Datom{E: e, A: a, V: v, Tx: tx, Added: added}
}

// Equal reports whether two datoms are identical in all five components.
// Datom cannot use == directly: Value may embed a byte slice, which Go
// does not allow as a comparison operand.
func (d Datom) Equal(o Datom) bool {
	return d.E == o.E && d.A == o.A && d.Tx == o.Tx && d.Added == o.Added && d.V.Equal(o.V)
}

// String renders a short debug form used in trace spans (truncated the way
// the dolt store's spanSQL helper truncates long SQL text for readability).
func (d Datom) String() string {
	op := "+"
	if !d.Added {
		op = "-"
	}
	s := fmt.Sprintf("%s(%d %s %s %d)", op, d.E, d.A, d.V.String(), d.Tx)
	const max = 200
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}

// CompareEAVT orders by entity, attribute, value, tx.
func CompareEAVT(a, b Datom) int {
	if c := cmpEntity(a.E, b.E); c != 0 {
		return c
	}
	if c := cmpAttr(a.A, b.A); c != 0 {
		return c
	}
	if c := value.Compare(a.V, b.V); c != 0 {
		return c
	}
	return cmpTx(a.Tx, b.Tx)
}

// CompareAEVT orders by attribute, entity, value, tx.
func CompareAEVT(a, b Datom) int {
	if c := cmpAttr(a.A, b.A); c != 0 {
		return c
	}
	if c := cmpEntity(a.E, b.E); c != 0 {
		return c
	}
	if c := value.Compare(a.V, b.V); c != 0 {
		return c
	}
	return cmpTx(a.Tx, b.Tx)
}

// CompareAVET orders by attribute, value, entity, tx.
func CompareAVET(a, b Datom) int {
	if c := cmpAttr(a.A, b.A); c != 0 {
		return c
	}
	if c := value.Compare(a.V, b.V); c != 0 {
		return c
	}
	if c := cmpEntity(a.E, b.E); c != 0 {
		return c
	}
	return cmpTx(a.Tx, b.Tx)
}

// CompareVAET orders by value, attribute, entity, tx. Only meaningful for
// datoms whose value is a reference; spec.md §4.1 restricts VAET population
// to such datoms.
func CompareVAET(a, b Datom) int {
	if c := value.Compare(a.V, b.V); c != 0 {
		return c
	}
	if c := cmpAttr(a.A, b.A); c != 0 {
		return c
	}
	if c := cmpEntity(a.E, b.E); c != 0 {
		return c
	}
	return cmpTx(a.Tx, b.Tx)
}

func cmpEntity(a, b EntityId) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpAttr(a, b Attribute) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpTx(a, b TxId) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
