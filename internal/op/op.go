// Package op defines the operation surface the transactor consumes
// (spec.md §6): add, retract, retractEntity, and call, plus the lookup-ref
// addressing scheme retractEntity accepts.
//
// This is deliberately a small, neutral package with no dependency on the
// transactor or schema packages, so both can depend on it without a cycle —
// schema.InstallOps produces []Operation, and the transactor consumes it.
package op

import (
	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Ref addresses an entity either by explicit id or by a lookup ref
// (a unique attribute, value pair). Exactly one of Id/Lookup is set.
type Ref struct {
	Id     *datom.EntityId
	Lookup *LookupRef
}

// LookupRef addresses an entity via (attribute, value) on a unique attribute.
type LookupRef struct {
	Attr datom.Attribute
	V    value.Value
}

// ById builds a Ref from an explicit entity id.
func ById(e datom.EntityId) Ref { return Ref{Id: &e} }

// ByLookup builds a Ref from a (unique attribute, value) pair.
func ByLookup(a datom.Attribute, v value.Value) Ref {
	return Ref{Lookup: &LookupRef{Attr: a, V: v}}
}

// Operation is the sealed union of declarative transaction operations.
type Operation interface {
	isOperation()
}

// Add asserts (e, a, v).
type Add struct {
	E datom.EntityId
	A datom.Attribute
	V value.Value
}

func (Add) isOperation() {}

// Retract retracts the current assertion of (e, a, v).
type Retract struct {
	E datom.EntityId
	A datom.Attribute
	V value.Value
}

func (Retract) isOperation() {}

// RetractEntity retracts every current fact about (or referencing) the
// entity Ref resolves to, cascading through component references
// (spec.md §4.3 step 2).
type RetractEntity struct {
	Ref Ref
}

func (RetractEntity) isOperation() {}

// Call expands, via the tx-function registry, into further operations
// (spec.md §4.3 step 1).
type Call struct {
	Name string
	Args []interface{}
}

func (Call) isOperation() {}
