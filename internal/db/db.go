// Package db implements the immutable snapshot value (spec.md §4.2): the
// basis transaction, the four current-visible indexes, a mirror history
// index, the current-facts existence map, the entity id counter, and an
// optional schema.
package db

import (
	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/index"
	"github.com/nathanial/ledger-sub001/internal/schema"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// SchemaConfig pairs a Schema with the strictness of validation it implies
// (spec.md §4.3 step 3: strict mode rejects undeclared attributes,
// permissive mode allows them unconstrained).
type SchemaConfig struct {
	Schema schema.Schema
	Strict bool
}

// factKey is the comparable surrogate for (entity, attribute, value) used
// as the CurrentFacts map key; Value itself cannot be a map key directly
// because it may embed a byte slice.
type factKey struct {
	E    datom.EntityId
	A    datom.Attribute
	VKey string
}

func keyOf(e datom.EntityId, a datom.Attribute, v value.Value) factKey {
	return factKey{E: e, A: a, VKey: v.CanonicalKey()}
}

// Db is an immutable snapshot of engine state at a specific transaction.
// Every field is either itself immutable (Indexes) or is never mutated in
// place (CurrentFacts, SchemaConfig) — a new Db is built by NewBuilder
// instead.
type Db struct {
	BasisT       datom.TxId
	Current      index.Indexes
	History      index.Indexes
	CurrentFacts map[factKey]datom.Datom
	NextEntityId datom.EntityId
	SchemaConfig *SchemaConfig
}

// Genesis returns the empty Db: basisT=0, no datoms, first allocatable
// entity id is 1 (0 is reserved as null, per spec.md §3).
func Genesis() Db {
	return Db{
		BasisT:       0,
		Current:      index.New(),
		History:      index.New(),
		CurrentFacts: make(map[factKey]datom.Datom),
		NextEntityId: 1,
		SchemaConfig: nil,
	}
}

// WithSchema attaches a schema to the Db, returning a new Db value; the
// receiver is unchanged.
func (d Db) WithSchema(s schema.Schema, strict bool) Db {
	out := d
	out.SchemaConfig = &SchemaConfig{Schema: s.Clone(), Strict: strict}
	return out
}

// WithoutSchema detaches any schema, returning a new Db value.
func (d Db) WithoutSchema() Db {
	out := d
	out.SchemaConfig = nil
	return out
}

// AllocEntityId returns the next permanent entity id and a Db with the
// counter advanced. Allocation does not write any datoms (spec.md §4.2).
func (d Db) AllocEntityId() (datom.EntityId, Db) {
	id := d.NextEntityId
	out := d
	out.NextEntityId = d.NextEntityId + 1
	return id, out
}

// AllocEntityIds returns n consecutive permanent entity ids and a Db with
// the counter advanced past all of them.
func (d Db) AllocEntityIds(n int) ([]datom.EntityId, Db) {
	ids := make([]datom.EntityId, n)
	out := d
	for i := 0; i < n; i++ {
		ids[i] = out.NextEntityId
		out.NextEntityId++
	}
	return ids, out
}

// HasCurrentFact reports whether (e, a, v) is currently visible — an O(1)
// existence check backed by CurrentFacts (spec.md §3 invariant).
func (d Db) HasCurrentFact(e datom.EntityId, a datom.Attribute, v value.Value) bool {
	_, ok := d.CurrentFacts[keyOf(e, a, v)]
	return ok
}

// currentFact returns the currently-visible datom for (e, a, v), if any.
func (d Db) currentFact(e datom.EntityId, a datom.Attribute, v value.Value) (datom.Datom, bool) {
	dd, ok := d.CurrentFacts[keyOf(e, a, v)]
	return dd, ok
}
