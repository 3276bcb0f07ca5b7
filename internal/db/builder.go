package db

import (
	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/ferr"
	"github.com/nathanial/ledger-sub001/internal/index"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Builder accumulates the datoms produced by one transaction against a
// working copy of a Db, then Build()s the resulting immutable Db. It is the
// transactor's only mutable state (spec.md §5: the transactor is a single
// logical writer); the Db it started from is never modified.
type Builder struct {
	basisT       datom.TxId
	current      index.Indexes
	history      index.Indexes
	facts        map[factKey]datom.Datom
	nextEntityId datom.EntityId
	schemaCfg    *SchemaConfig
}

// NewBuilder starts a Builder from d. The current-facts map is copied once
// up front (O(n) in the size of d's current fact set) so subsequent Assert/
// Retract calls are O(1) amortized without ever mutating d's own map.
func (d Db) NewBuilder() *Builder {
	facts := make(map[factKey]datom.Datom, len(d.CurrentFacts))
	for k, v := range d.CurrentFacts {
		facts[k] = v
	}
	return &Builder{
		basisT:       d.BasisT,
		current:      d.Current,
		history:      d.History,
		facts:        facts,
		nextEntityId: d.NextEntityId,
		schemaCfg:    d.SchemaConfig,
	}
}

// SetTx sets the transaction id that will be stamped on subsequent Assert/
// Retract calls and recorded as the built Db's BasisT.
func (b *Builder) SetTx(tx datom.TxId) { b.basisT = tx }

// Tx returns the transaction id currently set.
func (b *Builder) Tx() datom.TxId { return b.basisT }

// Db returns a read-only snapshot of the builder's current working state,
// for schema validation and tx-function reads that must see in-progress
// effects of earlier operations in the same transaction.
func (b *Builder) Db() Db {
	return Db{
		BasisT:       b.basisT,
		Current:      b.current,
		History:      b.history,
		CurrentFacts: b.facts,
		NextEntityId: b.nextEntityId,
		SchemaConfig: b.schemaCfg,
	}
}

// AllocEntityId allocates the next permanent entity id from the builder's
// counter.
func (b *Builder) AllocEntityId() datom.EntityId {
	id := b.nextEntityId
	b.nextEntityId++
	return id
}

// BumpNextEntityId raises the next-entity-id counter if seen+1 exceeds it,
// used by recovery replay (spec.md §4.7) to restore the invariant that
// nextEntityId strictly exceeds any entity id seen in the journal.
func (b *Builder) BumpNextEntityId(seen datom.EntityId) {
	if seen+1 > b.nextEntityId {
		b.nextEntityId = seen + 1
	}
}

// Assert produces an assertion datom at the builder's current tx, removing
// any datom it supersedes from the current indexes while leaving history
// intact (spec.md §4.3 step 4, and the Open Question decision in
// DESIGN.md: history retains both the old and new assertion).
func (b *Builder) Assert(e datom.EntityId, a datom.Attribute, v value.Value) datom.Datom {
	newD := datom.New(e, a, v, b.basisT, true)
	if prior, ok := b.facts[keyOf(e, a, v)]; ok {
		b.current = b.current.Remove(prior)
	}
	b.current = b.current.Insert(newD)
	b.history = b.history.Insert(newD)
	b.facts[keyOf(e, a, v)] = newD
	return newD
}

// Retract produces a retraction datom at the builder's current tx. Returns
// a FactNotFoundError if (e, a, v) is not currently visible.
func (b *Builder) Retract(e datom.EntityId, a datom.Attribute, v value.Value) (datom.Datom, error) {
	prior, ok := b.facts[keyOf(e, a, v)]
	if !ok {
		return datom.Datom{}, ferr.NewFactNotFound("retract", e, a, v)
	}
	retD := datom.New(e, a, v, b.basisT, false)
	b.current = b.current.Remove(prior)
	b.history = b.history.Insert(retD)
	delete(b.facts, keyOf(e, a, v))
	return retD, nil
}

// Build finalizes the builder into an immutable Db.
func (b *Builder) Build() Db {
	return b.Db()
}
