package index

import (
	"math"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Indexes bundles the four orderings and exposes atomic cross-index
// mutation plus the query primitives every Db operation is built from.
// Index selection for each query follows the priority order
// other_examples' janus-datalog IndexedMemoryMatcher.chooseStrategy uses
// for its read-only pattern matcher (EA bound, then E, then A, then V,
// falling back to a full scan only when nothing is bound) — generalized
// here to a read-write bundle of four persistent sorted containers instead
// of one hash-indexed read view.
type Indexes struct {
	EAVT Index
	AEVT Index
	AVET Index
	VAET Index
}

// New builds an empty Indexes bundle.
func New() Indexes {
	return Indexes{
		EAVT: NewIndex(datom.CompareEAVT),
		AEVT: NewIndex(datom.CompareAEVT),
		AVET: NewIndex(datom.CompareAVET),
		VAET: NewIndex(datom.CompareVAET),
	}
}

// Insert adds d to EAVT/AEVT/AVET, and to VAET only if d's value is an
// entity reference (spec.md §4.1). Returns a new Indexes value; the
// receiver is unmodified.
func (ix Indexes) Insert(d datom.Datom) Indexes {
	out := Indexes{
		EAVT: ix.EAVT.Insert(d),
		AEVT: ix.AEVT.Insert(d),
		AVET: ix.AVET.Insert(d),
		VAET: ix.VAET,
	}
	if d.V.IsRef() {
		out.VAET = ix.VAET.Insert(d)
	}
	return out
}

// Remove is the inverse of Insert.
func (ix Indexes) Remove(d datom.Datom) Indexes {
	out := Indexes{
		EAVT: ix.EAVT.Remove(d),
		AEVT: ix.AEVT.Remove(d),
		AVET: ix.AVET.Remove(d),
		VAET: ix.VAET,
	}
	if d.V.IsRef() {
		out.VAET = ix.VAET.Remove(d)
	}
	return out
}

// zeroValue is the least Value under value.Compare: int is the first kind
// tag, and no int sorts before math.MinInt64.
func zeroValue() value.Value { return value.OfInt(math.MinInt64) }

// ForEntity returns all datoms for entity e (EAVT range, "EA-index"-grade
// selectivity collapsed to the E prefix).
func (ix Indexes) ForEntity(e datom.EntityId) []datom.Datom {
	probe := datom.New(e, "", zeroValue(), 0, false)
	return ix.EAVT.RangeWhile(probe, func(d datom.Datom) bool { return d.E == e })
}

// ForEntityAttr returns all datoms for (e, a) in EAVT order: ascending by
// value, then by tx.
func (ix Indexes) ForEntityAttr(e datom.EntityId, a datom.Attribute) []datom.Datom {
	probe := datom.New(e, a, zeroValue(), 0, false)
	return ix.EAVT.RangeWhile(probe, func(d datom.Datom) bool { return d.E == e && d.A == a })
}

// ForEntityAttrValue returns the datom(s) for the exact (e, a, v) triple.
func (ix Indexes) ForEntityAttrValue(e datom.EntityId, a datom.Attribute, v value.Value) []datom.Datom {
	probe := datom.New(e, a, v, 0, false)
	return ix.EAVT.RangeWhile(probe, func(d datom.Datom) bool {
		return d.E == e && d.A == a && d.V.Equal(v)
	})
}

// ForAttr returns all datoms for attribute a (AEVT range).
func (ix Indexes) ForAttr(a datom.Attribute) []datom.Datom {
	probe := datom.New(0, a, zeroValue(), 0, false)
	return ix.AEVT.RangeWhile(probe, func(d datom.Datom) bool { return d.A == a })
}

// EntitiesWithAttr returns the deduplicated entities with any current datom
// on attribute a. Deduplication is O(n) via a hash set, not quadratic.
func (ix Indexes) EntitiesWithAttr(a datom.Attribute) []datom.EntityId {
	datoms := ix.ForAttr(a)
	seen := make(map[datom.EntityId]struct{}, len(datoms))
	out := make([]datom.EntityId, 0, len(datoms))
	for _, d := range datoms {
		if _, ok := seen[d.E]; ok {
			continue
		}
		seen[d.E] = struct{}{}
		out = append(out, d.E)
	}
	return out
}

// ForAttrEntity returns all datoms for (a, e) using AEVT — the
// "A bound, then E bound" strategy.
func (ix Indexes) ForAttrEntity(a datom.Attribute, e datom.EntityId) []datom.Datom {
	probe := datom.New(e, a, zeroValue(), 0, false)
	return ix.AEVT.RangeWhile(probe, func(d datom.Datom) bool { return d.A == a && d.E == e })
}

// ForAttrValue returns all datoms where a=v (AVET range — the uniqueness
// lookup index).
func (ix Indexes) ForAttrValue(a datom.Attribute, v value.Value) []datom.Datom {
	probe := datom.New(0, a, v, 0, false)
	return ix.AVET.RangeWhile(probe, func(d datom.Datom) bool { return d.A == a && d.V.Equal(v) })
}

// ReferencingValue returns all datoms whose value is the reference t
// (VAET range).
func (ix Indexes) ReferencingValue(t datom.EntityId) []datom.Datom {
	probe := datom.New(0, "", value.OfRef(t), 0, false)
	return ix.VAET.RangeWhile(probe, func(d datom.Datom) bool {
		return d.V.IsRef() && d.V.Ref() == t
	})
}

// ReferencingValueViaAttr returns all datoms whose value is the reference t
// via attribute a specifically.
func (ix Indexes) ReferencingValueViaAttr(t datom.EntityId, a datom.Attribute) []datom.Datom {
	probe := datom.New(0, a, value.OfRef(t), 0, false)
	return ix.VAET.RangeWhile(probe, func(d datom.Datom) bool {
		return d.V.IsRef() && d.V.Ref() == t && d.A == a
	})
}

// ReferencingEntities returns the deduplicated entities with some current
// datom whose value references t.
func (ix Indexes) ReferencingEntities(t datom.EntityId) []datom.EntityId {
	datoms := ix.ReferencingValue(t)
	seen := make(map[datom.EntityId]struct{}, len(datoms))
	out := make([]datom.EntityId, 0, len(datoms))
	for _, d := range datoms {
		if _, ok := seen[d.E]; ok {
			continue
		}
		seen[d.E] = struct{}{}
		out = append(out, d.E)
	}
	return out
}

// ReferencingEntitiesViaAttr is ReferencingEntities restricted to attribute a.
func (ix Indexes) ReferencingEntitiesViaAttr(t datom.EntityId, a datom.Attribute) []datom.EntityId {
	datoms := ix.ReferencingValueViaAttr(t, a)
	seen := make(map[datom.EntityId]struct{}, len(datoms))
	out := make([]datom.EntityId, 0, len(datoms))
	for _, d := range datoms {
		if _, ok := seen[d.E]; ok {
			continue
		}
		seen[d.E] = struct{}{}
		out = append(out, d.E)
	}
	return out
}

// All returns every datom across the EAVT index (the canonical complete
// set — every datom appears in EAVT regardless of whether it's a
// reference, unlike VAET).
func (ix Indexes) All() []datom.Datom {
	return ix.EAVT.All()
}
