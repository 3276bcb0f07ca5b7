package db

import (
	"sort"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Entity returns all current-visible datoms for entity e (spec.md §4.2).
func (d Db) Entity(e datom.EntityId) []datom.Datom {
	return d.Current.ForEntity(e)
}

// Get returns all current values of e.a, sorted by tx descending.
func (d Db) Get(e datom.EntityId, a datom.Attribute) []datom.Datom {
	got := d.Current.ForEntityAttr(e, a)
	sort.Slice(got, func(i, j int) bool { return got[i].Tx > got[j].Tx })
	return got
}

// GetOne returns the value with the highest tx if still asserted.
func (d Db) GetOne(e datom.EntityId, a datom.Attribute) (value.Value, bool) {
	got := d.Get(e, a)
	if len(got) == 0 {
		return value.Value{}, false
	}
	return got[0].V, true
}

// DatomsWithAttr returns all current datoms for attribute a.
func (d Db) DatomsWithAttr(a datom.Attribute) []datom.Datom {
	return d.Current.ForAttr(a)
}

// EntitiesWithAttr returns the deduplicated entities with attribute a.
func (d Db) EntitiesWithAttr(a datom.Attribute) []datom.EntityId {
	return d.Current.EntitiesWithAttr(a)
}

// EntitiesWithAttrValue returns the entities where a=v.
func (d Db) EntitiesWithAttrValue(a datom.Attribute, v value.Value) []datom.EntityId {
	datoms := d.Current.ForAttrValue(a, v)
	seen := make(map[datom.EntityId]struct{}, len(datoms))
	out := make([]datom.EntityId, 0, len(datoms))
	for _, dd := range datoms {
		if _, ok := seen[dd.E]; ok {
			continue
		}
		seen[dd.E] = struct{}{}
		out = append(out, dd.E)
	}
	return out
}

// EntityWithAttrValue returns the first entity where a=v, if any.
func (d Db) EntityWithAttrValue(a datom.Attribute, v value.Value) (datom.EntityId, bool) {
	ents := d.EntitiesWithAttrValue(a, v)
	if len(ents) == 0 {
		return 0, false
	}
	return ents[0], true
}

// ReferencingEntities returns the entities whose some ref-value is t.
func (d Db) ReferencingEntities(t datom.EntityId) []datom.EntityId {
	return d.Current.ReferencingEntities(t)
}

// ReferencingDatoms returns every current datom whose value is the
// reference t, used by retract-entity expansion to retract inbound
// references rather than just enumerate the referencing entity ids.
func (d Db) ReferencingDatoms(t datom.EntityId) []datom.Datom {
	return d.Current.ReferencingValue(t)
}

// ReferencingViaAttr is ReferencingEntities restricted to attribute a.
func (d Db) ReferencingViaAttr(t datom.EntityId, a datom.Attribute) []datom.EntityId {
	return d.Current.ReferencingEntitiesViaAttr(t, a)
}
