package transactor

import (
	"fmt"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/ferr"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/schema"
)

// expandRetractEntities replaces every RetractEntity in ops with the
// Retract operations it implies, leaving every other operation untouched.
// A RetractEntity retracts every current fact about its entity, cascades
// into component-valued attributes (retracting the referenced entity too),
// and retracts every current inbound reference to the entity so no
// dangling ref survives (spec.md §4.3 step 2). A visited-entity set makes
// the cascade safe against cyclic component graphs, and a seen-fact set
// across the whole expansion suppresses duplicate Retract ops when two
// RetractEntity operations (or a cascade and an inbound edge) reach the
// same fact.
func expandRetractEntities(d db.Db, ops []op.Operation) ([]op.Operation, error) {
	visited := make(map[datom.EntityId]bool)
	seen := make(map[string]bool)
	out := make([]op.Operation, 0, len(ops))

	for _, o := range ops {
		re, isRetractEntity := o.(op.RetractEntity)
		if !isRetractEntity {
			out = append(out, o)
			continue
		}
		e, err := resolveRef(d, re.Ref)
		if err != nil {
			return nil, err
		}
		cascade(d, e, visited, seen, &out)
	}
	return out, nil
}

// resolveRef turns a Ref into a concrete entity id. A lookup ref's
// attribute must be declared in the schema and marked unique (identity or
// value) before its (attribute, value) pair is even looked up — spec.md
// §4.3 step 2 lists "not in schema" and "not unique" as their own failure
// modes, distinct from "not found"/"ambiguous" on the lookup itself.
func resolveRef(d db.Db, ref op.Ref) (datom.EntityId, error) {
	if ref.Id != nil {
		return *ref.Id, nil
	}
	if ref.Lookup == nil {
		return 0, fmt.Errorf("retractEntity: ref has neither Id nor Lookup set")
	}
	if err := requireUniqueAttr(d, ref.Lookup.Attr); err != nil {
		return 0, err
	}
	ids := d.EntitiesWithAttrValue(ref.Lookup.Attr, ref.Lookup.V)
	switch len(ids) {
	case 0:
		return 0, &ferr.LookupNotFoundError{A: ref.Lookup.Attr, V: ref.Lookup.V}
	case 1:
		return ids[0], nil
	default:
		return 0, &ferr.LookupAmbiguousError{A: ref.Lookup.Attr, V: ref.Lookup.V, Ids: ids}
	}
}

// requireUniqueAttr fails with ferr.ErrLookupAttrNotUnique unless a is
// declared in the schema with a :db.unique/identity or :db.unique/value
// constraint.
func requireUniqueAttr(d db.Db, a datom.Attribute) error {
	if d.SchemaConfig == nil {
		return fmt.Errorf("retractEntity: lookup ref attribute %s: %w", a, ferr.ErrLookupAttrNotUnique)
	}
	as, declared := d.SchemaConfig.Schema[a]
	if !declared || as.Unique == schema.UniqueNone {
		return fmt.Errorf("retractEntity: lookup ref attribute %s: %w", a, ferr.ErrLookupAttrNotUnique)
	}
	return nil
}

func cascade(d db.Db, e datom.EntityId, visited map[datom.EntityId]bool, seen map[string]bool, out *[]op.Operation) {
	if visited[e] {
		return
	}
	visited[e] = true

	isComponent := func(a datom.Attribute) bool {
		if d.SchemaConfig == nil {
			return false
		}
		as, ok := d.SchemaConfig.Schema[a]
		return ok && as.Component
	}

	for _, dd := range d.Entity(e) {
		emitRetract(dd, seen, out)
		if dd.V.IsRef() && isComponent(dd.A) {
			cascade(d, dd.V.Ref(), visited, seen, out)
		}
	}
	for _, dd := range d.ReferencingDatoms(e) {
		emitRetract(dd, seen, out)
	}
}

func emitRetract(dd datom.Datom, seen map[string]bool, out *[]op.Operation) {
	key := string(dd.A) + "\x00" + dd.V.CanonicalKey() + "\x00" + fmt.Sprint(dd.E)
	if seen[key] {
		return
	}
	seen[key] = true
	*out = append(*out, op.Retract{E: dd.E, A: dd.A, V: dd.V})
}
