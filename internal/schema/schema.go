// Package schema implements attribute schema declarations, their
// install/load roundtrip through the indexes, and the declarations the
// transactor validates a transaction against before it is committed
// (spec.md §4.5); the validation itself lives in internal/transactor.
package schema

import (
	"fmt"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/index"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// ValueType names the declared scalar kind of an attribute's values. The
// keyword strings (":db.type/...") are spec.md §6's on-the-wire vocabulary.
type ValueType string

const (
	TypeInt     ValueType = ":db.type/int"
	TypeFloat   ValueType = ":db.type/float"
	TypeString  ValueType = ":db.type/string"
	TypeBool    ValueType = ":db.type/bool"
	TypeInstant ValueType = ":db.type/instant"
	TypeRef     ValueType = ":db.type/ref"
	TypeKeyword ValueType = ":db.type/keyword"
	TypeBytes   ValueType = ":db.type/bytes"
)

// kindOf returns the ValueType matching a value.Kind.
func kindOf(k value.Kind) ValueType {
	switch k {
	case value.KindInt:
		return TypeInt
	case value.KindFloat:
		return TypeFloat
	case value.KindString:
		return TypeString
	case value.KindBool:
		return TypeBool
	case value.KindInstant:
		return TypeInstant
	case value.KindRef:
		return TypeRef
	case value.KindKeyword:
		return TypeKeyword
	case value.KindBytes:
		return TypeBytes
	default:
		return ""
	}
}

// Matches reports whether a value.Kind satisfies this declared ValueType.
func (vt ValueType) Matches(k value.Kind) bool { return kindOf(k) == vt }

// Cardinality is :db.cardinality/{one,many}.
type Cardinality string

const (
	CardinalityOne  Cardinality = ":db.cardinality/one"
	CardinalityMany Cardinality = ":db.cardinality/many"
)

// Unique is :db.unique/{identity,value}, or "" for no uniqueness constraint.
type Unique string

const (
	UniqueNone     Unique = ""
	UniqueIdentity Unique = ":db.unique/identity"
	UniqueValue    Unique = ":db.unique/value"
)

// AttributeSchema declares the shape and constraints of one attribute.
type AttributeSchema struct {
	Ident       datom.Attribute
	ValueType   ValueType
	Cardinality Cardinality
	Unique      Unique
	Indexed     bool
	Component   bool
	Doc         string
}

// Schema maps attribute name to its declaration.
type Schema map[datom.Attribute]AttributeSchema

// Clone returns a shallow copy, since Schema is attached to an immutable Db
// value and must never be mutated in place once installed.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// InstallOps emits the :db/* assertions (spec.md §4.5) that persist as
// installs attrSchema as an entity's datoms, suitable for feeding straight
// into the transactor as []op.Operation.
func InstallOps(eid datom.EntityId, as AttributeSchema) []op.Operation {
	ops := []op.Operation{
		op.Add{E: eid, A: datom.AttrIdent, V: value.OfKeyword(string(as.Ident))},
		op.Add{E: eid, A: datom.AttrValueType, V: value.OfKeyword(string(as.ValueType))},
		op.Add{E: eid, A: datom.AttrCardinality, V: value.OfKeyword(string(as.Cardinality))},
	}
	if as.Unique != UniqueNone {
		ops = append(ops, op.Add{E: eid, A: datom.AttrUnique, V: value.OfKeyword(string(as.Unique))})
	}
	if as.Indexed {
		ops = append(ops, op.Add{E: eid, A: datom.AttrIndex, V: value.OfBool(true)})
	}
	if as.Component {
		ops = append(ops, op.Add{E: eid, A: datom.AttrIsComponent, V: value.OfBool(true)})
	}
	if as.Doc != "" {
		ops = append(ops, op.Add{E: eid, A: datom.AttrDoc, V: value.OfString(as.Doc)})
	}
	return ops
}

// LoadFromIndexes reverses InstallOps: it finds every entity asserting
// :db/ident and reassembles an AttributeSchema for it, returning the full
// Schema map (spec.md §4.5's loadFromIndexes).
func LoadFromIndexes(ix index.Indexes) (Schema, error) {
	out := make(Schema)
	entities := ix.EntitiesWithAttr(datom.AttrIdent)
	for _, e := range entities {
		as, err := loadOne(ix, e)
		if err != nil {
			return nil, fmt.Errorf("loadFromIndexes: entity %d: %w", e, err)
		}
		out[as.Ident] = as
	}
	return out, nil
}

func loadOne(ix index.Indexes, e datom.EntityId) (AttributeSchema, error) {
	var as AttributeSchema

	ident, ok := latest(ix, e, datom.AttrIdent)
	if !ok || ident.Kind() != value.KindKeyword {
		return as, fmt.Errorf("missing or invalid :db/ident")
	}
	as.Ident = datom.Attribute(ident.Str())

	if vt, ok := latest(ix, e, datom.AttrValueType); ok {
		as.ValueType = ValueType(vt.Str())
	}
	if c, ok := latest(ix, e, datom.AttrCardinality); ok {
		as.Cardinality = Cardinality(c.Str())
	} else {
		as.Cardinality = CardinalityOne
	}
	if u, ok := latest(ix, e, datom.AttrUnique); ok {
		as.Unique = Unique(u.Str())
	}
	if idx, ok := latest(ix, e, datom.AttrIndex); ok {
		as.Indexed = idx.Kind() == value.KindBool && idx.Bool()
	}
	if comp, ok := latest(ix, e, datom.AttrIsComponent); ok {
		as.Component = comp.Kind() == value.KindBool && comp.Bool()
	}
	if doc, ok := latest(ix, e, datom.AttrDoc); ok {
		as.Doc = doc.Str()
	}
	return as, nil
}

// latest returns the highest-tx current value of (e, a), if any.
func latest(ix index.Indexes, e datom.EntityId, a datom.Attribute) (value.Value, bool) {
	datoms := ix.ForEntityAttr(e, a)
	if len(datoms) == 0 {
		return value.Value{}, false
	}
	best := datoms[0]
	for _, d := range datoms[1:] {
		if d.Tx > best.Tx {
			best = d
		}
	}
	return best.V, true
}
