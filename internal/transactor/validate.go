package transactor

import (
	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/ferr"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/schema"
	"github.com/nathanial/ledger-sub001/internal/value"
)

type entityAttr struct {
	e datom.EntityId
	a datom.Attribute
}

// validate applies spec.md §4.3 step 3's schema checks to the expanded,
// temp-id-resolved operation list against d, the transaction's basis Db.
// Undefined-attribute and type checks look at each op independently;
// cardinality-one and uniqueness checks additionally track state across
// the whole batch, since two operations in the same transaction can
// conflict with each other without either conflicting with d itself.
func validate(d db.Db, ops []op.Operation) error {
	cfg := d.SchemaConfig
	firstValue := make(map[entityAttr]asserted)
	// uniqueSeen tracks (attribute, value) -> entity already claiming it
	// within this transaction, for cross-op uniqueness conflicts.
	uniqueSeen := make(map[string]datom.EntityId)

	for _, o := range ops {
		add, isAdd := o.(op.Add)
		if !isAdd {
			continue
		}
		as, declared := cfg.Schema[add.A]
		if !declared {
			if cfg.Strict {
				return ferr.NewSchemaViolation("validate", &ferr.SchemaError{
					Kind: ferr.UndefinedAttribute,
					Attr: add.A,
				})
			}
			continue
		}

		if as.ValueType != "" && !as.ValueType.Matches(add.V.Kind()) {
			return ferr.NewSchemaViolation("validate", &ferr.SchemaError{
				Kind:     ferr.TypeMismatch,
				Attr:     add.A,
				Expected: string(as.ValueType),
				Actual:   add.V.Kind().String(),
			})
		}

		if as.Cardinality == schema.CardinalityOne || as.Cardinality == "" {
			key := entityAttr{e: add.E, a: add.A}
			if prior, ok := firstValue[key]; ok && !prior.v.Equal(add.V) {
				return ferr.NewSchemaViolation("validate", &ferr.SchemaError{
					Kind:   ferr.CardinalityViolation,
					Attr:   add.A,
					Entity: add.E,
				})
			}
			firstValue[key] = asserted{v: add.V}
		}

		if as.Unique != schema.UniqueNone {
			ukey := string(add.A) + "\x00" + add.V.CanonicalKey()
			if claimant, ok := uniqueSeen[ukey]; ok {
				if claimant != add.E {
					return ferr.NewSchemaViolation("validate", &ferr.SchemaError{
						Kind:     ferr.UniquenessViolation,
						Attr:     add.A,
						Value:    add.V,
						Existing: claimant,
						New:      add.E,
					})
				}
			} else {
				uniqueSeen[ukey] = add.E
			}

			if existing, ok := d.EntityWithAttrValue(add.A, add.V); ok && existing != add.E {
				return ferr.NewSchemaViolation("validate", &ferr.SchemaError{
					Kind:     ferr.UniquenessViolation,
					Attr:     add.A,
					Value:    add.V,
					Existing: existing,
					New:      add.E,
				})
			}
		}
	}
	return nil
}

type asserted struct {
	v value.Value
}
