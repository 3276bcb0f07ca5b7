package transactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/ferr"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/schema"
	"github.com/nathanial/ledger-sub001/internal/txfn"
	"github.com/nathanial/ledger-sub001/internal/value"
)

var now = time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

func TestTransactAssertThenQuery(t *testing.T) {
	d := db.Genesis()
	newDb, report, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/name", V: value.OfString("Alice")},
	}, now, nil, Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.Tx)
	v, ok := newDb.GetOne(1, ":p/name")
	require.True(t, ok)
	assert.Equal(t, "Alice", v.Str())

	_, ok = d.GetOne(1, ":p/name")
	assert.False(t, ok, "original Db must be untouched")
}

func TestTransactTempIdResolutionIsConsistentWithinOneTransaction(t *testing.T) {
	d := db.Genesis()
	newDb, report, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: -1, A: ":p/name", V: value.OfString("Bob")},
		op.Add{E: -1, A: ":p/age", V: value.OfInt(40)},
	}, now, nil, Options{})
	require.NoError(t, err)
	realId := report.TempIds[value.EntityId(-1)]
	assert.NotZero(t, realId)

	name, _ := newDb.GetOne(realId, ":p/name")
	age, _ := newDb.GetOne(realId, ":p/age")
	assert.Equal(t, "Bob", name.Str())
	assert.EqualValues(t, 40, age.Int())
}

func TestTransactRetractThenAssertInSameTransactionKeepsHistory(t *testing.T) {
	d := db.Genesis()
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/age", V: value.OfInt(30)},
	}, now, nil, Options{})
	require.NoError(t, err)

	d, _, err = Transact(context.Background(), d, []op.Operation{
		op.Retract{E: 1, A: ":p/age", V: value.OfInt(30)},
		op.Add{E: 1, A: ":p/age", V: value.OfInt(31)},
	}, now, nil, Options{})
	require.NoError(t, err)

	v, ok := d.GetOne(1, ":p/age")
	require.True(t, ok)
	assert.EqualValues(t, 31, v.Int())
	assert.Len(t, d.History.All(), 5, "assert(30) + txInstant + retract(30) + assert(31) + txInstant")
}

func TestTransactRetractEntityRemovesAllCurrentDatoms(t *testing.T) {
	d := db.Genesis()
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/name", V: value.OfString("Carol")},
		op.Add{E: 1, A: ":p/age", V: value.OfInt(22)},
	}, now, nil, Options{})
	require.NoError(t, err)

	d, _, err = Transact(context.Background(), d, []op.Operation{
		op.RetractEntity{Ref: op.ById(1)},
	}, now, nil, Options{})
	require.NoError(t, err)

	assert.Empty(t, d.Entity(1))
}

func TestTransactRetractEntityCascadesThroughComponentAttribute(t *testing.T) {
	s := schema.Schema{
		":order/line": schema.AttributeSchema{
			Ident: ":order/line", ValueType: schema.TypeRef,
			Cardinality: schema.CardinalityMany, Component: true,
		},
	}
	d := db.Genesis().WithSchema(s, false)
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":order/line", V: value.OfRef(2)},
		op.Add{E: 2, A: ":line/qty", V: value.OfInt(3)},
	}, now, nil, Options{})
	require.NoError(t, err)

	d, _, err = Transact(context.Background(), d, []op.Operation{
		op.RetractEntity{Ref: op.ById(1)},
	}, now, nil, Options{})
	require.NoError(t, err)

	assert.Empty(t, d.Entity(1))
	assert.Empty(t, d.Entity(2), "component-referenced entity must cascade-retract")
}

func TestTransactRetractEntityRemovesInboundReferences(t *testing.T) {
	d := db.Genesis()
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":order/customer", V: value.OfRef(2)},
	}, now, nil, Options{})
	require.NoError(t, err)

	d, _, err = Transact(context.Background(), d, []op.Operation{
		op.RetractEntity{Ref: op.ById(2)},
	}, now, nil, Options{})
	require.NoError(t, err)

	_, ok := d.GetOne(1, ":order/customer")
	assert.False(t, ok, "inbound reference to the retracted entity must itself be retracted")
}

func TestTransactRetractEntityByLookupRefResolvesOnUniqueAttribute(t *testing.T) {
	s := schema.Schema{
		":p/email": {Ident: ":p/email", ValueType: schema.TypeString, Cardinality: schema.CardinalityOne, Unique: schema.UniqueIdentity},
	}
	d := db.Genesis().WithSchema(s, false)
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/email", V: value.OfString("a@b.com")},
		op.Add{E: 1, A: ":p/name", V: value.OfString("Dana")},
	}, now, nil, Options{})
	require.NoError(t, err)

	d, _, err = Transact(context.Background(), d, []op.Operation{
		op.RetractEntity{Ref: op.ByLookup(":p/email", value.OfString("a@b.com"))},
	}, now, nil, Options{})
	require.NoError(t, err)

	assert.Empty(t, d.Entity(1))
}

func TestTransactRetractEntityByLookupRefOnNonUniqueAttributeFails(t *testing.T) {
	s := schema.Schema{
		":p/nickname": {Ident: ":p/nickname", ValueType: schema.TypeString, Cardinality: schema.CardinalityOne},
	}
	d := db.Genesis().WithSchema(s, false)
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/nickname", V: value.OfString("Deedee")},
	}, now, nil, Options{})
	require.NoError(t, err)

	_, _, err = Transact(context.Background(), d, []op.Operation{
		op.RetractEntity{Ref: op.ByLookup(":p/nickname", value.OfString("Deedee"))},
	}, now, nil, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ferr.ErrLookupAttrNotUnique)
}

func TestTransactRetractEntityByLookupRefOnUndeclaredAttributeFails(t *testing.T) {
	d := db.Genesis()
	_, _, err := Transact(context.Background(), d, []op.Operation{
		op.RetractEntity{Ref: op.ByLookup(":p/ssn", value.OfString("111-11-1111"))},
	}, now, nil, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ferr.ErrLookupAttrNotUnique)
}

func TestTransactSchemaTypeMismatchIsRejected(t *testing.T) {
	s := schema.Schema{
		":p/age": {Ident: ":p/age", ValueType: schema.TypeInt, Cardinality: schema.CardinalityOne},
	}
	d := db.Genesis().WithSchema(s, false)
	_, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/age", V: value.OfString("not an int")},
	}, now, nil, Options{})
	require.Error(t, err)
	assert.True(t, ferr.IsSchemaViolation(err))
}

func TestTransactCardinalityOneViolationWithinTransactionIsRejected(t *testing.T) {
	s := schema.Schema{
		":p/ssn": {Ident: ":p/ssn", ValueType: schema.TypeString, Cardinality: schema.CardinalityOne},
	}
	d := db.Genesis().WithSchema(s, false)
	_, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/ssn", V: value.OfString("111-11-1111")},
		op.Add{E: 1, A: ":p/ssn", V: value.OfString("222-22-2222")},
	}, now, nil, Options{})
	require.Error(t, err)
	assert.True(t, ferr.IsSchemaViolation(err))
}

func TestTransactUniquenessViolationAcrossEntitiesIsRejected(t *testing.T) {
	s := schema.Schema{
		":p/email": {Ident: ":p/email", ValueType: schema.TypeString, Cardinality: schema.CardinalityOne, Unique: schema.UniqueIdentity},
	}
	d := db.Genesis().WithSchema(s, false)
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/email", V: value.OfString("a@b.com")},
	}, now, nil, Options{})
	require.NoError(t, err)

	_, _, err = Transact(context.Background(), d, []op.Operation{
		op.Add{E: 2, A: ":p/email", V: value.OfString("a@b.com")},
	}, now, nil, Options{})
	require.Error(t, err)
	assert.True(t, ferr.IsSchemaViolation(err))
}

func TestTransactReassertingOwnUniqueValueIsNotAViolation(t *testing.T) {
	s := schema.Schema{
		":p/email": {Ident: ":p/email", ValueType: schema.TypeString, Cardinality: schema.CardinalityOne, Unique: schema.UniqueIdentity},
	}
	d := db.Genesis().WithSchema(s, false)
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/email", V: value.OfString("a@b.com")},
	}, now, nil, Options{})
	require.NoError(t, err)

	_, _, err = Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/email", V: value.OfString("a@b.com")},
	}, now, nil, Options{})
	assert.NoError(t, err)
}

func TestTransactStrictModeRejectsUndeclaredAttribute(t *testing.T) {
	d := db.Genesis().WithSchema(schema.Schema{}, true)
	_, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/nope", V: value.OfInt(1)},
	}, now, nil, Options{})
	require.Error(t, err)
	assert.True(t, ferr.IsSchemaViolation(err))
}

func TestTransactPermissiveModeAllowsUndeclaredAttribute(t *testing.T) {
	d := db.Genesis().WithSchema(schema.Schema{}, false)
	_, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/whatever", V: value.OfInt(1)},
	}, now, nil, Options{})
	assert.NoError(t, err)
}

func TestTransactCallExpandsViaRegisteredTxFunction(t *testing.T) {
	d := db.Genesis()
	d, _, err := Transact(context.Background(), d, []op.Operation{
		op.Add{E: 1, A: ":p/score", V: value.OfInt(10)},
	}, now, nil, Options{})
	require.NoError(t, err)

	d, _, err = Transact(context.Background(), d, []op.Operation{
		op.Call{Name: "cas", Args: []interface{}{value.EntityId(1), ":p/score", value.OfInt(10), value.OfInt(20)}},
	}, now, txfn.Builtins(), Options{})
	require.NoError(t, err)

	v, _ := d.GetOne(1, ":p/score")
	assert.EqualValues(t, 20, v.Int())
}

func TestTransactUnknownTxFunctionErrors(t *testing.T) {
	d := db.Genesis()
	_, _, err := Transact(context.Background(), d, []op.Operation{
		op.Call{Name: "doesNotExist"},
	}, now, txfn.Builtins(), Options{})
	assert.Error(t, err)
}

func TestTransactRetractingMissingFactFails(t *testing.T) {
	d := db.Genesis()
	_, _, err := Transact(context.Background(), d, []op.Operation{
		op.Retract{E: 1, A: ":p/name", V: value.OfString("x")},
	}, now, nil, Options{})
	assert.Error(t, err)
}

func TestTransactStampsTxInstant(t *testing.T) {
	d := db.Genesis()
	_, report, err := Transact(context.Background(), d, nil, now, nil, Options{})
	require.NoError(t, err)
	var found bool
	for _, dd := range report.Datoms {
		if dd.A == datom.AttrTxInstant {
			found = true
			assert.True(t, dd.V.Instant().Equal(now))
		}
	}
	assert.True(t, found)
}
