package pull

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/schema"
	"github.com/nathanial/ledger-sub001/internal/value"
)

func buildSampleDb(t *testing.T) db.Db {
	t.Helper()
	s := schema.Schema{
		":order/line": {Ident: ":order/line", ValueType: schema.TypeRef, Cardinality: schema.CardinalityMany},
		":order/customer": {Ident: ":order/customer", ValueType: schema.TypeRef, Cardinality: schema.CardinalityOne},
	}
	d := db.Genesis().WithSchema(s, false)
	b := d.NewBuilder()
	b.SetTx(1)
	b.Assert(1, ":order/customer", value.OfRef(2))
	b.Assert(1, ":order/line", value.OfRef(10))
	b.Assert(1, ":order/line", value.OfRef(11))
	b.Assert(2, ":p/name", value.OfString("Eve"))
	b.Assert(10, ":line/qty", value.OfInt(3))
	b.Assert(11, ":line/qty", value.OfInt(5))
	return b.Build()
}

func TestPullPlainAttr(t *testing.T) {
	d := buildSampleDb(t)
	out, err := New(d).Pull(context.Background(), 2, []Pattern{Attr(":p/name")})
	require.NoError(t, err)
	assert.Equal(t, "Eve", out[":p/name"])
}

func TestPullMissingAttrIsOmitted(t *testing.T) {
	d := buildSampleDb(t)
	out, err := New(d).Pull(context.Background(), 2, []Pattern{Attr(":p/age")})
	require.NoError(t, err)
	_, ok := out[":p/age"]
	assert.False(t, ok)
}

func TestPullWithDefaultSubstitutesMissingAttr(t *testing.T) {
	d := buildSampleDb(t)
	out, err := New(d).Pull(context.Background(), 2, []Pattern{WithDefault(value.OfInt(0), Attr(":p/age"))})
	require.NoError(t, err)
	assert.EqualValues(t, 0, out[":p/age"])
}

func TestPullCardinalityManyReturnsList(t *testing.T) {
	d := buildSampleDb(t)
	out, err := New(d).Pull(context.Background(), 1, []Pattern{Nested(":order/line", Attr(":line/qty"))})
	require.NoError(t, err)
	lines, ok := out[":order/line"].([]interface{})
	require.True(t, ok)
	assert.Len(t, lines, 2)
}

func TestPullNestedRefPullsSingleObjectForCardinalityOne(t *testing.T) {
	d := buildSampleDb(t)
	out, err := New(d).Pull(context.Background(), 1, []Pattern{Nested(":order/customer", Attr(":p/name"))})
	require.NoError(t, err)
	customer, ok := out[":order/customer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Eve", customer[":p/name"])
}

func TestPullReverseFindsReferencingEntities(t *testing.T) {
	d := buildSampleDb(t)
	out, err := New(d).Pull(context.Background(), 2, []Pattern{Reverse(":order/customer")})
	require.NoError(t, err)
	refs, ok := out["_:order/customer"].([]interface{})
	require.True(t, ok)
	require.Len(t, refs, 1)
	ref := refs[0].(map[string]interface{})
	assert.EqualValues(t, 1, ref[":db/id"])
}

func TestPullWildcardIncludesEveryAttribute(t *testing.T) {
	d := buildSampleDb(t)
	out, err := New(d).Pull(context.Background(), 2, []Pattern{Wildcard()})
	require.NoError(t, err)
	wild, ok := out["*"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Eve", wild[":p/name"])
}

func TestPullLimitedCapsListLength(t *testing.T) {
	d := buildSampleDb(t)
	out, err := New(d).Pull(context.Background(), 1, []Pattern{
		Limited(1, Nested(":order/line", Attr(":line/qty"))),
	})
	require.NoError(t, err)
	lines := out[":order/line"].([]interface{})
	assert.Len(t, lines, 1)
}

func TestPullDetectsReferenceCycles(t *testing.T) {
	d := db.Genesis()
	b := d.NewBuilder()
	b.SetTx(1)
	b.Assert(1, ":p/friend", value.OfRef(2))
	b.Assert(2, ":p/friend", value.OfRef(1))
	d = b.Build()

	ex := New(d)
	ex.MaxDepth = 50
	out, err := ex.Pull(context.Background(), 1, []Pattern{
		Nested(":p/friend", Nested(":p/friend", Nested(":p/friend"))),
	})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestPullMaxDepthDegradesToPlainRefInsteadOfErroring(t *testing.T) {
	d := db.Genesis()
	b := d.NewBuilder()
	b.SetTx(1)
	b.Assert(1, ":p/next", value.OfRef(2))
	b.Assert(2, ":p/next", value.OfRef(3))
	b.Assert(3, ":p/next", value.OfRef(4))
	d = b.Build()

	ex := New(d)
	ex.MaxDepth = 1
	out, err := ex.Pull(context.Background(), 1, []Pattern{
		Nested(":p/next", Nested(":p/next")),
	})
	require.NoError(t, err)

	first, ok := out[":p/next"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, first[":db/id"])

	second, ok := first[":p/next"].(map[string]interface{})
	require.True(t, ok, "nesting past MaxDepth degrades to a plain ref instead of erroring")
	assert.EqualValues(t, 3, second[":db/id"])
	_, recursedFurther := second[":p/next"]
	assert.False(t, recursedFurther, "a degraded ref must not recurse any further")
}
