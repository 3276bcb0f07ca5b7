package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareTypeTagOrder(t *testing.T) {
	ordered := []Value{
		OfInt(0),
		OfFloat(0),
		OfString(""),
		OfBool(false),
		OfInstant(time.Unix(0, 0)),
		OfRef(0),
		OfKeyword(""),
		OfBytes(nil),
	}
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			assert.True(t, Less(ordered[i], ordered[j]), "expected kind %d < kind %d", i, j)
			assert.False(t, Less(ordered[j], ordered[i]))
		}
	}
}

func TestCompareWithinKind(t *testing.T) {
	assert.True(t, Less(OfInt(1), OfInt(2)))
	assert.True(t, Less(OfFloat(1.5), OfFloat(2.5)))
	assert.True(t, Less(OfString("a"), OfString("b")))
	assert.True(t, Less(OfBool(false), OfBool(true)))
	assert.True(t, Less(OfRef(1), OfRef(2)))
	assert.True(t, Less(OfKeyword("a"), OfKeyword("b")))
	assert.True(t, Less(OfBytes([]byte{1}), OfBytes([]byte{2})))

	t0 := time.Unix(100, 0)
	t1 := time.Unix(200, 0)
	assert.True(t, Less(OfInstant(t0), OfInstant(t1)))
}

func TestNaNEqualsItselfAndSortsLast(t *testing.T) {
	nan := OfFloat(math.NaN())
	assert.True(t, nan.Equal(nan))
	assert.Equal(t, 0, Compare(nan, nan))

	finite := OfFloat(1e300)
	assert.True(t, Less(finite, nan))
	assert.False(t, Less(nan, finite))
}

func TestEqualityIsReflexiveAcrossKinds(t *testing.T) {
	vals := []Value{
		OfInt(42),
		OfFloat(3.14),
		OfString("hi"),
		OfBool(true),
		OfInstant(time.Now()),
		OfRef(7),
		OfKeyword(":x/y"),
		OfBytes([]byte{1, 2, 3}),
	}
	for _, v := range vals {
		require.True(t, v.Equal(v))
	}
}

func TestHashGroupsEqualValuesTogether(t *testing.T) {
	a := OfString("same")
	b := OfString("same")
	assert.Equal(t, a.Hash(), b.Hash())

	nan1 := OfFloat(math.NaN())
	nan2 := OfFloat(math.Float64frombits(0xfff8000000000001)) // a different NaN bit pattern
	assert.Equal(t, nan1.Hash(), nan2.Hash(), "all NaNs canonicalize to one hash bucket")
}

func TestBytesValueIsCopied(t *testing.T) {
	raw := []byte{1, 2, 3}
	v := OfBytes(raw)
	raw[0] = 99
	assert.Equal(t, byte(1), v.Bytes()[0], "Value must not alias caller's slice")
}

func TestIsRef(t *testing.T) {
	assert.True(t, OfRef(5).IsRef())
	assert.False(t, OfInt(5).IsRef())
}

func TestEntityIdIsTemp(t *testing.T) {
	assert.True(t, EntityId(-1).IsTemp())
	assert.False(t, EntityId(1).IsTemp())
	assert.False(t, EntityId(0).IsTemp())
}
