package datom

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nathanial/ledger-sub001/internal/value"
)

func TestCompareEAVTOrdersByEntityFirst(t *testing.T) {
	d1 := New(1, ":a/x", value.OfInt(1), 1, true)
	d2 := New(2, ":a/x", value.OfInt(0), 1, true)
	assert.Negative(t, CompareEAVT(d1, d2))
}

func TestCompareAEVTOrdersByAttributeFirst(t *testing.T) {
	d1 := New(2, ":a/x", value.OfInt(1), 1, true)
	d2 := New(1, ":a/y", value.OfInt(1), 1, true)
	assert.Negative(t, CompareAEVT(d1, d2))
}

func TestCompareAVETOrdersByValueAfterAttribute(t *testing.T) {
	d1 := New(2, ":a/x", value.OfInt(1), 1, true)
	d2 := New(1, ":a/x", value.OfInt(2), 1, true)
	assert.Negative(t, CompareAVET(d1, d2))
}

func TestCompareVAETOrdersByValueFirst(t *testing.T) {
	d1 := New(1, ":a/x", value.OfRef(5), 1, true)
	d2 := New(1, ":a/y", value.OfRef(9), 1, true)
	assert.Negative(t, CompareVAET(d1, d2))
}

func TestTxIdNext(t *testing.T) {
	assert.Equal(t, TxId(1), TxId(0).Next())
}

func TestDatomStringMarksRetraction(t *testing.T) {
	d := New(1, ":a/x", value.OfInt(1), 1, false)
	assert.Contains(t, d.String(), "-(")
}
