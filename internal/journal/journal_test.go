package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/transactor"
	"github.com/nathanial/ledger-sub001/internal/value"
)

func commitAndAppend(t *testing.T, j *Journal, d db.Db, instant time.Time, ops ...op.Operation) db.Db {
	t.Helper()
	newDb, report, err := transactor.Transact(context.Background(), d, ops, instant, nil, transactor.Options{})
	require.NoError(t, err)
	require.NoError(t, j.Append(context.Background(), report.Tx, instant, report.Datoms))
	return newDb
}

func TestAppendThenRecoverRoundtrips(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, Options{})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := db.Genesis()
	d = commitAndAppend(t, j, d, now, op.Add{E: 1, A: ":p/name", V: value.OfString("Frank")})
	d = commitAndAppend(t, j, d, now.Add(time.Hour), op.Add{E: 1, A: ":p/age", V: value.OfInt(44)})
	require.NoError(t, j.Close())

	recovered, err := Recover(dir)
	require.NoError(t, err)

	name, ok := recovered.GetOne(1, ":p/name")
	require.True(t, ok)
	assert.Equal(t, "Frank", name.Str())
	age, ok := recovered.GetOne(1, ":p/age")
	require.True(t, ok)
	assert.EqualValues(t, 44, age.Int())
	assert.Equal(t, d.BasisT, recovered.BasisT)
}

func TestRecoverOnEmptyDirectoryReturnsGenesis(t *testing.T) {
	dir := t.TempDir()
	d, err := Recover(dir)
	require.NoError(t, err)
	assert.EqualValues(t, 0, d.BasisT)
}

func TestSnapshotThenCompactTruncatesJournal(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, Options{})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := db.Genesis()
	d = commitAndAppend(t, j, d, now, op.Add{E: 1, A: ":p/name", V: value.OfString("Gina")})

	require.NoError(t, j.Compact(d))

	info, err := os.Stat(filepath.Join(dir, journalFileName))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	info, err = os.Stat(filepath.Join(dir, snapshotFileName))
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	require.NoError(t, j.Close())

	recovered, err := Recover(dir)
	require.NoError(t, err)
	name, ok := recovered.GetOne(1, ":p/name")
	require.True(t, ok)
	assert.Equal(t, "Gina", name.Str())
}

func TestValueEncodingRoundtripsEveryKind(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	values := []value.Value{
		value.OfInt(-7),
		value.OfFloat(3.25),
		value.OfString("hello"),
		value.OfBool(true),
		value.OfInstant(now),
		value.OfRef(value.EntityId(9)),
		value.OfKeyword(":db/ident"),
		value.OfBytes([]byte{1, 2, 3}),
	}
	for _, v := range values {
		w := encodeValue(v)
		got, err := decodeValue(w)
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "roundtrip mismatch for kind %s", v.Kind())
	}
}

func TestAppendedLineMatchesSpecLiteralWireFormat(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, Options{})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := db.Genesis()
	commitAndAppend(t, j, d, now, op.Add{E: 1, A: ":p/name", V: value.OfString("hi")})
	require.NoError(t, j.Close())

	raw, err := os.ReadFile(filepath.Join(dir, journalFileName))
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Contains(t, parsed, "txId")
	assert.Contains(t, parsed, "instant")

	datoms, ok := parsed["datoms"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, datoms)

	var nameDatom []interface{}
	for _, dd := range datoms {
		tuple := dd.([]interface{})
		if tuple[1] == ":p/name" {
			nameDatom = tuple
		}
	}
	require.NotNil(t, nameDatom, "expected a tuple-encoded datom for :p/name")
	require.Len(t, nameDatom, 5)

	valueObj, ok := nameDatom[2].(map[string]interface{})
	require.True(t, ok, "datom value must encode as a {t,v} object")
	assert.Equal(t, "string", valueObj["t"])
	assert.Equal(t, "hi", valueObj["v"])
	assert.Equal(t, true, nameDatom[4])
}

func TestLoadOptionsAppliesDefaultsWhenFieldsUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_txfn_depth = 5\n"), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, 5, opts.MaxTxFnDepth)
	assert.Equal(t, DefaultSnapshotIntervalTx, opts.SnapshotIntervalTx)
	assert.Equal(t, DefaultRetryMaxElapsed, opts.RetryMaxElapsed)
}
