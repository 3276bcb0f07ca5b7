package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledger "github.com/nathanial/ledger-sub001"
)

func TestFacadeTransactQueryAndPersistRoundtrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	j, err := ledger.OpenJournal(dir, ledger.JournalOptions{})
	require.NoError(t, err)
	defer j.Close()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d, report, err := ledger.Transact(context.Background(), ledger.Genesis(), []ledger.Operation{
		ledger.Add{E: -1, A: ":p/name", V: ledger.OfString("Ada")},
	}, now, nil, ledger.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, j.Append(context.Background(), report.Tx, now, report.Datoms))

	recovered, err := ledger.RecoverJournal(dir)
	require.NoError(t, err)
	assert.Equal(t, d.BasisT, recovered.BasisT)

	eid := report.TempIds[-1]
	out, err := ledger.NewPullExecutor(recovered).Pull(context.Background(), eid, []ledger.Pattern{
		ledger.PullAttr(":p/name"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", out[":p/name"])
}

func TestFacadeConnectionSupportsTimeTravel(t *testing.T) {
	conn := ledger.NewConnection()
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d1, report1, err := ledger.Transact(context.Background(), conn.Db(), []ledger.Operation{
		ledger.Add{E: -1, A: ":p/name", V: ledger.OfString("Bea")},
	}, t1, nil, ledger.TxOptions{})
	require.NoError(t, err)
	conn.Append(d1, report1.Tx, t1, report1.Datoms)

	asOf, err := conn.AsOf(report1.Tx)
	require.NoError(t, err)
	name, ok := asOf.GetOne(report1.TempIds[-1], ":p/name")
	require.True(t, ok)
	assert.Equal(t, "Bea", name.Str())
}
