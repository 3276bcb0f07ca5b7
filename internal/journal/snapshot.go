package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// snapshotFile is the on-disk snapshot shape spec.md §6 gives literally:
// the basis tx and entity id counter needed to resume, the currently
// visible facts (for a reader that wants current state without replaying
// anything), and the entire transaction log grouped the same way the
// journal groups it (for asOf/since/history after a restart).
type snapshotFile struct {
	BasisT       uint64      `json:"basisT"`
	NextEntityId int64       `json:"nextEntityId"`
	CurrentFacts []wireDatom `json:"currentFacts"`
	TxLog        []txLine    `json:"txLog"`
}

// Snapshot writes a new snapshot.json capturing d's current facts and its
// full transaction log, using a temp-file-then-atomic-rename so a crash
// mid-write never corrupts the previously committed snapshot (the same
// durability shape as the journal file itself, applied here to a
// single-shot file instead of an append log).
func (j *Journal) Snapshot(d db.Db) error {
	current := d.Current.All()
	currentWire := make([]wireDatom, len(current))
	for i, dd := range current {
		currentWire[i] = encodeDatom(dd)
	}

	snap := snapshotFile{
		BasisT:       uint64(d.BasisT),
		NextEntityId: int64(d.NextEntityId),
		CurrentFacts: currentWire,
		TxLog:        historyAsTxLog(d),
	}

	tmpPath := filepath.Join(j.dir, snapshotFileName+".tmp")
	finalPath := filepath.Join(j.dir, snapshotFileName)

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("journal: create snapshot temp file: %w", err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("journal: encode snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("journal: sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("journal: close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("journal: rename snapshot into place: %w", err)
	}

	j.mu.Lock()
	j.txSinceSnapshot = 0
	j.mu.Unlock()
	return nil
}

// historyAsTxLog groups d's full datom history by tx, in tx order, into the
// same per-transaction {txId, instant, datoms} shape the journal itself
// writes one line of per commit — the tx's :db/txInstant datom (always
// produced by the transactor, see internal/transactor) supplies the
// entry's instant field.
func historyAsTxLog(d db.Db) []txLine {
	all := d.History.All()
	sort.Slice(all, func(i, k int) bool { return all[i].Tx < all[k].Tx })

	byTx := make(map[datom.TxId][]datom.Datom)
	order := make([]datom.TxId, 0)
	for _, dd := range all {
		if _, ok := byTx[dd.Tx]; !ok {
			order = append(order, dd.Tx)
		}
		byTx[dd.Tx] = append(byTx[dd.Tx], dd)
	}

	lines := make([]txLine, 0, len(order))
	for _, tx := range order {
		group := byTx[tx]
		var instant int64
		for _, dd := range group {
			if dd.A == datom.AttrTxInstant && dd.V.Kind() == value.KindInstant {
				instant = dd.V.Instant().UnixNano()
				break
			}
		}
		wireDatoms := make([]wireDatom, len(group))
		for i, dd := range group {
			wireDatoms[i] = encodeDatom(dd)
		}
		lines = append(lines, txLine{Tx: uint64(tx), Instant: instant, Datoms: wireDatoms})
	}
	return lines
}

// Recover reconstructs a Db by loading the latest snapshot (if any) and
// replaying every journal line committed after it, in order. It is the
// counterpart to Append/Snapshot and is meant to run once at startup.
func Recover(dir string) (db.Db, error) {
	d := db.Genesis()
	var fromTx datom.TxId

	snapPath := filepath.Join(dir, snapshotFileName)
	if data, err := os.ReadFile(snapPath); err == nil {
		var snap snapshotFile
		if err := json.Unmarshal(data, &snap); err != nil {
			return db.Db{}, fmt.Errorf("journal: decode snapshot: %w", err)
		}
		var err2 error
		d, err2 = replaySnapshotTxLog(snap)
		if err2 != nil {
			return db.Db{}, err2
		}
		fromTx = datom.TxId(snap.BasisT)
	} else if !os.IsNotExist(err) {
		return db.Db{}, fmt.Errorf("journal: read snapshot: %w", err)
	}

	journalPath := filepath.Join(dir, journalFileName)
	file, err := os.Open(journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return db.Db{}, fmt.Errorf("journal: open journal for recovery: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var tl txLine
		if err := json.Unmarshal(line, &tl); err != nil {
			return db.Db{}, fmt.Errorf("journal: decode journal line %d: %w", lineNum, err)
		}
		if datom.TxId(tl.Tx) <= fromTx {
			continue
		}
		d, err = applyTxLine(d, tl)
		if err != nil {
			return db.Db{}, fmt.Errorf("journal: replay line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return db.Db{}, fmt.Errorf("journal: scan journal: %w", err)
	}
	return d, nil
}

// replaySnapshotTxLog rebuilds a Db by replaying the snapshot's own
// transaction log from genesis. snap.CurrentFacts is written for external
// readers that want current state without a replay; recovery itself always
// replays the authoritative txLog so History/asOf/since stay correct.
func replaySnapshotTxLog(snap snapshotFile) (db.Db, error) {
	d := db.Genesis()
	for _, tl := range snap.TxLog {
		var err error
		d, err = applyTxLine(d, tl)
		if err != nil {
			return db.Db{}, fmt.Errorf("journal: replay snapshot tx %d: %w", tl.Tx, err)
		}
	}
	if int64(d.NextEntityId) < snap.NextEntityId {
		b := d.NewBuilder()
		b.BumpNextEntityId(datom.EntityId(snap.NextEntityId - 1))
		d = b.Build()
	}
	return d, nil
}

func applyTxLine(d db.Db, tl txLine) (db.Db, error) {
	b := d.NewBuilder()
	b.SetTx(datom.TxId(tl.Tx))
	for _, wd := range tl.Datoms {
		dd, err := decodeDatom(wd)
		if err != nil {
			return db.Db{}, err
		}
		b.BumpNextEntityId(dd.E)
		if dd.Added {
			b.Assert(dd.E, dd.A, dd.V)
			continue
		}
		if _, err := b.Retract(dd.E, dd.A, dd.V); err != nil {
			return db.Db{}, err
		}
	}
	return b.Build(), nil
}

// Compact rewrites the journal directory so only a fresh snapshot as of d
// remains: it flushes a snapshot, then truncates journal.jsonl to empty,
// so recovery from this point on starts from the snapshot alone
// (spec.md §4.7's compaction operation).
func (j *Journal) Compact(d db.Db) error {
	if err := j.Snapshot(d); err != nil {
		return fmt.Errorf("journal: compact: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.w.Flush(); err != nil {
		return fmt.Errorf("journal: compact: flush before truncate: %w", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("journal: compact: close before truncate: %w", err)
	}

	journalPath := filepath.Join(j.dir, journalFileName)
	f, err := os.OpenFile(journalPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: compact: reopen truncated journal: %w", err)
	}
	j.file = f
	j.w = bufio.NewWriter(f)
	j.txSinceSnapshot = 0
	return nil
}
