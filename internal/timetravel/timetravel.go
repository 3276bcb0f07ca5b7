// Package timetravel implements the time-travel views over a transaction
// log (spec.md §4.4): asOf, since, entity history, and attribute history.
// A Connection owns the append-only log of committed transactions and the
// latest Db built from replaying it; every view is computed fresh from the
// log rather than cached, since the log is the only durable source of
// truth (journal persistence in internal/journal replays the same log
// shape from disk).
package timetravel

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
)

// TxEntry is one committed transaction's contribution to the log: its id,
// its wall-clock instant, and every datom (assertion or retraction) it
// produced.
type TxEntry struct {
	Tx      datom.TxId
	Instant time.Time
	Datoms  []datom.Datom
}

// Connection wraps the latest Db together with the append-only log needed
// to reconstruct any earlier view of it.
type Connection struct {
	mu      sync.RWMutex
	current db.Db
	log     []TxEntry
}

// NewConnection starts a Connection at genesis.
func NewConnection() *Connection {
	return &Connection{current: db.Genesis()}
}

// Db returns the latest committed Db.
func (c *Connection) Db() db.Db {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Append records a newly committed transaction, replacing the current Db
// and extending the log. Callers (the transactor's caller, or journal
// recovery) are expected to call Append once per committed transaction, in
// commit order.
func (c *Connection) Append(newDb db.Db, tx datom.TxId, instant time.Time, datoms []datom.Datom) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = newDb
	c.log = append(c.log, TxEntry{Tx: tx, Instant: instant, Datoms: datoms})
}

// Log returns a snapshot copy of the full transaction log.
func (c *Connection) Log() []TxEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TxEntry, len(c.log))
	copy(out, c.log)
	return out
}

// AsOf reconstructs the Db as it existed immediately after transaction t:
// every transaction with Tx <= t is replayed from genesis, in order.
func (c *Connection) AsOf(t datom.TxId) (db.Db, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return replay(c.log, func(entry TxEntry) bool { return entry.Tx <= t })
}

// Since reconstructs a Db containing only the transactions strictly after
// t, replayed from genesis — a view of "what has happened since t" rather
// than "the accumulated state as of t" (spec.md §4.4).
func (c *Connection) Since(t datom.TxId) (db.Db, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return replay(c.log, func(entry TxEntry) bool { return entry.Tx > t })
}

// SinceDatoms returns the flat list of every datom (assertions and
// retractions alike) committed strictly after t, in tx order — spec.md
// §4.4's literal "since" operation, distinct from Since's reconstructed-Db
// convenience view above. The log is append-only and sorted by Tx, so the
// first kept entry is found by binary search and the scan below only ever
// touches the O(K) tail that actually matches, never the whole log.
func (c *Connection) SinceDatoms(t datom.TxId) []datom.Datom {
	c.mu.RLock()
	defer c.mu.RUnlock()
	start := sort.Search(len(c.log), func(i int) bool { return c.log[i].Tx > t })
	var out []datom.Datom
	for _, entry := range c.log[start:] {
		out = append(out, entry.Datoms...)
	}
	return out
}

// replay rebuilds a Db from genesis by re-applying every log entry
// matching keep, in log order. Retractions replay safely because the log
// only ever records a retraction after its matching assertion has already
// been replayed in the same or an earlier kept entry.
func replay(log []TxEntry, keep func(TxEntry) bool) (db.Db, error) {
	d := db.Genesis()
	for _, entry := range log {
		if !keep(entry) {
			continue
		}
		b := d.NewBuilder()
		b.SetTx(entry.Tx)
		for _, dd := range entry.Datoms {
			b.BumpNextEntityId(dd.E)
			if dd.Added {
				b.Assert(dd.E, dd.A, dd.V)
				continue
			}
			if _, err := b.Retract(dd.E, dd.A, dd.V); err != nil {
				return db.Db{}, fmt.Errorf("timetravel: replay tx %d: %w", entry.Tx, err)
			}
		}
		d = b.Build()
	}
	return d, nil
}

// EntityHistory returns every datom (assertion and retraction) ever
// recorded for entity e, in transaction order.
func (c *Connection) EntityHistory(e datom.EntityId) []datom.Datom {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []datom.Datom
	for _, entry := range c.log {
		for _, dd := range entry.Datoms {
			if dd.E == e {
				out = append(out, dd)
			}
		}
	}
	return out
}

// AttrHistory returns every datom ever recorded for (e, a), in transaction
// order.
func (c *Connection) AttrHistory(e datom.EntityId, a datom.Attribute) []datom.Datom {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []datom.Datom
	for _, entry := range c.log {
		for _, dd := range entry.Datoms {
			if dd.E == e && dd.A == a {
				out = append(out, dd)
			}
		}
	}
	return out
}
