// Package index implements the four ordered datom containers (EAVT, AEVT,
// AVET, VAET) and the Indexes bundle that mutates all four atomically and
// exposes early-terminating prefix range scans (spec.md §4.1).
//
// Each Index is a persistent value: Insert/Remove return a new Index
// without mutating the receiver, following the design note's fallback for
// languages without a built-in persistent sorted map ("cloning and relying
// on a single writer").
package index

import (
	"sort"

	"github.com/nathanial/ledger-sub001/internal/datom"
)

// Comparator orders two datoms; it is the key ordering for one of the four
// indexes.
type Comparator func(a, b datom.Datom) int

// Index is a single sorted datom container ordered by a Comparator.
type Index struct {
	cmp   Comparator
	items []datom.Datom
}

// NewIndex builds an empty Index ordered by cmp.
func NewIndex(cmp Comparator) Index {
	return Index{cmp: cmp}
}

// Len returns the number of datoms in the index.
func (ix Index) Len() int { return len(ix.items) }

// lowerBound returns the first position i such that cmp(items[i], probe) >= 0.
func (ix Index) lowerBound(probe datom.Datom) int {
	return sort.Search(len(ix.items), func(i int) bool {
		return ix.cmp(ix.items[i], probe) >= 0
	})
}

// Insert returns a new Index containing d, keeping the sort order. Behavior
// is undefined if an equal-keyed datom (same E,A,V,Tx under this Index's
// comparator) is already present — callers must Remove any datom being
// superseded first, per spec.md §4.3 step 4.
func (ix Index) Insert(d datom.Datom) Index {
	pos := ix.lowerBound(d)
	out := make([]datom.Datom, len(ix.items)+1)
	copy(out, ix.items[:pos])
	out[pos] = d
	copy(out[pos+1:], ix.items[pos:])
	return Index{cmp: ix.cmp, items: out}
}

// Remove returns a new Index with d removed. It is a no-op (returns an
// equal Index) if d is not present.
func (ix Index) Remove(d datom.Datom) Index {
	pos := ix.lowerBound(d)
	for i := pos; i < len(ix.items); i++ {
		if ix.cmp(ix.items[i], d) != 0 {
			break
		}
		if ix.items[i].Equal(d) {
			out := make([]datom.Datom, 0, len(ix.items)-1)
			out = append(out, ix.items[:i]...)
			out = append(out, ix.items[i+1:]...)
			return Index{cmp: ix.cmp, items: out}
		}
	}
	return ix
}

// RangeWhile scans forward from the lower bound of probe, collecting datoms
// while pred holds and stopping at the first datom for which it doesn't.
// Because the index is sorted and pred is expected to test a contiguous
// prefix condition (e.g. "same entity"), this never falls back to a full
// scan — it is the one primitive spec.md §4.1 requires every index query to
// be built from.
func (ix Index) RangeWhile(probe datom.Datom, pred func(datom.Datom) bool) []datom.Datom {
	pos := ix.lowerBound(probe)
	var out []datom.Datom
	for i := pos; i < len(ix.items); i++ {
		if !pred(ix.items[i]) {
			break
		}
		out = append(out, ix.items[i])
	}
	return out
}

// All returns every datom in index order. Used only by time-travel
// reconstruction and persistence, which legitimately need the full set.
func (ix Index) All() []datom.Datom {
	out := make([]datom.Datom, len(ix.items))
	copy(out, ix.items)
	return out
}
