package transactor

import (
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// resolveTempIds rewrites every negative (temporary) EntityId appearing as
// an operation's entity or as a ref-valued value into a freshly allocated
// permanent id, assigning the same permanent id to every occurrence of the
// same temporary id within this transaction (spec.md §3's "a transaction's
// temp ids resolve consistently within that transaction").
func resolveTempIds(b *db.Builder, ops []op.Operation) ([]op.Operation, map[value.EntityId]value.EntityId) {
	resolved := make(map[value.EntityId]value.EntityId)
	resolve := func(id value.EntityId) value.EntityId {
		if !id.IsTemp() {
			return id
		}
		if perm, ok := resolved[id]; ok {
			return perm
		}
		perm := b.AllocEntityId()
		resolved[id] = perm
		return perm
	}

	out := make([]op.Operation, len(ops))
	for i, o := range ops {
		switch v := o.(type) {
		case op.Add:
			v.E = resolve(v.E)
			if v.V.IsRef() {
				v.V = value.OfRef(resolve(v.V.Ref()))
			}
			out[i] = v
		case op.Retract:
			v.E = resolve(v.E)
			if v.V.IsRef() {
				v.V = value.OfRef(resolve(v.V.Ref()))
			}
			out[i] = v
		default:
			out[i] = o
		}
	}
	return out, resolved
}
