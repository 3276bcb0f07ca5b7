// Package txfn implements the transaction-function extension point
// (spec.md §4.3 step 1): named, registered functions that expand a Call
// operation into further operations (including further Calls, up to a
// bounded depth) against the transaction's basis Db and its pending
// operation list.
package txfn

import (
	"fmt"
	"sync"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/ferr"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Func expands a tx-function call against a read-only view of the basis Db
// and its positional arguments. pending is the full operation list
// submitted to the transaction this Call is part of (spec.md §4.3 step 1),
// letting a tx-function inspect sibling operations — e.g. to avoid
// double-retracting something another operation in the same tx already
// targets — without being able to mutate them.
type Func func(d db.Db, args []interface{}, pending []op.Operation) ([]op.Operation, error)

// Registry is a concurrency-safe name-to-Func table, mirroring the
// pluggable named-handler registration pattern used for adapter tables
// elsewhere in the stack.
type Registry struct {
	mu  sync.RWMutex
	fns map[string]Func
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Func)}
}

// Register adds or replaces the Func bound to name.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
}

// Lookup returns the Func bound to name, if any.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[name]
	return fn, ok
}

// Builtins returns a Registry preloaded with the engine's built-in
// tx-functions: cas (compare-and-swap) and retractAttr.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("cas", casFn)
	r.Register("retractAttr", retractAttrFn)
	return r
}

// casFn implements compare-and-swap: args are (entity, attribute, oldValue,
// newValue). It expands to a Retract of oldValue followed by an Add of
// newValue, but only if oldValue is the attribute's current value — this
// is what makes cas atomic with respect to concurrent transactions reading
// the same basis Db, since the check and the expansion happen together
// inside the single-writer transactor.
func casFn(d db.Db, args []interface{}, _ []op.Operation) ([]op.Operation, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("cas: expected 4 args (entity, attr, oldValue, newValue), got %d", len(args))
	}
	e, ok := args[0].(value.EntityId)
	if !ok {
		return nil, fmt.Errorf("cas: arg 0 must be an entity id")
	}
	attr, err := attrArg(args[1])
	if err != nil {
		return nil, fmt.Errorf("cas: %w", err)
	}
	oldVal, ok := args[2].(value.Value)
	if !ok {
		return nil, fmt.Errorf("cas: arg 2 must be a Value")
	}
	newVal, ok := args[3].(value.Value)
	if !ok {
		return nil, fmt.Errorf("cas: arg 3 must be a Value")
	}

	cur, ok := d.GetOne(e, attr)
	if !ok || !cur.Equal(oldVal) {
		return nil, ferr.NewCustom("cas", fmt.Sprintf("entity %d attribute %s: expected %s, found %v", e, attr, oldVal.String(), cur))
	}
	return []op.Operation{
		op.Retract{E: e, A: attr, V: oldVal},
		op.Add{E: e, A: attr, V: newVal},
	}, nil
}

// retractAttrFn retracts every current value of (entity, attribute), which
// is the only safe way to clear a cardinality-many attribute in one call
// without the caller enumerating its current values first.
func retractAttrFn(d db.Db, args []interface{}, _ []op.Operation) ([]op.Operation, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("retractAttr: expected 2 args (entity, attr), got %d", len(args))
	}
	e, ok := args[0].(value.EntityId)
	if !ok {
		return nil, fmt.Errorf("retractAttr: arg 0 must be an entity id")
	}
	attr, err := attrArg(args[1])
	if err != nil {
		return nil, fmt.Errorf("retractAttr: %w", err)
	}

	datoms := d.Get(e, attr)
	ops := make([]op.Operation, 0, len(datoms))
	for _, dd := range datoms {
		ops = append(ops, op.Retract{E: e, A: attr, V: dd.V})
	}
	return ops, nil
}

// Expand flattens ops into a Call-free operation list by repeatedly
// resolving Call operations through registry against d, the transaction's
// basis Db (spec.md §4.3 step 1: tx-functions see the basis, not each
// other's effects — only the apply step in step 4 sees incrementally
// updated state). Every Func invoked during expansion also receives ops,
// the full pending operation list this transaction was submitted with, so
// a tx-function can consult its siblings. Expansion that recurses past
// maxDepth fails with ErrTxFunctionDepthExceeded, guarding against a
// tx-function that expands into a Call of itself forever.
func Expand(d db.Db, ops []op.Operation, registry *Registry, maxDepth int) ([]op.Operation, error) {
	return expand(d, ops, ops, registry, maxDepth)
}

func expand(d db.Db, ops []op.Operation, pending []op.Operation, registry *Registry, depthLeft int) ([]op.Operation, error) {
	out := make([]op.Operation, 0, len(ops))
	for _, o := range ops {
		call, isCall := o.(op.Call)
		if !isCall {
			out = append(out, o)
			continue
		}
		if depthLeft <= 0 {
			return nil, ferr.ErrTxFunctionDepthExceeded
		}
		fn, ok := registry.Lookup(call.Name)
		if !ok {
			return nil, &ferr.TxFunctionNotFoundError{Name: call.Name}
		}
		expanded, err := fn(d, call.Args, pending)
		if err != nil {
			return nil, fmt.Errorf("tx-function %s: %w", call.Name, err)
		}
		nested, err := expand(d, expanded, pending, registry, depthLeft-1)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// attrArg accepts either a datom.Attribute or a plain string as an
// attribute-name argument, so callers can pass either keyword strings or
// already-typed Attribute values.
func attrArg(v interface{}) (datom.Attribute, error) {
	switch a := v.(type) {
	case datom.Attribute:
		return a, nil
	case string:
		return datom.Attribute(a), nil
	default:
		return "", fmt.Errorf("expected an attribute name, got %T", v)
	}
}
