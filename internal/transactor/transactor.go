// Package transactor implements the single pure entry point that turns a
// batch of declarative operations into a new, immutable Db: tx-function
// expansion, retract-entity expansion, schema validation, and apply
// (spec.md §4.3). Transact never mutates its input Db; every concurrent
// reader holding the old value keeps seeing a perfectly consistent
// snapshot once a new one is built.
package transactor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/telemetry"
	"github.com/nathanial/ledger-sub001/internal/txfn"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Options tunes the transactor's bounded-recursion limits.
type Options struct {
	// MaxTxFnDepth bounds tx-function expansion recursion (spec.md §4.3
	// step 1). Zero means DefaultMaxTxFnDepth.
	MaxTxFnDepth int
}

// DefaultMaxTxFnDepth is the depth limit applied when Options.MaxTxFnDepth
// is unset.
const DefaultMaxTxFnDepth = 32

func (o Options) maxDepth() int {
	if o.MaxTxFnDepth <= 0 {
		return DefaultMaxTxFnDepth
	}
	return o.MaxTxFnDepth
}

// Report summarizes the effect of one successful transaction.
type Report struct {
	Db      db.Db
	Tx      datom.TxId
	Datoms  []datom.Datom
	TempIds map[value.EntityId]value.EntityId
}

var transactorTracer = telemetry.Tracer("transactor")

var transactorMetrics struct {
	txCount    metric.Int64Counter
	datomCount metric.Int64Histogram
}

func init() {
	m := telemetry.Meter("transactor")
	transactorMetrics.txCount, _ = m.Int64Counter("factdb.tx.count",
		metric.WithDescription("Transactions committed"),
		metric.WithUnit("{tx}"),
	)
	transactorMetrics.datomCount, _ = m.Int64Histogram("factdb.tx.datoms",
		metric.WithDescription("Datoms produced per committed transaction"),
		metric.WithUnit("{datom}"),
	)
}

// Transact expands, validates, and applies ops against d, producing a new
// Db and a Report, or an error with d left entirely unaffected. instant is
// stamped on the transaction entity as :db/txInstant (spec.md §3).
func Transact(ctx context.Context, d db.Db, ops []op.Operation, instant time.Time, registry *txfn.Registry, opts Options) (db.Db, Report, error) {
	ctx, span := transactorTracer.Start(ctx, "transactor.transact",
		trace.WithAttributes(attribute.Int("factdb.tx.op_count", len(ops))),
	)
	defer span.End()

	newDb, report, err := transact(ctx, d, ops, instant, registry, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Db{}, Report{}, err
	}

	transactorMetrics.txCount.Add(ctx, 1)
	transactorMetrics.datomCount.Record(ctx, int64(len(report.Datoms)))
	span.SetAttributes(
		attribute.Int64("factdb.tx.id", int64(report.Tx)),
		attribute.Int("factdb.tx.datom_count", len(report.Datoms)),
	)
	return newDb, report, nil
}

func transact(ctx context.Context, d db.Db, ops []op.Operation, instant time.Time, registry *txfn.Registry, opts Options) (db.Db, Report, error) {
	if registry == nil {
		registry = txfn.NewRegistry()
	}

	// Step 1: expand tx-functions into a Call-free operation list.
	expanded, err := txfn.Expand(d, ops, registry, opts.maxDepth())
	if err != nil {
		return db.Db{}, Report{}, fmt.Errorf("transact: %w", err)
	}

	// Step 2: expand retractEntity operations (component cascade + inbound
	// reference retraction), resolving Ref/LookupRef along the way.
	expanded, err = expandRetractEntities(d, expanded)
	if err != nil {
		return db.Db{}, Report{}, fmt.Errorf("transact: %w", err)
	}

	b := d.NewBuilder()
	tx := d.BasisT.Next()
	b.SetTx(tx)

	// Step 3: resolve temporary entity ids to permanent ones, deterministically
	// in first-occurrence order.
	expanded, tempIds := resolveTempIds(b, expanded)

	// Step 4: validate against schema, if one is attached.
	if d.SchemaConfig != nil {
		if err := validate(d, expanded); err != nil {
			return db.Db{}, Report{}, fmt.Errorf("transact: %w", err)
		}
	}

	// Step 5: apply in order, then stamp the transaction entity itself.
	produced := make([]datom.Datom, 0, len(expanded)+1)
	for _, o := range expanded {
		switch v := o.(type) {
		case op.Add:
			b.BumpNextEntityId(v.E)
			produced = append(produced, b.Assert(v.E, v.A, v.V))
		case op.Retract:
			b.BumpNextEntityId(v.E)
			retD, err := b.Retract(v.E, v.A, v.V)
			if err != nil {
				return db.Db{}, Report{}, fmt.Errorf("transact: %w", err)
			}
			produced = append(produced, retD)
		default:
			return db.Db{}, Report{}, fmt.Errorf("transact: unexpected operation %T after expansion", o)
		}
	}
	// The transaction entity takes the next id from the entity counter, which
	// the loop above has raised past every entity this transaction wrote, so
	// :db/txInstant is never stamped onto one of them.
	txEntity := b.AllocEntityId()
	produced = append(produced, b.Assert(txEntity, datom.AttrTxInstant, value.OfInstant(instant)))

	newDb := b.Build()
	return newDb, Report{Db: newDb, Tx: tx, Datoms: produced, TempIds: tempIds}, nil
}
