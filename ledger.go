// Package ledger is the public facade over the fact store: re-exporting
// the value/datom/db/schema/transactor/timetravel/pull/journal packages'
// core types and offering thin constructors so callers embedding the
// engine don't have to reach into internal/ directly.
package ledger

import (
	"context"
	"time"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/journal"
	"github.com/nathanial/ledger-sub001/internal/op"
	"github.com/nathanial/ledger-sub001/internal/pull"
	"github.com/nathanial/ledger-sub001/internal/schema"
	"github.com/nathanial/ledger-sub001/internal/timetravel"
	"github.com/nathanial/ledger-sub001/internal/transactor"
	"github.com/nathanial/ledger-sub001/internal/txfn"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Core value and fact types.
type (
	Value         = value.Value
	Kind          = value.Kind
	EntityId      = value.EntityId
	Datom         = datom.Datom
	Attribute     = datom.Attribute
	TxId          = datom.TxId
	Operation     = op.Operation
	Add           = op.Add
	Retract       = op.Retract
	Call          = op.Call
	RetractEntity = op.RetractEntity
	Ref           = op.Ref
	LookupRef     = op.LookupRef
)

// Entity-ref constructors for RetractEntity.
var (
	ById     = op.ById
	ByLookup = op.ByLookup
)

// Value constructors, re-exported for callers that never need internal/value directly.
var (
	OfInt     = value.OfInt
	OfFloat   = value.OfFloat
	OfString  = value.OfString
	OfBool    = value.OfBool
	OfInstant = value.OfInstant
	OfRef     = value.OfRef
	OfKeyword = value.OfKeyword
	OfBytes   = value.OfBytes
)

// Schema types and constructors.
type (
	Schema          = schema.Schema
	AttributeSchema = schema.AttributeSchema
	ValueType       = schema.ValueType
	Cardinality     = schema.Cardinality
	Unique          = schema.Unique
)

const (
	TypeInt     = schema.TypeInt
	TypeFloat   = schema.TypeFloat
	TypeString  = schema.TypeString
	TypeBool    = schema.TypeBool
	TypeInstant = schema.TypeInstant
	TypeRef     = schema.TypeRef
	TypeKeyword = schema.TypeKeyword
	TypeBytes   = schema.TypeBytes

	CardinalityOne  = schema.CardinalityOne
	CardinalityMany = schema.CardinalityMany

	UniqueNone     = schema.UniqueNone
	UniqueIdentity = schema.UniqueIdentity
	UniqueValue    = schema.UniqueValue
)

// LoadSchemaYAML loads an attribute schema from a YAML declaration file.
func LoadSchemaYAML(path string) (Schema, error) { return schema.LoadYAML(path) }

// Db is an immutable snapshot of the fact store.
type Db = db.Db

// Genesis returns the empty database.
func Genesis() Db { return db.Genesis() }

// TxFuncRegistry holds user-registered transaction functions available to
// :db/call operations.
type TxFuncRegistry = txfn.Registry

// NewTxFuncRegistry returns a registry pre-populated with the built-in
// cas/retractAttr functions.
func NewTxFuncRegistry() *TxFuncRegistry { return txfn.Builtins() }

// TxReport describes the effect of a single transaction.
type TxReport = transactor.Report

// TxOptions tunes transactor behavior (tx-function expansion depth, etc).
type TxOptions = transactor.Options

// Transact applies ops against d, returning the resulting Db and a report
// of exactly what was asserted and retracted.
func Transact(ctx context.Context, d Db, ops []Operation, instant time.Time, registry *TxFuncRegistry, opts TxOptions) (Db, TxReport, error) {
	return transactor.Transact(ctx, d, ops, instant, registry, opts)
}

// Connection is an append-only, thread-safe log of committed Db snapshots
// supporting time-travel queries (asOf/since/history).
//
// Since returns a reconstructed Db holding only the later transactions'
// effects; SinceDatoms returns spec.md §4.4's literal flat datom list for
// callers that want the raw tx-ordered change feed instead.
type Connection = timetravel.Connection

// NewConnection returns a Connection starting from Genesis.
func NewConnection() *Connection { return timetravel.NewConnection() }

// Pull pattern vocabulary and executor.
type (
	Pattern      = pull.Pattern
	PullExecutor = pull.Executor
)

var (
	PullAttr        = pull.Attr
	PullWildcard    = pull.Wildcard
	PullNested      = pull.Nested
	PullReverse     = pull.Reverse
	PullLimited     = pull.Limited
	PullWithDefault = pull.WithDefault
)

// NewPullExecutor returns a pull Executor over d with default recursion
// and fan-out limits.
func NewPullExecutor(d Db) *PullExecutor { return pull.New(d) }

// Journal persists committed transactions durably to disk.
type (
	Journal        = journal.Journal
	JournalOptions = journal.Options
)

// OpenJournal opens (creating if absent) a journal directory.
func OpenJournal(dir string, opts JournalOptions) (*Journal, error) { return journal.Open(dir, opts) }

// RecoverJournal reconstructs a Db from a journal directory's snapshot
// (if any) plus every transaction committed after it.
func RecoverJournal(dir string) (Db, error) { return journal.Recover(dir) }

// LoadJournalOptions reads journal tuning options from a TOML file.
func LoadJournalOptions(path string) (JournalOptions, error) { return journal.LoadOptions(path) }
