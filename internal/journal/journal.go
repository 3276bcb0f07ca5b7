// Package journal implements durable persistence for the fact store: an
// append-only JSONL transaction log, a snapshot file, crash
// recovery by replay, and compaction (spec.md §4.7). Value encoding
// mirrors internal/jsonl (hand-rolled encoding/json plus bufio, not a
// third-party JSON library — see DESIGN.md); retry and telemetry wiring
// mirrors internal/storage/dolt/store.go's
// withRetry/doltTracer/doltMetrics pattern.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/telemetry"
)

const (
	journalFileName  = "journal.jsonl"
	snapshotFileName = "snapshot.json"
)

var journalTracer = telemetry.Tracer("journal")

var journalMetrics struct {
	appendMs   metric.Float64Histogram
	retryCount metric.Int64Counter
}

func init() {
	m := telemetry.Meter("journal")
	journalMetrics.appendMs, _ = m.Float64Histogram("factdb.journal.append_ms",
		metric.WithDescription("Time spent appending one transaction to the journal"),
		metric.WithUnit("ms"),
	)
	journalMetrics.retryCount, _ = m.Int64Counter("factdb.journal.retry_count",
		metric.WithDescription("Journal append/flush operations retried due to transient I/O errors"),
		metric.WithUnit("{retry}"),
	)
}

// Journal persists a sequence of committed transactions to a directory:
// journal.jsonl (append-only) plus an optional snapshot.json written by
// Snapshot and Compact. Append writes no snapshot itself; once
// SnapshotIntervalTx transactions have accumulated it only adds a
// "snapshot_due" event to its span.
type Journal struct {
	mu   sync.Mutex
	dir  string
	opts Options
	file *os.File
	w    *bufio.Writer

	txSinceSnapshot int
}

// Open opens (creating if absent) the journal directory dir and its
// journal file for appending.
func Open(dir string, opts Options) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, journalFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open journal file: %w", err)
	}
	return &Journal{dir: dir, opts: opts.withDefaults(), file: f, w: bufio.NewWriter(f)}, nil
}

// Close flushes and closes the underlying journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		return fmt.Errorf("journal: flush on close: %w", err)
	}
	return j.file.Close()
}

// Append durably records one committed transaction. It retries transient
// I/O failures (e.g. ENOSPC clearing up, a brief NFS hiccup) with the same
// exponential-backoff policy the server-mode Dolt store applies to
// transient SQL connection errors.
func (j *Journal) Append(ctx context.Context, tx datom.TxId, instant time.Time, datoms []datom.Datom) error {
	ctx, span := journalTracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.Int64("factdb.tx.id", int64(tx)),
			attribute.Int("factdb.tx.datom_count", len(datoms)),
		),
	)
	defer span.End()

	start := time.Now()
	line := txLine{Tx: uint64(tx), Instant: instant.UnixNano()}
	line.Datoms = make([]wireDatom, len(datoms))
	for i, d := range datoms {
		line.Datoms[i] = encodeDatom(d)
	}
	encoded, err := json.Marshal(line)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("journal: marshal tx %d: %w", tx, err)
	}

	err = j.withRetry(ctx, func() error {
		j.mu.Lock()
		defer j.mu.Unlock()
		if _, err := j.w.Write(encoded); err != nil {
			return err
		}
		if err := j.w.WriteByte('\n'); err != nil {
			return err
		}
		return j.w.Flush()
	})
	journalMetrics.appendMs.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("journal: append tx %d: %w", tx, err)
	}

	j.mu.Lock()
	j.txSinceSnapshot++
	shouldSnapshot := j.txSinceSnapshot >= j.opts.SnapshotIntervalTx
	j.mu.Unlock()
	if shouldSnapshot {
		span.AddEvent("snapshot_due")
	}
	return nil
}

// withRetry runs op, retrying transient I/O errors under an exponential
// backoff bounded by opts.RetryMaxElapsed. Most filesystem errors are
// permanent (ENOENT, EACCES); only a narrow set is treated as retryable.
func (j *Journal) withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = j.opts.RetryMaxElapsed
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err != nil && isRetryableIOError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if attempts > 1 {
		journalMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}

func isRetryableIOError(err error) bool {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	switch pathErr.Err.Error() {
	case "no space left on device", "resource temporarily unavailable", "interrupted system call":
		return true
	default:
		return false
	}
}
