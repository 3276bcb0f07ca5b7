package journal

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Options tunes persistence behavior: how often a snapshot is due, plus
// the recursion bounds loaded from the same options file for callers to pass
// to the transactor and pull executor (spec.md §6's persistence options
// file). The journal itself does not use the recursion bounds.
type Options struct {
	// SnapshotIntervalTx is how many transactions accumulate in the
	// journal before a snapshot is due. Zero means DefaultSnapshotIntervalTx.
	SnapshotIntervalTx int `toml:"snapshot_interval_tx"`
	// MaxTxFnDepth is loaded for callers to pass as the transactor's
	// Options.MaxTxFnDepth; Recover does not apply it.
	MaxTxFnDepth int `toml:"max_txfn_depth"`
	// MaxPullDepth is loaded for callers to pass to the pull executor;
	// Recover does not apply it.
	MaxPullDepth int `toml:"max_pull_depth"`
	// RetryMaxElapsed bounds how long Append retries a transient I/O
	// failure before giving up.
	RetryMaxElapsed time.Duration `toml:"-"`
}

// DefaultSnapshotIntervalTx is applied when Options.SnapshotIntervalTx is
// unset.
const DefaultSnapshotIntervalTx = 1000

// DefaultRetryMaxElapsed bounds Append's retry loop when
// Options.RetryMaxElapsed is unset.
const DefaultRetryMaxElapsed = 10 * time.Second

func (o Options) withDefaults() Options {
	out := o
	if out.SnapshotIntervalTx <= 0 {
		out.SnapshotIntervalTx = DefaultSnapshotIntervalTx
	}
	if out.RetryMaxElapsed <= 0 {
		out.RetryMaxElapsed = DefaultRetryMaxElapsed
	}
	return out
}

// tomlOptions mirrors Options' TOML-addressable fields plus a
// seconds-denominated retry elapsed bound, since time.Duration doesn't
// round-trip through TOML without an explicit unit.
type tomlOptions struct {
	SnapshotIntervalTx int     `toml:"snapshot_interval_tx"`
	MaxTxFnDepth       int     `toml:"max_txfn_depth"`
	MaxPullDepth       int     `toml:"max_pull_depth"`
	RetryMaxElapsedSec float64 `toml:"retry_max_elapsed_seconds"`
}

// LoadOptions reads a persistence options file in TOML, using the stack's
// github.com/BurntSushi/toml dependency for the tuning file, distinct from
// the viper-based YAML schema loader in internal/schema.
func LoadOptions(path string) (Options, error) {
	var t tomlOptions
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return Options{}, fmt.Errorf("journal: load options %s: %w", path, err)
	}
	opts := Options{
		SnapshotIntervalTx: t.SnapshotIntervalTx,
		MaxTxFnDepth:       t.MaxTxFnDepth,
		MaxPullDepth:       t.MaxPullDepth,
	}
	if t.RetryMaxElapsedSec > 0 {
		opts.RetryMaxElapsed = time.Duration(t.RetryMaxElapsedSec * float64(time.Second))
	}
	return opts.withDefaults(), nil
}
