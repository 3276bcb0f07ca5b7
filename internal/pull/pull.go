// Package pull implements the declarative hierarchical projection executor
// (spec.md §4.6): a Pattern tree describing which attributes (and nested
// attributes, reached across entity references) to pull for an entity,
// executed with cycle detection and a depth bound.
package pull

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/db"
	"github.com/nathanial/ledger-sub001/internal/schema"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// Kind discriminates the shape of a pull Pattern entry.
type Kind int

const (
	// KindAttr pulls a single (possibly cardinality-many) attribute's
	// current value(s) as a scalar or list.
	KindAttr Kind = iota
	// KindWildcard pulls every current attribute of the entity.
	KindWildcard
	// KindNested pulls a ref-valued attribute's target entity (or
	// entities, if cardinality-many) recursively via Nested patterns.
	KindNested
	// KindReverse pulls the entities that reference this entity via Attr,
	// recursively via Nested patterns — the inverse of KindNested.
	KindReverse
	// KindLimited caps a cardinality-many KindAttr/KindNested/KindReverse
	// result to at most Limit entries.
	KindLimited
	// KindWithDefault substitutes Default when the attribute has no
	// current value for the entity.
	KindWithDefault
)

// Pattern is one entry of a pull request.
type Pattern struct {
	Kind    Kind
	Attr    datom.Attribute
	Nested  []Pattern
	Limit   int
	Default value.Value
	Inner   *Pattern // wrapped pattern for KindLimited/KindWithDefault
}

// Attr builds a plain attribute pattern.
func Attr(a datom.Attribute) Pattern { return Pattern{Kind: KindAttr, Attr: a} }

// Wildcard builds a wildcard pattern.
func Wildcard() Pattern { return Pattern{Kind: KindWildcard} }

// Nested builds a nested-ref pattern.
func Nested(a datom.Attribute, nested ...Pattern) Pattern {
	return Pattern{Kind: KindNested, Attr: a, Nested: nested}
}

// Reverse builds a reverse-ref pattern.
func Reverse(a datom.Attribute, nested ...Pattern) Pattern {
	return Pattern{Kind: KindReverse, Attr: a, Nested: nested}
}

// Limited wraps inner with a cardinality cap.
func Limited(limit int, inner Pattern) Pattern {
	return Pattern{Kind: KindLimited, Limit: limit, Inner: &inner}
}

// WithDefault wraps inner with a fallback value used when the attribute is
// absent.
func WithDefault(def value.Value, inner Pattern) Pattern {
	return Pattern{Kind: KindWithDefault, Default: def, Inner: &inner}
}

// DefaultMaxDepth bounds recursion when Executor.MaxDepth is unset.
const DefaultMaxDepth = 16

// DefaultFanoutLimit bounds concurrent sibling-branch fan-out when
// Executor.FanoutLimit is unset.
const DefaultFanoutLimit = 8

// Executor runs Pull requests against a fixed Db snapshot.
type Executor struct {
	Db          db.Db
	MaxDepth    int
	FanoutLimit int
}

// New returns an Executor reading from d with the default depth and
// fan-out limits.
func New(d db.Db) *Executor {
	return &Executor{Db: d, MaxDepth: DefaultMaxDepth, FanoutLimit: DefaultFanoutLimit}
}

func (ex *Executor) maxDepth() int {
	if ex.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return ex.MaxDepth
}

func (ex *Executor) fanoutLimit() int {
	if ex.FanoutLimit <= 0 {
		return DefaultFanoutLimit
	}
	return ex.FanoutLimit
}

// Pull projects entity e through patterns into a generic attribute-name to
// value map, suitable for JSON marshaling.
func (ex *Executor) Pull(ctx context.Context, e datom.EntityId, patterns []Pattern) (map[string]interface{}, error) {
	return ex.pullEntity(ctx, e, patterns, 0, map[datom.EntityId]bool{})
}

func (ex *Executor) pullEntity(ctx context.Context, e datom.EntityId, patterns []Pattern, depth int, ancestry map[datom.EntityId]bool) (map[string]interface{}, error) {
	if ancestry[e] {
		// A reference cycle closes back on an entity already on this
		// pull's ancestry path; stop descending into it instead of
		// looping forever, returning just its id.
		return map[string]interface{}{":db/id": e}, nil
	}
	childAncestry := make(map[datom.EntityId]bool, len(ancestry)+1)
	for k := range ancestry {
		childAncestry[k] = true
	}
	childAncestry[e] = true

	out := make(map[string]interface{}, len(patterns)+1)
	out[":db/id"] = e

	results := make([]patternResult, len(patterns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ex.fanoutLimit())
	for i, p := range patterns {
		i, p := i, p
		g.Go(func() error {
			r, err := ex.evalPattern(gctx, e, p, depth, childAncestry)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.skip {
			continue
		}
		out[r.key] = r.value
	}
	return out, nil
}

type patternResult struct {
	key   string
	value interface{}
	skip  bool
}

func (ex *Executor) evalPattern(ctx context.Context, e datom.EntityId, p Pattern, depth int, ancestry map[datom.EntityId]bool) (patternResult, error) {
	switch p.Kind {
	case KindAttr:
		return ex.evalAttr(e, p.Attr)
	case KindWildcard:
		return ex.evalWildcard(e)
	case KindNested:
		return ex.evalNested(ctx, e, p, depth, ancestry, false)
	case KindReverse:
		return ex.evalNested(ctx, e, p, depth, ancestry, true)
	case KindLimited:
		r, err := ex.evalPattern(ctx, e, *p.Inner, depth, ancestry)
		if err != nil {
			return patternResult{}, err
		}
		if list, ok := r.value.([]interface{}); ok && len(list) > p.Limit {
			r.value = list[:p.Limit]
		}
		return r, nil
	case KindWithDefault:
		r, err := ex.evalPattern(ctx, e, *p.Inner, depth, ancestry)
		if err != nil {
			return patternResult{}, err
		}
		if r.skip {
			r.skip = false
			r.key = string(p.Inner.Attr)
			r.value = scalarOf(p.Default)
		}
		return r, nil
	default:
		return patternResult{}, fmt.Errorf("pull: unknown pattern kind %d", p.Kind)
	}
}

func (ex *Executor) evalAttr(e datom.EntityId, a datom.Attribute) (patternResult, error) {
	datoms := ex.Db.Get(e, a)
	if len(datoms) == 0 {
		return patternResult{skip: true}, nil
	}
	if isCardinalityMany(ex.Db, a) {
		list := make([]interface{}, len(datoms))
		for i, d := range datoms {
			list[i] = scalarOf(d.V)
		}
		return patternResult{key: string(a), value: list}, nil
	}
	return patternResult{key: string(a), value: scalarOf(datoms[0].V)}, nil
}

func (ex *Executor) evalWildcard(e datom.EntityId) (patternResult, error) {
	out := make(map[string]interface{})
	for _, a := range attrSetOf(ex.Db, e) {
		r, err := ex.evalAttr(e, a)
		if err != nil {
			return patternResult{}, err
		}
		if !r.skip {
			out[r.key] = r.value
		}
	}
	return patternResult{key: "*", value: out}, nil
}

func attrSetOf(d db.Db, e datom.EntityId) []datom.Attribute {
	seen := make(map[datom.Attribute]bool)
	var out []datom.Attribute
	for _, dd := range d.Entity(e) {
		if !seen[dd.A] {
			seen[dd.A] = true
			out = append(out, dd.A)
		}
	}
	return out
}

// evalNested pulls the entities a ref attribute (KindNested) or its
// reverse (KindReverse) points to. Hitting the depth bound degrades each
// target to a plain ref — {":db/id": target} with no further
// recursion — exactly like the cycle-detection branch in pullEntity above
// degrades a re-entered ancestor; spec.md §4.6 treats both as the same
// "stop descending, don't error" case, never as a failure of the pull.
func (ex *Executor) evalNested(ctx context.Context, e datom.EntityId, p Pattern, depth int, ancestry map[datom.EntityId]bool, reverse bool) (patternResult, error) {
	var targets []datom.EntityId
	if reverse {
		targets = ex.Db.ReferencingViaAttr(e, p.Attr)
	} else {
		datoms := ex.Db.Get(e, p.Attr)
		for _, d := range datoms {
			if d.V.IsRef() {
				targets = append(targets, d.V.Ref())
			}
		}
	}
	if len(targets) == 0 {
		return patternResult{skip: true}, nil
	}

	results := make([]map[string]interface{}, len(targets))
	if depth+1 > ex.maxDepth() {
		for i, t := range targets {
			results[i] = map[string]interface{}{":db/id": t}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(ex.fanoutLimit())
		for i, t := range targets {
			i, t := i, t
			g.Go(func() error {
				sub, err := ex.pullEntity(gctx, t, p.Nested, depth+1, ancestry)
				if err != nil {
					return err
				}
				results[i] = sub
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return patternResult{}, err
		}
	}

	key := string(p.Attr)
	if reverse {
		key = "_" + key
	}
	many := reverse || isCardinalityMany(ex.Db, p.Attr)
	if !many && len(results) == 1 {
		return patternResult{key: key, value: results[0]}, nil
	}
	list := make([]interface{}, len(results))
	for i, r := range results {
		list[i] = r
	}
	return patternResult{key: key, value: list}, nil
}

func isCardinalityMany(d db.Db, a datom.Attribute) bool {
	if d.SchemaConfig == nil {
		return false
	}
	as, ok := d.SchemaConfig.Schema[a]
	return ok && as.Cardinality == schema.CardinalityMany
}

// scalarOf converts a value.Value into the plain-Go scalar used in pull
// output maps, so callers don't need to import the value package just to
// read pull results.
func scalarOf(v value.Value) interface{} {
	switch v.Kind() {
	case value.KindInt:
		return v.Int()
	case value.KindFloat:
		return v.Float()
	case value.KindString, value.KindKeyword:
		return v.Str()
	case value.KindBool:
		return v.Bool()
	case value.KindInstant:
		return v.Instant()
	case value.KindRef:
		return v.Ref()
	case value.KindBytes:
		return v.Bytes()
	default:
		return nil
	}
}
