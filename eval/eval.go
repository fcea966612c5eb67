// Package eval implements the QueryEvaluator (spec §4.H): it walks a parsed
// query.Expr bottom-up over the occupied slab, using NameIndex to push down
// whichever leaf constraints reduce cleanly to a NamePool query before
// falling back to per-node predicate checks for the rest.
package eval

import (
	"regexp"
	"sort"

	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/fserrors"
	"github.com/fastfind/engine/nameindex"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/query"
	"github.com/fastfind/engine/slab"
)

// TagLookup resolves the tags attached to a node, used by tag: filters.
type TagLookup func(idx slab.Idx) ([]string, bool)

// Backfill stats a node on demand and updates its Slab entry in place,
// returning false if the stat failed (node is left as-is). Used when a
// size:/dm:/dc: predicate needs metadata a fast (non-stat) walk didn't load.
type Backfill func(idx slab.Idx) bool

// Context bundles everything eval needs to resolve predicates against one
// cache's state.
type Context struct {
	Pool     *namepool.Pool
	Slab     *slab.Slab
	Index    *nameindex.Index
	PathOf   func(idx slab.Idx) string
	Tags     TagLookup
	Backfill Backfill
}

// Highlight is a matched byte range within a result's path.
type Highlight struct {
	Offset, Length int
}

// Outcome is the result of evaluating one query (spec §4.H: "SearchOutcome
// { nodes: Option<Vec<SlabIdx>>, highlights }").
type Outcome struct {
	Nodes      []slab.Idx
	Ok         bool // false iff the token was observed cancelled
	Highlights map[slab.Idx][]Highlight
}

// Evaluate runs expr against ctx, returning an error for syntactically
// valid but unsupported filters (spec §4.H edge case) or invalid regexes,
// and an Outcome with Ok=false if cancelled mid-evaluation.
func Evaluate(expr query.Expr, ctx Context, opts query.Options, tok cancel.Token) (*Outcome, error) {
	opts = opts.Resolve()

	if err := validate(expr); err != nil {
		return nil, err
	}

	universe, ok := pushdownUniverse(expr, ctx, opts, tok)
	if !ok {
		return &Outcome{Ok: false}, nil
	}

	e := &evaluator{ctx: ctx, opts: opts, tok: tok, highlights: make(map[slab.Idx][]Highlight)}
	result, ok := e.eval(expr, universe)
	if !ok {
		return &Outcome{Ok: false}, nil
	}

	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return &Outcome{Nodes: result, Ok: true, Highlights: e.highlights}, nil
}

type evaluator struct {
	ctx        Context
	opts       query.Options
	tok        cancel.Token
	highlights map[slab.Idx][]Highlight
}

// eval evaluates expr bottom-up, restricted to candidates (spec §4.H.4:
// "NOT is closed over the full candidate set, not the universe" — correct
// regardless of which consistent universe we thread through, since set
// difference distributes over intersection).
func (e *evaluator) eval(expr query.Expr, candidates []slab.Idx) ([]slab.Idx, bool) {
	switch v := expr.(type) {
	case *query.Empty:
		return candidates, true

	case *query.And:
		left, ok := e.eval(v.Left, candidates)
		if !ok {
			return nil, false
		}
		return e.eval(v.Right, left)

	case *query.Or:
		left, ok := e.eval(v.Left, candidates)
		if !ok {
			return nil, false
		}
		right, ok := e.eval(v.Right, candidates)
		if !ok {
			return nil, false
		}
		return union(left, right), true

	case *query.Not:
		inner, ok := e.eval(v.X, candidates)
		if !ok {
			return nil, false
		}
		return difference(candidates, inner), true

	case *query.PathToken:
		return e.filterCandidates(candidates, func(idx slab.Idx) bool {
			return e.matchPathToken(idx, v)
		})

	case *query.Filter:
		return e.evalFilter(v, candidates)
	}
	return nil, true
}

func (e *evaluator) filterCandidates(candidates []slab.Idx, pred func(slab.Idx) bool) ([]slab.Idx, bool) {
	out := make([]slab.Idx, 0, len(candidates))
	for _, idx := range candidates {
		if e.tok.Sparse() {
			return nil, false
		}
		if pred(idx) {
			out = append(out, idx)
		}
	}
	return out, true
}

func allOccupied(s *slab.Slab) []slab.Idx {
	out := make([]slab.Idx, 0, s.Len())
	s.IterOccupied(func(idx slab.Idx, _ *slab.FileNode) bool {
		out = append(out, idx)
		return true
	})
	return out
}

func union(a, b []slab.Idx) []slab.Idx {
	seen := make(map[slab.Idx]struct{}, len(a)+len(b))
	out := make([]slab.Idx, 0, len(a)+len(b))
	for _, idx := range a {
		if _, ok := seen[idx]; !ok {
			seen[idx] = struct{}{}
			out = append(out, idx)
		}
	}
	for _, idx := range b {
		if _, ok := seen[idx]; !ok {
			seen[idx] = struct{}{}
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func difference(universe, exclude []slab.Idx) []slab.Idx {
	excl := make(map[slab.Idx]struct{}, len(exclude))
	for _, idx := range exclude {
		excl[idx] = struct{}{}
	}
	out := make([]slab.Idx, 0, len(universe))
	for _, idx := range universe {
		if _, ok := excl[idx]; !ok {
			out = append(out, idx)
		}
	}
	return out
}

// validate walks the tree looking for unsupported-but-syntactically-valid
// filters before any evaluation work begins (spec §4.H: "mark the whole
// query as an error rather than silently matching everything").
func validate(expr query.Expr) error {
	switch v := expr.(type) {
	case *query.And:
		if err := validate(v.Left); err != nil {
			return err
		}
		return validate(v.Right)
	case *query.Or:
		if err := validate(v.Left); err != nil {
			return err
		}
		return validate(v.Right)
	case *query.Not:
		return validate(v.X)
	case *query.Filter:
		return validateFilter(v)
	}
	return nil
}

func validateFilter(f *query.Filter) error {
	switch f.Kind {
	case "file", "folder", "ext", "type", "parent", "infolder", "nosubfolders",
		"size", "content", "tag":
		return nil
	case "regex":
		if _, err := regexp.Compile(f.Regex); err != nil {
			return fserrors.Atf(fserrors.RegexInvalid, f.Pos, "regex: %s", err)
		}
		return nil
	case "dm", "dc":
		if f.Date.Op == query.DateKeyword && !query.KnownKeyword(f.Date.Keyword) {
			return fserrors.Atf(fserrors.UnsupportedFilter, f.Pos, "%s: unsupported keyword %q", f.Kind, f.Date.Keyword)
		}
		return nil
	default:
		return fserrors.Atf(fserrors.UnsupportedFilter, f.Pos, "unsupported filter %q", f.Kind)
	}
}
