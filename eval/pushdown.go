package eval

import (
	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/nameindex"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/query"
	"github.com/fastfind/engine/slab"
)

// pushdownUniverse computes the starting candidate set (spec §4.H.1):
// every non-negated, top-level-AND'd leaf that reduces to a NamePool query
// is resolved through NameIndex and intersected; everything else (anything
// under an Or or a Not, or a leaf NameIndex can't help with) falls back to
// the full occupied set. Returns ok=false if cancelled.
func pushdownUniverse(expr query.Expr, ctx Context, opts query.Options, tok cancel.Token) ([]slab.Idx, bool) {
	var leaves []query.Expr
	collectAndLeaves(expr, &leaves)

	var matchers []nameindex.SegmentMatcher
	for _, leaf := range leaves {
		if m, ok := segmentMatcher(leaf, opts); ok {
			matchers = append(matchers, m)
		}
	}
	if len(matchers) == 0 {
		return allOccupied(ctx.Slab), true
	}

	candidates, ok := ctx.Index.CandidatesForSegments(ctx.Pool, matchers, tok)
	if !ok {
		return nil, false
	}
	return candidates, true
}

// collectAndLeaves walks down through And nodes only, collecting everything
// else as an opaque leaf — an Or or Not subtree is never decomposed, since
// a constraint inside one isn't unconditionally required by the whole
// expression.
func collectAndLeaves(expr query.Expr, out *[]query.Expr) {
	if and, ok := expr.(*query.And); ok {
		collectAndLeaves(and.Left, out)
		collectAndLeaves(and.Right, out)
		return
	}
	*out = append(*out, expr)
}

// segmentMatcher returns a NameIndex segment matcher for leaf if its
// constraint reduces cleanly to "which interned names satisfy this",
// and ok=false if it doesn't (eval falls back to per-node evaluation).
func segmentMatcher(leaf query.Expr, opts query.Options) (nameindex.SegmentMatcher, bool) {
	switch v := leaf.(type) {
	case *query.PathToken:
		if len(v.Segments) != 1 {
			return nil, false
		}
		seg := v.Segments[0]
		if seg.Wildcard || seg.Kind == query.SegGlobstar {
			return nil, false
		}
		cs := opts.CaseSensitive
		switch seg.Kind {
		case query.SegSubstring:
			return func(pool *namepool.Pool, tok cancel.Token) (map[namepool.Name]struct{}, bool) {
				return pool.SearchSubstr(seg.Text, cs, tok)
			}, true
		case query.SegPrefix:
			return func(pool *namepool.Pool, tok cancel.Token) (map[namepool.Name]struct{}, bool) {
				return pool.SearchPrefix(seg.Text, cs, tok)
			}, true
		case query.SegSuffix:
			return func(pool *namepool.Pool, tok cancel.Token) (map[namepool.Name]struct{}, bool) {
				return pool.SearchSuffix(seg.Text, cs, tok)
			}, true
		case query.SegExact:
			return func(pool *namepool.Pool, tok cancel.Token) (map[namepool.Name]struct{}, bool) {
				return pool.SearchExact(seg.Text, cs, tok)
			}, true
		}
		return nil, false

	case *query.Filter:
		if (v.Kind != "ext" && v.Kind != "type") || len(v.Exts) == 0 {
			return nil, false
		}
		exts := v.Exts
		return func(pool *namepool.Pool, tok cancel.Token) (map[namepool.Name]struct{}, bool) {
			out := make(map[namepool.Name]struct{})
			for _, ext := range exts {
				// extension matching is case-insensitive, as in per-node evaluation
				names, ok := pool.SearchSuffix("."+ext, false, tok)
				if !ok {
					return nil, false
				}
				for n := range names {
					out[n] = struct{}{}
				}
			}
			return out, true
		}, true
	}
	return nil, false
}
