// Package nameindex implements NameIndex (spec §4.D): a reverse map from
// interned Name to a compact, sorted, duplicate-free set of slab indices,
// plus the segment-candidate resolution QueryEvaluator relies on for
// pushdown (spec §4.H.1).
package nameindex

import (
	"sort"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/slab"
)

// SortedIndices is a compact, sorted, duplicate-free sequence of slab
// indices. It is backed by a red-black tree (github.com/emirpasic/gods),
// giving true O(log n) Insert/Remove rather than the O(n) shifts a plain
// sorted slice would need.
type SortedIndices struct {
	tree *treeset.Set
}

func newSortedIndices() *SortedIndices {
	return &SortedIndices{tree: treeset.NewWith(indexComparator)}
}

func indexComparator(a, b interface{}) int {
	return utils.IntComparator(int(a.(slab.Idx)), int(b.(slab.Idx)))
}

// Insert adds idx if not already present.
func (s *SortedIndices) Insert(idx slab.Idx) { s.tree.Add(idx) }

// Remove drops idx if present.
func (s *SortedIndices) Remove(idx slab.Idx) { s.tree.Remove(idx) }

// Len returns the number of indices.
func (s *SortedIndices) Len() int { return s.tree.Size() }

// Iter returns the indices in ascending order.
func (s *SortedIndices) Iter() []slab.Idx {
	values := s.tree.Values()
	out := make([]slab.Idx, len(values))
	for i, v := range values {
		out[i] = v.(slab.Idx)
	}
	return out
}

// Contains reports whether idx is present.
func (s *SortedIndices) Contains(idx slab.Idx) bool {
	return s.tree.Contains(idx)
}

// Intersect returns the ascending intersection of a and b, each assumed
// already sorted (as produced by Iter) — used by candidates_for_segments to
// intersect per-segment candidate sets (spec §4.D rationale: "intersections
// of sorted sequences run in linear time").
func Intersect(a, b []slab.Idx) []slab.Idx {
	out := make([]slab.Idx, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Index is the Name -> SortedIndices reverse map.
type Index struct {
	buckets map[namepool.Name]*SortedIndices
}

// New creates an empty Index.
func New() *Index {
	return &Index{buckets: make(map[namepool.Name]*SortedIndices)}
}

// Add records that name's bucket includes idx, creating the bucket if
// absent (spec §4.D).
func (ix *Index) Add(name namepool.Name, idx slab.Idx) {
	b, ok := ix.buckets[name]
	if !ok {
		b = newSortedIndices()
		ix.buckets[name] = b
	}
	b.Insert(idx)
}

// Remove drops idx from name's bucket, dropping the bucket entirely once
// it becomes empty.
func (ix *Index) Remove(name namepool.Name, idx slab.Idx) {
	b, ok := ix.buckets[name]
	if !ok {
		return
	}
	b.Remove(idx)
	if b.Len() == 0 {
		delete(ix.buckets, name)
	}
}

// Lookup returns the bucket for name, or nil if name has no occupied
// slots.
func (ix *Index) Lookup(name namepool.Name) *SortedIndices {
	return ix.buckets[name]
}

// Len returns the number of distinct names with at least one slab index.
func (ix *Index) Len() int { return len(ix.buckets) }

// Buckets returns a snapshot of name -> ascending index list, used by the
// persistence codec (spec §6.2).
func (ix *Index) Buckets() map[namepool.Name][]slab.Idx {
	out := make(map[namepool.Name][]slab.Idx, len(ix.buckets))
	for name, b := range ix.buckets {
		out[name] = b.Iter()
	}
	return out
}

// Load rebuilds an Index from a name -> indices snapshot (persistence load
// path).
func Load(buckets map[namepool.Name][]slab.Idx) *Index {
	ix := New()
	for name, indices := range buckets {
		b := newSortedIndices()
		for _, idx := range indices {
			b.Insert(idx)
		}
		ix.buckets[name] = b
	}
	return ix
}

// SegmentMatcher resolves a single path-segment constraint (prefix/suffix/
// exact/substring/regex) to the set of Names satisfying it. QueryEvaluator
// supplies one of these per parsed segment/filter (spec §4.G "token
// matching inside paths").
type SegmentMatcher func(pool *namepool.Pool, tok cancel.Token) (map[namepool.Name]struct{}, bool)

// CandidatesForSegments resolves each matcher to a Name set via pool, unions
// the slab indices per Name, then intersects the per-segment index sets
// smallest-first (spec §4.D, §4.H.1). Returns ok=false on cancellation.
func (ix *Index) CandidatesForSegments(pool *namepool.Pool, matchers []SegmentMatcher, tok cancel.Token) ([]slab.Idx, bool) {
	if len(matchers) == 0 {
		return nil, true
	}

	perSegment := make([][]slab.Idx, 0, len(matchers))
	for _, m := range matchers {
		names, ok := m(pool, tok)
		if !ok {
			return nil, false
		}
		var indices []slab.Idx
		for name := range names {
			if tok.Sparse() {
				return nil, false
			}
			if b, ok := ix.buckets[name]; ok {
				indices = append(indices, b.Iter()...)
			}
		}
		indices = sortUnique(indices)
		perSegment = append(perSegment, indices)
	}

	// Intersect smallest-first (spec rationale): sort the segment result
	// sets by size, fold left.
	sortBySize(perSegment)
	result := perSegment[0]
	for _, next := range perSegment[1:] {
		if tok.Sparse() {
			return nil, false
		}
		result = Intersect(result, next)
	}
	return result, true
}

func sortUnique(idxs []slab.Idx) []slab.Idx {
	if len(idxs) < 2 {
		return idxs
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	out := idxs[:1]
	for _, v := range idxs[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func sortBySize(sets [][]slab.Idx) {
	sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })
}
