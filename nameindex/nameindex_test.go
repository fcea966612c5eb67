package nameindex

import (
	"testing"

	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/slab"
	"github.com/stretchr/testify/assert"
)

func TestAddRemoveLookup(t *testing.T) {
	pool := namepool.New()
	ix := New()
	name := pool.Intern("alpha.txt")

	ix.Add(name, 3)
	ix.Add(name, 1)
	ix.Add(name, 2)

	b := ix.Lookup(name)
	assert.Equal(t, []slab.Idx{1, 2, 3}, b.Iter())

	ix.Remove(name, 2)
	assert.Equal(t, []slab.Idx{1, 3}, ix.Lookup(name).Iter())

	ix.Remove(name, 1)
	ix.Remove(name, 3)
	assert.Nil(t, ix.Lookup(name), "bucket should be dropped once empty")
}

func TestIntersect(t *testing.T) {
	a := []slab.Idx{1, 2, 3, 5, 8}
	b := []slab.Idx{2, 3, 8, 9}
	assert.Equal(t, []slab.Idx{2, 3, 8}, Intersect(a, b))
	assert.Empty(t, Intersect(a, []slab.Idx{100}))
}

func TestBucketsRoundTrip(t *testing.T) {
	pool := namepool.New()
	ix := New()
	n1 := pool.Intern("a")
	n2 := pool.Intern("b")
	ix.Add(n1, 0)
	ix.Add(n1, 1)
	ix.Add(n2, 5)

	snap := ix.Buckets()
	loaded := Load(snap)

	assert.Equal(t, ix.Lookup(n1).Iter(), loaded.Lookup(n1).Iter())
	assert.Equal(t, ix.Lookup(n2).Iter(), loaded.Lookup(n2).Iter())
}

func TestCandidatesForSegmentsIntersectsAcrossSegments(t *testing.T) {
	pool := namepool.New()
	ix := New()

	alpha := pool.Intern("alpha.txt")
	beta := pool.Intern("beta.txt")

	ix.Add(alpha, 10)
	ix.Add(beta, 10) // same file, two segments both match this index
	ix.Add(beta, 20) // only matches the second segment

	matchAlpha := func(pool *namepool.Pool, tok cancel.Token) (map[namepool.Name]struct{}, bool) {
		return pool.SearchExact("alpha.txt", true, tok)
	}
	matchBeta := func(pool *namepool.Pool, tok cancel.Token) (map[namepool.Name]struct{}, bool) {
		return pool.SearchExact("beta.txt", true, tok)
	}

	got, ok := ix.CandidatesForSegments(pool, []SegmentMatcher{matchAlpha, matchBeta}, cancel.Noop())
	assert.True(t, ok)
	assert.Equal(t, []slab.Idx{10}, got)
}

func TestCandidatesForSegmentsEmpty(t *testing.T) {
	pool := namepool.New()
	ix := New()
	got, ok := ix.CandidatesForSegments(pool, nil, cancel.Noop())
	assert.True(t, ok)
	assert.Nil(t, got)
}
