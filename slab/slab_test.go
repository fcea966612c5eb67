package slab

import (
	"path/filepath"
	"testing"

	"github.com/fastfind/engine/namepool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGetRemove(t *testing.T) {
	s := New()
	pool := namepool.New()

	idx := s.Insert(FileNode{Name: pool.Intern("a.txt"), Parent: None, Kind: File})
	node, ok := s.Get(idx)
	require.True(t, ok)
	assert.Equal(t, File, node.Kind)
	assert.Equal(t, 1, s.Len())

	s.Remove(idx)
	_, ok = s.Get(idx)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestRemoveFreeSlotPanics(t *testing.T) {
	s := New()
	idx := s.Insert(FileNode{})
	s.Remove(idx)
	assert.Panics(t, func() { s.Remove(idx) })
}

func TestFreeListReuse(t *testing.T) {
	s := New()
	a := s.Insert(FileNode{Size: 1})
	b := s.Insert(FileNode{Size: 2})
	s.Remove(a)

	c := s.Insert(FileNode{Size: 3})
	assert.Equal(t, a, c, "freed slot should be reused before appending")
	assert.Equal(t, 2, s.Cap())

	node, _ := s.Get(b)
	assert.Equal(t, uint64(2), node.Size)
}

func TestIterOccupiedOrderAndEarlyStop(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Insert(FileNode{Size: uint64(i)})
	}
	var seen []Idx
	s.IterOccupied(func(idx Idx, n *FileNode) bool {
		seen = append(seen, idx)
		return n.Size < 2
	})
	assert.Equal(t, []Idx{0, 1, 2}, seen)
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	s := New()
	pool := namepool.New()
	a := s.Insert(FileNode{Name: pool.Intern("a"), Kind: Directory})
	b := s.Insert(FileNode{Name: pool.Intern("b"), Parent: a, Kind: File})
	s.Insert(FileNode{Name: pool.Intern("c"), Parent: a, Kind: File})
	s.Remove(b)

	snap := s.Snapshot()
	loaded := Load(snap)

	assert.Equal(t, s.Cap(), loaded.Cap())
	assert.Equal(t, s.Len(), loaded.Len())

	reused := loaded.Insert(FileNode{Name: pool.Intern("d"), Parent: a, Kind: File})
	assert.Equal(t, b, reused, "Load must reconstruct the free list so indices are stable")
}

func TestMmapStoreGrowAndPersist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slab.bin")

	store, err := OpenMmap(path, 4)
	require.NoError(t, err)
	require.NoError(t, store.WriteRecord(0, true, 7, None, None, None, File, 123, 1, 2, true))
	require.NoError(t, store.Sync())
	require.NoError(t, store.Close())

	store2, err := OpenMmap(path, 4)
	require.NoError(t, err)
	defer store2.Close()
	assert.GreaterOrEqual(t, store2.Capacity(), 4)

	require.NoError(t, store2.Grow(2000))
	assert.GreaterOrEqual(t, store2.Capacity(), 2000)
}

func TestMmapBackedSlabMirrorsMutations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slab.bin")
	pool := namepool.New()

	store, err := OpenMmap(path, 4)
	require.NoError(t, err)

	s, err := NewMmapBacked(store)
	require.NoError(t, err)

	a := s.Insert(FileNode{Name: pool.Intern("a"), Kind: Directory})
	b := s.Insert(FileNode{Name: pool.Intern("b"), Parent: a, Kind: File, Size: 5})
	s.Remove(b)
	require.NoError(t, store.Sync())
	require.NoError(t, store.Close())

	store2, err := OpenMmap(path, 4)
	require.NoError(t, err)
	defer store2.Close()

	reloaded, err := NewMmapBacked(store2)
	require.NoError(t, err)

	assert.Equal(t, s.Len(), reloaded.Len())
	node, ok := reloaded.Get(a)
	require.True(t, ok)
	assert.Equal(t, Directory, node.Kind)

	_, ok = reloaded.Get(b)
	assert.False(t, ok, "removed slot must mirror as unoccupied across reopen")

	reused := reloaded.Insert(FileNode{Name: pool.Intern("c"), Parent: a, Kind: File})
	assert.Equal(t, b, reused, "reloaded free list must reuse the removed slot first")
}

func TestSlabTouchMirrorsInPlaceMutation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slab.bin")
	pool := namepool.New()

	store, err := OpenMmap(path, 4)
	require.NoError(t, err)

	s, err := NewMmapBacked(store)
	require.NoError(t, err)

	idx := s.Insert(FileNode{Name: pool.Intern("a"), Kind: File})
	n, ok := s.GetMut(idx)
	require.True(t, ok)
	n.Size = 99
	s.Touch(idx)

	require.NoError(t, store.Sync())
	require.NoError(t, store.Close())

	store2, err := OpenMmap(path, 4)
	require.NoError(t, err)
	defer store2.Close()

	reloaded, err := NewMmapBacked(store2)
	require.NoError(t, err)
	node, ok := reloaded.Get(idx)
	require.True(t, ok)
	assert.Equal(t, uint64(99), node.Size, "Touch must mirror GetMut-based updates into the backing")
}
