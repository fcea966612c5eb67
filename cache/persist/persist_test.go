package persist

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastfind/engine/fserrors"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/slab"
)

func writeRaw(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func patchVersion(t *testing.T, path string, version uint32) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 8)
	binary.LittleEndian.PutUint32(data[4:8], version)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func sampleSnapshot() Snapshot {
	rootName := namepool.FromInt32(0)
	childName := namepool.FromInt32(1)
	return Snapshot{
		Root:        "/home/user",
		LastEventID: 42,
		Names:       []string{"root", "a.txt"},
		Slots: []slab.SlotRecord{
			{Occupied: true, Node: slab.FileNode{Name: rootName, Parent: slab.None, FirstChild: 1, NextSibling: slab.None, Kind: slab.Directory}},
			{Occupied: true, Node: slab.FileNode{Name: childName, Parent: 0, FirstChild: slab.None, NextSibling: slab.None, Kind: slab.File, Size: 123, MTime: 1700000000, CTime: 1700000000, MetadataLoaded: true}},
			{Occupied: false},
		},
		Buckets: map[namepool.Name][]slab.Idx{
			rootName:  {0},
			childName: {1},
		},
	}
}

func TestSaveLoadRoundTripUncompressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.idx")
	snap := sampleSnapshot()

	require.NoError(t, Save(path, snap, false))
	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, snap.Root, got.Root)
	assert.Equal(t, snap.LastEventID, got.LastEventID)
	assert.Equal(t, snap.Names, got.Names)
	assert.Equal(t, snap.Slots, got.Slots)
	assert.Equal(t, snap.Buckets, got.Buckets)
}

func TestSaveLoadRoundTripCompressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.idx.zst")
	snap := sampleSnapshot()

	require.NoError(t, Save(path, snap, true))
	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, snap.Root, got.Root)
	assert.Equal(t, snap.Slots, got.Slots)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.idx")
	require.NoError(t, writeRaw(path, []byte("not a valid blob at all")))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, fserrors.Is(err, fserrors.IntegrityFailure))
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "futureversion.idx")
	snap := sampleSnapshot()
	require.NoError(t, Save(path, snap, false))

	// Corrupt the version field in place (bytes 4..8, little-endian u32).
	patchVersion(t, path, 99)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, fserrors.Is(err, fserrors.IntegrityFailure))
}
