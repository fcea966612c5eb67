package walk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/slab"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "ignored"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored", "c.txt"), []byte("z"), 0o644))
	return root
}

func TestWalkBuildsTreeWithMetadata(t *testing.T) {
	root := buildTree(t)

	node, ok := Walk(context.Background(), root, Options{NeedMetadata: true}, cancel.Noop(), nil)
	require.True(t, ok)
	assert.Equal(t, slab.Directory, node.Kind)

	SortChildren(node)
	require.Len(t, node.Children, 3)
	assert.Equal(t, "b.txt", node.Children[0].Name)
	assert.Equal(t, uint64(2), node.Children[0].Size)
	assert.True(t, node.Children[0].HasMeta)

	var sub *Node
	for _, c := range node.Children {
		if c.Name == "sub" {
			sub = c
		}
	}
	require.NotNil(t, sub)
	assert.Equal(t, slab.Directory, sub.Kind)
	require.Len(t, sub.Children, 1)
	assert.Equal(t, "a.txt", sub.Children[0].Name)
}

func TestWalkIgnoresConfiguredDirs(t *testing.T) {
	root := buildTree(t)
	ignored := filepath.Join(root, "ignored")

	node, ok := Walk(context.Background(), root, Options{IgnoreDirs: []string{ignored}}, cancel.Noop(), nil)
	require.True(t, ok)

	var ig *Node
	for _, c := range node.Children {
		if c.Name == "ignored" {
			ig = c
		}
	}
	require.NotNil(t, ig)
	assert.Empty(t, ig.Children, "ignored directory should not be descended into")
}

func TestWalkCountersAdvance(t *testing.T) {
	root := buildTree(t)
	var counters Counters
	_, ok := Walk(context.Background(), root, Options{}, cancel.Noop(), &counters)
	require.True(t, ok)
	assert.GreaterOrEqual(t, counters.FilesSeen.Load(), int64(2))
	assert.GreaterOrEqual(t, counters.DirsSeen.Load(), int64(2))
}

func TestWalkCancelledReturnsFalse(t *testing.T) {
	root := buildTree(t)
	tok := cancel.WithInterval(1, 1)
	cancel.New(2) // supersede: any Sparse() check against the old token now reports cancelled

	_, ok := Walk(context.Background(), root, Options{}, tok, nil)
	assert.False(t, ok)
}

func TestWalkMissingRootSkipped(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")
	node, ok := Walk(context.Background(), root, Options{}, cancel.Noop(), nil)
	require.True(t, ok)
	assert.Nil(t, node)
}
