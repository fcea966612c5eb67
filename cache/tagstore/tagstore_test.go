package tagstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tags.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.Set("/r/a.txt", []string{"work", "important"}))

	tags, found, err := s.Get("/r/a.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"work", "important"}, tags)
}

func TestGetMissingNotFound(t *testing.T) {
	s := openTest(t)
	tags, found, err := s.Get("/nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, tags)
}

func TestDelete(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.Set("/r/a.txt", []string{"work"}))
	require.NoError(t, s.Delete("/r/a.txt"))

	_, found, err := s.Get("/r/a.txt")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRename(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.Set("/r/old.txt", []string{"work"}))
	require.NoError(t, s.Rename("/r/old.txt", "/r/new.txt"))

	_, found, err := s.Get("/r/old.txt")
	require.NoError(t, err)
	assert.False(t, found)

	tags, found, err := s.Get("/r/new.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"work"}, tags)
}
