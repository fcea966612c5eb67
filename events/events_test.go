package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesceKeepsMaxEventIDAndUnionsFlags(t *testing.T) {
	batch := Batch{
		{Path: "/r/a.txt", Flags: Created, EventID: 3},
		{Path: "/r/a.txt", Flags: Modified, EventID: 5},
		{Path: "/r/b.txt", Flags: Removed, EventID: 4},
	}
	out := Coalesce(batch)
	byPath := make(map[string]Event, len(out))
	for _, e := range out {
		byPath[e.Path] = e
	}

	a := byPath["/r/a.txt"]
	assert.Equal(t, uint64(5), a.EventID)
	assert.True(t, a.Flags.Has(Created))
	assert.True(t, a.Flags.Has(Modified))

	b := byPath["/r/b.txt"]
	assert.Equal(t, uint64(4), b.EventID)
}

func TestMaxEventID(t *testing.T) {
	assert.Equal(t, uint64(0), MaxEventID(nil))
	assert.Equal(t, uint64(11), MaxEventID([]Event{{EventID: 7}, {EventID: 11}, {EventID: 2}}))
}

func TestDecideInsertRemove(t *testing.T) {
	assert.Equal(t, Insert, Decide(Event{}, false, true))
	assert.Equal(t, Remove, Decide(Event{}, true, false))
	assert.Equal(t, None, Decide(Event{}, false, false))
}

func TestDecideUpdateVsRescan(t *testing.T) {
	assert.Equal(t, Update, Decide(Event{Flags: Modified}, true, true))
	assert.Equal(t, Rescan, Decide(Event{Flags: Renamed | Modified}, true, true))
	assert.Equal(t, Rescan, Decide(Event{Flags: Created | Modified}, true, true))
	assert.Equal(t, Rescan, Decide(Event{Flags: Renamed}, true, true))
}

func TestReduceRescanRootsDropsDescendantsAndDuplicates(t *testing.T) {
	roots := ReduceRescanRoots([]string{
		"/r/x/a",
		"/r/x",
		"/r/x",
		"/r/y/b/c",
		"/r/y/b",
		"/r/z",
	})
	assert.ElementsMatch(t, []string{"/r/x", "/r/y/b", "/r/z"}, roots)
}

func TestReduceRescanRootsNoOverlap(t *testing.T) {
	roots := ReduceRescanRoots([]string{"/r/a", "/r/b", "/r/c"})
	assert.ElementsMatch(t, []string{"/r/a", "/r/b", "/r/c"}, roots)
}
