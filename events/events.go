// Package events implements the EventApplier (spec §4.I): it turns a batch
// of raw filesystem events into a per-path decision (insert, remove, update,
// or bounded rescan), coalescing duplicate paths and reducing multiple
// rescan roots to a minimal ancestor-free set. It never touches a Slab or
// NameIndex directly — SearchCache carries out whatever decision this
// package computes.
package events

import (
	"sort"
	"strings"

	"github.com/fastfind/engine/fserrors"
)

// Flag describes the kind(s) of mutation an event reports. A single
// coalesced event may carry more than one bit set.
type Flag uint8

const (
	Created Flag = 1 << iota
	Modified
	Removed
	Renamed
	HistoryDone
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// EntryHint is the watcher's best guess at what kind of entry path refers
// to; SearchCache confirms it against disk state before acting.
type EntryHint int

const (
	HintUnknown EntryHint = iota
	HintFile
	HintDirectory
	HintRoot
)

// Event is one raw notification from a watcher.
type Event struct {
	Path    string
	Flags   Flag
	EventID uint64
	Hint    EntryHint
}

// Batch is a finite, FIFO-ordered sequence of events delivered together.
type Batch []Event

// ErrRescanRequired is returned by a caller applying a Decision when a
// structural invariant couldn't be restored (rescan cancelled, I/O error on
// a critical path) — the caller must trigger a full rebuild (spec §4.I.5).
var ErrRescanRequired = fserrors.New(fserrors.IntegrityFailure, "rescan required: could not restore cache invariants from this batch")

// Coalesce merges a batch by path (step 1 of §4.I), keeping the maximum
// event_id seen for each path and the union of all flags reported for it.
// Order is unspecified; callers that need deterministic iteration should
// sort the result themselves.
func Coalesce(batch Batch) []Event {
	byPath := make(map[string]*Event, len(batch))
	order := make([]string, 0, len(batch))
	for _, ev := range batch {
		existing, ok := byPath[ev.Path]
		if !ok {
			copyEv := ev
			byPath[ev.Path] = &copyEv
			order = append(order, ev.Path)
			continue
		}
		existing.Flags |= ev.Flags
		if ev.EventID > existing.EventID {
			existing.EventID = ev.EventID
		}
		if ev.Hint != HintUnknown {
			existing.Hint = ev.Hint
		}
	}
	out := make([]Event, 0, len(order))
	for _, p := range order {
		out = append(out, *byPath[p])
	}
	return out
}

// MaxEventID returns the highest event_id across events, or 0 if empty.
func MaxEventID(evs []Event) uint64 {
	var max uint64
	for _, e := range evs {
		if e.EventID > max {
			max = e.EventID
		}
	}
	return max
}

// DecisionKind is what SearchCache should do for one coalesced path.
type DecisionKind int

const (
	// None means the event needs no action (e.g. duplicate no-op).
	None DecisionKind = iota
	// Insert means the path is new on disk and absent from the cache:
	// walk it (single entry for a file, subtree for a directory) and
	// insert the result.
	Insert
	// Remove means the path is gone from disk but present in the cache:
	// remove it (and, for a directory, its whole subtree).
	Remove
	// Update means the path exists in both and the event is an
	// unambiguous in-place mutation: refresh its metadata without a
	// full rescan.
	Update
	// Rescan means the path's state is ambiguous (rename, or more than
	// one mutation flag at once) and must go through bounded rescan.
	Rescan
)

// Decision is the outcome of reconciling one coalesced event against cache
// and disk presence.
type Decision struct {
	Path string
	Kind DecisionKind
}

// Decide implements step 2 of §4.I for a single path.
func Decide(ev Event, inCache, onDisk bool) DecisionKind {
	switch {
	case !inCache && onDisk:
		return Insert
	case inCache && !onDisk:
		return Remove
	case inCache && onDisk:
		if ambiguous(ev.Flags) {
			return Rescan
		}
		return Update
	default:
		return None
	}
}

// ambiguous reports whether flags describe a rename or more than one
// concurrent mutation, either of which §4.I.2 requires resolving through a
// rescan rather than a direct insert/remove/update.
func ambiguous(f Flag) bool {
	if f.Has(Renamed) {
		return true
	}
	count := 0
	for _, bit := range []Flag{Created, Modified, Removed} {
		if f.Has(bit) {
			count++
		}
	}
	return count > 1
}

// ReduceRescanRoots implements step 3 of §4.I: given every path that demands
// a rescan, reduce them to the minimal set of scan roots by sorting by
// depth and discarding any path with an ancestor already kept, and any
// duplicate.
func ReduceRescanRoots(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := depth(sorted[i]), depth(sorted[j])
		if di != dj {
			return di < dj
		}
		return sorted[i] < sorted[j]
	})

	var roots []string
	for _, p := range sorted {
		if !coveredByRoot(roots, p) {
			roots = append(roots, p)
		}
	}
	return roots
}

func depth(path string) int {
	return strings.Count(strings.Trim(path, "/"), "/")
}

func coveredByRoot(roots []string, p string) bool {
	for _, r := range roots {
		if r == p || strings.HasPrefix(p, strings.TrimSuffix(r, "/")+"/") {
			return true
		}
	}
	return false
}
