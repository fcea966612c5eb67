// Package slab implements the Slab (spec §4.C): a dense, index-addressed
// arena of FileNode slots with O(1) insert/lookup and a free list for
// reused slots. Two storage backings share the same semantics: a plain
// in-memory slice, or a growable memory-mapped file (see mmap.go).
package slab

import (
	"github.com/fastfind/engine/namepool"
)

// Idx identifies a slot in the Slab. A live node's index never changes;
// once a node is removed, its index goes on the free list and is handed out
// again by a later Insert.
type Idx int32

// None is the sentinel for "no index" (spec: Option<SlabIdx>).
const None Idx = -1

// Kind is a FileNode's filesystem entry type.
type Kind uint8

const (
	File Kind = iota
	Directory
	Symlink
	Unknown
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// FileNode is one indexed filesystem entry (spec §3).
type FileNode struct {
	Name        namepool.Name
	Parent      Idx
	FirstChild  Idx
	NextSibling Idx
	Kind        Kind
	Size        uint64
	// CTime/MTime are seconds since epoch; 0 means "unset" (the spec's
	// Option<non-zero u64>).
	CTime, MTime   int64
	MetadataLoaded bool
}

// slot is either an occupied FileNode or a free-list link.
type slot struct {
	occupied bool
	node     FileNode
	nextFree Idx
}

// Slab is the index-addressed arena. It has no internal locking of its
// own: SearchCache serializes writers and readers per spec §5.
type Slab struct {
	slots    []slot
	freeHead Idx
	numLive  int

	// mm, when non-nil, mirrors every mutation into a file-backed region
	// (see mmap.go). A plain in-memory Slab leaves this nil.
	mm *MmapStore
}

// New creates an empty in-memory Slab.
func New() *Slab {
	return &Slab{freeHead: None}
}

// NewMmapBacked creates a Slab whose state is read from store and whose
// subsequent mutations mirror back into it (spec §4.C: interchangeable
// in-memory / file-backed storage with identical semantics). store's
// existing records, if any, are loaded as the initial slots.
func NewMmapBacked(store *MmapStore) (*Slab, error) {
	capacity := store.Capacity()
	s := &Slab{slots: make([]slot, capacity), freeHead: None, mm: store}
	for i := capacity - 1; i >= 0; i-- {
		occupied, nameID, parent, firstChild, nextSibling, kind, size, ctime, mtime, metadataLoaded, err := store.ReadRecord(i)
		if err != nil {
			return nil, err
		}
		if occupied {
			s.slots[i] = slot{occupied: true, node: FileNode{
				Name:           namepool.FromInt32(nameID),
				Parent:         parent,
				FirstChild:     firstChild,
				NextSibling:    nextSibling,
				Kind:           kind,
				Size:           size,
				CTime:          ctime,
				MTime:          mtime,
				MetadataLoaded: metadataLoaded,
			}}
			s.numLive++
		} else {
			s.slots[i] = slot{occupied: false, nextFree: s.freeHead}
			s.freeHead = Idx(i)
		}
	}
	return s, nil
}

// Insert stores node in a free slot (popping the free list) or appends a
// new one, returning its stable index.
func (s *Slab) Insert(node FileNode) Idx {
	s.numLive++
	var idx Idx
	if s.freeHead != None {
		idx = s.freeHead
		sl := &s.slots[idx]
		s.freeHead = sl.nextFree
		sl.occupied = true
		sl.node = node
	} else {
		idx = Idx(len(s.slots))
		s.slots = append(s.slots, slot{occupied: true, node: node})
	}
	s.mirror(idx, node, true)
	return idx
}

// Remove frees the slot at idx, pushing it onto the free list. idx must be
// occupied — removing a free slot is a programming bug (spec §4.C), so
// this panics rather than returning an error.
func (s *Slab) Remove(idx Idx) {
	sl := s.mustSlot(idx)
	if !sl.occupied {
		panic("slab: Remove on a free slot")
	}
	sl.occupied = false
	sl.node = FileNode{}
	sl.nextFree = s.freeHead
	s.freeHead = idx
	s.numLive--
	s.mirror(idx, FileNode{}, false)
}

// Touch re-mirrors idx's current contents into the mmap backing, for
// callers that mutated the node in place through a GetMut pointer rather
// than via Insert. A no-op on a plain in-memory Slab.
func (s *Slab) Touch(idx Idx) {
	if s.mm == nil {
		return
	}
	if n, ok := s.Get(idx); ok {
		s.mirror(idx, *n, true)
	}
}

func (s *Slab) mirror(idx Idx, node FileNode, occupied bool) {
	if s.mm == nil {
		return
	}
	if int(idx) >= s.mm.Capacity() {
		need := s.mm.Capacity() * 2
		if need <= int(idx) {
			need = int(idx) + 1
		}
		if err := s.mm.Grow(need); err != nil {
			return
		}
	}
	_ = s.mm.WriteRecord(int(idx), occupied, node.Name.Int32(), node.Parent, node.FirstChild, node.NextSibling, node.Kind, node.Size, node.CTime, node.MTime, node.MetadataLoaded)
}

// Sync flushes the mmap backing to disk, if this Slab has one.
func (s *Slab) Sync() error {
	if s.mm == nil {
		return nil
	}
	return s.mm.Sync()
}

// Close releases the mmap backing's file mapping, if this Slab has one.
func (s *Slab) Close() error {
	if s.mm == nil {
		return nil
	}
	return s.mm.Close()
}

// Get returns the node at idx if occupied.
func (s *Slab) Get(idx Idx) (*FileNode, bool) {
	if idx < 0 || int(idx) >= len(s.slots) {
		return nil, false
	}
	sl := &s.slots[idx]
	if !sl.occupied {
		return nil, false
	}
	return &sl.node, true
}

// GetMut returns a mutable pointer to the node at idx if occupied.
func (s *Slab) GetMut(idx Idx) (*FileNode, bool) {
	return s.Get(idx)
}

// Reset clears every slot back to empty, preserving any mmap backing this
// Slab was created with — used by a full rebuild that must not lose a
// previously selected storage backing.
func (s *Slab) Reset() {
	for i := range s.slots {
		s.mirror(Idx(i), FileNode{}, false)
	}
	s.slots = s.slots[:0]
	s.freeHead = None
	s.numLive = 0
}

// Len returns the number of occupied slots.
func (s *Slab) Len() int { return s.numLive }

// Cap returns the total number of slots, occupied or free.
func (s *Slab) Cap() int { return len(s.slots) }

func (s *Slab) mustSlot(idx Idx) *slot {
	if idx < 0 || int(idx) >= len(s.slots) {
		panic("slab: index out of range")
	}
	return &s.slots[idx]
}

// SlotRecord is one raw slot (occupied or free), as needed by the
// persistence codec (spec §6.2: "per-slot {occupied?, FileNode-fields}").
type SlotRecord struct {
	Occupied bool
	Node     FileNode
}

// Snapshot returns every slot, occupied or free, in index order — the
// persistence codec's save path.
func (s *Slab) Snapshot() []SlotRecord {
	out := make([]SlotRecord, len(s.slots))
	for i, sl := range s.slots {
		out[i] = SlotRecord{Occupied: sl.occupied, Node: sl.node}
	}
	return out
}

// Load rebuilds a Slab from a slot-record sequence produced by Snapshot,
// reconstructing the free list from the records marked unoccupied. Indices
// are preserved exactly (spec L1: round-trip equality up to free-list
// layout).
func Load(records []SlotRecord) *Slab {
	s := &Slab{slots: make([]slot, len(records)), freeHead: None}
	// Build the free list back-to-front so that, like a freshly built
	// Slab whose removals happened in descending index order, freeHead ends up
	// pointing at the lowest-index free slot — a deterministic, testable
	// layout rather than an arbitrary one.
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Occupied {
			s.slots[i] = slot{occupied: true, node: r.Node}
			s.numLive++
		} else {
			s.slots[i] = slot{occupied: false, nextFree: s.freeHead}
			s.freeHead = Idx(i)
		}
	}
	return s
}

// IterOccupied calls fn for every occupied slot in ascending index order,
// stopping early if fn returns false. It is finite and restartable: calling
// it again re-walks the same (possibly now-different) set of slots.
func (s *Slab) IterOccupied(fn func(Idx, *FileNode) bool) {
	for i := range s.slots {
		if !s.slots[i].occupied {
			continue
		}
		if !fn(Idx(i), &s.slots[i].node) {
			return
		}
	}
}

