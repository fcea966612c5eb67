// Memory-mapped slab storage. A ThinSlab header precedes a growable region
// of fixed-size slot records; NewMmapBacked wires a *Slab straight to one of
// these, so every Insert/Remove/Touch mirrors into the mapped file as it
// happens rather than waiting for an explicit save. Growth remaps the file
// in power-of-two steps, in the spirit of the teacher's lib/mmap
// MustAlloc/MustFree helpers, adapted here to a file-backed (not anonymous)
// region via github.com/edsrzf/mmap-go.
package slab

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

const (
	thinSlabMagic   = uint32(0x54484e53) // "THNS"
	thinSlabVersion = uint32(1)
	thinSlabHeader  = 16 // magic(4) + version(4) + count(8)
	defaultSlots    = 1024
)

// recordSize is a conservative fixed encoding size for one FileNode slot:
// occupied flag(1) + name id(4) + parent(4) + firstChild(4) + nextSibling(4)
// + kind(1) + size(8) + ctime(8) + mtime(8) + metadataLoaded(1) + pad.
const recordSize = 48

// MmapStore is a file-backed, growable region of slot records. A Slab
// created with NewMmapBacked reads its initial state from one and mirrors
// every subsequent mutation back into it, so the mmap backing and the
// plain in-memory backing present identical Slab semantics to callers —
// spec §4.C's "pure in-memory or file-backed storage with identical
// semantics" allowance, implemented as one arena with a pluggable mirror
// rather than two separate arena implementations.
type MmapStore struct {
	f    *os.File
	data mmap.MMap
}

// OpenMmap opens (creating if necessary) a ThinSlab-backed file sized for
// at least minSlots records.
func OpenMmap(path string, minSlots int) (*MmapStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if minSlots < defaultSlots {
		minSlots = defaultSlots
	}
	need := int64(thinSlabHeader + minSlots*recordSize)
	if info.Size() < need {
		if err := f.Truncate(need); err != nil {
			f.Close()
			return nil, err
		}
	}
	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	store := &MmapStore{f: f, data: data}
	if binary.LittleEndian.Uint32(data[0:4]) != thinSlabMagic {
		binary.LittleEndian.PutUint32(data[0:4], thinSlabMagic)
		binary.LittleEndian.PutUint32(data[4:8], thinSlabVersion)
		binary.LittleEndian.PutUint64(data[8:16], 0)
	}
	return store, nil
}

// Grow remaps the region to hold exactly minSlots slot records.
func (m *MmapStore) Grow(minSlots int) error {
	if err := m.data.Unmap(); err != nil {
		return err
	}
	need := int64(thinSlabHeader + minSlots*recordSize)
	if err := m.f.Truncate(need); err != nil {
		return err
	}
	data, err := mmap.Map(m.f, mmap.RDWR, 0)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

// Capacity returns the number of slot records the current mapping holds.
func (m *MmapStore) Capacity() int {
	return (len(m.data) - thinSlabHeader) / recordSize
}

// WriteRecord encodes a fixed-width view of a slot at idx directly into
// the mapped region. Every FileNode field is written; the mapping is a
// crash-recoverable cache of the Slab, while the NamePool and NameIndex
// are only saved by the §6.2 persistence blob, the canonical save format.
func (m *MmapStore) WriteRecord(idx int, occupied bool, nameID int32, parent, firstChild, nextSibling Idx, kind Kind, size uint64, ctime, mtime int64, metadataLoaded bool) error {
	off := thinSlabHeader + idx*recordSize
	if off+recordSize > len(m.data) {
		return fmt.Errorf("slab: mmap record %d out of bounds (capacity %d)", idx, m.Capacity())
	}
	b := m.data[off : off+recordSize]
	if occupied {
		b[0] = 1
	} else {
		b[0] = 0
	}
	binary.LittleEndian.PutUint32(b[1:5], uint32(nameID))
	binary.LittleEndian.PutUint32(b[5:9], uint32(parent))
	binary.LittleEndian.PutUint32(b[9:13], uint32(firstChild))
	binary.LittleEndian.PutUint32(b[13:17], uint32(nextSibling))
	b[17] = byte(kind)
	binary.LittleEndian.PutUint64(b[18:26], size)
	binary.LittleEndian.PutUint64(b[26:34], uint64(ctime))
	binary.LittleEndian.PutUint64(b[34:42], uint64(mtime))
	if metadataLoaded {
		b[42] = 1
	} else {
		b[42] = 0
	}
	return nil
}

// ReadRecord decodes the fixed-width slot record at idx, the inverse of
// WriteRecord, used to reconstruct a Slab's initial state from an
// already-populated mmap file.
func (m *MmapStore) ReadRecord(idx int) (occupied bool, nameID int32, parent, firstChild, nextSibling Idx, kind Kind, size uint64, ctime, mtime int64, metadataLoaded bool, err error) {
	off := thinSlabHeader + idx*recordSize
	if off+recordSize > len(m.data) {
		err = fmt.Errorf("slab: mmap record %d out of bounds (capacity %d)", idx, m.Capacity())
		return
	}
	b := m.data[off : off+recordSize]
	occupied = b[0] == 1
	nameID = int32(binary.LittleEndian.Uint32(b[1:5]))
	parent = Idx(int32(binary.LittleEndian.Uint32(b[5:9])))
	firstChild = Idx(int32(binary.LittleEndian.Uint32(b[9:13])))
	nextSibling = Idx(int32(binary.LittleEndian.Uint32(b[13:17])))
	kind = Kind(b[17])
	size = binary.LittleEndian.Uint64(b[18:26])
	ctime = int64(binary.LittleEndian.Uint64(b[26:34]))
	mtime = int64(binary.LittleEndian.Uint64(b[34:42]))
	metadataLoaded = b[42] == 1
	return
}

// Sync flushes the mapped region to disk.
func (m *MmapStore) Sync() error {
	return m.data.Flush()
}

// Close unmaps and closes the backing file.
func (m *MmapStore) Close() error {
	if err := m.data.Unmap(); err != nil {
		return err
	}
	return m.f.Close()
}
