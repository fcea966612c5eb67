// Package persist implements the persistence blob codec (spec §6.2): a
// single self-describing file holding the watched root, last applied event
// id, NamePool contents, Slab contents, and NameIndex buckets, written via
// write-to-temp/fsync/rename and optionally zstd-compressed end to end.
package persist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/fastfind/engine/fserrors"
	"github.com/fastfind/engine/nameindex"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/slab"
)

// magic identifies a fastfind persistence blob; version bumps on any
// incompatible layout change (spec §6.2: "a version mismatch ... must be
// reported as a recoverable error").
const (
	magic          uint32 = 0x46464e44 // "FFND"
	currentVersion uint32 = 1
)

// Snapshot is everything BuildFromRoot/HandleEvents/Rescan accumulate that
// Save/Load round-trip.
type Snapshot struct {
	Root        string
	LastEventID uint64
	Names       []string
	Slots       []slab.SlotRecord
	Buckets     map[namepool.Name][]slab.Idx
}

// Save writes snapshot to path atomically: write-to-temp, fsync, rename
// (spec §6.2), optionally wrapping the whole stream in zstd.
func Save(path string, snap Snapshot, compress bool) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	var w io.Writer = bw
	var zw *zstd.Encoder
	if compress {
		zw, err = zstd.NewWriter(bw)
		if err != nil {
			tmp.Close()
			return fserrors.Wrap(fserrors.IoFailure, err)
		}
		w = zw
	}

	if err = writeSnapshot(w, snap); err != nil {
		tmp.Close()
		return err
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			tmp.Close()
			return fserrors.Wrap(fserrors.IoFailure, err)
		}
	}
	if err = bw.Flush(); err != nil {
		tmp.Close()
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	if err = tmp.Close(); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	return nil
}

// Load reads a persistence blob back, detecting zstd framing automatically
// so callers don't need to remember whether Save compressed it.
func Load(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fserrors.Wrap(fserrors.IoFailure, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	peek, err := br.Peek(4)
	if err != nil {
		return Snapshot{}, fserrors.New(fserrors.IntegrityFailure, "persistence blob too short")
	}

	var r io.Reader = br
	if isZstdFrame(peek) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return Snapshot{}, fserrors.Wrap(fserrors.IntegrityFailure, err)
		}
		defer zr.Close()
		r = zr
	}
	return readSnapshot(r)
}

func isZstdFrame(b []byte) bool {
	return len(b) >= 4 && b[0] == 0x28 && b[1] == 0xb5 && b[2] == 0x2f && b[3] == 0xfd
}

func writeSnapshot(w io.Writer, snap Snapshot) error {
	if err := writeU32(w, magic); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	if err := writeU32(w, currentVersion); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	if err := writeString(w, snap.Root); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	if err := writeU64(w, snap.LastEventID); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}

	if err := writeU64(w, uint64(len(snap.Names))); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	for _, name := range snap.Names {
		if err := writeString(w, name); err != nil {
			return fserrors.Wrap(fserrors.IoFailure, err)
		}
	}

	if err := writeU64(w, uint64(len(snap.Slots))); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	for _, slot := range snap.Slots {
		if err := writeSlot(w, slot); err != nil {
			return err
		}
	}

	if err := writeU64(w, uint64(len(snap.Buckets))); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	for name, indices := range snap.Buckets {
		if err := writeU32(w, uint32(name.Int32())); err != nil {
			return fserrors.Wrap(fserrors.IoFailure, err)
		}
		if err := writeU64(w, uint64(len(indices))); err != nil {
			return fserrors.Wrap(fserrors.IoFailure, err)
		}
		for _, idx := range indices {
			if err := writeU32(w, uint32(idx)); err != nil {
				return fserrors.Wrap(fserrors.IoFailure, err)
			}
		}
	}
	return nil
}

func writeSlot(w io.Writer, slot slab.SlotRecord) error {
	occ := byte(0)
	if slot.Occupied {
		occ = 1
	}
	if err := writeByte(w, occ); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	n := slot.Node
	fields := []uint64{
		uint64(uint32(n.Name.Int32())),
		uint64(uint32(n.Parent)),
		uint64(uint32(n.FirstChild)),
		uint64(uint32(n.NextSibling)),
		uint64(n.Kind),
		n.Size,
		uint64(n.CTime),
		uint64(n.MTime),
	}
	for _, v := range fields {
		if err := writeU64(w, v); err != nil {
			return fserrors.Wrap(fserrors.IoFailure, err)
		}
	}
	meta := byte(0)
	if n.MetadataLoaded {
		meta = 1
	}
	if err := writeByte(w, meta); err != nil {
		return fserrors.Wrap(fserrors.IoFailure, err)
	}
	return nil
}

func readSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot

	gotMagic, err := readU32(r)
	if err != nil || gotMagic != magic {
		return snap, fserrors.New(fserrors.IntegrityFailure, "persistence blob: bad magic")
	}
	version, err := readU32(r)
	if err != nil {
		return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
	}
	if version != currentVersion {
		return snap, fserrors.Newf(fserrors.IntegrityFailure, "persistence blob: unsupported version %d", version)
	}

	snap.Root, err = readString(r)
	if err != nil {
		return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
	}
	snap.LastEventID, err = readU64(r)
	if err != nil {
		return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
	}

	nameCount, err := readU64(r)
	if err != nil {
		return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
	}
	snap.Names = make([]string, nameCount)
	for i := range snap.Names {
		snap.Names[i], err = readString(r)
		if err != nil {
			return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
		}
	}

	slotCount, err := readU64(r)
	if err != nil {
		return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
	}
	snap.Slots = make([]slab.SlotRecord, slotCount)
	for i := range snap.Slots {
		snap.Slots[i], err = readSlot(r)
		if err != nil {
			return snap, err
		}
	}

	bucketCount, err := readU64(r)
	if err != nil {
		return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
	}
	snap.Buckets = make(map[namepool.Name][]slab.Idx, bucketCount)
	for i := uint64(0); i < bucketCount; i++ {
		nameIdx, err := readU32(r)
		if err != nil {
			return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
		}
		count, err := readU64(r)
		if err != nil {
			return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
		}
		indices := make([]slab.Idx, count)
		for j := range indices {
			v, err := readU32(r)
			if err != nil {
				return snap, fserrors.Wrap(fserrors.IntegrityFailure, err)
			}
			indices[j] = slab.Idx(int32(v))
		}
		snap.Buckets[namepool.FromInt32(int32(nameIdx))] = indices
	}

	return snap, nil
}

func readSlot(r io.Reader) (slab.SlotRecord, error) {
	var rec slab.SlotRecord
	occ, err := readByte(r)
	if err != nil {
		return rec, fserrors.Wrap(fserrors.IntegrityFailure, err)
	}
	rec.Occupied = occ != 0

	vals := make([]uint64, 8)
	for i := range vals {
		vals[i], err = readU64(r)
		if err != nil {
			return rec, fserrors.Wrap(fserrors.IntegrityFailure, err)
		}
	}
	rec.Node = slab.FileNode{
		Name:        namepool.FromInt32(int32(uint32(vals[0]))),
		Parent:      slab.Idx(int32(uint32(vals[1]))),
		FirstChild:  slab.Idx(int32(uint32(vals[2]))),
		NextSibling: slab.Idx(int32(uint32(vals[3]))),
		Kind:        slab.Kind(vals[4]),
		Size:        vals[5],
		CTime:       int64(vals[6]),
		MTime:       int64(vals[7]),
	}
	meta, err := readByte(r)
	if err != nil {
		return rec, fserrors.Wrap(fserrors.IntegrityFailure, err)
	}
	rec.Node.MetadataLoaded = meta != 0
	return rec, nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func writeString(w io.Writer, s string) error {
	if err := writeU64(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readString(r io.Reader) (string, error) {
	n, err := readU64(r)
	if err != nil {
		return "", err
	}
	if n > 1<<30 {
		return "", fmt.Errorf("persist: implausible string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
