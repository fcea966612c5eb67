package cache

import (
	"github.com/fastfind/engine/cache/persist"
	"github.com/fastfind/engine/nameindex"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/slab"
)

// Save writes the cache's current state to path (spec §6.3 "save"),
// optionally zstd-compressed, via the write-to-temp/fsync/rename codec in
// cache/persist.
func (c *SearchCache) Save(path string, compress bool) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := persist.Snapshot{
		Root:        c.root,
		LastEventID: c.lastEventID.Load(),
		Names:       c.pool.Names(),
		Slots:       c.slab.Snapshot(),
		Buckets:     c.index.Buckets(),
	}
	return persist.Save(path, snap, compress)
}

// Load replaces the cache's content with the snapshot stored at path (spec
// §6.3 "load"), detecting compression automatically. rootIdx is recomputed
// from the reloaded tree's root entry (the slab index whose Parent is
// slab.None).
func (c *SearchCache) Load(path string) error {
	snap, err := persist.Load(path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.root = snap.Root
	c.pool = namepool.LoadNames(snap.Names)
	c.slab = slab.Load(snap.Slots)
	c.index = nameindex.Load(snap.Buckets)
	c.lastEventID.Store(snap.LastEventID)
	c.lastChild = nil
	c.rootIdx = findRoot(c.slab)
	return nil
}

// findRoot locates the occupied slot with no parent, the root of the
// single tree a SearchCache holds. Returns slab.None for an empty cache.
func findRoot(s *slab.Slab) slab.Idx {
	root := slab.None
	s.IterOccupied(func(idx slab.Idx, n *slab.FileNode) bool {
		if n.Parent == slab.None {
			root = idx
			return false
		}
		return true
	})
	return root
}
