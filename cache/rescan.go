package cache

import (
	"context"

	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/events"
	"github.com/fastfind/engine/fslog"
	"github.com/fastfind/engine/slab"
	"github.com/fastfind/engine/walk"
)

// HandleEvents reconciles a batch of filesystem events into cache mutations
// (spec §4.I), taking the writer lock for the duration. It returns
// events.ErrRescanRequired if a structural invariant couldn't be restored
// and the caller should trigger a full rebuild.
func (c *SearchCache) HandleEvents(ctx context.Context, batch events.Batch, tok cancel.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	coalesced := events.Coalesce(batch)

	var rescanPaths []string
	for _, ev := range coalesced {
		idx, inCache := c.lookupPathLocked(ev.Path)
		_, onDisk := statLocked(ev.Path)

		switch events.Decide(ev, inCache, onDisk) {
		case events.Insert:
			if err := c.insertPathLocked(ctx, ev.Path, tok); err != nil {
				return err
			}
		case events.Remove:
			c.removeSubtreeLocked(idx)
		case events.Update:
			n, ok := c.slab.GetMut(idx)
			if ok {
				n.MetadataLoaded = false
				c.backfillLocked(idx)
			}
		case events.Rescan:
			rescanPaths = append(rescanPaths, ev.Path)
		}
	}

	if len(rescanPaths) > 0 {
		if !c.rescanLocked(ctx, events.ReduceRescanRoots(rescanPaths), tok) {
			return events.ErrRescanRequired
		}
	}

	if max := events.MaxEventID(coalesced); max > c.lastEventID.Load() {
		c.lastEventID.Store(max)
	}
	return nil
}

// Rescan walks each of paths and reconciles it against the corresponding
// cache subtree (spec §4.F "rescan"), taking the writer lock. It returns
// false if the walk was cancelled, leaving the cache untouched for any path
// not yet processed.
func (c *SearchCache) Rescan(ctx context.Context, paths []string, tok cancel.Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rescanLocked(ctx, events.ReduceRescanRoots(paths), tok)
}

func (c *SearchCache) rescanLocked(ctx context.Context, roots []string, tok cancel.Token) bool {
	c.lastChild = make(map[slab.Idx]slab.Idx)
	defer func() { c.lastChild = nil }()

	for _, root := range roots {
		if tok.Cancelled() {
			return false
		}
		idx, existed := c.lookupPathLocked(root)
		tree, ok := walk.Walk(ctx, root, walk.Options{IgnoreDirs: c.ignoreDirs, NeedMetadata: true}, tok, nil)
		if !ok {
			return false
		}
		if existed {
			c.removeSubtreeLocked(idx)
		}
		if tree == nil {
			continue // the path vanished between the event and this rescan
		}
		parent := c.parentIdxLocked(root)
		c.reattachLastChild(parent, idx)
		c.insertTree(parent, tree)
	}
	return true
}

// reattachLastChild primes c.lastChild[parent] with the sibling the newly
// inserted subtree should follow, so insertTree's O(1) append still works
// when a rescan replaces one child among several rather than building an
// empty tree from scratch.
func (c *SearchCache) reattachLastChild(parent, replaced slab.Idx) {
	if parent == slab.None {
		return
	}
	p, ok := c.slab.Get(parent)
	if !ok {
		return
	}
	if p.FirstChild == replaced || p.FirstChild == slab.None {
		delete(c.lastChild, parent)
		return
	}
	prev := slab.Idx(slab.None)
	cur := p.FirstChild
	for cur != slab.None {
		n, ok := c.slab.Get(cur)
		if !ok {
			break
		}
		if cur == replaced {
			c.lastChild[parent] = prev
			return
		}
		prev = cur
		cur = n.NextSibling
	}
	c.lastChild[parent] = prev
}

func (c *SearchCache) parentIdxLocked(path string) slab.Idx {
	if path == c.root {
		return slab.None
	}
	dir := parentDir(path)
	idx, ok := c.lookupPathLocked(dir)
	if !ok {
		return slab.None
	}
	return idx
}

// insertPathLocked walks a single new path (file or subtree) and inserts
// it under its parent.
func (c *SearchCache) insertPathLocked(ctx context.Context, path string, tok cancel.Token) error {
	if c.lastChild == nil {
		c.lastChild = make(map[slab.Idx]slab.Idx)
		defer func() { c.lastChild = nil }()
	}
	tree, ok := walk.Walk(ctx, path, walk.Options{IgnoreDirs: c.ignoreDirs, NeedMetadata: true}, tok, nil)
	if !ok {
		return events.ErrRescanRequired
	}
	if tree == nil {
		return nil // vanished before we could walk it
	}
	parent := c.parentIdxLocked(path)
	c.reattachLastChild(parent, slab.None)
	idx := c.insertTree(parent, tree)
	if path == c.root {
		c.rootIdx = idx
	}
	return nil
}

// removeSubtreeLocked removes idx and, recursively, every descendant, from
// the slab and index (spec §4.I.2 "remove from the slab and NameIndex,
// recursively for directories").
func (c *SearchCache) removeSubtreeLocked(idx slab.Idx) {
	if idx == slab.None {
		return
	}
	n, ok := c.slab.Get(idx)
	if !ok {
		return
	}
	parent := n.Parent

	var children []slab.Idx
	for cur := n.FirstChild; cur != slab.None; {
		child, ok := c.slab.Get(cur)
		if !ok {
			break
		}
		children = append(children, cur)
		cur = child.NextSibling
	}
	for _, child := range children {
		c.removeSubtreeLocked(child)
	}

	if c.tags != nil {
		if err := c.tags.Delete(c.pathOfLocked(idx)); err != nil {
			fslog.Warnf(idx, "rescan: failed to invalidate tags: %v", err)
		}
	}

	name, _ := c.slab.Get(idx)
	c.index.Remove(name.Name, idx)
	c.unlinkChild(parent, idx)
	c.slab.Remove(idx)
	if idx == c.rootIdx {
		c.rootIdx = slab.None
	}
}

// lookupPathLocked finds the slab index currently occupying path, if any.
func (c *SearchCache) lookupPathLocked(path string) (slab.Idx, bool) {
	if path == c.root {
		if c.rootIdx == slab.None {
			return slab.None, false
		}
		return c.rootIdx, true
	}
	if c.rootIdx == slab.None {
		return slab.None, false
	}
	rel, ok := relTo(c.root, path)
	if !ok {
		return slab.None, false
	}
	cur := c.rootIdx
	for _, comp := range rel {
		found := slab.Idx(slab.None)
		n, ok := c.slab.Get(cur)
		if !ok {
			return slab.None, false
		}
		for child := n.FirstChild; child != slab.None; {
			cn, ok := c.slab.Get(child)
			if !ok {
				break
			}
			if c.pool.String(cn.Name) == comp {
				found = child
				break
			}
			child = cn.NextSibling
		}
		if found == slab.None {
			return slab.None, false
		}
		cur = found
	}
	return cur, true
}
