// Package cache implements the SearchCache (spec §4.F): the orchestrator
// owning the NamePool, Slab, and NameIndex triad for one watched root,
// serializing writers against readers per §5 and delegating query
// evaluation to query/eval.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fastfind/engine/cache/tagstore"
	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/eval"
	"github.com/fastfind/engine/nameindex"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/slab"
	"github.com/fastfind/engine/walk"
)

// SearchCache owns one watched root's in-memory index (spec §4.F).
type SearchCache struct {
	mu sync.RWMutex

	root    string
	rootIdx slab.Idx

	pool  *namepool.Pool
	slab  *slab.Slab
	index *nameindex.Index

	lastEventID atomic.Uint64

	ignoreDirs []string
	tags       *tagstore.Store

	// lastChild tracks each directory's most recently linked child
	// during a build/rescan so new children append to the sibling list
	// in O(1); it is scratch state, not part of the persisted cache.
	lastChild map[slab.Idx]slab.Idx
}

// NewEmpty creates a SearchCache with no content, rooted at root.
func NewEmpty(root string) *SearchCache {
	return &SearchCache{
		root:    root,
		rootIdx: slab.None,
		pool:    namepool.New(),
		slab:    slab.New(),
		index:   nameindex.New(),
	}
}

// NewMmapBacked creates a SearchCache like NewEmpty, except its Slab mirrors
// every mutation into a growable memory-mapped file at mmapPath instead of
// living purely in memory (spec §4.C: interchangeable in-memory /
// file-backed storage with identical semantics). The mmap file only
// recovers Slab structure (parent/child links, size/ctime/mtime, name ids);
// NamePool and NameIndex still come from a fresh BuildFromRoot, or from the
// full §6.2 blob via Load, which remains the canonical save format.
// Callers must call Close when done to release the mapping.
func NewMmapBacked(root, mmapPath string, minSlots int) (*SearchCache, error) {
	store, err := slab.OpenMmap(mmapPath, minSlots)
	if err != nil {
		return nil, err
	}
	s, err := slab.NewMmapBacked(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &SearchCache{
		root:    root,
		rootIdx: findRoot(s),
		pool:    namepool.New(),
		slab:    s,
		index:   nameindex.New(),
	}, nil
}

// Close releases the cache's mmap-backed Slab file mapping, if it has one.
func (c *SearchCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slab.Close()
}

// SetIgnoreDirs configures which absolute path prefixes BuildFromRoot and
// Rescan skip (forwarded to the Walker).
func (c *SearchCache) SetIgnoreDirs(dirs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ignoreDirs = dirs
}

// AttachTagStore wires a tag store into the cache's eval.Context, enabling
// tag: filters; without one, tag: always evaluates to no matches.
func (c *SearchCache) AttachTagStore(store *tagstore.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = store
}

// Root returns the watched root path.
func (c *SearchCache) Root() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root
}

// LastEventID returns the id of the most recently applied event.
func (c *SearchCache) LastEventID() uint64 {
	return c.lastEventID.Load()
}

// BuildFromRoot performs an initial Walker traversal and folds the result
// into an empty slab/index/pool (spec §4.F "build_from_root"). Whatever the
// cache held before is discarded once the walk succeeds; a cancelled walk
// leaves it untouched.
func (c *SearchCache) BuildFromRoot(ctx context.Context, needMetadata bool, tok cancel.Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	counters := &walk.Counters{}
	tree, ok := walk.Walk(ctx, c.root, walk.Options{
		IgnoreDirs:   c.ignoreDirs,
		NeedMetadata: needMetadata,
	}, tok, counters)
	if !ok {
		return false
	}

	c.pool = namepool.New()
	c.slab.Reset()
	c.index = nameindex.New()
	c.lastChild = make(map[slab.Idx]slab.Idx)
	defer func() { c.lastChild = nil }()

	c.rootIdx = c.insertTree(slab.None, tree)
	return true
}

// insertTree folds a walk.Node subtree into the slab/index/pool, returning
// the index assigned to n, and linking it under parent's child list.
func (c *SearchCache) insertTree(parent slab.Idx, n *walk.Node) slab.Idx {
	name := c.pool.Intern(n.Name)
	idx := c.slab.Insert(slab.FileNode{
		Name:           name,
		Parent:         parent,
		FirstChild:     slab.None,
		NextSibling:    slab.None,
		Kind:           n.Kind,
		Size:           n.Size,
		CTime:          n.CTime,
		MTime:          n.MTime,
		MetadataLoaded: n.HasMeta,
	})
	c.index.Add(name, idx)
	c.linkChild(parent, idx)

	for _, child := range n.Children {
		c.insertTree(idx, child)
	}
	return idx
}

func (c *SearchCache) linkChild(parent, child slab.Idx) {
	if parent == slab.None {
		return
	}
	p, ok := c.slab.GetMut(parent)
	if !ok {
		return
	}
	if p.FirstChild == slab.None {
		p.FirstChild = child
		c.slab.Touch(parent)
		c.lastChild[parent] = child
		return
	}
	last := c.lastChild[parent]
	if ls, ok := c.slab.GetMut(last); ok {
		ls.NextSibling = child
		c.slab.Touch(last)
	}
	c.lastChild[parent] = child
}

// unlinkChild removes idx from parent's sibling list (used when removing a
// node during event handling or rescan).
func (c *SearchCache) unlinkChild(parent, idx slab.Idx) {
	if parent == slab.None {
		return
	}
	p, ok := c.slab.GetMut(parent)
	if !ok {
		return
	}
	if p.FirstChild == idx {
		n, _ := c.slab.Get(idx)
		p.FirstChild = n.NextSibling
		c.slab.Touch(parent)
		return
	}
	cur := p.FirstChild
	for cur != slab.None {
		curNode, ok := c.slab.GetMut(cur)
		if !ok {
			return
		}
		if curNode.NextSibling == idx {
			removed, _ := c.slab.Get(idx)
			curNode.NextSibling = removed.NextSibling
			c.slab.Touch(cur)
			return
		}
		cur = curNode.NextSibling
	}
}

// PathOf reconstructs idx's full filesystem path by ascending the parent
// chain (spec §4.F "expand ... resolve {path, metadata} by ascending the
// parent chain").
func (c *SearchCache) PathOf(idx slab.Idx) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pathOfLocked(idx)
}

func (c *SearchCache) pathOfLocked(idx slab.Idx) string {
	if idx == c.rootIdx {
		return c.root
	}
	var comps []string
	cur := idx
	for cur != c.rootIdx && cur != slab.None {
		n, ok := c.slab.Get(cur)
		if !ok {
			break
		}
		comps = append(comps, c.pool.String(n.Name))
		cur = n.Parent
	}
	for i, j := 0, len(comps)-1; i < j; i, j = i+1, j-1 {
		comps[i], comps[j] = comps[j], comps[i]
	}
	return filepath.Join(append([]string{c.root}, comps...)...)
}

// backfill stats idx's real path on demand and records the result, used by
// size:/dm:/dc: filters that need metadata a fast walk didn't load.
func (c *SearchCache) backfill(idx slab.Idx) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backfillLocked(idx)
}

func (c *SearchCache) backfillLocked(idx slab.Idx) bool {
	n, ok := c.slab.GetMut(idx)
	if !ok {
		return false
	}
	if n.MetadataLoaded {
		return true
	}
	path := c.pathOfLocked(idx)
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	node := &walk.Node{}
	walk.FillMeta(node, path, info)
	n.Size = node.Size
	n.CTime = node.CTime
	n.MTime = node.MTime
	n.MetadataLoaded = true
	c.slab.Touch(idx)
	return true
}

func (c *SearchCache) tagLookup(idx slab.Idx) ([]string, bool) {
	if c.tags == nil {
		return nil, false
	}
	path := c.pathOfLocked(idx)
	tags, found, err := c.tags.Get(path)
	if err != nil || !found {
		return nil, false
	}
	return tags, true
}

// evalContext builds the eval.Context for the current state, using backfill
// as the Backfill hook. Caller must hold at least a read lock that backfill
// itself knows how to momentarily upgrade, if it mutates.
func (c *SearchCache) evalContext(backfill func(slab.Idx) bool) eval.Context {
	return eval.Context{
		Pool:     c.pool,
		Slab:     c.slab,
		Index:    c.index,
		PathOf:   c.pathOfLocked,
		Tags:     c.tagLookup,
		Backfill: backfill,
	}
}

// backfillUpgrade runs backfillLocked for a search held under RLock: it
// briefly swaps the read lock for the exclusive lock around just that
// node's mutation, then hands the read lock back, so the rest of a
// concurrent Search evaluation never blocks on it (spec §5: "readers
// acquire a shared lock").
func (c *SearchCache) backfillUpgrade(idx slab.Idx) bool {
	c.mu.RUnlock()
	c.mu.Lock()
	ok := c.backfillLocked(idx)
	c.mu.Unlock()
	c.mu.RLock()
	return ok
}

// SortKey picks which field cache.Sort orders by.
type SortKey int

const (
	SortByName SortKey = iota
	SortByPath
	SortBySize
	SortByMTime
	SortByCTime
)

// Sort stably orders indices by key, ascending, tie-broken by slab index
// ascending (spec §4.F "sort ... ties broken by slab index ascending").
func (c *SearchCache) Sort(indices []slab.Idx, key SortKey) []slab.Idx {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]slab.Idx, len(indices))
	copy(out, indices)

	less := func(i, j int) bool {
		a, aok := c.slab.Get(out[i])
		b, bok := c.slab.Get(out[j])
		if !aok || !bok {
			return out[i] < out[j]
		}
		switch key {
		case SortByName:
			na, nb := c.pool.String(a.Name), c.pool.String(b.Name)
			if na != nb {
				return na < nb
			}
		case SortByPath:
			pa, pb := c.pathOfLocked(out[i]), c.pathOfLocked(out[j])
			if pa != pb {
				return pa < pb
			}
		case SortBySize:
			if a.Size != b.Size {
				return a.Size < b.Size
			}
		case SortByMTime:
			if a.MTime != b.MTime {
				return a.MTime < b.MTime
			}
		case SortByCTime:
			if a.CTime != b.CTime {
				return a.CTime < b.CTime
			}
		}
		return out[i] < out[j]
	}
	sort.SliceStable(out, less)
	return out
}

// NodeInfo is the resolved, user-facing view of one result (spec §4.F
// "expand").
type NodeInfo struct {
	Idx            slab.Idx
	Path           string
	Kind           slab.Kind
	Size           uint64
	CTime, MTime   int64
	MetadataLoaded bool
	Tags           []string
}

// Expand resolves path and (optionally) metadata/tags for each index (spec
// §4.F "expand"), backfilling metadata on demand when requested and not
// already loaded.
func (c *SearchCache) Expand(indices []slab.Idx, includeMetadata, includeTags bool) []NodeInfo {
	out := make([]NodeInfo, 0, len(indices))
	for _, idx := range indices {
		if includeMetadata {
			c.backfill(idx)
		}
		c.mu.RLock()
		n, ok := c.slab.Get(idx)
		if !ok {
			c.mu.RUnlock()
			continue
		}
		info := NodeInfo{
			Idx:            idx,
			Path:           c.pathOfLocked(idx),
			Kind:           n.Kind,
			Size:           n.Size,
			CTime:          n.CTime,
			MTime:          n.MTime,
			MetadataLoaded: n.MetadataLoaded,
		}
		if includeTags {
			info.Tags, _ = c.tagLookup(idx)
		}
		c.mu.RUnlock()
		out = append(out, info)
	}
	return out
}
