// Package walk implements the Walker (spec §4.E): a parallel, cancellable
// directory traversal producing a tree the cache can fold into the Slab.
// Directory reads go through godirwalk so the directory entry's native
// type is available without an extra stat syscall; only when the caller
// asks for metadata does a leaf get stat'd at all.
package walk

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/karrick/godirwalk"
	"golang.org/x/sync/errgroup"

	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/fslog"
	"github.com/fastfind/engine/slab"
)

// Node is one entry of the tree the Walker produces, before it has been
// folded into the Slab (which needs interned names and parent indices
// assigned by the caller).
type Node struct {
	Name     string
	Kind     slab.Kind
	Size     uint64
	CTime    int64
	MTime    int64
	HasMeta  bool
	Children []*Node // nil for non-directories
}

// Options controls one walk.
type Options struct {
	// IgnoreDirs are absolute path prefixes the walk never descends into
	// (spec §4.E input: "an optional list of directory paths to ignore").
	IgnoreDirs []string
	// NeedMetadata, when true, stats every entry (size/ctime/mtime);
	// otherwise only the walk's starting path is stat'd, and entries below
	// it are classified from their directory-entry type alone.
	NeedMetadata bool
	// Concurrency bounds the number of in-flight directory reads and leaf
	// stats; 0 means runtime.NumCPU().
	Concurrency int
}

// Counters exposes the progress counters the spec calls out (§4.E.4):
// files_seen / dirs_seen, suitable for a caller's progress reporting.
type Counters struct {
	FilesSeen atomic.Int64
	DirsSeen  atomic.Int64
}

// Walk performs the traversal rooted at root and returns the resulting
// tree, or (nil, false) if cancelled. The root node's Name is the base
// name of root.
func Walk(ctx context.Context, root string, opts Options, tok cancel.Token, counters *Counters) (*Node, bool) {
	if counters == nil {
		counters = &Counters{}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	w := &walker{
		opts:      opts,
		tok:       tok,
		counters:  counters,
		semaphore: make(chan struct{}, concurrency),
	}

	node, ok := w.walkPath(ctx, root)
	if !ok {
		return nil, false
	}
	return node, true
}

type walker struct {
	opts      Options
	tok       cancel.Token
	counters  *Counters
	semaphore chan struct{}
}

func (w *walker) ignored(path string) bool {
	for _, ign := range w.opts.IgnoreDirs {
		if path == ign || strings.HasPrefix(path, ign+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// walkPath handles step 1 of spec §4.E: symlink_metadata, NotFound skip,
// Interrupted retry, minimal node on other errors.
func (w *walker) walkPath(ctx context.Context, path string) (*Node, bool) {
	if w.tok.Sparse() {
		return nil, false
	}

	info, err := lstatRetryingInterrupted(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, true // skip: caller drops a nil/ok child
		}
		fslog.Warnf(path, "walk: stat failed, recording minimal node: %v", err)
		return &Node{Name: filepath.Base(path), Kind: slab.Unknown}, true
	}

	name := filepath.Base(path)
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		// Symlinks are recorded but never followed (spec §4.E.3).
		w.counters.FilesSeen.Add(1)
		return &Node{Name: name, Kind: slab.Symlink, Size: uint64(info.Size())}, true
	case info.IsDir():
		w.counters.DirsSeen.Add(1)
		return w.walkDir(ctx, path, name)
	default:
		w.counters.FilesSeen.Add(1)
		n := &Node{Name: name, Kind: slab.File}
		if w.opts.NeedMetadata {
			FillMeta(n, path, info)
		}
		return n, true
	}
}

func (w *walker) walkDir(ctx context.Context, path, name string) (*Node, bool) {
	if w.ignored(path) {
		return &Node{Name: name, Kind: slab.Directory}, true
	}

	w.semaphore <- struct{}{}
	entries, err := godirwalk.ReadDirents(path, nil)
	<-w.semaphore
	if err != nil {
		fslog.Warnf(path, "walk: readdir failed: %v", err)
		return &Node{Name: name, Kind: slab.Directory}, true
	}
	entries.Sort() // determinism (spec §4.E.6)

	children := make([]*Node, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		i, entry := i, entry
		if entry.IsSymlink() {
			// discriminate without an extra stat: godirwalk's Dirent
			// already told us this is a symlink.
			children[i] = &Node{Name: entry.Name(), Kind: slab.Symlink}
			w.counters.FilesSeen.Add(1)
			continue
		}
		childPath := filepath.Join(path, entry.Name())
		g.Go(func() error {
			if w.tok.Sparse() {
				return errCancelled
			}

			if entry.IsDir() {
				// native type known, no stat needed to tell file vs dir.
				// No slot is held across the descent, so nested reads
				// never wait on their ancestors.
				w.counters.DirsSeen.Add(1)
				child, ok := w.walkDirFast(gctx, childPath, entry.Name())
				if !ok {
					return errCancelled
				}
				children[i] = child
				return nil
			}

			w.semaphore <- struct{}{}
			defer func() { <-w.semaphore }()
			w.counters.FilesSeen.Add(1)
			child := &Node{Name: entry.Name(), Kind: slab.File}
			if w.opts.NeedMetadata {
				info, err := os.Lstat(childPath)
				if err == nil {
					FillMeta(child, childPath, info)
				}
			}
			children[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false
	}

	// drop nils left by entries that vanished mid-walk (NotFound skip)
	out := children[:0]
	for _, c := range children {
		if c != nil {
			out = append(out, c)
		}
	}
	return &Node{Name: name, Kind: slab.Directory, Children: out}, true
}

// walkDirFast recurses into a directory already known (via Dirent) to be a
// directory, avoiding the symlink_metadata re-check walkPath would do.
func (w *walker) walkDirFast(ctx context.Context, path, name string) (*Node, bool) {
	if w.tok.Sparse() {
		return nil, false
	}
	return w.walkDir(ctx, path, name)
}

var errCancelled = &cancelledErr{}

type cancelledErr struct{}

func (*cancelledErr) Error() string { return "walk cancelled" }

func lstatRetryingInterrupted(path string) (os.FileInfo, error) {
	for {
		info, err := os.Lstat(path)
		if err == nil {
			return info, nil
		}
		if pathErr, ok := err.(*os.PathError); ok && pathErr.Err == syscall.EINTR {
			continue // Interrupted: retry (spec §4.E.1)
		}
		return nil, err
	}
}

// SortChildren sorts a node's children by name in place; used by tests and
// by callers that build nodes outside Walk.
func SortChildren(n *Node) {
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })
}
