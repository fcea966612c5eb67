// Package fsevents adapts OS filesystem notifications into the engine's
// events.Batch shape (spec §4.I input), recursively watching a root with
// fsnotify and coalescing raw notifications over a short debounce window
// before emitting a batch. This is the only package that imports fsnotify
// directly — SearchCache and the rest of the engine stay notification-
// library agnostic.
package fsevents

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fastfind/engine/events"
	"github.com/fastfind/engine/fslog"
)

// Watcher recursively watches a root directory and delivers coalesced
// events.Batch values on Batches().
type Watcher struct {
	root     string
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]events.Flag
	nextID  uint64

	out    chan events.Batch
	done   chan struct{}
	closed chan struct{}
}

// Options controls a Watcher.
type Options struct {
	// Debounce is how long to accumulate raw events before coalescing
	// and emitting a batch. 0 picks a 200ms default.
	Debounce time.Duration
}

// New creates a Watcher rooted at root and starts watching it and every
// subdirectory beneath it. Callers must call Close when done.
func New(root string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		fsw:      fsw,
		pending:  make(map[string]events.Flag),
		out:      make(chan events.Batch, 1),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Batches returns the channel of coalesced event batches. It is closed
// after Close.
func (w *Watcher) Batches() <-chan events.Batch { return w.out }

// Close stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.done)
	<-w.closed
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Vanished between discovery and watch; the caller's next
		// rescan will reconcile it.
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.addRecursive(filepath.Join(dir, entry.Name())); err != nil {
				fslog.Warnf(dir, "fsevents: failed to watch subdirectory %s: %v", entry.Name(), err)
			}
		}
	}
	return nil
}

func (w *Watcher) loop() {
	defer close(w.closed)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			w.flush()
			close(w.out)
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				continue
			}
			w.record(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				continue
			}
			fslog.Errorf(w.root, "fsevents: watcher error: %v", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) record(ev fsnotify.Event) {
	var flag events.Flag
	switch {
	case ev.Has(fsnotify.Create):
		flag = events.Created
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Chmod):
		flag = events.Modified
	case ev.Has(fsnotify.Remove):
		flag = events.Removed
	case ev.Has(fsnotify.Rename):
		flag = events.Renamed
	default:
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				fslog.Warnf(ev.Name, "fsevents: failed to watch new directory: %v", err)
			}
		}
	}

	w.mu.Lock()
	w.pending[ev.Name] |= flag
	w.mu.Unlock()
}

// flush drains the accumulated pending map into one batch on out, dropping
// it if there's nothing to report or the channel is still full (the
// consumer falling behind; the next tick's batch will still carry any
// paths still pending since pending isn't cleared on a failed send).
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make(events.Batch, 0, len(w.pending))
	for path, flag := range w.pending {
		w.nextID++
		batch = append(batch, events.Event{
			Path:    path,
			Flags:   flag,
			EventID: w.nextID,
		})
	}
	w.mu.Unlock()

	select {
	case w.out <- batch:
		w.mu.Lock()
		w.pending = make(map[string]events.Flag)
		w.mu.Unlock()
	default:
		fslog.Warnf(w.root, "fsevents: consumer behind, deferring %d pending paths", len(batch))
	}
}
