// Package namepool implements NamePool (spec §4.A): a process-lifetime
// interner for path segment names. Two handles compare equal iff their
// underlying bytes are equal; handles remain valid for the process's
// lifetime and are never invalidated by further interning.
package namepool

import (
	"regexp"
	"strings"
	"sync"

	"github.com/fastfind/engine/cancel"
)

// Name is an opaque, comparable handle to an interned byte string. Ids are
// positional, so the zero Name is the handle of a Pool's first interned
// name.
type Name struct {
	id int32
}

// Int32 exposes the handle's positional id, matching the order Names/
// LoadNames use — only meant for the persistence codec (spec §6.2: "name
// encoded as pool-index").
func (n Name) Int32() int32 { return n.id }

// FromInt32 reconstructs a Name from a positional id previously obtained
// via Int32, for the persistence codec's load path.
func FromInt32(id int32) Name { return Name{id: id} }

// Pool is the process-wide (or, for tests, per-instance) string interner.
// The ordered slice of names is what makes substring/prefix/suffix scans a
// deterministic, restartable iteration rather than a hash-scan in arbitrary
// order (spec §4.A design rationale).
type Pool struct {
	mu    sync.RWMutex
	names []string       // id -> name, append-only
	index map[string]Name // name -> id, O(1) intern/exact lookups
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{index: make(map[string]Name)}
}

// Intern returns the handle for name, inserting it if not already present.
// Never invalidates outstanding handles: the backing slice is append-only.
func (p *Pool) Intern(name string) Name {
	p.mu.RLock()
	if n, ok := p.index[name]; ok {
		p.mu.RUnlock()
		return n
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// re-check under write lock: another goroutine may have interned it
	// between the RUnlock above and this Lock.
	if n, ok := p.index[name]; ok {
		return n
	}
	n := Name{id: int32(len(p.names))}
	p.names = append(p.names, name)
	p.index[name] = n
	return n
}

// String returns the bytes behind a handle. Panics if the handle's id is
// out of range for this Pool — a programming bug, not a runtime error,
// matching the spec's treatment of Slab.Remove on a free slot. A handle
// from another Pool whose id is in range is not detected.
func (p *Pool) String(n Name) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.names[n.id]
}

// Len returns the number of distinct interned names.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.names)
}

// Names returns a snapshot copy of all interned names in id order, used by
// the persistence codec (spec §6.2 "NamePool contents: count + names").
func (p *Pool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// LoadNames rebuilds a Pool from an ordered name list (persistence load
// path); ids are assigned by position, matching how Save wrote them.
func LoadNames(names []string) *Pool {
	p := &Pool{
		names: append([]string(nil), names...),
		index: make(map[string]Name, len(names)),
	}
	for i, name := range names {
		p.index[name] = Name{id: int32(i)}
	}
	return p
}

func (p *Pool) scan(tok cancel.Token, match func(string) bool) (map[Name]struct{}, bool) {
	p.mu.RLock()
	names := p.names
	p.mu.RUnlock()

	out := make(map[Name]struct{})
	for i, s := range names {
		if tok.Sparse() {
			return nil, false
		}
		if match(s) {
			out[Name{id: int32(i)}] = struct{}{}
		}
	}
	return out, true
}

// SearchSubstr returns every Name containing needle, or ok=false if
// cancelled mid-scan.
func (p *Pool) SearchSubstr(needle string, caseSensitive bool, tok cancel.Token) (map[Name]struct{}, bool) {
	n := foldCase(needle, caseSensitive)
	return p.scan(tok, func(s string) bool {
		return strings.Contains(foldCase(s, caseSensitive), n)
	})
}

// SearchPrefix returns every Name starting with needle.
func (p *Pool) SearchPrefix(needle string, caseSensitive bool, tok cancel.Token) (map[Name]struct{}, bool) {
	n := foldCase(needle, caseSensitive)
	return p.scan(tok, func(s string) bool {
		return strings.HasPrefix(foldCase(s, caseSensitive), n)
	})
}

// SearchSuffix returns every Name ending with needle.
func (p *Pool) SearchSuffix(needle string, caseSensitive bool, tok cancel.Token) (map[Name]struct{}, bool) {
	n := foldCase(needle, caseSensitive)
	return p.scan(tok, func(s string) bool {
		return strings.HasSuffix(foldCase(s, caseSensitive), n)
	})
}

// SearchExact returns every Name equal to needle: at most one when
// caseSensitive, possibly several case variants otherwise.
func (p *Pool) SearchExact(needle string, caseSensitive bool, tok cancel.Token) (map[Name]struct{}, bool) {
	n := foldCase(needle, caseSensitive)
	return p.scan(tok, func(s string) bool {
		return foldCase(s, caseSensitive) == n
	})
}

// SearchRegex returns every Name matching the compiled pattern. re is
// compiled by the caller (query/eval) so a bad pattern surfaces as
// fserrors.RegexInvalid there rather than here.
func (p *Pool) SearchRegex(re *regexp.Regexp, tok cancel.Token) (map[Name]struct{}, bool) {
	return p.scan(tok, re.MatchString)
}

func foldCase(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}
