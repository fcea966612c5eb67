package eval

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fastfind/engine/query"
	"github.com/fastfind/engine/slab"
)

func (e *evaluator) evalFilter(f *query.Filter, candidates []slab.Idx) ([]slab.Idx, bool) {
	switch f.Kind {
	case "file":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.kindIs(idx, slab.File) })
	case "folder":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.kindIs(idx, slab.Directory) })
	case "ext":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.extIn(idx, f.Exts) })
	case "type":
		return e.evalTypeFilter(f, candidates)
	case "parent":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.parentPath(idx) == f.Path })
	case "infolder":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.underFolder(idx, f.Path) })
	case "nosubfolders":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool {
			return e.kindIs(idx, slab.File) && e.parentPath(idx) == f.Path
		})
	case "size":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.matchSize(idx, f.Size) })
	case "dm":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.matchDate(idx, f.Date, false) })
	case "dc":
		return e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.matchDate(idx, f.Date, true) })
	case "regex":
		return e.evalRegexFilter(f, candidates)
	case "content":
		return e.evalContentFilter(f, candidates)
	case "tag":
		return e.evalTagFilter(f, candidates)
	}
	return nil, true
}

func (e *evaluator) kindIs(idx slab.Idx, k slab.Kind) bool {
	n, ok := e.ctx.Slab.Get(idx)
	return ok && n.Kind == k
}

func nameExt(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func (e *evaluator) extIn(idx slab.Idx, exts []string) bool {
	n, ok := e.ctx.Slab.Get(idx)
	if !ok {
		return false
	}
	got := nameExt(e.ctx.Pool.String(n.Name))
	for _, want := range exts {
		if got == want {
			return true
		}
	}
	return false
}

func (e *evaluator) evalTypeFilter(f *query.Filter, candidates []slab.Idx) ([]slab.Idx, bool) {
	matched, ok := e.filterCandidates(candidates, func(idx slab.Idx) bool { return e.extIn(idx, f.Exts) })
	if !ok || f.Residue == nil {
		return matched, ok
	}
	return e.eval(f.Residue, matched)
}

func (e *evaluator) parentPath(idx slab.Idx) string {
	n, ok := e.ctx.Slab.Get(idx)
	if !ok || n.Parent == slab.None {
		return ""
	}
	return e.ctx.PathOf(n.Parent)
}

func (e *evaluator) underFolder(idx slab.Idx, folder string) bool {
	p := e.ctx.PathOf(idx)
	folder = strings.TrimSuffix(folder, "/")
	return strings.HasPrefix(p, folder+"/")
}

func (e *evaluator) matchSize(idx slab.Idx, sizeExpr *query.SizeExpr) bool {
	n, ok := e.ctx.Slab.Get(idx)
	if !ok {
		return false
	}
	if !n.MetadataLoaded && e.ctx.Backfill != nil {
		e.ctx.Backfill(idx)
		n, ok = e.ctx.Slab.Get(idx)
		if !ok {
			return false
		}
	}
	return sizeExpr.Match(n.Size)
}

func (e *evaluator) matchDate(idx slab.Idx, dateExpr *query.DateExpr, created bool) bool {
	n, ok := e.ctx.Slab.Get(idx)
	if !ok {
		return false
	}
	if !n.MetadataLoaded && e.ctx.Backfill != nil {
		e.ctx.Backfill(idx)
		n, ok = e.ctx.Slab.Get(idx)
		if !ok {
			return false
		}
	}
	t := n.MTime
	if created {
		t = n.CTime
	}
	if t == 0 {
		return false // 0 means the timestamp is unset
	}
	return dateExpr.Match(t, e.opts.Now)
}

func (e *evaluator) evalRegexFilter(f *query.Filter, candidates []slab.Idx) ([]slab.Idx, bool) {
	pattern := f.Regex
	if !e.opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	// Compilability was already checked by validateFilter before evaluation
	// began, so this can't fail here.
	re := regexp.MustCompile(pattern)
	return e.filterCandidates(candidates, func(idx slab.Idx) bool {
		n, ok := e.ctx.Slab.Get(idx)
		if !ok {
			return false
		}
		name := e.ctx.Pool.String(n.Name)
		if re.MatchString(name) {
			if loc := re.FindStringIndex(name); loc != nil {
				// highlights are path offsets; the name is the path's last component
				base := len(e.ctx.PathOf(idx)) - len(name)
				e.addHighlight(idx, base+loc[0], loc[1]-loc[0])
			}
			return true
		}
		return false
	})
}

const contentScanBufSize = 64 * 1024

var errContentScanCancelled = errors.New("eval: content scan cancelled")

// evalContentFilter dispatches one goroutine per candidate file, bounded by
// a semaphore sized to the host's CPU count, since each scan is I/O-bound
// and independent (spec §4.H.3). Results land in an index-addressed slice
// rather than behind a shared mutex, then get collected back in candidate
// order once every goroutine finishes.
func (e *evaluator) evalContentFilter(f *query.Filter, candidates []slab.Idx) ([]slab.Idx, bool) {
	needle := f.Content
	if !e.opts.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	matched := make([]bool, len(candidates))
	sem := make(chan struct{}, runtime.NumCPU())
	var g errgroup.Group
	for i, idx := range candidates {
		i, idx := i, idx
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			if e.tok.Sparse() {
				return errContentScanCancelled
			}
			if e.kindIs(idx, slab.Directory) || e.kindIs(idx, slab.Symlink) {
				return nil
			}
			if scanFileForNeedle(e.ctx.PathOf(idx), needle, e.opts.CaseSensitive) {
				matched[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false
	}

	out := make([]slab.Idx, 0, len(candidates))
	for i, idx := range candidates {
		if matched[i] {
			out = append(out, idx)
		}
	}
	return out, true
}

// scanFileForNeedle streams the file through a sliding window sized to the
// needle so a match spanning two read chunks is never missed (spec §4.H:
// "streams with a sliding buffer to handle multi-chunk matches").
func scanFileForNeedle(path, needle string, caseSensitive bool) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	overlap := len(needle) - 1
	if overlap < 0 {
		overlap = 0
	}
	buf := make([]byte, contentScanBufSize+overlap)
	carry := 0
	for {
		n, err := f.Read(buf[carry:])
		if n > 0 {
			window := buf[:carry+n]
			hay := string(window)
			if !caseSensitive {
				hay = strings.ToLower(hay)
			}
			if strings.Contains(hay, needle) {
				return true
			}
			if carry+n > overlap {
				copy(buf, window[len(window)-overlap:])
				carry = overlap
			} else {
				carry = carry + n
			}
		}
		if err == io.EOF || err != nil {
			return false
		}
	}
}

func (e *evaluator) evalTagFilter(f *query.Filter, candidates []slab.Idx) ([]slab.Idx, bool) {
	if e.ctx.Tags == nil {
		return candidates[:0], true
	}
	return e.filterCandidates(candidates, func(idx slab.Idx) bool {
		tags, ok := e.ctx.Tags(idx)
		if !ok {
			return false
		}
		for _, want := range f.Tags {
			for _, have := range tags {
				if strings.EqualFold(want, have) {
					return true
				}
			}
		}
		return false
	})
}
