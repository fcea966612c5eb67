package eval

import (
	"path"
	"strings"

	"github.com/fastfind/engine/query"
	"github.com/fastfind/engine/slab"
)

// matchPathToken implements spec §4.G "token matching inside paths" for one
// node, recording highlight ranges on success.
func (e *evaluator) matchPathToken(idx slab.Idx, tok *query.PathToken) bool {
	p := e.ctx.PathOf(idx)
	cs := e.opts.CaseSensitive

	if len(tok.Segments) == 1 && tok.Segments[0].Kind == query.SegSubstring && !strings.Contains(tok.Raw, "/") {
		seg := tok.Segments[0]
		hay, needle := foldCase(p, cs), foldCase(seg.Text, cs)
		if seg.Wildcard {
			if ok, _ := path.Match(needle, hay); ok {
				e.addHighlight(idx, 0, len(p))
				return true
			}
			return false
		}
		if off := strings.Index(hay, needle); off >= 0 {
			e.addHighlight(idx, off, len(seg.Text))
			return true
		}
		return false
	}

	comps, offsets := splitPathComponents(p)
	start, length, ok := matchSegmentsFrom(comps, tok.Segments, cs)
	if !ok {
		return false
	}
	if length > 0 {
		e.addHighlight(idx, offsets[start], offsets[start+length-1]+len(comps[start+length-1])-offsets[start])
	}
	return true
}

func (e *evaluator) addHighlight(idx slab.Idx, offset, length int) {
	if length <= 0 {
		return
	}
	e.highlights[idx] = mergeHighlight(e.highlights[idx], Highlight{Offset: offset, Length: length})
}

func mergeHighlight(existing []Highlight, h Highlight) []Highlight {
	for i, e := range existing {
		if h.Offset <= e.Offset+e.Length && e.Offset <= h.Offset+h.Length {
			lo := min(e.Offset, h.Offset)
			hi := max(e.Offset+e.Length, h.Offset+h.Length)
			existing[i] = Highlight{Offset: lo, Length: hi - lo}
			return existing
		}
	}
	return append(existing, h)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// splitPathComponents splits p on '/' and returns each component alongside
// its byte offset within p, for highlight reconstruction.
func splitPathComponents(p string) ([]string, []int) {
	var comps []string
	var offsets []int
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				comps = append(comps, p[start:i])
				offsets = append(offsets, start)
			}
			start = i + 1
		}
	}
	return comps, offsets
}

// matchSegmentsFrom finds a contiguous (modulo "**" gaps) run of components
// satisfying segs in order, trying every starting position. Returns the
// start index and the number of components the match spans (including any
// a "**" skipped), for highlighting.
func matchSegmentsFrom(comps []string, segs []query.Segment, caseSensitive bool) (start, spanComponents int, ok bool) {
	for s := 0; s <= len(comps); s++ {
		if end, matched := segMatch(comps, s, segs, 0, caseSensitive); matched {
			return s, end - s, true
		}
	}
	return 0, 0, false
}

func segMatch(comps []string, ci int, segs []query.Segment, si int, caseSensitive bool) (int, bool) {
	if si == len(segs) {
		return ci, true
	}
	seg := segs[si]
	if seg.Kind == query.SegGlobstar {
		for skip := 0; ci+skip <= len(comps); skip++ {
			if end, ok := segMatch(comps, ci+skip, segs, si+1, caseSensitive); ok {
				return end, true
			}
		}
		return ci, false
	}
	if ci >= len(comps) {
		return ci, false
	}
	if !matchOneSegment(comps[ci], seg, caseSensitive) {
		return ci, false
	}
	return segMatch(comps, ci+1, segs, si+1, caseSensitive)
}

func matchOneSegment(comp string, seg query.Segment, caseSensitive bool) bool {
	if seg.Wildcard {
		ok, _ := path.Match(foldCase(seg.Text, caseSensitive), foldCase(comp, caseSensitive))
		return ok
	}
	c, t := foldCase(comp, caseSensitive), foldCase(seg.Text, caseSensitive)
	switch seg.Kind {
	case query.SegPrefix:
		return strings.HasPrefix(c, t)
	case query.SegSuffix:
		return strings.HasSuffix(c, t)
	case query.SegExact:
		return c == t
	case query.SegSubstring:
		return strings.Contains(c, t)
	}
	return false
}

func foldCase(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}
