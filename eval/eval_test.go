package eval

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/nameindex"
	"github.com/fastfind/engine/namepool"
	"github.com/fastfind/engine/query"
	"github.com/fastfind/engine/slab"
)

// fixture builds a tiny in-memory tree:
//
//	/root
//	  /root/docs
//	    /root/docs/report.txt
//	    /root/docs/notes.md
//	  /root/photo.jpg
//
// and returns a ready-to-use Context plus each node's index by name.
type fixture struct {
	pool  *namepool.Pool
	slab  *slab.Slab
	index *nameindex.Index
	paths map[slab.Idx]string
}

func newFixture(t *testing.T) (*fixture, map[string]slab.Idx) {
	t.Helper()
	f := &fixture{
		pool:  namepool.New(),
		slab:  slab.New(),
		index: nameindex.New(),
		paths: make(map[slab.Idx]string),
	}
	byName := make(map[string]slab.Idx)

	insert := func(name, path string, kind slab.Kind, parent slab.Idx, size uint64, mtime, ctime int64) slab.Idx {
		n := f.pool.Intern(name)
		idx := f.slab.Insert(slab.FileNode{
			Name: n, Parent: parent, Kind: kind, Size: size,
			MTime: mtime, CTime: ctime, MetadataLoaded: true,
		})
		f.index.Add(n, idx)
		f.paths[idx] = path
		byName[name] = idx
		return idx
	}

	root := insert("root", "/root", slab.Directory, slab.None, 0, 0, 0)
	docs := insert("docs", "/root/docs", slab.Directory, root, 0, 0, 0)
	insert("report.txt", "/root/docs/report.txt", slab.File, docs, 1024, 1700000000, 1700000000)
	insert("notes.md", "/root/docs/notes.md", slab.File, docs, 200, 1600000000, 1600000000)
	insert("photo.jpg", "/root/photo.jpg", slab.File, root, 5_000_000, 1650000000, 1650000000)

	return f, byName
}

func (f *fixture) context() Context {
	return Context{
		Pool:  f.pool,
		Slab:  f.slab,
		Index: f.index,
		PathOf: func(idx slab.Idx) string {
			return f.paths[idx]
		},
	}
}

func mustParse(t *testing.T, s string) query.Expr {
	t.Helper()
	e, err := query.Parse(s)
	require.NoError(t, err)
	return e
}

func namesOf(t *testing.T, f *fixture, idxs []slab.Idx) []string {
	t.Helper()
	var out []string
	for _, idx := range idxs {
		n, ok := f.slab.Get(idx)
		require.True(t, ok)
		out = append(out, f.pool.String(n.Name))
	}
	return out
}

func TestEvaluateEmptyReturnsEverything(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(mustParse(t, ""), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	require.True(t, out.Ok)
	assert.Len(t, out.Nodes, 5)
}

func TestEvaluateSubstringMatchesByName(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(mustParse(t, "report"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	require.True(t, out.Ok)
	assert.ElementsMatch(t, []string{"report.txt"}, namesOf(t, f, out.Nodes))
}

func TestEvaluateAndNarrows(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(mustParse(t, "ext:txt notes"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	require.True(t, out.Ok)
	assert.Empty(t, out.Nodes, "report.txt doesn't match 'notes' and notes.md isn't .txt")
}

func TestEvaluateOrUnions(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(mustParse(t, "report OR photo"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	require.True(t, out.Ok)
	assert.ElementsMatch(t, []string{"report.txt", "photo.jpg"}, namesOf(t, f, out.Nodes))
}

func TestEvaluateNotExcludes(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(mustParse(t, "ext:txt !report"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	require.True(t, out.Ok)
	assert.Empty(t, out.Nodes)

	out, err = Evaluate(mustParse(t, "!photo"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	require.True(t, out.Ok)
	assert.ElementsMatch(t, []string{"root", "docs", "report.txt", "notes.md"}, namesOf(t, f, out.Nodes))
}

func TestEvaluateFileFolderFilters(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(mustParse(t, "folder:"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"root", "docs"}, namesOf(t, f, out.Nodes))

	out, err = Evaluate(mustParse(t, "file:"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report.txt", "notes.md", "photo.jpg"}, namesOf(t, f, out.Nodes))
}

func TestEvaluateInfolderAndParent(t *testing.T) {
	f, byName := newFixture(t)
	ctx := f.context()

	out, err := Evaluate(&query.Filter{Kind: "infolder", Path: "/root/docs"}, ctx, query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report.txt", "notes.md"}, namesOf(t, f, out.Nodes))

	out, err = Evaluate(&query.Filter{Kind: "parent", Path: "/root/docs"}, ctx, query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report.txt", "notes.md"}, namesOf(t, f, out.Nodes))

	_ = byName
}

func TestEvaluateSizeFilter(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(&query.Filter{Kind: "size", Size: &query.SizeExpr{Op: query.OpGt, Value: 1_000_000}}, f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"photo.jpg"}, namesOf(t, f, out.Nodes))
}

func TestEvaluateDateFilter(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(&query.Filter{Kind: "dm", Date: &query.DateExpr{Op: query.DateLt, At: time.Unix(1650000000, 0)}}, f.context(), query.Options{Now: time.Now()}, cancel.Noop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notes.md"}, namesOf(t, f, out.Nodes))
}

func TestEvaluateUnsupportedDateKeywordErrors(t *testing.T) {
	f, _ := newFixture(t)
	_, err := Evaluate(mustParse(t, "dm:accessed"), f.context(), query.Options{}, cancel.Noop())
	require.Error(t, err)
}

func TestEvaluateInvalidRegexErrors(t *testing.T) {
	f, _ := newFixture(t)
	_, err := Evaluate(&query.Filter{Kind: "regex", Regex: "(("}, f.context(), query.Options{}, cancel.Noop())
	require.Error(t, err)
}

func TestEvaluateRegexMatchesAndHighlights(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(&query.Filter{Kind: "regex", Regex: `^report\..+$`}, f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	require.True(t, out.Ok)
	assert.ElementsMatch(t, []string{"report.txt"}, namesOf(t, f, out.Nodes))
	require.Len(t, out.Nodes, 1)
	hl, ok := out.Highlights[out.Nodes[0]]
	require.True(t, ok)
	require.Len(t, hl, 1)
	assert.Equal(t, len("/root/docs/"), hl[0].Offset)
}

func TestEvaluateContentFilter(t *testing.T) {
	dir := t.TempDir()
	pool := namepool.New()
	s := slab.New()
	idx := nameindex.New()

	name := pool.Intern("needle.txt")
	path := filepath.Join(dir, "needle.txt")
	require.NoError(t, os.WriteFile(path, []byte("some prefix data NEEDLE more data"), 0o644))
	i := s.Insert(slab.FileNode{Name: name, Parent: slab.None, Kind: slab.File, MetadataLoaded: true})
	idx.Add(name, i)

	ctx := Context{
		Pool:  pool,
		Slab:  s,
		Index: idx,
		PathOf: func(slab.Idx) string {
			return path
		},
	}

	out, err := Evaluate(&query.Filter{Kind: "content", Content: "needle"}, ctx, query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.Len(t, out.Nodes, 1, "case-insensitive default should match NEEDLE")

	out, err = Evaluate(&query.Filter{Kind: "content", Content: "needle"}, ctx, query.Options{CaseSensitive: true}, cancel.Noop())
	require.NoError(t, err)
	assert.Empty(t, out.Nodes, "case-sensitive search should not match NEEDLE against needle")
}

func TestEvaluateTagFilterWithoutLookupMatchesNothing(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(&query.Filter{Kind: "tag", Tags: []string{"work"}}, f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.Empty(t, out.Nodes)
}

func TestEvaluateTagFilterWithLookup(t *testing.T) {
	f, byName := newFixture(t)
	ctx := f.context()
	ctx.Tags = func(idx slab.Idx) ([]string, bool) {
		if idx == byName["report.txt"] {
			return []string{"work", "important"}, true
		}
		return nil, false
	}
	out, err := Evaluate(&query.Filter{Kind: "tag", Tags: []string{"work"}}, ctx, query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report.txt"}, namesOf(t, f, out.Nodes))
}

func TestEvaluateTypeMacroResidue(t *testing.T) {
	f, _ := newFixture(t)
	out, err := Evaluate(mustParse(t, "doc:report"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report.txt"}, namesOf(t, f, out.Nodes))
}

func TestEvaluatePushdownMatchesFullScan(t *testing.T) {
	f, _ := newFixture(t)
	pushed, err := Evaluate(mustParse(t, "ext:md"), f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)

	full, err := Evaluate(&query.Not{X: &query.Not{X: mustParse(t, "ext:md")}}, f.context(), query.Options{}, cancel.Noop())
	require.NoError(t, err)

	assert.ElementsMatch(t, pushed.Nodes, full.Nodes, "double negation forces a full-scan path through Not, which must agree with the pushdown path")
}

func TestEvaluateCancelledReturnsNotOk(t *testing.T) {
	f, _ := newFixture(t)
	tok := cancel.WithInterval(cancel.NextVersion(), 1)
	_ = cancel.New(cancel.NextVersion()) // supersedes tok
	out, err := Evaluate(mustParse(t, "report"), f.context(), query.Options{}, tok)
	require.NoError(t, err)
	assert.False(t, out.Ok)
}
