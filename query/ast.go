// Package query implements the QueryParser (spec §4.G): a recursive-descent
// parser over the boolean+filter grammar, producing an Expr tree the eval
// package walks. Filter arguments (size/date expressions, extension lists)
// are parsed here too, so a syntactically valid but semantically
// unsupported filter can still be rejected precisely by eval rather than
// silently matching everything.
package query

// Expr is one node of the parsed query tree.
type Expr interface {
	isExpr()
}

// And is the implicit-whitespace / explicit "AND" conjunction.
type And struct {
	Left, Right Expr
}

// Or is the '|' / "OR" disjunction.
type Or struct {
	Left, Right Expr
}

// Not is the '!' / "NOT" negation.
type Not struct {
	X Expr
}

// Empty represents a query with no constraints at all (spec §4.H edge case:
// "An empty query returns all results").
type Empty struct{}

// PathToken is a bareword or quoted token matched against the full path
// (spec §4.G "token matching inside paths").
type PathToken struct {
	Raw      string
	Quoted   bool // suppresses wildcard expansion, preserves whitespace
	Segments []Segment
	Pos      int
}

// SegmentKind classifies how one slash-delimited piece of a token
// constrains a path component.
type SegmentKind int

const (
	// SegSubstring matches anywhere within a path component; a token with
	// no slashes at all collapses to a single substring segment, which is
	// matched anywhere within the joined path.
	SegSubstring SegmentKind = iota
	// SegPrefix matches the start of a path component ("/name").
	SegPrefix
	// SegSuffix matches the end of a path component ("name/").
	SegSuffix
	// SegExact matches a whole path component exactly.
	SegExact
	// SegGlobstar ("**") matches any number of folder segments.
	SegGlobstar
)

// Segment is one constraint derived from slashes/wildcards within a token.
type Segment struct {
	Kind     SegmentKind
	Text     string // literal text (or glob pattern when Wildcard) to match, "" for SegGlobstar
	Wildcard bool   // Text contains '*'/'?' and should be glob-matched, not literal
}

// Filter is a "name:arg" constraint. Kind is the lowercased filter name;
// the typed fields below that belong to Kind are populated (the type macros
// set both Exts and Residue; file:/folder: set none).
type Filter struct {
	Kind string
	Raw  string // the unparsed argument, for error messages and unknown kinds
	Pos  int

	Exts    []string        // ext:, type:, and audio:/video:/doc:/exe: macros
	Path    string          // parent:, infolder:, nosubfolders:
	Size    *SizeExpr       // size:
	Date    *DateExpr       // dm:, dc:
	Regex   string          // regex:
	Content string          // content:
	Tags    []string        // tag:
	Residue Expr            // macro residual token ANDed on (audio:/video:/doc:/exe:)
}

func (*And) isExpr()       {}
func (*Or) isExpr()        {}
func (*Not) isExpr()       {}
func (*Empty) isExpr()     {}
func (*PathToken) isExpr() {}
func (*Filter) isExpr()    {}
