package query

import (
	"strings"

	"github.com/fastfind/engine/fserrors"
)

// Parse compiles a query string into an Expr tree (spec §4.G). An empty or
// whitespace-only query parses to *Empty.
func Parse(s string) (Expr, error) {
	toks := lex(s)
	if len(toks) == 1 { // just EOF
		return &Empty{}, nil
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, fserrors.Atf(fserrors.QuerySyntax, p.cur().pos, "unexpected %q", p.cur().text)
	}
	return expr, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance()    { p.pos++ }

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOr || p.cur().kind == tokPipe {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for startsAtom(p.cur().kind) {
		if p.cur().kind == tokAnd {
			p.advance()
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func startsAtom(k tokenKind) bool {
	switch k {
	case tokLParen, tokLAngle, tokBang, tokNot, tokWord, tokQuoted, tokAnd:
		return true
	default:
		return false
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur().kind == tokBang || p.cur().kind == tokNot {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{X: x}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Expr, error) {
	tok := p.cur()
	switch tok.kind {
	case tokLParen:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, fserrors.At(fserrors.QuerySyntax, p.cur().pos, "expected ')'")
		}
		p.advance()
		return e, nil
	case tokLAngle:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRAngle {
			return nil, fserrors.At(fserrors.QuerySyntax, p.cur().pos, "expected '>'")
		}
		p.advance()
		return e, nil
	case tokQuoted:
		p.advance()
		return parsePathToken(tok.text, true, tok.pos), nil
	case tokWord:
		p.advance()
		if idx := strings.IndexByte(tok.text, ':'); idx > 0 {
			return parseFilter(tok.text[:idx], tok.text[idx+1:], tok.pos)
		}
		return parsePathToken(tok.text, false, tok.pos), nil
	default:
		return nil, fserrors.Atf(fserrors.QuerySyntax, tok.pos, "unexpected %q", tok.text)
	}
}

func unquote(arg string) string {
	if len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' {
		return arg[1 : len(arg)-1]
	}
	return arg
}

func parseFilter(kindRaw, arg string, pos int) (Expr, error) {
	kind := strings.ToLower(kindRaw)
	f := &Filter{Kind: kind, Raw: arg, Pos: pos}

	switch kind {
	case "file", "folder":
		return f, nil

	case "ext":
		f.Exts = splitList(unquote(arg))
		return f, nil

	case "type":
		exts, ok := resolveTypeCategory(unquote(arg))
		if !ok {
			return nil, fserrors.Atf(fserrors.QuerySyntax, pos, "type: unknown category %q", arg)
		}
		f.Exts = exts
		return f, nil

	case "audio", "video", "doc", "exe":
		category := macroCategory[kind]
		f.Kind = "type"
		f.Exts = typeCategories[category]
		if strings.TrimSpace(arg) != "" {
			f.Residue = parsePathToken(unquote(arg), false, pos)
		}
		return f, nil

	case "parent", "infolder", "nosubfolders":
		f.Path = unquote(arg)
		return f, nil

	case "size":
		sz, err := parseSizeExpr(pos, unquote(arg))
		if err != nil {
			return nil, err
		}
		f.Size = sz
		return f, nil

	case "dm", "dc":
		de, err := parseDateExpr(pos, unquote(arg))
		if err != nil {
			return nil, err
		}
		f.Date = de
		return f, nil

	case "regex":
		f.Regex = unquote(arg)
		if f.Regex == "" {
			return nil, fserrors.At(fserrors.QuerySyntax, pos, "regex: requires a pattern")
		}
		return f, nil

	case "content":
		f.Content = unquote(arg)
		if f.Content == "" {
			return nil, fserrors.At(fserrors.QuerySyntax, pos, "content: rejects an empty needle")
		}
		return f, nil

	case "tag":
		f.Tags = splitList(unquote(arg))
		if len(f.Tags) == 0 {
			return nil, fserrors.At(fserrors.QuerySyntax, pos, "tag: requires at least one name")
		}
		return f, nil

	default:
		// Syntactically a filter, but not one this parser recognizes at
		// all: kept as Raw so eval can surface it as UnsupportedFilter
		// rather than the parser guessing (spec §7: "parser errors are
		// reported, never guessed" pairs with "evaluator ... must reject").
		return f, nil
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(p, "."))
		if p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
