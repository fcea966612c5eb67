package query

import "strings"

// parsePathToken splits a bareword/quoted token into path segments per
// spec §4.G "token matching inside paths":
//   - no slash at all: one SegSubstring segment over the whole token.
//   - leading '/name': prefix segment.
//   - trailing 'name/': suffix segment.
//   - both: exact segment.
//   - internal segments (between slashes): exact.
//   - a segment that is exactly "**" becomes SegGlobstar.
//   - '*'/'?' inside any segment's text mark it Wildcard.
//   - quoted tokens never get wildcard expansion, even if they contain
//     '*'/'?'.
func parsePathToken(raw string, quoted bool, pos int) *PathToken {
	if !strings.Contains(raw, "/") {
		return &PathToken{
			Raw: raw, Quoted: quoted, Pos: pos,
			Segments: []Segment{substringSegment(raw, quoted)},
		}
	}

	hasLeadingSlash := strings.HasPrefix(raw, "/")
	hasTrailingSlash := strings.HasSuffix(raw, "/")
	trimmed := strings.Trim(raw, "/")
	parts := strings.Split(trimmed, "/")

	var segs []Segment
	for i, part := range parts {
		if part == "**" {
			segs = append(segs, Segment{Kind: SegGlobstar})
			continue
		}
		kind := SegExact
		switch {
		case len(parts) == 1 && hasLeadingSlash && !hasTrailingSlash:
			kind = SegPrefix
		case len(parts) == 1 && hasTrailingSlash && !hasLeadingSlash:
			kind = SegSuffix
		case i == 0 && !hasLeadingSlash:
			// token started mid-component ("a/b"): the first piece is a
			// substring constraint at its position, not a full exact
			// component match.
			kind = SegSubstring
		case i == len(parts)-1 && !hasTrailingSlash:
			kind = SegSubstring
		}
		segs = append(segs, Segment{Kind: kind, Text: part, Wildcard: !quoted && hasWildcard(part)})
	}
	return &PathToken{Raw: raw, Quoted: quoted, Pos: pos, Segments: segs}
}

func substringSegment(text string, quoted bool) Segment {
	return Segment{Kind: SegSubstring, Text: text, Wildcard: !quoted && hasWildcard(text)}
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}
