package query

import (
	"strings"
	"time"

	"github.com/fastfind/engine/fserrors"
)

// DateOp is a dm:/dc: comparison operator.
type DateOp int

const (
	DateEq DateOp = iota
	DateLt
	DateLe
	DateGt
	DateGe
	DateRange
	DateKeyword
)

// DateExpr is a parsed dm:/dc: constraint. Keywords are resolved against a
// caller-supplied "now" at evaluation time
// (query.Options.Now), not time.Now(), so evaluation stays deterministic.
type DateExpr struct {
	Op      DateOp
	Keyword string // set when Op == DateKeyword
	At      time.Time
	From, To time.Time
}

var dateKeywords = map[string]bool{
	"today": true, "yesterday": true, "thisweek": true, "lastweek": true,
	"thismonth": true, "lastmonth": true, "thisyear": true, "lastyear": true,
	"pastweek": true, "pastmonth": true, "pastyear": true,
}

var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
	"01-02-2006", "01/02/2006",
	"02-01-2006", "02/01/2006",
}

func parseAbsoluteDate(pos int, s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fserrors.Atf(fserrors.QuerySyntax, pos, "dm/dc: unrecognized date %q", s)
}

// parseDateExpr parses the argument of a dm:/dc: filter.
func parseDateExpr(pos int, arg string) (*DateExpr, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fserrors.At(fserrors.QuerySyntax, pos, "dm/dc: requires an argument")
	}
	if dateKeywords[strings.ToLower(arg)] {
		return &DateExpr{Op: DateKeyword, Keyword: strings.ToLower(arg)}, nil
	}
	if i := strings.Index(arg, ".."); i >= 0 {
		from, err := parseAbsoluteDate(pos, strings.TrimSpace(arg[:i]))
		if err != nil {
			return nil, err
		}
		to, err := parseAbsoluteDate(pos, strings.TrimSpace(arg[i+2:]))
		if err != nil {
			return nil, err
		}
		return &DateExpr{Op: DateRange, From: from, To: to}, nil
	}
	for _, c := range []struct {
		prefix string
		op     DateOp
	}{
		{"<=", DateLe}, {">=", DateGe}, {"<", DateLt}, {">", DateGt},
	} {
		if strings.HasPrefix(arg, c.prefix) {
			t, err := parseAbsoluteDate(pos, strings.TrimSpace(arg[len(c.prefix):]))
			if err != nil {
				return nil, err
			}
			return &DateExpr{Op: c.op, At: t}, nil
		}
	}
	if t, err := parseAbsoluteDate(pos, arg); err == nil {
		return &DateExpr{Op: DateEq, At: t}, nil
	}
	// Not an operator expression, a range, or an absolute date: treat it as
	// a keyword candidate without validating it against the known set here
	// (spec §4.H edge case: a syntactically acceptable argument the
	// evaluator doesn't support, e.g. "dm:accessed", must be rejected by
	// eval, not guessed away by the parser).
	return &DateExpr{Op: DateKeyword, Keyword: strings.ToLower(arg)}, nil
}

// KnownKeyword reports whether keyword is one dm:/dc: resolves via
// resolveKeyword, letting eval distinguish a supported keyword from one
// that only looked syntactically valid.
func KnownKeyword(keyword string) bool {
	return dateKeywords[keyword]
}

// resolveKeyword turns a keyword into a half-open [from, to) window,
// anchored at now.
func resolveKeyword(keyword string, now time.Time) (from, to time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	weekday := int(today.Weekday())

	switch keyword {
	case "today":
		return today, today.AddDate(0, 0, 1)
	case "yesterday":
		return today.AddDate(0, 0, -1), today
	case "thisweek":
		start := today.AddDate(0, 0, -weekday)
		return start, start.AddDate(0, 0, 7)
	case "lastweek":
		start := today.AddDate(0, 0, -weekday-7)
		return start, start.AddDate(0, 0, 7)
	case "pastweek":
		return today.AddDate(0, 0, -7), today.AddDate(0, 0, 1)
	case "thismonth":
		start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	case "lastmonth":
		start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, 0)
	case "pastmonth":
		return today.AddDate(0, -1, 0), today.AddDate(0, 0, 1)
	case "thisyear":
		start := time.Date(y, 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0)
	case "lastyear":
		start := time.Date(y-1, 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0)
	case "pastyear":
		return today.AddDate(-1, 0, 0), today.AddDate(0, 0, 1)
	}
	return today, today.AddDate(0, 0, 1)
}

// Match reports whether t (unix seconds) satisfies the constraint, with now
// as the deterministic "current time" for keyword/relative resolution.
func (e *DateExpr) Match(t int64, now time.Time) bool {
	when := time.Unix(t, 0).UTC()
	switch e.Op {
	case DateEq:
		return !when.Before(e.At) && when.Before(e.At.AddDate(0, 0, 1))
	case DateLt:
		return when.Before(e.At)
	case DateLe:
		return !when.After(e.At)
	case DateGt:
		return when.After(e.At)
	case DateGe:
		return !when.Before(e.At)
	case DateRange:
		return !when.Before(e.From) && !when.After(e.To)
	case DateKeyword:
		from, to := resolveKeyword(e.Keyword, now)
		return !when.Before(from) && when.Before(to)
	}
	return false
}
