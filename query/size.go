package query

import (
	"strconv"
	"strings"

	"github.com/fastfind/engine/config"
	"github.com/fastfind/engine/fserrors"
)

// SizeOp is a size: comparison operator.
type SizeOp int

const (
	OpEq SizeOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpRange
	OpClass
)

// SizeClass names a size: keyword bucket (spec §9 Open Question, resolved
// in config.Size*).
type SizeClass int

const (
	ClassEmpty SizeClass = iota
	ClassTiny
	ClassSmall
	ClassMedium
	ClassLarge
	ClassHuge
	ClassGigantic
)

// Bounds returns the inclusive [min, max] byte range a SizeClass covers.
func (c SizeClass) Bounds() (min, max uint64) {
	switch c {
	case ClassEmpty:
		return 0, 0
	case ClassTiny:
		return 0, config.SizeTiny
	case ClassSmall:
		return config.SizeTiny + 1, config.SizeSmall
	case ClassMedium:
		return config.SizeSmall + 1, config.SizeMedium
	case ClassLarge:
		return config.SizeMedium + 1, config.SizeLarge
	case ClassHuge:
		return config.SizeLarge + 1, config.SizeHuge
	default: // ClassGigantic
		return config.SizeHuge + 1, ^uint64(0)
	}
}

// SizeExpr is a parsed size: constraint.
type SizeExpr struct {
	Op          SizeOp
	Value       uint64 // OpEq/Ne/Lt/Le/Gt/Ge
	Min, Max    uint64 // OpRange
	Class       SizeClass // OpClass
}

var sizeKeywords = map[string]SizeClass{
	"empty":    ClassEmpty,
	"tiny":     ClassTiny,
	"small":    ClassSmall,
	"medium":   ClassMedium,
	"large":    ClassLarge,
	"huge":     ClassHuge,
	"gigantic": ClassGigantic,
	"giant":    ClassGigantic,
}

var sizeUnits = map[string]uint64{
	"b": 1,
	"kb": 1024, "kib": 1024,
	"mb": 1024 * 1024, "mib": 1024 * 1024,
	"gb": 1024 * 1024 * 1024, "gib": 1024 * 1024 * 1024,
	"tb": 1024 * 1024 * 1024 * 1024, "tib": 1024 * 1024 * 1024 * 1024,
	"pb": 1024 * 1024 * 1024 * 1024 * 1024, "pib": 1024 * 1024 * 1024 * 1024 * 1024,
}

// parseSizeExpr parses the argument of a size: filter.
func parseSizeExpr(pos int, arg string) (*SizeExpr, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fserrors.At(fserrors.QuerySyntax, pos, "size: requires an argument")
	}
	if class, ok := sizeKeywords[strings.ToLower(arg)]; ok {
		return &SizeExpr{Op: OpClass, Class: class}, nil
	}
	if i := strings.Index(arg, ".."); i >= 0 {
		lo, err := parseSizeValue(pos, arg[:i])
		if err != nil {
			return nil, err
		}
		hi, err := parseSizeValue(pos, arg[i+2:])
		if err != nil {
			return nil, err
		}
		return &SizeExpr{Op: OpRange, Min: lo, Max: hi}, nil
	}
	for _, c := range []struct {
		prefix string
		op     SizeOp
	}{
		{"<=", OpLe}, {">=", OpGe}, {"!=", OpNe}, {"<", OpLt}, {">", OpGt}, {"=", OpEq},
	} {
		if strings.HasPrefix(arg, c.prefix) {
			v, err := parseSizeValue(pos, arg[len(c.prefix):])
			if err != nil {
				return nil, err
			}
			return &SizeExpr{Op: c.op, Value: v}, nil
		}
	}
	v, err := parseSizeValue(pos, arg)
	if err != nil {
		return nil, err
	}
	return &SizeExpr{Op: OpEq, Value: v}, nil
}

func parseSizeValue(pos int, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fserrors.At(fserrors.QuerySyntax, pos, "size: missing numeric value")
	}
	i := len(s)
	for i > 0 && !(s[i-1] >= '0' && s[i-1] <= '9') && s[i-1] != '.' {
		i--
	}
	numPart, unitPart := s[:i], strings.ToLower(strings.TrimSpace(s[i:]))
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fserrors.Atf(fserrors.QuerySyntax, pos, "size: invalid number %q", numPart)
	}
	mult := uint64(1)
	if unitPart != "" {
		u, ok := sizeUnits[unitPart]
		if !ok {
			return 0, fserrors.Atf(fserrors.QuerySyntax, pos, "size: unknown unit %q", unitPart)
		}
		mult = u
	}
	return uint64(n * float64(mult)), nil
}

// Match reports whether size satisfies the constraint.
func (e *SizeExpr) Match(size uint64) bool {
	switch e.Op {
	case OpEq:
		return size == e.Value
	case OpNe:
		return size != e.Value
	case OpLt:
		return size < e.Value
	case OpLe:
		return size <= e.Value
	case OpGt:
		return size > e.Value
	case OpGe:
		return size >= e.Value
	case OpRange:
		return size >= e.Min && size <= e.Max
	case OpClass:
		lo, hi := e.Class.Bounds()
		return size >= lo && size <= hi
	}
	return false
}
