package namepool

import (
	"regexp"
	"testing"

	"github.com/fastfind/engine/cancel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternDeduplicates(t *testing.T) {
	p := New()
	a := p.Intern("alpha.txt")
	b := p.Intern("alpha.txt")
	c := p.Intern("beta.txt")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "alpha.txt", p.String(a))
}

func TestSearchSubstrCaseInsensitiveByDefault(t *testing.T) {
	p := New()
	p.Intern("Alpha.txt")
	p.Intern("beta.txt")

	tok := cancel.Noop()
	got, ok := p.SearchSubstr("ALPHA", false, tok)
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestSearchPrefixSuffixExact(t *testing.T) {
	p := New()
	n1 := p.Intern("report.pdf")
	n2 := p.Intern("reporting.txt")
	p.Intern("summary.pdf")

	tok := cancel.Noop()

	pref, _ := p.SearchPrefix("report", true, tok)
	assert.Contains(t, pref, n1)
	assert.Contains(t, pref, n2)

	suf, _ := p.SearchSuffix(".pdf", true, tok)
	assert.Contains(t, suf, n1)
	assert.NotContains(t, suf, n2)

	exact, _ := p.SearchExact("report.pdf", true, tok)
	assert.Equal(t, map[Name]struct{}{n1: {}}, exact)
}

func TestSearchRegex(t *testing.T) {
	p := New()
	n1 := p.Intern("invoice_2024.pdf")
	p.Intern("notes.txt")

	re := regexp.MustCompile(`invoice_\d{4}\.pdf`)
	got, ok := p.SearchRegex(re, cancel.Noop())
	require.True(t, ok)
	assert.Equal(t, map[Name]struct{}{n1: {}}, got)
}

func TestLoadNamesRoundTrip(t *testing.T) {
	p := New()
	p.Intern("a")
	p.Intern("b")
	p.Intern("c")

	loaded := LoadNames(p.Names())
	assert.Equal(t, p.Names(), loaded.Names())
	assert.Equal(t, p.Intern("b"), loaded.Intern("b"))
}

func TestScanCancellation(t *testing.T) {
	p := New()
	for i := 0; i < 5000; i++ {
		p.Intern(string(rune('a' + i%26)))
	}
	v := cancel.NextVersion()
	tok := cancel.WithInterval(v, 4)
	_ = cancel.New(cancel.NextVersion()) // supersede immediately

	_, ok := p.SearchSubstr("a", true, tok)
	assert.False(t, ok)
}
