package cache

import (
	"github.com/fastfind/engine/cancel"
	"github.com/fastfind/engine/eval"
	"github.com/fastfind/engine/query"
)

// SearchOptions mirrors spec §6.3's search options, plus the deterministic
// "now" eval needs for dm:/dc: keyword resolution.
type SearchOptions struct {
	CaseSensitive bool
	MaxResults    uint32 // 0 means unlimited
	Now           query.Options
}

// Search parses queryString and evaluates it against the current cache
// state (spec §4.F "search"), taking a shared read lock for the duration of
// evaluation so concurrent searches never serialize against each other
// (spec §5: "many readers for queries (parallel, read-only)"). A
// size:/dm:/dc: filter's on-demand backfill still needs to mutate the Slab
// mid-evaluation; backfillUpgrade handles that by briefly swapping the read
// lock for the exclusive lock around just the node being backfilled, the
// same narrow-upgrade pattern Expand uses. tok should be minted fresh per
// call (cancel.New(cancel.NextVersion())) so an earlier in-flight search is
// superseded.
func (c *SearchCache) Search(queryString string, opts SearchOptions, tok cancel.Token) (*eval.Outcome, error) {
	expr, err := query.Parse(queryString)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	ctx := c.evalContext(c.backfillUpgrade)

	qopts := opts.Now
	qopts.CaseSensitive = opts.CaseSensitive

	outcome, err := eval.Evaluate(expr, ctx, qopts, tok)
	if err != nil {
		return nil, err
	}
	if opts.MaxResults > 0 && uint32(len(outcome.Nodes)) > opts.MaxResults {
		outcome.Nodes = outcome.Nodes[:opts.MaxResults]
	}
	return outcome, nil
}
