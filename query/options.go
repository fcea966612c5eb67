package query

import "time"

// Options are parse/evaluation-time parameters threaded through dm:/dc:
// resolution and case folding (spec §6.3 search options plus the
// deterministic-now expansion of §4.G).
type Options struct {
	CaseSensitive bool
	// Now anchors dm:/dc: keyword resolution; zero means time.Now().
	Now time.Time
}

// Resolve fills in defaults (time.Now() for a zero Now), returning a copy
// safe to pass around.
func (o Options) Resolve() Options {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}
