package cancel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNotCancelledUntilSuperseded(t *testing.T) {
	v := NextVersion()
	tok := New(v)
	assert.False(t, tok.Cancelled())

	_ = New(NextVersion())
	assert.True(t, tok.Cancelled())
}

func TestNoopNeverCancelled(t *testing.T) {
	tok := Noop()
	assert.False(t, tok.Cancelled())
	_ = New(NextVersion())
	assert.False(t, tok.Cancelled())
}

func TestSparseSamplesOnInterval(t *testing.T) {
	v := NextVersion()
	tok := WithInterval(v, 4)

	// Supersede immediately; the first 3 Sparse() calls should not yet
	// observe it because they fall outside the sampling interval.
	_ = New(NextVersion())

	assert.False(t, tok.Sparse()) // call 1
	assert.False(t, tok.Sparse()) // call 2
	assert.False(t, tok.Sparse()) // call 3
	assert.True(t, tok.Sparse())  // call 4: sampled, observes cancellation
}

func TestIndependentTokensDoNotShareCounters(t *testing.T) {
	v1 := NextVersion()
	a := WithInterval(v1, 2)
	v2 := NextVersion()
	b := WithInterval(v2, 2)

	assert.False(t, a.Sparse())
	assert.False(t, b.Sparse())
	// a is now superseded by v2 (and whatever New(v2) triggered);
	// sampled on the 2nd call.
	assert.True(t, a.Sparse())
	assert.False(t, b.Sparse())
}
