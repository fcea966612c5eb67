package fserrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "QuerySyntax", QuerySyntax.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}

func TestIs(t *testing.T) {
	err := At(QuerySyntax, 4, "unexpected token")
	assert.True(t, Is(err, QuerySyntax))
	assert.False(t, Is(err, IoFailure))
	assert.False(t, Is(plainError{}, QuerySyntax))
}

type plainError struct{}

func (plainError) Error() string { return "plain" }

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(IoFailure, nil))
}
