package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSortedPair_OrderIndependent(t *testing.T) {
	assert.Equal(t, MakeSortedPair("b", "a"), MakeSortedPair("a", "b"))
	assert.Equal(t, Pair[string, string]{"a", "b"}, MakeSortedPair("b", "a"))
	assert.Equal(t, Pair[string, string]{"x", "x"}, MakeSortedPair("x", "x"))
}
