package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastable(t *testing.T) {
	a := FromDims(2, 3)
	b := FromDims(3)
	c := FromDims(2, 1)
	d := FromDims(4)
	s := Scalar(0)

	assert.True(t, Broadcastable(&a, &b)) // right-aligned: 3 against (2,3)
	assert.True(t, Broadcastable(&a, &c))
	assert.True(t, Broadcastable(&a, &s)) // a scalar broadcasts anywhere
	assert.False(t, Broadcastable(&a, &d))
	assert.True(t, Broadcastable(&b, &c)) // (3) vs (2,1): both pad/expand
}

func TestBroadcastableNonReducing(t *testing.T) {
	a := FromDims(2, 3)
	c := FromDims(2, 1)

	// c may receive a's broadcast but not the reverse
	assert.True(t, BroadcastableNonReducing(&c, &a))
	assert.False(t, BroadcastableNonReducing(&a, &c))
	assert.True(t, BroadcastableNonReducing(&a, &a))
}

func TestBroadcastable3(t *testing.T) {
	a := FromDims(2, 3)
	b := FromDims(3)
	c := FromDims(2, 1)
	d := FromDims(4)

	assert.True(t, Broadcastable3(&a, &b, &c))
	assert.False(t, Broadcastable3(&a, &b, &d))

	// the output operand must be full-size on every axis
	assert.True(t, Broadcastable3NonReducing(&b, &c, &a))
	assert.False(t, Broadcastable3NonReducing(&a, &b, &c))
}

func TestSameDim(t *testing.T) {
	a := FromDims(2, 3)
	b := mustNew(t, []int{2, 3}, []int{1, 2}, 9)
	c := FromDims(3, 2)

	assert.True(t, SameDim(&a, &b)) // dims only; strides and offset differ
	assert.False(t, SameDim(&a, &c))

	// implicit left padding: (1, 3) and (3) have the same dims
	p := FromDims(1, 3)
	q := FromDims(3)
	assert.True(t, SameDim(&p, &q))
	assert.True(t, SameDim3(&p, &q, &q))
	assert.False(t, SameDim3(&p, &q, &c))
}
