package pattern

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	p := FromDims(2, 3)
	assert.True(t, p.IsValid())

	// broadcast axis: dim > 1 with stride 0 is allowed
	b := mustNew(t, []int{4, 2}, []int{0, 1}, 0)
	assert.True(t, b.IsValid())

	// hand-built violations, bypassing New
	var q Pattern
	q.setUnusedAxes()
	q.numAxes = 1
	q.dims[0] = 1
	q.strides[0] = 3 // dim-1 axis must have stride 0
	assert.False(t, q.IsValid())

	q = FromDims(2, 3)
	q.strides[1] = 1 // duplicate stride on two dim>1 axes
	assert.False(t, q.IsValid())

	q = FromDims(2)
	q.dims[3] = 2 // unused slot must stay dim=1/stride=0
	assert.False(t, q.IsValid())
}

func TestIsCanonical(t *testing.T) {
	p := FromDims(2, 3, 4)
	assert.True(t, p.IsCanonical())

	q := p
	Transpose(0, 2, &q)
	assert.False(t, q.IsCanonical())
	SortAxes(&q)
	assert.True(t, q.IsCanonical())

	// magnitude ordering ignores sign
	n := mustNew(t, []int{2, 3}, []int{-1, 2}, 5)
	assert.False(t, n.IsCanonical())
}

func TestSortAxesPreservesSet(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 300; trial++ {
		p := randomPattern(rng)
		before := memorySet(&p)
		q := p
		SortAxes(&q)
		assert.True(t, q.IsCanonical(), "not canonical after sort: %v", &q)
		assert.Equal(t, before, memorySet(&q))
		assert.Equal(t, p.Offset(), q.Offset())
		require.Equal(t, ComputePatternCode(&q), q.Code())
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for trial := 0; trial < 100; trial++ {
		p := randomPattern(rng)
		CanonicalizePattern(&p)
		q := p
		CanonicalizePattern(&q)
		assert.True(t, p.Equal(&q))
	}
}

func TestHasNormalizedPositiveStrides(t *testing.T) {
	p := FromDims(2, 3)
	assert.True(t, p.HasNormalizedPositiveStrides())

	n := mustNew(t, []int{3}, []int{-1}, 2)
	assert.False(t, n.HasNormalizedPositiveStrides())
}

func TestIsRegular(t *testing.T) {
	p := FromDims(2, 3, 4)
	assert.True(t, p.IsRegular())

	// gappy but regular: each axis's run fits under the next stride
	g := mustNew(t, []int{2, 2, 2}, []int{8, 4, 1}, 0)
	assert.True(t, g.IsRegular())

	// self-overlapping: stride 2 axis interrupts the stride 1 run
	o := mustNew(t, []int{2, 3}, []int{2, 1}, 0)
	assert.False(t, o.IsRegular())
}

func TestNormalized(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 400; trial++ {
		p := randomPattern(rng)
		q := normalized(&p)

		assert.Equal(t, memorySet(&p), memorySet(&q), "set changed for %v -> %v", &p, &q)
		require.True(t, q.IsValid(), "normalized output invalid: %v", &q)

		min, _ := q.MemoryIndexRange()
		assert.Equal(t, q.Offset(), min)
		for raxis := 0; raxis < q.numAxes; raxis++ {
			assert.Greater(t, q.dims[raxis], 1)
			assert.Positive(t, q.strides[raxis])
			if raxis > 0 {
				assert.Greater(t, q.strides[raxis], q.strides[raxis-1])
			}
		}
	}
}

func TestNormalizedMergesSignFlips(t *testing.T) {
	// strides +2 and -2 fold into a single stride-2 axis
	p := mustNew(t, []int{3, 4}, []int{-2, 2}, 10)
	q := normalized(&p)
	assert.Equal(t, 1, q.NumAxes())
	assert.Equal(t, []int{6}, q.Dims())
	assert.Equal(t, []int{2}, q.Strides())
	assert.Equal(t, memorySet(&p), memorySet(&q))
}
