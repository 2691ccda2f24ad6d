package pattern

import (
	"fmt"

	"github.com/pkg/errors"
)

// MaxAxes is the fixed capacity of a Pattern. Patterns with more axes than
// this cannot be represented; callers that need deeper shapes must reshape
// or compress first.
const MaxAxes = 5

// maxDim bounds any single dimension (and any merged dimension product) so
// that per-axis arithmetic stays within int32 range even on 32-bit targets.
const maxDim = 1<<31 - 1

// Pattern describes a strided view of a flat buffer: per-axis
// (dimension, stride) pairs plus a scalar element offset. It carries no
// reference to the buffer itself and is a plain value type; copying a
// Pattern copies the view description.
//
// Axes are stored in "private" reversed order: index 0 is the axis that is
// last in the public, user-facing ordering (the fastest-varying axis of a
// row-major layout). All exported accessors and axis arguments use the
// public ordering; the reversed convention never leaks out of this package.
//
// The memory-index set of a Pattern is the set of integers reachable as
//
//	offset + sum(index[i] * stride[i])  for index[i] in [0, dims[i])
//
// which is the fundamental object the operations in this package reason
// about.
//
// Unused trailing slots (raxis >= numAxes) always hold dim=1, stride=0.
type Pattern struct {
	numAxes int
	dims    [MaxAxes]int
	strides [MaxAxes]int
	offset  int64

	// code caches the classification described in code.go; -1 means stale.
	// It is derived data only and is never a source of truth.
	code int32
}

// New builds a Pattern from public-order dims and strides and an element
// offset. It returns an error if the description is not valid (see
// (*Pattern).IsValid for the rules); use this for data that crosses a trust
// boundary, such as deserialized patterns.
func New(dims, strides []int, offset int64) (Pattern, error) {
	if len(dims) != len(strides) {
		return Pattern{}, errors.Errorf("pattern: %d dims but %d strides", len(dims), len(strides))
	}
	if len(dims) > MaxAxes {
		return Pattern{}, errors.Errorf("pattern: %d axes exceeds the maximum of %d", len(dims), MaxAxes)
	}
	var p Pattern
	p.numAxes = len(dims)
	for axis, d := range dims {
		raxis := p.numAxes - 1 - axis
		p.dims[raxis] = d
		p.strides[raxis] = strides[axis]
	}
	p.setUnusedAxes()
	p.offset = offset
	p.code = -1
	if !p.IsValid() {
		return Pattern{}, errors.Errorf("pattern: dims %v strides %v is not a valid pattern", dims, strides)
	}
	return p, nil
}

// FromDims returns the row-major ("C" layout) Pattern with the given
// public-order dims and offset zero: the innermost axis has stride 1 and
// each outer axis's stride is the product of the dims inside it. Axes with
// dim 1 get stride 0, as validity requires.
//
// Panics if len(dims) > MaxAxes or any dim < 1; those are programming
// errors, not data errors.
func FromDims(dims ...int) Pattern {
	if len(dims) > MaxAxes {
		panic(fmt.Sprintf("pattern: %d axes exceeds the maximum of %d", len(dims), MaxAxes))
	}
	var p Pattern
	p.numAxes = len(dims)
	stride := 1
	for raxis := 0; raxis < p.numAxes; raxis++ {
		d := dims[p.numAxes-1-raxis]
		if d < 1 {
			panic(fmt.Sprintf("pattern: invalid dim %d in %v", d, dims))
		}
		p.dims[raxis] = d
		if d == 1 {
			p.strides[raxis] = 0
		} else {
			p.strides[raxis] = stride
		}
		stride *= d
	}
	p.setUnusedAxes()
	p.code = -1
	return p
}

// Scalar returns the zero-axis Pattern covering exactly {offset}.
func Scalar(offset int64) Pattern {
	var p Pattern
	p.setUnusedAxes()
	p.offset = offset
	p.code = -1
	return p
}

// setUnusedAxes restores the dim=1/stride=0 convention on slots at or
// beyond numAxes.
func (p *Pattern) setUnusedAxes() {
	for raxis := p.numAxes; raxis < MaxAxes; raxis++ {
		p.dims[raxis] = 1
		p.strides[raxis] = 0
	}
}

// NumAxes returns the number of axes.
func (p *Pattern) NumAxes() int { return p.numAxes }

// Offset returns the element offset added to every memory index.
func (p *Pattern) Offset() int64 { return p.offset }

// Dims returns the dims in public order. The slice is freshly allocated.
func (p *Pattern) Dims() []int {
	dims := make([]int, p.numAxes)
	for axis := range dims {
		dims[axis] = p.dims[p.numAxes-1-axis]
	}
	return dims
}

// Strides returns the strides in public order. The slice is freshly
// allocated.
func (p *Pattern) Strides() []int {
	strides := make([]int, p.numAxes)
	for axis := range strides {
		strides[axis] = p.strides[p.numAxes-1-axis]
	}
	return strides
}

// Dim returns the dimension of the given public axis. Negative axes count
// from the end (-1 is the last axis). Panics if the axis is out of range.
func (p *Pattern) Dim(axis int) int {
	return p.dims[p.raxis(axis)]
}

// Stride returns the stride of the given public axis, with the same axis
// conventions as Dim.
func (p *Pattern) Stride(axis int) int {
	return p.strides[p.raxis(axis)]
}

// raxis translates a public axis index (with negative wraparound) into the
// private reversed index. Panics on out-of-range axes: passing a bad axis
// is a programming error.
func (p *Pattern) raxis(axis int) int {
	r := axis
	if axis < 0 {
		r = -axis - 1
	} else {
		r = p.numAxes - 1 - axis
	}
	if r < 0 || r >= p.numAxes {
		panic(fmt.Sprintf("pattern: axis %d out of range for %d axes", axis, p.numAxes))
	}
	return r
}

// NumElements returns the product of the dims: the number of index-tuples
// the Pattern accepts. Note that for a Pattern with a broadcast (stride 0,
// dim > 1) axis this exceeds the cardinality of the memory-index set.
func (p *Pattern) NumElements() int64 {
	n := int64(1)
	for raxis := 0; raxis < p.numAxes; raxis++ {
		n *= int64(p.dims[raxis])
	}
	return n
}

// MemoryIndex computes offset + sum(index[i]*stride[i]) for a public-order
// index tuple. Panics if the tuple has the wrong arity or any index is out
// of bounds.
func (p *Pattern) MemoryIndex(index ...int) int64 {
	if len(index) != p.numAxes {
		panic(fmt.Sprintf("pattern: %d indexes for %d axes", len(index), p.numAxes))
	}
	m := p.offset
	for axis, i := range index {
		raxis := p.numAxes - 1 - axis
		if i < 0 || i >= p.dims[raxis] {
			panic(fmt.Sprintf("pattern: index %d out of range for axis %d (dim %d)", i, axis, p.dims[raxis]))
		}
		m += int64(i) * int64(p.strides[raxis])
	}
	return m
}

// MemoryIndexRange returns the smallest and largest memory index the
// Pattern can produce. Thanks to the additive structure this is exact in
// O(numAxes): each axis contributes (dim-1)*stride to the max if the
// stride is positive and to the min if it is negative.
func (p *Pattern) MemoryIndexRange() (min, max int64) {
	min, max = p.offset, p.offset
	for raxis := 0; raxis < p.numAxes; raxis++ {
		prod := int64(p.dims[raxis]-1) * int64(p.strides[raxis])
		if prod > 0 {
			max += prod
		} else {
			min += prod
		}
	}
	return min, max
}

// Equal reports whether two Patterns have identical axis count, dims,
// strides and offset. It is layout equality, not memory-index-set
// equality; two different layouts can cover the same set.
func (p *Pattern) Equal(q *Pattern) bool {
	if p.numAxes != q.numAxes || p.offset != q.offset {
		return false
	}
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.dims[raxis] != q.dims[raxis] || p.strides[raxis] != q.strides[raxis] {
			return false
		}
	}
	return true
}

// String formats the pattern in public order, e.g.
// "dims=[2 3] strides=[3 1] offset=0".
func (p *Pattern) String() string {
	return fmt.Sprintf("dims=%v strides=%v offset=%d", p.Dims(), p.Strides(), p.offset)
}

// addOffset shifts the whole memory-index set by delta.
func (p *Pattern) addOffset(delta int64) {
	p.offset += delta
}
