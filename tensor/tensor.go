package tensor

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/strided-ml/strided/internal/pattern"
)

// DType is the constraint for tensor element types.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// Tensor is a typed strided view: a layout pattern over a data slice that
// may be shared with other views. The base offset absorbs the external
// data-pointer deltas handed out by the pattern compression routines; the
// element a tuple addresses is data[base+pattern.MemoryIndex(tuple)].
type Tensor[T DType] struct {
	data []T
	base int64
	pat  pattern.Pattern
}

// FromSlice wraps data in a row-major tensor of the given dims without
// copying. The element count must match the shape exactly.
func FromSlice[T DType](data []T, dims ...int) (*Tensor[T], error) {
	p := pattern.FromDims(dims...)
	if n := p.NumElements(); n != int64(len(data)) {
		return nil, errors.Errorf("tensor: %d elements cannot fill shape %v (%d)", len(data), dims, n)
	}
	return &Tensor[T]{data: data, pat: p}, nil
}

// Zeros allocates a zero-filled row-major tensor.
func Zeros[T DType](dims ...int) *Tensor[T] {
	p := pattern.FromDims(dims...)
	return &Tensor[T]{data: make([]T, p.NumElements()), pat: p}
}

// Dims returns the shape in public order.
func (t *Tensor[T]) Dims() []int { return t.pat.Dims() }

// Strides returns the element strides in public order.
func (t *Tensor[T]) Strides() []int { return t.pat.Strides() }

// NumAxes returns the number of axes.
func (t *Tensor[T]) NumAxes() int { return t.pat.NumAxes() }

// NumElements returns the number of index tuples (which exceeds the
// number of distinct elements when an axis is broadcast).
func (t *Tensor[T]) NumElements() int { return int(t.pat.NumElements()) }

// IsContiguous reports whether the layout is the packed row-major one for
// this shape.
func (t *Tensor[T]) IsContiguous() bool {
	want := pattern.FromDims(t.pat.Dims()...)
	ws, ts := want.Strides(), t.pat.Strides()
	for axis := range ws {
		if ws[axis] != ts[axis] {
			return false
		}
	}
	return true
}

// At returns the element at a full index tuple. Panics on arity or bounds
// violations, like indexing a slice out of range.
func (t *Tensor[T]) At(indexes ...int) T {
	return t.data[t.base+t.pat.MemoryIndex(indexes...)]
}

// Set stores v at a full index tuple.
func (t *Tensor[T]) Set(v T, indexes ...int) {
	t.data[t.base+t.pat.MemoryIndex(indexes...)] = v
}

func (t *Tensor[T]) String() string {
	return fmt.Sprintf("Tensor%v", t.pat.Dims())
}

// view returns a copy of t for a derived layout; data stays shared.
func (t *Tensor[T]) view(p pattern.Pattern) *Tensor[T] {
	return &Tensor[T]{data: t.data, base: t.base, pat: p}
}

// Transpose returns a view with two axes swapped. Negative axes count
// from the end.
func (t *Tensor[T]) Transpose(axis1, axis2 int) *Tensor[T] {
	p := t.pat
	pattern.Transpose(axis1, axis2, &p)
	return t.view(p)
}

// Slice returns a view of the half-open index window [begin, end) on one
// axis. Panics on an empty or out-of-range window.
func (t *Tensor[T]) Slice(axis, begin, end int) *Tensor[T] {
	p := t.pat
	pattern.Slice(axis, begin, end, &p)
	return t.view(p)
}

// Select returns a view with one axis indexed away.
func (t *Tensor[T]) Select(axis, index int) *Tensor[T] {
	p := t.pat
	pattern.Select(axis, index, &p)
	return t.view(p)
}

// Squeeze returns a view without the given dim-1 axis.
func (t *Tensor[T]) Squeeze(axis int) *Tensor[T] {
	p := t.pat
	pattern.Squeeze(axis, &p)
	return t.view(p)
}

// Unsqueeze returns a view with a dim-1 axis inserted at the given public
// position; -1 appends after the last axis.
func (t *Tensor[T]) Unsqueeze(axis int) *Tensor[T] {
	p := t.pat
	pattern.Unsqueeze(axis, &p)
	return t.view(p)
}

// View reshapes without copying when the layout permits it. When it does
// not (a transposed or otherwise non-uniform view), an error is returned
// and the caller decides whether to pay for Contiguous first.
func (t *Tensor[T]) View(dims ...int) (*Tensor[T], error) {
	p, ok := pattern.CreateViewPattern(&t.pat, dims)
	if !ok {
		return nil, errors.Errorf("tensor: shape %v is not viewable as %v without a copy", t.Dims(), dims)
	}
	return t.view(p), nil
}

// Contiguous returns a tensor with this view's contents in packed
// row-major order. If the view already is one, it is returned as is;
// otherwise the data is copied, materializing broadcast axes.
func (t *Tensor[T]) Contiguous() *Tensor[T] {
	if t.IsContiguous() && t.base+t.pat.Offset() == 0 && int64(len(t.data)) == t.pat.NumElements() {
		return t
	}
	dst := Zeros[T](t.pat.Dims()...)
	copyElements(dst, t)
	return dst
}

// copyElements copies src's elements into dst tuple by tuple. The two
// patterns are compressed jointly first, which collapses the loop nest to
// the minimum depth; the compression deltas belong to the data pointers,
// so they fold into the bases rather than the patterns.
func copyElements[T DType](dst, src *Tensor[T]) {
	dp, sp := dst.pat, src.pat
	if !pattern.SameDim(&dp, &sp) {
		panic(fmt.Sprintf("tensor: copy between shapes %v and %v", dp.Dims(), sp.Dims()))
	}
	var deltas [2]int64
	pattern.CompressPatterns([]*pattern.Pattern{&dp, &sp}, deltas[:])
	dstBase := dst.base + deltas[0]
	srcBase := src.base + deltas[1]

	dims := dp.Dims()
	idx := make([]int, len(dims))
	for {
		dst.data[dstBase+dp.MemoryIndex(idx...)] = src.data[srcBase+sp.MemoryIndex(idx...)]
		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < dims[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}
