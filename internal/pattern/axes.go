package pattern

import "fmt"

// Axis-shape mutators. All of them either patch the cached classification
// code exactly or mark it stale; none of them ever leave a stale code that
// reads as current.

// Transpose swaps two public axes in place. Negative axes count from the
// end. Panics if either axis is out of range.
func Transpose(axis1, axis2 int, p *Pattern) {
	r1, r2 := p.raxis(axis1), p.raxis(axis2)
	p.dims[r1], p.dims[r2] = p.dims[r2], p.dims[r1]
	p.strides[r1], p.strides[r2] = p.strides[r2], p.strides[r1]
	p.code = codeStale
}

// Slice restricts a public axis to the half-open index range
// [begin, end), shifting the offset so the element previously at index
// `begin` becomes index 0. Requires 0 <= begin < end <= dim; anything else
// is a programming error and panics.
func Slice(axis, begin, end int, p *Pattern) {
	raxis := p.raxis(axis)
	dim := p.dims[raxis]
	if begin < 0 || end <= begin || end > dim {
		panic(fmt.Sprintf("pattern: invalid slice [%d:%d) of axis %d with dim %d", begin, end, axis, dim))
	}
	oldStride := p.strides[raxis]
	p.offset += int64(begin) * int64(oldStride)
	newDim := end - begin
	p.dims[raxis] = newDim
	if newDim == 1 {
		p.strides[raxis] = 0
		if p.code >= 0 {
			// Cheaper than recomputing: the axis's dim bit goes away, and
			// if this axis held the stride-1 slot that goes away too.
			p.code &^= 1 << raxis
			if oldStride == 1 {
				p.code &^= codeStrideOneMask
			}
			if ContainsNegativeStride(p.code) && oldStride < 0 {
				// The flipped axis may have been the only negative one;
				// not worth tracking, just recompute lazily.
				p.code = codeStale
			}
		}
	}
	// A shrink that keeps dim > 1 changes no classified fact, so the code
	// stays as it was.
}

// Select indexes a public axis at a fixed position and removes it, folding
// index*stride into the offset. The Pattern loses one axis. Panics on an
// out-of-range axis or index.
func Select(axis, index int, p *Pattern) {
	raxis := p.raxis(axis)
	if index < 0 || index >= p.dims[raxis] {
		panic(fmt.Sprintf("pattern: select index %d out of range for axis %d (dim %d)", index, axis, p.dims[raxis]))
	}
	p.offset += int64(index) * int64(p.strides[raxis])
	for r := raxis; r+1 < p.numAxes; r++ {
		p.dims[r] = p.dims[r+1]
		p.strides[r] = p.strides[r+1]
	}
	p.numAxes--
	p.setUnusedAxes()
	p.code = codeStale
}

// UnsqueezeR inserts a trivial (dim 1, stride 0) axis at private position
// raxis, shifting higher axes up. Requires 0 <= raxis <= numAxes and
// numAxes < MaxAxes.
func UnsqueezeR(raxis int, p *Pattern) {
	if raxis < 0 || raxis > p.numAxes || p.numAxes >= MaxAxes {
		panic(fmt.Sprintf("pattern: cannot unsqueeze at raxis %d with %d axes", raxis, p.numAxes))
	}
	for r := p.numAxes; r > raxis; r-- {
		p.dims[r] = p.dims[r-1]
		p.strides[r] = p.strides[r-1]
	}
	p.dims[raxis] = 1
	p.strides[raxis] = 0
	if raxis != p.numAxes {
		// Higher axes moved to new bit positions.
		p.code = codeStale
	}
	// Insertion at the top adds a zero dim-bit above everything already
	// classified, so the code is unaffected in that case.
	p.numAxes++
}

// SqueezeR removes the trivial axis at private position raxis, shifting
// higher axes down. It is an error (panic) if that axis does not have
// dim 1.
func SqueezeR(raxis int, p *Pattern) {
	if raxis < 0 || raxis >= p.numAxes {
		panic(fmt.Sprintf("pattern: cannot squeeze raxis %d with %d axes", raxis, p.numAxes))
	}
	if p.dims[raxis] != 1 {
		panic(fmt.Sprintf("pattern: squeeze of raxis %d with dim %d (must be 1)", raxis, p.dims[raxis]))
	}
	for r := raxis; r+1 < p.numAxes; r++ {
		p.dims[r] = p.dims[r+1]
		p.strides[r] = p.strides[r+1]
	}
	p.numAxes--
	p.setUnusedAxes()
	if raxis != p.numAxes {
		p.code = codeStale
	}
	// Removing the topmost axis strips a zero dim-bit; code unaffected.
}

// Unsqueeze inserts a trivial axis at the given public position, with the
// usual negative-axis convention: -1 inserts after the last existing axis.
// Valid range is [-numAxes-1, numAxes].
func Unsqueeze(axis int, p *Pattern) {
	if axis < 0 {
		UnsqueezeR(-axis-1, p)
	} else {
		UnsqueezeR(p.numAxes-axis, p)
	}
}

// Squeeze removes the trivial axis at the given public position; negative
// axes count from the end. Panics if that axis does not have dim 1.
func Squeeze(axis int, p *Pattern) {
	if axis < 0 {
		SqueezeR(-axis-1, p)
	} else {
		SqueezeR(p.numAxes-1-axis, p)
	}
}

// RemoveTrivialAxes drops every dim-1 axis in place. The memory-index set
// is unchanged.
func RemoveTrivialAxes(p *Pattern) {
	out := 0
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.dims[raxis] == 1 {
			continue
		}
		if out != raxis {
			p.dims[out] = p.dims[raxis]
			p.strides[out] = p.strides[raxis]
		}
		out++
	}
	p.numAxes = out
	p.setUnusedAxes()
	p.code = codeStale
}
