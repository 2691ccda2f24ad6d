package pattern

import "sort"

// The helpers here rewrite a Pattern's strides and offset while leaving
// its dims (and their public order) untouched, producing the tightest
// layout the dims admit. They answer the question "what should this
// view's layout be after its data is copied to fresh storage"; pairing
// the old and new patterns in a Rebaser then translates any recorded
// memory indexes.

// MakeCompactAndJustified rewrites p's strides to the smallest magnitudes
// preserving each stride's sign and the relative order of the stride
// magnitudes, and sets the offset so the lowest addressed memory index is
// 0. Axes with stride 0 (dim-1 axes and broadcast axes) are untouched, so
// element sharing within the pattern survives; for every other axis the
// new magnitude is the product of the dims of the axes below it in
// magnitude order, making the covered set a gapless [0, n) up to the
// sharing.
func MakeCompactAndJustified(p *Pattern) {
	order := strideMagnitudeOrder(p)
	running := 1
	for _, raxis := range order {
		if p.strides[raxis] < 0 {
			p.strides[raxis] = -running
		} else {
			p.strides[raxis] = running
		}
		running *= p.dims[raxis]
	}
	var offset int64
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if s := p.strides[raxis]; s < 0 {
			offset -= int64(p.dims[raxis]-1) * int64(s)
		}
	}
	p.offset = offset
	p.code = codeStale
}

// MakeCompactNonnegativeAndJustified is MakeCompactAndJustified with all
// stride signs discarded: every nonzero stride comes out positive and the
// offset comes out 0.
func MakeCompactNonnegativeAndJustified(p *Pattern) {
	order := strideMagnitudeOrder(p)
	running := 1
	for _, raxis := range order {
		p.strides[raxis] = running
		running *= p.dims[raxis]
	}
	p.offset = 0
	p.code = codeStale
}

// MakeCompactNormalizedAndJustified rewrites p to the standard compact
// layout for its dims: offset 0 and strides increasing with the private
// axis number, which is row-major order over the public dims. Unlike the
// two helpers above this also materializes broadcast axes, so the result
// addresses one distinct memory index per index tuple. This is the target
// layout for materializing a view into fresh contiguous storage.
func MakeCompactNormalizedAndJustified(p *Pattern) {
	running := 1
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.dims[raxis] == 1 {
			p.strides[raxis] = 0
			continue
		}
		p.strides[raxis] = running
		running *= p.dims[raxis]
	}
	p.offset = 0
	p.code = codeStale
}

// strideMagnitudeOrder lists the private axes that carry a nonzero
// stride, from smallest to largest magnitude, ties kept in axis order.
func strideMagnitudeOrder(p *Pattern) []int {
	order := make([]int, 0, p.numAxes)
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.strides[raxis] != 0 {
			order = append(order, raxis)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return absInt(p.strides[order[i]]) < absInt(p.strides[order[j]])
	})
	return order
}
