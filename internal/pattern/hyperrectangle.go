package pattern

// A hyperrectangle is a Cartesian product of half-open integer intervals,
// one per private axis: the index-tuples i with begin[r] <= i[r] < end[r].
// It is the working representation the set-algebra engine uses when two
// patterns share identical strides, where set operations reduce to
// interval arithmetic per axis. It never escapes this package.

type interval struct{ begin, end int }

type hyperrectangle struct {
	numAxes int
	axes    [MaxAxes]interval
}

func (h *hyperrectangle) isValid() bool {
	if h.numAxes < 1 || h.numAxes > MaxAxes {
		return false
	}
	for r := 0; r < h.numAxes; r++ {
		if h.axes[r].begin >= h.axes[r].end {
			return false
		}
	}
	return true
}

// fullHyperrectangle returns the index-tuple set of p: (0, dim) per axis.
func fullHyperrectangle(p *Pattern) hyperrectangle {
	var h hyperrectangle
	h.numAxes = p.numAxes
	for r := 0; r < p.numAxes; r++ {
		h.axes[r] = interval{0, p.dims[r]}
	}
	return h
}

// subtractHyperrectangles appends to out zero or more hyperrectangles
// whose disjoint union is the set difference a - b. It recurses axis by
// axis: on each axis the part of a's interval before b and the part after
// b split off whole (carrying all remaining axes unchanged), and the
// overlapping middle recurses into the next axis. The recursion depth is
// bounded by MaxAxes.
func subtractHyperrectangles(a, b hyperrectangle, axis int, out *[]hyperrectangle) {
	aBegin, aEnd := a.axes[axis].begin, a.axes[axis].end
	bBegin, bEnd := b.axes[axis].begin, b.axes[axis].end

	if bBegin >= aEnd || bEnd <= aBegin {
		// Disjoint on this axis, so disjoint overall: the difference is a.
		*out = append(*out, a)
		return
	}
	if aBegin < bBegin {
		piece := a
		piece.axes[axis].end = bBegin
		*out = append(*out, piece)
	}
	if aEnd > bEnd {
		piece := a
		piece.axes[axis].begin = bEnd
		*out = append(*out, piece)
	}
	if axis+1 < a.numAxes {
		// The overlapping middle can still differ on later axes.
		mid := a
		mid.axes[axis].begin = maxInt(aBegin, bBegin)
		mid.axes[axis].end = minInt(aEnd, bEnd)
		subtractHyperrectangles(mid, b, axis+1, out)
	}
	// On the last axis the overlapping middle is fully covered by b and
	// contributes nothing to the difference.
}

// hyperrectangleToPattern returns the Pattern covering src indexed by
// every tuple in h: same strides, dims narrowed to the interval widths,
// and the interval begins folded into the offset. The result is a working
// pattern (dim-1 axes keep their strides).
func hyperrectangleToPattern(src *Pattern, h *hyperrectangle) Pattern {
	dest := *src
	for r := 0; r < src.numAxes; r++ {
		dest.dims[r] = h.axes[r].end - h.axes[r].begin
		dest.offset += int64(h.axes[r].begin) * int64(src.strides[r])
	}
	dest.code = codeStale
	return dest
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
