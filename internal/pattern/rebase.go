package pattern

import "fmt"

// A Rebaser translates memory indexes valid under one Pattern into the
// corresponding memory indexes under another Pattern of the same shape.
// It is the bridge used when a view's backing storage is replaced (for
// example by materializing a non-contiguous view into compact storage):
// indexes recorded against the source layout can be replayed against the
// destination layout without reconstructing the index tuples that
// produced them.
//
// Construction compresses both patterns jointly so that corresponding
// axes line up, then orders the surviving axes by decreasing source
// stride; Convert recovers the index tuple by repeated division against
// the source strides and re-linearizes it with the destination strides.
// When the source strides dominate (each exceeds the combined reach of
// the smaller ones) the division is a straight greedy pass; otherwise
// Convert falls back to a bounded search over the candidate quotients.
type Rebaser struct {
	// needsConversion is false when the two layouts address memory
	// identically and Convert can return its argument unchanged.
	needsConversion bool

	// dominant means srcStrides[r] > restSpan[r+1] for every axis, so the
	// greedy quotient at each axis is the only possible one.
	dominant bool

	srcBase  int64
	destBase int64

	numAxes     int
	dims        [MaxAxes]int
	srcStrides  [MaxAxes]int // positive, non-increasing
	destStrides [MaxAxes]int

	// restSpan[r] is the largest source displacement axes r.. can
	// contribute together; restSpan[numAxes] is 0.
	restSpan [MaxAxes + 1]int64
}

// NewRebaser prepares a conversion from src's memory-index space to
// dest's. The patterns must be valid and have identical public dims.
// Panics if src broadcasts an axis (stride 0, dim > 1) that dest does
// not: a source memory index then corresponds to several destination
// indexes and no translation exists. A source that addresses some
// location through more than one index tuple is accepted; Convert
// returns the destination index of one of the tuples.
func NewRebaser(src, dest *Pattern) Rebaser {
	if !src.IsValid() || !dest.IsValid() {
		panic(fmt.Sprintf("pattern: NewRebaser on invalid input: %v / %v", src, dest))
	}
	if !SameDim(src, dest) {
		panic(fmt.Sprintf("pattern: NewRebaser dims mismatch: %v vs %v", src, dest))
	}

	var rb Rebaser
	if src.Equal(dest) {
		return rb
	}

	s, d := *src, *dest
	var deltas [2]int64
	CompressPatterns([]*Pattern{&s, &d}, deltas[:])

	// The deltas belong to the external pointer, so fold them back into
	// the bases to keep Convert in the callers' original index space.
	rb.srcBase = s.offset + deltas[0]
	rb.destBase = d.offset + deltas[1]

	n := maxInt(s.numAxes, d.numAxes)
	for raxis := 0; raxis < n; raxis++ {
		ss, ds := strideAt(&s, raxis), strideAt(&d, raxis)
		dim := maxInt(dimAt(&s, raxis), dimAt(&d, raxis))
		if dim == 1 || (ss == 0 && ds == 0) {
			// No contribution on either side.
			continue
		}
		if ss == 0 {
			panic(fmt.Sprintf("pattern: NewRebaser source broadcasts an axis dest does not: %v vs %v", src, dest))
		}
		if ss < 0 {
			// Reindex the axis as i' = dim-1-i so the source stride is
			// positive; the displacement moves into both bases.
			rb.srcBase += int64(dim-1) * int64(ss)
			rb.destBase += int64(dim-1) * int64(ds)
			ss, ds = -ss, -ds
		}
		rb.dims[rb.numAxes] = dim
		rb.srcStrides[rb.numAxes] = ss
		rb.destStrides[rb.numAxes] = ds
		rb.numAxes++
	}

	// Decreasing source stride, so Convert's divisions peel the largest
	// contribution first. Insertion sort; numAxes is at most MaxAxes.
	for i := 1; i < rb.numAxes; i++ {
		for j := i; j > 0 && rb.srcStrides[j] > rb.srcStrides[j-1]; j-- {
			rb.dims[j], rb.dims[j-1] = rb.dims[j-1], rb.dims[j]
			rb.srcStrides[j], rb.srcStrides[j-1] = rb.srcStrides[j-1], rb.srcStrides[j]
			rb.destStrides[j], rb.destStrides[j-1] = rb.destStrides[j-1], rb.destStrides[j]
		}
	}

	rb.dominant = true
	for r := rb.numAxes - 1; r >= 0; r-- {
		if int64(rb.srcStrides[r]) <= rb.restSpan[r+1] {
			rb.dominant = false
		}
		rb.restSpan[r] = rb.restSpan[r+1] + int64(rb.dims[r]-1)*int64(rb.srcStrides[r])
	}

	rb.needsConversion = rb.srcBase != rb.destBase
	for r := 0; r < rb.numAxes && !rb.needsConversion; r++ {
		rb.needsConversion = rb.srcStrides[r] != rb.destStrides[r]
	}
	return rb
}

// Convert translates one source memory index to the destination layout.
// Panics when mindex is not addressed by the source pattern.
func (rb *Rebaser) Convert(mindex int64) int64 {
	if !rb.needsConversion {
		return mindex
	}
	m := mindex - rb.srcBase
	if !rb.dominant {
		out, ok := rb.convertSearch(0, m, rb.destBase)
		if !ok {
			panic(fmt.Sprintf("pattern: memory index %d not covered by source layout", mindex))
		}
		return out
	}
	out := rb.destBase
	for r := 0; r < rb.numAxes; r++ {
		s := int64(rb.srcStrides[r])
		i := m / s
		if i < 0 || i >= int64(rb.dims[r]) {
			panic(fmt.Sprintf("pattern: memory index %d not covered by source layout", mindex))
		}
		m -= i * s
		out += i * int64(rb.destStrides[r])
	}
	if m != 0 {
		panic(fmt.Sprintf("pattern: memory index %d not covered by source layout", mindex))
	}
	return out
}

// convertSearch decomposes m over axes r.. by trying every quotient the
// remaining axes could still absorb, largest first. The candidate window
// at each level is [ceil((m-restSpan)/s), floor(m/s)] clipped to the dim,
// so a dominant layout degenerates to the greedy pass and anything else
// backtracks over a handful of quotients per axis.
func (rb *Rebaser) convertSearch(r int, m, out int64) (int64, bool) {
	if r == rb.numAxes {
		if m == 0 {
			return out, true
		}
		return 0, false
	}
	if m < 0 {
		return 0, false
	}
	s := int64(rb.srcStrides[r])
	hi := m / s
	if top := int64(rb.dims[r]) - 1; hi > top {
		hi = top
	}
	lo := int64(0)
	if rest := rb.restSpan[r+1]; m > rest {
		lo = (m - rest + s - 1) / s
	}
	for i := hi; i >= lo; i-- {
		if res, ok := rb.convertSearch(r+1, m-i*s, out+i*int64(rb.destStrides[r])); ok {
			return res, true
		}
	}
	return 0, false
}

func strideAt(p *Pattern, raxis int) int {
	if raxis >= p.numAxes {
		return 0
	}
	return p.strides[raxis]
}
