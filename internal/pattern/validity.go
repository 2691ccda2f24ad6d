package pattern

import "sort"

// Validity tiers, from weakest to strongest. Operations in this package
// document which tier they require; passing a Pattern below the required
// tier is a programming error.
//
//	valid:      IsValid
//	canonical:  IsCanonical
//	normalized: HasNormalizedPositiveStrides
//	regular:    IsRegular (orthogonal to normalized; needed by the set
//	            algebra's stride-conversion fast path)

// IsValid reports whether the Pattern satisfies the basic structural
// rules: numAxes in range, every dim >= 1, stride 0 on every dim-1 axis,
// dim=1/stride=0 on unused slots, and the uniqueness rule: no two axes
// both have dim > 1 and the same stride. The uniqueness rule is what
// makes the stride-1 slot of the classification code well defined.
func (p *Pattern) IsValid() bool {
	if p.numAxes < 0 || p.numAxes > MaxAxes {
		return false
	}
	for raxis := 0; raxis < p.numAxes; raxis++ {
		d := p.dims[raxis]
		if d < 1 || d > maxDim {
			return false
		}
		if d == 1 && p.strides[raxis] != 0 {
			return false
		}
		if d > 1 {
			for r2 := raxis + 1; r2 < p.numAxes; r2++ {
				if p.dims[r2] > 1 && p.strides[r2] == p.strides[raxis] {
					return false
				}
			}
		}
	}
	for raxis := p.numAxes; raxis < MaxAxes; raxis++ {
		if p.dims[raxis] != 1 || p.strides[raxis] != 0 {
			return false
		}
	}
	return true
}

// IsCanonical reports whether the Pattern is valid and its axes are sorted
// by non-decreasing stride magnitude in the private numbering, ties broken
// by dimension. In canonical form the lowest-indexed axis with dim > 1
// carries the smallest stride, which is what enables the structural
// comparisons and the O(numAxes) walks elsewhere in the package.
func (p *Pattern) IsCanonical() bool {
	if !p.IsValid() {
		return false
	}
	for raxis := 0; raxis+1 < p.numAxes; raxis++ {
		a, b := absInt(p.strides[raxis]), absInt(p.strides[raxis+1])
		if a > b {
			return false
		}
		if a == b && p.dims[raxis] > p.dims[raxis+1] {
			return false
		}
	}
	return true
}

// HasNormalizedPositiveStrides reports whether the Pattern is canonical
// and every axis with dim > 1 has a strictly positive stride.
func (p *Pattern) HasNormalizedPositiveStrides() bool {
	if !p.IsCanonical() {
		return false
	}
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.dims[raxis] > 1 && p.strides[raxis] <= 0 {
			return false
		}
	}
	return true
}

// IsRegular reports whether a canonical Pattern has the regularity
// property: scanning private axes upward, for every axis i with dim > 1,
// let k be the first later axis whose stride is >= stride_i*dim_i (or
// numAxes if none); every axis j with i < j < k must have dim 1 and a
// stride divisible by stride_i. Regularity is exactly the condition under
// which the Pattern can be re-expressed at any compatible superset of its
// strides without splitting; see ConvertPatternStrides.
//
// The receiver must be canonical with positive strides; the result is
// meaningless otherwise.
func (p *Pattern) IsRegular() bool {
	for i := 0; i+1 < p.numAxes; i++ {
		if p.dims[i] == 1 {
			continue
		}
		prod := p.strides[i] * p.dims[i]
		for j := i + 1; j < p.numAxes; j++ {
			if p.strides[j] >= prod {
				break
			}
			if p.dims[j] != 1 || p.strides[j]%p.strides[i] != 0 {
				return false
			}
		}
	}
	return true
}

// SortAxes reorders the axes in place so that strides are sorted by
// non-decreasing magnitude (in the private numbering), ties broken by
// dimension. The sort is stable, so equal (stride, dim) pairs keep their
// relative order and the result is deterministic. The memory-index set is
// unchanged; only the assignment of axes to positions moves.
func SortAxes(p *Pattern) {
	n := p.numAxes
	if n < 2 {
		return
	}
	if n == 2 {
		// Avoids the sort.SliceStable machinery for the most common case.
		a0, a1 := absInt(p.strides[0]), absInt(p.strides[1])
		if a0 > a1 || (a0 == a1 && p.dims[0] > p.dims[1]) {
			p.dims[0], p.dims[1] = p.dims[1], p.dims[0]
			p.strides[0], p.strides[1] = p.strides[1], p.strides[0]
		}
		p.code = codeStale
		return
	}
	type axis struct{ dim, stride int }
	var axes [MaxAxes]axis
	for raxis := 0; raxis < n; raxis++ {
		axes[raxis] = axis{p.dims[raxis], p.strides[raxis]}
	}
	sort.SliceStable(axes[:n], func(i, j int) bool {
		ai, aj := absInt(axes[i].stride), absInt(axes[j].stride)
		if ai != aj {
			return ai < aj
		}
		return axes[i].dim < axes[j].dim
	})
	for raxis := 0; raxis < n; raxis++ {
		p.dims[raxis] = axes[raxis].dim
		p.strides[raxis] = axes[raxis].stride
	}
	p.code = codeStale
}

// CanonicalizePattern rewrites p in place into canonical form: the axes
// are sorted per SortAxes. Neither dims, strides values, nor the offset
// change, so the memory-index set is preserved exactly. It is a total
// function on valid Patterns.
func CanonicalizePattern(p *Pattern) {
	SortAxes(p)
}

// normalized returns a copy of p rewritten for the set-algebra engine:
// negative strides are flipped (folding the (dim-1)*stride displacement
// into the copy's own offset, which preserves the memory-index set),
// broadcast axes (dim > 1, stride 0) collapse to dim 1 since they repeat
// the same indexes, trivial axes are dropped, axes are sorted by stride,
// and axes that end up with equal strides are merged: two full runs of
// multiples of s with d1 and d2 steps sum to one run of d1+d2-1 steps.
//
// The result has strictly increasing positive strides, no trivial axes,
// and the same memory-index set as p; its offset equals its minimum
// memory index.
func normalized(p *Pattern) Pattern {
	q := *p
	out := 0
	for raxis := 0; raxis < q.numAxes; raxis++ {
		d, s := q.dims[raxis], q.strides[raxis]
		if s < 0 {
			q.offset += int64(d-1) * int64(s)
			s = -s
		}
		if d > 1 && s == 0 {
			d = 1
		}
		if d == 1 {
			continue
		}
		q.dims[out], q.strides[out] = d, s
		out++
	}
	q.numAxes = out
	q.setUnusedAxes()
	SortAxes(&q)
	// Merge equal strides left behind by sign flips (e.g. strides +s and
	// -s in the input both become +s).
	out = 0
	for raxis := 0; raxis < q.numAxes; raxis++ {
		if out > 0 && q.strides[out-1] == q.strides[raxis] {
			q.dims[out-1] += q.dims[raxis] - 1
			continue
		}
		q.dims[out], q.strides[out] = q.dims[raxis], q.strides[raxis]
		out++
	}
	q.numAxes = out
	q.setUnusedAxes()
	q.code = codeStale
	return q
}

// sanitize turns an internal working pattern (which may carry nonzero
// strides on dim-1 axes) back into a valid, canonical Pattern with the
// same memory-index set, suitable for returning to callers.
func sanitize(p *Pattern) Pattern {
	q := *p
	out := 0
	for raxis := 0; raxis < q.numAxes; raxis++ {
		if q.dims[raxis] == 1 {
			continue
		}
		q.dims[out], q.strides[out] = q.dims[raxis], q.strides[raxis]
		out++
	}
	q.numAxes = out
	q.setUnusedAxes()
	SortAxes(&q)
	q.code = codeStale
	return q
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
