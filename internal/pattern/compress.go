package pattern

import "fmt"

// CompressOnePattern rewrites p to the minimum-axis Pattern covering the
// identical memory-index set: negative strides are flipped, trivial axes
// dropped, and C-contiguously adjacent axes merged. The returned delta is
// the amount the caller must add to its external data pointer (or base
// offset) so the rewritten pattern still covers the same elements; it is
// nonzero only when a stride changed sign, and it is deliberately not
// folded into p.offset: the distinction between the pattern's own offset
// and external pointer arithmetic is part of the contract with the tensor
// layer.
//
// The output is in canonical axis order (ascending stride in the private
// numbering, so descending in the public order). A pattern whose axes are
// all trivial collapses to the zero-axis scalar.
func CompressOnePattern(p *Pattern) int64 {
	deltas := [1]int64{}
	// With a single pattern there is no correspondence to preserve, so a
	// broadcast axis (dim > 1, stride 0) adds nothing to the covered set
	// and collapses first.
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.dims[raxis] > 1 && p.strides[raxis] == 0 {
			p.dims[raxis] = 1
			p.code = codeStale
		}
	}
	delta := flipSignsMerging(p)
	CompressPatterns([]*Pattern{p}, deltas[:])
	SortAxes(p)
	return delta + deltas[0]
}

// flipSignsMerging flips every negative stride of p, accumulating the
// external-pointer compensation, and merges an axis pair whenever a flip
// lands on a stride some other axis already carries (input strides +s and
// -s both become +s). With a single pattern the merge is set-exact: axes
// with equal stride s and dims d1, d2 cover the multiples 0..(d1+d2-2)
// of s between them.
func flipSignsMerging(p *Pattern) int64 {
	var delta int64
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.strides[raxis] >= 0 {
			continue
		}
		flipped := -p.strides[raxis]
		target := -1
		for r2 := 0; r2 < p.numAxes; r2++ {
			if r2 != raxis && p.strides[r2] == flipped {
				target = r2
				break
			}
		}
		if target >= 0 && int64(p.dims[target])+int64(p.dims[raxis])-1 > maxDim {
			// The merged dim would overflow; keep the negative stride.
			continue
		}
		delta += int64(p.dims[raxis]-1) * int64(p.strides[raxis])
		p.strides[raxis] = flipped
		p.code = codeStale
		if target >= 0 {
			// The flip collided with an existing positive axis; fold the
			// flipped axis into it and leave a trivial slot behind.
			p.dims[target] += p.dims[raxis] - 1
			p.dims[raxis] = 1
			p.strides[raxis] = 0
		}
	}
	return delta
}

// CompressPatterns jointly compresses mutually broadcastable Patterns,
// preserving the element-by-element correspondence between them: an axis
// pair may merge only if it merges in every pattern, and a stride sign may
// flip only for a whole axis across all patterns at once. Sign flips
// follow the first-nonzero-stride rule: for each axis, the lowest-indexed
// pattern with a nonzero stride there decides the sign; if it is negative,
// that axis's stride is flipped in every pattern that has one, with the
// compensating (dim-1)*stride displacement accumulated into that pattern's
// entry in deltas. This rule is merge-optimal: any pair of axes blocked by
// it would be blocked under every other sign assignment too.
//
// deltas must have the same length as patterns; entries are overwritten.
// Like CompressOnePattern's delta, they belong to the callers' external
// pointers, not to the patterns' offsets. Returns whether any pattern
// changed. Panics if patterns is empty or any pair is not broadcastable.
func CompressPatterns(patterns []*Pattern, deltas []int64) bool {
	if len(patterns) == 0 {
		panic("pattern: CompressPatterns with no patterns")
	}
	if len(deltas) != len(patterns) {
		panic(fmt.Sprintf("pattern: %d patterns but %d offset deltas", len(patterns), len(deltas)))
	}
	for i, p := range patterns {
		if !p.IsValid() {
			panic(fmt.Sprintf("pattern: CompressPatterns input %d is invalid: %v", i, p))
		}
		for _, q := range patterns[i+1:] {
			if !Broadcastable(p, q) {
				panic(fmt.Sprintf("pattern: CompressPatterns inputs not broadcastable: %v vs %v", p, q))
			}
		}
	}
	for i := range deltas {
		deltas[i] = 0
	}

	maxAxes := 0
	for _, p := range patterns {
		maxAxes = maxInt(maxAxes, p.numAxes)
	}

	changed := normalizeSigns(patterns, maxAxes, deltas)

	// An axis is trivial when every pattern has dim 1 there (axes beyond a
	// pattern's numAxes read as dim 1).
	var trivial [MaxAxes]bool
	anyTrivial := false
	for raxis := 0; raxis < maxAxes; raxis++ {
		t := true
		for _, p := range patterns {
			if dimAt(p, raxis) != 1 {
				t = false
				break
			}
		}
		trivial[raxis] = t
		anyTrivial = anyTrivial || t
	}

	// Try to merge every nontrivial axis into a lower-numbered one, in
	// either stride order. Going downward lets the merged-away axis always
	// be the higher-numbered one, which keeps later axis removal cheap.
	for r1 := maxAxes - 1; r1 >= 0; r1-- {
		if trivial[r1] {
			continue
		}
		for r2 := r1 - 1; r2 >= 0; r2-- {
			if trivial[r2] {
				continue
			}
			if combinableAll(patterns, r1, r2) {
				combineAxes(patterns, r1, r2)
			} else if combinableAll(patterns, r2, r1) {
				combineAxes(patterns, r2, r1)
			} else {
				continue
			}
			trivial[r1] = true
			anyTrivial = true
			changed = true
			break
		}
	}

	if anyTrivial {
		for _, p := range patterns {
			removeAxes(p, trivial)
		}
		changed = true
	}
	if changed {
		for _, p := range patterns {
			p.code = codeStale
		}
	}
	return changed
}

// normalizeSigns flips negative strides axis by axis per the
// first-nonzero-stride rule, accumulating pointer compensation into
// deltas. An axis is left alone when flipping it would give some pattern
// two dim>1 axes with the same stride: the element correspondence forbids
// merging them, so the collided axis stays negative instead. Reported in
// the CompressPatterns doc comment.
func normalizeSigns(patterns []*Pattern, maxAxes int, deltas []int64) bool {
	changed := false
	for raxis := 0; raxis < maxAxes; raxis++ {
		for i, p := range patterns {
			if raxis >= p.numAxes || p.strides[raxis] == 0 {
				continue
			}
			// p is the first pattern with a nonzero stride on this axis;
			// its sign decides for everyone. (Earlier patterns all have
			// stride zero here, so flipping skips them by construction.)
			if p.strides[raxis] < 0 && !flipCollides(patterns, raxis) {
				changed = true
				for j := i; j < len(patterns); j++ {
					q := patterns[j]
					if raxis >= q.numAxes || q.strides[raxis] == 0 {
						continue
					}
					deltas[j] += int64(q.dims[raxis]-1) * int64(q.strides[raxis])
					q.strides[raxis] = -q.strides[raxis]
				}
			}
			break
		}
	}
	return changed
}

// flipCollides reports whether negating the strides on private axis raxis
// would leave any pattern with two dim>1 axes sharing a stride.
func flipCollides(patterns []*Pattern, raxis int) bool {
	for _, q := range patterns {
		if raxis >= q.numAxes || q.strides[raxis] == 0 {
			continue
		}
		flipped := -q.strides[raxis]
		for r2 := 0; r2 < q.numAxes; r2++ {
			if r2 != raxis && q.dims[r2] > 1 && q.strides[r2] == flipped {
				return true
			}
		}
	}
	return false
}

// combinable reports whether private axes rSmall and rLarge of p can merge
// into one axis keeping rSmall's stride: the larger-stride axis must step
// exactly over a full run of the smaller, and the merged dim must not
// overflow. The relation is not symmetric; rSmall is the axis whose
// stride survives.
func combinable(p *Pattern, rSmall, rLarge int) bool {
	dSmall, dLarge := dimAt(p, rSmall), dimAt(p, rLarge)
	var sSmall, sLarge int
	if rSmall < p.numAxes {
		sSmall = p.strides[rSmall]
	}
	if rLarge < p.numAxes {
		sLarge = p.strides[rLarge]
	}
	if sLarge != sSmall*dSmall {
		return false
	}
	return int64(dSmall)*int64(dLarge) <= maxDim
}

func combinableAll(patterns []*Pattern, rSmall, rLarge int) bool {
	for _, p := range patterns {
		if !combinable(p, rSmall, rLarge) {
			return false
		}
	}
	return true
}

// combineAxes merges rSmall and rLarge in every pattern: the
// lower-numbered position keeps the merged axis (smaller stride, product
// dim) and the higher-numbered one becomes trivial.
func combineAxes(patterns []*Pattern, rSmall, rLarge int) {
	rKeep, rDrop := rSmall, rLarge
	if rKeep > rDrop {
		rKeep, rDrop = rDrop, rKeep
	}
	for _, p := range patterns {
		if rDrop >= p.numAxes {
			// The pattern never had the higher axis: its dim there is an
			// implicit 1 and the merge is a no-op for it.
			continue
		}
		dim := p.dims[rSmall] * p.dims[rLarge]
		stride := p.strides[rSmall]
		p.dims[rKeep] = dim
		p.strides[rKeep] = stride
		p.dims[rDrop] = 1
		p.strides[rDrop] = 0
	}
}

// removeAxes drops the flagged private axes from p, right-shifting the
// rest down. Flags at or beyond p's numAxes are no-ops.
func removeAxes(p *Pattern, drop [MaxAxes]bool) {
	out := 0
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if drop[raxis] {
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
}

// CompressPatternC compresses p for view ("reshape") purposes: trivial
// axes are dropped and successive axes merge only when their relationship
// matches row-major adjacency in the public ordering; in private terms,
// axes raxis (inner) and raxis+1 (outer) merge when
// strides[raxis+1] == strides[raxis]*dims[raxis]. Stride signs are never
// flipped, because a view must preserve element order, not just the
// covered set.
func CompressPatternC(p *Pattern) {
	RemoveTrivialAxes(p)
	for raxis := 0; raxis+1 < p.numAxes; {
		if p.strides[raxis+1] == p.strides[raxis]*p.dims[raxis] &&
			int64(p.dims[raxis])*int64(p.dims[raxis+1]) <= maxDim {
			p.dims[raxis] *= p.dims[raxis+1]
			for r := raxis + 1; r+1 < p.numAxes; r++ {
				p.dims[r] = p.dims[r+1]
				p.strides[r] = p.strides[r+1]
			}
			p.numAxes--
			p.setUnusedAxes()
			// Stay on this axis; it may merge again with the next one.
		} else {
			raxis++
		}
	}
	p.code = codeStale
}

// CreateViewPattern builds a Pattern exposing the public shape dims over
// the same memory as src, with the same element order a reshape of a
// row-major array would give. It succeeds exactly when, after C-style
// compression of src, the requested dims can be partitioned contiguously
// into groups whose products match the compressed axes' dims one for one;
// the group's innermost member inherits the compressed axis's stride and
// the others derive by running product.
//
// Returns false when the element counts differ, when dims needs more than
// MaxAxes, or when no valid partition exists (e.g. viewing a transposed
// matrix as flat). A false return is an expected, recoverable outcome: the
// caller should fall back to a contiguous copy. It never fails for a src
// with row-major strides.
func CreateViewPattern(src *Pattern, dims []int) (Pattern, bool) {
	if len(dims) > MaxAxes {
		return Pattern{}, false
	}
	n := int64(1)
	for _, d := range dims {
		if d < 1 {
			return Pattern{}, false
		}
		n *= int64(d)
	}
	if n != src.NumElements() {
		return Pattern{}, false
	}

	c := *src
	CompressPatternC(&c)

	// Public-order walk: compressed axes outermost-first.
	type paxis struct{ dim, stride int }
	var cAxes [MaxAxes]paxis
	for axis := 0; axis < c.numAxes; axis++ {
		raxis := c.numAxes - 1 - axis
		cAxes[axis] = paxis{c.dims[raxis], c.strides[raxis]}
	}

	outStrides := make([]int, len(dims))
	ci := 0
	group := int64(1)
	groupStart := 0
	for i, d := range dims {
		if d == 1 {
			outStrides[i] = 0
			continue
		}
		if group == 1 {
			groupStart = i
		}
		group *= int64(d)
		if ci >= c.numAxes {
			return Pattern{}, false
		}
		target := int64(cAxes[ci].dim)
		if group > target {
			return Pattern{}, false
		}
		if group == target {
			// Close the group: innermost member gets the source stride,
			// outer members the running products.
			stride := cAxes[ci].stride
			for j := i; j >= groupStart; j-- {
				if dims[j] == 1 {
					continue
				}
				outStrides[j] = stride
				stride *= dims[j]
			}
			ci++
			group = 1
		}
	}
	if group != 1 || ci != c.numAxes {
		return Pattern{}, false
	}

	var out Pattern
	out.numAxes = len(dims)
	for axis, d := range dims {
		raxis := out.numAxes - 1 - axis
		out.dims[raxis] = d
		out.strides[raxis] = outStrides[axis]
	}
	out.setUnusedAxes()
	out.offset = src.offset
	out.code = codeStale
	if !out.IsValid() {
		// A self-overlapping source can hand two result axes the same
		// stride; such a view has no valid Pattern.
		return Pattern{}, false
	}
	return out, true
}
