package pattern

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// The set-algebra engine treats each Pattern as the set of memory indexes
// it can address and computes intersections, differences, inclusion and
// membership between two such sets.
//
// The fast path works by re-expressing both patterns over the sorted
// union of their strides (splitting a pattern into pieces when its own
// structure cannot absorb the extra strides losslessly; the splits
// succeed exactly when the pattern is regular, see IsRegular), then solving a small
// Diophantine system per piece pair for the axis-offset tuples at which
// the pieces coincide. Pieces and offsets reduce the set operations to
// hyperrectangle arithmetic. When stride unification is impossible the
// exported predicates fall back to sampling and finally to brute-force
// materialization, which is always correct and can be arbitrarily slow.

// SlowPathSpanLimit bounds the memory-index span (max-min+1) the checked
// predicates are willing to materialize in the brute-force fallback.
// Callers for whom the latency/memory cliff of the slow path is
// unacceptable use the *Checked variants, which refuse (with an error)
// instead of attempting it.
var SlowPathSpanLimit int64 = 1 << 22

// findAllStrides merges the stride sets of two normalized patterns into
// one sorted list without duplicates. Reports failure when the union
// needs more axes than a Pattern can hold, in which case stride
// unification is impossible.
func findAllStrides(p1, p2 *Pattern) ([]int, bool) {
	strides := make([]int, 0, p1.numAxes+p2.numAxes)
	for r := 0; r < p1.numAxes; r++ {
		strides = append(strides, p1.strides[r])
	}
	for r := 0; r < p2.numAxes; r++ {
		strides = append(strides, p2.strides[r])
	}
	sort.Ints(strides)
	out := strides[:0]
	for i, s := range strides {
		if i == 0 || s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	if len(out) > MaxAxes {
		return nil, false
	}
	return out, true
}

// convertStridesLazily re-expresses a normalized pattern over the target
// stride list, which must contain every stride the pattern has. Axes for
// strides the pattern lacks get dim 1 (but keep the nonzero target
// stride: the result is an internal working pattern, not a valid one).
// The dims may not yet satisfy the axis-ordering property; that is
// ensureAxisOrderProperty's job.
func convertStridesLazily(p *Pattern, strides []int) Pattern {
	var out Pattern
	out.numAxes = len(strides)
	out.offset = p.offset
	out.code = codeStale
	in := 0
	for r, s := range strides {
		out.strides[r] = s
		if in < p.numAxes && p.strides[in] == s {
			out.dims[r] = p.dims[in]
			in++
		} else {
			out.dims[r] = 1
		}
	}
	out.setUnusedAxes()
	if in != p.numAxes {
		panic(fmt.Sprintf("pattern: strides of %v missing from target %v", p, strides))
	}
	return out
}

// ensureAxisOrderProperty establishes, for the pattern at patterns[idx],
// the property strides[i+1] >= strides[i]*dims[i] at private axis i, by
// re-distributing axis i's dim across the higher axes whose strides are
// multiples of strides[i]. Whenever a redistribution step does not divide
// evenly, the leftover run splits off as a new pattern appended to
// patterns (disjoint from the modified one, their union covering exactly
// what the original covered); appended patterns satisfy the property for
// all axes below i and are reprocessed by the caller for axis i itself.
//
// Requires the property to hold already for axes below i. Returns false
// when the pattern's structure cannot absorb an intervening stride,
// which is exactly the non-regular case; it always succeeds on patterns that were
// regular before conversion.
func ensureAxisOrderProperty(i, idx int, patterns *[]Pattern) bool {
	p := &(*patterns)[idx]
	d := p.dims[i]
	if d == 1 {
		return true
	}
	s := p.strides[i]
	prod := int64(s) * int64(d)
	k := p.numAxes
	for j := i + 1; j < p.numAxes; j++ {
		if int64(p.strides[j]) >= prod {
			k = j
			break
		}
		if p.dims[j] != 1 || p.strides[j]%s != 0 {
			return false
		}
	}
	curDim := d
	for j := k - 1; j > i; j-- {
		ratio := p.strides[j] / s
		jDim := curDim / ratio
		rem := curDim % ratio
		if rem != 0 {
			// The last rem steps of the axis-i run do not fill a whole
			// stride[j] block; they become their own pattern starting
			// where the whole blocks end.
			split := *p
			split.dims[i] = rem
			split.offset += int64(p.strides[j]) * int64(jDim)
			split.code = codeStale
			*patterns = append(*patterns, split)
			p = &(*patterns)[idx] // append may have reallocated
		}
		p.dims[j] = jDim
		p.dims[i] = ratio
		curDim = ratio
	}
	p.code = codeStale
	return true
}

// convertPatternStrides re-expresses a normalized pattern as one or more
// disjoint working patterns sharing exactly the target stride list, whose
// memory-index sets union to the original's. Fails (false) when the
// pattern is not regular with respect to the target strides.
func convertPatternStrides(p *Pattern, strides []int) ([]Pattern, bool) {
	out := []Pattern{convertStridesLazily(p, strides)}
	for raxis := 0; raxis+1 < len(strides); raxis++ {
		for i := 0; i < len(out); i++ {
			if !ensureAxisOrderProperty(raxis, i, &out) {
				return nil, false
			}
		}
	}
	return out, true
}

// offsetTuple is one solution o of pattern1[i+o] == pattern2[i], in the
// private numbering; n mirrors the patterns' numAxes.
type offsetTuple struct {
	n int
	o [MaxAxes]int
}

// findOffsets solves for every axis-offset tuple o at which two working
// patterns with identical strides can coincide: the o with some valid
// index i satisfying p1[i+o] == p2[i]. Expanding both sides, that is the
// Diophantine system
//
//	sum(strides[r]*o[r]) == p2.offset - p1.offset,
//	-p2.dims[r] < o[r] < p1.dims[r].
//
// The search runs from the highest-stride axis down. At axis r, with the
// higher offsets fixed and `remainder` the unresolved part of the right
// hand side, the axis-ordering property bounds the contribution of all
// lower axes to (-strides[r], strides[r]), so o[r] must satisfy
// -strides[r] < remainder - strides[r]*o[r] < strides[r]: at most the
// truncated quotient and its neighbor toward zero remainder qualify, and
// the dim bounds may eliminate either. This pruning is what keeps the
// search sub-exponential in practice.
//
// If keepAll is false the search may stop after the first solution.
func findOffsets(p1, p2 *Pattern, keepAll bool) []offsetTuple {
	if p1.numAxes == 0 {
		if p1.offset == p2.offset {
			return []offsetTuple{{}}
		}
		return nil
	}
	var out []offsetTuple
	var o [MaxAxes]int
	findOffsetsRecursive(p1, p2, p1.numAxes-1, p2.offset-p1.offset, keepAll, &o, &out)
	return out
}

func findOffsetsRecursive(p1, p2 *Pattern, raxis int, remainder int64,
	keepAll bool, o *[MaxAxes]int, out *[]offsetTuple) {
	stride := int64(p1.strides[raxis])
	cand := remainder / stride // truncates toward zero, like the derivation needs
	next := remainder - cand*stride

	inBounds := func(c int64) bool {
		return c > -int64(p2.dims[raxis]) && c < int64(p1.dims[raxis])
	}

	if raxis == 0 {
		// No lower axes can absorb a remainder: the division must be
		// exact, and the dim bounds still apply.
		if next == 0 && inBounds(cand) {
			o[0] = int(cand)
			tuple := offsetTuple{n: p1.numAxes}
			copy(tuple.o[:], o[:p1.numAxes])
			*out = append(*out, tuple)
		}
		return
	}

	if inBounds(cand) {
		o[raxis] = int(cand)
		findOffsetsRecursive(p1, p2, raxis-1, next, keepAll, o, out)
		if !keepAll && len(*out) > 0 {
			return
		}
	}
	if next == 0 {
		// Exact division: the neighboring candidate would leave a
		// remainder of magnitude stride, outside the open bound.
		return
	}
	step := int64(1)
	if next < 0 {
		step = -1
	}
	cand += step
	next -= stride * step
	if inBounds(cand) {
		o[raxis] = int(cand)
		findOffsetsRecursive(p1, p2, raxis-1, next, keepAll, o, out)
	}
}

// offsetToHyperrectangle converts one offset tuple into the set of
// indexes into p1 at which the two patterns coincide: per axis, i+o must
// be a valid p1 index and i a valid p2 index, giving the interval
// [max(o,0), min(p1.dim, o+p2.dim)) of p1 indexes. The interval is
// nonempty for any offset satisfying the dim bounds.
func offsetToHyperrectangle(p1, p2 *Pattern, o *offsetTuple) hyperrectangle {
	var h hyperrectangle
	h.numAxes = p1.numAxes
	for r := 0; r < p1.numAxes; r++ {
		begin := maxInt(o.o[r], 0)
		end := minInt(p1.dims[r], o.o[r]+p2.dims[r])
		if end <= begin {
			panic(fmt.Sprintf("pattern: empty coincidence interval at raxis %d (offset %d)", r, o.o[r]))
		}
		h.axes[r] = interval{begin, end}
	}
	return h
}

// ComputeIntersection computes Patterns whose memory-index sets union,
// disjointly, to the intersection of a's and b's sets. Both inputs must
// be valid. If keepAll is false the function may return after the first
// nonempty piece (the fast mode emptiness test).
//
// Returns ok=false when stride unification fails (an input is not
// regular enough to re-express at the joint strides); the answer simply
// cannot be computed by this algorithm then, and callers fall back to
// PatternsIntersect's slower ladder.
func ComputeIntersection(a, b *Pattern, keepAll bool) ([]Pattern, bool) {
	if !a.IsValid() || !b.IsValid() {
		panic(fmt.Sprintf("pattern: ComputeIntersection on invalid input: %v / %v", a, b))
	}
	p1, p2 := normalized(a), normalized(b)
	strides, ok := findAllStrides(&p1, &p2)
	if !ok {
		return nil, false
	}
	if len(strides) == 0 {
		// Both scalars: they intersect iff they are the same point.
		if p1.offset == p2.offset {
			return []Pattern{p1}, true
		}
		return nil, true
	}
	subs1, ok := convertPatternStrides(&p1, strides)
	if !ok {
		return nil, false
	}
	subs2, ok := convertPatternStrides(&p2, strides)
	if !ok {
		return nil, false
	}

	top := len(strides) - 1
	var out []Pattern
	for i := range subs1 {
		s1 := &subs1[i]
		lo1 := s1.offset
		hi1 := lo1 + int64(s1.strides[top])*int64(s1.dims[top]) // strict upper bound by axis dominance
		for j := range subs2 {
			s2 := &subs2[j]
			lo2 := s2.offset
			hi2 := lo2 + int64(s2.strides[top])*int64(s2.dims[top])
			if lo2 >= hi1 || lo1 >= hi2 {
				continue
			}
			for _, o := range findOffsets(s1, s2, keepAll) {
				h := offsetToHyperrectangle(s1, s2, &o)
				piece := hyperrectangleToPattern(s1, &h)
				out = append(out, sanitize(&piece))
			}
			if !keepAll && len(out) > 0 {
				return out, true
			}
		}
	}
	return out, true
}

// ComputeDifference computes Patterns whose memory-index sets union,
// disjointly, to set(a) minus set(b). Both inputs must be valid. Returns
// ok=false when stride unification fails, as for ComputeIntersection.
//
// Disjoint inputs pass a through; a fully covered a yields an empty
// result.
func ComputeDifference(a, b *Pattern) ([]Pattern, bool) {
	if !a.IsValid() || !b.IsValid() {
		panic(fmt.Sprintf("pattern: ComputeDifference on invalid input: %v / %v", a, b))
	}
	p1, p2 := normalized(a), normalized(b)
	strides, ok := findAllStrides(&p1, &p2)
	if !ok {
		return nil, false
	}
	if len(strides) == 0 {
		if p1.offset != p2.offset {
			return []Pattern{p1}, true
		}
		return nil, true
	}
	subs1, ok := convertPatternStrides(&p1, strides)
	if !ok {
		return nil, false
	}
	subs2, ok := convertPatternStrides(&p2, strides)
	if !ok {
		return nil, false
	}

	// Subtract each piece of b from every piece remaining of a, refining
	// a running list of leftovers.
	top := len(strides) - 1
	cur := subs1
	var next []Pattern
	for j := range subs2 {
		s2 := &subs2[j]
		lo2 := s2.offset
		hi2 := lo2 + int64(s2.strides[top])*int64(s2.dims[top])
		next = next[:0]
		for i := range cur {
			s1 := &cur[i]
			lo1 := s1.offset
			hi1 := lo1 + int64(s1.strides[top])*int64(s1.dims[top])
			if lo2 >= hi1 || lo1 >= hi2 {
				// No interaction: the piece survives whole.
				next = append(next, *s1)
				continue
			}
			rects := []hyperrectangle{fullHyperrectangle(s1)}
			var scratch []hyperrectangle
			for _, o := range findOffsets(s1, s2, true) {
				h := offsetToHyperrectangle(s1, s2, &o)
				scratch = scratch[:0]
				for _, r := range rects {
					subtractHyperrectangles(r, h, 0, &scratch)
				}
				rects = append(rects[:0], scratch...)
			}
			for r := range rects {
				next = append(next, hyperrectangleToPattern(s1, &rects[r]))
			}
		}
		cur = append(cur[:0], next...)
	}
	out := make([]Pattern, len(cur))
	for i := range cur {
		out[i] = sanitize(&cur[i])
	}
	return out, true
}

// PatternContains reports whether mindex belongs to p's memory-index set,
// in O(numAxes) by repeated division against the normalized strides from
// the highest axis down. Exact whenever p (normalized) has the
// axis-dominance property, which holds for every pattern with non-overlapping
// elements; a self-overlapping pattern may produce a false negative,
// which the callers in this package tolerate (they treat a positive as
// proof and a negative as inconclusive).
func PatternContains(p *Pattern, mindex int64) bool {
	q := normalized(p)
	m := mindex - q.offset
	for raxis := q.numAxes - 1; raxis >= 0; raxis-- {
		s := int64(q.strides[raxis])
		i := m / s
		if i < 0 || i >= int64(q.dims[raxis]) {
			return false
		}
		m -= i * s
	}
	return m == 0
}

// ToMemoryIndexSet materializes p's memory-index set explicitly: bit i of
// members reports whether base+i is in the set. The span is
// max-min+1 of the memory-index range, so this is the engine's latency
// and memory cliff; see SlowPathSpanLimit and the Checked predicates.
func ToMemoryIndexSet(p *Pattern) (base int64, members []bool) {
	q := normalized(p)
	min, max := q.MemoryIndexRange()
	members = make([]bool, max-min+1)
	var fill func(raxis int, m int64)
	fill = func(raxis int, m int64) {
		if raxis < 0 {
			members[m-min] = true
			return
		}
		s := int64(q.strides[raxis])
		for d := 0; d < q.dims[raxis]; d++ {
			fill(raxis-1, m+int64(d)*s)
		}
	}
	fill(q.numAxes-1, q.offset)
	return min, members
}

// RandomMemoryIndex draws a uniformly random element of p's index-tuple
// set and returns its memory index (uniform over tuples, not necessarily
// over distinct memory indexes if p broadcasts or overlaps).
func RandomMemoryIndex(p *Pattern, rng *rand.Rand) int64 {
	m := p.offset
	for raxis := 0; raxis < p.numAxes; raxis++ {
		m += int64(rng.Intn(p.dims[raxis])) * int64(p.strides[raxis])
	}
	return m
}

// PatternsIntersect reports whether a's and b's memory-index sets share
// any element. The implementation is a graduated ladder: exact range
// disjointness first, then a minimum-membership probe, then the fast
// intersection algorithm, and, only when stride unification fails, a
// randomized membership probe followed by brute-force materialization.
// Every rung is correct when it answers; the last rung always answers.
// The slow rungs emit a rate-limited warning, since needing them signals
// a performance cliff rather than an error.
func PatternsIntersect(a, b *Pattern) bool {
	ok, err := patternsIntersect(a, b, -1)
	if err != nil {
		// Unreachable: no limit was set.
		panic(err)
	}
	return ok
}

// PatternsIntersectChecked is PatternsIntersect with the brute-force rung
// gated by SlowPathSpanLimit: patterns whose spans exceed the limit get
// an error instead of an unbounded materialization.
func PatternsIntersectChecked(a, b *Pattern) (bool, error) {
	return patternsIntersect(a, b, SlowPathSpanLimit)
}

func patternsIntersect(a, b *Pattern, spanLimit int64) (bool, error) {
	if !a.IsValid() || !b.IsValid() {
		panic(fmt.Sprintf("pattern: PatternsIntersect on invalid input: %v / %v", a, b))
	}
	min1, max1 := a.MemoryIndexRange()
	min2, max2 := b.MemoryIndexRange()
	if min2 > max1 || min1 > max2 {
		return false, nil
	}
	// Cheap positive probe: does one pattern contain the other's minimum?
	if min2 >= min1 {
		if PatternContains(a, min2) {
			return true, nil
		}
	} else if PatternContains(b, min1) {
		return true, nil
	}

	if inter, ok := ComputeIntersection(a, b, false); ok {
		return len(inter) > 0, nil
	}

	warnSlowPath("patterns cannot be brought to common strides; falling back to slow intersection test",
		"pattern1", a.String(), "pattern2", b.String())

	// Random membership probes from the smaller side; false negatives
	// here just mean we go on to the exhaustive check.
	rng := rand.New(rand.NewSource(1))
	const numDraws = 10
	small, large := a, b
	if b.NumElements() < a.NumElements() {
		small, large = b, a
	}
	for i := 0; i < numDraws; i++ {
		if PatternContains(large, RandomMemoryIndex(small, rng)) {
			return true, nil
		}
	}

	if spanLimit >= 0 {
		if span := max1 - min1 + 1; span > spanLimit {
			return false, errors.Errorf("pattern: intersection test would materialize %d indexes (limit %d)", span, spanLimit)
		}
		if span := max2 - min2 + 1; span > spanLimit {
			return false, errors.Errorf("pattern: intersection test would materialize %d indexes (limit %d)", span, spanLimit)
		}
	}
	return patternsIntersectSlow(a, b), nil
}

// patternsIntersectSlow is the always-correct last resort: materialize
// both memory-index sets and scan their overlapping window.
func patternsIntersectSlow(a, b *Pattern) bool {
	base1, set1 := ToMemoryIndexSet(a)
	base2, set2 := ToMemoryIndexSet(b)
	lo := maxInt64(base1, base2)
	hi := minInt64(base1+int64(len(set1)), base2+int64(len(set2)))
	for m := lo; m < hi; m++ {
		if set1[m-base1] && set2[m-base2] {
			return true
		}
	}
	return false
}

// PatternIsSubsetOf reports whether every memory index of p is also in q.
// When the fast intersection applies, subset holds iff the intersection
// has as many distinct indexes as p itself; otherwise the sets are
// materialized.
func PatternIsSubsetOf(p, q *Pattern) bool {
	if inter, ok := ComputeIntersection(p, q, true); ok {
		var total int64
		for i := range inter {
			total += inter[i].NumElements()
		}
		n := normalized(p)
		return total == n.NumElements()
	}
	warnSlowPath("patterns cannot be brought to common strides; falling back to slow subset test",
		"pattern1", p.String(), "pattern2", q.String())
	base1, set1 := ToMemoryIndexSet(p)
	base2, set2 := ToMemoryIndexSet(q)
	for i, in := range set1 {
		if !in {
			continue
		}
		m := base1 + int64(i)
		j := m - base2
		if j < 0 || j >= int64(len(set2)) || !set2[j] {
			return false
		}
	}
	return true
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
