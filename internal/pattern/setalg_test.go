package pattern

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ground-truth set helpers

func setIntersection(a, b map[int64]struct{}) map[int64]struct{} {
	out := make(map[int64]struct{})
	for m := range a {
		if _, ok := b[m]; ok {
			out[m] = struct{}{}
		}
	}
	return out
}

func setDifference(a, b map[int64]struct{}) map[int64]struct{} {
	out := make(map[int64]struct{})
	for m := range a {
		if _, ok := b[m]; !ok {
			out[m] = struct{}{}
		}
	}
	return out
}

// unionOfPieces collects the memory-index sets of the returned pieces,
// requiring them to be valid and pairwise disjoint.
func unionOfPieces(t *testing.T, pieces []Pattern) map[int64]struct{} {
	t.Helper()
	out := make(map[int64]struct{})
	for i := range pieces {
		require.True(t, pieces[i].IsValid(), "piece %d invalid: %v", i, &pieces[i])
		for m := range memorySet(&pieces[i]) {
			_, dup := out[m]
			require.False(t, dup, "pieces overlap at %d", m)
			out[m] = struct{}{}
		}
	}
	return out
}

func silenceWarnings(t *testing.T) {
	t.Helper()
	SetWarningSink(NewWarningSink(slog.New(slog.NewTextHandler(io.Discard, nil)), 0))
	t.Cleanup(func() { SetWarningSink(nil) })
}

// ComputeIntersection

func TestComputeIntersectionOverlappingRanges(t *testing.T) {
	p1 := mustNew(t, []int{6}, []int{1}, 0) // {0..5}
	p2 := mustNew(t, []int{4}, []int{1}, 3) // {3..6}
	pieces, ok := ComputeIntersection(&p1, &p2, true)
	require.True(t, ok)
	assert.Equal(t, map[int64]struct{}{3: {}, 4: {}, 5: {}}, unionOfPieces(t, pieces))
}

func TestComputeIntersectionStrided(t *testing.T) {
	p1 := mustNew(t, []int{6}, []int{2}, 0) // {0,2,...,10}
	p2 := mustNew(t, []int{3}, []int{6}, 4) // {4,10,16}
	pieces, ok := ComputeIntersection(&p1, &p2, true)
	require.True(t, ok)
	assert.Equal(t, map[int64]struct{}{4: {}, 10: {}}, unionOfPieces(t, pieces))
}

func TestComputeIntersectionDisjoint(t *testing.T) {
	p1 := FromDims(2, 3)
	p2 := mustNew(t, []int{4}, []int{1}, 100)
	pieces, ok := ComputeIntersection(&p1, &p2, true)
	require.True(t, ok)
	assert.Empty(t, pieces)
}

func TestComputeIntersectionScalars(t *testing.T) {
	a, b := Scalar(5), Scalar(5)
	pieces, ok := ComputeIntersection(&a, &b, true)
	require.True(t, ok)
	assert.Equal(t, map[int64]struct{}{5: {}}, unionOfPieces(t, pieces))

	c := Scalar(6)
	pieces, ok = ComputeIntersection(&a, &c, true)
	require.True(t, ok)
	assert.Empty(t, pieces)
}

func TestComputeIntersectionIncompatibleStrides(t *testing.T) {
	// strides 2 and 3 cannot be unified: neither divides the other and
	// the dims leave no room to split
	p1 := mustNew(t, []int{5}, []int{2}, 0)
	p2 := mustNew(t, []int{4}, []int{3}, 0)
	_, ok := ComputeIntersection(&p1, &p2, true)
	assert.False(t, ok)
}

func TestComputeIntersectionRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(51))
	converted := 0
	for trial := 0; trial < 500; trial++ {
		a, b := randomPattern(rng), randomPattern(rng)
		want := setIntersection(memorySet(&a), memorySet(&b))

		pieces, ok := ComputeIntersection(&a, &b, true)
		if !ok {
			continue
		}
		converted++
		require.Equal(t, want, unionOfPieces(t, pieces), "a=%v b=%v", &a, &b)

		// fast mode agrees about emptiness
		probe, ok := ComputeIntersection(&a, &b, false)
		require.True(t, ok)
		assert.Equal(t, len(want) > 0, len(probe) > 0)
	}
	// the fast path must actually fire for a good share of the draws
	assert.Greater(t, converted, 100)
}

// ComputeDifference

func TestComputeDifferenceBasic(t *testing.T) {
	p1 := mustNew(t, []int{6}, []int{1}, 0)
	p2 := mustNew(t, []int{4}, []int{1}, 3)
	pieces, ok := ComputeDifference(&p1, &p2)
	require.True(t, ok)
	assert.Equal(t, map[int64]struct{}{0: {}, 1: {}, 2: {}}, unionOfPieces(t, pieces))

	// disjoint: p1 passes through whole
	far := mustNew(t, []int{2}, []int{1}, 50)
	pieces, ok = ComputeDifference(&p1, &far)
	require.True(t, ok)
	assert.Equal(t, memorySet(&p1), unionOfPieces(t, pieces))

	// only the element outside p1 remains
	pieces, ok = ComputeDifference(&p2, &p1)
	require.True(t, ok)
	assert.Equal(t, map[int64]struct{}{6: {}}, unionOfPieces(t, pieces))
}

func TestComputeDifferenceRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(52))
	converted := 0
	for trial := 0; trial < 500; trial++ {
		a, b := randomPattern(rng), randomPattern(rng)
		want := setDifference(memorySet(&a), memorySet(&b))

		pieces, ok := ComputeDifference(&a, &b)
		if !ok {
			continue
		}
		converted++
		require.Equal(t, want, unionOfPieces(t, pieces), "a=%v b=%v", &a, &b)
	}
	assert.Greater(t, converted, 100)
}

// Membership and materialization

func TestPatternContainsExact(t *testing.T) {
	// patterns whose normalized form has the axis-dominance property get
	// an exact answer in both directions
	p := FromDims(3, 4)
	Slice(1, 1, 3, &p)
	set := memorySet(&p)
	min, max := p.MemoryIndexRange()
	for m := min - 2; m <= max+2; m++ {
		_, want := set[m]
		assert.Equal(t, want, PatternContains(&p, m), "mindex %d", m)
	}
}

func TestPatternContainsNoFalsePositives(t *testing.T) {
	rng := rand.New(rand.NewSource(53))
	for trial := 0; trial < 300; trial++ {
		p := randomPattern(rng)
		set := memorySet(&p)
		min, max := p.MemoryIndexRange()
		for m := min - 1; m <= max+1; m++ {
			if PatternContains(&p, m) {
				_, ok := set[m]
				assert.True(t, ok, "false positive at %d for %v", m, &p)
			}
		}
	}
}

func TestToMemoryIndexSet(t *testing.T) {
	rng := rand.New(rand.NewSource(54))
	for trial := 0; trial < 200; trial++ {
		p := randomPattern(rng)
		want := memorySet(&p)
		base, members := ToMemoryIndexSet(&p)
		got := make(map[int64]struct{})
		for i, in := range members {
			if in {
				got[base+int64(i)] = struct{}{}
			}
		}
		require.Equal(t, want, got, "pattern %v", &p)
		// the bitmap spans exactly the memory-index range
		assert.True(t, members[0])
		assert.True(t, members[len(members)-1])
	}
}

func TestRandomMemoryIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(55))
	p := FromDims(3, 4)
	Transpose(0, 1, &p)
	set := memorySet(&p)
	for i := 0; i < 100; i++ {
		_, ok := set[RandomMemoryIndex(&p, rng)]
		assert.True(t, ok)
	}
}

// Intersection predicates

func TestPatternsIntersectMatchesBruteForce(t *testing.T) {
	silenceWarnings(t)
	rng := rand.New(rand.NewSource(56))
	for trial := 0; trial < 500; trial++ {
		a, b := randomPattern(rng), randomPattern(rng)
		want := len(setIntersection(memorySet(&a), memorySet(&b))) > 0
		assert.Equal(t, want, PatternsIntersect(&a, &b), "a=%v b=%v", &a, &b)
	}
}

func TestPatternIsSubsetOf(t *testing.T) {
	silenceWarnings(t)

	whole := FromDims(4, 6)
	window := whole
	Slice(0, 1, 3, &window)
	Slice(1, 2, 5, &window)
	assert.True(t, PatternIsSubsetOf(&window, &whole))
	assert.False(t, PatternIsSubsetOf(&whole, &window))

	rng := rand.New(rand.NewSource(57))
	for trial := 0; trial < 300; trial++ {
		a, b := randomPattern(rng), randomPattern(rng)
		want := len(setDifference(memorySet(&a), memorySet(&b))) == 0
		assert.Equal(t, want, PatternIsSubsetOf(&a, &b), "a=%v b=%v", &a, &b)
	}
}

// evenOddPair builds two patterns that cannot be brought to common
// strides (their stride union needs six axes) and never intersect: the
// first covers only even indexes, the second only odd ones.
func evenOddPair(t *testing.T, n int) (Pattern, Pattern) {
	t.Helper()
	even := mustNew(t, []int{2, 2, n}, []int{16 * n, 4 * n, 2}, 0)
	odd := mustNew(t, []int{2, 2, n}, []int{32 * n, 8 * n, 4}, 1)
	return even, odd
}

func TestPatternsIntersectSlowPath(t *testing.T) {
	silenceWarnings(t)
	even, odd := evenOddPair(t, 40)
	if _, ok := ComputeIntersection(&even, &odd, false); ok {
		t.Fatal("expected stride unification to fail for this pair")
	}
	assert.False(t, PatternsIntersect(&even, &odd))

	shifted := odd
	shifted.addOffset(1) // now even, overlapping the first pattern's grid
	assert.True(t, PatternsIntersect(&even, &shifted))
}

func TestPatternsIntersectChecked(t *testing.T) {
	silenceWarnings(t)
	old := SlowPathSpanLimit
	SlowPathSpanLimit = 1000
	t.Cleanup(func() { SlowPathSpanLimit = old })

	// small spans: the slow path runs and answers
	even, odd := evenOddPair(t, 20)
	got, err := PatternsIntersectChecked(&even, &odd)
	require.NoError(t, err)
	assert.False(t, got)

	// large spans: refused instead of materialized
	even, odd = evenOddPair(t, 800)
	_, err = PatternsIntersectChecked(&even, &odd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "materialize")
}
