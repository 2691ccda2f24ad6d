package pattern

// The classification code packs three facts about a Pattern into an int32,
// from the low bits:
//
//   - bits 0..MaxAxes-1: bit raxis is set when that axis has dim != 1
//     (the "dims code");
//   - bits 8..10: a value n, where n == 0 means no axis has stride 1 and
//     n == 1+raxis identifies the unique axis with stride 1 (the
//     uniqueness rule of IsValid guarantees at most one);
//   - bit 11: set when any axis has a negative stride.
//
// The code is a pure cache: every mutator either patches it exactly or
// stores codeStale, and readers recompute on demand. It must never be
// trusted from external storage.
const (
	codeNegativeStride = int32(1) << 11
	codeStrideOneShift = 8
	codeStrideOneMask  = int32(0x7) << codeStrideOneShift
	codeStale          = int32(-1)
)

// DimsCode returns the low-bits part of the classification code: one bit
// per private axis, set when that axis has dim != 1.
func DimsCode(p *Pattern) int32 {
	var c int32
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.dims[raxis] != 1 {
			c |= 1 << raxis
		}
	}
	return c
}

// ComputePatternCode computes the full classification code from scratch,
// ignoring any cached value.
func ComputePatternCode(p *Pattern) int32 {
	c := DimsCode(p)
	for raxis := 0; raxis < p.numAxes; raxis++ {
		if p.strides[raxis] == 1 {
			c |= int32(1+raxis) << codeStrideOneShift
		}
		if p.strides[raxis] < 0 {
			c |= codeNegativeStride
		}
	}
	return c
}

// Code returns the classification code, recomputing and caching it if the
// stored value is stale.
func (p *Pattern) Code() int32 {
	if p.code == codeStale {
		p.code = ComputePatternCode(p)
	}
	return p.code
}

// CachedCode returns the raw cached value, which may be codeStale (-1).
// Exposed for cache-coherence testing; ordinary callers want Code.
func (p *Pattern) CachedCode() int32 { return p.code }

// ContainsNegativeStride reports whether the code has the negative-stride
// bit set.
func ContainsNegativeStride(code int32) bool {
	return code&codeNegativeStride != 0
}

// StrideOneAxis returns the private index of the axis with stride 1, or -1
// if the code says no axis has stride 1.
func StrideOneAxis(code int32) int {
	n := int((code & codeStrideOneMask) >> codeStrideOneShift)
	return n - 1
}
