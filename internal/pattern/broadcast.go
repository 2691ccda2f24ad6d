package pattern

// Broadcasting compatibility follows the NumPy/PyTorch rule: conceptually
// left-pad the shorter dims with 1s, then every corresponding pair of dims
// must be equal or one of them must be 1. Because axes are stored in
// reversed private order, the padding needs no allocation: comparing by
// private index already aligns shapes from the right, and slots beyond a
// pattern's numAxes read as dim 1.

// dimAt reads the dim at a private index, treating axes beyond numAxes as
// dim 1 (the implicit left-padding).
func dimAt(p *Pattern, raxis int) int {
	if raxis >= p.numAxes {
		return 1
	}
	return p.dims[raxis]
}

// Broadcastable reports whether a and b have broadcast-compatible shapes.
func Broadcastable(a, b *Pattern) bool {
	n := maxInt(a.numAxes, b.numAxes)
	for raxis := 0; raxis < n; raxis++ {
		da, db := dimAt(a, raxis), dimAt(b, raxis)
		if da != db && da != 1 && db != 1 {
			return false
		}
	}
	return true
}

// BroadcastableNonReducing is Broadcastable with the extra restriction
// that b never broadcasts "in": b may not have dim 1 on an axis where a
// has dim > 1. Used when b is an output or in-place operand that must be
// at least as large as a on every axis.
func BroadcastableNonReducing(a, b *Pattern) bool {
	n := maxInt(a.numAxes, b.numAxes)
	for raxis := 0; raxis < n; raxis++ {
		da, db := dimAt(a, raxis), dimAt(b, raxis)
		if da != db && da != 1 && db != 1 {
			return false
		}
		if db == 1 && da > 1 {
			return false
		}
	}
	return true
}

// Broadcastable3 reports whether a, b and c are mutually
// broadcast-compatible.
func Broadcastable3(a, b, c *Pattern) bool {
	return Broadcastable(a, b) && Broadcastable(a, c) && Broadcastable(b, c)
}

// Broadcastable3NonReducing additionally forbids c from having dim 1 on
// any axis where a or b has dim > 1.
func Broadcastable3NonReducing(a, b, c *Pattern) bool {
	if !Broadcastable3(a, b, c) {
		return false
	}
	n := maxInt(maxInt(a.numAxes, b.numAxes), c.numAxes)
	for raxis := 0; raxis < n; raxis++ {
		if dimAt(c, raxis) == 1 && (dimAt(a, raxis) > 1 || dimAt(b, raxis) > 1) {
			return false
		}
	}
	return true
}

// SameDim reports whether a and b have identical dims after implicit left
// padding with 1s. This is the equality-only companion of Broadcastable,
// used to validate output-aliasing operations where size-1 broadcasting is
// not allowed.
func SameDim(a, b *Pattern) bool {
	n := maxInt(a.numAxes, b.numAxes)
	for raxis := 0; raxis < n; raxis++ {
		if dimAt(a, raxis) != dimAt(b, raxis) {
			return false
		}
	}
	return true
}

// SameDim3 is SameDim over three patterns.
func SameDim3(a, b, c *Pattern) bool {
	return SameDim(a, b) && SameDim(b, c)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
