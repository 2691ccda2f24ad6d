// Package tensor provides typed strided views over flat buffers.
//
// A Tensor[T] pairs a shared data slice with a layout Pattern from
// internal/pattern. View operations (Transpose, Slice, Select, Squeeze,
// Unsqueeze, View) are zero-copy: they return a new Tensor aliasing the
// same buffer with a rewritten layout. Only Contiguous copies data.
//
// Example:
//
//	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
//	y := x.Transpose(0, 1) // 3x2 view, no copy
//	z := y.Contiguous()    // packed copy in the new layout
package tensor
