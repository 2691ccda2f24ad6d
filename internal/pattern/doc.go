// Package pattern implements the shape/stride/offset metadata algebra
// behind strided array views.
//
// A Pattern is a value type describing which memory indexes of a flat
// buffer a view addresses. On top of that representation the package
// provides structural predicates (validity, canonical form, regularity),
// view manipulation (transpose, slice, select, squeeze, reshape via
// CreateViewPattern), joint compression of corresponding views, layout
// compaction and rebasing, and exact set algebra over memory-index sets
// (intersection, difference, inclusion, membership).
//
// Everything here is pure metadata arithmetic: no buffer is ever touched,
// so the tensor layer above can decide aliasing and layout questions
// before moving any data.
package pattern
