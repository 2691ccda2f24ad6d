// Package serialization implements the flat binary codec for Patterns.
//
// The format is a little-endian tuple (magic, version, num_axes, dims,
// strides, offset) in public axis order. The cached classification code
// is never written: it is a process-local cache, and anything read from
// storage is revalidated and gets a freshly computed code.
package serialization
