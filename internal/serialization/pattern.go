package serialization

import (
	"encoding/binary"
	stderrors "errors"
	"io"

	"github.com/pkg/errors"

	"github.com/strided-ml/strided/internal/pattern"
)

// Format constants.
const (
	MagicBytes    = "STRD"
	FormatVersion = 1
)

// Decode errors. Malformed input from storage is a data error, reported
// through these, never a panic.
var (
	ErrInvalidMagic       = stderrors.New("invalid magic bytes")
	ErrUnsupportedVersion = stderrors.New("unsupported format version")
	ErrInvalidPattern     = stderrors.New("stored pattern is not valid")
)

// wire mirrors the fixed-size part of the encoding.
type wireHeader struct {
	Magic   [4]byte
	Version uint8
	NumAxes uint8
}

// EncodePattern writes p to w. The layout after the 6-byte header is
// numAxes int32 dims, numAxes int64 strides (public order), then the
// int64 offset.
func EncodePattern(w io.Writer, p *pattern.Pattern) error {
	var h wireHeader
	copy(h.Magic[:], MagicBytes)
	h.Version = FormatVersion
	h.NumAxes = uint8(p.NumAxes())
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return errors.Wrap(err, "writing pattern header")
	}
	dims := make([]int32, p.NumAxes())
	for axis, d := range p.Dims() {
		dims[axis] = int32(d)
	}
	if err := binary.Write(w, binary.LittleEndian, dims); err != nil {
		return errors.Wrap(err, "writing dims")
	}
	strides := make([]int64, p.NumAxes())
	for axis, s := range p.Strides() {
		strides[axis] = int64(s)
	}
	if err := binary.Write(w, binary.LittleEndian, strides); err != nil {
		return errors.Wrap(err, "writing strides")
	}
	if err := binary.Write(w, binary.LittleEndian, p.Offset()); err != nil {
		return errors.Wrap(err, "writing offset")
	}
	return nil
}

// DecodePattern reads one pattern from r. The result is fully validated:
// a tuple that does not describe a valid pattern (axis count out of
// range, nonpositive dims, duplicated strides, ...) is rejected with an
// error wrapping ErrInvalidPattern, and the classification code of the
// returned pattern is computed fresh rather than trusted from storage.
func DecodePattern(r io.Reader) (*pattern.Pattern, error) {
	var h wireHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "reading pattern header")
	}
	if string(h.Magic[:]) != MagicBytes {
		return nil, errors.Wrapf(ErrInvalidMagic, "got %q", h.Magic)
	}
	if h.Version != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "got version %d", h.Version)
	}
	if int(h.NumAxes) > pattern.MaxAxes {
		return nil, errors.Wrapf(ErrInvalidPattern, "%d axes exceeds the maximum of %d", h.NumAxes, pattern.MaxAxes)
	}
	wireDims := make([]int32, h.NumAxes)
	if err := binary.Read(r, binary.LittleEndian, wireDims); err != nil {
		return nil, errors.Wrap(err, "reading dims")
	}
	wireStrides := make([]int64, h.NumAxes)
	if err := binary.Read(r, binary.LittleEndian, wireStrides); err != nil {
		return nil, errors.Wrap(err, "reading strides")
	}
	var offset int64
	if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
		return nil, errors.Wrap(err, "reading offset")
	}

	dims := make([]int, h.NumAxes)
	strides := make([]int, h.NumAxes)
	for i := range wireDims {
		dims[i] = int(wireDims[i])
		s := wireStrides[i]
		if int64(int(s)) != s {
			return nil, errors.Wrapf(ErrInvalidPattern, "stride %d overflows", s)
		}
		strides[i] = int(s)
	}
	p, err := pattern.New(dims, strides, offset)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPattern, "%v", err)
	}
	p.Code() // computed fresh; never taken from storage
	return &p, nil
}
