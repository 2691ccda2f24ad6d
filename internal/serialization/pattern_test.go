package serialization

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strided-ml/strided/internal/pattern"
)

func TestPatternRoundTrip(t *testing.T) {
	p, err := pattern.New([]int{3, 1, 4}, []int{-8, 0, 2}, 17)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodePattern(&buf, &p))

	got, err := DecodePattern(&buf)
	require.NoError(t, err)
	assert.True(t, p.Equal(got), "got %v want %v", got, &p)
	// the code comes back fresh, not stale
	assert.Equal(t, pattern.ComputePatternCode(got), got.CachedCode())

	s := pattern.Scalar(-3)
	buf.Reset()
	require.NoError(t, EncodePattern(&buf, &s))
	got, err = DecodePattern(&buf)
	require.NoError(t, err)
	assert.True(t, s.Equal(got))
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	p := pattern.FromDims(2, 3)
	var buf bytes.Buffer
	require.NoError(t, EncodePattern(&buf, &p))
	raw := buf.Bytes()
	raw[0] = 'X'
	_, err := DecodePattern(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	p := pattern.FromDims(2, 3)
	var buf bytes.Buffer
	require.NoError(t, EncodePattern(&buf, &p))
	raw := buf.Bytes()
	raw[4] = 99
	_, err := DecodePattern(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeRejectsInvalidPattern(t *testing.T) {
	// hand-craft a tuple violating the dim-1/stride-0 rule
	var buf bytes.Buffer
	p := pattern.FromDims(1, 3)
	require.NoError(t, EncodePattern(&buf, &p))
	raw := buf.Bytes()
	// first public axis has dim 1; give it a nonzero stride
	raw[6+4*2] = 9 // first byte of strides[0]
	_, err := DecodePattern(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	p := pattern.FromDims(2, 3, 4)
	var buf bytes.Buffer
	require.NoError(t, EncodePattern(&buf, &p))
	raw := buf.Bytes()
	_, err := DecodePattern(bytes.NewReader(raw[:len(raw)-5]))
	assert.Error(t, err)
}
