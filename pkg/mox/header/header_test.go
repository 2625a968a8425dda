package header

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
)

func TestNewDefaults(t *testing.T) {
	h := New()

	dw, err := h.DisplayWindow()
	require.NoError(t, err)
	require.Equal(t, moxtypes.NewBox2i(64, 64), dw)

	fr, err := h.FrameRate()
	require.NoError(t, err)
	require.Equal(t, moxtypes.Rational{Numerator: 24, Denominator: 1}, fr)

	vc, err := h.VideoCompression()
	require.NoError(t, err)
	require.Equal(t, Uncompressed, vc)
}

func TestMissingAttribute(t *testing.T) {
	h := New()
	_, err := h.Get("nonexistent")
	require.ErrorIs(t, err, moxerr.ErrArgument)
}

func TestTypeMismatch(t *testing.T) {
	h := New()
	// frameRate is a Rational attribute; asking for it as a Box2i
	// surfaces a Type error, not a zero value.
	_, err := h.box2i(FrameRateKey)
	require.ErrorIs(t, err, moxerr.ErrType)
}

func TestVideoQualityLosslessByDefault(t *testing.T) {
	h := New()
	_, ok := h.VideoQuality()
	require.False(t, ok)

	require.NoError(t, h.SetVideoQuality(80))
	q, ok := h.VideoQuality()
	require.True(t, ok)
	require.Equal(t, 80, q)

	h.SetLossless()
	_, ok = h.VideoQuality()
	require.False(t, ok)
}

func TestSetVideoQualityRejectsOutOfRange(t *testing.T) {
	h := New()
	err := h.SetVideoQuality(101)
	require.ErrorIs(t, err, moxerr.ErrArgument)
}

func TestCloneIsDeep(t *testing.T) {
	h := New()
	clone := h.Clone()
	clone.SetDuration(5)

	d, err := h.Duration()
	require.NoError(t, err)
	require.Equal(t, 0, d)

	cd, err := clone.Duration()
	require.NoError(t, err)
	require.Equal(t, 5, cd)
}

func TestEraseIsNoOpForMissingName(t *testing.T) {
	h := New()
	h.Erase("nonexistent")
}
