package moxtypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRationalReduce(t *testing.T) {
	cases := []struct {
		name string
		in   Rational
		want Rational
	}{
		{"already reduced", Rational{24, 1}, Rational{24, 1}},
		{"ntsc frame rate", Rational{30000, 1001}, Rational{30000, 1001}},
		{"reducible", Rational{48000, 2}, Rational{24000, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.in.Reduce())
		})
	}
}

func TestNewRationalRejectsNonPositiveDenominator(t *testing.T) {
	_, err := NewRational(1, 0)
	require.Error(t, err)

	_, err = NewRational(1, -1)
	require.Error(t, err)
}

func TestBox2iEmpty(t *testing.T) {
	empty := Box2i{Min: V2i{X: 5, Y: 5}, Max: V2i{X: 4, Y: 9}}
	require.True(t, empty.IsEmpty())

	full := NewBox2i(64, 64)
	require.False(t, full.IsEmpty())
	require.Equal(t, int32(64), full.Width())
	require.Equal(t, int32(64), full.Height())
}

func TestBox2iIntersect(t *testing.T) {
	a := Box2i{Min: V2i{0, 0}, Max: V2i{9, 9}}
	b := Box2i{Min: V2i{5, 5}, Max: V2i{14, 14}}
	want := Box2i{Min: V2i{5, 5}, Max: V2i{9, 9}}
	require.Equal(t, want, a.Intersect(b))
}

func TestBox2iContains(t *testing.T) {
	outer := NewBox2i(64, 64)
	inner := Box2i{Min: V2i{1, 1}, Max: V2i{10, 10}}
	require.True(t, outer.Contains(inner))
	require.False(t, inner.Contains(outer))
}

func TestDataChunkRefCounting(t *testing.T) {
	chunk := NewDataChunk(16, 0)
	require.Equal(t, int32(1), chunk.RefCount())

	released := false
	chunk.OnRelease(func() { released = true })

	chunk.Retain()
	require.Equal(t, int32(2), chunk.RefCount())

	chunk.Release()
	require.False(t, released)

	chunk.Release()
	require.True(t, released)
}

func TestDataChunkGrow(t *testing.T) {
	chunk := NewDataChunk(4, 0)
	copy(chunk.Bytes(), []byte{1, 2, 3, 4})

	chunk.Grow(8)
	require.Equal(t, 8, chunk.Len())
	require.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, chunk.Bytes())
}
