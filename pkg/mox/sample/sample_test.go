package sample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeAndBits(t *testing.T) {
	cases := []struct {
		typ      Type
		wantSize int
		wantBits int
	}{
		{U8, 1, 8},
		{S16, 2, 16},
		{S24, 4, 24},
		{S32, 4, 32},
		{Float, 4, 32},
	}
	for _, tc := range cases {
		t.Run(tc.typ.String(), func(t *testing.T) {
			size, err := tc.typ.Size()
			require.NoError(t, err)
			require.Equal(t, tc.wantSize, size)

			bits, err := tc.typ.Bits()
			require.NoError(t, err)
			require.Equal(t, tc.wantBits, bits)
		})
	}
}

func TestZeroValue(t *testing.T) {
	zero, err := U8.ZeroValue()
	require.NoError(t, err)
	require.Equal(t, byte(128), zero)

	zero, err = S16.ZeroValue()
	require.NoError(t, err)
	require.Equal(t, byte(0), zero)
}

func TestUnknownType(t *testing.T) {
	unknown := Type(200)
	_, err := unknown.Size()
	require.Error(t, err)
	_, err = unknown.ZeroValue()
	require.Error(t, err)
}
