// Copyright 2020-2021 The Mox Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package framebuffer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
)

func u8Buffer(width, height int32, names ...string) (*FrameBuffer, map[string][]byte) {
	fb, err := NewWithSize(width, height)
	if err != nil {
		panic(err)
	}
	bufs := make(map[string][]byte)
	for _, name := range names {
		buf := make([]byte, int(width*height))
		bufs[name] = buf
		if err := fb.Insert(name, NewSlice(pixel.U8, buf, 1, int(width))); err != nil {
			panic(err)
		}
	}
	return fb, bufs
}

func TestPixelTypeRoundTripIdempotence(t *testing.T) {
	src, bufs := u8Buffer(4, 4, "Y")
	for i := range bufs["Y"] {
		bufs["Y"][i] = byte(i * 7)
	}

	dst, dstBufs := u8Buffer(4, 4, "Y")
	require.NoError(t, dst.CopyFromFrame(src, true))
	require.Equal(t, bufs["Y"], dstBufs["Y"])
}

func TestCopyFromFrameFillsMissingPlane(t *testing.T) {
	src, _ := u8Buffer(2, 2, "Y")
	dst, dstBufs := u8Buffer(2, 2, "Y", "A")
	dst.slices["A"] = Slice{Type: pixel.U8, Base: dstBufs["A"], XStride: 1, YStride: 2, XSampling: 1, YSampling: 1, FillValue: 255}

	require.NoError(t, dst.CopyFromFrame(src, true))
	for _, v := range dstBufs["A"] {
		require.Equal(t, byte(255), v)
	}
}

func TestCopyFromFrameOutsideOtherWindowUsesFillValue(t *testing.T) {
	src, srcBufs := u8Buffer(2, 2, "Y")
	for i := range srcBufs["Y"] {
		srcBufs["Y"][i] = 10
	}

	dst, dstBufs := u8Buffer(4, 4, "Y")
	dst.slices["Y"] = Slice{Type: pixel.U8, Base: dstBufs["Y"], XStride: 1, YStride: 4, XSampling: 1, YSampling: 1, FillValue: 99}

	require.NoError(t, dst.CopyFromFrame(src, true))
	require.Equal(t, byte(99), dstBufs["Y"][3*4+3])
	require.Equal(t, byte(10), dstBufs["Y"][0])
}

func TestRGBToYCbCrToRGBRec709RoundTrip(t *testing.T) {
	rgb, rgbBufs := u8Buffer(2, 2, "R", "G", "B")
	rgbBufs["R"][0], rgbBufs["G"][0], rgbBufs["B"][0] = 200, 50, 80
	for _, name := range []string{"R", "G", "B"} {
		for i := 1; i < len(rgbBufs[name]); i++ {
			rgbBufs[name][i] = rgbBufs[name][0]
		}
	}

	ycbcr, _ := u8Buffer(2, 2, planeY, planeCb, planeCr)
	ycbcr.SetCoefficients(Rec709)
	require.NoError(t, ycbcr.CopyFromFrame(rgb, true))

	back, backBufs := u8Buffer(2, 2, "R", "G", "B")
	require.NoError(t, back.CopyFromFrame(ycbcr, true))

	require.InDelta(t, 200, int(backBufs["R"][0]), 1)
	require.InDelta(t, 50, int(backBufs["G"][0]), 1)
	require.InDelta(t, 80, int(backBufs["B"][0]), 1)
}

func TestStudioRangeDiffersFromFullRange(t *testing.T) {
	y, _, _ := rgbToYCbCr(Rec601, 1, 1, 1)
	yFull, _, _ := rgbToYCbCr(Rec601FullRange, 1, 1, 1)
	require.InDelta(t, 235.0/255.0, y, 1e-9)
	require.InDelta(t, 1.0, yFull, 1e-9)
	require.NotEqual(t, y, yFull)

	yBlack, cbBlack, crBlack := rgbToYCbCr(Rec601, 0, 0, 0)
	require.InDelta(t, 16.0/255.0, yBlack, 1e-9)
	require.InDelta(t, 0, cbBlack, 1e-9)
	require.InDelta(t, 0, crBlack, 1e-9)
}

func TestStudioRangeRoundTripsThroughInverse(t *testing.T) {
	for _, c := range []Coefficients{Rec601, Rec601FullRange, Rec709, Rec709FullRange} {
		y, cb, cr := rgbToYCbCr(c, 0.6, 0.2, 0.9)
		r, g, b := ycbcrToRGB(c, y, cb, cr)
		require.InDelta(t, 0.6, r, 1e-9)
		require.InDelta(t, 0.2, g, 1e-9)
		require.InDelta(t, 0.9, b, 1e-9)
	}
}

func TestYCbCrToRGBMatrixIsExactInverse(t *testing.T) {
	fwd := rgbToYCbCrMatrix(Rec709)
	inv := ycbcrToRGBMatrix(Rec709)
	y, cb, cr := fwd.apply(0.5, 0.25, 0.75)
	r, g, b := inv.apply(y, cb, cr)
	require.InDelta(t, 0.5, r, 1e-9)
	require.InDelta(t, 0.25, g, 1e-9)
	require.InDelta(t, 0.75, b, 1e-9)
}

func TestInsertRejectsEmptyName(t *testing.T) {
	fb, err := NewWithSize(2, 2)
	require.NoError(t, err)
	err = fb.Insert("", NewSlice(pixel.U8, make([]byte, 4), 1, 2))
	require.Error(t, err)
}

func TestInsertRejectsUndersizedSlice(t *testing.T) {
	fb, err := NewWithSize(4, 4)
	require.NoError(t, err)
	err = fb.Insert("Y", NewSlice(pixel.U8, make([]byte, 2), 1, 4))
	require.Error(t, err)
}

func TestNewRejectsEmptyWindow(t *testing.T) {
	_, err := New(moxtypes.Box2i{Min: moxtypes.V2i{X: 5, Y: 5}, Max: moxtypes.V2i{X: 1, Y: 1}})
	require.Error(t, err)
}

func TestConvertComponentU8ToU16PreservesFullScale(t *testing.T) {
	v, err := convertComponent(pixel.U8, pixel.U16, 0xFF)
	require.NoError(t, err)
	require.Equal(t, float64(0xFFFF), v)
}

func TestConvertComponentHalfRangePromoteDemote(t *testing.T) {
	promoted, err := convertComponent(pixel.HalfRange16, pixel.U16, 0x8000)
	require.NoError(t, err)
	require.InDelta(t, 0xFFFF, promoted, 1)

	demoted, err := convertComponent(pixel.U16, pixel.HalfRange16, 0xFFFF)
	require.NoError(t, err)
	require.InDelta(t, 0x8000, demoted, 1)
}

func TestConvertComponentFloatRoundTrip(t *testing.T) {
	asFloat, err := convertComponent(pixel.U8, pixel.Float, 128)
	require.NoError(t, err)
	require.InDelta(t, 128.0/255.0, asFloat, 1e-9)

	back, err := convertComponent(pixel.Float, pixel.U8, asFloat)
	require.NoError(t, err)
	require.Equal(t, float64(128), back)
}

func TestHalfFloatRoundTrip(t *testing.T) {
	h := float32ToHalf(1.5)
	require.Equal(t, float32(1.5), halfToFloat32(h))
}

func TestConvertComponentRejectsIdentifierChannelRescale(t *testing.T) {
	_, err := convertComponent(pixel.U32, pixel.U16, 5)
	require.Error(t, err)
}

func TestSnapRoundsNearIntegerCoefficients(t *testing.T) {
	require.Equal(t, 1.0, snap(1+5e-8))
	require.Equal(t, 0.0, snap(-4e-8))
	require.Equal(t, -1.0, snap(-1+1e-8))
	notSnapped := snap(0.5)
	require.True(t, math.Abs(notSnapped-0.5) < 1e-12)
}

// TestRGBRampThroughRec601YCbCrRoundTrip runs a 256x1 red ramp
// (R = 0..255, G = B = 0) through a Rec.601 YCbCr buffer and back;
// every component must land within 1 of the source.
func TestRGBRampThroughRec601YCbCrRoundTrip(t *testing.T) {
	rgb, rgbBufs := u8Buffer(256, 1, "R", "G", "B")
	for x := 0; x < 256; x++ {
		rgbBufs["R"][x] = byte(x)
	}

	ycbcr, _ := u8Buffer(256, 1, planeY, planeCb, planeCr)
	ycbcr.SetCoefficients(Rec601)
	require.NoError(t, ycbcr.CopyFromFrame(rgb, true))

	back, backBufs := u8Buffer(256, 1, "R", "G", "B")
	require.NoError(t, back.CopyFromFrame(ycbcr, true))

	for x := 0; x < 256; x++ {
		require.InDelta(t, int(rgbBufs["R"][x]), int(backBufs["R"][x]), 1, "R at x=%d", x)
		require.InDelta(t, 0, int(backBufs["G"][x]), 1, "G at x=%d", x)
		require.InDelta(t, 0, int(backBufs["B"][x]), 1, "B at x=%d", x)
	}
}

// TestCopyFromFrameWithOffsetSourceWindow copies between buffers whose
// dataWindows share a region but have different origins; the shared
// pixels must land at the right absolute coordinates.
func TestCopyFromFrameWithOffsetSourceWindow(t *testing.T) {
	src, err := New(moxtypes.Box2i{Min: moxtypes.V2i{X: 2, Y: 2}, Max: moxtypes.V2i{X: 5, Y: 5}})
	require.NoError(t, err)
	srcBuf := make([]byte, 16)
	for i := range srcBuf {
		srcBuf[i] = byte(100 + i)
	}
	require.NoError(t, src.Insert("Y", NewSlice(pixel.U8, srcBuf, 1, 4)))

	dst, err := New(moxtypes.Box2i{Min: moxtypes.V2i{X: 4, Y: 4}, Max: moxtypes.V2i{X: 7, Y: 7}})
	require.NoError(t, err)
	dstBuf := make([]byte, 16)
	require.NoError(t, dst.Insert("Y", NewSlice(pixel.U8, dstBuf, 1, 4)))

	require.NoError(t, dst.CopyFromFrame(src, true))

	// Absolute pixel (4,4) is src-local (2,2) = byte 100+2*4+2 and
	// dst-local (0,0); (5,5) is src-local (3,3) and dst-local (1,1).
	require.Equal(t, byte(110), dstBuf[0])
	require.Equal(t, byte(115), dstBuf[1*4+1])
	// Outside the shared region the fill value (0) remains.
	require.Equal(t, byte(0), dstBuf[2*4+2])
}
