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

package imageutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/pixel"
)

func TestFromFrameRejectsNonU8Planes(t *testing.T) {
	frame, err := framebuffer.NewWithSize(2, 2)
	require.NoError(t, err)
	require.NoError(t, frame.Insert("R", framebuffer.NewSlice(pixel.U16, make([]byte, 16), 2, 4)))
	require.NoError(t, frame.Insert("G", framebuffer.NewSlice(pixel.U16, make([]byte, 16), 2, 4)))
	require.NoError(t, frame.Insert("B", framebuffer.NewSlice(pixel.U16, make([]byte, 16), 2, 4)))

	_, err = FromFrame(frame)
	require.Error(t, err)
}

func TestFromFrameToFrameRoundTrip(t *testing.T) {
	const w, h = 3, 2
	frame, err := framebuffer.NewWithSize(w, h)
	require.NoError(t, err)

	rBuf := make([]byte, w*h)
	gBuf := make([]byte, w*h)
	bBuf := make([]byte, w*h)
	aBuf := make([]byte, w*h)
	for i := range rBuf {
		rBuf[i] = byte(10 + i)
		gBuf[i] = byte(60 + i)
		bBuf[i] = byte(110 + i)
		aBuf[i] = 255
	}
	require.NoError(t, frame.Insert("R", framebuffer.NewSlice(pixel.U8, rBuf, 1, w)))
	require.NoError(t, frame.Insert("G", framebuffer.NewSlice(pixel.U8, gBuf, 1, w)))
	require.NoError(t, frame.Insert("B", framebuffer.NewSlice(pixel.U8, bBuf, 1, w)))
	require.NoError(t, frame.Insert("A", framebuffer.NewSlice(pixel.U8, aBuf, 1, w)))

	img, err := FromFrame(frame)
	require.NoError(t, err)
	require.Equal(t, w, img.Bounds().Dx())
	require.Equal(t, h, img.Bounds().Dy())

	back, err := ToFrame(img, true)
	require.NoError(t, err)

	rSlice, err := back.Slice("R")
	require.NoError(t, err)
	require.Equal(t, rBuf[0], rSlice.Base[rSlice.PixelOffset(0, 0)])

	aSlice, err := back.Slice("A")
	require.NoError(t, err)
	require.Equal(t, byte(255), aSlice.Base[aSlice.PixelOffset(1, 1)])
}
