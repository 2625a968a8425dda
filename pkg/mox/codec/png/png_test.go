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

package png

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
)

func rgbaHeader(w, h int32) *header.Header {
	hdr := header.New()
	hdr.SetDisplayWindow(moxtypes.NewBox2i(w, h))
	hdr.SetSampledWindow(moxtypes.NewBox2i(w, h))
	return hdr
}

func TestChannelCapabilities(t *testing.T) {
	require.Equal(t, codec.ChannelsRGB|codec.ChannelsRGBA, Info{}.ChannelCapabilities())
}

func TestCompressDecompressRoundTripWithAlpha(t *testing.T) {
	const w, h = 4, 4
	hdr := rgbaHeader(w, h)
	channels := channel.NewList()
	channels.Insert("R", channel.Channel{Type: pixel.U8})
	channels.Insert("G", channel.Channel{Type: pixel.U8})
	channels.Insert("B", channel.Channel{Type: pixel.U8})
	channels.Insert("A", channel.Channel{Type: pixel.U8})

	enc, err := Info{}.NewCompressor(hdr, channels)
	require.NoError(t, err)

	frame, err := framebuffer.NewWithSize(w, h)
	require.NoError(t, err)
	rBuf := make([]byte, w*h)
	gBuf := make([]byte, w*h)
	bBuf := make([]byte, w*h)
	aBuf := make([]byte, w*h)
	for i := range rBuf {
		rBuf[i] = byte(i * 10)
		gBuf[i] = byte(200 - i*10)
		bBuf[i] = 77
		aBuf[i] = byte(128 + i)
	}
	require.NoError(t, frame.Insert("R", framebuffer.NewSlice(pixel.U8, rBuf, 1, w)))
	require.NoError(t, frame.Insert("G", framebuffer.NewSlice(pixel.U8, gBuf, 1, w)))
	require.NoError(t, frame.Insert("B", framebuffer.NewSlice(pixel.U8, bBuf, 1, w)))
	require.NoError(t, frame.Insert("A", framebuffer.NewSlice(pixel.U8, aBuf, 1, w)))

	require.NoError(t, enc.Compress(frame))
	data, ok := enc.GetNextData()
	require.True(t, ok)

	dec, err := Info{}.NewDecompressor(enc.Descriptor(), header.New(), channel.NewList())
	require.NoError(t, err)
	require.NoError(t, dec.Decompress(data))

	decoded, ok := dec.GetNextFrame()
	require.True(t, ok)

	rSlice, err := decoded.Slice("R")
	require.NoError(t, err)
	require.Equal(t, rBuf[0], rSlice.Base[rSlice.PixelOffset(0, 0)])

	aSlice, err := decoded.Slice("A")
	require.NoError(t, err)
	require.Equal(t, aBuf[0], aSlice.Base[aSlice.PixelOffset(0, 0)])

	// A pixel with nonzero color and partial alpha must survive
	// unchanged; premultiplied round-tripping would darken it.
	gSlice, err := decoded.Slice("G")
	require.NoError(t, err)
	for i := 0; i < w*h; i++ {
		x, y := i%w, i/w
		require.Equal(t, rBuf[i], rSlice.Base[rSlice.PixelOffset(x, y)])
		require.Equal(t, gBuf[i], gSlice.Base[gSlice.PixelOffset(x, y)])
		require.Equal(t, aBuf[i], aSlice.Base[aSlice.PixelOffset(x, y)])
	}
}
