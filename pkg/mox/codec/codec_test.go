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

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
)

type fakeVideoInfo struct {
	caps       Channels
	compressed pixel.Type
}

func (f fakeVideoInfo) CanCompressType(t pixel.Type) bool { return t == f.compressed }
func (f fakeVideoInfo) CompressedType(t pixel.Type) (pixel.Type, error) {
	return f.compressed, nil
}
func (f fakeVideoInfo) ChannelCapabilities() Channels { return f.caps }
func (f fakeVideoInfo) NewCompressor(h *header.Header, channels *channel.List) (VideoCodec, error) {
	return nil, moxerr.ErrNoImpl
}
func (f fakeVideoInfo) NewDecompressor(d descriptor.Descriptor, h *header.Header, channels *channel.List) (VideoCodec, error) {
	return nil, moxerr.ErrNoImpl
}

func TestRegisterAndLookupVideo(t *testing.T) {
	info := fakeVideoInfo{caps: ChannelsRGB, compressed: pixel.U16}
	RegisterVideo(header.JPEG2000, info)

	got, err := LookupVideo(header.JPEG2000)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestLookupVideoUnregisteredFails(t *testing.T) {
	_, err := LookupVideo(header.Dirac)
	assert.ErrorIs(t, err, moxerr.ErrNoImpl)
}

func rgbChannels() *channel.List {
	l := channel.NewList()
	l.Insert("R", channel.Channel{Type: pixel.U8})
	l.Insert("G", channel.Channel{Type: pixel.U8})
	l.Insert("B", channel.Channel{Type: pixel.U8})
	return l
}

func TestNegotiateChannelsAnyHandsWholeList(t *testing.T) {
	info := fakeVideoInfo{caps: ChannelsAny, compressed: pixel.U16}
	layers, adjusted, err := NegotiateChannels(info, rgbChannels())
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.ElementsMatch(t, []string{"R", "G", "B"}, layers[0].Names)
	for _, name := range adjusted.Names() {
		c, _ := adjusted.Find(name)
		assert.Equal(t, pixel.U16, c.Type)
	}
}

func TestNegotiateChannelsRewritesTypeCodecCannotCompress(t *testing.T) {
	info := fakeVideoInfo{caps: ChannelsRGB, compressed: pixel.U32}
	_, adjusted, err := NegotiateChannels(info, rgbChannels())
	require.NoError(t, err)
	c, _ := adjusted.Find("R")
	assert.Equal(t, pixel.U32, c.Type)
}

func TestNegotiateChannelsPartitionsRGBPlusAlpha(t *testing.T) {
	info := fakeVideoInfo{caps: ChannelsRGBA, compressed: pixel.U8}
	l := rgbChannels()
	l.Insert("A", channel.Channel{Type: pixel.U8})

	layers, _, err := NegotiateChannels(info, l)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.ElementsMatch(t, []string{"R", "G", "B", "A"}, layers[0].Names)
}

func TestNegotiateChannelsFailsWhenNoLayerFits(t *testing.T) {
	info := fakeVideoInfo{caps: ChannelsY, compressed: pixel.U8}
	_, _, err := NegotiateChannels(info, rgbChannels())
	assert.ErrorIs(t, err, moxerr.ErrNoImpl)
}

func TestValidateWindowsRejectsMismatchWhenRequired(t *testing.T) {
	data := moxtypes.NewBox2i(100, 100)
	sampled := moxtypes.NewBox2i(50, 50)
	err := ValidateWindows(data, sampled, true)
	assert.ErrorIs(t, err, moxerr.ErrArgument)
}

func TestValidateWindowsAllowsSubsetWhenNotRequired(t *testing.T) {
	data := moxtypes.NewBox2i(100, 100)
	sampled := moxtypes.NewBox2i(50, 50)
	err := ValidateWindows(data, sampled, false)
	assert.NoError(t, err)
}

func TestChannelsAllIncludesEveryBit(t *testing.T) {
	assert.Equal(t, ChannelsRGB|ChannelsRGBA|ChannelsY|ChannelsYA|ChannelsA|ChannelsAny, ChannelsAll)
	assert.NotEqual(t, Channels(0), ChannelsRGB)
}
