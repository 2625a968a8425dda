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

package uncompressedpcm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/audiobuffer"
	"mox/pkg/mox/channel"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/sample"
)

func stereoHeader(t *testing.T) *header.Header {
	hdr := header.New()
	hdr.SetSampleRate(moxtypes.Rational{Numerator: 48000, Denominator: 1})
	return hdr
}

func TestChannelCapabilities(t *testing.T) {
	require.Equal(t, codec.AudioChannelsAll, Info{}.ChannelCapabilities())
}

func TestCanCompressTypeExcludesFloat(t *testing.T) {
	require.True(t, Info{}.CanCompressType(sample.S24))
	require.False(t, Info{}.CanCompressType(sample.Float))
}

func TestCompressedTypePromotesFloatToS32(t *testing.T) {
	got, err := Info{}.CompressedType(sample.Float)
	require.NoError(t, err)
	require.Equal(t, sample.S32, got)
}

func TestNewCompressorRejectsUnsupportedChannelCount(t *testing.T) {
	hdr := stereoHeader(t)
	channels := channel.NewAudioList()
	channels.Insert("Left", channel.AudioChannel{Type: sample.S16})
	channels.Insert("Right", channel.AudioChannel{Type: sample.S16})
	channels.Insert("Center", channel.AudioChannel{Type: sample.S16})

	_, err := Info{}.NewCompressor(hdr, channels)
	require.ErrorIs(t, err, moxerr.ErrLogic)
}

func TestNewCompressorRejectsMixedSampleTypes(t *testing.T) {
	hdr := stereoHeader(t)
	channels := channel.NewAudioList()
	channels.Insert("Left", channel.AudioChannel{Type: sample.S16})
	channels.Insert("Right", channel.AudioChannel{Type: sample.S32})

	_, err := Info{}.NewCompressor(hdr, channels)
	require.ErrorIs(t, err, moxerr.ErrLogic)
}

func TestCompressDecompressRoundTripS16(t *testing.T) {
	hdr := stereoHeader(t)
	channels := channel.NewAudioList()
	channels.Insert("Left", channel.AudioChannel{Type: sample.S16})
	channels.Insert("Right", channel.AudioChannel{Type: sample.S16})

	enc, err := Info{}.NewCompressor(hdr, channels)
	require.NoError(t, err)

	samples := []int16{0, 1000, -1000, 32767, -32768}
	// S16 is stored as a 2-byte native slice (sample.Type.Size == 2), so
	// build its little-endian bytes directly.
	nativeLeft := make([]byte, len(samples)*2)
	nativeRight := make([]byte, len(samples)*2)
	for i, v := range samples {
		u := uint16(v)
		nativeLeft[i*2] = byte(u)
		nativeLeft[i*2+1] = byte(u >> 8)
		nativeRight[i*2] = byte(u)
		nativeRight[i*2+1] = byte(u >> 8)
	}
	audio, err := audiobuffer.New(int64(len(samples)))
	require.NoError(t, err)
	require.NoError(t, audio.Insert("Left", audiobuffer.NewAudioSlice(sample.S16, nativeLeft, 2)))
	require.NoError(t, audio.Insert("Right", audiobuffer.NewAudioSlice(sample.S16, nativeRight, 2)))

	require.NoError(t, enc.Compress(audio))
	data, ok := enc.GetNextData()
	require.True(t, ok)
	require.Equal(t, len(samples)*2*2, data.Len())

	dec, err := Info{}.NewDecompressor(enc.Descriptor(), header.New(), channel.NewAudioList())
	require.NoError(t, err)
	require.NoError(t, dec.Decompress(data))

	decoded, ok := dec.GetNextBuffer()
	require.True(t, ok)
	require.Equal(t, int64(len(samples)), decoded.Length())

	leftSlice, err := decoded.Slice("Left")
	require.NoError(t, err)
	for i, want := range samples {
		off := i * leftSlice.Stride
		got := int16(uint16(leftSlice.Base[off]) | uint16(leftSlice.Base[off+1])<<8)
		require.Equal(t, want, got)
	}
}

func TestSamplesInFrame(t *testing.T) {
	hdr := stereoHeader(t)
	channels := channel.NewAudioList()
	channels.Insert("Left", channel.AudioChannel{Type: sample.S16})
	channels.Insert("Right", channel.AudioChannel{Type: sample.S16})

	enc, err := Info{}.NewCompressor(hdr, channels)
	require.NoError(t, err)

	n, err := enc.SamplesInFrame(40)
	require.NoError(t, err)
	require.Equal(t, int64(10), n)

	_, err = enc.SamplesInFrame(41)
	require.ErrorIs(t, err, moxerr.ErrInput)
}

func TestPackUnpackS24SignExtends(t *testing.T) {
	native := []byte{0x00, 0x00, 0x80, 0xFF} // -8388608 in S24, sign-extended container
	wire := make([]byte, 3)
	packSample(sample.S24, native, wire)
	require.Equal(t, []byte{0x00, 0x00, 0x80}, wire)

	roundTripped := make([]byte, 4)
	unpackSample(sample.S24, wire, roundTripped)
	require.Equal(t, native, roundTripped)
}
