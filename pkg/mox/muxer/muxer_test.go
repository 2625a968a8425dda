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

package muxer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/config"
	"mox/pkg/mox/container"
	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"

	_ "mox/pkg/mox/codec/uncompressed"
	_ "mox/pkg/mox/codec/uncompressedpcm"
)

func videoOnlyHeader(t *testing.T, width, height int32) *header.Header {
	t.Helper()
	h := header.New()
	h.SetDisplayWindow(moxtypes.NewBox2i(width, height))
	h.SetSampledWindow(moxtypes.NewBox2i(width, height))
	channels, err := h.Channels()
	require.NoError(t, err)
	for _, name := range []string{"R", "G", "B", "A"} {
		channels.Insert(name, channel.Channel{Type: pixel.U8})
	}
	return h
}

func solidFrame(t *testing.T, width, height int32, val byte) *framebuffer.FrameBuffer {
	t.Helper()
	fb, err := framebuffer.NewWithSize(width, height)
	require.NoError(t, err)
	for _, name := range []string{"R", "G", "B", "A"} {
		buf := make([]byte, int(width*height))
		for i := range buf {
			buf[i] = val
		}
		require.NoError(t, fb.Insert(name, framebuffer.NewSlice(pixel.U8, buf, 1, int(width))))
	}
	return fb
}

func TestNewWriterRequiresSomeChannels(t *testing.T) {
	h := header.New() // default Header carries empty channel and audiochannel lists
	_, err := NewWriter(container.NewMemoryStream(), h)
	require.Error(t, err)
	require.True(t, errors.Is(err, moxerr.ErrArgument))
}

func TestPushFrameWithoutVideoTrackFails(t *testing.T) {
	h := header.New()
	h.SetSampleRate(moxtypes.Rational{Numerator: 48000, Denominator: 1})
	audioChannels, err := h.AudioChannels()
	require.NoError(t, err)
	audioChannels.Insert("Mono", channel.AudioChannel{})

	w, err := NewWriter(container.NewMemoryStream(), h)
	require.NoError(t, err)

	frame, err := framebuffer.NewWithSize(4, 4)
	require.NoError(t, err)
	err = w.PushFrame(frame)
	require.Error(t, err)
	require.True(t, errors.Is(err, moxerr.ErrLogic))
}

func TestFinalizeIsIdempotent(t *testing.T) {
	h := videoOnlyHeader(t, 4, 4)
	stream := container.NewMemoryStream()
	w, err := NewWriter(stream, h)
	require.NoError(t, err)

	require.NoError(t, w.PushFrame(solidFrame(t, 4, 4, 7)))
	require.NoError(t, w.Finalize())

	sizeAfterFirst, err := stream.Size()
	require.NoError(t, err)

	require.NoError(t, w.Finalize())
	sizeAfterSecond, err := stream.Size()
	require.NoError(t, err)
	require.Equal(t, sizeAfterFirst, sizeAfterSecond)
}

func TestNewWriterRegistersAndFinalizeReleasesStreamHandle(t *testing.T) {
	h := videoOnlyHeader(t, 4, 4)
	stream := container.NewMemoryStream()
	w, err := NewWriter(stream, h)
	require.NoError(t, err)

	_, ok := container.LookupHandle(w.streamHandle)
	require.True(t, ok)

	require.NoError(t, w.PushFrame(solidFrame(t, 4, 4, 7)))
	require.NoError(t, w.Finalize())

	_, ok = container.LookupHandle(w.streamHandle)
	require.False(t, ok)

	// Idempotent: a second Finalize must not panic or double-release.
	require.NoError(t, w.Finalize())
}

func TestCumulativeAudioSamplesRoundsToNearest(t *testing.T) {
	sampleRate := moxtypes.Rational{Numerator: 1000, Denominator: 1}
	frameRate := moxtypes.Rational{Numerator: 3, Denominator: 1}

	require.Equal(t, int64(333), cumulativeAudioSamples(1, sampleRate, frameRate))
	require.Equal(t, int64(667), cumulativeAudioSamples(2, sampleRate, frameRate))
	require.Equal(t, int64(1000), cumulativeAudioSamples(3, sampleRate, frameRate))
}

// TestPerFrameAudioSampleCountsNTSC checks the 48000 Hz / 29.97 fps
// pairing over 1000 frames: per-frame counts sum to
// round(1000·48000·1001/30000) and no single count strays more than 1
// from the exact ratio.
func TestPerFrameAudioSampleCountsNTSC(t *testing.T) {
	sampleRate := moxtypes.Rational{Numerator: 48000, Denominator: 1}
	frameRate := moxtypes.Rational{Numerator: 30000, Denominator: 1001}
	ratio := 48000.0 * 1001.0 / 30000.0

	var sum int64
	prev := int64(0)
	for frame := int64(1); frame <= 1000; frame++ {
		cum := cumulativeAudioSamples(frame, sampleRate, frameRate)
		count := cum - prev
		require.InDelta(t, ratio, float64(count), 1, "frame %d", frame)
		sum += count
		prev = cum
	}
	require.Equal(t, int64(1601600), sum)
}

func TestNewWriterWithConfigAppliesDefaultQuality(t *testing.T) {
	h := videoOnlyHeader(t, 4, 4)
	_, ok := h.VideoQuality()
	require.False(t, ok)

	cfg := config.Defaults()
	cfg.DefaultVideoQuality = 85
	_, err := NewWriterWithConfig(container.NewMemoryStream(), h, cfg)
	require.NoError(t, err)

	q, ok := h.VideoQuality()
	require.True(t, ok)
	require.Equal(t, 85, q)

	// An explicit setting wins over the configured default.
	h2 := videoOnlyHeader(t, 4, 4)
	require.NoError(t, h2.SetVideoQuality(40))
	_, err = NewWriterWithConfig(container.NewMemoryStream(), h2, cfg)
	require.NoError(t, err)
	q, _ = h2.VideoQuality()
	require.Equal(t, 40, q)
}
