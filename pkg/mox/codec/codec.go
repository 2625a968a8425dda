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

// Package codec defines the video/audio codec plug-in interfaces and
// the process-wide registry codec subpackages register themselves into
// from their init() functions.
package codec

import (
	"mox/pkg/mox/audiobuffer"
	"mox/pkg/mox/channel"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
	"mox/pkg/mox/sample"
)

// Channels is a bitmask of channel-layout shapes a video codec can
// accept in one call to compress.
type Channels uint32

// ChannelsNone signals no supported channel layout.
const ChannelsNone Channels = 0

// Channel capability bits.
const (
	ChannelsRGB Channels = 1 << iota
	ChannelsRGBA
	ChannelsY
	ChannelsYA
	ChannelsA
	ChannelsAny
)

// ChannelsAll is every capability bit set.
const ChannelsAll = ChannelsRGB | ChannelsRGBA | ChannelsY | ChannelsYA | ChannelsA | ChannelsAny

// AudioChannels is a bitmask of channel-count shapes an audio codec can
// accept.
type AudioChannels uint32

// AudioChannelsNone signals no supported channel count.
const AudioChannelsNone AudioChannels = 0

// Audio channel capability bits.
const (
	AudioChannelsMono AudioChannels = 1 << iota
	AudioChannelsStereo
	AudioChannels51
	AudioChannelsAny
)

// AudioChannelsAll is every audio capability bit set.
const AudioChannelsAll = AudioChannelsMono | AudioChannelsStereo | AudioChannels51 | AudioChannelsAny

// VideoCodec is a stateful compressor or decompressor instance.
type VideoCodec interface {
	Descriptor() descriptor.Descriptor

	DataWindow() moxtypes.Box2i
	DisplayWindow() moxtypes.Box2i
	SampledWindow() moxtypes.Box2i

	Compress(frame *framebuffer.FrameBuffer) error
	GetNextData() (*moxtypes.DataChunk, bool)

	Decompress(data *moxtypes.DataChunk) error
	GetNextFrame() (*framebuffer.FrameBuffer, bool)

	EndOfStream() error
}

// VideoInfo is a video codec plug-in's capability/factory surface.
type VideoInfo interface {
	CanCompressType(t pixel.Type) bool
	// CompressedType rounds t up to the nearest supported deeper type,
	// then down if no deeper type is supported; it fails if no type fits,
	// and a 32-bit identifier type must map to itself or fail.
	CompressedType(t pixel.Type) (pixel.Type, error)
	ChannelCapabilities() Channels
	NewCompressor(h *header.Header, channels *channel.List) (VideoCodec, error)
	NewDecompressor(d descriptor.Descriptor, h *header.Header, channels *channel.List) (VideoCodec, error)
}

// AudioCodec is a stateful audio compressor or decompressor instance.
type AudioCodec interface {
	Descriptor() descriptor.Descriptor

	Compress(audio *audiobuffer.AudioBuffer) error
	GetNextData() (*moxtypes.DataChunk, bool)

	SamplesInFrame(packetSize int) (int64, error)
	Decompress(data *moxtypes.DataChunk) error
	GetNextBuffer() (*audiobuffer.AudioBuffer, bool)

	EndOfStream() error
}

// AudioInfo is an audio codec plug-in's capability/factory surface.
type AudioInfo interface {
	CanCompressType(t sample.Type) bool
	CompressedType(t sample.Type) (sample.Type, error)
	ChannelCapabilities() AudioChannels
	NewCompressor(h *header.Header, channels *channel.AudioList) (AudioCodec, error)
	NewDecompressor(d descriptor.Descriptor, h *header.Header, channels *channel.AudioList) (AudioCodec, error)
}
