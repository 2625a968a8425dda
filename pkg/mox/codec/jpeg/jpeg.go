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

// Package jpeg implements the baseline JPEG picture codec: RGB only,
// no alpha, quality-controlled lossy compression.
package jpeg

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/codec/imageutil"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
)

func init() {
	codec.RegisterVideo(header.JPEG, Info{})
}

const defaultQuality = 90

// Info is the JPEG codec's capability/factory surface.
type Info struct{}

// CanCompressType implements codec.VideoInfo: libjpeg only ever takes
// 8-bit samples.
func (Info) CanCompressType(t pixel.Type) bool { return t == pixel.U8 }

// CompressedType implements codec.VideoInfo: anything else is narrowed
// down to U8, the only depth JPEG can carry, except the 32-bit
// identifier type U32, which fails.
func (Info) CompressedType(t pixel.Type) (pixel.Type, error) {
	if t == pixel.U32 {
		return 0, fmt.Errorf("jpeg: cannot carry identifier type %v: %w", t, moxerr.ErrLogic)
	}
	return pixel.U8, nil
}

// ChannelCapabilities implements codec.VideoInfo: JPEG has no alpha
// channel, so only a bare RGB layer is accepted.
func (Info) ChannelCapabilities() codec.Channels {
	return codec.ChannelsRGB
}

func buildDescriptor(h *header.Header) (descriptor.RGBA, error) {
	displayWindow, err := h.DisplayWindow()
	if err != nil {
		return descriptor.RGBA{}, err
	}
	sampledWindow, err := h.SampledWindow()
	if err != nil {
		return descriptor.RGBA{}, err
	}
	frameRate, err := h.FrameRate()
	if err != nil {
		return descriptor.RGBA{}, err
	}

	desc := descriptor.RGBA{
		VideoGeneric: descriptor.VideoGeneric{
			Generic: descriptor.Generic{
				EditRate:         frameRate,
				EssenceContainer: descriptor.ContainerJPEGPicture,
			},
			StoredWindow:     sampledWindow,
			SampledWindow:    sampledWindow,
			DisplayWindow:    displayWindow,
			PixelAspectRatio: moxtypes.Rational{Numerator: 1, Denominator: 1},
		},
		ComponentMaxRef: 255,
		ScanningLeftToRight: true,
		ScanningTopToBottom: true,
		PixelLayout: []descriptor.PixelLayoutEntry{
			{Code: 'R', Depth: 8},
			{Code: 'G', Depth: 8},
			{Code: 'B', Depth: 8},
		},
	}
	return desc, desc.Validate()
}

// NewCompressor implements codec.VideoInfo.
func (Info) NewCompressor(h *header.Header, channels *channel.List) (codec.VideoCodec, error) {
	if _, ok := channels.Find("R"); !ok {
		return nil, fmt.Errorf("jpeg: requires an R channel: %w", moxerr.ErrArgument)
	}
	if channels.Len() != 3 {
		return nil, fmt.Errorf("jpeg: requires exactly R, G, B channels, got %d: %w", channels.Len(), moxerr.ErrArgument)
	}

	desc, err := buildDescriptor(h)
	if err != nil {
		return nil, err
	}

	quality := defaultQuality
	if q, ok := h.VideoQuality(); ok {
		quality = q
	}

	return &Codec{descriptor: desc, quality: quality}, nil
}

// NewDecompressor implements codec.VideoInfo.
func (Info) NewDecompressor(d descriptor.Descriptor, h *header.Header, channels *channel.List) (codec.VideoCodec, error) {
	rgba, ok := d.(descriptor.RGBA)
	if !ok {
		return nil, fmt.Errorf("jpeg: descriptor is not RGBA: %w", moxerr.ErrType)
	}
	channels.Insert("R", channel.Channel{Type: pixel.U8})
	channels.Insert("G", channel.Channel{Type: pixel.U8})
	channels.Insert("B", channel.Channel{Type: pixel.U8})
	h.SetDisplayWindow(rgba.DisplayWindow)
	h.SetSampledWindow(rgba.SampledWindow)
	h.SetFrameRate(rgba.EditRate)

	return &Codec{descriptor: rgba}, nil
}

// Codec implements codec.VideoCodec for baseline JPEG picture essence.
type Codec struct {
	descriptor descriptor.RGBA
	quality    int

	pendingData   []*moxtypes.DataChunk
	pendingFrames []*framebuffer.FrameBuffer
}

// Descriptor implements codec.VideoCodec.
func (c *Codec) Descriptor() descriptor.Descriptor { return c.descriptor }

// DataWindow implements codec.VideoCodec.
func (c *Codec) DataWindow() moxtypes.Box2i { return c.descriptor.StoredWindow }

// DisplayWindow implements codec.VideoCodec.
func (c *Codec) DisplayWindow() moxtypes.Box2i { return c.descriptor.DisplayWindow }

// SampledWindow implements codec.VideoCodec.
func (c *Codec) SampledWindow() moxtypes.Box2i { return c.descriptor.SampledWindow }

// Compress implements codec.VideoCodec.
func (c *Codec) Compress(frame *framebuffer.FrameBuffer) error {
	if err := codec.ValidateWindows(frame.DataWindow(), c.descriptor.SampledWindow, true); err != nil {
		return err
	}

	img, err := imageutil.FromFrame(frame)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return err
	}

	c.pendingData = append(c.pendingData, moxtypes.WrapDataChunk(buf.Bytes()))
	return nil
}

// GetNextData implements codec.VideoCodec.
func (c *Codec) GetNextData() (*moxtypes.DataChunk, bool) {
	if len(c.pendingData) == 0 {
		return nil, false
	}
	d := c.pendingData[0]
	c.pendingData = c.pendingData[1:]
	return d, true
}

// Decompress implements codec.VideoCodec.
func (c *Codec) Decompress(data *moxtypes.DataChunk) error {
	img, err := jpeg.Decode(bytes.NewReader(data.Bytes()))
	if err != nil {
		return fmt.Errorf("jpeg: decode: %w", err)
	}
	frame, err := imageutil.ToFrame(img, false)
	if err != nil {
		return err
	}
	c.pendingFrames = append(c.pendingFrames, frame)
	return nil
}

// GetNextFrame implements codec.VideoCodec.
func (c *Codec) GetNextFrame() (*framebuffer.FrameBuffer, bool) {
	if len(c.pendingFrames) == 0 {
		return nil, false
	}
	f := c.pendingFrames[0]
	c.pendingFrames = c.pendingFrames[1:]
	return f, true
}

// EndOfStream implements codec.VideoCodec. Each JPEG frame is a
// self-contained picture, so there's nothing buffered to flush.
func (c *Codec) EndOfStream() error { return nil }
