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

// Package jpeg2000 implements the JPEG 2000 picture codec: RGB(A) at
// 8 bits with a quality setting, wired to the pure-Go
// github.com/mrjoshuak/go-jpeg2000 codestream implementation, whose
// Encode/Decode follow the stdlib image codec convention (image/jpeg,
// image/png).
package jpeg2000

import (
	"bytes"
	"fmt"

	jp2k "github.com/mrjoshuak/go-jpeg2000"

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
	codec.RegisterVideo(header.JPEG2000, Info{})
}

const defaultQuality = 90

// Info is the JPEG 2000 codec's capability/factory surface.
type Info struct{}

// CanCompressType implements codec.VideoInfo.
func (Info) CanCompressType(t pixel.Type) bool { return t == pixel.U8 }

// CompressedType implements codec.VideoInfo.
func (Info) CompressedType(t pixel.Type) (pixel.Type, error) {
	if t == pixel.U32 {
		return 0, fmt.Errorf("jpeg2000: cannot carry identifier type %v: %w", t, moxerr.ErrLogic)
	}
	return pixel.U8, nil
}

// ChannelCapabilities implements codec.VideoInfo.
func (Info) ChannelCapabilities() codec.Channels {
	return codec.ChannelsRGB | codec.ChannelsRGBA
}

func buildDescriptor(h *header.Header, hasAlpha bool) (descriptor.RGBA, error) {
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

	layout := []descriptor.PixelLayoutEntry{
		{Code: 'R', Depth: 8},
		{Code: 'G', Depth: 8},
		{Code: 'B', Depth: 8},
	}
	if hasAlpha {
		layout = append(layout, descriptor.PixelLayoutEntry{Code: 'A', Depth: 8})
	}

	desc := descriptor.RGBA{
		VideoGeneric: descriptor.VideoGeneric{
			Generic: descriptor.Generic{
				EditRate:         frameRate,
				EssenceContainer: descriptor.ContainerJPEG2000Picture,
			},
			StoredWindow:     sampledWindow,
			SampledWindow:    sampledWindow,
			DisplayWindow:    displayWindow,
			PixelAspectRatio: moxtypes.Rational{Numerator: 1, Denominator: 1},
		},
		ComponentMaxRef:     255,
		AlphaMaxRef:         255,
		ScanningLeftToRight: true,
		ScanningTopToBottom: true,
		PixelLayout:         layout,
	}
	return desc, desc.Validate()
}

// NewCompressor implements codec.VideoInfo.
func (Info) NewCompressor(h *header.Header, channels *channel.List) (codec.VideoCodec, error) {
	if _, ok := channels.Find("R"); !ok {
		return nil, fmt.Errorf("jpeg2000: requires an R channel: %w", moxerr.ErrArgument)
	}
	_, hasAlpha := channels.Find("A")
	wantLen := 3
	if hasAlpha {
		wantLen = 4
	}
	if channels.Len() != wantLen {
		return nil, fmt.Errorf("jpeg2000: requires exactly %d channels, got %d: %w", wantLen, channels.Len(), moxerr.ErrArgument)
	}

	desc, err := buildDescriptor(h, hasAlpha)
	if err != nil {
		return nil, err
	}

	quality := defaultQuality
	if q, ok := h.VideoQuality(); ok {
		quality = q
	}

	return &Codec{descriptor: desc, hasAlpha: hasAlpha, quality: quality}, nil
}

// NewDecompressor implements codec.VideoInfo.
func (Info) NewDecompressor(d descriptor.Descriptor, h *header.Header, channels *channel.List) (codec.VideoCodec, error) {
	rgba, ok := d.(descriptor.RGBA)
	if !ok {
		return nil, fmt.Errorf("jpeg2000: descriptor is not RGBA: %w", moxerr.ErrType)
	}
	hasAlpha := false
	for _, entry := range rgba.PixelLayout {
		if entry.Code == 'A' {
			hasAlpha = true
		}
	}
	channels.Insert("R", channel.Channel{Type: pixel.U8})
	channels.Insert("G", channel.Channel{Type: pixel.U8})
	channels.Insert("B", channel.Channel{Type: pixel.U8})
	if hasAlpha {
		channels.Insert("A", channel.Channel{Type: pixel.U8})
	}
	h.SetDisplayWindow(rgba.DisplayWindow)
	h.SetSampledWindow(rgba.SampledWindow)
	h.SetFrameRate(rgba.EditRate)

	return &Codec{descriptor: rgba, hasAlpha: hasAlpha}, nil
}

// Codec implements codec.VideoCodec for JPEG 2000 picture essence.
type Codec struct {
	descriptor descriptor.RGBA
	hasAlpha   bool
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
	opts := &jp2k.Options{Quality: float32(c.quality)}
	if err := jp2k.Encode(&buf, img, opts); err != nil {
		return fmt.Errorf("jpeg2000: encode: %w", err)
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
	img, err := jp2k.Decode(bytes.NewReader(data.Bytes()))
	if err != nil {
		return fmt.Errorf("jpeg2000: decode: %w", err)
	}
	frame, err := imageutil.ToFrame(img, c.hasAlpha)
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

// EndOfStream implements codec.VideoCodec. Each JPEG 2000 frame is a
// self-contained picture, so there's nothing buffered to flush.
func (c *Codec) EndOfStream() error { return nil }
