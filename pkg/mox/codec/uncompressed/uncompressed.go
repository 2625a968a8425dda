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

// Package uncompressed implements the uncompressed RGBA picture codec:
// interleaved pixels packed per SMPTE 377M E.2.46, one pixel layout
// entry per channel.
package uncompressed

import (
	"fmt"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
)

func init() {
	codec.RegisterVideo(header.Uncompressed, Info{})
}

type channelBits struct {
	name string
	code byte
	typ  pixel.Type
}

func pixelLayoutDepth(t pixel.Type) (uint8, error) {
	switch t {
	case pixel.U8:
		return 8, nil
	case pixel.U10:
		return 10, nil
	case pixel.U12:
		return 12, nil
	case pixel.U16:
		return 16, nil
	case pixel.U32:
		return 32, nil
	case pixel.Float:
		return descriptor.DepthFloat32, nil
	default:
		return 0, fmt.Errorf("uncompressed: pixel type %v has no SMPTE 377M E.2.46 layout depth: %w", t, moxerr.ErrArgument)
	}
}

func pixelLayoutBits(depth uint8) int {
	if depth == descriptor.DepthFloat32 {
		return 32
	}
	return int(depth)
}

// Info is the uncompressed codec's capability/factory surface.
type Info struct{}

// CanCompressType reports whether t has a defined SMPTE 377M pixel
// layout depth. Half-precision types are excluded: uncompressed MXF has
// no encoding for Adobe 16-bit or IEEE half-float.
func (Info) CanCompressType(t pixel.Type) bool {
	switch t {
	case pixel.U8, pixel.U10, pixel.U12, pixel.U16, pixel.U32, pixel.Float:
		return true
	default:
		return false
	}
}

// CompressedType rounds an unsupported type up to its nearest supported
// deeper equivalent.
func (info Info) CompressedType(t pixel.Type) (pixel.Type, error) {
	if info.CanCompressType(t) {
		return t, nil
	}
	switch t {
	case pixel.HalfRange16:
		return pixel.U16, nil
	case pixel.HalfFloat:
		return pixel.Float, nil
	default:
		return 0, fmt.Errorf("uncompressed: no supported type covers %v: %w", t, moxerr.ErrLogic)
	}
}

// ChannelCapabilities implements codec.VideoInfo.
func (Info) ChannelCapabilities() codec.Channels {
	return codec.ChannelsRGB | codec.ChannelsRGBA | codec.ChannelsA
}

// NewCompressor builds a compressor from the channels present in the
// channel list (R, G, B, A as available).
func (Info) NewCompressor(h *header.Header, channels *channel.List) (codec.VideoCodec, error) {
	displayWindow, err := h.DisplayWindow()
	if err != nil {
		return nil, err
	}
	sampledWindow, err := h.SampledWindow()
	if err != nil {
		return nil, err
	}
	frameRate, err := h.FrameRate()
	if err != nil {
		return nil, err
	}

	var bits []channelBits
	for _, entry := range []struct {
		name string
		code byte
	}{{"R", 'R'}, {"G", 'G'}, {"B", 'B'}, {"A", 'A'}} {
		if c, ok := channels.Find(entry.name); ok {
			bits = append(bits, channelBits{name: entry.name, code: entry.code, typ: c.Type})
		}
	}
	if len(bits) == 0 {
		return nil, fmt.Errorf("uncompressed: need some RGBA channels: %w", moxerr.ErrArgument)
	}

	var layout []descriptor.PixelLayoutEntry
	bitsPerPixel := 0
	for _, cb := range bits {
		depth, err := pixelLayoutDepth(cb.typ)
		if err != nil {
			return nil, err
		}
		layout = append(layout, descriptor.PixelLayoutEntry{Code: cb.code, Depth: depth})
		bitsPerPixel += pixelLayoutBits(depth)
	}
	padding := 0
	if bitsPerPixel%8 != 0 {
		padding = 8 - bitsPerPixel%8
		layout = append(layout, descriptor.PixelLayoutEntry{Code: 'F', Depth: uint8(padding)})
	}

	desc := descriptor.RGBA{
		VideoGeneric: descriptor.VideoGeneric{
			Generic: descriptor.Generic{
				EditRate:         frameRate,
				EssenceContainer: descriptor.ContainerUncompressedPicture,
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
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	return &Codec{descriptor: desc, channels: bits, padding: padding}, nil
}

// NewDecompressor reconstructs a decompressor from an on-disk RGBA
// descriptor; every stored channel is decoded as UINT8.
func (Info) NewDecompressor(d descriptor.Descriptor, h *header.Header, channels *channel.List) (codec.VideoCodec, error) {
	rgba, ok := d.(descriptor.RGBA)
	if !ok {
		return nil, fmt.Errorf("uncompressed: descriptor is not RGBA: %w", moxerr.ErrType)
	}

	var bits []channelBits
	for i := 0; i < len(rgba.PixelLayout); i++ {
		entry := rgba.PixelLayout[i]
		if entry.Code == 'F' || entry.Code == 0 {
			continue
		}
		bits = append(bits, channelBits{name: string(entry.Code), code: entry.Code, typ: pixel.U8})
	}
	if len(bits) == 0 {
		return nil, fmt.Errorf("uncompressed: descriptor has no color channels: %w", moxerr.ErrInput)
	}

	for _, cb := range bits {
		channels.Insert(cb.name, channel.Channel{Type: pixel.U8})
	}
	h.SetDisplayWindow(rgba.DisplayWindow)
	h.SetSampledWindow(rgba.SampledWindow)
	h.SetFrameRate(rgba.EditRate)

	return &Codec{descriptor: rgba, channels: bits}, nil
}

// Codec implements codec.VideoCodec for uncompressed RGBA picture essence.
type Codec struct {
	descriptor descriptor.RGBA
	channels   []channelBits
	padding    int

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

func (c *Codec) bitsPerPixel() int {
	total := 0
	for _, cb := range c.channels {
		depth, _ := pixelLayoutDepth(cb.typ)
		total += pixelLayoutBits(depth)
	}
	return total + c.padding
}

// Compress implements codec.VideoCodec: packs frame's named channels
// into one interleaved-pixel buffer per the descriptor's pixel layout.
func (c *Codec) Compress(frame *framebuffer.FrameBuffer) error {
	if err := codec.ValidateWindows(frame.DataWindow(), c.descriptor.SampledWindow, true); err != nil {
		return err
	}

	width := int(c.descriptor.StoredWindow.Width())
	height := int(c.descriptor.StoredWindow.Height())

	bitsPerPixel := c.bitsPerPixel()
	if bitsPerPixel%8 != 0 {
		return fmt.Errorf("uncompressed: pixel layout is %d bits, not byte aligned: %w", bitsPerPixel, moxerr.ErrLogic)
	}
	pixelStride := bitsPerPixel / 8
	rowBytes := width * pixelStride
	dataSize := rowBytes * height

	chunk := moxtypes.NewDataChunk(dataSize, 0)

	stored, err := framebuffer.NewWithSize(int32(width), int32(height))
	if err != nil {
		return err
	}
	offset := 0
	for _, cb := range c.channels {
		depth, err := pixelLayoutDepth(cb.typ)
		if err != nil {
			return err
		}
		byteWidth := pixelLayoutBits(depth) / 8
		s := framebuffer.NewSlice(cb.typ, chunk.Bytes()[offset:], pixelStride, rowBytes)
		if err := stored.Insert(cb.name, s); err != nil {
			return err
		}
		offset += byteWidth
	}

	if err := stored.CopyFromFrame(frame, false); err != nil {
		return err
	}

	c.pendingData = append(c.pendingData, chunk)
	return nil
}

// GetNextData implements codec.VideoCodec.
func (c *Codec) GetNextData() (*moxtypes.DataChunk, bool) {
	if len(c.pendingData) == 0 {
		return nil, false
	}
	chunk := c.pendingData[0]
	c.pendingData = c.pendingData[1:]
	return chunk, true
}

// Decompress implements codec.VideoCodec: unpacks one interleaved-pixel
// data chunk into a fresh FrameBuffer.
func (c *Codec) Decompress(data *moxtypes.DataChunk) error {
	width := int(c.descriptor.StoredWindow.Width())
	height := int(c.descriptor.StoredWindow.Height())

	pixelStride := len(c.channels)
	rowBytes := width * pixelStride
	dataSize := rowBytes * height
	if data.Len() != dataSize {
		return fmt.Errorf("uncompressed: data chunk is %d bytes, expected %d: %w", data.Len(), dataSize, moxerr.ErrInput)
	}

	encoded, err := framebuffer.NewWithSize(int32(width), int32(height))
	if err != nil {
		return err
	}
	exportChunk := moxtypes.NewDataChunk(dataSize, 0)
	exported, err := framebuffer.NewWithSize(int32(width), int32(height))
	if err != nil {
		return err
	}
	exported.AttachData(exportChunk)

	for i, cb := range c.channels {
		if err := encoded.Insert(cb.name, framebuffer.NewSlice(pixel.U8, data.Bytes()[i:], pixelStride, rowBytes)); err != nil {
			return err
		}
		if err := exported.Insert(cb.name, framebuffer.NewSlice(pixel.U8, exportChunk.Bytes()[i:], pixelStride, rowBytes)); err != nil {
			return err
		}
	}

	if err := exported.CopyFromFrame(encoded, false); err != nil {
		return err
	}

	c.pendingFrames = append(c.pendingFrames, exported)
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

// EndOfStream implements codec.VideoCodec. Uncompressed frames have no
// hidden internal latency, so there's nothing left to flush.
func (c *Codec) EndOfStream() error { return nil }
