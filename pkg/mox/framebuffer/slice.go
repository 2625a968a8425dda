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

// Package framebuffer implements FrameBuffer: a named, strided, typed set
// of image planes sharing one dataWindow, plus the pixel-format and
// color-space conversion engine that operates on them.
package framebuffer

import "mox/pkg/mox/pixel"

// Slice is one named plane of a FrameBuffer.
//
// Base is a byte slice positioned at the plane's first addressable
// pixel, i.e. the pixel at the FrameBuffer's dataWindow.Min. Go slices
// can't point before their allocation, so for a dataWindow whose Min is
// not the origin callers offset Base themselves and PixelOffset is
// computed relative to dataWindow.Min.
type Slice struct {
	Type pixel.Type
	Base []byte

	XStride int
	YStride int

	XSampling int
	YSampling int

	// FillValue is written when a missing source plane is filled
	// during conversion.
	FillValue float64

	// Tiled addressing, unused for scanline-based essence but carried
	// for descriptor round-tripping fidelity.
	XTileCoords bool
	YTileCoords bool
}

// NewSlice returns a Slice with 1:1 sampling and zero fill value.
func NewSlice(typ pixel.Type, base []byte, xStride, yStride int) Slice {
	return Slice{
		Type:      typ,
		Base:      base,
		XStride:   xStride,
		YStride:   yStride,
		XSampling: 1,
		YSampling: 1,
	}
}

// Present reports whether pixel (localX, localY) -- coordinates relative
// to the owning FrameBuffer's dataWindow.Min -- exists in this slice
// given its subsampling.
func (s Slice) Present(localX, localY int) bool {
	return localX%s.XSampling == 0 && localY%s.YSampling == 0
}

// PixelOffset returns the byte offset of pixel (localX, localY) from
// Base: (x/xSampling)*xStride + (y/ySampling)*yStride.
func (s Slice) PixelOffset(localX, localY int) int {
	return (localX/s.XSampling)*s.XStride + (localY/s.YSampling)*s.YStride
}
