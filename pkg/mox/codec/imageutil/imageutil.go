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

// Package imageutil converts between FrameBuffer's named U8 RGB(A)
// planes and the standard library's image.Image, so the stdlib- and
// ecosystem-backed picture codecs (jpeg, png, jpeg2000) share one
// conversion path instead of each hand-rolling pixel access.
package imageutil

import (
	"fmt"
	"image"
	"image/color"

	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/pixel"
)

// FromFrame renders frame's R/G/B(/A) U8 planes, over dataWindow, into a
// stdlib *image.NRGBA. Missing A is treated as fully opaque.
func FromFrame(frame *framebuffer.FrameBuffer) (*image.NRGBA, error) {
	box := frame.DataWindow()
	width, height := int(box.Width()), int(box.Height())

	r, err := frame.Slice("R")
	if err != nil {
		return nil, err
	}
	g, err := frame.Slice("G")
	if err != nil {
		return nil, err
	}
	b, err := frame.Slice("B")
	if err != nil {
		return nil, err
	}
	a, hasAlpha := frame.FindSlice("A")

	for _, s := range []framebuffer.Slice{r, g, b} {
		if s.Type != pixel.U8 {
			return nil, fmt.Errorf("imageutil: color plane must be pixel.U8, got %v: %w", s.Type, moxerr.ErrArgument)
		}
	}
	if hasAlpha && a.Type != pixel.U8 {
		return nil, fmt.Errorf("imageutil: alpha plane must be pixel.U8, got %v: %w", a.Type, moxerr.ErrArgument)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			alpha := byte(255)
			if hasAlpha {
				alpha = a.Base[a.PixelOffset(x, y)]
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: r.Base[r.PixelOffset(x, y)],
				G: g.Base[g.PixelOffset(x, y)],
				B: b.Base[b.PixelOffset(x, y)],
				A: alpha,
			})
		}
	}
	return img, nil
}

// ToFrame builds a fresh FrameBuffer with U8 R/G/B (and A, if
// withAlpha) planes from a decoded stdlib image.
func ToFrame(img image.Image, withAlpha bool) (*framebuffer.FrameBuffer, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	frame, err := framebuffer.NewWithSize(int32(width), int32(height))
	if err != nil {
		return nil, err
	}

	rowBytes := width
	rBuf := make([]byte, rowBytes*height)
	gBuf := make([]byte, rowBytes*height)
	bBuf := make([]byte, rowBytes*height)
	var aBuf []byte
	if withAlpha {
		aBuf = make([]byte, rowBytes*height)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Color.RGBA() returns alpha-premultiplied values; going
			// through NRGBAModel keeps straight RGB intact for pixels
			// with partial alpha.
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			off := y*rowBytes + x
			rBuf[off] = c.R
			gBuf[off] = c.G
			bBuf[off] = c.B
			if withAlpha {
				aBuf[off] = c.A
			}
		}
	}

	if err := frame.Insert("R", framebuffer.NewSlice(pixel.U8, rBuf, 1, rowBytes)); err != nil {
		return nil, err
	}
	if err := frame.Insert("G", framebuffer.NewSlice(pixel.U8, gBuf, 1, rowBytes)); err != nil {
		return nil, err
	}
	if err := frame.Insert("B", framebuffer.NewSlice(pixel.U8, bBuf, 1, rowBytes)); err != nil {
		return nil, err
	}
	if withAlpha {
		if err := frame.Insert("A", framebuffer.NewSlice(pixel.U8, aBuf, 1, rowBytes)); err != nil {
			return nil, err
		}
	}
	return frame, nil
}
