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

package framebuffer

import (
	"fmt"

	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
	"mox/pkg/mox/threadpool"
)

// colorPlane names recognized as color components, used to decide
// whether two FrameBuffers are "both RGB" or "both YCbCr" for
// copyFromFrame's rule (1) vs rule (2) dispatch.
const (
	planeR  = "R"
	planeG  = "G"
	planeB  = "B"
	planeY  = "Y"
	planeCb = "BY" // Cb, named BY per SMPTE convention
	planeCr = "RY" // Cr, named RY per SMPTE convention
)

// FrameBuffer is a rectangular image: a set of named, strided, typed
// planes (Slices) sharing one integer dataWindow, plus any DataChunks
// whose memory backs those slices.
type FrameBuffer struct {
	dataWindow moxtypes.Box2i
	order      []string
	slices     map[string]Slice
	attached   []*moxtypes.DataChunk
	coeffs     Coefficients
}

// New constructs an empty FrameBuffer over dataWindow. It fails if the
// window is empty.
func New(dataWindow moxtypes.Box2i) (*FrameBuffer, error) {
	if dataWindow.IsEmpty() {
		return nil, fmt.Errorf("framebuffer: dataWindow must not be empty: %w", moxerr.ErrArgument)
	}
	return &FrameBuffer{
		dataWindow: dataWindow,
		slices:     make(map[string]Slice),
		coeffs:     Rec709,
	}, nil
}

// NewWithSize is construct(width, height): dataWindow's Min is the
// origin.
func NewWithSize(width, height int32) (*FrameBuffer, error) {
	return New(moxtypes.NewBox2i(width, height))
}

// DataWindow returns the buffer's addressable rectangle.
func (f *FrameBuffer) DataWindow() moxtypes.Box2i { return f.dataWindow }

// Coefficients returns the YCbCr coefficient tag used for any
// color-space conversion this buffer is involved in.
func (f *FrameBuffer) Coefficients() Coefficients { return f.coeffs }

// SetCoefficients sets the YCbCr coefficient tag.
func (f *FrameBuffer) SetCoefficients(c Coefficients) { f.coeffs = c }

// Insert registers a named plane. name must be non-empty and the
// slice's addressable region (given its strides and dataWindow) must
// be large enough to cover dataWindow.
func (f *FrameBuffer) Insert(name string, s Slice) error {
	if name == "" {
		return fmt.Errorf("framebuffer: slice name must not be empty: %w", moxerr.ErrArgument)
	}
	if err := f.checkCoverage(s); err != nil {
		return err
	}
	if _, exists := f.slices[name]; !exists {
		f.order = append(f.order, name)
	}
	f.slices[name] = s
	return nil
}

func (f *FrameBuffer) checkCoverage(s Slice) error {
	w := int(f.dataWindow.Width())
	h := int(f.dataWindow.Height())
	lastOffset := s.PixelOffset(w-1, h-1)
	size, err := s.Type.Size()
	if err != nil {
		return err
	}
	if lastOffset+size > len(s.Base) {
		return fmt.Errorf("framebuffer: slice base too short (%d bytes) to cover dataWindow %v: %w",
			len(s.Base), f.dataWindow, moxerr.ErrArgument)
	}
	return nil
}

// FindSlice looks up a named plane.
func (f *FrameBuffer) FindSlice(name string) (Slice, bool) {
	s, ok := f.slices[name]
	return s, ok
}

// Slice is the operator[] equivalent: lookup that fails with an
// argument error if name isn't present.
func (f *FrameBuffer) Slice(name string) (Slice, error) {
	s, ok := f.slices[name]
	if !ok {
		return Slice{}, fmt.Errorf("framebuffer: no slice named %q: %w", name, moxerr.ErrArgument)
	}
	return s, nil
}

// Names returns the registered plane names in insertion order.
func (f *FrameBuffer) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// AttachData keeps chunk alive for as long as f lives, since slices
// hold raw byte-slice views into chunks rather than owning references.
func (f *FrameBuffer) AttachData(chunk *moxtypes.DataChunk) {
	chunk.Retain()
	f.attached = append(f.attached, chunk)
}

// Release drops this buffer's references to every attached chunk.
func (f *FrameBuffer) Release() {
	for _, c := range f.attached {
		c.Release()
	}
	f.attached = nil
}

func (f *FrameBuffer) isYCbCr() bool {
	_, hasY := f.slices[planeY]
	return hasY
}

func (f *FrameBuffer) isRGB() bool {
	_, hasR := f.slices[planeR]
	return hasR
}

// CopyFromFrame is the central conversion engine. It converts other's
// planes into f's planes over their shared rectangle, performing
// pixel-type and (if needed) RGB<->YCbCr conversion, and optionally
// fills any of f's planes lacking a same-named source with that
// plane's fill value.
func (f *FrameBuffer) CopyFromFrame(other *FrameBuffer, fillMissing bool) error {
	return f.CopyFromFrameWithPool(other, fillMissing, threadpool.Global())
}

// CopyFromFrameWithPool is CopyFromFrame, dispatching row tasks onto
// pool instead of the process-wide default.
func (f *FrameBuffer) CopyFromFrameWithPool(other *FrameBuffer, fillMissing bool, pool *threadpool.Pool) error {
	copyBox := f.dataWindow.Intersect(other.dataWindow)

	g := pool.NewGroup()
	if copyBox != f.dataWindow {
		f.dispatchFillAll(g)
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if copyBox.IsEmpty() {
		return nil
	}

	g = pool.NewGroup()
	bothRGB := f.isRGB() && other.isRGB()
	bothYCbCr := f.isYCbCr() && other.isYCbCr() && f.coeffs == other.coeffs
	crossColor := (f.isRGB() && other.isYCbCr()) || (f.isYCbCr() && other.isRGB())

	handled := make(map[string]bool)
	switch {
	case bothRGB || bothYCbCr:
		// rule 1: plane-by-plane for every named plane, color or not.
	case crossColor:
		if err := f.dispatchColorConvert(g, other, copyBox); err != nil {
			return err
		}
		for _, name := range [...]string{planeR, planeG, planeB, planeY, planeCb, planeCr} {
			handled[name] = true
		}
	}

	dx, dy := srcDelta(f, other)
	for _, name := range f.order {
		if handled[name] {
			continue
		}
		dst := f.slices[name]
		src, ok := other.slices[name]
		if ok {
			f.dispatchPlaneConvert(g, dst, src, copyBox, dx, dy)
		} else if fillMissing {
			f.dispatchPlaneFill(g, dst, copyBox, dst.FillValue)
		}
	}
	return g.Wait()
}

// srcDelta translates coordinates local to f's dataWindow.Min into
// coordinates local to other's, since each buffer's slices are
// addressed relative to its own window origin.
func srcDelta(f, other *FrameBuffer) (int, int) {
	return int(f.dataWindow.Min.X - other.dataWindow.Min.X),
		int(f.dataWindow.Min.Y - other.dataWindow.Min.Y)
}

func (f *FrameBuffer) dispatchFillAll(g *threadpool.Group) {
	for _, name := range f.order {
		s := f.slices[name]
		f.dispatchPlaneFill(g, s, f.dataWindow, s.FillValue)
	}
}

func (f *FrameBuffer) dispatchPlaneFill(g *threadpool.Group, s Slice, box moxtypes.Box2i, value float64) {
	w := int(box.Width())
	minX, minY := int(box.Min.X-f.dataWindow.Min.X), int(box.Min.Y-f.dataWindow.Min.Y)
	maxY := minY + int(box.Height())
	for row := minY; row < maxY; row++ {
		row := row
		g.Go(func() error {
			if !s.Present(0, row) {
				return nil
			}
			for col := minX; col < minX+w; col++ {
				if !s.Present(col, row) {
					continue
				}
				off := s.PixelOffset(col, row)
				if err := writeComponent(s.Type, s.Base, off, value); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

func (f *FrameBuffer) dispatchPlaneConvert(g *threadpool.Group, dst, src Slice, box moxtypes.Box2i, dx, dy int) {
	w := int(box.Width())
	minX, minY := int(box.Min.X-f.dataWindow.Min.X), int(box.Min.Y-f.dataWindow.Min.Y)
	maxY := minY + int(box.Height())
	for row := minY; row < maxY; row++ {
		row := row
		g.Go(func() error {
			if !dst.Present(0, row) || !src.Present(0, row+dy) {
				return nil
			}
			for col := minX; col < minX+w; col++ {
				if !dst.Present(col, row) || !src.Present(col+dx, row+dy) {
					continue
				}
				srcOff := src.PixelOffset(col+dx, row+dy)
				raw, err := readComponent(src.Type, src.Base, srcOff)
				if err != nil {
					return err
				}
				converted, err := convertComponent(src.Type, dst.Type, raw)
				if err != nil {
					return err
				}
				dstOff := dst.PixelOffset(col, row)
				if err := writeComponent(dst.Type, dst.Base, dstOff, converted); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

// dispatchColorConvert applies the 3x3 RGB<->YCbCr matrix across
// copyBox, converting f's (or other's) color planes pixel by pixel via
// their normalized float representation. It touches only the three
// color planes; CopyFromFrameWithPool copies the remaining named planes
// plane-by-plane.
func (f *FrameBuffer) dispatchColorConvert(g *threadpool.Group, other *FrameBuffer, copyBox moxtypes.Box2i) error {
	toYCbCr := f.isYCbCr()
	var coeffs Coefficients
	if toYCbCr {
		coeffs = f.coeffs
	} else {
		coeffs = other.coeffs
	}

	srcNames, dstNames := [3]string{}, [3]string{}
	if toYCbCr {
		srcNames = [3]string{planeR, planeG, planeB}
		dstNames = [3]string{planeY, planeCb, planeCr}
	} else {
		srcNames = [3]string{planeY, planeCb, planeCr}
		dstNames = [3]string{planeR, planeG, planeB}
	}

	srcSlices := [3]Slice{}
	dstSlices := [3]Slice{}
	for i := range srcNames {
		s, ok := other.slices[srcNames[i]]
		if !ok {
			return fmt.Errorf("framebuffer: source missing color plane %q: %w", srcNames[i], moxerr.ErrArgument)
		}
		srcSlices[i] = s
		d, ok := f.slices[dstNames[i]]
		if !ok {
			return fmt.Errorf("framebuffer: destination missing color plane %q: %w", dstNames[i], moxerr.ErrArgument)
		}
		dstSlices[i] = d
	}

	w := int(copyBox.Width())
	minX, minY := int(copyBox.Min.X-f.dataWindow.Min.X), int(copyBox.Min.Y-f.dataWindow.Min.Y)
	maxY := minY + int(copyBox.Height())
	dx, dy := srcDelta(f, other)
	for row := minY; row < maxY; row++ {
		row := row
		g.Go(func() error {
			for col := minX; col < minX+w; col++ {
				var comp [3]float64
				for i := 0; i < 3; i++ {
					if !srcSlices[i].Present(col+dx, row+dy) {
						continue
					}
					raw, err := readComponent(srcSlices[i].Type, srcSlices[i].Base, srcSlices[i].PixelOffset(col+dx, row+dy))
					if err != nil {
						return err
					}
					norm, err := convertComponent(srcSlices[i].Type, pixel.Float, raw)
					if err != nil {
						return err
					}
					if !toYCbCr && i > 0 && srcSlices[i].Type.IsInteger() {
						// Cb/Cr stored as unsigned integers are biased by
						// +0.5 so the centered [-0.5,0.5] range fits
						// [0,1]; undo that bias before the matrix.
						norm -= 0.5
					}
					comp[i] = norm
				}

				var out [3]float64
				if toYCbCr {
					out[0], out[1], out[2] = rgbToYCbCr(coeffs, comp[0], comp[1], comp[2])
				} else {
					out[0], out[1], out[2] = ycbcrToRGB(coeffs, comp[0], comp[1], comp[2])
				}

				for i := 0; i < 3; i++ {
					if !dstSlices[i].Present(col, row) {
						continue
					}
					biased := out[i]
					if toYCbCr && i > 0 && dstSlices[i].Type.IsInteger() {
						biased += 0.5
					}
					converted, err := convertComponent(pixel.Float, dstSlices[i].Type, biased)
					if err != nil {
						return err
					}
					if err := writeComponent(dstSlices[i].Type, dstSlices[i].Base, dstSlices[i].PixelOffset(col, row), converted); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	return nil
}
