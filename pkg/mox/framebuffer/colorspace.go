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

import "math"

// Coefficients selects the RGB<->YCbCr matrix family used when a
// FrameBuffer conversion crosses color spaces.
type Coefficients uint8

// Coefficient sets.
const (
	Rec601 Coefficients = iota
	Rec601FullRange
	Rec709
	Rec709FullRange
)

// matrix3 is a row-major 3x3 matrix applied to a (Y,Cb,Cr) or (R,G,B)
// column vector.
type matrix3 [9]float64

// snapEpsilon is the tolerance for snapping a matrix coefficient to
// the nearest of {0, 1, -1} after inversion.
const snapEpsilon = 1e-7

func snap(v float64) float64 {
	for _, target := range [...]float64{0, 1, -1} {
		if math.Abs(v-target) <= snapEpsilon {
			return target
		}
	}
	return v
}

// lumaWeights returns the luma coefficients Kr and Kb (Kg=1-Kr-Kb) for
// the given coefficient set; studio- and full-range sets share them.
func lumaWeights(c Coefficients) (kr, kb float64) {
	switch c {
	case Rec709, Rec709FullRange:
		return 0.2126, 0.0722
	default:
		return 0.299, 0.114
	}
}

func isFullRange(c Coefficients) bool {
	return c == Rec601FullRange || c == Rec709FullRange
}

// rangeScaling returns the luma scale/offset and chroma scale that
// studio-range coefficient sets apply on top of the full-range matrix:
// Y is compressed into [16/255, 235/255], Cb/Cr into a span of 224/255
// around their center. Full-range sets are the identity transform.
func rangeScaling(c Coefficients) (yScale, yOffset, chromaScale float64) {
	if isFullRange(c) {
		return 1, 0, 1
	}
	return 219.0 / 255.0, 16.0 / 255.0, 224.0 / 255.0
}

// rgbToYCbCrMatrix builds the forward R,G,B -> Y,Cb,Cr matrix for the
// given coefficient set. Values are normalized component deviations in
// [0,1]; range scaling (studio 16-235/240 vs full 0-255) is applied by
// the caller via offsets, not folded into the matrix itself.
func rgbToYCbCrMatrix(c Coefficients) matrix3 {
	kr, kb := lumaWeights(c)
	kg := 1 - kr - kb
	cb := 0.5 / (1 - kb)
	cr := 0.5 / (1 - kr)
	return matrix3{
		kr, kg, kb,
		-kr * cb, -kg * cb, (1 - kb) * cb,
		(1 - kr) * cr, -kg * cr, -kb * cr,
	}
}

// ycbcrToRGBMatrix returns the analytic inverse of rgbToYCbCrMatrix,
// with every coefficient snapped to {0, 1, -1} within snapEpsilon so
// that round-tripping through un-subsampled 4:4:4 data is exact.
func ycbcrToRGBMatrix(c Coefficients) matrix3 {
	m := rgbToYCbCrMatrix(c)
	inv, ok := invert3(m)
	if !ok {
		// The forward matrix is always invertible for kr+kb < 1; this
		// would indicate a coefficient table bug.
		panic("framebuffer: color matrix is singular")
	}
	for i := range inv {
		inv[i] = snap(inv[i])
	}
	return inv
}

func invert3(m matrix3) (matrix3, bool) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if det == 0 {
		return matrix3{}, false
	}
	invDet := 1 / det
	return matrix3{
		(e*i - f*h) * invDet, (c*h - b*i) * invDet, (b*f - c*e) * invDet,
		(f*g - d*i) * invDet, (a*i - c*g) * invDet, (c*d - a*f) * invDet,
		(d*h - e*g) * invDet, (b*g - a*h) * invDet, (a*e - b*d) * invDet,
	}, true
}

func (m matrix3) apply(x, y, z float64) (float64, float64, float64) {
	return m[0]*x + m[1]*y + m[2]*z,
		m[3]*x + m[4]*y + m[5]*z,
		m[6]*x + m[7]*y + m[8]*z
}

// rgbToYCbCr converts a normalized (r,g,b) triple in [0,1] to a
// normalized (y,cb,cr) triple, cb/cr centered on 0. For a studio-range
// coefficient set the result is range-scaled per rangeScaling; for a
// full-range set this is exactly the matrix product.
func rgbToYCbCr(c Coefficients, r, g, b float64) (y, cb, cr float64) {
	y, cb, cr = rgbToYCbCrMatrix(c).apply(r, g, b)
	yScale, yOffset, chromaScale := rangeScaling(c)
	y = y*yScale + yOffset
	cb *= chromaScale
	cr *= chromaScale
	return y, cb, cr
}

// ycbcrToRGB converts a normalized (y, cb, cr) triple (cb/cr centered
// on 0) back to a normalized (r,g,b) triple in [0,1], first undoing
// any studio-range scaling so the inverse matrix sees the same
// full-range domain the forward matrix produced.
func ycbcrToRGB(c Coefficients, y, cb, cr float64) (r, g, b float64) {
	yScale, yOffset, chromaScale := rangeScaling(c)
	y = (y - yOffset) / yScale
	cb /= chromaScale
	cr /= chromaScale
	return ycbcrToRGBMatrix(c).apply(y, cb, cr)
}
