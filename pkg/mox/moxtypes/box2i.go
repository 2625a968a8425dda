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

package moxtypes

// V2i is an integer 2-D point.
type V2i struct {
	X, Y int32
}

// Box2i is an inclusive integer 2-D rectangle.
type Box2i struct {
	Min, Max V2i
}

// NewBox2i builds a box from width/height, with Min at the origin.
func NewBox2i(width, height int32) Box2i {
	return Box2i{
		Min: V2i{X: 0, Y: 0},
		Max: V2i{X: width - 1, Y: height - 1},
	}
}

// IsEmpty reports whether the box is empty on any axis.
func (b Box2i) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y
}

// Width returns the box's width in pixels.
func (b Box2i) Width() int32 {
	return b.Max.X - b.Min.X + 1
}

// Height returns the box's height in pixels.
func (b Box2i) Height() int32 {
	return b.Max.Y - b.Min.Y + 1
}

// Intersect returns the intersection of two boxes. The result is empty if
// the boxes don't overlap.
func (b Box2i) Intersect(other Box2i) Box2i {
	return Box2i{
		Min: V2i{X: max32(b.Min.X, other.Min.X), Y: max32(b.Min.Y, other.Min.Y)},
		Max: V2i{X: min32(b.Max.X, other.Max.X), Y: min32(b.Max.Y, other.Max.Y)},
	}
}

// Contains reports whether other is fully inside b.
func (b Box2i) Contains(other Box2i) bool {
	if other.IsEmpty() {
		return true
	}
	return other.Min.X >= b.Min.X && other.Min.Y >= b.Min.Y &&
		other.Max.X <= b.Max.X && other.Max.Y <= b.Max.Y
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
