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

// Package sample defines the SampleType taxonomy used by AudioBuffer
// slices and audio codec descriptors.
package sample

import "fmt"

// Type is an audio sample's in-memory representation.
type Type uint8

// The sample types.
const (
	U8 Type = iota
	S16
	S24
	S32
	Float
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case U8:
		return "U8"
	case S16:
		return "S16"
	case S24:
		return "S24"
	case S32:
		return "S32"
	case Float:
		return "Float"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Size returns the type's in-memory size in bytes. S24 is stored in a
// 32-bit container.
func (t Type) Size() (int, error) {
	switch t {
	case U8:
		return 1, nil
	case S16:
		return 2, nil
	case S24, S32, Float:
		return 4, nil
	default:
		return 0, fmt.Errorf("sample: unknown sample type %v", t)
	}
}

// Bits returns the type's logical bit depth.
func (t Type) Bits() (int, error) {
	switch t {
	case U8:
		return 8, nil
	case S16:
		return 16, nil
	case S24:
		return 24, nil
	case S32, Float:
		return 32, nil
	default:
		return 0, fmt.Errorf("sample: unknown sample type %v", t)
	}
}

// ZeroValue returns the byte pattern for one silent sample of this type,
// written in native (little-endian in-memory) layout. U8 is unsigned
// with a non-zero zero value of 128; every signed/float type is zero.
func (t Type) ZeroValue() (byte, error) {
	switch t {
	case U8:
		return 128, nil
	case S16, S24, S32, Float:
		return 0, nil
	default:
		return 0, fmt.Errorf("sample: unknown sample type %v", t)
	}
}

// MaxInt returns the positive full-scale value for an integer type, used
// to scale conversions to/from floating point.
func (t Type) MaxInt() (int64, error) {
	switch t {
	case U8:
		return 0x7F, nil
	case S16:
		return 0x7FFF, nil
	case S24:
		return 0x7FFFFF, nil
	case S32:
		return 0x7FFFFFFF, nil
	default:
		return 0, fmt.Errorf("sample: %v has no integer max", t)
	}
}
