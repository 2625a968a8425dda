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

package audiobuffer

import (
	"fmt"
	"math"

	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/sample"
)

// readSample reads one native-layout sample at buf[off:], returning its
// raw signed/unsigned integer code (U8 is unsigned, biased at 128; the
// rest are signed) or its float value.
func readSample(typ sample.Type, buf []byte, off int) (float64, error) {
	switch typ {
	case sample.U8:
		return float64(buf[off]), nil
	case sample.S16:
		return float64(int16(le16a(buf[off:]))), nil
	case sample.S24:
		// Stored as a plain 32-bit int whose logical range is just
		// narrower (-8388608..8388607), not as 3 packed bytes.
		return float64(int32(le32a(buf[off:]))), nil
	case sample.S32:
		return float64(int32(le32a(buf[off:]))), nil
	case sample.Float:
		return float64(math.Float32frombits(le32a(buf[off:]))), nil
	default:
		return 0, fmt.Errorf("audiobuffer: unknown sample type %v: %w", typ, moxerr.ErrArgument)
	}
}

func writeSample(typ sample.Type, buf []byte, off int, value float64) error {
	switch typ {
	case sample.U8:
		buf[off] = byte(clamp(value, 0, 255))
		return nil
	case sample.S16:
		putLE16a(buf[off:], uint16(int16(clamp(value, -32768, 32767))))
		return nil
	case sample.S24:
		putLE32a(buf[off:], uint32(int32(clamp(value, -8388608, 8388607))))
		return nil
	case sample.S32:
		putLE32a(buf[off:], uint32(int32(clamp(value, -2147483648, 2147483647))))
		return nil
	case sample.Float:
		putLE32a(buf[off:], math.Float32bits(float32(value)))
		return nil
	default:
		return fmt.Errorf("audiobuffer: unknown sample type %v: %w", typ, moxerr.ErrArgument)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return math.Round(v)
}

// convertSample converts one sample's native value from srcType to
// dstType: same type is a direct copy, integer<->float
// scales by (max-zero), float->integer clamps to [-1,1] and rounds
// half-away-from-zero.
func convertSample(srcType, dstType sample.Type, value float64) (float64, error) {
	if srcType == dstType {
		return value, nil
	}

	srcZero, err := sampleZero(srcType)
	if err != nil {
		return 0, err
	}
	dstZero, err := sampleZero(dstType)
	if err != nil {
		return 0, err
	}

	if srcType != sample.Float && dstType == sample.Float {
		maxSrc, err := srcType.MaxInt()
		if err != nil {
			return 0, err
		}
		return (value - srcZero) / float64(maxSrc), nil
	}

	if srcType == sample.Float && dstType != sample.Float {
		clipped := value
		if clipped > 1 {
			clipped = 1
		}
		if clipped < -1 {
			clipped = -1
		}
		maxDst, err := dstType.MaxInt()
		if err != nil {
			return 0, err
		}
		// writeSample rounds half-away-from-zero on the way to bytes, so
		// the scaled value is returned unbiased here (clamp,
		// scale, round).
		return clipped*float64(maxDst) + dstZero, nil
	}

	if srcType == sample.Float && dstType == sample.Float {
		return value, nil
	}

	// integer -> integer, different depth: go through float (matches the
	// original's "convert to a float buffer and then to the destination
	// format" fallback for any two integer types that aren't identical).
	asFloat, err := convertSample(srcType, sample.Float, value)
	if err != nil {
		return 0, err
	}
	return convertSample(sample.Float, dstType, asFloat)
}

func sampleZero(t sample.Type) (float64, error) {
	z, err := t.ZeroValue()
	if err != nil {
		return 0, err
	}
	return float64(z), nil
}

func le16a(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32a(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func putLE16a(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLE32a(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
