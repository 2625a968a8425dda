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

// Package audiobuffer implements AudioBuffer: a block of interleaved
// or planar multi-channel PCM of fixed length with an independent read
// head per channel, plus the sample-type conversion engine that
// operates on it.
package audiobuffer

import "mox/pkg/mox/sample"

// AudioSlice is one named channel of an AudioBuffer.
//
// Base is positioned at the channel's first sample (sample index 0);
// PlayheadSlice returns a copy advanced by the channel's read head.
type AudioSlice struct {
	Type   sample.Type
	Base   []byte
	Stride int
}

// NewAudioSlice returns an AudioSlice over base with the given stride.
func NewAudioSlice(typ sample.Type, base []byte, stride int) AudioSlice {
	return AudioSlice{Type: typ, Base: base, Stride: stride}
}

func (s AudioSlice) advanced(samples int64) AudioSlice {
	s.Base = s.Base[s.Stride*int(samples):]
	return s
}
