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

// Package header holds the Header metadata dictionary and its
// dynamically-typed Attribute values.
//
// Attributes are a tagged variant keyed by a small, closed set of
// kinds rather than a general runtime type registry: every Attribute
// carries a Kind and accessors are a switch over it, with Find*
// returning (value, ok).
package header

import (
	"fmt"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
)

// Kind identifies which field of an Attribute is meaningful.
type Kind uint8

// Attribute kinds.
const (
	KindInt Kind = iota
	KindInt64
	KindFloat
	KindRational
	KindBox2i
	KindVideoCompression
	KindAudioCompression
	KindChannelList
	KindAudioChannelList
	KindString
)

// VideoCompression enumerates the supported video compression tags.
type VideoCompression uint8

// Video compression tags.
const (
	Uncompressed VideoCompression = iota
	JPEG
	JPEG2000
	JPEGLS
	PNG
	DPX
	OpenEXR
	Dirac
	MPEG
)

// AudioCompression enumerates the audio compression tags.
type AudioCompression uint8

// Audio compression tags.
const (
	PCM AudioCompression = iota
)

// Attribute is a runtime-typed metadata value.
type Attribute struct {
	Kind Kind

	IntVal              int
	Int64Val            int64
	FloatVal            float64
	RationalVal         moxtypes.Rational
	Box2iVal            moxtypes.Box2i
	VideoCompressionVal VideoCompression
	AudioCompressionVal AudioCompression
	ChannelListVal      *channel.List
	AudioChannelListVal *channel.AudioList
	StringVal           string
}

// clone deep-copies an attribute (Header owns its attributes; insert
// always copies rather than aliasing the caller's value).
func (a Attribute) clone() Attribute {
	clone := a
	if a.ChannelListVal != nil {
		clone.ChannelListVal = a.ChannelListVal.Clone()
	}
	if a.AudioChannelListVal != nil {
		clone.AudioChannelListVal = a.AudioChannelListVal.Clone()
	}
	return clone
}

func kindMismatch(name string, have, want Kind) error {
	return fmt.Errorf("attribute %q has kind %d, want %d: %w", name, have, want, moxerr.ErrType)
}
