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

package descriptor

import (
	"fmt"

	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
)

// Kind identifies the descriptor variant. The set of variants is
// closed, so readers can switch over it exhaustively.
type Kind uint8

// Descriptor kinds.
const (
	KindVideoCDCI Kind = iota
	KindVideoRGBA
	KindMPEG
	KindWaveAudio
	KindAES3
)

// Descriptor is satisfied by every descriptor variant.
type Descriptor interface {
	Kind() Kind
	Validate() error
}

// Generic is the fields every descriptor carries: edit rate, container
// duration, essence-container label, codec label.
type Generic struct {
	EditRate          moxtypes.Rational
	ContainerDuration int64
	EssenceContainer  UL
	CodecLabel        UL
}

func (g Generic) validate() error {
	if g.EditRate.Denominator <= 0 || g.EditRate.Numerator <= 0 {
		return fmt.Errorf("descriptor: edit rate numerator and denominator must be > 0, got %v: %w", g.EditRate, moxerr.ErrInput)
	}
	if g.EssenceContainer.IsZero() {
		return fmt.Errorf("descriptor: essence container UL is required: %w", moxerr.ErrInput)
	}
	return nil
}

// FieldDominance distinguishes which field comes first in interlaced
// signals. MOX only ever writes FieldDominanceProgressive, but the
// field is carried for round-tripping descriptors read from disk.
type FieldDominance uint8

// Field dominance values.
const (
	FieldDominanceProgressive FieldDominance = iota
	FieldDominanceF1
	FieldDominanceF2
)

// VideoGeneric adds the fields common to all picture essence.
type VideoGeneric struct {
	Generic

	SignalStandard       uint8
	FrameLayout          uint8
	StoredWindow         moxtypes.Box2i
	SampledWindow        moxtypes.Box2i
	DisplayWindow        moxtypes.Box2i
	PixelAspectRatio     moxtypes.Rational
	VideoLineMap         [2]int32
	AlphaTransparency    bool
	CaptureGamma         UL
	ImageAlignmentOffset int32
	ImageStartOffset     int32
	ImageEndOffset       int32
	FieldDominance       FieldDominance
	PictureEssenceCoding UL
}

func (v VideoGeneric) validate() error {
	if err := v.Generic.validate(); err != nil {
		return err
	}
	if !v.StoredWindow.Contains(v.SampledWindow) {
		return fmt.Errorf("descriptor: sampled window must be contained in stored window: %w", moxerr.ErrInput)
	}
	if !v.StoredWindow.Contains(v.DisplayWindow) {
		return fmt.Errorf("descriptor: display window must be contained in stored window: %w", moxerr.ErrInput)
	}
	if v.PixelAspectRatio.Numerator <= 0 || v.PixelAspectRatio.Denominator <= 0 {
		return fmt.Errorf("descriptor: pixel aspect ratio must have positive numerator and denominator: %w", moxerr.ErrInput)
	}
	return nil
}

// ColorSiting describes chroma sample positioning for subsampled color.
type ColorSiting uint8

// Color siting values.
const (
	ColorSitingCoSited ColorSiting = iota
	ColorSitingAveraging
	ColorSitingUnknown
)

// CDCI is the component-depth-color-image descriptor used by uncompressed
// and MPEG picture essence.
type CDCI struct {
	VideoGeneric

	ComponentDepth        int32
	HorizontalSubsampling int32
	VerticalSubsampling   int32
	ColorSiting           ColorSiting
	ByteOrderBigEndian    bool
	PaddingBits           int32
	AlphaSampleDepth      int32
	BlackRefLevel         int32
	WhiteRefLevel         int32
	ColorRange            int32
}

// Kind implements Descriptor.
func (CDCI) Kind() Kind { return KindVideoCDCI }

// Validate implements Descriptor.
func (c CDCI) Validate() error {
	if err := c.VideoGeneric.validate(); err != nil {
		return err
	}
	if c.HorizontalSubsampling <= 0 || c.VerticalSubsampling <= 0 {
		return fmt.Errorf("descriptor: CDCI subsampling must be positive: %w", moxerr.ErrInput)
	}
	return nil
}

// PixelLayoutEntry is one (code, depth) pair of an RGBA pixel layout.
type PixelLayoutEntry struct {
	Code  byte // 'R','G','B','A','Y','F' (fill) or 0 (end)
	Depth uint8
}

// Depth sentinels for floating point components.
const (
	DepthFloat32     = 254
	DepthHalfFloat16 = 253
)

// RGBA is the RGBA picture descriptor.
type RGBA struct {
	VideoGeneric

	ComponentMinRef     int32
	ComponentMaxRef     int32
	AlphaMinRef         int32
	AlphaMaxRef         int32
	ScanningLeftToRight bool
	ScanningTopToBottom bool
	PixelLayout         []PixelLayoutEntry
}

// Kind implements Descriptor.
func (RGBA) Kind() Kind { return KindVideoRGBA }

// Validate implements Descriptor. It also enforces that the layout's
// total bits per pixel is a multiple of 8.
func (r RGBA) Validate() error {
	if err := r.VideoGeneric.validate(); err != nil {
		return err
	}
	total := 0
	for _, e := range r.PixelLayout {
		switch e.Depth {
		case DepthFloat32:
			total += 32
		case DepthHalfFloat16:
			total += 16
		default:
			total += int(e.Depth)
		}
	}
	if total%8 != 0 {
		return fmt.Errorf("descriptor: RGBA pixel layout is %d bits, not a multiple of 8: %w", total, moxerr.ErrInput)
	}
	return nil
}

// GOPStructure describes a long-GOP compression scheme's picture pattern.
type GOPStructure struct {
	Closed   bool
	Distance int32 // distance between anchor frames
	Length   int32 // total pictures per GOP
}

// MPEG refines CDCI with GOP semantics, bit rate, profile and level.
type MPEG struct {
	CDCI

	GOP     GOPStructure
	BitRate int64
	Profile uint8
	Level   uint8
}

// Kind implements Descriptor.
func (MPEG) Kind() Kind { return KindMPEG }

// Validate implements Descriptor.
func (m MPEG) Validate() error {
	return m.CDCI.Validate()
}

// AudioGeneric adds the fields common to all sound essence.
type AudioGeneric struct {
	Generic

	AudioSamplingRate moxtypes.Rational
	LockedToVideo     bool
	AudioRefLevel     int32
	ChannelCount      int32
	BitDepth          int32
	SoundCompression  UL
}

func (a AudioGeneric) validate() error {
	if err := a.Generic.validate(); err != nil {
		return err
	}
	if a.AudioSamplingRate.Numerator <= 0 || a.AudioSamplingRate.Denominator <= 0 {
		return fmt.Errorf("descriptor: audio sampling rate must be positive: %w", moxerr.ErrInput)
	}
	if a.ChannelCount <= 0 {
		return fmt.Errorf("descriptor: audio channel count must be positive: %w", moxerr.ErrInput)
	}
	return nil
}

// ChannelAssignment identifies a wave descriptor's speaker layout UL.
type ChannelAssignment UL

// Wave is the WAVE-wrapped PCM audio descriptor.
type Wave struct {
	AudioGeneric

	BlockAlign            int32
	AverageBytesPerSecond int32
	ChannelAssignment     ChannelAssignment
}

// Kind implements Descriptor.
func (Wave) Kind() Kind { return KindWaveAudio }

// Validate implements Descriptor.
func (w Wave) Validate() error {
	return w.AudioGeneric.validate()
}

// ChannelStatusMode selects how AES3 channel-status data is sourced.
type ChannelStatusMode uint8

// Channel status modes.
const (
	ChannelStatusModeFixed ChannelStatusMode = iota
	ChannelStatusModeStream
)

// AES3 refines Wave with channel-status modes and fixed channel-status
// data.
type AES3 struct {
	Wave

	ChannelStatusMode      ChannelStatusMode
	FixedChannelStatusData [24]byte
}

// Kind implements Descriptor.
func (AES3) Kind() Kind { return KindAES3 }

// Validate implements Descriptor.
func (a AES3) Validate() error {
	return a.Wave.Validate()
}
