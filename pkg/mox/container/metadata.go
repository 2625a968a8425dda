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

package container

import (
	"encoding/binary"
	"fmt"
	"math"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
	"mox/pkg/mox/sample"
)

// This file implements the length-prefixed binary codec the header
// partition's metadata payload and footer partition's updated metadata
// are written with: uint16-length-prefixed byte runs throughout, so
// every field is bounded before it is read.

type buf struct {
	out []byte
}

func (b *buf) u8(v uint8)   { b.out = append(b.out, v) }
func (b *buf) u16(v uint16) { b.out = append(b.out, byte(v>>8), byte(v)) }
func (b *buf) i32(v int32)  { b.u32(uint32(v)) }
func (b *buf) u32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.out = append(b.out, tmp[:]...)
}
func (b *buf) i64(v int64) { b.u64(uint64(v)) }
func (b *buf) u64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.out = append(b.out, tmp[:]...)
}
func (b *buf) f64(v float64) { b.u64(math.Float64bits(v)) }
func (b *buf) bytes(v []byte) {
	b.u16(uint16(len(v)))
	b.out = append(b.out, v...)
}
func (b *buf) str(v string) { b.bytes([]byte(v)) }
func (b *buf) ul(v [16]byte) { b.out = append(b.out, v[:]...) }
func (b *buf) rational(r moxtypes.Rational) {
	b.i32(r.Numerator)
	b.i32(r.Denominator)
}
func (b *buf) box2i(v moxtypes.Box2i) {
	b.i32(v.Min.X)
	b.i32(v.Min.Y)
	b.i32(v.Max.X)
	b.i32(v.Max.Y)
}
func (b *buf) bool(v bool) {
	if v {
		b.u8(1)
	} else {
		b.u8(0)
	}
}

type cursor struct {
	in  []byte
	pos int
}

func newCursor(b []byte) *cursor { return &cursor{in: b} }

func (c *cursor) need(n int) error {
	if c.pos+n > len(c.in) {
		return fmt.Errorf("container: metadata truncated at byte %d (need %d more): %w", c.pos, n, moxerr.ErrInput)
	}
	return nil
}

func (c *cursor) u8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.in[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.in[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.in[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) i64() (int64, error) {
	v, err := c.u64()
	return int64(v), err
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(c.in[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) f64() (float64, error) {
	v, err := c.u64()
	return math.Float64frombits(v), err
}

func (c *cursor) bytesField() ([]byte, error) {
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	if err := c.need(int(n)); err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, c.in[c.pos:c.pos+int(n)])
	c.pos += int(n)
	return v, nil
}

func (c *cursor) str() (string, error) {
	v, err := c.bytesField()
	return string(v), err
}

func (c *cursor) ul() ([16]byte, error) {
	if err := c.need(16); err != nil {
		return [16]byte{}, err
	}
	var v [16]byte
	copy(v[:], c.in[c.pos:c.pos+16])
	c.pos += 16
	return v, nil
}

func (c *cursor) rational() (moxtypes.Rational, error) {
	num, err := c.i32()
	if err != nil {
		return moxtypes.Rational{}, err
	}
	den, err := c.i32()
	if err != nil {
		return moxtypes.Rational{}, err
	}
	return moxtypes.Rational{Numerator: num, Denominator: den}, nil
}

func (c *cursor) box2i() (moxtypes.Box2i, error) {
	minX, err := c.i32()
	if err != nil {
		return moxtypes.Box2i{}, err
	}
	minY, err := c.i32()
	if err != nil {
		return moxtypes.Box2i{}, err
	}
	maxX, err := c.i32()
	if err != nil {
		return moxtypes.Box2i{}, err
	}
	maxY, err := c.i32()
	if err != nil {
		return moxtypes.Box2i{}, err
	}
	return moxtypes.Box2i{Min: moxtypes.V2i{X: minX, Y: minY}, Max: moxtypes.V2i{X: maxX, Y: maxY}}, nil
}

func (c *cursor) boolField() (bool, error) {
	v, err := c.u8()
	return v != 0, err
}

// --- channel lists ---

func marshalChannelList(l *channel.List) []byte {
	var b buf
	names := l.Names()
	b.u16(uint16(len(names)))
	for _, name := range names {
		ch, _ := l.Find(name)
		b.str(name)
		b.u8(uint8(ch.Type))
		b.i32(int32(ch.XSampling))
		b.i32(int32(ch.YSampling))
		b.bool(ch.PerceptuallyLinear)
	}
	return b.out
}

func unmarshalChannelList(c *cursor) (*channel.List, error) {
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	l := channel.NewList()
	for i := uint16(0); i < n; i++ {
		name, err := c.str()
		if err != nil {
			return nil, err
		}
		typ, err := c.u8()
		if err != nil {
			return nil, err
		}
		xs, err := c.i32()
		if err != nil {
			return nil, err
		}
		ys, err := c.i32()
		if err != nil {
			return nil, err
		}
		linear, err := c.boolField()
		if err != nil {
			return nil, err
		}
		l.Insert(name, channel.Channel{
			Type:               pixel.Type(typ),
			XSampling:          int(xs),
			YSampling:          int(ys),
			PerceptuallyLinear: linear,
		})
	}
	return l, nil
}

func marshalAudioList(l *channel.AudioList) []byte {
	var b buf
	names := l.Names()
	b.u16(uint16(len(names)))
	for _, name := range names {
		ch, _ := l.Find(name)
		b.str(name)
		b.u8(uint8(ch.Type))
	}
	return b.out
}

func unmarshalAudioList(c *cursor) (*channel.AudioList, error) {
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	l := channel.NewAudioList()
	for i := uint16(0); i < n; i++ {
		name, err := c.str()
		if err != nil {
			return nil, err
		}
		typ, err := c.u8()
		if err != nil {
			return nil, err
		}
		l.Insert(name, channel.AudioChannel{Type: sample.Type(typ)})
	}
	return l, nil
}

// --- header ---

// attribute wire kinds mirror header.Kind exactly; kept as a distinct
// constant block so the wire format doesn't silently drift if
// header.Kind's iota order ever changes.
const (
	wireKindInt = iota
	wireKindInt64
	wireKindFloat
	wireKindRational
	wireKindBox2i
	wireKindVideoCompression
	wireKindAudioCompression
	wireKindChannelList
	wireKindAudioChannelList
	wireKindString
)

// MarshalHeader serializes every attribute of h in insertion order.
func MarshalHeader(h *header.Header) ([]byte, error) {
	var b buf
	names := h.Names()
	b.u16(uint16(len(names)))
	for _, name := range names {
		a, _ := h.Find(name)
		b.str(name)
		b.u8(uint8(a.Kind))
		switch a.Kind {
		case header.KindInt:
			b.i64(int64(a.IntVal))
		case header.KindInt64:
			b.i64(a.Int64Val)
		case header.KindFloat:
			b.f64(a.FloatVal)
		case header.KindRational:
			b.rational(a.RationalVal)
		case header.KindBox2i:
			b.box2i(a.Box2iVal)
		case header.KindVideoCompression:
			b.u8(uint8(a.VideoCompressionVal))
		case header.KindAudioCompression:
			b.u8(uint8(a.AudioCompressionVal))
		case header.KindChannelList:
			b.bytes(marshalChannelList(a.ChannelListVal))
		case header.KindAudioChannelList:
			b.bytes(marshalAudioList(a.AudioChannelListVal))
		case header.KindString:
			b.str(a.StringVal)
		default:
			return nil, fmt.Errorf("container: unknown attribute kind %d for %q: %w", a.Kind, name, moxerr.ErrType)
		}
	}
	return b.out, nil
}

// UnmarshalHeader parses a header serialized by MarshalHeader, consuming
// from c.
func UnmarshalHeader(c *cursor) (*header.Header, error) {
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	// New() seeds well-known defaults; the wire stream carries the
	// complete attribute set this header had at write time, so clear
	// them and rebuild purely from the wire data to avoid stale
	// defaults surviving under names the writer didn't emit.
	h := header.New()
	for _, name := range h.Names() {
		h.Erase(name)
	}
	for i := uint16(0); i < n; i++ {
		name, err := c.str()
		if err != nil {
			return nil, err
		}
		kind, err := c.u8()
		if err != nil {
			return nil, err
		}
		var a header.Attribute
		a.Kind = header.Kind(kind)
		switch a.Kind {
		case header.KindInt:
			v, err := c.i64()
			if err != nil {
				return nil, err
			}
			a.IntVal = int(v)
		case header.KindInt64:
			v, err := c.i64()
			if err != nil {
				return nil, err
			}
			a.Int64Val = v
		case header.KindFloat:
			v, err := c.f64()
			if err != nil {
				return nil, err
			}
			a.FloatVal = v
		case header.KindRational:
			v, err := c.rational()
			if err != nil {
				return nil, err
			}
			a.RationalVal = v
		case header.KindBox2i:
			v, err := c.box2i()
			if err != nil {
				return nil, err
			}
			a.Box2iVal = v
		case header.KindVideoCompression:
			v, err := c.u8()
			if err != nil {
				return nil, err
			}
			a.VideoCompressionVal = header.VideoCompression(v)
		case header.KindAudioCompression:
			v, err := c.u8()
			if err != nil {
				return nil, err
			}
			a.AudioCompressionVal = header.AudioCompression(v)
		case header.KindChannelList:
			raw, err := c.bytesField()
			if err != nil {
				return nil, err
			}
			l, err := unmarshalChannelList(newCursor(raw))
			if err != nil {
				return nil, err
			}
			a.ChannelListVal = l
		case header.KindAudioChannelList:
			raw, err := c.bytesField()
			if err != nil {
				return nil, err
			}
			l, err := unmarshalAudioList(newCursor(raw))
			if err != nil {
				return nil, err
			}
			a.AudioChannelListVal = l
		case header.KindString:
			v, err := c.str()
			if err != nil {
				return nil, err
			}
			a.StringVal = v
		default:
			return nil, fmt.Errorf("container: unknown attribute kind %d for %q: %w", kind, name, moxerr.ErrType)
		}
		h.Insert(name, a)
	}
	return h, nil
}

// --- descriptors ---

func marshalGeneric(g descriptor.Generic) buf {
	var b buf
	b.rational(g.EditRate)
	b.i64(g.ContainerDuration)
	b.ul(g.EssenceContainer)
	b.ul(g.CodecLabel)
	return b
}

func unmarshalGeneric(c *cursor) (descriptor.Generic, error) {
	var g descriptor.Generic
	var err error
	if g.EditRate, err = c.rational(); err != nil {
		return g, err
	}
	if g.ContainerDuration, err = c.i64(); err != nil {
		return g, err
	}
	if g.EssenceContainer, err = c.ul(); err != nil {
		return g, err
	}
	if g.CodecLabel, err = c.ul(); err != nil {
		return g, err
	}
	return g, nil
}

func marshalVideoGeneric(v descriptor.VideoGeneric) []byte {
	b := marshalGeneric(v.Generic)
	b.u8(v.SignalStandard)
	b.u8(v.FrameLayout)
	b.box2i(v.StoredWindow)
	b.box2i(v.SampledWindow)
	b.box2i(v.DisplayWindow)
	b.rational(v.PixelAspectRatio)
	b.i32(v.VideoLineMap[0])
	b.i32(v.VideoLineMap[1])
	b.bool(v.AlphaTransparency)
	b.ul(v.CaptureGamma)
	b.i32(v.ImageAlignmentOffset)
	b.i32(v.ImageStartOffset)
	b.i32(v.ImageEndOffset)
	b.u8(uint8(v.FieldDominance))
	b.ul(v.PictureEssenceCoding)
	return b.out
}

func unmarshalVideoGeneric(c *cursor) (descriptor.VideoGeneric, error) {
	var v descriptor.VideoGeneric
	var err error
	if v.Generic, err = unmarshalGeneric(c); err != nil {
		return v, err
	}
	if v.SignalStandard, err = c.u8(); err != nil {
		return v, err
	}
	if v.FrameLayout, err = c.u8(); err != nil {
		return v, err
	}
	if v.StoredWindow, err = c.box2i(); err != nil {
		return v, err
	}
	if v.SampledWindow, err = c.box2i(); err != nil {
		return v, err
	}
	if v.DisplayWindow, err = c.box2i(); err != nil {
		return v, err
	}
	if v.PixelAspectRatio, err = c.rational(); err != nil {
		return v, err
	}
	if v.VideoLineMap[0], err = c.i32(); err != nil {
		return v, err
	}
	if v.VideoLineMap[1], err = c.i32(); err != nil {
		return v, err
	}
	if v.AlphaTransparency, err = c.boolField(); err != nil {
		return v, err
	}
	if v.CaptureGamma, err = c.ul(); err != nil {
		return v, err
	}
	if v.ImageAlignmentOffset, err = c.i32(); err != nil {
		return v, err
	}
	if v.ImageStartOffset, err = c.i32(); err != nil {
		return v, err
	}
	if v.ImageEndOffset, err = c.i32(); err != nil {
		return v, err
	}
	fd, err := c.u8()
	if err != nil {
		return v, err
	}
	v.FieldDominance = descriptor.FieldDominance(fd)
	if v.PictureEssenceCoding, err = c.ul(); err != nil {
		return v, err
	}
	return v, nil
}

func marshalCDCI(d descriptor.CDCI) []byte {
	var b buf
	b.out = marshalVideoGeneric(d.VideoGeneric)
	b.i32(d.ComponentDepth)
	b.i32(d.HorizontalSubsampling)
	b.i32(d.VerticalSubsampling)
	b.u8(uint8(d.ColorSiting))
	b.bool(d.ByteOrderBigEndian)
	b.i32(d.PaddingBits)
	b.i32(d.AlphaSampleDepth)
	b.i32(d.BlackRefLevel)
	b.i32(d.WhiteRefLevel)
	b.i32(d.ColorRange)
	return b.out
}

func unmarshalCDCI(c *cursor) (descriptor.CDCI, error) {
	var d descriptor.CDCI
	var err error
	if d.VideoGeneric, err = unmarshalVideoGeneric(c); err != nil {
		return d, err
	}
	if d.ComponentDepth, err = c.i32(); err != nil {
		return d, err
	}
	if d.HorizontalSubsampling, err = c.i32(); err != nil {
		return d, err
	}
	if d.VerticalSubsampling, err = c.i32(); err != nil {
		return d, err
	}
	siting, err := c.u8()
	if err != nil {
		return d, err
	}
	d.ColorSiting = descriptor.ColorSiting(siting)
	if d.ByteOrderBigEndian, err = c.boolField(); err != nil {
		return d, err
	}
	if d.PaddingBits, err = c.i32(); err != nil {
		return d, err
	}
	if d.AlphaSampleDepth, err = c.i32(); err != nil {
		return d, err
	}
	if d.BlackRefLevel, err = c.i32(); err != nil {
		return d, err
	}
	if d.WhiteRefLevel, err = c.i32(); err != nil {
		return d, err
	}
	if d.ColorRange, err = c.i32(); err != nil {
		return d, err
	}
	return d, nil
}

func marshalRGBA(d descriptor.RGBA) []byte {
	var b buf
	b.out = marshalVideoGeneric(d.VideoGeneric)
	b.i32(d.ComponentMinRef)
	b.i32(d.ComponentMaxRef)
	b.i32(d.AlphaMinRef)
	b.i32(d.AlphaMaxRef)
	b.bool(d.ScanningLeftToRight)
	b.bool(d.ScanningTopToBottom)
	b.u16(uint16(len(d.PixelLayout)))
	for _, e := range d.PixelLayout {
		b.u8(e.Code)
		b.u8(e.Depth)
	}
	return b.out
}

func unmarshalRGBA(c *cursor) (descriptor.RGBA, error) {
	var d descriptor.RGBA
	var err error
	if d.VideoGeneric, err = unmarshalVideoGeneric(c); err != nil {
		return d, err
	}
	if d.ComponentMinRef, err = c.i32(); err != nil {
		return d, err
	}
	if d.ComponentMaxRef, err = c.i32(); err != nil {
		return d, err
	}
	if d.AlphaMinRef, err = c.i32(); err != nil {
		return d, err
	}
	if d.AlphaMaxRef, err = c.i32(); err != nil {
		return d, err
	}
	if d.ScanningLeftToRight, err = c.boolField(); err != nil {
		return d, err
	}
	if d.ScanningTopToBottom, err = c.boolField(); err != nil {
		return d, err
	}
	n, err := c.u16()
	if err != nil {
		return d, err
	}
	d.PixelLayout = make([]descriptor.PixelLayoutEntry, n)
	for i := range d.PixelLayout {
		code, err := c.u8()
		if err != nil {
			return d, err
		}
		depth, err := c.u8()
		if err != nil {
			return d, err
		}
		d.PixelLayout[i] = descriptor.PixelLayoutEntry{Code: code, Depth: depth}
	}
	return d, nil
}

func marshalMPEG(d descriptor.MPEG) []byte {
	var b buf
	b.out = marshalCDCI(d.CDCI)
	b.bool(d.GOP.Closed)
	b.i32(d.GOP.Distance)
	b.i32(d.GOP.Length)
	b.i64(d.BitRate)
	b.u8(d.Profile)
	b.u8(d.Level)
	return b.out
}

func unmarshalMPEG(c *cursor) (descriptor.MPEG, error) {
	var d descriptor.MPEG
	var err error
	if d.CDCI, err = unmarshalCDCI(c); err != nil {
		return d, err
	}
	if d.GOP.Closed, err = c.boolField(); err != nil {
		return d, err
	}
	if d.GOP.Distance, err = c.i32(); err != nil {
		return d, err
	}
	if d.GOP.Length, err = c.i32(); err != nil {
		return d, err
	}
	if d.BitRate, err = c.i64(); err != nil {
		return d, err
	}
	if d.Profile, err = c.u8(); err != nil {
		return d, err
	}
	if d.Level, err = c.u8(); err != nil {
		return d, err
	}
	return d, nil
}

func marshalAudioGeneric(a descriptor.AudioGeneric) buf {
	b := marshalGeneric(a.Generic)
	b.rational(a.AudioSamplingRate)
	b.bool(a.LockedToVideo)
	b.i32(a.AudioRefLevel)
	b.i32(a.ChannelCount)
	b.i32(a.BitDepth)
	b.ul(a.SoundCompression)
	return b
}

func unmarshalAudioGeneric(c *cursor) (descriptor.AudioGeneric, error) {
	var a descriptor.AudioGeneric
	var err error
	if a.Generic, err = unmarshalGeneric(c); err != nil {
		return a, err
	}
	if a.AudioSamplingRate, err = c.rational(); err != nil {
		return a, err
	}
	if a.LockedToVideo, err = c.boolField(); err != nil {
		return a, err
	}
	if a.AudioRefLevel, err = c.i32(); err != nil {
		return a, err
	}
	if a.ChannelCount, err = c.i32(); err != nil {
		return a, err
	}
	if a.BitDepth, err = c.i32(); err != nil {
		return a, err
	}
	if a.SoundCompression, err = c.ul(); err != nil {
		return a, err
	}
	return a, nil
}

func marshalWave(d descriptor.Wave) []byte {
	b := marshalAudioGeneric(d.AudioGeneric)
	b.i32(d.BlockAlign)
	b.i32(d.AverageBytesPerSecond)
	b.ul([16]byte(d.ChannelAssignment))
	return b.out
}

func unmarshalWave(c *cursor) (descriptor.Wave, error) {
	var d descriptor.Wave
	var err error
	if d.AudioGeneric, err = unmarshalAudioGeneric(c); err != nil {
		return d, err
	}
	if d.BlockAlign, err = c.i32(); err != nil {
		return d, err
	}
	if d.AverageBytesPerSecond, err = c.i32(); err != nil {
		return d, err
	}
	ul, err := c.ul()
	if err != nil {
		return d, err
	}
	d.ChannelAssignment = descriptor.ChannelAssignment(ul)
	return d, nil
}

func marshalAES3(d descriptor.AES3) []byte {
	var b buf
	b.out = marshalWave(d.Wave)
	b.u8(uint8(d.ChannelStatusMode))
	b.out = append(b.out, d.FixedChannelStatusData[:]...)
	return b.out
}

func unmarshalAES3(c *cursor) (descriptor.AES3, error) {
	var d descriptor.AES3
	var err error
	if d.Wave, err = unmarshalWave(c); err != nil {
		return d, err
	}
	mode, err := c.u8()
	if err != nil {
		return d, err
	}
	d.ChannelStatusMode = descriptor.ChannelStatusMode(mode)
	if err := c.need(24); err != nil {
		return d, err
	}
	copy(d.FixedChannelStatusData[:], c.in[c.pos:c.pos+24])
	c.pos += 24
	return d, nil
}

// MarshalDescriptor serializes d, prefixed with its Kind tag.
func MarshalDescriptor(d descriptor.Descriptor) ([]byte, error) {
	var b buf
	b.u8(uint8(d.Kind()))
	switch v := d.(type) {
	case descriptor.CDCI:
		b.bytes(marshalCDCI(v))
	case descriptor.RGBA:
		b.bytes(marshalRGBA(v))
	case descriptor.MPEG:
		b.bytes(marshalMPEG(v))
	case descriptor.Wave:
		b.bytes(marshalWave(v))
	case descriptor.AES3:
		b.bytes(marshalAES3(v))
	default:
		return nil, fmt.Errorf("container: unknown descriptor type %T: %w", d, moxerr.ErrType)
	}
	return b.out, nil
}

func unmarshalDescriptor(c *cursor) (descriptor.Descriptor, error) {
	kind, err := c.u8()
	if err != nil {
		return nil, err
	}
	raw, err := c.bytesField()
	if err != nil {
		return nil, err
	}
	inner := newCursor(raw)
	switch descriptor.Kind(kind) {
	case descriptor.KindVideoCDCI:
		return unmarshalCDCI(inner)
	case descriptor.KindVideoRGBA:
		return unmarshalRGBA(inner)
	case descriptor.KindMPEG:
		return unmarshalMPEG(inner)
	case descriptor.KindWaveAudio:
		return unmarshalWave(inner)
	case descriptor.KindAES3:
		return unmarshalAES3(inner)
	default:
		return nil, fmt.Errorf("container: unknown descriptor kind %d: %w", kind, moxerr.ErrType)
	}
}

// --- tracks ---

// MarshalTracks serializes the track list (numbers, kinds, edit rates,
// durations and descriptors) carried in the header/footer metadata.
func MarshalTracks(tracks []Track) []byte {
	var b buf
	b.u16(uint16(len(tracks)))
	for _, t := range tracks {
		b.u32(t.Number)
		b.u8(uint8(t.Kind))
		b.rational(t.EditRate)
		b.i64(t.Origin)
		b.i64(t.Duration)
		b.bool(t.Descriptor != nil)
		if t.Descriptor != nil {
			desc, err := MarshalDescriptor(t.Descriptor)
			if err != nil {
				// Descriptors are always one of the closed set this
				// package knows how to marshal; a failure here means a
				// codec handed back an unrecognized descriptor type,
				// which is a programmer error, not a wire condition.
				panic(err)
			}
			b.bytes(desc)
		}
	}
	return b.out
}

// UnmarshalTracks parses a track list serialized by MarshalTracks.
func UnmarshalTracks(raw []byte) ([]Track, error) {
	c := newCursor(raw)
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	tracks := make([]Track, n)
	for i := range tracks {
		t := &tracks[i]
		if t.Number, err = c.u32(); err != nil {
			return nil, err
		}
		kind, err := c.u8()
		if err != nil {
			return nil, err
		}
		t.Kind = Kind(kind)
		if t.EditRate, err = c.rational(); err != nil {
			return nil, err
		}
		if t.Origin, err = c.i64(); err != nil {
			return nil, err
		}
		if t.Duration, err = c.i64(); err != nil {
			return nil, err
		}
		hasDescriptor, err := c.boolField()
		if err != nil {
			return nil, err
		}
		if hasDescriptor {
			descRaw, err := c.bytesField()
			if err != nil {
				return nil, err
			}
			d, err := unmarshalDescriptor(newCursor(descRaw))
			if err != nil {
				return nil, err
			}
			t.Descriptor = d
		}
	}
	return tracks, nil
}

// Metadata is the payload carried by a header or footer partition: the
// stream's Header and the full track list.
type Metadata struct {
	Header *header.Header
	Tracks []Track
}

// Marshal serializes m.
func (m Metadata) Marshal() ([]byte, error) {
	hdrBytes, err := MarshalHeader(m.Header)
	if err != nil {
		return nil, err
	}
	var b buf
	b.bytes(hdrBytes)
	b.bytes(MarshalTracks(m.Tracks))
	return b.out, nil
}

// UnmarshalMetadata parses a payload serialized by Metadata.Marshal.
func UnmarshalMetadata(raw []byte) (Metadata, error) {
	c := newCursor(raw)
	hdrBytes, err := c.bytesField()
	if err != nil {
		return Metadata{}, err
	}
	h, err := UnmarshalHeader(newCursor(hdrBytes))
	if err != nil {
		return Metadata{}, err
	}
	trackBytes, err := c.bytesField()
	if err != nil {
		return Metadata{}, err
	}
	tracks, err := UnmarshalTracks(trackBytes)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Header: h, Tracks: tracks}, nil
}
