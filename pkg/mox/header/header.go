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

package header

import (
	"fmt"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
)

// Well-known attribute names.
const (
	DisplayWindowKey    = "displayWindow"
	SampledWindowKey    = "sampledWindow"
	PixelAspectRatioKey = "pixelAspectRatio"
	FrameRateKey        = "frameRate"
	SampleRateKey       = "sampleRate"
	VideoCompressionKey = "videoCompression"
	AudioCompressionKey = "audioCompression"
	ChannelsKey         = "channels"
	AudioChannelsKey    = "audiochannels"
	DurationKey         = "duration"
	AudioDurationKey    = "audioDuration"
	VideoQualityKey     = "videoQuality"
)

// Header is the name -> Attribute metadata dictionary attached to a
// stream, holding windows, rates, compression choices and channel lists.
type Header struct {
	order []string
	attrs map[string]Attribute
}

// New returns a Header with the standard defaults: 64x64 uncompressed
// video, 24fps, PCM audio, zero duration.
func New() *Header {
	h := &Header{attrs: make(map[string]Attribute)}
	h.Insert(DisplayWindowKey, Attribute{Kind: KindBox2i, Box2iVal: moxtypes.NewBox2i(64, 64)})
	h.Insert(SampledWindowKey, Attribute{Kind: KindBox2i, Box2iVal: moxtypes.NewBox2i(64, 64)})
	h.Insert(PixelAspectRatioKey, Attribute{Kind: KindRational, RationalVal: moxtypes.Rational{Numerator: 1, Denominator: 1}})
	h.Insert(FrameRateKey, Attribute{Kind: KindRational, RationalVal: moxtypes.Rational{Numerator: 24, Denominator: 1}})
	h.Insert(SampleRateKey, Attribute{Kind: KindRational, RationalVal: moxtypes.Rational{Numerator: 0, Denominator: 1}})
	h.Insert(VideoCompressionKey, Attribute{Kind: KindVideoCompression, VideoCompressionVal: Uncompressed})
	h.Insert(AudioCompressionKey, Attribute{Kind: KindAudioCompression, AudioCompressionVal: PCM})
	h.Insert(ChannelsKey, Attribute{Kind: KindChannelList, ChannelListVal: channel.NewList()})
	h.Insert(AudioChannelsKey, Attribute{Kind: KindAudioChannelList, AudioChannelListVal: channel.NewAudioList()})
	h.Insert(DurationKey, Attribute{Kind: KindInt, IntVal: 0})
	h.Insert(AudioDurationKey, Attribute{Kind: KindInt64, Int64Val: 0})
	return h
}

// Insert adds or overwrites an attribute by name, deep-copying the value.
func (h *Header) Insert(name string, a Attribute) {
	if _, exists := h.attrs[name]; !exists {
		h.order = append(h.order, name)
	}
	h.attrs[name] = a.clone()
}

// Erase removes an attribute. A missing name is a no-op.
func (h *Header) Erase(name string) {
	if _, exists := h.attrs[name]; !exists {
		return
	}
	delete(h.attrs, name)
	for i, n := range h.order {
		if n == name {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Find returns the attribute and whether it exists.
func (h *Header) Find(name string) (Attribute, bool) {
	a, ok := h.attrs[name]
	return a, ok
}

// Get returns the attribute with name, or an Argument error if missing.
func (h *Header) Get(name string) (Attribute, error) {
	a, ok := h.attrs[name]
	if !ok {
		return Attribute{}, fmt.Errorf("header: no attribute named %q: %w", name, moxerr.ErrArgument)
	}
	return a, nil
}

// Clone returns a deep copy of the header.
func (h *Header) Clone() *Header {
	clone := &Header{attrs: make(map[string]Attribute, len(h.attrs))}
	for _, name := range h.order {
		clone.Insert(name, h.attrs[name])
	}
	return clone
}

// Names returns attribute names in insertion order.
func (h *Header) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

func (h *Header) box2i(name string) (moxtypes.Box2i, error) {
	a, err := h.Get(name)
	if err != nil {
		return moxtypes.Box2i{}, err
	}
	if a.Kind != KindBox2i {
		return moxtypes.Box2i{}, kindMismatch(name, a.Kind, KindBox2i)
	}
	return a.Box2iVal, nil
}

func (h *Header) rational(name string) (moxtypes.Rational, error) {
	a, err := h.Get(name)
	if err != nil {
		return moxtypes.Rational{}, err
	}
	if a.Kind != KindRational {
		return moxtypes.Rational{}, kindMismatch(name, a.Kind, KindRational)
	}
	return a.RationalVal, nil
}

// DisplayWindow returns the displayWindow attribute.
func (h *Header) DisplayWindow() (moxtypes.Box2i, error) { return h.box2i(DisplayWindowKey) }

// SetDisplayWindow sets the displayWindow attribute.
func (h *Header) SetDisplayWindow(b moxtypes.Box2i) {
	h.Insert(DisplayWindowKey, Attribute{Kind: KindBox2i, Box2iVal: b})
}

// SampledWindow returns the sampledWindow attribute.
func (h *Header) SampledWindow() (moxtypes.Box2i, error) { return h.box2i(SampledWindowKey) }

// SetSampledWindow sets the sampledWindow attribute.
func (h *Header) SetSampledWindow(b moxtypes.Box2i) {
	h.Insert(SampledWindowKey, Attribute{Kind: KindBox2i, Box2iVal: b})
}

// FrameRate returns the frameRate attribute.
func (h *Header) FrameRate() (moxtypes.Rational, error) { return h.rational(FrameRateKey) }

// SetFrameRate sets the frameRate attribute.
func (h *Header) SetFrameRate(r moxtypes.Rational) {
	h.Insert(FrameRateKey, Attribute{Kind: KindRational, RationalVal: r})
}

// SampleRate returns the sampleRate attribute.
func (h *Header) SampleRate() (moxtypes.Rational, error) { return h.rational(SampleRateKey) }

// SetSampleRate sets the sampleRate attribute.
func (h *Header) SetSampleRate(r moxtypes.Rational) {
	h.Insert(SampleRateKey, Attribute{Kind: KindRational, RationalVal: r})
}

// Channels returns the channels attribute.
func (h *Header) Channels() (*channel.List, error) {
	a, err := h.Get(ChannelsKey)
	if err != nil {
		return nil, err
	}
	if a.Kind != KindChannelList {
		return nil, kindMismatch(ChannelsKey, a.Kind, KindChannelList)
	}
	return a.ChannelListVal, nil
}

// SetChannels sets the channels attribute.
func (h *Header) SetChannels(l *channel.List) {
	h.Insert(ChannelsKey, Attribute{Kind: KindChannelList, ChannelListVal: l})
}

// AudioChannels returns the audiochannels attribute.
func (h *Header) AudioChannels() (*channel.AudioList, error) {
	a, err := h.Get(AudioChannelsKey)
	if err != nil {
		return nil, err
	}
	if a.Kind != KindAudioChannelList {
		return nil, kindMismatch(AudioChannelsKey, a.Kind, KindAudioChannelList)
	}
	return a.AudioChannelListVal, nil
}

// SetAudioChannels sets the audiochannels attribute.
func (h *Header) SetAudioChannels(l *channel.AudioList) {
	h.Insert(AudioChannelsKey, Attribute{Kind: KindAudioChannelList, AudioChannelListVal: l})
}

// VideoCompression returns the videoCompression attribute.
func (h *Header) VideoCompression() (VideoCompression, error) {
	a, err := h.Get(VideoCompressionKey)
	if err != nil {
		return 0, err
	}
	if a.Kind != KindVideoCompression {
		return 0, kindMismatch(VideoCompressionKey, a.Kind, KindVideoCompression)
	}
	return a.VideoCompressionVal, nil
}

// SetVideoCompression sets the videoCompression attribute.
func (h *Header) SetVideoCompression(c VideoCompression) {
	h.Insert(VideoCompressionKey, Attribute{Kind: KindVideoCompression, VideoCompressionVal: c})
}

// AudioCompression returns the audioCompression attribute.
func (h *Header) AudioCompression() (AudioCompression, error) {
	a, err := h.Get(AudioCompressionKey)
	if err != nil {
		return 0, err
	}
	if a.Kind != KindAudioCompression {
		return 0, kindMismatch(AudioCompressionKey, a.Kind, KindAudioCompression)
	}
	return a.AudioCompressionVal, nil
}

// SetAudioCompression sets the audioCompression attribute.
func (h *Header) SetAudioCompression(c AudioCompression) {
	h.Insert(AudioCompressionKey, Attribute{Kind: KindAudioCompression, AudioCompressionVal: c})
}

// Duration returns the duration attribute (video frame count).
func (h *Header) Duration() (int, error) {
	a, err := h.Get(DurationKey)
	if err != nil {
		return 0, err
	}
	if a.Kind != KindInt {
		return 0, kindMismatch(DurationKey, a.Kind, KindInt)
	}
	return a.IntVal, nil
}

// SetDuration sets the duration attribute.
func (h *Header) SetDuration(n int) {
	h.Insert(DurationKey, Attribute{Kind: KindInt, IntVal: n})
}

// AudioDuration returns the audioDuration attribute (sample count).
func (h *Header) AudioDuration() (int64, error) {
	a, err := h.Get(AudioDurationKey)
	if err != nil {
		return 0, err
	}
	if a.Kind != KindInt64 {
		return 0, kindMismatch(AudioDurationKey, a.Kind, KindInt64)
	}
	return a.Int64Val, nil
}

// SetAudioDuration sets the audioDuration attribute.
func (h *Header) SetAudioDuration(n int64) {
	h.Insert(AudioDurationKey, Attribute{Kind: KindInt64, Int64Val: n})
}

// VideoQuality returns the optional videoQuality attribute. Its absence
// means lossless; ok is false in that case.
func (h *Header) VideoQuality() (quality int, ok bool) {
	a, exists := h.Find(VideoQualityKey)
	if !exists || a.Kind != KindInt {
		return 0, false
	}
	return a.IntVal, true
}

// SetVideoQuality sets a lossy quality setting in [0, 100].
func (h *Header) SetVideoQuality(quality int) error {
	if quality < 0 || quality > 100 {
		return fmt.Errorf("header: videoQuality must be in [0, 100], got %d: %w", quality, moxerr.ErrArgument)
	}
	h.Insert(VideoQualityKey, Attribute{Kind: KindInt, IntVal: quality})
	return nil
}

// SetLossless erases the videoQuality attribute; its absence signals
// lossless encoding.
func (h *Header) SetLossless() {
	h.Erase(VideoQualityKey)
}
