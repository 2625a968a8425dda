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

	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/threadpool"
)

// AudioBuffer is a block of interleaved or planar multi-channel PCM of
// fixed length, with an independent read head per channel.
type AudioBuffer struct {
	length    int64
	order     []string
	slices    map[string]AudioSlice
	readHeads map[string]int64
	attached  []*moxtypes.DataChunk
}

// New is construct(length): length must be positive.
func New(length int64) (*AudioBuffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("audiobuffer: length must be positive, got %d: %w", length, moxerr.ErrArgument)
	}
	return &AudioBuffer{
		length:    length,
		slices:    make(map[string]AudioSlice),
		readHeads: make(map[string]int64),
	}, nil
}

// Length returns the buffer's sample count.
func (b *AudioBuffer) Length() int64 { return b.length }

// Size returns the number of registered channels.
func (b *AudioBuffer) Size() int { return len(b.slices) }

// Names returns the registered channel names in insertion order.
func (b *AudioBuffer) Names() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Insert registers a named channel and resets its read head to 0.
func (b *AudioBuffer) Insert(name string, s AudioSlice) error {
	if name == "" {
		return fmt.Errorf("audiobuffer: slice name must not be empty: %w", moxerr.ErrArgument)
	}
	if _, exists := b.slices[name]; !exists {
		b.order = append(b.order, name)
	}
	b.slices[name] = s
	b.readHeads[name] = 0
	return nil
}

// FindSlice looks up a named channel.
func (b *AudioBuffer) FindSlice(name string) (AudioSlice, bool) {
	s, ok := b.slices[name]
	return s, ok
}

// Slice is the operator[] equivalent: lookup that fails with an
// argument error if name isn't present.
func (b *AudioBuffer) Slice(name string) (AudioSlice, error) {
	s, ok := b.slices[name]
	if !ok {
		return AudioSlice{}, fmt.Errorf("audiobuffer: no slice named %q: %w", name, moxerr.ErrArgument)
	}
	return s, nil
}

// AttachData keeps chunk alive for as long as b lives.
func (b *AudioBuffer) AttachData(chunk *moxtypes.DataChunk) {
	chunk.Retain()
	b.attached = append(b.attached, chunk)
}

// Release drops this buffer's references to every attached chunk.
func (b *AudioBuffer) Release() {
	for _, c := range b.attached {
		c.Release()
	}
	b.attached = nil
}

// PlayheadSlice returns a copy of the named slice advanced by the
// channel's current read head.
func (b *AudioBuffer) PlayheadSlice(name string) (AudioSlice, error) {
	s, err := b.Slice(name)
	if err != nil {
		return AudioSlice{}, err
	}
	head, ok := b.readHeads[name]
	if !ok {
		return AudioSlice{}, fmt.Errorf("audiobuffer: no read head for channel %q: %w", name, moxerr.ErrLogic)
	}
	if head > b.length {
		return AudioSlice{}, fmt.Errorf("audiobuffer: playhead beyond end of stream for channel %q: %w", name, moxerr.ErrLogic)
	}
	return s.advanced(head), nil
}

// Remaining returns the sample count left before channel name's read
// head reaches Length.
func (b *AudioBuffer) Remaining(name string) (int64, error) {
	head, ok := b.readHeads[name]
	if !ok {
		return 0, fmt.Errorf("audiobuffer: no read head for channel %q: %w", name, moxerr.ErrLogic)
	}
	if head > b.length {
		return 0, fmt.Errorf("audiobuffer: playhead beyond end of stream for channel %q: %w", name, moxerr.ErrLogic)
	}
	return b.length - head, nil
}

// RemainingAll returns the common remaining sample count across every
// channel; channels disagreeing means a caller advanced one head out
// of step, so a mismatch is an error rather than a silent max().
func (b *AudioBuffer) RemainingAll() (int64, error) {
	var remain int64
	first := true
	for _, name := range b.order {
		r, err := b.Remaining(name)
		if err != nil {
			return 0, err
		}
		if first {
			remain = r
			first = false
			continue
		}
		if r != remain {
			return 0, fmt.Errorf("audiobuffer: channels disagree on remaining samples (%d vs %d): %w", remain, r, moxerr.ErrLogic)
		}
	}
	return remain, nil
}

// FastForward advances every channel's read head by samples. It fails
// if any resulting position would fall outside [0, Length].
func (b *AudioBuffer) FastForward(samples int64) error {
	for name := range b.readHeads {
		if err := b.checkSeek(name, samples); err != nil {
			return err
		}
	}
	for name := range b.readHeads {
		b.readHeads[name] += samples
	}
	return nil
}

// FastForwardChannel advances one channel's read head by samples.
func (b *AudioBuffer) FastForwardChannel(name string, samples int64) error {
	if err := b.checkSeek(name, samples); err != nil {
		return err
	}
	b.readHeads[name] += samples
	return nil
}

func (b *AudioBuffer) checkSeek(name string, samples int64) error {
	head, ok := b.readHeads[name]
	if !ok {
		return fmt.Errorf("audiobuffer: no read head for channel %q: %w", name, moxerr.ErrArgument)
	}
	next := head + samples
	if next > b.length || next < 0 {
		return fmt.Errorf("audiobuffer: seeking channel %q out of buffer range: %w", name, moxerr.ErrArgument)
	}
	return nil
}

// Rewind resets every read head to 0.
func (b *AudioBuffer) Rewind() {
	for name := range b.readHeads {
		b.readHeads[name] = 0
	}
}

// ReadFromBuffer copies up to samples samples from other's playhead
// into this buffer's playhead, advancing both read heads. If samples is
// 0, it copies however many samples remain in this buffer's channel.
// Channels absent from other are zero-filled if fillMissing.
func (b *AudioBuffer) ReadFromBuffer(other *AudioBuffer, samples int64, fillMissing bool) error {
	return b.copyFrom(other, samples, fillMissing, true)
}

// CopyFromConstBuffer is ReadFromBuffer, but other's read heads are left
// unchanged.
func (b *AudioBuffer) CopyFromConstBuffer(other *AudioBuffer, samples int64, fillMissing bool) error {
	return b.copyFrom(other, samples, fillMissing, false)
}

func (b *AudioBuffer) copyFrom(other *AudioBuffer, samples int64, fillMissing bool, advanceOther bool) error {
	g := threadpool.Global().NewGroup()

	for _, name := range b.order {
		name := name
		copyLen, err := b.Remaining(name)
		if err != nil {
			return err
		}
		if samples > 0 && samples < copyLen {
			copyLen = samples
		}
		if copyLen <= 0 {
			continue
		}

		thisSlice, err := b.PlayheadSlice(name)
		if err != nil {
			return err
		}

		if _, ok := other.slices[name]; ok {
			otherRemaining, err := other.Remaining(name)
			if err != nil {
				return err
			}
			if otherRemaining < copyLen {
				copyLen = otherRemaining
			}
			otherHead, err := other.PlayheadSlice(name)
			if err != nil {
				return err
			}
			g.Go(func() error { return copySamples(thisSlice, otherHead, copyLen) })
			if advanceOther {
				if err := other.FastForwardChannel(name, copyLen); err != nil {
					return err
				}
			}
		} else if fillMissing {
			g.Go(func() error { return fillSamples(thisSlice, copyLen) })
		}

		if err := b.FastForwardChannel(name, copyLen); err != nil {
			return err
		}
	}
	return g.Wait()
}

// FillRemaining writes the type's silent value from the current
// playhead to Length, for every channel.
func (b *AudioBuffer) FillRemaining() error {
	g := threadpool.Global().NewGroup()
	for _, name := range b.order {
		if err := b.fillRemainingChannel(g, name); err != nil {
			return err
		}
	}
	return g.Wait()
}

// FillRemainingChannel is FillRemaining restricted to one channel.
func (b *AudioBuffer) FillRemainingChannel(name string) error {
	g := threadpool.Global().NewGroup()
	if err := b.fillRemainingChannel(g, name); err != nil {
		return err
	}
	return g.Wait()
}

func (b *AudioBuffer) fillRemainingChannel(g *threadpool.Group, name string) error {
	fillLen, err := b.Remaining(name)
	if err != nil {
		return err
	}
	if fillLen <= 0 {
		return nil
	}
	s, err := b.PlayheadSlice(name)
	if err != nil {
		return err
	}
	g.Go(func() error { return fillSamples(s, fillLen) })
	return b.FastForwardChannel(name, fillLen)
}

func fillSamples(s AudioSlice, length int64) error {
	zero, err := s.Type.ZeroValue()
	if err != nil {
		return err
	}
	base := s.Base
	for i := int64(0); i < length; i++ {
		off := int(i) * s.Stride
		if err := writeSample(s.Type, base, off, float64(zero)); err != nil {
			return err
		}
	}
	return nil
}

func copySamples(dst, src AudioSlice, length int64) error {
	for i := int64(0); i < length; i++ {
		dstOff := int(i) * dst.Stride
		srcOff := int(i) * src.Stride
		raw, err := readSample(src.Type, src.Base, srcOff)
		if err != nil {
			return err
		}
		converted, err := convertSample(src.Type, dst.Type, raw)
		if err != nil {
			return err
		}
		if err := writeSample(dst.Type, dst.Base, dstOff, converted); err != nil {
			return err
		}
	}
	return nil
}
