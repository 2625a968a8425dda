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

// Package uncompressedpcm implements the uncompressed wave-audio
// codec: interleaved linear PCM at 8/16/24/32 bits. AES3
// channel-status framing is a distinct codec and not implemented
// here.
package uncompressedpcm

import (
	"fmt"

	"mox/pkg/mox/audiobuffer"
	"mox/pkg/mox/channel"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/sample"
)

func init() {
	codec.RegisterAudio(header.PCM, Info{})
}

func wireBytesPerSample(t sample.Type) (int, error) {
	bits, err := t.Bits()
	if err != nil {
		return 0, err
	}
	return (bits + 7) / 8, nil
}

// sampleTypeForBitDepth maps an on-disk PCM bit depth to its in-memory
// sample type.
func sampleTypeForBitDepth(bits int32) (sample.Type, error) {
	switch bits {
	case 8:
		return sample.U8, nil
	case 16:
		return sample.S16, nil
	case 24:
		return sample.S24, nil
	case 32:
		return sample.S32, nil
	default:
		return 0, fmt.Errorf("uncompressedpcm: unsupported bit depth %d: %w", bits, moxerr.ErrLogic)
	}
}

// packSample narrows a sample's native little-endian bytes down to the
// wire format. Only S24 differs: its native container is 4 bytes
// (sample.Type.Size), but the wire format is the low 3 bytes -- which,
// for a value already in [-8388608, 8388607], are exactly its 24-bit
// two's complement encoding.
func packSample(t sample.Type, native []byte, wire []byte) {
	copy(wire, native)
}

// unpackSample widens a wire-format sample up to its native
// representation, sign-extending S24's missing top byte.
func unpackSample(t sample.Type, wire []byte, native []byte) {
	copy(native, wire)
	if t == sample.S24 {
		if wire[2]&0x80 != 0 {
			native[3] = 0xFF
		} else {
			native[3] = 0x00
		}
	}
}

// Info is the uncompressed PCM codec's capability/factory surface.
type Info struct{}

// CanCompressType implements codec.AudioInfo.
func (Info) CanCompressType(t sample.Type) bool {
	switch t {
	case sample.U8, sample.S16, sample.S24, sample.S32:
		return true
	default:
		return false
	}
}

// CompressedType implements codec.AudioInfo: Float has no PCM wire
// encoding, so it's widened to the deepest integer type.
func (info Info) CompressedType(t sample.Type) (sample.Type, error) {
	if info.CanCompressType(t) {
		return t, nil
	}
	if t == sample.Float {
		return sample.S32, nil
	}
	return 0, fmt.Errorf("uncompressedpcm: no PCM encoding covers %v: %w", t, moxerr.ErrLogic)
}

// ChannelCapabilities implements codec.AudioInfo.
func (Info) ChannelCapabilities() codec.AudioChannels {
	return codec.AudioChannelsAll
}

// NewCompressor implements codec.AudioInfo.
func (Info) NewCompressor(h *header.Header, channels *channel.AudioList) (codec.AudioCodec, error) {
	names := channels.Names()
	n := len(names)
	if n != 1 && n != 2 && n != 6 {
		return nil, fmt.Errorf("uncompressedpcm: channel count %d is not 1, 2 or 6: %w", n, moxerr.ErrLogic)
	}

	first, _ := channels.Find(names[0])
	sampleType := first.Type
	for _, name := range names[1:] {
		c, _ := channels.Find(name)
		if c.Type != sampleType {
			return nil, fmt.Errorf("uncompressedpcm: all channels must share one sample type: %w", moxerr.ErrLogic)
		}
	}

	sampleRate, err := h.SampleRate()
	if err != nil {
		return nil, err
	}
	bits, err := sampleType.Bits()
	if err != nil {
		return nil, err
	}
	wireSize, err := wireBytesPerSample(sampleType)
	if err != nil {
		return nil, err
	}

	desc := descriptor.Wave{
		AudioGeneric: descriptor.AudioGeneric{
			Generic: descriptor.Generic{
				EditRate:         sampleRate,
				EssenceContainer: descriptor.ContainerWaveAudio,
			},
			AudioSamplingRate: sampleRate,
			ChannelCount:      int32(n),
			BitDepth:          int32(bits),
		},
		BlockAlign:            int32(wireSize * n),
		AverageBytesPerSecond: int32(wireSize * n * int(sampleRate.Numerator) / maxInt(int(sampleRate.Denominator), 1)),
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	return &Codec{descriptor: desc, names: channel.StandardNames(n), sampleType: sampleType}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// NewDecompressor implements codec.AudioInfo.
func (Info) NewDecompressor(d descriptor.Descriptor, h *header.Header, channels *channel.AudioList) (codec.AudioCodec, error) {
	wave, ok := d.(descriptor.Wave)
	if !ok {
		return nil, fmt.Errorf("uncompressedpcm: descriptor is not Wave: %w", moxerr.ErrType)
	}
	sampleType, err := sampleTypeForBitDepth(wave.BitDepth)
	if err != nil {
		return nil, err
	}

	names := channel.StandardNames(int(wave.ChannelCount))
	for _, name := range names {
		channels.Insert(name, channel.AudioChannel{Type: sampleType})
	}
	h.SetSampleRate(wave.AudioSamplingRate)

	return &Codec{descriptor: wave, names: names, sampleType: sampleType}, nil
}

// Codec implements codec.AudioCodec for uncompressed PCM wave audio.
type Codec struct {
	descriptor descriptor.Wave
	names      []string
	sampleType sample.Type

	pendingData    []*moxtypes.DataChunk
	pendingBuffers []*audiobuffer.AudioBuffer
}

// Descriptor implements codec.AudioCodec.
func (c *Codec) Descriptor() descriptor.Descriptor { return c.descriptor }

// SamplesInFrame implements codec.AudioCodec: the demuxer uses this to
// derive an audio-sample index from a packet's byte size during open.
func (c *Codec) SamplesInFrame(packetSize int) (int64, error) {
	wireSize, err := wireBytesPerSample(c.sampleType)
	if err != nil {
		return 0, err
	}
	frameBytes := wireSize * len(c.names)
	if frameBytes == 0 || packetSize%frameBytes != 0 {
		return 0, fmt.Errorf("uncompressedpcm: packet size %d is not a multiple of the frame size %d: %w", packetSize, frameBytes, moxerr.ErrInput)
	}
	return int64(packetSize / frameBytes), nil
}

// Compress implements codec.AudioCodec: converts audio's channels to the
// descriptor's sample type if needed, then interleaves them into one
// wire-format data chunk.
func (c *Codec) Compress(audio *audiobuffer.AudioBuffer) error {
	wireSize, err := wireBytesPerSample(c.sampleType)
	if err != nil {
		return err
	}
	nativeSize, err := c.sampleType.Size()
	if err != nil {
		return err
	}

	length := audio.Length()
	native, err := audiobuffer.New(length)
	if err != nil {
		return err
	}
	nativeBuf := make([][]byte, len(c.names))
	for i, name := range c.names {
		buf := make([]byte, int(length)*nativeSize)
		nativeBuf[i] = buf
		if err := native.Insert(name, audiobuffer.NewAudioSlice(c.sampleType, buf, nativeSize)); err != nil {
			return err
		}
	}
	if err := native.ReadFromBuffer(audio, 0, true); err != nil {
		return err
	}

	stride := wireSize * len(c.names)
	dataSize := int(length) * stride
	chunk := moxtypes.NewDataChunk(dataSize, 0)
	out := chunk.Bytes()

	for i := range c.names {
		for s := int64(0); s < length; s++ {
			nativeOff := int(s) * nativeSize
			wireOff := int(s)*stride + i*wireSize
			packSample(c.sampleType, nativeBuf[i][nativeOff:nativeOff+nativeSize], out[wireOff:wireOff+wireSize])
		}
	}

	c.pendingData = append(c.pendingData, chunk)
	return nil
}

// GetNextData implements codec.AudioCodec.
func (c *Codec) GetNextData() (*moxtypes.DataChunk, bool) {
	if len(c.pendingData) == 0 {
		return nil, false
	}
	d := c.pendingData[0]
	c.pendingData = c.pendingData[1:]
	return d, true
}

// Decompress implements codec.AudioCodec: de-interleaves one wire-format
// data chunk into a fresh AudioBuffer in the sample type's native
// in-memory representation.
func (c *Codec) Decompress(data *moxtypes.DataChunk) error {
	wireSize, err := wireBytesPerSample(c.sampleType)
	if err != nil {
		return err
	}
	nativeSize, err := c.sampleType.Size()
	if err != nil {
		return err
	}
	stride := wireSize * len(c.names)
	if stride == 0 || data.Len()%stride != 0 {
		return fmt.Errorf("uncompressedpcm: data chunk of %d bytes is not a multiple of the frame size %d: %w", data.Len(), stride, moxerr.ErrInput)
	}
	length := int64(data.Len() / stride)

	nativeChunk := moxtypes.NewDataChunk(int(length)*nativeSize*len(c.names), 0)
	nativeStride := nativeSize * len(c.names)
	nativeBytes := nativeChunk.Bytes()

	in := data.Bytes()
	for i := range c.names {
		for s := int64(0); s < length; s++ {
			wireOff := int(s)*stride + i*wireSize
			nativeOff := int(s)*nativeStride + i*nativeSize
			unpackSample(c.sampleType, in[wireOff:wireOff+wireSize], nativeBytes[nativeOff:nativeOff+nativeSize])
		}
	}

	buf, err := audiobuffer.New(length)
	if err != nil {
		return err
	}
	for i, name := range c.names {
		if err := buf.Insert(name, audiobuffer.NewAudioSlice(c.sampleType, nativeBytes[i*nativeSize:], nativeStride)); err != nil {
			return err
		}
	}
	buf.AttachData(nativeChunk)

	c.pendingBuffers = append(c.pendingBuffers, buf)
	return nil
}

// GetNextBuffer implements codec.AudioCodec.
func (c *Codec) GetNextBuffer() (*audiobuffer.AudioBuffer, bool) {
	if len(c.pendingBuffers) == 0 {
		return nil, false
	}
	b := c.pendingBuffers[0]
	c.pendingBuffers = c.pendingBuffers[1:]
	return b, true
}

// EndOfStream implements codec.AudioCodec. PCM has no hidden internal
// latency, so there's nothing left to flush.
func (c *Codec) EndOfStream() error { return nil }
