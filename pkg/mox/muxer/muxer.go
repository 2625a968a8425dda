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

// Package muxer implements Writer, the output side of a MOX file,
// built on pkg/mox/container: one struct holding the open output
// stream plus per-track index-entry slices, filled incrementally by
// PushFrame/PushAudio and flushed by Finalize.
package muxer

import (
	"bytes"
	"fmt"
	"math"

	"mox/pkg/mox/audiobuffer"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/config"
	"mox/pkg/mox/container"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/diag"
	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/sample"
)

type videoTrack struct {
	number     uint32
	codec      codec.VideoCodec
	frameCount int64
}

type audioTrack struct {
	number     uint32
	codec      codec.AudioCodec
	names      []string
	sampleType sample.Type
	sampleRate moxtypes.Rational
	frameRate  moxtypes.Rational

	queue           []*audiobuffer.AudioBuffer
	samplesConsumed int64
	frameIndex      int64
}

// Writer is the output side of a MOX file: it negotiates one video and
// one audio codec against the supplied Header, then accepts frames and
// audio blocks incrementally.
type Writer struct {
	stream       container.ByteStream
	streamHandle uint64
	header       *header.Header
	kag          uint32

	video  *videoTrack
	audio  *audioTrack
	tracks []container.Track
	index  *container.IndexSet

	started          bool
	finalized        bool
	writeOffset      uint64
	headerPackOffset uint64
	bodyOffset       uint64

	logger *diag.Logger
}

// SetLogger attaches a diagnostics logger; nil detaches it. Safe to call
// at any point in the Writer's lifetime; a nil logger (the default)
// drops every event at no cost.
func (w *Writer) SetLogger(l *diag.Logger) {
	w.logger = l
}

func audioChannelsCapabilityFor(n int) codec.AudioChannels {
	switch n {
	case 1:
		return codec.AudioChannelsMono
	case 2:
		return codec.AudioChannelsStereo
	case 6:
		return codec.AudioChannels51
	default:
		return codec.AudioChannelsNone
	}
}

// NewWriter negotiates a video codec (if the header declares any video
// channels) and an audio codec (if it declares any audio channels),
// assigns each a track number of the SMPTE shape
// item_type∥total_of_that_item∥element_type∥ordinal, and fails if
// neither essence type is present or no codec accepts the declared
// channels.
//
// A codec whose negotiated channel set doesn't fit in a single layer
// would require writing more than one video track for this one essence
// -- multi-track channel splitting is not supported by this writer, and
// NewWriter fails with moxerr.ErrNoImpl rather than silently dropping
// channels.
func NewWriter(stream container.ByteStream, h *header.Header) (*Writer, error) {
	return NewWriterWithConfig(stream, h, config.Defaults())
}

// NewWriterWithConfig is NewWriter with explicit process configuration:
// cfg.KAGSize overrides the partition/packet alignment grid, and
// cfg.DefaultVideoQuality (if nonzero) is applied to a header that
// carries no explicit videoQuality attribute before the video codec is
// constructed.
func NewWriterWithConfig(stream container.ByteStream, h *header.Header, cfg *config.Config) (*Writer, error) {
	if _, ok := h.VideoQuality(); !ok && cfg.DefaultVideoQuality > 0 {
		if err := h.SetVideoQuality(cfg.DefaultVideoQuality); err != nil {
			return nil, err
		}
	}

	channels, err := h.Channels()
	if err != nil {
		return nil, err
	}
	audioChannels, err := h.AudioChannels()
	if err != nil {
		return nil, err
	}
	if channels.Len() == 0 && audioChannels.Len() == 0 {
		return nil, fmt.Errorf("muxer: header declares no video or audio channels: %w", moxerr.ErrArgument)
	}

	handle := container.RegisterHandle(stream)
	ok := false
	defer func() {
		if !ok {
			container.ReleaseHandle(handle)
		}
	}()

	w := &Writer{
		stream:       stream,
		streamHandle: handle,
		header:       h,
		kag:          uint32(cfg.KAGSize),
		index:        container.NewIndexSet(),
	}

	if channels.Len() > 0 {
		vc, err := h.VideoCompression()
		if err != nil {
			return nil, err
		}
		info, err := codec.LookupVideo(vc)
		if err != nil {
			return nil, err
		}
		layers, adjusted, err := codec.NegotiateChannels(info, channels)
		if err != nil {
			return nil, err
		}
		if len(layers) != 1 {
			return nil, fmt.Errorf("muxer: codec %v needs %d channel layers, only one video track is supported: %w", vc, len(layers), moxerr.ErrNoImpl)
		}
		h.SetChannels(adjusted)

		compressor, err := info.NewCompressor(h, adjusted)
		if err != nil {
			return nil, err
		}
		frameRate, err := h.FrameRate()
		if err != nil {
			return nil, err
		}
		number := container.TrackNumber(container.KindPicture, 1, 1, 1)
		w.video = &videoTrack{number: number, codec: compressor}
		w.tracks = append(w.tracks, container.Track{Number: number, Kind: container.KindPicture, EditRate: frameRate})
	}

	if audioChannels.Len() > 0 {
		ac, err := h.AudioCompression()
		if err != nil {
			return nil, err
		}
		info, err := codec.LookupAudio(ac)
		if err != nil {
			return nil, err
		}
		caps := info.ChannelCapabilities()
		need := audioChannelsCapabilityFor(audioChannels.Len())
		if caps&need == 0 && caps&codec.AudioChannelsAny == 0 {
			return nil, fmt.Errorf("muxer: codec %v does not accept %d audio channels: %w", ac, audioChannels.Len(), moxerr.ErrNoImpl)
		}

		compressor, err := info.NewCompressor(h, audioChannels)
		if err != nil {
			return nil, err
		}
		sampleRate, err := h.SampleRate()
		if err != nil {
			return nil, err
		}
		frameRate, err := h.FrameRate()
		if err != nil {
			return nil, err
		}
		names := audioChannels.Names()
		first, _ := audioChannels.Find(names[0])

		number := container.TrackNumber(container.KindSound, 1, 1, 1)
		w.audio = &audioTrack{
			number:     number,
			codec:      compressor,
			names:      names,
			sampleType: first.Type,
			sampleRate: sampleRate,
			frameRate:  frameRate,
		}
		w.tracks = append(w.tracks, container.Track{Number: number, Kind: container.KindSound, EditRate: sampleRate})
	}

	if w.video == nil && w.audio == nil {
		return nil, fmt.Errorf("muxer: no codec accepted any declared track: %w", moxerr.ErrNoImpl)
	}
	ok = true
	return w, nil
}

// ensureStarted writes the open header partition and the body partition
// the first time any essence is about to be written: the first drained
// chunk ever serializes the header partition and metadata, then opens
// the body partition.
func (w *Writer) ensureStarted() error {
	if w.started {
		return nil
	}
	meta := &container.Metadata{Header: w.header, Tracks: w.tracks}
	headerOff, next, err := container.WritePartition(w.stream, 0, w.kag, container.PartitionHeader, 0, meta, nil)
	if err != nil {
		return err
	}
	bodyOff, next, err := container.WritePartition(w.stream, next, w.kag, container.PartitionBody, headerOff, nil, nil)
	if err != nil {
		return err
	}
	w.headerPackOffset = headerOff
	w.bodyOffset = bodyOff
	w.writeOffset = next
	w.started = true
	return nil
}

func (w *Writer) writeEssence(trackNumber uint32, chunk *moxtypes.DataChunk) error {
	if err := w.ensureStarted(); err != nil {
		return err
	}
	offset := w.writeOffset
	var out bytes.Buffer
	if err := container.WriteKLV(&out, container.EssenceKey(trackNumber), chunk.Bytes()); err != nil {
		return err
	}
	if _, err := w.stream.WriteAt(out.Bytes(), offset); err != nil {
		return err
	}
	w.index.Table(trackNumber).Append(container.IndexEntry{StreamOffset: offset})
	w.writeOffset += uint64(out.Len())
	return nil
}

func (w *Writer) drainVideo() error {
	for {
		chunk, ok := w.video.codec.GetNextData()
		if !ok {
			return nil
		}
		if err := w.writeEssence(w.video.number, chunk); err != nil {
			return err
		}
	}
}

func (w *Writer) drainAudio() error {
	for {
		chunk, ok := w.audio.codec.GetNextData()
		if !ok {
			return nil
		}
		if err := w.writeEssence(w.audio.number, chunk); err != nil {
			return err
		}
	}
}

// PushFrame compresses one video frame and writes every resulting chunk
// as an essence packet under the video track's number.
// Per-channel type materialization (if the declared channels don't
// match what the codec accepts) happens inside the codec's Compress,
// not here -- see e.g. codec/uncompressed.Codec.Compress, which builds
// its own accepted-type FrameBuffer and runs CopyFromFrame into it.
func (w *Writer) PushFrame(frame *framebuffer.FrameBuffer) error {
	if w.finalized {
		return fmt.Errorf("muxer: writer already finalized: %w", moxerr.ErrLogic)
	}
	if w.video == nil {
		return fmt.Errorf("muxer: no video track configured: %w", moxerr.ErrLogic)
	}
	if err := w.video.codec.Compress(frame); err != nil {
		return err
	}
	if err := w.drainVideo(); err != nil {
		return err
	}
	w.video.frameCount++
	return nil
}

func cloneAudioBuffer(src *audiobuffer.AudioBuffer) (*audiobuffer.AudioBuffer, error) {
	dst, err := audiobuffer.New(src.Length())
	if err != nil {
		return nil, err
	}
	for _, name := range src.Names() {
		s, err := src.Slice(name)
		if err != nil {
			return nil, err
		}
		size, err := s.Type.Size()
		if err != nil {
			return nil, err
		}
		buf := make([]byte, int(src.Length())*size)
		if err := dst.Insert(name, audiobuffer.NewAudioSlice(s.Type, buf, size)); err != nil {
			return nil, err
		}
	}
	if err := dst.CopyFromConstBuffer(src, 0, false); err != nil {
		return nil, err
	}
	return dst, nil
}

func totalQueueRemaining(queue []*audiobuffer.AudioBuffer) (int64, error) {
	var total int64
	for _, b := range queue {
		r, err := b.RemainingAll()
		if err != nil {
			return 0, err
		}
		total += r
	}
	return total, nil
}

// cumulativeAudioSamples returns round(frames * sampleRate/frameRate),
// the "samples so far minus samples consumed" rule that sizes
// per-edit-unit audio blocks when the ratio isn't integral.
func cumulativeAudioSamples(frames int64, sampleRate, frameRate moxtypes.Rational) int64 {
	num := float64(frames) * float64(sampleRate.Numerator) * float64(frameRate.Denominator)
	den := float64(sampleRate.Denominator) * float64(frameRate.Numerator)
	return int64(math.Round(num / den))
}

func buildAudioBlock(at *audioTrack, need int64) (*audiobuffer.AudioBuffer, error) {
	dst, err := audiobuffer.New(need)
	if err != nil {
		return nil, err
	}
	nativeSize, err := at.sampleType.Size()
	if err != nil {
		return nil, err
	}
	for _, name := range at.names {
		buf := make([]byte, int(need)*nativeSize)
		if err := dst.Insert(name, audiobuffer.NewAudioSlice(at.sampleType, buf, nativeSize)); err != nil {
			return nil, err
		}
	}
	for {
		remaining, err := dst.RemainingAll()
		if err != nil {
			return nil, err
		}
		if remaining <= 0 {
			return dst, nil
		}
		if len(at.queue) == 0 {
			return nil, fmt.Errorf("muxer: audio queue exhausted before filling a %d-sample block: %w", need, moxerr.ErrLogic)
		}
		front := at.queue[0]
		frontRemaining, err := front.RemainingAll()
		if err != nil {
			return nil, err
		}
		if frontRemaining == 0 {
			at.queue = at.queue[1:]
			continue
		}
		if err := dst.ReadFromBuffer(front, 0, true); err != nil {
			return nil, err
		}
	}
}

func silenceBuffer(at *audioTrack, n int64) (*audiobuffer.AudioBuffer, error) {
	pad, err := audiobuffer.New(n)
	if err != nil {
		return nil, err
	}
	nativeSize, err := at.sampleType.Size()
	if err != nil {
		return nil, err
	}
	for _, name := range at.names {
		buf := make([]byte, int(n)*nativeSize)
		if err := pad.Insert(name, audiobuffer.NewAudioSlice(at.sampleType, buf, nativeSize)); err != nil {
			return nil, err
		}
	}
	if err := pad.FillRemaining(); err != nil {
		return nil, err
	}
	pad.Rewind()
	return pad, nil
}

// flushAudio compresses as many complete audio blocks as the queue
// currently has samples for, stopping as soon as the next block would
// be only partially filled -- that remainder is left for a later
// PushAudio call, or padded with silence at Finalize.
func (w *Writer) flushAudio() error {
	at := w.audio
	for {
		target := cumulativeAudioSamples(at.frameIndex+1, at.sampleRate, at.frameRate)
		need := target - at.samplesConsumed
		if need <= 0 {
			at.frameIndex++
			continue
		}
		remaining, err := totalQueueRemaining(at.queue)
		if err != nil {
			return err
		}
		if remaining < need {
			return nil
		}
		block, err := buildAudioBlock(at, need)
		if err != nil {
			return err
		}
		if err := at.codec.Compress(block); err != nil {
			return err
		}
		at.samplesConsumed += need
		at.frameIndex++
		if err := w.drainAudio(); err != nil {
			return err
		}
	}
}

// PushAudio enqueues one block of audio samples and compresses as many
// complete per-edit-unit blocks as now have enough accumulated audio.
// Samples beyond the last complete block stay queued
// until the next PushAudio call, or until Finalize pads and flushes the
// final partial block.
func (w *Writer) PushAudio(audio *audiobuffer.AudioBuffer) error {
	if w.finalized {
		return fmt.Errorf("muxer: writer already finalized: %w", moxerr.ErrLogic)
	}
	if w.audio == nil {
		return fmt.Errorf("muxer: no audio track configured: %w", moxerr.ErrLogic)
	}
	clone, err := cloneAudioBuffer(audio)
	if err != nil {
		return err
	}
	w.audio.queue = append(w.audio.queue, clone)
	return w.flushAudio()
}

func setContainerDuration(d descriptor.Descriptor, duration int64) descriptor.Descriptor {
	switch v := d.(type) {
	case descriptor.CDCI:
		v.ContainerDuration = duration
		return v
	case descriptor.RGBA:
		v.ContainerDuration = duration
		return v
	case descriptor.MPEG:
		v.ContainerDuration = duration
		return v
	case descriptor.Wave:
		v.ContainerDuration = duration
		return v
	case descriptor.AES3:
		v.ContainerDuration = duration
		return v
	default:
		return d
	}
}

// Finalize flushes every codec via EndOfStream, pads and flushes any
// trailing partial audio block, back-patches every track's component
// duration, writes the footer partition with the final metadata and
// index, and back-patches the header partition's pointers in place.
// It is idempotent.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	if err := w.ensureStarted(); err != nil {
		return err
	}

	if w.video != nil {
		if err := w.video.codec.EndOfStream(); err != nil {
			return err
		}
		if err := w.drainVideo(); err != nil {
			return err
		}
	}

	var duration int64
	if w.video != nil {
		duration = w.video.frameCount
	}

	if w.audio != nil {
		at := w.audio
		targetFrames := duration
		if w.video == nil {
			targetFrames = at.frameIndex
			if remaining, err := totalQueueRemaining(at.queue); err != nil {
				return err
			} else if remaining > 0 {
				targetFrames++
			}
		}
		for at.frameIndex < targetFrames {
			target := cumulativeAudioSamples(at.frameIndex+1, at.sampleRate, at.frameRate)
			need := target - at.samplesConsumed
			if need <= 0 {
				at.frameIndex++
				continue
			}
			remaining, err := totalQueueRemaining(at.queue)
			if err != nil {
				return err
			}
			if remaining < need {
				pad, err := silenceBuffer(at, need-remaining)
				if err != nil {
					return err
				}
				at.queue = append(at.queue, pad)
			}
			block, err := buildAudioBlock(at, need)
			if err != nil {
				return err
			}
			if err := at.codec.Compress(block); err != nil {
				return err
			}
			at.samplesConsumed += need
			at.frameIndex++
			if err := w.drainAudio(); err != nil {
				return err
			}
		}
		if err := at.codec.EndOfStream(); err != nil {
			return err
		}
		if err := w.drainAudio(); err != nil {
			return err
		}
		if w.video == nil {
			duration = at.frameIndex
		}
	}

	w.header.SetDuration(int(duration))
	if w.audio != nil {
		w.header.SetAudioDuration(w.audio.samplesConsumed)
	}

	for i := range w.tracks {
		switch {
		case w.video != nil && w.tracks[i].Number == w.video.number:
			w.tracks[i].Duration = w.video.frameCount
			w.tracks[i].Descriptor = setContainerDuration(w.video.codec.Descriptor(), w.video.frameCount)
		case w.audio != nil && w.tracks[i].Number == w.audio.number:
			w.tracks[i].Duration = w.audio.samplesConsumed
			w.tracks[i].Descriptor = setContainerDuration(w.audio.codec.Descriptor(), w.audio.samplesConsumed)
		}
	}

	meta := &container.Metadata{Header: w.header, Tracks: w.tracks}
	footerOffset, _, err := container.WritePartition(w.stream, w.writeOffset, w.kag, container.PartitionFooter, w.bodyOffset, meta, w.index)
	if err != nil {
		return err
	}

	if err := container.PatchPartitionPointers(w.stream, w.headerPackOffset, w.bodyOffset, footerOffset); err != nil {
		return err
	}
	if err := w.stream.Flush(); err != nil {
		return err
	}
	w.finalized = true
	container.ReleaseHandle(w.streamHandle)
	var audioSamples int64
	if w.audio != nil {
		audioSamples = w.audio.samplesConsumed
	}
	w.logger.Info().Src("muxer").Msgf("finalized: %d video frames, %d audio samples", duration, audioSamples)
	return nil
}
