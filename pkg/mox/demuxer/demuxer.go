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

// Package demuxer implements Reader, the input side of a MOX file,
// built on pkg/mox/container: parse the footer partition once at open,
// instantiate one decompressor per essence track, then serve
// GetFrame/ReadAudio by walking the index table the muxer wrote.
package demuxer

import (
	"fmt"
	"sort"

	"mox/pkg/mox/audiobuffer"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/container"
	"mox/pkg/mox/diag"
	"mox/pkg/mox/framebuffer"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
)

type videoTrack struct {
	number uint32
	track  container.Track
	codec  codec.VideoCodec
}

type audioTrack struct {
	number uint32
	track  container.Track
	codec  codec.AudioCodec
	names  []string

	// sampleIndex holds len(table)+1 cumulative sample counts:
	// sampleIndex[i] is the total number of samples in packets
	// [0,i), so packet i covers [sampleIndex[i], sampleIndex[i+1]).
	sampleIndex  []int64
	totalSamples int64

	position int64 // next unread global sample, advanced by ReadAudio
}

func (at *audioTrack) locate(position int64) (int, int64, error) {
	n := len(at.sampleIndex) - 1
	idx := sort.Search(n, func(i int) bool { return at.sampleIndex[i+1] > position })
	if idx >= n {
		return 0, 0, fmt.Errorf("demuxer: sample position %d is at or past the end of the audio track: %w", position, moxerr.ErrInput)
	}
	return idx, position - at.sampleIndex[idx], nil
}

// Reader is the input side of a MOX file: parsed metadata, index, and one
// decompressor per essence track the file carries.
type Reader struct {
	stream       container.ByteStream
	streamHandle uint64
	header       *header.Header
	tracks       []container.Track
	index        *container.IndexSet

	video *videoTrack
	audio *audioTrack

	logger *diag.Logger
	closed bool
}

// SetLogger attaches a diagnostics logger; nil (the default) drops every
// event at no cost.
func (r *Reader) SetLogger(l *diag.Logger) {
	r.logger = l
}

// Open parses the footer partition's metadata and index table, builds a
// decompressor for every essence track via the codec registry (which
// populates the shared Header with window, rate and channel metadata),
// and pre-scans audio packet sizes into a cumulative-
// samples index so ReadAudio can seek by sample count.
//
// cache may be nil, in which case every open re-reads each audio packet's
// KLV header to learn its size; passing a *PacketLengthCache keyed by
// cacheKey (typically the file path) persists those sizes across opens
// of the same file, so the pre-scan doesn't serialize every open.
func Open(stream container.ByteStream, cache *PacketLengthCache, cacheKey string) (*Reader, error) {
	handle := container.RegisterHandle(stream)
	ok := false
	defer func() {
		if !ok {
			container.ReleaseHandle(handle)
		}
	}()

	footerOffset, err := container.FindFooterOffset(stream)
	if err != nil {
		return nil, err
	}
	_, meta, index, _, err := container.ReadPartition(stream, footerOffset)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("demuxer: footer partition carries no metadata: %w", moxerr.ErrInput)
	}
	if index == nil {
		index = container.NewIndexSet()
	}

	r := &Reader{stream: stream, streamHandle: handle, header: meta.Header, tracks: meta.Tracks, index: index}

	// Every essence track carries one index entry per edit unit, so each
	// table's size is the header's duration (a sound track's own Duration
	// counts samples, not edit units).
	editUnits, err := meta.Header.Duration()
	if err != nil {
		return nil, err
	}

	for _, t := range meta.Tracks {
		if t.Kind == container.KindTimecode {
			continue
		}

		table, ok := index.ByTrack[t.Number]
		if !ok {
			return nil, fmt.Errorf("demuxer: track %d has no index table: %w", t.Number, moxerr.ErrInput)
		}
		if table.Size() != editUnits {
			return nil, fmt.Errorf("demuxer: header duration is %d edit units but track %d's index table has %d entries: %w",
				editUnits, t.Number, table.Size(), moxerr.ErrInput)
		}
		if t.Descriptor == nil {
			return nil, fmt.Errorf("demuxer: essence track %d has no descriptor: %w", t.Number, moxerr.ErrInput)
		}

		switch t.Kind {
		case container.KindPicture:
			if err := r.openVideoTrack(t); err != nil {
				return nil, err
			}
		case container.KindSound:
			if err := r.openAudioTrack(t, table, cache, cacheKey); err != nil {
				return nil, err
			}
		}
	}

	if r.video == nil && r.audio == nil {
		return nil, fmt.Errorf("demuxer: file carries no picture or sound track: %w", moxerr.ErrInput)
	}
	r.logger.Info().Src("demuxer").Msgf("opened: video=%t audio=%t tracks=%d", r.video != nil, r.audio != nil, len(meta.Tracks))
	ok = true
	return r, nil
}

// Close releases the reader's opaque stream handle. It does
// not close the underlying ByteStream, which the caller that opened it
// still owns; Close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	container.ReleaseHandle(r.streamHandle)
	return nil
}

func (r *Reader) openVideoTrack(t container.Track) error {
	if r.video != nil {
		return fmt.Errorf("demuxer: more than one picture track is not supported: %w", moxerr.ErrNoImpl)
	}

	frameRate, err := r.header.FrameRate()
	if err != nil {
		return err
	}
	if t.EditRate != frameRate {
		return fmt.Errorf("demuxer: picture track edit rate %v does not match header frame rate %v: %w", t.EditRate, frameRate, moxerr.ErrInput)
	}
	duration, err := r.header.Duration()
	if err != nil {
		return err
	}
	if int64(duration) != t.Duration {
		return fmt.Errorf("demuxer: picture track duration %d does not match header duration %d: %w", t.Duration, duration, moxerr.ErrInput)
	}

	vc, err := r.header.VideoCompression()
	if err != nil {
		return err
	}
	info, err := codec.LookupVideo(vc)
	if err != nil {
		return err
	}
	channels, err := r.header.Channels()
	if err != nil {
		return err
	}
	dc, err := info.NewDecompressor(t.Descriptor, r.header, channels)
	if err != nil {
		return err
	}
	r.video = &videoTrack{number: t.Number, track: t, codec: dc}
	return nil
}

func (r *Reader) openAudioTrack(t container.Track, table *container.IndexTable, cache *PacketLengthCache, cacheKey string) error {
	if r.audio != nil {
		return fmt.Errorf("demuxer: more than one sound track is not supported: %w", moxerr.ErrNoImpl)
	}

	sampleRate, err := r.header.SampleRate()
	if err != nil {
		return err
	}
	if t.EditRate != sampleRate {
		return fmt.Errorf("demuxer: sound track edit rate %v does not match header sample rate %v: %w", t.EditRate, sampleRate, moxerr.ErrInput)
	}
	audioDuration, err := r.header.AudioDuration()
	if err != nil {
		return err
	}
	if audioDuration != t.Duration {
		return fmt.Errorf("demuxer: sound track duration %d does not match header audio duration %d: %w", t.Duration, audioDuration, moxerr.ErrInput)
	}

	ac, err := r.header.AudioCompression()
	if err != nil {
		return err
	}
	info, err := codec.LookupAudio(ac)
	if err != nil {
		return err
	}
	audioChannels, err := r.header.AudioChannels()
	if err != nil {
		return err
	}
	dc, err := info.NewDecompressor(t.Descriptor, r.header, audioChannels)
	if err != nil {
		return err
	}

	sampleIndex, total, err := buildAudioSampleIndex(r.stream, cache, cacheKey, t.Number, table, dc)
	if err != nil {
		return err
	}

	r.audio = &audioTrack{
		number:       t.Number,
		track:        t,
		codec:        dc,
		names:        audioChannels.Names(),
		sampleIndex:  sampleIndex,
		totalSamples: total,
	}
	return nil
}

func buildAudioSampleIndex(stream container.ByteStream, cache *PacketLengthCache, cacheKey string, trackNumber uint32, table *container.IndexTable, dc codec.AudioCodec) ([]int64, int64, error) {
	n := table.Size()
	prefix := make([]int64, n+1)
	var total int64
	for i := 0; i < n; i++ {
		entry, err := table.Get(i)
		if err != nil {
			return nil, 0, err
		}
		size, err := packetValueSize(stream, cache, cacheKey, trackNumber, i, entry.StreamOffset)
		if err != nil {
			return nil, 0, err
		}
		samples, err := dc.SamplesInFrame(size)
		if err != nil {
			return nil, 0, err
		}
		total += samples
		prefix[i+1] = total
	}
	return prefix, total, nil
}

func packetValueSize(stream container.ByteStream, cache *PacketLengthCache, cacheKey string, trackNumber uint32, editUnit int, offset uint64) (int, error) {
	if cache != nil {
		size, ok, err := cache.Get(cacheKey, trackNumber, editUnit)
		if err != nil {
			return 0, err
		}
		if ok {
			return size, nil
		}
	}
	packet, _, err := container.ReadKLVAt(stream, offset)
	if err != nil {
		return 0, err
	}
	size := len(packet.Value)
	if cache != nil {
		if err := cache.Put(cacheKey, trackNumber, editUnit, size); err != nil {
			return 0, err
		}
	}
	return size, nil
}

// Header returns the stream's metadata header, as reconstructed at Open.
func (r *Reader) Header() *header.Header { return r.header }

// Tracks returns the track list parsed from the footer partition.
func (r *Reader) Tracks() []container.Track {
	out := make([]container.Track, len(r.tracks))
	copy(out, r.tracks)
	return out
}

// HasVideo reports whether the file carries a picture track.
func (r *Reader) HasVideo() bool { return r.video != nil }

// HasAudio reports whether the file carries a sound track.
func (r *Reader) HasAudio() bool { return r.audio != nil }

func readEssencePacket(stream container.ByteStream, offset uint64, wantTrack uint32) (*moxtypes.DataChunk, error) {
	packet, _, err := container.ReadKLVAt(stream, offset)
	if err != nil {
		return nil, err
	}
	n, ok := container.TrackNumberFromKey(packet.Key)
	if !ok || n != wantTrack {
		return nil, fmt.Errorf("demuxer: packet at offset %d does not carry track %d's essence key: %w", offset, wantTrack, moxerr.ErrInput)
	}
	return moxtypes.WrapDataChunk(packet.Value), nil
}

// GetFrame decodes the frame at editUnit and copies it into dst: it
// looks up the packet at editUnit in the index (an exact miss is
// an input error), feeds it to the video codec's Decompress, then
// CopyFromFrame's the decoded buffer into the caller's frameBuffer,
// performing whatever type and color-space conversion dst's channels
// require.
func (r *Reader) GetFrame(editUnit int, dst *framebuffer.FrameBuffer) error {
	if r.video == nil {
		return fmt.Errorf("demuxer: file has no picture track: %w", moxerr.ErrLogic)
	}
	table := r.index.ByTrack[r.video.number]
	entry, err := table.Get(editUnit)
	if err != nil {
		return err
	}
	chunk, err := readEssencePacket(r.stream, entry.StreamOffset, r.video.number)
	if err != nil {
		return err
	}
	if err := r.video.codec.Decompress(chunk); err != nil {
		return err
	}
	decoded, ok := r.video.codec.GetNextFrame()
	if !ok {
		return fmt.Errorf("demuxer: codec produced no frame for edit unit %d: %w", editUnit, moxerr.ErrInput)
	}
	defer decoded.Release()
	return dst.CopyFromFrame(decoded, true)
}

func (r *Reader) decodeAudioPacket(packetIndex int) (*audiobuffer.AudioBuffer, error) {
	at := r.audio
	table := r.index.ByTrack[at.number]
	entry, err := table.Get(packetIndex)
	if err != nil {
		return nil, err
	}
	chunk, err := readEssencePacket(r.stream, entry.StreamOffset, at.number)
	if err != nil {
		return nil, err
	}
	if err := at.codec.Decompress(chunk); err != nil {
		return nil, err
	}
	decoded, ok := at.codec.GetNextBuffer()
	if !ok {
		return nil, fmt.Errorf("demuxer: codec produced no audio for packet %d: %w", packetIndex, moxerr.ErrInput)
	}
	return decoded, nil
}

// ReadAudio produces the next samples samples of audio starting at the
// track's current read position and copies them into dst: it locates
// the codec frame covering the current global sample position,
// decodes it, advances past the leading skip already consumed from that
// frame, copies into the caller's buffer, and moves on to successive
// codec frames until samples have been produced. Channels dst declares
// that the track doesn't carry are zero-filled.
func (r *Reader) ReadAudio(samples int64, dst *audiobuffer.AudioBuffer) error {
	if r.audio == nil {
		return fmt.Errorf("demuxer: file has no sound track: %w", moxerr.ErrLogic)
	}
	if samples <= 0 {
		return fmt.Errorf("demuxer: samples must be positive, got %d: %w", samples, moxerr.ErrArgument)
	}
	at := r.audio
	if at.position+samples > at.totalSamples {
		return fmt.Errorf("demuxer: reading %d samples at position %d exceeds stream length %d: %w",
			samples, at.position, at.totalSamples, moxerr.ErrInput)
	}

	var produced int64
	for produced < samples {
		packetIndex, leadingSkip, err := at.locate(at.position)
		if err != nil {
			return err
		}
		decoded, err := r.decodeAudioPacket(packetIndex)
		if err != nil {
			return err
		}
		if leadingSkip > 0 {
			if err := decoded.FastForward(leadingSkip); err != nil {
				return err
			}
		}
		avail, err := decoded.RemainingAll()
		if err != nil {
			return err
		}
		take := samples - produced
		if take > avail {
			take = avail
		}
		if take <= 0 {
			return fmt.Errorf("demuxer: audio frame at packet %d produced no samples past the leading skip: %w", packetIndex, moxerr.ErrLogic)
		}
		if err := dst.ReadFromBuffer(decoded, take, true); err != nil {
			return err
		}
		produced += take
		at.position += take
	}
	return nil
}

// Rewind resets the audio track's read position to the start of the
// stream, so ReadAudio can be replayed from the beginning.
func (r *Reader) Rewind() {
	if r.audio != nil {
		r.audio.position = 0
	}
}

// AudioPosition returns the audio track's current global sample read
// position.
func (r *Reader) AudioPosition() int64 {
	if r.audio == nil {
		return 0
	}
	return r.audio.position
}

// AudioLength returns the total number of samples the sound track
// carries, as derived from its packet-size pre-scan at Open.
func (r *Reader) AudioLength() int64 {
	if r.audio == nil {
		return 0
	}
	return r.audio.totalSamples
}

// VideoFrameCount returns the number of edit units the picture track
// carries, per its index table's size.
func (r *Reader) VideoFrameCount() int64 {
	if r.video == nil {
		return 0
	}
	return r.video.track.Duration
}
