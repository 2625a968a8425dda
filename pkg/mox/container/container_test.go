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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxtypes"
	"mox/pkg/mox/pixel"
)

func TestKLVRoundTrip(t *testing.T) {
	stream := NewMemoryStream()
	var out bytes.Buffer
	require.NoError(t, WriteKLV(&out, EssenceKey(TrackNumber(KindPicture, 1, 1, 1)), []byte("hello essence")))
	_, err := stream.WriteAt(out.Bytes(), 100)
	require.NoError(t, err)

	packet, next, err := ReadKLVAt(stream, 100)
	require.NoError(t, err)
	require.Equal(t, EssenceKey(TrackNumber(KindPicture, 1, 1, 1)), packet.Key)
	require.Equal(t, []byte("hello essence"), packet.Value)
	require.EqualValues(t, 100+out.Len(), next)
}

func TestReadKLVAtShortStreamIsInputError(t *testing.T) {
	stream := NewMemoryStream()
	_, err := stream.WriteAt([]byte{1, 2, 3}, 0)
	require.NoError(t, err)
	_, _, err = ReadKLVAt(stream, 0)
	require.Error(t, err)
}

func TestPadToKAGAlignsToKAGMultiple(t *testing.T) {
	require.Nil(t, PadToKAG(1024, 512))

	pad := PadToKAG(500, 512)
	require.NotEmpty(t, pad)
	require.Zero(t, (500+uint64(len(pad)))%512)
}

func TestTrackNumberRoundTripsThroughEssenceKey(t *testing.T) {
	n := TrackNumber(KindSound, 1, 2, 3)
	got, ok := TrackNumberFromKey(EssenceKey(n))
	require.True(t, ok)
	require.Equal(t, n, got)

	itemType, total, elem, ordinal := SplitTrackNumber(n)
	require.Equal(t, byte(ItemTypeSound), itemType)
	require.Equal(t, byte(1), total)
	require.Equal(t, byte(2), elem)
	require.Equal(t, byte(3), ordinal)
}

func TestTrackNumberFromKeyRejectsNonEssenceKey(t *testing.T) {
	_, ok := TrackNumberFromKey(keyFill)
	require.False(t, ok)
}

func TestIndexTableGetOutOfRangeIsInputError(t *testing.T) {
	table := NewIndexTable()
	table.Append(IndexEntry{StreamOffset: 10})
	_, err := table.Get(1)
	require.Error(t, err)

	e, err := table.Get(0)
	require.NoError(t, err)
	require.EqualValues(t, 10, e.StreamOffset)
}

func TestIndexSetMarshalRoundTrip(t *testing.T) {
	s := NewIndexSet()
	s.Table(7).Append(IndexEntry{StreamOffset: 111, Flags: 1})
	s.Table(7).Append(IndexEntry{StreamOffset: 222, KeyFrameOffset: -3})
	s.Table(9).Append(IndexEntry{StreamOffset: 333, TemporalOffset: 2})

	parsed, err := UnmarshalIndexSet(s.Marshal())
	require.NoError(t, err)
	require.Len(t, parsed.ByTrack, 2)
	require.Equal(t, 2, parsed.ByTrack[7].Size())
	e0, err := parsed.ByTrack[7].Get(0)
	require.NoError(t, err)
	require.EqualValues(t, 111, e0.StreamOffset)
	require.EqualValues(t, 1, e0.Flags)
	e1, err := parsed.ByTrack[7].Get(1)
	require.NoError(t, err)
	require.EqualValues(t, -3, e1.KeyFrameOffset)
	e2, err := parsed.ByTrack[9].Get(0)
	require.NoError(t, err)
	require.EqualValues(t, 2, e2.TemporalOffset)
}

func sampleRGBATrack(number uint32, duration int64) Track {
	desc := descriptor.RGBA{
		VideoGeneric: descriptor.VideoGeneric{
			Generic: descriptor.Generic{
				EditRate:         moxtypes.Rational{Numerator: 24, Denominator: 1},
				EssenceContainer: descriptor.ContainerUncompressedPicture,
			},
			StoredWindow:     moxtypes.NewBox2i(4, 4),
			SampledWindow:    moxtypes.NewBox2i(4, 4),
			DisplayWindow:    moxtypes.NewBox2i(4, 4),
			PixelAspectRatio: moxtypes.Rational{Numerator: 1, Denominator: 1},
		},
		ComponentMaxRef:     255,
		AlphaMaxRef:         255,
		ScanningLeftToRight: true,
		ScanningTopToBottom: true,
		PixelLayout: []descriptor.PixelLayoutEntry{
			{Code: 'R', Depth: 8}, {Code: 'G', Depth: 8}, {Code: 'B', Depth: 8},
		},
	}
	return Track{Number: number, Kind: KindPicture, EditRate: desc.EditRate, Duration: duration, Descriptor: desc}
}

func sampleMetadata() *Metadata {
	h := header.New()
	h.SetDisplayWindow(moxtypes.NewBox2i(4, 4))
	h.SetDuration(5)
	h.SetAudioDuration(10000)
	channels, _ := h.Channels()
	channels.Insert("R", channel.Channel{Type: pixel.U8, XSampling: 1, YSampling: 1})

	number := TrackNumber(KindPicture, 1, 1, 1)
	return &Metadata{Header: h, Tracks: []Track{sampleRGBATrack(number, 5)}}
}

func TestMetadataMarshalRoundTrip(t *testing.T) {
	meta := sampleMetadata()
	raw, err := meta.Marshal()
	require.NoError(t, err)

	parsed, err := UnmarshalMetadata(raw)
	require.NoError(t, err)

	duration, err := parsed.Header.Duration()
	require.NoError(t, err)
	require.Equal(t, 5, duration)

	audioDuration, err := parsed.Header.AudioDuration()
	require.NoError(t, err)
	require.EqualValues(t, 10000, audioDuration)

	displayWindow, err := parsed.Header.DisplayWindow()
	require.NoError(t, err)
	require.Equal(t, moxtypes.NewBox2i(4, 4), displayWindow)

	channels, err := parsed.Header.Channels()
	require.NoError(t, err)
	r, ok := channels.Find("R")
	require.True(t, ok)
	require.Equal(t, pixel.U8, r.Type)

	require.Len(t, parsed.Tracks, 1)
	require.Equal(t, KindPicture, parsed.Tracks[0].Kind)
	require.EqualValues(t, 5, parsed.Tracks[0].Duration)
	rgba, ok := parsed.Tracks[0].Descriptor.(descriptor.RGBA)
	require.True(t, ok)
	require.Equal(t, moxtypes.NewBox2i(4, 4), rgba.DisplayWindow)
	require.Len(t, rgba.PixelLayout, 3)
}

func TestWritePartitionAndReadPartitionRoundTrip(t *testing.T) {
	stream := NewMemoryStream()
	meta := sampleMetadata()
	index := NewIndexSet()
	number := TrackNumber(KindPicture, 1, 1, 1)
	index.Table(number).Append(IndexEntry{StreamOffset: 1000})

	headerOff, next, err := WritePartition(stream, 0, 512, PartitionHeader, 0, meta, nil)
	require.NoError(t, err)
	require.Zero(t, headerOff)

	footerOff, _, err := WritePartition(stream, next, 512, PartitionFooter, headerOff, meta, index)
	require.NoError(t, err)
	require.Zero(t, footerOff % 512)

	pack, parsedMeta, parsedIndex, _, err := ReadPartition(stream, footerOff)
	require.NoError(t, err)
	require.Equal(t, PartitionFooter, pack.Kind)
	require.Equal(t, headerOff, pack.PreviousPartition)
	require.NotNil(t, parsedMeta)
	require.NotNil(t, parsedIndex)
	require.Equal(t, 1, parsedIndex.ByTrack[number].Size())
}

func TestPatchPartitionPointersAndFindFooterOffset(t *testing.T) {
	stream := NewMemoryStream()
	meta := sampleMetadata()

	headerOff, next, err := WritePartition(stream, 0, 512, PartitionHeader, 0, meta, nil)
	require.NoError(t, err)

	bodyOff, next, err := WritePartition(stream, next, 512, PartitionBody, headerOff, nil, nil)
	require.NoError(t, err)

	footerOff, _, err := WritePartition(stream, next, 512, PartitionFooter, bodyOff, meta, NewIndexSet())
	require.NoError(t, err)

	require.NoError(t, PatchPartitionPointers(stream, headerOff, bodyOff, footerOff))

	got, err := FindFooterOffset(stream)
	require.NoError(t, err)
	require.Equal(t, footerOff, got)

	pack, _, _, _, err := ReadPartition(stream, headerOff)
	require.NoError(t, err)
	require.Equal(t, bodyOff, pack.BodyOffset)
	require.Equal(t, footerOff, pack.FooterPartition)
}
