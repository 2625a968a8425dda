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
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/sample"
)

func u8Mono(t *testing.T, length int64) (*AudioBuffer, []byte) {
	b, err := New(length)
	require.NoError(t, err)
	buf := make([]byte, length)
	require.NoError(t, b.Insert("Mono", NewAudioSlice(sample.U8, buf, 1)))
	return b, buf
}

func TestNewRejectsNonPositiveLength(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, moxerr.ErrArgument)
}

func TestInsertResetsReadHead(t *testing.T) {
	b, _ := u8Mono(t, 4)
	require.NoError(t, b.FastForwardChannel("Mono", 2))
	require.NoError(t, b.Insert("Mono", NewAudioSlice(sample.U8, make([]byte, 4), 1)))
	remaining, err := b.Remaining("Mono")
	require.NoError(t, err)
	require.Equal(t, int64(4), remaining)
}

func TestFastForwardRejectsOutOfRange(t *testing.T) {
	b, _ := u8Mono(t, 4)
	require.Error(t, b.FastForwardChannel("Mono", 5))
	require.Error(t, b.FastForwardChannel("Mono", -1))
}

func TestReadFromBufferCopiesAndAdvancesBoth(t *testing.T) {
	src, srcBuf := u8Mono(t, 4)
	for i := range srcBuf {
		srcBuf[i] = byte(10 + i)
	}
	dst, dstBuf := u8Mono(t, 4)

	require.NoError(t, dst.ReadFromBuffer(src, 0, true))
	require.Equal(t, srcBuf, dstBuf)

	srcRemaining, err := src.Remaining("Mono")
	require.NoError(t, err)
	require.Equal(t, int64(0), srcRemaining)
}

func TestCopyFromConstBufferLeavesOtherPlayheadUnmoved(t *testing.T) {
	src, srcBuf := u8Mono(t, 4)
	for i := range srcBuf {
		srcBuf[i] = byte(200)
	}
	dst, dstBuf := u8Mono(t, 4)

	require.NoError(t, dst.CopyFromConstBuffer(src, 0, true))
	require.Equal(t, srcBuf, dstBuf)

	srcRemaining, err := src.Remaining("Mono")
	require.NoError(t, err)
	require.Equal(t, int64(4), srcRemaining)
}

func TestReadFromBufferFillsMissingChannel(t *testing.T) {
	src, err := New(4)
	require.NoError(t, err)
	dst, dstBuf := u8Mono(t, 4)

	require.NoError(t, dst.ReadFromBuffer(src, 0, true))
	for _, v := range dstBuf {
		require.Equal(t, byte(128), v) // U8's zero value
	}
}

func TestFillRemainingFillsFromPlayhead(t *testing.T) {
	b, buf := u8Mono(t, 4)
	for i := range buf {
		buf[i] = 1
	}
	require.NoError(t, b.FastForwardChannel("Mono", 2))
	require.NoError(t, b.FillRemaining())
	require.Equal(t, []byte{1, 1, 128, 128}, buf)
}

func TestS16ToFloatConversion(t *testing.T) {
	b, err := New(2)
	require.NoError(t, err)
	s16 := make([]byte, 4)
	require.NoError(t, b.Insert("Mono", NewAudioSlice(sample.S16, s16, 2)))
	require.NoError(t, writeSample(sample.S16, s16, 0, 16000))

	floatBuf, err := New(2)
	require.NoError(t, err)
	fbuf := make([]byte, 8)
	require.NoError(t, floatBuf.Insert("Mono", NewAudioSlice(sample.Float, fbuf, 4)))

	require.NoError(t, floatBuf.ReadFromBuffer(b, 0, true))
	v, err := readSample(sample.Float, fbuf, 0)
	require.NoError(t, err)
	require.InDelta(t, 16000.0/32767.0, v, 1e-6)
}

func TestConvertSampleU8ZeroValueIs128(t *testing.T) {
	v, err := convertSample(sample.Float, sample.U8, 0)
	require.NoError(t, err)
	require.Equal(t, 128.0, v)
}

func TestRemainingAllDetectsMismatch(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	require.NoError(t, b.Insert("A", NewAudioSlice(sample.U8, make([]byte, 4), 1)))
	require.NoError(t, b.Insert("B", NewAudioSlice(sample.U8, make([]byte, 4), 1)))
	require.NoError(t, b.FastForwardChannel("A", 1))

	_, err = b.RemainingAll()
	require.ErrorIs(t, err, moxerr.ErrLogic)
}
