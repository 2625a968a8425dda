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
	"fmt"

	"github.com/icza/bitio"

	"mox/pkg/mox/moxerr"
)

// UL is a 16-byte key, used both for the fixed partition/fill keys this
// package defines and for essence element keys (which embed a track
// number in their last four bytes, see track.go).
type UL [16]byte

// Fixed partition and fill keys. These are this package's own
// placeholders, not SMPTE 377M byte-exact values -- this package only
// needs a key that round-trips and is distinguishable from an essence
// element key (whose first twelve bytes are essenceElementPrefix).
var (
	keyOpenHeaderPartition = UL{0x06, 0x0e, 0x2b, 0x34, 0x02, 0x05, 0x01, 0x01, 0x0d, 0x01, 0x02, 0x01, 0x01, 0x02, 0x01, 0x00}
	keyBodyPartition       = UL{0x06, 0x0e, 0x2b, 0x34, 0x02, 0x05, 0x01, 0x01, 0x0d, 0x01, 0x02, 0x01, 0x01, 0x03, 0x01, 0x00}
	keyFooterPartition     = UL{0x06, 0x0e, 0x2b, 0x34, 0x02, 0x05, 0x01, 0x01, 0x0d, 0x01, 0x02, 0x01, 0x01, 0x04, 0x01, 0x00}
	keyFill                = UL{0x06, 0x0e, 0x2b, 0x34, 0x01, 0x01, 0x01, 0x01, 0x03, 0x01, 0x02, 0x10, 0x01, 0x00, 0x00, 0x00}
)

// berLen is the wire width of a BER-style length field, a 4-byte
// long-form encoding: one length-of-length byte (0x83, "3 following
// length bytes") plus a 3-byte big-endian value.
const berLen = 4

func encodeBER4(length uint32) ([berLen]byte, error) {
	if length > 0xFFFFFF {
		return [berLen]byte{}, fmt.Errorf("container: length %d exceeds 4-byte BER capacity: %w", length, moxerr.ErrLogic)
	}
	var out [berLen]byte
	out[0] = 0x83
	out[1] = byte(length >> 16)
	out[2] = byte(length >> 8)
	out[3] = byte(length)
	return out, nil
}

func decodeBER4(b []byte) (uint32, error) {
	if len(b) != berLen {
		return 0, fmt.Errorf("container: BER length field must be %d bytes: %w", berLen, moxerr.ErrInput)
	}
	if b[0] != 0x83 {
		return 0, fmt.Errorf("container: unsupported BER length-of-length byte %#x: %w", b[0], moxerr.ErrInput)
	}
	return uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// WriteKLV appends one KLV packet (key, BER4 length, value) to buf. It
// is exported for the muxer package, which writes essence element
// packets directly against a track's essence key.
func WriteKLV(buf *bytes.Buffer, key UL, value []byte) error {
	lenBytes, err := encodeBER4(uint32(len(value)))
	if err != nil {
		return err
	}
	buf.Write(key[:])
	buf.Write(lenBytes[:])
	buf.Write(value)
	return nil
}

// KLVPacket is one decoded KLV packet plus the stream offset it started
// at (used to build the index table's stream offsets and to locate a
// packet again on read).
type KLVPacket struct {
	Offset uint64
	Key    UL
	Value  []byte
}

// ReadKLVAt reads one KLV packet from stream at off, using
// github.com/icza/bitio for the read-side bit/BER decode per DESIGN.md.
// It is exported for the demuxer package, which reads essence element
// packets directly.
func ReadKLVAt(stream ByteStream, off uint64) (KLVPacket, uint64, error) {
	header := make([]byte, 16+berLen)
	n, err := stream.ReadAt(header, off)
	if err != nil {
		return KLVPacket{}, 0, err
	}
	if n < len(header) {
		return KLVPacket{}, 0, fmt.Errorf("container: short KLV header at offset %d: %w", off, moxerr.ErrInput)
	}

	r := bitio.NewReader(bytes.NewReader(header))
	var key UL
	if _, err := r.Read(key[:]); err != nil {
		return KLVPacket{}, 0, fmt.Errorf("container: read KLV key: %w: %v", moxerr.ErrInput, err)
	}
	lenBytes := make([]byte, berLen)
	if _, err := r.Read(lenBytes); err != nil {
		return KLVPacket{}, 0, fmt.Errorf("container: read KLV length: %w: %v", moxerr.ErrInput, err)
	}
	length, err := decodeBER4(lenBytes)
	if err != nil {
		return KLVPacket{}, 0, err
	}

	value := make([]byte, length)
	valueOff := off + uint64(len(header))
	if length > 0 {
		n, err = stream.ReadAt(value, valueOff)
		if err != nil {
			return KLVPacket{}, 0, err
		}
		if n < int(length) {
			return KLVPacket{}, 0, fmt.Errorf("container: short KLV value at offset %d: %w", valueOff, moxerr.ErrInput)
		}
	}

	next := valueOff + uint64(length)
	return KLVPacket{Offset: off, Key: key, Value: value}, next, nil
}

// KLVSize returns the total wire size (header + value) a KLV packet
// carrying value would occupy.
func KLVSize(value []byte) uint64 {
	return uint64(16 + berLen + len(value))
}

// PadToKAG returns the fill bytes needed to bring pos to the next
// multiple of kag (0 if already aligned), wrapped as a fill KLV packet
// so the padding itself is a well-formed KLV item.
func PadToKAG(pos uint64, kag uint32) []byte {
	if kag == 0 {
		return nil
	}
	rem := pos % uint64(kag)
	if rem == 0 {
		return nil
	}
	need := uint64(kag) - rem
	// A fill KLV packet costs 16+4 bytes of header; if the gap is
	// smaller than that it still has to carry a (possibly oversized)
	// fill packet, so round up to the next KAG multiple instead of
	// trying to hit an impossible exact byte count.
	for need < 16+berLen {
		need += uint64(kag)
	}
	fillValueLen := need - (16 + berLen)
	var buf bytes.Buffer
	_ = WriteKLV(&buf, keyFill, make([]byte, fillValueLen))
	return buf.Bytes()
}
