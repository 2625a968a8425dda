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

	"mox/pkg/mox/moxerr"
)

// PartitionKind distinguishes the three partition roles: an open
// header partition at offset 0, zero or more body partitions carrying
// essence, and a closing footer partition carrying the final metadata
// and index table.
type PartitionKind uint8

// Partition kinds.
const (
	PartitionHeader PartitionKind = iota
	PartitionBody
	PartitionFooter
)

// Body and index stream IDs. MOX never splits essence or the index
// table across more than one SID each, so these are fixed rather than
// assigned.
const (
	BodySID  = 1
	IndexSID = 2
)

// PartitionPack is the fixed-size pack every partition opens with:
// one KLV value holding offsets to the neighboring partitions so a
// reader can walk the file from either end.
type PartitionPack struct {
	Kind              PartitionKind
	KAGSize           uint32
	ThisPartition     uint64
	PreviousPartition uint64
	FooterPartition   uint64
	BodyOffset        uint64
	IndexByteCount    uint64
	HeaderByteCount   uint64
}

func (p PartitionPack) marshal() []byte {
	var b buf
	b.u8(uint8(p.Kind))
	b.u32(p.KAGSize)
	b.u64(p.ThisPartition)
	b.u64(p.PreviousPartition)
	b.u64(p.FooterPartition)
	b.u64(p.BodyOffset)
	b.u64(p.IndexByteCount)
	b.u64(p.HeaderByteCount)
	return b.out
}

func unmarshalPartitionPack(raw []byte) (PartitionPack, error) {
	c := newCursor(raw)
	var p PartitionPack
	kind, err := c.u8()
	if err != nil {
		return p, err
	}
	p.Kind = PartitionKind(kind)
	if p.KAGSize, err = c.u32(); err != nil {
		return p, err
	}
	if p.ThisPartition, err = c.u64(); err != nil {
		return p, err
	}
	if p.PreviousPartition, err = c.u64(); err != nil {
		return p, err
	}
	if p.FooterPartition, err = c.u64(); err != nil {
		return p, err
	}
	if p.BodyOffset, err = c.u64(); err != nil {
		return p, err
	}
	if p.IndexByteCount, err = c.u64(); err != nil {
		return p, err
	}
	if p.HeaderByteCount, err = c.u64(); err != nil {
		return p, err
	}
	return p, nil
}

func keyForPartitionKind(kind PartitionKind) UL {
	switch kind {
	case PartitionHeader:
		return keyOpenHeaderPartition
	case PartitionBody:
		return keyBodyPartition
	default:
		return keyFooterPartition
	}
}

// WritePartition writes one partition pack (metadata, then index set if
// non-empty) at the stream's current write offset, KAG-padding the gap
// in front of it, and returns the offset the partition pack's key
// landed at, plus the stream offset immediately following everything
// just written (where the caller's next write should begin).
func WritePartition(stream ByteStream, writeOffset uint64, kagSize uint32, kind PartitionKind, previousPartition uint64, meta *Metadata, index *IndexSet) (uint64, uint64, error) {
	pad := PadToKAG(writeOffset, kagSize)
	if len(pad) > 0 {
		if _, err := stream.WriteAt(pad, writeOffset); err != nil {
			return 0, 0, err
		}
		writeOffset += uint64(len(pad))
	}

	thisPartition := writeOffset

	var metaBytes []byte
	var err error
	if meta != nil {
		metaBytes, err = meta.Marshal()
		if err != nil {
			return 0, 0, err
		}
	}
	var indexBytes []byte
	if index != nil {
		indexBytes = index.Marshal()
	}

	pack := PartitionPack{
		Kind:              kind,
		KAGSize:           kagSize,
		ThisPartition:     thisPartition,
		PreviousPartition: previousPartition,
		HeaderByteCount:   uint64(len(metaBytes)),
		IndexByteCount:    uint64(len(indexBytes)),
	}

	var out bytes.Buffer
	if err := WriteKLV(&out, keyForPartitionKind(kind), pack.marshal()); err != nil {
		return 0, 0, err
	}
	if len(metaBytes) > 0 {
		if err := WriteKLV(&out, keyFill, metaBytes); err != nil {
			return 0, 0, err
		}
	}
	if len(indexBytes) > 0 {
		if err := WriteKLV(&out, keyFill, indexBytes); err != nil {
			return 0, 0, err
		}
	}

	if _, err := stream.WriteAt(out.Bytes(), thisPartition); err != nil {
		return 0, 0, err
	}
	return thisPartition, thisPartition + uint64(out.Len()), nil
}

// ReadPartition reads the partition pack at off along with its trailing
// metadata and index payloads (if any), returning the pack, the parsed
// metadata (nil if the partition carries none), the parsed index set
// (nil if none), and the stream offset immediately following whatever
// was read.
func ReadPartition(stream ByteStream, off uint64) (PartitionPack, *Metadata, *IndexSet, uint64, error) {
	packPacket, next, err := ReadKLVAt(stream, off)
	if err != nil {
		return PartitionPack{}, nil, nil, 0, err
	}
	pack, err := unmarshalPartitionPack(packPacket.Value)
	if err != nil {
		return PartitionPack{}, nil, nil, 0, err
	}

	var meta *Metadata
	var index *IndexSet

	if pack.HeaderByteCount > 0 {
		metaPacket, nextAfterMeta, err := ReadKLVAt(stream, next)
		if err != nil {
			return pack, nil, nil, 0, err
		}
		if uint64(len(metaPacket.Value)) != pack.HeaderByteCount {
			return pack, nil, nil, 0, fmt.Errorf("container: partition at %d: metadata length mismatch (pack says %d, got %d): %w",
				off, pack.HeaderByteCount, len(metaPacket.Value), moxerr.ErrInput)
		}
		m, err := UnmarshalMetadata(metaPacket.Value)
		if err != nil {
			return pack, nil, nil, 0, err
		}
		meta = &m
		next = nextAfterMeta
	}

	if pack.IndexByteCount > 0 {
		idxPacket, nextAfterIndex, err := ReadKLVAt(stream, next)
		if err != nil {
			return pack, meta, nil, 0, err
		}
		if uint64(len(idxPacket.Value)) != pack.IndexByteCount {
			return pack, meta, nil, 0, fmt.Errorf("container: partition at %d: index length mismatch (pack says %d, got %d): %w",
				off, pack.IndexByteCount, len(idxPacket.Value), moxerr.ErrInput)
		}
		s, err := UnmarshalIndexSet(idxPacket.Value)
		if err != nil {
			return pack, meta, nil, 0, err
		}
		index = s
		next = nextAfterIndex
	}

	return pack, meta, index, next, nil
}

// PatchPartitionPointers rewrites the BodyOffset and FooterPartition
// fields of the partition pack at packOffset in place. The pack's KLV
// key and length are unchanged (every pack marshals to the same fixed
// size), so this only ever overwrites bytes already written, never
// shifts the file -- used once at finalize, when both pointers become
// known, to avoid rewriting the header partition's metadata twice.
func PatchPartitionPointers(stream ByteStream, packOffset uint64, bodyOffset, footerPartition uint64) error {
	packet, _, err := ReadKLVAt(stream, packOffset)
	if err != nil {
		return err
	}
	pack, err := unmarshalPartitionPack(packet.Value)
	if err != nil {
		return err
	}
	pack.BodyOffset = bodyOffset
	pack.FooterPartition = footerPartition

	valueOffset := packOffset + 16 + berLen
	if _, err := stream.WriteAt(pack.marshal(), valueOffset); err != nil {
		return err
	}
	return nil
}

// FindFooterOffset reads the header partition at offset 0 and returns
// the footer partition's stream offset, as stored in the header pack,
// so a reader can jump straight to the footer rather than scanning the
// whole file.
func FindFooterOffset(stream ByteStream) (uint64, error) {
	packet, _, err := ReadKLVAt(stream, 0)
	if err != nil {
		return 0, err
	}
	pack, err := unmarshalPartitionPack(packet.Value)
	if err != nil {
		return 0, err
	}
	if pack.Kind != PartitionHeader {
		return 0, fmt.Errorf("container: offset 0 is not a header partition: %w", moxerr.ErrInput)
	}
	if pack.FooterPartition == 0 {
		return 0, fmt.Errorf("container: header partition has no footer pointer (file not finalized): %w", moxerr.ErrInput)
	}
	return pack.FooterPartition, nil
}
