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
	"sort"

	"mox/pkg/mox/moxerr"
)

// IndexEntry maps one edit unit to its location in the body stream.
type IndexEntry struct {
	StreamOffset   uint64
	KeyFrameOffset int32
	TemporalOffset int32
	Flags          uint8
}

const indexEntrySize = 8 + 4 + 4 + 1

// IndexTable is the edit-unit -> IndexEntry map, built during write and
// serialized in the footer partition.
type IndexTable struct {
	entries []IndexEntry
}

// NewIndexTable returns an empty index table.
func NewIndexTable() *IndexTable { return &IndexTable{} }

// Append adds the next entry (for the next edit unit in sequence).
func (t *IndexTable) Append(e IndexEntry) {
	t.entries = append(t.entries, e)
}

// Size returns the number of edit units covered by the table.
func (t *IndexTable) Size() int { return len(t.entries) }

// Get returns the entry for editUnit, failing with an Input error if it
// doesn't exist; there is no nearest-match fallback.
func (t *IndexTable) Get(editUnit int) (IndexEntry, error) {
	if editUnit < 0 || editUnit >= len(t.entries) {
		return IndexEntry{}, fmt.Errorf("container: edit unit %d out of range [0,%d): %w", editUnit, len(t.entries), moxerr.ErrInput)
	}
	return t.entries[editUnit], nil
}

// Marshal serializes the table as a count-prefixed list of fixed-size
// entries.
func (t *IndexTable) Marshal() []byte {
	out := make([]byte, 4+len(t.entries)*indexEntrySize)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(t.entries)))
	pos := 4
	for _, e := range t.entries {
		binary.BigEndian.PutUint64(out[pos:pos+8], e.StreamOffset)
		pos += 8
		binary.BigEndian.PutUint32(out[pos:pos+4], uint32(e.KeyFrameOffset))
		pos += 4
		binary.BigEndian.PutUint32(out[pos:pos+4], uint32(e.TemporalOffset))
		pos += 4
		out[pos] = e.Flags
		pos++
	}
	return out
}

// UnmarshalIndexTable parses a table serialized by Marshal.
func UnmarshalIndexTable(b []byte) (*IndexTable, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("container: index table truncated: %w", moxerr.ErrInput)
	}
	count := binary.BigEndian.Uint32(b[0:4])
	t := &IndexTable{entries: make([]IndexEntry, 0, count)}
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+indexEntrySize > len(b) {
			return nil, fmt.Errorf("container: index table entry %d truncated: %w", i, moxerr.ErrInput)
		}
		e := IndexEntry{
			StreamOffset:   binary.BigEndian.Uint64(b[pos : pos+8]),
			KeyFrameOffset: int32(binary.BigEndian.Uint32(b[pos+8 : pos+12])),
			TemporalOffset: int32(binary.BigEndian.Uint32(b[pos+12 : pos+16])),
			Flags:          b[pos+16],
		}
		pos += indexEntrySize
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// IndexSet bundles one IndexTable per track, the shape the footer
// partition actually carries.
type IndexSet struct {
	ByTrack map[uint32]*IndexTable
}

// NewIndexSet returns an empty index set.
func NewIndexSet() *IndexSet {
	return &IndexSet{ByTrack: make(map[uint32]*IndexTable)}
}

// Table returns (creating if necessary) the index table for track
// number n.
func (s *IndexSet) Table(n uint32) *IndexTable {
	t, ok := s.ByTrack[n]
	if !ok {
		t = NewIndexTable()
		s.ByTrack[n] = t
	}
	return t
}

// Marshal serializes the set as a count-prefixed list of (track number,
// length-prefixed table) pairs, in ascending track-number order so the
// encoding is deterministic.
func (s *IndexSet) Marshal() []byte {
	numbers := make([]uint32, 0, len(s.ByTrack))
	for n := range s.ByTrack {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	var b buf
	b.u16(uint16(len(numbers)))
	for _, n := range numbers {
		b.u32(n)
		b.bytes(s.ByTrack[n].Marshal())
	}
	return b.out
}

// UnmarshalIndexSet parses a set serialized by Marshal.
func UnmarshalIndexSet(raw []byte) (*IndexSet, error) {
	c := newCursor(raw)
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	s := NewIndexSet()
	for i := uint16(0); i < n; i++ {
		trackNumber, err := c.u32()
		if err != nil {
			return nil, err
		}
		tableBytes, err := c.bytesField()
		if err != nil {
			return nil, err
		}
		t, err := UnmarshalIndexTable(tableBytes)
		if err != nil {
			return nil, err
		}
		s.ByTrack[trackNumber] = t
	}
	return s, nil
}
