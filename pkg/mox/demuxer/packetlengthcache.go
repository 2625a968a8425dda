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

package demuxer

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"mox/pkg/mox/moxerr"
)

// PacketLengthCache persists per-(file, track, edit unit)
// essence-packet byte sizes across opens of the same file. Building an
// audio track's cumulative-samples index otherwise means re-reading
// every audio packet's KLV header on every open just to learn its byte
// length.
type PacketLengthCache struct {
	db *bbolt.DB
}

var packetLengthBucket = []byte("packet-lengths")

// OpenPacketLengthCache opens (creating if necessary) a bbolt database at
// path to back a PacketLengthCache.
func OpenPacketLengthCache(path string) (*PacketLengthCache, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("demuxer: open packet length cache %s: %w: %v", path, moxerr.ErrIO, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(packetLengthBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("demuxer: init packet length cache %s: %w: %v", path, moxerr.ErrIO, err)
	}
	return &PacketLengthCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *PacketLengthCache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("demuxer: close packet length cache: %w: %v", moxerr.ErrIO, err)
	}
	return nil
}

// cacheKeyBytes packs fileKey, trackNumber and editUnit into one bbolt
// key. fileKey namespaces entries belonging to different files sharing
// one cache database (typically the file's path).
func cacheKeyBytes(fileKey string, trackNumber uint32, editUnit int) []byte {
	key := make([]byte, len(fileKey)+1+4+8)
	copy(key, fileKey)
	pos := len(fileKey)
	key[pos] = '|'
	pos++
	binary.BigEndian.PutUint32(key[pos:], trackNumber)
	pos += 4
	binary.BigEndian.PutUint64(key[pos:], uint64(editUnit))
	return key
}

// Get returns a previously cached packet size for (fileKey, trackNumber,
// editUnit), if one was stored.
func (c *PacketLengthCache) Get(fileKey string, trackNumber uint32, editUnit int) (int, bool, error) {
	var size int
	var ok bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(packetLengthBucket).Get(cacheKeyBytes(fileKey, trackNumber, editUnit))
		if v == nil {
			return nil
		}
		if len(v) != 4 {
			return fmt.Errorf("demuxer: corrupt packet length cache entry: %w", moxerr.ErrInput)
		}
		size = int(binary.BigEndian.Uint32(v))
		ok = true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("demuxer: read packet length cache: %w: %v", moxerr.ErrIO, err)
	}
	return size, ok, nil
}

// Put stores a packet size for (fileKey, trackNumber, editUnit).
func (c *PacketLengthCache) Put(fileKey string, trackNumber uint32, editUnit int, size int) error {
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], uint32(size))
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(packetLengthBucket).Put(cacheKeyBytes(fileKey, trackNumber, editUnit), v[:])
	})
	if err != nil {
		return fmt.Errorf("demuxer: write packet length cache: %w: %v", moxerr.ErrIO, err)
	}
	return nil
}
