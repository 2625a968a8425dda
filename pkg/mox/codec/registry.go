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

package codec

import (
	"fmt"
	"sync"

	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
)

var (
	videoMu       sync.RWMutex
	videoRegistry = make(map[header.VideoCompression]VideoInfo)

	audioMu       sync.RWMutex
	audioRegistry = make(map[header.AudioCompression]AudioInfo)
)

// RegisterVideo registers info under compression. Subpackages call
// this from their init() function (e.g. pkg/mox/codec/jpeg), so a
// blank import is all it takes to make a codec available.
func RegisterVideo(compression header.VideoCompression, info VideoInfo) {
	videoMu.Lock()
	defer videoMu.Unlock()
	videoRegistry[compression] = info
}

// LookupVideo returns the registered video codec info for compression.
func LookupVideo(compression header.VideoCompression) (VideoInfo, error) {
	videoMu.RLock()
	defer videoMu.RUnlock()
	info, ok := videoRegistry[compression]
	if !ok {
		return nil, fmt.Errorf("codec: no video codec registered for compression %v: %w", compression, moxerr.ErrNoImpl)
	}
	return info, nil
}

// RegisterAudio registers info under compression.
func RegisterAudio(compression header.AudioCompression, info AudioInfo) {
	audioMu.Lock()
	defer audioMu.Unlock()
	audioRegistry[compression] = info
}

// LookupAudio returns the registered audio codec info for compression.
func LookupAudio(compression header.AudioCompression) (AudioInfo, error) {
	audioMu.RLock()
	defer audioMu.RUnlock()
	info, ok := audioRegistry[compression]
	if !ok {
		return nil, fmt.Errorf("codec: no audio codec registered for compression %v: %w", compression, moxerr.ErrNoImpl)
	}
	return info, nil
}
