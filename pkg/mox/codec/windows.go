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

	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/moxtypes"
)

// ValidateWindows resolves the sampled-window-vs-data-window open
// question: the container layer preserves whatever geometry is on disk,
// but codec construction rejects a write where sampledWindow would
// violate the codec's own invariant that it equal dataWindow. Codec
// packages call this from Compress with the FrameBuffer's actual data
// window, not just at NewCompressor time, since the window the caller
// negotiated the descriptor against and the window of the frame handed
// to Compress can otherwise silently diverge.
func ValidateWindows(dataWindow, sampledWindow moxtypes.Box2i, requireEqual bool) error {
	if requireEqual && dataWindow != sampledWindow {
		return fmt.Errorf("codec: sampled window %v must equal data window %v for this codec: %w", sampledWindow, dataWindow, moxerr.ErrArgument)
	}
	if !dataWindow.Contains(sampledWindow) {
		return fmt.Errorf("codec: sampled window %v must be contained in data window %v: %w", sampledWindow, dataWindow, moxerr.ErrArgument)
	}
	return nil
}
