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

package dirac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/pixel"
)

func TestStubReportsNoCapabilities(t *testing.T) {
	require.False(t, Info{}.CanCompressType(pixel.U8))
	require.Equal(t, codec.ChannelsNone, Info{}.ChannelCapabilities())
}

func TestStubCompressorFails(t *testing.T) {
	_, err := Info{}.NewCompressor(header.New(), channel.NewList())
	require.ErrorIs(t, err, moxerr.ErrNoImpl)
}

func TestStubDecompressorFails(t *testing.T) {
	_, err := Info{}.NewDecompressor(nil, header.New(), channel.NewList())
	require.ErrorIs(t, err, moxerr.ErrNoImpl)
}
