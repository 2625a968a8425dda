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

// Package jpegls registers the JPEG-LS picture codec's plug-in entry. No
// pure-Go JPEG-LS encoder/decoder with a usable API is available, so
// this is a stub: capability queries answer honestly,
// compress/decompress report moxerr.ErrNoImpl.
package jpegls

import (
	"fmt"

	"mox/pkg/mox/channel"
	"mox/pkg/mox/codec"
	"mox/pkg/mox/descriptor"
	"mox/pkg/mox/header"
	"mox/pkg/mox/moxerr"
	"mox/pkg/mox/pixel"
)

func init() {
	codec.RegisterVideo(header.JPEGLS, Info{})
}

// Info is the JPEG-LS codec's capability/factory surface.
type Info struct{}

// CanCompressType implements codec.VideoInfo.
func (Info) CanCompressType(pixel.Type) bool { return false }

// CompressedType implements codec.VideoInfo.
func (Info) CompressedType(t pixel.Type) (pixel.Type, error) {
	return 0, fmt.Errorf("jpegls: no compression path is implemented: %w", moxerr.ErrNoImpl)
}

// ChannelCapabilities implements codec.VideoInfo.
func (Info) ChannelCapabilities() codec.Channels { return codec.ChannelsNone }

// NewCompressor implements codec.VideoInfo.
func (Info) NewCompressor(*header.Header, *channel.List) (codec.VideoCodec, error) {
	return nil, fmt.Errorf("jpegls: compression is not implemented: %w", moxerr.ErrNoImpl)
}

// NewDecompressor implements codec.VideoInfo.
func (Info) NewDecompressor(descriptor.Descriptor, *header.Header, *channel.List) (codec.VideoCodec, error) {
	return nil, fmt.Errorf("jpegls: decompression is not implemented: %w", moxerr.ErrNoImpl)
}
