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

	"mox/pkg/mox/channel"
	"mox/pkg/mox/moxerr"
)

// Layer is one group of channel names a single codec instance will
// compress together, e.g. {"R","G","B"} or {"A"}.
type Layer struct {
	Names []string
}

// NegotiateChannels implements the muxer-side capability negotiation:
// it rewrites channel types the codec can't take to their
// nearest compressed equivalent, then either returns the whole list as
// one layer (Channels_Any) or partitions it into codec-acceptable
// layers.
func NegotiateChannels(info VideoInfo, channels *channel.List) ([]Layer, *channel.List, error) {
	adjusted := channel.NewList()
	for _, name := range channels.Names() {
		c, _ := channels.Find(name)
		if !info.CanCompressType(c.Type) {
			compressed, err := info.CompressedType(c.Type)
			if err != nil {
				return nil, nil, fmt.Errorf("codec: channel %q: %w", name, err)
			}
			c.Type = compressed
		}
		adjusted.Insert(name, c)
	}

	caps := info.ChannelCapabilities()
	if caps&ChannelsAny != 0 {
		return []Layer{{Names: adjusted.Names()}}, adjusted, nil
	}

	layers, err := partitionLayers(caps, adjusted)
	if err != nil {
		return nil, nil, err
	}
	return layers, adjusted, nil
}

// partitionLayers groups channel names into the RGB/RGBA/Y/YA/A shapes
// the codec declares support for. Plane names follow pkg/mox/framebuffer's
// convention: "R","G","B" for RGB, "Y" for luma, "A" for alpha.
func partitionLayers(caps Channels, channels *channel.List) ([]Layer, error) {
	names := make(map[string]bool)
	for _, n := range channels.Names() {
		names[n] = true
	}

	var layers []Layer

	hasRGB := names["R"] && names["G"] && names["B"]
	hasA := names["A"]
	hasY := names["Y"]

	switch {
	case hasRGB && hasA && caps&ChannelsRGBA != 0:
		layers = append(layers, Layer{Names: []string{"R", "G", "B", "A"}})
		delete(names, "R")
		delete(names, "G")
		delete(names, "B")
		delete(names, "A")
	case hasRGB && caps&ChannelsRGB != 0:
		layers = append(layers, Layer{Names: []string{"R", "G", "B"}})
		delete(names, "R")
		delete(names, "G")
		delete(names, "B")
	}

	switch {
	case hasY && hasA && names["A"] && caps&ChannelsYA != 0:
		layers = append(layers, Layer{Names: []string{"Y", "A"}})
		delete(names, "Y")
		delete(names, "A")
	case hasY && names["Y"] && caps&ChannelsY != 0:
		layers = append(layers, Layer{Names: []string{"Y"}})
		delete(names, "Y")
	}

	if names["A"] && caps&ChannelsA != 0 {
		layers = append(layers, Layer{Names: []string{"A"}})
		delete(names, "A")
	}

	if len(names) > 0 {
		return nil, fmt.Errorf("codec: no capability layer accepts remaining channels: %w", moxerr.ErrNoImpl)
	}
	return layers, nil
}
