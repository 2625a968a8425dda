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

// Package channel holds the insertion-ordered channel/audio-channel maps
// that describe the named planes of a video or audio stream.
package channel

import "mox/pkg/mox/pixel"

// Channel describes one named plane's semantics: its pixel type, its
// subsampling relative to the frame, and whether its values are linear
// light (as opposed to perceptually encoded, e.g. gamma-corrected).
type Channel struct {
	Type               pixel.Type
	XSampling          int
	YSampling          int
	PerceptuallyLinear bool
}

// List is an insertion-ordered map from channel name to Channel.
type List struct {
	order []string
	byName map[string]Channel
}

// NewList returns an empty channel list.
func NewList() *List {
	return &List{byName: make(map[string]Channel)}
}

// Insert adds or overwrites a channel, preserving the original insertion
// position when overwriting an existing name.
func (l *List) Insert(name string, c Channel) {
	if _, exists := l.byName[name]; !exists {
		l.order = append(l.order, name)
	}
	l.byName[name] = c
}

// Find returns the channel and whether it exists.
func (l *List) Find(name string) (Channel, bool) {
	c, ok := l.byName[name]
	return c, ok
}

// Names returns channel names in insertion order.
func (l *List) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of channels.
func (l *List) Len() int { return len(l.order) }

// Equal reports structural equality including order.
func (l *List) Equal(other *List) bool {
	if l.Len() != other.Len() {
		return false
	}
	for i, name := range l.order {
		if other.order[i] != name {
			return false
		}
		if l.byName[name] != other.byName[name] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (l *List) Clone() *List {
	clone := NewList()
	for _, name := range l.order {
		clone.Insert(name, l.byName[name])
	}
	return clone
}

// LayerNames returns the names sharing the given layer prefix (e.g.
// "left." for a stereoscopic left-eye layer), in insertion order, with
// the prefix stripped.
func (l *List) LayerNames(prefix string) []string {
	var out []string
	for _, name := range l.order {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			out = append(out, name[len(prefix):])
		}
	}
	return out
}
