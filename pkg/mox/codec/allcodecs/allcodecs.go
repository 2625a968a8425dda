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

// Package allcodecs blank-imports every codec implementation so their
// init functions register with pkg/mox/codec's process-wide registry.
// A caller opening or writing MOX files imports this package for its
// side effect rather than importing codec subpackages piecemeal.
package allcodecs

import (
	_ "mox/pkg/mox/codec/dirac"
	_ "mox/pkg/mox/codec/dpx"
	_ "mox/pkg/mox/codec/jpeg"
	_ "mox/pkg/mox/codec/jpeg2000"
	_ "mox/pkg/mox/codec/jpegls"
	_ "mox/pkg/mox/codec/mpeg"
	_ "mox/pkg/mox/codec/openexr"
	_ "mox/pkg/mox/codec/png"
	_ "mox/pkg/mox/codec/uncompressed"
	_ "mox/pkg/mox/codec/uncompressedpcm"
)
