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

// Package descriptor mirrors the SMPTE 377 file descriptor tree: a
// closed hierarchy of structs describing one essence stream, with Go
// struct embedding standing in for refinement (CDCI embeds
// VideoGeneric embeds Generic; MPEG embeds CDCI; AES3 embeds Wave
// embeds AudioGeneric embeds Generic).
package descriptor

import "fmt"

// UL is a 16-byte SMPTE universal label, byte-exact on disk. Unknown
// ULs read from a file are preserved but inert.
type UL [16]byte

// String renders a UL as a dash-grouped hex string for logs/errors.
func (u UL) String() string {
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x%02x%02x-%02x%02x%02x%02x-%02x%02x%02x%02x",
		u[0], u[1], u[2], u[3], u[4], u[5], u[6], u[7],
		u[8], u[9], u[10], u[11], u[12], u[13], u[14], u[15])
}

// IsZero reports whether the UL is the unset all-zero value.
func (u UL) IsZero() bool {
	return u == UL{}
}

// Essence container labels (SMPTE RP224-style placeholders; the muxer
// and demuxer only need values that are distinct and stable, not the
// registered byte-exact ones).
var (
	ContainerUncompressedPicture = UL{0x06, 0x0e, 0x2b, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0d, 0x01, 0x03, 0x01, 0x02, 0x01, 0x01, 0x00}
	ContainerJPEGPicture         = UL{0x06, 0x0e, 0x2b, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0d, 0x01, 0x03, 0x01, 0x02, 0x02, 0x01, 0x00}
	ContainerJPEG2000Picture     = UL{0x06, 0x0e, 0x2b, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0d, 0x01, 0x03, 0x01, 0x02, 0x03, 0x01, 0x00}
	ContainerPNGPicture          = UL{0x06, 0x0e, 0x2b, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0d, 0x01, 0x03, 0x01, 0x02, 0x04, 0x01, 0x00}
	ContainerMPEGPicture         = UL{0x06, 0x0e, 0x2b, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0d, 0x01, 0x03, 0x01, 0x02, 0x05, 0x01, 0x00}
	ContainerDiracPicture        = UL{0x06, 0x0e, 0x2b, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0d, 0x01, 0x03, 0x01, 0x02, 0x06, 0x01, 0x00}
	ContainerWaveAudio           = UL{0x06, 0x0e, 0x2b, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0d, 0x01, 0x03, 0x01, 0x02, 0x06, 0x02, 0x00}
	ContainerAES3Audio           = UL{0x06, 0x0e, 0x2b, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0d, 0x01, 0x03, 0x01, 0x02, 0x06, 0x03, 0x00}
)
