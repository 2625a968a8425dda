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

// Package moxerr defines the error kinds shared across the mox packages.
//
// Every fallible operation returns one of these sentinels wrapped with
// fmt.Errorf("...: %w", ...); callers distinguish kinds with errors.Is.
package moxerr

import "errors"

// Error kinds.
var (
	// ErrArgument means a caller-supplied value is out of contract
	// (empty name, empty window, bad size).
	ErrArgument = errors.New("argument error")

	// ErrLogic means an internal invariant was violated (playhead past
	// the end of a stream, duplicate codec registration).
	ErrLogic = errors.New("logic error")

	// ErrInput means a file read contradicts the specification
	// (unknown descriptor UL, wrong width).
	ErrInput = errors.New("input error")

	// ErrIO means the underlying byte stream failed.
	ErrIO = errors.New("i/o error")

	// ErrNoImpl means a feature is not available.
	ErrNoImpl = errors.New("not implemented")

	// ErrNull means an expected pointer/value is absent.
	ErrNull = errors.New("null error")

	// ErrType means a dynamic cast to an attribute or descriptor
	// variant failed.
	ErrType = errors.New("type error")
)
