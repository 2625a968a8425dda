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

// Package moxtypes holds the small value types shared by every other mox
// package: Rational, Box2i and DataChunk.
package moxtypes

import "fmt"

// Rational is an exact ratio of two 32-bit signed integers.
type Rational struct {
	Numerator   int32
	Denominator int32
}

// NewRational returns a Rational, failing if the denominator isn't positive.
func NewRational(num, den int32) (Rational, error) {
	if den <= 0 {
		return Rational{}, fmt.Errorf("rational: denominator must be > 0, got %d", den)
	}
	return Rational{Numerator: num, Denominator: den}, nil
}

// Float64 returns the rational as a float64.
func (r Rational) Float64() float64 {
	return float64(r.Numerator) / float64(r.Denominator)
}

// Reduce returns the rational in lowest terms.
func (r Rational) Reduce() Rational {
	g := gcd(abs32(r.Numerator), r.Denominator)
	if g == 0 {
		return r
	}
	return Rational{Numerator: r.Numerator / g, Denominator: r.Denominator / g}
}

// Equal reports whether two rationals are equal once reduced.
func (r Rational) Equal(other Rational) bool {
	a, b := r.Reduce(), other.Reduce()
	return a.Numerator == b.Numerator && a.Denominator == b.Denominator
}

// String implements fmt.Stringer.
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func gcd(a, b int32) int32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
