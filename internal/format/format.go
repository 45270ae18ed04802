// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package format renders tilt angles in the user's unit of measurement.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit codes are the values stored in preferences and config files.
type Unit int

const (
	Degrees     Unit = 0
	Radians     Unit = 10
	Percent     Unit = 20
	Fractional  Unit = 30
	Engineering Unit = 40
)

const (
	// Limit is the magnitude beyond which slopes render as ">>" or "<<".
	Limit = 1000

	fractionTolerance = 1e-2
	maxFractionTerms  = 64
)

var names = map[Unit]string{
	Degrees:     "degrees",
	Radians:     "radians",
	Percent:     "percent",
	Fractional:  "fractional",
	Engineering: "engineering",
}

func (u Unit) String() string {
	if n, ok := names[u]; ok {
		return n
	}
	return "unit(" + strconv.Itoa(int(u)) + ")"
}

// ParseUnit accepts a unit name or its numeric code.
func ParseUnit(s string) (Unit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if code, err := strconv.Atoi(s); err == nil {
		if _, ok := names[Unit(code)]; ok {
			return Unit(code), nil
		}
		return 0, fmt.Errorf("unknown unit code %d", code)
	}
	for u, n := range names {
		if s == n || (len(s) >= 3 && strings.HasPrefix(n, s)) {
			return u, nil
		}
	}
	return 0, fmt.Errorf("unknown unit %q", s)
}

// Angle formats an angle given in degrees.
func Angle(deg float64, u Unit) string {
	switch u {
	case Radians:
		return fmt.Sprintf("%.2f", deg*math.Pi/180)
	case Percent:
		return percent(deg)
	case Fractional:
		return Fraction(slope(deg))
	case Engineering:
		return engineering(slope(deg))
	}
	return fmt.Sprintf("%.1f°", deg)
}

// slope is the tangent of the angle. It is huge, not infinite, at ±90°.
func slope(deg float64) float64 {
	return math.Tan(deg * math.Pi / 180)
}

func percent(deg float64) string {
	p := slope(deg) * 100
	switch {
	case p >= Limit:
		return ">>"
	case p <= -Limit:
		return "<<"
	case math.Abs(p) < 100:
		return fmt.Sprintf("%.1f%%", p)
	}
	return fmt.Sprintf("%.0f%%", p)
}

func engineering(v float64) string {
	a := math.Abs(v)
	var s string
	switch {
	case v >= Limit:
		return ">>"
	case v <= -Limit:
		return "<<"
	case a < 10:
		s = fmt.Sprintf("%.3f", a)
	case a < 100:
		s = fmt.Sprintf("%.2f", a)
	default:
		s = fmt.Sprintf("%.0f", a)
	}
	if v < 0 {
		s = "-" + s
	}
	return s + ":1"
}

// Fraction renders x as a ratio "h:k" found by continued-fraction expansion
// to within 1% of x. Ratios whose denominator exceeds Limit render "0".
func Fraction(x float64) string {
	xx := math.Abs(x)
	h1, h2 := 1.0, 0.0
	k1, k2 := 0.0, 1.0
	b := xx
	for i := 0; i < maxFractionTerms; i++ {
		a := math.Floor(b)
		h1, h2 = a*h1+h2, h1
		k1, k2 = a*k1+k2, k1
		if math.Abs(xx-h1/k1) <= xx*fractionTolerance {
			break
		}
		b = 1 / (b - a)
	}

	switch {
	case k1 > Limit:
		return "0"
	case h1 > Limit && x < 0:
		return "<<"
	case h1 > Limit:
		return ">>"
	case x < 0:
		return fmt.Sprintf("-%.0f:%.0f", h1, k1)
	}
	return fmt.Sprintf("%.0f:%.0f", h1, k1)
}
