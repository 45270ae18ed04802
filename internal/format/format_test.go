// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngle(t *testing.T) {
	cases := []struct {
		deg  float64
		unit Unit
		want string
	}{
		{12.34, Degrees, "12.3°"},
		{90, Radians, "1.57"},
		{-45, Radians, "-0.79"},

		{10, Percent, "17.6%"},
		{-10, Percent, "-17.6%"},
		{44.9, Percent, "99.7%"},
		{44.99, Percent, "100.0%"},
		{45, Percent, "100%"},
		{45.1, Percent, "100%"},
		{60, Percent, "173%"},
		{84.3, Percent, ">>"},
		{90, Percent, ">>"},
		{-90, Percent, "<<"},

		{45, Fractional, "1:1"},
		{26.565, Fractional, "1:2"},
		{-26.565, Fractional, "-1:2"},
		{0, Fractional, "0:1"},
		{90, Fractional, ">>"},
		{-90, Fractional, "<<"},

		{30, Engineering, "0.577:1"},
		{-30, Engineering, "-0.577:1"},
		{80, Engineering, "5.671:1"},
		{85, Engineering, "11.43:1"},
		{89.5, Engineering, "115:1"},
		{90, Engineering, ">>"},
		{-90, Engineering, "<<"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Angle(tc.deg, tc.unit), "%g %s", tc.deg, tc.unit)
	}
}

func TestFraction(t *testing.T) {
	cases := map[float64]string{
		0.5:    "1:2",
		-2.5:   "-5:2",
		0.3333: "1:3",
		1.414:  "7:5",
		0:      "0:1",
		1e-4:   "0",
		2000:   ">>",
		-2000:  "<<",
	}
	for x, want := range cases {
		assert.Equal(t, want, Fraction(x), "%g", x)
	}
}

func TestParseUnit(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Unit
	}{
		{"degrees", Degrees},
		{"Radians", Radians},
		{" 20 ", Percent},
		{"30", Fractional},
		{"eng", Engineering},
		{"0", Degrees},
	} {
		u, err := ParseUnit(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, u, tc.in)
	}

	for _, bad := range []string{"", "7", "furlongs", "de"} {
		_, err := ParseUnit(bad)
		assert.Error(t, err, bad)
	}
}

func TestUnitString(t *testing.T) {
	assert.Equal(t, "percent", Percent.String())
	assert.Equal(t, "unit(7)", Unit(7).String())
}
