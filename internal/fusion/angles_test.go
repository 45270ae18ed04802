// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAzimuthXY(t *testing.T) {
	cases := []struct {
		gx, gy float64
		want   float64
	}{
		{1, 0, 360},
		{1, -1, 45},
		{0, -1, 90},
		{-1, -1, 135},
		{-1, 0, 180},
		{-1, 1, 225},
		{0, 1, 270},
		{1, 1, 315},
		{0, 0, 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, AzimuthXY(tc.gx, tc.gy), 1e-9, "(%g, %g)", tc.gx, tc.gy)
	}
}

func TestAzimuthXYSweep(t *testing.T) {
	prev := AzimuthXY(1, 0)
	for deg := 1; deg <= 720; deg++ {
		s, c := math.Sincos(float64(deg) * math.Pi / 180)
		cur := AzimuthXY(c, s)
		d := math.Abs(cur - prev)
		require.True(t, d < 1+1e-6 || d > 358, "step at %d°: %.4f -> %.4f", deg, prev, cur)
		assert.GreaterOrEqual(t, cur, 0.0)
		assert.LessOrEqual(t, cur, 360.0)
		prev = cur
	}
}

func TestTiltAngles(t *testing.T) {
	angle, xyz := TiltAngles([3]float64{0, 0, 9.8})
	assert.Zero(t, angle[0])
	assert.Zero(t, angle[1])
	assert.InDelta(t, 90, angle[2], 1e-9)
	assert.Zero(t, xyz)

	h := g / math.Sqrt2
	angle, xyz = TiltAngles([3]float64{h, 0, h})
	assert.InDelta(t, 45, angle[0], 1e-9)
	assert.InDelta(t, 0, angle[1], 1e-9)
	assert.InDelta(t, 45, angle[2], 1e-9)
	assert.InDelta(t, 45, xyz, 1e-9)

	angle, xyz = TiltAngles([3]float64{0, -g, 0})
	assert.InDelta(t, -90, angle[1], 1e-9)
	assert.InDelta(t, 90, xyz, 1e-9)

	angle, xyz = TiltAngles([3]float64{})
	assert.Equal(t, [3]float64{}, angle)
	assert.Zero(t, xyz)
}

func TestNextRotation(t *testing.T) {
	cases := []struct {
		current Rotation
		azimuth float64
		want    Rotation
	}{
		{Rotation0, 270, Rotation0},
		{Rotation0, 226, Rotation0},
		{Rotation0, 314, Rotation0},
		{Rotation0, 231, Rotation0},
		{Rotation0, 219, Rotation270},
		{Rotation0, 321, Rotation90},
		{Rotation180, 46, Rotation180},
		{Rotation180, 134, Rotation180},
		{Rotation180, 39, Rotation90},
		{Rotation90, 51, Rotation180},
		{Rotation90, 45, Rotation90},
		{Rotation90, 0, Rotation90},
		{Rotation90, 360, Rotation90},
		{Rotation270, 225, Rotation270},
		{Rotation270, 141, Rotation270},
		{Rotation270, 135, Rotation270},
		{Rotation270, 129, Rotation180},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NextRotation(tc.current, tc.azimuth), "%d at %g", tc.current, tc.azimuth)
	}
}

func TestNextRotationDoesNotChatter(t *testing.T) {
	rot := NextRotation(Rotation270, 200)
	require.Equal(t, Rotation270, rot)

	// jitter across the 225° boundary never leaves 270
	for i := 0; i < 50; i++ {
		az := 225.0 + float64(i%2*2-1)*4
		rot = NextRotation(rot, az)
		assert.Equal(t, Rotation270, rot, "azimuth %g", az)
	}
}

func TestLabelAngle(t *testing.T) {
	cases := []struct {
		name     string
		rot      Rotation
		azimuth  float64
		absZ     float64
		wasFlat  bool
		want     float64
		wantFlat bool
	}{
		{"in hand", Rotation0, 270, 30, true, 0, false},
		{"in hand sideways", Rotation180, 100, 10, false, 190, false},
		{"flat", Rotation90, 10, 80, false, 90, true},
		{"blending keeps flag", Rotation90, 0, 72.5, true, 90, true},
		{"blending below 270", Rotation0, 250, 72.5, false, -10, false},
		{"blending above 270", Rotation0, 280, 72.5, false, 5, false},
		{"blend start", Rotation180, 0, 70, false, 90, false},
		{"blend end", Rotation180, 0, 75, false, 180, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, flat := LabelAngle(tc.rot, tc.azimuth, tc.absZ, tc.wasFlat)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.Equal(t, tc.wantFlat, flat)
		})
	}
}
