// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"math"
	"time"

	"github.com/relabs-tech/clinometer/internal/imu"
)

// Result is a complete accelerometer calibration. A reading is corrected
// per axis as (raw - Offset) / Gain, then rotated by Matrix().
type Result struct {
	Gain   imu.Vector `json:"gain"`
	Offset imu.Vector `json:"offset"`
	Angle  imu.Vector `json:"angle"` // mounting correction, degrees
	Time   time.Time  `json:"time"`
}

// Identity is the calibration of an ideal device.
func Identity() Result {
	return Result{Gain: imu.Vector{1, 1, 1}}
}

// Correct applies gain and offset to a raw reading.
func (r Result) Correct(v imu.Vector) imu.Vector {
	var out imu.Vector
	for i := range v {
		out[i] = (v[i] - r.Offset[i]) / r.Gain[i]
	}
	return out
}

func (r Result) Matrix() Matrix { return NewMatrix(r.Angle) }

// Matrix is the 3x3 mounting correction applied to gain-corrected readings.
type Matrix [3][3]float64

// NewMatrix composes the mounting correction from the three calibration
// angles, in degrees.
func NewMatrix(angle imu.Vector) Matrix {
	s0, c0 := math.Sincos(angle[0] * math.Pi / 180)
	s1, c1 := math.Sincos(angle[1] * math.Pi / 180)
	s2, c2 := math.Sincos(angle[2] * math.Pi / 180)

	return Matrix{
		{c2*c0 + s2*s1*s0, c1 * s0, -s2*c0 + c2*s1*s0},
		{-c2*s0 + s2*s1*c0, c1 * c0, s2*s0 + c2*s1*c0},
		{s2 * c1, -s1, c2 * c1},
	}
}

// Apply returns m × v.
func (m Matrix) Apply(v imu.Vector) imu.Vector {
	return imu.Vector{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}
