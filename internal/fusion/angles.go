// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import "math"

const (
	// RotationThreshold narrows each 90° rotation window on both sides.
	RotationThreshold = 5.0

	// Between FlatStart and FlatEnd degrees of z tilt the label angle blends
	// from the in-hand convention to the fixed rotation.
	FlatStart = 70.0
	FlatEnd   = 75.0

	minGravity = 1e-5
)

// Rotation is the coarse orientation of the display: 0, 90, 180 or 270.
type Rotation int

const (
	Rotation0   Rotation = 0
	Rotation90  Rotation = 90
	Rotation180 Rotation = 180
	Rotation270 Rotation = 270
)

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func clampUnit(x float64) float64 { return math.Max(-1, math.Min(1, x)) }

// AzimuthXY is the direction of gravity in the device xy plane, in degrees.
// It grows continuously from 0 to 360 as the device turns, wrapping where
// gx>0 and gy=0. Returns 0 when the projection is empty.
func AzimuthXY(gx, gy float64) float64 {
	gxy := math.Hypot(gx, gy)
	if gxy <= 0 {
		return 0
	}
	s := degrees(math.Asin(clampUnit(gy / gxy)))
	if gx >= 0 {
		if gy < 0 {
			return -s
		}
		return 360 - s
	}
	return 180 + s
}

// TiltAngles returns, for each axis, the angle between the axis and the
// horizontal plane, plus the angle between gravity and the z axis. The z
// angle is 0 when gravity has no xy component.
func TiltAngles(g [3]float64) (angle [3]float64, angleXYZ float64) {
	gxy := math.Hypot(g[0], g[1])
	gxyz := math.Hypot(gxy, g[2])
	div := math.Max(gxyz, minGravity)
	for i := range g {
		angle[i] = degrees(math.Asin(clampUnit(g[i] / div)))
	}
	if gxy > 0 {
		angleXYZ = degrees(math.Acos(clampUnit(g[2] / gxyz)))
	}
	return angle, angleXYZ
}

// NextRotation applies the hysteresis: each rotation owns a 90° window of
// azimuth, narrowed by RotationThreshold, and the rotation only changes when
// the azimuth enters another window.
func NextRotation(current Rotation, azimuth float64) Rotation {
	const th = RotationThreshold
	switch {
	case azimuth > 270-45+th && azimuth < 270+45-th:
		return Rotation0
	case azimuth > 90-45+th && azimuth < 90+45-th:
		return Rotation180
	case azimuth > 180-45+th && azimuth < 180+45-th:
		return Rotation270
	case azimuth > 270+45+th || azimuth < 45-th:
		return Rotation90
	}
	return current
}

// LabelAngle returns the orientation of the angle labels and whether the
// device counts as lying flat. absZ is |angle[2]|; wasFlat is kept inside
// the blending band.
func LabelAngle(rot Rotation, azimuth, absZ float64, wasFlat bool) (float64, bool) {
	tilted := math.Mod(90+azimuth, 360)
	switch {
	case absZ < FlatStart:
		return tilted, false
	case absZ < FlatEnd:
		if rot == Rotation0 && azimuth < 270 {
			tilted -= 360
		}
		w := (absZ - FlatStart) / (FlatEnd - FlatStart)
		return float64(rot)*w + tilted*(1-w), wasFlat
	default:
		return float64(rot), true
	}
}
