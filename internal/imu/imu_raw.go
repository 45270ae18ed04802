// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "time"

// StandardGravity is the gravity magnitude, in m/s², the calibration
// gains are normalized against.
const StandardGravity = 9.807

// Vector is an (x, y, z) triple in device axes.
type Vector [3]float64

// Sample is one accelerometer reading in m/s².
type Sample struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`
	Accel  Vector    `json:"accel"`
}

// IMURaw is an accelerometer reading in sensor counts.
type IMURaw struct {
	Source string `json:"source"`

	Ax int16 `json:"ax"`
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`
}

// CountsPerG returns the accelerometer sensitivity for a full-scale range
// selector (0=±2g, 1=±4g, 2=±8g, 3=±16g).
func CountsPerG(accelRange byte) float64 {
	return float64(int(16384) >> (accelRange & 0x03))
}

// Sample converts the raw counts to m/s².
func (r IMURaw) Sample(accelRange byte, t time.Time) Sample {
	k := StandardGravity / CountsPerG(accelRange)
	return Sample{
		Source: r.Source,
		Time:   t,
		Accel:  Vector{float64(r.Ax) * k, float64(r.Ay) * k, float64(r.Az) * k},
	}
}
