// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/clinometer/internal/imu"
)

const mockSourceName = "mock"

// MockSource synthesizes a device rocking slowly around x and y.
type MockSource struct {
	start time.Time
	now   func() time.Time
}

func NewMockSource() *MockSource {
	return &MockSource{start: time.Now(), now: time.Now}
}

// Gravity returns the accelerometer reading for a device rolled by roll and
// pitched by pitch degrees.
func Gravity(roll, pitch float64) imu.Vector {
	sr, cr := math.Sincos(roll * math.Pi / 180)
	sp, cp := math.Sincos(pitch * math.Pi / 180)
	return imu.Vector{
		-imu.StandardGravity * sp,
		imu.StandardGravity * sr * cp,
		imu.StandardGravity * cr * cp,
	}
}

func (m *MockSource) Next() (imu.Sample, error) {
	now := m.now()
	elapsed := now.Sub(m.start).Seconds()

	roll := 20 * math.Sin(elapsed*0.2)
	pitch := 15 * math.Cos(elapsed*0.14)
	return imu.Sample{Source: mockSourceName, Time: now, Accel: Gravity(roll, pitch)}, nil
}

func (m *MockSource) Close() error { return nil }
