// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/clinometer/internal/calibration"
	"github.com/relabs-tech/clinometer/internal/imu"
	"github.com/relabs-tech/clinometer/internal/monitoring"
)

const g = imu.StandardGravity

func init() {
	monitoring.SetLogger(nil)
}

func feed(e *Engine, v imu.Vector, n int) Reading {
	var r Reading
	for i := 0; i < n; i++ {
		r = e.Process(v)
	}
	return r
}

// tiltedZ returns gravity with the given z angle, split along y.
func tiltedZ(deg float64) imu.Vector {
	s, c := math.Sincos(deg * math.Pi / 180)
	return imu.Vector{0, g * c, g * s}
}

func TestEngineStaticFlat(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())
	r := feed(e, imu.Vector{0, 0, g}, 100)

	assert.InDelta(t, 0, r.Angle[0], 1e-3)
	assert.InDelta(t, 0, r.Angle[1], 1e-3)
	assert.InDelta(t, 90, r.Angle[2], 1e-3)
	assert.Zero(t, r.AngleXY)
	assert.Zero(t, r.AngleXYZ)
	assert.Equal(t, uint64(100), r.Samples)
}

func TestEngineSeededEndToEnd(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())
	e.Seed(imu.Vector{0, 0, g})
	r := feed(e, imu.Vector{0, 0, g}, 100)

	assert.True(t, r.Flat)
	assert.InDelta(t, 0, r.Angle[0], 1e-9)
	assert.InDelta(t, 0, r.Angle[1], 1e-9)
	assert.InDelta(t, 90, r.Angle[2], 1e-9)
	assert.InDelta(t, g, r.GravityXYZ, 1e-9)
	assert.Equal(t, float64(r.Rotation), r.LabelAngle)
}

func TestEngineFirstSampleBypassesSmoothing(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())
	r := e.Process(imu.Vector{1, 2, 9})
	assert.Equal(t, imu.Vector{1, 2, 9}, r.Smoothed)

	r = e.Process(imu.Vector{2, 2, 9})
	// alpha = 0.04 * (1 + 0.1*1)
	assert.InDelta(t, 1+0.044, r.Smoothed[0], 1e-12)
	assert.InDelta(t, 2.0, r.Smoothed[1], 1e-12)
}

func TestEngineAppliesCalibration(t *testing.T) {
	cal := calibration.Identity()
	cal.Gain = imu.Vector{1, 1, 2}
	cal.Offset = imu.Vector{0.5, 0, 0}
	e := NewEngine(DefaultOptions(), cal)

	r := e.Process(imu.Vector{0.5, 0, 2 * g})
	assert.InDelta(t, 0, r.Smoothed[0], 1e-12)
	assert.InDelta(t, g, r.Smoothed[2], 1e-12)

	cal.Angle = imu.Vector{0, 0, 3}
	e.SetCalibration(cal)
	r = feed(e, imu.Vector{0.5, 0, 2 * g}, 200)
	assert.InDelta(t, -3, r.Angle[0], 1e-6, "mounting rotation moves gravity off z")
}

func TestEngineFreeFall(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())
	e.Seed(imu.Vector{})
	r := feed(e, imu.Vector{}, 20)

	for i := range r.Angle {
		assert.False(t, math.IsNaN(r.Angle[i]), "angle %d", i)
		assert.Zero(t, r.Angle[i])
	}
	assert.Zero(t, r.AngleXY)
	assert.Zero(t, r.AngleXYZ)
}

func TestEngineSweepIsContinuous(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())
	at := func(deg float64) imu.Vector {
		s, c := math.Sincos(deg * math.Pi / 180)
		return imu.Vector{g * c, g * s, 1}
	}
	prev := feed(e, at(0), 300).AngleXY

	wraps := 0
	for deg := 1; deg <= 720; deg++ {
		cur := e.Process(at(float64(deg))).AngleXY
		d := math.Abs(cur - prev)
		if d > 300 {
			wraps++
		} else {
			require.Less(t, d, 2.0, "step at %d°: %.3f -> %.3f", deg, prev, cur)
		}
		prev = cur
	}
	assert.GreaterOrEqual(t, wraps, 1)
}

func TestEngineRotationFollowsAzimuth(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())

	// gravity along -y: azimuth 90, upright in portrait
	r := feed(e, imu.Vector{0, -g, 0}, 100)
	assert.InDelta(t, 90, r.AngleXY, 1e-6)
	assert.Equal(t, Rotation180, r.Rotation)
	assert.False(t, r.Flat)
	assert.InDelta(t, 180, r.LabelAngle, 1e-6)

	// along -x: azimuth 180
	r = feed(e, imu.Vector{-g, 0, 0}, 300)
	assert.InDelta(t, 180, r.AngleXY, 0.01)
	assert.Equal(t, Rotation270, r.Rotation)
}

func TestEngineRotationFrozenWhenFlat(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())
	r := feed(e, imu.Vector{0, -g, 0}, 100)
	require.Equal(t, Rotation180, r.Rotation)

	// nearly flat, gravity leaning towards +y: azimuth 270 would select 0
	s, c := math.Sincos(80 * math.Pi / 180)
	r = feed(e, imu.Vector{0, g * c, g * s}, 300)
	assert.InDelta(t, 270, r.AngleXY, 1e-6)
	assert.Equal(t, Rotation180, r.Rotation)
	assert.True(t, r.Flat)
	assert.Equal(t, 180.0, r.LabelAngle)
}

func TestEngineManualLock(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())
	before := feed(e, tiltedZ(30), 50)

	e.ToggleLock()
	assert.True(t, e.Reading().LockRequested)
	r := e.Process(tiltedZ(30))
	assert.True(t, r.Locked)
	assert.False(t, r.LockRequested)

	r = feed(e, imu.Vector{g, 0, 0}, 50)
	assert.Equal(t, before.Angle, r.Angle, "locked readings are frozen")
	assert.Equal(t, uint64(101), r.Samples)

	e.ToggleLock()
	assert.False(t, e.Locked())
	r = feed(e, imu.Vector{g, 0, 0}, 300)
	assert.InDelta(t, 90, r.Angle[0], 1e-3)
}

func TestEngineToggleCancelsRequest(t *testing.T) {
	e := NewEngine(DefaultOptions(), calibration.Identity())
	e.ToggleLock()
	e.ToggleLock()
	r := e.Process(tiltedZ(30))
	assert.False(t, r.Locked)
	assert.False(t, r.LockRequested)
}

func TestEngineAutoLock(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoLock = true
	e := NewEngine(opts, calibration.Identity())

	e.ToggleLock()
	r := feed(e, tiltedZ(30), 150)
	assert.False(t, r.Locked, "angle windows are not full yet")
	assert.True(t, r.LockRequested)

	r = feed(e, tiltedZ(30), 300)
	require.True(t, r.Locked)
	assert.InDelta(t, 30, r.Angle[2], 1e-6)
	assert.Equal(t, imu.Vector{}, r.Tolerance, "angle windows restart after a lock")
}

func TestEngineAutoLockWaitsForStillness(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoLock = true
	e := NewEngine(opts, calibration.Identity())
	e.ToggleLock()

	for i := 0; i < 600; i++ {
		deg := 30 + 20*math.Sin(float64(i)/20)
		r := e.Process(tiltedZ(deg))
		require.False(t, r.Locked, "sample %d", i)
	}
}

func TestEngineHorizonCheck(t *testing.T) {
	cases := []struct {
		name    string
		zDeg    float64
		horizon bool
		locks   bool
	}{
		{"near horizon", 3, true, false},
		{"near horizon without check", 3, false, true},
		{"level", 0.1, true, true},
		{"clear of horizon", 10, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.AutoLock = true
			opts.HorizonCheck = tc.horizon
			e := NewEngine(opts, calibration.Identity())
			e.ToggleLock()

			r := feed(e, tiltedZ(tc.zDeg), 500)
			assert.Equal(t, tc.locks, r.Locked)
		})
	}
}

func TestAutoLockTolerance(t *testing.T) {
	assert.InDelta(t, 0.5, AutoLockTolerance(0), 1e-12)
	assert.InDelta(t, 0.275, AutoLockTolerance(500), 1e-12)
	assert.InDelta(t, 0.05, AutoLockTolerance(1000), 1e-12)
	assert.InDelta(t, 0.05, AutoLockTolerance(5000), 1e-12)
	assert.InDelta(t, 0.5, AutoLockTolerance(-3), 1e-12)

	e := NewEngine(DefaultOptions(), calibration.Identity())
	e.SetAutoLock(true, false, 1000)
	assert.InDelta(t, 0.05, e.LockTolerance(), 1e-12)
}
