// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion turns accelerometer samples into tilt angles: smoothing,
// calibration, windowed gravity estimation, display rotation and auto-lock.
package fusion

import (
	"math"

	"github.com/relabs-tech/clinometer/internal/calibration"
	"github.com/relabs-tech/clinometer/internal/imu"
	"github.com/relabs-tech/clinometer/internal/monitoring"
	"github.com/relabs-tech/clinometer/internal/stats"
)

const (
	DefaultSmoothingAlpha    = 0.04
	DefaultGravityWindow     = 16
	DefaultAngleWindow       = 200
	DefaultAutoLockPrecision = 500

	AutoLockMinTolerance = 0.05
	AutoLockMaxTolerance = 0.5

	// HorizonThreshold is the band of z tilt, in degrees, where the azimuth
	// is unreliable and the horizon check applies.
	HorizonThreshold = 5.0

	// smoothingSlope scales how much a jump in the reading speeds up the
	// smoothing filter.
	smoothingSlope = 0.1
)

// ColdStartGravity seeds the gravity windows before the first sample.
var ColdStartGravity = imu.Vector{0, 0, 9.80}

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	SmoothingAlpha float64
	GravityWindow  int
	AngleWindow    int

	AutoLock          bool
	HorizonCheck      bool
	AutoLockPrecision int // 0 (loose) to 1000 (strict)
}

func DefaultOptions() Options {
	return Options{
		SmoothingAlpha:    DefaultSmoothingAlpha,
		GravityWindow:     DefaultGravityWindow,
		AngleWindow:       DefaultAngleWindow,
		HorizonCheck:      true,
		AutoLockPrecision: DefaultAutoLockPrecision,
	}
}

// AutoLockTolerance maps the 0-1000 precision preference to the angle
// tolerance, in degrees, below which a lock may commit.
func AutoLockTolerance(precision int) float64 {
	p := math.Max(0, math.Min(1000, float64(precision)))
	return AutoLockMaxTolerance - (AutoLockMaxTolerance-AutoLockMinTolerance)*p/1000
}

// Reading is the engine output after a sample.
type Reading struct {
	Raw        imu.Vector `json:"raw"`
	Smoothed   imu.Vector `json:"smoothed"`
	Calibrated imu.Vector `json:"calibrated"`
	Gravity    imu.Vector `json:"gravity"`
	GravityXY  float64    `json:"gravity_xy"`
	GravityXYZ float64    `json:"gravity_xyz"`

	Angle    imu.Vector `json:"angle"`
	AngleXY  float64    `json:"angle_xy"`
	AngleXYZ float64    `json:"angle_xyz"`

	Rotation   Rotation `json:"rotation"`
	Flat       bool     `json:"flat"`
	LabelAngle float64  `json:"label_angle"`

	Locked        bool       `json:"locked"`
	LockRequested bool       `json:"lock_requested"`
	Tolerance     imu.Vector `json:"tolerance"`

	Samples uint64 `json:"samples"`
}

// Engine is the per-sample fusion pipeline. It must be driven from a
// single goroutine.
type Engine struct {
	opts          Options
	cal           calibration.Result
	matrix        calibration.Matrix
	lockTolerance float64

	smoothed imu.Vector
	gravity  [3]*stats.Window
	angles   [3]*stats.Window

	locked        bool
	lockRequested bool

	r Reading
}

// NewEngine returns an engine seeded with ColdStartGravity.
func NewEngine(opts Options, cal calibration.Result) *Engine {
	if opts.SmoothingAlpha <= 0 {
		opts.SmoothingAlpha = DefaultSmoothingAlpha
	}
	if opts.GravityWindow <= 0 {
		opts.GravityWindow = DefaultGravityWindow
	}
	if opts.AngleWindow <= 0 {
		opts.AngleWindow = DefaultAngleWindow
	}

	e := &Engine{opts: opts}
	for i := 0; i < 3; i++ {
		e.gravity[i] = stats.NewWindow(opts.GravityWindow)
		e.angles[i] = stats.NewWindow(opts.AngleWindow)
	}
	e.lockTolerance = AutoLockTolerance(opts.AutoLockPrecision)
	e.SetCalibration(cal)
	e.Seed(ColdStartGravity)
	return e
}

// SetCalibration installs a calibration and restarts the smoothing filter.
func (e *Engine) SetCalibration(cal calibration.Result) {
	e.cal = cal
	e.matrix = cal.Matrix()
	e.smoothed = imu.Vector{}
}

// SetAutoLock updates the auto-lock preferences.
func (e *Engine) SetAutoLock(enabled, horizonCheck bool, precision int) {
	e.opts.AutoLock = enabled
	e.opts.HorizonCheck = horizonCheck
	e.opts.AutoLockPrecision = precision
	e.lockTolerance = AutoLockTolerance(precision)
}

// Seed fills the gravity windows with g.
func (e *Engine) Seed(g imu.Vector) {
	for i, w := range e.gravity {
		w.ResetTo(g[i])
	}
}

// ToggleLock handles a lock tap: it unlocks a locked engine, otherwise it
// arms or disarms the pending lock request.
func (e *Engine) ToggleLock() {
	if e.locked {
		e.Unlock()
		return
	}
	e.lockRequested = !e.lockRequested
	e.r.LockRequested = e.lockRequested
}

func (e *Engine) Unlock() {
	e.locked = false
	e.lockRequested = false
	e.r.Locked = false
	e.r.LockRequested = false
}

func (e *Engine) Locked() bool           { return e.locked }
func (e *Engine) Reading() Reading       { return e.r }
func (e *Engine) LockTolerance() float64 { return e.lockTolerance }

// Process runs one sample through the pipeline. While locked the sample is
// counted but the reading stays frozen.
func (e *Engine) Process(raw imu.Vector) Reading {
	e.r.Samples++

	if e.lockRequested {
		e.tryLock()
	}
	if e.locked {
		return e.r
	}

	e.r.Raw = raw
	e.smooth(raw)
	e.r.Smoothed = e.smoothed
	e.r.Calibrated = e.matrix.Apply(e.smoothed)
	for i, w := range e.gravity {
		w.Insert(e.r.Calibrated[i])
	}
	e.derive()

	for i, w := range e.angles {
		w.Insert(e.r.Angle[i])
		e.r.Tolerance[i] = w.Tolerance()
	}

	absZ := math.Abs(e.r.Angle[2])
	if absZ < FlatStart {
		e.r.Rotation = NextRotation(e.r.Rotation, e.r.AngleXY)
	}
	e.r.LabelAngle, e.r.Flat = LabelAngle(e.r.Rotation, e.r.AngleXY, absZ, e.r.Flat)

	return e.r
}

// smooth applies the gain/offset correction and the adaptive low-pass
// filter. The first sample after a reset is taken as is.
func (e *Engine) smooth(raw imu.Vector) {
	c := e.cal.Correct(raw)
	if e.smoothed == (imu.Vector{}) {
		e.smoothed = c
		return
	}
	for i := range c {
		alpha := e.opts.SmoothingAlpha * (1 + smoothingSlope*math.Abs(e.smoothed[i]-c[i]))
		alpha = math.Min(alpha, 1)
		e.smoothed[i] = (1-alpha)*e.smoothed[i] + alpha*c[i]
	}
}

// derive computes the gravity magnitudes and angles from the gravity
// window means.
func (e *Engine) derive() {
	var g imu.Vector
	for i, w := range e.gravity {
		g[i] = w.Mean()
	}
	e.r.Gravity = g
	e.r.GravityXY = math.Hypot(g[0], g[1])
	e.r.GravityXYZ = math.Hypot(e.r.GravityXY, g[2])
	e.r.Angle, e.r.AngleXYZ = TiltAngles(g)
	e.r.AngleXY = AzimuthXY(g[0], g[1])
}

func (e *Engine) tryLock() {
	if !e.opts.AutoLock {
		e.commitLock()
		return
	}

	tol := e.lockTolerance
	for _, w := range e.angles {
		if !w.IsFull() || w.Tolerance() >= tol {
			return
		}
	}
	if e.opts.HorizonCheck &&
		math.Abs(e.r.Angle[2]) < HorizonThreshold &&
		math.Abs(e.angles[2].Mean()) >= tol {
		return
	}

	e.derive()
	for i, w := range e.angles {
		monitoring.Logf("fusion: locked angle%d mean=%+.4f tolerance=%.4f (limit %.4f)",
			i, w.Mean(), w.Tolerance(), tol)
	}
	e.commitLock()
	for i, w := range e.angles {
		w.Reset()
		e.r.Tolerance[i] = 0
	}
}

func (e *Engine) commitLock() {
	e.lockRequested = false
	e.locked = true
	e.r.LockRequested = false
	e.r.Locked = true
}
