// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package animator drives the reference axes: a discrete PID loop that
// moves an angle smoothly towards its target along the shortest arc.
package animator

import (
	"math"
	"time"
)

const (
	// OutputLimit is the saturation of the controller output.
	OutputLimit = 3600.0
	// DesaturationGain (kt) is the back-calculation gain of the anti-windup.
	DesaturationGain = 0.3

	// plantGain integrates the output into the animated position.
	plantGain = 0.3

	DefaultPeriod = 16 * time.Millisecond
)

// Gains are the PID coefficients.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// DefaultGains is the tuning used for the on-screen axes.
func DefaultGains() Gains {
	return Gains{Kp: 0.3, Ki: 0, Kd: 0.03}
}

// Controller is the PID state of one animated angle. It has no locking;
// see Axis for the synchronized wrapper.
type Controller struct {
	gains  Gains
	period time.Duration
	t      float64 // period in seconds

	r        float64 // setpoint
	y        float64 // animated position, unwrapped
	yOld     float64
	integral float64
}

// NewController returns a controller resting at initial. A derivative gain
// at or above MaxKd(period) is lowered to 90% of that bound.
func NewController(initial float64, gains Gains, period time.Duration) *Controller {
	if period <= 0 {
		period = DefaultPeriod
	}
	if maxKd := MaxKd(period); gains.Kd >= maxKd {
		gains.Kd = 0.9 * maxKd
	}
	return &Controller{
		gains:  gains,
		period: period,
		t:      period.Seconds(),
		r:      initial,
		y:      initial,
		yOld:   initial,
	}
}

// MaxKd is the derivative gain at which the loop stops converging for a
// tick period.
func MaxKd(period time.Duration) float64 {
	return period.Seconds() / plantGain
}

// Tick advances the loop by one period.
func (c *Controller) Tick() {
	p := c.gains.Kp * (c.r - c.y)
	d := c.gains.Kd * (c.y - c.yOld) / c.t

	v := p + c.integral + d
	u := math.Min(OutputLimit, math.Max(v, -OutputLimit))

	c.yOld = c.y
	c.y += plantGain * u

	c.integral += c.gains.Ki*(c.r-c.y)*c.t + DesaturationGain*(u-v)*c.t
}

// SetTarget moves the setpoint. When the jump is more than half a turn the
// position is shifted by a full turn so the animation takes the short way.
func (c *Controller) SetTarget(r float64) {
	switch diff := r - c.r; {
	case diff > 180:
		c.y += 360
		c.yOld += 360
	case diff < -180:
		c.y -= 360
		c.yOld -= 360
	}
	c.r = r
}

// SetValue places the axis at v without animating.
func (c *Controller) SetValue(v float64) {
	c.r = v
	c.y = v
	c.yOld = v
	c.integral = 0
}

// Value is the animated angle in [0, 360).
func (c *Controller) Value() float64 {
	v := math.Mod(c.y, 360)
	if v < 0 {
		v += 360
	}
	return v
}

// Position is the unwrapped animated angle.
func (c *Controller) Position() float64 { return c.y }

func (c *Controller) Target() float64        { return c.r }
func (c *Controller) Integral() float64      { return c.integral }
func (c *Controller) Period() time.Duration { return c.period }
func (c *Controller) Gains() Gains          { return c.gains }
