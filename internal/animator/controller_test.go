// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package animator

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerShortPath(t *testing.T) {
	c := NewController(10, DefaultGains(), DefaultPeriod)
	c.SetTarget(350)

	for i := 0; i < 300; i++ {
		c.Tick()
		// going the long way would pass through 180
		require.Greater(t, c.Position(), 340.0, "tick %d", i)
		require.Less(t, c.Position(), 371.0, "tick %d", i)
	}
	assert.Less(t, math.Abs(c.Value()-350), 0.5)
}

func TestControllerShortPathDownwards(t *testing.T) {
	c := NewController(350, DefaultGains(), DefaultPeriod)
	c.SetTarget(10)
	assert.InDelta(t, -10, c.Position(), 1e-12)

	for i := 0; i < 300; i++ {
		c.Tick()
	}
	assert.Less(t, math.Abs(c.Value()-10), 0.5)
}

func TestControllerNoShiftWithinHalfTurn(t *testing.T) {
	c := NewController(0, DefaultGains(), DefaultPeriod)
	c.SetTarget(180)
	assert.Zero(t, c.Position())
	c.SetTarget(270)
	assert.Zero(t, c.Position())
}

func TestControllerSaturation(t *testing.T) {
	c := NewController(0, Gains{Kp: 100}, DefaultPeriod)
	c.SetTarget(170)
	c.Tick()

	// v = 17000 saturates to 3600
	assert.InDelta(t, plantGain*OutputLimit, c.Position(), 1e-9)
	assert.InDelta(t, DesaturationGain*(OutputLimit-17000)*DefaultPeriod.Seconds(), c.Integral(), 1e-9)
}

func TestControllerIntegralAction(t *testing.T) {
	c := NewController(0, Gains{Kp: 0.3, Ki: 2}, DefaultPeriod)
	c.SetTarget(90)
	c.Tick()

	want := 2 * (90 - c.Position()) * DefaultPeriod.Seconds()
	assert.InDelta(t, want, c.Integral(), 1e-12)

	for i := 0; i < 2000; i++ {
		c.Tick()
	}
	assert.InDelta(t, 90, c.Value(), 0.5)
}

func TestControllerValueWraps(t *testing.T) {
	c := NewController(0, DefaultGains(), DefaultPeriod)
	for _, tc := range []struct{ in, want float64 }{
		{-30, 330},
		{725, 5},
		{360, 0},
		{90, 90},
	} {
		c.SetValue(tc.in)
		assert.InDelta(t, tc.want, c.Value(), 1e-9, "SetValue(%v)", tc.in)
		assert.Equal(t, tc.in, c.Target())
	}
}

func TestControllerRestsAtTarget(t *testing.T) {
	c := NewController(270, DefaultGains(), DefaultPeriod)
	for i := 0; i < 50; i++ {
		c.Tick()
	}
	assert.Equal(t, 270.0, c.Value())
	assert.Zero(t, c.Integral())
}

func TestAxisConcurrentAccess(t *testing.T) {
	a := NewAxis(NewController(0, DefaultGains(), DefaultPeriod))
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.ErrorIs(t, a.Run(ctx), context.Canceled)
	}()

	a.SetTarget(90)
	require.Eventually(t, func() bool {
		return math.Abs(a.Value()-90) < 0.5
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 90.0, a.Target())

	cancel()
	wg.Wait()
}

func TestMaxKd(t *testing.T) {
	period := 16 * time.Millisecond
	assert.InDelta(t, 0.016/0.3, MaxKd(period), 1e-12)
	assert.Greater(t, MaxKd(period), DefaultGains().Kd)

	c := NewController(0, Gains{Kp: 0.3, Kd: 0.9 * MaxKd(period)}, period)
	c.SetTarget(90)
	for i := 0; i < 2000; i++ {
		c.Tick()
	}
	assert.InDelta(t, 90, c.Value(), 0.01)
}

func TestControllerLimitsDerivativeGain(t *testing.T) {
	c := NewController(0, DefaultGains(), time.Millisecond)
	assert.Less(t, c.Gains().Kd, MaxKd(time.Millisecond))
	assert.Equal(t, DefaultGains().Kp, c.Gains().Kp)

	c.SetTarget(90)
	for i := 0; i < 2000; i++ {
		c.Tick()
	}
	assert.InDelta(t, 90, c.Value(), 0.01)
	assert.Less(t, math.Abs(c.Position()-90), 0.01)

	assert.Equal(t, DefaultGains(), NewController(0, DefaultGains(), DefaultPeriod).Gains())
}
