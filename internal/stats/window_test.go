// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowMeanBeforeFull(t *testing.T) {
	w := NewWindow(8)
	samples := []float64{1, 2, 3, 4}
	for i, s := range samples {
		w.Insert(s)
		var sum float64
		for _, v := range samples[:i+1] {
			sum += v
		}
		assert.InDelta(t, sum/float64(i+1), w.Mean(), 1e-12, "after %d samples", i+1)
	}

	assert.InDelta(t, 1.25, w.Variance(), 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), w.StdDev(), 1e-12)
	assert.InDelta(t, 1.96*math.Sqrt(1.25)/2, w.Tolerance(), 1e-12)
	assert.Equal(t, 4, w.Loaded())
	assert.False(t, w.IsFull())
}

func TestWindowKeepsOnlyLastN(t *testing.T) {
	w := NewWindow(4)
	for _, v := range []float64{100, 100, 1, 2, 3, 4} {
		w.Insert(v)
	}
	assert.InDelta(t, 2.5, w.Mean(), 1e-12)
	assert.Equal(t, 4, w.Loaded(), "loaded saturates at the window size")
	assert.True(t, w.IsFull())
	assert.Equal(t, 100.0, w.PercentLoaded())
}

func TestWindowToleranceZeroUntilSample(t *testing.T) {
	w := NewWindow(5)
	assert.Zero(t, w.Tolerance())
	w.Insert(3)
	assert.Zero(t, w.Tolerance())
	assert.Equal(t, 3.0, w.Mean())
}

func TestWindowResetTo(t *testing.T) {
	for _, v := range []float64{0, -4.2, 9.807, 1e6} {
		w := NewWindow(16)
		w.Insert(1)
		w.Insert(7)
		w.ResetTo(v)
		assert.Equal(t, v, w.Mean())
		assert.Zero(t, w.Variance())
		assert.Zero(t, w.Tolerance())
		assert.True(t, w.IsFull())

		w.Insert(v)
		assert.InDelta(t, v, w.Mean(), 1e-9)
		assert.InDelta(t, 0, w.Tolerance(), 1e-9)
	}
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(3)
	w.Insert(5)
	w.Insert(6)
	w.Reset()
	assert.Zero(t, w.Mean())
	assert.Zero(t, w.Loaded())
	assert.Zero(t, w.PercentLoaded())

	w.Insert(2)
	assert.Equal(t, 2.0, w.Mean())
}

func TestWindowLoadState(t *testing.T) {
	w := NewWindow(20)
	for i := 0; i < 10; i++ {
		w.Insert(1)
	}
	assert.False(t, w.IsStable())
	assert.Equal(t, 50.0, w.PercentLoaded())
	w.Insert(1)
	assert.True(t, w.IsStable())
	assert.False(t, w.IsFull())
}

func TestWindowMeanOfLast(t *testing.T) {
	w := NewWindow(5)
	require.Zero(t, w.MeanOfLast(3))

	for _, v := range []float64{1, 2, 3, 4, 5, 6, 7} {
		w.Insert(v)
	}
	// buffer now holds 3..7
	assert.Equal(t, 6.5, w.MeanOfLast(2))
	assert.Equal(t, 5.0, w.MeanOfLast(5))
	assert.Equal(t, 5.0, w.MeanOfLast(50))
	assert.Zero(t, w.MeanOfLast(0))
}
