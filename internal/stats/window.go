// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package stats provides the fixed-size streaming statistics used to
// stabilize accelerometer readings and to detect when the device is still.
package stats

import "math"

// ConfidenceZ is the z-score of a two-sided 95% confidence interval.
const ConfidenceZ = 1.96

// stableSamples is the loaded count above which a window is considered
// stable enough for its tolerance to be meaningful.
const stableSamples = 10

// Window is a circular buffer of the last N samples with cached
// population statistics. It is not safe for concurrent use.
type Window struct {
	buf    []float64
	pos    int // next slot to write
	loaded int // saturates at len(buf)

	mean      float64
	variance  float64
	stddev    float64
	tolerance float64
}

// NewWindow returns an empty window holding up to size samples.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{buf: make([]float64, size)}
}

// Insert overwrites the oldest slot with v and recomputes the statistics.
func (w *Window) Insert(v float64) {
	w.buf[w.pos] = v
	w.pos = (w.pos + 1) % len(w.buf)
	if w.loaded < len(w.buf) {
		w.loaded++
	}
	w.recompute()
}

// ResetTo fills the whole buffer with v. The window counts as full, with
// mean v and zero spread.
func (w *Window) ResetTo(v float64) {
	for i := range w.buf {
		w.buf[i] = v
	}
	w.pos = 0
	w.loaded = len(w.buf)
	w.mean = v
	w.variance = 0
	w.stddev = 0
	w.tolerance = 0
}

// Reset empties the window.
func (w *Window) Reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.pos = 0
	w.loaded = 0
	w.mean = 0
	w.variance = 0
	w.stddev = 0
	w.tolerance = 0
}

// recompute walks the loaded slots. After Reset writes start at slot 0, so
// the loaded samples are always buf[:loaded].
func (w *Window) recompute() {
	n := w.loaded
	if n == 0 {
		return
	}
	var sum float64
	for _, v := range w.buf[:n] {
		sum += v
	}
	mean := sum / float64(n)

	var ss float64
	for _, v := range w.buf[:n] {
		d := v - mean
		ss += d * d
	}

	w.mean = mean
	w.variance = ss / float64(n)
	w.stddev = math.Sqrt(w.variance)
	w.tolerance = ConfidenceZ * w.stddev / math.Sqrt(float64(n))
}

// MeanOfLast returns the mean of the k most recent samples. k is clamped
// to the loaded count; an empty window yields 0.
func (w *Window) MeanOfLast(k int) float64 {
	if k > w.loaded {
		k = w.loaded
	}
	if k <= 0 {
		return 0
	}
	size := len(w.buf)
	var sum float64
	for i := 1; i <= k; i++ {
		sum += w.buf[(w.pos-i+size)%size]
	}
	return sum / float64(k)
}

func (w *Window) Mean() float64      { return w.mean }
func (w *Window) Variance() float64  { return w.variance }
func (w *Window) StdDev() float64    { return w.stddev }
func (w *Window) Tolerance() float64 { return w.tolerance }
func (w *Window) Size() int          { return len(w.buf) }
func (w *Window) Loaded() int        { return w.loaded }

// PercentLoaded reports how much of the window has been filled, 0 to 100.
func (w *Window) PercentLoaded() float64 {
	return math.Min(100, 100*float64(w.loaded)/float64(len(w.buf)))
}

// IsStable reports whether enough samples are loaded for the tolerance to
// be used as a stillness criterion.
func (w *Window) IsStable() bool { return w.loaded > stableSamples }

// IsFull reports whether every slot holds a sample.
func (w *Window) IsFull() bool { return w.loaded >= len(w.buf) }
