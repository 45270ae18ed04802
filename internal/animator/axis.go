// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package animator

import (
	"context"
	"sync"
	"time"
)

// Axis is a Controller shared between its own ticker and the goroutines
// that set targets and read values.
type Axis struct {
	mu   sync.Mutex
	ctrl *Controller
}

func NewAxis(c *Controller) *Axis {
	return &Axis{ctrl: c}
}

// Run ticks the controller every period until ctx is done.
func (a *Axis) Run(ctx context.Context) error {
	a.mu.Lock()
	period := a.ctrl.Period()
	a.mu.Unlock()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Tick()
		}
	}
}

func (a *Axis) Tick() {
	a.mu.Lock()
	a.ctrl.Tick()
	a.mu.Unlock()
}

func (a *Axis) SetTarget(r float64) {
	a.mu.Lock()
	a.ctrl.SetTarget(r)
	a.mu.Unlock()
}

func (a *Axis) SetValue(v float64) {
	a.mu.Lock()
	a.ctrl.SetValue(v)
	a.mu.Unlock()
}

func (a *Axis) Value() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctrl.Value()
}

func (a *Axis) Target() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctrl.Target()
}
