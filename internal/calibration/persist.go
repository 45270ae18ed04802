// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/relabs-tech/clinometer/internal/store"
)

const KeyTime = "calibration.time" // unix milliseconds

func keyGain(i int) string   { return fmt.Sprintf("calibration.gain%d", i) }
func keyOffset(i int) string { return fmt.Sprintf("calibration.offset%d", i) }
func keyAngle(i int) string  { return fmt.Sprintf("calibration.angle%d", i) }

// Keys lists every key written by Save.
func Keys() []string {
	keys := make([]string, 0, 10)
	for i := 0; i < 3; i++ {
		keys = append(keys, keyAngle(i), keyGain(i), keyOffset(i))
	}
	return append(keys, KeyTime)
}

// Values flattens r into the persisted key/value form.
func (r Result) Values() map[string]float64 {
	v := make(map[string]float64, 10)
	for i := 0; i < 3; i++ {
		v[keyGain(i)] = r.Gain[i]
		v[keyOffset(i)] = r.Offset[i]
		v[keyAngle(i)] = r.Angle[i]
	}
	v[KeyTime] = float64(r.Time.UnixMilli())
	return v
}

// Load reads the stored calibration. Without a stored timestamp the device
// is uncalibrated and Identity is returned. Individual missing values fall
// back to the identity value. A stored gain too small to divide by is
// reported as ErrCalibrationFailed together with Identity.
func Load(s store.Store) (Result, bool, error) {
	res := Identity()

	ms, ok, err := s.Get(KeyTime)
	if err != nil {
		return res, false, fmt.Errorf("failed to load calibration: %w", err)
	}
	if !ok {
		return res, false, nil
	}
	res.Time = time.UnixMilli(int64(ms))

	read := func(key string, dst *float64) error {
		v, ok, err := s.Get(key)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", key, err)
		}
		if ok {
			*dst = v
		}
		return nil
	}
	for i := 0; i < 3; i++ {
		if err := read(keyGain(i), &res.Gain[i]); err != nil {
			return Identity(), false, err
		}
		if err := read(keyOffset(i), &res.Offset[i]); err != nil {
			return Identity(), false, err
		}
		if err := read(keyAngle(i), &res.Angle[i]); err != nil {
			return Identity(), false, err
		}
	}
	for axis, gain := range res.Gain {
		if math.Abs(gain) < minGain || math.IsNaN(gain) || math.IsInf(gain, 0) {
			return Identity(), false, fmt.Errorf("%w: stored gain %d is %g", ErrCalibrationFailed, axis, gain)
		}
	}
	return res, true, nil
}

// Save persists r in a single update.
func Save(s store.Store, r Result) error {
	if err := s.SetMany(r.Values()); err != nil {
		return fmt.Errorf("failed to save calibration: %w", err)
	}
	return nil
}

// Reset removes the stored calibration.
func Reset(s store.Store) error {
	if err := s.Delete(Keys()...); err != nil {
		return fmt.Errorf("failed to reset calibration: %w", err)
	}
	return nil
}

// Summary is a one-line status of the calibration.
func Summary(r Result, calibrated bool, now time.Time) string {
	if !calibrated {
		return "not calibrated"
	}
	return fmt.Sprintf("calibrated %s (%s); gain %.4f %.4f %.4f; offset %+.4f %+.4f %+.4f; angle %+.2f° %+.2f° %+.2f°",
		humanize.RelTime(r.Time, now, "ago", "from now"), r.Time.Format(time.RFC3339),
		r.Gain[0], r.Gain[1], r.Gain[2],
		r.Offset[0], r.Offset[1], r.Offset[2],
		r.Angle[0], r.Angle[1], r.Angle[2])
}
