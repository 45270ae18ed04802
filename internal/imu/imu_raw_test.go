// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountsPerG(t *testing.T) {
	assert.Equal(t, 16384.0, CountsPerG(0))
	assert.Equal(t, 8192.0, CountsPerG(1))
	assert.Equal(t, 4096.0, CountsPerG(2))
	assert.Equal(t, 2048.0, CountsPerG(3))
}

func TestIMURawSample(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := IMURaw{Source: "spi", Ax: 0, Ay: -8192, Az: 16384}.Sample(0, now)

	assert.Equal(t, "spi", s.Source)
	assert.Equal(t, now, s.Time)
	assert.InDelta(t, 0, s.Accel[0], 1e-12)
	assert.InDelta(t, -StandardGravity/2, s.Accel[1], 1e-12)
	assert.InDelta(t, StandardGravity, s.Accel[2], 1e-12)

	s = IMURaw{Az: 4096}.Sample(2, now)
	assert.InDelta(t, StandardGravity, s.Accel[2], 1e-12)
}
