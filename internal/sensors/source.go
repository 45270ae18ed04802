// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides accelerometer sample sources: an MPU9250 on SPI,
// a serial line device and a synthetic mock.
package sensors

import (
	"fmt"

	"github.com/relabs-tech/clinometer/internal/config"
	"github.com/relabs-tech/clinometer/internal/imu"
)

// Source delivers accelerometer samples in m/s². Next blocks until a
// sample is available.
type Source interface {
	Next() (imu.Sample, error)
	Close() error
}

// New opens the source selected by cfg.SensorSource.
func New(cfg *config.Config) (Source, error) {
	switch cfg.SensorSource {
	case config.SourceMPU9250:
		src, err := NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceSerial:
		src, err := NewSerialSource(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceMock:
		return NewMockSource(), nil
	}
	return nil, fmt.Errorf("unknown sensor source %q", cfg.SensorSource)
}
