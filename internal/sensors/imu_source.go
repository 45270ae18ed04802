// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/clinometer/internal/imu"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

const imuSourceName = "mpu9250"

// IMUSource reads the accelerometer of an MPU9250 over SPI.
type IMUSource struct {
	dev        *mpu9250.MPU9250
	accelRange byte
}

// NewIMUSource initializes the MPU9250 on spiDev with chip select csPin.
func NewIMUSource(spiDev, csPin string, accelRange byte) (*IMUSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange&0x03])

	// The device must sit still during the factory self-test, so a failure
	// is only reported.
	if res, err := dev.SelfTest(); err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	} else {
		log.Printf("IMU self-test passed: accelerometer deviation X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			res.AccelDeviation.X, res.AccelDeviation.Y, res.AccelDeviation.Z)
	}

	return &IMUSource{dev: dev, accelRange: accelRange}, nil
}

// ReadRaw reads the accelerometer counts.
func (s *IMUSource) ReadRaw() (imu.IMURaw, error) {
	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Z: %w", err)
	}
	return imu.IMURaw{Source: imuSourceName, Ax: ax, Ay: ay, Az: az}, nil
}

func (s *IMUSource) Next() (imu.Sample, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return imu.Sample{}, err
	}
	return raw.Sample(s.accelRange, time.Now()), nil
}

// Close is a no-op; the SPI port stays owned by the periph host.
func (s *IMUSource) Close() error { return nil }
