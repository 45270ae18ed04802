// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/clinometer/internal/format"
)

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("# nothing here\n\n"))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOverrides(t *testing.T) {
	in := `
# broker
MQTT_BROKER = tcp://broker:1883
SENSOR_SOURCE=serial
SERIAL_PORT=/dev/ttyUSB0
SERIAL_BAUD_RATE=57600
IMU_ACCEL_RANGE=2
SMOOTHING_ALPHA=0.1
AUTOLOCK_ENABLED=true
AUTOLOCK_HORIZON_CHECK=false
AUTOLOCK_PRECISION=900
PID_KD=0.05
STORE_BACKEND=sqlite
STORE_PATH=/var/lib/clinometer.db
DISPLAY_UNIT=percent
METRICS_ENABLED=0
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	want := Default()
	want.MQTTBroker = "tcp://broker:1883"
	want.SensorSource = SourceSerial
	want.SerialPort = "/dev/ttyUSB0"
	want.SerialBaudRate = 57600
	want.IMUAccelRange = 2
	want.SmoothingAlpha = 0.1
	want.AutoLockEnabled = true
	want.AutoLockHorizonCheck = false
	want.AutoLockPrecision = 900
	want.PIDKd = 0.05
	want.StoreBackend = "sqlite"
	want.StorePath = "/var/lib/clinometer.db"
	want.DisplayUnit = format.Percent
	want.MetricsEnabled = false

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"missing equals":     "MQTT_BROKER",
		"unknown key":        "WEATHER=sunny",
		"accel range":        "IMU_ACCEL_RANGE=4",
		"not a number":       "SAMPLE_INTERVAL=fast",
		"precision range":    "AUTOLOCK_PRECISION=1001",
		"alpha range":        "SMOOTHING_ALPHA=2",
		"bad bool":           "AUTOLOCK_ENABLED=maybe",
		"bad source":         "SENSOR_SOURCE=gps",
		"bad unit":           "DISPLAY_UNIT=furlongs",
		"serial needs port":  "SENSOR_SOURCE=serial",
		"bad backend":        "STORE_BACKEND=redis",
		"file needs path":    "STORE_PATH=",
		"broker is required": "MQTT_BROKER=",
		"unstable pid":       "PID_KD=0.1",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestParseReportsLine(t *testing.T) {
	_, err := Parse(strings.NewReader("MQTT_BROKER=tcp://x:1883\n\nPID_PERIOD=0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config line 3")
}

func TestLoadAndGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinometer_config.txt")
	require.NoError(t, os.WriteFile(path, []byte("SENSOR_SOURCE=mock\nWEB_SERVER_PORT=9090\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceMock, cfg.SensorSource)
	assert.Equal(t, 9090, cfg.WebServerPort)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, 9090, Get().WebServerPort)
}
