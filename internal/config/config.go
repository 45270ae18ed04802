// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/clinometer/internal/animator"
	"github.com/relabs-tech/clinometer/internal/format"
	"github.com/relabs-tech/clinometer/internal/store"
)

// DefaultPath is the file the commands load when no -config flag is given.
const DefaultPath = "clinometer_config.txt"

// Sensor sources.
const (
	SourceMPU9250 = "mpu9250"
	SourceSerial  = "serial"
	SourceMock    = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDService string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicReading     string
	TopicRaw         string
	TopicCalibration string

	// Sensor
	SensorSource string
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange  byte
	SerialPort     string
	SerialBaudRate int
	SampleInterval int // milliseconds

	// Fusion
	SmoothingAlpha       float64
	GravityWindow        int
	AngleWindow          int
	AutoLockEnabled      bool
	AutoLockHorizonCheck bool
	AutoLockPrecision    int // 0 (loose) to 1000 (strict)

	// Reference axis animation
	PIDKp     float64
	PIDKi     float64
	PIDKd     float64
	PIDPeriod int // milliseconds

	// Calibration store
	StoreBackend string // file, sqlite or memory
	StorePath    string

	// Web Server
	WebServerPort  int
	MetricsEnabled bool

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds
	DisplayUnit           format.Unit

	ConsoleLogInterval int // milliseconds
}

// globalConfig is only reachable through InitGlobal and Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDService: "clinometer-service",
		MQTTClientIDConsole: "clinometer-console",
		MQTTClientIDDisplay: "clinometer-display",

		TopicReading:     "clinometer/reading",
		TopicRaw:         "clinometer/raw",
		TopicCalibration: "clinometer/calibration",

		SensorSource:   SourceMPU9250,
		IMUSPIDevice:   "/dev/spidev0.0",
		IMUCSPin:       "8",
		IMUAccelRange:  0,
		SerialBaudRate: 115200,
		SampleInterval: 10,

		SmoothingAlpha:       0.04,
		GravityWindow:        16,
		AngleWindow:          200,
		AutoLockHorizonCheck: true,
		AutoLockPrecision:    500,

		PIDKp:     0.3,
		PIDKi:     0,
		PIDKd:     0.03,
		PIDPeriod: 16,

		StoreBackend: store.BackendFile,
		StorePath:    "clinometer_calibration.yaml",

		WebServerPort:  8080,
		MetricsEnabled: true,

		DisplayI2CBus:         "",
		DisplayUpdateInterval: 200,
		DisplayUnit:           format.Degrees,

		ConsoleLogInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, v)
	}
	return v, nil
}

func parseFloat(key, value string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be %g-%g, got %g", key, min, max, v)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_SERVICE":
		c.MQTTClientIDService = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_READING":
		c.TopicReading = value
	case "TOPIC_RAW":
		c.TopicRaw = value
	case "TOPIC_CALIBRATION":
		c.TopicCalibration = value

	// Sensor
	case "SENSOR_SOURCE":
		switch value {
		case SourceMPU9250, SourceSerial, SourceMock:
			c.SensorSource = value
		default:
			return fmt.Errorf("SENSOR_SOURCE must be %s, %s or %s, got %q", SourceMPU9250, SourceSerial, SourceMock, value)
		}
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value, 300, 4000000)
	case "SAMPLE_INTERVAL":
		c.SampleInterval, err = parseInt(key, value, 1, 1000)

	// Fusion
	case "SMOOTHING_ALPHA":
		c.SmoothingAlpha, err = parseFloat(key, value, 0.001, 1)
	case "GRAVITY_WINDOW":
		c.GravityWindow, err = parseInt(key, value, 1, 1000)
	case "ANGLE_WINDOW":
		c.AngleWindow, err = parseInt(key, value, 1, 10000)
	case "AUTOLOCK_ENABLED":
		c.AutoLockEnabled, err = parseBool(key, value)
	case "AUTOLOCK_HORIZON_CHECK":
		c.AutoLockHorizonCheck, err = parseBool(key, value)
	case "AUTOLOCK_PRECISION":
		c.AutoLockPrecision, err = parseInt(key, value, 0, 1000)

	// Reference axis animation
	case "PID_KP":
		c.PIDKp, err = parseFloat(key, value, 0, 100)
	case "PID_KI":
		c.PIDKi, err = parseFloat(key, value, 0, 100)
	case "PID_KD":
		c.PIDKd, err = parseFloat(key, value, 0, 100)
	case "PID_PERIOD":
		c.PIDPeriod, err = parseInt(key, value, 1, 1000)

	// Calibration store
	case "STORE_BACKEND":
		c.StoreBackend = value
	case "STORE_PATH":
		c.StorePath = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)
	case "METRICS_ENABLED":
		c.MetricsEnabled, err = parseBool(key, value)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 10, 60000)
	case "DISPLAY_UNIT":
		u, perr := format.ParseUnit(value)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_UNIT: %w", perr)
		}
		c.DisplayUnit = u

	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value, 10, 60000)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field requirements.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.SensorSource {
	case SourceMPU9250:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for SENSOR_SOURCE=%s", c.SensorSource)
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SENSOR_SOURCE=%s", c.SensorSource)
		}
	}
	if maxKd := animator.MaxKd(time.Duration(c.PIDPeriod) * time.Millisecond); c.PIDKd >= maxKd {
		return fmt.Errorf("PID_KD=%g diverges with PID_PERIOD=%dms (must be below %.4f)", c.PIDKd, c.PIDPeriod, maxKd)
	}
	switch c.StoreBackend {
	case store.BackendMemory:
	case store.BackendFile, store.BackendSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("STORE_PATH is required for STORE_BACKEND=%s", c.StoreBackend)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be file, sqlite or memory, got %q", c.StoreBackend)
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Only the first
// call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
