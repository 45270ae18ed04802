// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/clinometer/internal/imu"
)

const serialSourceName = "serial"

// SerialSource reads "x,y,z" lines in m/s² from a serial accelerometer.
// Lines starting with '#' and lines that fail to parse are skipped.
type SerialSource struct {
	port   io.ReadCloser
	reader *bufio.Reader
	now    func() time.Time
}

func NewSerialSource(portName string, baudRate int) (*SerialSource, error) {
	serialOpts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("serial source: open %s: %w", portName, err)
	}
	log.Printf("serial source opened on %s at %d baud", portName, baudRate)

	return newSerialSource(port), nil
}

func newSerialSource(port io.ReadCloser) *SerialSource {
	return &SerialSource{port: port, reader: bufio.NewReader(port), now: time.Now}
}

func (s *SerialSource) Next() (imu.Sample, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return imu.Sample{}, fmt.Errorf("serial source: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		v, perr := ParseLine(line)
		if perr != nil {
			// partial lines are common right after opening the port
			continue
		}
		return imu.Sample{Source: serialSourceName, Time: s.now(), Accel: v}, nil
	}
}

func (s *SerialSource) Close() error { return s.port.Close() }

// ParseLine parses three comma, semicolon or space separated floats.
func ParseLine(line string) (imu.Vector, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return imu.Vector{}, fmt.Errorf("want 3 values, got %d in %q", len(fields), line)
	}

	var v imu.Vector
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return imu.Vector{}, fmt.Errorf("axis %d: %w", i, err)
		}
		v[i] = x
	}
	return v, nil
}
