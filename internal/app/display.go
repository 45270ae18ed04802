// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/clinometer/internal/config"
	"github.com/relabs-tech/clinometer/internal/format"
)

const (
	displayWidth      = 128
	displayHeight     = 64
	displayLineHeight = 13
)

// DisplayData holds the latest reading received for the display.
type DisplayData struct {
	mu   sync.RWMutex
	snap Snapshot
	have bool
}

func (d *DisplayData) set(s Snapshot) {
	d.mu.Lock()
	d.snap = s
	d.have = true
	d.mu.Unlock()
}

func (d *DisplayData) get() (Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap, d.have
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on I2C bus %q", cfg.DisplayI2CBus)

	if err := drawLines(dev, []string{"", "  Clinometer", "  waiting..."}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	data := &DisplayData{}
	if err := subscribeJSON(client, cfg.TopicReading, "display", data.set); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for range ticker.C {
		snap, have := data.get()
		if err := drawLines(dev, displayLines(snap, have, cfg.DisplayUnit)); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}

// displayLines lays out a reading as four 18 column text lines: the three
// axis angles and a status line.
func displayLines(s Snapshot, have bool, unit format.Unit) []string {
	if !have {
		return []string{"Clinometer", "Waiting..."}
	}

	lines := make([]string, 0, 4)
	for i, axis := range []string{"X", "Y", "Z"} {
		lines = append(lines, fmt.Sprintf("%s %9s", axis, format.Angle(s.Angle[i], unit)))
	}

	status := fmt.Sprintf("R%-3d", s.Rotation)
	if s.Flat {
		status += " FLAT"
	}
	switch {
	case s.Locked:
		status += " LOCK"
	case s.LockRequested:
		status += " WAIT"
	}
	if !s.HasCalibration {
		status += " !CAL"
	}
	return append(lines, status)
}

// renderLines draws lines top to bottom on a blank display image.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, (i+1)*displayLineHeight)
		drawer.DrawString(line)
	}
	return img
}

func drawLines(dev *ssd1306.Dev, lines []string) error {
	return dev.Draw(dev.Bounds(), renderLines(lines), image.Point{})
}
