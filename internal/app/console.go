// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/clinometer/internal/config"
	"github.com/relabs-tech/clinometer/internal/format"
	"github.com/relabs-tech/clinometer/internal/sensors"
	"github.com/relabs-tech/clinometer/internal/store"
)

// RunConsole runs the engine on the configured source and prints the
// angles every CONSOLE_LOG_INTERVAL, without MQTT or HTTP.
func RunConsole() error {
	cfg := config.Get()

	src, err := sensors.New(cfg)
	if err != nil {
		return fmt.Errorf("open %s source: %w", cfg.SensorSource, err)
	}
	defer src.Close()

	st, err := store.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	defer st.Close()

	svc, err := NewService(OptionsFromConfig(cfg), src, st, nil, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	ticker := time.NewTicker(time.Duration(cfg.ConsoleLogInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			if snap, ok := svc.Snapshot(); ok {
				fmt.Println(consoleLine(snap, cfg.DisplayUnit))
			} else {
				log.Println("console: waiting for samples")
			}
		}
	}
}

// consoleLine renders a reading as one line of text.
func consoleLine(s Snapshot, unit format.Unit) string {
	flags := ""
	if s.Flat {
		flags += " FLAT"
	}
	switch {
	case s.Locked:
		flags += " LOCKED"
	case s.LockRequested:
		flags += " LOCKING"
	}
	return fmt.Sprintf(
		"[ANGLE] X=%8s  Y=%8s  Z=%8s  XY=%8s  ROT=%3d  G=%6.3f%s",
		format.Angle(s.Angle[0], unit),
		format.Angle(s.Angle[1], unit),
		format.Angle(s.Angle[2], unit),
		format.Angle(s.LabelAngle, unit),
		s.Rotation, s.GravityXYZ, flags,
	)
}
