// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command calibration runs the seven pose accelerometer calibration on the
// terminal and stores the result where the service loads it from.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/relabs-tech/clinometer/internal/app"
	"github.com/relabs-tech/clinometer/internal/config"
	"github.com/relabs-tech/clinometer/internal/sensors"
	"github.com/relabs-tech/clinometer/internal/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	cfg := config.Get()

	src, err := sensors.New(cfg)
	if err != nil {
		fatal(fmt.Errorf("%s source init failed: %w", cfg.SensorSource, err))
	}
	defer src.Close()

	st, err := store.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	fmt.Printf("Source: %s, results stored in %s (%s)\n\n", cfg.SensorSource, cfg.StorePath, cfg.StoreBackend)

	interval := time.Duration(cfg.SampleInterval) * time.Millisecond
	if _, err := app.RunCalibrationConsole(os.Stdin, os.Stdout, src, st, interval); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
