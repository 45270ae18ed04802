// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/clinometer/internal/config"
	"github.com/relabs-tech/clinometer/internal/imu"
)

func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeJSON(client, cfg.TopicReading, "console", func(s Snapshot) {
		fmt.Println(consoleLine(s, cfg.DisplayUnit))
	}); err != nil {
		return err
	}

	if err := subscribeJSON(client, cfg.TopicRaw, "console", func(s imu.Sample) {
		fmt.Printf("[RAW]   ax=%8.4f ay=%8.4f az=%8.4f  (%s)\n", s.Accel[0], s.Accel[1], s.Accel[2], s.Source)
	}); err != nil {
		return err
	}

	if err := subscribeJSON(client, cfg.TopicCalibration, "console", func(ev CalibrationEvent) {
		fmt.Println(eventLine(ev))
	}); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("console: shutting down")
	return nil
}

// eventLine renders a calibration event as one line of text.
func eventLine(ev CalibrationEvent) string {
	line := fmt.Sprintf("[CAL]   %s %s", ev.Time.Format("2006-01-02 15:04:05"), ev.Outcome)
	if ev.Result != nil {
		r := ev.Result
		line += fmt.Sprintf(" gain=(%.4f %.4f %.4f) offset=(%.4f %.4f %.4f) angle=(%.2f %.2f %.2f)",
			r.Gain[0], r.Gain[1], r.Gain[2],
			r.Offset[0], r.Offset[1], r.Offset[2],
			r.Angle[0], r.Angle[1], r.Angle[2])
	}
	if ev.Message != "" {
		line += ": " + ev.Message
	}
	return line
}
