// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/clinometer/internal/calibration"
	"github.com/relabs-tech/clinometer/internal/sensors"
	"github.com/relabs-tech/clinometer/internal/store"
)

// consoleProgressEvery is how often, in samples, capture progress is printed.
const consoleProgressEvery = 50

// RunCalibrationConsole walks the user through the seven poses on a
// terminal, then saves the result to st. interval paces reads from src; zero
// reads as fast as src delivers.
func RunCalibrationConsole(in io.Reader, out io.Writer, src sensors.Source, st store.Store, interval time.Duration) (calibration.Result, error) {
	reader := bufio.NewReader(in)
	solver := calibration.NewSolver()

	fmt.Fprintln(out, "=== Guided Calibration (7 poses) ===")
	fmt.Fprintln(out, "Keep the device still during each capture. Moving it restarts the pose.")

	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for !solver.State().Done() {
		state := solver.State()
		fmt.Fprintf(out, "\nPose %d/%d (%s): %s\n", int(state.Pose)+1, calibration.NumPoses, state.Pose, state.Pose.Instruction())
		if err := waitEnter(reader, out, "Press ENTER to start capture..."); err != nil {
			return calibration.Result{}, fmt.Errorf("calibration aborted at pose %s: %w", state.Pose, err)
		}

		if _, err := solver.Confirm(); err != nil {
			return calibration.Result{}, err
		}

		samples := 0
		for solver.State().Phase == calibration.PhaseCapture {
			if ticker != nil {
				<-ticker.C
			}
			sample, err := src.Next()
			if err != nil {
				return calibration.Result{}, fmt.Errorf("read sample: %w", err)
			}
			if _, err := solver.Feed(sample.Accel); err != nil {
				return calibration.Result{}, err
			}

			samples++
			if samples%consoleProgressEvery == 0 && solver.State().Phase == calibration.PhaseCapture {
				p := solver.Progress()
				fmt.Fprintf(out, "  loaded %5.1f%%  tolerance %.4f  restarts %d\n", p.Loaded, p.Tolerance, p.Restarts)
			}
		}

		if solver.State().Phase != calibration.PhaseFailed {
			v := solver.Captured(state.Pose)
			fmt.Fprintf(out, "  Pose %s: mean=(%+.4f, %+.4f, %+.4f)\n", state.Pose, v[0], v[1], v[2])
		}
	}

	res, ok := solver.Result()
	if !ok {
		return calibration.Result{}, solver.Err()
	}
	if err := calibration.Save(st, res); err != nil {
		return calibration.Result{}, err
	}

	fmt.Fprintln(out, "\n=== Calibration complete ===")
	fmt.Fprintf(out, "gain   = (%.5f, %.5f, %.5f)\n", res.Gain[0], res.Gain[1], res.Gain[2])
	fmt.Fprintf(out, "offset = (%.5f, %.5f, %.5f)\n", res.Offset[0], res.Offset[1], res.Offset[2])
	fmt.Fprintf(out, "angle  = (%.3f, %.3f, %.3f)\n", res.Angle[0], res.Angle[1], res.Angle[2])
	fmt.Fprintln(out, calibration.Summary(res, true, time.Now()))
	return res, nil
}

// waitEnter returns an error when in ends before a full line is read.
func waitEnter(in *bufio.Reader, out io.Writer, prompt string) error {
	fmt.Fprint(out, prompt)
	_, err := in.ReadString('\n')
	return err
}
