// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration implements the seven-pose accelerometer calibration:
// a state machine that captures a stabilized reading per pose and the solve
// that turns them into per-axis gain/offset and mounting angles.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/clinometer/internal/imu"
	"github.com/relabs-tech/clinometer/internal/monitoring"
	"github.com/relabs-tech/clinometer/internal/stats"
)

const (
	WindowSize     = 300  // samples per pose capture
	DiscardSamples = 20   // settling samples skipped on entering a capture
	MeanSamples    = 200  // most recent samples averaged into the pose reading
	MaxTolerance   = 0.05 // m/s²; above this the device is considered moving

	minGain = 1e-6
)

var (
	// ErrCalibrationFailed is returned when the captured poses produce a
	// degenerate gain, e.g. both readings of an axis pair coincide.
	ErrCalibrationFailed = errors.New("calibration failed")

	// ErrInvalidEvent is returned for an event the current state does not accept.
	ErrInvalidEvent = errors.New("calibration: event not valid in current state")
)

// Phase is the stage of the wizard for the current pose.
type Phase int

const (
	PhaseInstruct Phase = iota // waiting for the user to place the device
	PhaseCapture               // collecting samples
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInstruct:
		return "instruct"
	case PhaseCapture:
		return "capture"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// State is the wizard position. Pose is meaningless once Completed or Failed.
type State struct {
	Phase Phase `json:"phase"`
	Pose  Pose  `json:"pose"`
}

func (s State) String() string {
	switch s.Phase {
	case PhaseInstruct, PhaseCapture:
		return fmt.Sprintf("%s(%d/%d %s)", s.Phase, int(s.Pose)+1, NumPoses, s.Pose)
	}
	return s.Phase.String()
}

// Done reports whether the wizard reached a terminal state.
func (s State) Done() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseFailed
}

type EventKind int

const (
	UserConfirmed EventKind = iota
	SampleReceived
)

// Event drives the solver. Sample is only read for SampleReceived.
type Event struct {
	Kind   EventKind
	Sample imu.Vector
}

// Progress describes the current capture for user feedback.
type Progress struct {
	State     State   `json:"state"`
	Percent   float64 `json:"percent"`   // 0-100 over the whole wizard
	Loaded    float64 `json:"loaded"`    // 0-100 of the current pose window
	Tolerance float64 `json:"tolerance"` // current x-axis tolerance, m/s²
	Restarts  int     `json:"restarts"`  // captures restarted because the device moved
}

// Solver is the calibration wizard. It is driven by a single goroutine.
type Solver struct {
	state     State
	windows   [3]*stats.Window
	discarded int
	restarts  int
	means     [3][NumPoses]float64

	result Result
	err    error

	now func() time.Time
}

// NewSolver returns a wizard waiting for the first pose.
func NewSolver() *Solver {
	s := &Solver{
		state: State{Phase: PhaseInstruct, Pose: PoseFlat},
		now:   time.Now,
	}
	for i := range s.windows {
		s.windows[i] = stats.NewWindow(WindowSize)
	}
	return s
}

func (s *Solver) State() State { return s.state }

// Confirm signals that the device is in place for the current pose.
func (s *Solver) Confirm() (State, error) {
	return s.Handle(Event{Kind: UserConfirmed})
}

// Feed delivers one accelerometer sample in m/s².
func (s *Solver) Feed(v imu.Vector) (State, error) {
	return s.Handle(Event{Kind: SampleReceived, Sample: v})
}

// Handle is the transition function. Samples outside a capture are
// ignored; a confirmation outside Instruct returns ErrInvalidEvent.
func (s *Solver) Handle(ev Event) (State, error) {
	switch ev.Kind {
	case UserConfirmed:
		if s.state.Phase != PhaseInstruct {
			return s.state, fmt.Errorf("%w: confirm in %s", ErrInvalidEvent, s.state)
		}
		s.startCapture()
		return s.state, nil

	case SampleReceived:
		if s.state.Phase != PhaseCapture {
			return s.state, nil
		}
		return s.state, s.capture(ev.Sample)
	}
	return s.state, fmt.Errorf("%w: kind %d", ErrInvalidEvent, ev.Kind)
}

func (s *Solver) startCapture() {
	for _, w := range s.windows {
		w.Reset()
	}
	s.discarded = 0
	s.state.Phase = PhaseCapture
	monitoring.Logf("calibration: capturing %s", s.state)
}

func (s *Solver) capture(v imu.Vector) error {
	if s.discarded < DiscardSamples {
		s.discarded++
		return nil
	}

	for i, w := range s.windows {
		w.Insert(v[i])
	}

	x := s.windows[0]
	if x.IsStable() && x.Tolerance() > MaxTolerance {
		for _, w := range s.windows {
			w.Reset()
		}
		s.restarts++
		return nil
	}
	if !x.IsFull() {
		return nil
	}

	pose := s.state.Pose
	for i, w := range s.windows {
		s.means[i][pose] = w.MeanOfLast(MeanSamples)
	}
	monitoring.Logf("calibration: %s captured (%+.4f %+.4f %+.4f)",
		pose, s.means[0][pose], s.means[1][pose], s.means[2][pose])

	if int(pose)+1 < NumPoses {
		s.state = State{Phase: PhaseInstruct, Pose: pose + 1}
		return nil
	}

	res, err := Solve(s.means, s.now())
	if err != nil {
		s.state = State{Phase: PhaseFailed}
		s.err = err
		monitoring.Logf("calibration: %v", err)
		return err
	}
	s.result = res
	s.state = State{Phase: PhaseCompleted}
	monitoring.Logf("calibration: completed gain=%v offset=%v angle=%v", res.Gain, res.Offset, res.Angle)
	return nil
}

// Progress reports the wizard's advance for display.
func (s *Solver) Progress() Progress {
	p := Progress{State: s.state, Restarts: s.restarts}
	switch s.state.Phase {
	case PhaseCompleted, PhaseFailed:
		p.Percent = 100
		return p
	case PhaseCapture:
		p.Loaded = s.windows[0].PercentLoaded()
		p.Tolerance = s.windows[0].Tolerance()
	}
	p.Percent = (float64(s.state.Pose)*100 + p.Loaded) / NumPoses
	return p
}

// Result returns the solved calibration once the wizard completed.
func (s *Solver) Result() (Result, bool) {
	return s.result, s.state.Phase == PhaseCompleted
}

// Err returns the failure that ended the wizard, if any.
func (s *Solver) Err() error { return s.err }

// Captured returns the raw mean reading captured for pose.
func (s *Solver) Captured(p Pose) imu.Vector {
	return imu.Vector{s.means[0][p], s.means[1][p], s.means[2][p]}
}

// Solve derives the calibration from the mean reading of each pose, indexed
// [axis][pose].
//
// Each axis is measured at +g and -g: x in the edge poses, y in the
// upright poses and z flat versus face down. The mounting angles only use
// the two flat poses and the two edge poses.
func Solve(means [3][NumPoses]float64, at time.Time) (Result, error) {
	pairs := [3][2]Pose{
		{PoseLeftEdge, PoseRightEdge},
		{PoseBottomEdge, PoseTopEdge},
		{PoseFlat, PoseFaceDown},
	}

	res := Result{Time: at}
	for axis, pr := range pairs {
		plus, minus := means[axis][pr[0]], means[axis][pr[1]]
		res.Offset[axis] = (plus + minus) / 2
		res.Gain[axis] = (plus - minus) / (2 * imu.StandardGravity)
		if math.Abs(res.Gain[axis]) < minGain || math.IsNaN(res.Gain[axis]) {
			return Result{}, fmt.Errorf("%w: axis %d gain %g (readings %+.4f/%+.4f)",
				ErrCalibrationFailed, axis, res.Gain[axis], plus, minus)
		}
	}

	// angle[axis][pose] of the corrected readings, degrees
	var angle [3][NumPoses]float64
	for p := 0; p < NumPoses; p++ {
		c := res.Correct(imu.Vector{means[0][p], means[1][p], means[2][p]})
		mag := math.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
		if mag == 0 {
			continue
		}
		for axis := range c {
			angle[axis][p] = math.Asin(c[axis]/mag) * 180 / math.Pi
		}
	}

	res.Angle[2] = (angle[0][PoseFlat] + angle[0][PoseFlatRotated]) / 2
	res.Angle[1] = -(angle[1][PoseFlat] + angle[1][PoseFlatRotated]) / 2
	res.Angle[0] = -(angle[1][PoseRightEdge] + angle[1][PoseLeftEdge]) / 2

	return res, nil
}
