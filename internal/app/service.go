// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/clinometer/internal/animator"
	"github.com/relabs-tech/clinometer/internal/calibration"
	"github.com/relabs-tech/clinometer/internal/config"
	"github.com/relabs-tech/clinometer/internal/fusion"
	"github.com/relabs-tech/clinometer/internal/imu"
	"github.com/relabs-tech/clinometer/internal/metrics"
	"github.com/relabs-tech/clinometer/internal/sensors"
	"github.com/relabs-tech/clinometer/internal/store"
)

var (
	ErrWizardBusy      = errors.New("calibration wizard already running")
	ErrNoWizard        = errors.New("no calibration wizard running")
	ErrInvalidTarget   = errors.New("reference target must be 0, 90, 180 or 270")
	ErrInvalidAutoLock = errors.New("auto-lock precision must be between 0 and 1000")
	ErrServiceStopped  = errors.New("service stopped")
)

// Calibration event outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeReset     = "reset"
)

// wizardProgressEvery throttles capture progress updates, in samples.
const wizardProgressEvery = 10

// Snapshot is the service state after the latest sample.
type Snapshot struct {
	fusion.Reading
	Time           time.Time `json:"time"`
	Foreground     float64   `json:"foreground_axis"`
	Background     float64   `json:"background_axis"`
	HasCalibration bool      `json:"has_calibration"`
}

// CalibrationEvent is published on TOPIC_CALIBRATION when a wizard run ends
// or the calibration is reset.
type CalibrationEvent struct {
	ID      string              `json:"id"`
	Session string              `json:"session,omitempty"`
	Time    time.Time           `json:"time"`
	Outcome string              `json:"outcome"`
	Result  *calibration.Result `json:"result,omitempty"`
	Message string              `json:"message,omitempty"`
}

// CalibrationStatus describes the calibration in use.
type CalibrationStatus struct {
	Calibrated   bool               `json:"calibrated"`
	Summary      string             `json:"summary"`
	Result       calibration.Result `json:"result"`
	WizardActive bool               `json:"wizard_active"`
}

// WizardUpdate reports the progress of a wizard run. Only the last update of
// a run carries an Outcome.
type WizardUpdate struct {
	Progress    calibration.Progress `json:"progress"`
	Instruction string               `json:"instruction,omitempty"`
	Outcome     string               `json:"outcome,omitempty"`
	Result      *calibration.Result  `json:"result,omitempty"`
	Err         string               `json:"error,omitempty"`
}

// Wizard is the handle of a running calibration wizard. Updates is closed
// when the run ends.
type Wizard struct {
	ID      string
	updates chan WizardUpdate
	svc     *Service
}

func (w *Wizard) Updates() <-chan WizardUpdate { return w.updates }

// Confirm tells the wizard the device is placed in the requested pose.
func (w *Wizard) Confirm(ctx context.Context) error {
	_, err := w.svc.do(ctx, command{kind: cmdWizardConfirm, wizardID: w.ID})
	return err
}

func (w *Wizard) Cancel(ctx context.Context) error {
	_, err := w.svc.do(ctx, command{kind: cmdWizardCancel, wizardID: w.ID})
	return err
}

// push delivers u, discarding the oldest pending update when the reader
// lags behind.
func (w *Wizard) push(u WizardUpdate) {
	for {
		select {
		case w.updates <- u:
			return
		default:
		}
		select {
		case <-w.updates:
		default:
		}
	}
}

type commandKind int

const (
	cmdToggleLock commandKind = iota
	cmdUnlock
	cmdReference
	cmdWizardStart
	cmdWizardConfirm
	cmdWizardCancel
	cmdResetCalibration
	cmdAutoLock
)

type command struct {
	kind     commandKind
	target   float64
	wizardID string
	autoLock AutoLock
	reply    chan reply
}

type reply struct {
	wizard *Wizard
	err    error
}

// AutoLock holds the auto-lock preferences. Tolerance is derived from
// Precision and ignored on input.
type AutoLock struct {
	Enabled      bool    `json:"enabled"`
	HorizonCheck bool    `json:"horizon_check"`
	Precision    int     `json:"precision"`
	Tolerance    float64 `json:"tolerance"`
}

// Options configures a Service.
type Options struct {
	SampleInterval time.Duration
	Fusion         fusion.Options
	Gains          animator.Gains
	AxisPeriod     time.Duration

	TopicReading     string
	TopicRaw         string
	TopicCalibration string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SampleInterval: time.Duration(cfg.SampleInterval) * time.Millisecond,
		Fusion: fusion.Options{
			SmoothingAlpha:    cfg.SmoothingAlpha,
			GravityWindow:     cfg.GravityWindow,
			AngleWindow:       cfg.AngleWindow,
			AutoLock:          cfg.AutoLockEnabled,
			HorizonCheck:      cfg.AutoLockHorizonCheck,
			AutoLockPrecision: cfg.AutoLockPrecision,
		},
		Gains:            animator.Gains{Kp: cfg.PIDKp, Ki: cfg.PIDKi, Kd: cfg.PIDKd},
		AxisPeriod:       time.Duration(cfg.PIDPeriod) * time.Millisecond,
		TopicReading:     cfg.TopicReading,
		TopicRaw:         cfg.TopicRaw,
		TopicCalibration: cfg.TopicCalibration,
	}
}

// Service runs the sample loop. The engine, the wizard and the store are
// only touched from Run; other goroutines go through commands or read the
// latest snapshot.
type Service struct {
	opts    Options
	src     sensors.Source
	store   store.Store
	pub     Publisher
	metrics *metrics.Collector

	engine       *fusion.Engine
	fg, bg       *animator.Axis
	lastRotation fusion.Rotation
	cmds         chan command
	done         chan struct{}

	solver        *calibration.Solver
	wizard        *Wizard
	wizardState   calibration.State
	wizardSamples int

	mu           sync.RWMutex
	snap         Snapshot
	haveSnap     bool
	cal          calibration.Result
	calibrated   bool
	wizardActive bool
	autoLock     AutoLock

	now func() time.Time
}

// NewService loads the stored calibration and prepares the engine. pub and
// m may be nil.
func NewService(opts Options, src sensors.Source, st store.Store, pub Publisher, m *metrics.Collector) (*Service, error) {
	cal, calibrated, err := calibration.Load(st)
	switch {
	case errors.Is(err, calibration.ErrCalibrationFailed):
		log.Printf("clinometer: ignoring stored calibration: %v", err)
	case err != nil:
		return nil, err
	}
	if pub == nil {
		pub = nopPublisher{}
	}
	if m == nil {
		m = metrics.NewCollector()
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = 10 * time.Millisecond
	}

	s := &Service{
		opts:       opts,
		src:        src,
		store:      st,
		pub:        pub,
		metrics:    m,
		engine:     fusion.NewEngine(opts.Fusion, cal),
		fg:         animator.NewAxis(animator.NewController(0, opts.Gains, opts.AxisPeriod)),
		bg:         animator.NewAxis(animator.NewController(0, opts.Gains, opts.AxisPeriod)),
		cmds:       make(chan command),
		done:       make(chan struct{}),
		cal:        cal,
		calibrated: calibrated,
		autoLock: AutoLock{
			Enabled:      opts.Fusion.AutoLock,
			HorizonCheck: opts.Fusion.HorizonCheck,
			Precision:    opts.Fusion.AutoLockPrecision,
			Tolerance:    fusion.AutoLockTolerance(opts.Fusion.AutoLockPrecision),
		},
		now: time.Now,
	}
	log.Printf("clinometer: %s", calibration.Summary(cal, calibrated, s.now()))
	return s, nil
}

func (s *Service) Metrics() *metrics.Collector { return s.metrics }

// Run reads the source and serves commands until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.fg.Run(ctx)
	go s.bg.Run(ctx)

	samples := make(chan imu.Sample, 1)
	go s.read(ctx, samples)

	for {
		select {
		case <-ctx.Done():
			if s.wizard != nil {
				s.endWizard(OutcomeCancelled, nil, ErrServiceStopped)
			}
			return nil
		case cmd := <-s.cmds:
			r := s.handle(cmd)
			cmd.reply <- r
		case sample := <-samples:
			s.process(sample)
		}
	}
}

// read polls the source every SampleInterval.
func (s *Service) read(ctx context.Context, out chan<- imu.Sample) {
	ticker := time.NewTicker(s.opts.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sample, err := s.src.Next()
		if err != nil {
			s.metrics.SourceError()
			log.Printf("clinometer: source error: %v", err)
			continue
		}
		select {
		case out <- sample:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) process(sample imu.Sample) {
	r := s.engine.Process(sample.Accel)
	s.metrics.Observe(r)

	if r.Rotation != s.lastRotation {
		s.lastRotation = r.Rotation
		s.bg.SetTarget(float64(r.Rotation))
	}

	s.mu.Lock()
	s.snap = Snapshot{
		Reading:        r,
		Time:           sample.Time,
		Foreground:     s.fg.Value(),
		Background:     s.bg.Value(),
		HasCalibration: s.calibrated,
	}
	s.haveSnap = true
	snap := s.snap
	s.mu.Unlock()

	if err := s.pub.Publish(s.opts.TopicRaw, false, sample); err != nil {
		log.Printf("clinometer: %v", err)
	}
	if err := s.pub.Publish(s.opts.TopicReading, true, snap); err != nil {
		log.Printf("clinometer: %v", err)
	}

	if s.solver != nil {
		s.feedWizard(sample.Accel)
	}
}

func (s *Service) handle(cmd command) reply {
	switch cmd.kind {
	case cmdToggleLock:
		s.engine.ToggleLock()
		s.refreshLock()
	case cmdUnlock:
		s.engine.Unlock()
		s.refreshLock()
	case cmdReference:
		s.fg.SetTarget(cmd.target)
	case cmdWizardStart:
		return s.startWizard()
	case cmdWizardConfirm:
		if err := s.checkWizard(cmd.wizardID); err != nil {
			return reply{err: err}
		}
		st, err := s.solver.Confirm()
		if err != nil {
			return reply{err: err}
		}
		s.wizardState = st
		s.wizardSamples = 0
		s.pushWizardUpdate()
	case cmdWizardCancel:
		if err := s.checkWizard(cmd.wizardID); err != nil {
			return reply{err: err}
		}
		s.endWizard(OutcomeCancelled, nil, nil)
	case cmdResetCalibration:
		return reply{err: s.resetCalibration()}
	case cmdAutoLock:
		a := cmd.autoLock
		s.engine.SetAutoLock(a.Enabled, a.HorizonCheck, a.Precision)
		a.Tolerance = s.engine.LockTolerance()
		s.mu.Lock()
		s.autoLock = a
		s.mu.Unlock()
		log.Printf("clinometer: auto-lock enabled=%t horizon=%t precision=%d", a.Enabled, a.HorizonCheck, a.Precision)
	default:
		return reply{err: fmt.Errorf("unknown command %d", cmd.kind)}
	}
	return reply{}
}

func (s *Service) refreshLock() {
	r := s.engine.Reading()
	s.mu.Lock()
	s.snap.Locked = r.Locked
	s.snap.LockRequested = r.LockRequested
	s.mu.Unlock()
}

func (s *Service) startWizard() reply {
	if s.solver != nil {
		return reply{err: ErrWizardBusy}
	}
	s.solver = calibration.NewSolver()
	s.wizard = &Wizard{ID: uuid.NewString(), updates: make(chan WizardUpdate, 32), svc: s}
	s.wizardState = s.solver.State()
	s.wizardSamples = 0
	s.setWizardActive(true)

	log.Printf("clinometer: calibration wizard %s started", s.wizard.ID)
	s.pushWizardUpdate()
	return reply{wizard: s.wizard}
}

func (s *Service) checkWizard(id string) error {
	if s.wizard == nil || s.wizard.ID != id {
		return ErrNoWizard
	}
	return nil
}

func (s *Service) setWizardActive(active bool) {
	s.mu.Lock()
	s.wizardActive = active
	s.mu.Unlock()
}

func (s *Service) pushWizardUpdate() {
	u := WizardUpdate{Progress: s.solver.Progress()}
	if u.Progress.State.Phase == calibration.PhaseInstruct {
		u.Instruction = u.Progress.State.Pose.Instruction()
	}
	s.wizard.push(u)
}

func (s *Service) feedWizard(v imu.Vector) {
	st, err := s.solver.Feed(v)
	s.wizardSamples++

	switch st.Phase {
	case calibration.PhaseCompleted:
		res, _ := s.solver.Result()
		s.completeWizard(res)
		return
	case calibration.PhaseFailed:
		s.endWizard(OutcomeFailed, nil, err)
		return
	}

	if st != s.wizardState || (st.Phase == calibration.PhaseCapture && s.wizardSamples%wizardProgressEvery == 0) {
		s.wizardState = st
		s.pushWizardUpdate()
	}
}

// completeWizard persists res, installs it in the engine and announces it.
func (s *Service) completeWizard(res calibration.Result) {
	if err := calibration.Save(s.store, res); err != nil {
		s.endWizard(OutcomeFailed, nil, err)
		return
	}
	s.engine.SetCalibration(res)

	s.mu.Lock()
	s.cal = res
	s.calibrated = true
	s.mu.Unlock()

	s.endWizard(OutcomeCompleted, &res, nil)
}

// endWizard publishes the outcome and closes the wizard.
func (s *Service) endWizard(outcome string, res *calibration.Result, err error) {
	w := s.wizard
	u := WizardUpdate{Progress: s.solver.Progress(), Outcome: outcome, Result: res}
	ev := CalibrationEvent{
		ID:      uuid.NewString(),
		Session: w.ID,
		Time:    s.now(),
		Outcome: outcome,
		Result:  res,
	}
	if err != nil {
		u.Err = err.Error()
		ev.Message = err.Error()
	}

	switch outcome {
	case OutcomeCompleted:
		s.metrics.CalibrationDone(true)
	case OutcomeFailed:
		s.metrics.CalibrationDone(false)
	}
	log.Printf("clinometer: calibration wizard %s %s", w.ID, outcome)
	s.publishEvent(ev)

	w.push(u)
	close(w.updates)
	s.solver = nil
	s.wizard = nil
	s.setWizardActive(false)
}

func (s *Service) resetCalibration() error {
	if err := calibration.Reset(s.store); err != nil {
		return err
	}
	id := calibration.Identity()
	s.engine.SetCalibration(id)

	s.mu.Lock()
	s.cal = id
	s.calibrated = false
	s.mu.Unlock()

	s.publishEvent(CalibrationEvent{ID: uuid.NewString(), Time: s.now(), Outcome: OutcomeReset})
	return nil
}

func (s *Service) publishEvent(ev CalibrationEvent) {
	if err := s.pub.Publish(s.opts.TopicCalibration, false, ev); err != nil {
		log.Printf("clinometer: %v", err)
	}
}

// do hands cmd to the Run loop and waits for its reply.
func (s *Service) do(ctx context.Context, cmd command) (reply, error) {
	cmd.reply = make(chan reply, 1)
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return reply{}, ErrServiceStopped
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}

	select {
	case r := <-cmd.reply:
		return r, r.err
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// ToggleLock arms, cancels or releases the reading lock.
func (s *Service) ToggleLock(ctx context.Context) error {
	_, err := s.do(ctx, command{kind: cmdToggleLock})
	return err
}

func (s *Service) Unlock(ctx context.Context) error {
	_, err := s.do(ctx, command{kind: cmdUnlock})
	return err
}

// SetReference animates the foreground axis to target.
func (s *Service) SetReference(ctx context.Context, target float64) error {
	switch target {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("%w: got %g", ErrInvalidTarget, target)
	}
	_, err := s.do(ctx, command{kind: cmdReference, target: target})
	return err
}

// SetAutoLock replaces the auto-lock preferences of the running engine.
func (s *Service) SetAutoLock(ctx context.Context, a AutoLock) (AutoLock, error) {
	if a.Precision < 0 || a.Precision > 1000 {
		return AutoLock{}, fmt.Errorf("%w: got %d", ErrInvalidAutoLock, a.Precision)
	}
	if _, err := s.do(ctx, command{kind: cmdAutoLock, autoLock: a}); err != nil {
		return AutoLock{}, err
	}
	return s.AutoLock(), nil
}

func (s *Service) AutoLock() AutoLock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoLock
}

// StartWizard begins a calibration wizard. Only one can run at a time.
func (s *Service) StartWizard(ctx context.Context) (*Wizard, error) {
	r, err := s.do(ctx, command{kind: cmdWizardStart})
	if err != nil {
		return nil, err
	}
	return r.wizard, nil
}

// ResetCalibration deletes the stored calibration and reverts the engine
// to the identity calibration.
func (s *Service) ResetCalibration(ctx context.Context) error {
	_, err := s.do(ctx, command{kind: cmdResetCalibration})
	return err
}

// Snapshot returns the latest state and whether any sample was processed.
func (s *Service) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.haveSnap
}

func (s *Service) Calibration() CalibrationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CalibrationStatus{
		Calibrated:   s.calibrated,
		Summary:      calibration.Summary(s.cal, s.calibrated, s.now()),
		Result:       s.cal,
		WizardActive: s.wizardActive,
	}
}
