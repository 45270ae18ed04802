// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/clinometer/internal/calibration"
)

// commandTimeout bounds a websocket action waiting on the service loop.
const commandTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// CalibrationSession binds one websocket client to a wizard run.
type CalibrationSession struct {
	Conn   *websocket.Conn
	svc    *Service
	mu     sync.Mutex
	wizard *Wizard
}

// WebSocket message types
type WSMessage struct {
	Action string `json:"action"` // start, next, cancel
}

type WSResponse struct {
	Type     string                 `json:"type"` // step, progress, complete, error, cancelled
	Session  string                 `json:"session,omitempty"`
	Phase    string                 `json:"phase,omitempty"`
	Step     string                 `json:"step,omitempty"`
	Progress float64                `json:"progress,omitempty"`
	Stats    map[string]interface{} `json:"stats,omitempty"`
	Results  interface{}            `json:"results,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// HandleCalibrationWS drives the calibration wizard over a WebSocket.
func HandleCalibrationWS(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("calibration: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		session := &CalibrationSession{Conn: conn, svc: svc}
		defer session.cancel()

		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				log.Printf("calibration: websocket read error: %v", err)
				return
			}

			switch msg.Action {
			case "start":
				if err := session.start(); err != nil {
					session.sendError(err.Error())
				}
			case "next":
				if err := session.next(); err != nil {
					session.sendError(err.Error())
				}
			case "cancel":
				log.Printf("calibration: cancelled by user")
				session.cancel()
			default:
				session.sendError("unknown action " + msg.Action)
			}
		}
	}
}

func (s *CalibrationSession) start() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	s.mu.Lock()
	if s.wizard != nil {
		s.mu.Unlock()
		return ErrWizardBusy
	}
	s.mu.Unlock()

	wiz, err := s.svc.StartWizard(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.wizard = wiz
	s.mu.Unlock()

	go s.forward(wiz)
	return nil
}

func (s *CalibrationSession) next() error {
	wiz := s.current()
	if wiz == nil {
		return ErrNoWizard
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return wiz.Confirm(ctx)
}

func (s *CalibrationSession) cancel() {
	wiz := s.current()
	if wiz == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := wiz.Cancel(ctx); err != nil && !errors.Is(err, ErrNoWizard) {
		log.Printf("calibration: cancel: %v", err)
	}
}

func (s *CalibrationSession) current() *Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizard
}

// forward relays wizard updates until the run ends.
func (s *CalibrationSession) forward(wiz *Wizard) {
	for u := range wiz.Updates() {
		switch u.Outcome {
		case OutcomeCompleted:
			s.sendComplete(wiz.ID, u)
		case OutcomeFailed:
			s.send(WSResponse{Type: "error", Session: wiz.ID, Phase: u.Progress.State.Phase.String(), Message: u.Err})
		case OutcomeCancelled:
			s.send(WSResponse{Type: "cancelled", Session: wiz.ID})
		default:
			if u.Progress.State.Phase == calibration.PhaseInstruct {
				s.sendStep(wiz.ID, u)
			} else {
				s.sendProgress(wiz.ID, u)
			}
		}
	}

	s.mu.Lock()
	if s.wizard == wiz {
		s.wizard = nil
	}
	s.mu.Unlock()
}

func (s *CalibrationSession) sendStep(id string, u WizardUpdate) {
	s.send(WSResponse{
		Type:     "step",
		Session:  id,
		Phase:    u.Progress.State.Phase.String(),
		Step:     u.Progress.State.Pose.String(),
		Progress: u.Progress.Percent,
		Message:  u.Instruction,
	})
}

func (s *CalibrationSession) sendProgress(id string, u WizardUpdate) {
	s.send(WSResponse{
		Type:     "progress",
		Session:  id,
		Phase:    u.Progress.State.Phase.String(),
		Step:     u.Progress.State.Pose.String(),
		Progress: u.Progress.Percent,
		Stats: map[string]interface{}{
			"loaded":    u.Progress.Loaded,
			"tolerance": u.Progress.Tolerance,
			"restarts":  u.Progress.Restarts,
		},
	})
}

func (s *CalibrationSession) sendComplete(id string, u WizardUpdate) {
	s.send(WSResponse{
		Type:     "complete",
		Session:  id,
		Phase:    u.Progress.State.Phase.String(),
		Progress: 100,
		Results:  u.Result,
	})
}

func (s *CalibrationSession) sendError(message string) {
	s.send(WSResponse{Type: "error", Message: message})
}

// send serializes writes; gorilla connections allow one concurrent writer.
func (s *CalibrationSession) send(resp WSResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Conn.WriteJSON(resp); err != nil {
		log.Printf("calibration: websocket write error: %v", err)
	}
}
