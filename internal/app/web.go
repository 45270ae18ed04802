// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/relabs-tech/clinometer/internal/config"
	"github.com/relabs-tech/clinometer/internal/sensors"
	"github.com/relabs-tech/clinometer/internal/store"
)

// LockState is the body returned by the lock endpoints.
type LockState struct {
	Locked        bool `json:"locked"`
	LockRequested bool `json:"lock_requested"`
}

// NewHandler returns the HTTP API of svc.
func NewHandler(svc *Service, withMetrics bool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/reading", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := svc.Snapshot()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap)
	})

	mux.HandleFunc("POST /api/lock", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ToggleLock(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, lockState(svc))
	})

	mux.HandleFunc("POST /api/unlock", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Unlock(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, lockState(svc))
	})

	mux.HandleFunc("POST /api/reference", func(w http.ResponseWriter, r *http.Request) {
		target, err := strconv.ParseFloat(r.URL.Query().Get("target"), 64)
		if err != nil {
			http.Error(w, "target must be a number", http.StatusBadRequest)
			return
		}
		if err := svc.SetReference(r.Context(), target); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]float64{"target": target})
	})

	mux.HandleFunc("GET /api/calibration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Calibration())
	})

	mux.HandleFunc("DELETE /api/calibration", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ResetCalibration(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, svc.Calibration())
	})

	mux.HandleFunc("GET /api/autolock", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.AutoLock())
	})

	mux.HandleFunc("PUT /api/autolock", func(w http.ResponseWriter, r *http.Request) {
		var req AutoLock
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid auto-lock body: "+err.Error(), http.StatusBadRequest)
			return
		}
		a, err := svc.SetAutoLock(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, a)
	})

	mux.HandleFunc("GET /ws/calibration", HandleCalibrationWS(svc))

	if withMetrics {
		mux.Handle("GET /metrics", svc.Metrics().Handler())
	}
	return mux
}

func lockState(svc *Service) LockState {
	snap, _ := svc.Snapshot()
	return LockState{Locked: snap.Locked, LockRequested: snap.LockRequested}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidTarget), errors.Is(err, ErrInvalidAutoLock):
		code = http.StatusBadRequest
	case errors.Is(err, ErrWizardBusy):
		code = http.StatusConflict
	case errors.Is(err, ErrServiceStopped):
		code = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), code)
}

// RunService runs the sample loop, publishes to MQTT and serves the HTTP
// API until SIGINT or SIGTERM.
func RunService() error {
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

	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDService)
	if err != nil {
		return err
	}
	pub := NewMQTTPublisher(client)
	defer pub.Close()

	svc, err := NewService(OptionsFromConfig(cfg), src, st, pub, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: NewHandler(svc, cfg.MetricsEnabled),
	}
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("web server error: %v", err)
			stop()
		}
	}()

	err = svc.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Printf("web server shutdown: %v", serr)
	}
	return err
}
