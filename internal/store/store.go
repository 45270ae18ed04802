// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store persists flat key/float pairs such as the accelerometer
// calibration. Backends: in-memory, a YAML file and SQLite.
package store

import (
	"errors"
	"fmt"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("store: unknown backend")

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is a persisted key/value map of float64 values.
type Store interface {
	// Get returns the value for key and whether it is present.
	Get(key string) (float64, bool, error)
	// SetMany writes all values in a single update.
	SetMany(values map[string]float64) error
	// Delete removes keys. Missing keys are ignored.
	Delete(keys ...string) error
	Close() error
}

// Open returns the store for backend, rooted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
