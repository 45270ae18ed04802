// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/clinometer/internal/monitoring"
)

// File is a Store backed by a flat YAML map. Every update rewrites the
// file through a temporary file and a rename.
type File struct {
	path string

	mu     sync.RWMutex
	values map[string]float64
}

// OpenFile loads path if it exists. A missing file is an empty store.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]float64)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		monitoring.Logf("store: %s does not exist yet, starting empty", path)
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.values); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
	}
	if f.values == nil {
		f.values = make(map[string]float64)
	}
	return f, nil
}

func (f *File) Get(key string) (float64, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *File) SetMany(values map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string]float64, len(f.values)+len(values))
	for k, v := range f.values {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if err := f.write(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *File) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string]float64, len(f.values))
	for k, v := range f.values {
		next[k] = v
	}
	for _, k := range keys {
		delete(next, k)
	}
	if err := f.write(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *File) Close() error { return nil }

func (f *File) write(values map[string]float64) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".store-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
