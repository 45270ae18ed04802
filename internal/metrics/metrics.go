// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes the clinometer state as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/clinometer/internal/fusion"
)

const namespace = "clinometer"

// Collector owns a private registry so several services (and tests) can
// coexist in one process.
type Collector struct {
	reg *prometheus.Registry

	angle        *prometheus.GaugeVec
	tolerance    *prometheus.GaugeVec
	gravity      prometheus.Gauge
	locked       prometheus.Gauge
	rotation     prometheus.Gauge
	samples      prometheus.Counter
	calibrations *prometheus.CounterVec
	sourceErrors prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		angle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "angle_degrees",
			Help:      "Tilt angle of each device axis against the horizontal plane.",
		}, []string{"axis"}),
		tolerance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "angle_tolerance_degrees",
			Help:      "95% confidence half-width of the angle window.",
		}, []string{"axis"}),
		gravity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gravity_mps2",
			Help:      "Magnitude of the estimated gravity vector.",
		}),
		locked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "locked",
			Help:      "1 while the reading is locked.",
		}),
		rotation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "display_rotation_degrees",
			Help:      "Coarse display rotation: 0, 90, 180 or 270.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Accelerometer samples processed.",
		}),
		calibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibrations_total",
			Help:      "Calibration wizard runs by outcome.",
		}, []string{"result"}),
		sourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed reads from the sensor source.",
		}),
	}
	c.reg.MustRegister(c.angle, c.tolerance, c.gravity, c.locked, c.rotation,
		c.samples, c.calibrations, c.sourceErrors)
	return c
}

// Observe records a reading produced by the fusion engine.
func (c *Collector) Observe(r fusion.Reading) {
	for i := range r.Angle {
		axis := strconv.Itoa(i)
		c.angle.WithLabelValues(axis).Set(r.Angle[i])
		c.tolerance.WithLabelValues(axis).Set(r.Tolerance[i])
	}
	c.gravity.Set(r.GravityXYZ)
	if r.Locked {
		c.locked.Set(1)
	} else {
		c.locked.Set(0)
	}
	c.rotation.Set(float64(r.Rotation))
	c.samples.Inc()
}

func (c *Collector) CalibrationDone(ok bool) {
	if ok {
		c.calibrations.WithLabelValues("completed").Inc()
		return
	}
	c.calibrations.WithLabelValues("failed").Inc()
}

func (c *Collector) SourceError() { c.sourceErrors.Inc() }

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
