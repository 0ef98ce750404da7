// seehuhn.de/go/markup - drawing annotation and export engine
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package metrics collects Prometheus metrics for rendering, export and
// persistence.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	MetricsNamespace        = "markup"
	MetricsSubsystemRender  = "render"
	MetricsSubsystemExport  = "export"
	MetricsSubsystemPersist = "persist"
)

// Render outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Metrics records engine events.  All methods are safe to call on a nil
// receiver of the Prometheus implementation.
type Metrics interface {
	ObserveRender(outcome string, elapsed time.Duration)
	IncrementExportPages()
	ObserveExport(ok bool, pages int, elapsed time.Duration)
	IncrementPersistenceErrors(op string)
}

// Noop is a Metrics implementation which discards everything.
type Noop struct{}

func (Noop) ObserveRender(string, time.Duration)    {}
func (Noop) IncrementExportPages()                  {}
func (Noop) ObserveExport(bool, int, time.Duration) {}
func (Noop) IncrementPersistenceErrors(string)      {}

// Prometheus implements Metrics on top of a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	renderTime    *prometheus.HistogramVec
	exportPages   prometheus.Counter
	exportTime    *prometheus.HistogramVec
	exportedPages prometheus.Histogram
	persistErrors *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them, together with
// the process and Go runtime collectors.
func NewPrometheus() *Prometheus {
	m := &Prometheus{}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: MetricsNamespace,
	}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.renderTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystemRender,
			Name:      "time_seconds",
			Help:      "Time to rasterise a page, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"outcome"},
	)
	m.registry.MustRegister(m.renderTime)

	m.exportPages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemExport,
		Name:      "pages_total",
		Help:      "The total number of pages written by exports.",
	})
	m.registry.MustRegister(m.exportPages)

	m.exportTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystemExport,
			Name:      "time_seconds",
			Help:      "Time to export a document, by result.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"result"},
	)
	m.registry.MustRegister(m.exportTime)

	m.exportedPages = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemExport,
		Name:      "document_pages",
		Help:      "Page count of exported documents.",
		Buckets:   []float64{1, 5, 10, 20, 30, 50, 100, 200},
	})
	m.registry.MustRegister(m.exportedPages)

	m.persistErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemPersist,
		Name:      "errors_total",
		Help:      "The total number of failed persistence calls.",
	}, []string{"op"})
	m.registry.MustRegister(m.persistErrors)

	return m
}

// GetRegistry returns the registry holding all collectors.
func (m *Prometheus) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *Prometheus) ObserveRender(outcome string, elapsed time.Duration) {
	if m != nil {
		m.renderTime.With(prometheus.Labels{"outcome": outcome}).Observe(elapsed.Seconds())
	}
}

func (m *Prometheus) IncrementExportPages() {
	if m != nil {
		m.exportPages.Inc()
	}
}

func (m *Prometheus) ObserveExport(ok bool, pages int, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.exportTime.With(prometheus.Labels{"result": result}).Observe(elapsed.Seconds())
	if ok {
		m.exportedPages.Observe(float64(pages))
	}
}

func (m *Prometheus) IncrementPersistenceErrors(op string) {
	if m != nil {
		m.persistErrors.With(prometheus.Labels{"op": op}).Inc()
	}
}
