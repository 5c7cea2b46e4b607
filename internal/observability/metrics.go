// Package observability records evaluator activity as Prometheus metrics.
package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bnd"

// Metrics holds one private registry per run, so tests and repeated runs in
// one process never share counters.
type Metrics struct {
	registry     *prometheus.Registry
	declarations *prometheus.CounterVec
	assignments  *prometheus.CounterVec
	conversions  *prometheus.CounterVec
	accesses     *prometheus.CounterVec
	scopeDepth   prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		declarations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "declarations_total",
				Help:      "Bindings declared or reserved, by type.",
			},
			[]string{"type"},
		),
		assignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "assignments_total",
				Help:      "Assignments to existing bindings, by result.",
			},
			[]string{"result"},
		),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "convert",
				Name:      "conversions_total",
				Help:      "Text conversions, by target type and result.",
			},
			[]string{"target", "result"},
		),
		accesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sequence",
				Name:      "accesses_total",
				Help:      "Checked sequence reads, by result.",
			},
			[]string{"result"},
		),
		scopeDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "scope_depth",
				Help:      "Current number of scopes above the root.",
			},
		),
	}
	m.registry.MustRegister(m.declarations, m.assignments, m.conversions, m.accesses, m.scopeDepth)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDeclare counts a declaration. Sequence types collapse to "seq" and
// untyped reservations to "untyped" to keep label cardinality fixed.
func (m *Metrics) RecordDeclare(typeName string) {
	switch {
	case typeName == "":
		typeName = "untyped"
	case strings.HasPrefix(typeName, "["):
		typeName = "seq"
	}
	m.declarations.WithLabelValues(typeName).Inc()
}

func (m *Metrics) RecordAssign(result string) {
	m.assignments.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordConversion(target, result string) {
	m.conversions.WithLabelValues(target, result).Inc()
}

func (m *Metrics) RecordAccess(result string) {
	m.accesses.WithLabelValues(result).Inc()
}

func (m *Metrics) SetScopeDepth(depth int) {
	m.scopeDepth.Set(float64(depth))
}

// WriteToTextfile writes every metric in the text exposition format, for a
// node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
