package dryml

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "dryml"
	metricsSubsystem = "compiler"
)

// Metrics holds prometheus metrics for template compilation.
type Metrics struct {
	compileTime *prometheus.HistogramVec
	compiles    *prometheus.CounterVec
	errors      *prometheus.CounterVec
}

// NewMetrics creates unregistered compiler metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		compileTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "compile_duration_seconds",
				Help:      "Template compilation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12), // 50µs to ~100ms
			},
			[]string{"result"}, // "success" or "error"
		),
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "compiles_total",
				Help:      "Successful compilations by where the instructions came from.",
			},
			[]string{"source"}, // "parse" or "cache"
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "errors_total",
				Help:      "Failed compilations by error kind.",
			},
			[]string{"kind"},
		),
	}
}

// MustRegister registers all collectors with r.
func (m *Metrics) MustRegister(r prometheus.Registerer) {
	r.MustRegister(m.compileTime, m.compiles, m.errors)
}

// ObserveCompile records one call to Compile.
func (m *Metrics) ObserveCompile(d time.Duration, fromCache bool, err error) {
	if err != nil {
		m.compileTime.WithLabelValues("error").Observe(d.Seconds())
		m.errors.WithLabelValues(errorKindLabel(err)).Inc()
		return
	}
	m.compileTime.WithLabelValues("success").Observe(d.Seconds())
	source := "parse"
	if fromCache {
		source = "cache"
	}
	m.compiles.WithLabelValues(source).Inc()
}

var errorKindLabels = []struct {
	kind  error
	label string
}{
	{ErrMissingAttribute, "missing_attribute"},
	{ErrInvalidAttribute, "invalid_attribute"},
	{ErrPlacement, "placement"},
	{ErrNameConflict, "name_conflict"},
	{ErrQuoting, "quoting"},
	{ErrRemovedSyntax, "removed_syntax"},
	{ErrForbiddenScriptlet, "forbidden_scriptlet"},
	{ErrSyntax, "syntax"},
}

func errorKindLabel(err error) string {
	for _, k := range errorKindLabels {
		if errors.Is(err, k.kind) {
			return k.label
		}
	}
	return "other"
}
