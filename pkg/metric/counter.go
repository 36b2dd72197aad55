// Package metric wraps the prometheus counters exported by traymenu.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "traymenu"

// IncrementalCounter counts occurrences per label values.
type IncrementalCounter interface {
	Increment(val ...string)
}

// Counter is a prometheus counter vector registered on a single registry.
type Counter struct {
	Name string
	Help string

	vec *prometheus.CounterVec
}

// Increment adds one to the series identified by val.
func (c *Counter) Increment(val ...string) {
	c.vec.WithLabelValues(val...).Inc()
}

// Collector exposes the underlying vector, mostly for tests.
func (c *Counter) Collector() *prometheus.CounterVec {
	return c.vec
}

// NewCounter registers a counter named <Namespace>_<name> on reg.
// Registration errors are returned instead of panicking so a menu can be
// run more than once in a process.
func NewCounter(reg prometheus.Registerer, name, help string, labels ...string) (*Counter, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	}, labels)

	if err := reg.Register(vec); err != nil {
		return nil, err
	}

	return &Counter{
		Name: prometheus.BuildFQName(Namespace, "", name),
		Help: help,
		vec:  vec,
	}, nil
}

// Handler returns an HTTP handler serving the metrics gathered by reg.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
