// Package metrics records what the catalogue fetches cost and how they went.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query outcomes
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeCached = "cached"
)

// Collector bundles the Prometheus metrics of the VizieR client and the query cache.
// A nil *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	Retries       *prometheus.CounterVec
	Rows          *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, or the default registry when nil
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	queries, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astrocat_queries_total",
		Help: "Number of catalogue region queries, labeled by VizieR catalog and outcome.",
	}, []string{"catalog", "outcome"}))
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astrocat_query_duration_seconds",
		Help:    "Duration of VizieR region queries in seconds, retries included.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"catalog"}))
	if err != nil {
		return nil, err
	}

	retries, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astrocat_query_retries_total",
		Help: "Number of retried VizieR requests, labeled by catalog.",
	}, []string{"catalog"}))
	if err != nil {
		return nil, err
	}

	rows, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astrocat_rows_total",
		Help: "Number of catalogue rows returned, labeled by catalog.",
	}, []string{"catalog"}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		Queries:       queries,
		QueryDuration: durations,
		Retries:       retries,
		Rows:          rows,
	}, nil
}

// register reuses an already registered collector of the same shape,
// so that several clients can share one registry
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveQuery records one finished region query
func (c *Collector) ObserveQuery(catalog, outcome string, elapsed time.Duration, rows int) {
	if c == nil {
		return
	}
	c.Queries.WithLabelValues(catalog, outcome).Inc()
	if outcome == OutcomeCached {
		c.Rows.WithLabelValues(catalog).Add(float64(rows))
		return
	}
	c.QueryDuration.WithLabelValues(catalog).Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		c.Rows.WithLabelValues(catalog).Add(float64(rows))
	}
}

func (c *Collector) ObserveRetry(catalog string) {
	if c == nil {
		return
	}
	c.Retries.WithLabelValues(catalog).Inc()
}

// WriteTextfile dumps the gathered metrics in the node_exporter textfile format
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.gatherer)
}
