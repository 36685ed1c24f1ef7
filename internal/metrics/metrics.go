// Package metrics provides Prometheus metrics for the feature store
// catalog and HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	sosi "github.com/tingold/orb-sosi"
)

const namespace = "sosistore"

// Collector holds all Prometheus metrics.
type Collector struct {
	// Source metrics
	SourceOpens    *prometheus.CounterVec
	RecordsRead    *prometheus.CounterVec
	OpenDuration   *prometheus.HistogramVec
	CacheEvictions prometheus.Counter

	// Catalog metrics
	Collections    prometheus.Gauge
	CatalogReloads prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FeaturesServed  *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		SourceOpens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_opens_total",
				Help:      "Total number of record sources opened",
			},
			[]string{"format", "result"},
		),
		RecordsRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_read_total",
				Help:      "Total number of records read from sources",
			},
			[]string{"format"},
		),
		OpenDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_open_duration_seconds",
				Help:      "Time spent opening and decoding a source",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"format"},
		),
		CacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metadata_evictions_total",
				Help:      "Total number of cached metadata entries dropped after file changes",
			},
		),
		Collections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "collections",
				Help:      "Number of collections in the catalog",
			},
		),
		CatalogReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Total number of catalog directory rescans",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		FeaturesServed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "features_served_total",
				Help:      "Total number of features written to HTTP responses",
			},
			[]string{"collection", "format"},
		),
	}
}

// Instrument wraps open so that every source it opens is counted, timed
// and has its records counted under format.
func (c *Collector) Instrument(format string, open sosi.Opener) sosi.Opener {
	return func(path string) (sosi.Source, error) {
		start := time.Now()
		src, err := open(path)
		c.OpenDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
		if err != nil {
			c.SourceOpens.WithLabelValues(format, "error").Inc()
			return nil, err
		}
		c.SourceOpens.WithLabelValues(format, "ok").Inc()
		return &countingSource{Source: src, records: c.RecordsRead.WithLabelValues(format)}, nil
	}
}

type countingSource struct {
	sosi.Source
	records prometheus.Counter
}

func (s *countingSource) Next() (*sosi.Record, error) {
	rec, err := s.Source.Next()
	if err == nil {
		s.records.Inc()
	}
	return rec, err
}
