// Package metrics exposes transfer telemetry as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"banking/internal/ledger"
)

// Collector records ledger transfers. It implements ledger.Recorder.
type Collector struct {
	registry *prometheus.Registry

	transfers   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	transferred prometheus.Counter
	feesBurned  prometheus.Counter
	duration    *prometheus.HistogramVec
}

var _ ledger.Recorder = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "ledger"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "total",
			Help:      "Transfers that passed validation, by outcome.",
		},
		[]string{"outcome"},
	)

	c.rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "rejections_total",
			Help:      "Transfers rejected before any account was locked, by reason.",
		},
		[]string{"reason"},
	)

	c.transferred = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "units_total",
			Help:      "Units moved to destination accounts.",
		},
	)

	c.feesBurned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "fees_burned_units_total",
			Help:      "Fee units charged to source accounts.",
		},
	)

	c.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Time from transfer request to receipt recorded.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		},
		[]string{"outcome"},
	)

	c.registry.MustRegister(
		c.transfers,
		c.rejections,
		c.transferred,
		c.feesBurned,
		c.duration,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) ObserveTransfer(r ledger.Receipt, elapsed time.Duration) {
	outcome := r.Outcome.String()
	c.transfers.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if r.Completed() {
		c.transferred.Add(float64(r.Amount))
		c.feesBurned.Add(float64(r.Fee))
	}
}

func (c *Collector) ObserveRejection(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	c.rejections.WithLabelValues(reason).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
