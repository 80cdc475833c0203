// Package metrics exposes Prometheus instrumentation for the billing counter.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "scanbill"

// Collector holds every metric the server records. Each Collector owns its
// own registry so tests can create as many as they need.
type Collector struct {
	registry *prometheus.Registry

	scans           *prometheus.CounterVec
	billsCommitted  prometheus.Counter
	revenue         prometheus.Counter
	persistFailures prometheus.Counter
	persistDuration prometheus.Histogram
	rpcs            *prometheus.CounterVec
}

// New registers all metrics on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Decoded scanner strings by outcome.",
		}, []string{"result"}),
		billsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_committed_total",
			Help:      "Bills written to the ledger.",
		}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_total",
			Help:      "Sum of committed bill totals.",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_persist_failures_total",
			Help:      "Ledger snapshot writes that failed and were rolled back.",
		}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_persist_duration_seconds",
			Help:      "Time spent writing the ledger snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and status code.",
		}, []string{"procedure", "code"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.scans,
		c.billsCommitted,
		c.revenue,
		c.persistFailures,
		c.persistDuration,
		c.rpcs,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveScan counts one decode outcome, e.g. "accepted" or "debounced".
func (c *Collector) ObserveScan(result string) {
	c.scans.WithLabelValues(result).Inc()
}

// ObserveBill records a committed bill.
func (c *Collector) ObserveBill(total decimal.Decimal) {
	c.billsCommitted.Inc()
	c.revenue.Add(total.InexactFloat64())
}

// ObservePersist matches the ledger persist observer signature.
func (c *Collector) ObservePersist(d time.Duration, err error) {
	c.persistDuration.Observe(d.Seconds())
	if err != nil {
		c.persistFailures.Inc()
	}
}

// ObserveRPC counts one finished RPC. code is "ok" on success.
func (c *Collector) ObserveRPC(procedure, code string) {
	c.rpcs.WithLabelValues(procedure, code).Inc()
}
