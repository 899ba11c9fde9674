// Package metrics collects and exposes Prometheus metrics for the
// uplink and the refresh pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the service's counters. It satisfies the
// supervisor's Stats interface.
type Collector struct {
	assocAttempts prometheus.Counter
	assocFailures prometheus.Counter
	linkDrops     prometheus.Counter
	linkState     prometheus.Gauge

	fetchSuccess prometheus.Counter
	fetchFail    prometheus.Counter
	fetchLatency prometheus.Histogram
	parseFail    prometheus.Counter

	eventsDecoded prometheus.Gauge
	lastRefresh   prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		assocAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellabfuhr_association_attempts_total",
			Help: "Wireless association attempts.",
		}),
		assocFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellabfuhr_association_failures_total",
			Help: "Wireless association attempts that failed.",
		}),
		linkDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellabfuhr_link_drops_total",
			Help: "Times an established link was lost.",
		}),
		linkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "muellabfuhr_link_state",
			Help: "Current link state: 0 disconnected, 1 associating, 2 connected.",
		}),
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellabfuhr_fetch_success_total",
			Help: "Calendar fetches that returned a usable body.",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellabfuhr_fetch_fail_total",
			Help: "Calendar fetches that failed.",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "muellabfuhr_fetch_latency_seconds",
			Help:    "Calendar fetch latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellabfuhr_parse_fail_total",
			Help: "Calendar documents rejected by the parser.",
		}),
		eventsDecoded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "muellabfuhr_events_decoded",
			Help: "Pickup events in the last decoded schedule.",
		}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "muellabfuhr_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful refresh.",
		}),
	}

	reg.MustRegister(
		c.assocAttempts,
		c.assocFailures,
		c.linkDrops,
		c.linkState,
		c.fetchSuccess,
		c.fetchFail,
		c.fetchLatency,
		c.parseFail,
		c.eventsDecoded,
		c.lastRefresh,
	)

	return c
}

func (c *Collector) AssociationAttempt() { c.assocAttempts.Inc() }

func (c *Collector) AssociationFailure() { c.assocFailures.Inc() }

func (c *Collector) LinkDrop() { c.linkDrops.Inc() }

func (c *Collector) SetLinkState(state float64) { c.linkState.Set(state) }

func (c *Collector) FetchSucceeded(d time.Duration) {
	c.fetchSuccess.Inc()
	c.fetchLatency.Observe(d.Seconds())
}

func (c *Collector) FetchFailed() { c.fetchFail.Inc() }

func (c *Collector) ParseFailed() { c.parseFail.Inc() }

// ScheduleDecoded records a completed refresh.
func (c *Collector) ScheduleDecoded(events int) {
	c.eventsDecoded.Set(float64(events))
	c.lastRefresh.Set(float64(time.Now().Unix()))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
