// internal/monitoring/metrics.go
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for a scraping run. A nil
// *Metrics is valid and turns every recording call into a no-op, so the
// pipeline does not need to branch on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	pagesFetched      prometheus.Counter
	listingsProcessed prometheus.Counter
	fetchFailures     prometheus.Counter
	recordsAdmitted   prometheus.Counter
	skips             *prometheus.CounterVec
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		pagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "marktscout",
			Name:      "pages_fetched_total",
			Help:      "Search result pages fetched successfully.",
		}),
		listingsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "marktscout",
			Name:      "listings_processed_total",
			Help:      "Listing pages fetched and run through extraction.",
		}),
		fetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "marktscout",
			Name:      "fetch_failures_total",
			Help:      "Page fetches that failed after all retry attempts.",
		}),
		recordsAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "marktscout",
			Name:      "records_admitted_total",
			Help:      "Deduplicated records accepted into the result set.",
		}),
		skips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marktscout",
			Name:      "skips_total",
			Help:      "Listings skipped, partitioned by reason.",
		}, []string{"reason"}),
	}
}

// Registry exposes the underlying registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PagesFetched(n int) {
	if m != nil {
		m.pagesFetched.Add(float64(n))
	}
}

func (m *Metrics) ListingProcessed() {
	if m != nil {
		m.listingsProcessed.Inc()
	}
}

func (m *Metrics) FetchFailed() {
	if m != nil {
		m.fetchFailures.Inc()
	}
}

func (m *Metrics) FetchFailures(n int) {
	if m != nil {
		m.fetchFailures.Add(float64(n))
	}
}

func (m *Metrics) RecordAdmitted() {
	if m != nil {
		m.recordsAdmitted.Inc()
	}
}

func (m *Metrics) Skip(reason string) {
	if m != nil {
		m.skips.WithLabelValues(reason).Inc()
	}
}
