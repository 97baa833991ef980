package receipt

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/receipt-reader/internal/interpret"
)

// Metrics counts parse outcomes. Each instance owns its registry so several
// services can coexist in one process.
type Metrics struct {
	registry    *prometheus.Registry
	parses      *prometheus.CounterVec
	missing     *prometheus.CounterVec
	items       prometheus.Histogram
	extractions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with Go runtime
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receipt_reader",
			Name:      "parses_total",
			Help:      "Receipts parsed, by item mode and detected locale.",
		}, []string{"mode", "locale"}),
		missing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receipt_reader",
			Name:      "missing_fields_total",
			Help:      "Parses that could not find a field.",
		}, []string{"field"}),
		items: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "receipt_reader",
			Name:      "items_per_receipt",
			Help:      "Number of line items found per parse.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receipt_reader",
			Name:      "extraction_errors_total",
			Help:      "Uploads whose text could not be extracted.",
		}, []string{"content_type"}),
	}
	m.registry.MustRegister(
		m.parses, m.missing, m.items, m.extractions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// observeParse records one parse of text.
func (m *Metrics) observeParse(text string, mode interpret.Mode, parsed interpret.ParsedReceipt) {
	m.parses.WithLabelValues(mode.String(), interpret.DetectLocale(text).String()).Inc()
	if parsed.Total == nil {
		m.missing.WithLabelValues("total").Inc()
	}
	if parsed.Date == nil {
		m.missing.WithLabelValues("date").Inc()
	}
	m.items.Observe(float64(len(parsed.Items)))
}

func (m *Metrics) observeExtractionError(contentType string) {
	m.extractions.WithLabelValues(contentType).Inc()
}

// Registry exposes the underlying registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
