// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stockdiary_store_operations_total", Help: "Journal file reads and writes by result"},
		[]string{"op", "result"},
	)
	QuoteFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stockdiary_quote_fetches_total", Help: "Quote feed requests by result"},
		[]string{"feed", "result"},
	)
	QuoteLinesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stockdiary_quote_lines_skipped_total", Help: "Quote feed lines that did not decode"},
		[]string{"feed"},
	)
	DraftsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stockdiary_drafts_submitted_total", Help: "Draft observations written to the journal"},
	)
)

func init() {
	prometheus.MustRegister(StoreOperations, QuoteFetches, QuoteLinesSkipped, DraftsSubmitted)
}

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
