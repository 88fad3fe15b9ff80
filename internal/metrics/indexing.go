package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing Prometheus metrics.
var (
	RowsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowdex",
			Name:      "rows_indexed_total",
			Help:      "Total number of rows accepted by the index write path",
		},
		[]string{"table"},
	)

	IndexFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowdex",
			Name:      "index_failures_total",
			Help:      "Total number of swallowed index write failures",
		},
		[]string{"table", "reason"}, // "coerce" / "index"
	)

	IndexCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowdex",
			Name:      "index_commits_total",
			Help:      "Total number of index commits",
		},
		[]string{"table", "trigger"}, // "manual" / "background"
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowdex",
			Name:      "searches_total",
			Help:      "Total number of index searches",
		},
		[]string{"table", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rowdex",
			Name:      "search_duration_seconds",
			Help:      "Index search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"table"},
	)
)

var indexingMetricsRegistered bool

// RegisterIndexingMetrics registers Prometheus indexing metrics. Must be called once from main.
func RegisterIndexingMetrics() {
	if indexingMetricsRegistered {
		return
	}
	prometheus.MustRegister(RowsIndexedTotal)
	prometheus.MustRegister(IndexFailuresTotal)
	prometheus.MustRegister(IndexCommitsTotal)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	indexingMetricsRegistered = true
}
