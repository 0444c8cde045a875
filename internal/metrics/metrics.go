package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaculusindex_api_calls_total",
			Help: "Total Metaculus question API calls",
		},
		[]string{"domain", "status"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metaculusindex_api_latency_seconds",
			Help:    "Metaculus question API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"domain"},
	)

	QuestionsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaculusindex_questions_fetched_total",
			Help: "Total questions successfully retrieved and parsed",
		},
		[]string{"domain"},
	)

	IndexMembersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaculusindex_index_members_skipped_total",
			Help: "Questions left out of an index because they could not be fetched or wrapped",
		},
		[]string{"index"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaculusindex_http_requests_total",
			Help: "Total API requests served",
		},
		[]string{"route", "status"},
	)

	IndexValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "metaculusindex_index_value",
			Help: "Most recently evaluated value of each index",
		},
		[]string{"index"},
	)
)
