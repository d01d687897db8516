// Package metrics registers the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts Helix requests by endpoint and outcome.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitch_etl_api_requests_total",
		Help: "Total Helix API requests issued, by endpoint and status.",
	}, []string{"endpoint", "status"})

	// APIRetries counts request attempts beyond the first.
	APIRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twitch_etl_api_retries_total",
		Help: "Total Helix API request retries.",
	})

	// RateLimitHits counts HTTP 429 responses.
	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twitch_etl_api_rate_limit_hits_total",
		Help: "Total Helix API rate-limit responses.",
	})

	// PagesFetched counts pages consumed from cursor-paginated endpoints.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitch_etl_pages_fetched_total",
		Help: "Total pages fetched from paginated endpoints.",
	}, []string{"endpoint"})

	// RecordsRemoved counts records dropped by a stage, by entity and reason.
	RecordsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitch_etl_records_removed_total",
		Help: "Total records removed during transform and integrity filtering.",
	}, []string{"entity", "reason"})

	// RowsUpserted counts rows written to the sink.
	RowsUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitch_etl_rows_upserted_total",
		Help: "Total rows upserted into the relational store.",
	}, []string{"entity"})
)
