package twitch

import (
	"context"

	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/metrics"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// PageFunc fetches one page of records and returns the cursor of the next
// page. An empty cursor ends the sequence.
type PageFunc[T any] func(ctx context.Context, cursor string) (records []T, next string, err error)

// PageLimits bounds a paginated fetch. Zero means unbounded.
type PageLimits struct {
	MaxPages   int
	MaxRecords int
}

// PageStats reports how a paginated sequence terminated.
type PageStats struct {
	Pages   int
	Records int
	// Failed is set when a page failed after exhausting its retries. The
	// records accumulated before the failure are still returned.
	Failed bool
}

// FetchAll drives fn from the first page until the endpoint returns no
// records, no cursor, a limit is reached, or a page fails terminally. A page
// failure ends this sequence only; partial results are kept.
func FetchAll[T any](ctx context.Context, endpoint string, fn PageFunc[T], limits PageLimits) ([]T, PageStats) {
	var (
		out    []T
		stats  PageStats
		cursor string
	)

	for {
		if limits.MaxPages > 0 && stats.Pages >= limits.MaxPages {
			break
		}

		records, next, err := fn(ctx, cursor)
		if err != nil {
			stats.Failed = true
			logger.Log.Warn("paginated fetch ended early",
				zap.String("endpoint", endpoint),
				zap.Int("pages", stats.Pages),
				zap.Int("records", len(out)),
				zap.Error(err),
			)
			break
		}

		stats.Pages++
		metrics.PagesFetched.WithLabelValues(endpoint).Inc()

		if len(records) == 0 {
			break
		}
		out = append(out, records...)

		if limits.MaxRecords > 0 && len(out) >= limits.MaxRecords {
			out = out[:limits.MaxRecords]
			break
		}
		if next == "" {
			break
		}
		cursor = next
	}

	stats.Records = len(out)
	return out, stats
}
