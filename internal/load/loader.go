// Package load persists a consistent dataset into PostgreSQL in
// dependency order.
package load

import (
	"context"

	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/metrics"
	"github.com/stream-insights/twitch-etl-go/internal/models"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// Sink receives batches of clean records. *repository.Store satisfies it.
type Sink interface {
	UpsertUsers(ctx context.Context, users []models.User) (int64, error)
	UpsertGames(ctx context.Context, games []models.Game) (int64, error)
	UpsertStreams(ctx context.Context, streams []models.Stream) (int64, error)
	UpsertVideos(ctx context.Context, videos []models.Video) (int64, error)
	UpsertClips(ctx context.Context, clips []models.Clip) (int64, error)
}

// EntityResult reports the outcome for a single entity.
type EntityResult struct {
	Entity  string `json:"entity"`
	Records int    `json:"records"`
	Loaded  int64  `json:"loaded"`
	Batches int    `json:"batches"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// Report aggregates the outcome of a whole load run.
type Report struct {
	Results []EntityResult `json:"results"`
	Loaded  int64          `json:"loaded"`
	Success bool           `json:"success"`
}

// Result returns the entry for the named entity, if present.
func (r *Report) Result(entity string) (EntityResult, bool) {
	for _, res := range r.Results {
		if res.Entity == entity {
			return res, true
		}
	}
	return EntityResult{}, false
}

// Loader writes datasets through a Sink in fixed batches.
type Loader struct {
	sink      Sink
	batchSize int
}

// New creates a Loader. A non-positive batch size falls back to 500.
func New(sink Sink, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Loader{sink: sink, batchSize: batchSize}
}

// Run loads the dataset tier by tier. A tier whose parents all loaded
// zero rows is skipped, and a failed tier stops its own remaining
// batches but never the tiers after it.
func (l *Loader) Run(ctx context.Context, data models.Dataset) *Report {
	report := &Report{Success: true}
	loaded := make(map[string]int64, 5)

	run := func(entity string, records int, parents []string, do func() (int64, int, error)) {
		res := EntityResult{Entity: entity, Records: records}

		if len(parents) > 0 && records > 0 {
			all := true
			for _, p := range parents {
				if loaded[p] > 0 {
					all = false
					break
				}
			}
			if all {
				res.Skipped = true
				logger.Log.Warn("skipping entity, nothing loaded upstream",
					zap.String("entity", entity),
					zap.Strings("parents", parents))
				report.Results = append(report.Results, res)
				return
			}
		}

		n, batches, err := do()
		res.Loaded = n
		res.Batches = batches
		loaded[entity] = n
		if err != nil {
			res.Error = err.Error()
			report.Success = false
			logger.Log.Error("entity load failed",
				zap.String("entity", entity),
				zap.Int64("loaded_before_failure", n),
				zap.Error(err))
		} else {
			logger.Log.Info("entity loaded",
				zap.String("entity", entity),
				zap.Int64("rows", n),
				zap.Int("batches", batches))
		}
		metrics.RowsUpserted.WithLabelValues(entity).Add(float64(n))
		report.Loaded += n
		report.Results = append(report.Results, res)
	}

	users := dedupe(data.Users, func(u models.User) string { return u.ID })
	run("users", len(users), nil, func() (int64, int, error) {
		return inBatches(ctx, users, l.batchSize, l.sink.UpsertUsers)
	})

	games := dedupe(data.Games, func(g models.Game) string { return g.ID })
	run("games", len(games), nil, func() (int64, int, error) {
		return inBatches(ctx, games, l.batchSize, l.sink.UpsertGames)
	})

	streams := dedupe(data.Streams, func(s models.Stream) string { return s.ID })
	run("streams", len(streams), []string{"users"}, func() (int64, int, error) {
		return inBatches(ctx, streams, l.batchSize, l.sink.UpsertStreams)
	})

	videos := dedupe(data.Videos, func(v models.Video) string { return v.ID })
	run("videos", len(videos), []string{"users", "streams"}, func() (int64, int, error) {
		return inBatches(ctx, videos, l.batchSize, l.sink.UpsertVideos)
	})

	clips := dedupe(data.Clips, func(c models.Clip) string { return c.ID })
	run("clips", len(clips), []string{"users", "games", "videos"}, func() (int64, int, error) {
		return inBatches(ctx, clips, l.batchSize, l.sink.UpsertClips)
	})

	return report
}

// inBatches feeds the records through in fixed-size slices and stops at
// the first failing batch, reporting what made it in before the failure.
func inBatches[T any](ctx context.Context, records []T, size int, upsert func(context.Context, []T) (int64, error)) (int64, int, error) {
	var total int64
	batches := 0

	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))

		n, err := upsert(ctx, records[start:end])
		if err != nil {
			return total, batches, err
		}
		total += n
		batches++
	}

	return total, batches, nil
}

func dedupe[T any](records []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, rec := range records {
		key := id(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}
