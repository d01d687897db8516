// Package extract drives the Helix client to pull raw entity collections,
// chunking key lists under a bounded concurrency limit and deduplicating the
// merged results.
package extract

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stream-insights/twitch-etl-go/internal/config"
	"github.com/stream-insights/twitch-etl-go/internal/models"
	"github.com/stream-insights/twitch-etl-go/internal/twitch"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// API is the slice of the Helix client the extractor consumes.
type API interface {
	UsersByLogin(ctx context.Context, logins []string) ([]models.HelixUser, error)
	UsersByID(ctx context.Context, ids []string) ([]models.HelixUser, error)
	GamesByID(ctx context.Context, ids []string) ([]models.HelixGame, error)
	TopGamesPage(ctx context.Context, first int, cursor string) ([]models.HelixGame, string, error)
	StreamsPage(ctx context.Context, userIDs []string, first int, cursor string) ([]models.HelixStream, string, error)
	VideosPage(ctx context.Context, userID string, first int, cursor string) ([]models.HelixVideo, string, error)
	ClipsPage(ctx context.Context, broadcasterID string, first int, cursor string) ([]models.HelixClip, string, error)
}

// Stats describes one extraction: how many keys were requested, how many
// unique entities came back, and what was discarded along the way.
// Duplicates are observable here, never an error.
type Stats struct {
	Requested  int `json:"requested"`
	Returned   int `json:"returned"`
	Duplicates int `json:"duplicates"`
	// Failed counts chunks (or parent keys, for one-to-many extractions)
	// abandoned after the retry ceiling.
	Failed int `json:"failed"`
}

// errChunkFailed marks a chunk whose pagination failed after retries.
// Records accumulated before the failure are still returned alongside it.
var errChunkFailed = errors.New("extract: chunk pagination failed after retries")

// Extractor fetches raw entity collections from the Helix API.
type Extractor struct {
	api         API
	batchCap    int
	pageSize    int
	maxPages    int
	maxRecords  int
	concurrency int
	videoPages  int
	clipPages   int
}

// New builds an Extractor from the ETL configuration.
func New(api API, cfg config.ETLConfig) *Extractor {
	e := &Extractor{
		api:         api,
		batchCap:    cfg.BatchCap,
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		maxRecords:  cfg.MaxRecords,
		concurrency: cfg.Concurrency,
		videoPages:  cfg.VideoPagesPer,
		clipPages:   cfg.ClipPagesPer,
	}
	if e.batchCap <= 0 || e.batchCap > twitch.MaxIDsPerRequest {
		e.batchCap = twitch.MaxIDsPerRequest
	}
	if e.pageSize <= 0 || e.pageSize > twitch.MaxIDsPerRequest {
		e.pageSize = twitch.MaxIDsPerRequest
	}
	if e.concurrency <= 0 {
		e.concurrency = 1
	}
	if e.videoPages <= 0 {
		e.videoPages = 1
	}
	if e.clipPages <= 0 {
		e.clipPages = 1
	}
	return e
}

// Users fetches users by login.
func (e *Extractor) Users(ctx context.Context, logins []string) ([]models.HelixUser, Stats) {
	return overChunks(ctx, e, "users", logins,
		func(ctx context.Context, chunk []string) ([]models.HelixUser, error) {
			return e.api.UsersByLogin(ctx, chunk)
		},
		func(u models.HelixUser) string { return u.ID })
}

// UsersByID fetches users by id.
func (e *Extractor) UsersByID(ctx context.Context, ids []string) ([]models.HelixUser, Stats) {
	return overChunks(ctx, e, "users", ids,
		func(ctx context.Context, chunk []string) ([]models.HelixUser, error) {
			return e.api.UsersByID(ctx, chunk)
		},
		func(u models.HelixUser) string { return u.ID })
}

// Games fetches games by id.
func (e *Extractor) Games(ctx context.Context, ids []string) ([]models.HelixGame, Stats) {
	return overChunks(ctx, e, "games", ids,
		func(ctx context.Context, chunk []string) ([]models.HelixGame, error) {
			return e.api.GamesByID(ctx, chunk)
		},
		func(g models.HelixGame) string { return g.ID })
}

// TopGames pages through the most popular games up to limit records.
func (e *Extractor) TopGames(ctx context.Context, limit int) ([]models.HelixGame, Stats) {
	games, pageStats := twitch.FetchAll(ctx, "/games/top",
		func(ctx context.Context, cursor string) ([]models.HelixGame, string, error) {
			return e.api.TopGamesPage(ctx, min(e.pageSize, limit), cursor)
		},
		twitch.PageLimits{MaxPages: e.maxPages, MaxRecords: limit})

	unique, dups := dedupe(games, func(g models.HelixGame) string { return g.ID }, "games")
	stats := Stats{Requested: limit, Returned: len(unique), Duplicates: dups}
	if pageStats.Failed {
		stats.Failed = 1
	}
	return unique, stats
}

// Streams fetches live streams for the given broadcasters, paginating per
// chunk of user ids.
func (e *Extractor) Streams(ctx context.Context, userIDs []string) ([]models.HelixStream, Stats) {
	return overChunks(ctx, e, "streams", userIDs,
		func(ctx context.Context, chunk []string) ([]models.HelixStream, error) {
			streams, pageStats := twitch.FetchAll(ctx, "/streams",
				func(ctx context.Context, cursor string) ([]models.HelixStream, string, error) {
					return e.api.StreamsPage(ctx, chunk, e.pageSize, cursor)
				},
				twitch.PageLimits{MaxPages: e.maxPages, MaxRecords: e.maxRecords})
			if pageStats.Failed {
				return streams, errChunkFailed
			}
			return streams, nil
		},
		func(s models.HelixStream) string { return s.ID })
}

// VideosByUsers fetches each broadcaster's videos independently, so that one
// broadcaster's page failure does not affect another's extraction.
func (e *Extractor) VideosByUsers(ctx context.Context, userIDs []string) ([]models.HelixVideo, Stats) {
	return overParents(ctx, e, "videos", userIDs,
		func(ctx context.Context, userID string) ([]models.HelixVideo, bool) {
			videos, pageStats := twitch.FetchAll(ctx, "/videos",
				func(ctx context.Context, cursor string) ([]models.HelixVideo, string, error) {
					return e.api.VideosPage(ctx, userID, e.pageSize, cursor)
				},
				twitch.PageLimits{MaxPages: e.videoPages, MaxRecords: e.maxRecords})
			return videos, pageStats.Failed
		},
		func(v models.HelixVideo) string { return v.ID })
}

// ClipsByUsers fetches each broadcaster's clips independently.
func (e *Extractor) ClipsByUsers(ctx context.Context, userIDs []string) ([]models.HelixClip, Stats) {
	return overParents(ctx, e, "clips", userIDs,
		func(ctx context.Context, userID string) ([]models.HelixClip, bool) {
			clips, pageStats := twitch.FetchAll(ctx, "/clips",
				func(ctx context.Context, cursor string) ([]models.HelixClip, string, error) {
					return e.api.ClipsPage(ctx, userID, e.pageSize, cursor)
				},
				twitch.PageLimits{MaxPages: e.clipPages, MaxRecords: e.maxRecords})
			return clips, pageStats.Failed
		},
		func(c models.HelixClip) string { return c.ID })
}

// overChunks partitions keys into batchCap-sized chunks and fetches them
// under the concurrency limit. Each chunk writes only its own result slot;
// the only shared state is the failure counter.
func overChunks[T any](
	ctx context.Context,
	e *Extractor,
	entity string,
	keys []string,
	fetch func(ctx context.Context, chunk []string) ([]T, error),
	key func(T) string,
) ([]T, Stats) {
	stats := Stats{Requested: len(keys)}
	if len(keys) == 0 {
		return nil, stats
	}

	chunks := chunk(keys, e.batchCap)
	results := make([][]T, len(chunks))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			records, err := fetch(gctx, c)
			if err != nil {
				failed.Add(1)
				logger.Log.Warn("chunk extraction failed",
					zap.String("entity", entity),
					zap.Int("chunk", i),
					zap.Int("keys", len(c)),
					zap.Int("partial_records", len(records)),
					zap.Error(err),
				)
				// partial records are kept; other chunks keep going
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var merged []T
	for _, r := range results {
		merged = append(merged, r...)
	}
	unique, dups := dedupe(merged, key, entity)

	stats.Returned = len(unique)
	stats.Duplicates = dups
	stats.Failed = int(failed.Load())
	return unique, stats
}

// overParents runs one paginated fetch per parent key under the concurrency
// limit, accumulating per-parent results independently.
func overParents[T any](
	ctx context.Context,
	e *Extractor,
	entity string,
	parents []string,
	fetch func(ctx context.Context, parent string) ([]T, bool),
	key func(T) string,
) ([]T, Stats) {
	stats := Stats{Requested: len(parents)}
	if len(parents) == 0 {
		return nil, stats
	}

	results := make([][]T, len(parents))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, parent := range parents {
		g.Go(func() error {
			records, failedParent := fetch(gctx, parent)
			if failedParent {
				failed.Add(1)
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var merged []T
	for _, r := range results {
		merged = append(merged, r...)
	}
	unique, dups := dedupe(merged, key, entity)

	stats.Returned = len(unique)
	stats.Duplicates = dups
	stats.Failed = int(failed.Load())
	return unique, stats
}

// chunk partitions keys into slices of at most size elements.
func chunk(keys []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(keys); i += size {
		end := min(i+size, len(keys))
		out = append(out, keys[i:end])
	}
	return out
}

// dedupe drops records whose key was already seen; first occurrence wins.
func dedupe[T any](items []T, key func(T) string, entity string) ([]T, int) {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	dups := 0

	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			dups++
			logger.Log.Debug("duplicate record discarded",
				zap.String("entity", entity),
				zap.String("id", k),
			)
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out, dups
}
