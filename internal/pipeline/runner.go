// Package pipeline orchestrates the extract, transform, and load stages
// into a single run with JSON artifacts between the stages.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/config"
	"github.com/stream-insights/twitch-etl-go/internal/extract"
	"github.com/stream-insights/twitch-etl-go/internal/integrity"
	"github.com/stream-insights/twitch-etl-go/internal/load"
	"github.com/stream-insights/twitch-etl-go/internal/models"
	"github.com/stream-insights/twitch-etl-go/internal/transform"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// Stage selects which part of the pipeline a run executes.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
	StageFull      Stage = "full"
)

// ParseStage validates a stage name from the command line.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageExtract, StageTransform, StageLoad, StageFull:
		return Stage(s), nil
	}
	return "", fmt.Errorf("unknown stage %q (want extract, transform, load, or full)", s)
}

// Counter reports current table sizes. *repository.Store satisfies it.
type Counter interface {
	TableCounts(ctx context.Context) (map[string]int64, error)
}

// ExtractReport summarizes the extract stage.
type ExtractReport struct {
	Stats    map[string]extract.Stats `json:"stats"`
	Records  int                      `json:"records"`
	Artifact string                   `json:"artifact"`
	Duration float64                  `json:"duration_seconds"`
}

// TransformReport summarizes the transform stage, including the
// referential integrity pass.
type TransformReport struct {
	Stats    map[string]transform.Stats  `json:"stats"`
	Filter   map[string]integrity.Counts `json:"filter"`
	Records  int                         `json:"records"`
	Artifact string                      `json:"artifact"`
	Duration float64                     `json:"duration_seconds"`
}

// RunReport is the full record of one pipeline run.
type RunReport struct {
	RunID       string           `json:"run_id"`
	Stage       Stage            `json:"stage"`
	StartedAt   time.Time        `json:"started_at"`
	Duration    float64          `json:"duration_seconds"`
	Extract     *ExtractReport   `json:"extract,omitempty"`
	Transform   *TransformReport `json:"transform,omitempty"`
	Load        *load.Report     `json:"load,omitempty"`
	TableCounts map[string]int64 `json:"table_counts,omitempty"`
	Error       string           `json:"error,omitempty"`
	Success     bool             `json:"success"`
}

// Runner wires the stages together.
type Runner struct {
	extractor *extract.Extractor
	loader    *load.Loader
	counter   Counter
	cfg       config.ETLConfig
}

// New creates a Runner. counter may be nil when no database is attached.
func New(extractor *extract.Extractor, loader *load.Loader, counter Counter, cfg config.ETLConfig) *Runner {
	return &Runner{extractor: extractor, loader: loader, counter: counter, cfg: cfg}
}

// Run executes the requested stage and always returns a report, even on
// failure. The run is bounded by the configured timeout.
func (r *Runner) Run(ctx context.Context, stage Stage) *RunReport {
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		Stage:     stage,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt).Seconds()
	}()

	logger.Log.Info("pipeline run starting",
		zap.String("run_id", report.RunID),
		zap.String("stage", string(stage)))

	var (
		raw   *models.RawDataset
		clean *models.Dataset
		err   error
	)

	if stage == StageExtract || stage == StageFull {
		raw, report.Extract, err = r.runExtract(ctx)
		if err != nil {
			return r.fail(report, err)
		}
	}

	if stage == StageTransform || stage == StageFull {
		if raw == nil {
			raw = &models.RawDataset{}
			if _, err = loadArtifact(r.cfg.WorkDir, "extracted", raw); err != nil {
				return r.fail(report, err)
			}
		}
		clean, report.Transform, err = r.runTransform(*raw)
		if err != nil {
			return r.fail(report, err)
		}
	}

	if stage == StageLoad || stage == StageFull {
		if clean == nil {
			clean = &models.Dataset{}
			if _, err = loadArtifact(r.cfg.WorkDir, "transformed", clean); err != nil {
				return r.fail(report, err)
			}
		}
		report.Load = r.loader.Run(ctx, *clean)
		if r.counter != nil {
			counts, countErr := r.counter.TableCounts(ctx)
			if countErr != nil {
				logger.Log.Warn("table counts unavailable", zap.Error(countErr))
			} else {
				report.TableCounts = counts
			}
		}
		if !report.Load.Success {
			return r.fail(report, fmt.Errorf("load stage completed with failed entities"))
		}
	}

	report.Success = true
	logger.Log.Info("pipeline run finished",
		zap.String("run_id", report.RunID),
		zap.Float64("duration_seconds", time.Since(report.StartedAt).Seconds()))
	return report
}

func (r *Runner) fail(report *RunReport, err error) *RunReport {
	report.Error = err.Error()
	logger.Log.Error("pipeline run failed",
		zap.String("run_id", report.RunID),
		zap.String("stage", string(report.Stage)),
		zap.Error(err))
	return report
}

// runExtract pulls the raw dataset from the API, fanning out from seed
// logins. Games are resolved last so the ids referenced by streams and
// clips make it into the catalogue.
func (r *Runner) runExtract(ctx context.Context) (*models.RawDataset, *ExtractReport, error) {
	start := time.Now()
	rep := &ExtractReport{Stats: make(map[string]extract.Stats, 5)}
	raw := &models.RawDataset{}

	var stats extract.Stats
	raw.Users, stats = r.extractor.Users(ctx, r.cfg.SeedLogins)
	rep.Stats["users"] = stats
	if len(raw.Users) == 0 {
		return nil, rep, fmt.Errorf("extract: no users resolved from %d seed logins", len(r.cfg.SeedLogins))
	}

	userIDs := make([]string, 0, len(raw.Users))
	for _, u := range raw.Users {
		userIDs = append(userIDs, u.ID)
	}

	raw.Streams, stats = r.extractor.Streams(ctx, userIDs)
	rep.Stats["streams"] = stats

	raw.Videos, stats = r.extractor.VideosByUsers(ctx, userIDs)
	rep.Stats["videos"] = stats

	raw.Clips, stats = r.extractor.ClipsByUsers(ctx, userIDs)
	rep.Stats["clips"] = stats

	raw.Users = r.fetchClipCreators(ctx, raw, rep)

	raw.Games, rep.Stats["games"] = r.fetchGames(ctx, raw)

	rep.Records = raw.Total()
	rep.Duration = time.Since(start).Seconds()

	artifact, err := saveArtifact(r.cfg.WorkDir, "extracted", start, raw)
	if err != nil {
		return nil, rep, err
	}
	rep.Artifact = artifact

	logger.Log.Info("extract stage complete",
		zap.Int("records", rep.Records),
		zap.String("artifact", artifact))
	return raw, rep, nil
}

// fetchClipCreators resolves the accounts that created the fetched clips,
// so the users table also covers clippers who are not seed broadcasters.
func (r *Runner) fetchClipCreators(ctx context.Context, raw *models.RawDataset, rep *ExtractReport) []models.HelixUser {
	known := make(map[string]struct{}, len(raw.Users))
	for _, u := range raw.Users {
		known[u.ID] = struct{}{}
	}

	var creatorIDs []string
	for _, c := range raw.Clips {
		id := c.CreatorID
		if id == "" {
			continue
		}
		if _, ok := known[id]; ok {
			continue
		}
		known[id] = struct{}{}
		creatorIDs = append(creatorIDs, id)
	}
	if len(creatorIDs) == 0 {
		return raw.Users
	}

	creators, stats := r.extractor.UsersByID(ctx, creatorIDs)

	merged := rep.Stats["users"]
	merged.Requested += stats.Requested
	merged.Duplicates += stats.Duplicates
	merged.Failed += stats.Failed
	merged.Returned += len(creators)
	rep.Stats["users"] = merged

	return append(raw.Users, creators...)
}

// fetchGames unions the game ids referenced anywhere in the raw dataset
// with the configured seeds, then optionally tops the catalogue up with
// the most popular games.
func (r *Runner) fetchGames(ctx context.Context, raw *models.RawDataset) ([]models.HelixGame, extract.Stats) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range r.cfg.SeedGameIDs {
		add(id)
	}
	for _, s := range raw.Streams {
		add(s.GameID)
	}
	for _, c := range raw.Clips {
		add(c.GameID)
	}

	games, stats := r.extractor.Games(ctx, ids)

	if r.cfg.TopGamesLimit > 0 {
		top, topStats := r.extractor.TopGames(ctx, r.cfg.TopGamesLimit)
		for _, g := range top {
			if _, ok := seen[g.ID]; ok {
				continue
			}
			seen[g.ID] = struct{}{}
			games = append(games, g)
		}
		stats.Requested += topStats.Requested
		stats.Returned = len(games)
		stats.Failed += topStats.Failed
	}

	return games, stats
}

// runTransform cleans the raw dataset and filters out records whose
// references cannot be satisfied.
func (r *Runner) runTransform(raw models.RawDataset) (*models.Dataset, *TransformReport, error) {
	start := time.Now()
	rep := &TransformReport{Stats: make(map[string]transform.Stats, 5)}

	var data models.Dataset
	data.Users, rep.Stats["users"] = transform.Users(raw.Users)
	data.Games, rep.Stats["games"] = transform.Games(raw.Games)
	data.Streams, rep.Stats["streams"] = transform.Streams(raw.Streams)
	data.Videos, rep.Stats["videos"] = transform.Videos(raw.Videos)
	data.Clips, rep.Stats["clips"] = transform.Clips(raw.Clips)

	res := integrity.Filter(data)
	rep.Filter = res.Counts
	rep.Records = res.Data.Total()
	rep.Duration = time.Since(start).Seconds()

	artifact, err := saveArtifact(r.cfg.WorkDir, "transformed", start, res.Data)
	if err != nil {
		return nil, rep, err
	}
	rep.Artifact = artifact

	logger.Log.Info("transform stage complete",
		zap.Int("records", rep.Records),
		zap.String("artifact", artifact))
	return &res.Data, rep, nil
}
