// Package integrity removes records whose foreign keys do not resolve
// within the dataset, so the loader never trips a constraint violation.
package integrity

import (
	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/metrics"
	"github.com/stream-insights/twitch-etl-go/internal/models"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// Counts summarizes the filter outcome for a single entity.
type Counts struct {
	Original int `json:"original"`
	Filtered int `json:"filtered"`
	Removed  int `json:"removed"`
}

// Result carries the consistent dataset and per-entity removal counts.
type Result struct {
	Data   models.Dataset    `json:"-"`
	Counts map[string]Counts `json:"counts"`
}

// Filter walks the dataset in dependency order and keeps only records
// whose references resolve. Parent sets are recomputed after each tier,
// so a removed stream also invalidates the videos that pointed at it.
func Filter(data models.Dataset) Result {
	res := Result{Counts: make(map[string]Counts, 5)}

	res.Data.Users = data.Users
	res.Counts["users"] = Counts{Original: len(data.Users), Filtered: len(data.Users)}

	res.Data.Games = data.Games
	res.Counts["games"] = Counts{Original: len(data.Games), Filtered: len(data.Games)}

	userIDs := idSet(data.Users, func(u models.User) string { return u.ID })
	gameIDs := idSet(data.Games, func(g models.Game) string { return g.ID })

	res.Data.Streams = filterStreams(data.Streams, userIDs, gameIDs)
	res.Counts["streams"] = counts(len(data.Streams), len(res.Data.Streams))

	streamIDs := idSet(res.Data.Streams, func(s models.Stream) string { return s.ID })

	res.Data.Videos = filterVideos(data.Videos, userIDs, streamIDs)
	res.Counts["videos"] = counts(len(data.Videos), len(res.Data.Videos))

	videoIDs := idSet(res.Data.Videos, func(v models.Video) string { return v.ID })

	res.Data.Clips = filterClips(data.Clips, userIDs, gameIDs, videoIDs)
	res.Counts["clips"] = counts(len(data.Clips), len(res.Data.Clips))

	return res
}

func filterStreams(streams []models.Stream, userIDs, gameIDs map[string]struct{}) []models.Stream {
	kept := make([]models.Stream, 0, len(streams))
	for _, st := range streams {
		if _, ok := userIDs[st.UserID]; !ok {
			drop("streams", st.ID, "user_id", st.UserID)
			continue
		}
		if st.GameID != nil {
			if _, ok := gameIDs[*st.GameID]; !ok {
				// The game catalogue only covers what we fetched, so an
				// unknown game is not a reason to lose the stream.
				logger.Log.Debug("clearing unresolved game reference",
					zap.String("stream_id", st.ID),
					zap.String("game_id", *st.GameID))
				st.GameID = nil
			}
		}
		kept = append(kept, st)
	}
	return kept
}

func filterVideos(videos []models.Video, userIDs, streamIDs map[string]struct{}) []models.Video {
	kept := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if _, ok := userIDs[v.UserID]; !ok {
			drop("videos", v.ID, "user_id", v.UserID)
			continue
		}
		if v.StreamID != nil {
			if _, ok := streamIDs[*v.StreamID]; !ok {
				drop("videos", v.ID, "stream_id", *v.StreamID)
				continue
			}
		}
		kept = append(kept, v)
	}
	return kept
}

func filterClips(clips []models.Clip, userIDs, gameIDs, videoIDs map[string]struct{}) []models.Clip {
	kept := make([]models.Clip, 0, len(clips))
	for _, c := range clips {
		if _, ok := userIDs[c.UserID]; !ok {
			drop("clips", c.ID, "user_id", c.UserID)
			continue
		}
		if c.GameID != nil {
			if _, ok := gameIDs[*c.GameID]; !ok {
				drop("clips", c.ID, "game_id", *c.GameID)
				continue
			}
		}
		if c.VideoID != nil {
			if _, ok := videoIDs[*c.VideoID]; !ok {
				drop("clips", c.ID, "video_id", *c.VideoID)
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

func counts(original, filtered int) Counts {
	return Counts{Original: original, Filtered: filtered, Removed: original - filtered}
}

func idSet[T any](items []T, id func(T) string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[id(item)] = struct{}{}
	}
	return set
}

func drop(entity, id, field, ref string) {
	metrics.RecordsRemoved.WithLabelValues(entity, "unresolved_"+field).Inc()
	logger.Log.Warn("dropping record with unresolved reference",
		zap.String("entity", entity),
		zap.String("id", id),
		zap.String("field", field),
		zap.String("ref", ref))
}
