package transform

import (
	"strings"

	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/models"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

const (
	maxClipTitleLen  = 100
	maxClipGameIDLen = 20
)

// Clips cleans and validates raw clip records. Required: id, broadcaster_id
// (mapped to user_id), title, created_at. A non-positive duration becomes
// nil rather than a rejection.
func Clips(raw []models.HelixClip) ([]models.Clip, Stats) {
	var s Stats
	s.Processed = len(raw)

	out := make([]models.Clip, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, c := range raw {
		switch {
		case isBlank(c.ID):
			rejectNull("clips", c.ID, "id", &s)
			continue
		case isBlank(c.BroadcasterID):
			rejectNull("clips", c.ID, "broadcaster_id", &s)
			continue
		case isBlank(c.Title):
			rejectNull("clips", c.ID, "title", &s)
			continue
		case isBlank(c.CreatedAt):
			rejectNull("clips", c.ID, "created_at", &s)
			continue
		}

		createdAt, ok := parseTime(c.CreatedAt, "created_at", "clips", c.ID, &s)
		if !ok {
			continue
		}

		if seenBefore(seen, "clips", c.ID, &s) {
			continue
		}

		var duration *float64
		if c.Duration > 0 {
			d := c.Duration
			duration = &d
		} else if c.Duration < 0 {
			logger.Log.Warn("invalid clip duration dropped",
				zap.String("id", c.ID),
				zap.Float64("duration", c.Duration),
			)
			s.ValidationErrors++
		}

		gameID := optionalID(cleanString(c.GameID, maxClipGameIDLen, "game_id", "clips", c.ID, &s))

		out = append(out, models.Clip{
			ID:           strings.TrimSpace(c.ID),
			UserID:       strings.TrimSpace(c.BroadcasterID),
			VideoID:      optionalID(c.VideoID),
			GameID:       gameID,
			Title:        cleanString(c.Title, maxClipTitleLen, "title", "clips", c.ID, &s),
			ViewCount:    clampCount(c.ViewCount, "view_count", "clips", c.ID, &s),
			CreatedAt:    createdAt,
			ThumbnailURL: strings.TrimSpace(c.ThumbnailURL),
			URL:          strings.TrimSpace(c.URL),
			EmbedURL:     strings.TrimSpace(c.EmbedURL),
			Duration:     duration,
			Language:     cleanString(c.Language, maxLanguageLen, "language", "clips", c.ID, &s),
		})
	}

	return out, s
}
