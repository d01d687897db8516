package transform

import (
	"strings"

	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/models"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

const (
	maxVideoTitleLen       = 200
	maxVideoDescriptionLen = 500
	maxVideoTypeLen        = 20
	maxVideoDurationLen    = 20

	// DefaultVideoType replaces unrecognized video types.
	DefaultVideoType = "archive"
)

var validVideoTypes = map[string]struct{}{
	"archive":   {},
	"highlight": {},
	"upload":    {},
}

// Videos cleans and validates raw video records. Required: id, user_id,
// title, created_at, type. A nil stream_id is preserved as nil; it is a
// legal value. Unrecognized types fall back to DefaultVideoType.
func Videos(raw []models.HelixVideo) ([]models.Video, Stats) {
	var s Stats
	s.Processed = len(raw)

	out := make([]models.Video, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, v := range raw {
		switch {
		case isBlank(v.ID):
			rejectNull("videos", v.ID, "id", &s)
			continue
		case isBlank(v.UserID):
			rejectNull("videos", v.ID, "user_id", &s)
			continue
		case isBlank(v.Title):
			rejectNull("videos", v.ID, "title", &s)
			continue
		case isBlank(v.CreatedAt):
			rejectNull("videos", v.ID, "created_at", &s)
			continue
		case isBlank(v.Type):
			rejectNull("videos", v.ID, "type", &s)
			continue
		}

		createdAt, ok := parseTime(v.CreatedAt, "created_at", "videos", v.ID, &s)
		if !ok {
			continue
		}

		if seenBefore(seen, "videos", v.ID, &s) {
			continue
		}

		videoType := strings.ToLower(cleanString(v.Type, maxVideoTypeLen, "type", "videos", v.ID, &s))
		if _, known := validVideoTypes[videoType]; !known {
			logger.Log.Warn("unrecognized video type, using default",
				zap.String("id", v.ID),
				zap.String("type", videoType),
				zap.String("default", DefaultVideoType),
			)
			s.Cleaned++
			videoType = DefaultVideoType
		}

		var streamID *string
		if v.StreamID != nil {
			streamID = optionalID(*v.StreamID)
		}

		video := models.Video{
			ID:           strings.TrimSpace(v.ID),
			StreamID:     streamID,
			UserID:       strings.TrimSpace(v.UserID),
			Title:        cleanString(v.Title, maxVideoTitleLen, "title", "videos", v.ID, &s),
			Description:  cleanString(v.Description, maxVideoDescriptionLen, "description", "videos", v.ID, &s),
			CreatedAt:    createdAt,
			URL:          strings.TrimSpace(v.URL),
			ThumbnailURL: strings.TrimSpace(v.ThumbnailURL),
			ViewCount:    clampCount(v.ViewCount, "view_count", "videos", v.ID, &s),
			Language:     cleanString(v.Language, maxLanguageLen, "language", "videos", v.ID, &s),
			Duration:     cleanString(v.Duration, maxVideoDurationLen, "duration", "videos", v.ID, &s),
			Type:         videoType,
		}

		if t, ok := parseTime(v.PublishedAt, "published_at", "videos", v.ID, &s); ok {
			video.PublishedAt = &t
		}

		out = append(out, video)
	}

	return out, s
}
