package transform

import (
	"strings"

	"github.com/stream-insights/twitch-etl-go/internal/models"
)

const (
	maxStreamTitleLen = 140
	maxLanguageLen    = 10
)

// Streams cleans and validates raw stream records. Required: id, user_id,
// title, started_at. viewer_count is floored to zero, never a rejection.
func Streams(raw []models.HelixStream) ([]models.Stream, Stats) {
	var s Stats
	s.Processed = len(raw)

	out := make([]models.Stream, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, st := range raw {
		switch {
		case isBlank(st.ID):
			rejectNull("streams", st.ID, "id", &s)
			continue
		case isBlank(st.UserID):
			rejectNull("streams", st.ID, "user_id", &s)
			continue
		case isBlank(st.Title):
			rejectNull("streams", st.ID, "title", &s)
			continue
		case isBlank(st.StartedAt):
			rejectNull("streams", st.ID, "started_at", &s)
			continue
		}

		startedAt, ok := parseTime(st.StartedAt, "started_at", "streams", st.ID, &s)
		if !ok {
			continue
		}

		if seenBefore(seen, "streams", st.ID, &s) {
			continue
		}

		out = append(out, models.Stream{
			ID:           strings.TrimSpace(st.ID),
			UserID:       strings.TrimSpace(st.UserID),
			GameID:       optionalID(st.GameID),
			Title:        cleanString(st.Title, maxStreamTitleLen, "title", "streams", st.ID, &s),
			ViewerCount:  clampCount(st.ViewerCount, "viewer_count", "streams", st.ID, &s),
			StartedAt:    startedAt,
			Language:     cleanString(st.Language, maxLanguageLen, "language", "streams", st.ID, &s),
			ThumbnailURL: strings.TrimSpace(st.ThumbnailURL),
		})
	}

	return out, s
}
