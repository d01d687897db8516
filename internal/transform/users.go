package transform

import (
	"strings"

	"github.com/stream-insights/twitch-etl-go/internal/models"
)

// Twitch field limits for users.
const (
	maxLoginLen           = 25
	maxDisplayNameLen     = 50
	maxUserDescriptionLen = 300
	maxBroadcasterTypeLen = 20
)

// Users cleans and validates raw user records. Required: id, login,
// display_name. Logins are lowercased; an empty broadcaster_type becomes
// "normal".
func Users(raw []models.HelixUser) ([]models.User, Stats) {
	var s Stats
	s.Processed = len(raw)

	out := make([]models.User, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, u := range raw {
		switch {
		case isBlank(u.ID):
			rejectNull("users", u.ID, "id", &s)
			continue
		case isBlank(u.Login):
			rejectNull("users", u.ID, "login", &s)
			continue
		case isBlank(u.DisplayName):
			rejectNull("users", u.ID, "display_name", &s)
			continue
		}

		createdAt, ok := parseTime(u.CreatedAt, "created_at", "users", u.ID, &s)
		if !ok && !isBlank(u.CreatedAt) {
			continue // unparseable date, already counted
		}

		if seenBefore(seen, "users", u.ID, &s) {
			continue
		}

		broadcasterType := cleanString(u.BroadcasterType, maxBroadcasterTypeLen, "broadcaster_type", "users", u.ID, &s)
		if broadcasterType == "" {
			broadcasterType = "normal"
		}

		out = append(out, models.User{
			ID:              strings.TrimSpace(u.ID),
			Login:           strings.ToLower(cleanString(u.Login, maxLoginLen, "login", "users", u.ID, &s)),
			DisplayName:     cleanString(u.DisplayName, maxDisplayNameLen, "display_name", "users", u.ID, &s),
			BroadcasterType: broadcasterType,
			Description:     cleanString(u.Description, maxUserDescriptionLen, "description", "users", u.ID, &s),
			ProfileImageURL: strings.TrimSpace(u.ProfileImageURL),
			CreatedAt:       createdAt,
		})
	}

	return out, s
}
