package transform

import (
	"strings"

	"github.com/stream-insights/twitch-etl-go/internal/models"
)

const (
	maxGameNameLen  = 100
	maxBoxArtURLLen = 500
)

// Games cleans and validates raw game records. Required: id, name.
func Games(raw []models.HelixGame) ([]models.Game, Stats) {
	var s Stats
	s.Processed = len(raw)

	out := make([]models.Game, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, g := range raw {
		switch {
		case isBlank(g.ID):
			rejectNull("games", g.ID, "id", &s)
			continue
		case isBlank(g.Name):
			rejectNull("games", g.ID, "name", &s)
			continue
		}

		if seenBefore(seen, "games", g.ID, &s) {
			continue
		}

		out = append(out, models.Game{
			ID:        strings.TrimSpace(g.ID),
			Name:      cleanString(g.Name, maxGameNameLen, "name", "games", g.ID, &s),
			BoxArtURL: cleanString(g.BoxArtURL, maxBoxArtURLLen, "box_art_url", "games", g.ID, &s),
		})
	}

	return out, s
}
