package integrity

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stream-insights/twitch-etl-go/internal/models"
)

func strptr(s string) *string { return &s }

func TestFilterDropsStreamsWithUnknownUser(t *testing.T) {
	data := models.Dataset{
		Users: []models.User{{ID: "u1"}, {ID: "u2"}},
		Streams: []models.Stream{
			{ID: "s1", UserID: "u1"},
			{ID: "s2", UserID: "ghost"},
			{ID: "s3", UserID: "u2"},
		},
	}

	res := Filter(data)

	require.Len(t, res.Data.Streams, 2)
	assert.Equal(t, Counts{Original: 3, Filtered: 2, Removed: 1}, res.Counts["streams"])
}

func TestFilterClearsUnresolvedStreamGame(t *testing.T) {
	data := models.Dataset{
		Users: []models.User{{ID: "u1"}},
		Games: []models.Game{{ID: "g1"}},
		Streams: []models.Stream{
			{ID: "s1", UserID: "u1", GameID: strptr("g1")},
			{ID: "s2", UserID: "u1", GameID: strptr("g-unknown")},
		},
	}

	res := Filter(data)

	require.Len(t, res.Data.Streams, 2, "unknown game clears the field instead of dropping the stream")
	require.NotNil(t, res.Data.Streams[0].GameID)
	assert.Nil(t, res.Data.Streams[1].GameID)
	assert.Zero(t, res.Counts["streams"].Removed)
}

func TestFilterVideosCascadeFromRemovedStream(t *testing.T) {
	data := models.Dataset{
		Users: []models.User{{ID: "u1"}},
		Streams: []models.Stream{
			{ID: "s1", UserID: "u1"},
			{ID: "s2", UserID: "ghost"},
		},
		Videos: []models.Video{
			{ID: "v1", UserID: "u1", StreamID: strptr("s1")},
			{ID: "v2", UserID: "u1", StreamID: strptr("s2")},
			{ID: "v3", UserID: "u1", StreamID: nil},
		},
	}

	res := Filter(data)

	require.Len(t, res.Data.Videos, 2, "video pointing at the dropped stream goes with it")
	assert.Equal(t, "v1", res.Data.Videos[0].ID)
	assert.Equal(t, "v3", res.Data.Videos[1].ID)
	assert.Equal(t, 1, res.Counts["videos"].Removed)
}

func TestFilterNullStreamIDAlwaysAllowed(t *testing.T) {
	data := models.Dataset{
		Users:  []models.User{{ID: "u1"}},
		Videos: []models.Video{{ID: "v1", UserID: "u1", StreamID: nil}},
	}

	res := Filter(data)

	require.Len(t, res.Data.Videos, 1)
	assert.Zero(t, res.Counts["videos"].Removed)
}

func TestFilterClipsAgainstAllParents(t *testing.T) {
	data := models.Dataset{
		Users:   []models.User{{ID: "u1"}},
		Games:   []models.Game{{ID: "g1"}},
		Streams: []models.Stream{{ID: "s1", UserID: "u1"}},
		Videos:  []models.Video{{ID: "v1", UserID: "u1", StreamID: strptr("s1")}},
		Clips: []models.Clip{
			{ID: "c1", UserID: "u1", GameID: strptr("g1"), VideoID: strptr("v1")},
			{ID: "c2", UserID: "ghost"},
			{ID: "c3", UserID: "u1", GameID: strptr("g-unknown")},
			{ID: "c4", UserID: "u1", VideoID: strptr("v-unknown")},
			{ID: "c5", UserID: "u1"},
		},
	}

	res := Filter(data)

	require.Len(t, res.Data.Clips, 2)
	assert.Equal(t, "c1", res.Data.Clips[0].ID)
	assert.Equal(t, "c5", res.Data.Clips[1].ID)
	assert.Equal(t, 3, res.Counts["clips"].Removed)
}

func TestFilterEndToEndScenario(t *testing.T) {
	data := models.Dataset{
		Users: []models.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}},
		Games: []models.Game{{ID: "g1"}, {ID: "g2"}},
		Streams: []models.Stream{
			{ID: "s1", UserID: "u1", GameID: strptr("g1")},
			{ID: "s2", UserID: "u2", GameID: strptr("g2")},
			{ID: "s3", UserID: "u3", GameID: strptr("g1")},
			{ID: "s4", UserID: "u999", GameID: strptr("g1")},
			{ID: "s5", UserID: "u1", GameID: nil},
		},
		Videos: []models.Video{
			{ID: "v1", UserID: "u1", StreamID: strptr("s1")},
			{ID: "v2", UserID: "u2", StreamID: nil},
		},
		Clips: []models.Clip{
			{ID: "c1", UserID: "u1", GameID: strptr("g1"), VideoID: strptr("v1")},
			{ID: "c2", UserID: "u2", GameID: strptr("g2")},
			{ID: "c3", UserID: "u3", GameID: strptr("g999")},
		},
	}

	res := Filter(data)

	assert.Len(t, res.Data.Users, 3)
	assert.Len(t, res.Data.Games, 2)
	assert.Len(t, res.Data.Streams, 4)
	assert.Len(t, res.Data.Videos, 2)
	assert.Len(t, res.Data.Clips, 2)
	assert.Equal(t, 1, res.Counts["streams"].Removed)
	assert.Equal(t, 1, res.Counts["clips"].Removed)
	assert.Zero(t, res.Counts["videos"].Removed)
}

func TestFilterIsDeterministic(t *testing.T) {
	data := randomDataset(rand.New(rand.NewSource(42)))

	first := Filter(data)
	second := Filter(data)

	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, first.Data, second.Data)
}

// Every surviving non-nil reference must resolve within the surviving
// dataset, whatever the shape of the input graph.
func TestFilterOutputIsAlwaysConsistent(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			res := Filter(randomDataset(rand.New(rand.NewSource(seed))))

			users := make(map[string]struct{})
			for _, u := range res.Data.Users {
				users[u.ID] = struct{}{}
			}
			games := make(map[string]struct{})
			for _, g := range res.Data.Games {
				games[g.ID] = struct{}{}
			}
			streams := make(map[string]struct{})
			for _, s := range res.Data.Streams {
				streams[s.ID] = struct{}{}
				assert.Contains(t, users, s.UserID)
				if s.GameID != nil {
					assert.Contains(t, games, *s.GameID)
				}
			}
			videos := make(map[string]struct{})
			for _, v := range res.Data.Videos {
				videos[v.ID] = struct{}{}
				assert.Contains(t, users, v.UserID)
				if v.StreamID != nil {
					assert.Contains(t, streams, *v.StreamID)
				}
			}
			for _, c := range res.Data.Clips {
				assert.Contains(t, users, c.UserID)
				if c.GameID != nil {
					assert.Contains(t, games, *c.GameID)
				}
				if c.VideoID != nil {
					assert.Contains(t, videos, *c.VideoID)
				}
			}
		})
	}
}

func randomDataset(rng *rand.Rand) models.Dataset {
	var data models.Dataset
	for i := 0; i < 10; i++ {
		data.Users = append(data.Users, models.User{ID: fmt.Sprintf("u%d", i)})
	}
	for i := 0; i < 5; i++ {
		data.Games = append(data.Games, models.Game{ID: fmt.Sprintf("g%d", i)})
	}
	// References deliberately overshoot the parent ranges so some never resolve.
	maybe := func(prefix string, n int) *string {
		if rng.Intn(3) == 0 {
			return nil
		}
		return strptr(fmt.Sprintf("%s%d", prefix, rng.Intn(n)))
	}
	for i := 0; i < 30; i++ {
		data.Streams = append(data.Streams, models.Stream{
			ID:     fmt.Sprintf("s%d", i),
			UserID: fmt.Sprintf("u%d", rng.Intn(15)),
			GameID: maybe("g", 8),
		})
	}
	for i := 0; i < 30; i++ {
		data.Videos = append(data.Videos, models.Video{
			ID:       fmt.Sprintf("v%d", i),
			UserID:   fmt.Sprintf("u%d", rng.Intn(15)),
			StreamID: maybe("s", 40),
		})
	}
	for i := 0; i < 30; i++ {
		data.Clips = append(data.Clips, models.Clip{
			ID:      fmt.Sprintf("c%d", i),
			UserID:  fmt.Sprintf("u%d", rng.Intn(15)),
			GameID:  maybe("g", 8),
			VideoID: maybe("v", 40),
		})
	}
	return data
}
