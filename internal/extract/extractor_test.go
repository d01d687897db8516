package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stream-insights/twitch-etl-go/internal/config"
	"github.com/stream-insights/twitch-etl-go/internal/models"
)

// fakeAPI scripts Helix responses and records call shapes.
type fakeAPI struct {
	mu        sync.Mutex
	userCalls [][]string

	usersFn   func(logins []string) ([]models.HelixUser, error)
	gamesFn   func(ids []string) ([]models.HelixGame, error)
	streamsFn func(userIDs []string, cursor string) ([]models.HelixStream, string, error)
	videosFn  func(userID string, cursor string) ([]models.HelixVideo, string, error)
	clipsFn   func(userID string, cursor string) ([]models.HelixClip, string, error)
	topFn     func(cursor string) ([]models.HelixGame, string, error)

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (f *fakeAPI) track() func() {
	n := f.inFlight.Add(1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeAPI) UsersByLogin(_ context.Context, logins []string) ([]models.HelixUser, error) {
	defer f.track()()
	f.mu.Lock()
	f.userCalls = append(f.userCalls, logins)
	f.mu.Unlock()
	if f.usersFn != nil {
		return f.usersFn(logins)
	}
	out := make([]models.HelixUser, 0, len(logins))
	for _, l := range logins {
		out = append(out, models.HelixUser{ID: "id-" + l, Login: l})
	}
	return out, nil
}

func (f *fakeAPI) UsersByID(ctx context.Context, ids []string) ([]models.HelixUser, error) {
	return f.UsersByLogin(ctx, ids)
}

func (f *fakeAPI) GamesByID(_ context.Context, ids []string) ([]models.HelixGame, error) {
	defer f.track()()
	if f.gamesFn != nil {
		return f.gamesFn(ids)
	}
	out := make([]models.HelixGame, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.HelixGame{ID: id, Name: "game " + id})
	}
	return out, nil
}

func (f *fakeAPI) TopGamesPage(_ context.Context, _ int, cursor string) ([]models.HelixGame, string, error) {
	defer f.track()()
	if f.topFn != nil {
		return f.topFn(cursor)
	}
	return nil, "", nil
}

func (f *fakeAPI) StreamsPage(_ context.Context, userIDs []string, _ int, cursor string) ([]models.HelixStream, string, error) {
	defer f.track()()
	if f.streamsFn != nil {
		return f.streamsFn(userIDs, cursor)
	}
	if cursor != "" {
		return nil, "", nil
	}
	out := make([]models.HelixStream, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, models.HelixStream{ID: "stream-" + id, UserID: id})
	}
	return out, "", nil
}

func (f *fakeAPI) VideosPage(_ context.Context, userID string, _ int, cursor string) ([]models.HelixVideo, string, error) {
	defer f.track()()
	if f.videosFn != nil {
		return f.videosFn(userID, cursor)
	}
	return nil, "", nil
}

func (f *fakeAPI) ClipsPage(_ context.Context, userID string, _ int, cursor string) ([]models.HelixClip, string, error) {
	defer f.track()()
	if f.clipsFn != nil {
		return f.clipsFn(userID, cursor)
	}
	return nil, "", nil
}

func testExtractor(api API, concurrency int) *Extractor {
	return New(api, config.ETLConfig{
		BatchCap:      100,
		PageSize:      100,
		MaxPages:      10,
		Concurrency:   concurrency,
		VideoPagesPer: 2,
		ClipPagesPer:  1,
	})
}

func TestUsersChunksKeys(t *testing.T) {
	api := &fakeAPI{}
	e := testExtractor(api, 4)

	logins := make([]string, 250)
	for i := range logins {
		logins[i] = fmt.Sprintf("streamer%03d", i)
	}

	users, stats := e.Users(context.Background(), logins)

	assert.Len(t, users, 250)
	assert.Equal(t, 250, stats.Requested)
	assert.Equal(t, 250, stats.Returned)
	assert.Zero(t, stats.Duplicates)
	assert.Zero(t, stats.Failed)

	require.Len(t, api.userCalls, 3)
	sizes := map[int]int{}
	for _, call := range api.userCalls {
		sizes[len(call)]++
	}
	assert.Equal(t, 2, sizes[100])
	assert.Equal(t, 1, sizes[50])
}

func TestUsersDeduplicatesFirstSeen(t *testing.T) {
	api := &fakeAPI{
		usersFn: func(logins []string) ([]models.HelixUser, error) {
			// same id twice with differing payloads
			return []models.HelixUser{
				{ID: "7", Login: "first"},
				{ID: "7", Login: "second"},
			}, nil
		},
	}
	e := testExtractor(api, 1)

	users, stats := e.Users(context.Background(), []string{"a"})

	require.Len(t, users, 1)
	assert.Equal(t, "first", users[0].Login, "first occurrence wins")
	assert.Equal(t, 1, stats.Duplicates)
}

func TestGamesChunkFailureIsIsolated(t *testing.T) {
	var calls atomic.Int32
	api := &fakeAPI{
		gamesFn: func(ids []string) ([]models.HelixGame, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("boom")
			}
			out := make([]models.HelixGame, 0, len(ids))
			for _, id := range ids {
				out = append(out, models.HelixGame{ID: id})
			}
			return out, nil
		},
	}
	e := testExtractor(api, 1)

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("g%d", i)
	}

	games, stats := e.Games(context.Background(), ids)

	assert.Len(t, games, 50, "second chunk survives the first chunk's failure")
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 150, stats.Requested)
}

func TestConcurrencyIsBounded(t *testing.T) {
	api := &fakeAPI{delay: 20 * time.Millisecond}
	e := testExtractor(api, 2)

	ids := make([]string, 1000)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}

	_, stats := e.UsersByID(context.Background(), ids)

	assert.Equal(t, 1000, stats.Returned)
	assert.LessOrEqual(t, api.maxInFlight.Load(), int32(2))
}

func TestStreamsKeepPartialPagesOnFailure(t *testing.T) {
	api := &fakeAPI{
		streamsFn: func(userIDs []string, cursor string) ([]models.HelixStream, string, error) {
			if cursor != "" {
				return nil, "", errors.New("page exhausted")
			}
			return []models.HelixStream{
				{ID: "s1", UserID: userIDs[0]},
				{ID: "s2", UserID: userIDs[0]},
			}, "page2", nil
		},
	}
	e := testExtractor(api, 1)

	streams, stats := e.Streams(context.Background(), []string{"u1"})

	assert.Len(t, streams, 2, "records before the failure survive")
	assert.Equal(t, 2, stats.Returned)
	assert.Equal(t, 1, stats.Failed, "the chunk still counts as failed")
}

func TestStreamsStopAtMaxRecords(t *testing.T) {
	var page atomic.Int32
	api := &fakeAPI{
		streamsFn: func(userIDs []string, cursor string) ([]models.HelixStream, string, error) {
			p := page.Add(1)
			return []models.HelixStream{
				{ID: fmt.Sprintf("s%d-1", p)},
				{ID: fmt.Sprintf("s%d-2", p)},
				{ID: fmt.Sprintf("s%d-3", p)},
			}, "next", nil
		},
	}
	e := New(api, config.ETLConfig{
		BatchCap:    100,
		PageSize:    100,
		MaxPages:    50,
		MaxRecords:  5,
		Concurrency: 1,
	})

	streams, stats := e.Streams(context.Background(), []string{"u1"})

	assert.Len(t, streams, 5)
	assert.Equal(t, 5, stats.Returned)
	assert.Zero(t, stats.Failed)
	assert.EqualValues(t, 2, page.Load(), "pagination stops once the cap is hit")
}

func TestVideosByUsersIsolatesParentFailures(t *testing.T) {
	api := &fakeAPI{
		videosFn: func(userID, cursor string) ([]models.HelixVideo, string, error) {
			if userID == "bad" {
				return nil, "", errors.New("page exhausted")
			}
			return []models.HelixVideo{{ID: "v-" + userID, UserID: userID}}, "", nil
		},
	}
	e := testExtractor(api, 2)

	videos, stats := e.VideosByUsers(context.Background(), []string{"u1", "bad", "u2"})

	assert.Len(t, videos, 2)
	assert.Equal(t, 3, stats.Requested)
	assert.Equal(t, 2, stats.Returned)
	assert.Equal(t, 1, stats.Failed)
}

func TestTopGamesHonorsLimit(t *testing.T) {
	var page atomic.Int32
	api := &fakeAPI{
		topFn: func(cursor string) ([]models.HelixGame, string, error) {
			p := page.Add(1)
			return []models.HelixGame{
				{ID: fmt.Sprintf("p%d-1", p)},
				{ID: fmt.Sprintf("p%d-2", p)},
				{ID: fmt.Sprintf("p%d-3", p)},
			}, "next", nil
		},
	}
	e := testExtractor(api, 1)

	games, stats := e.TopGames(context.Background(), 5)

	assert.Len(t, games, 5)
	assert.Equal(t, 5, stats.Returned)
}
