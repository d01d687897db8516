//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stream-insights/twitch-etl-go/internal/db"
	"github.com/stream-insights/twitch-etl-go/internal/db/testutil"
	"github.com/stream-insights/twitch-etl-go/internal/models"
)

func strptr(s string) *string { return &s }

func TestStore_UpsertRoundTrip(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	store := NewStore(td.Pool)
	ctx := context.Background()

	createdAt := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("inserts then updates users idempotently", func(t *testing.T) {
		td.TruncateTables(t)

		users := []models.User{
			{ID: "u1", Login: "first", DisplayName: "First", BroadcasterType: "normal", CreatedAt: createdAt},
			{ID: "u2", Login: "second", DisplayName: "Second", BroadcasterType: "partner", CreatedAt: createdAt},
		}

		n, err := store.Users.UpsertUsers(ctx, users)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		users[0].DisplayName = "Renamed"
		n, err = store.Users.UpsertUsers(ctx, users)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n, "second run overwrites, never duplicates")

		got, err := store.Users.GetUserByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.DisplayName)

		count, err := store.Users.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("persists full dependency chain", func(t *testing.T) {
		td.TruncateTables(t)

		_, err := store.Users.UpsertUsers(ctx, []models.User{
			{ID: "u1", Login: "streamer", DisplayName: "Streamer", BroadcasterType: "normal", CreatedAt: createdAt},
		})
		require.NoError(t, err)

		_, err = store.Games.UpsertGames(ctx, []models.Game{{ID: "g1", Name: "Chess"}})
		require.NoError(t, err)

		_, err = store.Streams.UpsertStreams(ctx, []models.Stream{
			{ID: "s1", UserID: "u1", GameID: strptr("g1"), Title: "Blitz", StartedAt: createdAt},
			{ID: "s2", UserID: "u1", GameID: nil, Title: "Just Chatting", StartedAt: createdAt},
		})
		require.NoError(t, err)

		_, err = store.Videos.UpsertVideos(ctx, []models.Video{
			{ID: "v1", StreamID: strptr("s1"), UserID: "u1", Title: "VOD", CreatedAt: createdAt, Type: "archive"},
			{ID: "v2", StreamID: nil, UserID: "u1", Title: "Upload", CreatedAt: createdAt, Type: "upload"},
		})
		require.NoError(t, err)

		_, err = store.Clips.UpsertClips(ctx, []models.Clip{
			{ID: "c1", UserID: "u1", VideoID: strptr("v1"), GameID: strptr("g1"), Title: "Clutch", CreatedAt: createdAt},
		})
		require.NoError(t, err)

		counts, err := store.TableCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{
			"users": 1, "games": 1, "streams": 2, "videos": 2, "clips": 1,
		}, counts)
	})

	t.Run("rejects unknown foreign keys", func(t *testing.T) {
		td.TruncateTables(t)

		_, err := store.Streams.UpsertStreams(ctx, []models.Stream{
			{ID: "s1", UserID: "ghost", Title: "Orphan", StartedAt: createdAt},
		})
		require.Error(t, err)
		assert.True(t, db.IsForeignKeyViolation(err))
	})
}
