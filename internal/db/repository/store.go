package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stream-insights/twitch-etl-go/internal/db"
	"github.com/stream-insights/twitch-etl-go/internal/models"
)

// Store bundles the per-entity repositories over a shared pool.
type Store struct {
	Users   UserRepository
	Games   GameRepository
	Streams StreamRepository
	Videos  VideoRepository
	Clips   ClipRepository

	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:   NewUserRepository(pool),
		Games:   NewGameRepository(pool),
		Streams: NewStreamRepository(pool),
		Videos:  NewVideoRepository(pool),
		Clips:   NewClipRepository(pool),
		pool:    pool,
	}
}

// Forwarding methods so the Store can be handed around as a single
// upsert target.

func (s *Store) UpsertUsers(ctx context.Context, users []models.User) (int64, error) {
	return s.Users.UpsertUsers(ctx, users)
}

func (s *Store) UpsertGames(ctx context.Context, games []models.Game) (int64, error) {
	return s.Games.UpsertGames(ctx, games)
}

func (s *Store) UpsertStreams(ctx context.Context, streams []models.Stream) (int64, error) {
	return s.Streams.UpsertStreams(ctx, streams)
}

func (s *Store) UpsertVideos(ctx context.Context, videos []models.Video) (int64, error) {
	return s.Videos.UpsertVideos(ctx, videos)
}

func (s *Store) UpsertClips(ctx context.Context, clips []models.Clip) (int64, error) {
	return s.Clips.UpsertClips(ctx, clips)
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// TableCounts returns the row count of every entity table.
func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 5)

	for table, count := range map[string]func(context.Context) (int64, error){
		"users":   s.Users.CountUsers,
		"games":   s.Games.CountGames,
		"streams": s.Streams.CountStreams,
		"videos":  s.Videos.CountVideos,
		"clips":   s.Clips.CountClips,
	} {
		n, err := count(ctx)
		if err != nil {
			return nil, db.WrapError(err, "count "+table)
		}
		counts[table] = n
	}

	return counts, nil
}
