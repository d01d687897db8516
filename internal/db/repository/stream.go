package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stream-insights/twitch-etl-go/internal/db"
	"github.com/stream-insights/twitch-etl-go/internal/models"
)

// StreamRepository defines operations for persisting streams.
type StreamRepository interface {
	UpsertStreams(ctx context.Context, streams []models.Stream) (int64, error)
	CountStreams(ctx context.Context) (int64, error)
}

type streamRepository struct {
	pool *pgxpool.Pool
}

// NewStreamRepository creates a new StreamRepository.
func NewStreamRepository(pool *pgxpool.Pool) StreamRepository {
	return &streamRepository{pool: pool}
}

var streamColumns = []string{
	"id", "user_id", "game_id", "title",
	"viewer_count", "started_at", "language", "thumbnail_url",
}

func (r *streamRepository) UpsertStreams(ctx context.Context, streams []models.Stream) (int64, error) {
	if len(streams) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(streams)*len(streamColumns))
	for _, s := range streams {
		args = append(args,
			s.ID, s.UserID, s.GameID, s.Title,
			s.ViewerCount, s.StartedAt, s.Language, s.ThumbnailURL,
		)
	}

	tag, err := r.pool.Exec(ctx, upsertQuery("streams", streamColumns, len(streams)), args...)
	if err != nil {
		return 0, db.WrapError(err, "upsert streams")
	}

	return tag.RowsAffected(), nil
}

func (r *streamRepository) CountStreams(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM streams").Scan(&count); err != nil {
		return 0, db.WrapError(err, "count streams")
	}
	return count, nil
}
