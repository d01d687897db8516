package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stream-insights/twitch-etl-go/internal/db"
	"github.com/stream-insights/twitch-etl-go/internal/models"
)

// ClipRepository defines operations for persisting clips.
type ClipRepository interface {
	UpsertClips(ctx context.Context, clips []models.Clip) (int64, error)
	CountClips(ctx context.Context) (int64, error)
}

type clipRepository struct {
	pool *pgxpool.Pool
}

// NewClipRepository creates a new ClipRepository.
func NewClipRepository(pool *pgxpool.Pool) ClipRepository {
	return &clipRepository{pool: pool}
}

var clipColumns = []string{
	"id", "user_id", "video_id", "game_id", "title",
	"view_count", "created_at", "thumbnail_url", "url",
	"embed_url", "duration", "language",
}

func (r *clipRepository) UpsertClips(ctx context.Context, clips []models.Clip) (int64, error) {
	if len(clips) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(clips)*len(clipColumns))
	for _, c := range clips {
		args = append(args,
			c.ID, c.UserID, c.VideoID, c.GameID, c.Title,
			c.ViewCount, c.CreatedAt, c.ThumbnailURL, c.URL,
			c.EmbedURL, c.Duration, c.Language,
		)
	}

	tag, err := r.pool.Exec(ctx, upsertQuery("clips", clipColumns, len(clips)), args...)
	if err != nil {
		return 0, db.WrapError(err, "upsert clips")
	}

	return tag.RowsAffected(), nil
}

func (r *clipRepository) CountClips(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM clips").Scan(&count); err != nil {
		return 0, db.WrapError(err, "count clips")
	}
	return count, nil
}
