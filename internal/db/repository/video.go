package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stream-insights/twitch-etl-go/internal/db"
	"github.com/stream-insights/twitch-etl-go/internal/models"
)

// VideoRepository defines operations for persisting videos.
type VideoRepository interface {
	UpsertVideos(ctx context.Context, videos []models.Video) (int64, error)
	CountVideos(ctx context.Context) (int64, error)
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

var videoColumns = []string{
	"id", "stream_id", "user_id", "title", "description",
	"created_at", "published_at", "url", "thumbnail_url",
	"view_count", "language", "duration", "type",
}

func (r *videoRepository) UpsertVideos(ctx context.Context, videos []models.Video) (int64, error) {
	if len(videos) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(videos)*len(videoColumns))
	for _, v := range videos {
		args = append(args,
			v.ID, v.StreamID, v.UserID, v.Title, v.Description,
			v.CreatedAt, v.PublishedAt, v.URL, v.ThumbnailURL,
			v.ViewCount, v.Language, v.Duration, v.Type,
		)
	}

	tag, err := r.pool.Exec(ctx, upsertQuery("videos", videoColumns, len(videos)), args...)
	if err != nil {
		return 0, db.WrapError(err, "upsert videos")
	}

	return tag.RowsAffected(), nil
}

func (r *videoRepository) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM videos").Scan(&count); err != nil {
		return 0, db.WrapError(err, "count videos")
	}
	return count, nil
}
