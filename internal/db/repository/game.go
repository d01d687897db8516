package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stream-insights/twitch-etl-go/internal/db"
	"github.com/stream-insights/twitch-etl-go/internal/models"
)

// GameRepository defines operations for persisting games.
type GameRepository interface {
	UpsertGames(ctx context.Context, games []models.Game) (int64, error)
	CountGames(ctx context.Context) (int64, error)
}

type gameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository.
func NewGameRepository(pool *pgxpool.Pool) GameRepository {
	return &gameRepository{pool: pool}
}

var gameColumns = []string{"id", "name", "box_art_url"}

func (r *gameRepository) UpsertGames(ctx context.Context, games []models.Game) (int64, error) {
	if len(games) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(games)*len(gameColumns))
	for _, g := range games {
		args = append(args, g.ID, g.Name, g.BoxArtURL)
	}

	tag, err := r.pool.Exec(ctx, upsertQuery("games", gameColumns, len(games)), args...)
	if err != nil {
		return 0, db.WrapError(err, "upsert games")
	}

	return tag.RowsAffected(), nil
}

func (r *gameRepository) CountGames(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM games").Scan(&count); err != nil {
		return 0, db.WrapError(err, "count games")
	}
	return count, nil
}
