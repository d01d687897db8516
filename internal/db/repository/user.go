package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stream-insights/twitch-etl-go/internal/db"
	"github.com/stream-insights/twitch-etl-go/internal/models"
)

// UserRepository defines operations for persisting users.
type UserRepository interface {
	// UpsertUsers inserts or updates the given users and reports how
	// many rows the statement touched.
	UpsertUsers(ctx context.Context, users []models.User) (int64, error)

	// GetUserByID retrieves a single user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CountUsers returns the number of rows in the users table.
	CountUsers(ctx context.Context) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

var userColumns = []string{
	"id", "login", "display_name", "broadcaster_type",
	"description", "profile_image_url", "created_at",
}

func (r *userRepository) UpsertUsers(ctx context.Context, users []models.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(users)*len(userColumns))
	for _, u := range users {
		args = append(args,
			u.ID, u.Login, u.DisplayName, u.BroadcasterType,
			u.Description, u.ProfileImageURL, u.CreatedAt,
		)
	}

	tag, err := r.pool.Exec(ctx, upsertQuery("users", userColumns, len(users)), args...)
	if err != nil {
		return 0, db.WrapError(err, "upsert users")
	}

	return tag.RowsAffected(), nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, login, display_name, broadcaster_type, description, profile_image_url, created_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Login,
		&user.DisplayName,
		&user.BroadcasterType,
		&user.Description,
		&user.ProfileImageURL,
		&user.CreatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get user by id")
	}

	return user, nil
}

func (r *userRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM users").Scan(&count); err != nil {
		return 0, db.WrapError(err, "count users")
	}
	return count, nil
}
