package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auth_backend/internal/config"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (user_id, email, password_hash, name, birth)
		VALUES ($1, $2, $3, $4, $5);
	`

	_, err := r.pool.Exec(ctx, query, user.UserID, user.Email, string(user.PassHash), user.Name, user.Birth)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UserByID(ctx context.Context, userID string) (models.User, error) {
	query := `
		SELECT user_id, email, password_hash, name, birth
		FROM users
		WHERE user_id = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, userID))
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT user_id, email, password_hash, name, birth
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) ExistsByUserID(ctx context.Context, userID string) (bool, error) {
	const op = "storage.postgres.ExistsByUserID"

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1);`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (r *PostgresRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const op = "storage.postgres.ExistsByEmail"

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1);`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// * UpdateUser обновляет профиль; user_id неизменяем после регистрации
func (r *PostgresRepo) UpdateUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.UpdateUser"

	query := `
		UPDATE users
		SET name = $1, birth = $2, password_hash = $3
		WHERE user_id = $4;
	`

	tag, err := r.pool.Exec(ctx, query, user.Name, user.Birth, string(user.PassHash), user.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.UserID,
		&u.Email,
		&u.PassHash,
		&u.Name,
		&u.Birth,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
