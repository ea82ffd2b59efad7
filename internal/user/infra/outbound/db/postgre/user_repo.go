package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	userDomain "github.com/davicafu/tripcache/internal/user/domain"
)

type UserRepoPostgres struct {
	db *sql.DB
}

func NewUserRepoPostgres(db *sql.DB) *UserRepoPostgres {
	return &UserRepoPostgres{db: db}
}

var _ userDomain.UserRepository = (*UserRepoPostgres)(nil)

const uniqueViolation = "23505"

func (r *UserRepoPostgres) Create(ctx context.Context, u *userDomain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, subscription_tier, preferred_currency, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.SubscriptionTier, u.PreferredCurrency, u.CreatedAt, u.UpdatedAt,
	)
	return mapError(err)
}

func (r *UserRepoPostgres) Update(ctx context.Context, u *userDomain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email=$1, name=$2, subscription_tier=$3, preferred_currency=$4, updated_at=$5 WHERE id=$6`,
		u.Email, u.Name, u.SubscriptionTier, u.PreferredCurrency, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return userDomain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepoPostgres) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return userDomain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, subscription_tier, preferred_currency, created_at, updated_at
		 FROM users WHERE id = $1`, id)

	var u userDomain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.SubscriptionTier, &u.PreferredCurrency, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return userDomain.ErrUserAlreadyExists
	}
	return err
}

// InitPostgres crea la tabla users si no existe
func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		subscription_tier TEXT NOT NULL DEFAULT 'free',
		preferred_currency CHAR(3) NOT NULL DEFAULT 'MYR',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}
