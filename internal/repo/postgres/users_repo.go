package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmendes/authsystem/internal/domain/user"
	"github.com/rmendes/authsystem/internal/repo"
)

type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	u := user.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
		Active:       true,
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, last_login, is_active)
         VALUES ($1, $2, $3, $4, NULL, $5)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.Active,
	)

	if err != nil {
		// unique_violation on users.email
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, repo.ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.scanOne(ctx,
		`SELECT id, email, password_hash, created_at, last_login, is_active
         FROM users
         WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.scanOne(ctx,
		`SELECT id, email, password_hash, created_at, last_login, is_active
         FROM users
         WHERE id = $1`,
		id,
	)
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, password_hash, created_at, last_login, is_active
         FROM users
         ORDER BY created_at`,
	)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := []user.User{}

	for rows.Next() {
		var u user.User

		err = rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastLogin, &u.Active)

		if err != nil {
			return nil, err
		}

		out = append(out, u)
	}

	return out, rows.Err()
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return repo.ErrUserNotFound
	}

	return nil
}

func (r *UsersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return repo.ErrUserNotFound
	}

	return nil
}

func (r *UsersRepo) scanOne(ctx context.Context, query string, arg any) (user.User, error) {
	var u user.User

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.LastLogin,
		&u.Active,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, repo.ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
