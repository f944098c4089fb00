package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expenseflow/expenseflow/internal/shared"
)

// Repository loads credentials from the persistent store.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	var c Credential
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, role, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Role, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
