package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expenseflow/expenseflow/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, role, COALESCE(department, ''), COALESCE(position, ''), expense_limit, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.Position, &u.ExpenseLimit, &u.CreatedAt)
	return u, err
}

// ListUsers returns all accounts ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns one account by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, httpx.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// CreateUser inserts an account and returns it with generated fields.
func (r *Repository) CreateUser(ctx context.Context, n NewUser, passwordHash string) (User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role, department, position, expense_limit)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		 RETURNING `+userColumns,
		n.Name, n.Email, passwordHash, n.Role, n.Department, n.Position, n.ExpenseLimit,
	)
	u, err := scanUser(row)
	if isUniqueViolation(err) {
		return User{}, fmt.Errorf("email %s: %w", n.Email, httpx.ErrDuplicate)
	}
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UpdateUser applies the non-nil fields and returns the updated account.
func (r *Repository) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			role = COALESCE($4, role),
			department = COALESCE($5, department),
			position = COALESCE($6, position),
			expense_limit = COALESCE($7, expense_limit)
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, upd.Name, upd.Email, upd.Role, upd.Department, upd.Position, upd.ExpenseLimit,
	)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, httpx.ErrNotFound
	}
	if isUniqueViolation(err) {
		return User{}, fmt.Errorf("email taken: %w", httpx.ErrDuplicate)
	}
	if err != nil {
		return User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	return u, nil
}

// DeleteUser removes an account.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// EmailFor returns the contact details for an account. It backs the
// expense decision notifications.
func (r *Repository) EmailFor(ctx context.Context, id int64) (string, string, error) {
	var email, name string
	err := r.pool.QueryRow(ctx, `SELECT email, name FROM users WHERE id = $1`, id).Scan(&email, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", httpx.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("lookup user %d: %w", id, err)
	}
	return email, name, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
