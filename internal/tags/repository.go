package tags

import (
	"context"
	"errors"
	"fmt"

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

// ListTags returns all tags ordered by name.
func (r *Repository) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, color, COALESCE(category, ''), created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Category, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTag inserts a tag.
func (r *Repository) CreateTag(ctx context.Context, name, color, category string) (Tag, error) {
	if color == "" {
		color = DefaultColor
	}
	var t Tag
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tags (name, color, category) VALUES ($1, $2, NULLIF($3, ''))
		 RETURNING id, name, color, COALESCE(category, ''), created_at`,
		name, color, category,
	).Scan(&t.ID, &t.Name, &t.Color, &t.Category, &t.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Tag{}, fmt.Errorf("tag %s: %w", name, httpx.ErrDuplicate)
	}
	if err != nil {
		return Tag{}, fmt.Errorf("create tag: %w", err)
	}
	return t, nil
}

// DeleteTag removes a tag.
func (r *Repository) DeleteTag(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
