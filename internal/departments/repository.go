package departments

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

const departmentColumns = `id, name, budget_limit, current_spent, manager_id, created_at`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.BudgetLimit, &d.CurrentSpent, &d.ManagerID, &d.CreatedAt)
	return d, err
}

// ListDepartments returns all departments ordered by name.
func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateDepartment inserts a department.
func (r *Repository) CreateDepartment(ctx context.Context, name string, budgetLimit float64, managerID *int64) (Department, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO departments (name, budget_limit, manager_id) VALUES ($1, $2, $3) RETURNING `+departmentColumns,
		name, budgetLimit, managerID,
	)
	d, err := scanDepartment(row)
	if isUniqueViolation(err) {
		return Department{}, fmt.Errorf("department %s: %w", name, httpx.ErrDuplicate)
	}
	if err != nil {
		return Department{}, fmt.Errorf("create department: %w", err)
	}
	return d, nil
}

// UpdateDepartment replaces name, budget limit and manager.
func (r *Repository) UpdateDepartment(ctx context.Context, id int64, name string, budgetLimit float64, managerID *int64) (Department, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE departments SET name = $2, budget_limit = $3, manager_id = $4 WHERE id = $1 RETURNING `+departmentColumns,
		id, name, budgetLimit, managerID,
	)
	d, err := scanDepartment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Department{}, httpx.ErrNotFound
	}
	if isUniqueViolation(err) {
		return Department{}, fmt.Errorf("department %s: %w", name, httpx.ErrDuplicate)
	}
	if err != nil {
		return Department{}, fmt.Errorf("update department %d: %w", id, err)
	}
	return d, nil
}

// AccumulateSpent adds amount to the department's running spend.
func (r *Repository) AccumulateSpent(ctx context.Context, id int64, amount float64) (Department, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE departments SET current_spent = current_spent + $2 WHERE id = $1 RETURNING `+departmentColumns,
		id, amount,
	)
	d, err := scanDepartment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Department{}, httpx.ErrNotFound
	}
	if err != nil {
		return Department{}, fmt.Errorf("accumulate spend for department %d: %w", id, err)
	}
	return d, nil
}

// DeleteDepartment removes a department.
func (r *Repository) DeleteDepartment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete department %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
