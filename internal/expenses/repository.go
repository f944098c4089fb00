package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expenseflow/expenseflow/internal/platform/db"
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

const expenseSelect = `
	SELECT e.id, e.employee_id, u.name, e.description, e.amount, e.category, e.date,
	       COALESCE(e.receipt_file, ''), COALESCE(e.notes, ''), e.status, e.priority,
	       e.tags, e.created_by, creator.name, e.created_at
	FROM expenses e
	JOIN users u ON e.employee_id = u.id
	JOIN users creator ON e.created_by = creator.id`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.Description, &e.Amount, &e.Category,
		&e.Date, &e.ReceiptFile, &e.Notes, &e.Status, &e.Priority, &e.Tags,
		&e.CreatedBy, &e.CreatedByName, &e.CreatedAt)
	return e, err
}

// ListExpenses returns all expenses, newest first. A non-zero employeeID
// restricts the result to that employee's submissions.
func (r *Repository) ListExpenses(ctx context.Context, employeeID int64) ([]Expense, error) {
	query := expenseSelect
	args := []any{}
	if employeeID != 0 {
		query += ` WHERE e.employee_id = $1`
		args = append(args, employeeID)
	}
	query += ` ORDER BY e.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetExpense returns one expense with employee detail.
func (r *Repository) GetExpense(ctx context.Context, id int64) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, expenseSelect+` WHERE e.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, httpx.ErrNotFound
	}
	if err != nil {
		return Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// CreateExpense inserts the expense and, when the employee belongs to a
// department, accumulates the amount on that department's running spend.
// Both writes commit together.
func (r *Repository) CreateExpense(ctx context.Context, n NewExpense) (Expense, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var department string
		err := tx.QueryRow(ctx, `SELECT COALESCE(department, '') FROM users WHERE id = $1`, n.EmployeeID).Scan(&department)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("employee %d: %w", n.EmployeeID, httpx.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load employee %d: %w", n.EmployeeID, err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO expenses (employee_id, description, amount, category, date, receipt_file, notes, priority, tags, created_by)
			 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)
			 RETURNING id`,
			n.EmployeeID, n.Description, n.Amount, n.Category, n.Date, n.ReceiptFile, n.Notes, n.Priority, n.Tags, n.CreatedBy,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}

		if department != "" {
			if _, err := tx.Exec(ctx,
				`UPDATE departments SET current_spent = current_spent + $1 WHERE name = $2`,
				n.Amount, department,
			); err != nil {
				return fmt.Errorf("accumulate department spend: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Expense{}, err
	}
	return r.GetExpense(ctx, id)
}

// UpdateStatus moves a pending expense to its terminal status. Returns
// ErrValidation when the expense is no longer pending.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string) (Expense, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE expenses SET status = $2 WHERE id = $1 AND status = $3`,
		id, status, StatusPending,
	)
	if err != nil {
		return Expense{}, fmt.Errorf("update expense %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetExpense(ctx, id); err != nil {
			return Expense{}, err
		}
		return Expense{}, fmt.Errorf("expense %d already reviewed: %w", id, httpx.ErrValidation)
	}
	return r.GetExpense(ctx, id)
}
