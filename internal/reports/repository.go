// Package reports produces the downloadable expense and department
// documents, as PDF (rendered through Gotenberg) or CSV workbooks.
package reports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseRow is one line of the expense report.
type ExpenseRow struct {
	ID             int64
	Date           time.Time
	EmployeeName   string
	DepartmentName string
	Description    string
	Category       string
	Amount         float64
	Status         string
}

// DepartmentRow is one line of the department report.
type DepartmentRow struct {
	Name         string
	BudgetLimit  float64
	CurrentSpent float64
	ExpenseCount int64
}

// Filter narrows the expense report.
type Filter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Status     string
	Department string
	EmployeeID int64
	ExpenseIDs []int64
}

// Repository provides PostgreSQL backed report queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ExpenseRows returns the filtered expense lines ordered by date.
func (r *Repository) ExpenseRows(ctx context.Context, f Filter) ([]ExpenseRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT e.id, e.date, u.name, COALESCE(d.name, ''), e.description, e.category, e.amount, e.status
		FROM expenses e
		JOIN users u ON e.employee_id = u.id
		LEFT JOIN departments d ON u.department = d.name
		WHERE 1=1`)

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.StartDate != nil {
		sb.WriteString(" AND e.date >= " + arg(*f.StartDate))
	}
	if f.EndDate != nil {
		sb.WriteString(" AND e.date <= " + arg(*f.EndDate))
	}
	if f.Status != "" {
		sb.WriteString(" AND e.status = " + arg(f.Status))
	}
	if f.Department != "" {
		sb.WriteString(" AND u.department = " + arg(f.Department))
	}
	if f.EmployeeID != 0 {
		sb.WriteString(" AND e.employee_id = " + arg(f.EmployeeID))
	}
	if len(f.ExpenseIDs) > 0 {
		sb.WriteString(" AND e.id = ANY(" + arg(f.ExpenseIDs) + ")")
	}
	sb.WriteString(" ORDER BY e.date")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("expense report rows: %w", err)
	}
	defer rows.Close()
	var out []ExpenseRow
	for rows.Next() {
		var row ExpenseRow
		if err := rows.Scan(&row.ID, &row.Date, &row.EmployeeName, &row.DepartmentName,
			&row.Description, &row.Category, &row.Amount, &row.Status); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DepartmentRows returns every department with its attributed expense count.
func (r *Repository) DepartmentRows(ctx context.Context) ([]DepartmentRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.name, d.budget_limit, d.current_spent,
		       (SELECT COUNT(*) FROM expenses e
		        JOIN users u ON e.employee_id = u.id
		        WHERE u.department = d.name)
		FROM departments d
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("department report rows: %w", err)
	}
	defer rows.Close()
	var out []DepartmentRow
	for rows.Next() {
		var row DepartmentRow
		if err := rows.Scan(&row.Name, &row.BudgetLimit, &row.CurrentSpent, &row.ExpenseCount); err != nil {
			return nil, fmt.Errorf("scan department row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
