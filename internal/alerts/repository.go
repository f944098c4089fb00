package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expenseflow/expenseflow/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for alerts and the
// aggregate queries the engine runs over expenses and departments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListAlerts returns the last 30 days, newest first. A non-zero userID
// restricts to alerts addressed to that user.
func (r *Repository) ListAlerts(ctx context.Context, userID int64) ([]Alert, error) {
	query := `
		SELECT a.id, a.type, a.title, a.message, a.severity,
		       a.department_id, a.user_id, a.expense_id,
		       COALESCE(a.threshold_value, 0), COALESCE(a.current_value, 0),
		       a.is_read, a.created_at, a.resolved_at,
		       COALESCE(d.name, ''), COALESCE(u.name, ''),
		       COALESCE(e.description, ''), COALESCE(e.amount, 0)
		FROM alerts a
		LEFT JOIN departments d ON a.department_id = d.id
		LEFT JOIN users u ON a.user_id = u.id
		LEFT JOIN expenses e ON a.expense_id = e.id
		WHERE a.created_at > now() - interval '30 days'`
	args := []any{}
	if userID != 0 {
		query += ` AND a.user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY a.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	var out []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Type, &a.Title, &a.Message, &a.Severity,
			&a.DepartmentID, &a.UserID, &a.ExpenseID,
			&a.ThresholdValue, &a.CurrentValue,
			&a.IsRead, &a.CreatedAt, &a.ResolvedAt,
			&a.DepartmentName, &a.UserName,
			&a.ExpenseDescription, &a.ExpenseAmount); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkRead flips the read flag.
func (r *Repository) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE alerts SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark alert %d read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Stats returns the 7-day type by severity breakdown, optionally scoped to
// one user.
func (r *Repository) Stats(ctx context.Context, userID int64) ([]StatRow, error) {
	query := `
		SELECT type, severity, COUNT(*)
		FROM alerts
		WHERE created_at > now() - interval '7 days'`
	args := []any{}
	if userID != 0 {
		query += ` AND user_id = $1`
		args = append(args, userID)
	}
	query += ` GROUP BY type, severity ORDER BY type, severity`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("alert stats: %w", err)
	}
	defer rows.Close()
	var out []StatRow
	for rows.Next() {
		var s StatRow
		if err := rows.Scan(&s.Type, &s.Severity, &s.Count); err != nil {
			return nil, fmt.Errorf("scan alert stat: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateBudgetAlert inserts a budget alert unless one for the same
// department was created within the dedup window. The existence check and
// the insert run as one statement, so concurrent sweeps cannot both insert.
// Returns false when deduplicated.
func (r *Repository) CreateBudgetAlert(ctx context.Context, a Alert, window time.Duration) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO alerts (type, title, message, severity, department_id, threshold_value, current_value)
		 SELECT $1, $2, $3, $4, $5, $6, $7
		 WHERE NOT EXISTS (
			SELECT 1 FROM alerts
			WHERE type = $1 AND department_id = $5 AND created_at > now() - $8::interval
		 )`,
		a.Type, a.Title, a.Message, a.Severity, a.DepartmentID, a.ThresholdValue, a.CurrentValue,
		fmt.Sprintf("%d seconds", int(window.Seconds())),
	)
	if err != nil {
		return false, fmt.Errorf("create budget alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateAnomalyAlert inserts an anomaly alert unless any alert already
// references the same expense. Returns false when deduplicated.
func (r *Repository) CreateAnomalyAlert(ctx context.Context, a Alert) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO alerts (type, title, message, severity, user_id, expense_id, threshold_value, current_value)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8
		 WHERE NOT EXISTS (SELECT 1 FROM alerts WHERE expense_id = $6)`,
		a.Type, a.Title, a.Message, a.Severity, a.UserID, a.ExpenseID, a.ThresholdValue, a.CurrentValue,
	)
	if err != nil {
		return false, fmt.Errorf("create anomaly alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LimitedUsers returns every user with a personal limit set, joined with
// their approved spend since monthStart.
func (r *Repository) LimitedUsers(ctx context.Context, monthStart time.Time) ([]LimitedUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.email, u.expense_limit,
		        COALESCE((SELECT SUM(e.amount) FROM expenses e
		                  WHERE e.employee_id = u.id AND e.status = 'approved' AND e.date >= $1), 0)
		 FROM users u
		 WHERE u.expense_limit > 0`,
		monthStart,
	)
	if err != nil {
		return nil, fmt.Errorf("limited users: %w", err)
	}
	defer rows.Close()
	var out []LimitedUser
	for rows.Next() {
		var u LimitedUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ExpenseLimit, &u.CurrentSpent); err != nil {
			return nil, fmt.Errorf("scan limited user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// OverBudgetDepartments returns departments past 80% of their envelope.
func (r *Repository) OverBudgetDepartments(ctx context.Context) ([]DepartmentSpend, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, budget_limit, current_spent
		 FROM departments
		 WHERE current_spent > budget_limit * 0.8`)
	if err != nil {
		return nil, fmt.Errorf("over-budget departments: %w", err)
	}
	defer rows.Close()
	var out []DepartmentSpend
	for rows.Next() {
		var d DepartmentSpend
		if err := rows.Scan(&d.ID, &d.Name, &d.BudgetLimit, &d.CurrentSpent); err != nil {
			return nil, fmt.Errorf("scan department spend: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ApprovedAmountsSince returns the amounts of approved expenses created
// after the given time, for the anomaly baseline.
func (r *Repository) ApprovedAmountsSince(ctx context.Context, since time.Time) ([]float64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT amount FROM expenses WHERE status = 'approved' AND created_at > $1`, since)
	if err != nil {
		return nil, fmt.Errorf("approved amounts: %w", err)
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var amount float64
		if err := rows.Scan(&amount); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		out = append(out, amount)
	}
	return out, rows.Err()
}

// ExpensesAbove returns expenses created after since with an amount over
// the threshold.
func (r *Repository) ExpensesAbove(ctx context.Context, threshold float64, since time.Time) ([]AnomalousExpense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.employee_id, u.name, e.description, e.amount
		 FROM expenses e
		 JOIN users u ON e.employee_id = u.id
		 WHERE e.amount > $1 AND e.created_at > $2`,
		threshold, since)
	if err != nil {
		return nil, fmt.Errorf("expenses above threshold: %w", err)
	}
	defer rows.Close()
	var out []AnomalousExpense
	for rows.Next() {
		var e AnomalousExpense
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.Description, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan anomalous expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MonthlyReportRows returns the per-user per-category rollup of approved
// expenses dated inside [from, to).
func (r *Repository) MonthlyReportRows(ctx context.Context, from, to time.Time) ([]ReportRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.email, e.category, COUNT(*), SUM(e.amount)
		 FROM expenses e
		 JOIN users u ON e.employee_id = u.id
		 WHERE e.status = 'approved' AND e.date >= $1 AND e.date < $2
		 GROUP BY u.id, u.name, u.email, e.category
		 ORDER BY u.id, SUM(e.amount) DESC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly report rows: %w", err)
	}
	defer rows.Close()
	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.UserID, &row.Name, &row.Email, &row.Category, &row.Count, &row.Total); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
