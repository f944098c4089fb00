package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/expenseflow/expenseflow/internal/notify"
)

// Engine tunables. The dedup window keeps repeated sweeps from stacking
// identical budget alerts; the anomaly windows bound the statistical
// baseline and the candidate set.
const (
	budgetDedupWindow  = 24 * time.Hour
	anomalyBaseline    = 3 * 30 * 24 * time.Hour
	anomalyLookback    = 7 * 24 * time.Hour
	anomalyStddevScale = 2.0
)

// EngineRepository is the data access the checks need.
type EngineRepository interface {
	LimitedUsers(ctx context.Context, monthStart time.Time) ([]LimitedUser, error)
	OverBudgetDepartments(ctx context.Context) ([]DepartmentSpend, error)
	ApprovedAmountsSince(ctx context.Context, since time.Time) ([]float64, error)
	ExpensesAbove(ctx context.Context, threshold float64, since time.Time) ([]AnomalousExpense, error)
	MonthlyReportRows(ctx context.Context, from, to time.Time) ([]ReportRow, error)
	CreateBudgetAlert(ctx context.Context, a Alert, window time.Duration) (bool, error)
	CreateAnomalyAlert(ctx context.Context, a Alert) (bool, error)
}

// Engine runs the periodic spend checks. A failing item is logged and
// skipped; a check only returns an error when it cannot run at all.
type Engine struct {
	logger   *slog.Logger
	repo     EngineRepository
	dispatch *notify.Dispatcher
	clock    func() time.Time
	onAlert  func(alertType, severity string)
}

// OnAlertCreated registers a hook invoked once per persisted alert, used
// for instrumentation.
func (e *Engine) OnAlertCreated(fn func(alertType, severity string)) {
	e.onAlert = fn
}

func (e *Engine) alertCreated(alertType, severity string) {
	if e.onAlert != nil {
		e.onAlert(alertType, severity)
	}
}

// NewEngine initialises the alert engine.
func NewEngine(logger *slog.Logger, repo EngineRepository, dispatch *notify.Dispatcher) *Engine {
	return &Engine{
		logger:   logger,
		repo:     repo,
		dispatch: dispatch,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// GenerateAlerts runs the budget and anomaly checks back to back, the
// 5-minute sweep.
func (e *Engine) GenerateAlerts(ctx context.Context) error {
	if err := e.CheckDepartmentBudgets(ctx); err != nil {
		return err
	}
	return e.DetectAnomalies(ctx)
}

// CheckExpenseLimits emails every user whose approved spend this month
// crossed one of the limit bands. Breaches are notification-only; no alert
// row is written.
func (e *Engine) CheckExpenseLimits(ctx context.Context) error {
	now := e.clock()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	users, err := e.repo.LimitedUsers(ctx, monthStart)
	if err != nil {
		return fmt.Errorf("expense limit sweep: %w", err)
	}

	logger := e.logger.With(slog.String("check", "expense_limits"))
	logger.Info("starting sweep", slog.Int("users", len(users)))

	notified := 0
	for _, user := range users {
		pct := user.CurrentSpent / user.ExpenseLimit * 100
		level := limitLevel(pct)
		if level == "" {
			continue
		}
		usage := notify.LimitUsage{
			Limit:      user.ExpenseLimit,
			Current:    user.CurrentSpent,
			Available:  user.ExpenseLimit - user.CurrentSpent,
			Percentage: pct,
			Level:      level,
		}
		e.dispatch.SendEmail(user.Email, notify.ExpenseLimitMessage(user.Name, usage))
		logger.Info("limit notice dispatched",
			slog.Int64("user", user.ID),
			slog.String("level", level),
			slog.Float64("percentage", pct),
		)
		notified++
	}

	logger.Info("completed sweep", slog.Int("notified", notified))
	return nil
}

// limitLevel maps consumption percentage to a notice level. At or beyond
// 100% the envelope is spent and the hourly notice would only repeat
// itself, so nothing is sent.
func limitLevel(pct float64) string {
	switch {
	case pct >= 90 && pct < 100:
		return "critical"
	case pct >= 75 && pct < 90:
		return "warning"
	case pct >= 50 && pct < 75:
		return "info"
	default:
		return ""
	}
}

// CheckDepartmentBudgets persists an alert for every department past 80%
// of its envelope, at most one per department per 24h.
func (e *Engine) CheckDepartmentBudgets(ctx context.Context) error {
	departments, err := e.repo.OverBudgetDepartments(ctx)
	if err != nil {
		return fmt.Errorf("department budget check: %w", err)
	}

	logger := e.logger.With(slog.String("check", "department_budgets"))
	created := 0
	for _, dept := range departments {
		pct := dept.CurrentSpent / dept.BudgetLimit * 100
		severity := SeverityMedium
		switch {
		case dept.CurrentSpent >= dept.BudgetLimit:
			severity = SeverityCritical
		case pct >= 90:
			severity = SeverityHigh
		}

		deptID := dept.ID
		alert := Alert{
			Type:     TypeBudget,
			Title:    fmt.Sprintf("Budget Alert - %s", dept.Name),
			Message:  fmt.Sprintf("Department %s has used %.1f%% of its budget ($%.2f / $%.2f)", dept.Name, pct, dept.CurrentSpent, dept.BudgetLimit),
			Severity: severity,

			DepartmentID:   &deptID,
			ThresholdValue: dept.BudgetLimit,
			CurrentValue:   dept.CurrentSpent,
		}
		inserted, err := e.repo.CreateBudgetAlert(ctx, alert, budgetDedupWindow)
		if err != nil {
			logger.Error("persist failed", slog.Int64("department", dept.ID), slog.Any("error", err))
			continue
		}
		if !inserted {
			continue
		}
		created++
		e.alertCreated(TypeBudget, severity)
		e.dispatch.Publish(ctx, notify.RoomAdmin, notify.EventBudgetAlert, map[string]any{
			"type":       TypeBudget,
			"department": dept.Name,
			"percentage": pct,
			"severity":   severity,
			"message":    fmt.Sprintf("%s budget at %.1f%%", dept.Name, pct),
		})
	}

	logger.Info("completed check", slog.Int("flagged", len(departments)), slog.Int("created", created))
	return nil
}

// DetectAnomalies flags recent expenses whose amount exceeds the
// three-month mean by more than two standard deviations. Each expense is
// flagged at most once across repeated runs.
func (e *Engine) DetectAnomalies(ctx context.Context) error {
	now := e.clock()
	amounts, err := e.repo.ApprovedAmountsSince(ctx, now.Add(-anomalyBaseline))
	if err != nil {
		return fmt.Errorf("anomaly baseline: %w", err)
	}

	logger := e.logger.With(slog.String("check", "anomalies"))
	if len(amounts) < 2 {
		logger.Info("baseline too small, skipping", slog.Int("samples", len(amounts)))
		return nil
	}

	mean := average(amounts)
	threshold := mean + anomalyStddevScale*std(amounts, mean)

	candidates, err := e.repo.ExpensesAbove(ctx, threshold, now.Add(-anomalyLookback))
	if err != nil {
		return fmt.Errorf("anomaly candidates: %w", err)
	}

	created := 0
	for _, expense := range candidates {
		expenseID := expense.ID
		employeeID := expense.EmployeeID
		alert := Alert{
			Type:     TypeAnomaly,
			Title:    "Anomalous Expense Detected",
			Message:  fmt.Sprintf("Expense of $%.2f flagged as anomalous for %s", expense.Amount, expense.EmployeeName),
			Severity: SeverityHigh,

			UserID:         &employeeID,
			ExpenseID:      &expenseID,
			ThresholdValue: threshold,
			CurrentValue:   expense.Amount,
		}
		inserted, err := e.repo.CreateAnomalyAlert(ctx, alert)
		if err != nil {
			logger.Error("persist failed", slog.Int64("expense", expense.ID), slog.Any("error", err))
			continue
		}
		if !inserted {
			continue
		}
		created++
		e.alertCreated(TypeAnomaly, SeverityHigh)
		e.dispatch.Publish(ctx, notify.RoomAdmin, notify.EventAnomalyAlert, map[string]any{
			"type":     TypeAnomaly,
			"expense":  expense.Description,
			"amount":   expense.Amount,
			"employee": expense.EmployeeName,
		})
	}

	logger.Info("completed check",
		slog.Float64("threshold", threshold),
		slog.Int("candidates", len(candidates)),
		slog.Int("created", created),
	)
	return nil
}

// SendMonthlyReports emails every user a summary of their prior-month
// approved spend. Users without approved expenses that month get nothing.
func (e *Engine) SendMonthlyReports(ctx context.Context) error {
	now := e.clock()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := monthStart.AddDate(0, -1, 0)

	rows, err := e.repo.MonthlyReportRows(ctx, from, monthStart)
	if err != nil {
		return fmt.Errorf("monthly reports: %w", err)
	}

	logger := e.logger.With(slog.String("check", "monthly_reports"))
	sent := 0
	for _, report := range buildReports(rows, from.Format("2006-01")) {
		if err := e.dispatch.SendEmailSync(ctx, report.email, notify.MonthlyReportMessage(report.name, report.data)); err != nil {
			logger.Error("report email failed", slog.String("to", report.email), slog.Any("error", err))
			continue
		}
		sent++
	}

	logger.Info("completed reports", slog.String("month", from.Format("2006-01")), slog.Int("sent", sent))
	return nil
}

type userReport struct {
	email string
	name  string
	data  notify.MonthlyReport
}

// buildReports folds the category rows into one report per user. Rows
// arrive ordered by user then descending total, so the first category seen
// for a user is its top category.
func buildReports(rows []ReportRow, month string) []userReport {
	var out []userReport
	index := make(map[int64]int)
	for _, row := range rows {
		i, ok := index[row.UserID]
		if !ok {
			i = len(out)
			index[row.UserID] = i
			out = append(out, userReport{
				email: row.Email,
				name:  row.Name,
				data: notify.MonthlyReport{
					Month:       month,
					TopCategory: row.Category,
					Categories:  make(map[string]notify.CategoryTotal),
				},
			})
		}
		report := &out[i]
		report.data.Categories[row.Category] = notify.CategoryTotal{Count: row.Count, Total: row.Total}
		report.data.TotalExpenses += row.Count
		report.data.TotalAmount += row.Total
	}
	for i := range out {
		if out[i].data.TotalExpenses > 0 {
			out[i].data.AverageAmount = out[i].data.TotalAmount / float64(out[i].data.TotalExpenses)
		}
	}
	return out
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// std is the sample standard deviation.
func std(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
