package expenses

import (
	"context"
	"log/slog"
	"time"

	"github.com/expenseflow/expenseflow/internal/cache"
	"github.com/expenseflow/expenseflow/internal/notify"
	"github.com/expenseflow/expenseflow/internal/shared"
)

// RepositoryPort defines data access methods for expenses.
type RepositoryPort interface {
	ListExpenses(ctx context.Context, employeeID int64) ([]Expense, error)
	GetExpense(ctx context.Context, id int64) (Expense, error)
	CreateExpense(ctx context.Context, n NewExpense) (Expense, error)
	UpdateStatus(ctx context.Context, id int64, status string) (Expense, error)
}

// EmployeeDirectory resolves recipient detail for decision emails.
type EmployeeDirectory interface {
	EmailFor(ctx context.Context, userID int64) (email, name string, err error)
}

// Service handles expense business logic.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	directory EmployeeDirectory
	cache     *cache.Store
	dispatch  *notify.Dispatcher
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, directory EmployeeDirectory, store *cache.Store, dispatch *notify.Dispatcher) *Service {
	return &Service{logger: logger, repo: repo, directory: directory, cache: store, dispatch: dispatch}
}

const listTTL = 2 * time.Minute

// ListExpenses returns submissions visible to the caller: admins see all,
// employees only their own. Both views are cached; writes invalidate.
func (s *Service) ListExpenses(ctx context.Context, caller *shared.Identity) ([]Expense, error) {
	var scope int64
	key := cache.KeyExpenseList
	if !caller.IsAdmin() {
		scope = caller.ID
		key = cache.KeyUserExpenses(scope)
	}
	var list []Expense
	err := s.cache.GetOrSet(ctx, key, listTTL, &list, func(ctx context.Context) (any, error) {
		return s.repo.ListExpenses(ctx, scope)
	})
	return list, err
}

// CreateExpense records a submission, charges the employee's department and
// notifies the realtime audience.
func (s *Service) CreateExpense(ctx context.Context, n NewExpense) (Expense, error) {
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	expense, err := s.repo.CreateExpense(ctx, n)
	if err != nil {
		return Expense{}, err
	}

	s.dispatch.Publish(ctx, notify.RoomAll, notify.EventExpenseCreated, expense)
	s.dispatch.Publish(ctx, notify.RoomAdmin, notify.EventDashboardUpdate, map[string]string{"type": "expense"})
	s.invalidate(ctx, expense.EmployeeID)
	return expense, nil
}

// UpdateStatus approves or rejects a pending expense, emailing the employee
// and broadcasting the decision.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status, reason string) (Expense, error) {
	expense, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return Expense{}, err
	}

	if email, name, err := s.directory.EmailFor(ctx, expense.EmployeeID); err != nil {
		s.logger.Warn("decision email skipped", slog.Int64("expense", id), slog.Any("error", err))
	} else {
		decision := notify.ExpenseDecision{
			Description: expense.Description,
			Amount:      expense.Amount,
			Category:    expense.Category,
			Reason:      reason,
		}
		switch status {
		case StatusApproved:
			s.dispatch.SendEmail(email, notify.ExpenseApprovedMessage(name, decision))
		case StatusRejected:
			s.dispatch.SendEmail(email, notify.ExpenseRejectedMessage(name, decision))
		}
	}

	s.dispatch.Publish(ctx, notify.RoomAll, notify.EventExpenseStatusUpdated, map[string]any{"id": expense.ID, "status": status})
	s.dispatch.Publish(ctx, notify.RoomAdmin, notify.EventDashboardUpdate, map[string]string{"type": "expense"})
	s.invalidate(ctx, expense.EmployeeID)
	return expense, nil
}

// Expense writes touch the dashboards, the expense lists, the employee's
// own view and the department budget rollup.
func (s *Service) invalidate(ctx context.Context, employeeID int64) {
	keys := []string{
		cache.KeyExpenseList,
		cache.KeyDepartmentStats,
		cache.KeyUserExpenses(employeeID),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("invalidate expense keys", slog.Any("error", err))
	}
	if err := s.cache.DeleteByPattern(ctx, cache.KeyDashboardMetrics); err != nil {
		s.logger.Warn("invalidate dashboards", slog.Any("error", err))
	}
}

// ValidStatus reports whether a requested terminal status is recognised.
func ValidStatus(status string) bool {
	return status == StatusApproved || status == StatusRejected
}

// ValidPriority reports whether the priority is one of the accepted levels.
func ValidPriority(priority string) bool {
	switch priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
