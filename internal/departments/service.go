package departments

import (
	"context"
	"log/slog"
	"time"

	"github.com/expenseflow/expenseflow/internal/cache"
)

const listTTL = 5 * time.Minute

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	CreateDepartment(ctx context.Context, name string, budgetLimit float64, managerID *int64) (Department, error)
	UpdateDepartment(ctx context.Context, id int64, name string, budgetLimit float64, managerID *int64) (Department, error)
	AccumulateSpent(ctx context.Context, id int64, amount float64) (Department, error)
	DeleteDepartment(ctx context.Context, id int64) error
}

// Service handles department business logic.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	cache  *cache.Store
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, store *cache.Store) *Service {
	return &Service{logger: logger, repo: repo, cache: store}
}

// ListBudgetViews returns every department with derived budget health,
// served from cache when warm.
func (s *Service) ListBudgetViews(ctx context.Context) ([]BudgetView, error) {
	var views []BudgetView
	err := s.cache.GetOrSet(ctx, cache.KeyDepartmentStats, listTTL, &views, func(ctx context.Context) (any, error) {
		depts, err := s.repo.ListDepartments(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]BudgetView, len(depts))
		for i, d := range depts {
			out[i] = d.View()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// CreateDepartment registers a cost center.
func (s *Service) CreateDepartment(ctx context.Context, name string, budgetLimit float64, managerID *int64) (Department, error) {
	d, err := s.repo.CreateDepartment(ctx, name, budgetLimit, managerID)
	if err != nil {
		return Department{}, err
	}
	s.invalidate(ctx)
	return d, nil
}

// UpdateDepartment replaces the mutable fields.
func (s *Service) UpdateDepartment(ctx context.Context, id int64, name string, budgetLimit float64, managerID *int64) (Department, error) {
	d, err := s.repo.UpdateDepartment(ctx, id, name, budgetLimit, managerID)
	if err != nil {
		return Department{}, err
	}
	s.invalidate(ctx)
	return d, nil
}

// AccumulateSpent adds to the running spend, as when an approved expense is
// attributed to the department.
func (s *Service) AccumulateSpent(ctx context.Context, id int64, amount float64) (Department, error) {
	d, err := s.repo.AccumulateSpent(ctx, id, amount)
	if err != nil {
		return Department{}, err
	}
	s.invalidate(ctx)
	return d, nil
}

// DeleteDepartment removes a cost center.
func (s *Service) DeleteDepartment(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyDepartmentStats); err != nil {
		s.logger.Warn("invalidate department stats", slog.Any("error", err))
	}
	if err := s.cache.DeleteByPattern(ctx, cache.KeyDashboardMetrics); err != nil {
		s.logger.Warn("invalidate dashboards", slog.Any("error", err))
	}
}
