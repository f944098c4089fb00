package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/expenseflow/expenseflow/internal/auth"
	"github.com/expenseflow/expenseflow/internal/cache"
	"github.com/expenseflow/expenseflow/internal/notify"
)

const listTTL = 5 * time.Minute

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, n NewUser, passwordHash string) (User, error)
	UpdateUser(ctx context.Context, id int64, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Service handles account business logic.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	cache    *cache.Store
	dispatch *notify.Dispatcher
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, store *cache.Store, dispatch *notify.Dispatcher) *Service {
	return &Service{logger: logger, repo: repo, cache: store, dispatch: dispatch}
}

// ListUsers returns all accounts, served from cache when warm.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := s.cache.GetOrSet(ctx, cache.KeyUserList, listTTL, &users, func(ctx context.Context) (any, error) {
		return s.repo.ListUsers(ctx)
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser provisions an account, greets it by email and refreshes caches.
func (s *Service) CreateUser(ctx context.Context, n NewUser) (User, error) {
	hash, err := auth.HashPassword(n.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, n, hash)
	if err != nil {
		return User{}, err
	}
	s.dispatch.SendEmail(user.Email, notify.WelcomeMessage(user.Name))
	s.invalidate(ctx)
	return user, nil
}

// UpdateUser applies changes and refreshes caches.
func (s *Service) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (User, error) {
	user, err := s.repo.UpdateUser(ctx, id, upd)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx)
	return user, nil
}

// DeleteUser removes an account and refreshes caches.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Account mutations change both the admin list and the dashboard rollups,
// including the employee-scoped variants.
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyUserList); err != nil {
		s.logger.Warn("invalidate user list", slog.Any("error", err))
	}
	if err := s.cache.DeleteByPattern(ctx, cache.KeyDashboardMetrics); err != nil {
		s.logger.Warn("invalidate dashboards", slog.Any("error", err))
	}
}
