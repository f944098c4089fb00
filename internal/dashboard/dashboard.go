// Package dashboard serves the expense rollup consumed by the landing
// screens. Admin and employee callers get separate cache keys so scoped
// numbers never leak across roles.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expenseflow/expenseflow/internal/cache"
	"github.com/expenseflow/expenseflow/internal/platform/httpx"
	"github.com/expenseflow/expenseflow/internal/shared"
)

// Rollups go stale quickly as expenses arrive, so the TTL is short.
const metricsTTL = time.Minute

// Metrics is the expense rollup grouped by status.
type Metrics struct {
	TotalExpenses int64   `json:"total_expenses"`
	TotalAmount   float64 `json:"total_amount"`
	AvgAmount     float64 `json:"avg_amount"`
	PendingCount  int64   `json:"pending_count"`
	ApprovedCount int64   `json:"approved_count"`
	RejectedCount int64   `json:"rejected_count"`
}

// RepositoryPort computes the rollup. A zero employeeID means every
// expense; otherwise only the employee's submissions count.
type RepositoryPort interface {
	Metrics(ctx context.Context, employeeID int64) (Metrics, error)
}

// Repository provides PostgreSQL backed aggregation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Metrics runs the grouped rollup in one query.
func (r *Repository) Metrics(ctx context.Context, employeeID int64) (Metrics, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(amount), 0),
			COALESCE(AVG(amount), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM expenses`
	args := []any{}
	if employeeID != 0 {
		query += ` WHERE employee_id = $1`
		args = append(args, employeeID)
	}

	var m Metrics
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&m.TotalExpenses, &m.TotalAmount, &m.AvgAmount,
		&m.PendingCount, &m.ApprovedCount, &m.RejectedCount,
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("dashboard metrics: %w", err)
	}
	return m, nil
}

// Service handles dashboard reads.
type Service struct {
	repo  RepositoryPort
	cache *cache.Store
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, store *cache.Store) *Service {
	return &Service{repo: repo, cache: store}
}

// MetricsFor returns the rollup scoped to the caller's role.
func (s *Service) MetricsFor(ctx context.Context, caller *shared.Identity) (Metrics, error) {
	key := cache.KeyDashboardMetrics
	var scope int64
	if !caller.IsAdmin() {
		key = cache.KeyDashboardEmployee(caller.ID)
		scope = caller.ID
	}

	var m Metrics
	err := s.cache.GetOrSet(ctx, key, metricsTTL, &m, func(ctx context.Context) (any, error) {
		return s.repo.Metrics(ctx, scope)
	})
	if err != nil {
		return Metrics{}, err
	}
	return m, nil
}

// Handler serves the dashboard endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the dashboard route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.getMetrics)
}

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	m, err := h.service.MetricsFor(r.Context(), caller)
	if err != nil {
		h.logger.Error("dashboard metrics failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}
