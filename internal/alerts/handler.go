package alerts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/expenseflow/expenseflow/internal/platform/httpx"
	"github.com/expenseflow/expenseflow/internal/shared"
)

// RepositoryPort is the data access the HTTP surface needs.
type RepositoryPort interface {
	ListAlerts(ctx context.Context, userID int64) ([]Alert, error)
	MarkRead(ctx context.Context, id int64) error
	Stats(ctx context.Context, userID int64) ([]StatRow, error)
}

// Enqueuer submits engine runs to the background queue. The admin
// endpoints return as soon as the task is queued.
type Enqueuer interface {
	EnqueueLimitSweep(ctx context.Context) error
	EnqueueMonthlyReports(ctx context.Context) error
}

// Handler manages alert endpoints.
type Handler struct {
	logger *slog.Logger
	repo   RepositoryPort
	queue  Enqueuer
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort, queue Enqueuer) *Handler {
	return &Handler{logger: logger, repo: repo, queue: queue}
}

// MountRoutes registers alert routes for authenticated callers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listAlerts)
	r.Get("/stats", h.alertStats)
	r.Put("/{id}/read", h.markRead)
}

// MountAdminRoutes registers the on-demand engine triggers.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/check-limits", h.triggerLimitSweep)
	r.Post("/monthly-report", h.triggerMonthlyReports)
}

// listAlerts serves the 30-day window. Employees only see alerts addressed
// to them.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	var scope int64
	if !caller.IsAdmin() {
		scope = caller.ID
	}
	list, err := h.repo.ListAlerts(r.Context(), scope)
	if err != nil {
		h.logger.Error("list alerts failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Alert{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) alertStats(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	var scope int64
	if !caller.IsAdmin() {
		scope = caller.ID
	}
	stats, err := h.repo.Stats(r.Context(), scope)
	if err != nil {
		h.logger.Error("alert stats failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if stats == nil {
		stats = []StatRow{}
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid alert id")
		return
	}
	if err := h.repo.MarkRead(r.Context(), id); err != nil {
		h.logger.Error("mark alert read failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "alert marked as read"})
}

func (h *Handler) triggerLimitSweep(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.EnqueueLimitSweep(r.Context()); err != nil {
		h.logger.Error("enqueue limit sweep failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"message": "limit check started"})
}

func (h *Handler) triggerMonthlyReports(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.EnqueueMonthlyReports(r.Context()); err != nil {
		h.logger.Error("enqueue monthly reports failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"message": "monthly report generation started"})
}
