package departments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/expenseflow/expenseflow/internal/platform/httpx"
)

// Handler manages department endpoints. Reads are open to every
// authenticated caller; mutations are mounted behind the admin guard.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the read surface.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listDepartments)
}

// MountAdminRoutes registers the mutation surface.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/", h.createDepartment)
	r.Put("/{id}", h.updateDepartment)
	r.Put("/{id}/budget", h.accumulateBudget)
	r.Delete("/{id}", h.deleteDepartment)
}

type departmentRequest struct {
	Name        string  `json:"name" validate:"required"`
	BudgetLimit float64 `json:"budget_limit" validate:"gte=0"`
	ManagerID   *int64  `json:"manager_id"`
}

type budgetRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListBudgetViews(r.Context())
	if err != nil {
		h.logger.Error("list departments failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if views == nil {
		views = []BudgetView{}
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	d, err := h.service.CreateDepartment(r.Context(), req.Name, req.BudgetLimit, req.ManagerID)
	if err != nil {
		h.logger.Error("create department failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) updateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	d, err := h.service.UpdateDepartment(r.Context(), id, req.Name, req.BudgetLimit, req.ManagerID)
	if err != nil {
		h.logger.Error("update department failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) accumulateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if !h.validate(w, req) {
		return
	}
	d, err := h.service.AccumulateSpent(r.Context(), id, req.Amount)
	if err != nil {
		h.logger.Error("accumulate budget failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d.View())
}

func (h *Handler) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDepartment(r.Context(), id); err != nil {
		h.logger.Error("delete department failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (departmentRequest, bool) {
	var req departmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return req, false
	}
	return req, h.validate(w, req)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid department id")
		return 0, false
	}
	return id, true
}

func (h *Handler) validate(w http.ResponseWriter, req any) bool {
	err := h.validator.Struct(req)
	if err == nil {
		return true
	}
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	httpx.ValidationProblem(w, fields)
	return false
}
