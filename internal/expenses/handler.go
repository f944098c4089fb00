package expenses

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/expenseflow/expenseflow/internal/files"
	"github.com/expenseflow/expenseflow/internal/platform/httpx"
	"github.com/expenseflow/expenseflow/internal/shared"
)

// Receipt uploads are bounded to keep multipart parsing in memory sane.
const maxReceiptSize = 10 << 20

// Handler manages expense endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	uploads *files.Store
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, uploads *files.Store) *Handler {
	return &Handler{logger: logger, service: service, uploads: uploads}
}

// MountRoutes registers the read surface.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listExpenses)
}

// MountAdminRoutes registers the mutation surface.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/", h.createExpense)
	r.Put("/{id}/status", h.updateStatus)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	list, err := h.service.ListExpenses(r.Context(), caller)
	if err != nil {
		h.logger.Error("list expenses failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

// createExpense accepts multipart form data so the receipt document can be
// attached in the same request.
func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid multipart form")
		return
	}

	n, fields := h.parseExpenseForm(r)
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}

	if file, header, err := r.FormFile("receipt"); err == nil {
		defer file.Close()
		name, err := h.uploads.Save(file, header.Filename)
		if err != nil {
			h.logger.Error("store receipt failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		n.ReceiptFile = name
	}

	caller := shared.IdentityFromContext(r.Context())
	n.CreatedBy = caller.ID

	expense, err := h.service.CreateExpense(r.Context(), n)
	if err != nil {
		h.logger.Error("create expense failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) parseExpenseForm(r *http.Request) (NewExpense, map[string]string) {
	fields := make(map[string]string)
	var n NewExpense

	employeeID, err := strconv.ParseInt(r.FormValue("employee_id"), 10, 64)
	if err != nil || employeeID <= 0 {
		fields["employee_id"] = "required"
	}
	n.EmployeeID = employeeID

	n.Description = strings.TrimSpace(r.FormValue("description"))
	if n.Description == "" {
		fields["description"] = "required"
	}

	amount, err := strconv.ParseFloat(r.FormValue("amount"), 64)
	if err != nil || amount <= 0 {
		fields["amount"] = "gt=0"
	}
	n.Amount = amount

	n.Category = strings.TrimSpace(r.FormValue("category"))
	if n.Category == "" {
		fields["category"] = "required"
	}

	date, err := time.Parse("2006-01-02", r.FormValue("date"))
	if err != nil {
		fields["date"] = "date"
	}
	n.Date = date

	n.Priority = r.FormValue("priority")
	if !ValidPriority(n.Priority) {
		fields["priority"] = "oneof=low medium high urgent"
	}

	n.Notes = r.FormValue("notes")
	if raw := r.FormValue("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				n.Tags = append(n.Tags, tag)
			}
		}
	}
	return n, fields
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid expense id")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if !ValidStatus(req.Status) {
		httpx.ValidationProblem(w, map[string]string{"status": "oneof=approved rejected"})
		return
	}

	expense, err := h.service.UpdateStatus(r.Context(), id, req.Status, req.Reason)
	if err != nil {
		h.logger.Error("update expense status failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}
