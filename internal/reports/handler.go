package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/expenseflow/expenseflow/internal/platform/httpx"
)

// PDFRenderer turns an HTML document into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// RepositoryPort is the data access the report surface needs.
type RepositoryPort interface {
	ExpenseRows(ctx context.Context, f Filter) ([]ExpenseRow, error)
	DepartmentRows(ctx context.Context) ([]DepartmentRow, error)
}

// Handler serves the report downloads.
type Handler struct {
	logger *slog.Logger
	repo   RepositoryPort
	pdf    PDFRenderer
	now    func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort, pdf PDFRenderer) *Handler {
	return &Handler{logger: logger, repo: repo, pdf: pdf, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/expenses/{format}", h.expenseReport)
	r.Get("/departments/{format}", h.departmentReport)
}

func (h *Handler) expenseReport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if format != "pdf" && format != "excel" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "format must be pdf or excel")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	rows, err := h.repo.ExpenseRows(r.Context(), filter)
	if err != nil {
		h.logger.Error("expense report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	name := fmt.Sprintf("expense-report-%s", h.now().Format("2006-01-02"))
	if format == "excel" {
		// Workbook downloads are served as CSV.
		writeAttachmentHeader(w, "text/csv", name+".csv")
		if err := WriteExpenseCSV(w, rows); err != nil {
			h.logger.Error("stream expense csv", slog.Any("error", err))
		}
		return
	}

	html, err := ExpenseHTML(rows, h.now())
	if err != nil {
		h.logger.Error("expense report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.servePDF(w, r, html, name+".pdf")
}

func (h *Handler) departmentReport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if format != "pdf" && format != "excel" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "format must be pdf or excel")
		return
	}

	rows, err := h.repo.DepartmentRows(r.Context())
	if err != nil {
		h.logger.Error("department report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	name := fmt.Sprintf("department-report-%s", h.now().Format("2006-01-02"))
	if format == "excel" {
		writeAttachmentHeader(w, "text/csv", name+".csv")
		if err := WriteDepartmentCSV(w, rows); err != nil {
			h.logger.Error("stream department csv", slog.Any("error", err))
		}
		return
	}

	html, err := DepartmentHTML(rows, h.now())
	if err != nil {
		h.logger.Error("department report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.servePDF(w, r, html, name+".pdf")
}

func (h *Handler) servePDF(w http.ResponseWriter, r *http.Request, html, filename string) {
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render pdf failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "document renderer unavailable")
		return
	}
	writeAttachmentHeader(w, "application/pdf", filename)
	_, _ = w.Write(pdf)
}

func writeAttachmentHeader(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func parseFilter(r *http.Request) (Filter, error) {
	var f Filter
	q := r.URL.Query()

	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid startDate")
		}
		f.StartDate = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid endDate")
		}
		f.EndDate = &t
	}
	f.Status = q.Get("status")
	f.Department = q.Get("department")
	if raw := q.Get("employee"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid employee")
		}
		f.EmployeeID = id
	}
	if raw := q.Get("expenseIds"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return Filter{}, fmt.Errorf("invalid expenseIds")
			}
			f.ExpenseIDs = append(f.ExpenseIDs, id)
		}
	}
	return f, nil
}
