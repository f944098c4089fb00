package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReportRepo struct {
	filter   Filter
	expenses []ExpenseRow
	depts    []DepartmentRow
	err      error
}

func (s *stubReportRepo) ExpenseRows(ctx context.Context, f Filter) ([]ExpenseRow, error) {
	s.filter = f
	return s.expenses, s.err
}

func (s *stubReportRepo) DepartmentRows(ctx context.Context) ([]DepartmentRow, error) {
	return s.depts, s.err
}

type stubRenderer struct {
	html string
	err  error
}

func (s *stubRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

func newReportRouter(repo *stubReportRepo, pdf *stubRenderer) chi.Router {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, pdf)
	h.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestExpenseReportExcelStreamsCSV(t *testing.T) {
	repo := &stubReportRepo{expenses: []ExpenseRow{{
		ID:           1,
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EmployeeName: "Bob Martins",
		Description:  "Client dinner",
		Category:     "Meals",
		Amount:       84.5,
		Status:       "approved",
	}}}
	router := newReportRouter(repo, &stubRenderer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/expenses/excel", nil))

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "expense-report-2024-03-15.csv")
	assert.Contains(t, rec.Body.String(), "Client dinner")
}

func TestExpenseReportParsesFilter(t *testing.T) {
	repo := &stubReportRepo{}
	router := newReportRouter(repo, &stubRenderer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		"GET", "/expenses/excel?startDate=2024-01-01&endDate=2024-01-31&status=approved&employee=7&expenseIds=1,2,3", nil))

	require.Equal(t, 200, rec.Code)
	require.NotNil(t, repo.filter.StartDate)
	assert.Equal(t, "2024-01-01", repo.filter.StartDate.Format("2006-01-02"))
	require.NotNil(t, repo.filter.EndDate)
	assert.Equal(t, "approved", repo.filter.Status)
	assert.Equal(t, int64(7), repo.filter.EmployeeID)
	assert.Equal(t, []int64{1, 2, 3}, repo.filter.ExpenseIDs)
}

func TestExpenseReportRejectsUnknownFormat(t *testing.T) {
	router := newReportRouter(&stubReportRepo{}, &stubRenderer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/expenses/docx", nil))

	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "format must be pdf or excel")
}

func TestExpenseReportBadDateIsRejected(t *testing.T) {
	router := newReportRouter(&stubReportRepo{}, &stubRenderer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/expenses/excel?startDate=January", nil))

	assert.Equal(t, 400, rec.Code)
}

func TestDepartmentReportPDF(t *testing.T) {
	repo := &stubReportRepo{depts: []DepartmentRow{
		{Name: "Engineering", BudgetLimit: 10000, CurrentSpent: 8500, ExpenseCount: 12},
	}}
	pdf := &stubRenderer{}
	router := newReportRouter(repo, pdf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/departments/pdf", nil))

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assert.Contains(t, pdf.html, "Engineering")
}

func TestReportPDFRendererDown(t *testing.T) {
	router := newReportRouter(&stubReportRepo{}, &stubRenderer{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/departments/pdf", nil))

	assert.Equal(t, 502, rec.Code)
}
