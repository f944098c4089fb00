package alerts

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/expenseflow/expenseflow/internal/notify"
)

type stubEngineRepo struct {
	mu sync.Mutex

	limited     []LimitedUser
	overBudget  []DepartmentSpend
	amounts     []float64
	above       []AnomalousExpense
	reportRows  []ReportRow
	budgetSeen  map[int64]time.Time
	expenseSeen map[int64]bool
	created     []Alert
	clock       func() time.Time
}

func newStubEngineRepo() *stubEngineRepo {
	return &stubEngineRepo{
		budgetSeen:  make(map[int64]time.Time),
		expenseSeen: make(map[int64]bool),
		clock:       time.Now,
	}
}

func (s *stubEngineRepo) LimitedUsers(context.Context, time.Time) ([]LimitedUser, error) {
	return s.limited, nil
}

func (s *stubEngineRepo) OverBudgetDepartments(context.Context) ([]DepartmentSpend, error) {
	return s.overBudget, nil
}

func (s *stubEngineRepo) ApprovedAmountsSince(context.Context, time.Time) ([]float64, error) {
	return s.amounts, nil
}

func (s *stubEngineRepo) ExpensesAbove(_ context.Context, threshold float64, _ time.Time) ([]AnomalousExpense, error) {
	var out []AnomalousExpense
	for _, e := range s.above {
		if e.Amount > threshold {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubEngineRepo) MonthlyReportRows(context.Context, time.Time, time.Time) ([]ReportRow, error) {
	return s.reportRows, nil
}

func (s *stubEngineRepo) CreateBudgetAlert(_ context.Context, a Alert, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.budgetSeen[*a.DepartmentID]; ok && s.clock().Sub(last) < window {
		return false, nil
	}
	s.budgetSeen[*a.DepartmentID] = s.clock()
	s.created = append(s.created, a)
	return true, nil
}

func (s *stubEngineRepo) CreateAnomalyAlert(_ context.Context, a Alert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expenseSeen[*a.ExpenseID] {
		return false, nil
	}
	s.expenseSeen[*a.ExpenseID] = true
	s.created = append(s.created, a)
	return true, nil
}

type captureMailer struct {
	mu   sync.Mutex
	to   []string
	msgs []string
}

func (m *captureMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.msgs = append(m.msgs, subject)
	return nil
}

func (m *captureMailer) wait(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		got := len(m.to)
		m.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d emails", n)
}

func newTestEngine(repo *stubEngineRepo, mailer *captureMailer) *Engine {
	dispatch := notify.NewDispatcher(slog.Default(), mailer, nil)
	return NewEngine(slog.Default(), repo, dispatch)
}

func TestLimitLevelBands(t *testing.T) {
	cases := []struct {
		spent float64
		want  string
	}{
		{920, "critical"},
		{800, "warning"},
		{600, "info"},
		{400, ""},
		{1000, ""},
	}
	for _, tc := range cases {
		if got := limitLevel(tc.spent / 1000 * 100); got != tc.want {
			t.Errorf("limitLevel for spend %v = %q, want %q", tc.spent, got, tc.want)
		}
	}
}

func TestCheckExpenseLimitsEmailsOneNoticePerUser(t *testing.T) {
	repo := newStubEngineRepo()
	repo.limited = []LimitedUser{
		{ID: 1, Name: "Ana", Email: "ana@corp.test", ExpenseLimit: 1000, CurrentSpent: 920},
		{ID: 2, Name: "Bo", Email: "bo@corp.test", ExpenseLimit: 1000, CurrentSpent: 400},
	}
	mailer := &captureMailer{}
	engine := newTestEngine(repo, mailer)

	if err := engine.CheckExpenseLimits(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	mailer.wait(t, 1)

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.to) != 1 || mailer.to[0] != "ana@corp.test" {
		t.Fatalf("expected exactly Ana's notice, got %v", mailer.to)
	}
	if !strings.Contains(mailer.msgs[0], "Critical") {
		t.Fatalf("expected critical notice, got %q", mailer.msgs[0])
	}
	if len(repo.created) != 0 {
		t.Fatalf("limit breaches must not persist alert rows, got %d", len(repo.created))
	}
}

func TestCheckDepartmentBudgetsSeverityAndDedup(t *testing.T) {
	repo := newStubEngineRepo()
	repo.overBudget = []DepartmentSpend{
		{ID: 1, Name: "Engineering", BudgetLimit: 1000, CurrentSpent: 1000},
		{ID: 2, Name: "Sales", BudgetLimit: 1000, CurrentSpent: 950},
		{ID: 3, Name: "HR", BudgetLimit: 1000, CurrentSpent: 850},
	}
	engine := newTestEngine(repo, &captureMailer{})
	ctx := context.Background()

	if err := engine.CheckDepartmentBudgets(ctx); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(repo.created) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(repo.created))
	}
	severities := map[int64]string{}
	for _, a := range repo.created {
		severities[*a.DepartmentID] = a.Severity
	}
	if severities[1] != SeverityCritical || severities[2] != SeverityHigh || severities[3] != SeverityMedium {
		t.Fatalf("unexpected severities %v", severities)
	}

	// A second sweep inside the dedup window creates nothing new.
	if err := engine.CheckDepartmentBudgets(ctx); err != nil {
		t.Fatalf("second check: %v", err)
	}
	if len(repo.created) != 3 {
		t.Fatalf("dedup violated, %d alerts after second sweep", len(repo.created))
	}
}

func TestDetectAnomaliesFlagsOutlierOnce(t *testing.T) {
	repo := newStubEngineRepo()
	// Baseline [100,100,100,100,1000]: mean 280, sample stddev ~402.5,
	// threshold ~1085. Only the 1200 expense crosses it.
	repo.amounts = []float64{100, 100, 100, 100, 1000}
	repo.above = []AnomalousExpense{
		{ID: 42, EmployeeID: 7, EmployeeName: "Ana", Description: "Server rack", Amount: 1200},
		{ID: 43, EmployeeID: 7, EmployeeName: "Ana", Description: "Lunch", Amount: 120},
	}
	engine := newTestEngine(repo, &captureMailer{})
	ctx := context.Background()

	if err := engine.DetectAnomalies(ctx); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected exactly the outlier flagged, got %d alerts", len(repo.created))
	}
	alert := repo.created[0]
	if alert.Type != TypeAnomaly || alert.Severity != SeverityHigh || *alert.ExpenseID != 42 {
		t.Fatalf("unexpected alert %+v", alert)
	}
	if alert.CurrentValue != 1200 {
		t.Fatalf("unexpected current value %v", alert.CurrentValue)
	}

	for i := 0; i < 3; i++ {
		if err := engine.DetectAnomalies(ctx); err != nil {
			t.Fatalf("repeat detect: %v", err)
		}
	}
	if len(repo.created) != 1 {
		t.Fatalf("anomaly must be flagged exactly once, got %d", len(repo.created))
	}
}

func TestDetectAnomaliesPendingOutlierAgainstSteadyBaseline(t *testing.T) {
	repo := newStubEngineRepo()
	// Four identical approved expenses give stddev 0, so the threshold sits
	// at the mean. A freshly submitted 1000 is far above it.
	repo.amounts = []float64{100, 100, 100, 100}
	repo.above = []AnomalousExpense{
		{ID: 9, EmployeeID: 3, EmployeeName: "Bo", Description: "Conference", Amount: 1000},
	}
	engine := newTestEngine(repo, &captureMailer{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := engine.DetectAnomalies(ctx); err != nil {
			t.Fatalf("detect: %v", err)
		}
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected the 1000 expense flagged exactly once, got %d", len(repo.created))
	}
	if *repo.created[0].ExpenseID != 9 {
		t.Fatalf("unexpected alert %+v", repo.created[0])
	}
}

func TestDetectAnomaliesSkipsSmallBaseline(t *testing.T) {
	repo := newStubEngineRepo()
	repo.amounts = []float64{5000}
	repo.above = []AnomalousExpense{{ID: 1, EmployeeID: 2, Amount: 5000}}
	engine := newTestEngine(repo, &captureMailer{})

	if err := engine.DetectAnomalies(context.Background()); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("baseline under 2 samples must skip the run, got %d alerts", len(repo.created))
	}
}

func TestSendMonthlyReportsSkipsInactiveUsers(t *testing.T) {
	repo := newStubEngineRepo()
	repo.reportRows = []ReportRow{
		{UserID: 1, Name: "Ana", Email: "ana@corp.test", Category: "Travel", Count: 2, Total: 1000},
		{UserID: 1, Name: "Ana", Email: "ana@corp.test", Category: "Meals", Count: 1, Total: 200},
	}
	mailer := &captureMailer{}
	engine := newTestEngine(repo, mailer)

	if err := engine.SendMonthlyReports(context.Background()); err != nil {
		t.Fatalf("reports: %v", err)
	}
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.to) != 1 || mailer.to[0] != "ana@corp.test" {
		t.Fatalf("expected one report for Ana, got %v", mailer.to)
	}
}

func TestBuildReportsAggregates(t *testing.T) {
	rows := []ReportRow{
		{UserID: 1, Name: "Ana", Email: "a@t", Category: "Travel", Count: 2, Total: 1000},
		{UserID: 1, Name: "Ana", Email: "a@t", Category: "Meals", Count: 1, Total: 200},
		{UserID: 2, Name: "Bo", Email: "b@t", Category: "Office", Count: 1, Total: 50},
	}
	reports := buildReports(rows, "2025-05")
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	ana := reports[0].data
	if ana.TotalExpenses != 3 || ana.TotalAmount != 1200 || ana.TopCategory != "Travel" {
		t.Fatalf("unexpected aggregate %+v", ana)
	}
	if ana.AverageAmount != 400 {
		t.Fatalf("unexpected average %v", ana.AverageAmount)
	}
}
