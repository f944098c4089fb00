package expenses

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/expenseflow/expenseflow/internal/cache"
	"github.com/expenseflow/expenseflow/internal/notify"
	"github.com/expenseflow/expenseflow/internal/shared"
)

type stubRepo struct {
	expenses    []Expense
	listScope   []int64
	statusGiven string
}

func (s *stubRepo) ListExpenses(_ context.Context, employeeID int64) ([]Expense, error) {
	s.listScope = append(s.listScope, employeeID)
	if employeeID == 0 {
		return s.expenses, nil
	}
	var out []Expense
	for _, e := range s.expenses {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubRepo) GetExpense(_ context.Context, id int64) (Expense, error) {
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return Expense{}, nil
}

func (s *stubRepo) CreateExpense(_ context.Context, n NewExpense) (Expense, error) {
	e := Expense{
		ID:         int64(len(s.expenses) + 1),
		EmployeeID: n.EmployeeID,
		Amount:     n.Amount,
		Status:     StatusPending,
		Priority:   n.Priority,
	}
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, id int64, status string) (Expense, error) {
	s.statusGiven = status
	for i := range s.expenses {
		if s.expenses[i].ID == id {
			s.expenses[i].Status = status
			return s.expenses[i], nil
		}
	}
	return Expense{ID: id, Status: status}, nil
}

type stubDirectory struct{}

func (stubDirectory) EmailFor(context.Context, int64) (string, string, error) {
	return "ana@corp.test", "Ana", nil
}

type recordingMailer struct {
	mu       sync.Mutex
	subjects []string
}

func (m *recordingMailer) Send(_ context.Context, _, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *recordingMailer) waitForSend(t *testing.T) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		if len(m.subjects) > 0 {
			subject := m.subjects[0]
			m.mu.Unlock()
			return subject
		}
		m.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no email dispatched")
	return ""
}

func newTestService(t *testing.T) (*Service, *stubRepo, *recordingMailer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := &stubRepo{expenses: []Expense{
		{ID: 1, EmployeeID: 7, Amount: 120, Status: StatusPending},
		{ID: 2, EmployeeID: 9, Amount: 80, Status: StatusPending},
	}}
	mailer := &recordingMailer{}
	dispatch := notify.NewDispatcher(slog.Default(), mailer, notify.NewRedisBroadcaster(client))
	svc := NewService(slog.Default(), repo, stubDirectory{}, cache.NewStore(client), dispatch)
	return svc, repo, mailer, client
}

func TestListExpensesScopesEmployees(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	all, err := svc.ListExpenses(ctx, &shared.Identity{ID: 1, Role: shared.RoleAdmin})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin should see all expenses, got %d", len(all))
	}

	own, err := svc.ListExpenses(ctx, &shared.Identity{ID: 7, Role: shared.RoleEmployee})
	if err != nil {
		t.Fatalf("employee list: %v", err)
	}
	if len(own) != 1 || own[0].EmployeeID != 7 {
		t.Fatalf("employee must only see own expenses, got %+v", own)
	}
}

func TestListExpensesServedFromCache(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	admin := &shared.Identity{ID: 1, Role: shared.RoleAdmin}

	for i := 0; i < 3; i++ {
		if _, err := svc.ListExpenses(ctx, admin); err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
	}
	if len(repo.listScope) != 1 {
		t.Fatalf("expected one repository read, got %d", len(repo.listScope))
	}
}

func TestCreateExpenseDefaultsPriorityAndBroadcasts(t *testing.T) {
	svc, _, _, client := newTestService(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, notify.ChannelFor(notify.RoomAll))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	expense, err := svc.CreateExpense(ctx, NewExpense{EmployeeID: 7, Description: "Taxi", Amount: 40, Category: "Travel", Date: time.Now(), CreatedBy: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if expense.Priority != PriorityMedium {
		t.Fatalf("expected default priority, got %q", expense.Priority)
	}

	select {
	case msg := <-sub.Channel():
		if msg == nil {
			t.Fatal("nil message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected expense-created broadcast")
	}
}

func TestUpdateStatusSendsDecisionEmail(t *testing.T) {
	svc, repo, mailer, _ := newTestService(t)

	if _, err := svc.UpdateStatus(context.Background(), 1, StatusApproved, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if repo.statusGiven != StatusApproved {
		t.Fatalf("repo saw status %q", repo.statusGiven)
	}
	subject := mailer.waitForSend(t)
	if subject == "" || subject[:16] != "Expense approved" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestCreateExpenseInvalidatesDashboardKeys(t *testing.T) {
	svc, _, _, client := newTestService(t)
	ctx := context.Background()
	store := cache.NewStore(client)

	if err := store.Set(ctx, cache.KeyDashboardMetrics, "stale", time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := store.Set(ctx, cache.KeyDashboardEmployee(7), "stale", time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	if _, err := svc.CreateExpense(ctx, NewExpense{EmployeeID: 7, Description: "Taxi", Amount: 40, Category: "Travel", Date: time.Now(), CreatedBy: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var dest string
	if found, _ := store.Get(ctx, cache.KeyDashboardMetrics, &dest); found {
		t.Fatal("admin dashboard key should be invalidated")
	}
	if found, _ := store.Get(ctx, cache.KeyDashboardEmployee(7), &dest); found {
		t.Fatal("employee dashboard key should be invalidated")
	}
}
