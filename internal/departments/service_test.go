package departments

import (
	"context"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/expenseflow/expenseflow/internal/cache"
)

func TestBudgetStatusClassification(t *testing.T) {
	cases := []struct {
		spent, limit float64
		want         string
	}{
		{850, 1000, StatusWarning},
		{1000, 1000, StatusExceeded},
		{1100, 1000, StatusExceeded},
		{500, 1000, StatusOK},
		{800, 1000, StatusOK},
		{0, 0, StatusOK},
		{50, 0, StatusExceeded},
	}
	for _, tc := range cases {
		if got := BudgetStatus(tc.spent, tc.limit); got != tc.want {
			t.Errorf("BudgetStatus(%v, %v) = %q, want %q", tc.spent, tc.limit, got, tc.want)
		}
	}
}

type stubRepo struct {
	departments []Department
	listCalls   int
}

func (s *stubRepo) ListDepartments(context.Context) ([]Department, error) {
	s.listCalls++
	return s.departments, nil
}

func (s *stubRepo) CreateDepartment(_ context.Context, name string, limit float64, managerID *int64) (Department, error) {
	d := Department{ID: int64(len(s.departments) + 1), Name: name, BudgetLimit: limit, ManagerID: managerID}
	s.departments = append(s.departments, d)
	return d, nil
}

func (s *stubRepo) UpdateDepartment(_ context.Context, id int64, name string, limit float64, managerID *int64) (Department, error) {
	return Department{ID: id, Name: name, BudgetLimit: limit, ManagerID: managerID}, nil
}

func (s *stubRepo) AccumulateSpent(_ context.Context, id int64, amount float64) (Department, error) {
	for i := range s.departments {
		if s.departments[i].ID == id {
			s.departments[i].CurrentSpent += amount
			return s.departments[i], nil
		}
	}
	return Department{}, nil
}

func (s *stubRepo) DeleteDepartment(context.Context, int64) error { return nil }

func newTestService(t *testing.T) (*Service, *stubRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := &stubRepo{departments: []Department{
		{ID: 1, Name: "Engineering", BudgetLimit: 1000, CurrentSpent: 850},
	}}
	return NewService(slog.Default(), repo, cache.NewStore(client)), repo
}

func TestListBudgetViewsDerivesStatus(t *testing.T) {
	svc, _ := newTestService(t)

	views, err := svc.ListBudgetViews(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if views[0].BudgetStatus != StatusWarning || views[0].RemainingBudget != 150 {
		t.Fatalf("unexpected view: %+v", views[0])
	}
}

func TestAccumulateSpentInvalidatesCachedView(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ListBudgetViews(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := svc.AccumulateSpent(ctx, 1, 150); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	views, err := svc.ListBudgetViews(ctx)
	if err != nil {
		t.Fatalf("list after accumulate: %v", err)
	}
	if views[0].BudgetStatus != StatusExceeded {
		t.Fatalf("expected refreshed exceeded status, got %q", views[0].BudgetStatus)
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected cache refresh, repo hits = %d", repo.listCalls)
	}
}
