package users

import (
	"context"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/expenseflow/expenseflow/internal/cache"
	"github.com/expenseflow/expenseflow/internal/notify"
)

type stubRepo struct {
	users     []User
	listCalls int
	lastHash  string
}

func (s *stubRepo) ListUsers(context.Context) ([]User, error) {
	s.listCalls++
	return s.users, nil
}

func (s *stubRepo) GetUser(_ context.Context, id int64) (User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, nil
}

func (s *stubRepo) CreateUser(_ context.Context, n NewUser, hash string) (User, error) {
	s.lastHash = hash
	u := User{ID: int64(len(s.users) + 1), Name: n.Name, Email: n.Email, Role: n.Role, ExpenseLimit: n.ExpenseLimit}
	s.users = append(s.users, u)
	return u, nil
}

func (s *stubRepo) UpdateUser(_ context.Context, id int64, upd UserUpdate) (User, error) {
	u := User{ID: id}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	return u, nil
}

func (s *stubRepo) DeleteUser(context.Context, int64) error { return nil }

func newTestService(t *testing.T) (*Service, *stubRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := &stubRepo{users: []User{{ID: 1, Name: "Ana", Email: "ana@corp.test", Role: "admin"}}}
	dispatch := notify.NewDispatcher(slog.Default(), nil, nil)
	return NewService(slog.Default(), repo, cache.NewStore(client), dispatch), repo
}

func TestListUsersServedFromCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		users, err := svc.ListUsers(ctx)
		if err != nil {
			t.Fatalf("list users: %v", err)
		}
		if len(users) != 1 || users[0].Email != "ana@corp.test" {
			t.Fatalf("unexpected users: %+v", users)
		}
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected one repository hit, got %d", repo.listCalls)
	}
}

func TestCreateUserInvalidatesListCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ListUsers(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := svc.CreateUser(ctx, NewUser{Name: "Bo", Email: "bo@corp.test", Password: "secret1", Role: "employee"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list after create: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected fresh list with 2 users, got %d", len(users))
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected cache refresh, repo hits = %d", repo.listCalls)
	}
}

func TestCreateUserStoresBcryptHash(t *testing.T) {
	svc, repo := newTestService(t)

	if _, err := svc.CreateUser(context.Background(), NewUser{Name: "Cy", Email: "cy@corp.test", Password: "hunter22", Role: "employee"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(repo.lastHash), []byte("hunter22")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}
