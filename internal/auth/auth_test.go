package auth

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/expenseflow/expenseflow/internal/shared"
)

type stubRepo struct {
	cred *Credential
	err  error
}

func (s stubRepo) FindByEmail(context.Context, string) (*Credential, error) {
	return s.cred, s.err
}

func hash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

func TestAuthenticate(t *testing.T) {
	cred := &Credential{ID: 3, Email: "ana@corp.test", Role: shared.RoleEmployee, PasswordHash: hash(t, "correct-horse")}
	svc := NewService(stubRepo{cred: cred})

	got, err := svc.Authenticate(context.Background(), cred.Email, "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != 3 {
		t.Fatalf("unexpected credential: %+v", got)
	}

	if _, err := svc.Authenticate(context.Background(), cred.Email, "wrong"); err != shared.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(stubRepo{err: shared.ErrNotFound})
	if _, err := svc.Authenticate(context.Background(), "nobody@corp.test", "pw"); err != shared.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cred := &Credential{ID: 9, Email: "admin@corp.test", Role: shared.RoleAdmin}
	token, err := IssueToken(cred, "secret", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	identity, err := VerifyToken(token, "secret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.ID != 9 || identity.Role != shared.RoleAdmin {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if !identity.IsAdmin() {
		t.Fatal("expected admin identity")
	}
}

func TestVerifyTokenRejectsBadInput(t *testing.T) {
	cred := &Credential{ID: 1, Email: "x@corp.test", Role: shared.RoleEmployee}

	expired, err := IssueToken(cred, "secret", time.Now().Add(-2*TokenTTL))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifyToken(expired, "secret"); err != shared.ErrTokenInvalid {
		t.Fatalf("expected token invalid for expired token, got %v", err)
	}

	valid, err := IssueToken(cred, "secret", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifyToken(valid, "other-secret"); err != shared.ErrTokenInvalid {
		t.Fatalf("expected token invalid for wrong secret, got %v", err)
	}
	if _, err := VerifyToken("garbage", "secret"); err != shared.ErrTokenInvalid {
		t.Fatalf("expected token invalid for garbage, got %v", err)
	}
}
