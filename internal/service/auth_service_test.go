package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/escalation-service/internal/auth"
	"github.com/spec-kit/escalation-service/internal/config"
	"github.com/spec-kit/escalation-service/internal/domain"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 30
	return NewAuthService(cfg, userStore{store}), store
}

func seedAccount(t *testing.T, store *fakeStore, email, password string, role domain.Role, active bool) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return store.addUser(&domain.User{
		Name:         "Account " + email,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       active,
	})
}

func TestLoginIssuesToken(t *testing.T) {
	svc, store := newAuthFixture(t)
	user := seedAccount(t, store, "res@example.com", "hunter2", domain.RoleResolver, true)

	result, err := svc.Login(context.Background(), "  RES@example.com ", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token == "" {
		t.Error("empty token")
	}
	if result.User.ID != user.ID {
		t.Errorf("user = %q, want %q", result.User.ID, user.ID)
	}

	claims, err := svc.TokenManager().ParseToken(result.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.SubjectID != user.ID || claims.Role != domain.RoleResolver {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginRejections(t *testing.T) {
	svc, store := newAuthFixture(t)
	seedAccount(t, store, "res@example.com", "hunter2", domain.RoleResolver, true)
	seedAccount(t, store, "gone@example.com", "hunter2", domain.RoleApprover, false)

	cases := []struct {
		name     string
		email    string
		password string
		code     string
	}{
		{"missing fields", "", "", "VALIDATION_FAILED"},
		{"unknown account", "nobody@example.com", "hunter2", "UNAUTHORIZED"},
		{"wrong password", "res@example.com", "wrong", "UNAUTHORIZED"},
		{"disabled account", "gone@example.com", "hunter2", "UNAUTHORIZED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), tc.email, tc.password); !apperrors.IsCode(err, tc.code) {
				t.Errorf("err = %v, want %s", err, tc.code)
			}
		})
	}
}
