package auth

import (
	"testing"

	"github.com/spec-kit/escalation-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	token, expiresAt, err := tm.GenerateToken("usr-1", domain.RoleApprover)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if expiresAt.IsZero() {
		t.Error("zero expiry")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.SubjectID != "usr-1" {
		t.Errorf("subject = %q, want usr-1", claims.SubjectID)
	}
	if claims.Role != domain.RoleApprover {
		t.Errorf("role = %q, want approver", claims.Role)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	tm := NewTokenManager("secret-a", 30)
	token, _, err := tm.GenerateToken("usr-1", domain.RoleResolver)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := NewTokenManager("secret-b", 30)
	if _, err := other.ParseToken(token); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	if _, err := tm.ParseToken("not-a-jwt"); err == nil {
		t.Error("garbage token accepted")
	}
}
