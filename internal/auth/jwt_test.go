package auth

import (
	"testing"
	"time"

	"github.com/staysync/staysync/internal/model"
)

var testUser = model.User{ID: "u-1", Email: "admin@example.com", Role: model.RoleAdmin}

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, err := GenerateToken(secret, 0, testUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != "u-1" {
		t.Errorf("expected user id u-1, got %q", claims.UserID)
	}
	if claims.Email != "admin@example.com" {
		t.Errorf("expected email admin@example.com, got %q", claims.Email)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	a, _ := GenerateToken("s", 0, testUser)
	b, _ := GenerateToken("s", 0, testUser)
	ca, _ := ValidateToken("s", a)
	cb, _ := ValidateToken("s", b)
	if ca.ID == cb.ID {
		t.Errorf("expected distinct token ids, both %q", ca.ID)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("secret1", 0, testUser)

	_, err := ValidateToken("secret2", token)
	if err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token")
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, _ := GenerateToken("secret", time.Nanosecond, testUser)
	time.Sleep(1100 * time.Millisecond)
	if _, err := ValidateToken("secret", token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenExpiry(t *testing.T) {
	secret := "test"
	for _, ttl := range []time.Duration{0, time.Hour} {
		token, _ := GenerateToken(secret, ttl, testUser)
		claims, err := ValidateToken(secret, token)
		if err != nil {
			t.Fatalf("ValidateToken: %v", err)
		}

		want := ttl
		if want == 0 {
			want = TokenExpiry
		}
		diff := time.Now().Add(want).Sub(claims.ExpiresAt.Time)
		if diff < -5*time.Second || diff > 5*time.Second {
			t.Errorf("ttl %v: token expiry too far from expected: diff=%v", ttl, diff)
		}
	}
}
