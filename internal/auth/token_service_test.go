package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

func newTestTokenService() *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:            "test-secret-key-for-unit-tests-only",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "ebok",
	})
}

func testAccount() *repository.Account {
	return &repository.Account{
		ID:    uuid.New(),
		Login: "jkowalski",
		AccessLevels: []*repository.AccessLevel{
			{Level: repository.AccessOwner, Active: true, Verified: true},
			{Level: repository.AccessManager, Active: false, Verified: true},
		},
	}
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestTokenService()

	signed, err := svc.Issue(testAccount())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := svc.Validate(signed)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.Subject != "jkowalski" {
		t.Errorf("expected subject jkowalski, got %q", claims.Subject)
	}
	if claims.Issuer != "ebok" {
		t.Errorf("expected issuer ebok, got %q", claims.Issuer)
	}
}

func TestIssueEmbedsOnlyActiveVerifiedLevels(t *testing.T) {
	svc := newTestTokenService()

	signed, err := svc.Issue(testAccount())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := svc.Validate(signed)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	types := claims.AccessTypes()
	if len(types) != 1 || types[0] != repository.AccessOwner {
		t.Errorf("expected only OWNER in claims, got %v", claims.AccessLevels)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := newTestTokenService()

	issued := time.Now()
	svc.now = func() time.Time { return issued }
	signed, err := svc.Issue(testAccount())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := svc.Validate(signed); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	svc := newTestTokenService()
	signed, err := svc.Issue(testAccount())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other := NewTokenService(config.JWTConfig{
		Secret:            "a-completely-different-secret",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "ebok",
	})
	if _, err := other.Validate(signed); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := newTestTokenService()
	for _, input := range []string{"", "not-a-jwt", "aaaa.bbbb.cccc"} {
		if _, err := svc.Validate(input); err == nil {
			t.Errorf("expected %q to be rejected", input)
		}
	}
}
