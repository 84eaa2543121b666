package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository/inmem"
)

const testPassword = "Password1!"

type mockNotifier struct {
	mu      sync.Mutex
	blocked []string
}

func (m *mockNotifier) AccountBlocked(account *repository.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = append(m.blocked, account.Login)
}

func (m *mockNotifier) blockedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocked)
}

func newTestService(store repository.Store, notifier Notifier) *Service {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:            "test-secret-key-for-unit-tests-only",
			AccessTokenExpiry: 15 * time.Minute,
			Issuer:            "ebok",
		},
		Auth:   config.AuthConfig{LockoutThreshold: 3},
		Tokens: config.TokenConfig{RefreshExpiry: 24 * time.Hour},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, NewHasher(), NewTokenService(cfg.JWT), notifier, cfg, log)
}

// seedAccount stores an authenticatable owner account. Bcrypt's minimum cost
// keeps the test suite fast; Verify accepts any cost.
func seedAccount(t *testing.T, store *inmem.Store, login string) *repository.Account {
	t.Helper()
	digest, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing seed password: %v", err)
	}
	account := &repository.Account{
		Login:        login,
		Email:        login + "@example.com",
		PasswordHash: string(digest),
		FirstName:    "Jan",
		LastName:     "Kowalski",
		Verified:     true,
		Active:       true,
		Language:     repository.LanguagePL,
		AccessLevels: []*repository.AccessLevel{
			{Level: repository.AccessOwner, Active: true, Verified: true},
		},
	}
	store.Seed(account)
	return account
}

func TestLoginSuccess(t *testing.T) {
	store := inmem.NewStore()
	account := seedAccount(t, store, "jkowalski")
	svc := newTestService(store, &mockNotifier{})

	result, err := svc.Login(context.Background(), "jkowalski", testPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("expected a non-empty access token")
	}
	if result.RefreshToken == uuid.Nil {
		t.Error("expected a refresh token")
	}
	if result.Language != repository.LanguagePL {
		t.Errorf("expected language PL, got %s", result.Language)
	}

	stored, err := store.Accounts().GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Activity.LastSuccessfulLogin == nil {
		t.Error("expected last successful login to be recorded")
	}
	if stored.Activity.UnsuccessfulLoginCounter != 0 {
		t.Errorf("expected counter 0, got %d", stored.Activity.UnsuccessfulLoginCounter)
	}
	if store.TokenCount(repository.TokenRefresh) != 1 {
		t.Errorf("expected 1 stored refresh token, got %d", store.TokenCount(repository.TokenRefresh))
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "jkowalski")

	blocked := seedAccount(t, store, "blocked")
	blocked.Active = false
	store.Seed(blocked)

	unverified := seedAccount(t, store, "unverified")
	unverified.Verified = false
	store.Seed(unverified)

	svc := newTestService(store, &mockNotifier{})

	cases := []struct {
		name     string
		login    string
		password string
	}{
		{"unknown login", "nobody", testPassword},
		{"wrong password", "jkowalski", "Wrong1!!"},
		{"inactive account", "blocked", testPassword},
		{"unverified account", "unverified", testPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.login, tc.password, "10.0.0.1")
			if !errors.Is(err, ErrAuthentication) {
				t.Errorf("expected ErrAuthentication, got %v", err)
			}
		})
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	store := inmem.NewStore()
	account := seedAccount(t, store, "jkowalski")
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), "jkowalski", "Wrong1!!", "10.0.0.1")
		if !errors.Is(err, ErrAuthentication) {
			t.Fatalf("attempt %d: expected ErrAuthentication, got %v", i+1, err)
		}
	}

	stored, err := store.Accounts().GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Active {
		t.Error("expected account to be deactivated after three failed attempts")
	}
	if notifier.blockedCount() != 1 {
		t.Errorf("expected exactly one blocked notification, got %d", notifier.blockedCount())
	}

	// The correct password no longer works on a locked account, and no
	// second notification is produced.
	if _, err := svc.Login(context.Background(), "jkowalski", testPassword, "10.0.0.1"); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication on locked account, got %v", err)
	}
	if notifier.blockedCount() != 1 {
		t.Errorf("expected still one blocked notification, got %d", notifier.blockedCount())
	}
}

func TestLoginCounterResetsBelowThreshold(t *testing.T) {
	store := inmem.NewStore()
	account := seedAccount(t, store, "jkowalski")
	svc := newTestService(store, &mockNotifier{})

	for i := 0; i < 2; i++ {
		_, _ = svc.Login(context.Background(), "jkowalski", "Wrong1!!", "10.0.0.1")
	}
	if _, err := svc.Login(context.Background(), "jkowalski", testPassword, "10.0.0.1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	stored, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if stored.Activity.UnsuccessfulLoginCounter != 0 {
		t.Errorf("expected counter reset to 0, got %d", stored.Activity.UnsuccessfulLoginCounter)
	}
	if !stored.Active {
		t.Error("account must stay active below the threshold")
	}

	// Two further failures stay below the threshold again.
	for i := 0; i < 2; i++ {
		_, _ = svc.Login(context.Background(), "jkowalski", "Wrong1!!", "10.0.0.1")
	}
	stored, _ = store.Accounts().GetByID(context.Background(), account.ID)
	if !stored.Active {
		t.Error("account must stay active after counter reset")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "jkowalski")
	svc := newTestService(store, &mockNotifier{})

	login, err := svc.Login(context.Background(), "jkowalski", testPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), "jkowalski", login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected a new refresh token value")
	}
	if store.TokenCount(repository.TokenRefresh) != 1 {
		t.Errorf("expected 1 stored refresh token after rotation, got %d", store.TokenCount(repository.TokenRefresh))
	}

	// The redeemed token is gone.
	if _, err := svc.Refresh(context.Background(), "jkowalski", login.RefreshToken); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected replayed token to fail, got %v", err)
	}
	// The replacement still works.
	if _, err := svc.Refresh(context.Background(), "jkowalski", refreshed.RefreshToken); err != nil {
		t.Errorf("expected replacement token to work, got %v", err)
	}
}

func TestRefreshRejectsWrongOwner(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "jkowalski")
	seedAccount(t, store, "anowak")
	svc := newTestService(store, &mockNotifier{})

	login, err := svc.Login(context.Background(), "jkowalski", testPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), "anowak", login.RefreshToken); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication for foreign token, got %v", err)
	}
	// The failed presentation must not consume the token.
	if _, err := svc.Refresh(context.Background(), "jkowalski", login.RefreshToken); err != nil {
		t.Errorf("expected owner redemption to still work, got %v", err)
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	store := inmem.NewStore()
	account := seedAccount(t, store, "jkowalski")
	svc := newTestService(store, &mockNotifier{})

	value := uuid.New()
	store.SeedToken(&repository.Token{
		AccountID: account.ID,
		Value:     value,
		Type:      repository.TokenRefresh,
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	if _, err := svc.Refresh(context.Background(), "jkowalski", value); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication for expired token, got %v", err)
	}
}

func TestRefreshUnknownToken(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "jkowalski")
	svc := newTestService(store, &mockNotifier{})

	if _, err := svc.Refresh(context.Background(), "jkowalski", uuid.New()); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication for unknown token, got %v", err)
	}
}

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "jkowalski")
	svc := newTestService(store, &mockNotifier{})

	login, err := svc.Login(context.Background(), "jkowalski", testPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Refresh(context.Background(), "jkowalski", login.RefreshToken)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	successes, failures := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAuthentication):
			failures++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 winning redemption, got %d", successes)
	}
	if failures != workers-1 {
		t.Errorf("expected %d losing redemptions, got %d", workers-1, failures)
	}
	if store.TokenCount(repository.TokenRefresh) != 1 {
		t.Errorf("expected exactly 1 refresh token left, got %d", store.TokenCount(repository.TokenRefresh))
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "jkowalski")
	svc := newTestService(store, &mockNotifier{})

	login, err := svc.Login(context.Background(), "jkowalski", testPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := svc.Logout(context.Background(), login.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if store.TokenCount(repository.TokenRefresh) != 0 {
		t.Error("expected refresh token to be removed")
	}
	// Second logout with the same value succeeds.
	if err := svc.Logout(context.Background(), login.RefreshToken); err != nil {
		t.Errorf("expected idempotent logout, got %v", err)
	}
	// The token no longer redeems.
	if _, err := svc.Refresh(context.Background(), "jkowalski", login.RefreshToken); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication after logout, got %v", err)
	}
}
