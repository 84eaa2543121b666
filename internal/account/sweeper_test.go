package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository/inmem"
)

func seedUnverified(t *testing.T, store *inmem.Store, login string, expiresAt time.Time) (*repository.Account, uuid.UUID) {
	t.Helper()
	account := seedAccount(t, store, login, ownerLevel())
	account.Verified = false
	store.Seed(account)

	value := uuid.New()
	store.SeedToken(&repository.Token{
		AccountID: account.ID,
		Value:     value,
		Type:      repository.TokenConfirmRegistration,
		ExpiresAt: expiresAt,
	})
	return account, value
}

func TestDeleteUnverifiedAccounts(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	stale, _ := seedUnverified(t, store, "stale", time.Now().Add(-time.Hour))
	fresh, _ := seedUnverified(t, store, "fresh", time.Now().Add(time.Hour))

	if err := svc.DeleteUnverifiedAccounts(context.Background()); err != nil {
		t.Fatalf("DeleteUnverifiedAccounts: %v", err)
	}

	if _, err := store.Accounts().GetByID(context.Background(), stale.ID); err != repository.ErrAccountNotFound {
		t.Errorf("expected the stale account removed, got %v", err)
	}
	if _, err := store.Accounts().GetByID(context.Background(), fresh.ID); err != nil {
		t.Errorf("expected the fresh account kept, got %v", err)
	}
	if len(notifier.expired) != 1 || notifier.expired[0] != "stale" {
		t.Errorf("expected one expiry notification for stale, got %v", notifier.expired)
	}
	if n := store.TokenCount(repository.TokenConfirmRegistration); n != 1 {
		t.Errorf("expected only the fresh token left, got %d", n)
	}
}

func TestDeleteExpiredTokens(t *testing.T) {
	store := inmem.NewStore()
	svc := newTestService(store, &mockNotifier{})
	account := seedAccount(t, store, "holder", ownerLevel())

	store.SeedToken(&repository.Token{
		AccountID: account.ID,
		Value:     uuid.New(),
		Type:      repository.TokenPasswordReset,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	store.SeedToken(&repository.Token{
		AccountID: account.ID,
		Value:     uuid.New(),
		Type:      repository.TokenRefresh,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	store.SeedToken(&repository.Token{
		AccountID: account.ID,
		Value:     uuid.New(),
		Type:      repository.TokenRefresh,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	// Registration tokens belong to the account sweep, not this one.
	store.SeedToken(&repository.Token{
		AccountID: account.ID,
		Value:     uuid.New(),
		Type:      repository.TokenConfirmRegistration,
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	if err := svc.DeleteExpiredTokens(context.Background()); err != nil {
		t.Fatalf("DeleteExpiredTokens: %v", err)
	}

	if n := store.TokenCount(repository.TokenPasswordReset); n != 0 {
		t.Errorf("expected expired reset tokens removed, got %d", n)
	}
	if n := store.TokenCount(repository.TokenRefresh); n != 1 {
		t.Errorf("expected only the live refresh token left, got %d", n)
	}
	if n := store.TokenCount(repository.TokenConfirmRegistration); n != 1 {
		t.Errorf("expected registration tokens untouched, got %d", n)
	}
}

func TestRemindToConfirmRegistration(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	// Less than half of the 24h confirmation window left.
	soon, _ := seedUnverified(t, store, "soon", time.Now().Add(2*time.Hour))
	// More than half left.
	seedUnverified(t, store, "early", time.Now().Add(20*time.Hour))

	if err := svc.RemindToConfirmRegistration(context.Background()); err != nil {
		t.Fatalf("RemindToConfirmRegistration: %v", err)
	}
	if len(notifier.reminders) != 1 {
		t.Fatalf("expected one reminder, got %d", len(notifier.reminders))
	}
	updated, _ := store.Accounts().GetByID(context.Background(), soon.ID)
	if !updated.Reminded {
		t.Error("expected the account marked reminded")
	}

	// A second sweep must not remind again.
	if err := svc.RemindToConfirmRegistration(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(notifier.reminders) != 1 {
		t.Fatalf("expected no repeat reminder, got %d", len(notifier.reminders))
	}
}
