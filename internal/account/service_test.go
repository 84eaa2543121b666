package account

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Msocha19/SSBD-TUL-2023/internal/auth"
	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository/inmem"
)

const testPassword = "Password1!"

type mockNotifier struct {
	mu            sync.Mutex
	confirmations []uuid.UUID
	reminders     []uuid.UUID
	expired       []string
	resets        []uuid.UUID
	overrides     []uuid.UUID
	emailChanges  []uuid.UUID
	statusChanges []bool
	granted       []repository.AccessType
	revoked       []repository.AccessType
}

func (m *mockNotifier) RegistrationConfirmation(_ *repository.Account, token uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, token)
}

func (m *mockNotifier) RegistrationReminder(_ *repository.Account, token uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = append(m.reminders, token)
}

func (m *mockNotifier) RegistrationExpired(account *repository.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired = append(m.expired, account.Login)
}

func (m *mockNotifier) PasswordReset(_ *repository.Account, token uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, token)
}

func (m *mockNotifier) PasswordOverride(_ *repository.Account, token uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = append(m.overrides, token)
}

func (m *mockNotifier) EmailChange(_ *repository.Account, token uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailChanges = append(m.emailChanges, token)
}

func (m *mockNotifier) ActiveStatusChanged(_ *repository.Account, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusChanges = append(m.statusChanges, active)
}

func (m *mockNotifier) AccessGranted(_ *repository.Account, level repository.AccessType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted = append(m.granted, level)
}

func (m *mockNotifier) AccessRevoked(_ *repository.Account, level repository.AccessType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked = append(m.revoked, level)
}

func (m *mockNotifier) lastReset() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[len(m.resets)-1]
}

func (m *mockNotifier) lastOverride() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overrides[len(m.overrides)-1]
}

func newTestService(store *inmem.Store, notifier *mockNotifier) *Service {
	cfg := &config.Config{
		Tokens: config.TokenConfig{
			ConfirmationExpiry: 24 * time.Hour,
			ResetExpiry:        30 * time.Minute,
			EmailChangeExpiry:  30 * time.Minute,
		},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, auth.NewHasher(), notifier, cfg, log)
}

// seedAccount hashes at the minimum cost so tests stay fast.
func seedAccount(t *testing.T, store *inmem.Store, login string, levels ...*repository.AccessLevel) *repository.Account {
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
		AccessLevels: levels,
	}
	store.Seed(account)
	return account
}

func ownerLevel() *repository.AccessLevel {
	return &repository.AccessLevel{
		Level:    repository.AccessOwner,
		Active:   true,
		Verified: true,
		Address:  &repository.Address{PostalCode: "90-001", City: "Lodz", Street: "Piotrkowska", BuildingNumber: 1},
	}
}

func TestRegisterIssuesConfirmationToken(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	license := "LIC-123"
	err := svc.Register(context.Background(), RegisterParams{
		Login:         "newmanager",
		Email:         "newmanager@example.com",
		Password:      testPassword,
		FirstName:     "Anna",
		LastName:      "Nowak",
		Language:      repository.LanguageEN,
		AccessType:    repository.AccessManager,
		Address:       repository.Address{PostalCode: "90-001", City: "Lodz", Street: "Piotrkowska", BuildingNumber: 7},
		LicenseNumber: &license,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	account, err := store.Accounts().GetByLogin(context.Background(), "newmanager")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if account.Verified {
		t.Error("expected a freshly registered account to be unverified")
	}
	if !account.Active {
		t.Error("expected a freshly registered account to be active")
	}
	level := account.AccessLevelOf(repository.AccessManager)
	if level == nil {
		t.Fatal("expected a manager access level")
	}
	if !level.Active || !level.Verified {
		t.Errorf("expected the registered level active and verified, got active=%v verified=%v", level.Active, level.Verified)
	}
	if level.LicenseNumber == nil || *level.LicenseNumber != license {
		t.Error("expected the license number on the manager level")
	}
	if n := store.TokenCount(repository.TokenConfirmRegistration); n != 1 {
		t.Errorf("expected 1 confirmation token, got %d", n)
	}
	if len(notifier.confirmations) != 1 {
		t.Fatalf("expected 1 confirmation notification, got %d", len(notifier.confirmations))
	}
}

func TestRegisterDuplicateLogin(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "taken", ownerLevel())

	err := svc.Register(context.Background(), RegisterParams{
		Login:      "taken",
		Email:      "other@example.com",
		Password:   testPassword,
		FirstName:  "Anna",
		LastName:   "Nowak",
		Language:   repository.LanguagePL,
		AccessType: repository.AccessOwner,
		Address:    repository.Address{PostalCode: "90-001", City: "Lodz", Street: "Piotrkowska", BuildingNumber: 7},
	})
	if err != repository.ErrDuplicateLogin {
		t.Fatalf("expected ErrDuplicateLogin, got %v", err)
	}
}

func TestConfirmRegistrationIsSingleUse(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	err := svc.Register(context.Background(), RegisterParams{
		Login:      "pending",
		Email:      "pending@example.com",
		Password:   testPassword,
		FirstName:  "Anna",
		LastName:   "Nowak",
		Language:   repository.LanguagePL,
		AccessType: repository.AccessOwner,
		Address:    repository.Address{PostalCode: "90-001", City: "Lodz", Street: "Piotrkowska", BuildingNumber: 7},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token := notifier.confirmations[0]

	if err := svc.ConfirmRegistration(context.Background(), token); err != nil {
		t.Fatalf("ConfirmRegistration: %v", err)
	}
	account, err := store.Accounts().GetByLogin(context.Background(), "pending")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if !account.Verified {
		t.Error("expected the account verified after confirmation")
	}

	if err := svc.ConfirmRegistration(context.Background(), token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken on replay, got %v", err)
	}
}

func TestConfirmRegistrationExpiredToken(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	account := seedAccount(t, store, "latecomer", ownerLevel())
	account.Verified = false
	store.Seed(account)

	value := uuid.New()
	store.SeedToken(&repository.Token{
		AccountID: account.ID,
		Value:     value,
		Type:      repository.TokenConfirmRegistration,
		ExpiresAt: time.Now().Add(-time.Hour),
	})

	if err := svc.ConfirmRegistration(context.Background(), value); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for an expired token, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	account := seedAccount(t, store, "resetme", ownerLevel())

	if err := svc.RequestPasswordReset(context.Background(), account.Email); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	token := notifier.lastReset()

	const newPassword = "Changed1!"
	if err := svc.ConfirmPasswordReset(context.Background(), token, newPassword); err != nil {
		t.Fatalf("ConfirmPasswordReset: %v", err)
	}

	updated, err := store.Accounts().GetByLogin(context.Background(), "resetme")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if !auth.NewHasher().Verify(newPassword, updated.PasswordHash) {
		t.Error("expected the new password to verify")
	}

	if err := svc.ConfirmPasswordReset(context.Background(), token, "Another1!"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken on replay, got %v", err)
	}
}

func TestPasswordResetRefusals(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)

	unverified := seedAccount(t, store, "unverified", ownerLevel())
	unverified.Verified = false
	store.Seed(unverified)
	inactive := seedAccount(t, store, "inactive", ownerLevel())
	inactive.Active = false
	store.Seed(inactive)

	tests := []struct {
		name  string
		email string
		want  error
	}{
		{"unknown email", "nobody@example.com", repository.ErrAccountNotFound},
		{"unverified account", "unverified@example.com", ErrAccountUnverified},
		{"inactive account", "inactive@example.com", ErrAccountInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.RequestPasswordReset(context.Background(), tt.email); err != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPasswordResetReissueInvalidatesPrior(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	account := seedAccount(t, store, "twice", ownerLevel())

	if err := svc.RequestPasswordReset(context.Background(), account.Email); err != nil {
		t.Fatalf("first request: %v", err)
	}
	first := notifier.lastReset()
	if err := svc.RequestPasswordReset(context.Background(), account.Email); err != nil {
		t.Fatalf("second request: %v", err)
	}
	second := notifier.lastReset()

	if err := svc.ConfirmPasswordReset(context.Background(), first, "Changed1!"); err != ErrInvalidToken {
		t.Fatalf("expected the superseded token rejected, got %v", err)
	}
	if err := svc.ConfirmPasswordReset(context.Background(), second, "Changed1!"); err != nil {
		t.Fatalf("expected the fresh token accepted, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "changer", ownerLevel())

	if err := svc.ChangePassword(context.Background(), "changer", "WrongOld1!", "Changed1!"); err != ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}

	if err := svc.ChangePassword(context.Background(), "changer", testPassword, "Changed1!"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	updated, err := store.Accounts().GetByLogin(context.Background(), "changer")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if !auth.NewHasher().Verify("Changed1!", updated.PasswordHash) {
		t.Error("expected the new password to verify")
	}
}

func TestForcePasswordChange(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "target", ownerLevel())

	if err := svc.ForcePasswordChange(context.Background(), "target", "target"); err != ErrIllegalSelfAction {
		t.Fatalf("expected ErrIllegalSelfAction, got %v", err)
	}

	if err := svc.ForcePasswordChange(context.Background(), "admin", "target"); err != nil {
		t.Fatalf("ForcePasswordChange: %v", err)
	}
	account, err := store.Accounts().GetByLogin(context.Background(), "target")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if account.Active {
		t.Error("expected the target deactivated")
	}
	if auth.NewHasher().Verify(testPassword, account.PasswordHash) {
		t.Error("expected the old password scrambled")
	}
	if n := store.TokenCount(repository.TokenOverridePasswordChange); n != 1 {
		t.Errorf("expected 1 override token, got %d", n)
	}
	if len(notifier.overrides) != 1 {
		t.Fatalf("expected 1 override notification, got %d", len(notifier.overrides))
	}

	if err := svc.ForcePasswordChange(context.Background(), "admin", "target"); err != ErrAccountInactive {
		t.Fatalf("expected ErrAccountInactive on a blocked target, got %v", err)
	}
}

func TestForcePasswordChangeSingleWinner(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "contested", ownerLevel())

	const callers = 4
	start := make(chan struct{})
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			<-start
			results <- svc.ForcePasswordChange(context.Background(), "admin", "contested")
		}()
	}
	close(start)

	var wins, losses int
	for i := 0; i < callers; i++ {
		switch err := <-results; err {
		case nil:
			wins++
		case ErrAccountInactive:
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != callers-1 {
		t.Fatalf("expected exactly 1 winner, got %d wins and %d losses", wins, losses)
	}
	if n := store.TokenCount(repository.TokenOverridePasswordChange); n != 1 {
		t.Errorf("expected exactly 1 override token, got %d", n)
	}
}

func TestOverrideForcedPassword(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "forced", ownerLevel())

	if err := svc.ForcePasswordChange(context.Background(), "admin", "forced"); err != nil {
		t.Fatalf("ForcePasswordChange: %v", err)
	}
	token := notifier.lastOverride()

	const chosen = "Chosen1!"
	if err := svc.OverrideForcedPassword(context.Background(), token, chosen); err != nil {
		t.Fatalf("OverrideForcedPassword: %v", err)
	}
	account, err := store.Accounts().GetByLogin(context.Background(), "forced")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if !account.Active {
		t.Error("expected the account reactivated")
	}
	if !auth.NewHasher().Verify(chosen, account.PasswordHash) {
		t.Error("expected the chosen password to verify")
	}

	if err := svc.OverrideForcedPassword(context.Background(), token, "Another1!"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken on replay, got %v", err)
	}
}

func TestChangeActiveStatus(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	admin := seedAccount(t, store, "admin", &repository.AccessLevel{Level: repository.AccessAdmin, Active: true, Verified: true})
	target := seedAccount(t, store, "plain", ownerLevel())

	if err := svc.ChangeActiveStatusAsAdmin(context.Background(), "admin", admin.ID, false); err != ErrIllegalSelfAction {
		t.Fatalf("expected ErrIllegalSelfAction, got %v", err)
	}

	if err := svc.ChangeActiveStatusAsAdmin(context.Background(), "admin", target.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	updated, _ := store.Accounts().GetByID(context.Background(), target.ID)
	if updated.Active {
		t.Error("expected the target deactivated")
	}
	if len(notifier.statusChanges) != 1 {
		t.Fatalf("expected 1 status notification, got %d", len(notifier.statusChanges))
	}

	// Repeating the same status is a silent no-op.
	if err := svc.ChangeActiveStatusAsAdmin(context.Background(), "admin", target.ID, false); err != nil {
		t.Fatalf("repeat deactivate: %v", err)
	}
	if len(notifier.statusChanges) != 1 {
		t.Fatalf("expected no second notification, got %d", len(notifier.statusChanges))
	}
}

func TestManagerCannotBlockPrivilegedAccounts(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "manager", &repository.AccessLevel{Level: repository.AccessManager, Active: true, Verified: true})
	owner := seedAccount(t, store, "owner", ownerLevel())
	// Holding the level at all shields the account, active or not.
	shielded := seedAccount(t, store, "exmanager",
		ownerLevel(),
		&repository.AccessLevel{Level: repository.AccessManager, Active: false, Verified: true})

	if err := svc.ChangeActiveStatusAsManager(context.Background(), "manager", shielded.ID, false); err != ErrBadAccessLevel {
		t.Fatalf("expected ErrBadAccessLevel, got %v", err)
	}
	if err := svc.ChangeActiveStatusAsManager(context.Background(), "manager", owner.ID, false); err != nil {
		t.Fatalf("expected a plain owner blockable, got %v", err)
	}
}

func TestGrantAndRevokeAccessLevel(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	target := seedAccount(t, store, "promotee", ownerLevel())

	license := "LIC-7"
	addr := repository.Address{PostalCode: "90-001", City: "Lodz", Street: "Narutowicza", BuildingNumber: 3}
	grant := GrantParams{Level: repository.AccessManager, Address: &addr, LicenseNumber: &license}

	if err := svc.GrantAccessLevel(context.Background(), target.ID, grant, "promotee"); err != ErrSelfAccessManagement {
		t.Fatalf("expected ErrSelfAccessManagement, got %v", err)
	}

	if err := svc.GrantAccessLevel(context.Background(), target.ID, grant, "admin"); err != nil {
		t.Fatalf("GrantAccessLevel: %v", err)
	}
	account, _ := store.Accounts().GetByID(context.Background(), target.ID)
	level := account.AccessLevelOf(repository.AccessManager)
	if level == nil || !level.Active || !level.Verified {
		t.Fatal("expected an active, verified manager level")
	}
	if level.LicenseNumber == nil || *level.LicenseNumber != license {
		t.Error("expected the granted license number stored")
	}
	if len(notifier.granted) != 1 {
		t.Fatalf("expected 1 grant notification, got %d", len(notifier.granted))
	}

	if err := svc.RevokeAccessLevel(context.Background(), target.ID, repository.AccessManager, "admin"); err != nil {
		t.Fatalf("RevokeAccessLevel: %v", err)
	}
	account, _ = store.Accounts().GetByID(context.Background(), target.ID)
	if account.AccessLevelOf(repository.AccessManager).Active {
		t.Error("expected the manager level deactivated")
	}
	if len(notifier.revoked) != 1 {
		t.Fatalf("expected 1 revoke notification, got %d", len(notifier.revoked))
	}

	// Revoking again is a silent no-op.
	if err := svc.RevokeAccessLevel(context.Background(), target.ID, repository.AccessManager, "admin"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if len(notifier.revoked) != 1 {
		t.Fatalf("expected no second revoke notification, got %d", len(notifier.revoked))
	}

	// Re-granting reactivates the existing level, keeping its variant data.
	if err := svc.GrantAccessLevel(context.Background(), target.ID, GrantParams{Level: repository.AccessManager}, "admin"); err != nil {
		t.Fatalf("re-grant: %v", err)
	}
	account, _ = store.Accounts().GetByID(context.Background(), target.ID)
	level = account.AccessLevelOf(repository.AccessManager)
	if !level.Active || !level.Verified {
		t.Error("expected the manager level reactivated")
	}
	if level.LicenseNumber == nil || *level.LicenseNumber != license {
		t.Error("expected the original license number preserved on re-grant")
	}
}

func TestChangeAccessLevel(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "switcher", ownerLevel())

	if _, err := svc.ChangeAccessLevel(context.Background(), "switcher", repository.AccessManager); err != ErrNoAccessLevel {
		t.Fatalf("expected ErrNoAccessLevel, got %v", err)
	}
	level, err := svc.ChangeAccessLevel(context.Background(), "switcher", repository.AccessOwner)
	if err != nil {
		t.Fatalf("ChangeAccessLevel: %v", err)
	}
	if level != repository.AccessOwner {
		t.Errorf("expected OWNER, got %s", level)
	}
}

func TestChangeAccountLanguage(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "linguist", ownerLevel())

	if err := svc.ChangeAccountLanguage(context.Background(), "linguist", "DE"); err != ErrLanguageNotFound {
		t.Fatalf("expected ErrLanguageNotFound, got %v", err)
	}
	if err := svc.ChangeAccountLanguage(context.Background(), "linguist", "EN"); err != nil {
		t.Fatalf("ChangeAccountLanguage: %v", err)
	}
	account, _ := store.Accounts().GetByLogin(context.Background(), "linguist")
	if account.Language != repository.LanguageEN {
		t.Errorf("expected EN, got %s", account.Language)
	}
}

func TestEmailChangeFlow(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "mover", ownerLevel())

	if err := svc.RequestEmailChange(context.Background(), "mover"); err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}
	token := notifier.emailChanges[0]

	// A login mismatch is refused before the token is consumed.
	if err := svc.ConfirmEmailChange(context.Background(), "new@example.com", token, "impostor"); err != auth.ErrAuthentication {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}

	if err := svc.ConfirmEmailChange(context.Background(), "new@example.com", token, "mover"); err != nil {
		t.Fatalf("ConfirmEmailChange: %v", err)
	}
	account, _ := store.Accounts().GetByLogin(context.Background(), "mover")
	if account.Email != "new@example.com" {
		t.Errorf("expected the new email, got %s", account.Email)
	}
}

func TestEmailChangeDuplicateEmail(t *testing.T) {
	store := inmem.NewStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, notifier)
	seedAccount(t, store, "mover", ownerLevel())
	seedAccount(t, store, "occupant", ownerLevel())

	if err := svc.RequestEmailChange(context.Background(), "mover"); err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}
	token := notifier.emailChanges[0]

	if err := svc.ConfirmEmailChange(context.Background(), "occupant@example.com", token, "mover"); err != repository.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestListAccountsAccessTypeFilterRequiresActiveLevel(t *testing.T) {
	store := inmem.NewStore()
	svc := newTestService(store, &mockNotifier{})
	license := "LIC-1"
	seedAccount(t, store, "activemgr", &repository.AccessLevel{
		Level: repository.AccessManager, Active: true, Verified: true, LicenseNumber: &license,
	})
	seedAccount(t, store, "exmgr", &repository.AccessLevel{
		Level: repository.AccessManager, Active: false, Verified: true,
	})

	managers := repository.AccessManager
	accounts, err := svc.ListAccounts(context.Background(), repository.AccountFilter{AccessType: &managers})
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Login != "activemgr" {
		t.Fatalf("expected only the active manager, got %d accounts", len(accounts))
	}
}
