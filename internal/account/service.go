// Package account implements the account lifecycle: registration and its
// confirmation, password and email changes, activation, access-level grants
// and optimistic-concurrency-checked profile edits.
package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/auth"
	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
	"github.com/Msocha19/SSBD-TUL-2023/internal/metrics"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// Notifier is the slice of the notification dispatcher the lifecycle manager
// needs. Delivery is fire-and-report; none of these calls blocks.
type Notifier interface {
	RegistrationConfirmation(account *repository.Account, token uuid.UUID)
	RegistrationReminder(account *repository.Account, token uuid.UUID)
	RegistrationExpired(account *repository.Account)
	PasswordReset(account *repository.Account, token uuid.UUID)
	PasswordOverride(account *repository.Account, token uuid.UUID)
	EmailChange(account *repository.Account, token uuid.UUID)
	ActiveStatusChanged(account *repository.Account, active bool)
	AccessGranted(account *repository.Account, level repository.AccessType)
	AccessRevoked(account *repository.Account, level repository.AccessType)
}

// Service is the account lifecycle manager.
type Service struct {
	store    repository.Store
	hasher   *auth.Hasher
	notifier Notifier
	log      *slog.Logger

	confirmationTTL time.Duration
	resetTTL        time.Duration
	emailChangeTTL  time.Duration

	now func() time.Time
}

// NewService wires the lifecycle manager.
func NewService(store repository.Store, hasher *auth.Hasher, notifier Notifier, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		store:           store,
		hasher:          hasher,
		notifier:        notifier,
		log:             log,
		confirmationTTL: cfg.Tokens.ConfirmationExpiry,
		resetTTL:        cfg.Tokens.ResetExpiry,
		emailChangeTTL:  cfg.Tokens.EmailChangeExpiry,
		now:             time.Now,
	}
}

// RegisterParams describes a self-service registration. Owners and managers
// register themselves; admin accounts are only created by grants.
type RegisterParams struct {
	Login         string
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Language      repository.Language
	AccessType    repository.AccessType
	Address       repository.Address
	LicenseNumber *string
}

// Register creates an unverified account with one active access level and
// mails a confirmation link. The account cannot authenticate until confirmed.
func (s *Service) Register(ctx context.Context, p RegisterParams) error {
	digest, err := s.hasher.Hash(p.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	addr := p.Address
	account := &repository.Account{
		Login:        p.Login,
		Email:        p.Email,
		PasswordHash: digest,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Verified:     false,
		Active:       true,
		Language:     p.Language,
		AccessLevels: []*repository.AccessLevel{{
			Level:         p.AccessType,
			Active:        true,
			Verified:      true,
			Address:       &addr,
			LicenseNumber: p.LicenseNumber,
		}},
	}

	var token *repository.Token
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Accounts().Create(ctx, account); err != nil {
			return err
		}
		token = &repository.Token{
			AccountID: account.ID,
			Value:     uuid.New(),
			Type:      repository.TokenConfirmRegistration,
			ExpiresAt: s.now().Add(s.confirmationTTL),
		}
		return tx.Tokens().Create(ctx, token)
	})
	if err != nil {
		return err
	}

	metrics.ActionTokensIssued.WithLabelValues(string(repository.TokenConfirmRegistration)).Inc()
	s.notifier.RegistrationConfirmation(account, token.Value)
	s.log.Info("account registered", "login", account.Login)
	return nil
}

// validToken fetches and validates an action token. Absent, expired and
// wrong-type tokens all collapse into ErrInvalidToken.
func (s *Service) validToken(ctx context.Context, tx repository.Store, value uuid.UUID, expected repository.TokenType) (*repository.Token, error) {
	token, err := tx.Tokens().GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := token.Validate(expected, s.now()); err != nil {
		return nil, ErrInvalidToken
	}
	return token, nil
}

// redeem deletes the token row. Exactly one of N concurrent redemptions of
// the same value sees true; the rest fail with ErrInvalidToken.
func (s *Service) redeem(ctx context.Context, tx repository.Store, value uuid.UUID) error {
	won, err := tx.Tokens().Delete(ctx, value)
	if err != nil {
		return err
	}
	if !won {
		return ErrInvalidToken
	}
	return nil
}

// ConfirmRegistration marks the account verified and consumes the token.
func (s *Service) ConfirmRegistration(ctx context.Context, tokenValue uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		token, err := s.validToken(ctx, tx, tokenValue, repository.TokenConfirmRegistration)
		if err != nil {
			return err
		}
		account, err := tx.Accounts().GetByID(ctx, token.AccountID)
		if err != nil {
			return err
		}
		if err := s.redeem(ctx, tx, tokenValue); err != nil {
			return err
		}
		account.Verified = true
		return tx.Accounts().Update(ctx, account)
	})
}

// RequestEmailChange issues a fresh email-change token, invalidating any
// prior unredeemed one, and mails the confirmation link.
func (s *Service) RequestEmailChange(ctx context.Context, login string) error {
	var (
		account *repository.Account
		token   *repository.Token
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.Accounts().GetByLogin(ctx, login)
		if err != nil {
			return err
		}
		if err := tx.Tokens().DeleteByAccountAndType(ctx, account.ID, repository.TokenConfirmEmail); err != nil {
			return err
		}
		token = &repository.Token{
			AccountID: account.ID,
			Value:     uuid.New(),
			Type:      repository.TokenConfirmEmail,
			ExpiresAt: s.now().Add(s.emailChangeTTL),
		}
		return tx.Tokens().Create(ctx, token)
	})
	if err != nil {
		return err
	}

	metrics.ActionTokensIssued.WithLabelValues(string(repository.TokenConfirmEmail)).Inc()
	s.notifier.EmailChange(account, token.Value)
	return nil
}

// ConfirmEmailChange sets the new address. The presented login must match the
// token's owner; a mismatch is an authentication failure, not a token one.
func (s *Service) ConfirmEmailChange(ctx context.Context, newEmail string, tokenValue uuid.UUID, login string) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		token, err := s.validToken(ctx, tx, tokenValue, repository.TokenConfirmEmail)
		if err != nil {
			return err
		}
		account, err := tx.Accounts().GetByID(ctx, token.AccountID)
		if err != nil {
			return err
		}
		if account.Login != login {
			return auth.ErrAuthentication
		}
		if err := s.redeem(ctx, tx, tokenValue); err != nil {
			return err
		}
		account.Email = newEmail
		return tx.Accounts().Update(ctx, account)
	})
}

// RequestPasswordReset issues a reset token for the account behind the email.
// Unverified and inactive accounts are refused with distinct errors.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	var (
		account *repository.Account
		token   *repository.Token
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.Accounts().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if !account.Verified {
			return ErrAccountUnverified
		}
		if !account.Active {
			return ErrAccountInactive
		}
		if err := tx.Tokens().DeleteByAccountAndType(ctx, account.ID, repository.TokenPasswordReset); err != nil {
			return err
		}
		token = &repository.Token{
			AccountID: account.ID,
			Value:     uuid.New(),
			Type:      repository.TokenPasswordReset,
			ExpiresAt: s.now().Add(s.resetTTL),
		}
		return tx.Tokens().Create(ctx, token)
	})
	if err != nil {
		return err
	}

	metrics.ActionTokensIssued.WithLabelValues(string(repository.TokenPasswordReset)).Inc()
	s.notifier.PasswordReset(account, token.Value)
	return nil
}

// ConfirmPasswordReset consumes the reset token and stores the new hash.
func (s *Service) ConfirmPasswordReset(ctx context.Context, tokenValue uuid.UUID, newPassword string) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		token, err := s.validToken(ctx, tx, tokenValue, repository.TokenPasswordReset)
		if err != nil {
			return err
		}
		account, err := tx.Accounts().GetByID(ctx, token.AccountID)
		if err != nil {
			return err
		}
		if !account.Active {
			return ErrAccountInactive
		}
		if err := s.redeem(ctx, tx, tokenValue); err != nil {
			return err
		}
		digest, err := s.hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		account.PasswordHash = digest
		return tx.Accounts().Update(ctx, account)
	})
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, login, oldPassword, newPassword string) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		account, err := tx.Accounts().GetByLogin(ctx, login)
		if err != nil {
			return err
		}
		if !account.Verified {
			return ErrAccountUnverified
		}
		if !account.Active {
			return ErrAccountInactive
		}
		if !s.hasher.Verify(oldPassword, account.PasswordHash) {
			return ErrInvalidPassword
		}
		digest, err := s.hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		account.PasswordHash = digest
		return tx.Accounts().Update(ctx, account)
	})
}

// ForcePasswordChange scrambles the target's password, blocks the account and
// issues an override token. The conditional deactivation makes exactly one of
// N concurrent calls against the same target win; the rest see an inactive
// account.
func (s *Service) ForcePasswordChange(ctx context.Context, actorLogin, targetLogin string) error {
	if actorLogin == targetLogin {
		return ErrIllegalSelfAction
	}

	var (
		account *repository.Account
		token   *repository.Token
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.Accounts().GetByLogin(ctx, targetLogin)
		if err != nil {
			return err
		}
		if !account.Active {
			return ErrAccountInactive
		}
		if !account.Verified {
			return ErrAccountUnverified
		}

		won, err := tx.Accounts().DeactivateIfActive(ctx, account.ID)
		if err != nil {
			return err
		}
		if !won {
			return ErrAccountInactive
		}

		digest, err := s.hasher.Hash(randomPassword())
		if err != nil {
			return fmt.Errorf("hashing temporary password: %w", err)
		}
		account.PasswordHash = digest
		account.Active = false
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}

		for _, t := range []repository.TokenType{repository.TokenPasswordReset, repository.TokenOverridePasswordChange} {
			if err := tx.Tokens().DeleteByAccountAndType(ctx, account.ID, t); err != nil {
				return err
			}
		}
		token = &repository.Token{
			AccountID: account.ID,
			Value:     uuid.New(),
			Type:      repository.TokenOverridePasswordChange,
			ExpiresAt: s.now().Add(s.resetTTL),
		}
		return tx.Tokens().Create(ctx, token)
	})
	if err != nil {
		return err
	}

	metrics.ActionTokensIssued.WithLabelValues(string(repository.TokenOverridePasswordChange)).Inc()
	s.notifier.PasswordOverride(account, token.Value)
	s.log.Info("password change forced", "target", targetLogin, "actor", actorLogin)
	return nil
}

// OverrideForcedPassword consumes the override token, stores the chosen
// password and reactivates the account.
func (s *Service) OverrideForcedPassword(ctx context.Context, tokenValue uuid.UUID, newPassword string) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		token, err := s.validToken(ctx, tx, tokenValue, repository.TokenOverridePasswordChange)
		if err != nil {
			return err
		}
		account, err := tx.Accounts().GetByID(ctx, token.AccountID)
		if err != nil {
			return err
		}
		if err := s.redeem(ctx, tx, tokenValue); err != nil {
			return err
		}
		digest, err := s.hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		account.PasswordHash = digest
		account.Active = true
		return tx.Accounts().Update(ctx, account)
	})
}

// ChangeActiveStatusAsAdmin blocks or unblocks any account except the
// caller's own.
func (s *Service) ChangeActiveStatusAsAdmin(ctx context.Context, adminLogin string, targetID uuid.UUID, active bool) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		account, err := tx.Accounts().GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		return s.changeActiveStatus(ctx, tx, adminLogin, account, active)
	})
}

// ChangeActiveStatusAsManager blocks or unblocks an account that holds no
// manager or admin access level.
func (s *Service) ChangeActiveStatusAsManager(ctx context.Context, managerLogin string, targetID uuid.UUID, active bool) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		account, err := tx.Accounts().GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if account.AccessLevelOf(repository.AccessManager) != nil || account.AccessLevelOf(repository.AccessAdmin) != nil {
			return ErrBadAccessLevel
		}
		return s.changeActiveStatus(ctx, tx, managerLogin, account, active)
	})
}

// changeActiveStatus is a no-op when the status already matches; nothing is
// persisted and no notification is sent.
func (s *Service) changeActiveStatus(ctx context.Context, tx repository.Store, actorLogin string, account *repository.Account, active bool) error {
	if actorLogin == account.Login {
		return ErrIllegalSelfAction
	}
	if account.Active == active {
		return nil
	}
	account.Active = active
	if err := tx.Accounts().Update(ctx, account); err != nil {
		return err
	}
	s.notifier.ActiveStatusChanged(account, active)
	s.log.Info("active status changed", "target", account.Login, "actor", actorLogin, "active", active)
	return nil
}

// GrantParams carries the variant data of a granted access level. Address
// and license number are only used when the level does not exist yet.
type GrantParams struct {
	Level         repository.AccessType
	Address       *repository.Address
	LicenseNumber *string
}

// GrantAccessLevel adds the level to the account or re-activates and
// re-verifies an existing one in place, leaving its variant data untouched.
func (s *Service) GrantAccessLevel(ctx context.Context, targetID uuid.UUID, grant GrantParams, actorLogin string) error {
	var account *repository.Account
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.Accounts().GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if account.Login == actorLogin {
			return ErrSelfAccessManagement
		}
		return tx.Accounts().UpsertAccessLevel(ctx, &repository.AccessLevel{
			AccountID:     account.ID,
			Level:         grant.Level,
			Active:        true,
			Verified:      true,
			Address:       grant.Address,
			LicenseNumber: grant.LicenseNumber,
		})
	})
	if err != nil {
		return err
	}

	s.notifier.AccessGranted(account, grant.Level)
	s.log.Info("access level granted", "target", account.Login, "level", grant.Level, "actor", actorLogin)
	return nil
}

// RevokeAccessLevel soft-revokes an active, verified level. Revoking a level
// the account does not actively hold is a silent no-op.
func (s *Service) RevokeAccessLevel(ctx context.Context, targetID uuid.UUID, level repository.AccessType, actorLogin string) error {
	var (
		account *repository.Account
		revoked bool
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.Accounts().GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if account.Login == actorLogin {
			return ErrSelfAccessManagement
		}
		revoked, err = tx.Accounts().DeactivateAccessLevel(ctx, account.ID, level)
		return err
	})
	if err != nil {
		return err
	}

	if revoked {
		s.notifier.AccessRevoked(account, level)
		s.log.Info("access level revoked", "target", account.Login, "level", level, "actor", actorLogin)
	}
	return nil
}

// ChangeAccessLevel validates that the account may switch its session to the
// given access type.
func (s *Service) ChangeAccessLevel(ctx context.Context, login string, level repository.AccessType) (repository.AccessType, error) {
	account, err := s.store.Accounts().GetByLogin(ctx, login)
	if err != nil {
		return "", err
	}
	if !account.HasActiveAccessLevel(level) {
		return "", ErrNoAccessLevel
	}
	return level, nil
}

// ChangeAccountLanguage sets the preferred notification language.
func (s *Service) ChangeAccountLanguage(ctx context.Context, login, language string) error {
	lang, ok := repository.ParseLanguage(language)
	if !ok {
		return ErrLanguageNotFound
	}
	return s.store.InTx(ctx, func(tx repository.Store) error {
		account, err := tx.Accounts().GetByLogin(ctx, login)
		if err != nil {
			return err
		}
		account.Language = lang
		return tx.Accounts().Update(ctx, account)
	})
}

// GetAccount returns the account aggregate by id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*repository.Account, error) {
	return s.store.Accounts().GetByID(ctx, id)
}

// GetAccountByLogin returns the account aggregate by login.
func (s *Service) GetAccountByLogin(ctx context.Context, login string) (*repository.Account, error) {
	return s.store.Accounts().GetByLogin(ctx, login)
}

// ListAccounts returns accounts matching the filter.
func (s *Service) ListAccounts(ctx context.Context, filter repository.AccountFilter) ([]*repository.Account, error) {
	return s.store.Accounts().List(ctx, filter)
}

// randomPassword produces an unguessable temporary password. It is never
// disclosed; the user must go through the override flow.
func randomPassword() string {
	buf := make([]byte, 28)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure means the process cannot do anything
		// credential-related safely.
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf)
}
