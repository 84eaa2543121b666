package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
	"github.com/Msocha19/SSBD-TUL-2023/internal/metrics"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// ErrAuthentication is the single externally visible login failure. Unknown
// login, wrong password and a blocked or unverified account all collapse
// into it so that responses do not reveal which accounts exist.
var ErrAuthentication = errors.New("authentication failed")

// Notifier is the slice of the notification dispatcher the session engine
// needs. Dispatch is asynchronous; these calls never block on delivery.
type Notifier interface {
	AccountBlocked(account *repository.Account)
}

// LoginResult carries the credentials handed to a freshly authenticated
// client.
type LoginResult struct {
	AccessToken  string
	RefreshToken uuid.UUID
	Language     repository.Language
}

// Service implements login, refresh-token rotation and logout.
type Service struct {
	store    repository.Store
	hasher   *Hasher
	tokens   *TokenService
	notifier Notifier
	log      *slog.Logger

	lockoutThreshold int
	refreshExpiry    time.Duration

	now func() time.Time
}

// NewService wires the session engine.
func NewService(store repository.Store, hasher *Hasher, tokens *TokenService, notifier Notifier, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		store:            store,
		hasher:           hasher,
		tokens:           tokens,
		notifier:         notifier,
		log:              log,
		lockoutThreshold: cfg.Auth.LockoutThreshold,
		refreshExpiry:    cfg.Tokens.RefreshExpiry,
		now:              time.Now,
	}
}

// Login authenticates the account and, on success, records the successful
// attempt and issues an access token plus a single-use refresh token in one
// transaction.
func (s *Service) Login(ctx context.Context, login, password, ip string) (*LoginResult, error) {
	account, err := s.store.Accounts().GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return nil, ErrAuthentication
		}
		return nil, err
	}

	if !account.IsAbleToAuthenticate() {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrAuthentication
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		if err := s.registerFailedAttempt(ctx, account, ip); err != nil {
			s.log.Error("failed to record unsuccessful login", "login", login, "error", err)
		}
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrAuthentication
	}

	var result *LoginResult
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Accounts().RecordLoginSuccess(ctx, account.ID, ip, s.now()); err != nil {
			return err
		}

		refresh := &repository.Token{
			AccountID: account.ID,
			Value:     uuid.New(),
			Type:      repository.TokenRefresh,
			ExpiresAt: s.now().Add(s.refreshExpiry),
		}
		if err := tx.Tokens().Create(ctx, refresh); err != nil {
			return err
		}

		access, err := s.tokens.Issue(account)
		if err != nil {
			return err
		}

		result = &LoginResult{
			AccessToken:  access,
			RefreshToken: refresh.Value,
			Language:     account.Language,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.log.Info("login succeeded", "login", login)
	return result, nil
}

// registerFailedAttempt bumps the consecutive-failure counter and, when the
// threshold is reached, deactivates the account. The conditional update
// guarantees a single notification even under concurrent failures.
func (s *Service) registerFailedAttempt(ctx context.Context, account *repository.Account, ip string) error {
	var locked bool
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		count, err := tx.Accounts().RecordLoginFailure(ctx, account.ID, ip, s.now())
		if err != nil {
			return err
		}
		if count < s.lockoutThreshold {
			return nil
		}
		locked, err = tx.Accounts().DeactivateIfActive(ctx, account.ID)
		return err
	})
	if err != nil {
		return err
	}

	if locked {
		metrics.AccountLockouts.Inc()
		s.log.Warn("account locked after repeated failed logins", "login", account.Login)
		if s.notifier != nil {
			s.notifier.AccountBlocked(account)
		}
	}
	return nil
}

// Refresh redeems a refresh token for a new token pair. Redemption deletes
// the presented token in the same transaction that issues the replacement,
// so of N concurrent presentations of one token exactly one succeeds.
func (s *Service) Refresh(ctx context.Context, login string, value uuid.UUID) (*LoginResult, error) {
	var result *LoginResult
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		token, err := tx.Tokens().GetByValue(ctx, value)
		if err != nil {
			if errors.Is(err, repository.ErrTokenNotFound) {
				return ErrAuthentication
			}
			return err
		}

		account, err := tx.Accounts().GetByID(ctx, token.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAuthentication
			}
			return err
		}
		if account.Login != login {
			return ErrAuthentication
		}

		if err := token.Validate(repository.TokenRefresh, s.now()); err != nil {
			return ErrAuthentication
		}

		won, err := tx.Tokens().Delete(ctx, value)
		if err != nil {
			return err
		}
		if !won {
			return ErrAuthentication
		}

		fresh := &repository.Token{
			AccountID: account.ID,
			Value:     uuid.New(),
			Type:      repository.TokenRefresh,
			ExpiresAt: s.now().Add(s.refreshExpiry),
		}
		if err := tx.Tokens().Create(ctx, fresh); err != nil {
			return err
		}

		access, err := s.tokens.Issue(account)
		if err != nil {
			return err
		}

		result = &LoginResult{
			AccessToken:  access,
			RefreshToken: fresh.Value,
			Language:     account.Language,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAuthentication) {
			metrics.RefreshRotations.WithLabelValues("failure").Inc()
		}
		return nil, err
	}

	metrics.RefreshRotations.WithLabelValues("success").Inc()
	return result, nil
}

// Logout invalidates a refresh token. Presenting an unknown or already
// invalidated token is not an error.
func (s *Service) Logout(ctx context.Context, value uuid.UUID) error {
	_, err := s.store.Tokens().Delete(ctx, value)
	return err
}
