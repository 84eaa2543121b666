package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Msocha19/SSBD-TUL-2023/internal/metrics"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// DeleteUnverifiedAccounts removes accounts whose registration-confirmation
// token expired unused, one token at a time so a partial run leaves a
// consistent state.
func (s *Service) DeleteUnverifiedAccounts(ctx context.Context) error {
	expired, err := s.store.Tokens().FindExpiredBefore(ctx, repository.TokenConfirmRegistration, s.now())
	if err != nil {
		return err
	}

	for _, token := range expired {
		var account *repository.Account
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			var err error
			account, err = tx.Accounts().GetByID(ctx, token.AccountID)
			if err != nil {
				return err
			}
			won, err := tx.Tokens().Delete(ctx, token.Value)
			if err != nil {
				return err
			}
			if !won {
				// someone else already swept or the user confirmed meanwhile
				return repository.ErrTokenNotFound
			}
			return tx.Accounts().Delete(ctx, account.ID)
		})
		if err != nil {
			if errors.Is(err, repository.ErrTokenNotFound) || errors.Is(err, repository.ErrAccountNotFound) {
				continue
			}
			s.log.Error("failed to delete unverified account", "account_id", token.AccountID, "error", err)
			continue
		}
		metrics.SweptAccounts.Inc()
		s.notifier.RegistrationExpired(account)
		s.log.Info("unverified account removed", "login", account.Login)
	}
	return nil
}

// DeleteExpiredTokens removes expired tokens of every type other than
// registration confirmation, which DeleteUnverifiedAccounts owns.
func (s *Service) DeleteExpiredTokens(ctx context.Context) error {
	types := []repository.TokenType{
		repository.TokenRefresh,
		repository.TokenPasswordReset,
		repository.TokenOverridePasswordChange,
		repository.TokenConfirmEmail,
		repository.TokenBlockedAccount,
		repository.TokenTwoFactor,
	}

	for _, tokenType := range types {
		expired, err := s.store.Tokens().FindExpiredBefore(ctx, tokenType, s.now())
		if err != nil {
			return err
		}
		for _, token := range expired {
			won, err := s.store.Tokens().Delete(ctx, token.Value)
			if err != nil {
				s.log.Error("failed to delete expired token", "token_id", token.ID, "error", err)
				continue
			}
			if won {
				metrics.SweptTokens.Inc()
			}
		}
	}
	return nil
}

// RemindToConfirmRegistration mails one reminder per account once less than
// half of the confirmation window remains.
func (s *Service) RemindToConfirmRegistration(ctx context.Context) error {
	pending, err := s.store.Tokens().FindUnexpiredOfType(ctx, repository.TokenConfirmRegistration, s.now())
	if err != nil {
		return err
	}

	for _, token := range pending {
		account, err := s.store.Accounts().GetByID(ctx, token.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				continue
			}
			return err
		}
		if account.Reminded {
			continue
		}
		if token.ExpiresAt.Sub(s.now()) >= s.confirmationTTL/2 {
			continue
		}
		if err := s.store.Accounts().SetReminded(ctx, account.ID); err != nil {
			s.log.Error("failed to mark account reminded", "login", account.Login, "error", err)
			continue
		}
		s.notifier.RegistrationReminder(account, token.Value)
		s.log.Info("registration reminder sent", "login", account.Login)
	}
	return nil
}

// Sweeper periodically runs the background maintenance jobs.
type Sweeper struct {
	service  *Service
	interval time.Duration
	log      *slog.Logger
}

// NewSweeper creates a sweeper over the lifecycle manager.
func NewSweeper(service *Service, interval time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{service: service, interval: interval, log: log}
}

// Run executes the jobs every interval until the context is canceled. Jobs
// are safe to run concurrently with live traffic.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if err := s.service.DeleteUnverifiedAccounts(ctx); err != nil {
		s.log.Error("delete unverified accounts sweep failed", "error", err)
	}
	if err := s.service.DeleteExpiredTokens(ctx); err != nil {
		s.log.Error("delete expired tokens sweep failed", "error", err)
	}
	if err := s.service.RemindToConfirmRegistration(ctx); err != nil {
		s.log.Error("registration reminder sweep failed", "error", err)
	}
}
