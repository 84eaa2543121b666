// Package rates manages the communal rate table: the current price per
// accounting rule and future-dated entries managers may add or withdraw.
package rates

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

var (
	// ErrRateNotInFuture is returned when a new rate's effective date is
	// today or earlier.
	ErrRateNotInFuture = errors.New("rate effective date must be in the future")
	// ErrRateAlreadyEffective is returned when removing a rate that has
	// already taken effect.
	ErrRateAlreadyEffective = errors.New("rate is already effective")
	// ErrNegativeRateValue is returned for a rate value below zero.
	ErrNegativeRateValue = errors.New("rate value must not be negative")
)

// Service manages the rate table.
type Service struct {
	store repository.Store
	log   *slog.Logger

	now func() time.Time
}

// NewService wires the rate manager.
func NewService(store repository.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// CurrentRates returns, per accounting rule, the rate in effect today.
func (s *Service) CurrentRates(ctx context.Context) ([]*repository.Rate, error) {
	return s.store.Rates().ListCurrent(ctx)
}

// RatesByRule returns the full history for one accounting rule, newest first.
func (s *Service) RatesByRule(ctx context.Context, rule repository.AccountingRule) ([]*repository.Rate, error) {
	return s.store.Rates().ListByRule(ctx, rule)
}

// CreateRate adds a future-dated rate. At most one rate per rule and date
// exists; a collision surfaces as ErrDuplicateRate.
func (s *Service) CreateRate(ctx context.Context, rule repository.AccountingRule, value decimal.Decimal, effectiveDate time.Time) (*repository.Rate, error) {
	if value.IsNegative() {
		return nil, ErrNegativeRateValue
	}
	if !startOfDay(effectiveDate).After(startOfDay(s.now())) {
		return nil, ErrRateNotInFuture
	}

	rate := &repository.Rate{
		AccountingRule: rule,
		Value:          value,
		EffectiveDate:  startOfDay(effectiveDate),
	}
	if err := s.store.Rates().Create(ctx, rate); err != nil {
		return nil, err
	}
	s.log.Info("rate created", "rule", rule, "effective_date", rate.EffectiveDate.Format("2006-01-02"))
	return rate, nil
}

// RemoveFutureRate withdraws a rate that has not taken effect yet. Removing a
// rate that no longer exists is a silent no-op.
func (s *Service) RemoveFutureRate(ctx context.Context, id uuid.UUID) error {
	rate, err := s.store.Rates().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRateNotFound) {
			return nil
		}
		return err
	}
	if !startOfDay(rate.EffectiveDate).After(startOfDay(s.now())) {
		return ErrRateAlreadyEffective
	}
	if err := s.store.Rates().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRateNotFound) {
			return nil
		}
		return err
	}
	s.log.Info("rate removed", "rule", rate.AccountingRule, "effective_date", rate.EffectiveDate.Format("2006-01-02"))
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
