// Package inmem provides a mutex-guarded in-memory Store used as a test
// double. Mutating operations mirror the conditional-update semantics of the
// SQL implementation so concurrency tests observe the same single-winner
// behavior; transactions are not emulated beyond operation atomicity.
package inmem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// Store is the in-memory repository.Store implementation.
type Store struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*repository.Account
	tokens   map[uuid.UUID]*repository.Token
	rates    map[uuid.UUID]*repository.Rate
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]*repository.Account),
		tokens:   make(map[uuid.UUID]*repository.Token),
		rates:    make(map[uuid.UUID]*repository.Rate),
	}
}

func (s *Store) Accounts() repository.AccountRepository { return (*accountRepo)(s) }
func (s *Store) Tokens() repository.TokenRepository     { return (*tokenRepo)(s) }
func (s *Store) Rates() repository.RateRepository       { return (*rateRepo)(s) }

// InTx runs fn against the same store. Rollback is not emulated.
func (s *Store) InTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

// Seed inserts an account bypassing uniqueness checks. Test setup helper.
func (s *Store) Seed(account *repository.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	for _, al := range account.AccessLevels {
		if al.ID == uuid.Nil {
			al.ID = uuid.New()
		}
		al.AccountID = account.ID
	}
	s.accounts[account.ID] = cloneAccount(account)
}

// SeedToken inserts a token. Test setup helper.
func (s *Store) SeedToken(token *repository.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	s.tokens[token.ID] = cloneToken(token)
}

// TokenCount reports the number of stored tokens of the given type.
func (s *Store) TokenCount(tokenType repository.TokenType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.Type == tokenType {
			n++
		}
	}
	return n
}

func cloneAccount(a *repository.Account) *repository.Account {
	cp := *a
	cp.AccessLevels = make([]*repository.AccessLevel, len(a.AccessLevels))
	for i, al := range a.AccessLevels {
		cp.AccessLevels[i] = cloneLevel(al)
	}
	return &cp
}

func cloneLevel(al *repository.AccessLevel) *repository.AccessLevel {
	cp := *al
	if al.Address != nil {
		addr := *al.Address
		cp.Address = &addr
	}
	if al.LicenseNumber != nil {
		lic := *al.LicenseNumber
		cp.LicenseNumber = &lic
	}
	return &cp
}

func cloneToken(t *repository.Token) *repository.Token {
	cp := *t
	return &cp
}

func cloneRate(r *repository.Rate) *repository.Rate {
	cp := *r
	return &cp
}

type accountRepo Store

func (r *accountRepo) Create(_ context.Context, account *repository.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Login == account.Login {
			return repository.ErrDuplicateLogin
		}
		if strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrDuplicateEmail
		}
		if licenseTaken(existing, account) {
			return repository.ErrDuplicateLicense
		}
	}
	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	for _, al := range account.AccessLevels {
		al.ID = uuid.New()
		al.AccountID = account.ID
	}
	r.accounts[account.ID] = cloneAccount(account)
	return nil
}

func licenseTaken(existing, candidate *repository.Account) bool {
	for _, al := range candidate.AccessLevels {
		if al.LicenseNumber == nil {
			continue
		}
		for _, eal := range existing.AccessLevels {
			if eal.LicenseNumber != nil && *eal.LicenseNumber == *al.LicenseNumber {
				return true
			}
		}
	}
	return false
}

func (r *accountRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, repository.ErrAccountNotFound
}

func (r *accountRepo) GetByLogin(_ context.Context, login string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Login == login {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *accountRepo) List(_ context.Context, filter repository.AccountFilter) ([]*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Account
	for _, a := range r.accounts {
		if filter.Verified != nil && a.Verified != *filter.Verified {
			continue
		}
		if filter.Active != nil && a.Active != *filter.Active {
			continue
		}
		if filter.AccessType != nil && !a.HasActiveAccessLevel(*filter.AccessType) {
			continue
		}
		out = append(out, cloneAccount(a))
	}
	return out, nil
}

func (r *accountRepo) Update(_ context.Context, account *repository.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[account.ID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return repository.ErrOptimisticLock
	}
	for id, other := range r.accounts {
		if id != account.ID && strings.EqualFold(other.Email, account.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	account.Version++
	cp := cloneAccount(account)
	cp.AccessLevels = stored.AccessLevels
	r.accounts[account.ID] = cp
	return nil
}

func (r *accountRepo) UpdateAccessLevel(_ context.Context, level *repository.AccessLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[level.AccountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	for i, al := range stored.AccessLevels {
		if al.ID != level.ID {
			continue
		}
		if al.Version != level.Version {
			return repository.ErrOptimisticLock
		}
		level.Version++
		stored.AccessLevels[i] = cloneLevel(level)
		return nil
	}
	return repository.ErrAccountNotFound
}

func (r *accountRepo) UpsertAccessLevel(_ context.Context, level *repository.AccessLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[level.AccountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	for _, al := range stored.AccessLevels {
		if al.Level == level.Level {
			al.Active = true
			al.Verified = true
			al.Version++
			return nil
		}
	}
	if level.LicenseNumber != nil {
		for _, other := range r.accounts {
			for _, al := range other.AccessLevels {
				if al.LicenseNumber != nil && *al.LicenseNumber == *level.LicenseNumber {
					return repository.ErrDuplicateLicense
				}
			}
		}
	}
	level.ID = uuid.New()
	stored.AccessLevels = append(stored.AccessLevels, cloneLevel(level))
	return nil
}

func (r *accountRepo) DeactivateAccessLevel(_ context.Context, accountID uuid.UUID, level repository.AccessType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID]
	if !ok {
		return false, nil
	}
	for _, al := range stored.AccessLevels {
		if al.Level == level && al.Active && al.Verified {
			al.Active = false
			al.Version++
			return true, nil
		}
	}
	return false, nil
}

func (r *accountRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	for tid, t := range r.tokens {
		if t.AccountID == id {
			delete(r.tokens, tid)
		}
	}
	return nil
}

func (r *accountRepo) RecordLoginSuccess(_ context.Context, id uuid.UUID, ip string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Activity.LastSuccessfulLogin = &at
	a.Activity.LastSuccessfulLoginIP = &ip
	a.Activity.UnsuccessfulLoginCounter = 0
	return nil
}

func (r *accountRepo) RecordLoginFailure(_ context.Context, id uuid.UUID, ip string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	a.Activity.LastUnsuccessfulLogin = &at
	a.Activity.LastUnsuccessfulLoginIP = &ip
	a.Activity.UnsuccessfulLoginCounter++
	return a.Activity.UnsuccessfulLoginCounter, nil
}

func (r *accountRepo) DeactivateIfActive(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || !a.Active {
		return false, nil
	}
	a.Active = false
	return true, nil
}

func (r *accountRepo) SetReminded(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.Reminded = true
	}
	return nil
}

type tokenRepo Store

func (r *tokenRepo) Create(_ context.Context, token *repository.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	r.tokens[token.ID] = cloneToken(token)
	return nil
}

func (r *tokenRepo) GetByValue(_ context.Context, value uuid.UUID) (*repository.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Value == value {
			return cloneToken(t), nil
		}
	}
	return nil, repository.ErrTokenNotFound
}

func (r *tokenRepo) FindByAccountLoginAndType(_ context.Context, login string, tokenType repository.TokenType) ([]*repository.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accountID uuid.UUID
	found := false
	for _, a := range r.accounts {
		if a.Login == login {
			accountID = a.ID
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}
	var out []*repository.Token
	for _, t := range r.tokens {
		if t.AccountID == accountID && t.Type == tokenType {
			out = append(out, cloneToken(t))
		}
	}
	return out, nil
}

func (r *tokenRepo) FindExpiredBefore(_ context.Context, tokenType repository.TokenType, now time.Time) ([]*repository.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Token
	for _, t := range r.tokens {
		if t.Type == tokenType && now.After(t.ExpiresAt) {
			out = append(out, cloneToken(t))
		}
	}
	return out, nil
}

func (r *tokenRepo) FindUnexpiredOfType(_ context.Context, tokenType repository.TokenType, now time.Time) ([]*repository.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Token
	for _, t := range r.tokens {
		if t.Type == tokenType && !now.After(t.ExpiresAt) {
			out = append(out, cloneToken(t))
		}
	}
	return out, nil
}

func (r *tokenRepo) Delete(_ context.Context, value uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.Value == value {
			delete(r.tokens, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *tokenRepo) DeleteByAccountAndType(_ context.Context, accountID uuid.UUID, tokenType repository.TokenType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.AccountID == accountID && t.Type == tokenType {
			delete(r.tokens, id)
		}
	}
	return nil
}

type rateRepo Store

func (r *rateRepo) Create(_ context.Context, rate *repository.Rate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rates {
		if existing.AccountingRule == rate.AccountingRule && sameDay(existing.EffectiveDate, rate.EffectiveDate) {
			return repository.ErrDuplicateRate
		}
	}
	rate.ID = uuid.New()
	rate.CreatedAt = time.Now()
	r.rates[rate.ID] = cloneRate(rate)
	return nil
}

func (r *rateRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rate, ok := r.rates[id]; ok {
		return cloneRate(rate), nil
	}
	return nil, repository.ErrRateNotFound
}

func (r *rateRepo) ListCurrent(_ context.Context) ([]*repository.Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	today := time.Now()
	current := make(map[repository.AccountingRule]*repository.Rate)
	for _, rate := range r.rates {
		if rate.EffectiveDate.After(today) {
			continue
		}
		if best, ok := current[rate.AccountingRule]; !ok || rate.EffectiveDate.After(best.EffectiveDate) {
			current[rate.AccountingRule] = rate
		}
	}
	var out []*repository.Rate
	for _, rate := range current {
		out = append(out, cloneRate(rate))
	}
	return out, nil
}

func (r *rateRepo) ListByRule(_ context.Context, rule repository.AccountingRule) ([]*repository.Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Rate
	for _, rate := range r.rates {
		if rate.AccountingRule == rule {
			out = append(out, cloneRate(rate))
		}
	}
	return out, nil
}

func (r *rateRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rates, id)
	return nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
