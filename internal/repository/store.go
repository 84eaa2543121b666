package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so every
// repository method runs unchanged inside or outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories behind one transaction boundary. Every
// mutating manager operation acquires a transaction with InTx, performs all
// of its reads and writes on the store it receives, and commits or rolls
// back as one unit.
type Store interface {
	Accounts() AccountRepository
	Tokens() TokenRepository
	Rates() RateRepository

	// InTx runs fn against a store bound to a single transaction. A nested
	// call joins the surrounding transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}

type pgxStore struct {
	db       DB
	pool     *pgxpool.Pool // nil when the store is transaction-bound
	accounts AccountRepository
	tokens   TokenRepository
	rates    RateRepository
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return newPgxStore(pool, pool)
}

func newPgxStore(db DB, pool *pgxpool.Pool) *pgxStore {
	return &pgxStore{
		db:       db,
		pool:     pool,
		accounts: &accountRepository{db: db},
		tokens:   &tokenRepository{db: db},
		rates:    &rateRepository{db: db},
	}
}

func (s *pgxStore) Accounts() AccountRepository { return s.accounts }
func (s *pgxStore) Tokens() TokenRepository     { return s.tokens }
func (s *pgxStore) Rates() RateRepository       { return s.rates }

func (s *pgxStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already inside a transaction; join it.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(newPgxStore(tx, nil)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// uniqueViolation maps a Postgres unique-constraint error onto the matching
// sentinel, or returns nil when err is not a unique violation.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "idx_accounts_login":
		return ErrDuplicateLogin
	case "idx_accounts_email":
		return ErrDuplicateEmail
	case "idx_access_levels_license":
		return ErrDuplicateLicense
	case "unq_rates_rule_date":
		return ErrDuplicateRate
	}
	return nil
}
