package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RateRepository is the communal rate table store.
type RateRepository interface {
	Create(ctx context.Context, rate *Rate) error
	GetByID(ctx context.Context, id uuid.UUID) (*Rate, error)

	// ListCurrent returns, per accounting rule, the rate with the latest
	// effective date not after today.
	ListCurrent(ctx context.Context) ([]*Rate, error)

	ListByRule(ctx context.Context, rule AccountingRule) ([]*Rate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type rateRepository struct {
	db DB
}

const rateColumns = `id, accounting_rule, value, effective_date, version, created_at`

func (r *rateRepository) Create(ctx context.Context, rate *Rate) error {
	query := `
		INSERT INTO rates (accounting_rule, value, effective_date)
		VALUES ($1, $2, $3)
		RETURNING id, version, created_at
	`

	err := r.db.QueryRow(ctx, query,
		rate.AccountingRule,
		rate.Value,
		rate.EffectiveDate,
	).Scan(&rate.ID, &rate.Version, &rate.CreatedAt)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("insert rate: %w", err)
	}
	return nil
}

func (r *rateRepository) GetByID(ctx context.Context, id uuid.UUID) (*Rate, error) {
	query := `SELECT ` + rateColumns + ` FROM rates WHERE id = $1`

	rate, err := scanRate(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRateNotFound
		}
		return nil, fmt.Errorf("select rate: %w", err)
	}
	return rate, nil
}

func (r *rateRepository) ListCurrent(ctx context.Context) ([]*Rate, error) {
	query := `
		SELECT ` + rateColumns + `
		FROM rates r
		WHERE effective_date = (
			SELECT MAX(r1.effective_date)
			FROM rates r1
			WHERE r1.effective_date <= CURRENT_DATE
			  AND r1.accounting_rule = r.accounting_rule
		)
		ORDER BY accounting_rule
	`
	return r.list(ctx, query)
}

func (r *rateRepository) ListByRule(ctx context.Context, rule AccountingRule) ([]*Rate, error) {
	query := `SELECT ` + rateColumns + ` FROM rates WHERE accounting_rule = $1 ORDER BY effective_date DESC`
	return r.list(ctx, query, rule)
}

func (r *rateRepository) list(ctx context.Context, query string, args ...any) ([]*Rate, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	var rates []*Rate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

func scanRate(row pgx.Row) (*Rate, error) {
	rate := &Rate{}
	err := row.Scan(
		&rate.ID,
		&rate.AccountingRule,
		&rate.Value,
		&rate.EffectiveDate,
		&rate.Version,
		&rate.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rate, nil
}

func (r *rateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRateNotFound
	}
	return nil
}
