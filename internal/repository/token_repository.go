package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TokenRepository is the token store. Deletion is the redemption primitive:
// Delete reports whether this call removed the row, which under concurrent
// redemption of the same value is true for exactly one caller.
type TokenRepository interface {
	Create(ctx context.Context, token *Token) error
	GetByValue(ctx context.Context, value uuid.UUID) (*Token, error)
	FindByAccountLoginAndType(ctx context.Context, login string, tokenType TokenType) ([]*Token, error)
	FindExpiredBefore(ctx context.Context, tokenType TokenType, now time.Time) ([]*Token, error)
	FindUnexpiredOfType(ctx context.Context, tokenType TokenType, now time.Time) ([]*Token, error)
	Delete(ctx context.Context, value uuid.UUID) (bool, error)
	DeleteByAccountAndType(ctx context.Context, accountID uuid.UUID, tokenType TokenType) error
}

type tokenRepository struct {
	db DB
}

const tokenColumns = `id, account_id, token_value, type, expires_at, created_at`

func (r *tokenRepository) Create(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO tokens (account_id, token_value, type, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		token.AccountID,
		token.Value,
		token.Type,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *tokenRepository) GetByValue(ctx context.Context, value uuid.UUID) (*Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_value = $1`

	token, err := scanToken(r.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("select token: %w", err)
	}
	return token, nil
}

func (r *tokenRepository) FindByAccountLoginAndType(ctx context.Context, login string, tokenType TokenType) ([]*Token, error) {
	query := `
		SELECT t.id, t.account_id, t.token_value, t.type, t.expires_at, t.created_at
		FROM tokens t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.login = $1 AND t.type = $2
	`
	return r.list(ctx, query, login, tokenType)
}

func (r *tokenRepository) FindExpiredBefore(ctx context.Context, tokenType TokenType, now time.Time) ([]*Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE type = $1 AND expires_at < $2`
	return r.list(ctx, query, tokenType, now)
}

func (r *tokenRepository) FindUnexpiredOfType(ctx context.Context, tokenType TokenType, now time.Time) ([]*Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE type = $1 AND expires_at >= $2`
	return r.list(ctx, query, tokenType, now)
}

func (r *tokenRepository) list(ctx context.Context, query string, args ...any) ([]*Token, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func scanToken(row pgx.Row) (*Token, error) {
	token := &Token{}
	err := row.Scan(
		&token.ID,
		&token.AccountID,
		&token.Value,
		&token.Type,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (r *tokenRepository) Delete(ctx context.Context, value uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM tokens WHERE token_value = $1`, value)
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *tokenRepository) DeleteByAccountAndType(ctx context.Context, accountID uuid.UUID, tokenType TokenType) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM tokens WHERE account_id = $1 AND type = $2`, accountID, tokenType)
	if err != nil {
		return fmt.Errorf("delete tokens by type: %w", err)
	}
	return nil
}
