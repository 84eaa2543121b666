package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountFilter narrows account listings. Nil fields are ignored. When
// AccessType is set, only accounts holding an active level of that type
// match, additionally filtered by the account's own Active flag.
type AccountFilter struct {
	Verified   *bool
	Active     *bool
	AccessType *AccessType
}

// AccountRepository is the account store: the account aggregate plus its
// access levels and login-activity tracker.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByLogin(ctx context.Context, login string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context, filter AccountFilter) ([]*Account, error)

	// Update persists the account's mutable fields. The version recorded in
	// the struct must still match the stored row at commit time; on a
	// mismatch the update touches zero rows and ErrOptimisticLock is
	// returned. On success the struct's version is advanced.
	Update(ctx context.Context, account *Account) error

	// UpdateAccessLevel persists one access level under the same optimistic
	// regime as Update.
	UpdateAccessLevel(ctx context.Context, level *AccessLevel) error

	// UpsertAccessLevel inserts the level or, when the account already holds
	// one of that type, re-activates and re-verifies it in place leaving its
	// variant data untouched.
	UpsertAccessLevel(ctx context.Context, level *AccessLevel) error

	// DeactivateAccessLevel soft-revokes an active, verified level. It
	// reports whether a row was actually flipped.
	DeactivateAccessLevel(ctx context.Context, accountID uuid.UUID, level AccessType) (bool, error)

	// Delete removes an account permanently. Only accounts whose
	// registration confirmation expired unused are ever hard-deleted.
	Delete(ctx context.Context, id uuid.UUID) error

	RecordLoginSuccess(ctx context.Context, id uuid.UUID, ip string, at time.Time) error

	// RecordLoginFailure increments the consecutive-failure counter
	// atomically and returns the new count.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, ip string, at time.Time) (int, error)

	// DeactivateIfActive flips active to false and reports whether this call
	// was the one that did it. Exactly one of N concurrent callers wins.
	DeactivateIfActive(ctx context.Context, id uuid.UUID) (bool, error)

	SetReminded(ctx context.Context, id uuid.UUID) error
}

type accountRepository struct {
	db DB
}

const accountColumns = `
	id, login, email, password_hash, first_name, last_name,
	verified, active, reminded, language,
	last_successful_login, last_successful_login_ip,
	last_unsuccessful_login, last_unsuccessful_login_ip,
	unsuccessful_login_count, version, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (login, email, password_hash, first_name, last_name,
		                      verified, active, reminded, language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		account.Login,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Verified,
		account.Active,
		account.Reminded,
		account.Language,
	).Scan(&account.ID, &account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("insert account: %w", err)
	}

	for _, al := range account.AccessLevels {
		al.AccountID = account.ID
		if err := r.insertAccessLevel(ctx, al); err != nil {
			return err
		}
	}
	return nil
}

func (r *accountRepository) insertAccessLevel(ctx context.Context, al *AccessLevel) error {
	query := `
		INSERT INTO access_levels (account_id, level, active, verified,
		                           postal_code, city, street, building_number, license_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at
	`

	var postalCode, city, street *string
	var buildingNumber *int
	if al.Address != nil {
		postalCode = &al.Address.PostalCode
		city = &al.Address.City
		street = &al.Address.Street
		buildingNumber = &al.Address.BuildingNumber
	}

	err := r.db.QueryRow(ctx, query,
		al.AccountID, al.Level, al.Active, al.Verified,
		postalCode, city, street, buildingNumber, al.LicenseNumber,
	).Scan(&al.ID, &al.Version, &al.CreatedAt)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("insert access level: %w", err)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *accountRepository) GetByLogin(ctx context.Context, login string) (*Account, error) {
	return r.getBy(ctx, "login = $1", login)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.getBy(ctx, "LOWER(email) = LOWER($1)", email)
}

func (r *accountRepository) getBy(ctx context.Context, where string, arg any) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where

	account, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}

	if err := r.loadAccessLevels(ctx, []*Account{account}); err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE TRUE`
	var args []any

	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		query += fmt.Sprintf(" AND verified = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND active = $%d", len(args))
	}
	if filter.AccessType != nil {
		args = append(args, *filter.AccessType)
		query += fmt.Sprintf(` AND id IN (
			SELECT account_id FROM access_levels WHERE level = $%d AND active = TRUE)`, len(args))
	}
	query += " ORDER BY login"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	if err := r.loadAccessLevels(ctx, accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Login,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Verified,
		&account.Active,
		&account.Reminded,
		&account.Language,
		&account.Activity.LastSuccessfulLogin,
		&account.Activity.LastSuccessfulLoginIP,
		&account.Activity.LastUnsuccessfulLogin,
		&account.Activity.LastUnsuccessfulLoginIP,
		&account.Activity.UnsuccessfulLoginCounter,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) loadAccessLevels(ctx context.Context, accounts []*Account) error {
	if len(accounts) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Account, len(accounts))
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	query := `
		SELECT id, account_id, level, active, verified,
		       postal_code, city, street, building_number, license_number,
		       version, created_at
		FROM access_levels
		WHERE account_id = ANY($1)
		ORDER BY level
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("load access levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		al := &AccessLevel{}
		var postalCode, city, street *string
		var buildingNumber *int
		err := rows.Scan(
			&al.ID, &al.AccountID, &al.Level, &al.Active, &al.Verified,
			&postalCode, &city, &street, &buildingNumber, &al.LicenseNumber,
			&al.Version, &al.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan access level: %w", err)
		}
		if postalCode != nil {
			al.Address = &Address{
				PostalCode:     *postalCode,
				City:           *city,
				Street:         *street,
				BuildingNumber: *buildingNumber,
			}
		}
		if owner, ok := byID[al.AccountID]; ok {
			owner.AccessLevels = append(owner.AccessLevels, al)
		}
	}
	return rows.Err()
}

func (r *accountRepository) Update(ctx context.Context, account *Account) error {
	query := `
		UPDATE accounts
		SET email = $1, password_hash = $2, first_name = $3, last_name = $4,
		    verified = $5, active = $6, reminded = $7, language = $8,
		    version = version + 1, updated_at = NOW()
		WHERE id = $9 AND version = $10
	`

	tag, err := r.db.Exec(ctx, query,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Verified,
		account.Active,
		account.Reminded,
		account.Language,
		account.ID,
		account.Version,
	)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.versionConflict(ctx, account.ID)
	}

	account.Version++
	return nil
}

// versionConflict distinguishes a stale version from a vanished row.
func (r *accountRepository) versionConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check account existence: %w", err)
	}
	if !exists {
		return ErrAccountNotFound
	}
	return ErrOptimisticLock
}

func (r *accountRepository) UpdateAccessLevel(ctx context.Context, level *AccessLevel) error {
	query := `
		UPDATE access_levels
		SET active = $1, verified = $2,
		    postal_code = $3, city = $4, street = $5, building_number = $6,
		    license_number = $7, version = version + 1
		WHERE id = $8 AND version = $9
	`

	var postalCode, city, street *string
	var buildingNumber *int
	if level.Address != nil {
		postalCode = &level.Address.PostalCode
		city = &level.Address.City
		street = &level.Address.Street
		buildingNumber = &level.Address.BuildingNumber
	}

	tag, err := r.db.Exec(ctx, query,
		level.Active, level.Verified,
		postalCode, city, street, buildingNumber,
		level.LicenseNumber,
		level.ID, level.Version,
	)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("update access level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOptimisticLock
	}

	level.Version++
	return nil
}

func (r *accountRepository) UpsertAccessLevel(ctx context.Context, level *AccessLevel) error {
	query := `
		INSERT INTO access_levels (account_id, level, active, verified,
		                           postal_code, city, street, building_number, license_number)
		VALUES ($1, $2, TRUE, TRUE, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, level) DO UPDATE
		SET active = TRUE, verified = TRUE, version = access_levels.version + 1
		RETURNING id, version, created_at
	`

	var postalCode, city, street *string
	var buildingNumber *int
	if level.Address != nil {
		postalCode = &level.Address.PostalCode
		city = &level.Address.City
		street = &level.Address.Street
		buildingNumber = &level.Address.BuildingNumber
	}

	err := r.db.QueryRow(ctx, query,
		level.AccountID, level.Level,
		postalCode, city, street, buildingNumber, level.LicenseNumber,
	).Scan(&level.ID, &level.Version, &level.CreatedAt)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("upsert access level: %w", err)
	}

	level.Active = true
	level.Verified = true
	return nil
}

func (r *accountRepository) DeactivateAccessLevel(ctx context.Context, accountID uuid.UUID, level AccessType) (bool, error) {
	query := `
		UPDATE access_levels
		SET active = FALSE, version = version + 1
		WHERE account_id = $1 AND level = $2 AND active = TRUE AND verified = TRUE
	`

	tag, err := r.db.Exec(ctx, query, accountID, level)
	if err != nil {
		return false, fmt.Errorf("deactivate access level: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, ip string, at time.Time) error {
	query := `
		UPDATE accounts
		SET last_successful_login = $1, last_successful_login_ip = $2,
		    unsuccessful_login_count = 0, updated_at = NOW()
		WHERE id = $3
	`

	tag, err := r.db.Exec(ctx, query, at, ip, id)
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, ip string, at time.Time) (int, error) {
	query := `
		UPDATE accounts
		SET last_unsuccessful_login = $1, last_unsuccessful_login_ip = $2,
		    unsuccessful_login_count = unsuccessful_login_count + 1, updated_at = NOW()
		WHERE id = $3
		RETURNING unsuccessful_login_count
	`

	var count int
	err := r.db.QueryRow(ctx, query, at, ip, id).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return count, nil
}

func (r *accountRepository) DeactivateIfActive(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE accounts SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active = TRUE`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("deactivate account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *accountRepository) SetReminded(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET reminded = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set reminded: %w", err)
	}
	return nil
}
