package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Language is the account's preferred notification language.
type Language string

const (
	LanguagePL Language = "PL"
	LanguageEN Language = "EN"
)

// ParseLanguage maps a request value onto a supported language.
func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case LanguagePL, LanguageEN:
		return Language(s), true
	}
	return "", false
}

// AccessType identifies an access-level variant.
type AccessType string

const (
	AccessOwner   AccessType = "OWNER"
	AccessManager AccessType = "MANAGER"
	AccessAdmin   AccessType = "ADMIN"
)

// ParseAccessType maps a request value onto a known access type.
func ParseAccessType(s string) (AccessType, bool) {
	switch AccessType(s) {
	case AccessOwner, AccessManager, AccessAdmin:
		return AccessType(s), true
	}
	return "", false
}

// Address is a value object embedded in owner and manager access levels.
type Address struct {
	PostalCode     string `json:"postalCode"`
	City           string `json:"city"`
	Street         string `json:"street"`
	BuildingNumber int    `json:"buildingNumber"`
}

// AccessLevel is one role attached to an account. Owner and manager levels
// carry an address; manager levels additionally carry a license number.
// At most one level of each type exists per account.
type AccessLevel struct {
	ID            uuid.UUID  `db:"id"`
	AccountID     uuid.UUID  `db:"account_id"`
	Level         AccessType `db:"level"`
	Active        bool       `db:"active"`
	Verified      bool       `db:"verified"`
	Address       *Address
	LicenseNumber *string   `db:"license_number"`
	Version       int64     `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

// ActivityTracker records login activity on an account.
type ActivityTracker struct {
	LastSuccessfulLogin      *time.Time `db:"last_successful_login"`
	LastSuccessfulLoginIP    *string    `db:"last_successful_login_ip"`
	LastUnsuccessfulLogin    *time.Time `db:"last_unsuccessful_login"`
	LastUnsuccessfulLoginIP  *string    `db:"last_unsuccessful_login_ip"`
	UnsuccessfulLoginCounter int        `db:"unsuccessful_login_count"`
}

// Account is the account aggregate. Login is immutable once set.
type Account struct {
	ID           uuid.UUID `db:"id"`
	Login        string    `db:"login"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Verified     bool      `db:"verified"`
	Active       bool      `db:"active"`
	Reminded     bool      `db:"reminded"`
	Language     Language  `db:"language"`
	Activity     ActivityTracker
	AccessLevels []*AccessLevel
	Version      int64     `db:"version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// FullName is used as the recipient name in notifications.
func (a *Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

// AccessLevelOf returns the account's level of the given type, active or not.
func (a *Account) AccessLevelOf(t AccessType) *AccessLevel {
	for _, al := range a.AccessLevels {
		if al.Level == t {
			return al
		}
	}
	return nil
}

// HasActiveAccessLevel reports whether the account holds an active level of
// the given type.
func (a *Account) HasActiveAccessLevel(t AccessType) bool {
	al := a.AccessLevelOf(t)
	return al != nil && al.Active
}

// IsAbleToAuthenticate holds iff the account is active and verified and has
// at least one access level that is both active and verified.
func (a *Account) IsAbleToAuthenticate() bool {
	if !a.Active || !a.Verified {
		return false
	}
	for _, al := range a.AccessLevels {
		if al.Active && al.Verified {
			return true
		}
	}
	return false
}

// TokenType classifies action tokens.
type TokenType string

const (
	TokenRefresh                TokenType = "REFRESH"
	TokenConfirmRegistration    TokenType = "CONFIRM_REGISTRATION"
	TokenPasswordReset          TokenType = "PASSWORD_RESET"
	TokenOverridePasswordChange TokenType = "OVERRIDE_PASSWORD_CHANGE"
	TokenConfirmEmail           TokenType = "CONFIRM_EMAIL"
	TokenBlockedAccount         TokenType = "BLOCKED_ACCOUNT"
	TokenTwoFactor              TokenType = "TWO_FACTOR"
)

// Token is a time-bounded, single-use credential bound to one account. The
// bearer value is an unguessable UUID; redemption deletes the row in the same
// transaction as the guarded mutation.
type Token struct {
	ID        uuid.UUID `db:"id"`
	AccountID uuid.UUID `db:"account_id"`
	Value     uuid.UUID `db:"token_value"`
	Type      TokenType `db:"type"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Validate checks the token against the operation that presented it. Expiry
// and a type mismatch are distinct conditions internally but callers must
// collapse both into one externally visible failure.
func (t *Token) Validate(expected TokenType, now time.Time) error {
	if now.After(t.ExpiresAt) {
		return ErrTokenExpired
	}
	if t.Type != expected {
		return ErrWrongTokenType
	}
	return nil
}

// AccountingRule selects how a rate is applied to a place.
type AccountingRule string

const (
	RulePerPerson       AccountingRule = "PER_PERSON"
	RulePerSurface      AccountingRule = "PER_SURFACE"
	RulePerMeterReading AccountingRule = "PER_METER_READING"
	RuleMonthly         AccountingRule = "MONTHLY"
)

// ParseAccountingRule maps a request value onto a known accounting rule.
func ParseAccountingRule(s string) (AccountingRule, bool) {
	switch AccountingRule(s) {
	case RulePerPerson, RulePerSurface, RulePerMeterReading, RuleMonthly:
		return AccountingRule(s), true
	}
	return "", false
}

// Rate is one price entry of the communal rate table. At most one rate per
// (accounting rule, effective date) pair exists.
type Rate struct {
	ID             uuid.UUID       `db:"id"`
	AccountingRule AccountingRule  `db:"accounting_rule"`
	Value          decimal.Decimal `db:"value"`
	EffectiveDate  time.Time       `db:"effective_date"`
	Version        int64           `db:"version"`
	CreatedAt      time.Time       `db:"created_at"`
}
