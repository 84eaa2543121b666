package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the minimum required password length.
	MinPasswordLength = 8
	// BcryptCost is the cost factor for bcrypt hashing.
	BcryptCost = 12
)

// Hasher performs one-way password hashing. The salt and the cost parameters
// are embedded in the produced digest; comparison is constant-time.
type Hasher struct{}

// NewHasher creates a new Hasher instance.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash creates a bcrypt digest of the password.
func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether the password matches the digest.
func (h *Hasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// PasswordValidationError describes one failed complexity rule.
type PasswordValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PasswordPolicy validates password complexity: minimum length, at least one
// digit, one special character, one upper and one lower case letter.
type PasswordPolicy struct{}

// NewPasswordPolicy creates a new PasswordPolicy instance.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{}
}

// Validate returns the list of complexity rules the password fails, empty
// when the password is acceptable.
func (p *PasswordPolicy) Validate(password string) []PasswordValidationError {
	var errs []PasswordValidationError

	if len(password) < MinPasswordLength {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "password must be at least 8 characters long",
		})
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "password must contain at least one uppercase letter",
		})
	}
	if !hasLower {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "password must contain at least one lowercase letter",
		})
	}
	if !hasDigit {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "password must contain at least one digit",
		})
	}
	if !hasSpecial {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "password must contain at least one special character",
		})
	}

	return errs
}

// IsValid reports whether the password meets all complexity rules.
func (p *PasswordPolicy) IsValid(password string) bool {
	return len(p.Validate(password)) == 0
}
