package account

import "errors"

var (
	// ErrAccountUnverified is returned when an operation requires a
	// confirmed registration.
	ErrAccountUnverified = errors.New("account is not verified")

	// ErrAccountInactive is returned when an operation requires an active
	// account.
	ErrAccountInactive = errors.New("account is not active")

	// ErrInvalidPassword is returned when the current password does not
	// verify.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrIllegalSelfAction is returned when an operation targets the
	// caller's own account.
	ErrIllegalSelfAction = errors.New("operation cannot target own account")

	// ErrSelfAccessManagement is returned when a caller tries to grant or
	// revoke their own access levels.
	ErrSelfAccessManagement = errors.New("cannot manage own access levels")

	// ErrBadAccessLevel is returned when the target account's access levels
	// put it outside the caller's authority.
	ErrBadAccessLevel = errors.New("target account outside caller authority")

	// ErrNoAccessLevel is returned when the account lacks an active access
	// level of the requested type.
	ErrNoAccessLevel = errors.New("no active access level of this type")

	// ErrSignatureMismatch is returned when the client's view of versions or
	// the access-level set disagrees with the server's before any write.
	ErrSignatureMismatch = errors.New("payload does not match current account state")

	// ErrInvalidToken covers an absent, expired or wrong-type action token.
	// The cases are deliberately indistinguishable to the caller.
	ErrInvalidToken = errors.New("token is not valid")

	// ErrLanguageNotFound is returned for an unsupported language value.
	ErrLanguageNotFound = errors.New("unsupported language")
)
