package repository

import "errors"

// Storage-level errors. Services classify these with errors.Is and map them
// onto their own failure kinds at the manager boundary.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrTokenNotFound   = errors.New("token not found")
	ErrRateNotFound    = errors.New("rate not found")

	ErrDuplicateLogin   = errors.New("login already exists")
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrDuplicateLicense = errors.New("license number already exists")
	ErrDuplicateRate    = errors.New("rate already exists for this rule and date")

	// ErrOptimisticLock is returned when a versioned update touched zero rows
	// because a concurrent transaction committed first.
	ErrOptimisticLock = errors.New("optimistic lock violation")

	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)
