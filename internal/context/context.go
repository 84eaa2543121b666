// Package context carries authenticated-caller identity through request
// contexts.
package context

import (
	"context"

	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// LoginKey is the context key for the authenticated account's login.
	LoginKey ContextKey = "login"
	// AccessTypesKey is the context key for the caller's active access types.
	AccessTypesKey ContextKey = "access_types"
)

// WithCaller stores the authenticated caller's identity in the context.
func WithCaller(ctx context.Context, login string, accessTypes []repository.AccessType) context.Context {
	ctx = context.WithValue(ctx, LoginKey, login)
	return context.WithValue(ctx, AccessTypesKey, accessTypes)
}

// CallerLogin extracts the authenticated login from the request context.
func CallerLogin(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(LoginKey).(string)
	return login, ok
}

// CallerHasAccess reports whether the caller holds the given access type.
func CallerHasAccess(ctx context.Context, t repository.AccessType) bool {
	types, ok := ctx.Value(AccessTypesKey).([]repository.AccessType)
	if !ok {
		return false
	}
	for _, at := range types {
		if at == t {
			return true
		}
	}
	return false
}
