package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// ErrInvalidToken is returned when an access token fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried inside an access token. The subject is the account's login
// and AccessLevels names the access types that were active and verified at
// the moment of issue.
type Claims struct {
	AccessLevels []string `json:"accessLevels"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed access tokens. Refresh tokens are
// opaque database-backed values and are not handled here.
type TokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService creates a TokenService from JWT configuration.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.Secret),
		expiry: cfg.AccessTokenExpiry,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// Issue signs a new access token for the account. Only access levels that
// are both active and verified are embedded in the claims.
func (s *TokenService) Issue(account *repository.Account) (string, error) {
	var levels []string
	for _, al := range account.AccessLevels {
		if al.Active && al.Verified {
			levels = append(levels, string(al.Level))
		}
	}

	now := s.now()
	claims := Claims{
		AccessLevels: levels,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Login,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies an access token, returning its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccessTypes converts the claim strings into typed access types, skipping
// values that do not parse.
func (c *Claims) AccessTypes() []repository.AccessType {
	var types []repository.AccessType
	for _, l := range c.AccessLevels {
		if t, ok := repository.ParseAccessType(l); ok {
			types = append(types, t)
		}
	}
	return types
}
