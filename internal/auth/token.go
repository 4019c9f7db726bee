package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nullgrid/nullgrid/internal/models"
)

// ErrInvalidToken is returned for any token failure. Expiry, forgery and
// malformation are deliberately indistinguishable to the caller.
var ErrInvalidToken = errors.New("invalid token")

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 24 * time.Hour

// Claims is the verified content of a bearer token.
type Claims struct {
	Identity string
	Role     models.Role
}

// TokenIssuer mints and verifies signed, time-bounded bearer tokens.
// Verification needs no store lookup; current account status is re-checked
// separately on every privileged operation.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer signing with the given secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: TokenTTL, now: time.Now}
}

// Issue returns a signed token carrying identity and role.
func (t *TokenIssuer) Issue(identity string, role models.Role) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"identity": identity,
		"role":     string(role),
		"iat":      now.Unix(),
		"exp":      now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string. Any failure yields
// ErrInvalidToken.
func (t *TokenIssuer) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	identity, ok := claims["identity"].(string)
	if !ok || identity == "" {
		return Claims{}, ErrInvalidToken
	}
	role, ok := claims["role"].(string)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	switch models.Role(role) {
	case models.RoleOperator, models.RoleAdmin:
	default:
		return Claims{}, ErrInvalidToken
	}
	return Claims{Identity: identity, Role: models.Role(role)}, nil
}
