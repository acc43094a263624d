// Package auth resolves bearer tokens to the stable caller identity
// every core procedure runs under. Credential issuance itself lives
// outside the system; this package only signs and verifies.
package auth

import (
	"time"

	"chat-core/domain"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the payload of an identity token.
type IdentityClaims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Generate creates a signed token binding the identity for the
// configured duration.
func (t *Tokens) Generate(identity domain.Identity) (string, error) {
	now := time.Now()
	claims := &IdentityClaims{
		Identity: string(identity),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-core",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Resolve validates the token and returns the identity it binds.
func (t *Tokens) Resolve(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid || claims.Identity == "" {
		return "", jwt.ErrSignatureInvalid
	}
	return domain.Identity(claims.Identity), nil
}
