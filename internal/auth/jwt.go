// Package auth verifies the bearer tokens issued by the identity provider and
// exposes the authenticated user id to handlers.
//
// Users are never stored: the token's subject is the opaque user id, and a
// user exists as soon as a valid token for them is presented.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`

	jwt.RegisteredClaims
}

type JWT struct {
	Secret []byte
	// Issuer, when set, must match the token's iss claim.
	Issuer string
}

// Sign issues an HS256 token for subject. Production tokens come from the
// identity provider; this is used by tooling and tests.
func (j JWT) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
}

func (j JWT) Verify(token string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, err
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if c.Subject == "" {
		return Claims{}, errors.New("token has no subject")
	}
	return *c, nil
}
