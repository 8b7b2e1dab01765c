// Package auth verifies identity-provider tokens and carries the resolved
// identity through request contexts.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// IdentityClaims is the payload the identity provider signs. The subject
// carries the stable user UID; email and name are profile hints.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256-signed identity tokens against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: identity secret must be at least 16 characters")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a token, returning its claims. Tokens must be
// HS256 signed and carry an expiry and a non-empty subject.
func (v *Verifier) Verify(tokenStr string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&IdentityClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
