// Package auth validates identity-provider tokens and extracts the
// calling principal. Token issuance lives entirely in the identity
// provider; this package only verifies what it minted.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrTokenExpired is returned when the token has expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken is returned when the token is invalid for any other reason.
	ErrInvalidToken = errors.New("invalid token")
)

// Principal is the decoded identity of an authenticated caller.
type Principal struct {
	UserID string
	Email  string
}

// claims is the JWT claim set issued by the identity provider.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier validates HMAC-signed access tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a verifier for tokens signed with the given
// shared secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	return &Verifier{
		secret: []byte(secret),
		parser: parser,
	}, nil
}

// Verify parses and validates a token string and returns the caller's
// principal. The subject claim is required; email is optional.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	var c claims
	token, err := v.parser.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if c.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Principal{
		UserID: c.Subject,
		Email:  c.Email,
	}, nil
}
