// Package authtoken verifies the bearer access tokens the connection
// manager accepts at WebSocket handshake time. Token issuance is the
// out-of-scope auth service's job; this package only validates a token an
// external gateway already handed the client.
package authtoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dispatch/pkg/apperror"
)

// Claims identifies the principal carried by an access token.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated identity attached to a connection.
type Principal struct {
	UserID string
	Role   string
}

// Verifier checks access tokens signed with a shared secret.
type Verifier struct {
	secretKey []byte
	algorithm string
}

// NewVerifier builds a Verifier. algorithm defaults to HS256 when empty
// and is stored as given; Verify does not consult it and accepts a token
// signed with any HMAC method. Asymmetric keys are not supported.
func NewVerifier(secretKey, algorithm string) *Verifier {
	if algorithm == "" {
		algorithm = "HS256"
	}
	return &Verifier{secretKey: []byte(secretKey), algorithm: algorithm}
}

// Verify parses and validates tokenString, returning the embedded
// Principal. An expired, malformed, or mis-signed token returns
// apperror.CodeAuthRequired.
func (v *Verifier) Verify(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, apperror.New(apperror.CodeAuthRequired, "access token required")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	})
	if err != nil {
		return Principal{}, apperror.Wrap(apperror.CodeAuthRequired, err, "invalid access token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, apperror.New(apperror.CodeAuthRequired, "invalid access token claims")
	}

	return Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

// Issue mints a short-lived token. Only used by tests and local tooling
// that need a token to exercise the handshake without the (out of
// scope) auth service running.
func (v *Verifier) Issue(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secretKey)
}
