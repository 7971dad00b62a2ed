package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, badly signed and expired session tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the authenticated user's id alongside the registered
// expiry claim. Tokens are stateless: no denylist exists, so a token stays
// valid until it expires even if the password changes afterwards.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"userId"`
}

// JWTManager signs and verifies HS256 session tokens.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a manager signing with secret and issuing tokens
// valid for expiry.
func NewJWTManager(secret []byte, expiry time.Duration) *JWTManager {
	return &JWTManager{secret: secret, expiry: expiry}
}

// Issue produces a signed token embedding userID.
func (m *JWTManager) Issue(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})
	return token.SignedString(m.secret)
}

// Verify validates the signature and expiry and returns the embedded user
// id. Any failure is reported as ErrInvalidToken.
func (m *JWTManager) Verify(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}
