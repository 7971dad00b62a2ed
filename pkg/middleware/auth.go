// Package middleware provides the request guards shared by the API routes:
// bearer-token authentication, nested-resource resolution with ownership
// checks and per-IP rate limiting.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cashtrackr/api/pkg/auth"
	"github.com/cashtrackr/api/pkg/contextkeys"
	"github.com/cashtrackr/api/pkg/httputil"
	"github.com/cashtrackr/api/pkg/observability"
	"github.com/cashtrackr/api/pkg/storage"
)

// Authenticator verifies the bearer token and attaches the account to the
// request context.
type Authenticator struct {
	jwt    *auth.JWTManager
	users  storage.UserStore
	logger *observability.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(jwt *auth.JWTManager, users storage.UserStore, logger *observability.Logger) *Authenticator {
	return &Authenticator{jwt: jwt, users: users, logger: logger}
}

// Handler rejects requests without a valid session. A missing or malformed
// Authorization header is a 401; a present-but-invalid token is reported as
// an internal error, matching the long-standing behavior clients depend on.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			httputil.WriteUnauthorized(w, "No autorizado")
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		userID, err := a.jwt.Verify(tokenString)
		if err != nil {
			httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Token no válido")
			return
		}

		user, err := a.users.GetByID(r.Context(), userID)
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteUnauthorized(w, "No autorizado")
			return
		}
		if err != nil {
			a.logger.WithError(err).Error("failed to load authenticated user")
			httputil.WriteInternalError(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(contextkeys.WithUser(r.Context(), user)))
	})
}
