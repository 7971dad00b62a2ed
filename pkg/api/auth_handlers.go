package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cashtrackr/api/pkg/auth"
	"github.com/cashtrackr/api/pkg/contextkeys"
	"github.com/cashtrackr/api/pkg/httputil"
	"github.com/cashtrackr/api/pkg/mail"
	"github.com/cashtrackr/api/pkg/observability"
	"github.com/cashtrackr/api/pkg/storage"
)

// AuthHandler serves the account lifecycle: registration, confirmation,
// sessions and password management.
type AuthHandler struct {
	users   storage.UserStore
	jwt     *auth.JWTManager
	emails  *mail.AuthEmail
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewAuthHandler creates the handler. metrics may be nil.
func NewAuthHandler(users storage.UserStore, jwt *auth.JWTManager, emails *mail.AuthEmail, logger *observability.Logger, metrics *observability.Metrics) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt, emails: emails, logger: logger, metrics: metrics}
}

func (h *AuthHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	_, err := h.users.GetByEmail(r.Context(), req.Email)
	if err == nil {
		httputil.WriteConflict(w, "Un usuario con ese email ya registrado")
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		h.logger.WithError(err).Error("failed to check existing email")
		httputil.WriteInternalError(w)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}
	code, err := auth.GenerateCode()
	if err != nil {
		h.logger.WithError(err).Error("failed to generate confirmation code")
		httputil.WriteInternalError(w)
		return
	}

	user := &storage.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Token:    &code,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		h.logger.WithError(err).Error("failed to create user")
		httputil.WriteInternalError(w)
		return
	}
	if h.metrics != nil {
		h.metrics.AccountsCreatedTotal.Inc()
	}

	h.sendEmail("confirmation", user.Email, func() error {
		return h.emails.SendConfirmation(r.Context(), user.Name, user.Email, code)
	})

	httputil.WriteCreated(w, "Cuenta creada correctamente")
}

func (h *AuthHandler) confirmAccount(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	user, err := h.users.GetByToken(r.Context(), req.Token)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteUnauthorized(w, "Token no válido")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to look up confirmation token")
		httputil.WriteInternalError(w)
		return
	}

	if err := h.users.Confirm(r.Context(), user.ID); err != nil {
		h.logger.WithError(err).Error("failed to confirm account")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "Cuenta confirmada correctamente")
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		h.countLogin("unknown_user")
		httputil.WriteNotFound(w, "Usuario no encontrado")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to look up user")
		httputil.WriteInternalError(w)
		return
	}

	if !user.Confirmed {
		h.countLogin("unconfirmed")
		httputil.WriteForbidden(w, "La cuenta no ha sido confirmada")
		return
	}
	if !auth.CheckPassword(req.Password, user.Password) {
		h.countLogin("bad_password")
		httputil.WriteUnauthorized(w, "Password incorrecto")
		return
	}

	token, err := h.jwt.Issue(user.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to sign session token")
		httputil.WriteInternalError(w)
		return
	}
	h.countLogin("success")
	httputil.WriteSuccess(w, token)
}

func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteUnauthorized(w, "Usuario no encontrado")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to look up user")
		httputil.WriteInternalError(w)
		return
	}

	code, err := auth.GenerateCode()
	if err != nil {
		h.logger.WithError(err).Error("failed to generate reset code")
		httputil.WriteInternalError(w)
		return
	}
	if err := h.users.UpdateToken(r.Context(), user.ID, &code); err != nil {
		h.logger.WithError(err).Error("failed to store reset code")
		httputil.WriteInternalError(w)
		return
	}

	h.sendEmail("password_reset", user.Email, func() error {
		return h.emails.SendPasswordReset(r.Context(), user.Name, user.Email, code)
	})

	httputil.WriteSuccess(w, "Revisa tu email para instrucciones")
}

func (h *AuthHandler) validateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	_, err := h.users.GetByToken(r.Context(), req.Token)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "Token no válido")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to look up reset token")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, req.Token)
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	var req resetPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	errs := validateCode(token, "token")
	errs = append(errs, req.validate()...)
	if len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	user, err := h.users.GetByToken(r.Context(), token)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "Token no válido")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to look up reset token")
		httputil.WriteInternalError(w)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}
	if err := h.users.ResetPassword(r.Context(), user.ID, hash); err != nil {
		h.logger.WithError(err).Error("failed to reset password")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "El password se modificó correctamente")
}

func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := contextkeys.User(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

func (h *AuthHandler) updatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := contextkeys.User(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	var req updatePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	if !auth.CheckPassword(req.CurrentPassword, user.Password) {
		httputil.WriteUnauthorized(w, "El password actual es incorrecto")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		h.logger.WithError(err).Error("failed to update password")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "El password se modificó correctamente")
}

func (h *AuthHandler) checkPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := contextkeys.User(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	var req checkPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	if !auth.CheckPassword(req.Password, user.Password) {
		httputil.WriteUnauthorized(w, "El password no es correcto")
		return
	}
	httputil.WriteSuccess(w, "Password correcto")
}

func (h *AuthHandler) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

// sendEmail delivers asynchronously-observable mail: failures are logged and
// counted but never fail the request that triggered them.
func (h *AuthHandler) sendEmail(kind, to string, send func() error) {
	status := "sent"
	if err := send(); err != nil {
		status = "error"
		h.logger.WithError(err).WithField("to", to).Error("failed to send email")
	}
	if h.metrics != nil {
		h.metrics.EmailsSentTotal.WithLabelValues(kind, status).Inc()
	}
}
