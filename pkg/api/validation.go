package api

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/cashtrackr/api/pkg/auth"
	"github.com/cashtrackr/api/pkg/httputil"
)

// Validation mirrors the form rules API clients were built against: every
// failed rule on a field produces its own entry, so one empty field can
// report several messages at once.

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

type createAccountRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r createAccountRequest) validate() []httputil.FieldError {
	var errs []httputil.FieldError
	if r.Name == "" {
		errs = append(errs, httputil.FieldError{Msg: "El nombre no puede ir vacio", Param: "name"})
	}
	if len(r.Password) < minPasswordLength {
		errs = append(errs, httputil.FieldError{Msg: "El password es muy corto, mínimo 8 caracteres", Param: "password"})
	}
	if !emailPattern.MatchString(r.Email) {
		errs = append(errs, httputil.FieldError{Msg: "El email no es válido", Param: "email"})
	}
	return errs
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) validate() []httputil.FieldError {
	var errs []httputil.FieldError
	if !emailPattern.MatchString(r.Email) {
		errs = append(errs, httputil.FieldError{Msg: "El email no es válido", Param: "email"})
	}
	if r.Password == "" {
		errs = append(errs, httputil.FieldError{Msg: "El password no puede ir vacio", Param: "password"})
	}
	return errs
}

type emailRequest struct {
	Email string `json:"email"`
}

func (r emailRequest) validate() []httputil.FieldError {
	if !emailPattern.MatchString(r.Email) {
		return []httputil.FieldError{{Msg: "El email no es válido", Param: "email"}}
	}
	return nil
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (r tokenRequest) validate() []httputil.FieldError {
	return validateCode(r.Token, "token")
}

func validateCode(token, param string) []httputil.FieldError {
	if len(token) != auth.CodeLength {
		return []httputil.FieldError{{Msg: "Token no válido", Param: param}}
	}
	return nil
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (r resetPasswordRequest) validate() []httputil.FieldError {
	if len(r.Password) < minPasswordLength {
		return []httputil.FieldError{{Msg: "El password es muy corto, mínimo 8 caracteres", Param: "password"}}
	}
	return nil
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
}

func (r updatePasswordRequest) validate() []httputil.FieldError {
	var errs []httputil.FieldError
	if r.CurrentPassword == "" {
		errs = append(errs, httputil.FieldError{Msg: "El password actual no puede ir vacio", Param: "current_password"})
	}
	if len(r.Password) < minPasswordLength {
		errs = append(errs, httputil.FieldError{Msg: "El password es muy corto, mínimo 8 caracteres", Param: "password"})
	}
	return errs
}

type checkPasswordRequest struct {
	Password string `json:"password"`
}

func (r checkPasswordRequest) validate() []httputil.FieldError {
	if r.Password == "" {
		return []httputil.FieldError{{Msg: "El password no puede ir vacio", Param: "password"}}
	}
	return nil
}

type budgetRequest struct {
	Name   string          `json:"name"`
	Amount json.RawMessage `json:"amount"`
}

func (r budgetRequest) validate() ([]httputil.FieldError, float64) {
	var errs []httputil.FieldError
	if r.Name == "" {
		errs = append(errs, httputil.FieldError{Msg: "El nombre del presupuesto no puede ir vacio", Param: "name"})
	}
	amountErrs, amount := validateAmount(r.Amount,
		"La cantidad del presupuesto no puede ir vacia",
		"El presupuesto  debe ser mayor a 0")
	return append(errs, amountErrs...), amount
}

type expenseRequest struct {
	Name   string          `json:"name"`
	Amount json.RawMessage `json:"amount"`
}

func (r expenseRequest) validate() ([]httputil.FieldError, float64) {
	var errs []httputil.FieldError
	if r.Name == "" {
		errs = append(errs, httputil.FieldError{Msg: "El nombre del gasto no puede ir vacio", Param: "name"})
	}
	amountErrs, amount := validateAmount(r.Amount,
		"La cantidad del gasto no puede ir vacia",
		"El gasto debe ser mayor a 0")
	return append(errs, amountErrs...), amount
}

// validateAmount accepts a JSON number or a numeric string, the two shapes
// form clients send. Each failed rule (present, numeric, positive) reports
// separately, so an absent amount yields all three messages.
func validateAmount(raw json.RawMessage, emptyMsg, positiveMsg string) ([]httputil.FieldError, float64) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return []httputil.FieldError{
			{Msg: emptyMsg, Param: "amount"},
			{Msg: "Cantidad no válida", Param: "amount"},
			{Msg: positiveMsg, Param: "amount"},
		}, 0
	}

	text := string(trimmed)
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	amount, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return []httputil.FieldError{
			{Msg: "Cantidad no válida", Param: "amount"},
			{Msg: positiveMsg, Param: "amount"},
		}, 0
	}
	if amount <= 0 {
		return []httputil.FieldError{{Msg: positiveMsg, Param: "amount"}}, 0
	}
	return nil, amount
}
