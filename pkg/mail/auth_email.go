package mail

import (
	"context"
	"fmt"
)

// AuthEmail composes and sends the account-lifecycle messages.
type AuthEmail struct {
	mailer Mailer
}

// NewAuthEmail wraps a mailer with the auth message templates.
func NewAuthEmail(mailer Mailer) *AuthEmail {
	return &AuthEmail{mailer: mailer}
}

// SendConfirmation mails the 6-digit confirmation code to a new account.
func (a *AuthEmail) SendConfirmation(ctx context.Context, name, email, token string) error {
	return a.mailer.Send(ctx, Email{
		To:      email,
		Subject: "CashTrackr - Confirma tu cuenta",
		Body: fmt.Sprintf(`
        <p>Hola %s, haz creado tu cuenta en CashTrackr</p>
        <p>Visita el siguiente enlace:</p>
        <a href="#">Confirmar cuenta</a>
        <p>E ingresa el código: <b>%s</b></p>
      `, name, token),
	})
}

// SendPasswordReset mails the 6-digit reset code.
func (a *AuthEmail) SendPasswordReset(ctx context.Context, name, email, token string) error {
	return a.mailer.Send(ctx, Email{
		To:      email,
		Subject: "CashTrackr - Reestablece tu password",
		Body: fmt.Sprintf(`
        <p>Hola %s, haz solicitado reestablecer tu password</p>
        <p>Visita el siguiente enlace:</p>
        <a href="#">Reestablecer password</a>
        <p>E ingresa el código: <b>%s</b></p>
      `, name, token),
	})
}
