package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResetCode es el codigo de reseteo de password que se envia a un administrador.
type ResetCode struct {
	To        string
	Name      string
	Role      string
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Validity es la ventana de uso del codigo, redondeada a minutos.
func (r ResetCode) Validity() time.Duration {
	d := r.ExpiresAt.Sub(r.IssuedAt)
	if d < 0 {
		return 0
	}
	return d.Round(time.Minute)
}

// Sender entrega codigos de reseteo de password a administradores.
type Sender interface {
	SendAdminResetCode(ctx context.Context, rc ResetCode) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendAdminResetCode(_ context.Context, _ ResetCode) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

const resetSubject = "Ceebrain admin password reset code"

// composeReset arma asunto y cuerpo en texto plano del correo de reseteo.
func composeReset(rc ResetCode) (string, string) {
	name := strings.TrimSpace(rc.Name)
	if name == "" {
		name = "Administrator"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	if rc.Role != "" {
		fmt.Fprintf(&b, "A password reset was requested for your Ceebrain %s account (%s).\n\n", rc.Role, rc.To)
	} else {
		fmt.Fprintf(&b, "A password reset was requested for your Ceebrain admin account (%s).\n\n", rc.To)
	}
	fmt.Fprintf(&b, "Your reset code is: %s\n\n", rc.Code)
	if minutes := int(rc.Validity() / time.Minute); minutes > 0 {
		fmt.Fprintf(&b, "The code is valid for %d minutes and expires at %s UTC.\n", minutes, rc.ExpiresAt.UTC().Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintf(&b, "The code expires at %s UTC.\n", rc.ExpiresAt.UTC().Format("2006-01-02 15:04"))
	}
	b.WriteString("It can be used once. Requesting a new code replaces this one.\n\n")
	b.WriteString("If you did not request a reset, ignore this message and your password stays unchanged.\n")
	return resetSubject, b.String()
}
