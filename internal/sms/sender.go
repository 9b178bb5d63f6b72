package sms

import (
	"context"

	"go.uber.org/zap"
)

const (
	ModeGateway = "gateway"
	ModeDev     = "dev"
)

// Sender define la interfaz para envio de OTP por SMS.
type Sender interface {
	SendOTP(ctx context.Context, mobile string, code string) error
	Mode() string
}

// logSender es el modo desarrollo: nunca envia, solo deja el codigo en el log.
type logSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logSender{logger: logger}
}

func (s *logSender) SendOTP(_ context.Context, mobile string, code string) error {
	s.logger.Warn("otp dev mode: sms gateway not configured",
		zap.String("mobile", mobile),
		zap.String("otp", code),
	)
	return nil
}

func (s *logSender) Mode() string {
	return ModeDev
}
