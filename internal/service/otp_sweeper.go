package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ceebrain-identity/internal/repository"
)

// OTPSweeper borra periodicamente los OTP vencidos en stores sin TTL nativo.
type OTPSweeper struct {
	logger   *zap.Logger
	otps     repository.OTPRepository
	interval time.Duration
	now      func() time.Time
}

func NewOTPSweeper(logger *zap.Logger, otps repository.OTPRepository, interval time.Duration) *OTPSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &OTPSweeper{
		logger:   logger,
		otps:     otps,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run bloquea hasta que ctx se cancele.
func (s *OTPSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *OTPSweeper) Sweep(ctx context.Context) int64 {
	n, err := s.otps.DeleteExpired(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("otp sweep failed", zap.Error(err))
		}
		return 0
	}
	if n > 0 {
		s.logger.Debug("expired otps removed", zap.Int64("count", n))
	}
	return n
}
