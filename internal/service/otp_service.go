package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/metrics"
	"ceebrain-identity/internal/repository"
	"ceebrain-identity/internal/sms"
)

const otpDigits = 4

// OTPService emite y verifica codigos de un solo uso enviados por SMS.
type OTPService struct {
	logger   *zap.Logger
	otps     repository.OTPRepository
	users    repository.UserRepository
	sender   sms.Sender
	limiter  OTPRateLimiter
	metrics  *metrics.Metrics
	ttl      time.Duration
	maxWrong int
	now      func() time.Time
}

type OTPServiceOptions struct {
	TTL              time.Duration
	MaxWrongAttempts int
	Limiter          OTPRateLimiter
	Metrics          *metrics.Metrics
}

func NewOTPService(logger *zap.Logger, otps repository.OTPRepository, users repository.UserRepository, sender sms.Sender, opts OTPServiceOptions) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = sms.NewLogSender(logger)
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.MaxWrongAttempts <= 0 {
		opts.MaxWrongAttempts = 3
	}
	if opts.Limiter == nil {
		opts.Limiter = NewOTPRateLimiter(opts.TTL, 5)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	return &OTPService{
		logger:   logger,
		otps:     otps,
		users:    users,
		sender:   sender,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		ttl:      opts.TTL,
		maxWrong: opts.MaxWrongAttempts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var errOTPServiceNotConfigured = errors.New("otp service not configured")

// TTL es la vigencia de cada codigo emitido.
func (s *OTPService) TTL() time.Duration {
	return s.ttl
}

// Send genera un codigo nuevo para mobile, reemplaza el anterior y lo despacha.
func (s *OTPService) Send(ctx context.Context, mobile string) (time.Time, error) {
	if s.otps == nil {
		return time.Time{}, errOTPServiceNotConfigured
	}
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return time.Time{}, validationError("mobileNumber", "Mobile number is required")
	}
	if !ValidMobile(mobile) {
		return time.Time{}, validationError("mobileNumber", "Invalid mobile number format. Must be a valid 10-digit Indian mobile number.")
	}
	if s.limiter != nil && !s.limiter.Allow(mobile) {
		s.metrics.OTPSent.WithLabelValues(s.sender.Mode(), "rate_limited").Inc()
		return time.Time{}, ErrOTPRequestLimited
	}

	code, err := newNumericCode(otpDigits)
	if err != nil {
		return time.Time{}, err
	}
	hash, err := hashOTP(code)
	if err != nil {
		return time.Time{}, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	record := domain.OTPRecord{
		MobileNumber: mobile,
		CodeHash:     hash,
		ExpiryTime:   expiresAt,
		UpdatedAt:    now,
	}
	if err := s.otps.Upsert(ctx, record); err != nil {
		return time.Time{}, err
	}

	if err := s.sender.SendOTP(ctx, mobile, code); err != nil {
		s.metrics.OTPSent.WithLabelValues(s.sender.Mode(), "failed").Inc()
		s.logger.Error("send otp failed", zap.Error(err), zap.String("mobile", mobile))
		return time.Time{}, ErrSMSDelivery
	}
	s.metrics.OTPSent.WithLabelValues(s.sender.Mode(), "sent").Inc()
	return expiresAt, nil
}

// VerifyResult indica si el numero ya tiene cuenta. Sin cuenta, IsNewUser es
// true y el cliente debe continuar con /signup.
type VerifyResult struct {
	User         domain.User
	IsNewUser    bool
	MobileNumber string
}

// Verify evalua, en este orden: registro inexistente, intentos agotados,
// vencimiento, codigo incorrecto y exito.
func (s *OTPService) Verify(ctx context.Context, mobile, code string) (VerifyResult, error) {
	if s.otps == nil || s.users == nil {
		return VerifyResult{}, errOTPServiceNotConfigured
	}
	mobile = strings.TrimSpace(mobile)
	code = strings.TrimSpace(code)
	if mobile == "" || code == "" {
		return VerifyResult{}, validationError("", "Mobile number and OTP are required")
	}
	if !ValidMobile(mobile) {
		return VerifyResult{}, validationError("mobileNumber", "Invalid mobile number format")
	}

	record, err := s.otps.GetByMobile(ctx, mobile)
	if errors.Is(err, repository.ErrNotFound) {
		s.countVerification("not_found")
		return VerifyResult{}, ErrOTPNotFound
	}
	if err != nil {
		return VerifyResult{}, err
	}

	if record.WrongAttempts >= s.maxWrong {
		if err := s.otps.Delete(ctx, mobile); err != nil {
			return VerifyResult{}, err
		}
		s.countVerification("exhausted")
		return VerifyResult{}, ErrOTPExhausted
	}

	now := s.now()
	if record.Expired(now) {
		if err := s.otps.Delete(ctx, mobile); err != nil {
			return VerifyResult{}, err
		}
		s.countVerification("expired")
		return VerifyResult{}, ErrOTPExpired
	}

	if !verifyOTP(code, record.CodeHash) {
		attempts, err := s.otps.IncrementWrongAttempts(ctx, mobile)
		if err != nil {
			return VerifyResult{}, err
		}
		remaining := s.maxWrong - attempts
		if remaining < 0 {
			remaining = 0
		}
		s.countVerification("mismatch")
		return VerifyResult{}, &OTPMismatchError{Remaining: remaining}
	}

	if err := s.otps.Delete(ctx, mobile); err != nil {
		return VerifyResult{}, err
	}

	user, err := s.users.GetByMobile(ctx, mobile)
	if errors.Is(err, repository.ErrNotFound) {
		s.countVerification("new_user")
		return VerifyResult{IsNewUser: true, MobileNumber: mobile}, nil
	}
	if err != nil {
		return VerifyResult{}, err
	}
	if user.IsSuspended() {
		s.countVerification("suspended")
		return VerifyResult{}, ErrAccountSuspended
	}
	// Un OTP valido prueba posesion del numero y libera cualquier bloqueo previo.
	if err := s.users.ResetLoginAttempts(ctx, user.ID, now); err != nil {
		return VerifyResult{}, err
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now

	s.countVerification("verified")
	s.metrics.Logins.WithLabelValues(LoginMethodMobileOTP, "success").Inc()
	return VerifyResult{User: user, MobileNumber: mobile}, nil
}

func (s *OTPService) countVerification(outcome string) {
	s.metrics.OTPVerifications.WithLabelValues(outcome).Inc()
}
