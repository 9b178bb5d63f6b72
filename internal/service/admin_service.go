package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/email"
	"ceebrain-identity/internal/repository"
)

const (
	adminResetOTPDigits = 6
	adminResetOTPTTL    = 15 * time.Minute
)

// AdminService gestiona cuentas de administrador: arranque, login, alta y reseteo de password.
type AdminService struct {
	logger *zap.Logger
	admins repository.AdminRepository
	mailer email.Sender
	hasher PasswordHasher
	now    func() time.Time
}

func NewAdminService(logger *zap.Logger, admins repository.AdminRepository, mailer email.Sender, bcryptCost int) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = email.NewDisabledSender("admin mailer not configured")
	}
	return &AdminService{
		logger: logger,
		admins: admins,
		mailer: mailer,
		hasher: NewPasswordHasher(bcryptCost),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var errAdminServiceNotConfigured = errors.New("admin service not configured")

type AdminInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Number   string `json:"number"`
	Role     string `json:"role"`
}

// EnsureDefaultAdmin crea un superadmin solo si no existe ningun administrador.
// Es idempotente y se invoca en cada arranque.
func (s *AdminService) EnsureDefaultAdmin(ctx context.Context, def AdminInput) (bool, error) {
	if s.admins == nil {
		return false, errAdminServiceNotConfigured
	}
	n, err := s.admins.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	def.Role = string(domain.AdminRoleSuperAdmin)
	admin, err := s.create(ctx, def)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Otra instancia lo creo entre el conteo y el insert.
			return false, nil
		}
		return false, err
	}
	s.logger.Info("default admin created", zap.String("admin_id", admin.ID), zap.String("email", admin.Email))
	return true, nil
}

// Register da de alta un administrador; solo un superadmin puede hacerlo.
func (s *AdminService) Register(ctx context.Context, actor Principal, input AdminInput) (domain.Admin, error) {
	if s.admins == nil {
		return domain.Admin{}, errAdminServiceNotConfigured
	}
	if actor.Kind != PrincipalAdmin || actor.Role != string(domain.AdminRoleSuperAdmin) {
		return domain.Admin{}, ErrInsufficientRights
	}
	if input.Role == "" {
		input.Role = string(domain.AdminRoleAdmin)
	}
	admin, err := s.create(ctx, input)
	if err != nil {
		return domain.Admin{}, err
	}
	s.logger.Info("admin registered", zap.String("admin_id", admin.ID), zap.String("by", actor.ID))
	return admin, nil
}

func (s *AdminService) create(ctx context.Context, input AdminInput) (domain.Admin, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"name", input.Name},
		{"email", input.Email},
		{"password", input.Password},
		{"number", input.Number},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return domain.Admin{}, validationError(f.name, f.name+" is required")
		}
	}
	emailAddr := normalizeEmail(input.Email)
	if !validEmail(emailAddr) {
		return domain.Admin{}, validationError("email", "Please provide a valid email address")
	}
	role := domain.AdminRole(input.Role)
	if !role.Valid() {
		return domain.Admin{}, validationError("role", "Invalid role. Must be admin or superadmin")
	}
	if len(input.Password) < minPasswordLength {
		return domain.Admin{}, validationError("password", "Password must be at least 8 characters")
	}

	if _, err := s.admins.GetByEmail(ctx, emailAddr); err == nil {
		return domain.Admin{}, duplicateError("email", "Admin with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Admin{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.Admin{}, err
	}
	now := s.now()
	admin := domain.Admin{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Number:       strings.TrimSpace(input.Number),
		Email:        emailAddr,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return domain.Admin{}, duplicateError(dup.Field, "Admin with this "+dup.Field+" already exists")
		}
		return domain.Admin{}, err
	}
	return admin, nil
}

func (s *AdminService) Login(ctx context.Context, emailAddr, password string) (domain.Admin, error) {
	if s.admins == nil {
		return domain.Admin{}, errAdminServiceNotConfigured
	}
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.Admin{}, validationError("", "Email and password are required")
	}
	admin, err := s.admins.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Admin{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Admin{}, err
	}
	if !s.hasher.Compare(admin.PasswordHash, password) {
		return domain.Admin{}, ErrInvalidCredentials
	}
	if !admin.Active {
		return domain.Admin{}, ErrAdminInactive
	}
	return admin, nil
}

// Get carga un administrador activo; lo usa el middleware de autenticacion.
func (s *AdminService) Get(ctx context.Context, id string) (domain.Admin, error) {
	if s.admins == nil {
		return domain.Admin{}, errAdminServiceNotConfigured
	}
	admin, err := s.admins.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Admin{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Admin{}, err
	}
	if !admin.Active {
		return domain.Admin{}, ErrAdminInactive
	}
	return admin, nil
}

// ForgotPassword envia un codigo de reseteo por email. Un email desconocido
// responde igual que uno valido para no revelar cuentas.
func (s *AdminService) ForgotPassword(ctx context.Context, emailAddr string) error {
	if s.admins == nil {
		return errAdminServiceNotConfigured
	}
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return validationError("email", "Email is required")
	}
	admin, err := s.admins.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("password reset requested for unknown admin email")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := newNumericCode(adminResetOTPDigits)
	if err != nil {
		return err
	}
	hash, err := hashOTP(code)
	if err != nil {
		return err
	}
	now := s.now()
	expiresAt := now.Add(adminResetOTPTTL)
	if err := s.admins.SetResetOTP(ctx, admin.ID, hash, expiresAt); err != nil {
		return err
	}
	rc := email.ResetCode{
		To:        admin.Email,
		Name:      admin.Name,
		Role:      string(admin.Role),
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := s.mailer.SendAdminResetCode(ctx, rc); err != nil {
		s.logger.Warn("send admin reset otp failed", zap.Error(err), zap.String("admin_id", admin.ID))
		return ErrEmailDelivery
	}
	return nil
}

func (s *AdminService) ResetPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	if s.admins == nil {
		return errAdminServiceNotConfigured
	}
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" || code == "" || newPassword == "" {
		return validationError("", "Email, OTP and new password are required")
	}
	if len(newPassword) < minPasswordLength {
		return validationError("newPassword", "New password must be at least 8 characters long.")
	}
	admin, err := s.admins.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResetOTPInvalid
	}
	if err != nil {
		return err
	}
	if admin.ResetOTPHash == "" || admin.ResetOTPExpiry == nil || s.now().After(*admin.ResetOTPExpiry) {
		return ErrResetOTPInvalid
	}
	if !verifyOTP(code, admin.ResetOTPHash) {
		return ErrResetOTPInvalid
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.admins.UpdatePassword(ctx, admin.ID, hash); err != nil {
		return err
	}
	s.logger.Info("admin password reset", zap.String("admin_id", admin.ID))
	return nil
}
