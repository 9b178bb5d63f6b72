package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/metrics"
	"ceebrain-identity/internal/repository"
)

// UserService coordina registro, login por password, perfil y bloqueo de cuentas.
type UserService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	hasher  PasswordHasher
	lockout LockoutPolicy
	metrics *metrics.Metrics
	now     func() time.Time
}

type UserServiceOptions struct {
	Lockout    LockoutPolicy
	BcryptCost int
	Metrics    *metrics.Metrics
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, opts UserServiceOptions) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	return &UserService{
		logger:  logger,
		users:   users,
		hasher:  NewPasswordHasher(opts.BcryptCost),
		lockout: opts.Lockout.normalized(),
		metrics: opts.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var errUserServiceNotConfigured = errors.New("user service not configured")

type AddressInput struct {
	AddressLine1 string   `json:"addressLine1"`
	AddressLine2 string   `json:"addressLine2"`
	Landmark     string   `json:"landmark"`
	City         string   `json:"city"`
	District     string   `json:"district"`
	State        string   `json:"state"`
	Country      string   `json:"country"`
	PostalCode   string   `json:"postalCode"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// SignupInput es el cuerpo de registro. ConsentAccepted es puntero para
// distinguir "ausente" de "false".
type SignupInput struct {
	Email                   string        `json:"email"`
	Password                string        `json:"password"`
	MobileNumber            string        `json:"mobileNumber"`
	AuthProvider            string        `json:"authProvider"`
	FullName                string        `json:"fullName"`
	DateOfBirth             string        `json:"dateOfBirth"`
	Gender                  string        `json:"gender"`
	IdentityType            string        `json:"identityType"`
	ProfileImage            string        `json:"profileImage"`
	Address                 *AddressInput `json:"address"`
	BelowPovertyLine        bool          `json:"belowPovertyLine"`
	UnderprivilegedCategory bool          `json:"underprivilegedCategory"`
	ConsentAccepted         *bool         `json:"selfRegulatoryFrameworkAccepted"`
}

type signupPlan struct {
	provider    domain.AuthProvider
	email       string
	mobile      string
	dateOfBirth time.Time
	address     domain.Address
}

// Signup valida y persiste un nuevo usuario.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errUserServiceNotConfigured
	}

	plan, err := validateSignup(input)
	if err != nil {
		provider := string(plan.provider)
		if provider == "" {
			provider = "unknown"
		}
		s.metrics.Signups.WithLabelValues(provider, "rejected").Inc()
		return domain.User{}, err
	}

	if plan.email != "" {
		if err := s.ensureFree(ctx, s.users.GetByEmail, plan.email, "email"); err != nil {
			return domain.User{}, err
		}
	}
	if plan.mobile != "" {
		if err := s.ensureFree(ctx, s.users.GetByMobile, plan.mobile, "mobileNumber"); err != nil {
			return domain.User{}, err
		}
	}

	ceebrainID, err := s.allocateCeebrainID(ctx)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:                 uuid.NewString(),
		CeebrainID:         ceebrainID,
		AuthProvider:       plan.provider,
		FullName:           strings.TrimSpace(input.FullName),
		DateOfBirth:        plan.dateOfBirth,
		Gender:             domain.Gender(input.Gender),
		IdentityType:       domain.IdentityType(input.IdentityType),
		ProfileImage:       strings.TrimSpace(input.ProfileImage),
		Address:            plan.address,
		BelowPovertyLine:   input.BelowPovertyLine,
		Underprivileged:    input.UnderprivilegedCategory,
		VerificationStatus: domain.VerificationPending,
		ConsentAccepted:    true,
		ConsentAcceptedAt:  &now,
		Status:             domain.AccountActive,
		Role:               domain.DefaultUserRole,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if plan.email != "" {
		user.Email = stringPtr(plan.email)
	}
	if plan.mobile != "" {
		user.MobileNumber = stringPtr(plan.mobile)
	}
	if plan.provider.UsesPassword() {
		hash, err := s.hasher.Hash(input.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Create(ctx, user); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return domain.User{}, duplicateError(dup.Field, duplicateMessage(dup.Field))
		}
		return domain.User{}, err
	}

	s.metrics.Signups.WithLabelValues(string(plan.provider), "created").Inc()
	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("ceebrain_id", user.CeebrainID),
		zap.String("auth_provider", string(user.AuthProvider)),
	)
	return user, nil
}

func (s *UserService) ensureFree(ctx context.Context, lookup func(context.Context, string) (domain.User, error), value, field string) error {
	_, err := lookup(ctx, value)
	if err == nil {
		return duplicateError(field, duplicateMessage(field))
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func duplicateMessage(field string) string {
	switch field {
	case "email":
		return "Email already registered"
	case "mobileNumber":
		return "Mobile number already registered"
	}
	return field + " already exists"
}

func validateSignup(input SignupInput) (signupPlan, error) {
	var plan signupPlan

	required := []struct {
		name    string
		missing bool
	}{
		{"fullName", strings.TrimSpace(input.FullName) == ""},
		{"dateOfBirth", strings.TrimSpace(input.DateOfBirth) == ""},
		{"gender", strings.TrimSpace(input.Gender) == ""},
		{"address", input.Address == nil},
		{"selfRegulatoryFrameworkAccepted", input.ConsentAccepted == nil},
	}
	for _, r := range required {
		if r.missing {
			return plan, validationError(r.name, r.name+" is required")
		}
	}

	if !*input.ConsentAccepted {
		return plan, validationError("selfRegulatoryFrameworkAccepted", "You must accept the self-regulatory framework to register")
	}

	addr := input.Address
	addressRequired := []struct {
		name  string
		value string
	}{
		{"addressLine1", addr.AddressLine1},
		{"city", addr.City},
		{"district", addr.District},
		{"state", addr.State},
		{"postalCode", addr.PostalCode},
	}
	for _, r := range addressRequired {
		if strings.TrimSpace(r.value) == "" {
			return plan, validationError("address."+r.name, "address."+r.name+" is required")
		}
	}

	plan.email = normalizeEmail(input.Email)
	plan.mobile = strings.TrimSpace(input.MobileNumber)

	if p := strings.TrimSpace(input.AuthProvider); p != "" {
		provider := domain.AuthProvider(p)
		if !provider.Valid() {
			return plan, validationError("authProvider", "Invalid authProvider. Must be one of MOBILE_OTP, EMAIL_PASSWORD, BOTH")
		}
		plan.provider = provider
	} else {
		switch {
		case plan.email != "" && plan.mobile != "":
			plan.provider = domain.AuthProviderBoth
		case plan.email != "":
			plan.provider = domain.AuthProviderEmailPassword
		case plan.mobile != "":
			plan.provider = domain.AuthProviderMobileOTP
		default:
			return plan, validationError("authProvider", "At least one authentication method (email or mobile number) is required")
		}
	}

	if plan.provider.UsesPassword() {
		if plan.email == "" {
			return plan, validationError("email", "Email is required for email authentication")
		}
		if len(input.Password) < minPasswordLength {
			return plan, validationError("password", "Password must be at least 8 characters")
		}
	}
	if plan.provider.UsesOTP() && plan.mobile == "" {
		return plan, validationError("mobileNumber", "Mobile number is required for mobile authentication")
	}

	if plan.email != "" && !validEmail(plan.email) {
		return plan, validationError("email", "Please provide a valid email address")
	}
	if plan.mobile != "" && !ValidMobile(plan.mobile) {
		return plan, validationError("mobileNumber", "Please provide a valid 10-digit Indian mobile number")
	}
	if len(strings.TrimSpace(input.FullName)) > maxFullNameLength {
		return plan, validationError("fullName", "Full name cannot exceed 100 characters")
	}
	if !domain.Gender(input.Gender).Valid() {
		return plan, validationError("gender", "Invalid gender value")
	}
	if input.IdentityType != "" && !domain.IdentityType(input.IdentityType).Valid() {
		return plan, validationError("identityType", "Invalid identityType value")
	}
	dob, ok := parseDate(input.DateOfBirth)
	if !ok {
		return plan, validationError("dateOfBirth", "Invalid dateOfBirth")
	}
	plan.dateOfBirth = dob

	address, err := buildAddress(*addr)
	if err != nil {
		return plan, err
	}
	plan.address = address
	return plan, nil
}

func buildAddress(in AddressInput) (domain.Address, error) {
	if !postalCodePattern.MatchString(strings.TrimSpace(in.PostalCode)) {
		return domain.Address{}, validationError("address.postalCode", "Please provide a valid 6-digit postal code")
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"addressLine1", in.AddressLine1},
		{"addressLine2", in.AddressLine2},
		{"landmark", in.Landmark},
	} {
		if len(strings.TrimSpace(f.value)) > maxAddressLength {
			return domain.Address{}, validationError("address."+f.name, "address."+f.name+" cannot exceed 200 characters")
		}
	}
	if !validCoordinate(in.Latitude, 90) {
		return domain.Address{}, validationError("address.latitude", "Latitude must be between -90 and 90")
	}
	if !validCoordinate(in.Longitude, 180) {
		return domain.Address{}, validationError("address.longitude", "Longitude must be between -180 and 180")
	}
	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = domain.DefaultCountry
	}
	return domain.Address{
		AddressLine1: strings.TrimSpace(in.AddressLine1),
		AddressLine2: strings.TrimSpace(in.AddressLine2),
		Landmark:     strings.TrimSpace(in.Landmark),
		City:         strings.TrimSpace(in.City),
		District:     strings.TrimSpace(in.District),
		State:        strings.TrimSpace(in.State),
		Country:      country,
		PostalCode:   strings.TrimSpace(in.PostalCode),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	}, nil
}

const (
	LoginMethodEmailPassword = "EMAIL_PASSWORD"
	LoginMethodMobileOTP     = "MOBILE_OTP"
)

type LoginInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	MobileNumber string `json:"mobileNumber"`
	LoginMethod  string `json:"loginMethod"`
}

// LoginResult lleva al usuario autenticado o, en el flujo OTP, la indicacion
// de pedir el codigo por /sendOTP.
type LoginResult struct {
	User         domain.User
	RequiresOTP  bool
	MobileNumber string
}

func (s *UserService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	if s.users == nil {
		return LoginResult{}, errUserServiceNotConfigured
	}
	method := strings.TrimSpace(input.LoginMethod)
	if method == "" {
		if strings.TrimSpace(input.Email) != "" {
			method = LoginMethodEmailPassword
		} else {
			method = LoginMethodMobileOTP
		}
	}

	switch method {
	case LoginMethodEmailPassword:
		user, err := s.passwordLogin(ctx, input.Email, input.Password)
		s.countLogin(method, err)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{User: user}, nil
	case LoginMethodMobileOTP:
		mobile := strings.TrimSpace(input.MobileNumber)
		if mobile == "" {
			return LoginResult{}, validationError("mobileNumber", "Mobile number is required")
		}
		if !ValidMobile(mobile) {
			return LoginResult{}, validationError("mobileNumber", "Invalid mobile number format")
		}
		user, err := s.users.GetByMobile(ctx, mobile)
		if errors.Is(err, repository.ErrNotFound) {
			s.countLogin(method, ErrMobileNotRegistered)
			return LoginResult{}, ErrMobileNotRegistered
		}
		if err != nil {
			return LoginResult{}, err
		}
		if user.IsSuspended() {
			s.countLogin(method, ErrAccountSuspended)
			return LoginResult{}, ErrAccountSuspended
		}
		s.metrics.Logins.WithLabelValues(method, "otp_required").Inc()
		return LoginResult{User: user, RequiresOTP: true, MobileNumber: mobile}, nil
	}
	return LoginResult{}, validationError("loginMethod", "Invalid login method")
}

func (s *UserService) passwordLogin(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, validationError("", "Email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	if user.IsSuspended() {
		return domain.User{}, ErrAccountSuspended
	}
	if user.IsLocked(now) {
		return domain.User{}, ErrAccountLocked
	}
	if user.AuthProvider == domain.AuthProviderMobileOTP {
		return domain.User{}, ErrMobileOTPOnly
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		if err := s.recordFailure(ctx, user, now); err != nil {
			return domain.User{}, err
		}
		return domain.User{}, ErrInvalidCredentials
	}
	if err := s.lockout.Reset(ctx, s.users, &user, now); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) recordFailure(ctx context.Context, user domain.User, now time.Time) error {
	locked, err := s.lockout.RecordFailure(ctx, s.users, user, now)
	if err != nil {
		return err
	}
	if locked {
		s.metrics.AccountLockouts.Inc()
		s.logger.Warn("account locked after failed password attempts",
			zap.String("user_id", user.ID),
			zap.Duration("lock_duration", s.lockout.Duration),
		)
	}
	return nil
}

func (s *UserService) countLogin(method string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrLocked):
		outcome = "locked"
	case errors.Is(err, ErrForbidden):
		outcome = "suspended"
	case errors.Is(err, ErrUnauthorized):
		outcome = "invalid_credentials"
	case errors.Is(err, ErrNotFound):
		outcome = "unknown_account"
	default:
		outcome = "rejected"
	}
	s.metrics.Logins.WithLabelValues(method, outcome).Inc()
}

// GetUser devuelve el detalle; las cuentas suspendidas no son visibles.
func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if user.IsSuspended() {
		return domain.User{}, ErrAccountSuspended
	}
	return user, nil
}

// Lookup carga el usuario sin aplicar reglas de estado.
func (s *UserService) Lookup(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, id)
}

func (s *UserService) getUser(ctx context.Context, id string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errUserServiceNotConfigured
	}
	id = strings.TrimSpace(id)
	if !validUserID(id) {
		return domain.User{}, ErrInvalidUserID
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type ListUsersInput struct {
	Page               int
	Limit              int
	Search             string
	Status             string
	VerificationStatus string
	SortBy             string
	SortOrder          string
}

type ListUsersResult struct {
	Users      []domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ListUsers pagina el listado. Filtros con valores desconocidos se ignoran.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (ListUsersResult, error) {
	if s.users == nil {
		return ListUsersResult{}, errUserServiceNotConfigured
	}
	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := repository.UserFilter{
		Search:   strings.TrimSpace(input.Search),
		SortBy:   input.SortBy,
		SortDesc: !strings.EqualFold(input.SortOrder, "asc"),
		Offset:   (page - 1) * limit,
		Limit:    limit,
	}
	if st := domain.AccountStatus(input.Status); st.Valid() {
		filter.Status = st
	}
	if vs := domain.VerificationStatus(input.VerificationStatus); vs.Valid() {
		filter.VerificationStatus = vs
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{
		Users:      users,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// UpdateProfile aplica solo los campos permitidos por profileUpdatePolicy.
func (s *UserService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (domain.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if user.IsSuspended() {
		return domain.User{}, ErrAccountSuspended
	}
	changed, err := applyProfileUpdate(&user, update)
	if err != nil {
		return domain.User{}, err
	}
	if changed == 0 {
		return domain.User{}, ErrNoProfileFields
	}
	updated, err := s.users.UpdateProfile(ctx, user)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("profile updated", zap.String("user_id", updated.ID), zap.Int("fields", changed))
	return updated, nil
}

// ChangePassword exige la password actual; los fallos cuentan para el bloqueo.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return validationError("", "Current password and new password are required.")
	}
	if len(newPassword) < minPasswordLength {
		return validationError("newPassword", "New password must be at least 8 characters long.")
	}
	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}
	if user.AuthProvider == domain.AuthProviderMobileOTP {
		return validationError("", "Password change is not available for mobile OTP users. Please add email authentication first.")
	}
	now := s.now()
	if user.IsSuspended() {
		return ErrAccountSuspended
	}
	if user.IsLocked(now) {
		return ErrAccountLocked
	}
	if !s.hasher.Compare(user.PasswordHash, currentPassword) {
		if err := s.recordFailure(ctx, user, now); err != nil {
			return err
		}
		return &Error{Kind: ErrUnauthorized, Field: "currentPassword", Message: "Current password is incorrect."}
	}
	if err := s.lockout.Reset(ctx, s.users, &user, now); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

// SetStatus cambia el estado de la cuenta (accion de administrador).
func (s *UserService) SetStatus(ctx context.Context, id, status string) (domain.User, error) {
	st := domain.AccountStatus(status)
	if !st.Valid() {
		return domain.User{}, validationError("status", "Invalid status. Must be one of Active, Inactive, Suspended")
	}
	user, err := s.getUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.users.UpdateStatus(ctx, user.ID, st); err != nil {
		return domain.User{}, err
	}
	user.Status = st
	s.logger.Info("user status changed", zap.String("user_id", user.ID), zap.String("status", status))
	return user, nil
}

// SetVerification registra el resultado de la verificacion y quien la hizo.
func (s *UserService) SetVerification(ctx context.Context, id, status string, admin domain.Admin) (domain.User, error) {
	vs := domain.VerificationStatus(status)
	if !vs.Valid() {
		return domain.User{}, validationError("verificationStatus", "Invalid verificationStatus. Must be one of Pending, Verified, Rejected")
	}
	user, err := s.getUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	verifier := &domain.Verifier{
		VerifierID:   admin.ID,
		VerifierRole: string(admin.Role),
		VerifiedAt:   s.now(),
	}
	if err := s.users.UpdateVerification(ctx, user.ID, vs, verifier); err != nil {
		return domain.User{}, err
	}
	user.VerificationStatus = vs
	user.VerifiedBy = verifier
	return user, nil
}
