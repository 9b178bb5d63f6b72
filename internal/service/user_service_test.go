package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/repository"
)

func newTestUserService(users repository.UserRepository) *UserService {
	return NewUserService(zap.NewNop(), users, UserServiceOptions{BcryptCost: bcrypt.MinCost})
}

func boolPtr(b bool) *bool { return &b }

func validSignup() SignupInput {
	return SignupInput{
		Email:        "Asha@Example.com",
		Password:     "supersecret",
		MobileNumber: "9876543210",
		FullName:     "Asha Rao",
		DateOfBirth:  "1995-04-12",
		Gender:       "Female",
		Address: &AddressInput{
			AddressLine1: "12 MG Road",
			City:         "Pune",
			District:     "Pune",
			State:        "Maharashtra",
			PostalCode:   "411001",
		},
		ConsentAccepted: boolPtr(true),
	}
}

func TestSignup_InfersProviderAndStoresUser(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestUserService(repo)

	user, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.AuthProvider != domain.AuthProviderBoth {
		t.Fatalf("expected BOTH provider, got %s", user.AuthProvider)
	}
	if user.EmailValue() != "asha@example.com" {
		t.Fatalf("expected lower-cased email, got %q", user.EmailValue())
	}
	if user.PasswordHash == "" || user.PasswordHash == "supersecret" {
		t.Fatalf("expected hashed password")
	}
	if !regexp.MustCompile(`^CB-[0-9A-Z]{6}-[A-HJ-NP-Z2-9]{4}$`).MatchString(user.CeebrainID) {
		t.Fatalf("unexpected ceebrain id %q", user.CeebrainID)
	}
	if user.Status != domain.AccountActive || user.VerificationStatus != domain.VerificationPending {
		t.Fatalf("unexpected initial state %s / %s", user.Status, user.VerificationStatus)
	}
	if user.Address.Country != domain.DefaultCountry {
		t.Fatalf("expected default country, got %q", user.Address.Country)
	}

	stored, err := repo.GetByEmail(context.Background(), "asha@example.com")
	if err != nil || stored.ID != user.ID {
		t.Fatalf("expected stored user, got %v / %v", stored.ID, err)
	}
}

func TestSignup_ProviderInference(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		mobile   string
		expected domain.AuthProvider
	}{
		{"email only", "only@example.com", "", domain.AuthProviderEmailPassword},
		{"mobile only", "", "9123456780", domain.AuthProviderMobileOTP},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestUserService(repository.NewMemoryUserRepository())
			in := validSignup()
			in.Email = tc.email
			in.MobileNumber = tc.mobile
			user, err := svc.Signup(context.Background(), in)
			if err != nil {
				t.Fatalf("signup: %v", err)
			}
			if user.AuthProvider != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, user.AuthProvider)
			}
			if tc.expected == domain.AuthProviderMobileOTP && user.PasswordHash != "" {
				t.Fatalf("mobile-only user must not store a password hash")
			}
		})
	}
}

func TestSignup_ValidationOrder(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SignupInput)
		field   string
		message string
	}{
		{"missing name wins over everything", func(in *SignupInput) {
			in.FullName = ""
			in.ConsentAccepted = boolPtr(false)
			in.Email = ""
			in.MobileNumber = ""
		}, "fullName", "fullName is required"},
		{"consent missing", func(in *SignupInput) { in.ConsentAccepted = nil }, "selfRegulatoryFrameworkAccepted", "selfRegulatoryFrameworkAccepted is required"},
		{"consent false before address", func(in *SignupInput) {
			in.ConsentAccepted = boolPtr(false)
			in.Address.City = ""
		}, "selfRegulatoryFrameworkAccepted", "You must accept the self-regulatory framework to register"},
		{"address sub-field", func(in *SignupInput) { in.Address.District = "" }, "address.district", "address.district is required"},
		{"no contact", func(in *SignupInput) {
			in.Email = ""
			in.MobileNumber = ""
		}, "authProvider", "At least one authentication method (email or mobile number) is required"},
		{"unknown provider", func(in *SignupInput) { in.AuthProvider = "SAML" }, "authProvider", "Invalid authProvider. Must be one of MOBILE_OTP, EMAIL_PASSWORD, BOTH"},
		{"short password", func(in *SignupInput) { in.Password = "short" }, "password", "Password must be at least 8 characters"},
		{"otp provider without mobile", func(in *SignupInput) {
			in.AuthProvider = "MOBILE_OTP"
			in.MobileNumber = ""
		}, "mobileNumber", "Mobile number is required for mobile authentication"},
		{"bad mobile", func(in *SignupInput) { in.MobileNumber = "12345" }, "mobileNumber", "Please provide a valid 10-digit Indian mobile number"},
		{"bad gender", func(in *SignupInput) { in.Gender = "Robot" }, "gender", "Invalid gender value"},
		{"bad postal code", func(in *SignupInput) { in.Address.PostalCode = "12" }, "address.postalCode", "Please provide a valid 6-digit postal code"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestUserService(repository.NewMemoryUserRepository())
			in := validSignup()
			tc.mutate(&in)
			_, err := svc.Signup(context.Background(), in)
			var svcErr *Error
			if !errors.As(err, &svcErr) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if svcErr.Field != tc.field || svcErr.Message != tc.message {
				t.Fatalf("expected %s/%q, got %s/%q", tc.field, tc.message, svcErr.Field, svcErr.Message)
			}
		})
	}
}

func TestSignup_DuplicateEmailAndMobile(t *testing.T) {
	svc := newTestUserService(repository.NewMemoryUserRepository())
	if _, err := svc.Signup(context.Background(), validSignup()); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	dupEmail := validSignup()
	dupEmail.Email = "ASHA@example.com"
	dupEmail.MobileNumber = "9000000001"
	_, err := svc.Signup(context.Background(), dupEmail)
	var svcErr *Error
	if !errors.As(err, &svcErr) || !errors.Is(err, ErrDuplicate) || svcErr.Field != "email" {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	dupMobile := validSignup()
	dupMobile.Email = "other@example.com"
	_, err = svc.Signup(context.Background(), dupMobile)
	if !errors.As(err, &svcErr) || svcErr.Field != "mobileNumber" {
		t.Fatalf("expected duplicate mobile, got %v", err)
	}
}

func TestLogin_PasswordRoundTrip(t *testing.T) {
	svc := newTestUserService(repository.NewMemoryUserRepository())
	created, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	res, err := svc.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.ID != created.ID || res.RequiresOTP {
		t.Fatalf("unexpected login result %+v", res)
	}
	if res.User.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}

	if _, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "whatever1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "asha@example.com"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error without password, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{LoginMethod: "MAGIC"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown method, got %v", err)
	}
}

func TestLogin_LocksAfterFiveFailures(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestUserService(repo)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	created, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	bad := LoginInput{Email: "asha@example.com", Password: "wrong-password"}
	for i := 1; i <= 5; i++ {
		if _, err := svc.Login(context.Background(), bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}
	stored, _ := repo.GetByID(context.Background(), created.ID)
	if stored.LoginAttempts != 5 || stored.LockUntil == nil {
		t.Fatalf("expected lock after 5 failures, got attempts=%d lock=%v", stored.LoginAttempts, stored.LockUntil)
	}
	if want := now.Add(2 * time.Hour); !stored.LockUntil.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, *stored.LockUntil)
	}

	// Con la password correcta sigue bloqueada.
	good := LoginInput{Email: "asha@example.com", Password: "supersecret"}
	if _, err := svc.Login(context.Background(), good); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected locked, got %v", err)
	}

	// Vencido el bloqueo, el siguiente fallo reinicia el contador en 1.
	now = now.Add(2*time.Hour + time.Second)
	if _, err := svc.Login(context.Background(), bad); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials after lock expiry, got %v", err)
	}
	stored, _ = repo.GetByID(context.Background(), created.ID)
	if stored.LoginAttempts != 1 || stored.LockUntil != nil {
		t.Fatalf("expected restarted counter, got attempts=%d lock=%v", stored.LoginAttempts, stored.LockUntil)
	}

	if _, err := svc.Login(context.Background(), good); err != nil {
		t.Fatalf("expected login after expiry, got %v", err)
	}
	stored, _ = repo.GetByID(context.Background(), created.ID)
	if stored.LoginAttempts != 0 {
		t.Fatalf("expected counter reset on success, got %d", stored.LoginAttempts)
	}
}

func TestLogin_SuspendedAndMobileOnly(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestUserService(repo)

	created, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := repo.UpdateStatus(context.Background(), created.ID, domain.AccountSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "supersecret"}); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected suspended on password login, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{MobileNumber: "9876543210"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected suspended on otp login, got %v", err)
	}

	mobileOnly := validSignup()
	mobileOnly.AuthProvider = "MOBILE_OTP"
	mobileOnly.Email = "otp@example.com"
	mobileOnly.MobileNumber = "9000000002"
	if _, err := svc.Signup(context.Background(), mobileOnly); err != nil {
		t.Fatalf("signup mobile only: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "otp@example.com", Password: "anything1"}); !errors.Is(err, ErrMobileOTPOnly) {
		t.Fatalf("expected mobile otp only error, got %v", err)
	}
}

func TestLogin_MobileRedirectsToOTP(t *testing.T) {
	svc := newTestUserService(repository.NewMemoryUserRepository())
	if _, err := svc.Signup(context.Background(), validSignup()); err != nil {
		t.Fatalf("signup: %v", err)
	}

	res, err := svc.Login(context.Background(), LoginInput{MobileNumber: "9876543210"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.RequiresOTP || res.MobileNumber != "9876543210" {
		t.Fatalf("expected otp redirect, got %+v", res)
	}

	if _, err := svc.Login(context.Background(), LoginInput{MobileNumber: "9111111111"}); !errors.Is(err, ErrMobileNotRegistered) {
		t.Fatalf("expected unregistered mobile, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{MobileNumber: "5111111111"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected invalid format, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestUserService(repo)
	created, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), created.ID, "supersecret", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation for short password, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), created.ID, "bad-current", "newsecret1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong current password, got %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), created.ID)
	if stored.LoginAttempts != 1 {
		t.Fatalf("wrong current password must count as failure, got %d", stored.LoginAttempts)
	}

	if err := svc.ChangePassword(context.Background(), created.ID, "supersecret", "newsecret1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "newsecret1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "supersecret"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
}

func TestChangePassword_RejectsMobileOnly(t *testing.T) {
	svc := newTestUserService(repository.NewMemoryUserRepository())
	in := validSignup()
	in.Email = ""
	created, err := svc.Signup(context.Background(), in)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.ChangePassword(context.Background(), created.ID, "whatever1", "newsecret1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestUserService(repo)
	created, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.GetUser(context.Background(), "not-a-uuid"); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	if _, err := svc.GetUser(context.Background(), "7a6b2a2e-8a0f-4d9c-9d6e-0b7f1a2c3d4e"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := svc.GetUser(context.Background(), created.ID)
	if err != nil || got.ID != created.ID {
		t.Fatalf("expected user, got %v", err)
	}
	_ = repo.UpdateStatus(context.Background(), created.ID, domain.AccountSuspended)
	if _, err := svc.GetUser(context.Background(), created.ID); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected suspended, got %v", err)
	}
}

func TestUpdateProfile_Policy(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestUserService(repo)
	created, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.UpdateProfile(context.Background(), created.ID, ProfileUpdate{}); !errors.Is(err, ErrNoProfileFields) {
		t.Fatalf("expected no fields error, got %v", err)
	}

	name := "Asha R."
	city := "Mumbai"
	bpl := true
	updated, err := svc.UpdateProfile(context.Background(), created.ID, ProfileUpdate{
		FullName:         &name,
		Address:          &AddressUpdate{City: &city},
		BelowPovertyLine: &bpl,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.FullName != name || !updated.BelowPovertyLine {
		t.Fatalf("expected fields applied, got %+v", updated)
	}
	if updated.Address.City != "Mumbai" || updated.Address.AddressLine1 != "12 MG Road" || updated.Address.PostalCode != "411001" {
		t.Fatalf("expected address merge, got %+v", updated.Address)
	}
	if updated.EmailValue() != created.EmailValue() || updated.Status != created.Status {
		t.Fatalf("protected fields must not change")
	}

	badGender := "Robot"
	if _, err := svc.UpdateProfile(context.Background(), created.ID, ProfileUpdate{Gender: &badGender}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	badPostal := "99"
	if _, err := svc.UpdateProfile(context.Background(), created.ID, ProfileUpdate{Address: &AddressUpdate{PostalCode: &badPostal}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected postal code validation, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	svc := newTestUserService(repository.NewMemoryUserRepository())
	mobiles := []string{"9000000011", "9000000012", "9000000013"}
	for i, m := range mobiles {
		in := validSignup()
		in.Email = ""
		in.MobileNumber = m
		if i == 2 {
			in.Address.City = "Nagpur"
		}
		if _, err := svc.Signup(context.Background(), in); err != nil {
			t.Fatalf("signup %d: %v", i, err)
		}
	}

	res, err := svc.ListUsers(context.Background(), ListUsersInput{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 3 || len(res.Users) != 2 || res.TotalPages != 2 {
		t.Fatalf("unexpected pagination %+v", res)
	}

	res, err = svc.ListUsers(context.Background(), ListUsersInput{Search: "nagpur", Status: "bogus"})
	if err != nil {
		t.Fatalf("list search: %v", err)
	}
	if res.Total != 1 || res.Limit != defaultPageSize {
		t.Fatalf("expected one match with default limit, got %+v", res)
	}

	res, _ = svc.ListUsers(context.Background(), ListUsersInput{Limit: 1000})
	if res.Limit != maxPageSize {
		t.Fatalf("expected limit capped at %d, got %d", maxPageSize, res.Limit)
	}
}

func TestSetStatusAndVerification(t *testing.T) {
	svc := newTestUserService(repository.NewMemoryUserRepository())
	created, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.SetStatus(context.Background(), created.ID, "Deleted"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	u, err := svc.SetStatus(context.Background(), created.ID, "Suspended")
	if err != nil || u.Status != domain.AccountSuspended {
		t.Fatalf("expected suspended, got %v / %v", u.Status, err)
	}

	admin := domain.Admin{ID: "admin-1", Role: domain.AdminRoleAdmin}
	u, err = svc.SetVerification(context.Background(), created.ID, "Verified", admin)
	if err != nil {
		t.Fatalf("set verification: %v", err)
	}
	if u.VerificationStatus != domain.VerificationVerified || u.VerifiedBy == nil || u.VerifiedBy.VerifierID != "admin-1" {
		t.Fatalf("unexpected verification %+v", u.VerifiedBy)
	}
}

type failingUserRepo struct {
	repository.UserRepository
	err error
}

func (f failingUserRepo) GetByEmail(context.Context, string) (domain.User, error) {
	return domain.User{}, f.err
}

func TestSignup_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("store down")
	svc := newTestUserService(failingUserRepo{UserRepository: repository.NewMemoryUserRepository(), err: boom})
	if _, err := svc.Signup(context.Background(), validSignup()); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
