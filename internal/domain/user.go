package domain

import "time"

// AuthProvider indica los metodos de autenticacion habilitados para una cuenta.
type AuthProvider string

const (
	AuthProviderMobileOTP     AuthProvider = "MOBILE_OTP"
	AuthProviderEmailPassword AuthProvider = "EMAIL_PASSWORD"
	AuthProviderBoth          AuthProvider = "BOTH"
)

// Valid reporta si el proveedor es uno de los valores conocidos.
func (p AuthProvider) Valid() bool {
	switch p {
	case AuthProviderMobileOTP, AuthProviderEmailPassword, AuthProviderBoth:
		return true
	}
	return false
}

// UsesPassword reporta si el proveedor requiere email + password.
func (p AuthProvider) UsesPassword() bool {
	return p == AuthProviderEmailPassword || p == AuthProviderBoth
}

// UsesOTP reporta si el proveedor requiere numero movil + OTP.
func (p AuthProvider) UsesOTP() bool {
	return p == AuthProviderMobileOTP || p == AuthProviderBoth
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "Pending"
	VerificationVerified VerificationStatus = "Verified"
	VerificationRejected VerificationStatus = "Rejected"
)

func (s VerificationStatus) Valid() bool {
	return s == VerificationPending || s == VerificationVerified || s == VerificationRejected
}

type AccountStatus string

const (
	AccountActive    AccountStatus = "Active"
	AccountInactive  AccountStatus = "Inactive"
	AccountSuspended AccountStatus = "Suspended"
)

func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountInactive || s == AccountSuspended
}

type Gender string

const (
	GenderMale           Gender = "Male"
	GenderFemale         Gender = "Female"
	GenderOther          Gender = "Other"
	GenderPreferNotToSay Gender = "PreferNotToSay"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderPreferNotToSay:
		return true
	}
	return false
}

type IdentityType string

const (
	IdentityAadhaar        IdentityType = "Aadhaar"
	IdentityPassport       IdentityType = "Passport"
	IdentityVoterID        IdentityType = "VoterID"
	IdentityDrivingLicense IdentityType = "DrivingLicense"
	IdentityOther          IdentityType = "Other"
)

func (t IdentityType) Valid() bool {
	switch t {
	case IdentityAadhaar, IdentityPassport, IdentityVoterID, IdentityDrivingLicense, IdentityOther:
		return true
	}
	return false
}

const DefaultCountry = "India"

// Address es la direccion completa del usuario.
type Address struct {
	AddressLine1 string   `json:"addressLine1" bson:"address_line1"`
	AddressLine2 string   `json:"addressLine2,omitempty" bson:"address_line2,omitempty"`
	Landmark     string   `json:"landmark,omitempty" bson:"landmark,omitempty"`
	City         string   `json:"city" bson:"city"`
	District     string   `json:"district" bson:"district"`
	State        string   `json:"state" bson:"state"`
	Country      string   `json:"country" bson:"country"`
	PostalCode   string   `json:"postalCode" bson:"postal_code"`
	Latitude     *float64 `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty" bson:"longitude,omitempty"`
}

// Verifier registra que administrador cambio el estado de verificacion.
type Verifier struct {
	VerifierID   string    `json:"verifierId" bson:"verifier_id"`
	VerifierRole string    `json:"verifierRole,omitempty" bson:"verifier_role,omitempty"`
	VerifiedAt   time.Time `json:"verifiedAt" bson:"verified_at"`
}

// User es el registro de identidad. Email y MobileNumber son opcionales pero al
// menos uno esta presente; PasswordHash existe solo si el proveedor usa password.
type User struct {
	ID                 string             `json:"_id" bson:"_id"`
	CeebrainID         string             `json:"ceebrainId" bson:"ceebrain_id"`
	Email              *string            `json:"email,omitempty" bson:"email,omitempty"`
	MobileNumber       *string            `json:"mobileNumber,omitempty" bson:"mobile_number,omitempty"`
	PasswordHash       string             `json:"-" bson:"password_hash,omitempty"`
	AuthProvider       AuthProvider       `json:"authProvider" bson:"auth_provider"`
	FullName           string             `json:"fullName" bson:"full_name"`
	DateOfBirth        time.Time          `json:"dateOfBirth" bson:"date_of_birth"`
	Gender             Gender             `json:"gender" bson:"gender"`
	IdentityType       IdentityType       `json:"identityType,omitempty" bson:"identity_type,omitempty"`
	ProfileImage       string             `json:"profileImage" bson:"profile_image"`
	Address            Address            `json:"address" bson:"address"`
	BelowPovertyLine   bool               `json:"belowPovertyLine" bson:"below_poverty_line"`
	Underprivileged    bool               `json:"underprivilegedCategory" bson:"underprivileged_category"`
	VerificationStatus VerificationStatus `json:"verificationStatus" bson:"verification_status"`
	VerifiedBy         *Verifier          `json:"verifiedBy,omitempty" bson:"verified_by,omitempty"`
	ConsentAccepted    bool               `json:"selfRegulatoryFrameworkAccepted" bson:"consent_accepted"`
	ConsentAcceptedAt  *time.Time         `json:"consentAcceptedAt,omitempty" bson:"consent_accepted_at,omitempty"`
	Status             AccountStatus      `json:"status" bson:"status"`
	Role               string             `json:"role" bson:"role"`
	LastLoginAt        *time.Time         `json:"lastLoginAt,omitempty" bson:"last_login_at,omitempty"`
	LoginAttempts      int                `json:"-" bson:"login_attempts"`
	LockUntil          *time.Time         `json:"-" bson:"lock_until,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updated_at"`
}

const DefaultUserRole = "user"

// IsLocked reporta si la cuenta sigue bloqueada en el instante now.
func (u User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// LockExpired reporta si hubo un bloqueo y ya vencio.
func (u User) LockExpired(now time.Time) bool {
	return u.LockUntil != nil && !u.LockUntil.After(now)
}

func (u User) IsSuspended() bool {
	return u.Status == AccountSuspended
}

func (u User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

func (u User) MobileValue() string {
	if u.MobileNumber == nil {
		return ""
	}
	return *u.MobileNumber
}
