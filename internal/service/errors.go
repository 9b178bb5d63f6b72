package service

import (
	"errors"
	"fmt"
)

// Clases de error. Los handlers HTTP traducen cada clase a un codigo de estado.
var (
	ErrValidation   = errors.New("validation failed")
	ErrDuplicate    = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrLocked       = errors.New("locked")
	ErrRateLimited  = errors.New("rate limited")
	ErrDelivery     = errors.New("delivery failed")
)

// Error es un error de negocio con mensaje apto para el cliente.
// Field identifica el campo implicado cuando aplica.
type Error struct {
	Kind    error
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func validationError(field, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

func duplicateError(field, message string) *Error {
	return &Error{Kind: ErrDuplicate, Field: field, Message: message}
}

var (
	ErrInvalidCredentials  = &Error{Kind: ErrUnauthorized, Message: "Invalid credentials"}
	ErrAccountSuspended    = &Error{Kind: ErrForbidden, Message: "Your account has been suspended. Please contact support."}
	ErrAccountLocked       = &Error{Kind: ErrLocked, Message: "Account is temporarily locked due to too many failed login attempts. Please try again later."}
	ErrMobileOTPOnly       = &Error{Kind: ErrValidation, Message: "This account uses mobile OTP authentication. Please login with your mobile number."}
	ErrMobileNotRegistered = &Error{Kind: ErrNotFound, Message: "No account found with this mobile number. Please register first."}
	ErrUserNotFound        = &Error{Kind: ErrNotFound, Message: "User not found"}
	ErrInvalidUserID       = &Error{Kind: ErrValidation, Field: "id", Message: "Invalid user ID"}
	ErrNoProfileFields     = &Error{Kind: ErrValidation, Message: "No valid fields provided for update"}

	ErrOTPNotFound       = &Error{Kind: ErrNotFound, Message: "OTP not found or already used. Please request a new OTP."}
	ErrOTPExhausted      = &Error{Kind: ErrRateLimited, Message: "Maximum OTP verification attempts exceeded. Please request a new OTP."}
	ErrOTPExpired        = &Error{Kind: ErrValidation, Message: "OTP has expired. Please request a new OTP."}
	ErrOTPInvalid        = &Error{Kind: ErrValidation, Field: "otp", Message: "Invalid OTP"}
	ErrOTPRequestLimited = &Error{Kind: ErrRateLimited, Message: "Too many OTP requests. Please try again later."}
	ErrSMSDelivery       = &Error{Kind: ErrDelivery, Message: "Failed to send OTP. Please try again."}

	ErrAdminInactive      = &Error{Kind: ErrForbidden, Message: "Admin account is inactive"}
	ErrResetOTPInvalid    = &Error{Kind: ErrValidation, Field: "otp", Message: "Invalid or expired reset code"}
	ErrEmailDelivery      = &Error{Kind: ErrDelivery, Message: "Failed to send reset code. Please try again."}
	ErrInsufficientRights = &Error{Kind: ErrForbidden, Message: "Insufficient permissions"}
)

// OTPMismatchError indica un codigo incorrecto y cuantos intentos quedan.
type OTPMismatchError struct {
	Remaining int
}

func (e *OTPMismatchError) Error() string {
	return fmt.Sprintf("Invalid OTP. %d attempt(s) remaining.", e.Remaining)
}

func (e *OTPMismatchError) Is(target error) bool {
	return target == ErrOTPInvalid
}

func (e *OTPMismatchError) Unwrap() error {
	return ErrValidation
}
