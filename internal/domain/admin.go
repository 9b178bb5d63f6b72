package domain

import "time"

type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "superadmin"
)

func (r AdminRole) Valid() bool {
	return r == AdminRoleAdmin || r == AdminRoleSuperAdmin
}

// Admin es una identidad separada de User: solo email + password.
type Admin struct {
	ID             string     `json:"_id" bson:"_id"`
	Name           string     `json:"name" bson:"name"`
	Number         string     `json:"number" bson:"number"`
	Email          string     `json:"email" bson:"email"`
	PasswordHash   string     `json:"-" bson:"password_hash"`
	Role           AdminRole  `json:"role" bson:"role"`
	Active         bool       `json:"status" bson:"active"`
	ResetOTPHash   string     `json:"-" bson:"reset_otp_hash,omitempty"`
	ResetOTPExpiry *time.Time `json:"-" bson:"reset_otp_expiry,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updated_at"`
}
