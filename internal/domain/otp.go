package domain

import "time"

// OTPRecord es el unico OTP vigente para un numero movil. Se sobrescribe en
// cada solicitud y se elimina al verificarse, agotarse o vencer.
type OTPRecord struct {
	MobileNumber  string    `json:"mobileNumber" bson:"_id"`
	CodeHash      string    `json:"-" bson:"code_hash"`
	ExpiryTime    time.Time `json:"expiryTime" bson:"expiry_time"`
	WrongAttempts int       `json:"wrongAttempts" bson:"wrong_attempts"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updated_at"`
}

func (r OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiryTime)
}
