package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/service"
)

// Proyecciones publicas del usuario. Nunca incluyen hash de password ni
// estado de bloqueo.

type authUserView struct {
	ID                 string                    `json:"_id"`
	CeebrainID         string                    `json:"ceebrainId"`
	FullName           string                    `json:"fullName"`
	Email              *string                   `json:"email,omitempty"`
	MobileNumber       *string                   `json:"mobileNumber,omitempty"`
	AuthProvider       domain.AuthProvider       `json:"authProvider"`
	VerificationStatus domain.VerificationStatus `json:"verificationStatus"`
	Status             domain.AccountStatus      `json:"status"`
	ProfileImage       string                    `json:"profileImage,omitempty"`
	LastLoginAt        *time.Time                `json:"lastLoginAt,omitempty"`
}

func newAuthUserView(u domain.User) authUserView {
	return authUserView{
		ID:                 u.ID,
		CeebrainID:         u.CeebrainID,
		FullName:           u.FullName,
		Email:              u.Email,
		MobileNumber:       u.MobileNumber,
		AuthProvider:       u.AuthProvider,
		VerificationStatus: u.VerificationStatus,
		Status:             u.Status,
		ProfileImage:       u.ProfileImage,
		LastLoginAt:        u.LastLoginAt,
	}
}

type listAddressView struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type listUserView struct {
	ID                 string                    `json:"_id"`
	CeebrainID         string                    `json:"ceebrainId"`
	FullName           string                    `json:"fullName"`
	Email              *string                   `json:"email,omitempty"`
	MobileNumber       *string                   `json:"mobileNumber,omitempty"`
	Gender             domain.Gender             `json:"gender"`
	ProfileImage       string                    `json:"profileImage"`
	Address            listAddressView           `json:"address"`
	VerificationStatus domain.VerificationStatus `json:"verificationStatus"`
	Status             domain.AccountStatus      `json:"status"`
	AuthProvider       domain.AuthProvider       `json:"authProvider"`
	CreatedAt          time.Time                 `json:"createdAt"`
}

func newListUserView(u domain.User) listUserView {
	return listUserView{
		ID:           u.ID,
		CeebrainID:   u.CeebrainID,
		FullName:     u.FullName,
		Email:        u.Email,
		MobileNumber: u.MobileNumber,
		Gender:       u.Gender,
		ProfileImage: u.ProfileImage,
		Address: listAddressView{
			City:    u.Address.City,
			State:   u.Address.State,
			Country: u.Address.Country,
		},
		VerificationStatus: u.VerificationStatus,
		Status:             u.Status,
		AuthProvider:       u.AuthProvider,
		CreatedAt:          u.CreatedAt,
	}
}

// tokenFields agrega el par de tokens a una respuesta.
func tokenFields(body gin.H, pair service.TokenPair) gin.H {
	body["token"] = pair.AccessToken
	body["refreshToken"] = pair.RefreshToken
	body["expiresIn"] = pair.ExpiresIn
	return body
}
