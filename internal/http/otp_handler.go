package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ceebrain-identity/internal/service"
)

// OTPHandler expone el envio y la verificacion de codigos por SMS.
type OTPHandler struct {
	logger  *zap.Logger
	otpServ *service.OTPService
	jwtServ *service.JWTService
}

func NewOTPHandler(logger *zap.Logger, otpServ *service.OTPService, jwtServ *service.JWTService) *OTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPHandler{logger: logger, otpServ: otpServ, jwtServ: jwtServ}
}

// otpCode acepta el codigo como string o como numero JSON.
type otpCode string

func (o *otpCode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*o = otpCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("otp must be a string or number: %w", err)
	}
	*o = otpCode(n.String())
	return nil
}

// mobileBody admite el alias legado "number".
type mobileBody struct {
	MobileNumber string `json:"mobileNumber"`
	Number       string `json:"number"`
}

func (b mobileBody) mobile() string {
	if m := strings.TrimSpace(b.MobileNumber); m != "" {
		return m
	}
	return strings.TrimSpace(b.Number)
}

// SendOTP maneja POST /sendOTP.
func (h *OTPHandler) SendOTP(c *gin.Context) {
	var req mobileBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send otp request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}

	if _, err := h.otpServ.Send(c.Request.Context(), req.mobile()); err != nil {
		writeError(c, h.logger, "send otp", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    true,
		"message":   "OTP sent successfully",
		"expiresIn": fmt.Sprintf("%d minutes", int(h.otpServ.TTL().Minutes())),
	})
}

// VerifyOTP maneja POST /verifyOTP. Un numero sin cuenta recibe isNewUser=true
// y ningun token.
func (h *OTPHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		mobileBody
		OTP otpCode `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify otp request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}

	res, err := h.otpServ.Verify(c.Request.Context(), req.mobile(), string(req.OTP))
	if err != nil {
		writeError(c, h.logger, "verify otp", err)
		return
	}
	if res.IsNewUser {
		c.JSON(http.StatusOK, gin.H{
			"status":       true,
			"message":      "OTP verified successfully. Please complete registration.",
			"isNewUser":    true,
			"mobileNumber": res.MobileNumber,
		})
		return
	}

	if h.jwtServ == nil {
		writeError(c, h.logger, "issue tokens", errJWTNotConfigured)
		return
	}
	tokens, err := h.jwtServ.GeneratePair(service.UserPrincipal(res.User))
	if err != nil {
		writeError(c, h.logger, "issue tokens", err)
		return
	}
	c.JSON(http.StatusOK, tokenFields(gin.H{
		"status":    true,
		"message":   "OTP verified successfully. Login successful.",
		"isNewUser": false,
		"user":      newAuthUserView(res.User),
	}, tokens))
}
