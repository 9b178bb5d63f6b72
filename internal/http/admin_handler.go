package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ceebrain-identity/internal/service"
)

// AdminHandler agrupa login, alta y reseteo de administradores, mas las
// acciones de moderacion sobre usuarios.
type AdminHandler struct {
	logger    *zap.Logger
	adminServ *service.AdminService
	userServ  *service.UserService
	jwtServ   *service.JWTService
}

func NewAdminHandler(logger *zap.Logger, adminServ *service.AdminService, userServ *service.UserService, jwtServ *service.JWTService) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{logger: logger, adminServ: adminServ, userServ: userServ, jwtServ: jwtServ}
}

// Login maneja POST /admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid admin login request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}
	admin, err := h.adminServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, "admin login", err)
		return
	}
	if h.jwtServ == nil {
		writeError(c, h.logger, "issue tokens", errJWTNotConfigured)
		return
	}
	tokens, err := h.jwtServ.GeneratePair(service.AdminPrincipal(admin))
	if err != nil {
		writeError(c, h.logger, "issue tokens", err)
		return
	}
	c.JSON(http.StatusOK, tokenFields(gin.H{
		"status":  true,
		"message": "Login successful",
		"admin":   admin,
	}, tokens))
}

// Register maneja POST /admin/register (solo superadmin).
func (h *AdminHandler) Register(c *gin.Context) {
	actor, ok := GetAuthAdmin(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"status": false, "message": "Admin access required"})
		return
	}
	var req service.AdminInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid admin register request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}
	admin, err := h.adminServ.Register(c.Request.Context(), service.AdminPrincipal(actor), req)
	if err != nil {
		writeError(c, h.logger, "admin register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  true,
		"message": "Admin registered successfully",
		"admin":   admin,
	})
}

// ForgotPassword maneja POST /admin/forgot-password. Responde igual exista o
// no la cuenta.
func (h *AdminHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}
	if err := h.adminServ.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, "admin forgot password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "If the email is registered, a reset code has been sent.",
	})
}

// ResetPassword maneja POST /admin/reset-password.
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email       string  `json:"email"`
		OTP         otpCode `json:"otp"`
		NewPassword string  `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}
	if err := h.adminServ.ResetPassword(c.Request.Context(), req.Email, string(req.OTP), req.NewPassword); err != nil {
		writeError(c, h.logger, "admin reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true, "message": "Password reset successfully"})
}

// SetUserStatus maneja PUT /admin/users/:id/status.
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid status request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}
	user, err := h.userServ.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, h.logger, "set user status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "User status updated",
		"user":    newAuthUserView(user),
	})
}

// SetUserVerification maneja PUT /admin/users/:id/verification.
func (h *AdminHandler) SetUserVerification(c *gin.Context) {
	admin, ok := GetAuthAdmin(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"status": false, "message": "Admin access required"})
		return
	}
	var req struct {
		VerificationStatus string `json:"verificationStatus"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verification request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}
	user, err := h.userServ.SetVerification(c.Request.Context(), c.Param("id"), req.VerificationStatus, admin)
	if err != nil {
		writeError(c, h.logger, "set user verification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     true,
		"message":    "Verification status updated",
		"user":       newAuthUserView(user),
		"verifiedBy": user.VerifiedBy,
	})
}
