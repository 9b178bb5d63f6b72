package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		jwtServ:  jwtServ,
	}
}

var errJWTNotConfigured = errors.New("jwt not configured")

// Signup maneja POST /signup.
func (h *UserHandler) Signup(c *gin.Context) {
	var req service.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userServ.Signup(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, "signup", err)
		return
	}

	tokens, err := h.issueTokens(user)
	if err != nil {
		writeError(c, h.logger, "issue tokens", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  true,
		"message": "Successfully registered",
		"result":  tokenFields(gin.H{"user": newAuthUserView(user)}, tokens),
	})
}

// Login maneja POST /login. En el flujo OTP no emite token: redirige a /sendOTP.
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}

	res, err := h.userServ.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}
	if res.RequiresOTP {
		c.JSON(http.StatusOK, gin.H{
			"status":       true,
			"message":      "Please use the /sendOTP endpoint to receive OTP",
			"requiresOTP":  true,
			"mobileNumber": res.MobileNumber,
		})
		return
	}

	tokens, err := h.issueTokens(res.User)
	if err != nil {
		writeError(c, h.logger, "issue tokens", err)
		return
	}
	c.JSON(http.StatusOK, tokenFields(gin.H{
		"status":  true,
		"message": "Login successful",
		"user":    newAuthUserView(res.User),
	}, tokens))
}

// ListUsers maneja GET /users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := h.userServ.ListUsers(c.Request.Context(), service.ListUsersInput{
		Page:               page,
		Limit:              limit,
		Search:             c.Query("search"),
		Status:             c.Query("status"),
		VerificationStatus: c.Query("verificationStatus"),
		SortBy:             c.Query("sortBy"),
		SortOrder:          c.Query("sortOrder"),
	})
	if err != nil {
		writeError(c, h.logger, "list users", err)
		return
	}

	views := make([]listUserView, 0, len(res.Users))
	for _, u := range res.Users {
		views = append(views, newListUserView(u))
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "Users fetched successfully.",
		"users":   views,
		"pagination": gin.H{
			"totalUsers":  res.Total,
			"currentPage": res.Page,
			"totalPages":  res.TotalPages,
			"pageSize":    res.Limit,
			"hasNextPage": res.Page < res.TotalPages,
			"hasPrevPage": res.Page > 1,
		},
	})
}

// GetUser maneja GET /users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userServ.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "get user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "User fetched successfully",
		"user":    user,
	})
}

// UpdateProfile maneja PUT /users/:id/profile. Solo el titular o un administrador.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id := c.Param("id")
	if !canActOn(c, id, true) {
		c.JSON(http.StatusForbidden, gin.H{"status": false, "message": "You can only update your own profile"})
		return
	}
	h.updateProfile(c, id)
}

// UpdateMyProfile maneja PUT /users/me/profile.
func (h *UserHandler) UpdateMyProfile(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"status": false, "message": "User access required"})
		return
	}
	h.updateProfile(c, user.ID)
}

func (h *UserHandler) updateProfile(c *gin.Context, id string) {
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid profile update request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}
	user, err := h.userServ.UpdateProfile(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, h.logger, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// ChangePassword maneja PUT /users/:id/change-password. Solo el titular.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id := c.Param("id")
	if !canActOn(c, id, false) {
		c.JSON(http.StatusForbidden, gin.H{"status": false, "message": "You can only change your own password"})
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid change password request", zap.Error(err))
		writeBadRequest(c, "Invalid request body")
		return
	}
	if err := h.userServ.ChangePassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, h.logger, "change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true, "message": "Password updated successfully."})
}

func (h *UserHandler) issueTokens(user domain.User) (service.TokenPair, error) {
	if h.jwtServ == nil {
		return service.TokenPair{}, errJWTNotConfigured
	}
	return h.jwtServ.GeneratePair(service.UserPrincipal(user))
}

// canActOn reporta si el principal autenticado puede operar sobre la cuenta id.
func canActOn(c *gin.Context, id string, allowAdmin bool) bool {
	if user, ok := GetAuthUser(c); ok {
		return user.ID == id
	}
	if _, ok := GetAuthAdmin(c); ok {
		return allowAdmin
	}
	return false
}
