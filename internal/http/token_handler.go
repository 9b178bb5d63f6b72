package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ceebrain-identity/internal/service"
)

// TokenHandler rota y revoca refresh tokens de usuarios y administradores.
type TokenHandler struct {
	logger  *zap.Logger
	jwtServ *service.JWTService
	auth    *Authenticator
}

func NewTokenHandler(logger *zap.Logger, jwtServ *service.JWTService, auth *Authenticator) *TokenHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenHandler{logger: logger, jwtServ: jwtServ, auth: auth}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func isTokenError(err error) bool {
	return errors.Is(err, service.ErrJWTInvalid) || errors.Is(err, service.ErrJWTExpired)
}

// Refresh maneja POST /auth/refresh. El titular del token debe seguir
// existiendo y habilitado antes de emitir el nuevo par.
func (h *TokenHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		writeBadRequest(c, "Refresh token is required")
		return
	}
	if h.jwtServ == nil {
		writeError(c, h.logger, "refresh", errJWTNotConfigured)
		return
	}
	var check service.PrincipalCheck
	if h.auth != nil {
		check = h.auth.CheckPrincipal
	}
	tokens, err := h.jwtServ.RefreshPair(c.Request.Context(), req.RefreshToken, check)
	if err != nil {
		if isTokenError(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"status": false, "message": "Invalid token"})
			return
		}
		writeError(c, h.logger, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, tokenFields(gin.H{"status": true, "message": "Token refreshed"}, tokens))
}

// Logout maneja POST /auth/logout. Tokens invalidos o ya revocados responden
// 204; un fallo del store no.
func (h *TokenHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid logout request", zap.Error(err))
		writeBadRequest(c, "Refresh token is required")
		return
	}
	if h.jwtServ == nil {
		writeError(c, h.logger, "logout", errJWTNotConfigured)
		return
	}
	if err := h.jwtServ.RevokeRefresh(req.RefreshToken); err != nil && !isTokenError(err) {
		writeError(c, h.logger, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}
