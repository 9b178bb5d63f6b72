package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ceebrain-identity/internal/domain"
)

// Handlers reune los handlers y el autenticador que monta el router.
type Handlers struct {
	Users   *UserHandler
	OTP     *OTPHandler
	Admin   *AdminHandler
	Tokens  *TokenHandler
	Auth    *Authenticator
	Metrics http.Handler
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, h Handlers) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/", jsonContentTypeMiddleware())
	api.POST("/signup", h.Users.Signup)
	api.POST("/login", h.Users.Login)
	api.POST("/sendOTP", h.OTP.SendOTP)
	api.POST("/verifyOTP", h.OTP.VerifyOTP)

	auth := api.Group("/auth")
	auth.POST("/refresh", h.Tokens.Refresh)
	auth.POST("/logout", h.Tokens.Logout)

	requireAuth := h.Auth.JWTAuthMiddleware()

	users := api.Group("/users", requireAuth)
	users.GET("", h.Users.ListUsers)
	users.PUT("/me/profile", h.Users.UpdateMyProfile)
	users.GET("/:id", h.Users.GetUser)
	users.PUT("/:id/profile", h.Users.UpdateProfile)
	users.PUT("/:id/change-password", h.Users.ChangePassword)

	admin := api.Group("/admin")
	admin.POST("/login", h.Admin.Login)
	admin.POST("/forgot-password", h.Admin.ForgotPassword)
	admin.POST("/reset-password", h.Admin.ResetPassword)
	admin.POST("/register", requireAuth, RequireAdmin(domain.AdminRoleSuperAdmin), h.Admin.Register)

	moderation := admin.Group("/users", requireAuth, RequireAdmin())
	moderation.PUT("/:id/status", h.Admin.SetUserStatus)
	moderation.PUT("/:id/verification", h.Admin.SetUserVerification)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
// /metrics queda fuera porque responde en formato texto de Prometheus.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
