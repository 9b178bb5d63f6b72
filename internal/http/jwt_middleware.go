package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/service"
)

const (
	authClaimsKey = "auth_claims"
	authUserKey   = "auth_user"
	authAdminKey  = "auth_admin"
)

// Authenticator resuelve el principal del token contra el almacenamiento.
type Authenticator struct {
	logger *zap.Logger
	jwt    *service.JWTService
	users  *service.UserService
	admins *service.AdminService
}

func NewAuthenticator(logger *zap.Logger, jwtSvc *service.JWTService, users *service.UserService, admins *service.AdminService) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{logger: logger, jwt: jwtSvc, users: users, admins: admins}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": false, "message": message})
}

// JWTAuthMiddleware valida JWT access tokens y guarda claims en el contexto.
// Si el token es de usuario, la cuenta debe existir y no estar suspendida; si
// es de administrador, debe existir y estar activo.
func (a *Authenticator) JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.jwt == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": false, "message": "jwt not configured"})
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			abortUnauthorized(c, "Access denied. No token provided.")
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := a.jwt.ParseAccessToken(token)
		if err != nil {
			if errors.Is(err, service.ErrJWTExpired) {
				abortUnauthorized(c, "Token has expired")
				return
			}
			abortUnauthorized(c, "Invalid token")
			return
		}

		switch claims.Kind {
		case service.PrincipalUser:
			if !a.loadUser(c, claims.UserID) {
				return
			}
		case service.PrincipalAdmin:
			if !a.loadAdmin(c, claims.UserID) {
				return
			}
		default:
			abortUnauthorized(c, "Invalid token")
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

var (
	errAuthUserNotFound  = &service.Error{Kind: service.ErrUnauthorized, Message: "User not found"}
	errAuthAdminNotFound = &service.Error{Kind: service.ErrUnauthorized, Message: "Admin not found"}
)

// lookupUser carga el usuario del token; una cuenta suspendida no se acepta.
func (a *Authenticator) lookupUser(ctx context.Context, id string) (domain.User, error) {
	if a.users == nil {
		return domain.User{}, service.ErrJWTInvalid
	}
	user, err := a.users.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrValidation) {
			return domain.User{}, errAuthUserNotFound
		}
		return domain.User{}, err
	}
	if user.IsSuspended() {
		return domain.User{}, service.ErrAccountSuspended
	}
	return user, nil
}

func (a *Authenticator) lookupAdmin(ctx context.Context, id string) (domain.Admin, error) {
	if a.admins == nil {
		return domain.Admin{}, service.ErrJWTInvalid
	}
	admin, err := a.admins.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return domain.Admin{}, errAuthAdminNotFound
		}
		return domain.Admin{}, err
	}
	return admin, nil
}

// CheckPrincipal aplica a un principal las mismas reglas de estado que el
// middleware. Se usa al rotar refresh tokens.
func (a *Authenticator) CheckPrincipal(ctx context.Context, p service.Principal) error {
	switch p.Kind {
	case service.PrincipalUser:
		_, err := a.lookupUser(ctx, p.ID)
		return err
	case service.PrincipalAdmin:
		_, err := a.lookupAdmin(ctx, p.ID)
		return err
	}
	return service.ErrJWTInvalid
}

// abortAuth corta la request segun el error de resolucion del principal.
func (a *Authenticator) abortAuth(c *gin.Context, err error) {
	var svcErr *service.Error
	switch {
	case errors.Is(err, service.ErrJWTInvalid):
		abortUnauthorized(c, "Invalid token")
	case errors.As(err, &svcErr):
		c.AbortWithStatusJSON(statusFor(err), gin.H{"status": false, "message": svcErr.Message})
	default:
		a.logger.Error("auth principal lookup failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": false, "message": internalErrorMessage})
	}
}

func (a *Authenticator) loadUser(c *gin.Context, id string) bool {
	user, err := a.lookupUser(c.Request.Context(), id)
	if err != nil {
		a.abortAuth(c, err)
		return false
	}
	c.Set(authUserKey, user)
	return true
}

func (a *Authenticator) loadAdmin(c *gin.Context, id string) bool {
	admin, err := a.lookupAdmin(c.Request.Context(), id)
	if err != nil {
		a.abortAuth(c, err)
		return false
	}
	c.Set(authAdminKey, admin)
	return true
}

// RequireAdmin deja pasar solo tokens de administrador. Con roles no vacio,
// el rol del administrador debe estar en la lista.
func RequireAdmin(roles ...domain.AdminRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := GetAuthAdmin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": false, "message": "Admin access required"})
			return
		}
		if len(roles) == 0 {
			c.Next()
			return
		}
		for _, r := range roles {
			if admin.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": false, "message": service.ErrInsufficientRights.Message})
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

func GetAuthUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

func GetAuthAdmin(c *gin.Context) (domain.Admin, bool) {
	val, ok := c.Get(authAdminKey)
	if !ok {
		return domain.Admin{}, false
	}
	admin, ok := val.(domain.Admin)
	return admin, ok
}
