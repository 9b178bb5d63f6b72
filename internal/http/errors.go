package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ceebrain-identity/internal/service"
)

const internalErrorMessage = "Internal server error"

// statusFor traduce la clase del error de servicio a un codigo HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeError responde con el sobre {status:false, message}. Los errores sin
// clase se registran y se ocultan al cliente.
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	body := gin.H{"status": false}

	var mismatch *service.OTPMismatchError
	var svcErr *service.Error
	switch {
	case errors.As(err, &mismatch):
		body["message"] = mismatch.Error()
		body["remainingAttempts"] = mismatch.Remaining
	case errors.As(err, &svcErr):
		body["message"] = svcErr.Message
		if svcErr.Field != "" {
			body["field"] = svcErr.Field
		}
		if errors.Is(err, service.ErrDelivery) {
			logger.Warn(op+" failed", zap.Error(err))
		}
	default:
		logger.Error(op+" failed", zap.Error(err))
		body["message"] = internalErrorMessage
	}
	c.JSON(status, body)
}

func writeBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": message})
}
