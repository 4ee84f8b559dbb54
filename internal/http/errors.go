package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planfusion/internal/service"
)

const tryAgainLater = "something went wrong, try again later"

type errorMapping struct {
	target error
	status int
	code   string
}

// Orden relevante: los errores tipados se resuelven antes que los genericos.
var errorMappings = []errorMapping{
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{service.ErrPasswordMismatch, http.StatusBadRequest, "password_mismatch"},
	{service.ErrResetTokenInvalid, http.StatusBadRequest, "reset_token_invalid"},
	{service.ErrResetTokenExpired, http.StatusBadRequest, "reset_token_expired"},
	{service.ErrOTPNotFound, http.StatusBadRequest, "otp_not_found"},
	{service.ErrOTPExpired, http.StatusBadRequest, "otp_expired"},
	{service.ErrOTPMismatch, http.StatusUnauthorized, "otp_mismatch"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{service.ErrUnknownAccount, http.StatusNotFound, "unknown_account"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrSkillNotFound, http.StatusNotFound, "skill_not_found"},
	{service.ErrDayNotFound, http.StatusNotFound, "day_not_found"},
	{service.ErrDuplicateAccount, http.StatusConflict, "duplicate_account"},
	{service.ErrDuplicateTask, http.StatusConflict, "duplicate_task"},
	{service.ErrNotificationsDisabled, http.StatusConflict, "notifications_disabled"},
	{service.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{service.ErrNotificationDeliveryFailed, http.StatusServiceUnavailable, "notification_delivery_failed"},
	{service.ErrStorageFailure, http.StatusInternalServerError, "storage_failure"},
}

// errorBody traduce un error de servicio a status y cuerpo JSON.
func errorBody(err error) (int, gin.H) {
	var weak *service.WeakPasswordError
	if errors.As(err, &weak) {
		return http.StatusBadRequest, gin.H{"error": "weak_password", "message": err.Error(), "rule": weak.Rule}
	}
	var locked *service.AccountLockedError
	if errors.As(err, &locked) {
		return http.StatusLocked, gin.H{
			"error":             "account_locked",
			"message":           err.Error(),
			"remaining_minutes": locked.RemainingMinutes,
		}
	}
	var incorrect *service.IncorrectPasswordError
	if errors.As(err, &incorrect) {
		body := gin.H{
			"error":              "incorrect_password",
			"message":            err.Error(),
			"remaining_attempts": incorrect.RemainingAttempts,
		}
		if incorrect.LockedUntil != nil {
			body["locked_until"] = incorrect.LockedUntil
		}
		return http.StatusUnauthorized, body
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := err.Error()
		if m.status >= http.StatusInternalServerError {
			msg = tryAgainLater
		}
		return m.status, gin.H{"error": m.code, "message": msg}
	}
	return http.StatusInternalServerError, gin.H{"error": "internal_error", "message": tryAgainLater}
}

// respondError escribe el error y loguea solo las fallas de infraestructura.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		fields := []zap.Field{zap.Error(err), zap.String("op", op)}
		if email, ok := CurrentEmail(c); ok {
			fields = append(fields, zap.String("email", email))
		}
		logger.Error("request failed", fields...)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Warn("invalid request", zap.String("op", op), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid request"})
}
