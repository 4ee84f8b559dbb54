package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planfusion/internal/domain"
	"planfusion/internal/service"
)

// LoginFlow es la maquina de estados de login expuesta por AuthService.
type LoginFlow interface {
	SessionResolver
	SubmitPassword(ctx context.Context, currentToken, email, password string, rememberMe bool) (domain.Session, error)
	SubmitOTP(ctx context.Context, pending domain.Session, code string) (service.LoginResult, error)
	ResendOTP(ctx context.Context, pending domain.Session) (domain.Session, error)
	Logout(ctx context.Context, token string) error
}

// AccountManager cubre registro, reseteo de password y preferencias.
type AccountManager interface {
	Register(ctx context.Context, name, email, password string) (domain.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, token, newPassword, confirm string) error
	Preferences(ctx context.Context, email string) (domain.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, email string, prefs domain.NotificationPreferences) error
}

type AuthHandler struct {
	logger   *zap.Logger
	auth     LoginFlow
	accounts AccountManager
	cookies  cookieWriter
}

func NewAuthHandler(logger *zap.Logger, auth LoginFlow, accounts AccountManager, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		auth:     auth,
		accounts: accounts,
		cookies:  cookieWriter{secure: cookieSecure, now: time.Now},
	}
}

func sessionResponse(session domain.Session) gin.H {
	return gin.H{
		"phase":         session.Phase,
		"session_token": session.Token,
		"expires_at":    session.ExpiresAt,
	}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "register", err)
		return
	}
	account, err := h.accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// Login maneja POST /auth/login: password correcto deja la sesion esperando el OTP.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email      string `json:"email" binding:"required"`
		Password   string `json:"password" binding:"required"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "login", err)
		return
	}

	current := sessionToken(c)
	session, err := h.auth.SubmitPassword(c.Request.Context(), current, req.Email, req.Password, req.RememberMe)
	if err != nil {
		if session.Token != "" && errors.Is(err, service.ErrNotificationDeliveryFailed) {
			// La sesion queda en password_pending para permitir el reenvio.
			h.cookies.set(c, session)
			status, body := errorBody(err)
			body["phase"] = session.Phase
			body["session_token"] = session.Token
			h.logger.Error("request failed", zap.Error(err), zap.String("op", "login"), zap.String("email", session.PendingEmail))
			c.JSON(status, body)
			return
		}
		if current != "" {
			h.cookies.clear(c)
		}
		respondError(c, h.logger, "login", err)
		return
	}
	h.cookies.set(c, session)
	c.JSON(http.StatusOK, sessionResponse(session))
}

// VerifyOTP maneja POST /auth/otp/verify.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "verify otp", err)
		return
	}
	pending, _ := CurrentSession(c)
	result, err := h.auth.SubmitOTP(c.Request.Context(), pending, req.Code)
	if err != nil {
		respondError(c, h.logger, "verify otp", err)
		return
	}
	h.cookies.set(c, result.Session)
	body := sessionResponse(result.Session)
	body["email"] = result.Session.AuthenticatedEmail
	body["notification_count"] = result.NotificationCount
	c.JSON(http.StatusOK, body)
}

// ResendOTP maneja POST /auth/otp/resend.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	pending, _ := CurrentSession(c)
	session, err := h.auth.ResendOTP(c.Request.Context(), pending)
	if err != nil {
		respondError(c, h.logger, "resend otp", err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// Logout maneja POST /auth/logout y siempre limpia la cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), sessionToken(c)); err != nil {
		respondError(c, h.logger, "logout", err)
		return
	}
	h.cookies.clear(c)
	c.Status(http.StatusNoContent)
}

// ForgotPassword maneja POST /auth/password/forgot.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "forgot password", err)
		return
	}
	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, "forgot password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset_email_sent"})
}

// ResetPassword maneja POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token           string `json:"token" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirm_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "reset password", err)
		return
	}
	if err := h.accounts.CompletePasswordReset(c.Request.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		respondError(c, h.logger, "reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_reset"})
}

// GetPreferences maneja GET /api/user/notification-preferences.
func (h *AuthHandler) GetPreferences(c *gin.Context) {
	email, _ := CurrentEmail(c)
	prefs, err := h.accounts.Preferences(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, "get preferences", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification_preferences": prefs})
}

type preferencesRequest struct {
	PushNotifications       *bool `json:"push_notifications" binding:"required"`
	EmailNotifications      *bool `json:"email_notifications" binding:"required"`
	DailyTaskReminders      *bool `json:"daily_task_reminders" binding:"required"`
	DueDateReminders        *bool `json:"due_date_reminders" binding:"required"`
	CompletionNotifications *bool `json:"completion_notifications" binding:"required"`
}

// UpdatePreferences maneja POST /api/user/notification-preferences; reemplaza los cinco flags.
func (h *AuthHandler) UpdatePreferences(c *gin.Context) {
	email, _ := CurrentEmail(c)
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update preferences", err)
		return
	}
	prefs := domain.NotificationPreferences{
		PushNotifications:       *req.PushNotifications,
		EmailNotifications:      *req.EmailNotifications,
		DailyTaskReminders:      *req.DailyTaskReminders,
		DueDateReminders:        *req.DueDateReminders,
		CompletionNotifications: *req.CompletionNotifications,
	}
	if err := h.accounts.UpdatePreferences(c.Request.Context(), email, prefs); err != nil {
		respondError(c, h.logger, "update preferences", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification_preferences": prefs})
}
