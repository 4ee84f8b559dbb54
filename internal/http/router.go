package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers agrupa los handlers montados por el router.
type Handlers struct {
	Auth      *AuthHandler
	Dashboard *DashboardHandler
	Tasks     *TaskHandler
	Skills    *SkillHandler
	Goals     *GoalHandler
	Contacts  *ContactHandler
}

// NewRouter configura el router de Gin con middlewares y rutas.
// Solo se lee X-Forwarded-For de los proxies en trustedProxies; nil usa la IP del socket.
func NewRouter(logger *zap.Logger, sessions SessionResolver, authLimiter *IPRateLimiter, trustedProxies []string, h Handlers) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, using socket address", zap.Error(err), zap.Strings("trusted_proxies", trustedProxies))
		_ = r.SetTrustedProxies(nil)
	}

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware(), LoadSession(sessions))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	if authLimiter != nil {
		auth.Use(authLimiter.Middleware())
	}
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)
	auth.POST("/password/forgot", h.Auth.ForgotPassword)
	auth.POST("/password/reset", h.Auth.ResetPassword)

	otp := auth.Group("/otp", RequirePendingLogin())
	otp.POST("/verify", h.Auth.VerifyOTP)
	otp.POST("/resend", h.Auth.ResendOTP)

	api := r.Group("/api", RequireAuthenticated())
	api.GET("/dashboard", h.Dashboard.Dashboard)
	api.GET("/notifications/count", h.Dashboard.NotificationCount)
	api.POST("/notifications/test", h.Dashboard.TestNotification)
	api.GET("/user/notification-preferences", h.Auth.GetPreferences)
	api.POST("/user/notification-preferences", h.Auth.UpdatePreferences)

	api.GET("/tasks", h.Tasks.List)
	api.POST("/tasks", h.Tasks.Create)
	api.PUT("/tasks/:id", h.Tasks.Update)
	api.DELETE("/tasks/:id", h.Tasks.Delete)

	api.GET("/skills", h.Skills.List)
	api.POST("/skills", h.Skills.Create)
	api.PUT("/skills/:id", h.Skills.Update)
	api.DELETE("/skills/:id", h.Skills.Delete)
	api.PUT("/skills/:id/day/:date", h.Skills.UpdateDay)

	api.GET("/goals", h.Goals.List)
	api.POST("/goals", h.Goals.Create)
	api.PUT("/goals/:id", h.Goals.Update)
	api.DELETE("/goals/:id", h.Goals.Delete)

	api.GET("/contacts", h.Contacts.List)
	api.POST("/contacts", h.Contacts.Create)
	api.PUT("/contacts/:id", h.Contacts.Update)
	api.DELETE("/contacts/:id", h.Contacts.Delete)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
