package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"planfusion/internal/domain"
)

const (
	SessionCookieName = "pf_session"
	SessionHeaderName = "X-Session-Token"
	sessionContextKey = "pf_session"
)

// SessionResolver resuelve un token opaco a su sesion vigente.
type SessionResolver interface {
	Session(ctx context.Context, token string) (domain.Session, error)
}

// sessionToken prioriza el header sobre la cookie.
func sessionToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(SessionHeaderName)); token != "" {
		return token
	}
	token, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(token)
}

// LoadSession adjunta la sesion si el token es valido; nunca corta la request.
func LoadSession(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c); token != "" {
			if session, err := resolver.Session(c.Request.Context(), token); err == nil {
				c.Set(sessionContextKey, session)
			}
		}
		c.Next()
	}
}

func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok || !session.IsAuthenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "login required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequirePendingLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok || !session.IsPending() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "no login in progress"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentSession(c *gin.Context) (domain.Session, bool) {
	val, ok := c.Get(sessionContextKey)
	if !ok {
		return domain.Session{}, false
	}
	session, ok := val.(domain.Session)
	return session, ok
}

// CurrentEmail devuelve el email autenticado de la request.
func CurrentEmail(c *gin.Context) (string, bool) {
	session, ok := CurrentSession(c)
	if !ok || !session.IsAuthenticated() {
		return "", false
	}
	return session.AuthenticatedEmail, true
}

// cookieWriter emite la cookie de sesion con los flags del entorno.
type cookieWriter struct {
	secure bool
	now    func() time.Time
}

func (w cookieWriter) set(c *gin.Context, session domain.Session) {
	maxAge := 0
	if session.RememberMe && session.IsAuthenticated() {
		maxAge = int(session.ExpiresAt.Sub(w.now()).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, session.Token, maxAge, "/", "", w.secure, true)
}

func (w cookieWriter) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", w.secure, true)
}
